package analyzer

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/driftwatch/driftwatch/pkg/types"
)

func TestBaseFromTTL(t *testing.T) {
	tests := []struct {
		ttl  int
		want time.Duration
	}{
		{0, 20 * time.Minute},
		{59, 20 * time.Minute},
		{60, 15 * time.Minute},
		{299, 15 * time.Minute},
		{300, 10 * time.Minute},  // max(2*300s, 5min)
		{899, 2 * 899 * time.Second},
		{900, 15 * time.Minute},  // max(900s, 5min)
		{3600, time.Hour},
	}
	for _, tt := range tests {
		if got := baseFromTTL(tt.ttl); got != tt.want {
			t.Errorf("baseFromTTL(%d) = %s, want %s", tt.ttl, got, tt.want)
		}
	}
}

// Business-hours complete change: critical severity cuts the interval hard
func TestDecideCriticalBusinessHours(t *testing.T) {
	now := time.Date(2024, 6, 4, 10, 0, 0, 0, time.UTC) // Tuesday 10:00 UTC

	d := Decide(Signals{
		Change:     types.ChangeContext{Type: types.ChangeCompleteChange, Severity: types.SeverityCritical, TTL: 3600, At: now},
		Temporal:   types.TemporalContext{IsBusinessHours: true, Pattern: types.TimeNormal},
		CurrentIPs: []string{"9.9.9.9"},
		Now:        now,
	})

	// 1h base, critical 0.3 and business hours 0.8
	assert.InDelta(t, float64(time.Hour)*0.3*0.8, float64(d.Period), float64(time.Millisecond))
	assert.True(t, d.Notify)
	assert.False(t, d.AutoSuppress)
	assert.False(t, d.Oscillation)
}

// Failover during business hours: 15min base, failover 0.5, business 0.8,
// high severity 0.6
func TestDecideFailoverBusinessHours(t *testing.T) {
	now := time.Date(2024, 6, 4, 10, 0, 0, 0, time.UTC)

	d := Decide(Signals{
		Change:     types.ChangeContext{Type: types.ChangeReplacement, Severity: types.SeverityHigh, TTL: 299, At: now},
		LB:         types.LBResult{IsLoadBalancer: true, Pattern: types.LBFailover, Confidence: 0.6},
		Temporal:   types.TemporalContext{IsBusinessHours: true, Pattern: types.TimeNormal},
		CurrentIPs: []string{"9.9.9.9"},
		Now:        now,
	})

	assert.InDelta(t, float64(15*time.Minute)*0.5*0.8*0.6, float64(d.Period), float64(time.Millisecond))
	assert.True(t, d.Notify)
}

func TestDecideMultiplierStacking(t *testing.T) {
	now := time.Date(2024, 6, 4, 3, 0, 0, 0, time.UTC)

	// CDN high confidence, round robin, maintenance window, low severity:
	// every factor raises the interval, clamped at the 4 hour ceiling
	d := Decide(Signals{
		Change:     types.ChangeContext{Type: types.ChangeReplacement, Severity: types.SeverityLow, TTL: 59, At: now},
		CDN:        types.CDNResult{IsAnyCDN: true, Confidence: 1.0, Provider: "Cloudflare"},
		LB:         types.LBResult{IsLoadBalancer: true, Pattern: types.LBRoundRobin, Confidence: 0.8},
		Temporal:   types.TemporalContext{IsMaintenanceWindow: true, Pattern: types.TimeMaintenanceWindow},
		CurrentIPs: []string{"104.16.0.1"},
		Now:        now,
	})

	// 20min * 2.0 * 3.0 * 1.5 * 2.0 = 6h, clamped to 4h
	assert.Equal(t, 4*time.Hour, d.Period)
}

func TestDecideCDNConfidenceTiers(t *testing.T) {
	now := time.Date(2024, 6, 4, 20, 0, 0, 0, time.UTC)
	base := Signals{
		Change:     types.ChangeContext{Type: types.ChangeReplacement, Severity: types.SeverityMedium, TTL: 3600, At: now},
		Temporal:   types.TemporalContext{Pattern: types.TimeOffHours},
		CurrentIPs: []string{"104.16.0.1"},
		Now:        now,
	}

	high := base
	high.CDN = types.CDNResult{IsAnyCDN: true, Confidence: 0.9}
	assert.Equal(t, 2*time.Hour, Decide(high).Period)

	low := base
	low.CDN = types.CDNResult{IsAnyCDN: true, Confidence: 0.5}
	assert.Equal(t, 90*time.Minute, Decide(low).Period)
}

func TestDecideChangeRateMultipliers(t *testing.T) {
	now := time.Date(2024, 6, 4, 20, 0, 0, 0, time.UTC)

	histories := []struct {
		name    string
		entries int
		want    time.Duration
	}{
		{"two changes no factor", 2, time.Hour},
		{"three changes doubles", 3, 2 * time.Hour},
		{"four changes doubles", 4, 2 * time.Hour},
		{"five changes quadruples", 5, 4 * time.Hour},
	}

	for _, tt := range histories {
		t.Run(tt.name, func(t *testing.T) {
			var history []types.IPHistoryEntry
			for i := 0; i < tt.entries; i++ {
				history = append(history, entryAt(now, time.Duration(i+1)*5*time.Minute, "203.0.113.7"))
			}

			d := Decide(Signals{
				Change:   types.ChangeContext{Type: types.ChangeReplacement, Severity: types.SeverityMedium, TTL: 3600, At: now},
				Temporal: types.TemporalContext{Pattern: types.TimeOffHours},
				// A fresh signature avoids the oscillation override
				CurrentIPs: []string{"198.51.100.9"},
				History:    history,
				Now:        now,
			})
			assert.Equal(t, tt.want, d.Period)
			assert.Equal(t, tt.entries, d.ChangesInLastHour)
		})
	}
}

func TestDecideOscillationOverride(t *testing.T) {
	now := time.Date(2024, 6, 4, 20, 0, 0, 0, time.UTC)
	seen := []string{"104.16.0.1", "104.16.0.2"}
	history := []types.IPHistoryEntry{
		entryAt(now, 10*time.Hour, seen...),
	}

	patterned := Decide(Signals{
		Change:     types.ChangeContext{Type: types.ChangeReplacement, Severity: types.SeverityMedium, TTL: 60, At: now},
		CDN:        types.CDNResult{IsAnyCDN: true, Confidence: 1.0, Provider: "Cloudflare"},
		Temporal:   types.TemporalContext{Pattern: types.TimeOffHours},
		CurrentIPs: seen,
		History:    history,
		Now:        now,
	})
	assert.True(t, patterned.Oscillation)
	assert.Equal(t, 2*time.Hour, patterned.Period)

	plain := Decide(Signals{
		Change:     types.ChangeContext{Type: types.ChangeReplacement, Severity: types.SeverityMedium, TTL: 60, At: now},
		Temporal:   types.TemporalContext{Pattern: types.TimeOffHours},
		CurrentIPs: []string{"203.0.113.7"},
		History:    []types.IPHistoryEntry{entryAt(now, 10*time.Hour, "203.0.113.7")},
		Now:        now,
	})
	assert.True(t, plain.Oscillation)
	assert.Equal(t, 30*time.Minute, plain.Period)

	stale := Decide(Signals{
		Change:     types.ChangeContext{Type: types.ChangeReplacement, Severity: types.SeverityMedium, TTL: 3600, At: now},
		Temporal:   types.TemporalContext{Pattern: types.TimeOffHours},
		CurrentIPs: []string{"203.0.113.7"},
		History:    []types.IPHistoryEntry{entryAt(now, 30*time.Hour, "203.0.113.7")},
		Now:        now,
	})
	assert.False(t, stale.Oscillation)
	assert.Equal(t, time.Hour, stale.Period)
}

func TestDecideAutoSuppressionThresholds(t *testing.T) {
	now := time.Date(2024, 6, 4, 20, 0, 0, 0, time.UTC)

	buildHistory := func(n int) []types.IPHistoryEntry {
		var h []types.IPHistoryEntry
		for i := 0; i < n; i++ {
			h = append(h, entryAt(now, time.Duration(i+1)*5*time.Minute, "203.0.113.7"))
		}
		return h
	}

	// Load balancer detected: threshold 3
	lb := types.LBResult{IsLoadBalancer: true, Pattern: types.LBRoundRobin, Confidence: 0.8}
	d := Decide(Signals{
		Change:     types.ChangeContext{Severity: types.SeverityMedium, TTL: 60, At: now},
		LB:         lb,
		Temporal:   types.TemporalContext{Pattern: types.TimeOffHours},
		CurrentIPs: []string{"198.51.100.9"},
		History:    buildHistory(3),
		Now:        now,
	})
	assert.True(t, d.AutoSuppress)

	d = Decide(Signals{
		Change:     types.ChangeContext{Severity: types.SeverityMedium, TTL: 60, At: now},
		LB:         lb,
		Temporal:   types.TemporalContext{Pattern: types.TimeOffHours},
		CurrentIPs: []string{"198.51.100.9"},
		History:    buildHistory(2),
		Now:        now,
	})
	assert.False(t, d.AutoSuppress)

	// No pattern: threshold 5
	d = Decide(Signals{
		Change:     types.ChangeContext{Severity: types.SeverityMedium, TTL: 60, At: now},
		Temporal:   types.TemporalContext{Pattern: types.TimeOffHours},
		CurrentIPs: []string{"198.51.100.9"},
		History:    buildHistory(4),
		Now:        now,
	})
	assert.False(t, d.AutoSuppress)

	d = Decide(Signals{
		Change:     types.ChangeContext{Severity: types.SeverityMedium, TTL: 60, At: now},
		Temporal:   types.TemporalContext{Pattern: types.TimeOffHours},
		CurrentIPs: []string{"198.51.100.9"},
		History:    buildHistory(5),
		Now:        now,
	})
	assert.True(t, d.AutoSuppress)
}

// Once auto-suppression engages, the quiet window is four hours even when
// the computed period is shorter
func TestDecideAutoSuppressionQuietWindow(t *testing.T) {
	now := time.Date(2024, 6, 4, 20, 0, 0, 0, time.UTC)
	var history []types.IPHistoryEntry
	for i := 0; i < 6; i++ {
		history = append(history, entryAt(now, time.Duration(i+1)*5*time.Minute, "203.0.113.7"))
	}
	lb := types.LBResult{IsLoadBalancer: true, Pattern: types.LBRoundRobin, Confidence: 0.8}

	// Last notice three hours ago: inside the window, stay silent
	d := Decide(Signals{
		Change:             types.ChangeContext{Severity: types.SeverityMedium, TTL: 60, At: now},
		LB:                 lb,
		Temporal:           types.TemporalContext{Pattern: types.TimeOffHours},
		CurrentIPs:         []string{"198.51.100.9"},
		History:            history,
		LastNotificationAt: now.Add(-3 * time.Hour),
		Now:                now,
	})
	assert.True(t, d.AutoSuppress)
	assert.False(t, d.Notify)

	// Five hours ago: the window elapsed, the notice goes out
	d = Decide(Signals{
		Change:             types.ChangeContext{Severity: types.SeverityMedium, TTL: 60, At: now},
		LB:                 lb,
		Temporal:           types.TemporalContext{Pattern: types.TimeOffHours},
		CurrentIPs:         []string{"198.51.100.9"},
		History:            history,
		LastNotificationAt: now.Add(-5 * time.Hour),
		Now:                now,
	})
	assert.True(t, d.AutoSuppress)
	assert.True(t, d.Notify)
}

func TestDecideNotifyWindow(t *testing.T) {
	now := time.Date(2024, 6, 4, 20, 0, 0, 0, time.UTC)
	signals := Signals{
		Change:     types.ChangeContext{Type: types.ChangeReplacement, Severity: types.SeverityMedium, TTL: 3600, At: now},
		Temporal:   types.TemporalContext{Pattern: types.TimeOffHours},
		CurrentIPs: []string{"198.51.100.9"},
		Now:        now,
	}

	never := signals
	assert.True(t, Decide(never).Notify)

	recent := signals
	recent.LastNotificationAt = now.Add(-30 * time.Minute)
	assert.False(t, Decide(recent).Notify) // period is 1h

	elapsed := signals
	elapsed.LastNotificationAt = now.Add(-90 * time.Minute)
	assert.True(t, Decide(elapsed).Notify)
}

// The clamp holds over a sweep of signal combinations
func TestDecidePeriodAlwaysClamped(t *testing.T) {
	now := time.Date(2024, 6, 4, 10, 0, 0, 0, time.UTC)
	ttls := []int{0, 59, 60, 299, 300, 899, 900, 3600, 86400}
	severities := []types.Severity{types.SeverityLow, types.SeverityMedium, types.SeverityHigh, types.SeverityCritical}
	patterns := []types.LBResult{
		{},
		{IsLoadBalancer: true, Pattern: types.LBRoundRobin},
		{IsLoadBalancer: true, Pattern: types.LBFailover},
		{IsLoadBalancer: true, Pattern: types.LBGeographic},
	}

	for _, ttl := range ttls {
		for _, sev := range severities {
			for _, lb := range patterns {
				d := Decide(Signals{
					Change:     types.ChangeContext{Severity: sev, TTL: ttl, At: now},
					LB:         lb,
					CDN:        types.CDNResult{IsAnyCDN: true, Confidence: 0.9},
					Temporal:   types.TemporalContext{IsBusinessHours: true},
					CurrentIPs: []string{"198.51.100.9"},
					Now:        now,
				})
				assert.GreaterOrEqual(t, d.Period, time.Minute)
				assert.LessOrEqual(t, d.Period, 4*time.Hour)
			}
		}
	}
}

// Cloudflare round-robin oscillation: the seventh cycle stays quiet
func TestDecideSuppressedRoundRobinCycle(t *testing.T) {
	now := time.Date(2024, 6, 4, 20, 0, 0, 0, time.UTC)
	setA := []string{"104.16.0.1", "104.16.0.2"}
	setB := []string{"104.16.0.3", "104.16.0.4"}

	var history []types.IPHistoryEntry
	for i := 0; i < 6; i++ {
		ips := setA
		if i%2 == 1 {
			ips = setB
		}
		history = append(history, entryAt(now, time.Duration(60-i*10)*time.Minute, ips...))
	}

	cdn := DetectCDN(setA)
	lb := AnalyzeLoadBalancer(history, now)
	assert.True(t, cdn.IsAnyCDN)
	assert.GreaterOrEqual(t, cdn.Confidence, 0.5)
	assert.Equal(t, types.LBRoundRobin, lb.Pattern)

	d := Decide(Signals{
		Change:             types.ChangeContext{Type: types.ChangeCompleteChange, Severity: types.SeverityMedium, TTL: 60, At: now},
		CDN:                cdn,
		LB:                 lb,
		Temporal:           types.TemporalContext{Pattern: types.TimeOffHours},
		CurrentIPs:         setA,
		History:            history,
		LastNotificationAt: now.Add(-45 * time.Minute),
		Now:                now,
	})

	assert.True(t, d.Oscillation)
	assert.Equal(t, 2*time.Hour, d.Period)
	assert.False(t, d.Notify)
}

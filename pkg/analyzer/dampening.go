package analyzer

import (
	"time"

	"github.com/driftwatch/driftwatch/pkg/types"
)

const (
	minPeriod = time.Minute
	maxPeriod = 4 * time.Hour

	oscillationHorizon   = 24 * time.Hour
	oscillationPatterned = 2 * time.Hour
	oscillationPlain     = 30 * time.Minute

	suppressionWindow = 4 * time.Hour
)

// Signals is everything the dampening calculator combines
type Signals struct {
	Change             types.ChangeContext
	CDN                types.CDNResult
	LB                 types.LBResult
	Temporal           types.TemporalContext
	CurrentIPs         []string
	History            []types.IPHistoryEntry
	LastNotificationAt time.Time
	Now                time.Time
}

// Decision is the calculator's verdict for one change
type Decision struct {
	// Period is the dampening interval after clamping and the oscillation
	// override, before any auto-suppression widening.
	Period time.Duration

	// Oscillation reports that the current IP signature reappeared within
	// the last 24 hours.
	Oscillation bool

	// ChangesInLastHour counts prior observed changes in the last hour.
	ChangesInLastHour int

	// AutoSuppress reports that the change-rate threshold was reached; a
	// notification, if emitted, becomes an auto-suppression notice and
	// opens a 4-hour quiet window.
	AutoSuppress bool

	// Notify is the final verdict: emit or stay silent.
	Notify bool
}

// Decide combines all analyzer signals into the final dampening verdict.
// Errors on this path fail open upstream: the observer prefers to notify
// rather than drop.
func Decide(s Signals) Decision {
	period := clamp(time.Duration(float64(baseFromTTL(s.Change.TTL)) * multiplier(s)))

	d := Decision{
		ChangesInLastHour: changesWithin(s.History, s.Now, time.Hour),
	}

	if seenWithin(s.History, s.CurrentIPs, s.Now, oscillationHorizon) {
		d.Oscillation = true
		if s.CDN.IsAnyCDN || s.LB.IsLoadBalancer {
			period = oscillationPatterned
		} else {
			period = oscillationPlain
		}
	}
	d.Period = period

	threshold := 5
	if s.LB.IsLoadBalancer {
		threshold = 3
	}
	d.AutoSuppress = d.ChangesInLastHour >= threshold

	// The notify window is the computed period, widened to 4 hours once
	// auto-suppression engages so a notice is followed by silence.
	window := period
	if d.AutoSuppress && window < suppressionWindow {
		window = suppressionWindow
	}

	d.Notify = s.LastNotificationAt.IsZero() || s.Now.Sub(s.LastNotificationAt) >= window
	return d
}

// baseFromTTL maps the record TTL (seconds) to the base dampening interval
func baseFromTTL(ttl int) time.Duration {
	t := time.Duration(ttl) * time.Second
	switch {
	case ttl < 60:
		return 20 * time.Minute
	case ttl < 300:
		return 15 * time.Minute
	case ttl < 900:
		return maxDuration(2*t, 5*time.Minute)
	default:
		return maxDuration(t, 5*time.Minute)
	}
}

// multiplier applies every matching signal factor, starting at 1.0
func multiplier(s Signals) float64 {
	m := 1.0

	if s.CDN.IsAnyCDN {
		if s.CDN.Confidence > 0.8 {
			m *= 2.0
		} else {
			m *= 1.5
		}
	}

	if s.LB.IsLoadBalancer {
		switch s.LB.Pattern {
		case types.LBRoundRobin:
			m *= 3.0
		case types.LBWeighted:
			m *= 2.0
		case types.LBFailover:
			m *= 0.5
		default:
			m *= 1.5
		}
	}

	if s.Temporal.IsMaintenanceWindow {
		m *= 1.5
	}
	if s.Temporal.IsBusinessHours {
		m *= 0.8
	}

	switch s.Change.Severity {
	case types.SeverityCritical:
		m *= 0.3
	case types.SeverityHigh:
		m *= 0.6
	case types.SeverityLow:
		m *= 2.0
	}

	changes := changesWithin(s.History, s.Now, time.Hour)
	switch {
	case changes >= 5:
		m *= 4.0
	case changes >= 3:
		m *= 2.0
	}

	return m
}

// changesWithin counts history entries observed inside the window ending now
func changesWithin(history []types.IPHistoryEntry, now time.Time, window time.Duration) int {
	cutoff := now.Add(-window)
	count := 0
	for _, e := range history {
		if !e.At().Before(cutoff) {
			count++
		}
	}
	return count
}

// seenWithin reports whether the given IP signature already appears in the
// history inside the window ending now
func seenWithin(history []types.IPHistoryEntry, ips []string, now time.Time, window time.Duration) bool {
	sig := signature(ips)
	cutoff := now.Add(-window)
	for _, e := range history {
		if e.At().Before(cutoff) {
			continue
		}
		if signature(e.IPs) == sig {
			return true
		}
	}
	return false
}

func clamp(d time.Duration) time.Duration {
	if d < minPeriod {
		return minPeriod
	}
	if d > maxPeriod {
		return maxPeriod
	}
	return d
}

func maxDuration(a, b time.Duration) time.Duration {
	if a > b {
		return a
	}
	return b
}

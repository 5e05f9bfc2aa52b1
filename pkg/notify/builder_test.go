package notify

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/driftwatch/driftwatch/pkg/types"
)

func baseBundle() Bundle {
	return Bundle{
		Domain:      "www.example.com",
		PreviousIPs: []string{"5.5.5.5"},
		CurrentIPs:  []string{"9.9.9.9"},
		Change: types.ChangeContext{
			Type:     types.ChangeReplacement,
			Severity: types.SeverityMedium,
			TTL:      300,
			At:       time.Date(2024, 6, 4, 10, 0, 0, 0, time.UTC),
		},
		Temporal: types.TemporalContext{Pattern: types.TimeNormal},
	}
}

func TestChangeTitleSelectionOrder(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Bundle)
		want   string
	}{
		{
			name: "coordinated wins over everything",
			mutate: func(b *Bundle) {
				b.Coordinated = types.CoordinationResult{IsCoordinated: true, Score: 0.9}
				b.Change.Severity = types.SeverityCritical
				b.LB = types.LBResult{IsLoadBalancer: true, Pattern: types.LBFailover}
				b.CDN = types.CDNResult{IsAnyCDN: true, Confidence: 1}
			},
			want: TitleCoordinated,
		},
		{
			name: "critical beats failover",
			mutate: func(b *Bundle) {
				b.Change.Severity = types.SeverityCritical
				b.LB = types.LBResult{IsLoadBalancer: true, Pattern: types.LBFailover}
			},
			want: TitleCritical,
		},
		{
			name: "failover beats cdn",
			mutate: func(b *Bundle) {
				b.LB = types.LBResult{IsLoadBalancer: true, Pattern: types.LBFailover}
				b.CDN = types.CDNResult{IsAnyCDN: true, Confidence: 1}
			},
			want: TitleFailover,
		},
		{
			name: "cdn beats maintenance",
			mutate: func(b *Bundle) {
				b.CDN = types.CDNResult{IsAnyCDN: true, Confidence: 0.4}
				b.Temporal.IsMaintenanceWindow = true
			},
			want: TitleCDN,
		},
		{
			name: "maintenance beats complete change",
			mutate: func(b *Bundle) {
				b.Temporal.IsMaintenanceWindow = true
				b.Change.Type = types.ChangeCompleteChange
			},
			want: TitleMaintenance,
		},
		{
			name: "complete change",
			mutate: func(b *Bundle) {
				b.Change.Type = types.ChangeCompleteChange
			},
			want: TitleCompleteChange,
		},
		{
			name:   "default",
			mutate: func(b *Bundle) {},
			want:   TitleDefault,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			b := baseBundle()
			tt.mutate(&b)
			n := BuildChange(b)
			assert.Equal(t, tt.want, n.Title)
		})
	}
}

func TestSeverityColors(t *testing.T) {
	tests := []struct {
		severity types.Severity
		want     types.SeverityColor
	}{
		{types.SeverityCritical, types.ColorRed},
		{types.SeverityHigh, types.ColorOrange},
		{types.SeverityMedium, types.ColorYellow},
		{types.SeverityLow, types.ColorBlue},
		{types.Severity("bogus"), types.ColorGray},
	}
	for _, tt := range tests {
		b := baseBundle()
		b.Change.Severity = tt.severity
		assert.Equal(t, tt.want, BuildChange(b).Color)
	}
}

func TestBuildChangeFields(t *testing.T) {
	b := baseBundle()
	b.CDN = types.CDNResult{IsAnyCDN: true, Confidence: 0.75, Provider: "Cloudflare"}
	b.LB = types.LBResult{IsLoadBalancer: true, Pattern: types.LBRoundRobin, Confidence: 0.8, Analysis: "cycling"}
	b.Coordinated = types.CoordinationResult{IsCoordinated: true, Score: 0.8, RelatedDomains: []string{"api.example.com"}}
	b.SOA = &types.SOARecord{PrimaryNS: "ns1.example.com", AdminEmail: "hostmaster@example.com", Serial: "42"}
	b.Period = 18 * time.Minute

	n := BuildChange(b)

	names := make(map[string]string)
	for _, f := range n.Fields {
		names[f.Name] = f.Value
	}
	assert.Equal(t, "5.5.5.5", names["Previous IPs"])
	assert.Equal(t, "9.9.9.9", names["Current IPs"])
	assert.Equal(t, "replacement", names["Change Type"])
	assert.Equal(t, "300s", names["TTL"])
	assert.Contains(t, names["CDN"], "Cloudflare")
	assert.Contains(t, names["Load Balancer"], "round_robin")
	assert.Contains(t, names["Coordinated Change"], "api.example.com")
	assert.Contains(t, names["SOA"], "serial 42")
	assert.Contains(t, names["Dampening"], "18m")
	assert.NotEmpty(t, n.Actions)
	assert.NotEmpty(t, n.ID)
}

func TestBuildChangeEmptySets(t *testing.T) {
	b := baseBundle()
	b.PreviousIPs = nil
	b.Change.Type = types.ChangeAddition

	n := BuildChange(b)
	for _, f := range n.Fields {
		if f.Name == "Previous IPs" {
			assert.Equal(t, "none", f.Value)
		}
	}
}

func TestRecommendedActionsDeterministic(t *testing.T) {
	b := baseBundle()
	b.Change.Severity = types.SeverityCritical
	b.Change.Type = types.ChangeCompleteChange

	first := BuildChange(b)
	second := BuildChange(b)
	assert.Equal(t, first.Actions, second.Actions)
	assert.NotEmpty(t, first.Actions)
}

func TestOperationalBuilders(t *testing.T) {
	now := time.Date(2024, 6, 4, 10, 0, 0, 0, time.UTC)

	n := BuildAutoSuppression("www.example.com", 6, 4*time.Hour, now)
	assert.Equal(t, types.NotificationAutoSuppression, n.Kind)
	assert.Equal(t, TitleAutoSuppression, n.Title)

	n = BuildError("www.example.com", errors.New("connect timeout"), now)
	assert.Equal(t, types.NotificationError, n.Kind)
	assert.Equal(t, TitleError, n.Title)
	assert.Equal(t, types.ColorGray, n.Color)

	n = BuildNoAuthority("www.example.com", now)
	assert.Equal(t, types.NotificationNoAuthority, n.Kind)
	assert.Equal(t, TitleNoAuthority, n.Title)

	n = BuildZoneUpdated("www.example.com", "41", "42", now)
	assert.Equal(t, types.NotificationZoneUpdated, n.Kind)
	assert.Equal(t, TitleZoneUpdated, n.Title)

	n = BuildDeployment("deploy-7", 12, now)
	assert.Equal(t, types.NotificationDeployment, n.Kind)
	assert.Equal(t, TitleDeployment, n.Title)
}

package notify

import (
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/driftwatch/driftwatch/pkg/types"
)

// Titles for the builder's output paths. First match wins for change
// notifications; the operational paths have fixed titles.
const (
	TitleCoordinated     = "Coordinated Infrastructure Change Detected"
	TitleCritical        = "Critical DNS Change Detected"
	TitleFailover        = "Load Balancer Failover Detected"
	TitleCDN             = "CDN Configuration Change"
	TitleMaintenance     = "DNS Change During Maintenance Window"
	TitleCompleteChange  = "Complete IP Address Change"
	TitleDefault         = "DNS Change Detected"
	TitleAutoSuppression = "Notifications Auto-Suppressed"
	TitleError           = "Error Monitoring Domain"
	TitleNoAuthority     = "DNS Authority Unreachable"
	TitleZoneUpdated     = "DNS Zone Updated"
	TitleDeployment      = "New Deployment Detected"
)

// Bundle is the full classification result for one change, as assembled by
// the observer. The builder is a pure function of it.
type Bundle struct {
	Domain      string
	PreviousIPs []string
	CurrentIPs  []string
	Change      types.ChangeContext
	CDN         types.CDNResult
	LB          types.LBResult
	Temporal    types.TemporalContext
	Coordinated types.CoordinationResult
	SOA         *types.SOARecord
	Period      time.Duration
}

// BuildChange produces the notification for an analyzed change
func BuildChange(b Bundle) *types.Notification {
	n := &types.Notification{
		ID:       uuid.New().String(),
		Kind:     types.NotificationChange,
		Domain:   b.Domain,
		Title:    changeTitle(b),
		Color:    severityColor(b.Change.Severity),
		IssuedAt: b.Change.At,
	}

	n.Fields = append(n.Fields,
		types.Field{Name: "Previous IPs", Value: joinOrNone(b.PreviousIPs)},
		types.Field{Name: "Current IPs", Value: joinOrNone(b.CurrentIPs)},
		types.Field{Name: "Change Type", Value: string(b.Change.Type)},
		types.Field{Name: "Severity", Value: string(b.Change.Severity)},
		types.Field{Name: "TTL", Value: fmt.Sprintf("%ds", b.Change.TTL)},
		types.Field{Name: "Time Context", Value: string(b.Temporal.Pattern)},
	)

	if b.CDN.IsAnyCDN {
		v := fmt.Sprintf("confidence %.0f%%", b.CDN.Confidence*100)
		if b.CDN.Provider != "" {
			v = fmt.Sprintf("%s (%s)", b.CDN.Provider, v)
		}
		n.Fields = append(n.Fields, types.Field{Name: "CDN", Value: v})
	}

	if b.LB.IsLoadBalancer {
		n.Fields = append(n.Fields, types.Field{
			Name:  "Load Balancer",
			Value: fmt.Sprintf("%s (confidence %.0f%%): %s", b.LB.Pattern, b.LB.Confidence*100, b.LB.Analysis),
		})
	}

	if b.Coordinated.IsCoordinated {
		n.Fields = append(n.Fields, types.Field{
			Name:  "Coordinated Change",
			Value: fmt.Sprintf("score %.2f, related: %s", b.Coordinated.Score, strings.Join(b.Coordinated.RelatedDomains, ", ")),
		})
	}

	if b.SOA != nil {
		n.Fields = append(n.Fields, types.Field{
			Name:  "SOA",
			Value: fmt.Sprintf("%s (serial %s, admin %s)", b.SOA.PrimaryNS, b.SOA.Serial, b.SOA.AdminEmail),
		})
	}

	if b.Period > 0 {
		n.Fields = append(n.Fields, types.Field{
			Name:  "Dampening",
			Value: fmt.Sprintf("further notifications suppressed for %s", b.Period.Round(time.Second)),
		})
	}

	n.Actions = recommendedActions(b)
	return n
}

func changeTitle(b Bundle) string {
	switch {
	case b.Coordinated.IsCoordinated:
		return TitleCoordinated
	case b.Change.Severity == types.SeverityCritical:
		return TitleCritical
	case b.LB.IsLoadBalancer && b.LB.Pattern == types.LBFailover:
		return TitleFailover
	case b.CDN.IsAnyCDN:
		return TitleCDN
	case b.Temporal.IsMaintenanceWindow:
		return TitleMaintenance
	case b.Change.Type == types.ChangeCompleteChange:
		return TitleCompleteChange
	default:
		return TitleDefault
	}
}

func severityColor(s types.Severity) types.SeverityColor {
	switch s {
	case types.SeverityCritical:
		return types.ColorRed
	case types.SeverityHigh:
		return types.ColorOrange
	case types.SeverityMedium:
		return types.ColorYellow
	case types.SeverityLow:
		return types.ColorBlue
	default:
		return types.ColorGray
	}
}

// recommendedActions assembles operator guidance from the classification.
// The assembly is deterministic so alerts for the same situation always
// read the same.
func recommendedActions(b Bundle) []string {
	var actions []string

	switch b.Change.Severity {
	case types.SeverityCritical:
		actions = append(actions,
			"Verify the change was planned before the dampening window closes",
			"Check service reachability on the new addresses immediately")
	case types.SeverityHigh:
		actions = append(actions,
			"Confirm the origin infrastructure is healthy")
	}

	if b.LB.IsLoadBalancer {
		switch b.LB.Pattern {
		case types.LBFailover:
			actions = append(actions, "Investigate why the primary pool stopped answering")
		case types.LBRoundRobin, types.LBWeighted:
			actions = append(actions, "Rotation behavior detected; consider raising the dampening interval for this domain")
		}
	}

	if b.CDN.IsAnyCDN {
		actions = append(actions, "Review the CDN provider dashboard for configuration changes")
	}

	if b.Coordinated.IsCoordinated {
		actions = append(actions, "Multiple sibling domains moved together; treat as a platform-wide event")
	}

	if b.Change.Type == types.ChangeCompleteChange && !b.Temporal.IsMaintenanceWindow {
		actions = append(actions, "Complete IP replacement outside a maintenance window; rule out hijack or registrar compromise")
	}

	if b.Temporal.IsMaintenanceWindow {
		actions = append(actions, "Change occurred in the maintenance window; correlate with scheduled work")
	}

	if len(actions) == 0 {
		actions = append(actions, "No immediate action required; monitor the next few checks")
	}
	return actions
}

// BuildAutoSuppression produces the notice emitted when the change-rate
// threshold is reached. Further notifications stay silent for the window.
func BuildAutoSuppression(domain string, changes int, window time.Duration, now time.Time) *types.Notification {
	return &types.Notification{
		ID:       uuid.New().String(),
		Kind:     types.NotificationAutoSuppression,
		Domain:   domain,
		Title:    TitleAutoSuppression,
		Color:    types.ColorYellow,
		IssuedAt: now,
		Fields: []types.Field{
			{Name: "Changes In Last Hour", Value: fmt.Sprintf("%d", changes)},
			{Name: "Quiet Window", Value: window.Round(time.Second).String()},
		},
		Actions: []string{
			"High change rate detected; notifications for this domain pause for the quiet window",
			"Use the dampening command to clear suppression if this is an incident",
		},
	}
}

// BuildError produces the notification for a transport failure during a check
func BuildError(domain string, err error, now time.Time) *types.Notification {
	return &types.Notification{
		ID:       uuid.New().String(),
		Kind:     types.NotificationError,
		Domain:   domain,
		Title:    TitleError,
		Color:    types.ColorGray,
		IssuedAt: now,
		Fields: []types.Field{
			{Name: "Error", Value: err.Error()},
		},
		Actions: []string{
			"Check resolver reachability; monitored state was left untouched",
		},
	}
}

// BuildNoAuthority produces the notification for an authority outage
func BuildNoAuthority(domain string, now time.Time) *types.Notification {
	return &types.Notification{
		ID:       uuid.New().String(),
		Kind:     types.NotificationNoAuthority,
		Domain:   domain,
		Title:    TitleNoAuthority,
		Color:    types.ColorOrange,
		IssuedAt: now,
		Fields: []types.Field{
			{Name: "Signal", Value: "recursive resolver reports no reachable authority"},
		},
		Actions: []string{
			"Verify the zone's nameservers are answering",
			"Check registrar delegation for recent changes",
		},
	}
}

// BuildZoneUpdated produces the notification for a serial-only zone change
func BuildZoneUpdated(domain, oldSerial, newSerial string, now time.Time) *types.Notification {
	return &types.Notification{
		ID:       uuid.New().String(),
		Kind:     types.NotificationZoneUpdated,
		Domain:   domain,
		Title:    TitleZoneUpdated,
		Color:    types.ColorBlue,
		IssuedAt: now,
		Fields: []types.Field{
			{Name: "Previous Serial", Value: oldSerial},
			{Name: "Current Serial", Value: newSerial},
		},
		Actions: []string{
			"Zone content changed without an A-record change; review non-address records if unexpected",
		},
	}
}

// BuildDeployment produces the one-shot notification for a deployment id change
func BuildDeployment(versionID string, domains int, now time.Time) *types.Notification {
	return &types.Notification{
		ID:       uuid.New().String(),
		Kind:     types.NotificationDeployment,
		Domain:   "",
		Title:    TitleDeployment,
		Color:    types.ColorBlue,
		IssuedAt: now,
		Fields: []types.Field{
			{Name: "Version", Value: versionID},
			{Name: "Domains Monitored", Value: fmt.Sprintf("%d", domains)},
		},
	}
}

func joinOrNone(ips []string) string {
	if len(ips) == 0 {
		return "none"
	}
	return strings.Join(ips, ", ")
}

package analyzer

import (
	"time"

	"github.com/driftwatch/driftwatch/pkg/types"
)

// ClassifyChange computes the change type and base severity for one IP set
// transition. Severity is later subject to upgrade by coordination analysis.
func ClassifyChange(previous, current []string, ttl int, temporal types.TemporalContext, now time.Time) types.ChangeContext {
	changeType := classifyType(previous, current)

	var severity types.Severity
	switch {
	case changeType == types.ChangeCompleteChange && temporal.IsBusinessHours:
		severity = types.SeverityCritical
	case changeType == types.ChangeRemoval:
		severity = types.SeverityHigh
	case temporal.IsMaintenanceWindow:
		severity = types.SeverityLow
	default:
		severity = types.SeverityMedium
	}

	return types.ChangeContext{
		Type:       changeType,
		Severity:   severity,
		TTL:        ttl,
		Confidence: 0.8,
		At:         now,
	}
}

func classifyType(previous, current []string) types.ChangeType {
	switch {
	case len(previous) == 0:
		return types.ChangeAddition
	case len(current) == 0:
		return types.ChangeRemoval
	case disjoint(previous, current):
		return types.ChangeCompleteChange
	default:
		return types.ChangeReplacement
	}
}

func disjoint(a, b []string) bool {
	set := make(map[string]struct{}, len(a))
	for _, ip := range a {
		set[ip] = struct{}{}
	}
	for _, ip := range b {
		if _, ok := set[ip]; ok {
			return false
		}
	}
	return true
}

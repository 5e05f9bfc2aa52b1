package analyzer

import (
	"time"

	"github.com/driftwatch/driftwatch/pkg/types"
)

// AnalyzeTemporal derives the wall-clock context flags for an instant.
// All arithmetic is in UTC.
func AnalyzeTemporal(now time.Time) types.TemporalContext {
	utc := now.UTC()
	hour := utc.Hour()
	day := utc.Weekday()

	ctx := types.TemporalContext{
		IsWeekend:           day == time.Saturday || day == time.Sunday,
		IsMaintenanceWindow: (hour >= 2 && hour <= 6) || hour >= 22 || hour <= 1,
	}
	ctx.IsBusinessHours = !ctx.IsWeekend && hour >= 8 && hour <= 18

	switch {
	case ctx.IsMaintenanceWindow:
		ctx.Pattern = types.TimeMaintenanceWindow
	case hour < 8 || hour > 18:
		ctx.Pattern = types.TimeOffHours
	case ctx.IsWeekend:
		ctx.Pattern = types.TimeWeekend
	default:
		ctx.Pattern = types.TimeNormal
	}
	return ctx
}

package observer

import (
	"context"
	"time"

	"github.com/driftwatch/driftwatch/pkg/analyzer"
	"github.com/driftwatch/driftwatch/pkg/log"
	"github.com/driftwatch/driftwatch/pkg/metrics"
	"github.com/driftwatch/driftwatch/pkg/notify"
	"github.com/driftwatch/driftwatch/pkg/state"
	"github.com/driftwatch/driftwatch/pkg/types"
)

const (
	resolveTimeout = 5 * time.Second
	emitTimeout    = 5 * time.Second
)

// Resolver is the slice of pkg/resolver the observer needs; mocked in tests.
type Resolver interface {
	Resolve(ctx context.Context, fqdn string) (*types.ResolveResult, error)
}

// Observer runs the per-domain check: resolve, diff, analyze, persist, emit.
type Observer struct {
	repo     *state.Repo
	resolver Resolver
	notifier notify.Notifier
	now      func() time.Time
}

// New creates an observer
func New(repo *state.Repo, res Resolver, notifier notify.Notifier) *Observer {
	return &Observer{
		repo:     repo,
		resolver: res,
		notifier: notifier,
		now:      time.Now,
	}
}

// WithClock overrides the wall clock, for tests
func (o *Observer) WithClock(now func() time.Time) *Observer {
	o.now = now
	return o
}

// Check performs one tick for one domain. Errors are handled locally; the
// returned error is reserved for storage failures that abort the tick.
func (o *Observer) Check(ctx context.Context, fqdn string) error {
	logger := log.WithDomain(fqdn)
	now := o.now()
	metrics.ChecksTotal.Inc()

	rctx, cancel := context.WithTimeout(ctx, resolveTimeout)
	res, err := o.resolver.Resolve(rctx, fqdn)
	cancel()
	if err != nil {
		// Transport failure: report, leave monitored state untouched.
		metrics.ResolveErrorsTotal.Inc()
		logger.Error().Err(err).Msg("resolution failed")
		o.emit(ctx, notify.BuildError(fqdn, err, now))
		return nil
	}

	if res.NoAuthority {
		ms, err := o.repo.GetMonitoredState(fqdn)
		if err != nil {
			return err
		}
		if ms.State != types.DomainStateNoAuthority {
			o.emit(ctx, notify.BuildNoAuthority(fqdn, now))
			if err := o.repo.SetDomainState(fqdn, types.DomainStateNoAuthority); err != nil {
				return err
			}
		}
		return nil
	}

	current := res.IPs()
	serial := ""
	if res.SOA != nil {
		serial = res.SOA.Serial
	}

	ms, err := o.repo.GetMonitoredState(fqdn)
	if err != nil {
		return err
	}

	if ms.State == types.DomainStateUnseen {
		// First observation establishes the baseline silently.
		if err := o.writeObservation(fqdn, current, serial); err != nil {
			return err
		}
		logger.Info().Strs("ips", current).Str("serial", serial).Msg("domain baselined")
		return nil
	}

	if !equalIPs(ms.LastIPs, current) {
		if err := o.writeObservation(fqdn, current, serial); err != nil {
			return err
		}
		o.analyzeChange(ctx, fqdn, ms, current, res, now)
		return nil
	}

	if ms.State == types.DomainStateNoAuthority {
		// Authority came back with the same answer set
		if err := o.repo.SetDomainState(fqdn, types.DomainStateResolved); err != nil {
			return err
		}
	}

	if serial != ms.LastSerial {
		if err := o.repo.SetLastSerial(fqdn, serial); err != nil {
			return err
		}
		metrics.ZoneUpdatesTotal.Inc()
		o.emit(ctx, notify.BuildZoneUpdated(fqdn, ms.LastSerial, serial, now))
		return nil
	}

	logger.Debug().Msg("no change")
	return nil
}

// writeObservation persists the tick's observed values in the repo's
// required order: state, then IPs, then serial.
func (o *Observer) writeObservation(fqdn string, ips []string, serial string) error {
	if err := o.repo.SetDomainState(fqdn, types.DomainStateResolved); err != nil {
		return err
	}
	if err := o.repo.SetLastIPs(fqdn, ips); err != nil {
		return err
	}
	return o.repo.SetLastSerial(fqdn, serial)
}

// analyzeChange runs the full analyzer pipeline for a detected change and
// emits when the dampening calculator allows. Errors on this path fail open:
// a broken signal degrades to its zero value rather than dropping the alert.
func (o *Observer) analyzeChange(ctx context.Context, fqdn string, prev *types.MonitoredState, current []string, res *types.ResolveResult, now time.Time) {
	logger := log.WithDomain(fqdn)

	temporal := analyzer.AnalyzeTemporal(now)
	change := analyzer.ClassifyChange(prev.LastIPs, current, res.TTL(), temporal, now)
	metrics.ChangesTotal.WithLabelValues(string(change.Type)).Inc()
	cdn := analyzer.DetectCDN(current)
	lb := analyzer.AnalyzeLoadBalancer(prev.RecentIPHistory, now)

	// The current change joins the bucket before the correlation query so
	// it is included in its own window.
	if err := o.repo.AppendGlobalChange(types.GlobalChangeEntry{
		Domain:    fqdn,
		IPs:       current,
		Timestamp: now.UnixMilli(),
	}, now); err != nil {
		logger.Warn().Err(err).Msg("change bucket append failed")
	}

	coord := types.CoordinationResult{}
	if entries, err := o.repo.RecentGlobalChanges(now); err != nil {
		logger.Warn().Err(err).Msg("change bucket read failed")
	} else {
		coord = analyzer.DetectCoordination(fqdn, current, entries)
	}

	if coord.IsCoordinated && !lb.IsLoadBalancer && hourlyObservations(prev.RecentIPHistory, now) < 3 {
		// Siblings moving together stand in for the missing single-domain
		// history.
		lb = analyzer.SynthesizeLB(coord)
		if change.Severity != types.SeverityCritical {
			change.Severity = types.SeverityHigh
		}
	}

	decision := analyzer.Decide(analyzer.Signals{
		Change:             change,
		CDN:                cdn,
		LB:                 lb,
		Temporal:           temporal,
		CurrentIPs:         current,
		History:            prev.RecentIPHistory,
		LastNotificationAt: prev.LastNotificationAt,
		Now:                now,
	})

	if decision.Notify {
		// The timestamp advances before the emit so a notifier failure
		// cannot cause tight-loop retries.
		if err := o.repo.SetLastNotificationAt(fqdn, now); err != nil {
			logger.Warn().Err(err).Msg("notification timestamp write failed")
		}

		var n *types.Notification
		if decision.AutoSuppress {
			n = notify.BuildAutoSuppression(fqdn, decision.ChangesInLastHour, 4*time.Hour, now)
		} else {
			n = notify.BuildChange(notify.Bundle{
				Domain:      fqdn,
				PreviousIPs: prev.LastIPs,
				CurrentIPs:  current,
				Change:      change,
				CDN:         cdn,
				LB:          lb,
				Temporal:    temporal,
				Coordinated: coord,
				SOA:         res.SOA,
				Period:      decision.Period,
			})
		}
		o.emit(ctx, n)
		metrics.NotificationsTotal.WithLabelValues("emitted").Inc()
	} else {
		logger.Info().
			Dur("period", decision.Period).
			Bool("oscillation", decision.Oscillation).
			Msg("notification suppressed by dampening")
		metrics.NotificationsTotal.WithLabelValues("suppressed").Inc()
	}

	if err := o.repo.AppendIPHistory(fqdn, current, now); err != nil {
		logger.Warn().Err(err).Msg("ip history write failed")
	}
}

// emit delivers a notification with its own deadline. Failures are logged
// and never retried within the tick.
func (o *Observer) emit(ctx context.Context, n *types.Notification) {
	ectx, cancel := context.WithTimeout(ctx, emitTimeout)
	defer cancel()
	if err := o.notifier.Emit(ectx, n); err != nil {
		log.WithComponent("observer").Error().Err(err).Str("title", n.Title).Msg("notifier emit failed")
		metrics.NotificationsTotal.WithLabelValues("failed").Inc()
	}
}

func hourlyObservations(history []types.IPHistoryEntry, now time.Time) int {
	cutoff := now.Add(-time.Hour)
	count := 0
	for _, e := range history {
		if !e.At().Before(cutoff) {
			count++
		}
	}
	return count
}

func equalIPs(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}


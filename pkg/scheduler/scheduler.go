package scheduler

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/driftwatch/driftwatch/pkg/log"
	"github.com/driftwatch/driftwatch/pkg/metrics"
	"github.com/driftwatch/driftwatch/pkg/notify"
	"github.com/driftwatch/driftwatch/pkg/observer"
	"github.com/driftwatch/driftwatch/pkg/state"
	"github.com/driftwatch/driftwatch/pkg/types"
)

const (
	// DefaultInterval is the tick period
	DefaultInterval = time.Minute

	// DefaultConcurrency bounds the per-tick fan-out
	DefaultConcurrency = 16
)

// Config holds scheduler configuration
type Config struct {
	Interval      time.Duration
	Concurrency   int
	StaticDomains []string

	// VersionID is the host-provided deployment id. A change against the
	// stored value emits one NewDeployment notification.
	VersionID string
}

// Sweeper is the optional store maintenance hook run once per tick
type Sweeper interface {
	Sweep() (int, error)
}

// Scheduler enumerates monitored domains and fans out observer checks
type Scheduler struct {
	cfg      Config
	repo     *state.Repo
	obs      *observer.Observer
	notifier notify.Notifier
	sweeper  Sweeper
	stopCh   chan struct{}
	wg       sync.WaitGroup
}

// New creates a scheduler
func New(cfg Config, repo *state.Repo, obs *observer.Observer, notifier notify.Notifier) *Scheduler {
	if cfg.Interval <= 0 {
		cfg.Interval = DefaultInterval
	}
	if cfg.Concurrency <= 0 {
		cfg.Concurrency = DefaultConcurrency
	}
	return &Scheduler{
		cfg:      cfg,
		repo:     repo,
		obs:      obs,
		notifier: notifier,
		stopCh:   make(chan struct{}),
	}
}

// WithSweeper attaches a store maintenance hook
func (s *Scheduler) WithSweeper(sw Sweeper) *Scheduler {
	s.sweeper = sw
	return s
}

// Start begins the scheduler loop
func (s *Scheduler) Start() {
	s.wg.Add(1)
	go s.run()
}

// Stop stops the scheduler and waits for the in-flight tick to settle
func (s *Scheduler) Stop() {
	close(s.stopCh)
	s.wg.Wait()
}

// run is the main scheduler loop
func (s *Scheduler) run() {
	defer s.wg.Done()
	logger := log.WithComponent("scheduler")

	s.announceDeployment()

	ticker := time.NewTicker(s.cfg.Interval)
	defer ticker.Stop()

	// First pass immediately rather than one interval in
	s.tick()

	for {
		select {
		case <-ticker.C:
			s.tick()
			if s.sweeper != nil {
				if n, err := s.sweeper.Sweep(); err != nil {
					logger.Warn().Err(err).Msg("store sweep failed")
				} else if n > 0 {
					logger.Debug().Int("removed", n).Msg("store sweep")
				}
			}
		case <-s.stopCh:
			return
		}
	}
}

// announceDeployment emits one notification when the deployment id changed
// since the last run.
func (s *Scheduler) announceDeployment() {
	if s.cfg.VersionID == "" {
		return
	}
	logger := log.WithComponent("scheduler")

	stored, err := s.repo.VersionID()
	if err != nil {
		logger.Warn().Err(err).Msg("version id read failed")
		return
	}
	if stored == s.cfg.VersionID {
		return
	}
	if err := s.repo.SetVersionID(s.cfg.VersionID); err != nil {
		logger.Warn().Err(err).Msg("version id write failed")
		return
	}

	domains, _ := s.Domains()
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	n := notify.BuildDeployment(s.cfg.VersionID, len(domains), time.Now())
	if err := s.notifier.Emit(ctx, n); err != nil {
		logger.Error().Err(err).Msg("deployment notification failed")
	}
}

// Domains returns the union of static and dynamic domains, sorted
func (s *Scheduler) Domains() ([]string, error) {
	dynamic, err := s.repo.DynamicDomains()
	if err != nil {
		return nil, err
	}

	set := make(map[string]struct{}, len(s.cfg.StaticDomains)+len(dynamic))
	for _, d := range s.cfg.StaticDomains {
		set[d] = struct{}{}
	}
	for _, d := range dynamic {
		set[d] = struct{}{}
	}

	domains := make([]string, 0, len(set))
	for d := range set {
		domains = append(domains, d)
	}
	sort.Strings(domains)
	return domains, nil
}

// tick performs one scan pass over every monitored domain
func (s *Scheduler) tick() {
	logger := log.WithComponent("scheduler")
	start := time.Now()

	domains, err := s.Domains()
	if err != nil {
		logger.Error().Err(err).Msg("failed to enumerate domains")
		return
	}
	metrics.DomainsMonitored.Set(float64(len(domains)))

	if len(domains) == 0 {
		logger.Debug().Msg("no domains to monitor")
		return
	}

	logger.Info().Int("domains", len(domains)).Msg("tick started")

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	work := make(chan string)
	var wg sync.WaitGroup
	for i := 0; i < s.cfg.Concurrency; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for d := range work {
				checkStart := time.Now()
				if err := s.obs.Check(ctx, d); err != nil {
					log.WithDomain(d).Error().Err(err).Msg("check aborted")
				}
				metrics.CheckDuration.Observe(time.Since(checkStart).Seconds())
			}
		}()
	}

	for _, d := range domains {
		select {
		case work <- d:
		case <-s.stopCh:
			// Drain: let in-flight checks finish, skip the rest
			close(work)
			wg.Wait()
			return
		}
	}
	close(work)
	wg.Wait()

	s.heartbeat(len(domains))

	elapsed := time.Since(start)
	metrics.TickDuration.Observe(elapsed.Seconds())
	logger.Info().Dur("elapsed", elapsed).Msg("tick complete")
}

// heartbeat records the bot status for the external command surface
func (s *Scheduler) heartbeat(domains int) {
	now := time.Now().UnixMilli()
	err := s.repo.SetBotStatus(types.BotStatus{
		Online:           true,
		LastCheck:        now,
		DomainsMonitored: domains,
		Activity:         "monitoring",
		UpdatedAt:        now,
	})
	if err != nil {
		log.WithComponent("scheduler").Warn().Err(err).Msg("heartbeat write failed")
	}
}

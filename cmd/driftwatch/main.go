package main

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/driftwatch/driftwatch/pkg/api"
	"github.com/driftwatch/driftwatch/pkg/config"
	"github.com/driftwatch/driftwatch/pkg/log"
	"github.com/driftwatch/driftwatch/pkg/manager"
	"github.com/driftwatch/driftwatch/pkg/notify"
	"github.com/driftwatch/driftwatch/pkg/observer"
	"github.com/driftwatch/driftwatch/pkg/resolver"
	"github.com/driftwatch/driftwatch/pkg/scheduler"
	"github.com/driftwatch/driftwatch/pkg/state"
	"github.com/driftwatch/driftwatch/pkg/storage"
)

var (
	// Version information (set via ldflags during build)
	Version   = "dev"
	Commit    = "unknown"
	BuildTime = "unknown"
)

var configPath string

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:   "driftwatch",
	Short: "Driftwatch - intelligent DNS change monitoring",
	Long: `Driftwatch watches a set of domains for DNS changes and decides which
of them deserve a notification. Legitimate churn from CDN rotation and
load balancing is dampened; failovers and complete IP replacements
during business hours are elevated.`,
	Version: Version,
}

func init() {
	rootCmd.SetVersionTemplate(fmt.Sprintf(
		"Driftwatch version %s\nCommit: %s\nBuilt: %s\n",
		Version, Commit, BuildTime,
	))

	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "driftwatch.yaml", "config file path")

	rootCmd.AddCommand(monitorCmd)
	rootCmd.AddCommand(domainCmd)
	rootCmd.AddCommand(checkCmd)
	rootCmd.AddCommand(dampeningCmd)
	rootCmd.AddCommand(statusCmd)
}

// runtime wires the full stack from configuration. Close releases the store.
type runtime struct {
	cfg      *config.Config
	store    *storage.BoltStore
	repo     *state.Repo
	mgr      *manager.Manager
	resolver *resolver.Resolver
	notifier notify.Notifier
}

func (rt *runtime) Close() {
	if err := rt.store.Close(); err != nil {
		log.Errorf("store close failed", err)
	}
}

func buildRuntime() (*runtime, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, err
	}

	log.Init(log.Config{
		Level:      log.Level(cfg.LogLevel),
		JSONOutput: cfg.LogJSON,
	})

	if err := os.MkdirAll(cfg.DataDir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create data dir: %w", err)
	}

	store, err := storage.NewBoltStore(cfg.DataDir)
	if err != nil {
		return nil, err
	}

	repo := state.NewRepo(store)
	res := resolver.New(resolver.WithEndpoint(cfg.ResolverEndpoint))
	mgr := manager.New(repo, res, cfg.Domains)

	var notifier notify.Notifier = notify.LogNotifier{}
	if cfg.WebhookURL != "" {
		notifier = notify.NewWebhookNotifier(cfg.WebhookURL)
	}

	return &runtime{
		cfg:      cfg,
		store:    store,
		repo:     repo,
		mgr:      mgr,
		resolver: res,
		notifier: notifier,
	}, nil
}

var monitorCmd = &cobra.Command{
	Use:   "monitor",
	Short: "Run the monitoring loop and command API",
	RunE: func(cmd *cobra.Command, args []string) error {
		rt, err := buildRuntime()
		if err != nil {
			return err
		}
		defer rt.Close()

		versionID := rt.cfg.VersionID
		if versionID == "" {
			versionID = uuid.New().String()
		}

		obs := observer.New(rt.repo, rt.resolver, rt.notifier)
		sched := scheduler.New(scheduler.Config{
			Interval:      rt.cfg.CheckInterval(),
			Concurrency:   rt.cfg.Concurrency,
			StaticDomains: rt.mgr.StaticDomains(),
			VersionID:     versionID,
		}, rt.repo, obs, rt.notifier).WithSweeper(rt.store)
		sched.Start()
		log.Info("scheduler started")

		apiServer := api.NewServer(rt.mgr, rt.repo)
		errCh := make(chan error, 1)
		go func() {
			if err := apiServer.Start(rt.cfg.ListenAddr); err != nil {
				errCh <- fmt.Errorf("api server error: %w", err)
			}
		}()

		sigCh := make(chan os.Signal, 1)
		signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)

		select {
		case <-sigCh:
			log.Info("shutting down")
		case err := <-errCh:
			log.Errorf("api server failed", err)
		}

		sched.Stop()
		apiServer.Stop()
		return nil
	},
}

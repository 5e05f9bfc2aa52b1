package scheduler

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/driftwatch/driftwatch/pkg/notify"
	"github.com/driftwatch/driftwatch/pkg/observer"
	"github.com/driftwatch/driftwatch/pkg/state"
	"github.com/driftwatch/driftwatch/pkg/storage"
	"github.com/driftwatch/driftwatch/pkg/types"
)

type staticResolver struct{}

func (staticResolver) Resolve(_ context.Context, _ string) (*types.ResolveResult, error) {
	return &types.ResolveResult{
		ARecords: []types.ARecord{{IP: "1.2.3.4", TTL: 300}},
	}, nil
}

type countingNotifier struct {
	notifications []*types.Notification
}

func (c *countingNotifier) Emit(_ context.Context, n *types.Notification) error {
	c.notifications = append(c.notifications, n)
	return nil
}

func newTestScheduler(t *testing.T, cfg Config) (*Scheduler, *state.Repo, *countingNotifier) {
	t.Helper()
	store, err := storage.NewBoltStore(t.TempDir())
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })

	repo := state.NewRepo(store)
	sink := &countingNotifier{}
	obs := observer.New(repo, staticResolver{}, sink)
	return New(cfg, repo, obs, sink), repo, sink
}

func TestDomainsUnion(t *testing.T) {
	s, repo, _ := newTestScheduler(t, Config{
		StaticDomains: []string{"static.example.com", "both.example.com"},
	})
	require.NoError(t, repo.SetDynamicDomains([]string{"dynamic.example.com", "both.example.com"}))

	domains, err := s.Domains()
	require.NoError(t, err)
	assert.Equal(t, []string{"both.example.com", "dynamic.example.com", "static.example.com"}, domains)
}

func TestTickChecksEveryDomainAndWritesHeartbeat(t *testing.T) {
	s, repo, _ := newTestScheduler(t, Config{
		StaticDomains: []string{"a.example.com", "b.example.com"},
		Concurrency:   4,
	})

	s.tick()

	// First sight is silent, but the state must be baselined
	for _, d := range []string{"a.example.com", "b.example.com"} {
		ms, err := repo.GetMonitoredState(d)
		require.NoError(t, err)
		assert.Equal(t, types.DomainStateResolved, ms.State, d)
		assert.Equal(t, []string{"1.2.3.4"}, ms.LastIPs, d)
	}

	st, err := repo.BotStatus()
	require.NoError(t, err)
	require.NotNil(t, st)
	assert.True(t, st.Online)
	assert.Equal(t, 2, st.DomainsMonitored)
	assert.Equal(t, "monitoring", st.Activity)
}

func TestDeploymentAnnouncement(t *testing.T) {
	s, repo, sink := newTestScheduler(t, Config{VersionID: "deploy-1"})

	s.announceDeployment()
	require.Len(t, sink.notifications, 1)
	assert.Equal(t, notify.TitleDeployment, sink.notifications[0].Title)

	stored, err := repo.VersionID()
	require.NoError(t, err)
	assert.Equal(t, "deploy-1", stored)

	// Same version again stays quiet
	s.announceDeployment()
	assert.Len(t, sink.notifications, 1)
}

func TestStartStop(t *testing.T) {
	s, _, _ := newTestScheduler(t, Config{
		Interval:      time.Hour, // only the immediate first pass runs
		StaticDomains: []string{"a.example.com"},
	})

	s.Start()
	time.Sleep(50 * time.Millisecond)
	s.Stop()
}

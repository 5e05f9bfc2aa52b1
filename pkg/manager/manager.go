package manager

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"sort"
	"strings"
	"time"

	"github.com/driftwatch/driftwatch/pkg/log"
	"github.com/driftwatch/driftwatch/pkg/observer"
	"github.com/driftwatch/driftwatch/pkg/state"
	"github.com/driftwatch/driftwatch/pkg/types"
)

var (
	// ErrInvalidDomain is returned for names failing validation
	ErrInvalidDomain = errors.New("invalid domain name")

	// ErrStaticDomain is returned when removal targets a boot-time domain
	ErrStaticDomain = errors.New("static domains cannot be removed")

	// ErrNotFound is returned when the domain is not monitored
	ErrNotFound = errors.New("domain not found")
)

const maxDomainLength = 253

var domainRegexp = regexp.MustCompile(`^[a-zA-Z0-9]([a-zA-Z0-9-]{0,61}[a-zA-Z0-9])?(\.[a-zA-Z0-9]([a-zA-Z0-9-]{0,61}[a-zA-Z0-9])?)*$`)

// AddResult is the outcome of AddDynamic
type AddResult string

const (
	AddAdded     AddResult = "added"
	AddDuplicate AddResult = "duplicate"
	AddInvalid   AddResult = "invalid"
)

// RemoveResult is the outcome of RemoveDynamic
type RemoveResult string

const (
	RemoveRemoved  RemoveResult = "removed"
	RemoveNotFound RemoveResult = "not_found"
)

// DomainLists is the split view returned by ListDomains
type DomainLists struct {
	Static  []string
	Dynamic []string
}

// DampeningInfo describes a domain's current suppression state
type DampeningInfo struct {
	LastNotificationAt time.Time
	ChangesInLastHour  int
	HistoryEntries     int
}

// Manager implements the command surface consumed by the external chat
// module: domain list management, dampening inspection, and status queries.
type Manager struct {
	repo      *state.Repo
	resolver  observer.Resolver
	staticSet map[string]struct{}
	static    []string
}

// New creates a manager. Static domains are normalized once at boot.
func New(repo *state.Repo, res observer.Resolver, staticDomains []string) *Manager {
	m := &Manager{
		repo:      repo,
		resolver:  res,
		staticSet: make(map[string]struct{}, len(staticDomains)),
	}
	for _, d := range staticDomains {
		normalized, err := Normalize(d)
		if err != nil {
			log.WithComponent("manager").Warn().Str("domain", d).Msg("dropping invalid static domain")
			continue
		}
		if _, ok := m.staticSet[normalized]; ok {
			continue
		}
		m.staticSet[normalized] = struct{}{}
		m.static = append(m.static, normalized)
	}
	sort.Strings(m.static)
	return m
}

// Normalize validates a domain name and lowercases it for storage
func Normalize(fqdn string) (string, error) {
	fqdn = strings.ToLower(strings.TrimSpace(strings.TrimSuffix(fqdn, ".")))
	if fqdn == "" || len(fqdn) > maxDomainLength || !domainRegexp.MatchString(fqdn) {
		return "", fmt.Errorf("%w: %q", ErrInvalidDomain, fqdn)
	}
	return fqdn, nil
}

// StaticDomains returns the boot-time domain list
func (m *Manager) StaticDomains() []string {
	return append([]string(nil), m.static...)
}

// ListDomains returns the static and dynamic domain lists
func (m *Manager) ListDomains() (*DomainLists, error) {
	dynamic, err := m.repo.DynamicDomains()
	if err != nil {
		return nil, err
	}
	sort.Strings(dynamic)
	return &DomainLists{
		Static:  m.StaticDomains(),
		Dynamic: dynamic,
	}, nil
}

// AddDynamic adds a user-managed domain to the monitoring set
func (m *Manager) AddDynamic(fqdn string) (AddResult, error) {
	normalized, err := Normalize(fqdn)
	if err != nil {
		return AddInvalid, err
	}

	if _, ok := m.staticSet[normalized]; ok {
		return AddDuplicate, nil
	}

	dynamic, err := m.repo.DynamicDomains()
	if err != nil {
		return "", err
	}
	for _, d := range dynamic {
		if d == normalized {
			return AddDuplicate, nil
		}
	}

	dynamic = append(dynamic, normalized)
	if err := m.repo.SetDynamicDomains(dynamic); err != nil {
		return "", err
	}
	log.WithComponent("manager").Info().Str("domain", normalized).Msg("dynamic domain added")
	return AddAdded, nil
}

// RemoveDynamic removes a user-managed domain and all its stored keys
func (m *Manager) RemoveDynamic(fqdn string) (RemoveResult, error) {
	normalized, err := Normalize(fqdn)
	if err != nil {
		return "", err
	}

	if _, ok := m.staticSet[normalized]; ok {
		return "", ErrStaticDomain
	}

	dynamic, err := m.repo.DynamicDomains()
	if err != nil {
		return "", err
	}

	kept := dynamic[:0]
	found := false
	for _, d := range dynamic {
		if d == normalized {
			found = true
			continue
		}
		kept = append(kept, d)
	}
	if !found {
		return RemoveNotFound, nil
	}

	if err := m.repo.SetDynamicDomains(kept); err != nil {
		return "", err
	}
	if err := m.repo.DeleteDomain(normalized); err != nil {
		return "", err
	}
	log.WithComponent("manager").Info().Str("domain", normalized).Msg("dynamic domain removed")
	return RemoveRemoved, nil
}

// RemoveSubtree removes a domain and every stored domain under it. Static
// matches are refused: the call fails when the root is static, and static
// descendants are skipped.
func (m *Manager) RemoveSubtree(fqdn string) ([]string, error) {
	normalized, err := Normalize(fqdn)
	if err != nil {
		return nil, err
	}
	if _, ok := m.staticSet[normalized]; ok {
		return nil, ErrStaticDomain
	}

	stored, err := m.repo.StoredDomains()
	if err != nil {
		return nil, err
	}
	dynamic, err := m.repo.DynamicDomains()
	if err != nil {
		return nil, err
	}

	suffix := "." + normalized
	targets := map[string]struct{}{normalized: {}}
	for _, d := range stored {
		if strings.HasSuffix(d, suffix) {
			targets[d] = struct{}{}
		}
	}
	for _, d := range dynamic {
		if strings.HasSuffix(d, suffix) {
			targets[d] = struct{}{}
		}
	}

	var removed []string
	kept := make([]string, 0, len(dynamic))
	for _, d := range dynamic {
		if _, hit := targets[d]; hit {
			continue
		}
		kept = append(kept, d)
	}
	if err := m.repo.SetDynamicDomains(kept); err != nil {
		return nil, err
	}

	for d := range targets {
		if _, static := m.staticSet[d]; static {
			continue
		}
		if err := m.repo.DeleteDomain(d); err != nil {
			return nil, err
		}
		removed = append(removed, d)
	}
	sort.Strings(removed)

	log.WithComponent("manager").Info().Strs("domains", removed).Msg("subtree removed")
	return removed, nil
}

// GetDampening returns a domain's current suppression state
func (m *Manager) GetDampening(fqdn string) (*DampeningInfo, error) {
	normalized, err := Normalize(fqdn)
	if err != nil {
		return nil, err
	}

	last, err := m.repo.GetLastNotificationAt(normalized)
	if err != nil {
		return nil, err
	}
	history, err := m.repo.GetRecentIPHistory(normalized)
	if err != nil {
		return nil, err
	}

	cutoff := time.Now().Add(-time.Hour)
	changes := 0
	for _, e := range history {
		if !e.At().Before(cutoff) {
			changes++
		}
	}

	return &DampeningInfo{
		LastNotificationAt: last,
		ChangesInLastHour:  changes,
		HistoryEntries:     len(history),
	}, nil
}

// ClearDampening wipes a domain's suppression state so the next change
// notifies immediately
func (m *Manager) ClearDampening(fqdn string) error {
	normalized, err := Normalize(fqdn)
	if err != nil {
		return err
	}
	log.WithComponent("manager").Info().Str("domain", normalized).Msg("dampening cleared")
	return m.repo.ClearNotifyState(normalized)
}

// GetStatus returns the stored monitoring state for one domain
func (m *Manager) GetStatus(fqdn string) (*types.DomainInfo, error) {
	normalized, err := Normalize(fqdn)
	if err != nil {
		return nil, err
	}

	monitored, err := m.isMonitored(normalized)
	if err != nil {
		return nil, err
	}
	if !monitored {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, normalized)
	}

	ms, err := m.repo.GetMonitoredState(normalized)
	if err != nil {
		return nil, err
	}

	provenance := types.ProvenanceDynamic
	if _, ok := m.staticSet[normalized]; ok {
		provenance = types.ProvenanceStatic
	}

	info := &types.DomainInfo{
		Domain:     normalized,
		Provenance: provenance,
		State:      ms.State,
		CurrentIPs: ms.LastIPs,
		LastSerial: ms.LastSerial,
	}
	if n := len(ms.RecentIPHistory); n > 0 {
		info.LastChecked = ms.RecentIPHistory[n-1].At()
	}
	return info, nil
}

// CheckOnce resolves a domain immediately and returns the live answer next
// to the stored state. It does not mutate monitored state.
func (m *Manager) CheckOnce(ctx context.Context, fqdn string) (*types.ResolveResult, *types.MonitoredState, error) {
	normalized, err := Normalize(fqdn)
	if err != nil {
		return nil, nil, err
	}

	res, err := m.resolver.Resolve(ctx, normalized)
	if err != nil {
		return nil, nil, err
	}

	ms, err := m.repo.GetMonitoredState(normalized)
	if err != nil {
		return nil, nil, err
	}
	return res, ms, nil
}

func (m *Manager) isMonitored(fqdn string) (bool, error) {
	if _, ok := m.staticSet[fqdn]; ok {
		return true, nil
	}
	dynamic, err := m.repo.DynamicDomains()
	if err != nil {
		return false, err
	}
	for _, d := range dynamic {
		if d == fqdn {
			return true, nil
		}
	}
	return false, nil
}

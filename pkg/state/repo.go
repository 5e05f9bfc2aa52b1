package state

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/driftwatch/driftwatch/pkg/log"
	"github.com/driftwatch/driftwatch/pkg/storage"
	"github.com/driftwatch/driftwatch/pkg/types"
)

const (
	// Key layout. Tests assert these literals; change them and every
	// deployed store becomes unreadable.
	keyStateFmt     = "dns:%s:state"
	keyIPsFmt       = "dns:%s:ips"
	keySerialFmt    = "dns:%s:serial"
	keyNotifyFmt    = "notify:%s:last"
	keyRecentIPsFmt = "notify:%s:recent_ips"
	keyDynamic      = "dynamic:domains"
	keyGlobalFmt    = "global:dns_changes:%d"
	keyVersionID    = "system:version_id"
	keyBotStatus    = "bot:status"

	// History retention
	maxHistoryEntries = 10
	historyHorizon    = 7 * 24 * time.Hour

	// Global change bucket geometry
	bucketWidth = 5 * time.Minute
	bucketTTL   = time.Hour
)

// Repo is the typed view over the Store for per-domain monitoring state,
// notification tracking, and the cross-domain change bucket.
type Repo struct {
	store storage.Store
}

// NewRepo creates a repo over the given store
func NewRepo(store storage.Store) *Repo {
	return &Repo{store: store}
}

// GetMonitoredState loads everything persisted for one domain. Missing keys
// yield the zero state (unseen); corrupt values are logged and read as absent.
func (r *Repo) GetMonitoredState(fqdn string) (*types.MonitoredState, error) {
	ms := &types.MonitoredState{State: types.DomainStateUnseen}

	raw, found, err := r.store.Get(fmt.Sprintf(keyStateFmt, fqdn))
	if err != nil {
		return nil, fmt.Errorf("failed to read state for %s: %w", fqdn, err)
	}
	if found {
		ms.State = types.DomainState(raw)
	}

	raw, found, err = r.store.Get(fmt.Sprintf(keyIPsFmt, fqdn))
	if err != nil {
		return nil, fmt.Errorf("failed to read ips for %s: %w", fqdn, err)
	}
	if found && len(raw) > 0 {
		ms.LastIPs = strings.Split(string(raw), ",")
	}

	raw, found, err = r.store.Get(fmt.Sprintf(keySerialFmt, fqdn))
	if err != nil {
		return nil, fmt.Errorf("failed to read serial for %s: %w", fqdn, err)
	}
	if found {
		ms.LastSerial = string(raw)
	}

	last, err := r.GetLastNotificationAt(fqdn)
	if err != nil {
		return nil, err
	}
	ms.LastNotificationAt = last

	ms.RecentIPHistory, err = r.GetRecentIPHistory(fqdn)
	if err != nil {
		return nil, err
	}

	return ms, nil
}

// SetDomainState records the lifecycle state for a domain
func (r *Repo) SetDomainState(fqdn string, st types.DomainState) error {
	return r.store.Set(fmt.Sprintf(keyStateFmt, fqdn), []byte(st))
}

// SetLastIPs records the canonical (sorted) A-record set for a domain
func (r *Repo) SetLastIPs(fqdn string, ips []string) error {
	sorted := append([]string(nil), ips...)
	types.SortIPs(sorted)
	return r.store.Set(fmt.Sprintf(keyIPsFmt, fqdn), []byte(strings.Join(sorted, ",")))
}

// SetLastSerial records the SOA serial for a domain
func (r *Repo) SetLastSerial(fqdn, serial string) error {
	return r.store.Set(fmt.Sprintf(keySerialFmt, fqdn), []byte(serial))
}

// GetLastNotificationAt returns when the domain was last notified about,
// or the zero time when it never was.
func (r *Repo) GetLastNotificationAt(fqdn string) (time.Time, error) {
	raw, found, err := r.store.Get(fmt.Sprintf(keyNotifyFmt, fqdn))
	if err != nil {
		return time.Time{}, fmt.Errorf("failed to read notify timestamp for %s: %w", fqdn, err)
	}
	if !found {
		return time.Time{}, nil
	}
	ms, err := strconv.ParseInt(string(raw), 10, 64)
	if err != nil {
		log.WithComponent("state").Warn().Str("domain", fqdn).Msg("corrupt notification timestamp, treating as never notified")
		return time.Time{}, nil
	}
	return time.UnixMilli(ms), nil
}

// SetLastNotificationAt advances the notification timestamp. The timestamp is
// monotone: an earlier instant than the stored one is ignored.
func (r *Repo) SetLastNotificationAt(fqdn string, at time.Time) error {
	prev, err := r.GetLastNotificationAt(fqdn)
	if err != nil {
		return err
	}
	if at.Before(prev) {
		return nil
	}
	val := strconv.FormatInt(at.UnixMilli(), 10)
	return r.store.SetWithTTL(fmt.Sprintf(keyNotifyFmt, fqdn), []byte(val), historyHorizon)
}

// GetRecentIPHistory returns the bounded observation history for a domain.
// Corrupt stored JSON is logged and read as empty.
func (r *Repo) GetRecentIPHistory(fqdn string) ([]types.IPHistoryEntry, error) {
	raw, found, err := r.store.Get(fmt.Sprintf(keyRecentIPsFmt, fqdn))
	if err != nil {
		return nil, fmt.Errorf("failed to read ip history for %s: %w", fqdn, err)
	}
	if !found {
		return nil, nil
	}
	var history []types.IPHistoryEntry
	if err := json.Unmarshal(raw, &history); err != nil {
		log.WithComponent("state").Warn().Str("domain", fqdn).Msg("corrupt ip history, treating as empty")
		return nil, nil
	}
	return history, nil
}

// AppendIPHistory records one observed IP set and tail-trims the history to
// the last 10 entries within the 7-day horizon. IPs are canonicalized.
func (r *Repo) AppendIPHistory(fqdn string, ips []string, now time.Time) error {
	history, err := r.GetRecentIPHistory(fqdn)
	if err != nil {
		return err
	}

	sorted := append([]string(nil), ips...)
	types.SortIPs(sorted)
	history = append(history, types.IPHistoryEntry{
		IPs:       sorted,
		Timestamp: now.UnixMilli(),
	})

	history = TrimHistory(history, now)

	data, err := json.Marshal(history)
	if err != nil {
		return fmt.Errorf("failed to encode ip history for %s: %w", fqdn, err)
	}
	return r.store.SetWithTTL(fmt.Sprintf(keyRecentIPsFmt, fqdn), data, historyHorizon)
}

// TrimHistory enforces the retention rule: last 10 entries or within 7 days,
// whichever is fewer. Entries stay ordered by timestamp ascending.
func TrimHistory(history []types.IPHistoryEntry, now time.Time) []types.IPHistoryEntry {
	cutoff := now.Add(-historyHorizon).UnixMilli()
	fresh := history[:0]
	for _, e := range history {
		if e.Timestamp >= cutoff {
			fresh = append(fresh, e)
		}
	}
	if len(fresh) > maxHistoryEntries {
		fresh = fresh[len(fresh)-maxHistoryEntries:]
	}
	return fresh
}

// ClearNotifyState removes the dampening timestamp and observation history
// for a domain, so the next change notifies immediately.
func (r *Repo) ClearNotifyState(fqdn string) error {
	if err := r.store.Delete(fmt.Sprintf(keyNotifyFmt, fqdn)); err != nil {
		return err
	}
	return r.store.Delete(fmt.Sprintf(keyRecentIPsFmt, fqdn))
}

// DeleteDomain removes every key belonging to a domain
func (r *Repo) DeleteDomain(fqdn string) error {
	keys := []string{
		fmt.Sprintf(keyStateFmt, fqdn),
		fmt.Sprintf(keyIPsFmt, fqdn),
		fmt.Sprintf(keySerialFmt, fqdn),
		fmt.Sprintf(keyNotifyFmt, fqdn),
		fmt.Sprintf(keyRecentIPsFmt, fqdn),
	}
	for _, k := range keys {
		if err := r.store.Delete(k); err != nil {
			return fmt.Errorf("failed to delete %s: %w", k, err)
		}
	}
	return nil
}

// DynamicDomains returns the user-managed domain list
func (r *Repo) DynamicDomains() ([]string, error) {
	raw, found, err := r.store.Get(keyDynamic)
	if err != nil {
		return nil, fmt.Errorf("failed to read dynamic domains: %w", err)
	}
	if !found {
		return nil, nil
	}
	var domains []string
	if err := json.Unmarshal(raw, &domains); err != nil {
		log.WithComponent("state").Warn().Msg("corrupt dynamic domain list, treating as empty")
		return nil, nil
	}
	return domains, nil
}

// SetDynamicDomains replaces the user-managed domain list
func (r *Repo) SetDynamicDomains(domains []string) error {
	data, err := json.Marshal(domains)
	if err != nil {
		return err
	}
	return r.store.Set(keyDynamic, data)
}

// bucketKey returns the 5-minute bucket a given instant falls into
func bucketKey(at time.Time) string {
	return fmt.Sprintf(keyGlobalFmt, at.UnixMilli()/bucketWidth.Milliseconds())
}

// AppendGlobalChange adds one change to the current 5-minute bucket
func (r *Repo) AppendGlobalChange(entry types.GlobalChangeEntry, now time.Time) error {
	key := bucketKey(now)
	var entries []types.GlobalChangeEntry
	raw, found, err := r.store.Get(key)
	if err != nil {
		return fmt.Errorf("failed to read change bucket: %w", err)
	}
	if found {
		if err := json.Unmarshal(raw, &entries); err != nil {
			log.WithComponent("state").Warn().Msg("corrupt change bucket, resetting")
			entries = nil
		}
	}
	entries = append(entries, entry)
	data, err := json.Marshal(entries)
	if err != nil {
		return err
	}
	return r.store.SetWithTTL(key, data, bucketTTL)
}

// RecentGlobalChanges returns the entries from the current bucket and the one
// before it, covering the last 10 minutes of cross-domain changes.
func (r *Repo) RecentGlobalChanges(now time.Time) ([]types.GlobalChangeEntry, error) {
	var all []types.GlobalChangeEntry
	for _, key := range []string{bucketKey(now.Add(-bucketWidth)), bucketKey(now)} {
		raw, found, err := r.store.Get(key)
		if err != nil {
			return nil, fmt.Errorf("failed to read change bucket: %w", err)
		}
		if !found {
			continue
		}
		var entries []types.GlobalChangeEntry
		if err := json.Unmarshal(raw, &entries); err != nil {
			log.WithComponent("state").Warn().Msg("corrupt change bucket, skipping")
			continue
		}
		all = append(all, entries...)
	}
	return all, nil
}

// VersionID returns the stored deployment id, or empty when unset
func (r *Repo) VersionID() (string, error) {
	raw, found, err := r.store.Get(keyVersionID)
	if err != nil {
		return "", fmt.Errorf("failed to read version id: %w", err)
	}
	if !found {
		return "", nil
	}
	return string(raw), nil
}

// SetVersionID stores the deployment id
func (r *Repo) SetVersionID(id string) error {
	return r.store.Set(keyVersionID, []byte(id))
}

// SetBotStatus writes the heartbeat record
func (r *Repo) SetBotStatus(st types.BotStatus) error {
	data, err := json.Marshal(st)
	if err != nil {
		return err
	}
	return r.store.Set(keyBotStatus, data)
}

// BotStatus reads the heartbeat record, or nil when absent
func (r *Repo) BotStatus() (*types.BotStatus, error) {
	raw, found, err := r.store.Get(keyBotStatus)
	if err != nil {
		return nil, fmt.Errorf("failed to read bot status: %w", err)
	}
	if !found {
		return nil, nil
	}
	var st types.BotStatus
	if err := json.Unmarshal(raw, &st); err != nil {
		log.WithComponent("state").Warn().Msg("corrupt bot status, treating as absent")
		return nil, nil
	}
	return &st, nil
}

// StoredDomains returns every domain that has a dns: state key. Used by
// subtree removal to find stored descendants.
func (r *Repo) StoredDomains() ([]string, error) {
	keys, err := r.store.Keys("dns:")
	if err != nil {
		return nil, err
	}
	var domains []string
	for _, k := range keys {
		if !strings.HasSuffix(k, ":state") {
			continue
		}
		fqdn := strings.TrimSuffix(strings.TrimPrefix(k, "dns:"), ":state")
		domains = append(domains, fqdn)
	}
	return domains, nil
}

package storage

import (
	"bytes"
	"encoding/json"
	"fmt"
	"path/filepath"
	"time"

	bolt "go.etcd.io/bbolt"
)

var (
	// Bucket names
	bucketKeys = []byte("keys")
)

// envelope wraps stored values with their expiry deadline.
// ExpiresAt is milliseconds since epoch; zero means durable.
type envelope struct {
	Value     []byte `json:"value"`
	ExpiresAt int64  `json:"expires_at,omitempty"`
}

func (e *envelope) expired(now time.Time) bool {
	return e.ExpiresAt != 0 && now.UnixMilli() >= e.ExpiresAt
}

// BoltStore implements Store interface using BoltDB
type BoltStore struct {
	db  *bolt.DB
	now func() time.Time
}

// NewBoltStore creates a new BoltDB-backed store
func NewBoltStore(dataDir string) (*BoltStore, error) {
	dbPath := filepath.Join(dataDir, "driftwatch.db")

	db, err := bolt.Open(dbPath, 0600, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	err = db.Update(func(tx *bolt.Tx) error {
		if _, err := tx.CreateBucketIfNotExists(bucketKeys); err != nil {
			return fmt.Errorf("failed to create bucket %s: %w", bucketKeys, err)
		}
		return nil
	})
	if err != nil {
		db.Close()
		return nil, err
	}

	return &BoltStore{db: db, now: time.Now}, nil
}

// Close closes the database
func (s *BoltStore) Close() error {
	return s.db.Close()
}

// Get returns the live value for key. Expired keys read as absent and are
// removed by the next Sweep.
func (s *BoltStore) Get(key string) ([]byte, bool, error) {
	var value []byte
	var found bool
	err := s.db.View(func(tx *bolt.Tx) error {
		b := tx.Bucket(bucketKeys)
		data := b.Get([]byte(key))
		if data == nil {
			return nil
		}
		var env envelope
		if err := json.Unmarshal(data, &env); err != nil {
			return fmt.Errorf("corrupt entry for %s: %w", key, err)
		}
		if env.expired(s.now()) {
			return nil
		}
		value = make([]byte, len(env.Value))
		copy(value, env.Value)
		found = true
		return nil
	})
	return value, found, err
}

// Set writes a durable key (no expiry)
func (s *BoltStore) Set(key string, value []byte) error {
	return s.put(key, value, 0)
}

// SetWithTTL writes a key that expires ttl from now
func (s *BoltStore) SetWithTTL(key string, value []byte, ttl time.Duration) error {
	return s.put(key, value, s.now().Add(ttl).UnixMilli())
}

func (s *BoltStore) put(key string, value []byte, expiresAt int64) error {
	return s.db.Update(func(tx *bolt.Tx) error {
		b := tx.Bucket(bucketKeys)
		data, err := json.Marshal(&envelope{Value: value, ExpiresAt: expiresAt})
		if err != nil {
			return err
		}
		return b.Put([]byte(key), data)
	})
}

// Delete removes a key
func (s *BoltStore) Delete(key string) error {
	return s.db.Update(func(tx *bolt.Tx) error {
		b := tx.Bucket(bucketKeys)
		return b.Delete([]byte(key))
	})
}

// Keys returns all live keys with the given prefix
func (s *BoltStore) Keys(prefix string) ([]string, error) {
	var keys []string
	now := s.now()
	err := s.db.View(func(tx *bolt.Tx) error {
		c := tx.Bucket(bucketKeys).Cursor()
		p := []byte(prefix)
		for k, v := c.Seek(p); k != nil && bytes.HasPrefix(k, p); k, v = c.Next() {
			var env envelope
			if err := json.Unmarshal(v, &env); err != nil {
				continue
			}
			if env.expired(now) {
				continue
			}
			keys = append(keys, string(k))
		}
		return nil
	})
	return keys, err
}

// Sweep deletes expired entries. Intended to be called periodically; reads
// already treat expired entries as absent, so sweeping only reclaims space.
func (s *BoltStore) Sweep() (int, error) {
	now := s.now()
	removed := 0
	err := s.db.Update(func(tx *bolt.Tx) error {
		b := tx.Bucket(bucketKeys)
		c := b.Cursor()
		var stale [][]byte
		for k, v := c.First(); k != nil; k, v = c.Next() {
			var env envelope
			if err := json.Unmarshal(v, &env); err != nil {
				// Corrupt entry, reclaim it too
				stale = append(stale, append([]byte(nil), k...))
				continue
			}
			if env.expired(now) {
				stale = append(stale, append([]byte(nil), k...))
			}
		}
		for _, k := range stale {
			if err := b.Delete(k); err != nil {
				return err
			}
			removed++
		}
		return nil
	})
	return removed, err
}

package storage

import "time"

// Store defines the interface for durable key/value persistence with
// optional per-key expiry. BoltStore is the BoltDB-backed implementation.
type Store interface {
	// Get returns the value for key, or found=false when the key is absent
	// or its TTL has elapsed.
	Get(key string) (value []byte, found bool, err error)

	// Set writes a durable key (no expiry).
	Set(key string, value []byte) error

	// SetWithTTL writes a key that expires ttl from now.
	SetWithTTL(key string, value []byte, ttl time.Duration) error

	// Delete removes a key. Deleting an absent key is not an error.
	Delete(key string) error

	// Keys returns all live keys with the given prefix.
	Keys(prefix string) ([]string, error)

	// Utility
	Close() error
}

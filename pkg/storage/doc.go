/*
Package storage provides BoltDB-backed key/value persistence for Driftwatch.

The storage package implements the Store interface using BoltDB as the
underlying database. Values are wrapped in a small JSON envelope carrying an
optional expiry deadline, giving the keyspace per-key TTL semantics on top of
BoltDB's durable B+tree without an external cache.

# Architecture

	┌──────────────────── BOLTDB STORAGE ─────────────────────┐
	│                                                          │
	│  ┌───────────────────────────────────────────┐          │
	│  │            BoltStore                      │          │
	│  │  - File: <dataDir>/driftwatch.db          │          │
	│  │  - Single bucket: keys                    │          │
	│  │  - Transactions: ACID with fsync          │          │
	│  └──────────────────┬────────────────────────┘          │
	│                     │                                    │
	│  ┌──────────────────▼────────────────────────┐          │
	│  │            Value Envelope                 │          │
	│  │  { "value": <bytes>, "expires_at": <ms> } │          │
	│  │  expires_at == 0 means durable            │          │
	│  └───────────────────────────────────────────┘          │
	└──────────────────────────────────────────────────────────┘

# Expiry Model

Reads are the source of truth: Get and Keys treat an entry whose deadline has
passed as absent. Sweep physically deletes expired entries and is intended to
run periodically from the scheduler. This mirrors lazy-expiry key/value
stores, with the sweep bounding on-disk growth.

# Keyspace

The typed accessors in pkg/state own the key layout; this package stores
opaque bytes. Keys are plain strings so prefix scans ("dns:", "notify:",
"global:") map directly onto BoltDB cursor seeks.
*/
package storage

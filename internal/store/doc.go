// Package store provides SQLite-backed durable storage for donation
// records.
//
// The store exclusively owns the canonical copy of every record. All
// mutations are named operations (Create, MarkSyncing, MarkSynced,
// MarkFailed, ResetForRetry, ...) executed as single statements or
// transactions - no caller ever writes a record field directly.
//
// # Durability
//
// Every successful write is durable before the call returns: the database
// runs with synchronous=FULL, so a process crash immediately after an
// update cannot lose it. This trades write throughput for the no-data-loss
// guarantee the offline queue depends on.
//
// # Database Configuration
//
//   - WAL mode: concurrent reads during writes
//   - synchronous=FULL: fsync on every commit
//   - busy_timeout=5000: wait for locks up to 5 seconds
//   - foreign_keys=ON
//   - single-writer connection pool (MaxOpenConns=1)
//
// # Indexing
//
// sync_status and created_at are indexed; the periodic badge-count query
// (CountByStatus) and eligibility scan (ListEligible) never touch unindexed
// columns for filtering. Timestamps are stored as integer Unix nanoseconds
// so ordering is a plain integer comparison.
package store

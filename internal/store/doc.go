// Package store provides SQLite-backed durable storage for run logs.
//
// The store is an append-only log with two tables:
//   - runs: one row per playback, opened on the running status event and
//     closed with the stop reason on the stopped event
//   - frames: every published active set, keyed by (run_id, seq)
//
// Ordering always uses the logical seq columns, never wall time. Active sets
// are stored as canonical JSON together with their frame hash, so VerifyRun
// can detect gaps or tampering after the fact.
//
// # Database Configuration
//
//   - WAL mode: Concurrent reads during writes
//   - synchronous=NORMAL: Balance durability/performance
//   - busy_timeout=5000: Wait for locks up to 5 seconds
//   - foreign_keys=ON: Enforce referential integrity
package store

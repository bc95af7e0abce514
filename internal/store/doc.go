// Package store provides SQLite-backed durable storage for msglog.
//
// The database holds three tables:
//   - invocations: one row per method call, with canonical JSON args
//   - completions: exactly one row per invocation, with the outcome
//   - contract_state: the encoded message store, keyed by state.StateKey
//
// # Ordering
//
// All ordering uses the seq column (logical clock), never timestamps.
// Queries that return more than one row include ORDER BY seq ASC, id ASC
// COLLATE BINARY so results are identical across replays.
//
// # Atomicity
//
// CommitInvocation writes an invocation, its completion and an optional
// state update in one transaction. A crash leaves either all three or none.
//
// # Database Configuration
//
//   - WAL mode: Concurrent reads during writes
//   - synchronous=NORMAL: Balance durability/performance
//   - busy_timeout=5000: Wait for locks up to 5 seconds
//   - foreign_keys=ON: Enforce referential integrity
//
// Content-addressed IDs are computed in internal/ir using RFC 8785
// canonical JSON and SHA-256 with domain separation.
package store

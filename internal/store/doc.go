// Package store provides SQLite-backed storage for dispatched action traces.
//
// A trace is an append-only log of (action, resulting AppState) pairs grouped
// by session. DevTools sinks write traces while a store runs; the CLI reads
// them back to inspect a session or to verify a replay.
//
// # Critical Patterns
//
// Logical ordering:
//   - All ordering uses the action seq (logical clock), never timestamps
//   - Every query orders by seq ASC so reads are identical across replays
//
// Idempotent writes:
//   - UNIQUE(session, seq); re-recording the same step is silently ignored
//
// Canonical payloads:
//   - action and state columns hold RFC 8785 canonical JSON produced by
//     internal/ir, and state_hash is the domain-separated SHA-256 of state
//
// # Database Configuration
//
//   - WAL mode: Concurrent reads during writes
//   - synchronous=NORMAL: Balance durability/performance
//   - busy_timeout=5000: Wait for locks up to 5 seconds
package store

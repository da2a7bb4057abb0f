// Package store provides a SQLite-backed journal of encoded queries.
//
// Each appended query is stored as its wire payload together with the
// namespace, fingerprint and Dump text, so a journal can be listed without
// decoding every record.
//
// # Ordering
//
// All reads are ordered by seq, a per-journal logical clock, and then by id:
//
//	ORDER BY seq ASC, id COLLATE BINARY ASC
//
// Wall time is never recorded.
//
// # Database Configuration
//
//   - WAL mode: Concurrent reads during writes
//   - synchronous=NORMAL: Balance durability/performance
//   - busy_timeout=5000: Wait for locks up to 5 seconds
//   - foreign_keys=ON: Enforce referential integrity
package store

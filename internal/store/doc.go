// Package store keeps an optional SQLite journal of successful compiles.
//
// Each run records the spec that drove it, the tables compiled, and the
// SHA-256 digests of the registry and flow it left on disk. verify compares
// the artifacts against the latest record to flag hand edits that keep every
// invariant intact.
//
// # Ordering
//
// Runs are ordered by seq INTEGER (AUTOINCREMENT), never by compiled_at.
// compiled_at is informational.
//
// # Database Configuration
//
//   - WAL mode: Concurrent reads during writes
//   - synchronous=NORMAL: Balance durability/performance
//   - busy_timeout=5000: Wait for locks up to 5 seconds
//   - foreign_keys=ON: Enforce referential integrity
package store

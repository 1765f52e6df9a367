// Package store runs compiled fetch queries against SQLite.
//
// Results come back as flat records keyed by projected column name
// ("Alias__field"). Stream returns them lazily as a rewindable result set,
// which is what the eager loader scans for correlation keys and enriches
// in place. QueryRecords reads everything at once.
//
// # Database Configuration
//
//   - WAL mode: Concurrent reads during writes
//   - synchronous=NORMAL: Balance durability/performance
//   - busy_timeout=5000: Wait for locks up to 5 seconds
//   - foreign_keys=ON: Enforce referential integrity
//
// The store owns no schema. Tables are created by the caller, usually from
// a seed script.
package store

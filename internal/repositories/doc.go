// Package repositories implements SQLite persistence for the sync run history.
//
// The history is an audit log: runs are written by the CLI after they finish and are never read back by the engine,
// which always re-derives the target playlist state from the driver.
//
// Key Implementations:
//   - [RunRepository] : Run summaries with per-status counts, soft deletes and the per-track outcomes of each run
//
// Sequence numbers provide stable, human-readable ordering (e.g., run #42) independent of UUIDs and creation timestamps.
// The [NextSequence] function atomically increments per-table sequence counters in dedicated sequence tables.
package repositories

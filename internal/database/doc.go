// Package database provides the SQLite run ledger.
//
// Every fetch, sort or combined run can be recorded with its counters and
// per-item outcomes:
//   - runs: one row per command invocation
//   - downloads: one row per candidate URL
//   - classifications: one row per sorted file
//
// The ledger uses modernc.org/sqlite, a CGO-free driver, so the database is
// a single file next to the user's data. The pipeline never consults the
// ledger to decide what to do; skipping and sorting decisions are made from
// the filesystem alone.
package database

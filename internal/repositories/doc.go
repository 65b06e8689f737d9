// Package repositories implements SQLite persistence for the scan history.
//
// [ScanRepository] stores one row per finished scan in "scans" and its ordered matches in "scan_matches". Records are
// soft deleted via deleted_at and excluded from queries by default.
//
// [Recorder] adapts the repository to the session controller so every finished scan is written without the
// controller knowing about SQL.
//
// The [NextSequence] function atomically increments per-table sequence counters in dedicated sequence tables.
package repositories

// Package storage persists the announcement history in SQLite.
//
// The history is append-only operator tooling. The observer's ledger is
// deliberately not persisted here: it is rebuilt from the roster and the
// clock at every start.
package storage

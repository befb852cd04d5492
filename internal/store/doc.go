// Package store provides persistent storage for labstock using SQLite.
//
// A single SQLiteStore owns the database file and its five tables:
//
//   - chemicals: registered substances with unplaced stock quantities
//   - storage_zones: physical locations with capacity limits and derived load
//   - batches: placement records tying a chemical quantity to a zone
//   - backups: bookkeeping rows for backup files
//   - activity_log: append-only record of mutating operations
//
// The store uses WAL mode and enforces foreign keys; batches cascade-delete
// with their parent chemical or zone:
//
//	PRAGMA journal_mode=WAL;
//	PRAGMA foreign_keys=ON;
//
// Every multi-statement mutation (chemical deletion, batch placement and
// return, load repair) runs inside one transaction, so readers never observe
// partial writes. Returned records are detached copies; mutating them does
// not affect stored state.
//
// The backup manager closes the handle around file copies via Close and
// Reopen; all other callers hold the store open for the process lifetime.
package store

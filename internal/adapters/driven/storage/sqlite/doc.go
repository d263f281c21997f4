// Package sqlite provides a SQLite-based implementation of
// driven.DataAccessObject.
//
// This adapter uses modernc.org/sqlite, a pure Go SQLite implementation that
// requires no CGO. One Store holds records of any number of collections in a
// single table; a RecordStore is the data access object for one collection
// and one record type.
//
// # Schema
//
// The table layout is managed through versioned migrations stored in the
// migrations/ directory. Applied versions are recorded in schema_migrations.
//
// # Deletes
//
// Deleting a record sets its is_deleted flag. Deleted rows are invisible to
// every read and their IDs are never handed out again.
//
// # Data Location
//
// By default, the database is stored at ~/.domainrepo/data/records.db
//
// # Thread Safety
//
// All operations are thread-safe. ID assignment is serialised per Store and
// the database runs in WAL mode.
package sqlite

// Package sqlite provides the embedded SQLite backend: the SQL dialect used
// by the generic repository, driver error classification, connection setup
// and the schema migrations. The driver is modernc.org/sqlite, which needs
// no cgo.
package sqlite

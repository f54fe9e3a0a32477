// Package postgres provides the PostgreSQL backend for the generic
// repository: the SQL dialect, pgconn error classification, connection setup
// through the pgx database/sql driver and the schema migrations.
package postgres

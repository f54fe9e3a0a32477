package postgres

import "strconv"

// Dialect implements the generic repository dialect for PostgreSQL.
type Dialect struct{}

// Name returns "postgres".
func (Dialect) Name() string { return "postgres" }

// Placeholder returns the numbered parameter $n.
func (Dialect) Placeholder(n int) string { return "$" + strconv.Itoa(n) }

// MapError classifies a driver error. See MapError.
func (Dialect) MapError(err error) error { return MapError(err) }

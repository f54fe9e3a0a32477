package sqlite

import (
	"context"
	"database/sql"
	"embed"
	"fmt"
	"io/fs"
	"strings"

	"github.com/phrazzld/modelapi/internal/platform/migrations"
	_ "modernc.org/sqlite"
)

// DriverName is the database/sql driver registered by modernc.org/sqlite.
const DriverName = "sqlite"

//go:embed migrations/*.sql
var migrationFiles embed.FS

// Open opens and pings a SQLite database. Foreign keys are enabled on every
// connection. In-memory databases are limited to one connection so that
// every query sees the same database.
func Open(ctx context.Context, dsn string) (*sql.DB, error) {
	dsn = withForeignKeys(dsn)

	db, err := sql.Open(DriverName, dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open sqlite database: %w", err)
	}
	if strings.Contains(dsn, ":memory:") || strings.Contains(dsn, "mode=memory") {
		db.SetMaxOpenConns(1)
	}

	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to ping sqlite database: %w", err)
	}
	return db, nil
}

// Migrations returns the embedded SQLite schema migrations.
func Migrations() migrations.Source {
	sub, err := fs.Sub(migrationFiles, "migrations")
	if err != nil {
		// ALLOW-PANIC: the embedded directory is fixed at compile time
		panic(err)
	}
	return migrations.Source{Dialect: "sqlite3", FS: sub}
}

// Migrate runs a migration command against db.
func Migrate(ctx context.Context, db *sql.DB, command string) error {
	return migrations.Run(ctx, db, Migrations(), command)
}

func withForeignKeys(dsn string) string {
	if strings.Contains(dsn, "foreign_keys") {
		return dsn
	}
	if !strings.HasPrefix(dsn, "file:") && !strings.Contains(dsn, "?") {
		if dsn == ":memory:" {
			dsn = "file::memory:"
		} else {
			dsn = "file:" + dsn
		}
	}
	sep := "?"
	if strings.Contains(dsn, "?") {
		sep = "&"
	}
	return dsn + sep + "_pragma=foreign_keys(1)"
}

package postgres

import (
	"context"
	"database/sql"
	"embed"
	"fmt"
	"io/fs"

	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/phrazzld/modelapi/internal/platform/migrations"
)

// DriverName is the database/sql driver registered by pgx.
const DriverName = "pgx"

//go:embed migrations/*.sql
var migrationFiles embed.FS

// Open opens a PostgreSQL connection pool through the pgx driver and
// verifies it with a ping.
func Open(ctx context.Context, url string) (*sql.DB, error) {
	db, err := sql.Open(DriverName, url)
	if err != nil {
		return nil, fmt.Errorf("failed to open postgres database: %w", err)
	}

	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to ping postgres database: %w", err)
	}
	return db, nil
}

// Migrations returns the embedded PostgreSQL schema migrations.
func Migrations() migrations.Source {
	sub, err := fs.Sub(migrationFiles, "migrations")
	if err != nil {
		// ALLOW-PANIC: the embedded directory is fixed at compile time
		panic(err)
	}
	return migrations.Source{Dialect: "postgres", FS: sub}
}

// Migrate runs a migration command against db.
func Migrate(ctx context.Context, db *sql.DB, command string) error {
	return migrations.Run(ctx, db, Migrations(), command)
}

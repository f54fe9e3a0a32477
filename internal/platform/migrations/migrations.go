// Package migrations applies embedded goose migrations for any supported
// SQL dialect.
package migrations

import (
	"context"
	"database/sql"
	"fmt"
	"io/fs"
	"log/slog"
	"slices"
	"sync"
	"time"

	"github.com/phrazzld/modelapi/internal/platform/logger"
	"github.com/pressly/goose/v3"
)

// TableName is the goose version table shared by every dialect.
const TableName = "schema_migrations"

// Commands lists the migration commands Run accepts.
var Commands = []string{"up", "down", "reset", "redo", "status", "version"}

// Source describes an embedded migration set for one dialect.
type Source struct {
	// Dialect is the goose dialect name ("postgres", "sqlite3").
	Dialect string
	// FS holds the *.sql migration files at its root.
	FS fs.FS
}

// goose keeps its configuration in package globals.
var gooseMu sync.Mutex

// slogGooseLogger adapts the goose logger interface to use slog
type slogGooseLogger struct {
	log *slog.Logger
}

// Printf implements the goose.Logger Printf method by forwarding messages to slog.Info
func (l *slogGooseLogger) Printf(format string, v ...interface{}) {
	l.log.Info(fmt.Sprintf(format, v...))
}

// Fatalf implements the goose.Logger Fatalf method by forwarding error messages to slog.Error.
// Unlike the standard Fatalf behavior, this does NOT call os.Exit.
func (l *slogGooseLogger) Fatalf(format string, v ...interface{}) {
	l.log.Error(fmt.Sprintf(format, v...))
}

// Run executes a goose command ("up", "down", "reset", "redo", "status",
// "version") against db using the migrations in src.
func Run(ctx context.Context, db *sql.DB, src Source, command string) error {
	log := logger.FromContext(ctx).With(
		slog.String("component", "migrations"),
		slog.String("dialect", src.Dialect),
	)

	if !slices.Contains(Commands, command) {
		log.Error("unknown migration command",
			slog.String("command", command),
			slog.Any("valid_commands", Commands))
		return fmt.Errorf("unknown migration command: %s (expected one of %v)", command, Commands)
	}

	gooseMu.Lock()
	defer gooseMu.Unlock()

	goose.SetLogger(&slogGooseLogger{log: log})
	goose.SetBaseFS(src.FS)
	defer goose.SetBaseFS(nil)
	goose.SetTableName(TableName)

	if err := goose.SetDialect(src.Dialect); err != nil {
		log.Error("failed to set dialect", slog.String("error", err.Error()))
		return fmt.Errorf("failed to set dialect: %w", err)
	}

	log.Info("starting migration command", slog.String("command", command))
	start := time.Now()

	if err := goose.RunContext(ctx, command, db, "."); err != nil {
		log.Error("migration command failed",
			slog.String("command", command),
			slog.String("error", err.Error()),
			slog.Duration("duration", time.Since(start)))
		return fmt.Errorf("migration %s failed: %w", command, err)
	}

	log.Info("migration command completed",
		slog.String("command", command),
		slog.Duration("duration", time.Since(start)))
	return nil
}

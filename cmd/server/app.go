package main

import (
	"context"
	"database/sql"
	"fmt"
	"io"
	"log/slog"
	"strconv"
	"time"

	"github.com/phrazzld/modelapi/internal/api"
	"github.com/phrazzld/modelapi/internal/config"
	"github.com/phrazzld/modelapi/internal/domain"
	"github.com/phrazzld/modelapi/internal/events"
	"github.com/phrazzld/modelapi/internal/manager"
	"github.com/phrazzld/modelapi/internal/platform/logger"
	"github.com/phrazzld/modelapi/internal/platform/postgres"
	"github.com/phrazzld/modelapi/internal/platform/sqlite"
	"github.com/phrazzld/modelapi/internal/platform/sqlrepo"
	"github.com/phrazzld/modelapi/internal/redact"
	"github.com/phrazzld/modelapi/internal/service/auth"
)

// application holds all the shared application dependencies to simplify management
// and ensure proper cleanup on shutdown.
type application struct {
	config *config.Config
	logger *slog.Logger

	db      *sql.DB
	dialect sqlrepo.Dialect
	migrate func(ctx context.Context, command string) error

	factory *manager.Factory
	emitter *events.InMemoryEmitter

	// jwtService is nil when no secret is configured; write routes are
	// then public.
	jwtService auth.JWTService
}

// newApplication loads the configuration, sets up logging and opens the
// database. Logs go to stdout unless logOut is set.
func newApplication(ctx context.Context, configFile string, logOut ...io.Writer) (*application, error) {
	cfg, err := config.Load(configFile)
	if err != nil {
		return nil, fmt.Errorf("failed to load configuration: %w", err)
	}

	var l *slog.Logger
	if len(logOut) > 0 && logOut[0] != nil {
		l = logger.New(logOut[0], cfg.Log.Level)
	} else if l, err = logger.Setup(cfg.Log); err != nil {
		return nil, fmt.Errorf("failed to set up logger: %w", err)
	}

	l.Info("configuration loaded",
		slog.Int("port", cfg.Server.Port),
		slog.String("base_path", cfg.Server.BasePath),
		slog.String("database_driver", cfg.Database.Driver),
		slog.String("log_level", cfg.Log.Level))

	return newApplicationWithConfig(ctx, cfg, l)
}

// newApplicationWithConfig wires the application around an already loaded
// configuration.
func newApplicationWithConfig(ctx context.Context, cfg *config.Config, l *slog.Logger) (*application, error) {
	app := &application{config: cfg, logger: l}

	if err := app.openDatabase(ctx); err != nil {
		return nil, err
	}

	app.emitter = events.NewInMemoryEmitter(l)
	app.emitter.RegisterHandler(events.NewAuditLogHandler(l))

	app.factory = manager.NewFactory(
		manager.DefaultRegistry(),
		app.db,
		app.dialect,
		l,
		manager.WithDefaultLimit(cfg.Pagination.DefaultLimit),
		manager.WithMaxLimit(cfg.Pagination.MaxLimit),
		manager.WithEmitter(app.emitter),
	)

	if cfg.Auth.JWTSecret != "" {
		svc, err := auth.NewJWTService(cfg.Auth)
		if err != nil {
			app.cleanup()
			return nil, fmt.Errorf("failed to initialize JWT service: %w", err)
		}
		app.jwtService = svc
		l.Info("JWT authentication service initialized",
			slog.Int("token_lifetime_minutes", cfg.Auth.TokenLifetimeMinutes))
	} else {
		l.Warn("no JWT secret configured, write routes are public")
	}

	l.Info("application initialized successfully")
	return app, nil
}

// openDatabase opens the configured database and selects the matching
// dialect and migration set.
func (app *application) openDatabase(ctx context.Context) error {
	cfg := app.config.Database

	openCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	var (
		db  *sql.DB
		err error
	)
	switch cfg.Driver {
	case postgres.DriverName:
		db, err = postgres.Open(openCtx, cfg.URL)
		app.dialect = postgres.Dialect{}
		app.migrate = func(ctx context.Context, command string) error {
			return postgres.Migrate(ctx, app.db, command)
		}
	case sqlite.DriverName:
		db, err = sqlite.Open(openCtx, cfg.URL)
		app.dialect = sqlite.Dialect{}
		app.migrate = func(ctx context.Context, command string) error {
			return sqlite.Migrate(ctx, app.db, command)
		}
	default:
		return fmt.Errorf("unsupported database driver %q", cfg.Driver)
	}
	if err != nil {
		app.logger.Error("failed to open database",
			slog.String("driver", cfg.Driver),
			slog.String("error", redact.Error(err)))
		return fmt.Errorf("failed to open database: %w", err)
	}

	if cfg.MaxOpenConns > 0 && cfg.Driver != sqlite.DriverName {
		db.SetMaxOpenConns(cfg.MaxOpenConns)
	}
	if cfg.MaxIdleConns > 0 {
		db.SetMaxIdleConns(cfg.MaxIdleConns)
	}
	db.SetConnMaxLifetime(5 * time.Minute)

	app.db = db
	app.logger.Info("database connection established", slog.String("driver", cfg.Driver))
	return nil
}

// Run starts the HTTP server and blocks until it shuts down.
func (app *application) Run(ctx context.Context) error {
	router := app.setupRouter()
	if err := app.startHTTPServer(ctx, router); err != nil {
		return fmt.Errorf("server error: %w", err)
	}
	return nil
}

// openAPI renders the OpenAPI document of the configured routes.
func (app *application) openAPI(ctx context.Context) ([]byte, error) {
	return api.MarshalOpenAPI(ctx, app.factory, app.config.Server.BasePath)
}

// mintToken issues an access token for subject.
func (app *application) mintToken(ctx context.Context, subject string) (string, error) {
	if app.jwtService == nil {
		return "", fmt.Errorf("auth.jwt_secret is not configured")
	}
	token, err := app.jwtService.GenerateToken(ctx, subject)
	if err != nil {
		return "", fmt.Errorf("failed to generate token: %w", err)
	}
	app.logger.Info("access token minted", slog.String("subject", subject))
	return token, nil
}

// createUser validates and stores an enabled user, returning its id.
func (app *application) createUser(ctx context.Context, name, email, password string) (string, error) {
	mgr := app.factory.New(&domain.User{})
	inputs := domain.Attributes{
		"name":     name,
		"email":    email,
		"password": password,
		"enabled":  true,
	}
	if err := mgr.Validate(inputs, api.RuleSetStore); err != nil {
		return "", err
	}

	stored, err := mgr.Store(ctx, inputs)
	if err != nil {
		return "", fmt.Errorf("failed to create user: %w", err)
	}
	user := stored.(*domain.User)
	app.logger.Info("user created", slog.Int64("user_id", user.ID))
	return strconv.FormatInt(user.ID, 10), nil
}

// cleanup handles graceful shutdown of application resources.
func (app *application) cleanup() {
	if app.db != nil {
		if err := app.db.Close(); err != nil {
			app.logger.Error("error closing database connection", slog.String("error", err.Error()))
		}
		app.db = nil
	}
	app.logger.Info("application shutdown completed")
}

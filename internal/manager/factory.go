package manager

import (
	"database/sql"
	"log/slog"

	"github.com/phrazzld/modelapi/internal/domain"
	"github.com/phrazzld/modelapi/internal/events"
	"github.com/phrazzld/modelapi/internal/platform/sqlrepo"
	"github.com/phrazzld/modelapi/internal/store"
	"github.com/phrazzld/modelapi/internal/transformer"
)

// Factory builds managers that share one registry and database handle.
// It is safe for concurrent use; the managers it returns are not.
type Factory struct {
	registry *Registry
	db       store.DBTX
	dialect  sqlrepo.Dialect
	logger   *slog.Logger
	emitter  events.Emitter

	defaultLimit int
	maxLimit     int
}

// FactoryOption configures a Factory.
type FactoryOption func(*Factory)

// WithDefaultLimit sets the page size of models that declare none.
func WithDefaultLimit(n int) FactoryOption {
	return func(f *Factory) {
		f.defaultLimit = n
	}
}

// WithMaxLimit caps the page size managers accept from callers.
func WithMaxLimit(n int) FactoryOption {
	return func(f *Factory) {
		f.maxLimit = n
	}
}

// WithEmitter publishes a ModelEvent after every successful write.
func WithEmitter(e events.Emitter) FactoryOption {
	return func(f *Factory) {
		f.emitter = e
	}
}

// Ensure Factory implements transformer.Resolver
var _ transformer.Resolver = (*Factory)(nil)

// NewFactory creates a Factory. db may be nil when every manager receives
// its repository through SetRepository.
func NewFactory(
	registry *Registry,
	db store.DBTX,
	dialect sqlrepo.Dialect,
	logger *slog.Logger,
	opts ...FactoryOption,
) *Factory {
	if registry == nil {
		panic("registry cannot be nil") // ALLOW-PANIC
	}
	if logger == nil {
		logger = slog.Default()
	}

	f := &Factory{
		registry: registry,
		db:       db,
		dialect:  dialect,
		logger:   logger.With(slog.String("component", "model_manager")),
	}
	for _, opt := range opts {
		opt(f)
	}
	return f
}

// Registry returns the registry the factory resolves names in.
func (f *Factory) Registry() *Registry {
	return f.registry
}

// New returns a fresh manager bound to the type of m.
func (f *Factory) New(m domain.Model) *Manager {
	return &Manager{factory: f, model: m}
}

// ForKey returns a fresh manager for the model registered under key.
func (f *Factory) ForKey(key string) (*Manager, error) {
	m, ok := f.registry.Model(key)
	if !ok {
		return nil, configError(key, "no model is registered under this key")
	}
	return f.New(m), nil
}

// Resolve implements transformer.Resolver. Every call resolves through a
// new manager, so nested includes never share state with the caller.
func (f *Factory) Resolve(m domain.Model) (*transformer.Binding, error) {
	return f.New(m).Binding()
}

// WithTx returns a factory whose managers run their statements on tx.
func (f *Factory) WithTx(tx *sql.Tx) *Factory {
	clone := *f
	clone.db = tx
	return &clone
}

package manager

import (
	"log/slog"
	"sync"

	"github.com/phrazzld/modelapi/internal/domain"
	"github.com/phrazzld/modelapi/internal/platform/sqlrepo"
	"github.com/phrazzld/modelapi/internal/store"
	"github.com/phrazzld/modelapi/internal/transformer"
)

// DefaultRepository is the registry name of the generic SQL repository,
// used when a model declares no repository.
const DefaultRepository = "sql"

// RepositoryFactory builds a repository bound to m.
type RepositoryFactory func(db store.DBTX, dialect sqlrepo.Dialect, m domain.Model, logger *slog.Logger) store.ModelRepository

// TransformerFactory builds a transformer that resolves related models
// through r.
type TransformerFactory func(r transformer.Resolver) transformer.Transformer

// Registry maps the names models declare in their ModelConfig to
// implementations, and records the models exposed as resources.
// It is written during startup and read concurrently afterwards.
type Registry struct {
	mu           sync.RWMutex
	repositories map[string]RepositoryFactory
	transformers map[string]TransformerFactory
	models       map[string]domain.Model
	order        []string
}

// NewRegistry returns a registry holding only the default SQL repository.
func NewRegistry() *Registry {
	r := &Registry{
		repositories: make(map[string]RepositoryFactory),
		transformers: make(map[string]TransformerFactory),
		models:       make(map[string]domain.Model),
	}
	r.RegisterRepository(DefaultRepository, func(
		db store.DBTX,
		dialect sqlrepo.Dialect,
		m domain.Model,
		logger *slog.Logger,
	) store.ModelRepository {
		return sqlrepo.New(db, dialect, m, logger)
	})
	return r
}

// DefaultRegistry returns a registry with the built-in users and memos
// resources and their transformers.
func DefaultRegistry() *Registry {
	r := NewRegistry()
	r.RegisterTransformer("user", func(res transformer.Resolver) transformer.Transformer {
		return transformer.NewUserTransformer(res)
	})
	r.RegisterTransformer("memo", func(res transformer.Resolver) transformer.Transformer {
		return transformer.NewMemoTransformer(res)
	})
	// Both models are declared here so the error cannot occur.
	_ = r.RegisterModel(&domain.User{})
	_ = r.RegisterModel(&domain.Memo{})
	return r
}

// RegisterRepository adds or replaces a named repository implementation.
func (r *Registry) RegisterRepository(name string, f RepositoryFactory) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.repositories[name] = f
}

// RegisterTransformer adds or replaces a named transformer implementation.
func (r *Registry) RegisterTransformer(name string, f TransformerFactory) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.transformers[name] = f
}

// RegisterModel exposes m as a resource under its model key.
// Registering two models with the same key is a ConfigError.
func (r *Registry) RegisterModel(m domain.Model) error {
	key := domain.KeyOf(m)

	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.models[key]; exists {
		return configError(key, "a model is already registered under this key")
	}
	r.models[key] = m
	r.order = append(r.order, key)
	return nil
}

// Models returns the registered models in registration order.
func (r *Registry) Models() []domain.Model {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]domain.Model, 0, len(r.order))
	for _, key := range r.order {
		out = append(out, r.models[key])
	}
	return out
}

// Model returns the model registered under key.
func (r *Registry) Model(key string) (domain.Model, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	m, ok := r.models[key]
	return m, ok
}

func (r *Registry) repository(name string) (RepositoryFactory, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	f, ok := r.repositories[name]
	return f, ok
}

func (r *Registry) transformer(name string) (TransformerFactory, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	f, ok := r.transformers[name]
	return f, ok
}

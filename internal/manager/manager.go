package manager

import (
	"context"
	"database/sql"
	"log/slog"
	"reflect"

	"github.com/phrazzld/modelapi/internal/domain"
	"github.com/phrazzld/modelapi/internal/events"
	"github.com/phrazzld/modelapi/internal/redact"
	"github.com/phrazzld/modelapi/internal/store"
	"github.com/phrazzld/modelapi/internal/transformer"
)

// Manager orchestrates the repository and transformer of one model type.
//
// Every operation returns its result and also records it as the current
// result, which ResponseManager.Current renders. A failed operation leaves
// the current result untouched.
type Manager struct {
	factory *Factory
	model   domain.Model

	repository  store.ModelRepository
	transformer transformer.Transformer
	injected    bool

	current any
}

// Model returns the bound model prototype.
func (m *Manager) Model() domain.Model {
	return m.model
}

// SetModel binds the manager to another model type. Resolved
// configuration is discarded; an injected repository is rebound.
func (m *Manager) SetModel(model domain.Model) {
	m.model = model
	m.transformer = nil
	if m.injected {
		m.repository.SetModel(model)
		return
	}
	m.repository = nil
}

// Current returns the result of the last successful operation: nil,
// a domain.Model, a []domain.Model or a *store.Page.
func (m *Manager) Current() any {
	return m.current
}

// SetCurrent replaces the current result. Any value other than nil,
// a domain.Model, a []domain.Model or a *store.Page is a ConfigError, and
// so is a nil pointer inside one of those types.
func (m *Manager) SetCurrent(v any) error {
	switch v.(type) {
	case nil:
		m.current = nil
		return nil
	case domain.Model, []domain.Model, *store.Page:
		if rv := reflect.ValueOf(v); rv.Kind() == reflect.Pointer && rv.IsNil() {
			return configError(m.ModelKey(), "cannot hold a nil %T as the current result", v)
		}
		m.current = v
		return nil
	default:
		return configError(m.ModelKey(), "cannot hold a current result of type %T", v)
	}
}

// ModelKey returns the resource type name of the model.
func (m *Manager) ModelKey() string {
	return domain.KeyOf(m.model)
}

// ModelPrimaryKey returns the attribute used by Show, Update and Delete.
// A declared primary key that is not one of the model's attributes is a
// ConfigError.
func (m *Manager) ModelPrimaryKey() (string, error) {
	key := domain.ConfigOf(m.model).PrimaryKey
	if key == "" {
		return domain.DefaultPrimaryKey, nil
	}
	if !m.model.Attributes().Has(key) {
		return "", configError(m.ModelKey(), "primary key %q is not an attribute of the model", key)
	}
	return key, nil
}

// ModelLimit returns the default page size of the model: the declared
// limit, else the factory default, else domain.DefaultLimit.
func (m *Manager) ModelLimit() int {
	if limit := domain.ConfigOf(m.model).Limit; limit > 0 {
		return limit
	}
	if m.factory.defaultLimit > 0 {
		return m.factory.defaultLimit
	}
	return domain.DefaultLimit
}

// SetRepository injects r, which then wins over the declared repository.
// When setModel is true r is rebound to the manager's model.
func (m *Manager) SetRepository(r store.ModelRepository, setModel bool) {
	if r != nil && setModel {
		r.SetModel(m.model)
	}
	m.repository = r
	m.injected = r != nil
}

// Repository returns the injected repository, or resolves the declared
// one in the registry. Unknown names are a ConfigError.
func (m *Manager) Repository() (store.ModelRepository, error) {
	if m.repository != nil {
		return m.repository, nil
	}

	name := domain.ConfigOf(m.model).Repository
	if name == "" {
		name = DefaultRepository
	}
	build, ok := m.factory.registry.repository(name)
	if !ok {
		return nil, configError(m.ModelKey(), "unknown repository %q", name)
	}
	if m.factory.db == nil {
		return nil, configError(m.ModelKey(), "no database configured for repository %q", name)
	}

	m.repository = build(m.factory.db, m.factory.dialect, m.model, m.factory.logger)
	return m.repository, nil
}

// SetTransformer injects t, which then wins over the declared transformer.
func (m *Manager) SetTransformer(t transformer.Transformer) {
	m.transformer = t
}

// Transformer returns the injected transformer, or resolves the declared
// one in the registry. Models without a declared transformer use
// transformer.Base.
func (m *Manager) Transformer() (transformer.Transformer, error) {
	if m.transformer != nil {
		return m.transformer, nil
	}

	name := domain.ConfigOf(m.model).Transformer
	if name == "" {
		m.transformer = transformer.Base{Resolver: m.factory}
		return m.transformer, nil
	}
	build, ok := m.factory.registry.transformer(name)
	if !ok {
		return nil, configError(m.ModelKey(), "unknown transformer %q", name)
	}

	m.transformer = build(m.factory)
	return m.transformer, nil
}

// Binding returns the key, primary key, transformer and repository of the
// model, as needed to serialize it.
func (m *Manager) Binding() (*transformer.Binding, error) {
	primaryKey, err := m.ModelPrimaryKey()
	if err != nil {
		return nil, err
	}
	t, err := m.Transformer()
	if err != nil {
		return nil, err
	}
	repo, err := m.Repository()
	if err != nil {
		return nil, err
	}
	return &transformer.Binding{
		Key:         m.ModelKey(),
		PrimaryKey:  primaryKey,
		Transformer: t,
		Repository:  repo,
	}, nil
}

// Clone returns a fresh manager for the same model with no current result
// and no injected dependencies.
func (m *Manager) Clone() *Manager {
	return m.factory.New(m.model)
}

// Paginate returns the given page. A nil or non-positive limit uses the
// model limit; limits above the factory's maximum are capped.
func (m *Manager) Paginate(ctx context.Context, limit *int, page int) (*store.Page, error) {
	n := m.ModelLimit()
	if limit != nil && *limit > 0 {
		n = *limit
	}
	if m.factory.maxLimit > 0 && n > m.factory.maxLimit {
		n = m.factory.maxLimit
	}

	repo, err := m.Repository()
	if err != nil {
		return nil, err
	}
	p, err := repo.Paginate(ctx, n, page)
	if err != nil {
		return nil, err
	}
	m.current = p
	return p, nil
}

// Show returns the record whose primary key equals value.
func (m *Manager) Show(ctx context.Context, value any) (domain.Model, error) {
	key, err := m.ModelPrimaryKey()
	if err != nil {
		return nil, err
	}
	return m.GetOneByAttribute(ctx, key, value)
}

// Store creates a record from inputs. Inputs are expected to be validated.
func (m *Manager) Store(ctx context.Context, inputs domain.Attributes) (domain.Model, error) {
	item, err := m.one(func(repo store.ModelRepository) (domain.Model, error) {
		return repo.Store(ctx, inputs)
	})
	return m.emitted(ctx, events.ActionStored, item, err)
}

// Update applies inputs to the record whose primary key equals value.
func (m *Manager) Update(ctx context.Context, value any, inputs domain.Attributes) (domain.Model, error) {
	key, err := m.ModelPrimaryKey()
	if err != nil {
		return nil, err
	}
	item, err := m.atomic(ctx, func(repo store.ModelRepository) (domain.Model, error) {
		return repo.UpdateByPrimaryKey(ctx, key, value, inputs)
	})
	return m.emitted(ctx, events.ActionUpdated, item, err)
}

// Delete removes the record whose primary key equals value and returns it.
func (m *Manager) Delete(ctx context.Context, value any) (domain.Model, error) {
	key, err := m.ModelPrimaryKey()
	if err != nil {
		return nil, err
	}
	item, err := m.atomic(ctx, func(repo store.ModelRepository) (domain.Model, error) {
		return repo.DeleteByPrimaryKey(ctx, key, value)
	})
	return m.emitted(ctx, events.ActionDeleted, item, err)
}

// All returns every record.
func (m *Manager) All(ctx context.Context) ([]domain.Model, error) {
	return m.many(func(repo store.ModelRepository) ([]domain.Model, error) {
		return repo.All(ctx)
	})
}

// GetOneByID returns the record whose "id" equals id.
func (m *Manager) GetOneByID(ctx context.Context, id any) (domain.Model, error) {
	return m.one(func(repo store.ModelRepository) (domain.Model, error) {
		return repo.GetOneByID(ctx, id)
	})
}

// GetOneByAttribute returns the first record where name equals value.
func (m *Manager) GetOneByAttribute(ctx context.Context, name string, value any) (domain.Model, error) {
	return m.one(func(repo store.ModelRepository) (domain.Model, error) {
		return repo.GetOneByAttribute(ctx, name, value)
	})
}

// GetOneByAttributes returns the first record matching every pair.
func (m *Manager) GetOneByAttributes(ctx context.Context, attributes domain.Attributes) (domain.Model, error) {
	return m.one(func(repo store.ModelRepository) (domain.Model, error) {
		return repo.GetOneByAttributes(ctx, attributes)
	})
}

// GetByAttribute returns every record where name equals value.
func (m *Manager) GetByAttribute(ctx context.Context, name string, value any) ([]domain.Model, error) {
	return m.many(func(repo store.ModelRepository) ([]domain.Model, error) {
		return repo.GetByAttribute(ctx, name, value)
	})
}

// GetByAttributes returns every record matching every pair.
func (m *Manager) GetByAttributes(ctx context.Context, attributes domain.Attributes) ([]domain.Model, error) {
	return m.many(func(repo store.ModelRepository) ([]domain.Model, error) {
		return repo.GetByAttributes(ctx, attributes)
	})
}

// UpdateByID applies inputs to the record whose "id" equals id.
func (m *Manager) UpdateByID(ctx context.Context, id any, inputs domain.Attributes) (domain.Model, error) {
	item, err := m.atomic(ctx, func(repo store.ModelRepository) (domain.Model, error) {
		return repo.Update(ctx, id, inputs)
	})
	return m.emitted(ctx, events.ActionUpdated, item, err)
}

// DeleteByID removes the record whose "id" equals id.
func (m *Manager) DeleteByID(ctx context.Context, id any) (domain.Model, error) {
	item, err := m.atomic(ctx, func(repo store.ModelRepository) (domain.Model, error) {
		return repo.Delete(ctx, id)
	})
	return m.emitted(ctx, events.ActionDeleted, item, err)
}

func (m *Manager) one(op func(store.ModelRepository) (domain.Model, error)) (domain.Model, error) {
	repo, err := m.Repository()
	if err != nil {
		return nil, err
	}
	item, err := op(repo)
	if err != nil {
		return nil, err
	}
	m.current = item
	return item, nil
}

// atomic runs a load-then-write op in one transaction, so the row that was
// looked up is the row that is written. Injected repositories and factories
// already bound to a transaction run op directly.
func (m *Manager) atomic(ctx context.Context, op func(store.ModelRepository) (domain.Model, error)) (domain.Model, error) {
	db, ok := m.factory.db.(store.Beginner)
	if !ok || m.injected {
		return m.one(op)
	}

	repo, err := m.Repository()
	if err != nil {
		return nil, err
	}
	var item domain.Model
	err = store.RunInTransaction(ctx, db, func(ctx context.Context, tx *sql.Tx) error {
		var opErr error
		item, opErr = op(repo.WithTx(tx))
		return opErr
	})
	if err != nil {
		return nil, err
	}
	m.current = item
	return item, nil
}

func (m *Manager) many(op func(store.ModelRepository) ([]domain.Model, error)) ([]domain.Model, error) {
	repo, err := m.Repository()
	if err != nil {
		return nil, err
	}
	items, err := op(repo)
	if err != nil {
		return nil, err
	}
	m.current = items
	return items, nil
}

// emitted publishes action for a successful write. Handler failures are
// logged; the write has already happened.
func (m *Manager) emitted(ctx context.Context, action events.Action, item domain.Model, err error) (domain.Model, error) {
	if err != nil || m.factory.emitter == nil {
		return item, err
	}

	pk, pkErr := m.ModelPrimaryKey()
	if pkErr != nil {
		pk = domain.DefaultPrimaryKey
	}
	if emitErr := m.factory.emitter.Emit(ctx, events.NewModelEvent(action, m.ModelKey(), pk, item)); emitErr != nil {
		m.log().Warn("event handlers failed",
			slog.String("action", string(action)),
			slog.String("error", redact.Error(emitErr)))
	}
	return item, nil
}

func (m *Manager) log() *slog.Logger {
	return m.factory.logger.With(slog.String("model", m.ModelKey()))
}

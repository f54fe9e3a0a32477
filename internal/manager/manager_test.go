package manager_test

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"testing"

	"github.com/phrazzld/modelapi/internal/domain"
	"github.com/phrazzld/modelapi/internal/events"
	"github.com/phrazzld/modelapi/internal/manager"
	"github.com/phrazzld/modelapi/internal/platform/sqlite"
	"github.com/phrazzld/modelapi/internal/platform/sqlrepo"
	"github.com/phrazzld/modelapi/internal/store"
	"github.com/phrazzld/modelapi/internal/testdb"
	"github.com/phrazzld/modelapi/internal/transformer"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

func TestMain(m *testing.M) {
	domain.PasswordCost = bcrypt.MinCost
	os.Exit(m.Run())
}

// widget is a model whose configuration is set per test.
type widget struct {
	ID    int64  `attr:"id"`
	Email string `attr:"email"`
	cfg   domain.ModelConfig
}

func (w *widget) Attributes() domain.Attributes {
	return domain.Attributes{"id": w.ID, "email": w.Email}
}

func (w *widget) Fill(attrs domain.Attributes) error { return domain.FillStruct(w, attrs) }

func (w *widget) ModelConfig() domain.ModelConfig { return w.cfg }

func newFactory(t *testing.T, opts ...manager.FactoryOption) (*manager.Factory, *sql.DB) {
	t.Helper()
	db := testdb.OpenSQLite(t)
	return manager.NewFactory(manager.DefaultRegistry(), db, sqlite.Dialect{}, nil, opts...), db
}

func userInputs(i int) domain.Attributes {
	return domain.Attributes{
		"name":     fmt.Sprintf("User %d", i),
		"email":    fmt.Sprintf("user%d@example.com", i),
		"password": "correct horse battery",
		"enabled":  true,
	}
}

func requireStructured(t *testing.T, err error, code, status string) *domain.StructuredError {
	t.Helper()
	require.Error(t, err)
	se, ok := domain.AsStructuredError(err)
	require.True(t, ok, "expected a structured error, got %T: %v", err, err)
	assert.Equal(t, code, se.Code)
	assert.Equal(t, status, se.Status)
	return se
}

func requireConfigError(t *testing.T, err error) *manager.ConfigError {
	t.Helper()
	require.Error(t, err)
	assert.True(t, errors.Is(err, manager.ErrManagerConfig), "expected ErrManagerConfig, got %v", err)
	var cfgErr *manager.ConfigError
	require.True(t, errors.As(err, &cfgErr))
	return cfgErr
}

func TestNewFactoryPanicsWithoutRegistry(t *testing.T) {
	assert.Panics(t, func() {
		manager.NewFactory(nil, nil, sqlite.Dialect{}, slog.Default())
	})
}

func TestModelKey(t *testing.T) {
	f := manager.NewFactory(manager.NewRegistry(), nil, sqlite.Dialect{}, nil)

	tests := []struct {
		name  string
		model domain.Model
		want  string
	}{
		{"default from type name", &domain.User{}, "users"},
		{"declared", &domain.Memo{}, "memos"},
		{"declared on custom model", &widget{cfg: domain.ModelConfig{Key: "gadgets"}}, "gadgets"},
		{"undeclared custom model", &widget{}, "widgets"},
	}
	for _, tc := range tests {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, f.New(tc.model).ModelKey())
		})
	}
}

func TestModelPrimaryKey(t *testing.T) {
	f := manager.NewFactory(manager.NewRegistry(), nil, sqlite.Dialect{}, nil)

	key, err := f.New(&domain.User{}).ModelPrimaryKey()
	require.NoError(t, err)
	assert.Equal(t, "id", key, "default primary key")

	key, err = f.New(&domain.Memo{}).ModelPrimaryKey()
	require.NoError(t, err)
	assert.Equal(t, "uuid", key, "declared primary key")

	key, err = f.New(&widget{cfg: domain.ModelConfig{PrimaryKey: "email"}}).ModelPrimaryKey()
	require.NoError(t, err)
	assert.Equal(t, "email", key)

	_, err = f.New(&widget{cfg: domain.ModelConfig{PrimaryKey: "serial"}}).ModelPrimaryKey()
	cfgErr := requireConfigError(t, err)
	assert.Equal(t, "widgets", cfgErr.Model)
	assert.Contains(t, cfgErr.Error(), "serial")
}

func TestModelLimit(t *testing.T) {
	f := manager.NewFactory(manager.NewRegistry(), nil, sqlite.Dialect{}, nil)
	assert.Equal(t, domain.DefaultLimit, f.New(&domain.User{}).ModelLimit())
	assert.Equal(t, 25, f.New(&domain.Memo{}).ModelLimit())

	f = manager.NewFactory(manager.NewRegistry(), nil, sqlite.Dialect{}, nil, manager.WithDefaultLimit(20))
	assert.Equal(t, 20, f.New(&domain.User{}).ModelLimit(), "factory default applies to undeclared limits")
	assert.Equal(t, 25, f.New(&domain.Memo{}).ModelLimit(), "declared limits win")
}

func TestValidate(t *testing.T) {
	f := manager.NewFactory(manager.DefaultRegistry(), nil, sqlite.Dialect{}, nil)
	storeOnly := &widget{cfg: domain.ModelConfig{Rules: domain.RuleSets{"store": {"email": "required"}}}}

	t.Run("missing required field", func(t *testing.T) {
		err := f.New(storeOnly).Validate(domain.Attributes{}, "store")
		se := requireStructured(t, err, domain.CodeValidation, "400")
		assert.True(t, errors.Is(err, domain.ErrValidation))
		assert.Equal(t, "Data validation", se.Title)
		assert.Contains(t, se.Details, "email")
		assert.Equal(t, []string{"email"}, se.Meta["fields"])
	})

	t.Run("valid inputs", func(t *testing.T) {
		assert.NoError(t, f.New(storeOnly).Validate(domain.Attributes{"email": "a@b.com"}, "store"))
	})

	t.Run("messages are joined in field order", func(t *testing.T) {
		err := f.New(&domain.User{}).Validate(domain.Attributes{"enabled": true}, "store")
		se := requireStructured(t, err, domain.CodeValidation, "400")
		assert.Equal(t,
			"The email field is required., The name field is required., The password field is required.",
			se.Details)
		assert.Equal(t, []string{"email", "name", "password"}, se.Meta["fields"])
	})

	t.Run("rule parameters are reported", func(t *testing.T) {
		err := f.New(&domain.User{}).Validate(domain.Attributes{"password": "short", "email": "nope"}, "update")
		se := requireStructured(t, err, domain.CodeValidation, "400")
		assert.Equal(t,
			"The email must be a valid email address., The password must be at least 12 characters.",
			se.Details)
	})

	t.Run("numeric rules", func(t *testing.T) {
		err := f.New(&domain.Memo{}).Validate(domain.Attributes{"user_id": float64(-1), "text": "x"}, "store")
		se := requireStructured(t, err, domain.CodeValidation, "400")
		assert.Equal(t, "The user id must be greater than 0.", se.Details)
	})

	t.Run("falls back to the default set", func(t *testing.T) {
		err := f.New(&domain.Memo{}).Validate(domain.Attributes{"user_id": float64(1), "text": "x"}, "store")
		assert.NoError(t, err)

		err = f.New(&domain.Memo{}).Validate(domain.Attributes{"status": "archived"}, "")
		se := requireStructured(t, err, domain.CodeValidation, "400")
		assert.Contains(t, se.Details, "The selected status is invalid.")
	})

	t.Run("empty named set falls back to default", func(t *testing.T) {
		m := &widget{cfg: domain.ModelConfig{Rules: domain.RuleSets{
			"update":              {},
			domain.DefaultRuleSet: {"email": "required,email"},
		}}}
		err := f.New(m).Validate(domain.Attributes{}, "update")
		requireStructured(t, err, domain.CodeValidation, "400")
	})

	t.Run("missing set without default", func(t *testing.T) {
		err := f.New(storeOnly).Validate(domain.Attributes{}, "update")
		requireConfigError(t, err)
	})

	t.Run("no rules declared", func(t *testing.T) {
		err := f.New(&widget{}).Validate(domain.Attributes{"email": "a@b.com"}, "store")
		requireConfigError(t, err)
	})

	t.Run("wrong input types are invalid", func(t *testing.T) {
		tests := []struct {
			name   string
			model  domain.Model
			set    string
			inputs domain.Attributes
			field  string
		}{
			{"bool for string", &domain.User{}, "store",
				domain.Attributes{"name": true, "email": "a@b.com", "password": "correct horse battery"}, "name"},
			{"bool for integer", &domain.Memo{}, "store",
				domain.Attributes{"user_id": true, "text": "x"}, "user_id"},
			{"fraction for integer", &domain.Memo{}, "store",
				domain.Attributes{"user_id": 1.5, "text": "x"}, "user_id"},
			{"list for enum", &domain.Memo{}, "update",
				domain.Attributes{"status": []any{"a"}}, "status"},
			{"string for bool", &domain.User{}, "update",
				domain.Attributes{"enabled": "yes"}, "enabled"},
		}
		for _, tc := range tests {
			tc := tc
			t.Run(tc.name, func(t *testing.T) {
				err := f.New(tc.model).Validate(tc.inputs, tc.set)
				assert.False(t, errors.Is(err, manager.ErrManagerConfig))
				se := requireStructured(t, err, domain.CodeValidation, "400")
				assert.Equal(t, []string{tc.field}, se.Meta["fields"])
				assert.Contains(t, se.Details, "field is invalid.")
			})
		}
	})

	t.Run("unparseable rule", func(t *testing.T) {
		m := &widget{cfg: domain.ModelConfig{Rules: domain.RuleSets{"store": {"email": "no_such_rule"}}}}
		err := f.New(m).Validate(domain.Attributes{"email": "a@b.com"}, "store")
		cfgErr := requireConfigError(t, err)
		assert.Contains(t, cfgErr.Message, "no_such_rule")
	})
}

func TestStoreShowDelete(t *testing.T) {
	f, _ := newFactory(t)
	ctx := context.Background()
	mgr := f.New(&domain.User{})

	stored, err := mgr.Store(ctx, userInputs(1))
	require.NoError(t, err)
	assert.Same(t, stored, mgr.Current())
	user := stored.(*domain.User)

	shown, err := mgr.Show(ctx, user.ID)
	require.NoError(t, err)
	assert.IsType(t, &domain.User{}, shown)
	assert.Equal(t, user.ID, shown.(*domain.User).ID)

	deleted, err := mgr.Delete(ctx, user.ID)
	require.NoError(t, err)
	assert.Equal(t, user.ID, deleted.(*domain.User).ID)

	_, err = mgr.Show(ctx, user.ID)
	requireStructured(t, err, domain.CodeItemNotFound, "404")
	assert.Same(t, deleted, mgr.Current(), "failed operations keep the current result")

	_, err = mgr.GetOneByID(ctx, user.ID)
	requireStructured(t, err, domain.CodeItemNotFoundByID, "404")
}

func TestShowUsesDeclaredPrimaryKey(t *testing.T) {
	f, _ := newFactory(t)
	ctx := context.Background()

	owner, err := f.New(&domain.User{}).Store(ctx, userInputs(1))
	require.NoError(t, err)

	memos := f.New(&domain.Memo{})
	stored, err := memos.Store(ctx, domain.Attributes{"user_id": owner.(*domain.User).ID, "text": "hello"})
	require.NoError(t, err)
	memo := stored.(*domain.Memo)
	require.NotEmpty(t, memo.UUID)

	shown, err := memos.Show(ctx, memo.UUID)
	require.NoError(t, err)
	assert.Equal(t, memo.ID, shown.(*domain.Memo).ID)

	updated, err := memos.Update(ctx, memo.UUID, domain.Attributes{"status": "completed"})
	require.NoError(t, err)
	assert.Equal(t, domain.MemoStatusCompleted, updated.(*domain.Memo).Status)
}

func TestPaginate(t *testing.T) {
	f, _ := newFactory(t)
	ctx := context.Background()
	mgr := f.New(&domain.User{})
	two := 2

	page, err := mgr.Paginate(ctx, &two, 1)
	require.NoError(t, err)
	assert.Equal(t, 0, page.Count())
	assert.Same(t, page, mgr.Current())

	for i := 0; i < 6; i++ {
		_, err := mgr.Store(ctx, userInputs(i))
		require.NoError(t, err)
	}

	page, err = mgr.Paginate(ctx, &two, 1)
	require.NoError(t, err)
	assert.Equal(t, 2, page.Count())
	assert.Equal(t, 6, page.Total)
	assert.Equal(t, 3, page.LastPage())

	page, err = mgr.Paginate(ctx, nil, 1)
	require.NoError(t, err)
	assert.Equal(t, domain.DefaultLimit, page.PerPage, "nil limit uses the model limit")
	assert.Equal(t, 6, page.Count())
}

func TestPaginateCapsLimit(t *testing.T) {
	f, _ := newFactory(t, manager.WithMaxLimit(3))
	ctx := context.Background()
	mgr := f.New(&domain.User{})
	for i := 0; i < 5; i++ {
		_, err := mgr.Store(ctx, userInputs(i))
		require.NoError(t, err)
	}

	limit := 50
	page, err := mgr.Paginate(ctx, &limit, 1)
	require.NoError(t, err)
	assert.Equal(t, 3, page.PerPage)
	assert.Equal(t, 3, page.Count())
}

func TestUpdate(t *testing.T) {
	f, _ := newFactory(t)
	ctx := context.Background()
	mgr := f.New(&domain.User{})

	stored, err := mgr.Store(ctx, userInputs(1))
	require.NoError(t, err)
	id := stored.(*domain.User).ID

	updated, err := mgr.Update(ctx, id, domain.Attributes{"name": "Renamed"})
	require.NoError(t, err)
	assert.Equal(t, "Renamed", updated.(*domain.User).Name)

	updated, err = mgr.UpdateByID(ctx, id, domain.Attributes{"enabled": false})
	require.NoError(t, err)
	assert.False(t, updated.(*domain.User).Enabled)

	repo, err := mgr.Repository()
	require.NoError(t, err)
	_, err = repo.UpdateByPrimaryKey(ctx, "email", "missing@example.com", domain.Attributes{"name": "Ghost"})
	requireStructured(t, err, domain.CodeItemNotFound, "404")

	ghosts, err := mgr.GetByAttribute(ctx, "name", "Ghost")
	require.NoError(t, err)
	assert.Empty(t, ghosts, "a failed lookup must not write")
}

func TestRepositorySurface(t *testing.T) {
	f, _ := newFactory(t)
	ctx := context.Background()
	mgr := f.New(&domain.User{})
	for i := 0; i < 3; i++ {
		_, err := mgr.Store(ctx, userInputs(i))
		require.NoError(t, err)
	}

	all, err := mgr.All(ctx)
	require.NoError(t, err)
	assert.Len(t, all, 3)
	assert.Equal(t, all, mgr.Current())

	one, err := mgr.GetOneByAttributes(ctx, domain.Attributes{"email": "user1@example.com", "enabled": true})
	require.NoError(t, err)
	assert.Equal(t, "User 1", one.(*domain.User).Name)

	many, err := mgr.GetByAttributes(ctx, domain.Attributes{"enabled": true})
	require.NoError(t, err)
	assert.Len(t, many, 3)

	deleted, err := mgr.DeleteByID(ctx, one.(*domain.User).ID)
	require.NoError(t, err)
	_, err = mgr.GetOneByAttribute(ctx, "email", deleted.(*domain.User).Email)
	requireStructured(t, err, domain.CodeItemNotFound, "404")
}

func TestSetCurrent(t *testing.T) {
	f := manager.NewFactory(manager.NewRegistry(), nil, sqlite.Dialect{}, nil)
	mgr := f.New(&domain.User{})

	for _, v := range []any{nil, &domain.User{}, []domain.Model{&domain.User{}}, &store.Page{}} {
		require.NoError(t, mgr.SetCurrent(v))
		assert.Equal(t, v, mgr.Current())
	}

	err := mgr.SetCurrent("not a result")
	requireConfigError(t, err)
	assert.Equal(t, &store.Page{}, mgr.Current(), "rejected values do not replace the current result")

	for _, v := range []any{(*domain.User)(nil), (*store.Page)(nil)} {
		err = mgr.SetCurrent(v)
		requireConfigError(t, err)
		assert.Equal(t, &store.Page{}, mgr.Current(), "typed nil %T is rejected", v)
	}
}

func TestRepositoryResolution(t *testing.T) {
	t.Run("unknown name", func(t *testing.T) {
		f, _ := newFactory(t)
		_, err := f.New(&widget{cfg: domain.ModelConfig{Repository: "missing"}}).Repository()
		requireConfigError(t, err)
	})

	t.Run("no database", func(t *testing.T) {
		f := manager.NewFactory(manager.NewRegistry(), nil, sqlite.Dialect{}, nil)
		_, err := f.New(&domain.User{}).Repository()
		requireConfigError(t, err)
	})

	t.Run("registered name", func(t *testing.T) {
		db := testdb.OpenSQLite(t)
		registry := manager.NewRegistry()
		var built domain.Model
		registry.RegisterRepository("custom", func(
			db store.DBTX,
			dialect sqlrepo.Dialect,
			m domain.Model,
			logger *slog.Logger,
		) store.ModelRepository {
			built = m
			return sqlrepo.New(db, dialect, m, logger)
		})
		f := manager.NewFactory(registry, db, sqlite.Dialect{}, nil)
		model := &widget{cfg: domain.ModelConfig{Repository: "custom"}}

		mgr := f.New(model)
		repo, err := mgr.Repository()
		require.NoError(t, err)
		assert.Same(t, model, built)

		again, err := mgr.Repository()
		require.NoError(t, err)
		assert.Same(t, repo, again, "resolution is cached")
	})

	t.Run("injection wins and rebinds", func(t *testing.T) {
		f, db := newFactory(t)
		injected := sqlrepo.New(db, sqlite.Dialect{}, &domain.Memo{}, nil)

		mgr := f.New(&domain.User{})
		mgr.SetRepository(injected, true)
		repo, err := mgr.Repository()
		require.NoError(t, err)
		assert.Same(t, injected, repo)
		assert.IsType(t, &domain.User{}, repo.Model())

		mgr.SetModel(&domain.Memo{})
		assert.IsType(t, &domain.Memo{}, repo.Model(), "SetModel rebinds an injected repository")
	})
}

func TestTransformerResolution(t *testing.T) {
	f := manager.NewFactory(manager.DefaultRegistry(), nil, sqlite.Dialect{}, nil)

	tr, err := f.New(&domain.User{}).Transformer()
	require.NoError(t, err)
	assert.IsType(t, &transformer.UserTransformer{}, tr)

	tr, err = f.New(&widget{}).Transformer()
	require.NoError(t, err)
	assert.IsType(t, transformer.Base{}, tr)

	_, err = f.New(&widget{cfg: domain.ModelConfig{Transformer: "missing"}}).Transformer()
	requireConfigError(t, err)

	mgr := f.New(&widget{cfg: domain.ModelConfig{Transformer: "missing"}})
	mgr.SetTransformer(transformer.Base{})
	tr, err = mgr.Transformer()
	require.NoError(t, err)
	assert.Equal(t, transformer.Base{}, tr)
}

func TestRegistry(t *testing.T) {
	registry := manager.DefaultRegistry()

	var keys []string
	for _, m := range registry.Models() {
		keys = append(keys, domain.KeyOf(m))
	}
	assert.Equal(t, []string{"users", "memos"}, keys)

	m, ok := registry.Model("memos")
	require.True(t, ok)
	assert.IsType(t, &domain.Memo{}, m)

	_, ok = registry.Model("widgets")
	assert.False(t, ok)

	requireConfigError(t, registry.RegisterModel(&domain.User{}))
	assert.NoError(t, registry.RegisterModel(&widget{}))
}

func TestFactoryForKeyAndResolve(t *testing.T) {
	f, _ := newFactory(t)

	mgr, err := f.ForKey("users")
	require.NoError(t, err)
	assert.IsType(t, &domain.User{}, mgr.Model())

	_, err = f.ForKey("widgets")
	requireConfigError(t, err)

	binding, err := f.Resolve(&domain.Memo{})
	require.NoError(t, err)
	assert.Equal(t, "memos", binding.Key)
	assert.Equal(t, "uuid", binding.PrimaryKey)
	assert.IsType(t, &transformer.MemoTransformer{}, binding.Transformer)
	assert.IsType(t, &domain.Memo{}, binding.Repository.Model())

	_, err = f.Resolve(&widget{cfg: domain.ModelConfig{PrimaryKey: "serial"}})
	requireConfigError(t, err)
}

func TestFactoryWithTx(t *testing.T) {
	f, db := newFactory(t)
	ctx := context.Background()

	err := store.RunInTransaction(ctx, db, func(ctx context.Context, tx *sql.Tx) error {
		_, err := f.WithTx(tx).New(&domain.User{}).Store(ctx, userInputs(1))
		require.NoError(t, err)
		return errors.New("abort")
	})
	require.Error(t, err)

	all, err := f.New(&domain.User{}).All(ctx)
	require.NoError(t, err)
	assert.Empty(t, all, "the insert is rolled back with the transaction")
}

// countingDB counts the transactions opened on it.
type countingDB struct {
	*sql.DB
	begun int
}

func (c *countingDB) BeginTx(ctx context.Context, opts *sql.TxOptions) (*sql.Tx, error) {
	c.begun++
	return c.DB.BeginTx(ctx, opts)
}

func TestWritesAfterLookupRunInTransaction(t *testing.T) {
	db := &countingDB{DB: testdb.OpenSQLite(t)}
	f := manager.NewFactory(manager.DefaultRegistry(), db, sqlite.Dialect{}, nil)
	ctx := context.Background()
	mgr := f.New(&domain.User{})

	first, err := mgr.Store(ctx, userInputs(1))
	require.NoError(t, err)
	second, err := mgr.Store(ctx, userInputs(2))
	require.NoError(t, err)
	assert.Zero(t, db.begun, "a single insert needs no transaction")

	_, err = mgr.Update(ctx, first.(*domain.User).ID, domain.Attributes{"name": "Renamed"})
	require.NoError(t, err)
	assert.Equal(t, 1, db.begun)

	_, err = mgr.Update(ctx, first.(*domain.User).ID, domain.Attributes{"email": "user2@example.com"})
	requireStructured(t, err, domain.CodeItemUpdateFailed, "400")
	assert.Equal(t, 2, db.begun)
	assert.Equal(t, "Renamed", mgr.Current().(*domain.User).Name, "failures keep the current result")

	_, err = mgr.DeleteByID(ctx, second.(*domain.User).ID)
	require.NoError(t, err)
	assert.Equal(t, 3, db.begun)

	all, err := mgr.All(ctx)
	require.NoError(t, err)
	require.Len(t, all, 1)
	assert.Equal(t, "user1@example.com", all[0].(*domain.User).Email)
}

func TestClone(t *testing.T) {
	f, _ := newFactory(t)
	mgr := f.New(&domain.User{})
	require.NoError(t, mgr.SetCurrent(&domain.User{}))

	clone := mgr.Clone()
	assert.NotSame(t, mgr, clone)
	assert.Nil(t, clone.Current())
	assert.Equal(t, mgr.ModelKey(), clone.ModelKey())
}

func TestConfigError(t *testing.T) {
	err := &manager.ConfigError{Model: "users", Message: "broken", Err: errors.New("cause")}
	assert.Equal(t, "manager configuration error: users: broken: cause", err.Error())
	assert.True(t, errors.Is(err, manager.ErrManagerConfig))
	assert.Equal(t, "cause", errors.Unwrap(err).Error())
}

func TestManagerEmitsLifecycleEvents(t *testing.T) {
	ctx := context.Background()
	emitter := events.NewInMemoryEmitter(nil)
	var got []*events.ModelEvent
	emitter.RegisterHandler(events.HandlerFunc(func(_ context.Context, e *events.ModelEvent) error {
		got = append(got, e)
		return errors.New("handler failures do not fail the write")
	}))

	f, _ := newFactory(t, manager.WithEmitter(emitter))
	m := f.New(&domain.Memo{})
	author, err := f.New(&domain.User{}).Store(ctx, userInputs(1))
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, events.ActionStored, got[0].Action)
	assert.Equal(t, "users", got[0].Key)

	stored, err := m.Store(ctx, domain.Attributes{"user_id": author.(*domain.User).ID, "text": "hi"})
	require.NoError(t, err)
	uuid := stored.(*domain.Memo).UUID

	_, err = m.Update(ctx, uuid, domain.Attributes{"text": "bye"})
	require.NoError(t, err)
	_, err = m.Delete(ctx, uuid)
	require.NoError(t, err)

	_, err = m.Delete(ctx, uuid)
	require.Error(t, err)

	require.Len(t, got, 4, "failed writes emit nothing")
	for i, action := range []events.Action{events.ActionStored, events.ActionUpdated, events.ActionDeleted} {
		assert.Equal(t, action, got[i+1].Action)
		assert.Equal(t, "memos", got[i+1].Key)
		assert.Equal(t, uuid, got[i+1].ItemID, "memos are identified by their uuid")
	}
}

package sqlrepo

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"reflect"
	"strconv"
	"time"

	"github.com/phrazzld/modelapi/internal/domain"
	"github.com/phrazzld/modelapi/internal/platform/logger"
	"github.com/phrazzld/modelapi/internal/redact"
	"github.com/phrazzld/modelapi/internal/store"
	"github.com/spf13/cast"
)

// Repository implements store.ModelRepository over a single SQL table.
type Repository struct {
	db      store.DBTX
	dialect Dialect
	model   domain.Model
	logger  *slog.Logger
	now     func() time.Time
}

// Option customises a Repository.
type Option func(*Repository)

// WithClock replaces the clock used for the created_at and updated_at stamps.
func WithClock(now func() time.Time) Option {
	return func(r *Repository) {
		r.now = now
	}
}

// New creates a repository for model on db.
// It accepts a database connection or transaction that should be initialized and managed by the caller.
// If logger is nil, a default logger will be used.
func New(db store.DBTX, dialect Dialect, model domain.Model, logger *slog.Logger, opts ...Option) *Repository {
	if db == nil {
		panic("db cannot be nil")
	}
	if dialect == nil {
		panic("dialect cannot be nil")
	}
	if model == nil {
		panic("model cannot be nil")
	}
	if logger == nil {
		logger = slog.Default()
	}

	r := &Repository{
		db:      db,
		dialect: dialect,
		model:   model,
		logger: logger.With(
			slog.String("component", "model_repository"),
			slog.String("dialect", dialect.Name()),
		),
		now: func() time.Time { return time.Now().UTC() },
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Ensure Repository implements store.ModelRepository interface
var _ store.ModelRepository = (*Repository)(nil)

// Model implements store.ModelRepository.Model
func (r *Repository) Model() domain.Model {
	return r.model
}

// SetModel implements store.ModelRepository.SetModel
func (r *Repository) SetModel(m domain.Model) {
	if m != nil {
		r.model = m
	}
}

// WithTx implements store.ModelRepository.WithTx
func (r *Repository) WithTx(tx *sql.Tx) store.ModelRepository {
	clone := *r
	clone.db = tx
	return &clone
}

// All implements store.ModelRepository.All
func (r *Repository) All(ctx context.Context) ([]domain.Model, error) {
	log := r.log(ctx)

	b := selectAll(r.dialect, r.table()).orderBy(r.columns(), domain.DefaultPrimaryKey)
	models, err := r.query(ctx, b)
	if err != nil {
		log.Warn("failed to retrieve items", slog.String("error", redact.Error(err)))
		return nil, store.NewItemsNotFoundError("Items cannot be retrieved.", err)
	}

	log.Debug("retrieved items", slog.Int("count", len(models)))
	return models, nil
}

// Paginate implements store.ModelRepository.Paginate
// A limit below 1 falls back to the model limit and a page below 1 is
// treated as the first page.
func (r *Repository) Paginate(ctx context.Context, limit, page int) (*store.Page, error) {
	log := r.log(ctx)

	if limit < 1 {
		limit = modelLimit(r.model)
	}
	if page < 1 {
		page = 1
	}

	var total int
	count := countAll(r.dialect, r.table())
	if err := r.db.QueryRowContext(ctx, count.String(), count.args...).Scan(&total); err != nil {
		err = r.dialect.MapError(err)
		log.Warn("failed to count items", slog.String("error", redact.Error(err)))
		return nil, store.NewItemsNotFoundError("Items cannot be retrieved.", err)
	}

	b := selectAll(r.dialect, r.table()).
		orderBy(r.columns(), domain.DefaultPrimaryKey).
		limitOffset(limit, (page-1)*limit)
	models, err := r.query(ctx, b)
	if err != nil {
		log.Warn("failed to retrieve page",
			slog.Int("limit", limit),
			slog.Int("page", page),
			slog.String("error", redact.Error(err)))
		return nil, store.NewItemsNotFoundError("Items cannot be retrieved.", err)
	}

	log.Debug("retrieved page",
		slog.Int("limit", limit),
		slog.Int("page", page),
		slog.Int("count", len(models)),
		slog.Int("total", total))

	return &store.Page{
		Items:       models,
		Total:       total,
		PerPage:     limit,
		CurrentPage: page,
	}, nil
}

// GetOneByID implements store.ModelRepository.GetOneByID
func (r *Repository) GetOneByID(ctx context.Context, id any) (domain.Model, error) {
	m, err := r.first(ctx, domain.Attributes{domain.DefaultPrimaryKey: id})
	if err != nil {
		r.log(ctx).Debug("item not found by id",
			slog.Any("id", id),
			slog.String("error", redact.Error(err)))
		return nil, store.NewItemNotFoundByIDError(id, err)
	}
	return m, nil
}

// GetOneByAttribute implements store.ModelRepository.GetOneByAttribute
func (r *Repository) GetOneByAttribute(ctx context.Context, name string, value any) (domain.Model, error) {
	return r.GetOneByAttributes(ctx, domain.Attributes{name: value})
}

// GetOneByAttributes implements store.ModelRepository.GetOneByAttributes
func (r *Repository) GetOneByAttributes(ctx context.Context, attributes domain.Attributes) (domain.Model, error) {
	m, err := r.first(ctx, attributes)
	if err != nil {
		r.log(ctx).Debug("item not found by attributes",
			slog.Any("attributes", attributes.Keys()),
			slog.String("error", redact.Error(err)))
		return nil, store.NewItemNotFoundError(attributes, err)
	}
	return m, nil
}

// GetByAttribute implements store.ModelRepository.GetByAttribute
func (r *Repository) GetByAttribute(ctx context.Context, name string, value any) ([]domain.Model, error) {
	return r.GetByAttributes(ctx, domain.Attributes{name: value})
}

// GetByAttributes implements store.ModelRepository.GetByAttributes
func (r *Repository) GetByAttributes(ctx context.Context, attributes domain.Attributes) ([]domain.Model, error) {
	match, err := r.match(attributes)
	if err == nil {
		b := selectAll(r.dialect, r.table()).where(match).orderBy(r.columns(), domain.DefaultPrimaryKey)
		var models []domain.Model
		if models, err = r.query(ctx, b); err == nil {
			return models, nil
		}
	}

	r.log(ctx).Warn("failed to retrieve items by attributes",
		slog.Any("attributes", attributes.Keys()),
		slog.String("error", redact.Error(err)))
	return nil, store.NewItemsNotFoundError("Items cannot be retrieved.", err)
}

// Store implements store.ModelRepository.Store
// Only fillable inputs are assigned. The model hooks run before the insert
// and the timestamps are stamped when the model has them.
func (r *Repository) Store(ctx context.Context, inputs domain.Attributes) (domain.Model, error) {
	log := r.log(ctx)

	m := domain.New(r.model)
	filled := domain.FillableAttributes(m, primaryKey(r.model), inputs)
	if err := m.Fill(filled); err != nil {
		log.Debug("invalid store inputs", slog.String("error", redact.Error(err)))
		return nil, store.NewStoreError(failureDetails(err), err)
	}

	now := r.now()
	if err := runBeforeStore(m, filled, now); err != nil {
		return nil, store.NewStoreError(failureDetails(err), err)
	}

	values := m.Attributes()
	if isZero(values[domain.DefaultPrimaryKey]) {
		delete(values, domain.DefaultPrimaryKey)
	}
	stamp(values, domain.CreatedAtColumn, now)
	stamp(values, domain.UpdatedAtColumn, now)

	models, err := r.query(ctx, insertInto(r.dialect, r.table(), values))
	if err == nil && len(models) == 0 {
		err = store.ErrNotFound
	}
	if err != nil {
		log.Warn("failed to store item", slog.String("error", redact.Error(err)))
		return nil, store.NewStoreError(failureDetails(err), err)
	}

	log.Debug("stored item", slog.String("table", r.table()))
	return models[0], nil
}

// Update implements store.ModelRepository.Update
func (r *Repository) Update(ctx context.Context, id any, inputs domain.Attributes) (domain.Model, error) {
	existing, err := r.GetOneByID(ctx, id)
	if err != nil {
		return nil, err
	}
	return r.save(ctx, existing, domain.DefaultPrimaryKey, inputs)
}

// UpdateByPrimaryKey implements store.ModelRepository.UpdateByPrimaryKey
func (r *Repository) UpdateByPrimaryKey(ctx context.Context, name string, value any, inputs domain.Attributes) (domain.Model, error) {
	existing, err := r.GetOneByAttribute(ctx, name, value)
	if err != nil {
		return nil, err
	}
	return r.save(ctx, existing, name, inputs)
}

// Delete implements store.ModelRepository.Delete
func (r *Repository) Delete(ctx context.Context, id any) (domain.Model, error) {
	existing, err := r.GetOneByID(ctx, id)
	if err != nil {
		return nil, err
	}
	return r.remove(ctx, existing, domain.DefaultPrimaryKey)
}

// DeleteByPrimaryKey implements store.ModelRepository.DeleteByPrimaryKey
func (r *Repository) DeleteByPrimaryKey(ctx context.Context, name string, value any) (domain.Model, error) {
	existing, err := r.GetOneByAttribute(ctx, name, value)
	if err != nil {
		return nil, err
	}
	return r.remove(ctx, existing, name)
}

// save applies inputs to a loaded model and writes every column back,
// matching the row on key as currently stored.
func (r *Repository) save(ctx context.Context, m domain.Model, key string, inputs domain.Attributes) (domain.Model, error) {
	log := r.log(ctx)
	match := domain.Attributes{key: m.Attributes()[key]}

	filled := domain.FillableAttributes(m, primaryKey(r.model), inputs)
	if err := m.Fill(filled); err != nil {
		log.Debug("invalid update inputs", slog.String("error", redact.Error(err)))
		return nil, store.NewUpdateError(failureDetails(err), err)
	}
	if saver, ok := m.(domain.Saver); ok {
		if err := saver.BeforeSave(filled); err != nil {
			return nil, store.NewUpdateError(failureDetails(err), err)
		}
	}

	values := m.Attributes()
	delete(values, domain.DefaultPrimaryKey)
	delete(values, domain.CreatedAtColumn)
	stamp(values, domain.UpdatedAtColumn, r.now())

	models, err := r.query(ctx, update(r.dialect, r.table(), values, match))
	if err == nil && len(models) == 0 {
		err = fmt.Errorf("%w: %s", store.ErrNotFound, r.table())
	}
	if err != nil {
		log.Warn("failed to update item", slog.String("error", redact.Error(err)))
		return nil, store.NewUpdateError(failureDetails(err), err)
	}

	log.Debug("updated item", slog.String("table", r.table()), slog.String("key", key))
	return models[0], nil
}

func (r *Repository) remove(ctx context.Context, m domain.Model, key string) (domain.Model, error) {
	log := r.log(ctx)
	b := deleteFrom(r.dialect, r.table(), domain.Attributes{key: m.Attributes()[key]})

	result, err := r.db.ExecContext(ctx, b.String(), b.args...)
	if err != nil {
		err = r.dialect.MapError(err)
	} else {
		err = checkRowsAffected(result, r.table())
	}
	if err != nil {
		log.Warn("failed to delete item", slog.String("error", redact.Error(err)))
		return nil, store.NewDeleteError(failureDetails(err), err)
	}

	log.Debug("deleted item", slog.String("table", r.table()), slog.String("key", key))
	return m, nil
}

// first returns the first row matching attributes.
func (r *Repository) first(ctx context.Context, attributes domain.Attributes) (domain.Model, error) {
	match, err := r.match(attributes)
	if err != nil {
		return nil, err
	}

	b := selectAll(r.dialect, r.table()).
		where(match).
		orderBy(r.columns(), domain.DefaultPrimaryKey).
		limitOffset(1, 0)
	models, err := r.query(ctx, b)
	if err != nil {
		return nil, err
	}
	if len(models) == 0 {
		return nil, fmt.Errorf("%w: %s", store.ErrNotFound, r.table())
	}
	return models[0], nil
}

// match validates lookup names against the model columns and converts the
// values to the column types, so that path parameters such as "5" compare
// against integer keys.
func (r *Repository) match(attributes domain.Attributes) (domain.Attributes, error) {
	columns := r.columns()
	out := make(domain.Attributes, len(attributes))
	for name, value := range attributes {
		proto, ok := columns[name]
		if !ok {
			return nil, fmt.Errorf("%w: %q", store.ErrUnknownAttribute, name)
		}
		v, err := coerce(proto, value)
		if err != nil {
			return nil, fmt.Errorf("%w: %s: %v", domain.ErrInvalidFormat, name, err)
		}
		out[name] = v
	}
	return out, nil
}

// query runs b and decodes every row into a fresh model.
func (r *Repository) query(ctx context.Context, b *builder) ([]domain.Model, error) {
	rows, err := r.db.QueryContext(ctx, b.String(), b.args...)
	if err != nil {
		return nil, r.dialect.MapError(err)
	}
	defer func() { _ = rows.Close() }()

	cols, err := rows.Columns()
	if err != nil {
		return nil, r.dialect.MapError(err)
	}

	models := []domain.Model{}
	for rows.Next() {
		values := make([]any, len(cols))
		dest := make([]any, len(cols))
		for i := range values {
			dest[i] = &values[i]
		}
		if err := rows.Scan(dest...); err != nil {
			return nil, r.dialect.MapError(err)
		}

		attrs := make(domain.Attributes, len(cols))
		for i, col := range cols {
			attrs[col] = values[i]
		}

		m := domain.New(r.model)
		if err := m.Fill(attrs); err != nil {
			return nil, fmt.Errorf("failed to decode %s row: %w", r.table(), err)
		}
		models = append(models, m)
	}
	if err := rows.Err(); err != nil {
		return nil, r.dialect.MapError(err)
	}
	return models, nil
}

func (r *Repository) log(ctx context.Context) *slog.Logger {
	return logger.FromContextOrDefault(ctx, r.logger)
}

func (r *Repository) table() string {
	return domain.TableOf(r.model)
}

func (r *Repository) columns() domain.Attributes {
	return r.model.Attributes()
}

func primaryKey(m domain.Model) string {
	if pk := domain.ConfigOf(m).PrimaryKey; pk != "" {
		return pk
	}
	return domain.DefaultPrimaryKey
}

func modelLimit(m domain.Model) int {
	if limit := domain.ConfigOf(m).Limit; limit > 0 {
		return limit
	}
	return domain.DefaultLimit
}

func runBeforeStore(m domain.Model, filled domain.Attributes, now time.Time) error {
	if init, ok := m.(domain.Initializer); ok {
		if err := init.BeforeStore(now); err != nil {
			return err
		}
	}
	if saver, ok := m.(domain.Saver); ok {
		if err := saver.BeforeSave(filled); err != nil {
			return err
		}
	}
	return nil
}

// stamp sets a timestamp column when the model has it.
func stamp(values domain.Attributes, column string, now time.Time) {
	if values.Has(column) {
		values[column] = now
	}
}

func isZero(v any) bool {
	return v == nil || reflect.ValueOf(v).IsZero()
}

// coerce converts value to the Go type of proto for the types lookups use.
// Strings bound for integer columns must be base 10; cast would also accept
// octal, hex and binary prefixes.
func coerce(proto, value any) (any, error) {
	if value == nil {
		return nil, nil
	}
	switch proto.(type) {
	case int64:
		if s, ok := value.(string); ok {
			return strconv.ParseInt(s, 10, 64)
		}
		return cast.ToInt64E(value)
	case int:
		if s, ok := value.(string); ok {
			return strconv.Atoi(s)
		}
		return cast.ToIntE(value)
	case bool:
		return cast.ToBoolE(value)
	case string:
		return cast.ToStringE(value)
	case time.Time:
		return cast.ToTimeE(value)
	default:
		return value, nil
	}
}

// checkRowsAffected returns store.ErrNotFound when a statement touched no rows.
func checkRowsAffected(result sql.Result, table string) error {
	n, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if n == 0 {
		return fmt.Errorf("%w: %s", store.ErrNotFound, table)
	}
	return nil
}

// failureDetails renders a client-safe description of a rejected write.
func failureDetails(err error) string {
	switch {
	case errors.Is(err, store.ErrDuplicate):
		return "Item conflicts with an existing item."
	case errors.Is(err, store.ErrInvalidEntity):
		return "Item violates a data constraint."
	case errors.Is(err, store.ErrNotFound):
		return "Item does not exist."
	case errors.Is(err, domain.ErrInvalidFormat):
		return "Item attributes have an invalid format."
	default:
		return redact.Error(err)
	}
}

package store

import (
	"context"
	"database/sql"

	"github.com/phrazzld/modelapi/internal/domain"
)

// ModelRepository defines data persistence for a single model type.
// The model bound at construction (or through SetModel) acts as the
// prototype: every record returned is a fresh instance of its type.
//
// All failures are returned as *domain.StructuredError values whose kind
// is one of ErrItemNotFound, ErrItemsNotFound, ErrStoreFailed,
// ErrUpdateFailed or ErrDeleteFailed.
type ModelRepository interface {
	// Model returns the bound prototype model.
	Model() domain.Model

	// SetModel binds the repository to another model type.
	SetModel(m domain.Model)

	// All returns every record. A failed fetch is ErrItemsNotFound.
	All(ctx context.Context) ([]domain.Model, error)

	// Paginate returns page number page (1-based) of at most limit records.
	// A failed fetch is ErrItemsNotFound.
	Paginate(ctx context.Context, limit, page int) (*Page, error)

	// GetOneByID returns the record whose "id" attribute equals id.
	// Returns ErrItemNotFound (code 10002) if none exists.
	GetOneByID(ctx context.Context, id any) (domain.Model, error)

	// GetOneByAttribute returns the first record where name equals value.
	// Returns ErrItemNotFound (code 10003) if none exists.
	GetOneByAttribute(ctx context.Context, name string, value any) (domain.Model, error)

	// GetOneByAttributes returns the first record matching every pair.
	// Returns ErrItemNotFound (code 10003) if none exists.
	GetOneByAttributes(ctx context.Context, attributes domain.Attributes) (domain.Model, error)

	// GetByAttribute returns every record where name equals value.
	// An empty result is not an error.
	GetByAttribute(ctx context.Context, name string, value any) ([]domain.Model, error)

	// GetByAttributes returns every record matching every pair.
	// An empty result is not an error.
	GetByAttributes(ctx context.Context, attributes domain.Attributes) ([]domain.Model, error)

	// Store creates a record from inputs and returns it as persisted.
	// Returns ErrStoreFailed if persistence rejects the inputs.
	Store(ctx context.Context, inputs domain.Attributes) (domain.Model, error)

	// Update loads the record by id and applies inputs to it.
	// Returns ErrItemNotFound before any write if the record does not exist,
	// and ErrUpdateFailed if the write is rejected.
	Update(ctx context.Context, id any, inputs domain.Attributes) (domain.Model, error)

	// UpdateByPrimaryKey is Update keyed on an arbitrary attribute.
	UpdateByPrimaryKey(ctx context.Context, name string, value any, inputs domain.Attributes) (domain.Model, error)

	// Delete loads the record by id and removes it, returning the removed record.
	// Returns ErrDeleteFailed if the removal is rejected.
	Delete(ctx context.Context, id any) (domain.Model, error)

	// DeleteByPrimaryKey is Delete keyed on an arbitrary attribute.
	DeleteByPrimaryKey(ctx context.Context, name string, value any) (domain.Model, error)

	// WithTx returns a repository for the same model that runs its
	// statements on tx.
	WithTx(tx *sql.Tx) ModelRepository
}

// Page is one page of records produced by Paginate.
type Page struct {
	Items       []domain.Model
	Total       int
	PerPage     int
	CurrentPage int
}

// Count returns the number of records on this page.
func (p *Page) Count() int {
	return len(p.Items)
}

// LastPage returns the number of the last page, at least 1.
func (p *Page) LastPage() int {
	if p.PerPage <= 0 || p.Total == 0 {
		return 1
	}
	return (p.Total + p.PerPage - 1) / p.PerPage
}

// HasMore reports whether pages follow the current one.
func (p *Page) HasMore() bool {
	return p.CurrentPage < p.LastPage()
}

package store

import (
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"testing"

	"github.com/phrazzld/modelapi/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStructuredErrorConstructors(t *testing.T) {
	cause := errors.New("driver failure")

	tests := []struct {
		name    string
		err     *domain.StructuredError
		kind    error
		status  int
		code    string
		title   string
		details string
	}{
		{
			name:    "not found by id",
			err:     NewItemNotFoundByIDError(42, cause),
			kind:    ErrItemNotFound,
			status:  http.StatusNotFound,
			code:    "10002",
			title:   "Item not found",
			details: "Item with id 42 does not exist.",
		},
		{
			name:    "not found by attributes",
			err:     NewItemNotFoundError(domain.Attributes{"email": "a@b.c"}, cause),
			kind:    ErrItemNotFound,
			status:  http.StatusNotFound,
			code:    "10003",
			title:   "Item not found",
			details: `Item with attributes {"email":"a@b.c"} does not exist.`,
		},
		{
			name:    "items not found",
			err:     NewItemsNotFoundError("Items cannot be listed", cause),
			kind:    ErrItemsNotFound,
			status:  http.StatusNotFound,
			code:    "10004",
			title:   "Items not found",
			details: "Items cannot be listed",
		},
		{
			name:    "store failed",
			err:     NewStoreError("duplicate", cause),
			kind:    ErrStoreFailed,
			status:  http.StatusBadRequest,
			code:    "10005",
			title:   "Item cannot be stored",
			details: "duplicate",
		},
		{
			name:    "update failed",
			err:     NewUpdateError("duplicate", cause),
			kind:    ErrUpdateFailed,
			status:  http.StatusBadRequest,
			code:    "10006",
			title:   "Item cannot be updated",
			details: "duplicate",
		},
		{
			name:    "delete failed",
			err:     NewDeleteError("referenced", cause),
			kind:    ErrDeleteFailed,
			status:  http.StatusInternalServerError,
			code:    "10003",
			title:   "Item cannot be deleted",
			details: "referenced",
		},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			require.NoError(t, tt.err.Validate())
			assert.Equal(t, strconv.Itoa(tt.status), tt.err.Status)
			assert.Equal(t, tt.status, tt.err.HTTPStatus())
			assert.Equal(t, tt.code, tt.err.Code)
			assert.Equal(t, tt.title, tt.err.Title)
			assert.Equal(t, tt.details, tt.err.Details)
			assert.ErrorIs(t, tt.err, tt.kind)
			assert.ErrorIs(t, tt.err, cause)

			wrapped := fmt.Errorf("manager: %w", tt.err)
			assert.ErrorIs(t, wrapped, tt.kind)
		})
	}
}

func TestIsNotFoundError(t *testing.T) {
	assert.True(t, IsNotFoundError(NewItemNotFoundByIDError(1, nil)))
	assert.True(t, IsNotFoundError(NewItemsNotFoundError("none", nil)))
	assert.True(t, IsNotFoundError(fmt.Errorf("%w: users", ErrNotFound)))
	assert.False(t, IsNotFoundError(NewStoreError("bad", nil)))
	assert.False(t, IsNotFoundError(errors.New("other")))
	assert.False(t, IsNotFoundError(nil))
}

func TestDescribeAttributesFallback(t *testing.T) {
	got := describeAttributes(domain.Attributes{"fn": func() {}})
	assert.Contains(t, got, "fn:")
}

func TestPage(t *testing.T) {
	tests := []struct {
		name     string
		page     Page
		lastPage int
		hasMore  bool
	}{
		{"empty", Page{PerPage: 2, CurrentPage: 1}, 1, false},
		{"exact", Page{Total: 6, PerPage: 2, CurrentPage: 1}, 3, true},
		{"remainder", Page{Total: 7, PerPage: 2, CurrentPage: 4}, 4, false},
		{"zero per page", Page{Total: 7, CurrentPage: 1}, 1, false},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.lastPage, tt.page.LastPage())
			assert.Equal(t, tt.hasMore, tt.page.HasMore())
		})
	}

	p := Page{Items: []domain.Model{&domain.User{}, &domain.User{}}}
	assert.Equal(t, 2, p.Count())
}

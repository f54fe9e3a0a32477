package store

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"github.com/phrazzld/modelapi/internal/domain"
)

// Error kinds raised by repositories. Every failure that leaves a
// repository is a *domain.StructuredError carrying one of these kinds, so
// callers match them with errors.Is.
var (
	// ErrItemNotFound is the kind raised when a single-record lookup
	// matches nothing.
	ErrItemNotFound = errors.New("item not found")

	// ErrItemsNotFound is the kind raised when a bulk fetch fails.
	ErrItemsNotFound = errors.New("items not found")

	// ErrStoreFailed is the kind raised when persistence rejects a new record.
	ErrStoreFailed = errors.New("store failed")

	// ErrUpdateFailed is the kind raised when an update is rejected, for
	// example because it violates constraints.
	ErrUpdateFailed = errors.New("update failed")

	// ErrDeleteFailed is the kind raised when a delete is rejected, for
	// example because the record is referenced by other records.
	ErrDeleteFailed = errors.New("delete failed")
)

// Causes attached to structured errors after the driver error has been
// classified by a dialect.
var (
	// ErrNotFound marks a lookup that returned no row.
	ErrNotFound = errors.New("entity not found")

	// ErrDuplicate marks a unique constraint violation.
	ErrDuplicate = errors.New("entity already exists")

	// ErrInvalidEntity marks a foreign key, check or not-null violation.
	ErrInvalidEntity = errors.New("invalid entity")

	// ErrUnknownAttribute marks a lookup on a name that is not a column
	// of the model.
	ErrUnknownAttribute = errors.New("unknown attribute")
)

// IsNotFoundError reports whether err is any kind of "not found" error.
func IsNotFoundError(err error) bool {
	return errors.Is(err, ErrItemNotFound) ||
		errors.Is(err, ErrItemsNotFound) ||
		errors.Is(err, ErrNotFound)
}

// NewItemNotFoundByIDError builds the 10002 error for a lookup by id.
func NewItemNotFoundByIDError(id any, cause error) *domain.StructuredError {
	return domain.NewStructuredError(
		ErrItemNotFound,
		http.StatusNotFound,
		domain.CodeItemNotFoundByID,
		"Item not found",
		fmt.Sprintf("Item with id %v does not exist.", id),
		cause,
	)
}

// NewItemNotFoundError builds the 10003 error for a lookup by attributes.
func NewItemNotFoundError(attributes domain.Attributes, cause error) *domain.StructuredError {
	return domain.NewStructuredError(
		ErrItemNotFound,
		http.StatusNotFound,
		domain.CodeItemNotFound,
		"Item not found",
		fmt.Sprintf("Item with attributes %s does not exist.", describeAttributes(attributes)),
		cause,
	)
}

// NewItemsNotFoundError builds the 10004 error for a failed bulk fetch.
func NewItemsNotFoundError(details string, cause error) *domain.StructuredError {
	return domain.NewStructuredError(
		ErrItemsNotFound,
		http.StatusNotFound,
		domain.CodeItemsNotFound,
		"Items not found",
		details,
		cause,
	)
}

// NewStoreError builds the 10005 error for a rejected insert.
func NewStoreError(details string, cause error) *domain.StructuredError {
	return domain.NewStructuredError(
		ErrStoreFailed,
		http.StatusBadRequest,
		domain.CodeItemStoreFailed,
		"Item cannot be stored",
		details,
		cause,
	)
}

// NewUpdateError builds the 10006 error for a rejected update.
func NewUpdateError(details string, cause error) *domain.StructuredError {
	return domain.NewStructuredError(
		ErrUpdateFailed,
		http.StatusBadRequest,
		domain.CodeItemUpdateFailed,
		"Item cannot be updated",
		details,
		cause,
	)
}

// NewDeleteError builds the 10003 error for a rejected delete.
func NewDeleteError(details string, cause error) *domain.StructuredError {
	return domain.NewStructuredError(
		ErrDeleteFailed,
		http.StatusInternalServerError,
		domain.CodeItemDeleteFailed,
		"Item cannot be deleted",
		details,
		cause,
	)
}

// describeAttributes renders lookup keys as compact JSON, falling back to
// Go syntax for values JSON cannot encode.
func describeAttributes(attributes domain.Attributes) string {
	data, err := json.Marshal(map[string]any(attributes))
	if err != nil {
		return fmt.Sprintf("%v", map[string]any(attributes))
	}
	return string(data)
}

package domain

import (
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
)

// Stable internal error codes exposed to API clients.
const (
	CodeValidation       = "10001"
	CodeItemNotFoundByID = "10002"
	CodeItemNotFound     = "10003"
	CodeItemDeleteFailed = "10003"
	CodeItemsNotFound    = "10004"
	CodeItemStoreFailed  = "10005"
	CodeItemUpdateFailed = "10006"
)

// ErrIncompleteError is returned when a StructuredError lacks one of its
// required fields (code, title, details).
var ErrIncompleteError = errors.New("structured error is incomplete")

// StructuredError is a user-facing error carried to the client as a
// JSON:API error object.
type StructuredError struct {
	// Status is the HTTP status associated with this error, as a string.
	Status string

	// Code is the application specific error code. Required.
	Code string

	// Title is a short human-readable summary. Required.
	Title string

	// Details is a human-readable explanation of this occurrence. Required.
	Details string

	Href  string
	Links map[string]any
	Path  string
	Meta  map[string]any

	kind  error
	cause error
}

// NewStructuredError builds an error of the given kind. The kind is what
// errors.Is matches against; cause is the underlying error, if any.
func NewStructuredError(kind error, status int, code, title, details string, cause error) *StructuredError {
	return &StructuredError{
		Status:  strconv.Itoa(status),
		Code:    code,
		Title:   title,
		Details: details,
		kind:    kind,
		cause:   cause,
	}
}

// Error implements the error interface.
func (e *StructuredError) Error() string {
	if e.cause != nil {
		return fmt.Sprintf("%s (%s): %s: %v", e.Title, e.Code, e.Details, e.cause)
	}
	return fmt.Sprintf("%s (%s): %s", e.Title, e.Code, e.Details)
}

// Unwrap returns the underlying cause.
func (e *StructuredError) Unwrap() error {
	return e.cause
}

// Is reports whether target is the kind of this error.
func (e *StructuredError) Is(target error) bool {
	return e.kind != nil && target == e.kind
}

// Kind returns the sentinel this error was built with.
func (e *StructuredError) Kind() error {
	return e.kind
}

// HTTPStatus returns Status as an int, or 500 when it is missing or malformed.
func (e *StructuredError) HTTPStatus() int {
	status, err := strconv.Atoi(e.Status)
	if err != nil || status < 100 || status > 599 {
		return 500
	}
	return status
}

// WithHref, WithLinks, WithPath and WithMeta set the optional members.
func (e *StructuredError) WithHref(href string) *StructuredError {
	e.Href = href
	return e
}

func (e *StructuredError) WithLinks(links map[string]any) *StructuredError {
	e.Links = links
	return e
}

func (e *StructuredError) WithPath(path string) *StructuredError {
	e.Path = path
	return e
}

func (e *StructuredError) WithMeta(meta map[string]any) *StructuredError {
	e.Meta = meta
	return e
}

// Validate checks that the required members are set.
func (e *StructuredError) Validate() error {
	for _, f := range []struct{ name, value string }{
		{"code", e.Code},
		{"title", e.Title},
		{"details", e.Details},
	} {
		if f.value == "" {
			return fmt.Errorf("%w: %s is required", ErrIncompleteError, f.name)
		}
	}
	return nil
}

// ToMap returns the wire representation. Only non-empty members are emitted.
func (e *StructuredError) ToMap() (map[string]any, error) {
	if err := e.Validate(); err != nil {
		return nil, err
	}

	out := map[string]any{
		"code":    e.Code,
		"title":   e.Title,
		"details": e.Details,
	}
	if e.Status != "" {
		out["status"] = e.Status
	}
	if e.Href != "" {
		out["href"] = e.Href
	}
	if e.Links != nil {
		out["links"] = e.Links
	}
	if e.Path != "" {
		out["path"] = e.Path
	}
	if e.Meta != nil {
		out["meta"] = e.Meta
	}
	return out, nil
}

// MarshalJSON implements json.Marshaler. It fails for incomplete errors.
func (e *StructuredError) MarshalJSON() ([]byte, error) {
	m, err := e.ToMap()
	if err != nil {
		return nil, err
	}
	return json.Marshal(m)
}

// AsStructuredError extracts a StructuredError from err's chain.
func AsStructuredError(err error) (*StructuredError, bool) {
	var se *StructuredError
	if errors.As(err, &se) {
		return se, true
	}
	return nil, false
}

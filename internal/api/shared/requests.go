package shared

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"

	"github.com/go-playground/validator/v10"
	"github.com/phrazzld/modelapi/internal/domain"
)

// MaxBodyBytes bounds the size of request bodies.
const MaxBodyBytes = 1 << 20

// ErrInvalidBody is returned for bodies that are not a single JSON object.
var ErrInvalidBody = errors.New("request body must be a JSON object")

// validate is shared by every handler; it is safe for concurrent use.
var validate = validator.New()

// DecodeJSON decodes the request body into v. The body must hold exactly
// one JSON value no larger than MaxBodyBytes.
func DecodeJSON(r *http.Request, v any) error {
	dec := json.NewDecoder(io.LimitReader(r.Body, MaxBodyBytes))
	if err := dec.Decode(v); err != nil {
		return err
	}
	if dec.More() {
		return fmt.Errorf("%w: unexpected data after the first value", ErrInvalidBody)
	}
	return nil
}

// DecodeAttributes decodes a model body. Both plain attribute objects and
// JSON:API documents of the form {"data": {"attributes": {...}}} are accepted.
func DecodeAttributes(r *http.Request) (domain.Attributes, error) {
	var body map[string]any
	if err := DecodeJSON(r, &body); err != nil {
		return nil, err
	}
	if body == nil {
		return nil, ErrInvalidBody
	}

	data, ok := body["data"].(map[string]any)
	if !ok {
		return domain.Attributes(body), nil
	}
	attrs, ok := data["attributes"].(map[string]any)
	if !ok {
		return nil, fmt.Errorf("%w: data.attributes must be an object", ErrInvalidBody)
	}
	return domain.Attributes(attrs), nil
}

// ValidateRequest validates v with its own Validate method when it has one,
// otherwise with its `validate` struct tags.
func ValidateRequest(v any) error {
	if validatable, ok := v.(interface{ Validate() error }); ok {
		return validatable.Validate()
	}
	return validate.Struct(v)
}

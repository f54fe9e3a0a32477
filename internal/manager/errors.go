package manager

import (
	"errors"
	"fmt"
)

// ErrManagerConfig is matched by every *ConfigError.
var ErrManagerConfig = errors.New("manager configuration error")

// ConfigError reports a model whose declared configuration cannot be
// resolved: an invalid primary key, missing rule sets, an unknown
// repository or transformer name, or an unsupported current result.
//
// It is a programming error rather than a client error, so the API
// answers it with a generic 500.
type ConfigError struct {
	Model   string
	Message string
	Err     error
}

func configError(model, format string, args ...any) *ConfigError {
	return &ConfigError{Model: model, Message: fmt.Sprintf(format, args...)}
}

// Error implements the error interface.
func (e *ConfigError) Error() string {
	msg := fmt.Sprintf("%s: %s: %s", ErrManagerConfig, e.Model, e.Message)
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

// Is reports whether target is ErrManagerConfig.
func (e *ConfigError) Is(target error) bool {
	return target == ErrManagerConfig
}

// Unwrap returns the underlying error, if any.
func (e *ConfigError) Unwrap() error {
	return e.Err
}

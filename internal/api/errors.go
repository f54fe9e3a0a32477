package api

import (
	"context"
	"errors"
	"log/slog"
	"net/http"

	"github.com/phrazzld/modelapi/internal/api/shared"
	"github.com/phrazzld/modelapi/internal/domain"
	"github.com/phrazzld/modelapi/internal/manager"
	"github.com/phrazzld/modelapi/internal/platform/logger"
	"github.com/phrazzld/modelapi/internal/redact"
)

// Messages of generic failures. They never carry internal details.
const (
	msgInternalError  = "An unexpected error occurred"
	msgInvalidRequest = "Invalid request format"
)

// RespondWithModelError writes err for the client.
//
// Structured errors become an error document with their own status.
// Configuration errors and anything else are logged and answered with a
// generic 500 carrying the trace ID.
func RespondWithModelError(w http.ResponseWriter, r *http.Request, err error) {
	log := logger.FromContext(r.Context())

	if se, ok := domain.AsStructuredError(err); ok {
		status := se.HTTPStatus()
		level := slog.LevelDebug
		if status >= http.StatusInternalServerError {
			level = slog.LevelError
		}
		log.LogAttrs(r.Context(), level, "request failed",
			slog.String("code", se.Code),
			slog.Int("status_code", status),
			slog.String("error", redact.Error(err)))

		shared.RespondWithContentType(w, r, status, manager.ContentType, manager.ErrorsBody{
			Errors: []*domain.StructuredError{se},
		})
		return
	}

	switch {
	case errors.Is(err, manager.ErrManagerConfig):
		log.Error("model configuration error", slog.String("error", err.Error()))
		shared.RespondWithErrorAndLog(w, r, http.StatusInternalServerError, msgInternalError, err)
	case errors.Is(err, context.Canceled):
		shared.RespondWithErrorAndLog(w, r, 499, "Request canceled", err)
	case errors.Is(err, context.DeadlineExceeded):
		shared.RespondWithErrorAndLog(w, r, http.StatusGatewayTimeout, "Request timed out", err)
	default:
		shared.RespondWithErrorAndLog(w, r, http.StatusInternalServerError, msgInternalError, err)
	}
}

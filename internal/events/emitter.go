package events

import (
	"context"
	"errors"
	"log/slog"
	"sync"

	"github.com/phrazzld/modelapi/internal/platform/logger"
	"github.com/phrazzld/modelapi/internal/redact"
)

// InMemoryEmitter dispatches events to handlers registered in process.
type InMemoryEmitter struct {
	mu       sync.RWMutex
	handlers []Handler
	logger   *slog.Logger
}

// Ensure InMemoryEmitter implements Emitter
var _ Emitter = (*InMemoryEmitter)(nil)

// NewInMemoryEmitter creates an emitter with no handlers.
func NewInMemoryEmitter(l *slog.Logger) *InMemoryEmitter {
	if l == nil {
		l = slog.Default()
	}
	return &InMemoryEmitter{
		logger: l.With(slog.String("component", "event_emitter")),
	}
}

// RegisterHandler adds a handler that receives every later event.
func (e *InMemoryEmitter) RegisterHandler(h Handler) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.handlers = append(e.handlers, h)
	e.logger.Debug("registered new event handler", slog.Int("handler_count", len(e.handlers)))
}

// Emit sends event to every handler, even when one of them fails. The
// returned error joins the handler failures.
func (e *InMemoryEmitter) Emit(ctx context.Context, event *ModelEvent) error {
	e.mu.RLock()
	handlers := make([]Handler, len(e.handlers))
	copy(handlers, e.handlers)
	e.mu.RUnlock()

	log := logger.FromContextOrDefault(ctx, e.logger).With(
		slog.String("event_id", event.ID.String()),
		slog.String("action", string(event.Action)),
		slog.String("resource", event.Key))

	log.Debug("emitting event", slog.Int("handler_count", len(handlers)))

	var errs []error
	for i, h := range handlers {
		if err := h.HandleEvent(ctx, event); err != nil {
			log.Error("handler failed to process event",
				slog.Int("handler_index", i),
				slog.String("error", redact.Error(err)))
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// NewAuditLogHandler returns a handler that records every change at info level.
func NewAuditLogHandler(l *slog.Logger) Handler {
	if l == nil {
		l = slog.Default()
	}
	return HandlerFunc(func(ctx context.Context, event *ModelEvent) error {
		logger.FromContextOrDefault(ctx, l).LogAttrs(ctx, slog.LevelInfo, "model changed",
			slog.String("component", "audit"),
			slog.String("event_id", event.ID.String()),
			slog.String("action", string(event.Action)),
			slog.String("resource", event.Key),
			slog.String("item_id", event.ItemID),
			slog.Time("occurred_at", event.OccurredAt))
		return nil
	})
}

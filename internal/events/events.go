package events

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/phrazzld/modelapi/internal/domain"
)

// Action is the kind of change a ModelEvent reports.
type Action string

// Actions emitted by the model manager.
const (
	ActionStored  Action = "stored"
	ActionUpdated Action = "updated"
	ActionDeleted Action = "deleted"
)

// ModelEvent reports a change to one record.
type ModelEvent struct {
	// ID is a unique identifier for this event
	ID uuid.UUID `json:"id"`

	Action Action `json:"action"`

	// Key is the resource key of the model, e.g. "users".
	Key string `json:"key"`

	// ItemID is the primary key value of the record, formatted as text.
	ItemID string `json:"item_id"`

	// Model is the record as persisted, or as it was before a delete.
	Model domain.Model `json:"-"`

	OccurredAt time.Time `json:"occurred_at"`
}

// NewModelEvent creates an event for m, whose primary key attribute is primaryKey.
func NewModelEvent(action Action, key, primaryKey string, m domain.Model) *ModelEvent {
	var itemID string
	if m != nil {
		if v, ok := m.Attributes()[primaryKey]; ok && v != nil {
			itemID = fmt.Sprint(v)
		}
	}
	return &ModelEvent{
		ID:         uuid.New(),
		Action:     action,
		Key:        key,
		ItemID:     itemID,
		Model:      m,
		OccurredAt: time.Now().UTC(),
	}
}

// Handler is implemented by components that react to model events.
type Handler interface {
	HandleEvent(ctx context.Context, event *ModelEvent) error
}

// HandlerFunc adapts a function to Handler.
type HandlerFunc func(ctx context.Context, event *ModelEvent) error

// HandleEvent implements Handler.
func (f HandlerFunc) HandleEvent(ctx context.Context, event *ModelEvent) error {
	return f(ctx, event)
}

// Emitter publishes events to handlers.
type Emitter interface {
	Emit(ctx context.Context, event *ModelEvent) error
}

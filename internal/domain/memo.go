package domain

import (
	"time"

	"github.com/google/uuid"
)

// MemoStatus represents the processing state of a memo
type MemoStatus string

// Possible memo status values
const (
	MemoStatusPending             MemoStatus = "pending"
	MemoStatusProcessing          MemoStatus = "processing"
	MemoStatusCompleted           MemoStatus = "completed"
	MemoStatusCompletedWithErrors MemoStatus = "completed_with_errors"
	MemoStatusFailed              MemoStatus = "failed"
)

// Memo represents a text-based entry submitted by a user.
// Memos are addressed by their UUID rather than their row id.
type Memo struct {
	ID        int64      `attr:"id"`
	UUID      string     `attr:"uuid"`
	UserID    int64      `attr:"user_id"`
	Text      string     `attr:"text"`
	Status    MemoStatus `attr:"status"`
	CreatedAt time.Time  `attr:"created_at"`
	UpdatedAt time.Time  `attr:"updated_at"`
}

// Attributes implements Model.
func (m *Memo) Attributes() Attributes {
	return Attributes{
		"id":         m.ID,
		"uuid":       m.UUID,
		"user_id":    m.UserID,
		"text":       m.Text,
		"status":     string(m.Status),
		"created_at": m.CreatedAt,
		"updated_at": m.UpdatedAt,
	}
}

// Fill implements Model.
func (m *Memo) Fill(attrs Attributes) error {
	return FillStruct(m, attrs)
}

// ModelConfig implements Configurable.
func (m *Memo) ModelConfig() ModelConfig {
	return ModelConfig{
		Key:         "memos",
		PrimaryKey:  "uuid",
		Limit:       25,
		Transformer: "memo",
		Rules: RuleSets{
			DefaultRuleSet: {
				"user_id": "required,gt=0",
				"text":    "required,min=1",
				"status":  "omitempty,oneof=pending processing completed completed_with_errors failed",
			},
			"update": {
				"text":   "omitempty,min=1",
				"status": "omitempty,oneof=pending processing completed completed_with_errors failed",
			},
		},
	}
}

// BeforeStore assigns the UUID and the initial status.
func (m *Memo) BeforeStore(now time.Time) error {
	if m.UUID == "" {
		m.UUID = uuid.NewString()
	}
	if m.Status == "" {
		m.Status = MemoStatusPending
	}
	return nil
}

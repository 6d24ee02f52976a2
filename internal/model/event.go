package model

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// DomainEvent is the persisted form of every session transition and domain
// notification. The event log is append-only.
type DomainEvent struct {
	ID        string         `gorm:"type:uuid;primaryKey" json:"id"`
	ProjectID string         `gorm:"type:uuid;not null;index" json:"project_id"`
	UserID    *string        `gorm:"type:uuid;index" json:"user_id,omitempty"`
	SessionID *string        `gorm:"type:uuid" json:"session_id,omitempty"`
	Type      string         `gorm:"type:varchar(64);not null;index" json:"type"`
	Payload   datatypes.JSON `gorm:"type:jsonb" json:"payload,omitempty"`
	CreatedAt time.Time      `json:"created_at"`
}

func (e *DomainEvent) BeforeCreate(tx *gorm.DB) error {
	if e.ID == "" {
		e.ID = uuid.NewString()
	}
	return nil
}

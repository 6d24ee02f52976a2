package model

import (
	"time"

	"github.com/google/uuid"
	"github.com/kurslab/tutorium/internal/contract"
	"gorm.io/gorm"
)

// LearningSession is the per-(project, user) session record. It is never
// deleted; terminal sessions transition back to IDLE via the state machine.
type LearningSession struct {
	ID             string                 `gorm:"type:uuid;primaryKey" json:"id"`
	ProjectID      string                 `gorm:"type:uuid;not null;index:idx_sessions_project_user" json:"project_id"`
	UserID         string                 `gorm:"type:uuid;not null;index:idx_sessions_project_user" json:"user_id"`
	State          contract.LearningState `gorm:"type:varchar(32);not null;default:'IDLE'" json:"state"`
	CurrentTestID  *string                `gorm:"type:uuid" json:"current_test_id,omitempty"`
	CurrentTopic   *string                `json:"current_topic,omitempty"`
	LastActivityAt time.Time              `gorm:"not null" json:"last_activity_at"`
	CreatedAt      time.Time              `json:"created_at"`
	UpdatedAt      time.Time              `json:"updated_at"`
}

func (s *LearningSession) BeforeCreate(tx *gorm.DB) error {
	if s.ID == "" {
		s.ID = uuid.NewString()
	}
	if s.LastActivityAt.IsZero() {
		s.LastActivityAt = time.Now()
	}
	return nil
}

package model

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

const (
	HomeworkStatusSubmitted = "SUBMITTED"
	HomeworkStatusApproved  = "APPROVED"
	HomeworkStatusRejected  = "REJECTED"
	HomeworkStatusRevision  = "NEEDS_REVISION"
)

// HomeworkSubmission is a student's homework, reviewed by an admin.
type HomeworkSubmission struct {
	ID           string          `gorm:"type:uuid;primaryKey" json:"id"`
	ProjectID    string          `gorm:"type:uuid;not null;index" json:"project_id"`
	UserID       string          `gorm:"type:uuid;not null;index" json:"user_id"`
	AssignmentID *string         `gorm:"type:uuid" json:"assignment_id,omitempty"`
	ContentType  string          `gorm:"type:varchar(16);not null" json:"content_type"` // "text" or "file"
	ContentText  string          `gorm:"type:text" json:"content_text,omitempty"`
	FileURL      *string         `json:"file_url,omitempty"`
	Status       string          `gorm:"type:varchar(24);not null;default:'SUBMITTED'" json:"status"`
	Review       *HomeworkReview `gorm:"foreignKey:SubmissionID" json:"review,omitempty"`
	SubmittedAt  time.Time       `gorm:"autoCreateTime" json:"submitted_at"`
	UpdatedAt    time.Time       `json:"updated_at"`
}

func (s *HomeworkSubmission) BeforeCreate(tx *gorm.DB) error {
	if s.ID == "" {
		s.ID = uuid.NewString()
	}
	return nil
}

// HomeworkReview is the admin's verdict on a submission.
type HomeworkReview struct {
	ID           string    `gorm:"type:uuid;primaryKey" json:"id"`
	SubmissionID string    `gorm:"type:uuid;not null;uniqueIndex" json:"submission_id"`
	AdminUserID  string    `gorm:"type:uuid;not null" json:"admin_user_id"`
	Score        *int      `json:"score,omitempty"`
	Comment      string    `gorm:"type:text" json:"comment,omitempty"`
	CreatedAt    time.Time `json:"created_at"`
}

func (r *HomeworkReview) BeforeCreate(tx *gorm.DB) error {
	if r.ID == "" {
		r.ID = uuid.NewString()
	}
	return nil
}

package model

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

const (
	TestStatusDraft     = "DRAFT"
	TestStatusPublished = "PUBLISHED"
	TestStatusArchived  = "ARCHIVED"
)

const (
	AttemptStatusStarted   = "STARTED"
	AttemptStatusSubmitted = "SUBMITTED"
	AttemptStatusChecked   = "CHECKED"
)

// Test stores an AI-generated test. Spec is the validated contract.TestSpec
// serialized as JSON; it is immutable after publication.
type Test struct {
	ID          string         `gorm:"type:uuid;primaryKey" json:"id"`
	ProjectID   string         `gorm:"type:uuid;not null;index" json:"project_id"`
	Topic       string         `gorm:"not null" json:"topic"`
	Difficulty  string         `gorm:"type:varchar(16);not null" json:"difficulty"`
	Status      string         `gorm:"type:varchar(16);not null;default:'DRAFT';index" json:"status"`
	Spec        datatypes.JSON `gorm:"type:jsonb;not null" json:"spec"`
	PublishedAt *time.Time     `json:"published_at,omitempty"`
	CreatedAt   time.Time      `json:"created_at"`
	UpdatedAt   time.Time      `json:"updated_at"`
}

func (t *Test) BeforeCreate(tx *gorm.DB) error {
	if t.ID == "" {
		t.ID = uuid.NewString()
	}
	return nil
}

// TestAttempt is one instance of a user taking a test. It accumulates exactly
// one submission and one check over its lifecycle.
type TestAttempt struct {
	ID         string     `gorm:"type:uuid;primaryKey" json:"id"`
	ProjectID  string     `gorm:"type:uuid;not null;index" json:"project_id"`
	UserID     string     `gorm:"type:uuid;not null;index" json:"user_id"`
	TestID     string     `gorm:"type:uuid;not null;index" json:"test_id"`
	Test       Test       `gorm:"foreignKey:TestID" json:"test,omitempty"`
	Status     string     `gorm:"type:varchar(16);not null;default:'STARTED'" json:"status"`
	StartedAt  time.Time  `gorm:"autoCreateTime" json:"started_at"`
	FinishedAt *time.Time `json:"finished_at,omitempty"`
	CreatedAt  time.Time  `json:"created_at"`
	UpdatedAt  time.Time  `json:"updated_at"`
}

func (a *TestAttempt) BeforeCreate(tx *gorm.DB) error {
	if a.ID == "" {
		a.ID = uuid.NewString()
	}
	return nil
}

// TestSubmission holds the raw answers of one attempt, written exactly once.
type TestSubmission struct {
	ID        string         `gorm:"type:uuid;primaryKey" json:"id"`
	AttemptID string         `gorm:"type:uuid;not null;uniqueIndex" json:"attempt_id"`
	Answers   datatypes.JSON `gorm:"type:jsonb;not null" json:"answers"`
	CreatedAt time.Time      `json:"created_at"`
}

func (s *TestSubmission) BeforeCreate(tx *gorm.DB) error {
	if s.ID == "" {
		s.ID = uuid.NewString()
	}
	return nil
}

// TestCheck is the AI grading result for a submission, written exactly once.
type TestCheck struct {
	ID             string         `gorm:"type:uuid;primaryKey" json:"id"`
	SubmissionID   string         `gorm:"type:uuid;not null;uniqueIndex" json:"submission_id"`
	Score          int            `gorm:"not null" json:"score"`
	Passed         bool           `gorm:"not null" json:"passed"`
	Mistakes       datatypes.JSON `gorm:"type:jsonb" json:"mistakes"`
	Feedback       string         `gorm:"type:text" json:"feedback"`
	Recommendation string         `gorm:"type:varchar(32)" json:"recommendation"`
	CreatedAt      time.Time      `json:"created_at"`
}

func (c *TestCheck) BeforeCreate(tx *gorm.DB) error {
	if c.ID == "" {
		c.ID = uuid.NewString()
	}
	return nil
}

package dto

import (
	"time"

	"github.com/kurslab/tutorium/internal/contract"
)

// MessageRequest is a free-text learner message routed through the session.
type MessageRequest struct {
	ProjectID string `json:"project_id" binding:"required,uuid"`
	UserID    string `json:"user_id" binding:"required,uuid"`
	Text      string `json:"text" binding:"required"`
}

type StartTestRequest struct {
	ProjectID string  `json:"project_id" binding:"required,uuid"`
	UserID    string  `json:"user_id" binding:"required,uuid"`
	TestID    *string `json:"test_id" binding:"omitempty,uuid"`
}

type SubmitTestRequest struct {
	ProjectID string                          `json:"project_id" binding:"required,uuid"`
	UserID    string                          `json:"user_id" binding:"required,uuid"`
	AttemptID string                          `json:"attempt_id" binding:"required,uuid"`
	Answers   map[string]contract.AnswerValue `json:"answers" binding:"required"`
}

type SubmitHomeworkRequest struct {
	ProjectID   string  `json:"project_id" binding:"required,uuid"`
	UserID      string  `json:"user_id" binding:"required,uuid"`
	ContentType string  `json:"content_type" binding:"required,oneof=text file"`
	ContentText string  `json:"content_text"`
	FileURL     *string `json:"file_url"`
}

// ActionsResponse is the ordered list of bot actions the renderer must apply.
type ActionsResponse struct {
	Actions []contract.BotAction `json:"actions"`
}

type SessionResponse struct {
	ID              string   `json:"id"`
	ProjectID       string   `json:"project_id"`
	UserID          string   `json:"user_id"`
	State           string   `json:"state"`
	CurrentTestID   *string  `json:"current_test_id,omitempty"`
	CurrentTopic    *string  `json:"current_topic,omitempty"`
	AvailableEvents []string `json:"available_events"`

	LastActivityAt time.Time `json:"last_activity_at"`
	CreatedAt      time.Time `json:"created_at"`
}

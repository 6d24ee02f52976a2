package dto

import (
	"encoding/json"
	"time"
)

type GenerateTestsRequest struct {
	ProjectID     string `json:"project_id" binding:"required,uuid"`
	Topic         string `json:"topic" binding:"required"`
	Difficulty    string `json:"difficulty" binding:"omitempty,oneof=easy medium hard"`
	Count         int    `json:"count" binding:"omitempty,min=1,max=10"`
	QuestionCount int    `json:"question_count" binding:"omitempty,min=3,max=20"`
}

type GenerationJobResponse struct {
	ID        string    `json:"id"`
	ProjectID string    `json:"project_id"`
	Status    string    `json:"status"`
	Requested int       `json:"requested"`
	TestIDs   []string  `json:"test_ids"`
	Errors    []string  `json:"errors,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}

type TestResponse struct {
	ID          string          `json:"id"`
	ProjectID   string          `json:"project_id"`
	Topic       string          `json:"topic"`
	Difficulty  string          `json:"difficulty"`
	Status      string          `json:"status"`
	Spec        json.RawMessage `json:"spec"`
	PublishedAt *time.Time      `json:"published_at,omitempty"`
	CreatedAt   time.Time       `json:"created_at"`
}

type ReviewHomeworkRequest struct {
	AdminUserID string `json:"admin_user_id" binding:"required,uuid"`
	Decision    string `json:"decision" binding:"required,oneof=APPROVED REJECTED NEEDS_REVISION"`
	Score       *int   `json:"score" binding:"omitempty,min=0,max=100"`
	Comment     string `json:"comment"`
}

type HomeworkReviewResponse struct {
	AdminUserID string    `json:"admin_user_id"`
	Score       *int      `json:"score,omitempty"`
	Comment     string    `json:"comment,omitempty"`
	CreatedAt   time.Time `json:"created_at"`
}

type HomeworkSubmissionResponse struct {
	ID          string                  `json:"id"`
	ProjectID   string                  `json:"project_id"`
	UserID      string                  `json:"user_id"`
	ContentType string                  `json:"content_type"`
	ContentText string                  `json:"content_text,omitempty"`
	FileURL     *string                 `json:"file_url,omitempty"`
	Status      string                  `json:"status"`
	Review      *HomeworkReviewResponse `json:"review,omitempty"`
	SubmittedAt time.Time               `json:"submitted_at"`
}

type HomeworkAnalysisResponse struct {
	Summary           string `json:"summary"`
	SuggestedFeedback string `json:"suggestedFeedback"`
}

type CreateDocumentRequest struct {
	ProjectID  string `json:"project_id" binding:"required,uuid"`
	Filename   string `json:"filename" binding:"required"`
	StorageURL string `json:"storage_url"`
}

type ConfirmUploadRequest struct {
	Content string `json:"content" binding:"required"`
}

type DocumentResponse struct {
	ID         string    `json:"id"`
	ProjectID  string    `json:"project_id"`
	Filename   string    `json:"filename"`
	Status     string    `json:"status"`
	StorageURL string    `json:"storage_url,omitempty"`
	CreatedAt  time.Time `json:"created_at"`
}

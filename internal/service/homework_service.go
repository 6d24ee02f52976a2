package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/kurslab/tutorium/internal/ai"
	"github.com/kurslab/tutorium/internal/contract"
	"github.com/kurslab/tutorium/internal/model"
	"github.com/kurslab/tutorium/internal/repository"
	"github.com/rs/zerolog/log"
	"gorm.io/gorm"
)

var ErrSubmissionNotFound = errors.New("homework submission not found")

// HomeworkAnalysis is an AI pre-read of a submission shown to the reviewing
// admin. It is advisory; grading stays human.
type HomeworkAnalysis struct {
	Summary           string `json:"summary"`
	SuggestedFeedback string `json:"suggestedFeedback"`
}

type ReviewParams struct {
	SubmissionID string
	AdminUserID  string
	Decision     string // APPROVED, REJECTED or NEEDS_REVISION
	Score        *int
	Comment      string
}

type HomeworkService interface {
	Submit(ctx context.Context, projectID, userID, contentType, contentText string, fileURL *string) (*model.HomeworkSubmission, error)
	Review(ctx context.Context, params ReviewParams) (*model.HomeworkSubmission, error)
	ListPending(ctx context.Context, projectID string) ([]model.HomeworkSubmission, error)
	ListForUser(ctx context.Context, projectID, userID string) ([]model.HomeworkSubmission, error)
	Analyze(ctx context.Context, submissionID string) (*HomeworkAnalysis, error)
}

type homeworkService struct {
	homework repository.HomeworkRepository
	runtime  SessionRuntime
	pipeline *ai.Pipeline
}

func NewHomeworkService(homework repository.HomeworkRepository, runtime SessionRuntime, pipeline *ai.Pipeline) HomeworkService {
	return &homeworkService{homework: homework, runtime: runtime, pipeline: pipeline}
}

// Submit persists the homework and moves the session to HOMEWORK_SUBMITTED.
// The session transition is authoritative: an illegal state rejects the
// submission before anything is written.
func (s *homeworkService) Submit(ctx context.Context, projectID, userID, contentType, contentText string, fileURL *string) (*model.HomeworkSubmission, error) {
	submission := &model.HomeworkSubmission{
		ProjectID:   projectID,
		UserID:      userID,
		ContentType: contentType,
		ContentText: contentText,
		FileURL:     fileURL,
		Status:      model.HomeworkStatusSubmitted,
	}

	if _, err := s.runtime.ApplyEvent(ctx, projectID, userID, contract.EventUserSubmitsHomework, map[string]string{
		"content_type": contentType,
	}); err != nil {
		return nil, err
	}

	if err := s.homework.CreateSubmission(ctx, submission); err != nil {
		return nil, err
	}
	return submission, nil
}

// Review records the admin verdict. Any decision closes the session via
// admin_reviews; NEEDS_REVISION is carried on the submission status so the
// learner sees what to redo in the next session.
func (s *homeworkService) Review(ctx context.Context, params ReviewParams) (*model.HomeworkSubmission, error) {
	submission, err := s.homework.FindSubmissionByID(ctx, params.SubmissionID)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrSubmissionNotFound
	}
	if err != nil {
		return nil, err
	}

	status, err := reviewStatus(params.Decision)
	if err != nil {
		return nil, err
	}

	review := &model.HomeworkReview{
		SubmissionID: submission.ID,
		AdminUserID:  params.AdminUserID,
		Score:        params.Score,
		Comment:      params.Comment,
	}
	if err := s.homework.CreateReview(ctx, review); err != nil {
		return nil, err
	}
	if err := s.homework.UpdateSubmissionStatus(ctx, submission.ID, status); err != nil {
		return nil, err
	}

	_, err = s.runtime.ApplyEvent(ctx, submission.ProjectID, submission.UserID, contract.EventAdminReviews, map[string]string{
		"submission_id": submission.ID,
		"decision":      status,
	})
	if err != nil {
		// The review stands even if the session already moved on.
		log.Warn().Err(err).Str("submission_id", submission.ID).Msg("Review recorded but session transition failed")
	}

	return s.homework.FindSubmissionByID(ctx, submission.ID)
}

func reviewStatus(decision string) (string, error) {
	switch decision {
	case model.HomeworkStatusApproved, model.HomeworkStatusRejected, model.HomeworkStatusRevision:
		return decision, nil
	default:
		return "", fmt.Errorf("unknown review decision %q", decision)
	}
}

func (s *homeworkService) ListPending(ctx context.Context, projectID string) ([]model.HomeworkSubmission, error) {
	return s.homework.ListPending(ctx, projectID)
}

func (s *homeworkService) ListForUser(ctx context.Context, projectID, userID string) ([]model.HomeworkSubmission, error) {
	return s.homework.ListByUser(ctx, projectID, userID)
}

const homeworkAnalysisSystemPrompt = "You are a teaching assistant preparing homework for human review. " +
	"Summarize the submission and draft feedback the teacher can adapt. Respond with JSON only."

// Analyze produces an AI pre-read of a text submission. File submissions and
// generation failures yield an empty analysis rather than an error; review
// never blocks on the model.
func (s *homeworkService) Analyze(ctx context.Context, submissionID string) (*HomeworkAnalysis, error) {
	submission, err := s.homework.FindSubmissionByID(ctx, submissionID)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrSubmissionNotFound
	}
	if err != nil {
		return nil, err
	}
	if submission.ContentType != "text" || submission.ContentText == "" {
		return &HomeworkAnalysis{Summary: "File submission, review manually."}, nil
	}

	raw, err := s.pipeline.GenerateJSON(ctx, ai.GenerateParams{
		Prompt: fmt.Sprintf("Analyze this homework submission and respond with "+
			"{\"summary\": string, \"suggestedFeedback\": string}.\n\nSubmission:\n%s", submission.ContentText),
		SystemPrompt: homeworkAnalysisSystemPrompt,
	})
	if err != nil {
		log.Warn().Err(err).Str("submission_id", submissionID).Msg("Homework analysis failed")
		return &HomeworkAnalysis{}, nil
	}

	var analysis HomeworkAnalysis
	if err := json.Unmarshal(raw, &analysis); err != nil {
		log.Warn().Err(err).Str("submission_id", submissionID).Msg("Homework analysis returned malformed JSON")
		return &HomeworkAnalysis{}, nil
	}
	return &analysis, nil
}

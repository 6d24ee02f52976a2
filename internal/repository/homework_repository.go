package repository

import (
	"context"

	"github.com/kurslab/tutorium/internal/model"
	"gorm.io/gorm"
)

type HomeworkRepository interface {
	CreateSubmission(ctx context.Context, submission *model.HomeworkSubmission) error
	FindSubmissionByID(ctx context.Context, id string) (*model.HomeworkSubmission, error)
	ListPending(ctx context.Context, projectID string) ([]model.HomeworkSubmission, error)
	ListByUser(ctx context.Context, projectID, userID string) ([]model.HomeworkSubmission, error)
	UpdateSubmissionStatus(ctx context.Context, id, status string) error
	CreateReview(ctx context.Context, review *model.HomeworkReview) error
}

type homeworkRepository struct {
	db *gorm.DB
}

func NewHomeworkRepository(db *gorm.DB) HomeworkRepository {
	return &homeworkRepository{db: db}
}

func (r *homeworkRepository) CreateSubmission(ctx context.Context, submission *model.HomeworkSubmission) error {
	return r.db.WithContext(ctx).Create(submission).Error
}

func (r *homeworkRepository) FindSubmissionByID(ctx context.Context, id string) (*model.HomeworkSubmission, error) {
	var submission model.HomeworkSubmission
	err := r.db.WithContext(ctx).
		Preload("Review").
		First(&submission, "id = ?", id).Error
	if err != nil {
		return nil, err
	}
	return &submission, nil
}

func (r *homeworkRepository) ListPending(ctx context.Context, projectID string) ([]model.HomeworkSubmission, error) {
	var submissions []model.HomeworkSubmission
	err := r.db.WithContext(ctx).
		Where("project_id = ? AND status = ?", projectID, model.HomeworkStatusSubmitted).
		Order("submitted_at ASC").
		Find(&submissions).Error
	if err != nil {
		return nil, err
	}
	return submissions, nil
}

func (r *homeworkRepository) ListByUser(ctx context.Context, projectID, userID string) ([]model.HomeworkSubmission, error) {
	var submissions []model.HomeworkSubmission
	err := r.db.WithContext(ctx).
		Preload("Review").
		Where("project_id = ? AND user_id = ?", projectID, userID).
		Order("submitted_at DESC").
		Find(&submissions).Error
	if err != nil {
		return nil, err
	}
	return submissions, nil
}

func (r *homeworkRepository) UpdateSubmissionStatus(ctx context.Context, id, status string) error {
	return r.db.WithContext(ctx).
		Model(&model.HomeworkSubmission{}).
		Where("id = ?", id).
		Update("status", status).Error
}

func (r *homeworkRepository) CreateReview(ctx context.Context, review *model.HomeworkReview) error {
	return r.db.WithContext(ctx).Create(review).Error
}

package repository

import (
	"context"
	"time"

	"github.com/kurslab/tutorium/internal/model"
	"gorm.io/gorm"
)

type TestRepository interface {
	Create(ctx context.Context, test *model.Test) error
	FindByID(ctx context.Context, id string) (*model.Test, error)
	FindPublished(ctx context.Context, projectID string, testID *string) (*model.Test, error)
	ListByProject(ctx context.Context, projectID string, status string) ([]model.Test, error)
	Publish(ctx context.Context, id string) (*model.Test, error)

	CreateAttempt(ctx context.Context, attempt *model.TestAttempt) error
	FindAttemptByID(ctx context.Context, id string) (*model.TestAttempt, error)
	UpdateAttemptStatus(ctx context.Context, id, status string, finishedAt *time.Time) error

	CreateSubmission(ctx context.Context, submission *model.TestSubmission) error
	CreateCheck(ctx context.Context, check *model.TestCheck) error
}

type testRepository struct {
	db *gorm.DB
}

func NewTestRepository(db *gorm.DB) TestRepository {
	return &testRepository{db: db}
}

func (r *testRepository) Create(ctx context.Context, test *model.Test) error {
	return r.db.WithContext(ctx).Create(test).Error
}

func (r *testRepository) FindByID(ctx context.Context, id string) (*model.Test, error) {
	var test model.Test
	if err := r.db.WithContext(ctx).First(&test, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &test, nil
}

// FindPublished returns the requested published test, or the most recently
// published one for the project when testID is nil.
func (r *testRepository) FindPublished(ctx context.Context, projectID string, testID *string) (*model.Test, error) {
	query := r.db.WithContext(ctx).
		Where("project_id = ? AND status = ?", projectID, model.TestStatusPublished)
	if testID != nil {
		query = query.Where("id = ?", *testID)
	} else {
		query = query.Order("published_at DESC")
	}

	var test model.Test
	if err := query.First(&test).Error; err != nil {
		return nil, err
	}
	return &test, nil
}

func (r *testRepository) ListByProject(ctx context.Context, projectID string, status string) ([]model.Test, error) {
	query := r.db.WithContext(ctx).Where("project_id = ?", projectID)
	if status != "" {
		query = query.Where("status = ?", status)
	}

	var tests []model.Test
	if err := query.Order("created_at DESC").Find(&tests).Error; err != nil {
		return nil, err
	}
	return tests, nil
}

func (r *testRepository) Publish(ctx context.Context, id string) (*model.Test, error) {
	now := time.Now()
	err := r.db.WithContext(ctx).
		Model(&model.Test{}).
		Where("id = ?", id).
		Updates(map[string]any{"status": model.TestStatusPublished, "published_at": now}).Error
	if err != nil {
		return nil, err
	}
	return r.FindByID(ctx, id)
}

func (r *testRepository) CreateAttempt(ctx context.Context, attempt *model.TestAttempt) error {
	return r.db.WithContext(ctx).Create(attempt).Error
}

func (r *testRepository) FindAttemptByID(ctx context.Context, id string) (*model.TestAttempt, error) {
	var attempt model.TestAttempt
	if err := r.db.WithContext(ctx).Preload("Test").First(&attempt, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &attempt, nil
}

func (r *testRepository) UpdateAttemptStatus(ctx context.Context, id, status string, finishedAt *time.Time) error {
	fields := map[string]any{"status": status}
	if finishedAt != nil {
		fields["finished_at"] = *finishedAt
	}
	return r.db.WithContext(ctx).
		Model(&model.TestAttempt{}).
		Where("id = ?", id).
		Updates(fields).Error
}

func (r *testRepository) CreateSubmission(ctx context.Context, submission *model.TestSubmission) error {
	return r.db.WithContext(ctx).Create(submission).Error
}

func (r *testRepository) CreateCheck(ctx context.Context, check *model.TestCheck) error {
	return r.db.WithContext(ctx).Create(check).Error
}

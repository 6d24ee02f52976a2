package repository

import (
	"context"

	"github.com/kurslab/tutorium/internal/model"
	"gorm.io/gorm"
)

type SessionRepository interface {
	GetLatest(ctx context.Context, projectID, userID string) (*model.LearningSession, error)
	Create(ctx context.Context, projectID, userID string) (*model.LearningSession, error)
	Update(ctx context.Context, id string, fields map[string]any) error
}

type sessionRepository struct {
	db *gorm.DB
}

func NewSessionRepository(db *gorm.DB) SessionRepository {
	return &sessionRepository{db: db}
}

func (r *sessionRepository) GetLatest(ctx context.Context, projectID, userID string) (*model.LearningSession, error) {
	var session model.LearningSession
	err := r.db.WithContext(ctx).
		Where("project_id = ? AND user_id = ?", projectID, userID).
		Order("last_activity_at DESC").
		First(&session).Error
	if err != nil {
		return nil, err
	}
	return &session, nil
}

func (r *sessionRepository) Create(ctx context.Context, projectID, userID string) (*model.LearningSession, error) {
	session := model.LearningSession{
		ProjectID: projectID,
		UserID:    userID,
		State:     "IDLE",
	}
	if err := r.db.WithContext(ctx).Create(&session).Error; err != nil {
		return nil, err
	}
	return &session, nil
}

func (r *sessionRepository) Update(ctx context.Context, id string, fields map[string]any) error {
	return r.db.WithContext(ctx).
		Model(&model.LearningSession{}).
		Where("id = ?", id).
		Updates(fields).Error
}

package repository

import (
	"context"

	"github.com/kurslab/tutorium/internal/model"
	"gorm.io/gorm"
)

type EventRepository interface {
	Create(ctx context.Context, event *model.DomainEvent) error
	ListBySession(ctx context.Context, sessionID string, limit int) ([]model.DomainEvent, error)
	ListByUser(ctx context.Context, projectID, userID string, limit int) ([]model.DomainEvent, error)
}

type eventRepository struct {
	db *gorm.DB
}

func NewEventRepository(db *gorm.DB) EventRepository {
	return &eventRepository{db: db}
}

func (r *eventRepository) Create(ctx context.Context, event *model.DomainEvent) error {
	return r.db.WithContext(ctx).Create(event).Error
}

func (r *eventRepository) ListBySession(ctx context.Context, sessionID string, limit int) ([]model.DomainEvent, error) {
	var events []model.DomainEvent
	err := r.db.WithContext(ctx).
		Where("session_id = ?", sessionID).
		Order("created_at DESC").
		Limit(limit).
		Find(&events).Error
	if err != nil {
		return nil, err
	}
	return events, nil
}

func (r *eventRepository) ListByUser(ctx context.Context, projectID, userID string, limit int) ([]model.DomainEvent, error) {
	var events []model.DomainEvent
	err := r.db.WithContext(ctx).
		Where("project_id = ? AND user_id = ?", projectID, userID).
		Order("created_at DESC").
		Limit(limit).
		Find(&events).Error
	if err != nil {
		return nil, err
	}
	return events, nil
}

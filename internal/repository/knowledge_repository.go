package repository

import (
	"context"

	"github.com/kurslab/tutorium/internal/model"
	"gorm.io/gorm"
)

type KnowledgeRepository interface {
	CreateDocument(ctx context.Context, doc *model.KnowledgeDocument) error
	FindDocumentByID(ctx context.Context, id string) (*model.KnowledgeDocument, error)
	ListDocuments(ctx context.Context, projectID string) ([]model.KnowledgeDocument, error)
	UpdateDocumentStatus(ctx context.Context, id, status string) error
}

type knowledgeRepository struct {
	db *gorm.DB
}

func NewKnowledgeRepository(db *gorm.DB) KnowledgeRepository {
	return &knowledgeRepository{db: db}
}

func (r *knowledgeRepository) CreateDocument(ctx context.Context, doc *model.KnowledgeDocument) error {
	return r.db.WithContext(ctx).Create(doc).Error
}

func (r *knowledgeRepository) FindDocumentByID(ctx context.Context, id string) (*model.KnowledgeDocument, error) {
	var doc model.KnowledgeDocument
	if err := r.db.WithContext(ctx).First(&doc, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &doc, nil
}

func (r *knowledgeRepository) ListDocuments(ctx context.Context, projectID string) ([]model.KnowledgeDocument, error) {
	var docs []model.KnowledgeDocument
	err := r.db.WithContext(ctx).
		Where("project_id = ?", projectID).
		Order("created_at DESC").
		Find(&docs).Error
	if err != nil {
		return nil, err
	}
	return docs, nil
}

func (r *knowledgeRepository) UpdateDocumentStatus(ctx context.Context, id, status string) error {
	return r.db.WithContext(ctx).
		Model(&model.KnowledgeDocument{}).
		Where("id = ?", id).
		Update("status", status).Error
}

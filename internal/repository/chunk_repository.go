package repository

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/kurslab/tutorium/internal/ai"
	"github.com/kurslab/tutorium/internal/model"
	"gorm.io/gorm"
)

// ChunkRepository implements the chunk-search contract over pgvector plus the
// write side used by the ingestion flow.
type ChunkRepository interface {
	ai.ChunkSearcher
	Create(ctx context.Context, chunk *model.KnowledgeChunk) error
	UpdateEmbedding(ctx context.Context, chunkID string, embedding []float32) error
	CountByDocument(ctx context.Context, documentID string) (int64, error)
}

type chunkRepository struct {
	db *gorm.DB
}

func NewChunkRepository(db *gorm.DB) ChunkRepository {
	return &chunkRepository{db: db}
}

type chunkSearchRow struct {
	ID         string
	DocumentID string
	Text       string
	Similarity float64
}

func (r *chunkRepository) SimilaritySearch(ctx context.Context, projectID string, embedding []float32, limit int, threshold float64) ([]ai.SearchedChunk, error) {
	literal := vectorLiteral(embedding)

	var rows []chunkSearchRow
	err := r.db.WithContext(ctx).Raw(`
		SELECT id, document_id, text,
		       1 - (embedding <=> ?::vector) AS similarity
		FROM knowledge_chunks
		WHERE project_id = ?
		  AND embedding IS NOT NULL
		  AND 1 - (embedding <=> ?::vector) > ?
		ORDER BY embedding <=> ?::vector
		LIMIT ?`,
		literal, projectID, literal, threshold, literal, limit,
	).Scan(&rows).Error
	if err != nil {
		return nil, fmt.Errorf("similarity search failed: %w", err)
	}

	chunks := make([]ai.SearchedChunk, len(rows))
	for i, row := range rows {
		chunks[i] = ai.SearchedChunk{
			ID:         row.ID,
			DocumentID: row.DocumentID,
			Text:       row.Text,
			Similarity: row.Similarity,
		}
	}
	return chunks, nil
}

// MostRecent is the non-semantic fallback: newest chunks for the project with
// similarity 0.
func (r *chunkRepository) MostRecent(ctx context.Context, projectID string, limit int) ([]ai.SearchedChunk, error) {
	var models []model.KnowledgeChunk
	err := r.db.WithContext(ctx).
		Where("project_id = ?", projectID).
		Order("created_at DESC").
		Limit(limit).
		Find(&models).Error
	if err != nil {
		return nil, fmt.Errorf("recent chunk lookup failed: %w", err)
	}

	chunks := make([]ai.SearchedChunk, len(models))
	for i, m := range models {
		chunks[i] = ai.SearchedChunk{
			ID:         m.ID,
			DocumentID: m.DocumentID,
			Text:       m.Text,
			Similarity: 0,
		}
	}
	return chunks, nil
}

func (r *chunkRepository) Create(ctx context.Context, chunk *model.KnowledgeChunk) error {
	return r.db.WithContext(ctx).Create(chunk).Error
}

func (r *chunkRepository) UpdateEmbedding(ctx context.Context, chunkID string, embedding []float32) error {
	return r.db.WithContext(ctx).Exec(
		"UPDATE knowledge_chunks SET embedding = ?::vector WHERE id = ?",
		vectorLiteral(embedding), chunkID,
	).Error
}

func (r *chunkRepository) CountByDocument(ctx context.Context, documentID string) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Model(&model.KnowledgeChunk{}).
		Where("document_id = ?", documentID).
		Count(&count).Error
	return count, err
}

// vectorLiteral renders an embedding in pgvector's input syntax.
func vectorLiteral(embedding []float32) string {
	parts := make([]string, len(embedding))
	for i, v := range embedding {
		parts[i] = strconv.FormatFloat(float64(v), 'f', -1, 32)
	}
	return "[" + strings.Join(parts, ",") + "]"
}

package model

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

const (
	DocumentStatusUploaded   = "UPLOADED"
	DocumentStatusProcessing = "PROCESSING"
	DocumentStatusIndexed    = "INDEXED"
	DocumentStatusFailed     = "FAILED"
)

// KnowledgeDocument is an uploaded source document being chunked and indexed.
type KnowledgeDocument struct {
	ID         string         `gorm:"type:uuid;primaryKey" json:"id"`
	ProjectID  string         `gorm:"type:uuid;not null;index" json:"project_id"`
	Filename   string         `gorm:"not null" json:"filename"`
	Status     string         `gorm:"type:varchar(16);not null;default:'UPLOADED'" json:"status"`
	StorageURL string         `json:"storage_url"`
	Metadata   datatypes.JSON `gorm:"type:jsonb" json:"metadata,omitempty"`
	CreatedAt  time.Time      `json:"created_at"`
	UpdatedAt  time.Time      `json:"updated_at"`
}

func (d *KnowledgeDocument) BeforeCreate(tx *gorm.DB) error {
	if d.ID == "" {
		d.ID = uuid.NewString()
	}
	return nil
}

// KnowledgeChunk is an immutable unit of indexed text. The embedding column is
// a pgvector value written once by the ingestion flow and read by similarity
// search; it stays nil until the chunk has been embedded. The column
// dimensionality must match EMBEDDING_DIM; every embedding is fitted to that
// dimension before storage, whichever provider produced it.
type KnowledgeChunk struct {
	ID         string         `gorm:"type:uuid;primaryKey" json:"id"`
	ProjectID  string         `gorm:"type:uuid;not null;index" json:"project_id"`
	DocumentID string         `gorm:"type:uuid;not null;index" json:"document_id"`
	Text       string         `gorm:"type:text;not null" json:"text"`
	Embedding  *string        `gorm:"type:vector(768)" json:"-"`
	Metadata   datatypes.JSON `gorm:"type:jsonb" json:"metadata,omitempty"`
	CreatedAt  time.Time      `json:"created_at"`
}

func (c *KnowledgeChunk) BeforeCreate(tx *gorm.DB) error {
	if c.ID == "" {
		c.ID = uuid.NewString()
	}
	return nil
}

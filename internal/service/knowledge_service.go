package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/kurslab/tutorium/config"
	"github.com/kurslab/tutorium/internal/ai"
	"github.com/kurslab/tutorium/internal/model"
	"github.com/kurslab/tutorium/internal/repository"
	"github.com/rs/zerolog/log"
	"gorm.io/gorm"
)

var ErrDocumentNotFound = errors.New("knowledge document not found")

// maxChunkChars bounds one indexed chunk. Paragraphs are packed up to the
// limit; an oversized paragraph is split hard.
const maxChunkChars = 500

type KnowledgeService interface {
	CreateDocument(ctx context.Context, projectID, filename, storageURL string) (*model.KnowledgeDocument, error)
	ConfirmUpload(ctx context.Context, documentID, content string) (*model.KnowledgeDocument, error)
	ListDocuments(ctx context.Context, projectID string) ([]model.KnowledgeDocument, error)
}

type knowledgeService struct {
	documents    repository.KnowledgeRepository
	chunks       repository.ChunkRepository
	providers    []ai.Provider
	dispatcher   *EventDispatcher
	embeddingDim int
	timeout      time.Duration
}

func NewKnowledgeService(
	documents repository.KnowledgeRepository,
	chunks repository.ChunkRepository,
	providers []ai.Provider,
	dispatcher *EventDispatcher,
	cfg *config.Config,
) KnowledgeService {
	return &knowledgeService{
		documents:    documents,
		chunks:       chunks,
		providers:    providers,
		dispatcher:   dispatcher,
		embeddingDim: cfg.AI.EmbeddingDim,
		timeout:      10 * time.Minute,
	}
}

// CreateDocument registers an upload before its content arrives.
func (s *knowledgeService) CreateDocument(ctx context.Context, projectID, filename, storageURL string) (*model.KnowledgeDocument, error) {
	doc := &model.KnowledgeDocument{
		ProjectID:  projectID,
		Filename:   filename,
		StorageURL: storageURL,
		Status:     model.DocumentStatusUploaded,
	}
	if err := s.documents.CreateDocument(ctx, doc); err != nil {
		return nil, err
	}
	return doc, nil
}

// ConfirmUpload takes the document's text content, marks it PROCESSING, and
// indexes it in the background. Chunks without an embedding still serve the
// recency fallback, so an embedding failure does not fail the document.
func (s *knowledgeService) ConfirmUpload(ctx context.Context, documentID, content string) (*model.KnowledgeDocument, error) {
	doc, err := s.documents.FindDocumentByID(ctx, documentID)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrDocumentNotFound
	}
	if err != nil {
		return nil, err
	}
	if strings.TrimSpace(content) == "" {
		return nil, fmt.Errorf("document %s has no content to index", documentID)
	}

	if err := s.documents.UpdateDocumentStatus(ctx, doc.ID, model.DocumentStatusProcessing); err != nil {
		return nil, err
	}
	doc.Status = model.DocumentStatusProcessing

	go s.index(doc, content)
	return doc, nil
}

func (s *knowledgeService) ListDocuments(ctx context.Context, projectID string) ([]model.KnowledgeDocument, error) {
	return s.documents.ListDocuments(ctx, projectID)
}

func (s *knowledgeService) index(doc *model.KnowledgeDocument, content string) {
	ctx, cancel := context.WithTimeout(context.Background(), s.timeout)
	defer cancel()

	pieces := splitChunks(content, maxChunkChars)
	indexed := 0
	for _, text := range pieces {
		chunk := &model.KnowledgeChunk{
			ProjectID:  doc.ProjectID,
			DocumentID: doc.ID,
			Text:       text,
		}
		if err := s.chunks.Create(ctx, chunk); err != nil {
			log.Error().Err(err).Str("document_id", doc.ID).Msg("Failed to persist chunk")
			continue
		}
		indexed++

		embedding, err := s.embed(ctx, text)
		if err != nil {
			log.Warn().Err(err).Str("chunk_id", chunk.ID).Msg("Chunk left without embedding")
			continue
		}
		if err := s.chunks.UpdateEmbedding(ctx, chunk.ID, embedding); err != nil {
			log.Warn().Err(err).Str("chunk_id", chunk.ID).Msg("Failed to store chunk embedding")
		}
	}

	status := model.DocumentStatusIndexed
	if indexed == 0 {
		status = model.DocumentStatusFailed
	}
	if err := s.documents.UpdateDocumentStatus(ctx, doc.ID, status); err != nil {
		log.Error().Err(err).Str("document_id", doc.ID).Msg("Failed to update document status")
		return
	}

	if status == model.DocumentStatusIndexed {
		err := s.dispatcher.Emit(ctx, doc.ProjectID, "", nil, "document_indexed", map[string]any{
			"document_id": doc.ID,
			"chunks":      indexed,
		})
		if err != nil {
			log.Warn().Err(err).Str("document_id", doc.ID).Msg("Failed to record document_indexed event")
		}
	}
}

func (s *knowledgeService) embed(ctx context.Context, text string) ([]float32, error) {
	var lastErr error
	for _, provider := range s.providers {
		if !provider.Available() {
			continue
		}
		vec, err := provider.Embed(ctx, text)
		if err == nil {
			// The fallback provider embeds at a different dimensionality
			// than the vector column.
			return ai.FitEmbedding(vec, s.embeddingDim), nil
		}
		lastErr = err
	}
	if lastErr == nil {
		return nil, ai.ErrNoProvider
	}
	return nil, lastErr
}

// splitChunks packs paragraphs into chunks up to the limit, hard-splitting
// any single paragraph that exceeds it on its own.
func splitChunks(content string, limit int) []string {
	paragraphs := strings.Split(content, "\n\n")
	var chunks []string
	var current strings.Builder

	flush := func() {
		text := strings.TrimSpace(current.String())
		if text != "" {
			chunks = append(chunks, text)
		}
		current.Reset()
	}

	for _, p := range paragraphs {
		p = strings.TrimSpace(p)
		if p == "" {
			continue
		}

		if len(p) > limit {
			flush()
			for len(p) > limit {
				// Back off to a rune boundary so multi-byte text is never
				// cut mid-rune.
				cut := limit
				for cut > 0 && !utf8.RuneStart(p[cut]) {
					cut--
				}
				chunks = append(chunks, p[:cut])
				p = p[cut:]
			}
			if p != "" {
				chunks = append(chunks, p)
			}
			continue
		}

		if current.Len() > 0 && current.Len()+2+len(p) > limit {
			flush()
		}
		if current.Len() > 0 {
			current.WriteString("\n\n")
		}
		current.WriteString(p)
	}
	flush()
	return chunks
}

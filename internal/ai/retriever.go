package ai

import (
	"context"
	"math"
	"strings"

	"github.com/rs/zerolog/log"
)

// emptyContextMarker is sent instead of an empty context so the grounding
// prompt can instruct the model about the missing knowledge base.
const emptyContextMarker = "No context found. The knowledge base is empty."

const groundedSystemPrompt = "You are a learning assistant. Answer ONLY from the provided context. " +
	"If the context does not contain the answer, say you could not find it in the course materials. " +
	"Use Markdown for formatting."

const fallbackAnswer = "Something went wrong while processing your question. Please try again later."

const citationPreviewLimit = 200

// SearchedChunk is one retrieval hit. Similarity is 0 on the non-semantic
// fallback path.
type SearchedChunk struct {
	ID         string
	DocumentID string
	Text       string
	Similarity float64
}

// ChunkSearcher is the read-only chunk-search contract consumed by the
// retriever; the ingestion side owns all writes.
type ChunkSearcher interface {
	SimilaritySearch(ctx context.Context, projectID string, embedding []float32, limit int, threshold float64) ([]SearchedChunk, error)
	MostRecent(ctx context.Context, projectID string, limit int) ([]SearchedChunk, error)
}

type Citation struct {
	ChunkID    string `json:"chunk_id"`
	Preview    string `json:"preview"`
	DocumentID string `json:"document_id"`
}

type GroundedAnswer struct {
	Answer     string     `json:"answer"`
	Confidence int        `json:"confidence"`
	Citations  []Citation `json:"citations"`
}

// Retriever grounds free-text answers in indexed content. Every failure mode
// degrades: embedding failure to a zero vector, search failure to recent
// chunks, generation failure to an apologetic answer. Answer never errors.
type Retriever struct {
	providers []Provider
	chunks    ChunkSearcher
	pipeline  *Pipeline
	dim       int
	topK      int
	threshold float64
}

func NewRetriever(providers []Provider, chunks ChunkSearcher, pipeline *Pipeline, dim, topK int, threshold float64) *Retriever {
	return &Retriever{
		providers: providers,
		chunks:    chunks,
		pipeline:  pipeline,
		dim:       dim,
		topK:      topK,
		threshold: threshold,
	}
}

// Answer embeds the query, searches project chunks, and generates a grounded
// answer with a confidence score and citations.
func (r *Retriever) Answer(ctx context.Context, query, projectID string) *GroundedAnswer {
	embedding := r.embedQuery(ctx, query)
	chunks := r.search(ctx, projectID, embedding)

	contextText := emptyContextMarker
	if len(chunks) > 0 {
		texts := make([]string, len(chunks))
		for i, c := range chunks {
			texts[i] = c.Text
		}
		contextText = strings.Join(texts, "\n\n")
	}

	answer, err := r.pipeline.Generate(ctx, GenerateParams{
		Prompt:       query,
		SystemPrompt: groundedSystemPrompt,
		Context:      contextText,
	})
	if err != nil {
		log.Error().Err(err).Str("project_id", projectID).Msg("Grounded answer generation failed")
		return &GroundedAnswer{Answer: fallbackAnswer, Confidence: 0, Citations: []Citation{}}
	}

	citations := make([]Citation, len(chunks))
	for i, c := range chunks {
		citations[i] = Citation{
			ChunkID:    c.ID,
			Preview:    truncate(c.Text, citationPreviewLimit),
			DocumentID: c.DocumentID,
		}
	}

	return &GroundedAnswer{
		Answer:     answer,
		Confidence: confidence(chunks),
		Citations:  citations,
	}
}

// embedQuery tries each available provider in order; a zero vector degrades
// retrieval to the non-semantic fallback instead of failing the answer.
func (r *Retriever) embedQuery(ctx context.Context, query string) []float32 {
	for _, provider := range r.providers {
		if !provider.Available() {
			continue
		}
		vec, err := provider.Embed(ctx, query)
		if err == nil {
			return FitEmbedding(vec, r.dim)
		}
		log.Warn().Err(err).Str("provider", provider.Name()).Msg("Embedding failed, trying next provider")
	}
	return make([]float32, r.dim)
}

func (r *Retriever) search(ctx context.Context, projectID string, embedding []float32) []SearchedChunk {
	chunks, err := r.chunks.SimilaritySearch(ctx, projectID, embedding, r.topK, r.threshold)
	if err == nil {
		return chunks
	}
	log.Warn().Err(err).Str("project_id", projectID).Msg("Similarity search failed, falling back to recent chunks")

	recent, err := r.chunks.MostRecent(ctx, projectID, r.topK)
	if err != nil {
		log.Error().Err(err).Str("project_id", projectID).Msg("Recent-chunk fallback failed")
		return nil
	}
	return recent
}

// confidence is the mean chunk similarity scaled to [0,100]; 0 when nothing
// was retrieved.
func confidence(chunks []SearchedChunk) int {
	if len(chunks) == 0 {
		return 0
	}
	sum := 0.0
	for _, c := range chunks {
		sum += c.Similarity
	}
	score := int(math.Round(sum / float64(len(chunks)) * 100))
	if score < 0 {
		score = 0
	}
	if score > 100 {
		score = 100
	}
	return score
}

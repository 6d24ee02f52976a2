package ai

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/google/generative-ai-go/genai"
	"github.com/kurslab/tutorium/config"
	"github.com/rs/zerolog/log"
	"google.golang.org/api/option"
)

const geminiEmbeddingModel = "text-embedding-004"

// GeminiProvider is the primary AI backend.
type GeminiProvider struct {
	client    *genai.Client
	modelName string
	timeout   time.Duration
	available bool
}

func NewGeminiProvider(cfg *config.Config) (*GeminiProvider, error) {
	if cfg.AI.GeminiAPIKey == "" {
		log.Warn().Msg("GEMINI_API_KEY is not set, Gemini provider disabled")
		return &GeminiProvider{available: false}, nil
	}

	client, err := genai.NewClient(context.Background(), option.WithAPIKey(cfg.AI.GeminiAPIKey))
	if err != nil {
		return nil, fmt.Errorf("failed to initialize Gemini client: %w", err)
	}

	return &GeminiProvider{
		client:    client,
		modelName: cfg.AI.GeminiModel,
		timeout:   cfg.AI.RequestTimeout,
		available: true,
	}, nil
}

func (p *GeminiProvider) Name() string { return "gemini" }

func (p *GeminiProvider) Available() bool { return p.available }

func (p *GeminiProvider) Generate(ctx context.Context, params GenerateParams) (string, error) {
	if !p.available {
		return "", ErrNoProvider
	}
	ctx, cancel := context.WithTimeout(ctx, p.timeout)
	defer cancel()

	temperature := float32(0.3)
	if params.Temperature != nil {
		temperature = float32(*params.Temperature)
	}

	model := p.client.GenerativeModel(p.modelName)
	model.SetTemperature(temperature)
	model.SetMaxOutputTokens(4096)

	resp, err := model.GenerateContent(ctx, genai.Text(buildPromptText(params)))
	if err != nil {
		return "", fmt.Errorf("gemini generation failed: %w", err)
	}

	if len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil || len(resp.Candidates[0].Content.Parts) == 0 {
		return "", fmt.Errorf("gemini returned no content")
	}

	var sb strings.Builder
	for _, part := range resp.Candidates[0].Content.Parts {
		if txt, ok := part.(genai.Text); ok {
			sb.WriteString(string(txt))
		}
	}
	if sb.Len() == 0 {
		return "", fmt.Errorf("gemini returned no text content")
	}
	return sb.String(), nil
}

func (p *GeminiProvider) GenerateJSON(ctx context.Context, params GenerateParams) (json.RawMessage, error) {
	text, err := p.Generate(ctx, withJSONDefaults(params))
	if err != nil {
		return nil, err
	}
	return extractJSON(text)
}

func (p *GeminiProvider) Embed(ctx context.Context, text string) ([]float32, error) {
	if !p.available {
		return nil, ErrNoProvider
	}
	ctx, cancel := context.WithTimeout(ctx, p.timeout)
	defer cancel()

	em := p.client.EmbeddingModel(geminiEmbeddingModel)
	res, err := em.EmbedContent(ctx, genai.Text(text))
	if err != nil {
		return nil, fmt.Errorf("gemini embedding failed: %w", err)
	}
	if res.Embedding == nil || len(res.Embedding.Values) == 0 {
		return nil, fmt.Errorf("gemini returned an empty embedding")
	}
	return res.Embedding.Values, nil
}

// buildPromptText flattens system prompt, retrieval context and user prompt
// into a single text part, mirroring how the chat-style providers stack
// system/context/user messages.
func buildPromptText(params GenerateParams) string {
	var parts []string
	if params.SystemPrompt != "" {
		parts = append(parts, "System: "+params.SystemPrompt)
	}
	if params.Context != "" {
		parts = append(parts, "Context:\n"+params.Context)
	}
	parts = append(parts, "User: "+params.Prompt)
	return strings.Join(parts, "\n\n")
}

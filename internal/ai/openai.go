package ai

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/kurslab/tutorium/config"
	"github.com/rs/zerolog/log"
	"github.com/tmc/langchaingo/llms"
	"github.com/tmc/langchaingo/llms/openai"
)

const openaiEmbeddingModel = "text-embedding-3-small"

// OpenAIProvider is the fallback AI backend. It speaks the OpenAI chat API
// through langchaingo, so any OpenAI-compatible endpoint works via
// OPENAI_BASE_URL.
type OpenAIProvider struct {
	llm       *openai.LLM
	timeout   time.Duration
	available bool
}

func NewOpenAIProvider(cfg *config.Config) (*OpenAIProvider, error) {
	if cfg.AI.OpenAIAPIKey == "" {
		log.Warn().Msg("OPENAI_API_KEY is not set, OpenAI provider disabled")
		return &OpenAIProvider{available: false}, nil
	}

	opts := []openai.Option{
		openai.WithToken(cfg.AI.OpenAIAPIKey),
		openai.WithModel(cfg.AI.OpenAIModel),
		openai.WithEmbeddingModel(openaiEmbeddingModel),
	}
	if cfg.AI.OpenAIBaseURL != "" {
		opts = append(opts, openai.WithBaseURL(cfg.AI.OpenAIBaseURL))
	}

	llm, err := openai.New(opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize OpenAI client: %w", err)
	}

	return &OpenAIProvider{
		llm:       llm,
		timeout:   cfg.AI.RequestTimeout,
		available: true,
	}, nil
}

func (p *OpenAIProvider) Name() string { return "openai" }

func (p *OpenAIProvider) Available() bool { return p.available }

func (p *OpenAIProvider) Generate(ctx context.Context, params GenerateParams) (string, error) {
	return p.generate(ctx, params, false)
}

func (p *OpenAIProvider) GenerateJSON(ctx context.Context, params GenerateParams) (json.RawMessage, error) {
	text, err := p.generate(ctx, withJSONDefaults(params), true)
	if err != nil {
		return nil, err
	}
	return extractJSON(text)
}

func (p *OpenAIProvider) generate(ctx context.Context, params GenerateParams, jsonMode bool) (string, error) {
	if !p.available {
		return "", ErrNoProvider
	}
	ctx, cancel := context.WithTimeout(ctx, p.timeout)
	defer cancel()

	var messages []llms.MessageContent
	if params.SystemPrompt != "" {
		messages = append(messages, llms.TextParts(llms.ChatMessageTypeSystem, params.SystemPrompt))
	}
	userContent := params.Prompt
	if params.Context != "" {
		userContent = "Context:\n" + params.Context + "\n\n" + params.Prompt
	}
	messages = append(messages, llms.TextParts(llms.ChatMessageTypeHuman, userContent))

	temperature := 0.3
	if params.Temperature != nil {
		temperature = *params.Temperature
	}

	callOpts := []llms.CallOption{
		llms.WithTemperature(temperature),
		llms.WithMaxTokens(4096),
	}
	if jsonMode {
		callOpts = append(callOpts, llms.WithJSONMode())
	}

	resp, err := p.llm.GenerateContent(ctx, messages, callOpts...)
	if err != nil {
		return "", fmt.Errorf("openai generation failed: %w", err)
	}
	if len(resp.Choices) == 0 || resp.Choices[0].Content == "" {
		return "", fmt.Errorf("openai returned no content")
	}
	return resp.Choices[0].Content, nil
}

func (p *OpenAIProvider) Embed(ctx context.Context, text string) ([]float32, error) {
	if !p.available {
		return nil, ErrNoProvider
	}
	ctx, cancel := context.WithTimeout(ctx, p.timeout)
	defer cancel()

	vectors, err := p.llm.CreateEmbedding(ctx, []string{text})
	if err != nil {
		return nil, fmt.Errorf("openai embedding failed: %w", err)
	}
	if len(vectors) == 0 || len(vectors[0]) == 0 {
		return nil, fmt.Errorf("openai returned an empty embedding")
	}
	return vectors[0], nil
}

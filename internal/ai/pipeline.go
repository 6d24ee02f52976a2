package ai

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/rs/zerolog/log"
)

// MaxRetries bounds the validate-repair loop: MaxRetries + 1 total attempts.
// Retries are immediate; the failures being repaired are format issues, not
// rate limits.
const MaxRetries = 2

// Pipeline orders providers by priority and turns prompts into verified
// output. Provider fallback happens within a single attempt; the
// validate-repair loop spans attempts.
type Pipeline struct {
	providers  []Provider
	maxRetries int
}

func NewPipeline(providers []Provider) *Pipeline {
	return &Pipeline{providers: providers, maxRetries: MaxRetries}
}

// Generate produces free text from the first provider that succeeds. The
// fallback provider is only consulted after the primary's failure is
// observed.
func (p *Pipeline) Generate(ctx context.Context, params GenerateParams) (string, error) {
	var lastErr error
	attempted := false
	for _, provider := range p.providers {
		if !provider.Available() {
			continue
		}
		attempted = true
		text, err := provider.Generate(ctx, params)
		if err == nil {
			return text, nil
		}
		log.Warn().Err(err).Str("provider", provider.Name()).Msg("Provider generation failed, trying next")
		lastErr = err
	}
	if !attempted {
		return "", ErrNoProvider
	}
	return "", fmt.Errorf("all providers failed: %w", lastErr)
}

// GenerateJSON is Generate for schema-free JSON output.
func (p *Pipeline) GenerateJSON(ctx context.Context, params GenerateParams) (json.RawMessage, error) {
	var lastErr error
	attempted := false
	for _, provider := range p.providers {
		if !provider.Available() {
			continue
		}
		attempted = true
		raw, err := provider.GenerateJSON(ctx, params)
		if err == nil {
			return raw, nil
		}
		log.Warn().Err(err).Str("provider", provider.Name()).Msg("Provider JSON generation failed, trying next")
		lastErr = err
	}
	if !attempted {
		return nil, ErrNoProvider
	}
	return nil, fmt.Errorf("all providers failed: %w", lastErr)
}

// GenerateValidated runs the bounded validate-repair loop. validate returns
// the typed value, or nil plus the violations to feed into the next repair
// prompt. Each retry prompt is built from the latest error set only. The
// returned ExhaustedError carries that final set.
func GenerateValidated[T any](ctx context.Context, p *Pipeline, params GenerateParams, validate func(raw json.RawMessage) (*T, []string)) (*T, error) {
	attempts := p.maxRetries + 1
	var lastErrors []string

	for attempt := 0; attempt < attempts; attempt++ {
		current := params
		if attempt > 0 {
			current.Prompt = BuildRepairPrompt(params.Prompt, lastErrors)
		}

		raw, err := p.GenerateJSON(ctx, current)
		if err != nil {
			if errors.Is(err, ErrNoProvider) {
				return nil, err
			}
			lastErrors = []string{fmt.Sprintf("generation failed: %v", err)}
			log.Warn().Err(err).Int("attempt", attempt+1).Msg("Generation attempt failed")
			continue
		}

		result, violations := validate(raw)
		if result != nil {
			return result, nil
		}
		if len(violations) == 0 {
			violations = []string{"output did not match the expected schema"}
		}
		lastErrors = violations
		log.Warn().Strs("violations", violations).Int("attempt", attempt+1).Msg("Validation failed, retrying with repair prompt")
	}

	return nil, &ExhaustedError{Attempts: attempts, Errors: lastErrors}
}

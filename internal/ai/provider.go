// Package ai holds the generation pipeline: provider clients, the
// validate-repair retry loop, schema validation and the retrieval subsystem.
package ai

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
)

var (
	// ErrNoProvider is returned when no configured provider is available.
	// It is not retried; retrying cannot help until configuration changes.
	ErrNoProvider = errors.New("no AI provider available")

	// ErrMalformedJSON is returned when a provider's JSON response cannot be
	// parsed even after code-fence stripping.
	ErrMalformedJSON = errors.New("malformed JSON in provider response")
)

// ExhaustedError is returned when the pipeline runs out of attempts. Errors
// carries the validation failures of the final attempt.
type ExhaustedError struct {
	Attempts int
	Errors   []string
}

func (e *ExhaustedError) Error() string {
	return fmt.Sprintf("AI generation failed after %d attempts, last errors: %v", e.Attempts, e.Errors)
}

// GenerateParams carries one generation request. Context, when set, is
// prepended so the model answers strictly from it.
type GenerateParams struct {
	Prompt       string
	SystemPrompt string
	Context      string
	Temperature  *float64
}

// FitEmbedding pads or truncates vec to dim. Providers embed at different
// dimensionalities while the vector column admits exactly one, so every
// embedding is fitted to the configured dimension before it is stored or
// used as a query.
func FitEmbedding(vec []float32, dim int) []float32 {
	if dim <= 0 || len(vec) == dim {
		return vec
	}
	fitted := make([]float32, dim)
	copy(fitted, vec)
	return fitted
}

// Provider is the uniform capability over one generative-AI backend. Callers
// must check Available before invoking any other method; an unavailable
// provider is never called.
type Provider interface {
	Name() string
	Available() bool
	Generate(ctx context.Context, params GenerateParams) (string, error)
	GenerateJSON(ctx context.Context, params GenerateParams) (json.RawMessage, error)
	Embed(ctx context.Context, text string) ([]float32, error)
}

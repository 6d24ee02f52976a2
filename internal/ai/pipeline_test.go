package ai

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeProvider replays scripted responses and records every prompt it sees.
type fakeProvider struct {
	name      string
	available bool
	responses []string
	errs      []error
	embedding []float32
	embedErr  error

	calls   int
	prompts []string
}

func (f *fakeProvider) Name() string    { return f.name }
func (f *fakeProvider) Available() bool { return f.available }

func (f *fakeProvider) Generate(ctx context.Context, params GenerateParams) (string, error) {
	idx := f.calls
	f.calls++
	f.prompts = append(f.prompts, params.Prompt)
	if idx < len(f.errs) && f.errs[idx] != nil {
		return "", f.errs[idx]
	}
	if idx < len(f.responses) {
		return f.responses[idx], nil
	}
	return "", errors.New("fake provider ran out of responses")
}

func (f *fakeProvider) GenerateJSON(ctx context.Context, params GenerateParams) (json.RawMessage, error) {
	text, err := f.Generate(ctx, params)
	if err != nil {
		return nil, err
	}
	return extractJSON(text)
}

func (f *fakeProvider) Embed(ctx context.Context, text string) ([]float32, error) {
	if f.embedErr != nil {
		return nil, f.embedErr
	}
	return f.embedding, nil
}

type greeting struct {
	Message string `json:"message"`
}

func parseGreeting(raw json.RawMessage) (*greeting, []string) {
	var g greeting
	if err := json.Unmarshal(raw, &g); err != nil {
		return nil, []string{err.Error()}
	}
	if g.Message == "" {
		return nil, []string{"message: field is required"}
	}
	return &g, nil
}

func TestPipeline_NoProvider(t *testing.T) {
	p := NewPipeline([]Provider{&fakeProvider{name: "off", available: false}})

	_, err := p.Generate(context.Background(), GenerateParams{Prompt: "hi"})
	assert.ErrorIs(t, err, ErrNoProvider)

	_, err = GenerateValidated(context.Background(), p, GenerateParams{Prompt: "hi"}, parseGreeting)
	assert.ErrorIs(t, err, ErrNoProvider)
}

func TestPipeline_FallbackWithinAttempt(t *testing.T) {
	primary := &fakeProvider{name: "primary", available: true, errs: []error{errors.New("quota exceeded")}}
	fallback := &fakeProvider{name: "fallback", available: true, responses: []string{`{"message":"hello"}`}}
	p := NewPipeline([]Provider{primary, fallback})

	result, err := GenerateValidated(context.Background(), p, GenerateParams{Prompt: "greet"}, parseGreeting)
	require.NoError(t, err)
	assert.Equal(t, "hello", result.Message)
	assert.Equal(t, 1, primary.calls)
	assert.Equal(t, 1, fallback.calls)
}

func TestPipeline_RepairSucceedsOnSecondAttempt(t *testing.T) {
	provider := &fakeProvider{
		name:      "primary",
		available: true,
		responses: []string{`{"message":""}`, `{"message":"fixed"}`},
	}
	p := NewPipeline([]Provider{provider})

	result, err := GenerateValidated(context.Background(), p, GenerateParams{Prompt: "greet me"}, parseGreeting)
	require.NoError(t, err)
	assert.Equal(t, "fixed", result.Message)
	require.Equal(t, 2, provider.calls)

	repair := provider.prompts[1]
	assert.Contains(t, repair, "The previous response had validation errors:")
	assert.Contains(t, repair, "- message: field is required")
	assert.Contains(t, repair, "Original request: greet me")
}

func TestPipeline_ExhaustsAfterThreeAttempts(t *testing.T) {
	provider := &fakeProvider{
		name:      "primary",
		available: true,
		responses: []string{`{"message":""}`, `{"message":""}`, `{"message":""}`},
	}
	p := NewPipeline([]Provider{provider})

	_, err := GenerateValidated(context.Background(), p, GenerateParams{Prompt: "greet"}, parseGreeting)
	require.Error(t, err)
	assert.Equal(t, 3, provider.calls)

	var exhausted *ExhaustedError
	require.True(t, errors.As(err, &exhausted))
	assert.Equal(t, 3, exhausted.Attempts)
	assert.Equal(t, []string{"message: field is required"}, exhausted.Errors)
}

func TestPipeline_GenerationErrorConsumesAttempt(t *testing.T) {
	provider := &fakeProvider{
		name:      "flaky",
		available: true,
		errs:      []error{errors.New("timeout"), nil},
		responses: []string{"", `{"message":"late"}`},
	}
	p := NewPipeline([]Provider{provider})

	result, err := GenerateValidated(context.Background(), p, GenerateParams{Prompt: "greet"}, parseGreeting)
	require.NoError(t, err)
	assert.Equal(t, "late", result.Message)
	assert.Equal(t, 2, provider.calls)
}

func TestPipeline_Generate_AllProvidersFail(t *testing.T) {
	p := NewPipeline([]Provider{
		&fakeProvider{name: "a", available: true, errs: []error{errors.New("boom")}},
		&fakeProvider{name: "b", available: true, errs: []error{fmt.Errorf("also boom")}},
	})

	_, err := p.Generate(context.Background(), GenerateParams{Prompt: "hi"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "all providers failed")
	assert.Contains(t, err.Error(), "also boom")
}

package service

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/kurslab/tutorium/internal/ai"
	"github.com/kurslab/tutorium/internal/contract"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// scriptedProvider returns canned JSON payloads in order.
type scriptedProvider struct {
	responses []string
	calls     int
	prompts   []string
}

func (p *scriptedProvider) Name() string    { return "scripted" }
func (p *scriptedProvider) Available() bool { return true }

func (p *scriptedProvider) Generate(ctx context.Context, params ai.GenerateParams) (string, error) {
	idx := p.calls
	p.calls++
	p.prompts = append(p.prompts, params.Prompt)
	if idx < len(p.responses) {
		return p.responses[idx], nil
	}
	return "", errors.New("scripted provider exhausted")
}

func (p *scriptedProvider) GenerateJSON(ctx context.Context, params ai.GenerateParams) (json.RawMessage, error) {
	text, err := p.Generate(ctx, params)
	if err != nil {
		return nil, err
	}
	return json.RawMessage(text), nil
}

func (p *scriptedProvider) Embed(ctx context.Context, text string) ([]float32, error) {
	return nil, errors.New("not supported")
}

func checkSpec() *contract.TestSpec {
	spec := &contract.TestSpec{
		Topic:        "Geometry",
		Difficulty:   contract.DifficultyEasy,
		PassingScore: 70,
		Questions: []contract.Question{
			{ID: "q1", Type: contract.QuestionTypeShortAnswer, Text: "Angles in a triangle?", CorrectAnswer: contract.TextAnswer("180"), Explanation: "x", Points: 1},
			{ID: "q2", Type: contract.QuestionTypeShortAnswer, Text: "Sides of a square?", CorrectAnswer: contract.TextAnswer("4"), Explanation: "x", Points: 1},
			{ID: "q3", Type: contract.QuestionTypeShortAnswer, Text: "Degrees in a circle?", CorrectAnswer: contract.TextAnswer("360"), Explanation: "x", Points: 1},
		},
	}
	return spec
}

func TestAnswerCheck_PassedRecomputedFromScore(t *testing.T) {
	// The model claims a fail despite a passing score; the service trusts the
	// score plus the spec's threshold, not the model's verdict.
	provider := &scriptedProvider{responses: []string{
		`{"score":75,"passed":false,"mistakes":[],"feedback":"One slip.","recommendation":"proceed"}`,
	}}
	checker := NewAnswerCheckService(ai.NewPipeline([]ai.Provider{provider}), ai.NewSchemaValidator())

	result, err := checker.Check(context.Background(), checkSpec(), map[string]contract.AnswerValue{
		"q1": contract.TextAnswer("180"),
	})
	require.NoError(t, err)
	assert.Equal(t, 75, result.Score)
	assert.True(t, result.Passed)
}

func TestAnswerCheck_RepairsInvalidResult(t *testing.T) {
	provider := &scriptedProvider{responses: []string{
		`{"score":50,"passed":false,"mistakes":[],"feedback":"","recommendation":"repeat"}`,
		`{"score":50,"passed":false,"mistakes":[],"feedback":"Review the basics.","recommendation":"repeat"}`,
	}}
	checker := NewAnswerCheckService(ai.NewPipeline([]ai.Provider{provider}), ai.NewSchemaValidator())

	result, err := checker.Check(context.Background(), checkSpec(), nil)
	require.NoError(t, err)
	assert.Equal(t, 2, provider.calls)
	assert.Equal(t, "Review the basics.", result.Feedback)
	assert.False(t, result.Passed)

	assert.Contains(t, provider.prompts[1], "The previous response had validation errors:")
	assert.Contains(t, provider.prompts[1], "feedback")
}

func TestAnswerCheck_PromptCarriesQuestionsAndAnswers(t *testing.T) {
	provider := &scriptedProvider{responses: []string{
		`{"score":100,"passed":true,"mistakes":[],"feedback":"Perfect.","recommendation":"proceed"}`,
	}}
	checker := NewAnswerCheckService(ai.NewPipeline([]ai.Provider{provider}), ai.NewSchemaValidator())

	_, err := checker.Check(context.Background(), checkSpec(), map[string]contract.AnswerValue{
		"q1": contract.TextAnswer("180"),
	})
	require.NoError(t, err)

	prompt := provider.prompts[0]
	assert.Contains(t, prompt, "Angles in a triangle?")
	assert.Contains(t, prompt, `"180"`)
	assert.Contains(t, prompt, "Student answer: (no answer)")
	assert.Contains(t, prompt, "Passing score: 70")
}

func TestAnswerCheck_ExhaustionSurfaces(t *testing.T) {
	provider := &scriptedProvider{responses: []string{
		`{"score":10,"recommendation":"panic"}`,
		`{"score":10,"recommendation":"panic"}`,
		`{"score":10,"recommendation":"panic"}`,
	}}
	checker := NewAnswerCheckService(ai.NewPipeline([]ai.Provider{provider}), ai.NewSchemaValidator())

	_, err := checker.Check(context.Background(), checkSpec(), nil)
	require.Error(t, err)

	var exhausted *ai.ExhaustedError
	require.True(t, errors.As(err, &exhausted))
	assert.Equal(t, 3, exhausted.Attempts)
}

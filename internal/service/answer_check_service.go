package service

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/kurslab/tutorium/internal/ai"
	"github.com/kurslab/tutorium/internal/contract"
)

// AnswerChecker grades a submission against its test spec.
type AnswerChecker interface {
	Check(ctx context.Context, spec *contract.TestSpec, answers map[string]contract.AnswerValue) (*contract.AnswerCheckResult, error)
}

const checkSystemPrompt = "You are a strict but fair teacher grading a student's test. " +
	"Grade each answer against the provided correct answer. For short answers, accept " +
	"semantically equivalent phrasings. Respond with JSON only."

type answerCheckService struct {
	pipeline  *ai.Pipeline
	validator *ai.SchemaValidator
}

func NewAnswerCheckService(pipeline *ai.Pipeline, validator *ai.SchemaValidator) AnswerChecker {
	return &answerCheckService{pipeline: pipeline, validator: validator}
}

// Check runs the grading prompt through the validate-repair loop, then
// normalizes the result: score is clamped to [0,100] and passed is
// recomputed against the spec's passing score rather than trusted from the
// model.
func (s *answerCheckService) Check(ctx context.Context, spec *contract.TestSpec, answers map[string]contract.AnswerValue) (*contract.AnswerCheckResult, error) {
	prompt, err := buildCheckPrompt(spec, answers)
	if err != nil {
		return nil, err
	}

	result, err := ai.GenerateValidated(ctx, s.pipeline, ai.GenerateParams{
		Prompt:       prompt,
		SystemPrompt: checkSystemPrompt,
	}, func(raw json.RawMessage) (*contract.AnswerCheckResult, []string) {
		var r contract.AnswerCheckResult
		if err := json.Unmarshal(raw, &r); err != nil {
			return nil, []string{fmt.Sprintf("response is not valid JSON for the grading schema: %v", err)}
		}
		if violations := s.validator.ValidateCheckResult(&r); len(violations) > 0 {
			return nil, violations
		}
		return &r, nil
	})
	if err != nil {
		return nil, fmt.Errorf("answer check failed: %w", err)
	}

	if result.Score < 0 {
		result.Score = 0
	}
	if result.Score > 100 {
		result.Score = 100
	}
	result.Passed = result.Score >= spec.PassingScore
	if result.Mistakes == nil {
		result.Mistakes = []contract.Mistake{}
	}
	return result, nil
}

func buildCheckPrompt(spec *contract.TestSpec, answers map[string]contract.AnswerValue) (string, error) {
	var sb strings.Builder
	sb.WriteString("Grade this test submission.\n\n")
	sb.WriteString(fmt.Sprintf("Topic: %s\nPassing score: %d\n\nQuestions:\n", spec.Topic, spec.PassingScore))

	for i, q := range spec.Questions {
		sb.WriteString(fmt.Sprintf("%d. [%s] (id=%s, points=%g) %s\n", i+1, q.Type, q.ID, q.Points, q.Text))
		if len(q.Options) > 0 {
			for j, opt := range q.Options {
				sb.WriteString(fmt.Sprintf("   %d) %s\n", j, opt))
			}
		}
		sb.WriteString(fmt.Sprintf("   Correct answer: %s\n", q.CorrectAnswer.String()))

		answer, ok := answers[q.ID]
		if !ok {
			sb.WriteString("   Student answer: (no answer)\n")
			continue
		}
		sb.WriteString(fmt.Sprintf("   Student answer: %s\n", answer.String()))
	}

	schema, err := json.Marshal(contract.AnswerCheckResult{
		Mistakes:       []contract.Mistake{},
		Recommendation: contract.RecommendationProceed,
	})
	if err != nil {
		return "", err
	}
	sb.WriteString("\nRespond with a JSON object shaped like: ")
	sb.Write(schema)
	sb.WriteString("\nScore is 0-100. Recommendation is one of: repeat, proceed, review_topic. " +
		"Include one mistakes entry per incorrectly answered question.")
	return sb.String(), nil
}

package ai

import (
	"testing"

	"github.com/kurslab/tutorium/internal/contract"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func validSpec() *contract.TestSpec {
	return &contract.TestSpec{
		Topic:      "Photosynthesis",
		Difficulty: contract.DifficultyMedium,
		Questions: []contract.Question{
			{
				ID:            "q1",
				Type:          contract.QuestionTypeMultipleChoice,
				Text:          "What do plants absorb?",
				Options:       []string{"CO2", "Gold", "Plastic"},
				CorrectAnswer: contract.ChoiceAnswer(0),
				Explanation:   "Plants absorb carbon dioxide.",
			},
			{
				ID:            "q2",
				Type:          contract.QuestionTypeShortAnswer,
				Text:          "Name the green pigment.",
				CorrectAnswer: contract.TextAnswer("chlorophyll"),
				Explanation:   "Chlorophyll drives light absorption.",
			},
			{
				ID:            "q3",
				Type:          contract.QuestionTypeMultipleChoice,
				Text:          "Where does it happen?",
				Options:       []string{"Chloroplast", "Nucleus"},
				CorrectAnswer: contract.ChoiceAnswer(0),
				Explanation:   "In the chloroplast.",
			},
		},
	}
}

func TestSchemaValidator_ValidSpecGetsDefaults(t *testing.T) {
	v := NewSchemaValidator()
	spec := validSpec()

	violations := v.ValidateTestSpec(spec)
	assert.Empty(t, violations)
	assert.Equal(t, contract.DefaultPassingScore, spec.PassingScore)
	assert.Equal(t, float64(1), spec.Questions[0].Points)
}

func TestSchemaValidator_TooFewQuestions(t *testing.T) {
	v := NewSchemaValidator()
	spec := validSpec()
	spec.Questions = spec.Questions[:2]

	violations := v.ValidateTestSpec(spec)
	require.NotEmpty(t, violations)
	assert.Contains(t, violations[0], "questions")
	assert.Contains(t, violations[0], "at least 3")
}

func TestSchemaValidator_QuestionCrossFieldRules(t *testing.T) {
	v := NewSchemaValidator()

	t.Run("multiple choice needs options", func(t *testing.T) {
		spec := validSpec()
		spec.Questions[0].Options = []string{"only one"}
		violations := v.ValidateTestSpec(spec)
		require.NotEmpty(t, violations)
		assert.Contains(t, violations[0], "at least 2 options")
	})

	t.Run("multiple choice answer must be indices", func(t *testing.T) {
		spec := validSpec()
		spec.Questions[0].CorrectAnswer = contract.TextAnswer("CO2")
		violations := v.ValidateTestSpec(spec)
		require.NotEmpty(t, violations)
		assert.Contains(t, violations[0], "array of option indices")
	})

	t.Run("indices must be in range", func(t *testing.T) {
		spec := validSpec()
		spec.Questions[0].CorrectAnswer = contract.ChoiceAnswer(7)
		violations := v.ValidateTestSpec(spec)
		require.NotEmpty(t, violations)
		assert.Contains(t, violations[0], "existing options")
	})

	t.Run("short answer must not have options", func(t *testing.T) {
		spec := validSpec()
		spec.Questions[1].Options = []string{"a", "b"}
		violations := v.ValidateTestSpec(spec)
		require.NotEmpty(t, violations)
		assert.Contains(t, violations[0], "must not have options")
	})

	t.Run("short answer needs text", func(t *testing.T) {
		spec := validSpec()
		spec.Questions[1].CorrectAnswer = contract.ChoiceAnswer(0)
		violations := v.ValidateTestSpec(spec)
		require.NotEmpty(t, violations)
		assert.Contains(t, violations[0], "non-empty string")
	})

	t.Run("unknown difficulty", func(t *testing.T) {
		spec := validSpec()
		spec.Difficulty = "impossible"
		violations := v.ValidateTestSpec(spec)
		require.NotEmpty(t, violations)
		assert.Contains(t, violations[0], "one of")
	})
}

func TestSchemaValidator_CheckResult(t *testing.T) {
	v := NewSchemaValidator()

	valid := &contract.AnswerCheckResult{
		Score:          80,
		Passed:         true,
		Mistakes:       []contract.Mistake{},
		Feedback:       "Well done.",
		Recommendation: contract.RecommendationProceed,
	}
	assert.Empty(t, v.ValidateCheckResult(valid))

	invalid := &contract.AnswerCheckResult{
		Score:          150,
		Recommendation: "celebrate",
	}
	violations := v.ValidateCheckResult(invalid)
	assert.Len(t, violations, 3) // score range, missing feedback, bad recommendation
}

func TestBuildRepairPrompt(t *testing.T) {
	prompt := BuildRepairPrompt("make a test", []string{"questions: must have at least 3", "topic: field is required"})

	assert.Equal(t,
		"The previous response had validation errors:\n"+
			"- questions: must have at least 3\n"+
			"- topic: field is required\n"+
			"\nPlease fix these issues and try again.\n\n"+
			"Original request: make a test",
		prompt)
}

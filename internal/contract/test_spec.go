package contract

const (
	QuestionTypeMultipleChoice = "multiple_choice"
	QuestionTypeShortAnswer    = "short_answer"
)

const (
	DifficultyEasy   = "easy"
	DifficultyMedium = "medium"
	DifficultyHard   = "hard"
)

const DefaultPassingScore = 70

// Question is one question inside a generated test spec.
type Question struct {
	ID            string      `json:"id" validate:"required"`
	Type          string      `json:"type" validate:"required,oneof=multiple_choice short_answer"`
	Text          string      `json:"text" validate:"required"`
	Options       []string    `json:"options,omitempty"`
	CorrectAnswer AnswerValue `json:"correctAnswer"`
	Explanation   string      `json:"explanation" validate:"required"`
	Points        float64     `json:"points,omitempty" validate:"min=0"`
}

// TestSpec is the structural contract AI-generated tests must satisfy before
// they may be persisted.
type TestSpec struct {
	Topic        string         `json:"topic" validate:"required"`
	Difficulty   string         `json:"difficulty" validate:"required,oneof=easy medium hard"`
	Questions    []Question     `json:"questions" validate:"required,min=3,max=20,dive"`
	PassingScore int            `json:"passingScore" validate:"min=0,max=100"`
	Metadata     map[string]any `json:"metadata,omitempty"`
}

// Normalize applies contract defaults that generation models routinely omit.
func (s *TestSpec) Normalize() {
	if s.PassingScore == 0 {
		s.PassingScore = DefaultPassingScore
	}
	for i := range s.Questions {
		if s.Questions[i].Points == 0 {
			s.Questions[i].Points = 1
		}
	}
}

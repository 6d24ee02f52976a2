package contract

const (
	RecommendationRepeat      = "repeat"
	RecommendationProceed     = "proceed"
	RecommendationReviewTopic = "review_topic"
)

// Mistake describes one incorrectly answered question.
type Mistake struct {
	QuestionID    string      `json:"questionId" validate:"required"`
	UserAnswer    AnswerValue `json:"userAnswer"`
	CorrectAnswer AnswerValue `json:"correctAnswer"`
	Explanation   string      `json:"explanation" validate:"required"`
}

// AnswerCheckResult is the structural contract for AI-graded submissions.
type AnswerCheckResult struct {
	Score          int       `json:"score" validate:"min=0,max=100"`
	Passed         bool      `json:"passed"`
	Mistakes       []Mistake `json:"mistakes" validate:"dive"`
	Feedback       string    `json:"feedback" validate:"required"`
	Recommendation string    `json:"recommendation" validate:"required,oneof=repeat proceed review_topic"`
	Strengths      []string  `json:"strengths,omitempty"`
	Weaknesses     []string  `json:"weaknesses,omitempty"`
}

package contract

// LearningState is the session lifecycle state governed by the state machine.
type LearningState string

const (
	StateIdle              LearningState = "IDLE"
	StateLearning          LearningState = "LEARNING"
	StateTesting           LearningState = "TESTING"
	StateSubmitting        LearningState = "SUBMITTING"
	StateReviewing         LearningState = "REVIEWING"
	StateHomeworkPending   LearningState = "HOMEWORK_PENDING"
	StateHomeworkSubmitted LearningState = "HOMEWORK_SUBMITTED"
	StateCompleted         LearningState = "COMPLETED"
)

// AllStates lists every session state in lifecycle order.
var AllStates = []LearningState{
	StateIdle,
	StateLearning,
	StateTesting,
	StateSubmitting,
	StateReviewing,
	StateHomeworkPending,
	StateHomeworkSubmitted,
	StateCompleted,
}

// Session events. Each one names exactly one transition in the state machine
// table and is also the type of the domain event emitted for that transition.
const (
	EventUserStartsLearning   = "user_starts_learning"
	EventUserAsksQuestion     = "user_asks_question"
	EventUserResumesLearning  = "user_resumes_learning"
	EventUserStartsTest       = "user_starts_test"
	EventUserSubmitsAnswers   = "user_submits_answers"
	EventCheckCompleted       = "check_completed"
	EventUserRequestsHomework = "user_requests_homework"
	EventUserSubmitsHomework  = "user_submits_homework"
	EventAdminReviews         = "admin_reviews"
	EventUserCompletesSession = "user_completes_session"
	EventSessionReset         = "session_reset"
)

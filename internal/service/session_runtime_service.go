package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/kurslab/tutorium/internal/ai"
	"github.com/kurslab/tutorium/internal/contract"
	"github.com/kurslab/tutorium/internal/model"
	"github.com/kurslab/tutorium/internal/repository"
	"github.com/rs/zerolog/log"
	"gorm.io/gorm"
)

var (
	ErrNoTests         = errors.New("no published tests available")
	ErrAttemptNotFound = errors.New("test attempt not found")
)

// Answerer produces grounded answers for learner questions. Satisfied by
// *ai.Retriever.
type Answerer interface {
	Answer(ctx context.Context, query, projectID string) *ai.GroundedAnswer
}

// SessionRuntime is the orchestrator: it owns every session transition and
// translates learner input into bot actions. All operations for one
// (project, user) pair are serialized.
type SessionRuntime interface {
	ProcessMessage(ctx context.Context, projectID, userID, text string) ([]contract.BotAction, error)
	StartTest(ctx context.Context, projectID, userID string, testID *string) ([]contract.BotAction, error)
	SubmitTest(ctx context.Context, projectID, userID, attemptID string, answers map[string]contract.AnswerValue) ([]contract.BotAction, error)
	RequestHomework(ctx context.Context, projectID, userID string) ([]contract.BotAction, error)
	CompleteSession(ctx context.Context, projectID, userID string) ([]contract.BotAction, error)
	ApplyEvent(ctx context.Context, projectID, userID, event string, payload any) (*model.LearningSession, error)
	GetSession(ctx context.Context, projectID, userID string) (*model.LearningSession, []string, error)
}

type sessionRuntime struct {
	sessions   repository.SessionRepository
	tests      repository.TestRepository
	machine    *StateMachine
	dispatcher *EventDispatcher
	answerer   Answerer
	checker    AnswerChecker
	locks      *sessionLocks
}

func NewSessionRuntime(
	sessions repository.SessionRepository,
	tests repository.TestRepository,
	machine *StateMachine,
	dispatcher *EventDispatcher,
	answerer Answerer,
	checker AnswerChecker,
) SessionRuntime {
	return &sessionRuntime{
		sessions:   sessions,
		tests:      tests,
		machine:    machine,
		dispatcher: dispatcher,
		answerer:   answerer,
		checker:    checker,
		locks:      newSessionLocks(),
	}
}

func sessionKey(projectID, userID string) string {
	return projectID + ":" + userID
}

func testInFlight(state contract.LearningState) bool {
	switch state {
	case contract.StateTesting, contract.StateSubmitting, contract.StateReviewing:
		return true
	}
	return false
}

func (s *sessionRuntime) getOrCreate(ctx context.Context, projectID, userID string) (*model.LearningSession, error) {
	session, err := s.sessions.GetLatest(ctx, projectID, userID)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return s.sessions.Create(ctx, projectID, userID)
	}
	if err != nil {
		return nil, err
	}
	return session, nil
}

// transition moves the session through the state machine, persists the new
// state plus any extra fields, and emits the event.
func (s *sessionRuntime) transition(ctx context.Context, session *model.LearningSession, event string, fields map[string]any, payload any) error {
	next, err := s.machine.Transition(session.State, event)
	if err != nil {
		return err
	}

	if fields == nil {
		fields = map[string]any{}
	}
	fields["state"] = next
	fields["last_activity_at"] = time.Now()
	// currentTestId only means something while a test is in flight.
	if _, set := fields["current_test_id"]; !set && session.CurrentTestID != nil && !testInFlight(next) {
		fields["current_test_id"] = nil
	}
	if err := s.sessions.Update(ctx, session.ID, fields); err != nil {
		return fmt.Errorf("failed to persist session transition: %w", err)
	}
	session.State = next
	if v, ok := fields["current_test_id"]; ok {
		if id, isStr := v.(string); isStr {
			session.CurrentTestID = &id
		} else {
			session.CurrentTestID = nil
		}
	}

	if err := s.dispatcher.Emit(ctx, session.ProjectID, session.UserID, &session.ID, event, payload); err != nil {
		log.Error().Err(err).Str("event", event).Str("session_id", session.ID).Msg("Failed to record session event")
	}
	return nil
}

// ProcessMessage routes a free-text message by session state. A message in
// REVIEWING resumes learning through its own named transition before the
// question is answered.
func (s *sessionRuntime) ProcessMessage(ctx context.Context, projectID, userID, text string) ([]contract.BotAction, error) {
	mu := s.locks.lock(sessionKey(projectID, userID))
	defer mu.Unlock()

	session, err := s.getOrCreate(ctx, projectID, userID)
	if err != nil {
		return nil, err
	}

	switch session.State {
	case contract.StateCompleted:
		if err := s.transition(ctx, session, contract.EventSessionReset, nil, nil); err != nil {
			return nil, err
		}
		fallthrough
	case contract.StateIdle:
		if err := s.transition(ctx, session, contract.EventUserStartsLearning, nil, map[string]string{"message": text}); err != nil {
			return nil, err
		}
		answer := s.answerer.Answer(ctx, text, projectID)
		return []contract.BotAction{
			contract.SendMessage(answer.Answer),
			contract.ShowButtons("What would you like to do?",
				contract.Button{Text: "Start a test", Payload: "start_test"},
			),
		}, nil

	case contract.StateLearning:
		if err := s.transition(ctx, session, contract.EventUserAsksQuestion, nil, map[string]string{"question": text}); err != nil {
			return nil, err
		}
		return s.answerQuestion(ctx, projectID, text), nil

	case contract.StateReviewing:
		if err := s.transition(ctx, session, contract.EventUserResumesLearning, nil, map[string]string{"question": text}); err != nil {
			return nil, err
		}
		return s.answerQuestion(ctx, projectID, text), nil

	case contract.StateTesting:
		return []contract.BotAction{
			contract.SendMessage("You have a test in progress. Please submit your answers first."),
		}, nil

	case contract.StateSubmitting:
		return []contract.BotAction{
			contract.SendMessage("Your answers are being checked. One moment, please."),
		}, nil

	case contract.StateHomeworkPending:
		return []contract.BotAction{
			contract.SendMessage("You have pending homework. Please send your homework first."),
		}, nil

	case contract.StateHomeworkSubmitted:
		return []contract.BotAction{
			contract.SendMessage("Your homework is waiting for review. You will be notified once it is checked."),
		}, nil
	}

	return nil, fmt.Errorf("session %s is in unexpected state %s", session.ID, session.State)
}

func (s *sessionRuntime) answerQuestion(ctx context.Context, projectID, text string) []contract.BotAction {
	answer := s.answerer.Answer(ctx, text, projectID)

	actions := []contract.BotAction{contract.SendMessage(answer.Answer)}
	if len(answer.Citations) > 0 {
		actions = append(actions, contract.ShowButtons("Ready to check yourself?",
			contract.Button{Text: "Start a test", Payload: "start_test"},
		))
	}
	return actions
}

// StartTest begins an attempt on the given test, or the latest published
// test for the project when testID is nil.
func (s *sessionRuntime) StartTest(ctx context.Context, projectID, userID string, testID *string) ([]contract.BotAction, error) {
	mu := s.locks.lock(sessionKey(projectID, userID))
	defer mu.Unlock()

	session, err := s.getOrCreate(ctx, projectID, userID)
	if err != nil {
		return nil, err
	}
	// Reject an illegal start before the attempt row exists.
	if _, err := s.machine.Transition(session.State, contract.EventUserStartsTest); err != nil {
		return nil, err
	}

	test, err := s.tests.FindPublished(ctx, projectID, testID)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrNoTests
	}
	if err != nil {
		return nil, err
	}

	attempt := &model.TestAttempt{
		ProjectID: projectID,
		UserID:    userID,
		TestID:    test.ID,
		Status:    model.AttemptStatusStarted,
	}
	if err := s.tests.CreateAttempt(ctx, attempt); err != nil {
		return nil, err
	}

	err = s.transition(ctx, session, contract.EventUserStartsTest,
		map[string]any{"current_test_id": test.ID},
		map[string]string{"test_id": test.ID, "attempt_id": attempt.ID})
	if err != nil {
		return nil, err
	}

	action := contract.ShowTest(test.ID, json.RawMessage(test.Spec))
	action.AttemptID = attempt.ID
	return []contract.BotAction{
		contract.SendMessage(fmt.Sprintf("Here is your test on %q. Good luck!", test.Topic)),
		action,
	}, nil
}

// SubmitTest records the answers, grades them, and moves the session to
// REVIEWING with the result.
func (s *sessionRuntime) SubmitTest(ctx context.Context, projectID, userID, attemptID string, answers map[string]contract.AnswerValue) ([]contract.BotAction, error) {
	mu := s.locks.lock(sessionKey(projectID, userID))
	defer mu.Unlock()

	session, err := s.getOrCreate(ctx, projectID, userID)
	if err != nil {
		return nil, err
	}
	// Reject a submission outside TESTING before anything is written.
	if _, err := s.machine.Transition(session.State, contract.EventUserSubmitsAnswers); err != nil {
		return nil, err
	}

	attempt, err := s.tests.FindAttemptByID(ctx, attemptID)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrAttemptNotFound
	}
	if err != nil {
		return nil, err
	}
	if attempt.UserID != userID || attempt.ProjectID != projectID {
		return nil, ErrAttemptNotFound
	}

	rawAnswers, err := json.Marshal(answers)
	if err != nil {
		return nil, err
	}
	submission := &model.TestSubmission{AttemptID: attempt.ID, Answers: rawAnswers}
	if err := s.tests.CreateSubmission(ctx, submission); err != nil {
		return nil, err
	}
	if err := s.tests.UpdateAttemptStatus(ctx, attempt.ID, model.AttemptStatusSubmitted, nil); err != nil {
		return nil, err
	}

	err = s.transition(ctx, session, contract.EventUserSubmitsAnswers, nil,
		map[string]string{"attempt_id": attempt.ID, "submission_id": submission.ID})
	if err != nil {
		return nil, err
	}

	var spec contract.TestSpec
	if err := json.Unmarshal(attempt.Test.Spec, &spec); err != nil {
		return nil, fmt.Errorf("stored test spec is unreadable: %w", err)
	}
	spec.Normalize()

	result, err := s.checker.Check(ctx, &spec, answers)
	if err != nil {
		return nil, err
	}

	mistakes, err := json.Marshal(result.Mistakes)
	if err != nil {
		return nil, err
	}
	check := &model.TestCheck{
		SubmissionID:   submission.ID,
		Score:          result.Score,
		Passed:         result.Passed,
		Mistakes:       mistakes,
		Feedback:       result.Feedback,
		Recommendation: result.Recommendation,
	}
	if err := s.tests.CreateCheck(ctx, check); err != nil {
		return nil, err
	}
	now := time.Now()
	if err := s.tests.UpdateAttemptStatus(ctx, attempt.ID, model.AttemptStatusChecked, &now); err != nil {
		return nil, err
	}

	err = s.transition(ctx, session, contract.EventCheckCompleted,
		map[string]any{"current_test_id": nil},
		map[string]any{"attempt_id": attempt.ID, "score": result.Score, "passed": result.Passed})
	if err != nil {
		return nil, err
	}

	return checkResultActions(result), nil
}

func checkResultActions(result *contract.AnswerCheckResult) []contract.BotAction {
	verdict := "Unfortunately, you did not pass this time."
	if result.Passed {
		verdict = "Congratulations, you passed!"
	}
	summary := fmt.Sprintf("%s\n\nScore: %d/100\n\n%s", verdict, result.Score, result.Feedback)

	actions := []contract.BotAction{contract.SendMessage(summary)}
	for _, m := range result.Mistakes {
		actions = append(actions, contract.SendMessage(
			fmt.Sprintf("Question %s: your answer %s, correct answer %s.\n%s",
				m.QuestionID, m.UserAnswer.String(), m.CorrectAnswer.String(), m.Explanation)))
	}

	if result.Passed {
		actions = append(actions, contract.ShowButtons("What next?",
			contract.Button{Text: "Get homework", Payload: "request_homework"},
			contract.Button{Text: "Finish session", Payload: "complete_session"},
		))
	} else {
		actions = append(actions, contract.ShowButtons("What next?",
			contract.Button{Text: "Try again", Payload: "start_test"},
			contract.Button{Text: "Back to learning", Payload: "resume_learning"},
		))
	}
	return actions
}

func (s *sessionRuntime) RequestHomework(ctx context.Context, projectID, userID string) ([]contract.BotAction, error) {
	mu := s.locks.lock(sessionKey(projectID, userID))
	defer mu.Unlock()

	session, err := s.getOrCreate(ctx, projectID, userID)
	if err != nil {
		return nil, err
	}
	if err := s.transition(ctx, session, contract.EventUserRequestsHomework, nil, nil); err != nil {
		return nil, err
	}
	return []contract.BotAction{
		contract.RequestHomework("Write a short summary of the topic you just passed and send it here as text or a file.", ""),
	}, nil
}

func (s *sessionRuntime) CompleteSession(ctx context.Context, projectID, userID string) ([]contract.BotAction, error) {
	mu := s.locks.lock(sessionKey(projectID, userID))
	defer mu.Unlock()

	session, err := s.getOrCreate(ctx, projectID, userID)
	if err != nil {
		return nil, err
	}
	if err := s.transition(ctx, session, contract.EventUserCompletesSession, nil, nil); err != nil {
		return nil, err
	}
	return []contract.BotAction{
		contract.SendMessage("Great work today! The session is complete. Message me any time to start again."),
	}, nil
}

// ApplyEvent is the generic transition entry point used by flows that live
// outside this service, such as homework submission and admin review.
func (s *sessionRuntime) ApplyEvent(ctx context.Context, projectID, userID, event string, payload any) (*model.LearningSession, error) {
	mu := s.locks.lock(sessionKey(projectID, userID))
	defer mu.Unlock()

	session, err := s.getOrCreate(ctx, projectID, userID)
	if err != nil {
		return nil, err
	}
	if err := s.transition(ctx, session, event, nil, payload); err != nil {
		return nil, err
	}
	return session, nil
}

func (s *sessionRuntime) GetSession(ctx context.Context, projectID, userID string) (*model.LearningSession, []string, error) {
	session, err := s.getOrCreate(ctx, projectID, userID)
	if err != nil {
		return nil, nil, err
	}
	return session, s.machine.AvailableEvents(session.State), nil
}

package service

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/kurslab/tutorium/internal/ai"
	"github.com/kurslab/tutorium/internal/contract"
	"github.com/kurslab/tutorium/internal/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

type fakeSessionRepo struct {
	sessions map[string]*model.LearningSession
}

func newFakeSessionRepo() *fakeSessionRepo {
	return &fakeSessionRepo{sessions: make(map[string]*model.LearningSession)}
}

func (f *fakeSessionRepo) GetLatest(ctx context.Context, projectID, userID string) (*model.LearningSession, error) {
	s, ok := f.sessions[projectID+":"+userID]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	return s, nil
}

func (f *fakeSessionRepo) Create(ctx context.Context, projectID, userID string) (*model.LearningSession, error) {
	s := &model.LearningSession{
		ID:             uuid.NewString(),
		ProjectID:      projectID,
		UserID:         userID,
		State:          contract.StateIdle,
		LastActivityAt: time.Now(),
	}
	f.sessions[projectID+":"+userID] = s
	return s, nil
}

func (f *fakeSessionRepo) Update(ctx context.Context, id string, fields map[string]any) error {
	for _, s := range f.sessions {
		if s.ID != id {
			continue
		}
		if state, ok := fields["state"].(contract.LearningState); ok {
			s.State = state
		}
		if v, ok := fields["current_test_id"]; ok {
			if testID, isStr := v.(string); isStr {
				s.CurrentTestID = &testID
			} else {
				s.CurrentTestID = nil
			}
		}
		return nil
	}
	return gorm.ErrRecordNotFound
}

type fakeTestRepo struct {
	published   *model.Test
	attempts    map[string]*model.TestAttempt
	submissions []*model.TestSubmission
	checks      []*model.TestCheck
}

func newFakeTestRepo() *fakeTestRepo {
	return &fakeTestRepo{attempts: make(map[string]*model.TestAttempt)}
}

func (f *fakeTestRepo) Create(ctx context.Context, test *model.Test) error { return nil }

func (f *fakeTestRepo) FindByID(ctx context.Context, id string) (*model.Test, error) {
	if f.published != nil && f.published.ID == id {
		return f.published, nil
	}
	return nil, gorm.ErrRecordNotFound
}

func (f *fakeTestRepo) FindPublished(ctx context.Context, projectID string, testID *string) (*model.Test, error) {
	if f.published == nil {
		return nil, gorm.ErrRecordNotFound
	}
	if testID != nil && *testID != f.published.ID {
		return nil, gorm.ErrRecordNotFound
	}
	return f.published, nil
}

func (f *fakeTestRepo) ListByProject(ctx context.Context, projectID, status string) ([]model.Test, error) {
	return nil, nil
}

func (f *fakeTestRepo) Publish(ctx context.Context, id string) (*model.Test, error) {
	return f.published, nil
}

func (f *fakeTestRepo) CreateAttempt(ctx context.Context, attempt *model.TestAttempt) error {
	if attempt.ID == "" {
		attempt.ID = uuid.NewString()
	}
	f.attempts[attempt.ID] = attempt
	return nil
}

func (f *fakeTestRepo) FindAttemptByID(ctx context.Context, id string) (*model.TestAttempt, error) {
	attempt, ok := f.attempts[id]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	if f.published != nil && attempt.TestID == f.published.ID {
		attempt.Test = *f.published
	}
	return attempt, nil
}

func (f *fakeTestRepo) UpdateAttemptStatus(ctx context.Context, id, status string, finishedAt *time.Time) error {
	if attempt, ok := f.attempts[id]; ok {
		attempt.Status = status
		attempt.FinishedAt = finishedAt
	}
	return nil
}

func (f *fakeTestRepo) CreateSubmission(ctx context.Context, submission *model.TestSubmission) error {
	if submission.ID == "" {
		submission.ID = uuid.NewString()
	}
	f.submissions = append(f.submissions, submission)
	return nil
}

func (f *fakeTestRepo) CreateCheck(ctx context.Context, check *model.TestCheck) error {
	f.checks = append(f.checks, check)
	return nil
}

type fakeEventRepo struct {
	events []*model.DomainEvent
}

func (f *fakeEventRepo) Create(ctx context.Context, event *model.DomainEvent) error {
	if event.ID == "" {
		event.ID = uuid.NewString()
	}
	f.events = append(f.events, event)
	return nil
}

func (f *fakeEventRepo) ListBySession(ctx context.Context, sessionID string, limit int) ([]model.DomainEvent, error) {
	return nil, nil
}

func (f *fakeEventRepo) ListByUser(ctx context.Context, projectID, userID string, limit int) ([]model.DomainEvent, error) {
	return nil, nil
}

func (f *fakeEventRepo) types() []string {
	out := make([]string, len(f.events))
	for i, e := range f.events {
		out[i] = e.Type
	}
	return out
}

type fakeAnswerer struct {
	answer  *ai.GroundedAnswer
	queries []string
}

func (f *fakeAnswerer) Answer(ctx context.Context, query, projectID string) *ai.GroundedAnswer {
	f.queries = append(f.queries, query)
	if f.answer != nil {
		return f.answer
	}
	return &ai.GroundedAnswer{Answer: "grounded answer", Confidence: 80, Citations: []ai.Citation{{ChunkID: "c1"}}}
}

type fakeChecker struct {
	result   *contract.AnswerCheckResult
	gotSpec  *contract.TestSpec
	gotAnsws map[string]contract.AnswerValue
}

func (f *fakeChecker) Check(ctx context.Context, spec *contract.TestSpec, answers map[string]contract.AnswerValue) (*contract.AnswerCheckResult, error) {
	f.gotSpec = spec
	f.gotAnsws = answers
	return f.result, nil
}

type runtimeFixture struct {
	runtime  SessionRuntime
	sessions *fakeSessionRepo
	tests    *fakeTestRepo
	events   *fakeEventRepo
	answerer *fakeAnswerer
	checker  *fakeChecker
}

func newRuntimeFixture() *runtimeFixture {
	sessions := newFakeSessionRepo()
	tests := newFakeTestRepo()
	events := &fakeEventRepo{}
	answerer := &fakeAnswerer{}
	checker := &fakeChecker{result: &contract.AnswerCheckResult{
		Score:          85,
		Passed:         true,
		Mistakes:       []contract.Mistake{},
		Feedback:       "Solid understanding.",
		Recommendation: contract.RecommendationProceed,
	}}

	return &runtimeFixture{
		runtime:  NewSessionRuntime(sessions, tests, NewStateMachine(), NewEventDispatcher(events), answerer, checker),
		sessions: sessions,
		tests:    tests,
		events:   events,
		answerer: answerer,
		checker:  checker,
	}
}

func (fx *runtimeFixture) seedSession(t *testing.T, state contract.LearningState) *model.LearningSession {
	t.Helper()
	session, err := fx.sessions.Create(context.Background(), projectID, userID)
	require.NoError(t, err)
	session.State = state
	return session
}

func (fx *runtimeFixture) publishTest(t *testing.T) *model.Test {
	t.Helper()
	spec := contract.TestSpec{
		Topic:        "Cell biology",
		Difficulty:   contract.DifficultyEasy,
		PassingScore: 70,
		Questions: []contract.Question{
			{ID: "q1", Type: contract.QuestionTypeShortAnswer, Text: "Name the pigment.", CorrectAnswer: contract.TextAnswer("chlorophyll"), Explanation: "x", Points: 1},
			{ID: "q2", Type: contract.QuestionTypeShortAnswer, Text: "Name the organelle.", CorrectAnswer: contract.TextAnswer("chloroplast"), Explanation: "x", Points: 1},
			{ID: "q3", Type: contract.QuestionTypeShortAnswer, Text: "Name the gas.", CorrectAnswer: contract.TextAnswer("CO2"), Explanation: "x", Points: 1},
		},
	}
	raw, err := json.Marshal(spec)
	require.NoError(t, err)
	now := time.Now()
	fx.tests.published = &model.Test{
		ID:          uuid.NewString(),
		ProjectID:   projectID,
		Topic:       spec.Topic,
		Difficulty:  spec.Difficulty,
		Status:      model.TestStatusPublished,
		Spec:        raw,
		PublishedAt: &now,
	}
	return fx.tests.published
}

const (
	projectID = "9f0b1d3e-0000-4000-8000-000000000001"
	userID    = "9f0b1d3e-0000-4000-8000-000000000002"
)

func TestRuntime_FirstMessageStartsLearning(t *testing.T) {
	fx := newRuntimeFixture()

	actions, err := fx.runtime.ProcessMessage(context.Background(), projectID, userID, "what is photosynthesis?")
	require.NoError(t, err)
	require.Len(t, actions, 2)
	assert.Equal(t, contract.ActionSendMessage, actions[0].Type)
	assert.Equal(t, "grounded answer", actions[0].Text)
	assert.Equal(t, contract.ActionShowButtons, actions[1].Type)

	// The first message is a real question and gets a grounded answer, not
	// just a greeting.
	assert.Equal(t, []string{"what is photosynthesis?"}, fx.answerer.queries)

	session, _ := fx.sessions.GetLatest(context.Background(), projectID, userID)
	assert.Equal(t, contract.StateLearning, session.State)
	assert.Equal(t, []string{contract.EventUserStartsLearning}, fx.events.types())
}

func TestRuntime_QuestionAnsweredWhileLearning(t *testing.T) {
	fx := newRuntimeFixture()
	fx.seedSession(t, contract.StateLearning)

	actions, err := fx.runtime.ProcessMessage(context.Background(), projectID, userID, "what is chlorophyll?")
	require.NoError(t, err)

	assert.Equal(t, []string{"what is chlorophyll?"}, fx.answerer.queries)
	require.NotEmpty(t, actions)
	assert.Equal(t, "grounded answer", actions[0].Text)
	assert.Equal(t, []string{contract.EventUserAsksQuestion}, fx.events.types())
}

func TestRuntime_MessageWhileReviewingResumesLearning(t *testing.T) {
	fx := newRuntimeFixture()
	fx.seedSession(t, contract.StateReviewing)

	_, err := fx.runtime.ProcessMessage(context.Background(), projectID, userID, "explain q2 again")
	require.NoError(t, err)

	session, _ := fx.sessions.GetLatest(context.Background(), projectID, userID)
	assert.Equal(t, contract.StateLearning, session.State)
	assert.Equal(t, []string{contract.EventUserResumesLearning}, fx.events.types())
	assert.Equal(t, []string{"explain q2 again"}, fx.answerer.queries)
}

func TestRuntime_MessageAfterCompletionStartsOver(t *testing.T) {
	fx := newRuntimeFixture()
	fx.seedSession(t, contract.StateCompleted)

	_, err := fx.runtime.ProcessMessage(context.Background(), projectID, userID, "hi again")
	require.NoError(t, err)

	session, _ := fx.sessions.GetLatest(context.Background(), projectID, userID)
	assert.Equal(t, contract.StateLearning, session.State)
	assert.Equal(t, []string{contract.EventSessionReset, contract.EventUserStartsLearning}, fx.events.types())
}

func TestRuntime_StartTestWithoutPublishedTests(t *testing.T) {
	fx := newRuntimeFixture()
	fx.seedSession(t, contract.StateLearning)

	_, err := fx.runtime.StartTest(context.Background(), projectID, userID, nil)
	assert.ErrorIs(t, err, ErrNoTests)
}

func TestRuntime_FullTestFlow(t *testing.T) {
	fx := newRuntimeFixture()
	fx.seedSession(t, contract.StateLearning)
	test := fx.publishTest(t)

	actions, err := fx.runtime.StartTest(context.Background(), projectID, userID, nil)
	require.NoError(t, err)

	session, _ := fx.sessions.GetLatest(context.Background(), projectID, userID)
	assert.Equal(t, contract.StateTesting, session.State)
	require.NotNil(t, session.CurrentTestID)
	assert.Equal(t, test.ID, *session.CurrentTestID)

	var showTest *contract.BotAction
	for i := range actions {
		if actions[i].Type == contract.ActionShowTest {
			showTest = &actions[i]
		}
	}
	require.NotNil(t, showTest)
	assert.Equal(t, test.ID, showTest.TestID)
	require.NotEmpty(t, showTest.AttemptID)

	answers := map[string]contract.AnswerValue{
		"q1": contract.TextAnswer("chlorophyll"),
		"q2": contract.TextAnswer("chloroplast"),
		"q3": contract.TextAnswer("oxygen"),
	}
	resultActions, err := fx.runtime.SubmitTest(context.Background(), projectID, userID, showTest.AttemptID, answers)
	require.NoError(t, err)

	session, _ = fx.sessions.GetLatest(context.Background(), projectID, userID)
	assert.Equal(t, contract.StateReviewing, session.State)
	assert.Nil(t, session.CurrentTestID)

	require.NotNil(t, fx.checker.gotSpec)
	assert.Equal(t, "Cell biology", fx.checker.gotSpec.Topic)
	assert.Equal(t, answers, fx.checker.gotAnsws)

	require.Len(t, fx.tests.submissions, 1)
	require.Len(t, fx.tests.checks, 1)
	assert.Equal(t, 85, fx.tests.checks[0].Score)
	assert.True(t, fx.tests.checks[0].Passed)

	attempt := fx.tests.attempts[showTest.AttemptID]
	assert.Equal(t, model.AttemptStatusChecked, attempt.Status)
	require.NotNil(t, attempt.FinishedAt)

	require.NotEmpty(t, resultActions)
	assert.Contains(t, resultActions[0].Text, "Score: 85/100")
	assert.Contains(t, resultActions[0].Text, "Solid understanding.")

	assert.Equal(t, []string{
		contract.EventUserStartsTest,
		contract.EventUserSubmitsAnswers,
		contract.EventCheckCompleted,
	}, fx.events.types())
}

func TestRuntime_StartTestWhileTestingWritesNothing(t *testing.T) {
	fx := newRuntimeFixture()
	fx.seedSession(t, contract.StateTesting)
	fx.publishTest(t)

	_, err := fx.runtime.StartTest(context.Background(), projectID, userID, nil)
	assert.ErrorIs(t, err, ErrIllegalTransition)
	assert.Empty(t, fx.tests.attempts)
	assert.Empty(t, fx.events.types())
}

func TestRuntime_SubmitTestOutsideTestingWritesNothing(t *testing.T) {
	fx := newRuntimeFixture()
	fx.seedSession(t, contract.StateLearning)
	test := fx.publishTest(t)

	attempt := &model.TestAttempt{ProjectID: projectID, UserID: userID, TestID: test.ID, Status: model.AttemptStatusStarted}
	require.NoError(t, fx.tests.CreateAttempt(context.Background(), attempt))

	_, err := fx.runtime.SubmitTest(context.Background(), projectID, userID, attempt.ID, map[string]contract.AnswerValue{
		"q1": contract.TextAnswer("chlorophyll"),
	})
	assert.ErrorIs(t, err, ErrIllegalTransition)
	assert.Empty(t, fx.tests.submissions)
	assert.Equal(t, model.AttemptStatusStarted, fx.tests.attempts[attempt.ID].Status)
	assert.Empty(t, fx.events.types())
}

func TestRuntime_SubmitUnknownAttempt(t *testing.T) {
	fx := newRuntimeFixture()
	fx.seedSession(t, contract.StateTesting)
	fx.publishTest(t)

	_, err := fx.runtime.SubmitTest(context.Background(), projectID, userID, uuid.NewString(), nil)
	assert.ErrorIs(t, err, ErrAttemptNotFound)
}

func TestRuntime_RequestHomeworkIllegalWhileTesting(t *testing.T) {
	fx := newRuntimeFixture()
	fx.seedSession(t, contract.StateTesting)

	_, err := fx.runtime.RequestHomework(context.Background(), projectID, userID)
	assert.ErrorIs(t, err, ErrIllegalTransition)
}

func TestRuntime_CompleteSessionFromReviewing(t *testing.T) {
	fx := newRuntimeFixture()
	fx.seedSession(t, contract.StateReviewing)

	actions, err := fx.runtime.CompleteSession(context.Background(), projectID, userID)
	require.NoError(t, err)
	require.NotEmpty(t, actions)

	session, _ := fx.sessions.GetLatest(context.Background(), projectID, userID)
	assert.Equal(t, contract.StateCompleted, session.State)
}

func TestRuntime_GetSessionReportsAvailableEvents(t *testing.T) {
	fx := newRuntimeFixture()
	fx.seedSession(t, contract.StateReviewing)

	session, events, err := fx.runtime.GetSession(context.Background(), projectID, userID)
	require.NoError(t, err)
	assert.Equal(t, contract.StateReviewing, session.State)
	assert.Equal(t, []string{
		contract.EventUserResumesLearning,
		contract.EventUserStartsTest,
		contract.EventUserRequestsHomework,
		contract.EventUserCompletesSession,
	}, events)
}

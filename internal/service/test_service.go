package service

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/kurslab/tutorium/internal/ai"
	"github.com/kurslab/tutorium/internal/contract"
	"github.com/kurslab/tutorium/internal/model"
	"github.com/kurslab/tutorium/internal/repository"
	"github.com/rs/zerolog/log"
)

const (
	JobStatusRunning   = "RUNNING"
	JobStatusCompleted = "COMPLETED"
	JobStatusFailed    = "FAILED"
)

// GenerationJob tracks one background test-generation run. Partial success
// is COMPLETED with fewer test IDs than requested.
type GenerationJob struct {
	ID        string    `json:"id"`
	ProjectID string    `json:"project_id"`
	Status    string    `json:"status"`
	Requested int       `json:"requested"`
	TestIDs   []string  `json:"test_ids"`
	Errors    []string  `json:"errors,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}

type GenerateTestsParams struct {
	ProjectID     string
	Topic         string
	Difficulty    string
	Count         int
	QuestionCount int
}

type TestService interface {
	GenerateTests(params GenerateTestsParams) (*GenerationJob, error)
	GetJob(jobID string) (*GenerationJob, bool)
	Publish(ctx context.Context, testID string) (*model.Test, error)
	List(ctx context.Context, projectID, status string) ([]model.Test, error)
	Get(ctx context.Context, testID string) (*model.Test, error)
}

const testGenSystemPrompt = "You are a methodologist creating assessment tests from course material. " +
	"Write clear, unambiguous questions at the requested difficulty. Respond with JSON only."

type testService struct {
	tests      repository.TestRepository
	pipeline   *ai.Pipeline
	validator  *ai.SchemaValidator
	dispatcher *EventDispatcher
	timeout    time.Duration

	mu   sync.RWMutex
	jobs map[string]*GenerationJob
}

func NewTestService(tests repository.TestRepository, pipeline *ai.Pipeline, validator *ai.SchemaValidator, dispatcher *EventDispatcher) TestService {
	return &testService{
		tests:      tests,
		pipeline:   pipeline,
		validator:  validator,
		dispatcher: dispatcher,
		timeout:    5 * time.Minute,
		jobs:       make(map[string]*GenerationJob),
	}
}

// GenerateTests starts a background generation run and returns immediately
// with the job handle. Each requested test goes through its own
// validate-repair loop; a spec that exhausts its retries is skipped and
// recorded on the job instead of failing the whole run.
func (s *testService) GenerateTests(params GenerateTestsParams) (*GenerationJob, error) {
	if params.Count < 1 {
		params.Count = 1
	}
	if params.QuestionCount < 3 {
		params.QuestionCount = 5
	}
	if params.Difficulty == "" {
		params.Difficulty = contract.DifficultyMedium
	}

	job := &GenerationJob{
		ID:        uuid.NewString(),
		ProjectID: params.ProjectID,
		Status:    JobStatusRunning,
		Requested: params.Count,
		TestIDs:   []string{},
		CreatedAt: time.Now(),
	}
	s.mu.Lock()
	s.jobs[job.ID] = job
	s.mu.Unlock()

	go s.runGeneration(job.ID, params)
	return job, nil
}

func (s *testService) GetJob(jobID string) (*GenerationJob, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	job, ok := s.jobs[jobID]
	if !ok {
		return nil, false
	}
	copied := *job
	copied.TestIDs = append([]string(nil), job.TestIDs...)
	copied.Errors = append([]string(nil), job.Errors...)
	return &copied, true
}

func (s *testService) runGeneration(jobID string, params GenerateTestsParams) {
	ctx, cancel := context.WithTimeout(context.Background(), s.timeout)
	defer cancel()

	for i := 0; i < params.Count; i++ {
		spec, err := s.generateSpec(ctx, params)
		if err != nil {
			log.Error().Err(err).Str("job_id", jobID).Int("index", i).Msg("Test generation attempt exhausted")
			s.recordJobError(jobID, fmt.Sprintf("test %d: %v", i+1, err))
			continue
		}

		raw, err := json.Marshal(spec)
		if err != nil {
			s.recordJobError(jobID, fmt.Sprintf("test %d: %v", i+1, err))
			continue
		}
		test := &model.Test{
			ProjectID:  params.ProjectID,
			Topic:      spec.Topic,
			Difficulty: spec.Difficulty,
			Spec:       raw,
			Status:     model.TestStatusDraft,
		}
		if err := s.tests.Create(ctx, test); err != nil {
			log.Error().Err(err).Str("job_id", jobID).Msg("Failed to persist generated test")
			s.recordJobError(jobID, fmt.Sprintf("test %d: persist failed: %v", i+1, err))
			continue
		}
		s.recordJobTest(jobID, test.ID)
	}

	s.finishJob(jobID)

	if job, ok := s.GetJob(jobID); ok && len(job.TestIDs) > 0 {
		err := s.dispatcher.Emit(ctx, params.ProjectID, "", nil, "tests_generated", map[string]any{
			"job_id":   jobID,
			"test_ids": job.TestIDs,
		})
		if err != nil {
			log.Warn().Err(err).Str("job_id", jobID).Msg("Failed to record tests_generated event")
		}
	}
}

func (s *testService) generateSpec(ctx context.Context, params GenerateTestsParams) (*contract.TestSpec, error) {
	prompt := fmt.Sprintf(
		"Create a test on the topic %q with exactly %d questions at %s difficulty. "+
			"Mix multiple_choice and short_answer questions. "+
			"Respond with a JSON object: {\"topic\": string, \"difficulty\": \"easy\"|\"medium\"|\"hard\", "+
			"\"passingScore\": number, \"questions\": [{\"id\": string, \"type\": \"multiple_choice\"|\"short_answer\", "+
			"\"text\": string, \"options\": [string] (multiple_choice only), "+
			"\"correctAnswer\": array of option indices for multiple_choice or a string for short_answer, "+
			"\"explanation\": string, \"points\": number}]}",
		params.Topic, params.QuestionCount, params.Difficulty,
	)

	return ai.GenerateValidated(ctx, s.pipeline, ai.GenerateParams{
		Prompt:       prompt,
		SystemPrompt: testGenSystemPrompt,
	}, func(raw json.RawMessage) (*contract.TestSpec, []string) {
		var spec contract.TestSpec
		if err := json.Unmarshal(raw, &spec); err != nil {
			return nil, []string{fmt.Sprintf("response is not valid JSON for the test schema: %v", err)}
		}
		if violations := s.validator.ValidateTestSpec(&spec); len(violations) > 0 {
			return nil, violations
		}
		return &spec, nil
	})
}

func (s *testService) recordJobTest(jobID, testID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if job, ok := s.jobs[jobID]; ok {
		job.TestIDs = append(job.TestIDs, testID)
	}
}

func (s *testService) recordJobError(jobID, msg string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if job, ok := s.jobs[jobID]; ok {
		job.Errors = append(job.Errors, msg)
	}
}

func (s *testService) finishJob(jobID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	job, ok := s.jobs[jobID]
	if !ok {
		return
	}
	if len(job.TestIDs) == 0 {
		job.Status = JobStatusFailed
	} else {
		job.Status = JobStatusCompleted
	}
}

func (s *testService) Publish(ctx context.Context, testID string) (*model.Test, error) {
	return s.tests.Publish(ctx, testID)
}

func (s *testService) List(ctx context.Context, projectID, status string) ([]model.Test, error) {
	return s.tests.ListByProject(ctx, projectID, status)
}

func (s *testService) Get(ctx context.Context, testID string) (*model.Test, error) {
	return s.tests.FindByID(ctx, testID)
}

package service

import (
	"errors"
	"fmt"

	"github.com/kurslab/tutorium/internal/contract"
)

var (
	ErrUnknownEvent      = errors.New("unknown session event")
	ErrIllegalTransition = errors.New("illegal state transition")
)

type transitionRule struct {
	from []contract.LearningState
	to   contract.LearningState
}

// eventTransitions maps each event to its sole transition. An event fired
// from a state outside its from-set is rejected.
var eventTransitions = map[string]transitionRule{
	contract.EventUserStartsLearning: {
		from: []contract.LearningState{contract.StateIdle},
		to:   contract.StateLearning,
	},
	contract.EventUserAsksQuestion: {
		from: []contract.LearningState{contract.StateLearning},
		to:   contract.StateLearning,
	},
	contract.EventUserResumesLearning: {
		from: []contract.LearningState{contract.StateReviewing},
		to:   contract.StateLearning,
	},
	contract.EventUserStartsTest: {
		from: []contract.LearningState{contract.StateIdle, contract.StateLearning, contract.StateReviewing},
		to:   contract.StateTesting,
	},
	contract.EventUserSubmitsAnswers: {
		from: []contract.LearningState{contract.StateTesting},
		to:   contract.StateSubmitting,
	},
	contract.EventCheckCompleted: {
		from: []contract.LearningState{contract.StateSubmitting},
		to:   contract.StateReviewing,
	},
	contract.EventUserRequestsHomework: {
		from: []contract.LearningState{contract.StateLearning, contract.StateReviewing},
		to:   contract.StateHomeworkPending,
	},
	contract.EventUserSubmitsHomework: {
		from: []contract.LearningState{contract.StateHomeworkPending},
		to:   contract.StateHomeworkSubmitted,
	},
	contract.EventAdminReviews: {
		from: []contract.LearningState{contract.StateHomeworkSubmitted},
		to:   contract.StateCompleted,
	},
	contract.EventUserCompletesSession: {
		from: []contract.LearningState{contract.StateReviewing, contract.StateHomeworkSubmitted},
		to:   contract.StateCompleted,
	},
	contract.EventSessionReset: {
		from: []contract.LearningState{contract.StateCompleted},
		to:   contract.StateIdle,
	},
}

// eventOrder fixes the iteration order for AvailableEvents; map iteration
// would make the list nondeterministic.
var eventOrder = []string{
	contract.EventUserStartsLearning,
	contract.EventUserAsksQuestion,
	contract.EventUserResumesLearning,
	contract.EventUserStartsTest,
	contract.EventUserSubmitsAnswers,
	contract.EventCheckCompleted,
	contract.EventUserRequestsHomework,
	contract.EventUserSubmitsHomework,
	contract.EventAdminReviews,
	contract.EventUserCompletesSession,
	contract.EventSessionReset,
}

// allowedTargets is the per-state allow-list. A transition must pass both
// tables: the event's from-set and the current state's target set.
var allowedTargets = map[contract.LearningState][]contract.LearningState{
	contract.StateIdle:              {contract.StateLearning, contract.StateTesting},
	contract.StateLearning:          {contract.StateLearning, contract.StateTesting, contract.StateHomeworkPending},
	contract.StateTesting:           {contract.StateSubmitting},
	contract.StateSubmitting:        {contract.StateReviewing},
	contract.StateReviewing:         {contract.StateTesting, contract.StateHomeworkPending, contract.StateCompleted, contract.StateLearning},
	contract.StateHomeworkPending:   {contract.StateHomeworkSubmitted},
	contract.StateHomeworkSubmitted: {contract.StateCompleted},
	contract.StateCompleted:         {contract.StateIdle},
}

// StateMachine validates session transitions. It holds no state of its own;
// all methods are pure table lookups.
type StateMachine struct{}

func NewStateMachine() *StateMachine {
	return &StateMachine{}
}

// Transition returns the state the event leads to from current, or an error
// wrapping ErrUnknownEvent / ErrIllegalTransition.
func (m *StateMachine) Transition(current contract.LearningState, event string) (contract.LearningState, error) {
	rule, ok := eventTransitions[event]
	if !ok {
		return "", fmt.Errorf("%w: %q", ErrUnknownEvent, event)
	}
	if !containsState(rule.from, current) {
		return "", fmt.Errorf("%w: event %q is not valid in state %s", ErrIllegalTransition, event, current)
	}
	if !containsState(allowedTargets[current], rule.to) {
		return "", fmt.Errorf("%w: state %s does not allow moving to %s", ErrIllegalTransition, current, rule.to)
	}
	return rule.to, nil
}

// CanTransition reports whether the event is legal in the current state.
func (m *StateMachine) CanTransition(current contract.LearningState, event string) bool {
	_, err := m.Transition(current, event)
	return err == nil
}

// AvailableEvents lists the events legal in the given state, in a fixed
// order.
func (m *StateMachine) AvailableEvents(current contract.LearningState) []string {
	events := make([]string, 0, 4)
	for _, event := range eventOrder {
		if m.CanTransition(current, event) {
			events = append(events, event)
		}
	}
	return events
}

func containsState(states []contract.LearningState, s contract.LearningState) bool {
	for _, candidate := range states {
		if candidate == s {
			return true
		}
	}
	return false
}

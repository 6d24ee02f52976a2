package service

import (
	"context"
	"encoding/json"

	"github.com/kurslab/tutorium/internal/model"
	"github.com/kurslab/tutorium/internal/repository"
	"github.com/rs/zerolog/log"
)

// EventHandler reacts to a persisted domain event. Handler failures are
// logged and never fail the emitting operation.
type EventHandler func(ctx context.Context, event *model.DomainEvent) error

// EventDispatcher persists every domain event and fans it out to registered
// handlers. Persistence happens before dispatch so the log stays complete
// even when a handler misbehaves.
type EventDispatcher struct {
	events   repository.EventRepository
	handlers map[string][]EventHandler
}

func NewEventDispatcher(events repository.EventRepository) *EventDispatcher {
	return &EventDispatcher{
		events:   events,
		handlers: make(map[string][]EventHandler),
	}
}

// Subscribe registers a handler for one event type. Registration is expected
// at wiring time, before any Emit.
func (d *EventDispatcher) Subscribe(eventType string, handler EventHandler) {
	d.handlers[eventType] = append(d.handlers[eventType], handler)
}

// Emit records the event and notifies handlers. The returned error covers
// persistence only.
func (d *EventDispatcher) Emit(ctx context.Context, projectID, userID string, sessionID *string, eventType string, payload any) error {
	event := &model.DomainEvent{
		ProjectID: projectID,
		SessionID: sessionID,
		Type:      eventType,
	}
	if userID != "" {
		event.UserID = &userID
	}
	if payload != nil {
		raw, err := json.Marshal(payload)
		if err != nil {
			log.Error().Err(err).Str("event_type", eventType).Msg("Failed to marshal event payload")
		} else {
			event.Payload = raw
		}
	}

	if err := d.events.Create(ctx, event); err != nil {
		return err
	}

	for _, handler := range d.handlers[eventType] {
		if err := handler(ctx, event); err != nil {
			log.Error().Err(err).Str("event_type", eventType).Str("event_id", event.ID).Msg("Event handler failed")
		}
	}
	return nil
}

// Package events defines the event types carried on the delivery bus:
// record change notifications and queued outbound deliveries handed off to
// worker processes.
package events

import (
	"time"

	"github.com/google/uuid"

	"github.com/pulsecrm/pulse/pkg/models"
)

type EventType string

// Kafka topic for all pulse events.
const Topic = "pulse.events"

const EventMetadataKey = "key"
const EventTypeMetadataKey = "event_type"

const (
	// RecordChangedEvent announces a record lifecycle event after the
	// workflow engine has run for it.
	RecordChangedEvent EventType = "record.changed"

	// Delivery events queued by the engines and drained by workers.
	EmailQueuedEvent    EventType = "delivery.email.queued"
	OutboundQueuedEvent EventType = "delivery.outbound.queued"
)

type BaseEvent struct {
	ID        string         `json:"id"`
	Type      EventType      `json:"type"`
	Timestamp time.Time      `json:"timestamp"`
	Metadata  map[string]any `json:"metadata,omitempty"`
}

func newBaseEvent(eventType EventType) BaseEvent {
	return BaseEvent{
		ID:        uuid.New().String(),
		Type:      eventType,
		Timestamp: time.Now().UTC(),
	}
}

// RecordChanged is published after automation ran for a record lifecycle
// event, carrying the per-action results for downstream consumers.
type RecordChanged struct {
	BaseEvent

	EntityType string                   `json:"entity_type"`
	RecordID   int64                    `json:"record_id"`
	Event      models.EventKind         `json:"event"`
	Actor      string                   `json:"actor,omitempty"`
	Results    []models.ExecutionResult `json:"results,omitempty"`
}

func NewRecordChanged(entityType string, recordID int64, event models.EventKind, actor string, results []models.ExecutionResult) RecordChanged {
	return RecordChanged{
		BaseEvent:  newBaseEvent(RecordChangedEvent),
		EntityType: entityType,
		RecordID:   recordID,
		Event:      event,
		Actor:      actor,
		Results:    results,
	}
}

func (e RecordChanged) GetType() EventType {
	return RecordChangedEvent
}

// EmailQueued is an email alert handed off for asynchronous delivery.
type EmailQueued struct {
	BaseEvent

	To      []string `json:"to"`
	Subject string   `json:"subject"`
	Body    string   `json:"body"`
}

func NewEmailQueued(to []string, subject, body string) EmailQueued {
	return EmailQueued{
		BaseEvent: newBaseEvent(EmailQueuedEvent),
		To:        to,
		Subject:   subject,
		Body:      body,
	}
}

func (e EmailQueued) GetType() EventType {
	return EmailQueuedEvent
}

// OutboundQueued is an outbound message handed off for asynchronous
// delivery to an external endpoint.
type OutboundQueued struct {
	BaseEvent

	URL     string         `json:"url"`
	Payload map[string]any `json:"payload"`
}

func NewOutboundQueued(url string, payload map[string]any) OutboundQueued {
	return OutboundQueued{
		BaseEvent: newBaseEvent(OutboundQueuedEvent),
		URL:       url,
		Payload:   payload,
	}
}

func (e OutboundQueued) GetType() EventType {
	return OutboundQueuedEvent
}

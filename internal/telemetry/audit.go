package telemetry

import (
	"context"
	"log"
	"time"
)

const (
	EventReconciliationNeeded = "reconciliation_needed"
	EventRecoveryNeeded       = "recovery_needed"
)

type Publisher interface {
	Publish(ctx context.Context, routingKey string, event any) error
	Close() error
}

type AuditEmitter struct {
	publisher   Publisher
	routingKey  string
	service     string
	environment string
	now         func() time.Time
}

type AuditEnvelope struct {
	SchemaVersion int          `json:"schema_version"`
	EventType     string       `json:"event_type"`
	OccurredAt    string       `json:"occurred_at"`
	Service       string       `json:"service"`
	Environment   string       `json:"environment"`
	Payload       AuditPayload `json:"payload"`
}

type AuditPayload struct {
	Level   string         `json:"level"`
	Text    string         `json:"text"`
	Details map[string]any `json:"details,omitempty"`
}

func NewAuditEmitter(publisher Publisher, routingKey, service, environment string) *AuditEmitter {
	return &AuditEmitter{
		publisher:   publisher,
		routingKey:  routingKey,
		service:     service,
		environment: environment,
		now:         time.Now,
	}
}

// Emit logs and publishes an audit envelope. A nil emitter only logs.
func (e *AuditEmitter) Emit(ctx context.Context, eventType, level, text string, details map[string]any) {
	log.Printf("audit emit: event_type=%s level=%s text=%q details=%v", eventType, level, text, details)
	if e == nil || e.publisher == nil {
		return
	}

	envelope := AuditEnvelope{
		SchemaVersion: 1,
		EventType:     eventType,
		OccurredAt:    e.now().UTC().Format(time.RFC3339Nano),
		Service:       e.service,
		Environment:   e.environment,
		Payload: AuditPayload{
			Level:   level,
			Text:    text,
			Details: details,
		},
	}

	if err := e.publisher.Publish(ctx, e.routingKey, envelope); err != nil {
		log.Printf("audit publish failed: %v", err)
	}
}

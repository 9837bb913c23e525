package events

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/wecr8/damp-backend/pkg/enums"
)

const envelopeVersion = 1

// Envelope is the wire format shared by every transport and the analytics worker.
type Envelope struct {
	Version       int             `json:"version"`
	EventID       string          `json:"eventId"`
	EventType     enums.EventType `json:"eventType"`
	AggregateType string          `json:"aggregateType"`
	AggregateID   string          `json:"aggregateId"`
	OccurredAt    time.Time       `json:"occurredAt"`
	Data          json.RawMessage `json:"data"`
}

func NewEnvelope(eventType enums.EventType, aggregateType, aggregateID string, data any, now time.Time) (Envelope, error) {
	if !eventType.IsValid() {
		return Envelope{}, fmt.Errorf("unknown event type %q", eventType)
	}
	raw, err := json.Marshal(data)
	if err != nil {
		return Envelope{}, fmt.Errorf("marshal %s payload: %w", eventType, err)
	}
	return Envelope{
		Version:       envelopeVersion,
		EventID:       uuid.NewString(),
		EventType:     eventType,
		AggregateType: aggregateType,
		AggregateID:   aggregateID,
		OccurredAt:    now.UTC(),
		Data:          raw,
	}, nil
}

// Attributes are the routing attributes attached to transport messages.
func (e Envelope) Attributes() map[string]string {
	return map[string]string{
		"event_id":       e.EventID,
		"event_type":     string(e.EventType),
		"aggregate_type": e.AggregateType,
		"aggregate_id":   e.AggregateID,
		"occurred_at":    e.OccurredAt.Format(time.RFC3339Nano),
	}
}

// Decode parses a published envelope.
func Decode(raw []byte) (Envelope, error) {
	var env Envelope
	if err := json.Unmarshal(raw, &env); err != nil {
		return Envelope{}, fmt.Errorf("decode envelope: %w", err)
	}
	if env.EventID == "" {
		return Envelope{}, fmt.Errorf("envelope missing event id")
	}
	if !env.EventType.IsValid() {
		return Envelope{}, fmt.Errorf("envelope has unknown event type %q", env.EventType)
	}
	return env, nil
}

package analytics

import (
	"time"

	"cloud.google.com/go/bigquery"
	"github.com/wecr8/damp-backend/internal/events"
)

// EventRow is one domain event as stored in the BigQuery events table.
type EventRow struct {
	EventID       string
	EventType     string
	AggregateType string
	AggregateID   string
	OccurredAt    time.Time
	IngestedAt    time.Time
	Payload       bigquery.NullJSON
}

// NewEventRow flattens an envelope into a row.
func NewEventRow(env events.Envelope, ingestedAt time.Time) EventRow {
	row := EventRow{
		EventID:       env.EventID,
		EventType:     string(env.EventType),
		AggregateType: env.AggregateType,
		AggregateID:   env.AggregateID,
		OccurredAt:    env.OccurredAt.UTC(),
		IngestedAt:    ingestedAt.UTC(),
	}
	if len(env.Data) > 0 && string(env.Data) != "null" {
		row.Payload = bigquery.NullJSON{Valid: true, JSONVal: string(env.Data)}
	}
	return row
}

// Save implements bigquery.ValueSaver. The event id doubles as the insert id so
// BigQuery's streaming dedupe drops retried inserts of the same event.
func (r *EventRow) Save() (map[string]bigquery.Value, string, error) {
	values := map[string]bigquery.Value{
		"event_id":       r.EventID,
		"event_type":     r.EventType,
		"aggregate_type": r.AggregateType,
		"aggregate_id":   r.AggregateID,
		"occurred_at":    r.OccurredAt,
		"ingested_at":    r.IngestedAt,
	}
	if r.Payload.Valid {
		values["payload"] = r.Payload.JSONVal
	} else {
		values["payload"] = nil
	}
	return values, r.EventID, nil
}

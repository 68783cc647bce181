package events

import (
	"time"

	"github.com/Ramsey-B/fern/pkg/models"
)

// EventType defines the type of event
type EventType string

const (
	EventTypeRunCompleted EventType = "transform.run.completed"
	EventTypeRunFailed    EventType = "transform.run.failed"
	EventTypeBatchStored  EventType = "ingestion.batch.stored"
)

// SchemaVersion is the current event schema version
const SchemaVersion = "1.0"

// RunEventData is the body of a transform run event
type RunEventData struct {
	RunID        string           `json:"run_id"`
	Status       models.RunStatus `json:"run_status"`
	PrimaryType  string           `json:"primary_type,omitempty"`
	RowsIn       int              `json:"rows_in"`
	RowsOut      int              `json:"rows_out"`
	StartedAt    time.Time        `json:"started_at"`
	EndedAt      *time.Time       `json:"ended_at,omitempty"`
	ErrorMessage *string          `json:"error_message,omitempty"`
}

// BatchEventData is the body of an ingestion event
type BatchEventData struct {
	SourceID      string `json:"source_id"`
	RowsRead      int    `json:"rows_read"`
	RowsStored    int    `json:"rows_stored"`
	Relationships int    `json:"relationships"`
}

// Package events emits dataset lifecycle events
package events

import (
	"context"
	"encoding/json"

	"github.com/Gobusters/ectologger"

	"github.com/Ramsey-B/fern/pkg/kafka"
	"github.com/Ramsey-B/fern/pkg/models"
	"github.com/Ramsey-B/fern/pkg/tracing"
)

// Publisher sends one event
type Publisher interface {
	Publish(ctx context.Context, event *kafka.Event) error
}

// Emitter builds and publishes lifecycle events. With no publisher every
// emit is a no-op.
type Emitter struct {
	publisher Publisher
	logger    ectologger.Logger
}

func NewEmitter(publisher Publisher, logger ectologger.Logger) *Emitter {
	return &Emitter{
		publisher: publisher,
		logger:    logger,
	}
}

// EmitRunFinished emits transform.run.completed or transform.run.failed
func (e *Emitter) EmitRunFinished(ctx context.Context, run *models.TransformRun, primaryType string) error {
	ctx, span := tracing.StartSpan(ctx, "events.Emitter.EmitRunFinished")
	defer span.End()

	eventType := EventTypeRunCompleted
	if run.Status == models.RunStatusFailed {
		eventType = EventTypeRunFailed
	}

	return e.emit(ctx, eventType, run.DatasetID, RunEventData{
		RunID:        run.ID,
		Status:       run.Status,
		PrimaryType:  primaryType,
		RowsIn:       run.RowsIn,
		RowsOut:      run.RowsOut,
		StartedAt:    run.StartedAt,
		EndedAt:      run.EndedAt,
		ErrorMessage: run.ErrorMessage,
	})
}

// EmitBatchStored emits ingestion.batch.stored
func (e *Emitter) EmitBatchStored(ctx context.Context, result *models.IngestResult) error {
	ctx, span := tracing.StartSpan(ctx, "events.Emitter.EmitBatchStored")
	defer span.End()

	return e.emit(ctx, EventTypeBatchStored, result.DatasetID, BatchEventData{
		SourceID:      result.SourceID,
		RowsRead:      result.RowsRead,
		RowsStored:    result.RowsStored,
		Relationships: result.Relationships,
	})
}

func (e *Emitter) emit(ctx context.Context, eventType EventType, datasetID string, data any) error {
	if e == nil || e.publisher == nil {
		return nil
	}

	body, err := json.Marshal(data)
	if err != nil {
		return err
	}

	event := &kafka.Event{
		EventType:     string(eventType),
		SchemaVersion: SchemaVersion,
		DatasetID:     datasetID,
		Data:          body,
	}

	if err := e.publisher.Publish(ctx, event); err != nil {
		e.logger.WithContext(ctx).WithError(err).Errorf("Failed to emit %s event", eventType)
		return err
	}

	return nil
}

package events

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/Gobusters/ectologger"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Ramsey-B/fern/pkg/kafka"
	"github.com/Ramsey-B/fern/pkg/models"
)

type fakePublisher struct {
	events []*kafka.Event
	err    error
}

func (f *fakePublisher) Publish(_ context.Context, event *kafka.Event) error {
	if f.err != nil {
		return f.err
	}
	f.events = append(f.events, event)
	return nil
}

func testLogger() ectologger.Logger {
	return ectologger.NewEctoLogger(func(_ ectologger.EctoLogMessage) {})
}

func TestEmitter_EmitRunFinished(t *testing.T) {
	msg := "boom"
	tests := []struct {
		name     string
		run      *models.TransformRun
		wantType string
	}{
		{
			name:     "should emit completed for a successful run",
			run:      &models.TransformRun{ID: "run-1", DatasetID: "ds-1", Status: models.RunStatusSuccess, RowsIn: 3, RowsOut: 1},
			wantType: "transform.run.completed",
		},
		{
			name:     "should emit failed for a failed run",
			run:      &models.TransformRun{ID: "run-2", DatasetID: "ds-1", Status: models.RunStatusFailed, ErrorMessage: &msg},
			wantType: "transform.run.failed",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			publisher := &fakePublisher{}
			emitter := NewEmitter(publisher, testLogger())

			require.NoError(t, emitter.EmitRunFinished(context.Background(), tt.run, "order"))

			require.Len(t, publisher.events, 1)
			event := publisher.events[0]
			assert.Equal(t, tt.wantType, event.EventType)
			assert.Equal(t, "ds-1", event.DatasetID)
			assert.Equal(t, SchemaVersion, event.SchemaVersion)

			var data RunEventData
			require.NoError(t, json.Unmarshal(event.Data, &data))
			assert.Equal(t, tt.run.ID, data.RunID)
			assert.Equal(t, "order", data.PrimaryType)
		})
	}
}

func TestEmitter_EmitBatchStored(t *testing.T) {
	publisher := &fakePublisher{}
	emitter := NewEmitter(publisher, testLogger())

	err := emitter.EmitBatchStored(context.Background(), &models.IngestResult{DatasetID: "ds-1", SourceID: "src-1", RowsRead: 3, RowsStored: 2, Relationships: 1})

	require.NoError(t, err)
	require.Len(t, publisher.events, 1)
	assert.Equal(t, "ingestion.batch.stored", publisher.events[0].EventType)
	assert.JSONEq(t, `{"source_id":"src-1","rows_read":3,"rows_stored":2,"relationships":1}`, string(publisher.events[0].Data))
}

func TestEmitter_NoPublisher(t *testing.T) {
	emitter := NewEmitter(nil, testLogger())

	err := emitter.EmitRunFinished(context.Background(), &models.TransformRun{ID: "run-1", StartedAt: time.Now()}, "")

	assert.NoError(t, err)
}

func TestEmitter_PublishError(t *testing.T) {
	emitter := NewEmitter(&fakePublisher{err: errors.New("broker down")}, testLogger())

	err := emitter.EmitBatchStored(context.Background(), &models.IngestResult{DatasetID: "ds-1"})

	assert.EqualError(t, err, "broker down")
}

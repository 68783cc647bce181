package ingestion

import (
	"context"
	"errors"
	"net/http"
	"testing"

	"github.com/Gobusters/ectoerror/httperror"
	"github.com/Gobusters/ectologger"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Ramsey-B/fern/pkg/models"
)

const (
	datasetID = "0b6f1f8e-3c55-4f0e-9a51-7d1f0f3c9a10"
	sourceA   = "6a2b7c4d-1e2f-4a3b-8c9d-0e1f2a3b4c5d"
	sourceB   = "9f8e7d6c-5b4a-4392-8170-6f5e4d3c2b1a"
)

type fakeSources struct{}

func (fakeSources) Get(_ context.Context, _ string, sourceID string) (*models.Source, error) {
	if sourceID != sourceA && sourceID != sourceB {
		return nil, httperror.NewHTTPErrorf(http.StatusNotFound, "source %s not found", sourceID)
	}
	return &models.Source{ID: sourceID, DatasetID: datasetID}, nil
}

type fakeDatasets struct {
	statuses []models.DatasetStatus
}

func (f *fakeDatasets) UpdateStatus(_ context.Context, _ string, status models.DatasetStatus) error {
	f.statuses = append(f.statuses, status)
	return nil
}

type fakeRecords struct {
	records   []models.RawRecord
	insertErr error
}

func (f *fakeRecords) ExistingHashes(_ context.Context, sourceID string, hashes []string) (map[string]bool, error) {
	wanted := make(map[string]bool, len(hashes))
	for _, h := range hashes {
		wanted[h] = true
	}
	existing := make(map[string]bool)
	for _, r := range f.records {
		if r.SourceID == sourceID && wanted[r.PayloadHash] {
			existing[r.PayloadHash] = true
		}
	}
	return existing, nil
}

func (f *fakeRecords) InsertBatch(_ context.Context, records []models.RawRecord) error {
	if f.insertErr != nil {
		return f.insertErr
	}
	f.records = append(f.records, records...)
	return nil
}

func (f *fakeRecords) ListByDataset(context.Context, string) ([]models.RawRecord, error) {
	return f.records, nil
}

type fakeRelationships struct {
	keys map[string]models.Relationship
}

func (f *fakeRelationships) InsertBatch(_ context.Context, rels []models.Relationship) (int, error) {
	if f.keys == nil {
		f.keys = make(map[string]models.Relationship)
	}
	inserted := 0
	for _, r := range rels {
		key := r.RelationType + "|" + r.FromID + "|" + r.ToID
		if _, ok := f.keys[key]; ok {
			continue
		}
		f.keys[key] = r
		inserted++
	}
	return inserted, nil
}

type passthroughUnitOfWork struct{}

func (passthroughUnitOfWork) InTx(ctx context.Context, fn func(ctx context.Context) error) error {
	return fn(ctx)
}

type fakeEvents struct {
	results []models.IngestResult
}

func (f *fakeEvents) EmitBatchStored(_ context.Context, result *models.IngestResult) error {
	f.results = append(f.results, *result)
	return nil
}

type harness struct {
	datasets *fakeDatasets
	records  *fakeRecords
	rels     *fakeRelationships
	events   *fakeEvents
	service  *Service
}

func newHarness() *harness {
	h := &harness{
		datasets: &fakeDatasets{},
		records:  &fakeRecords{},
		rels:     &fakeRelationships{},
		events:   &fakeEvents{},
	}
	logger := ectologger.NewEctoLogger(func(_ ectologger.EctoLogMessage) {})
	h.service = NewService(logger, h.datasets, fakeSources{}, h.records, h.rels, passthroughUnitOfWork{}, h.events)
	return h
}

func strPtr(v string) *string { return &v }

func TestService_Ingest(t *testing.T) {
	ctx := context.Background()

	t.Run("should store records and link sources sharing a customer id", func(t *testing.T) {
		h := newHarness()

		first, err := h.service.Ingest(ctx, models.RecordBatch{
			DatasetID:  datasetID,
			SourceID:   sourceA,
			RecordType: strPtr("customer"),
			Records:    []models.Payload{{"id": "A1", "customer_id": "CUST-100", "email": "a@x.com"}},
		})
		require.NoError(t, err)
		assert.Equal(t, 1, first.RowsStored)
		assert.Equal(t, 0, first.Relationships)

		second, err := h.service.Ingest(ctx, models.RecordBatch{
			DatasetID:  datasetID,
			SourceID:   sourceB,
			RecordType: strPtr("customer"),
			Records:    []models.Payload{{"id": "B1", "customer_id": "CUST-100", "phone": "555-1"}},
		})
		require.NoError(t, err)
		assert.Equal(t, 1, second.RowsStored)
		assert.Equal(t, 1, second.Relationships)

		require.Len(t, h.rels.keys, 1)
		for _, rel := range h.rels.keys {
			assert.Equal(t, "shared_customer_id", rel.RelationType)
			assert.Equal(t, datasetID, rel.DatasetID)
			assert.NotEmpty(t, rel.ID)
		}

		assert.Equal(t, []models.DatasetStatus{models.DatasetStatusIngested, models.DatasetStatusIngested}, h.datasets.statuses)
		assert.Len(t, h.events.results, 2)
	})

	t.Run("should stamp the record type without overwriting a payload table", func(t *testing.T) {
		h := newHarness()

		_, err := h.service.Ingest(ctx, models.RecordBatch{
			DatasetID:  datasetID,
			SourceID:   sourceA,
			RecordType: strPtr("order"),
			Records: []models.Payload{
				{"order_id": "O-1"},
				{"__table__": "invoice", "invoice_id": "I-1"},
			},
		})
		require.NoError(t, err)

		require.Len(t, h.records.records, 2)
		assert.Equal(t, "order", h.records.records[0].Payload.Data["__table__"])
		assert.Equal(t, "order", *h.records.records[0].RecordType)
		assert.Equal(t, "invoice", *h.records.records[1].RecordType)
		assert.Contains(t, h.records.records[0].CandidateIDs, "O-1")
	})

	t.Run("should skip payloads already stored or repeated in the batch", func(t *testing.T) {
		h := newHarness()
		batch := models.RecordBatch{
			DatasetID: datasetID,
			SourceID:  sourceA,
			Records: []models.Payload{
				{"__table__": "order", "order_id": "O-1"},
				{"order_id": "O-1", "__table__": "order"},
			},
		}

		first, err := h.service.Ingest(ctx, batch)
		require.NoError(t, err)
		assert.Equal(t, 2, first.RowsRead)
		assert.Equal(t, 1, first.RowsStored)

		again, err := h.service.Ingest(ctx, batch)
		require.NoError(t, err)
		assert.Equal(t, 0, again.RowsStored)
		assert.Len(t, h.records.records, 1)
	})

	t.Run("should reject an invalid batch", func(t *testing.T) {
		h := newHarness()

		_, err := h.service.Ingest(ctx, models.RecordBatch{DatasetID: datasetID, SourceID: sourceA})

		require.Error(t, err)
		assert.Equal(t, http.StatusBadRequest, httperror.GetStatusCode(err))
	})

	t.Run("should return not found for an unknown source", func(t *testing.T) {
		h := newHarness()

		_, err := h.service.Ingest(ctx, models.RecordBatch{
			DatasetID: datasetID,
			SourceID:  "11111111-2222-4333-8444-555555555555",
			Records:   []models.Payload{{"id": 1}},
		})

		assert.Equal(t, http.StatusNotFound, httperror.GetStatusCode(err))
	})

	t.Run("should surface storage failures without emitting", func(t *testing.T) {
		h := newHarness()
		h.records.insertErr = errors.New("disk full")

		_, err := h.service.Ingest(ctx, models.RecordBatch{
			DatasetID: datasetID,
			SourceID:  sourceA,
			Records:   []models.Payload{{"id": 1}},
		})

		assert.EqualError(t, err, "disk full")
		assert.Empty(t, h.events.results)
	})
}

// Package ingestion stores raw record batches and derives the relationships
// between every record of the dataset.
package ingestion

import (
	"context"
	"maps"
	"net/http"
	"time"

	"github.com/Gobusters/ectoerror/httperror"
	"github.com/Gobusters/ectologger"
	"github.com/google/uuid"

	"github.com/Ramsey-B/fern/pkg/database"
	"github.com/Ramsey-B/fern/pkg/fingerprint"
	"github.com/Ramsey-B/fern/pkg/identity"
	"github.com/Ramsey-B/fern/pkg/metrics"
	"github.com/Ramsey-B/fern/pkg/models"
	"github.com/Ramsey-B/fern/pkg/relationships"
	"github.com/Ramsey-B/fern/pkg/tracing"
	"github.com/Ramsey-B/fern/pkg/utils"
)

type SourceStore interface {
	Get(ctx context.Context, datasetID, sourceID string) (*models.Source, error)
}

type DatasetStore interface {
	UpdateStatus(ctx context.Context, datasetID string, status models.DatasetStatus) error
}

type RecordStore interface {
	ExistingHashes(ctx context.Context, sourceID string, hashes []string) (map[string]bool, error)
	InsertBatch(ctx context.Context, records []models.RawRecord) error
	ListByDataset(ctx context.Context, datasetID string) ([]models.RawRecord, error)
}

type RelationshipStore interface {
	// InsertBatch stores relationships, skipping ones already present, and
	// returns how many were new.
	InsertBatch(ctx context.Context, relationships []models.Relationship) (int, error)
}

type UnitOfWork interface {
	InTx(ctx context.Context, fn func(ctx context.Context) error) error
}

type EventEmitter interface {
	EmitBatchStored(ctx context.Context, result *models.IngestResult) error
}

type Service struct {
	logger        ectologger.Logger
	datasets      DatasetStore
	sources       SourceStore
	records       RecordStore
	relationships RelationshipStore
	uow           UnitOfWork
	events        EventEmitter
	deriver       *relationships.Deriver
	now           func() time.Time
}

func NewService(
	logger ectologger.Logger,
	datasets DatasetStore,
	sources SourceStore,
	records RecordStore,
	rels RelationshipStore,
	uow UnitOfWork,
	events EventEmitter,
) *Service {
	return &Service{
		logger:        logger,
		datasets:      datasets,
		sources:       sources,
		records:       records,
		relationships: rels,
		uow:           uow,
		events:        events,
		deriver:       relationships.NewDeriver(logger),
		now:           func() time.Time { return time.Now().UTC() },
	}
}

// Ingest stores the batch's new payloads and re-derives the dataset's
// relationships. Payloads already stored for the source are skipped.
func (s *Service) Ingest(ctx context.Context, batch models.RecordBatch) (*models.IngestResult, error) {
	ctx, span := tracing.StartSpan(ctx, "ingestion.Service.Ingest")
	defer span.End()

	log := s.logger.WithContext(ctx).WithFields(map[string]any{
		"dataset_id": batch.DatasetID,
		"source_id":  batch.SourceID,
		"rows_read":  len(batch.Records),
	})

	if _, err := utils.Validate(batch); err != nil {
		return nil, httperror.WrapError(http.StatusBadRequest, err)
	}

	source, err := s.sources.Get(ctx, batch.DatasetID, batch.SourceID)
	if err != nil {
		return nil, err
	}

	candidates := s.prepare(batch)
	hashes := make([]string, 0, len(candidates))
	for _, record := range candidates {
		hashes = append(hashes, record.PayloadHash)
	}

	result := &models.IngestResult{
		DatasetID: batch.DatasetID,
		SourceID:  source.ID,
		RowsRead:  len(batch.Records),
	}

	err = s.uow.InTx(ctx, func(ctx context.Context) error {
		existing, err := s.records.ExistingHashes(ctx, source.ID, hashes)
		if err != nil {
			return err
		}

		fresh := make([]models.RawRecord, 0, len(candidates))
		for _, record := range candidates {
			if !existing[record.PayloadHash] {
				fresh = append(fresh, record)
			}
		}
		if len(fresh) > 0 {
			if err := s.records.InsertBatch(ctx, fresh); err != nil {
				return err
			}
		}
		result.RowsStored = len(fresh)

		all, err := s.records.ListByDataset(ctx, batch.DatasetID)
		if err != nil {
			return err
		}

		derived := s.deriver.DeriveAcrossSources(ctx, groupBySource(all))
		for i := range derived {
			derived[i].ID = uuid.New().String()
			derived[i].DatasetID = batch.DatasetID
		}
		if len(derived) > 0 {
			inserted, err := s.relationships.InsertBatch(ctx, derived)
			if err != nil {
				return err
			}
			result.Relationships = inserted
		}

		return s.datasets.UpdateStatus(ctx, batch.DatasetID, models.DatasetStatusIngested)
	})
	if err != nil {
		log.WithError(err).Error("Failed to ingest batch")
		return nil, err
	}

	metrics.RecordIngestion(result.RowsRead, result.RowsStored, result.Relationships)

	log.WithFields(map[string]any{
		"rows_stored":   result.RowsStored,
		"relationships": result.Relationships,
	}).Info("Ingested batch")

	if s.events != nil {
		if err := s.events.EmitBatchStored(ctx, result); err != nil {
			log.WithError(err).Warn("Failed to emit ingestion event")
		}
	}

	return result, nil
}

// prepare turns the batch into raw records, dropping payloads repeated
// within the batch.
func (s *Service) prepare(batch models.RecordBatch) []models.RawRecord {
	now := s.now()
	seen := make(map[string]struct{}, len(batch.Records))
	records := make([]models.RawRecord, 0, len(batch.Records))

	for _, raw := range batch.Records {
		payload := maps.Clone(raw)
		if payload == nil {
			payload = models.Payload{}
		}
		if batch.RecordType != nil {
			if _, ok := payload[identity.TableKey]; !ok {
				payload[identity.TableKey] = *batch.RecordType
			}
		}

		hash := fingerprint.Hash(payload)
		if _, dup := seen[hash]; dup {
			continue
		}
		seen[hash] = struct{}{}

		id := uuid.New().String()
		record := models.RawRecord{
			ID:           id,
			DatasetID:    batch.DatasetID,
			SourceID:     batch.SourceID,
			Payload:      database.NewJSONB(payload),
			PayloadHash:  hash,
			CandidateIDs: identity.CollectCandidateIDs(payload, id),
			CreatedAt:    now,
		}
		if t := identity.NormalizeType(identity.ResolveType(payload)); t != "" {
			record.RecordType = &t
		}
		records = append(records, record)
	}

	return records
}

// groupBySource splits records by source in first-seen order.
func groupBySource(records []models.RawRecord) []relationships.SourceRecords {
	index := make(map[string]int)
	var batches []relationships.SourceRecords
	for i := range records {
		sourceID := records[i].SourceID
		pos, ok := index[sourceID]
		if !ok {
			pos = len(batches)
			index[sourceID] = pos
			batches = append(batches, relationships.SourceRecords{SourceID: sourceID})
		}
		batches[pos].Records = append(batches[pos].Records, records[i].Payload.GetValue())
	}
	return batches
}

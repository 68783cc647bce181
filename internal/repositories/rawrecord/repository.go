package rawrecord

import (
	"context"
	"net/http"

	"github.com/Gobusters/ectoerror/httperror"
	"github.com/Gobusters/ectologger"
	"github.com/huandu/go-sqlbuilder"
	"github.com/lib/pq"

	"github.com/Ramsey-B/fern/pkg/database"
	"github.com/Ramsey-B/fern/pkg/models"
	"github.com/Ramsey-B/fern/pkg/tracing"
)

const table = "integration.raw_record"

var columns = []string{"raw_record_id", "dataset_id", "source_id", "payload", "payload_hash", "record_type", "candidate_ids", "created_at"}

// Repository handles raw record persistence
type Repository struct {
	db     database.DB
	logger ectologger.Logger
}

// NewRepository creates a new raw record repository
func NewRepository(db database.DB, logger ectologger.Logger) *Repository {
	return &Repository{
		db:     db,
		logger: logger,
	}
}

// ExistingHashes returns which of the payload hashes are already stored for the source
func (r *Repository) ExistingHashes(ctx context.Context, sourceID string, hashes []string) (map[string]bool, error) {
	ctx, span := tracing.StartSpan(ctx, "rawrecord.Repository.ExistingHashes")
	defer span.End()

	existing := make(map[string]bool)
	if len(hashes) == 0 {
		return existing, nil
	}

	sb := sqlbuilder.PostgreSQL.NewSelectBuilder()
	sb.Select("payload_hash")
	sb.From(table)
	sb.Where(
		sb.Equal("source_id", sourceID),
		"payload_hash = ANY("+sb.Var(pq.Array(hashes))+")",
	)

	query, args := sb.Build()
	var found []string
	if err := database.Executor(ctx, r.db).SelectContext(ctx, &found, query, args...); err != nil {
		r.logger.WithContext(ctx).WithError(err).Error("Failed to look up payload hashes")
		return nil, httperror.NewHTTPError(http.StatusInternalServerError, "failed to look up raw records")
	}

	for _, hash := range found {
		existing[hash] = true
	}
	return existing, nil
}

// InsertBatch stores raw records; a payload already stored for its source is skipped
func (r *Repository) InsertBatch(ctx context.Context, records []models.RawRecord) error {
	ctx, span := tracing.StartSpan(ctx, "rawrecord.Repository.InsertBatch")
	defer span.End()

	if len(records) == 0 {
		return nil
	}

	log := r.logger.WithContext(ctx).WithFields(map[string]any{
		"dataset_id": records[0].DatasetID,
		"source_id":  records[0].SourceID,
		"count":      len(records),
	})

	ib := database.NewInsertBuilder(table, columns...)
	for _, rec := range records {
		ib.Values(rec.ID, rec.DatasetID, rec.SourceID, rec.Payload, rec.PayloadHash, rec.RecordType, rec.CandidateIDs, rec.CreatedAt)
	}
	ib.OnConflictDoNothing("source_id", "payload_hash")

	query, args := ib.Build()
	if _, err := database.Executor(ctx, r.db).ExecContext(ctx, query, args...); err != nil {
		log.WithError(err).Error("Failed to insert raw records")
		return httperror.NewHTTPError(http.StatusInternalServerError, "failed to store raw records")
	}

	log.Debug("Inserted raw records")
	return nil
}

// ListByDataset returns every raw record of the dataset in ingestion order
func (r *Repository) ListByDataset(ctx context.Context, datasetID string) ([]models.RawRecord, error) {
	ctx, span := tracing.StartSpan(ctx, "rawrecord.Repository.ListByDataset")
	defer span.End()

	sb := sqlbuilder.PostgreSQL.NewSelectBuilder()
	sb.Select(columns...)
	sb.From(table)
	sb.Where(sb.Equal("dataset_id", datasetID))
	sb.OrderBy("created_at ASC", "raw_record_id ASC")

	query, args := sb.Build()
	var records []models.RawRecord
	if err := database.Executor(ctx, r.db).SelectContext(ctx, &records, query, args...); err != nil {
		r.logger.WithContext(ctx).WithError(err).Error("Failed to list raw records")
		return nil, httperror.NewHTTPError(http.StatusInternalServerError, "failed to list raw records")
	}

	return records, nil
}

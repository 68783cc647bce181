package unifiedrow

import (
	"context"
	"net/http"

	"github.com/Gobusters/ectoerror/httperror"
	"github.com/Gobusters/ectologger"
	"github.com/huandu/go-sqlbuilder"

	"github.com/Ramsey-B/fern/pkg/database"
	"github.com/Ramsey-B/fern/pkg/models"
	"github.com/Ramsey-B/fern/pkg/tracing"
)

const table = "integration.unified_row"

var columns = []string{"unified_row_id", "dataset_id", "source_id", "record_key", "data", "is_excluded", "observed_at", "ingested_at"}

const (
	DefaultPageSize = 100
	MaxPageSize     = 1000
)

// Repository handles unified row persistence
type Repository struct {
	db     database.DB
	logger ectologger.Logger
}

// NewRepository creates a new unified row repository
func NewRepository(db database.DB, logger ectologger.Logger) *Repository {
	return &Repository{
		db:     db,
		logger: logger,
	}
}

// DeleteByDataset removes every unified row of the dataset
func (r *Repository) DeleteByDataset(ctx context.Context, datasetID string) error {
	ctx, span := tracing.StartSpan(ctx, "unifiedrow.Repository.DeleteByDataset")
	defer span.End()

	log := r.logger.WithContext(ctx).WithFields(map[string]any{
		"dataset_id": datasetID,
	})

	db := sqlbuilder.PostgreSQL.NewDeleteBuilder()
	db.DeleteFrom(table)
	db.Where(db.Equal("dataset_id", datasetID))

	query, args := db.Build()
	result, err := database.Executor(ctx, r.db).ExecContext(ctx, query, args...)
	if err != nil {
		log.WithError(err).Error("Failed to delete unified rows")
		return httperror.NewHTTPError(http.StatusInternalServerError, "failed to delete unified rows")
	}

	deleted, _ := result.RowsAffected()
	log.WithFields(map[string]any{"deleted": deleted}).Debug("Deleted unified rows")
	return nil
}

// InsertBatch stores unified rows in one statement
func (r *Repository) InsertBatch(ctx context.Context, rows []models.UnifiedRow) error {
	ctx, span := tracing.StartSpan(ctx, "unifiedrow.Repository.InsertBatch")
	defer span.End()

	if len(rows) == 0 {
		return nil
	}

	ib := database.NewInsertBuilder(table, columns...)
	for _, row := range rows {
		ib.Values(row.ID, row.DatasetID, row.SourceID, row.RecordKey, row.Data, row.IsExcluded, row.ObservedAt, row.IngestedAt)
	}

	query, args := ib.Build()
	if _, err := database.Executor(ctx, r.db).ExecContext(ctx, query, args...); err != nil {
		r.logger.WithContext(ctx).WithError(err).WithFields(map[string]any{
			"dataset_id": rows[0].DatasetID,
			"count":      len(rows),
		}).Error("Failed to insert unified rows")
		return httperror.NewHTTPError(http.StatusInternalServerError, "failed to store unified rows")
	}

	return nil
}

// ListByDataset pages through the dataset's unified rows ordered by record key
func (r *Repository) ListByDataset(ctx context.Context, datasetID string, limit, offset int) ([]models.UnifiedRow, error) {
	ctx, span := tracing.StartSpan(ctx, "unifiedrow.Repository.ListByDataset")
	defer span.End()

	if limit <= 0 {
		limit = DefaultPageSize
	}
	if limit > MaxPageSize {
		limit = MaxPageSize
	}
	if offset < 0 {
		offset = 0
	}

	sb := sqlbuilder.PostgreSQL.NewSelectBuilder()
	sb.Select(columns...)
	sb.From(table)
	sb.Where(sb.Equal("dataset_id", datasetID))
	sb.OrderBy("record_key ASC", "unified_row_id ASC")
	sb.Limit(limit)
	sb.Offset(offset)

	query, args := sb.Build()
	rows := []models.UnifiedRow{}
	if err := database.Executor(ctx, r.db).SelectContext(ctx, &rows, query, args...); err != nil {
		r.logger.WithContext(ctx).WithError(err).Error("Failed to list unified rows")
		return nil, httperror.NewHTTPError(http.StatusInternalServerError, "failed to list unified rows")
	}

	return rows, nil
}

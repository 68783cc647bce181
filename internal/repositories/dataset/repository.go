package dataset

import (
	"context"
	"database/sql"
	"errors"
	"net/http"
	"time"

	"github.com/Gobusters/ectoerror/httperror"
	"github.com/Gobusters/ectologger"
	"github.com/huandu/go-sqlbuilder"

	"github.com/Ramsey-B/fern/pkg/database"
	"github.com/Ramsey-B/fern/pkg/models"
	"github.com/Ramsey-B/fern/pkg/tracing"
)

const table = "integration.dataset"

var columns = []string{"dataset_id", "name", "primary_record_type", "status", "created_at", "updated_at"}

// Repository handles dataset persistence
type Repository struct {
	db     database.DB
	logger ectologger.Logger
}

// NewRepository creates a new dataset repository
func NewRepository(db database.DB, logger ectologger.Logger) *Repository {
	return &Repository{
		db:     db,
		logger: logger,
	}
}

// Get retrieves a dataset by ID
func (r *Repository) Get(ctx context.Context, datasetID string) (*models.Dataset, error) {
	ctx, span := tracing.StartSpan(ctx, "dataset.Repository.Get")
	defer span.End()

	sb := sqlbuilder.PostgreSQL.NewSelectBuilder()
	sb.Select(columns...)
	sb.From(table)
	sb.Where(sb.Equal("dataset_id", datasetID))

	query, args := sb.Build()
	var dataset models.Dataset
	if err := database.Executor(ctx, r.db).GetContext(ctx, &dataset, query, args...); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, httperror.NewHTTPErrorf(http.StatusNotFound, "dataset %s not found", datasetID)
		}
		r.logger.WithContext(ctx).WithError(err).Error("Failed to get dataset")
		return nil, httperror.NewHTTPError(http.StatusInternalServerError, "failed to get dataset")
	}

	return &dataset, nil
}

// UpdatePrimaryRecordType stores the record type unified rows are anchored on
func (r *Repository) UpdatePrimaryRecordType(ctx context.Context, datasetID, primaryType string) error {
	ctx, span := tracing.StartSpan(ctx, "dataset.Repository.UpdatePrimaryRecordType")
	defer span.End()

	return r.update(ctx, datasetID, "primary_record_type", primaryType)
}

// UpdateStatus moves the dataset to a new lifecycle status
func (r *Repository) UpdateStatus(ctx context.Context, datasetID string, status models.DatasetStatus) error {
	ctx, span := tracing.StartSpan(ctx, "dataset.Repository.UpdateStatus")
	defer span.End()

	return r.update(ctx, datasetID, "status", string(status))
}

func (r *Repository) update(ctx context.Context, datasetID, column string, value any) error {
	log := r.logger.WithContext(ctx).WithFields(map[string]any{
		"dataset_id": datasetID,
		column:       value,
	})

	ub := sqlbuilder.PostgreSQL.NewUpdateBuilder()
	ub.Update(table)
	ub.Set(
		ub.Assign(column, value),
		ub.Assign("updated_at", time.Now().UTC()),
	)
	ub.Where(ub.Equal("dataset_id", datasetID))

	query, args := ub.Build()
	result, err := database.Executor(ctx, r.db).ExecContext(ctx, query, args...)
	if err != nil {
		log.WithError(err).Error("Failed to update dataset")
		return httperror.NewHTTPError(http.StatusInternalServerError, "failed to update dataset")
	}
	if affected, _ := result.RowsAffected(); affected == 0 {
		return httperror.NewHTTPErrorf(http.StatusNotFound, "dataset %s not found", datasetID)
	}

	log.Debug("Updated dataset")
	return nil
}

package transformrun

import (
	"context"
	"database/sql"
	"errors"
	"net/http"

	"github.com/Gobusters/ectoerror/httperror"
	"github.com/Gobusters/ectologger"
	"github.com/huandu/go-sqlbuilder"

	"github.com/Ramsey-B/fern/pkg/database"
	"github.com/Ramsey-B/fern/pkg/models"
	"github.com/Ramsey-B/fern/pkg/tracing"
)

const table = "integration.transform_run"

var columns = []string{"transform_run_id", "dataset_id", "run_status", "started_at", "ended_at", "rows_in", "rows_out", "error_message"}

// Repository handles transform run persistence
type Repository struct {
	db     database.DB
	logger ectologger.Logger
}

// NewRepository creates a new transform run repository
func NewRepository(db database.DB, logger ectologger.Logger) *Repository {
	return &Repository{
		db:     db,
		logger: logger,
	}
}

// Create stores a new run
func (r *Repository) Create(ctx context.Context, run *models.TransformRun) error {
	ctx, span := tracing.StartSpan(ctx, "transformrun.Repository.Create")
	defer span.End()

	log := r.logger.WithContext(ctx).WithFields(map[string]any{
		"dataset_id": run.DatasetID,
		"run_id":     run.ID,
	})

	ib := database.NewInsertBuilder(table, columns...)
	ib.Values(run.ID, run.DatasetID, string(run.Status), run.StartedAt, run.EndedAt, run.RowsIn, run.RowsOut, run.ErrorMessage)

	query, args := ib.Build()
	if _, err := database.Executor(ctx, r.db).ExecContext(ctx, query, args...); err != nil {
		log.WithError(err).Error("Failed to create transform run")
		return httperror.NewHTTPError(http.StatusInternalServerError, "failed to create transform run")
	}

	log.Info("Created transform run")
	return nil
}

// Update stores the run's status, counters and error
func (r *Repository) Update(ctx context.Context, run *models.TransformRun) error {
	ctx, span := tracing.StartSpan(ctx, "transformrun.Repository.Update")
	defer span.End()

	ub := sqlbuilder.PostgreSQL.NewUpdateBuilder()
	ub.Update(table)
	ub.Set(
		ub.Assign("run_status", string(run.Status)),
		ub.Assign("ended_at", run.EndedAt),
		ub.Assign("rows_in", run.RowsIn),
		ub.Assign("rows_out", run.RowsOut),
		ub.Assign("error_message", run.ErrorMessage),
	)
	ub.Where(ub.Equal("transform_run_id", run.ID))

	query, args := ub.Build()
	if _, err := database.Executor(ctx, r.db).ExecContext(ctx, query, args...); err != nil {
		r.logger.WithContext(ctx).WithError(err).WithFields(map[string]any{
			"run_id": run.ID,
		}).Error("Failed to update transform run")
		return httperror.NewHTTPError(http.StatusInternalServerError, "failed to update transform run")
	}

	return nil
}

// Get retrieves a run of the dataset
func (r *Repository) Get(ctx context.Context, datasetID, runID string) (*models.TransformRun, error) {
	ctx, span := tracing.StartSpan(ctx, "transformrun.Repository.Get")
	defer span.End()

	sb := sqlbuilder.PostgreSQL.NewSelectBuilder()
	sb.Select(columns...)
	sb.From(table)
	sb.Where(
		sb.Equal("transform_run_id", runID),
		sb.Equal("dataset_id", datasetID),
	)

	query, args := sb.Build()
	var run models.TransformRun
	if err := database.Executor(ctx, r.db).GetContext(ctx, &run, query, args...); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, httperror.NewHTTPErrorf(http.StatusNotFound, "transform run %s not found", runID)
		}
		r.logger.WithContext(ctx).WithError(err).Error("Failed to get transform run")
		return nil, httperror.NewHTTPError(http.StatusInternalServerError, "failed to get transform run")
	}

	return &run, nil
}

// ListByDataset returns the dataset's most recent runs first
func (r *Repository) ListByDataset(ctx context.Context, datasetID string, limit int) ([]models.TransformRun, error) {
	ctx, span := tracing.StartSpan(ctx, "transformrun.Repository.ListByDataset")
	defer span.End()

	if limit <= 0 || limit > 100 {
		limit = 20
	}

	sb := sqlbuilder.PostgreSQL.NewSelectBuilder()
	sb.Select(columns...)
	sb.From(table)
	sb.Where(sb.Equal("dataset_id", datasetID))
	sb.OrderBy("started_at DESC")
	sb.Limit(limit)

	query, args := sb.Build()
	runs := []models.TransformRun{}
	if err := database.Executor(ctx, r.db).SelectContext(ctx, &runs, query, args...); err != nil {
		r.logger.WithContext(ctx).WithError(err).Error("Failed to list transform runs")
		return nil, httperror.NewHTTPError(http.StatusInternalServerError, "failed to list transform runs")
	}

	return runs, nil
}

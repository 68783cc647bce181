package datasetfield

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

// Repository handles dataset field persistence
type Repository struct {
	db     database.DB
	logger ectologger.Logger
}

// NewRepository creates a new dataset field repository
func NewRepository(db database.DB, logger ectologger.Logger) *Repository {
	return &Repository{
		db:     db,
		logger: logger,
	}
}

// ListByDataset returns the dataset's target fields ordered by position, unpositioned last
func (r *Repository) ListByDataset(ctx context.Context, datasetID string) ([]models.DatasetField, error) {
	ctx, span := tracing.StartSpan(ctx, "datasetfield.Repository.ListByDataset")
	defer span.End()

	sb := sqlbuilder.PostgreSQL.NewSelectBuilder()
	sb.Select("dataset_field_id", "dataset_id", "name", "dtype", "is_nullable", "is_unique", "position", "default_expr")
	sb.From("integration.dataset_field")
	sb.Where(sb.Equal("dataset_id", datasetID))
	sb.OrderBy("position ASC NULLS LAST", "name ASC")

	query, args := sb.Build()
	var fields []models.DatasetField
	if err := database.Executor(ctx, r.db).SelectContext(ctx, &fields, query, args...); err != nil {
		r.logger.WithContext(ctx).WithError(err).Error("Failed to list dataset fields")
		return nil, httperror.NewHTTPError(http.StatusInternalServerError, "failed to list dataset fields")
	}

	return fields, nil
}

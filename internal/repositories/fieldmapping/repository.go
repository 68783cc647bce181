package fieldmapping

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

// Repository handles field mapping persistence
type Repository struct {
	db     database.DB
	logger ectologger.Logger
}

// NewRepository creates a new field mapping repository
func NewRepository(db database.DB, logger ectologger.Logger) *Repository {
	return &Repository{
		db:     db,
		logger: logger,
	}
}

// ListByDataset returns every mapping of the dataset
func (r *Repository) ListByDataset(ctx context.Context, datasetID string) ([]models.FieldMapping, error) {
	ctx, span := tracing.StartSpan(ctx, "fieldmapping.Repository.ListByDataset")
	defer span.End()

	sb := sqlbuilder.PostgreSQL.NewSelectBuilder()
	sb.Select("dataset_mapping_id", "dataset_id", "source_id", "dataset_field_id", "src_path", "src_json_path", "transform_type", "required", "priority")
	sb.From("integration.dataset_mapping")
	sb.Where(sb.Equal("dataset_id", datasetID))
	sb.OrderBy("priority ASC NULLS LAST", "dataset_mapping_id ASC")

	query, args := sb.Build()
	var mappings []models.FieldMapping
	if err := database.Executor(ctx, r.db).SelectContext(ctx, &mappings, query, args...); err != nil {
		r.logger.WithContext(ctx).WithError(err).Error("Failed to list field mappings")
		return nil, httperror.NewHTTPError(http.StatusInternalServerError, "failed to list field mappings")
	}

	return mappings, nil
}

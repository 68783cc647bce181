package relationship

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

const table = "integration.relationship"

var columns = []string{"relationship_id", "dataset_id", "source_id", "from_type", "from_id", "to_type", "to_id", "relation_type", "payload", "ingested_at"}

// Repository handles relationship persistence
type Repository struct {
	db     database.DB
	logger ectologger.Logger
}

// NewRepository creates a new relationship repository
func NewRepository(db database.DB, logger ectologger.Logger) *Repository {
	return &Repository{
		db:     db,
		logger: logger,
	}
}

// InsertBatch stores relationships and returns how many were new. An edge
// already stored for the dataset is left untouched.
func (r *Repository) InsertBatch(ctx context.Context, relationships []models.Relationship) (int, error) {
	ctx, span := tracing.StartSpan(ctx, "relationship.Repository.InsertBatch")
	defer span.End()

	if len(relationships) == 0 {
		return 0, nil
	}

	log := r.logger.WithContext(ctx).WithFields(map[string]any{
		"dataset_id": relationships[0].DatasetID,
		"count":      len(relationships),
	})

	ib := database.NewInsertBuilder(table, columns...)
	for _, rel := range relationships {
		ib.Values(rel.ID, rel.DatasetID, rel.SourceID, rel.FromType, rel.FromID, rel.ToType, rel.ToID, rel.RelationType, rel.Payload, rel.IngestedAt)
	}
	ib.OnConflictDoNothing("dataset_id", "relation_type", "from_id", "to_id")

	query, args := ib.Build()
	result, err := database.Executor(ctx, r.db).ExecContext(ctx, query, args...)
	if err != nil {
		log.WithError(err).Error("Failed to insert relationships")
		return 0, httperror.NewHTTPError(http.StatusInternalServerError, "failed to store relationships")
	}

	inserted, err := result.RowsAffected()
	if err != nil {
		log.WithError(err).Warn("Failed to read inserted relationship count")
		return 0, nil
	}

	log.WithFields(map[string]any{"inserted": inserted}).Debug("Inserted relationships")
	return int(inserted), nil
}

// ListByDataset returns every relationship of the dataset
func (r *Repository) ListByDataset(ctx context.Context, datasetID string) ([]models.Relationship, error) {
	ctx, span := tracing.StartSpan(ctx, "relationship.Repository.ListByDataset")
	defer span.End()

	sb := sqlbuilder.PostgreSQL.NewSelectBuilder()
	sb.Select(columns...)
	sb.From(table)
	sb.Where(sb.Equal("dataset_id", datasetID))
	sb.OrderBy("ingested_at ASC NULLS LAST", "relationship_id ASC")

	query, args := sb.Build()
	var relationships []models.Relationship
	if err := database.Executor(ctx, r.db).SelectContext(ctx, &relationships, query, args...); err != nil {
		r.logger.WithContext(ctx).WithError(err).Error("Failed to list relationships")
		return nil, httperror.NewHTTPError(http.StatusInternalServerError, "failed to list relationships")
	}

	return relationships, nil
}

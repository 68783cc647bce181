package transform

import (
	"context"
	"time"

	"github.com/Ramsey-B/fern/pkg/graph"
	"github.com/Ramsey-B/fern/pkg/models"
)

type DatasetStore interface {
	Get(ctx context.Context, datasetID string) (*models.Dataset, error)
	UpdatePrimaryRecordType(ctx context.Context, datasetID, primaryType string) error
	UpdateStatus(ctx context.Context, datasetID string, status models.DatasetStatus) error
}

type FieldStore interface {
	ListByDataset(ctx context.Context, datasetID string) ([]models.DatasetField, error)
}

type MappingStore interface {
	ListByDataset(ctx context.Context, datasetID string) ([]models.FieldMapping, error)
}

type RecordStore interface {
	ListByDataset(ctx context.Context, datasetID string) ([]models.RawRecord, error)
}

type RelationshipStore interface {
	ListByDataset(ctx context.Context, datasetID string) ([]models.Relationship, error)
}

type RowStore interface {
	DeleteByDataset(ctx context.Context, datasetID string) error
	InsertBatch(ctx context.Context, rows []models.UnifiedRow) error
}

type RunStore interface {
	Create(ctx context.Context, run *models.TransformRun) error
	Update(ctx context.Context, run *models.TransformRun) error
}

// UnitOfWork runs fn in one transaction carried on the context.
type UnitOfWork interface {
	InTx(ctx context.Context, fn func(ctx context.Context) error) error
}

// Locker serializes runs per dataset.
type Locker interface {
	WithLock(ctx context.Context, name string, ttl time.Duration, fn func() error) error
}

// Projector mirrors a dataset's relationship graph into a graph database.
type Projector interface {
	Project(ctx context.Context, datasetID string, g *graph.Graph) error
}

// EventEmitter publishes run lifecycle events.
type EventEmitter interface {
	EmitRunFinished(ctx context.Context, run *models.TransformRun, primaryType string) error
}

// Stores groups the persistence a run reads and writes.
type Stores struct {
	Datasets      DatasetStore
	Fields        FieldStore
	Mappings      MappingStore
	Records       RecordStore
	Relationships RelationshipStore
	Rows          RowStore
	Runs          RunStore
}

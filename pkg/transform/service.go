// Package transform rebuilds a dataset's unified rows from its raw records and
// relationships as one full-replace run.
package transform

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/Gobusters/ectoerror/httperror"
	"github.com/Gobusters/ectologger"
	"github.com/google/uuid"

	"github.com/Ramsey-B/fern/pkg/database"
	appctx "github.com/Ramsey-B/fern/pkg/context"
	"github.com/Ramsey-B/fern/pkg/graph"
	"github.com/Ramsey-B/fern/pkg/identity"
	"github.com/Ramsey-B/fern/pkg/mapping"
	"github.com/Ramsey-B/fern/pkg/merging"
	"github.com/Ramsey-B/fern/pkg/metrics"
	"github.com/Ramsey-B/fern/pkg/models"
	"github.com/Ramsey-B/fern/pkg/redis"
	"github.com/Ramsey-B/fern/pkg/tracing"
)

// Config contains configuration for the transform service.
type Config struct {
	LockTTL      time.Duration // how long a run may hold the dataset lock (default: 15m)
	RowBatchSize int           // unified rows per insert statement (default: 500)
	ProjectGraph bool          // mirror the relationship graph after a successful run
}

// DefaultConfig returns sensible defaults.
func DefaultConfig() Config {
	return Config{
		LockTTL:      15 * time.Minute,
		RowBatchSize: 500,
	}
}

// Service runs transforms. Locker, Projector and Events are optional.
type Service struct {
	logger    ectologger.Logger
	stores    Stores
	uow       UnitOfWork
	locker    Locker
	projector Projector
	events    EventEmitter
	engine    *merging.Engine
	resolver  *mapping.Resolver
	cfg       Config
	now       func() time.Time
}

type Option func(*Service)

func WithLocker(l Locker) Option { return func(s *Service) { s.locker = l } }

func WithProjector(p Projector) Option { return func(s *Service) { s.projector = p } }

func WithEvents(e EventEmitter) Option { return func(s *Service) { s.events = e } }

func NewService(logger ectologger.Logger, stores Stores, uow UnitOfWork, cfg Config, opts ...Option) *Service {
	defaults := DefaultConfig()
	if cfg.LockTTL <= 0 {
		cfg.LockTTL = defaults.LockTTL
	}
	if cfg.RowBatchSize <= 0 {
		cfg.RowBatchSize = defaults.RowBatchSize
	}

	s := &Service{
		logger:   logger,
		stores:   stores,
		uow:      uow,
		engine:   merging.NewEngine(logger),
		resolver: mapping.NewResolver(logger),
		cfg:      cfg,
		now:      func() time.Time { return time.Now().UTC() },
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// LockName is the lock guarding a dataset's transform.
func LockName(datasetID string) string {
	return "transform:" + datasetID
}

// Run rebuilds the dataset's unified rows. The returned run is persisted in
// its final state whether or not the run failed.
func (s *Service) Run(ctx context.Context, datasetID string) (*models.TransformRun, error) {
	ctx, span := tracing.StartSpan(ctx, "transform.Service.Run")
	defer span.End()

	log := s.logger.WithContext(ctx).WithFields(map[string]any{
		"dataset_id": datasetID,
	})

	dataset, err := s.stores.Datasets.Get(ctx, datasetID)
	if err != nil {
		return nil, err
	}

	if s.locker == nil {
		return s.run(ctx, dataset)
	}

	var run *models.TransformRun
	err = s.locker.WithLock(ctx, LockName(datasetID), s.cfg.LockTTL, func() error {
		var runErr error
		run, runErr = s.run(ctx, dataset)
		return runErr
	})
	if errors.Is(err, redis.ErrLockNotAcquired) {
		log.Warn("Transform already in flight")
		return nil, httperror.NewHTTPErrorf(http.StatusConflict, "dataset %s already has a transform in flight", datasetID)
	}
	return run, err
}

func (s *Service) run(ctx context.Context, dataset *models.Dataset) (*models.TransformRun, error) {
	log := s.logger.WithContext(ctx).WithFields(map[string]any{
		"dataset_id": dataset.ID,
	})

	run := &models.TransformRun{
		ID:        uuid.New().String(),
		DatasetID: dataset.ID,
		Status:    models.RunStatusRunning,
		StartedAt: s.now(),
	}
	if err := s.stores.Runs.Create(ctx, run); err != nil {
		return nil, err
	}
	ctx = appctx.SetRunID(ctx, run.ID)
	log = log.WithFields(map[string]any{"run_id": run.ID})

	if err := s.stores.Datasets.UpdateStatus(ctx, dataset.ID, models.DatasetStatusTransforming); err != nil {
		log.WithError(err).Warn("Failed to mark dataset as transforming")
	}

	primaryType, g, err := s.execute(ctx, run, dataset)
	if err != nil {
		log.WithError(err).Error("Transform failed")
		s.finish(ctx, run, primaryType, err)
		return run, err
	}

	log.WithFields(map[string]any{
		"primary_type": primaryType,
		"rows_in":      run.RowsIn,
		"rows_out":     run.RowsOut,
	}).Info("Transform completed")
	s.finish(ctx, run, primaryType, nil)

	if s.cfg.ProjectGraph && s.projector != nil {
		s.project(ctx, dataset.ID, g)
	}

	return run, nil
}

// execute does the work of a run and records progress on run.
func (s *Service) execute(ctx context.Context, run *models.TransformRun, dataset *models.Dataset) (string, *graph.Graph, error) {
	ctx, span := tracing.StartSpan(ctx, "transform.Service.execute")
	defer span.End()

	fields, err := s.stores.Fields.ListByDataset(ctx, dataset.ID)
	if err != nil {
		return "", nil, err
	}
	mappings, err := s.stores.Mappings.ListByDataset(ctx, dataset.ID)
	if err != nil {
		return "", nil, err
	}
	records, err := s.stores.Records.ListByDataset(ctx, dataset.ID)
	if err != nil {
		return "", nil, err
	}
	relationships, err := s.stores.Relationships.ListByDataset(ctx, dataset.ID)
	if err != nil {
		return "", nil, err
	}

	idx := identity.BuildIndex(records)

	configured := ""
	if dataset.PrimaryRecordType != nil {
		configured = *dataset.PrimaryRecordType
	}
	primaryType := merging.ResolvePrimaryType(configured, relationships, idx, records)
	if primaryType == merging.DefaultPrimaryType {
		s.logger.WithContext(ctx).WithFields(map[string]any{
			"dataset_id": dataset.ID,
		}).Warn("No primary record type could be detected, using default")
	}
	if configured != primaryType {
		if err := s.stores.Datasets.UpdatePrimaryRecordType(ctx, dataset.ID, primaryType); err != nil {
			return primaryType, nil, err
		}
	}

	rows, rowsIn := s.buildRows(ctx, dataset.ID, primaryType, idx, relationships, fields, mappings)
	run.RowsIn = rowsIn

	err = s.uow.InTx(ctx, func(ctx context.Context) error {
		if err := s.stores.Rows.DeleteByDataset(ctx, dataset.ID); err != nil {
			return err
		}
		for start := 0; start < len(rows); start += s.cfg.RowBatchSize {
			end := min(start+s.cfg.RowBatchSize, len(rows))
			if err := s.stores.Rows.InsertBatch(ctx, rows[start:end]); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return primaryType, nil, fmt.Errorf("failed to replace unified rows: %w", err)
	}
	run.RowsOut = len(rows)

	return primaryType, graph.Build(relationships), nil
}

// buildRows clusters the records and maps each cluster onto the dataset's
// fields. It returns the rows and the number of record contexts merged.
func (s *Service) buildRows(
	ctx context.Context,
	datasetID string,
	primaryType string,
	idx *identity.Index,
	relationships []models.Relationship,
	fields []models.DatasetField,
	fieldMappings []models.FieldMapping,
) ([]models.UnifiedRow, int) {
	ctx, span := tracing.StartSpan(ctx, "transform.Service.buildRows")
	defer span.End()

	clusters := s.engine.Cluster(ctx, primaryType, idx, relationships)
	sortedFields := mapping.SortFields(fields)
	grouped := mapping.NewMappings(fieldMappings)
	now := s.now()

	rows := make([]models.UnifiedRow, 0, len(clusters))
	rowsIn := 0
	for _, cluster := range clusters {
		rowsIn += cluster.Size()
		metrics.RecordClusterSize(cluster.Size())

		data := s.resolver.Resolve(ctx, sortedFields, grouped, cluster.Merge())
		rows = append(rows, models.UnifiedRow{
			ID:         uuid.New().String(),
			DatasetID:  datasetID,
			SourceID:   cluster.SourceID(),
			RecordKey:  cluster.RecordKey(),
			Data:       database.NewJSONB(models.Payload(data)),
			IsExcluded: false,
			ObservedAt: cluster.ObservedAt(),
			IngestedAt: now,
		})
	}

	return rows, rowsIn
}

// finish persists the run's final state, updates the dataset status and
// reports the outcome. Failures here are logged, never returned.
func (s *Service) finish(ctx context.Context, run *models.TransformRun, primaryType string, runErr error) {
	log := s.logger.WithContext(ctx).WithFields(map[string]any{
		"dataset_id": run.DatasetID,
		"run_id":     run.ID,
	})

	ended := s.now()
	run.EndedAt = &ended
	datasetStatus := models.DatasetStatusFinished
	if runErr != nil {
		msg := runErr.Error()
		run.Status = models.RunStatusFailed
		run.ErrorMessage = &msg
		datasetStatus = models.DatasetStatusFailed
	} else {
		run.Status = models.RunStatusSuccess
		run.ErrorMessage = nil
	}

	if err := s.stores.Runs.Update(ctx, run); err != nil {
		log.WithError(err).Error("Failed to persist transform run status")
	}
	if err := s.stores.Datasets.UpdateStatus(ctx, run.DatasetID, datasetStatus); err != nil {
		log.WithError(err).Error("Failed to update dataset status")
	}

	metrics.RecordTransformRun(string(run.Status), run.RowsIn, run.RowsOut, ended.Sub(run.StartedAt).Seconds())

	if s.events != nil {
		if err := s.events.EmitRunFinished(ctx, run, primaryType); err != nil {
			log.WithError(err).Warn("Failed to emit transform run event")
		}
	}
}

func (s *Service) project(ctx context.Context, datasetID string, g *graph.Graph) {
	log := s.logger.WithContext(ctx).WithFields(map[string]any{
		"dataset_id": datasetID,
	})

	if err := s.projector.Project(ctx, datasetID, g); err != nil {
		metrics.RecordGraphProjection("error")
		log.WithError(err).Warn("Graph projection failed")
		return
	}
	metrics.RecordGraphProjection("ok")
}

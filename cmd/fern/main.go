package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/Gobusters/ectoerror/httperror"
	"github.com/Gobusters/ectoinject"
	"github.com/Gobusters/ectoinject/ectocontainer"
	"github.com/Gobusters/ectoinject/loglevel"
	"github.com/Gobusters/ectologger"
	"github.com/Gobusters/ectologger/zapadapter"
	"github.com/golang-migrate/migrate/v4/database/postgres"
	"github.com/jmoiron/sqlx"
	"github.com/labstack/echo/v4"
	echomiddleware "github.com/labstack/echo/v4/middleware"
	_ "github.com/lib/pq"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/contrib/instrumentation/github.com/labstack/echo/otelecho"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/Ramsey-B/fern/config"
	"github.com/Ramsey-B/fern/internal/repositories/dataset"
	"github.com/Ramsey-B/fern/internal/repositories/datasetfield"
	"github.com/Ramsey-B/fern/internal/repositories/fieldmapping"
	"github.com/Ramsey-B/fern/internal/repositories/rawrecord"
	"github.com/Ramsey-B/fern/internal/repositories/relationship"
	"github.com/Ramsey-B/fern/internal/repositories/source"
	"github.com/Ramsey-B/fern/internal/repositories/transformrun"
	"github.com/Ramsey-B/fern/internal/repositories/unifiedrow"
	"github.com/Ramsey-B/fern/pkg/database"
	"github.com/Ramsey-B/fern/pkg/events"
	"github.com/Ramsey-B/fern/pkg/graph"
	"github.com/Ramsey-B/fern/pkg/ingestion"
	"github.com/Ramsey-B/fern/pkg/kafka"
	"github.com/Ramsey-B/fern/pkg/middleware"
	"github.com/Ramsey-B/fern/pkg/redis"
	"github.com/Ramsey-B/fern/pkg/routes/health"
	ingestionroutes "github.com/Ramsey-B/fern/pkg/routes/ingestion"
	transformroutes "github.com/Ramsey-B/fern/pkg/routes/transform"
	unifiedrowroutes "github.com/Ramsey-B/fern/pkg/routes/unifiedrow"
	"github.com/Ramsey-B/fern/pkg/startup"
	"github.com/Ramsey-B/fern/pkg/tracing"
	"github.com/Ramsey-B/fern/pkg/tracing/exporters"
	"github.com/Ramsey-B/fern/pkg/transform"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}

	logger, sync := newLogger(cfg)
	defer sync()

	if err := run(cfg, logger); err != nil {
		logger.WithError(err).Error("fern exited with an error")
		os.Exit(1)
	}
}

func newLogger(cfg *config.Config) (ectologger.Logger, func()) {
	zapCfg := zap.NewProductionConfig()
	if cfg.PrettyLogs {
		zapCfg = zap.NewDevelopmentConfig()
	}
	if level, err := zapcore.ParseLevel(cfg.LogLevel); err == nil {
		zapCfg.Level = zap.NewAtomicLevelAt(level)
	}

	zapLogger, err := zapCfg.Build()
	if err != nil {
		zapLogger = zap.NewNop()
	}

	return zapadapter.NewZapEctoLogger(zapLogger, nil), func() { _ = zapLogger.Sync() }
}

func run(cfg *config.Config, logger ectologger.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	provider, err := tracing.NewProvider(ctx, tracing.ProviderConfig{
		ServiceName: cfg.AppName,
		Exporter:    cfg.TraceExporter,
		SampleRatio: cfg.TraceSampleRatio,
		OTLP: exporters.OTLPConfig{
			Endpoint: cfg.TraceOTLPEndpoint,
			Protocol: cfg.TraceOTLPProtocol,
			Insecure: cfg.TraceOTLPInsecure,
		},
	})
	if err != nil {
		return err
	}
	defer func() { _ = provider.Shutdown(context.Background()) }()

	sqlxDB, err := sqlx.Open(cfg.DatabaseDriver, cfg.DatabaseURL())
	if err != nil {
		return fmt.Errorf("failed to open database: %w", err)
	}
	sqlxDB.SetMaxOpenConns(cfg.DatabaseMaxOpenConns)
	sqlxDB.SetMaxIdleConns(cfg.DatabaseMaxIdleConns)
	sqlxDB.SetConnMaxLifetime(cfg.DatabaseConnMaxLifetime)
	db := database.NewDatabaseInstance(sqlxDB, logger)

	checker := health.NewChecker(cfg.Version)
	checker.AddCheck("database", db.PingContext)

	var (
		locker    *redis.Locker
		projector *graph.Projector
		publisher events.Publisher
		producer  *kafka.Producer
	)

	deps := startup.NewStartup(logger, cfg.StartupMaxAttempts)
	deps.AddDependency(&startup.Func{
		Name:      "postgres",
		StartFunc: db.PingContext,
		StopFunc:  func(context.Context) error { return db.Close() },
	})
	deps.AddDependency(&startup.Func{
		Name:     "migrations",
		Requires: []string{"postgres"},
		StartFunc: func(context.Context) error {
			driver, err := postgres.WithInstance(sqlxDB.DB, &postgres.Config{})
			if err != nil {
				return fmt.Errorf("failed to create migration driver: %w", err)
			}
			return database.NewMigrationService(logger, &database.MigrationConfig{
				MigrationFolderPath: cfg.DatabaseMigrationFolderPath,
				Version:             cfg.DatabaseMigrationVersion,
				Force:               cfg.DatabaseMigrationForce,
			}).Migrate(cfg.DatabaseName, driver)
		},
	})

	if cfg.RedisEnabled {
		var client *redis.Client
		deps.AddDependency(&startup.Func{
			Name: "redis",
			StartFunc: func(context.Context) error {
				c, err := redis.NewClient(redis.Config{
					Host:     cfg.RedisHost,
					Port:     cfg.RedisPort,
					Password: cfg.RedisPassword,
					DB:       cfg.RedisDB,
				}, logger)
				if err != nil {
					return err
				}
				client = c
				locker = redis.NewLocker(c, redis.DefaultKeyPrefix)
				checker.AddCheck("redis", c.Ping)
				return nil
			},
			StopFunc: func(context.Context) error { return client.Close() },
		})
	}

	if cfg.GraphDBEnabled {
		var client *graph.Client
		deps.AddDependency(&startup.Func{
			Name: "graph",
			StartFunc: func(ctx context.Context) error {
				c, err := graph.NewClient(graph.Config{
					Host:     cfg.GraphDBHost,
					Port:     cfg.GraphDBPort,
					Username: cfg.GraphDBUser,
					Password: cfg.GraphDBPassword,
					Database: cfg.GraphDBName,
				}, logger)
				if err != nil {
					return err
				}
				if err := c.VerifyConnectivity(ctx); err != nil {
					_ = c.Close(ctx)
					return fmt.Errorf("failed to reach graph database: %w", err)
				}
				client = c
				projector = graph.NewProjector(c, logger)
				checker.AddCheck("graph", c.VerifyConnectivity)
				return nil
			},
			StopFunc: func(ctx context.Context) error { return client.Close(ctx) },
		})
	}

	if cfg.KafkaProducerEnabled {
		deps.AddDependency(&startup.Func{
			Name: "kafka-producer",
			StartFunc: func(context.Context) error {
				producer = kafka.NewProducer(kafka.ProducerConfig{
					Brokers:      cfg.KafkaBrokers,
					Topic:        cfg.KafkaOutputTopic,
					BatchSize:    cfg.KafkaBatchSize,
					BatchTimeout: time.Duration(cfg.KafkaBatchTimeout) * time.Millisecond,
					RequiredAcks: cfg.KafkaRequiredAcks,
					Compression:  cfg.KafkaCompression,
				}, logger)
				publisher = producer
				return nil
			},
			StopFunc: func(context.Context) error { return producer.Close() },
		})
	}

	if err := deps.Start(ctx); err != nil {
		return err
	}
	defer func() {
		stopCtx, cancel := context.WithTimeout(context.Background(), time.Duration(cfg.ShutdownTimeoutSeconds)*time.Second)
		defer cancel()
		_ = deps.Stop(stopCtx)
	}()

	datasets := dataset.NewRepository(db, logger)
	records := rawrecord.NewRepository(db, logger)
	rels := relationship.NewRepository(db, logger)
	rows := unifiedrow.NewRepository(db, logger)
	runs := transformrun.NewRepository(db, logger)
	uow := database.NewTxRunner(db)
	emitter := events.NewEmitter(publisher, logger)

	opts := []transform.Option{transform.WithEvents(emitter)}
	if locker != nil {
		opts = append(opts, transform.WithLocker(locker))
	}
	if projector != nil {
		opts = append(opts, transform.WithProjector(projector))
	}

	transformService := transform.NewService(logger, transform.Stores{
		Datasets:      datasets,
		Fields:        datasetfield.NewRepository(db, logger),
		Mappings:      fieldmapping.NewRepository(db, logger),
		Records:       records,
		Relationships: rels,
		Rows:          rows,
		Runs:          runs,
	}, uow, transform.Config{
		LockTTL:      cfg.TransformLockTTL,
		RowBatchSize: cfg.TransformRowBatchSize,
		ProjectGraph: cfg.TransformProjectGraph,
	}, opts...)

	ingestionService := ingestion.NewService(logger, datasets, source.NewRepository(db, logger), records, rels, uow, emitter)

	if cfg.KafkaConsumerEnabled {
		consumer := kafka.NewConsumer(kafka.ConsumerConfig{
			Brokers:       cfg.KafkaBrokers,
			Topic:         cfg.KafkaInputTopic,
			ConsumerGroup: cfg.KafkaConsumerGroup,
		}, logger, ingestHandler(ingestionService, logger))
		if err := consumer.Start(ctx); err != nil {
			return err
		}
		defer func() { _ = consumer.Stop() }()
		checker.AddCheck("kafka-consumer", func(context.Context) error {
			if !consumer.Health() {
				return errors.New("kafka consumer is not running")
			}
			return nil
		})
	}

	container, err := newContainer(cfg, logger)
	if err != nil {
		return err
	}
	if err := registerServices(container, logger, transformService, runs, rows, ingestionService); err != nil {
		return err
	}

	e := newServer(cfg, logger, checker, container.GetContainerID())
	api := e.Group("/api/v1/datasets")
	transformroutes.Register(api)
	unifiedrowroutes.Register(api)
	ingestionroutes.Register(api)

	server := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Port),
		Handler:           e,
		ReadTimeout:       time.Duration(cfg.HttpServerReadTimeoutSeconds) * time.Second,
		WriteTimeout:      time.Duration(cfg.HttpServerWriteTimeoutSeconds) * time.Second,
		IdleTimeout:       time.Duration(cfg.HttpServerIdleTimeoutSeconds) * time.Second,
		ReadHeaderTimeout: time.Duration(cfg.ReadHeaderTimeoutSeconds) * time.Second,
		MaxHeaderBytes:    cfg.MaxHeaderBytes,
	}

	serverErr := make(chan error, 1)
	go func() {
		logger.Infof("Starting %s on %s", cfg.AppName, server.Addr)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErr <- err
		}
		close(serverErr)
	}()
	checker.SetReady(true)

	select {
	case <-ctx.Done():
	case err := <-serverErr:
		if err != nil {
			return err
		}
	}

	checker.SetReady(false)
	logger.Info("Shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), time.Duration(cfg.ShutdownTimeoutSeconds)*time.Second)
	defer cancel()
	return server.Shutdown(shutdownCtx)
}

// newContainer creates the dependency container route handlers resolve their
// services from. Container diagnostics go through the service logger.
func newContainer(cfg *config.Config, logger ectologger.Logger) (ectocontainer.DIContainer, error) {
	return ectoinject.NewDIContainer(ectocontainer.DIContainerConfig{
		ID:                       cfg.AppName,
		AllowCaptiveDependencies: true,
		ConstructorFuncName:      "Constructor",
		InjectTagName:            "inject",
		LoggerConfig: &ectocontainer.DIContainerLoggerConfig{
			Prefix:  "ectoinject",
			Enabled: true,
			LogFunc: func(ctx context.Context, level, msg string) {
				if level == loglevel.WARN {
					logger.WithContext(ctx).Warn(msg)
					return
				}
				logger.WithContext(ctx).Debug(msg)
			},
		},
	})
}

func registerServices(
	container ectocontainer.DIContainer,
	logger ectologger.Logger,
	runner transformroutes.Runner,
	runs transformroutes.RunReader,
	rows unifiedrowroutes.RowReader,
	ingester ingestionroutes.Ingester,
) error {
	if err := ectoinject.RegisterInstance[ectologger.Logger](container, logger); err != nil {
		return fmt.Errorf("failed to register logger: %w", err)
	}
	if err := ectoinject.RegisterInstance[transformroutes.Runner](container, runner); err != nil {
		return fmt.Errorf("failed to register transform service: %w", err)
	}
	if err := ectoinject.RegisterInstance[transformroutes.RunReader](container, runs); err != nil {
		return fmt.Errorf("failed to register transform run repository: %w", err)
	}
	if err := ectoinject.RegisterInstance[unifiedrowroutes.RowReader](container, rows); err != nil {
		return fmt.Errorf("failed to register unified row repository: %w", err)
	}
	if err := ectoinject.RegisterInstance[ingestionroutes.Ingester](container, ingester); err != nil {
		return fmt.Errorf("failed to register ingestion service: %w", err)
	}
	return nil
}

func newServer(cfg *config.Config, logger ectologger.Logger, checker *health.Checker, containerID string) *echo.Echo {
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.HTTPErrorHandler = middleware.Error(logger)

	e.Use(echomiddleware.Recover())
	e.Use(echomiddleware.CORSWithConfig(echomiddleware.CORSConfig{
		AllowOrigins: cfg.AllowOrigins,
		AllowMethods: cfg.AllowMethods,
	}))
	e.Use(otelecho.Middleware(cfg.AppName))
	e.Use(middleware.Context())
	e.Use(middleware.Container(containerID))
	e.Use(middleware.Logger(logger))

	checker.RegisterRoutes(e)
	e.GET("/metrics", echo.WrapHandler(promhttp.Handler()))

	return e
}

// ingestHandler ingests a consumed batch. Client errors are logged and the
// message is committed, since redelivery would fail the same way.
func ingestHandler(svc *ingestion.Service, logger ectologger.Logger) kafka.MessageHandler {
	return func(ctx context.Context, msg *kafka.IncomingMessage) error {
		if msg.Batch == nil {
			return nil
		}

		_, err := svc.Ingest(ctx, *msg.Batch)
		if err != nil && httperror.IsHTTPError(err) && httperror.GetStatusCode(err) < http.StatusInternalServerError {
			logger.WithContext(ctx).WithError(err).WithFields(map[string]any{
				"dataset_id": msg.Batch.DatasetID,
				"source_id":  msg.Batch.SourceID,
			}).Warn("Dropping rejected record batch")
			return nil
		}
		return err
	}
}

package config

import (
	"fmt"
	"time"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
)

type Config struct {
	AppName                       string   `envconfig:"APP_NAME" default:"fern-api"`
	Version                       string   `envconfig:"APP_VERSION" default:"dev"`
	Port                          int      `envconfig:"PORT" default:"3004"`
	LogLevel                      string   `envconfig:"LOG_LEVEL" default:"info"`
	PrettyLogs                    bool     `envconfig:"PRETTY_LOGS" default:"false"`
	HttpServerWriteTimeoutSeconds int      `envconfig:"HTTP_SERVER_WRITE_TIMEOUT_SECONDS" default:"300"`
	HttpServerReadTimeoutSeconds  int      `envconfig:"HTTP_SERVER_READ_TIMEOUT_SECONDS" default:"30"`
	HttpServerIdleTimeoutSeconds  int      `envconfig:"HTTP_SERVER_IDLE_TIMEOUT_SECONDS" default:"10"`
	MaxHeaderBytes                int      `envconfig:"HTTP_SERVER_MAX_HEADER_BYTES" default:"64000"` // 64KB
	ReadHeaderTimeoutSeconds      int      `envconfig:"HTTP_SERVER_READ_HEADER_TIMEOUT_SECONDS" default:"10"`
	AllowOrigins                  []string `envconfig:"HTTP_SERVER_ALLOW_ORIGINS" default:"*"`
	AllowMethods                  []string `envconfig:"HTTP_SERVER_ALLOW_METHODS" default:"GET,POST"`
	StartupMaxAttempts            int      `envconfig:"STARTUP_MAX_ATTEMPTS" default:"5"`
	ShutdownTimeoutSeconds        int      `envconfig:"SHUTDOWN_TIMEOUT_SECONDS" default:"30"`

	// PostgreSQL
	DatabaseDriver              string        `envconfig:"DB_DRIVER" default:"postgres"`
	DatabaseHost                string        `envconfig:"DB_HOST" default:""`
	DatabasePort                string        `envconfig:"DB_PORT" default:"5432"`
	DatabaseUserName            string        `envconfig:"DB_USER_NAME" default:""`
	DatabasePassword            string        `envconfig:"DB_PASSWORD" default:""`
	DatabaseName                string        `envconfig:"DB_NAME" default:"fern"`
	DatabaseSSLMode             string        `envconfig:"DB_SSL_MODE" default:"disable"`
	DatabaseMaxOpenConns        int           `envconfig:"DB_MAX_OPEN_CONNS" default:"25"`
	DatabaseMaxIdleConns        int           `envconfig:"DB_MAX_IDLE_CONNS" default:"10"`
	DatabaseConnMaxLifetime     time.Duration `envconfig:"DB_CONN_MAX_LIFETIME" default:"10m"`
	DatabaseMigrationFolderPath string        `envconfig:"DB_MIGRATION_FOLDER_PATH" default:"db/pg"`
	DatabaseMigrationVersion    uint          `envconfig:"DB_MIGRATION_VERSION" default:"0"`
	DatabaseMigrationForce      int           `envconfig:"DB_MIGRATION_FORCE" default:"0"`

	// Graph Database (Memgraph / Neo4j)
	GraphDBEnabled  bool   `envconfig:"GRAPH_DB_ENABLED" default:"false"`
	GraphDBHost     string `envconfig:"GRAPH_DB_HOST" default:"localhost"`
	GraphDBPort     int    `envconfig:"GRAPH_DB_PORT" default:"7687"`
	GraphDBUser     string `envconfig:"GRAPH_DB_USER" default:""`
	GraphDBPassword string `envconfig:"GRAPH_DB_PASSWORD" default:""`
	GraphDBName     string `envconfig:"GRAPH_DB_NAME" default:""`

	// Redis
	RedisEnabled  bool   `envconfig:"REDIS_ENABLED" default:"false"`
	RedisHost     string `envconfig:"REDIS_HOST" default:"localhost"`
	RedisPort     int    `envconfig:"REDIS_PORT" default:"6379"`
	RedisPassword string `envconfig:"REDIS_PASSWORD" default:""`
	RedisDB       int    `envconfig:"REDIS_DB" default:"0"`

	// Kafka Consumer (raw record batches)
	KafkaBrokers         []string `envconfig:"KAFKA_BROKERS" default:"localhost:9092"`
	KafkaInputTopic      string   `envconfig:"KAFKA_INPUT_TOPIC" default:"raw-records"`
	KafkaConsumerGroup   string   `envconfig:"KAFKA_CONSUMER_GROUP" default:"fern-consumer"`
	KafkaConsumerEnabled bool     `envconfig:"KAFKA_CONSUMER_ENABLED" default:"false"`

	// Kafka Producer (run and ingestion events)
	KafkaProducerEnabled bool   `envconfig:"KAFKA_PRODUCER_ENABLED" default:"false"`
	KafkaOutputTopic     string `envconfig:"KAFKA_OUTPUT_TOPIC" default:"fern-events"`
	KafkaBatchSize       int    `envconfig:"KAFKA_BATCH_SIZE" default:"100"`
	KafkaBatchTimeout    int    `envconfig:"KAFKA_BATCH_TIMEOUT_MS" default:"100"`
	KafkaRequiredAcks    int    `envconfig:"KAFKA_REQUIRED_ACKS" default:"1"`
	KafkaCompression     string `envconfig:"KAFKA_COMPRESSION" default:"snappy"`

	// Tracing
	TraceExporter     string  `envconfig:"TRACE_EXPORTER" default:"console"`
	TraceOTLPEndpoint string  `envconfig:"TRACE_OTLP_ENDPOINT" default:"localhost:4317"`
	TraceOTLPProtocol string  `envconfig:"TRACE_OTLP_PROTOCOL" default:"grpc"`
	TraceOTLPInsecure bool    `envconfig:"TRACE_OTLP_INSECURE" default:"true"`
	TraceSampleRatio  float64 `envconfig:"TRACE_SAMPLE_RATIO" default:"1"`

	// Transform
	TransformLockTTL      time.Duration `envconfig:"TRANSFORM_LOCK_TTL" default:"15m"`
	TransformRowBatchSize int           `envconfig:"TRANSFORM_ROW_BATCH_SIZE" default:"500"`
	TransformProjectGraph bool          `envconfig:"TRANSFORM_PROJECT_GRAPH" default:"true"`
}

// Load reads an optional .env file and then the process environment.
func Load() (*Config, error) {
	_ = godotenv.Load()

	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}
	return &cfg, nil
}

// DatabaseURL is the lib/pq connection string.
func (c *Config) DatabaseURL() string {
	return fmt.Sprintf("host=%s port=%s user=%s password=%s dbname=%s sslmode=%s",
		c.DatabaseHost, c.DatabasePort, c.DatabaseUserName, c.DatabasePassword, c.DatabaseName, c.DatabaseSSLMode)
}

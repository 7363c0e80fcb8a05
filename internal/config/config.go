package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	sharedcfg "github.com/couchcryptid/storm-data-shared/config"
)

// Config holds all batch settings, populated from environment variables.
type Config struct {
	SurveyDir   string
	CDRDir      string
	OutputDir   string
	SnapshotDir string

	DedupMinDistanceKm float64

	HTTPAddr        string
	LogLevel        string
	LogFormat       string
	ShutdownTimeout time.Duration
	LoadMaxRetries  int
	PushgatewayURL  string

	// Warehouse loader; disabled when DatabaseURL is empty.
	DatabaseDriver string
	DatabaseURL    string
	DatabaseTables []string

	// Kafka loader.
	KafkaEnabled   bool
	KafkaBrokers   []string
	KafkaSinkTopic string

	// Dataset publisher; disabled when DatasetBucket is empty.
	DatasetBucket    string
	DatasetPrefix    string
	DatasetRegion    string
	DatasetEndpoint  string
	DatasetPathStyle bool
}

// Load reads configuration from environment variables, applying defaults where unset.
func Load() (*Config, error) {
	shutdownTimeout, err := sharedcfg.ParseShutdownTimeout()
	if err != nil {
		return nil, err
	}

	minDistance, err := strconv.ParseFloat(sharedcfg.EnvOrDefault("DEDUP_MIN_DISTANCE_KM", "1.0"), 64)
	if err != nil || minDistance <= 0 {
		return nil, errors.New("invalid DEDUP_MIN_DISTANCE_KM")
	}

	retries, err := strconv.Atoi(sharedcfg.EnvOrDefault("LOAD_MAX_RETRIES", "3"))
	if err != nil || retries < 0 || retries > 10 {
		return nil, errors.New("invalid LOAD_MAX_RETRIES")
	}

	var brokers []string
	if raw := os.Getenv("KAFKA_BROKERS"); raw != "" {
		brokers = sharedcfg.ParseBrokers(raw)
	}
	kafkaEnabled := len(brokers) > 0
	if v := os.Getenv("KAFKA_ENABLED"); v != "" {
		kafkaEnabled = v == "true"
	}

	cfg := &Config{
		SurveyDir:          sharedcfg.EnvOrDefault("SURVEY_DIR", "data/kobo/surveys"),
		CDRDir:             sharedcfg.EnvOrDefault("CDR_DIR", "data/cdr"),
		OutputDir:          sharedcfg.EnvOrDefault("OUTPUT_DIR", "data/cdr"),
		SnapshotDir:        os.Getenv("SNAPSHOT_DIR"),
		DedupMinDistanceKm: minDistance,
		HTTPAddr:           sharedcfg.EnvOrDefault("HTTP_ADDR", ":8080"),
		LogLevel:           sharedcfg.EnvOrDefault("LOG_LEVEL", "info"),
		LogFormat:          sharedcfg.EnvOrDefault("LOG_FORMAT", "json"),
		ShutdownTimeout:    shutdownTimeout,
		LoadMaxRetries:     retries,
		PushgatewayURL:     os.Getenv("PUSHGATEWAY_URL"),

		DatabaseDriver: sharedcfg.EnvOrDefault("DATABASE_DRIVER", "pgx"),
		DatabaseURL:    os.Getenv("DATABASE_URL"),
		DatabaseTables: splitList(sharedcfg.EnvOrDefault("DATABASE_TABLES", "indicators,PRAPS2_Indicators_Aggregated")),

		KafkaEnabled:   kafkaEnabled,
		KafkaBrokers:   brokers,
		KafkaSinkTopic: sharedcfg.EnvOrDefault("KAFKA_SINK_TOPIC", "cdr-indicators"),

		DatasetBucket:    os.Getenv("DATASET_BUCKET"),
		DatasetPrefix:    sharedcfg.EnvOrDefault("DATASET_PREFIX", "indicateurs-cdr"),
		DatasetRegion:    sharedcfg.EnvOrDefault("DATASET_REGION", "us-east-1"),
		DatasetEndpoint:  os.Getenv("DATASET_ENDPOINT"),
		DatasetPathStyle: strings.EqualFold(os.Getenv("DATASET_PATH_STYLE"), "true"),
	}

	if cfg.SurveyDir == "" {
		return nil, errors.New("SURVEY_DIR is required")
	}
	if cfg.OutputDir == "" {
		return nil, errors.New("OUTPUT_DIR is required")
	}
	if cfg.DatabaseURL != "" {
		switch cfg.DatabaseDriver {
		case "pgx", "sqlite":
		default:
			return nil, fmt.Errorf("unsupported DATABASE_DRIVER %q", cfg.DatabaseDriver)
		}
		if len(cfg.DatabaseTables) == 0 {
			return nil, errors.New("DATABASE_TABLES is required when DATABASE_URL is set")
		}
	}
	if cfg.KafkaEnabled && len(cfg.KafkaBrokers) == 0 {
		return nil, errors.New("KAFKA_ENABLED is true but KAFKA_BROKERS is not set")
	}
	if cfg.KafkaEnabled && cfg.KafkaSinkTopic == "" {
		return nil, errors.New("KAFKA_SINK_TOPIC is required")
	}

	return cfg, nil
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}

package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/jonboulle/clockwork"

	"github.com/couchcryptid/cdr-indicators-etl/internal/adapter/file"
	httpadapter "github.com/couchcryptid/cdr-indicators-etl/internal/adapter/http"
	kafkaadapter "github.com/couchcryptid/cdr-indicators-etl/internal/adapter/kafka"
	s3adapter "github.com/couchcryptid/cdr-indicators-etl/internal/adapter/s3"
	"github.com/couchcryptid/cdr-indicators-etl/internal/adapter/warehouse"
	"github.com/couchcryptid/cdr-indicators-etl/internal/config"
	"github.com/couchcryptid/cdr-indicators-etl/internal/observability"
	"github.com/couchcryptid/cdr-indicators-etl/internal/pipeline"
)

const pushJob = "cdr-indicators-etl"

func main() {
	os.Exit(run())
}

func run() int {
	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", "error", err)
		return 1
	}

	logger := observability.NewLogger(cfg)
	metrics := observability.NewMetrics()
	clock := clockwork.NewRealClock()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	loaders := []pipeline.Loader{file.NewWriter(cfg.OutputDir, logger)}

	if cfg.DatabaseURL != "" {
		wh, err := warehouse.Open(ctx, cfg, logger)
		if err != nil {
			logger.Error("failed to open warehouse", "error", err)
			return 1
		}
		defer closeWith(logger, "warehouse", wh.Close)
		loaders = append(loaders, wh)
		logger.Info("warehouse loader enabled", "driver", cfg.DatabaseDriver, "tables", cfg.DatabaseTables)
	}

	if cfg.KafkaEnabled {
		kw := kafkaadapter.NewWriter(cfg, logger)
		defer closeWith(logger, "kafka writer", kw.Close)
		loaders = append(loaders, kw)
		logger.Info("kafka loader enabled", "topic", cfg.KafkaSinkTopic, "brokers", cfg.KafkaBrokers)
	}

	if cfg.DatasetBucket != "" {
		pub, err := s3adapter.NewPublisher(ctx, cfg, clock, logger)
		if err != nil {
			logger.Error("failed to create dataset publisher", "error", err)
			return 1
		}
		loaders = append(loaders, pub)
		logger.Info("dataset publisher enabled", "bucket", cfg.DatasetBucket, "prefix", cfg.DatasetPrefix)
	}

	p := pipeline.New(file.NewExtractor(cfg, logger), loaders, logger, metrics, pipeline.Options{
		MaxRetries: cfg.LoadMaxRetries,
		Clock:      clock,
	})

	var srv *httpadapter.Server
	if cfg.HTTPAddr != "" {
		srv = httpadapter.NewServer(cfg.HTTPAddr, p, logger)
		go func() {
			if err := srv.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				logger.Error("http server error", "error", err)
			}
		}()
	}

	_, runErr := p.Run(ctx)

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()

	if cfg.PushgatewayURL != "" {
		if err := metrics.Push(shutdownCtx, cfg.PushgatewayURL, pushJob); err != nil {
			logger.Error("metrics push error", "error", err)
		}
	}
	if srv != nil {
		if err := srv.Shutdown(shutdownCtx); err != nil {
			logger.Error("http server shutdown error", "error", err)
		}
	}

	if runErr != nil {
		return 1
	}
	logger.Info("shutdown complete")
	return 0
}

func closeWith(logger *slog.Logger, name string, closeFn func() error) {
	if err := closeFn(); err != nil {
		logger.Error(name+" close error", "error", err)
	}
}

package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	httpadapter "github.com/terralens/prospect-fusion/internal/adapter/http"
	kafkaadapter "github.com/terralens/prospect-fusion/internal/adapter/kafka"
	"github.com/terralens/prospect-fusion/internal/config"
	"github.com/terralens/prospect-fusion/internal/export"
	"github.com/terralens/prospect-fusion/internal/observability"
	"github.com/terralens/prospect-fusion/internal/pipeline"
	"github.com/terralens/prospect-fusion/internal/provider"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	logger := observability.NewLogger(cfg)
	metrics := observability.NewMetrics()

	spec, warnings, err := config.LoadSpec(cfg.SpecPath)
	if err != nil {
		logger.Error("failed to load fusion spec", "path", cfg.SpecPath, "error", err)
		os.Exit(1)
	}
	for _, w := range warnings {
		logger.Warn("fusion spec warning", "warning", w)
	}

	// Scene source (file-backed via SCENE_PATH, synthetic otherwise).
	var loader pipeline.SceneLoader
	if cfg.ScenePath != "" {
		loader = provider.NewFile(cfg.ScenePath, logger)
		logger.Info("scene source: file", "path", cfg.ScenePath)
	} else {
		loader = provider.NewSynthetic(logger)
		logger.Info("scene source: synthetic", "seed", spec.Seed)
	}

	runner := pipeline.New(loader, spec, logger, metrics)
	store := pipeline.NewResultStore()

	srv := httpadapter.NewServer(cfg.HTTPAddr, store, store, cfg.RenderCacheSize, metrics, logger)

	// Region publisher (feature-flagged via KAFKA_ENABLED / KAFKA_BROKERS).
	var publisher *kafkaadapter.Publisher
	if cfg.KafkaEnabled {
		publisher = kafkaadapter.NewPublisher(cfg, metrics, logger)
		logger.Info("kafka publishing enabled", "brokers", cfg.KafkaBrokers, "topic", cfg.KafkaRegionTopic)
	} else {
		logger.Info("kafka publishing disabled")
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Start HTTP server.
	go func() {
		if err := srv.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("http server error", "error", err)
		}
	}()

	// Run the fusion cycle; the HTTP surface reports not-ready until it lands.
	go func() {
		res, err := runner.Run(ctx)
		if err != nil {
			logger.Error("fusion run error", "error", err)
			return
		}
		store.Set(res)

		if err := export.New(cfg.OutputDir, logger).WriteArtifacts(res); err != nil {
			logger.Error("artifact export error", "error", err)
		}
		if publisher != nil {
			if err := publisher.PublishRegions(ctx, res.Regions); err != nil {
				logger.Error("region publish error", "error", err)
			}
		}
	}()

	<-ctx.Done()
	logger.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("http server shutdown error", "error", err)
	}
	if publisher != nil {
		if err := publisher.Close(); err != nil {
			logger.Error("kafka publisher close error", "error", err)
		}
	}

	logger.Info("shutdown complete")
}

package main

import (
	"context"
	"log"
	"os"

	"agent-relay-gateway/internal/config"
	"agent-relay-gateway/internal/memory"
	"agent-relay-gateway/internal/registry"
	"agent-relay-gateway/internal/repository"
	"agent-relay-gateway/internal/services"
	"agent-relay-gateway/internal/worker"

	"github.com/rs/zerolog"
	sdkworker "go.temporal.io/sdk/worker"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	level, err := zerolog.ParseLevel(cfg.Log.Level)
	if err != nil {
		level = zerolog.InfoLevel
	}
	logger := zerolog.New(os.Stdout).Level(level).With().Timestamp().Str("component", "worker").Logger()

	if !cfg.Temporal.Enabled() {
		logger.Fatal().Msg("TEMPORAL_HOST is required to run the worker")
	}
	if !cfg.Database.Enabled() {
		logger.Fatal().Msg("DB_HOST is required to run the worker")
	}

	repo, err := repository.NewPostgresRepository(&cfg.Database)
	if err != nil {
		logger.Fatal().Err(err).Msg("Failed to initialize repository")
	}
	defer repo.Close()

	temporalClient, err := services.NewTemporalClient(&cfg.Temporal)
	if err != nil {
		logger.Fatal().Err(err).Msg("Failed to create Temporal client")
	}
	defer temporalClient.Close()

	mem := memory.New(repo, cfg.Memory.LastMessages, logger)
	reg, err := registry.Default(services.NewLLMClient(&cfg.LLM), mem, logger)
	if err != nil {
		logger.Fatal().Err(err).Msg("Failed to build registry")
	}

	activities := &worker.Activities{
		Registry: reg,
		Runs:     repo,
		Logger:   logger,
	}
	if cfg.S3.Enabled() {
		s3Client, err := services.NewS3Client(context.Background(), &cfg.S3)
		if err != nil {
			logger.Fatal().Err(err).Msg("Failed to create S3 client")
		}
		activities.Archive = s3Client
	}

	w := worker.New(temporalClient.Client(), cfg.Temporal.TaskQueue, activities)

	logger.Info().
		Str("task_queue", cfg.Temporal.TaskQueue).
		Strs("workflows", reg.WorkflowNames()).
		Msg("Worker starting")
	if err := w.Run(sdkworker.InterruptCh()); err != nil {
		logger.Fatal().Err(err).Msg("Worker stopped")
	}
}

package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"agent-relay-gateway/internal/api/handlers"
	"agent-relay-gateway/internal/api/middleware"
	"agent-relay-gateway/internal/api/routes"
	"agent-relay-gateway/internal/config"
	"agent-relay-gateway/internal/memory"
	"agent-relay-gateway/internal/registry"
	"agent-relay-gateway/internal/repository"
	"agent-relay-gateway/internal/services"
	"agent-relay-gateway/pkg/sse"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
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
	logger := zerolog.New(os.Stdout).Level(level).With().Timestamp().Logger()
	logger.Info().Msg("Starting agent relay gateway")

	if cfg.Server.Mode == "release" {
		gin.SetMode(gin.ReleaseMode)
	}

	repo, closeRepo, err := openRepository(cfg, logger)
	if err != nil {
		logger.Fatal().Err(err).Msg("Failed to initialize repository")
	}
	defer closeRepo()

	h := &handlers.Handlers{
		Repository:    repo,
		Sessions:      sse.NewHub(),
		ArchiveExpiry: cfg.S3.URLExpiry,
		Logger:        logger,
	}

	var memOpts []memory.Option
	if cfg.Qdrant.Enabled() {
		qdrantClient, err := services.NewQdrantClient(&cfg.Qdrant)
		if err != nil {
			logger.Fatal().Err(err).Msg("Failed to create Qdrant client")
		}
		defer qdrantClient.Close()
		h.Qdrant = qdrantClient
		memOpts = append(memOpts, memory.WithSemanticRecall(qdrantClient, services.NewOpenAIEmbedder(&cfg.LLM), cfg.Memory.RecallTopK))
	}
	h.Memory = memory.New(repo, cfg.Memory.LastMessages, logger, memOpts...)

	h.Registry, err = registry.Default(services.NewLLMClient(&cfg.LLM), h.Memory, logger)
	if err != nil {
		logger.Fatal().Err(err).Msg("Failed to build registry")
	}

	if cfg.Temporal.Enabled() {
		temporalClient, err := services.NewTemporalClient(&cfg.Temporal)
		if err != nil {
			logger.Fatal().Err(err).Msg("Failed to create Temporal client")
		}
		defer temporalClient.Close()
		h.Temporal = temporalClient
	}

	if cfg.S3.Enabled() {
		s3Client, err := services.NewS3Client(context.Background(), &cfg.S3)
		if err != nil {
			logger.Fatal().Err(err).Msg("Failed to create S3 client")
		}
		h.Archive = s3Client
	}

	router := gin.New()
	router.Use(middleware.Recovery(logger))
	router.Use(middleware.RequestLogger(logger))
	router.Use(middleware.CORS())
	routes.SetupRoutes(router, h, cfg.Server.AccessToken)

	srv := &http.Server{
		Addr:           fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port),
		Handler:        router,
		ReadTimeout:    cfg.Server.ReadTimeout,
		WriteTimeout:   cfg.Server.WriteTimeout,
		MaxHeaderBytes: 1 << 20,
	}

	go func() {
		logger.Info().
			Str("host", cfg.Server.Host).
			Int("port", cfg.Server.Port).
			Strs("agents", h.Registry.AgentNames()).
			Strs("workflows", h.Registry.WorkflowNames()).
			Msg("Server starting")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal().Err(err).Msg("Failed to start server")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info().Int("active_sessions", h.Sessions.Active()).Msg("Server shutting down...")

	// Cancel open streams before Shutdown waits on their handlers.
	h.Sessions.Shutdown()

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		logger.Error().Err(err).Msg("Server forced to shutdown")
	}

	logger.Info().Msg("Server exited")
}

// openRepository connects to Postgres when it is configured and falls back
// to the in-process store otherwise.
func openRepository(cfg *config.Config, logger zerolog.Logger) (repository.Repository, func(), error) {
	if !cfg.Database.Enabled() {
		logger.Warn().Msg("DB_HOST not set, using in-memory storage")
		return repository.NewMemoryRepository(), func() {}, nil
	}

	repo, err := repository.NewPostgresRepository(&cfg.Database)
	if err != nil {
		return nil, nil, err
	}
	return repo, func() {
		if err := repo.Close(); err != nil {
			logger.Error().Err(err).Msg("Failed to close database")
		}
	}, nil
}

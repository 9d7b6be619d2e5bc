package main

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/minkyo/topiko/internal/api"
	"github.com/minkyo/topiko/internal/api/handler"
	"github.com/minkyo/topiko/internal/api/middleware"
	"github.com/minkyo/topiko/internal/config"
	"github.com/minkyo/topiko/internal/logger"
	"github.com/minkyo/topiko/internal/repository"
	"github.com/minkyo/topiko/internal/seedsource"
	"github.com/minkyo/topiko/internal/service"
)

func main() {
	// Load configuration
	// Support CONFIG_PATH environment variable for production deployments
	configPath := os.Getenv("CONFIG_PATH")
	cfg, err := config.Load(configPath)
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	// Initialize logger
	appLogger := logger.NewFromEnv(nil)
	logger.SetDefaultLogger(appLogger)
	defer logger.Sync()

	// Initialize database
	db, err := repository.InitDB(&cfg.Database)
	if err != nil {
		appLogger.WithError(err).Fatal("Failed to initialize database")
	}

	// Initialize repositories
	topicRepo := repository.NewTopicRepository(db)
	batchRunRepo := repository.NewBatchRunRepository(db)

	// The Qdrant index is an optional read-path accelerator; the relational
	// store stays the source of truth either way.
	var index service.VectorIndex
	if cfg.Matcher.IndexEnabled {
		qdrantIndex, err := repository.NewQdrantIndex(&repository.QdrantConnectionConfig{
			Host:            cfg.Qdrant.Host,
			Port:            cfg.Qdrant.Port,
			Collection:      cfg.Qdrant.Collection,
			APIKey:          cfg.Qdrant.APIKey,
			UseTLS:          cfg.Qdrant.UseTLS,
			VectorDimension: cfg.Embedding.Dimensions,
		})
		if err != nil {
			appLogger.WithError(err).Fatal("Failed to initialize Qdrant index")
		}
		defer qdrantIndex.Close()

		if err := qdrantIndex.EnsureCollection(context.Background()); err != nil {
			appLogger.WithError(err).Fatal("Failed to ensure Qdrant collection")
		}
		index = qdrantIndex
	}

	// Initialize embedding client
	cfg.Embedding.ResolveEnvVars()
	if err := cfg.Embedding.ValidateWithAPIKey(); err != nil {
		appLogger.WithError(err).Fatal("Invalid embedding configuration")
	}
	embedder := service.NewEmbeddingClient(&cfg.Embedding)

	// Initialize services
	matcher := service.NewMatcher(topicRepo, index, cfg.Matcher.SimilarityThreshold)
	canonicalize := service.NewCanonicalizeService(topicRepo, embedder, matcher, index, appLogger)

	seeder := service.NewSeeder(topicRepo, embedder, index, batchRunRepo, appLogger, &service.SeederConfig{
		BatchSize:  cfg.Batch.BatchSize,
		PauseDelay: cfg.Batch.PauseDelay,
	})
	reembedder := service.NewReembedder(topicRepo, embedder, index, appLogger, &service.ReembedderConfig{
		PageLimit:  cfg.Batch.PageLimit,
		PauseDelay: cfg.Batch.PauseDelay,
	})
	auditor := service.NewAuditor(topicRepo, cfg.Embedding.Dimensions, appLogger)

	// Seed sources available to the admin API
	sources := map[string]seedsource.Source{
		"file": seedsource.NewFileSource(cfg.Seed.Path),
	}
	if cfg.Seed.S3.Bucket != "" {
		s3Source, err := seedsource.NewS3Source(&seedsource.S3Config{
			Endpoint:  cfg.Seed.S3.Endpoint,
			AccessKey: cfg.Seed.S3.AccessKey,
			SecretKey: cfg.Seed.S3.SecretKey,
			UseSSL:    cfg.Seed.S3.UseSSL,
			Bucket:    cfg.Seed.S3.Bucket,
			Region:    cfg.Seed.S3.Region,
			Key:       cfg.Seed.Key,
		})
		if err != nil {
			appLogger.WithError(err).Fatal("Failed to initialize S3 seed source")
		}
		sources["s3"] = s3Source
	}

	// Setup router
	topicHandler := handler.NewTopicHandler(canonicalize, topicRepo, cfg.Embedding.Dimensions)
	adminHandler := handler.NewAdminHandler(seeder, reembedder, auditor, topicRepo, index, sources, batchRunRepo, appLogger)

	router := api.SetupRouter(
		api.RouterDeps{Topic: topicHandler, Admin: adminHandler},
		cfg.Server.Mode,
		middleware.CORSConfig{
			AllowedOrigins:  cfg.Server.CORS.AllowedOrigins,
			AllowAllOrigins: cfg.Server.CORS.AllowAllOrigins,
		},
		appLogger,
	)

	// Create HTTP server
	srv := &http.Server{
		Addr:    fmt.Sprintf(":%d", cfg.Server.Port),
		Handler: router,
	}

	// Start server in goroutine
	go func() {
		appLogger.WithFields(logger.Fields{
			"port": cfg.Server.Port,
			"mode": cfg.Server.Mode,
		}).Info("Starting API server")
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			appLogger.WithError(err).Fatal("Failed to start server")
		}
	}()

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	appLogger.Info("Shutting down server...")

	// Graceful shutdown with timeout
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		appLogger.WithError(err).Fatal("Server forced to shutdown")
	}

	appLogger.Info("Server exited")
}

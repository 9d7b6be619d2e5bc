package main

import (
	"context"
	"flag"
	"os"
	"os/signal"
	"syscall"

	"github.com/minkyo/topiko/internal/config"
	"github.com/minkyo/topiko/internal/logger"
	"github.com/minkyo/topiko/internal/repository"
	"github.com/minkyo/topiko/internal/seedsource"
	"github.com/minkyo/topiko/internal/service"
)

func main() {
	// Initialize logger first (with defaults)
	appLogger := logger.New(&logger.Config{
		Level:       "info",
		Format:      "json",
		ServiceName: "topiko-batch",
	})
	logger.SetDefaultLogger(appLogger)

	// Parse command line flags
	job := flag.String("job", "seed", "Batch job to run: seed, reembed, audit")
	sourceType := flag.String("source", "", "Seed source: file or s3 (defaults to config)")
	offset := flag.Int("offset", 0, "Starting offset for reembed")
	limit := flag.Int("limit", 0, "Page limit for reembed; 0 pages through everything")
	configPath := flag.String("config", "", "Path to config file")
	flag.Parse()

	// Load configuration
	cfg, err := config.Load(*configPath)
	if err != nil {
		appLogger.WithError(err).Fatal("Failed to load config")
	}

	appLogger.WithFields(logger.Fields{
		"job":    *job,
		"offset": *offset,
		"limit":  *limit,
	}).Info("Starting batch job")

	// Initialize database
	db, err := repository.InitDB(&cfg.Database)
	if err != nil {
		appLogger.WithError(err).Fatal("Failed to initialize database")
	}

	// Initialize repositories
	topicRepo := repository.NewTopicRepository(db)
	batchRunRepo := repository.NewBatchRunRepository(db)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

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

		if err := qdrantIndex.EnsureCollection(ctx); err != nil {
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

	// Handle graceful shutdown
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sigChan
		appLogger.Info("Received shutdown signal, canceling...")
		cancel()
	}()

	switch *job {
	case "seed":
		seeder := service.NewSeeder(topicRepo, embedder, index, batchRunRepo, appLogger, &service.SeederConfig{
			BatchSize:  cfg.Batch.BatchSize,
			PauseDelay: cfg.Batch.PauseDelay,
		})

		src, err := buildSeedSource(cfg, *sourceType)
		if err != nil {
			appLogger.WithError(err).Fatal("Failed to initialize seed source")
		}

		stats, err := seeder.SeedFromSource(ctx, src)
		if err != nil {
			appLogger.WithError(err).Fatal("Seed run failed")
		}
		appLogger.WithFields(logger.Fields{
			"total":   stats.Total,
			"created": stats.Created,
			"skipped": stats.Skipped,
			"failed":  stats.Failed,
		}).Info("Seed completed")

	case "reembed":
		reembedder := service.NewReembedder(topicRepo, embedder, index, appLogger, &service.ReembedderConfig{
			PageLimit:  cfg.Batch.PageLimit,
			PauseDelay: cfg.Batch.PauseDelay,
		})

		var stats *service.ReembedStats
		if *limit > 0 {
			stats, err = reembedder.ReembedPage(ctx, *offset, *limit)
		} else {
			stats, err = reembedder.ReembedAll(ctx)
		}
		if err != nil {
			appLogger.WithError(err).Fatal("Re-embed run failed")
		}
		fields := logger.Fields{
			"processed": stats.Processed,
			"updated":   stats.Updated,
			"failed":    stats.Failed,
		}
		if stats.NextOffset != nil {
			fields["next_offset"] = *stats.NextOffset
		}
		appLogger.WithFields(fields).Info("Re-embed completed")

	case "audit":
		auditor := service.NewAuditor(topicRepo, cfg.Embedding.Dimensions, appLogger)
		report, err := auditor.Audit(ctx, nil)
		if err != nil {
			appLogger.WithError(err).Fatal("Audit failed")
		}
		appLogger.WithFields(logger.Fields{
			"total":                 report.TotalTopics,
			"word_count_violations": report.WordCountViolations,
			"dimension_violations":  report.DimensionViolations,
			"duplicate_vector_rows": report.DuplicateVectorRows,
		}).Info("Audit completed")

	default:
		appLogger.WithField("job", *job).Fatal("Unknown job type")
	}
}

// buildSeedSource resolves the seed source from the flag, falling back to the
// configured default.
func buildSeedSource(cfg *config.Config, override string) (seedsource.Source, error) {
	sourceType := override
	if sourceType == "" {
		sourceType = cfg.Seed.Source
	}

	if sourceType == "s3" {
		return seedsource.NewS3Source(&seedsource.S3Config{
			Endpoint:  cfg.Seed.S3.Endpoint,
			AccessKey: cfg.Seed.S3.AccessKey,
			SecretKey: cfg.Seed.S3.SecretKey,
			UseSSL:    cfg.Seed.S3.UseSSL,
			Bucket:    cfg.Seed.S3.Bucket,
			Region:    cfg.Seed.S3.Region,
			Key:       cfg.Seed.Key,
		})
	}
	return seedsource.NewFileSource(cfg.Seed.Path), nil
}

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

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/ressKim-io/ReviewSense/api-service/internal/adapter/client"
	"github.com/ressKim-io/ReviewSense/api-service/internal/adapter/http/router"
	"github.com/ressKim-io/ReviewSense/api-service/internal/adapter/lexicon"
	"github.com/ressKim-io/ReviewSense/api-service/internal/adapter/repository/csvfile"
	"github.com/ressKim-io/ReviewSense/api-service/internal/adapter/repository/demo"
	"github.com/ressKim-io/ReviewSense/api-service/internal/adapter/repository/postgres"
	"github.com/ressKim-io/ReviewSense/api-service/internal/domain/entity"
	"github.com/ressKim-io/ReviewSense/api-service/internal/domain/repository"
	"github.com/ressKim-io/ReviewSense/api-service/internal/domain/service"
	"github.com/ressKim-io/ReviewSense/api-service/internal/inference"
	"github.com/ressKim-io/ReviewSense/api-service/internal/infrastructure/cache"
	"github.com/ressKim-io/ReviewSense/api-service/internal/infrastructure/config"
	"github.com/ressKim-io/ReviewSense/api-service/internal/infrastructure/database"
	"github.com/ressKim-io/ReviewSense/api-service/internal/infrastructure/logger"
	"github.com/ressKim-io/ReviewSense/api-service/internal/infrastructure/metrics"
	"github.com/ressKim-io/ReviewSense/api-service/internal/infrastructure/ratelimit"
	"github.com/ressKim-io/ReviewSense/api-service/internal/streaming"
	"github.com/ressKim-io/ReviewSense/api-service/internal/usecase"
)

const janitorInterval = time.Minute

// classifierBackend is what every classifier adapter provides
type classifierBackend interface {
	service.Classifier
	service.ModelDescriber
	service.ReadinessChecker
}

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	// Initialize logger
	log, err := logger.NewLogger(&cfg.Log)
	if err != nil {
		return fmt.Errorf("failed to initialize logger: %w", err)
	}
	defer func() { _ = log.Sync() }()

	// Set Gin mode
	gin.SetMode(cfg.Server.Mode)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Initialize database (optional)
	var db *gorm.DB
	if cfg.Database.Enabled {
		db, err = database.NewPostgresDB(&cfg.Database)
		if err != nil {
			log.Error("Failed to connect to database", zap.Error(err))
			return fmt.Errorf("failed to connect to database: %w", err)
		}
		log.Info("Connected to database")

		if err := database.AutoMigrate(db); err != nil {
			log.Error("Failed to run migrations", zap.Error(err))
			return fmt.Errorf("failed to run migrations: %w", err)
		}
		log.Info("Database migrations completed")
	}

	// Initialize Redis (optional)
	var redisClient *redis.Client
	if cfg.Redis.Enabled {
		redisClient, err = cache.NewRedisClient(&cfg.Redis)
		if err != nil {
			if cfg.RateLimit.Backend == config.RateLimitRedis {
				return fmt.Errorf("failed to connect to redis: %w", err)
			}
			log.Warn("Failed to connect to Redis, continuing without it", zap.Error(err))
			redisClient = nil
		} else {
			log.Info("Connected to Redis", zap.String("addr", cfg.Redis.Addr()))
		}
	}

	// Metrics
	registry := prometheus.NewRegistry()
	registry.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	collector := metrics.NewCollector(cfg.Metrics.Namespace, registry)

	// Classifier and inference pipeline
	backend := newClassifier(cfg)
	var classifier service.Classifier = backend
	if !cfg.Classifier.ConcurrentSafe {
		classifier = inference.Serialized(backend)
	}
	engine := inference.NewEngine(classifier, cfg.Inference.BatchSize, inference.WithObserver(collector))
	processor := streaming.NewProcessor(engine, cfg.Inference.ChunkSize, cfg.Inference.MaxTextLength, log)
	log.Info("Classifier configured",
		zap.String("backend", cfg.Classifier.Backend),
		zap.Bool("serialized", !cfg.Classifier.ConcurrentSafe),
		zap.Int("batch_size", engine.BatchSize()),
	)

	// Rate limiters
	defaultLimiter, inferenceLimiter := newLimiters(ctx, cfg, redisClient, log)

	// Dataset
	dataset, err := newDatasetSource(cfg, db, log)
	if err != nil {
		return err
	}
	log.Info("Dataset source configured", zap.String("source", dataset.Name()))

	servingUC := usecase.NewServingUsecase(usecase.Dependencies{
		Engine:           engine,
		Processor:        processor,
		Dataset:          dataset,
		Model:            backend,
		Cache:            cache.New(cache.WithObserver(collector)),
		DefaultLimiter:   defaultLimiter,
		InferenceLimiter: inferenceLimiter,
		Rejections:       collector,
		Sink:             usecase.MultiSink{usecase.NewLogSink(log), collector},
		Logger:           log,
		Settings: usecase.Settings{
			MaxTextLength: cfg.Inference.MaxTextLength,
			MetricsTTL:    cfg.Cache.MetricsTTL,
			InfoTTL:       cfg.Cache.InfoTTL,
			SampleSize:    cfg.Dataset.SampleSize,
			SampleSeed:    cfg.Dataset.SampleSeed,
		},
	})

	// Setup router
	r := router.Setup(router.Dependencies{
		Usecase:        servingUC,
		DB:             db,
		Redis:          redisClient,
		Classifier:     backend,
		Gatherer:       registry,
		Logger:         log,
		MaxUploadBytes: cfg.Server.MaxUploadBytes,
	})

	// Create HTTP server
	addr := fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port)
	srv := &http.Server{
		Addr:         addr,
		Handler:      r,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  60 * time.Second,
	}

	serverErr := make(chan error, 1)
	go func() {
		log.Info("Starting server", zap.String("address", addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErr <- err
		}
	}()

	select {
	case <-ctx.Done():
	case err := <-serverErr:
		log.Error("Server failed", zap.Error(err))
		return fmt.Errorf("server failed: %w", err)
	}

	log.Info("Shutting down server...")

	// Graceful shutdown with timeout
	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error("Server forced to shutdown", zap.Error(err))
	}

	if db != nil {
		if sqlDB, err := db.DB(); err == nil && sqlDB != nil {
			_ = sqlDB.Close()
		}
	}
	if redisClient != nil {
		_ = redisClient.Close()
	}

	log.Info("Server exited")
	return nil
}

func newClassifier(cfg *config.Config) classifierBackend {
	if cfg.Classifier.Backend == config.ClassifierLexicon {
		return lexicon.New(lexicon.WithLimits(
			cfg.Inference.BatchSize,
			cfg.Classifier.MaxSequenceLength,
			cfg.Inference.MaxTextLength,
		))
	}
	return client.NewMLClassifier(
		client.NewMLClient(cfg.Classifier.URL, cfg.Classifier.Timeout),
		client.ModelSettings{
			ModelName:         cfg.Classifier.ModelName,
			MaxSequenceLength: cfg.Classifier.MaxSequenceLength,
			BatchSize:         cfg.Inference.BatchSize,
			MaxTextLength:     cfg.Inference.MaxTextLength,
		},
	)
}

// newLimiters builds the default and inference tiers. In-memory limiters are swept until ctx ends.
func newLimiters(ctx context.Context, cfg *config.Config, redisClient *redis.Client, log *zap.Logger) (usecase.Limiter, usecase.Limiter) {
	rl := cfg.RateLimit
	if rl.Backend == config.RateLimitRedis && redisClient != nil {
		return ratelimit.NewRedisFixedWindow(redisClient, "ratelimit:"+usecase.TierDefault, rl.DefaultLimit, rl.Window),
			ratelimit.NewRedisFixedWindow(redisClient, "ratelimit:"+usecase.TierInference, rl.InferenceLimit, rl.Window)
	}

	defaultLimiter := ratelimit.NewFixedWindow(rl.DefaultLimit, rl.Window)
	inferenceLimiter := ratelimit.NewFixedWindow(rl.InferenceLimit, rl.Window)
	defaultLimiter.StartJanitor(ctx, janitorInterval, log.With(zap.String("tier", usecase.TierDefault)))
	inferenceLimiter.StartJanitor(ctx, janitorInterval, log.With(zap.String("tier", usecase.TierInference)))
	return defaultLimiter, inferenceLimiter
}

func newDatasetSource(cfg *config.Config, db *gorm.DB, log *zap.Logger) (repository.DatasetSource, error) {
	var source repository.DatasetSource
	switch cfg.Dataset.Provider {
	case config.DatasetDemo:
		log.Warn("Serving the built-in demo dataset")
		return demo.NewSource(), nil
	case config.DatasetPostgres:
		if db == nil {
			return nil, errors.New("dataset provider postgres requires a database connection")
		}
		source = postgres.NewDatasetRepository(db)
	default:
		source = csvfile.NewSource(cfg.Dataset.Dir, map[entity.Split]string{
			entity.SplitTrain:      cfg.Dataset.TrainFile,
			entity.SplitValidation: cfg.Dataset.ValidationFile,
			entity.SplitTest:       cfg.Dataset.TestFile,
		})
	}

	if cfg.Dataset.DemoFallback {
		return demo.NewFallback(source, log), nil
	}
	return source, nil
}

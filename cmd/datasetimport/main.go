// Command datasetimport loads labelled CSV splits into the dataset_reviews table.
//
// Usage:
//
//	datasetimport -train data/train.csv -validation data/val_small.csv -test data/test.csv
//
// Database settings come from the same configuration as the API server.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"go.uber.org/zap"

	"github.com/ressKim-io/ReviewSense/api-service/internal/adapter/repository/csvfile"
	"github.com/ressKim-io/ReviewSense/api-service/internal/adapter/repository/postgres"
	"github.com/ressKim-io/ReviewSense/api-service/internal/domain/entity"
	"github.com/ressKim-io/ReviewSense/api-service/internal/infrastructure/config"
	"github.com/ressKim-io/ReviewSense/api-service/internal/infrastructure/database"
	"github.com/ressKim-io/ReviewSense/api-service/internal/infrastructure/logger"
)

// splitReplacer stores the full contents of one split
type splitReplacer interface {
	Replace(ctx context.Context, split entity.Split, reviews []entity.LabeledReview) error
}

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	files := map[entity.Split]*string{
		entity.SplitTrain:      flag.String("train", "", "CSV file for the train split"),
		entity.SplitValidation: flag.String("validation", "", "CSV file for the validation split"),
		entity.SplitTest:       flag.String("test", "", "CSV file for the test split"),
	}
	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	log, err := logger.NewLogger(&cfg.Log)
	if err != nil {
		return fmt.Errorf("failed to initialize logger: %w", err)
	}
	defer func() { _ = log.Sync() }()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	db, err := database.NewPostgresDB(&cfg.Database)
	if err != nil {
		return err
	}
	defer func() {
		if sqlDB, err := db.DB(); err == nil {
			_ = sqlDB.Close()
		}
	}()

	if err := database.AutoMigrate(db); err != nil {
		return fmt.Errorf("failed to run migrations: %w", err)
	}

	paths := make(map[entity.Split]string)
	for split, path := range files {
		if *path != "" {
			paths[split] = *path
		}
	}
	if len(paths) == 0 {
		return fmt.Errorf("no split files given")
	}

	return importSplits(ctx, postgres.NewDatasetRepository(db), paths, log)
}

// importSplits replaces every split in paths with the reviews read from its file.
// A split is only written once its whole file parsed.
func importSplits(ctx context.Context, repo splitReplacer, paths map[entity.Split]string, log *zap.Logger) error {
	for _, split := range entity.Splits {
		path, ok := paths[split]
		if !ok {
			continue
		}

		reviews, err := readFile(ctx, path)
		if err != nil {
			return err
		}
		if err := repo.Replace(ctx, split, reviews); err != nil {
			return fmt.Errorf("failed to store %s split: %w", split, err)
		}
		log.Info("Split imported",
			zap.String("split", string(split)),
			zap.String("file", path),
			zap.Int("rows", len(reviews)),
		)
	}
	return nil
}

func readFile(ctx context.Context, path string) ([]entity.LabeledReview, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	reviews, err := csvfile.ReadReviews(ctx, f)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return reviews, nil
}

package postgres

import (
	"context"
	"fmt"

	"gorm.io/gorm"

	"github.com/ressKim-io/ReviewSense/api-service/internal/domain/entity"
	"github.com/ressKim-io/ReviewSense/api-service/internal/domain/repository"
)

// SourceName identifies this source in responses
const SourceName = "postgres"

const importBatchSize = 500

// DatasetRepository serves dataset splits from the dataset_reviews table
type DatasetRepository struct {
	db *gorm.DB
}

// NewDatasetRepository creates a new dataset repository
func NewDatasetRepository(db *gorm.DB) *DatasetRepository {
	return &DatasetRepository{db: db}
}

// Name implements repository.DatasetSource
func (r *DatasetRepository) Name() string {
	return SourceName
}

// Load returns every review of split in insertion order
func (r *DatasetRepository) Load(ctx context.Context, split entity.Split) (*entity.Dataset, error) {
	var rows []entity.DatasetReview
	err := r.db.WithContext(ctx).
		Where("split = ?", string(split)).
		Order("id ASC").
		Find(&rows).Error
	if err != nil {
		return nil, fmt.Errorf("failed to load %s split: %w", split, err)
	}
	if len(rows) == 0 {
		return nil, fmt.Errorf("%w: %s", repository.ErrSplitNotFound, split)
	}

	reviews := make([]entity.LabeledReview, len(rows))
	for i, row := range rows {
		reviews[i] = entity.LabeledReview{Text: row.Text, Label: row.Label}
	}

	return &entity.Dataset{Split: split, Source: SourceName, Reviews: reviews}, nil
}

// Count returns the number of stored reviews in split
func (r *DatasetRepository) Count(ctx context.Context, split entity.Split) (int64, error) {
	var total int64
	err := r.db.WithContext(ctx).
		Model(&entity.DatasetReview{}).
		Where("split = ?", string(split)).
		Count(&total).Error
	if err != nil {
		return 0, err
	}
	return total, nil
}

// Replace swaps the stored reviews of split for reviews in one transaction
func (r *DatasetRepository) Replace(ctx context.Context, split entity.Split, reviews []entity.LabeledReview) error {
	rows := make([]entity.DatasetReview, len(reviews))
	for i, rv := range reviews {
		rows[i] = entity.DatasetReview{Split: string(split), Text: rv.Text, Label: rv.Label}
	}

	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("split = ?", string(split)).Delete(&entity.DatasetReview{}).Error; err != nil {
			return err
		}
		if len(rows) == 0 {
			return nil
		}
		return tx.CreateInBatches(rows, importBatchSize).Error
	})
}

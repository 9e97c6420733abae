package repository

import (
	"context"
	"errors"

	"github.com/ressKim-io/ReviewSense/api-service/internal/domain/entity"
)

// ErrSplitNotFound is returned when a source has no data for the requested split
var ErrSplitNotFound = errors.New("dataset split not found")

// DatasetSource defines the interface for labelled dataset access
type DatasetSource interface {
	// Load returns every review of a split in stored order
	Load(ctx context.Context, split entity.Split) (*entity.Dataset, error)

	// Name identifies the source in responses and logs
	Name() string
}

package service

import (
	"context"

	"github.com/ressKim-io/ReviewSense/api-service/internal/domain/entity"
)

// Classifier defines the interface for sentiment classification.
// Implementations return one prediction per input text in input order.
// They are not assumed to be safe for concurrent use.
type Classifier interface {
	Classify(ctx context.Context, texts []string) ([]entity.Prediction, error)
}

// ModelDescriber reports metadata about the model behind a classifier
type ModelDescriber interface {
	Describe(ctx context.Context) (*entity.ModelInfo, error)
}

// ReadinessChecker reports whether a classifier can currently serve requests
type ReadinessChecker interface {
	Ready(ctx context.Context) error
}

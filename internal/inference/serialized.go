package inference

import (
	"context"
	"sync"

	"github.com/ressKim-io/ReviewSense/api-service/internal/domain/entity"
	"github.com/ressKim-io/ReviewSense/api-service/internal/domain/service"
)

// SerializedClassifier admits one Classify call at a time against a shared classifier
type SerializedClassifier struct {
	mu    sync.Mutex
	inner service.Classifier
}

// Serialized wraps a classifier that is not safe for concurrent use
func Serialized(inner service.Classifier) *SerializedClassifier {
	return &SerializedClassifier{inner: inner}
}

// Classify forwards to the wrapped classifier while holding the lock
func (s *SerializedClassifier) Classify(ctx context.Context, texts []string) ([]entity.Prediction, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return s.inner.Classify(ctx, texts)
}

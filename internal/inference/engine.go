package inference

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/ressKim-io/ReviewSense/api-service/internal/domain/entity"
	"github.com/ressKim-io/ReviewSense/api-service/internal/domain/service"
)

// DefaultBatchSize is the number of texts sent to the classifier per call
const DefaultBatchSize = 32

// ErrClassification marks any failure reported by the classifier
var ErrClassification = errors.New("classification failed")

// BatchObserver is notified once per classifier call
type BatchObserver interface {
	ObserveBatch(size int, d time.Duration, err error)
}

// Option configures an Engine
type Option func(*Engine)

// WithObserver attaches a per-batch observer
func WithObserver(o BatchObserver) Option {
	return func(e *Engine) {
		e.observer = o
	}
}

// Engine splits text sequences into fixed-size groups and classifies them in order.
// It holds no state between calls.
type Engine struct {
	classifier service.Classifier
	batchSize  int
	observer   BatchObserver
}

// NewEngine creates an Engine. A batch size below 1 falls back to DefaultBatchSize.
func NewEngine(classifier service.Classifier, batchSize int, opts ...Option) *Engine {
	if batchSize < 1 {
		batchSize = DefaultBatchSize
	}
	e := &Engine{
		classifier: classifier,
		batchSize:  batchSize,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// BatchSize returns the configured group size
func (e *Engine) BatchSize() int {
	return e.batchSize
}

// Predict classifies texts and returns one prediction per text in input order
func (e *Engine) Predict(ctx context.Context, texts []string) ([]entity.Prediction, error) {
	if len(texts) == 0 {
		return []entity.Prediction{}, nil
	}

	results := make([]entity.Prediction, 0, len(texts))
	for start := 0; start < len(texts); start += e.batchSize {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		end := min(start+e.batchSize, len(texts))
		batch, err := e.classify(ctx, texts[start:end])
		if err != nil {
			return nil, err
		}
		results = append(results, batch...)
	}

	return results, nil
}

func (e *Engine) classify(ctx context.Context, texts []string) ([]entity.Prediction, error) {
	started := time.Now()
	predictions, err := e.classifier.Classify(ctx, texts)
	if err == nil && len(predictions) != len(texts) {
		err = fmt.Errorf("classifier returned %d results for %d texts", len(predictions), len(texts))
	}
	if e.observer != nil {
		e.observer.ObserveBatch(len(texts), time.Since(started), err)
	}

	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			if errors.Is(err, ctxErr) {
				return nil, err
			}
			return nil, fmt.Errorf("%w: %w", ctxErr, err)
		}
		if errors.Is(err, ErrClassification) {
			return nil, err
		}
		return nil, fmt.Errorf("%w: %w", ErrClassification, err)
	}

	for i, p := range predictions {
		if !(p.Probability >= 0 && p.Probability <= 1) {
			return nil, fmt.Errorf("%w: probability %v out of range at position %d", ErrClassification, p.Probability, i)
		}
	}

	return predictions, nil
}

package client

import (
	"context"
	"fmt"

	"github.com/ressKim-io/ReviewSense/api-service/internal/domain/entity"
)

// Backend names the classifier backend in model info
const Backend = "http"

// ModelSettings are the locally configured model properties reported by Describe
type ModelSettings struct {
	ModelName         string
	MaxSequenceLength int
	BatchSize         int
	MaxTextLength     int
}

// MLClassifier adapts MLClient to the Classifier interface
type MLClassifier struct {
	client   *MLClient
	settings ModelSettings
}

// NewMLClassifier creates a new MLClassifier
func NewMLClassifier(client *MLClient, settings ModelSettings) *MLClassifier {
	return &MLClassifier{client: client, settings: settings}
}

// Classify classifies texts in one remote call
func (c *MLClassifier) Classify(ctx context.Context, texts []string) ([]entity.Prediction, error) {
	resp, err := c.client.ClassifyBatch(ctx, texts, c.settings.MaxSequenceLength)
	if err != nil {
		return nil, err
	}

	if len(resp.Results) != len(texts) {
		return nil, fmt.Errorf("ML service returned %d results for %d texts", len(resp.Results), len(texts))
	}

	predictions := make([]entity.Prediction, len(resp.Results))
	for i, r := range resp.Results {
		if r.Label != entity.LabelNegative && r.Label != entity.LabelPositive {
			return nil, fmt.Errorf("ML service returned unknown label %d", r.Label)
		}
		predictions[i] = entity.Prediction{
			Label:       r.Label,
			Probability: r.Probability,
		}
	}

	return predictions, nil
}

// Describe reports the model served by the ML service
func (c *MLClassifier) Describe(ctx context.Context) (*entity.ModelInfo, error) {
	health, err := c.client.Health(ctx)
	if err != nil {
		return nil, err
	}

	name := c.settings.ModelName
	if health.ModelName != "" {
		name = health.ModelName
	}

	return &entity.ModelInfo{
		ModelName:         name,
		ModelVersion:      health.ModelVersion,
		Backend:           Backend,
		Labels:            entity.DefaultLabels(),
		BatchSize:         c.settings.BatchSize,
		MaxSequenceLength: c.settings.MaxSequenceLength,
		MaxTextLength:     c.settings.MaxTextLength,
	}, nil
}

// Ready reports whether the ML service can serve requests
func (c *MLClassifier) Ready(ctx context.Context) error {
	return c.client.Ready(ctx)
}

// Package lexicon provides a deterministic keyword classifier for running without a model server.
package lexicon

import (
	"context"
	"math"
	"strings"
	"unicode"

	"github.com/ressKim-io/ReviewSense/api-service/internal/domain/entity"
)

const (
	// Backend names the classifier backend in model info
	Backend = "lexicon"

	modelName    = "lexicon-sentiment"
	modelVersion = "1.0.0"
)

var defaultPositive = []string{
	"amazing", "awesome", "beautiful", "best", "brilliant", "enjoy", "enjoyed", "excellent",
	"fantastic", "fun", "good", "great", "love", "loved", "masterpiece", "perfect",
	"recommend", "superb", "wonderful", "worth",
}

var defaultNegative = []string{
	"awful", "bad", "boring", "disappointing", "dull", "hate", "hated", "horrible",
	"mess", "poor", "ridiculous", "stupid", "terrible", "waste", "wasted", "worse",
	"worst", "annoying", "pointless", "weak",
}

// Classifier scores texts by counting positive and negative keywords.
// It is safe for concurrent use.
type Classifier struct {
	positive          map[string]struct{}
	negative          map[string]struct{}
	batchSize         int
	maxSequenceLength int
	maxTextLength     int
}

// Option configures a Classifier
type Option func(*Classifier)

// WithWords replaces the keyword lists
func WithWords(positive, negative []string) Option {
	return func(c *Classifier) {
		c.positive = toSet(positive)
		c.negative = toSet(negative)
	}
}

// WithLimits sets the values reported by Describe
func WithLimits(batchSize, maxSequenceLength, maxTextLength int) Option {
	return func(c *Classifier) {
		c.batchSize = batchSize
		c.maxSequenceLength = maxSequenceLength
		c.maxTextLength = maxTextLength
	}
}

// New creates a Classifier with the built-in keyword lists
func New(opts ...Option) *Classifier {
	c := &Classifier{
		positive:      toSet(defaultPositive),
		negative:      toSet(defaultNegative),
		maxTextLength: entity.MaxTextLength,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Classify scores each text independently
func (c *Classifier) Classify(ctx context.Context, texts []string) ([]entity.Prediction, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	predictions := make([]entity.Prediction, len(texts))
	for i, text := range texts {
		predictions[i] = c.score(text)
	}
	return predictions, nil
}

func (c *Classifier) score(text string) entity.Prediction {
	tokens := strings.FieldsFunc(strings.ToLower(text), func(r rune) bool {
		return !unicode.IsLetter(r) && r != '\''
	})
	if c.maxSequenceLength > 0 && len(tokens) > c.maxSequenceLength {
		tokens = tokens[:c.maxSequenceLength]
	}

	hits := 0
	for _, tok := range tokens {
		if _, ok := c.positive[tok]; ok {
			hits++
		}
		if _, ok := c.negative[tok]; ok {
			hits--
		}
	}

	p := 1 / (1 + math.Exp(-float64(hits)))
	label := entity.LabelNegative
	if p > 1-p {
		label = entity.LabelPositive
	}
	return entity.Prediction{Label: label, Probability: p}
}

// Describe reports the lexicon model
func (c *Classifier) Describe(context.Context) (*entity.ModelInfo, error) {
	return &entity.ModelInfo{
		ModelName:         modelName,
		ModelVersion:      modelVersion,
		Backend:           Backend,
		Labels:            entity.DefaultLabels(),
		BatchSize:         c.batchSize,
		MaxSequenceLength: c.maxSequenceLength,
		MaxTextLength:     c.maxTextLength,
	}, nil
}

// Ready always succeeds
func (c *Classifier) Ready(context.Context) error {
	return nil
}

func toSet(words []string) map[string]struct{} {
	set := make(map[string]struct{}, len(words))
	for _, w := range words {
		set[strings.ToLower(w)] = struct{}{}
	}
	return set
}

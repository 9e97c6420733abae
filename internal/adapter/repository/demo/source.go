// Package demo provides the clearly labelled demo dataset and an opt-in fallback to it.
package demo

import (
	"context"
	"errors"

	"go.uber.org/zap"

	"github.com/ressKim-io/ReviewSense/api-service/internal/domain/entity"
	"github.com/ressKim-io/ReviewSense/api-service/internal/domain/repository"
)

// SourceName labels every response built from demo data
const SourceName = "demo"

var reviews = map[entity.Split][]entity.LabeledReview{
	entity.SplitTrain: {
		{Text: "An absolute masterpiece. The acting is superb and the story is wonderful.", Label: 1},
		{Text: "I loved every minute of it, would recommend to anyone.", Label: 1},
		{Text: "Great cast, great soundtrack, a fun evening.", Label: 1},
		{Text: "Beautiful cinematography and a brilliant ending.", Label: 1},
		{Text: "The best film I have seen this year.", Label: 1},
		{Text: "A boring, pointless mess with terrible dialogue.", Label: 0},
		{Text: "I hated it. Two hours wasted.", Label: 0},
		{Text: "The plot is dull and the characters are annoying.", Label: 0},
		{Text: "Awful pacing and a ridiculous twist.", Label: 0},
		{Text: "One of the worst sequels ever made.", Label: 0},
	},
	entity.SplitValidation: {
		{Text: "Fantastic performances, I enjoyed it a lot.", Label: 1},
		{Text: "Excellent script and a perfect score.", Label: 1},
		{Text: "Not great, not terrible, mostly forgettable.", Label: 1},
		{Text: "Poor writing and weak direction.", Label: 0},
		{Text: "Disappointing and far too long.", Label: 0},
		{Text: "It was fine I guess.", Label: 0},
	},
	entity.SplitTest: {
		{Text: "Wonderful and moving.", Label: 1},
		{Text: "Horrible from start to finish.", Label: 0},
	},
}

// Source is the demo dataset provider
type Source struct{}

// NewSource creates the demo provider
func NewSource() *Source {
	return &Source{}
}

// Name implements repository.DatasetSource
func (s *Source) Name() string {
	return SourceName
}

// Load returns a copy of the demo split
func (s *Source) Load(_ context.Context, split entity.Split) (*entity.Dataset, error) {
	rows, ok := reviews[split]
	if !ok {
		return nil, repository.ErrSplitNotFound
	}
	return &entity.Dataset{
		Split:   split,
		Source:  SourceName,
		Reviews: append([]entity.LabeledReview(nil), rows...),
	}, nil
}

// Fallback serves demo data for splits the primary source does not have.
// Only wired when demo fallback is explicitly enabled.
type Fallback struct {
	primary repository.DatasetSource
	demo    repository.DatasetSource
	logger  *zap.Logger
}

// NewFallback wraps primary with the demo provider
func NewFallback(primary repository.DatasetSource, logger *zap.Logger) *Fallback {
	return &Fallback{
		primary: primary,
		demo:    NewSource(),
		logger:  logger.With(zap.String("component", "dataset")),
	}
}

// Name implements repository.DatasetSource
func (f *Fallback) Name() string {
	return f.primary.Name()
}

// Load tries the primary source first and falls back to demo data on a missing split
func (f *Fallback) Load(ctx context.Context, split entity.Split) (*entity.Dataset, error) {
	ds, err := f.primary.Load(ctx, split)
	if err == nil {
		return ds, nil
	}
	if !errors.Is(err, repository.ErrSplitNotFound) {
		return nil, err
	}

	f.logger.Warn("dataset split missing, serving demo data",
		zap.String("split", string(split)),
		zap.String("primary", f.primary.Name()),
		zap.Error(err),
	)
	return f.demo.Load(ctx, split)
}

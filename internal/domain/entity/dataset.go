package entity

import (
	"math/rand"
	"time"
	"unicode/utf8"
)

// Split names a partition of the labelled dataset
type Split string

const (
	SplitTrain      Split = "train"
	SplitValidation Split = "validation"
	SplitTest       Split = "test"
)

// Splits lists every known split in a stable order
var Splits = []Split{SplitTrain, SplitValidation, SplitTest}

// LabeledReview is a review text with its ground-truth label
type LabeledReview struct {
	Text  string `json:"text"`
	Label int    `json:"label"`
}

// Dataset is one loaded split together with the name of the source that served it
type Dataset struct {
	Split   Split
	Source  string
	Reviews []LabeledReview
}

// Texts returns the review texts in dataset order
func (d *Dataset) Texts() []string {
	texts := make([]string, len(d.Reviews))
	for i, r := range d.Reviews {
		texts[i] = r.Text
	}
	return texts
}

// Labels returns the ground-truth labels in dataset order
func (d *Dataset) Labels() []int {
	labels := make([]int, len(d.Reviews))
	for i, r := range d.Reviews {
		labels[i] = r.Label
	}
	return labels
}

// DatasetReview is the persisted form of a labelled review
type DatasetReview struct {
	ID        uint      `json:"id" gorm:"primaryKey"`
	Split     string    `json:"split" gorm:"type:varchar(20);not null;index"`
	Text      string    `json:"text" gorm:"type:text;not null"`
	Label     int       `json:"label" gorm:"not null"`
	CreatedAt time.Time `json:"created_at" gorm:"autoCreateTime"`
}

// TableName returns the table name for GORM
func (DatasetReview) TableName() string {
	return "dataset_reviews"
}

// DatasetStats summarizes the training split
type DatasetStats struct {
	TotalSamples    int `json:"Total samples"`
	Positive        int `json:"Positive"`
	Negative        int `json:"Negative"`
	AvgReviewLength int `json:"Avg. review length"`
}

// SplitStatistics counts rows per split
type SplitStatistics struct {
	TotalSamples int `json:"total_samples"`
	TrainSamples int `json:"train_samples"`
	ValSamples   int `json:"val_samples"`
	TestSamples  int `json:"test_samples"`
}

// DatasetInfo is the dataset overview served to clients
type DatasetInfo struct {
	Stats      DatasetStats    `json:"stats"`
	Samples    []LabeledReview `json:"samples"`
	Statistics SplitStatistics `json:"statistics"`
	Source     string          `json:"source"`
}

// SummarizeReviews computes label counts and the mean text length in characters
func SummarizeReviews(reviews []LabeledReview) DatasetStats {
	stats := DatasetStats{TotalSamples: len(reviews)}
	if len(reviews) == 0 {
		return stats
	}

	totalLength := 0
	for _, r := range reviews {
		switch r.Label {
		case LabelPositive:
			stats.Positive++
		case LabelNegative:
			stats.Negative++
		}
		totalLength += utf8.RuneCountInString(r.Text)
	}
	stats.AvgReviewLength = totalLength / len(reviews)
	return stats
}

// SampleReviews picks up to n reviews with a seeded shuffle so the same seed always yields the same sample
func SampleReviews(reviews []LabeledReview, n int, seed int64) []LabeledReview {
	if n > len(reviews) {
		n = len(reviews)
	}
	if n <= 0 {
		return []LabeledReview{}
	}

	rng := rand.New(rand.NewSource(seed))
	samples := make([]LabeledReview, n)
	for i, idx := range rng.Perm(len(reviews))[:n] {
		samples[i] = reviews[idx]
	}
	return samples
}

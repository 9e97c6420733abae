package entity

import (
	"errors"
	"fmt"
)

// ErrInvalidLabel is returned when a ground-truth label is neither 0 nor 1
var ErrInvalidLabel = errors.New("label must be 0 or 1")

// ConfusionMatrix is laid out as [[TN, FP], [FN, TP]]
type ConfusionMatrix [2][2]int

// TN returns the true negative count
func (m ConfusionMatrix) TN() int { return m[0][0] }

// FP returns the false positive count
func (m ConfusionMatrix) FP() int { return m[0][1] }

// FN returns the false negative count
func (m ConfusionMatrix) FN() int { return m[1][0] }

// TP returns the true positive count
func (m ConfusionMatrix) TP() int { return m[1][1] }

// MetricsSnapshot holds evaluation metrics at one decision threshold.
// Snapshots are never mutated after ComputeMetrics returns them.
type MetricsSnapshot struct {
	Accuracy          float64         `json:"accuracy"`
	Precision         float64         `json:"precision"`
	Recall            float64         `json:"recall"`
	F1                float64         `json:"f1"`
	LabelDistribution [2]int          `json:"label_distribution"`
	ConfusionMatrix   ConfusionMatrix `json:"confusion_matrix"`
	Threshold         float64         `json:"threshold"`
	TotalSamples      int             `json:"total_samples"`
	Source            string          `json:"source,omitempty"`
}

// ThresholdLabel re-derives a binary label from a probability.
// It ignores the classifier's own argmax label.
func ThresholdLabel(probability, threshold float64) int {
	if probability >= threshold {
		return LabelPositive
	}
	return LabelNegative
}

// ComputeMetrics evaluates probabilities against ground-truth labels at the given threshold
func ComputeMetrics(labels []int, probabilities []float64, threshold float64) (MetricsSnapshot, error) {
	if len(labels) != len(probabilities) {
		return MetricsSnapshot{}, fmt.Errorf("got %d labels and %d probabilities", len(labels), len(probabilities))
	}

	var cm ConfusionMatrix
	var dist [2]int
	for i, truth := range labels {
		if truth != LabelNegative && truth != LabelPositive {
			return MetricsSnapshot{}, fmt.Errorf("row %d: %w", i, ErrInvalidLabel)
		}
		predicted := ThresholdLabel(probabilities[i], threshold)
		cm[truth][predicted]++
		dist[truth]++
	}

	tp, fp, tn, fn := float64(cm.TP()), float64(cm.FP()), float64(cm.TN()), float64(cm.FN())
	precision := safeDiv(tp, tp+fp)
	recall := safeDiv(tp, tp+fn)

	return MetricsSnapshot{
		Accuracy:          safeDiv(tp+tn, float64(len(labels))),
		Precision:         precision,
		Recall:            recall,
		F1:                safeDiv(2*precision*recall, precision+recall),
		LabelDistribution: dist,
		ConfusionMatrix:   cm,
		Threshold:         threshold,
		TotalSamples:      len(labels),
	}, nil
}

func safeDiv(num, denom float64) float64 {
	if denom == 0 {
		return 0
	}
	return num / denom
}

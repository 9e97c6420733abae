package entity

import "unicode/utf8"

// MaxTextLength is the ingress limit applied to every review text.
const MaxTextLength = 10000

// Binary labels produced by the classifier
const (
	LabelNegative = 0
	LabelPositive = 1
)

// Sentiment is the human readable form of a label
type Sentiment string

const (
	SentimentNegative Sentiment = "negative"
	SentimentPositive Sentiment = "positive"
)

// SentimentFor returns the sentiment matching a predicted label
func SentimentFor(label int) Sentiment {
	if label == LabelPositive {
		return SentimentPositive
	}
	return SentimentNegative
}

// TruncateText cuts text down to at most limit characters.
// A non-positive limit leaves the text untouched.
func TruncateText(text string, limit int) string {
	if limit <= 0 || len(text) <= limit {
		return text
	}
	if utf8.RuneCountInString(text) <= limit {
		return text
	}

	count := 0
	for i := range text {
		if count == limit {
			return text[:i]
		}
		count++
	}
	return text
}

// Prediction is the classifier output for one text.
// Label is the classifier's own argmax class and Probability is the positive-class score.
type Prediction struct {
	Label       int     `json:"label"`
	Probability float64 `json:"probability"`
}

// Sentiment returns the sentiment of the predicted label
func (p Prediction) Sentiment() Sentiment {
	return SentimentFor(p.Label)
}

// NotAvailable is exported in place of a missing ground-truth label
const NotAvailable = "N/A"

// BatchRecord is one output row of a batch prediction
type BatchRecord struct {
	Text           string    `json:"text"`
	PredictedLabel int       `json:"predicted_label"`
	Sentiment      Sentiment `json:"sentiment"`
	Confidence     float64   `json:"confidence"`
	OriginalLabel  *string   `json:"original_label,omitempty"`
}

// NewBatchRecord builds a record from a text, its prediction and an optional ground-truth label
func NewBatchRecord(text string, p Prediction, originalLabel *string) BatchRecord {
	return BatchRecord{
		Text:           text,
		PredictedLabel: p.Label,
		Sentiment:      p.Sentiment(),
		Confidence:     p.Probability,
		OriginalLabel:  originalLabel,
	}
}

// OriginalLabelOrNA returns the ground-truth label as exported in CSV files
func (r BatchRecord) OriginalLabelOrNA() string {
	if r.OriginalLabel == nil || *r.OriginalLabel == "" {
		return NotAvailable
	}
	return *r.OriginalLabel
}

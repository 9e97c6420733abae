package entity

// ModelInfo describes the classifier behind the service
type ModelInfo struct {
	ModelName         string   `json:"model_name"`
	ModelVersion      string   `json:"model_version"`
	Backend           string   `json:"backend"`
	Labels            []string `json:"labels"`
	BatchSize         int      `json:"batch_size"`
	MaxSequenceLength int      `json:"max_sequence_length"`
	MaxTextLength     int      `json:"max_text_length"`
}

// DefaultLabels are the class names in label order
func DefaultLabels() []string {
	return []string{string(SentimentNegative), string(SentimentPositive)}
}

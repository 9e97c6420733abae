package entity

import "time"

// Request outcomes reported to the observability sink
const (
	OutcomeOK                   = "ok"
	OutcomeValidationError      = "validation_error"
	OutcomeSchemaError          = "schema_error"
	OutcomeEmptyInput           = "empty_input"
	OutcomeParseError           = "parse_error"
	OutcomeRateLimited          = "rate_limited"
	OutcomeClassificationFailed = "classification_failed"
	OutcomeDatasetUnavailable   = "dataset_unavailable"
	OutcomePayloadTooLarge      = "payload_too_large"
	OutcomeCancelled            = "cancelled"
	OutcomeInternalError        = "internal_error"
)

// RequestEvent is the timing record emitted once per orchestrated call
type RequestEvent struct {
	Start     time.Time
	Endpoint  string
	Client    string
	RequestID string
	Duration  time.Duration
	Outcome   string
}

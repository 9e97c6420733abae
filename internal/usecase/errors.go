package usecase

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/ressKim-io/ReviewSense/api-service/internal/domain/entity"
	"github.com/ressKim-io/ReviewSense/api-service/internal/domain/repository"
	"github.com/ressKim-io/ReviewSense/api-service/internal/inference"
	"github.com/ressKim-io/ReviewSense/api-service/internal/streaming"
)

// Error definitions for the serving usecase
var (
	ErrValidation        = errors.New("invalid request")
	ErrRateLimitExceeded = errors.New("rate limit exceeded")

	// ErrNoFile is reported when a batch request carries no file part
	ErrNoFile = fmt.Errorf("%w: no file uploaded", ErrValidation)
)

func validationError(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrValidation, fmt.Sprintf(format, args...))
}

// Outcome classifies err into the outcome reported for a request
func Outcome(err error) string {
	var maxBytes *http.MaxBytesError

	switch {
	case err == nil:
		return entity.OutcomeOK
	case errors.As(err, &maxBytes):
		return entity.OutcomePayloadTooLarge
	case errors.Is(err, ErrValidation):
		return entity.OutcomeValidationError
	case errors.Is(err, streaming.ErrSchema):
		return entity.OutcomeSchemaError
	case errors.Is(err, streaming.ErrEmptyInput):
		return entity.OutcomeEmptyInput
	case errors.Is(err, streaming.ErrParse):
		return entity.OutcomeParseError
	case errors.Is(err, ErrRateLimitExceeded):
		return entity.OutcomeRateLimited
	case errors.Is(err, inference.ErrClassification):
		return entity.OutcomeClassificationFailed
	case errors.Is(err, repository.ErrSplitNotFound):
		return entity.OutcomeDatasetUnavailable
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return entity.OutcomeCancelled
	default:
		return entity.OutcomeInternalError
	}
}

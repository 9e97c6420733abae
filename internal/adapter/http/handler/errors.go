package handler

import (
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/ressKim-io/ReviewSense/api-service/internal/domain/repository"
	"github.com/ressKim-io/ReviewSense/api-service/internal/inference"
	"github.com/ressKim-io/ReviewSense/api-service/internal/streaming"
	"github.com/ressKim-io/ReviewSense/api-service/internal/usecase"
)

// ErrorResponse represents a structured error response
type ErrorResponse struct {
	StatusCode int
	Code       string
	Message    string
}

// MapUsecaseError maps usecase errors to HTTP error responses.
// Caller mistakes keep their specific message; server-side failures are reported generically.
func MapUsecaseError(err error) ErrorResponse {
	var maxBytes *http.MaxBytesError

	switch {
	case errors.As(err, &maxBytes):
		return ErrorResponse{
			StatusCode: http.StatusRequestEntityTooLarge,
			Code:       "PAYLOAD_TOO_LARGE",
			Message:    fmt.Sprintf("upload exceeds %d bytes", maxBytes.Limit),
		}
	case errors.Is(err, usecase.ErrNoFile):
		return ErrorResponse{
			StatusCode: http.StatusBadRequest,
			Code:       "INVALID_REQUEST",
			Message:    strings.TrimPrefix(usecase.ErrNoFile.Error(), usecase.ErrValidation.Error()+": "),
		}
	case errors.Is(err, usecase.ErrValidation):
		return ErrorResponse{
			StatusCode: http.StatusBadRequest,
			Code:       "INVALID_REQUEST",
			Message:    strings.TrimPrefix(err.Error(), usecase.ErrValidation.Error()+": "),
		}
	case errors.Is(err, streaming.ErrSchema):
		return ErrorResponse{
			StatusCode: http.StatusUnprocessableEntity,
			Code:       "SCHEMA_ERROR",
			Message:    streaming.ErrSchema.Error(),
		}
	case errors.Is(err, streaming.ErrEmptyInput):
		return ErrorResponse{
			StatusCode: http.StatusBadRequest,
			Code:       "EMPTY_INPUT",
			Message:    streaming.ErrEmptyInput.Error(),
		}
	case errors.Is(err, streaming.ErrParse):
		return ErrorResponse{
			StatusCode: http.StatusBadRequest,
			Code:       "PARSE_ERROR",
			Message:    err.Error(),
		}
	case errors.Is(err, usecase.ErrRateLimitExceeded):
		return ErrorResponse{
			StatusCode: http.StatusTooManyRequests,
			Code:       "RATE_LIMITED",
			Message:    "rate limit exceeded, retry later",
		}
	case errors.Is(err, inference.ErrClassification):
		return ErrorResponse{
			StatusCode: http.StatusBadGateway,
			Code:       "CLASSIFICATION_FAILED",
			Message:    "classification failed",
		}
	case errors.Is(err, repository.ErrSplitNotFound):
		return ErrorResponse{
			StatusCode: http.StatusServiceUnavailable,
			Code:       "DATASET_UNAVAILABLE",
			Message:    "dataset unavailable",
		}
	default:
		return ErrorResponse{
			StatusCode: http.StatusInternalServerError,
			Code:       "INTERNAL_ERROR",
			Message:    "internal server error",
		}
	}
}

// HandleUsecaseError handles a usecase error by sending an appropriate HTTP response.
func HandleUsecaseError(c *gin.Context, err error) {
	errResp := MapUsecaseError(err)
	respondError(c, errResp.StatusCode, errResp.Code, errResp.Message)
}

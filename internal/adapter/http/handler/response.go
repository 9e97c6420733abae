package handler

import (
	"encoding/csv"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/ressKim-io/ReviewSense/api-service/internal/infrastructure/requestid"
)

// Response represents the standard API response structure
type Response struct {
	Success bool       `json:"success"`
	Data    any        `json:"data,omitempty"`
	Error   *ErrorInfo `json:"error,omitempty"`
	Meta    *MetaInfo  `json:"meta"`
}

// ErrorInfo represents error details
type ErrorInfo struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// MetaInfo represents response metadata
type MetaInfo struct {
	Timestamp string `json:"timestamp"`
	RequestID string `json:"request_id"`
}

const csvContentType = "text/csv; charset=utf-8"

func newMeta(c *gin.Context) *MetaInfo {
	id := c.GetString("request_id")
	if id == "" && c.Request != nil {
		id = requestid.FromContext(c.Request.Context())
	}
	if id == "" {
		id = uuid.New().String()
	}
	return &MetaInfo{
		Timestamp: time.Now().UTC().Format(time.RFC3339),
		RequestID: id,
	}
}

func respondSuccess(c *gin.Context, status int, data any) {
	c.JSON(status, Response{
		Success: true,
		Data:    data,
		Meta:    newMeta(c),
	})
}

func respondError(c *gin.Context, status int, code, message string) {
	c.JSON(status, Response{
		Success: false,
		Error: &ErrorInfo{
			Code:    code,
			Message: message,
		},
		Meta: newMeta(c),
	})
}

// respondCSV streams rows as a CSV attachment. Rows are written after the
// status line, so a write failure can only be logged.
func respondCSV(c *gin.Context, logger *zap.Logger, filename string, header []string, rows func(w *csv.Writer) error) {
	c.Header("Content-Type", csvContentType)
	c.Header("Content-Disposition", `attachment; filename="`+filename+`"`)
	c.Status(http.StatusOK)

	w := csv.NewWriter(c.Writer)
	err := w.Write(header)
	if err == nil {
		err = rows(w)
	}
	w.Flush()
	if err == nil {
		err = w.Error()
	}
	if err != nil {
		logger.Warn("failed to write csv response",
			zap.String("filename", filename),
			zap.String("request_id", c.GetString("request_id")),
			zap.Error(err),
		)
	}
}

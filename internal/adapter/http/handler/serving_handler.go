package handler

import (
	"encoding/csv"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/ressKim-io/ReviewSense/api-service/internal/domain/entity"
	"github.com/ressKim-io/ReviewSense/api-service/internal/usecase"
)

// Export file names
const (
	PredictionsFile     = "predictions.csv"
	ValidationFile      = "validation_predictions.csv"
	ConfusionMatrixFile = "confusion_matrix.csv"
)

// ServingHandler handles prediction and evaluation endpoints
type ServingHandler struct {
	usecase usecase.ServingUsecase
	logger  *zap.Logger
}

// NewServingHandler creates a new serving handler
func NewServingHandler(uc usecase.ServingUsecase, logger *zap.Logger) *ServingHandler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ServingHandler{
		usecase: uc,
		logger:  logger,
	}
}

// BatchPredictionResponse is the body of a file prediction
type BatchPredictionResponse struct {
	Results []entity.BatchRecord `json:"results"`
	Count   int                  `json:"count"`
}

// Predict handles POST /api/v1/predict
func (h *ServingHandler) Predict(c *gin.Context) {
	var input usecase.PredictInput = usecase.JSONBody{Body: c.Request.Body}
	if IsMultipart(c) {
		input = usecase.BatchFile{File: UploadedFile(c)}
	}

	out, err := h.usecase.Predict(c.Request.Context(), ClientKey(c), input)
	if err != nil {
		HandleUsecaseError(c, err)
		return
	}

	if out.Single != nil {
		respondSuccess(c, http.StatusOK, out.Single)
		return
	}
	respondSuccess(c, http.StatusOK, BatchPredictionResponse{
		Results: out.Records,
		Count:   len(out.Records),
	})
}

// Export handles POST /api/v1/predict/export
func (h *ServingHandler) Export(c *gin.Context) {
	records, err := h.usecase.Export(c.Request.Context(), ClientKey(c), UploadedFile(c))
	if err != nil {
		HandleUsecaseError(c, err)
		return
	}

	header := []string{"text", "predicted_label", "sentiment", "confidence", "original_label"}
	respondCSV(c, h.logger, PredictionsFile, header, func(w *csv.Writer) error {
		for _, r := range records {
			row := []string{
				r.Text,
				strconv.Itoa(r.PredictedLabel),
				string(r.Sentiment),
				formatFloat(r.Confidence),
				r.OriginalLabelOrNA(),
			}
			if err := w.Write(row); err != nil {
				return err
			}
		}
		return nil
	})
}

// Metrics handles GET /api/v1/metrics
func (h *ServingHandler) Metrics(c *gin.Context) {
	snapshot, err := h.usecase.Metrics(c.Request.Context(), ClientKey(c), ParseThreshold(c))
	if err != nil {
		HandleUsecaseError(c, err)
		return
	}
	respondSuccess(c, http.StatusOK, snapshot)
}

// PredictionsCSV handles GET /api/v1/metrics/predictions.csv
func (h *ServingHandler) PredictionsCSV(c *gin.Context) {
	scored, err := h.usecase.ValidationPredictions(c.Request.Context(), ClientKey(c), ParseThreshold(c))
	if err != nil {
		HandleUsecaseError(c, err)
		return
	}

	header := []string{"text", "label", "probability", "predicted_label"}
	respondCSV(c, h.logger, ValidationFile, header, func(w *csv.Writer) error {
		for _, s := range scored {
			row := []string{
				s.Text,
				strconv.Itoa(s.Label),
				formatFloat(s.Probability),
				strconv.Itoa(s.PredictedLabel),
			}
			if err := w.Write(row); err != nil {
				return err
			}
		}
		return nil
	})
}

// ConfusionMatrixCSV handles GET /api/v1/metrics/confusion_matrix.csv
func (h *ServingHandler) ConfusionMatrixCSV(c *gin.Context) {
	snapshot, err := h.usecase.ConfusionMatrix(c.Request.Context(), ClientKey(c), ParseThreshold(c))
	if err != nil {
		HandleUsecaseError(c, err)
		return
	}

	cm := snapshot.ConfusionMatrix
	header := []string{"", "predicted_negative", "predicted_positive"}
	respondCSV(c, h.logger, ConfusionMatrixFile, header, func(w *csv.Writer) error {
		return w.WriteAll([][]string{
			{"actual_negative", strconv.Itoa(cm.TN()), strconv.Itoa(cm.FP())},
			{"actual_positive", strconv.Itoa(cm.FN()), strconv.Itoa(cm.TP())},
		})
	})
}

// DatasetInfo handles GET /api/v1/dataset-info
func (h *ServingHandler) DatasetInfo(c *gin.Context) {
	info, err := h.usecase.DatasetInfo(c.Request.Context(), ClientKey(c))
	if err != nil {
		HandleUsecaseError(c, err)
		return
	}
	respondSuccess(c, http.StatusOK, info)
}

// ModelInfo handles GET /api/v1/model-info
func (h *ServingHandler) ModelInfo(c *gin.Context) {
	info, err := h.usecase.ModelInfo(c.Request.Context(), ClientKey(c))
	if err != nil {
		HandleUsecaseError(c, err)
		return
	}
	respondSuccess(c, http.StatusOK, info)
}

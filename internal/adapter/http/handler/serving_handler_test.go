package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"math"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/ressKim-io/ReviewSense/api-service/internal/domain/entity"
	"github.com/ressKim-io/ReviewSense/api-service/internal/domain/repository"
	"github.com/ressKim-io/ReviewSense/api-service/internal/streaming"
	"github.com/ressKim-io/ReviewSense/api-service/internal/usecase"
)

const testClient = "192.0.2.1"

// MockServingUsecase is a mock implementation of ServingUsecase
type MockServingUsecase struct {
	mock.Mock
}

func (m *MockServingUsecase) Predict(ctx context.Context, client string, input usecase.PredictInput) (*usecase.PredictOutput, error) {
	args := m.Called(ctx, client, input)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*usecase.PredictOutput), args.Error(1)
}

func (m *MockServingUsecase) Export(ctx context.Context, client string, file io.Reader) ([]entity.BatchRecord, error) {
	args := m.Called(ctx, client, file)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]entity.BatchRecord), args.Error(1)
}

func (m *MockServingUsecase) Metrics(ctx context.Context, client string, threshold float64) (*entity.MetricsSnapshot, error) {
	args := m.Called(ctx, client, threshold)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*entity.MetricsSnapshot), args.Error(1)
}

func (m *MockServingUsecase) ValidationPredictions(ctx context.Context, client string, threshold float64) ([]usecase.ScoredReview, error) {
	args := m.Called(ctx, client, threshold)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]usecase.ScoredReview), args.Error(1)
}

func (m *MockServingUsecase) ConfusionMatrix(ctx context.Context, client string, threshold float64) (*entity.MetricsSnapshot, error) {
	args := m.Called(ctx, client, threshold)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*entity.MetricsSnapshot), args.Error(1)
}

func (m *MockServingUsecase) DatasetInfo(ctx context.Context, client string) (*entity.DatasetInfo, error) {
	args := m.Called(ctx, client)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*entity.DatasetInfo), args.Error(1)
}

func (m *MockServingUsecase) ModelInfo(ctx context.Context, client string) (*entity.ModelInfo, error) {
	args := m.Called(ctx, client)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*entity.ModelInfo), args.Error(1)
}

func setupTestRouter(h *ServingHandler) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.POST("/api/v1/predict", h.Predict)
	r.POST("/api/v1/predict/export", h.Export)
	r.GET("/api/v1/metrics", h.Metrics)
	r.GET("/api/v1/metrics/predictions.csv", h.PredictionsCSV)
	r.GET("/api/v1/metrics/confusion_matrix.csv", h.ConfusionMatrixCSV)
	r.GET("/api/v1/dataset-info", h.DatasetInfo)
	r.GET("/api/v1/model-info", h.ModelInfo)
	return r
}

func serve(router *gin.Engine, req *http.Request) *httptest.ResponseRecorder {
	req.RemoteAddr = testClient + ":41000"
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

func decodeResponse(t *testing.T, w *httptest.ResponseRecorder, data any) Response {
	t.Helper()
	var raw struct {
		Response
		Data json.RawMessage `json:"data"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &raw))
	if data != nil && len(raw.Data) > 0 {
		require.NoError(t, json.Unmarshal(raw.Data, data))
	}
	return raw.Response
}

func isJSONBody(text string) any {
	return mock.MatchedBy(func(in usecase.PredictInput) bool {
		body, ok := in.(usecase.JSONBody)
		if !ok {
			return false
		}
		data, err := io.ReadAll(body.Body)
		return err == nil && string(data) == text
	})
}

func TestPredict_SingleText(t *testing.T) {
	mockUC := new(MockServingUsecase)
	router := setupTestRouter(NewServingHandler(mockUC, nil))

	body := `{"text": "great film"}`
	mockUC.On("Predict", mock.Anything, testClient, isJSONBody(body)).Return(&usecase.PredictOutput{
		Single: &usecase.SinglePrediction{Label: 1, Probability: 0.93, Sentiment: entity.SentimentPositive},
	}, nil)

	req, _ := http.NewRequest("POST", "/api/v1/predict", bytes.NewBufferString(body))
	req.Header.Set("Content-Type", "application/json")
	w := serve(router, req)

	assert.Equal(t, http.StatusOK, w.Code)

	var got usecase.SinglePrediction
	response := decodeResponse(t, w, &got)
	assert.True(t, response.Success)
	assert.Equal(t, 1, got.Label)
	assert.Equal(t, 0.93, got.Probability)
	assert.Equal(t, entity.SentimentPositive, got.Sentiment)
	mockUC.AssertExpectations(t)
}

func TestPredict_ValidationError(t *testing.T) {
	mockUC := new(MockServingUsecase)
	router := setupTestRouter(NewServingHandler(mockUC, nil))

	mockUC.On("Predict", mock.Anything, testClient, mock.Anything).
		Return(nil, fmt.Errorf("%w: field 'text' is required", usecase.ErrValidation))

	req, _ := http.NewRequest("POST", "/api/v1/predict", bytes.NewBufferString(`{}`))
	req.Header.Set("Content-Type", "application/json")
	w := serve(router, req)

	assert.Equal(t, http.StatusBadRequest, w.Code)

	response := decodeResponse(t, w, nil)
	assert.False(t, response.Success)
	require.NotNil(t, response.Error)
	assert.Equal(t, "INVALID_REQUEST", response.Error.Code)
	assert.Equal(t, "field 'text' is required", response.Error.Message)
}

func TestPredict_BatchFile(t *testing.T) {
	mockUC := new(MockServingUsecase)
	router := setupTestRouter(NewServingHandler(mockUC, nil))

	var uploaded string
	label := "1"
	records := []entity.BatchRecord{
		{Text: "good", PredictedLabel: 1, Sentiment: entity.SentimentPositive, Confidence: 0.8, OriginalLabel: &label},
		{Text: "bad", PredictedLabel: 0, Sentiment: entity.SentimentNegative, Confidence: 0.1},
	}
	mockUC.On("Predict", mock.Anything, testClient, mock.AnythingOfType("usecase.BatchFile")).
		Run(func(args mock.Arguments) {
			file := args.Get(2).(usecase.BatchFile).File
			require.NotNil(t, file)
			data, err := io.ReadAll(file)
			require.NoError(t, err)
			uploaded = string(data)
		}).
		Return(&usecase.PredictOutput{Records: records}, nil)

	body, contentType := multipartBody(t, FileField, "reviews.csv", "text,label\ngood,1\nbad,\n")
	req, _ := http.NewRequest("POST", "/api/v1/predict", body)
	req.Header.Set("Content-Type", contentType)
	w := serve(router, req)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "text,label\ngood,1\nbad,\n", uploaded)

	var got BatchPredictionResponse
	decodeResponse(t, w, &got)
	assert.Equal(t, 2, got.Count)
	assert.Equal(t, "good", got.Results[0].Text)
	assert.Nil(t, got.Results[1].OriginalLabel)
	mockUC.AssertExpectations(t)
}

func TestPredict_MultipartWithoutFile(t *testing.T) {
	mockUC := new(MockServingUsecase)
	router := setupTestRouter(NewServingHandler(mockUC, nil))

	var readErr error
	mockUC.On("Predict", mock.Anything, testClient, mock.AnythingOfType("usecase.BatchFile")).
		Run(func(args mock.Arguments) {
			file := args.Get(2).(usecase.BatchFile).File
			require.NotNil(t, file)
			_, readErr = io.ReadAll(file)
		}).
		Return(nil, fmt.Errorf("%w: %w", streaming.ErrParse, usecase.ErrNoFile))

	body, contentType := multipartBody(t, "attachment", "reviews.csv", "text\nok\n")
	req, _ := http.NewRequest("POST", "/api/v1/predict", body)
	req.Header.Set("Content-Type", contentType)
	w := serve(router, req)

	assert.ErrorIs(t, readErr, usecase.ErrNoFile)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, w.Body.String(), "INVALID_REQUEST")
	assert.Contains(t, w.Body.String(), "no file uploaded")
	mockUC.AssertExpectations(t)
}

func TestPredict_RejectedUploadIsNotRead(t *testing.T) {
	mockUC := new(MockServingUsecase)
	router := setupTestRouter(NewServingHandler(mockUC, nil))

	mockUC.On("Predict", mock.Anything, testClient, mock.AnythingOfType("usecase.BatchFile")).
		Return(nil, usecase.ErrRateLimitExceeded)

	body, contentType := multipartBody(t, "note", "notes.txt", strings.Repeat("x", 64<<10))
	counted := &countingReader{r: body}
	req, _ := http.NewRequest("POST", "/api/v1/predict", counted)
	req.Header.Set("Content-Type", contentType)
	w := serve(router, req)

	assert.Equal(t, http.StatusTooManyRequests, w.Code)
	assert.Zero(t, counted.n)
	mockUC.AssertExpectations(t)
}

func TestPredict_ErrorMapping(t *testing.T) {
	tests := []struct {
		name         string
		err          error
		expectedCode int
		expectedBody string
	}{
		{name: "schema", err: streaming.ErrSchema, expectedCode: http.StatusUnprocessableEntity, expectedBody: "SCHEMA_ERROR"},
		{name: "rate limited", err: usecase.ErrRateLimitExceeded, expectedCode: http.StatusTooManyRequests, expectedBody: "RATE_LIMITED"},
		{name: "internal", err: errors.New("boom"), expectedCode: http.StatusInternalServerError, expectedBody: "internal server error"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mockUC := new(MockServingUsecase)
			router := setupTestRouter(NewServingHandler(mockUC, nil))
			mockUC.On("Predict", mock.Anything, testClient, mock.Anything).Return(nil, tt.err)

			req, _ := http.NewRequest("POST", "/api/v1/predict", bytes.NewBufferString(`{"text":"x"}`))
			req.Header.Set("Content-Type", "application/json")
			w := serve(router, req)

			assert.Equal(t, tt.expectedCode, w.Code)
			assert.Contains(t, w.Body.String(), tt.expectedBody)
			assert.NotContains(t, w.Body.String(), "boom")
		})
	}
}

func TestExport(t *testing.T) {
	mockUC := new(MockServingUsecase)
	router := setupTestRouter(NewServingHandler(mockUC, nil))

	label := "0"
	records := []entity.BatchRecord{
		{Text: "loved it, truly", PredictedLabel: 1, Sentiment: entity.SentimentPositive, Confidence: 0.91},
		{Text: "dull", PredictedLabel: 0, Sentiment: entity.SentimentNegative, Confidence: 0.2, OriginalLabel: &label},
	}
	mockUC.On("Export", mock.Anything, testClient, mock.Anything).Return(records, nil)

	body, contentType := multipartBody(t, FileField, "reviews.csv", "text\nloved it, truly\ndull\n")
	req, _ := http.NewRequest("POST", "/api/v1/predict/export", body)
	req.Header.Set("Content-Type", contentType)
	w := serve(router, req)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, csvContentType, w.Header().Get("Content-Type"))
	assert.Contains(t, w.Header().Get("Content-Disposition"), PredictionsFile)
	assert.Equal(t,
		"text,predicted_label,sentiment,confidence,original_label\n"+
			"\"loved it, truly\",1,positive,0.91,N/A\n"+
			"dull,0,negative,0.2,0\n",
		w.Body.String())
	mockUC.AssertExpectations(t)
}

func TestExport_NoFile(t *testing.T) {
	mockUC := new(MockServingUsecase)
	router := setupTestRouter(NewServingHandler(mockUC, nil))

	mockUC.On("Export", mock.Anything, testClient, nil).
		Return(nil, usecase.ErrNoFile)

	req, _ := http.NewRequest("POST", "/api/v1/predict/export", bytes.NewBufferString(`{"text":"x"}`))
	req.Header.Set("Content-Type", "application/json")
	w := serve(router, req)

	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "application/json; charset=utf-8", w.Header().Get("Content-Type"))
	mockUC.AssertExpectations(t)
}

func TestMetrics(t *testing.T) {
	t.Run("passes the threshold through", func(t *testing.T) {
		mockUC := new(MockServingUsecase)
		router := setupTestRouter(NewServingHandler(mockUC, nil))

		snapshot := &entity.MetricsSnapshot{
			Accuracy:          0.75,
			Precision:         0.6667,
			Recall:            1,
			F1:                0.8,
			LabelDistribution: [2]int{2, 2},
			ConfusionMatrix:   entity.ConfusionMatrix{{1, 1}, {0, 2}},
			Threshold:         0.7,
			TotalSamples:      4,
		}
		mockUC.On("Metrics", mock.Anything, testClient, 0.7).Return(snapshot, nil)

		req, _ := http.NewRequest("GET", "/api/v1/metrics?threshold=0.7", nil)
		w := serve(router, req)

		assert.Equal(t, http.StatusOK, w.Code)

		var got entity.MetricsSnapshot
		decodeResponse(t, w, &got)
		assert.Equal(t, *snapshot, got)
		mockUC.AssertExpectations(t)
	})

	t.Run("defaults the threshold", func(t *testing.T) {
		mockUC := new(MockServingUsecase)
		router := setupTestRouter(NewServingHandler(mockUC, nil))
		mockUC.On("Metrics", mock.Anything, testClient, usecase.DefaultThreshold).Return(&entity.MetricsSnapshot{}, nil)

		req, _ := http.NewRequest("GET", "/api/v1/metrics", nil)
		w := serve(router, req)

		assert.Equal(t, http.StatusOK, w.Code)
		mockUC.AssertExpectations(t)
	})

	t.Run("malformed threshold reaches the usecase as NaN", func(t *testing.T) {
		mockUC := new(MockServingUsecase)
		router := setupTestRouter(NewServingHandler(mockUC, nil))
		mockUC.On("Metrics", mock.Anything, testClient, mock.MatchedBy(math.IsNaN)).
			Return(nil, fmt.Errorf("%w: threshold must be a number in [0, 1]", usecase.ErrValidation))

		req, _ := http.NewRequest("GET", "/api/v1/metrics?threshold=high", nil)
		w := serve(router, req)

		assert.Equal(t, http.StatusBadRequest, w.Code)
		mockUC.AssertExpectations(t)
	})

	t.Run("dataset unavailable", func(t *testing.T) {
		mockUC := new(MockServingUsecase)
		router := setupTestRouter(NewServingHandler(mockUC, nil))
		mockUC.On("Metrics", mock.Anything, testClient, usecase.DefaultThreshold).
			Return(nil, fmt.Errorf("load validation: %w", repository.ErrSplitNotFound))

		req, _ := http.NewRequest("GET", "/api/v1/metrics", nil)
		w := serve(router, req)

		assert.Equal(t, http.StatusServiceUnavailable, w.Code)
		assert.Contains(t, w.Body.String(), "DATASET_UNAVAILABLE")
	})
}

func TestPredictionsCSV(t *testing.T) {
	mockUC := new(MockServingUsecase)
	router := setupTestRouter(NewServingHandler(mockUC, nil))

	scored := []usecase.ScoredReview{
		{Text: "fine", Label: 1, Probability: 0.9, PredictedLabel: 1},
		{Text: "meh", Label: 0, Probability: 0.6, PredictedLabel: 0},
	}
	mockUC.On("ValidationPredictions", mock.Anything, testClient, 0.65).Return(scored, nil)

	req, _ := http.NewRequest("GET", "/api/v1/metrics/predictions.csv?threshold=0.65", nil)
	w := serve(router, req)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Header().Get("Content-Disposition"), ValidationFile)
	assert.Equal(t, "text,label,probability,predicted_label\nfine,1,0.9,1\nmeh,0,0.6,0\n", w.Body.String())
	mockUC.AssertExpectations(t)
}

func TestConfusionMatrixCSV(t *testing.T) {
	mockUC := new(MockServingUsecase)
	router := setupTestRouter(NewServingHandler(mockUC, nil))

	snapshot := &entity.MetricsSnapshot{ConfusionMatrix: entity.ConfusionMatrix{{5, 2}, {1, 7}}}
	mockUC.On("ConfusionMatrix", mock.Anything, testClient, usecase.DefaultThreshold).Return(snapshot, nil)

	req, _ := http.NewRequest("GET", "/api/v1/metrics/confusion_matrix.csv", nil)
	w := serve(router, req)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Header().Get("Content-Disposition"), ConfusionMatrixFile)
	assert.Equal(t,
		",predicted_negative,predicted_positive\n"+
			"actual_negative,5,2\n"+
			"actual_positive,1,7\n",
		w.Body.String())
}

func TestDatasetInfo(t *testing.T) {
	mockUC := new(MockServingUsecase)
	router := setupTestRouter(NewServingHandler(mockUC, nil))

	info := &entity.DatasetInfo{
		Stats:      entity.DatasetStats{TotalSamples: 3, Positive: 2, Negative: 1, AvgReviewLength: 12},
		Samples:    []entity.LabeledReview{{Text: "good", Label: 1}},
		Statistics: entity.SplitStatistics{TotalSamples: 5, TrainSamples: 3, ValSamples: 2},
		Source:     "demo",
	}
	mockUC.On("DatasetInfo", mock.Anything, testClient).Return(info, nil)

	req, _ := http.NewRequest("GET", "/api/v1/dataset-info", nil)
	w := serve(router, req)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"Total samples":3`)

	var got entity.DatasetInfo
	decodeResponse(t, w, &got)
	assert.Equal(t, *info, got)
}

func TestModelInfo(t *testing.T) {
	mockUC := new(MockServingUsecase)
	router := setupTestRouter(NewServingHandler(mockUC, nil))

	info := &entity.ModelInfo{
		ModelName:         "distilbert-base-uncased-sentiment",
		ModelVersion:      "v3",
		Backend:           "http",
		Labels:            entity.DefaultLabels(),
		BatchSize:         32,
		MaxSequenceLength: 256,
		MaxTextLength:     10000,
	}
	mockUC.On("ModelInfo", mock.Anything, testClient).Return(info, nil)

	req, _ := http.NewRequest("GET", "/api/v1/model-info", nil)
	w := serve(router, req)

	assert.Equal(t, http.StatusOK, w.Code)

	var got entity.ModelInfo
	decodeResponse(t, w, &got)
	assert.Equal(t, *info, got)
}

package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/ressKim-io/ReviewSense/api-service/internal/infrastructure/requestid"
)

// ClassifyBatchRequest represents a batch request to the ML service
type ClassifyBatchRequest struct {
	Texts     []string `json:"texts"`
	MaxLength int      `json:"max_length,omitempty"`
	RequestID string   `json:"request_id,omitempty"`
}

// ClassificationResult represents a single classification result
type ClassificationResult struct {
	Label       int     `json:"label"`
	Probability float64 `json:"probability"`
}

// ClassifyBatchResponse represents the batch response from the ML service
type ClassifyBatchResponse struct {
	Success      bool                   `json:"success"`
	Results      []ClassificationResult `json:"results"`
	ModelVersion string                 `json:"model_version"`
	RequestID    string                 `json:"request_id,omitempty"`
}

// HealthResponse represents the health check response
type HealthResponse struct {
	Status       string `json:"status"`
	ModelLoaded  bool   `json:"model_loaded"`
	ModelName    string `json:"model_name,omitempty"`
	ModelVersion string `json:"model_version"`
}

const maxErrorBody = 4096

// MLClient is an HTTP client for the ML service
type MLClient struct {
	baseURL    string
	httpClient *http.Client
}

// NewMLClient creates a new ML service client
func NewMLClient(baseURL string, timeout time.Duration) *MLClient {
	return &MLClient{
		baseURL: baseURL,
		httpClient: &http.Client{
			Timeout: timeout,
		},
	}
}

// ClassifyBatch sends multiple texts for classification.
// The request ID is taken from ctx when present.
func (c *MLClient) ClassifyBatch(ctx context.Context, texts []string, maxLength int) (*ClassifyBatchResponse, error) {
	reqBody := ClassifyBatchRequest{
		Texts:     texts,
		MaxLength: maxLength,
		RequestID: requestid.FromContext(ctx),
	}

	body, err := json.Marshal(reqBody)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/classify/batch", bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if reqBody.RequestID != "" {
		req.Header.Set(requestid.Header, reqBody.RequestID)
	}

	var result ClassifyBatchResponse
	if err := c.do(req, &result); err != nil {
		return nil, err
	}

	return &result, nil
}

// Health reports the ML service status and loaded model
func (c *MLClient) Health(ctx context.Context) (*HealthResponse, error) {
	var result HealthResponse
	if err := c.get(ctx, "/health", &result); err != nil {
		return nil, err
	}
	return &result, nil
}

// Ready returns nil once the ML service accepts classification requests
func (c *MLClient) Ready(ctx context.Context) error {
	if err := c.get(ctx, "/ready", nil); err != nil {
		return fmt.Errorf("ML service not ready: %w", err)
	}
	return nil
}

func (c *MLClient) get(ctx context.Context, path string, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path, http.NoBody)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	return c.do(req, out)
}

// do sends req and decodes a 200 response into out. A nil out discards the body.
func (c *MLClient) do(req *http.Request, out any) error {
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("failed to send request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		detail, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		if len(detail) == 0 {
			return fmt.Errorf("ML service returned status %d", resp.StatusCode)
		}
		return fmt.Errorf("ML service returned status %d: %s", resp.StatusCode, bytes.TrimSpace(detail))
	}

	if out == nil {
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("failed to decode response: %w", err)
	}
	return nil
}

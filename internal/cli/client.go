package cli

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"

	"github.com/hyperjump/pagegrade/internal/models"
	"github.com/hyperjump/pagegrade/internal/server"
)

// Client talks to a running pagegrade server so CLI commands can reuse its loaded models
// and corpus.
type Client struct {
	client *resty.Client
}

type apiError struct {
	Error      string `json:"error"`
	StatusCode int    `json:"status_code,omitempty"`
}

// NewClient returns a client for baseURL, e.g. http://localhost:8080.
func NewClient(baseURL string, timeout time.Duration) *Client {
	return &Client{
		client: resty.New().
			SetBaseURL(strings.TrimRight(baseURL, "/")).
			SetTimeout(timeout).
			SetHeader("Content-Type", "application/json"),
	}
}

// Status calls GET /api/v1/status.
func (c *Client) Status(ctx context.Context) (*server.StatusResponse, error) {
	var out server.StatusResponse
	if err := c.do(ctx, "GET", "/api/v1/status", nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// Analyze calls POST /api/v1/analyze.
func (c *Client) Analyze(ctx context.Context, req models.AnalyzeRequest) (*models.AnalysisResult, error) {
	var out models.AnalysisResult
	if err := c.do(ctx, "POST", "/api/v1/analyze", req, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// Compare calls POST /api/v1/compare.
func (c *Client) Compare(ctx context.Context, req models.CompareRequest) (*models.Comparison, error) {
	var out models.Comparison
	if err := c.do(ctx, "POST", "/api/v1/compare", req, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) do(ctx context.Context, method, path string, body, out any) error {
	var apiErr apiError
	r := c.client.R().
		SetContext(ctx).
		ForceContentType("application/json").
		SetResult(out).
		SetError(&apiErr)
	if body != nil {
		r.SetBody(body)
	}
	resp, err := r.Execute(method, path)
	if err != nil {
		return fmt.Errorf("request failed: %w", err)
	}
	if resp.IsError() {
		msg := apiErr.Error
		if msg == "" {
			msg = strings.TrimSpace(resp.String())
		}
		return fmt.Errorf("server returned %d: %s", resp.StatusCode(), msg)
	}
	return nil
}

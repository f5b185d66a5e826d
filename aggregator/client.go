package aggregator

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/tesserax/reml/core/types"
)

// APIError is a non-2xx response of the collector.
type APIError struct {
	StatusCode int
	Message    string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("collector: http %d: %s", e.StatusCode, e.Message)
}

// Client speaks the collector protocol.
type Client struct {
	baseURL string
	http    *http.Client
}

// NewClient returns a client for the collector at baseURL, for example
// "http://127.0.0.1:8080". A nil hc uses a client with a 30s timeout.
func NewClient(baseURL string, hc *http.Client) *Client {
	if hc == nil {
		hc = &http.Client{Timeout: 30 * time.Second}
	}
	return &Client{baseURL: strings.TrimRight(baseURL, "/"), http: hc}
}

// Submit sends one signature request.
func (c *Client) Submit(ctx context.Context, req *types.SignatureRequest) (*SubmitResponse, error) {
	body, err := json.Marshal(req)
	if err != nil {
		return nil, fmt.Errorf("collector: encode request: %w", err)
	}
	var resp SubmitResponse
	if err := c.do(ctx, http.MethodPost, PathSubmit, body, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// Status fetches the collector status.
func (c *Client) Status(ctx context.Context) (*StatusResponse, error) {
	var resp StatusResponse
	if err := c.do(ctx, http.MethodGet, PathStatus, nil, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// Batch fetches the composition of the pending batch.
func (c *Client) Batch(ctx context.Context) (*BatchResponse, error) {
	var resp BatchResponse
	if err := c.do(ctx, http.MethodGet, PathBatch, nil, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

func (c *Client) do(ctx context.Context, method, path string, body []byte, out interface{}) error {
	var rd io.Reader
	if body != nil {
		rd = bytes.NewReader(body)
	}
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, rd)
	if err != nil {
		return fmt.Errorf("collector: build request: %w", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("collector: %s %s: %w", method, path, err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("collector: read response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		var e ErrorResponse
		if json.Unmarshal(data, &e) != nil || e.Error == "" {
			e.Error = strings.TrimSpace(string(data))
		}
		return &APIError{StatusCode: resp.StatusCode, Message: e.Error}
	}
	if err := json.Unmarshal(data, out); err != nil {
		return fmt.Errorf("collector: decode response: %w", err)
	}
	return nil
}

// Package client is an HTTP client for the pipeline worker API.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"os"
	"path/filepath"
	"time"

	"github.com/tendant/media-pipeline/pkg/pipeline"
)

// Client is an HTTP client for ingesting content and triggering stages.
type Client struct {
	baseURL    string
	httpClient *http.Client
}

// New creates a new pipeline client.
func New(baseURL string) *Client {
	return &Client{
		baseURL: baseURL,
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
	}
}

// NewWithHTTPClient creates a new pipeline client with a custom HTTP client.
// Uploads of large media need a client without the default timeout.
func NewWithHTTPClient(baseURL string, httpClient *http.Client) *Client {
	return &Client{
		baseURL:    baseURL,
		httpClient: httpClient,
	}
}

// IngestResponse describes an accepted upload.
type IngestResponse struct {
	ItemID       string `json:"item_id"`
	OriginalPath string `json:"original_path"`
	Duplicate    bool   `json:"duplicate,omitempty"`
}

// Ingest uploads a local file as a new content item of the given kind and
// starts its processing.
func (c *Client) Ingest(ctx context.Context, kind pipeline.Kind, path string) (*IngestResponse, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open %s: %w", path, err)
	}
	defer file.Close()

	var body bytes.Buffer
	writer := multipart.NewWriter(&body)
	if err := writer.WriteField("kind", string(kind)); err != nil {
		return nil, err
	}
	part, err := writer.CreateFormFile("file", filepath.Base(path))
	if err != nil {
		return nil, err
	}
	if _, err := io.Copy(part, file); err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", path, err)
	}
	if err := writer.Close(); err != nil {
		return nil, err
	}

	url := fmt.Sprintf("%s/v1/items", c.baseURL)
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, url, &body)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	httpReq.Header.Set("Content-Type", writer.FormDataContentType())

	var ingestResp IngestResponse
	if err := c.do(httpReq, &ingestResp); err != nil {
		return nil, err
	}
	return &ingestResp, nil
}

// Process triggers one pipeline stage for an existing item.
func (c *Client) Process(ctx context.Context, req pipeline.ProcessRequest) (*pipeline.ProcessResponse, error) {
	body, err := json.Marshal(req)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request: %w", err)
	}

	url := fmt.Sprintf("%s/v1/process", c.baseURL)
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")

	var processResp pipeline.ProcessResponse
	if err := c.do(httpReq, &processResp); err != nil {
		return nil, err
	}
	return &processResp, nil
}

// Status returns the three lifecycles of one item.
func (c *Client) Status(ctx context.Context, itemID string) (*pipeline.ItemStatus, error) {
	url := fmt.Sprintf("%s/v1/items/%s/status", c.baseURL, itemID)
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	var status pipeline.ItemStatus
	if err := c.do(httpReq, &status); err != nil {
		return nil, err
	}
	return &status, nil
}

func (c *Client) do(req *http.Request, out interface{}) error {
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		bodyBytes, _ := io.ReadAll(resp.Body)
		return fmt.Errorf("unexpected status %d: %s", resp.StatusCode, string(bodyBytes))
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("failed to decode response: %w", err)
	}
	return nil
}

package enrich

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/tendant/media-pipeline/internal/config"
	"github.com/tendant/media-pipeline/pkg/pipeline"
)

// GeminiClient implements Generator against a generateContent-style API.
type GeminiClient struct {
	cfg  config.EnrichConfig
	http *http.Client
}

// NewGeminiClient validates the configuration.
func NewGeminiClient(cfg config.EnrichConfig) (*GeminiClient, error) {
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("enrichment API key is required")
	}
	return &GeminiClient{
		cfg:  cfg,
		http: &http.Client{Timeout: cfg.RequestTimeout},
	}, nil
}

type part struct {
	Text string `json:"text"`
}

type content struct {
	Parts []part `json:"parts"`
}

type generateRequest struct {
	Contents         []content `json:"contents"`
	GenerationConfig struct {
		ResponseMIMEType string `json:"responseMimeType"`
	} `json:"generationConfig"`
}

type generateResponse struct {
	Candidates []struct {
		Content content `json:"content"`
	} `json:"candidates"`
}

// Generate asks the model for title, description and keywords as JSON.
// Rate-limit and server errors come back transient so the stage scheduler
// retries them; malformed responses are terminal.
func (g *GeminiClient) Generate(ctx context.Context, req Request) (Metadata, error) {
	body := generateRequest{
		Contents: []content{{Parts: []part{{Text: buildPrompt(req)}}}},
	}
	body.GenerationConfig.ResponseMIMEType = "application/json"

	payload, err := json.Marshal(body)
	if err != nil {
		return Metadata{}, fmt.Errorf("failed to encode request: %w", err)
	}

	url := fmt.Sprintf("%s/models/%s:generateContent?key=%s",
		strings.TrimRight(g.cfg.BaseURL, "/"), g.cfg.Model, g.cfg.APIKey)
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(payload))
	if err != nil {
		return Metadata{}, fmt.Errorf("failed to build request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := g.http.Do(httpReq)
	if err != nil {
		return Metadata{}, pipeline.Transient(fmt.Errorf("enrichment request failed: %w", err))
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return Metadata{}, pipeline.Transient(fmt.Errorf("failed to read response: %w", err))
	}

	switch {
	case resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode >= 500:
		return Metadata{}, pipeline.Transient(fmt.Errorf("enrichment API returned %d: %s", resp.StatusCode, truncate(raw)))
	case resp.StatusCode != http.StatusOK:
		return Metadata{}, fmt.Errorf("enrichment API returned %d: %s", resp.StatusCode, truncate(raw))
	}

	var gr generateResponse
	if err := json.Unmarshal(raw, &gr); err != nil {
		return Metadata{}, fmt.Errorf("failed to decode response: %w", err)
	}
	if len(gr.Candidates) == 0 || len(gr.Candidates[0].Content.Parts) == 0 {
		return Metadata{}, fmt.Errorf("enrichment API returned no candidates")
	}

	var meta Metadata
	if err := json.Unmarshal([]byte(gr.Candidates[0].Content.Parts[0].Text), &meta); err != nil {
		return Metadata{}, fmt.Errorf("failed to decode metadata: %w", err)
	}
	if meta.Title == "" {
		return Metadata{}, fmt.Errorf("enrichment produced empty title")
	}
	return meta, nil
}

func buildPrompt(req Request) string {
	var b strings.Builder
	b.WriteString("Generate SEO metadata in Arabic for the following ")
	b.WriteString(string(req.Kind))
	b.WriteString(" content. Respond with a JSON object with keys ")
	b.WriteString(`"title" (max 70 chars), "description" (max 160 chars) and "keywords" (5-10 strings).`)
	fmt.Fprintf(&b, "\nFilename: %s\n", req.Filename)
	if req.DurationSeconds > 0 {
		fmt.Fprintf(&b, "Duration: %d seconds\n", req.DurationSeconds)
	}
	if req.Text != "" {
		fmt.Fprintf(&b, "Extracted text:\n%s\n", promptText(req.Text))
	}
	return b.String()
}

func truncate(raw []byte) string {
	s := string(raw)
	if len(s) > 200 {
		s = s[:200]
	}
	return strings.TrimSpace(s)
}

package enrich

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/tendant/media-pipeline/internal/config"
	"github.com/tendant/media-pipeline/pkg/pipeline"
)

func testClient(t *testing.T, handler http.HandlerFunc) (*GeminiClient, *httptest.Server) {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	c, err := NewGeminiClient(config.EnrichConfig{
		APIKey:         "test-key",
		BaseURL:        srv.URL,
		Model:          "test-model",
		RequestTimeout: 5 * time.Second,
	})
	if err != nil {
		t.Fatal(err)
	}
	return c, srv
}

func candidateResponse(t *testing.T, meta Metadata) []byte {
	t.Helper()
	inner, err := json.Marshal(meta)
	if err != nil {
		t.Fatal(err)
	}
	var resp generateResponse
	resp.Candidates = []struct {
		Content content `json:"content"`
	}{{Content: content{Parts: []part{{Text: string(inner)}}}}}
	out, err := json.Marshal(resp)
	if err != nil {
		t.Fatal(err)
	}
	return out
}

func TestGenerateSuccess(t *testing.T) {
	want := Metadata{Title: "عنوان", Description: "وصف", Keywords: []string{"كلمة"}}
	c, _ := testClient(t, func(w http.ResponseWriter, r *http.Request) {
		if !strings.Contains(r.URL.Path, "test-model") {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		w.Write(candidateResponse(t, want))
	})

	got, err := c.Generate(context.Background(), Request{Kind: pipeline.KindPDF, Filename: "a.pdf"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got.Title != want.Title || got.Description != want.Description {
		t.Errorf("got %+v, want %+v", got, want)
	}
}

func TestGenerateRateLimitedIsTransient(t *testing.T) {
	c, _ := testClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
	})
	_, err := c.Generate(context.Background(), Request{Kind: pipeline.KindAudio, Filename: "a.mp3"})
	if err == nil {
		t.Fatal("expected error")
	}
	if !pipeline.Retryable(err) {
		t.Errorf("429 should be retryable, got %v", err)
	}
}

func TestGenerateBadRequestIsFatal(t *testing.T) {
	c, _ := testClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
	})
	_, err := c.Generate(context.Background(), Request{Kind: pipeline.KindVideo, Filename: "a.mp4"})
	if err == nil {
		t.Fatal("expected error")
	}
	if pipeline.Retryable(err) {
		t.Errorf("400 should not be retryable, got %v", err)
	}
}

func TestGenerateEmptyCandidates(t *testing.T) {
	c, _ := testClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"candidates":[]}`))
	})
	if _, err := c.Generate(context.Background(), Request{Kind: pipeline.KindPDF, Filename: "a.pdf"}); err == nil {
		t.Fatal("expected error for empty candidates")
	}
}

func TestGenerateEmptyTitleRejected(t *testing.T) {
	c, _ := testClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.Write(candidateResponse(t, Metadata{Description: "no title"}))
	})
	if _, err := c.Generate(context.Background(), Request{Kind: pipeline.KindPDF, Filename: "a.pdf"}); err == nil {
		t.Fatal("expected error for empty title")
	}
}

func TestPromptTextTruncation(t *testing.T) {
	long := strings.Repeat("كلمة ", 3000)
	got := promptText(long)
	if len([]rune(got)) > maxPromptChars {
		t.Errorf("prompt length %d exceeds budget", len([]rune(got)))
	}
	if strings.HasSuffix(got, " ") {
		t.Error("truncation should end at a word, not a space")
	}
	short := "نص قصير"
	if promptText(short) != short {
		t.Error("short text must pass through unchanged")
	}
}

func TestBuildPromptIncludesContext(t *testing.T) {
	p := buildPrompt(Request{Kind: pipeline.KindVideo, Filename: "sermon.mp4", DurationSeconds: 90})
	for _, want := range []string{"video", "sermon.mp4", "90"} {
		if !strings.Contains(p, want) {
			t.Errorf("prompt missing %q:\n%s", want, p)
		}
	}
}

// Package enrich generates SEO metadata for processed content with an
// external language model. Enrichment has its own lifecycle; its failures
// never affect media processing and are retried independently.
package enrich

import (
	"context"
	"strings"

	"github.com/tendant/media-pipeline/pkg/pipeline"
)

// Metadata is the generated SEO payload.
type Metadata struct {
	Title       string   `json:"title"`
	Description string   `json:"description"`
	Keywords    []string `json:"keywords"`
}

// Request describes the content to enrich. Text is empty for audio and
// video; the model then works from the filename and duration.
type Request struct {
	Kind            pipeline.Kind
	Filename        string
	Text            string
	DurationSeconds int
}

// Generator produces metadata for one item. Implementations must be safe
// for concurrent use.
type Generator interface {
	Generate(ctx context.Context, req Request) (Metadata, error)
}

// maxPromptChars bounds how much extracted text goes into the prompt.
const maxPromptChars = 8000

// promptText truncates at a word boundary near the prompt budget.
func promptText(text string) string {
	runes := []rune(text)
	if len(runes) <= maxPromptChars {
		return text
	}
	cut := string(runes[:maxPromptChars])
	if i := strings.LastIndexByte(cut, ' '); i > 0 {
		cut = cut[:i]
	}
	return cut
}

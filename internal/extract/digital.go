// Package extract pulls Arabic text out of uploaded PDFs, preferring the
// digital text layer and falling back to OCR when it is too thin.
package extract

import (
	"bytes"
	"context"
	"fmt"
	"os/exec"
	"strings"
	"unicode"

	"github.com/tendant/media-pipeline/pkg/pipeline"
)

// DigitalExtractor reads the embedded text layer with two independent
// tools and keeps the better result. Both run as subprocesses.
type DigitalExtractor struct{}

// NewDigitalExtractor validates that pdftotext and mutool are installed.
func NewDigitalExtractor() (*DigitalExtractor, error) {
	var missing []string
	for _, cmd := range []string{"pdftotext", "mutool"} {
		if _, err := exec.LookPath(cmd); err != nil {
			missing = append(missing, cmd)
		}
	}
	if len(missing) > 0 {
		return nil, &pipeline.DependencyMissingError{Commands: missing}
	}
	return &DigitalExtractor{}, nil
}

// Extract returns the richer of the two tools' outputs, filtered to
// Arabic-relevant characters. Tool failures are tolerated as long as one
// succeeds; both failing yields empty text and no error, which the caller
// reads as "no usable text layer".
func (d *DigitalExtractor) Extract(ctx context.Context, pdfPath string) string {
	poppler := filterArabic(d.viaPdftotext(ctx, pdfPath))
	mupdf := filterArabic(d.viaMutool(ctx, pdfPath))
	if len(mupdf) > len(poppler) {
		return mupdf
	}
	return poppler
}

func (d *DigitalExtractor) viaPdftotext(ctx context.Context, pdfPath string) string {
	out, err := captureStdout(ctx, "pdftotext", "-layout", "-enc", "UTF-8", pdfPath, "-")
	if err != nil {
		return ""
	}
	return out
}

func (d *DigitalExtractor) viaMutool(ctx context.Context, pdfPath string) string {
	out, err := captureStdout(ctx, "mutool", "draw", "-F", "text", "-o", "-", pdfPath)
	if err != nil {
		return ""
	}
	return out
}

func captureStdout(ctx context.Context, name string, args ...string) (string, error) {
	cmd := exec.CommandContext(ctx, name, args...)
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr
	if err := cmd.Run(); err != nil {
		return "", fmt.Errorf("%s failed: %w: %s", name, err, strings.TrimSpace(stderr.String()))
	}
	return stdout.String(), nil
}

// filterArabic keeps Arabic script blocks, digits, whitespace and basic
// punctuation, dropping everything else. Extraction tools emit plenty of
// positional garbage for scanned PDFs; filtering first makes the length
// threshold meaningful.
func filterArabic(text string) string {
	var b strings.Builder
	b.Grow(len(text))
	for _, r := range text {
		if keepRune(r) {
			b.WriteRune(r)
		}
	}
	return strings.TrimSpace(b.String())
}

func keepRune(r rune) bool {
	switch {
	case r >= 0x0600 && r <= 0x06FF: // Arabic
		return true
	case r >= 0x0750 && r <= 0x077F: // Arabic Supplement
		return true
	case r >= 0x08A0 && r <= 0x08FF: // Arabic Extended-A
		return true
	case r >= 0xFB50 && r <= 0xFDFF: // Presentation Forms-A
		return true
	case r >= 0xFE70 && r <= 0xFEFF: // Presentation Forms-B
		return true
	case unicode.IsDigit(r) || unicode.IsSpace(r):
		return true
	}
	switch r {
	case '.', ',', '!', '?', ':', ';', '-', '(', ')':
		return true
	}
	return false
}

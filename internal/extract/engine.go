package extract

import (
	"context"
	"os"
	"strings"

	"github.com/tendant/media-pipeline/internal/arabictext"
)

// Thresholds for judging whether the digital text layer is usable. A
// document needs at least minDocumentChars overall and roughly
// minCharsPerPage per page; scanned books typically yield far less from
// their (empty or garbage) text layer.
const (
	minDocumentChars = 500
	minCharsPerPage  = 300
)

// pageSource abstracts the OCR fallback so the engine is testable without
// a Tesseract installation.
type pageSource interface {
	ExtractPages(ctx context.Context, pdfPath string, pageCount int) (string, error)
}

// textSource abstracts the digital extractors the same way.
type textSource interface {
	Extract(ctx context.Context, pdfPath string) string
}

// Engine decides between the digital text layer and OCR and normalizes
// whatever wins.
type Engine struct {
	digital textSource
	ocr     pageSource
	cleaner *arabictext.Cleaner
}

// NewEngine wires the default extractors.
func NewEngine(digital *DigitalExtractor, ocr *OCRExtractor) *Engine {
	return &Engine{digital: digital, ocr: ocr, cleaner: arabictext.NewCleaner()}
}

func newEngineWith(digital textSource, ocr pageSource) *Engine {
	return &Engine{digital: digital, ocr: ocr, cleaner: arabictext.NewCleaner()}
}

// Extraction is the outcome of one document run.
type Extraction struct {
	// Text is the normalized indexed/display form; SearchText the
	// diacritic-free variant. Both empty when the document has no
	// recoverable text, which is a valid outcome rather than an error.
	Text       string
	SearchText string

	UsedOCR bool
	Stats   arabictext.Stats
}

// DigitalSufficient reports whether a digital text layer of length chars
// covers a document of pageCount pages well enough to skip OCR.
func DigitalSufficient(chars, pageCount int) bool {
	return chars >= max(minDocumentChars, pageCount*minCharsPerPage)
}

// Extract runs the full decision tree for one PDF. A missing file or a
// document with no recoverable text returns an empty Extraction and no
// error; only infrastructure failures (context cancellation) propagate.
func (e *Engine) Extract(ctx context.Context, pdfPath string, pageCount int) (Extraction, error) {
	if _, err := os.Stat(pdfPath); err != nil {
		return Extraction{}, nil
	}

	raw := e.digital.Extract(ctx, pdfPath)
	usedOCR := false

	if !DigitalSufficient(len([]rune(raw)), pageCount) {
		ocrText, err := e.ocr.ExtractPages(ctx, pdfPath, pageCount)
		if err != nil {
			return Extraction{}, err
		}
		// The thin text layer stays as fallback: garbage OCR on a
		// blank-page scan must not erase a short but real digital layer.
		if len([]rune(ocrText)) > len([]rune(raw)) {
			raw = ocrText
			usedOCR = true
		}
	}

	if strings.TrimSpace(raw) == "" {
		return Extraction{UsedOCR: usedOCR}, nil
	}

	result := e.cleaner.Clean(raw)
	if result.CleanedText == "" {
		// Normalization ate everything. Keep the raw extraction rather
		// than lose the document's only text.
		return Extraction{Text: raw, SearchText: raw, UsedOCR: usedOCR}, nil
	}

	return Extraction{
		Text:       result.CleanedText,
		SearchText: result.SearchText,
		UsedOCR:    usedOCR,
		Stats:      result.Stats,
	}, nil
}

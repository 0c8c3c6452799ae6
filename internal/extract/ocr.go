package extract

import (
	"bytes"
	"context"
	"fmt"
	"image"
	"os"
	"os/exec"
	"path/filepath"
	"strconv"
	"strings"
	"unicode/utf8"

	"github.com/disintegration/imaging"
	"github.com/otiai10/gosseract/v2"

	"github.com/tendant/media-pipeline/pkg/pipeline"
)

// rasterDPI doubles the pdftoppm default. Tesseract needs the extra
// resolution for the thin strokes of Arabic script.
const rasterDPI = "144"

// OCRExtractor recognizes scanned pages with Tesseract. Pages are
// rasterized individually with pdftoppm, preprocessed, then recognized
// twice when the first segmentation mode underperforms.
type OCRExtractor struct {
	minConfidence float64
	minTextLen    int
}

// NewOCRExtractor validates that pdftoppm is installed. Tesseract itself is
// linked in via gosseract, so a missing installation surfaces at library
// load rather than here.
func NewOCRExtractor(minConfidence float64, minTextLen int) (*OCRExtractor, error) {
	if _, err := exec.LookPath("pdftoppm"); err != nil {
		return nil, &pipeline.DependencyMissingError{Commands: []string{"pdftoppm"}}
	}
	return &OCRExtractor{minConfidence: minConfidence, minTextLen: minTextLen}, nil
}

// pageText is one recognized page with its mean word confidence.
type pageText struct {
	text       string
	confidence float64
}

// ExtractPages OCRs every page and joins the results with blank lines. A
// page that fails to rasterize or recognize contributes nothing; only a
// context cancellation aborts the whole document.
func (o *OCRExtractor) ExtractPages(ctx context.Context, pdfPath string, pageCount int) (string, error) {
	workDir, err := os.MkdirTemp("", "ocr-pages-")
	if err != nil {
		return "", fmt.Errorf("failed to create work dir: %w", err)
	}
	defer os.RemoveAll(workDir)

	var pages []string
	for page := 1; page <= pageCount; page++ {
		if err := ctx.Err(); err != nil {
			return "", err
		}
		img, err := o.rasterize(ctx, pdfPath, page, workDir)
		if err != nil {
			continue
		}
		result, err := o.recognize(preprocess(img))
		if err != nil {
			continue
		}
		if text := strings.TrimSpace(result.text); text != "" {
			pages = append(pages, text)
		}
	}
	return strings.Join(pages, "\n\n"), nil
}

func (o *OCRExtractor) rasterize(ctx context.Context, pdfPath string, page int, workDir string) (image.Image, error) {
	prefix := filepath.Join(workDir, "page-"+strconv.Itoa(page))
	p := strconv.Itoa(page)
	cmd := exec.CommandContext(ctx, "pdftoppm",
		"-png", "-r", rasterDPI, "-f", p, "-l", p, "-singlefile",
		pdfPath, prefix)
	var stderr bytes.Buffer
	cmd.Stderr = &stderr
	if err := cmd.Run(); err != nil {
		return nil, fmt.Errorf("pdftoppm failed: %w: %s", err, strings.TrimSpace(stderr.String()))
	}
	return imaging.Open(prefix + ".png")
}

// recognize runs Tesseract with single-block segmentation first, retrying
// with automatic segmentation when confidence or text length falls short.
// The attempt with the higher confidence wins; on a tie the longer text
// does.
func (o *OCRExtractor) recognize(img image.Image) (pageText, error) {
	first, err := o.recognizeWith(img, gosseract.PSM_SINGLE_BLOCK)
	if err != nil {
		return pageText{}, err
	}
	if o.acceptFirstPass(first) {
		return first, nil
	}

	second, err := o.recognizeWith(img, gosseract.PSM_AUTO)
	if err != nil {
		return first, nil
	}
	return betterPage(first, second), nil
}

// acceptFirstPass reports whether the single-block result is good enough to
// skip the automatic-segmentation retry. Length is counted in runes, not
// bytes: Arabic script is two bytes per character.
func (o *OCRExtractor) acceptFirstPass(p pageText) bool {
	return p.confidence >= o.minConfidence && utf8.RuneCountInString(p.text) >= o.minTextLen
}

func betterPage(a, b pageText) pageText {
	if b.confidence > a.confidence {
		return b
	}
	if b.confidence == a.confidence && utf8.RuneCountInString(b.text) > utf8.RuneCountInString(a.text) {
		return b
	}
	return a
}

func (o *OCRExtractor) recognizeWith(img image.Image, psm gosseract.PageSegMode) (pageText, error) {
	var buf bytes.Buffer
	if err := imaging.Encode(&buf, img, imaging.PNG); err != nil {
		return pageText{}, fmt.Errorf("failed to encode page: %w", err)
	}

	client := gosseract.NewClient()
	defer client.Close()
	if err := client.SetLanguage("ara"); err != nil {
		return pageText{}, fmt.Errorf("failed to set language: %w", err)
	}
	if err := client.SetPageSegMode(psm); err != nil {
		return pageText{}, fmt.Errorf("failed to set segmentation mode: %w", err)
	}
	if err := client.SetImageFromBytes(buf.Bytes()); err != nil {
		return pageText{}, fmt.Errorf("failed to set image: %w", err)
	}

	text, err := client.Text()
	if err != nil {
		return pageText{}, fmt.Errorf("recognition failed: %w", err)
	}

	return pageText{
		text:       filterArabic(text),
		confidence: meanWordConfidence(client),
	}, nil
}

// meanWordConfidence averages Tesseract's per-word confidence. A page with
// no recognized words scores 0.
func meanWordConfidence(client *gosseract.Client) float64 {
	boxes, err := client.GetBoundingBoxes(gosseract.RIL_WORD)
	if err != nil || len(boxes) == 0 {
		return 0
	}
	var sum float64
	for _, box := range boxes {
		sum += box.Confidence
	}
	return sum / float64(len(boxes))
}

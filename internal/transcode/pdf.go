package transcode

import (
	"context"
	"os"
	"path/filepath"
	"strconv"
	"strings"
)

// PDFInfo describes an uploaded PDF.
type PDFInfo struct {
	FileSize  int64
	PageCount int
}

// PDFOptimizer rewrites large PDFs with Ghostscript for faster delivery.
type PDFOptimizer struct {
	run       runFunc
	runOutput outputFunc
}

// NewPDFOptimizer validates that Ghostscript is installed. pdfinfo is
// optional: page counts fall back to a size-based estimate without it.
func NewPDFOptimizer() (*PDFOptimizer, error) {
	if err := validateDependencies("gs"); err != nil {
		return nil, err
	}
	return &PDFOptimizer{run: run, runOutput: runOutput}, nil
}

// Optimize rewrites inputPath at /ebook quality into outputPath. The caller
// decides whether the result is worth keeping.
func (p *PDFOptimizer) Optimize(ctx context.Context, inputPath, outputPath string) error {
	if err := os.MkdirAll(filepath.Dir(outputPath), 0o755); err != nil {
		return err
	}
	return p.run(ctx, "gs",
		"-sDEVICE=pdfwrite", "-dCompatibilityLevel=1.4",
		"-dPDFSETTINGS=/ebook", "-dNOPAUSE", "-dQUIET",
		"-dBATCH", "-sOutputFile="+outputPath, inputPath)
}

// Info returns file size and page count. Page count comes from pdfinfo when
// available, otherwise from a rough ~50KB-per-page estimate.
func (p *PDFOptimizer) Info(ctx context.Context, path string) (PDFInfo, error) {
	stat, err := os.Stat(path)
	if err != nil {
		return PDFInfo{}, err
	}
	info := PDFInfo{FileSize: stat.Size()}

	if out, err := p.runOutput(ctx, "pdfinfo", path); err == nil {
		for _, line := range strings.Split(out, "\n") {
			if rest, ok := strings.CutPrefix(line, "Pages:"); ok {
				if n, err := strconv.Atoi(strings.TrimSpace(rest)); err == nil {
					info.PageCount = n
				}
				break
			}
		}
	}
	if info.PageCount == 0 {
		info.PageCount = max(1, int(stat.Size()/(50*1024)))
	}
	return info, nil
}

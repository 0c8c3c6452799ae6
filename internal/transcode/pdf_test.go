package transcode

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestInfoParsesPageCount(t *testing.T) {
	path := filepath.Join(t.TempDir(), "doc.pdf")
	if err := os.WriteFile(path, make([]byte, 2048), 0o644); err != nil {
		t.Fatal(err)
	}

	p := &PDFOptimizer{runOutput: func(ctx context.Context, name string, args ...string) (string, error) {
		return "Title:          report\nPages:          12\nEncrypted:      no\n", nil
	}}
	info, err := p.Info(context.Background(), path)
	if err != nil {
		t.Fatal(err)
	}
	if info.PageCount != 12 {
		t.Errorf("page count = %d, want 12", info.PageCount)
	}
	if info.FileSize != 2048 {
		t.Errorf("file size = %d, want 2048", info.FileSize)
	}
}

func TestInfoFallsBackToSizeEstimate(t *testing.T) {
	path := filepath.Join(t.TempDir(), "doc.pdf")
	if err := os.WriteFile(path, make([]byte, 200*1024), 0o644); err != nil {
		t.Fatal(err)
	}

	p := &PDFOptimizer{runOutput: func(ctx context.Context, name string, args ...string) (string, error) {
		return "", errors.New("pdfinfo not installed")
	}}
	info, err := p.Info(context.Background(), path)
	if err != nil {
		t.Fatal(err)
	}
	if info.PageCount != 4 {
		t.Errorf("page count = %d, want 4 from the 50KB-per-page estimate", info.PageCount)
	}
}

func TestInfoEstimateNeverBelowOnePage(t *testing.T) {
	path := filepath.Join(t.TempDir(), "tiny.pdf")
	if err := os.WriteFile(path, []byte("%PDF"), 0o644); err != nil {
		t.Fatal(err)
	}

	p := &PDFOptimizer{runOutput: func(ctx context.Context, name string, args ...string) (string, error) {
		return "", errors.New("pdfinfo not installed")
	}}
	info, err := p.Info(context.Background(), path)
	if err != nil {
		t.Fatal(err)
	}
	if info.PageCount != 1 {
		t.Errorf("page count = %d, want 1", info.PageCount)
	}
}

func TestOptimizeInvokesGhostscript(t *testing.T) {
	var gotName string
	var gotArgs []string
	p := &PDFOptimizer{run: func(ctx context.Context, name string, args ...string) error {
		gotName = name
		gotArgs = args
		return nil
	}}
	out := filepath.Join(t.TempDir(), "opt", "doc.pdf")

	if err := p.Optimize(context.Background(), "in.pdf", out); err != nil {
		t.Fatal(err)
	}
	if gotName != "gs" {
		t.Errorf("invoked %q, want gs", gotName)
	}
	joined := strings.Join(gotArgs, " ")
	if !strings.Contains(joined, "-dPDFSETTINGS=/ebook") {
		t.Errorf("args missing ebook preset: %v", gotArgs)
	}
	if !strings.Contains(joined, "-sOutputFile="+out) {
		t.Errorf("args missing output file: %v", gotArgs)
	}
	if _, err := os.Stat(filepath.Dir(out)); err != nil {
		t.Errorf("output directory should be created: %v", err)
	}
}

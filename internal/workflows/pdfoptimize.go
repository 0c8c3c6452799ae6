package workflows

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/tendant/media-pipeline/internal/logger"
	"github.com/tendant/media-pipeline/internal/store"
	"github.com/tendant/media-pipeline/internal/transcode"
	"github.com/tendant/media-pipeline/pkg/pipeline"
)

// OptimizePDFWorkflow rewrites large PDFs at ebook quality. The optimized
// copy is kept only when it is meaningfully smaller; otherwise the original
// stays the authoritative artifact. Text extraction always follows,
// whatever the optimization outcome.
type OptimizePDFWorkflow struct {
	store          *store.Store
	optimizer      *transcode.PDFOptimizer
	mediaRoot      string
	sizeThreshold  int64
	keepRatio      float64
}

// NewOptimizePDFWorkflow creates the PDF optimization workflow.
func NewOptimizePDFWorkflow(st *store.Store, optimizer *transcode.PDFOptimizer, mediaRoot string, sizeThreshold int64, keepRatio float64) *OptimizePDFWorkflow {
	return &OptimizePDFWorkflow{
		store:         st,
		optimizer:     optimizer,
		mediaRoot:     mediaRoot,
		sizeThreshold: sizeThreshold,
		keepRatio:     keepRatio,
	}
}

// Name returns the workflow name
func (w *OptimizePDFWorkflow) Name() string {
	return "OptimizePDFWorkflow"
}

// Execute decides whether to optimize and records file size and page count
// either way.
func (w *OptimizePDFWorkflow) Execute(wctx *WorkflowContext) (*WorkflowResult, error) {
	itemID := wctx.Request.ItemID

	art, err := w.store.GetArtifacts(wctx.Ctx, itemID)
	if err != nil {
		return nil, err
	}

	input := filepath.Join(w.mediaRoot, art.OriginalPath)
	info, err := w.optimizer.Info(wctx.Ctx, input)
	if err != nil {
		return nil, fmt.Errorf("original file missing: %w", err)
	}

	rel := ""
	finalSize := info.FileSize

	if info.FileSize > w.sizeThreshold {
		candidate := filepath.Join("pdf_optimized", itemID+".pdf")
		outPath := filepath.Join(w.mediaRoot, candidate)

		if err := w.optimizer.Optimize(wctx.Ctx, input, outPath); err != nil {
			// Optimization is best-effort: the original remains valid and
			// extraction must still run.
			logger.Warn(wctx.Ctx, "pdf optimization failed, keeping original", "error", err.Error())
		} else if stat, err := os.Stat(outPath); err == nil {
			if float64(stat.Size()) < float64(info.FileSize)*w.keepRatio {
				rel = candidate
				finalSize = stat.Size()
			} else {
				logger.Info(wctx.Ctx, "optimized copy not worth keeping",
					"original_bytes", info.FileSize, "optimized_bytes", stat.Size())
				os.Remove(outPath)
			}
		}
	}

	wctx.ReportProgress(90, "optimized", "")

	if err := w.store.SetOptimizedPDF(wctx.Ctx, itemID, rel, finalSize, info.PageCount); err != nil {
		return nil, err
	}

	return &WorkflowResult{
		Success:  true,
		NextJobs: []string{pipeline.JobExtractText},
		Outputs: map[string]interface{}{
			"optimized_path": rel,
			"file_size":      finalSize,
			"page_count":     info.PageCount,
		},
	}, nil
}

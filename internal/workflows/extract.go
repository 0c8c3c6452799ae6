package workflows

import (
	"path/filepath"

	"github.com/tendant/media-pipeline/internal/extract"
	"github.com/tendant/media-pipeline/internal/logger"
	"github.com/tendant/media-pipeline/internal/metrics"
	"github.com/tendant/media-pipeline/internal/store"
)

// ExtractTextWorkflow pulls and normalizes the Arabic text of a PDF item.
// Empty output is a valid terminal outcome: a picture-only scan yields no
// text and the item still completes.
type ExtractTextWorkflow struct {
	store              *store.Store
	engine             *extract.Engine
	mediaRoot          string
	replicationEnabled bool
}

// NewExtractTextWorkflow creates the text extraction workflow.
func NewExtractTextWorkflow(st *store.Store, engine *extract.Engine, mediaRoot string, replicationEnabled bool) *ExtractTextWorkflow {
	return &ExtractTextWorkflow{
		store:              st,
		engine:             engine,
		mediaRoot:          mediaRoot,
		replicationEnabled: replicationEnabled,
	}
}

// Name returns the workflow name
func (w *ExtractTextWorkflow) Name() string {
	return "ExtractTextWorkflow"
}

// Execute extracts from the optimized copy when one exists, falling back to
// the original.
func (w *ExtractTextWorkflow) Execute(wctx *WorkflowContext) (*WorkflowResult, error) {
	itemID := wctx.Request.ItemID

	art, err := w.store.GetArtifacts(wctx.Ctx, itemID)
	if err != nil {
		return nil, err
	}

	source := art.OriginalPath
	if art.OptimizedPath != "" {
		source = art.OptimizedPath
	}
	pages := art.PageCount
	if pages < 1 {
		pages = 1
	}

	wctx.ReportProgress(10, "extracting", "")
	result, err := w.engine.Extract(wctx.Ctx, filepath.Join(w.mediaRoot, source), pages)
	if err != nil {
		return nil, err
	}
	wctx.ReportProgress(90, "extracted", "")

	if result.UsedOCR {
		metrics.OCRPagesProcessed(pages)
	}
	if result.Text == "" {
		logger.Info(wctx.Ctx, "no recoverable text in document")
	}

	if err := w.store.SetExtractedText(wctx.Ctx, itemID, result.Text, result.SearchText); err != nil {
		return nil, err
	}

	return &WorkflowResult{
		Success:  true,
		NextJobs: nextAfterMedia(w.replicationEnabled),
		Outputs: map[string]interface{}{
			"text_length": len(result.Text),
			"used_ocr":    result.UsedOCR,
		},
	}, nil
}

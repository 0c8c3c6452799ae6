package workflows

import (
	"path/filepath"

	"github.com/tendant/media-pipeline/internal/enrich"
	"github.com/tendant/media-pipeline/internal/logger"
	"github.com/tendant/media-pipeline/internal/store"
)

// EnrichWorkflow generates SEO metadata for a processed item. With
// enrichment disabled the stage completes immediately so the completion
// gate still opens.
type EnrichWorkflow struct {
	store     *store.Store
	generator enrich.Generator
	limiter   *enrich.RateLimiter
	enabled   bool
}

// NewEnrichWorkflow creates the enrichment workflow. limiter may be nil
// when no Redis is configured; calls then go out unthrottled.
func NewEnrichWorkflow(st *store.Store, generator enrich.Generator, limiter *enrich.RateLimiter, enabled bool) *EnrichWorkflow {
	return &EnrichWorkflow{store: st, generator: generator, limiter: limiter, enabled: enabled}
}

// Name returns the workflow name
func (w *EnrichWorkflow) Name() string {
	return "EnrichWorkflow"
}

// Execute asks the model for metadata and stores it.
func (w *EnrichWorkflow) Execute(wctx *WorkflowContext) (*WorkflowResult, error) {
	itemID := wctx.Request.ItemID

	if !w.enabled || w.generator == nil {
		logger.Info(wctx.Ctx, "enrichment disabled, skipping")
		return &WorkflowResult{Success: true, Outputs: map[string]interface{}{"skipped": true}}, nil
	}

	item, err := w.store.GetItem(wctx.Ctx, itemID)
	if err != nil {
		return nil, err
	}
	art, err := w.store.GetArtifacts(wctx.Ctx, itemID)
	if err != nil {
		return nil, err
	}

	if w.limiter != nil {
		if err := w.limiter.Acquire(wctx.Ctx); err != nil {
			return nil, err
		}
	}

	meta, err := w.generator.Generate(wctx.Ctx, enrich.Request{
		Kind:            item.Kind,
		Filename:        filepath.Base(art.OriginalPath),
		Text:            item.ExtractedText,
		DurationSeconds: art.DurationSeconds,
	})
	if err != nil {
		return nil, err
	}

	if err := w.store.SetSEOMetadata(wctx.Ctx, itemID, meta.Title, meta.Description, meta.Keywords); err != nil {
		return nil, err
	}

	return &WorkflowResult{
		Success: true,
		Outputs: map[string]interface{}{
			"title":    meta.Title,
			"keywords": len(meta.Keywords),
		},
	}, nil
}

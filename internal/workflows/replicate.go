package workflows

import (
	"github.com/tendant/media-pipeline/internal/logger"
	"github.com/tendant/media-pipeline/internal/metrics"
	"github.com/tendant/media-pipeline/internal/replicate"
	"github.com/tendant/media-pipeline/internal/store"
	"github.com/tendant/media-pipeline/pkg/pipeline"
)

// ReplicateWorkflow copies the original and every derivative to object
// storage, writing progress as it goes. Upload failures are retryable up to
// the stage's attempt cap; a terminal failure leaves the local files in
// place, which the completion gate respects.
type ReplicateWorkflow struct {
	store      *store.Store
	replicator *replicate.Replicator
	mediaRoot  string
}

// NewReplicateWorkflow creates the replication workflow.
func NewReplicateWorkflow(st *store.Store, replicator *replicate.Replicator, mediaRoot string) *ReplicateWorkflow {
	return &ReplicateWorkflow{store: st, replicator: replicator, mediaRoot: mediaRoot}
}

// Name returns the workflow name
func (w *ReplicateWorkflow) Name() string {
	return "ReplicateWorkflow"
}

// Execute uploads the artifact set and records the public URLs.
func (w *ReplicateWorkflow) Execute(wctx *WorkflowContext) (*WorkflowResult, error) {
	itemID := wctx.Request.ItemID

	art, err := w.store.GetArtifacts(wctx.Ctx, itemID)
	if err != nil {
		return nil, err
	}

	if err := w.store.UpdateReplication(wctx.Ctx, itemID, pipeline.ReplicationUploading, 0); err != nil {
		return nil, err
	}

	rels := []string{
		art.OriginalPath,
		art.HLS720Path,
		art.HLS480Path,
		art.CompressedPath,
		art.OptimizedPath,
	}

	urls, err := w.replicator.ReplicateAll(wctx.Ctx, w.mediaRoot, rels, func(pct int) {
		wctx.ReportProgress(pct, "uploading", "")
		if err := w.store.UpdateReplication(wctx.Ctx, itemID, pipeline.ReplicationUploading, pct); err != nil {
			logger.Warn(wctx.Ctx, "failed to write replication progress", "error", err.Error())
		}
	})
	if err != nil {
		return nil, pipeline.Transient(err)
	}

	if err := w.store.SetRemoteURLs(wctx.Ctx, itemID, urls); err != nil {
		return nil, err
	}
	if err := w.store.UpdateReplication(wctx.Ctx, itemID, pipeline.ReplicationCompleted, 100); err != nil {
		return nil, err
	}
	metrics.FilesReplicated(len(urls))

	return &WorkflowResult{
		Success: true,
		Outputs: map[string]interface{}{"files": len(urls)},
	}, nil
}

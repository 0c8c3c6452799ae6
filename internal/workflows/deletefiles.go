package workflows

import (
	"fmt"
	"os"

	"github.com/tendant/media-pipeline/internal/logger"
	"github.com/tendant/media-pipeline/internal/mediafs"
	"github.com/tendant/media-pipeline/internal/model"
	"github.com/tendant/media-pipeline/internal/store"
)

// DeleteFilesWorkflow removes an item's local files once the completion
// gate has opened. It recomputes the deletion set from current state
// rather than trusting a payload, so a stale request can never delete a
// file whose replication has since been reset.
type DeleteFilesWorkflow struct {
	store              *store.Store
	media              *mediafs.Root
	replicationEnabled bool
}

// NewDeleteFilesWorkflow creates the local cleanup workflow.
func NewDeleteFilesWorkflow(st *store.Store, media *mediafs.Root, replicationEnabled bool) *DeleteFilesWorkflow {
	return &DeleteFilesWorkflow{store: st, media: media, replicationEnabled: replicationEnabled}
}

// Name returns the workflow name
func (w *DeleteFilesWorkflow) Name() string {
	return "DeleteFilesWorkflow"
}

// Execute deletes the files and marks the item cleaned. Already-cleaned
// items succeed without touching disk.
func (w *DeleteFilesWorkflow) Execute(wctx *WorkflowContext) (*WorkflowResult, error) {
	itemID := wctx.Request.ItemID

	item, err := w.store.GetItem(wctx.Ctx, itemID)
	if err != nil {
		return nil, err
	}
	if item.LocalFilesCleaned {
		return &WorkflowResult{Success: true, Outputs: map[string]interface{}{"already_cleaned": true}}, nil
	}

	art, err := w.store.GetArtifacts(wctx.Ctx, itemID)
	if err != nil {
		return nil, err
	}
	if !model.CleanupEligible(item, art, w.replicationEnabled) {
		return nil, fmt.Errorf("completion gate no longer open for %s", itemID)
	}

	paths := model.DeletionSet(art, w.media.Path(), w.replicationEnabled)

	removed := 0
	for _, path := range paths {
		if !w.media.Contains(path) {
			return nil, fmt.Errorf("refusing to delete path outside media root: %s", path)
		}
		if err := os.RemoveAll(path); err != nil {
			return nil, fmt.Errorf("failed to delete %s: %w", path, err)
		}
		removed++
	}

	if err := w.store.MarkFilesCleaned(wctx.Ctx, itemID); err != nil {
		return nil, err
	}

	logger.Info(wctx.Ctx, "local files cleaned", "paths_removed", removed)
	return &WorkflowResult{
		Success: true,
		Outputs: map[string]interface{}{"paths_removed": removed},
	}, nil
}

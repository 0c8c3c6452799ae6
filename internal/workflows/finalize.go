package workflows

import (
	"github.com/tendant/media-pipeline/internal/logger"
	"github.com/tendant/media-pipeline/internal/model"
	"github.com/tendant/media-pipeline/internal/store"
	"github.com/tendant/media-pipeline/pkg/pipeline"
)

// FinalizeWorkflow is the completion gate. It runs after each coordinated
// lifecycle reaches a terminal state and decides whether local files may be
// deleted: enrichment must be settled and every replicated copy confirmed.
// Files whose only copy is local are never scheduled for deletion.
type FinalizeWorkflow struct {
	store              *store.Store
	replicationEnabled bool
}

// NewFinalizeWorkflow creates the completion gate workflow.
func NewFinalizeWorkflow(st *store.Store, replicationEnabled bool) *FinalizeWorkflow {
	return &FinalizeWorkflow{store: st, replicationEnabled: replicationEnabled}
}

// Name returns the workflow name
func (w *FinalizeWorkflow) Name() string {
	return "FinalizeWorkflow"
}

// Execute checks the gate. A closed gate is success, not failure: the next
// lifecycle to settle schedules finalize again.
func (w *FinalizeWorkflow) Execute(wctx *WorkflowContext) (*WorkflowResult, error) {
	itemID := wctx.Request.ItemID

	item, err := w.store.GetItem(wctx.Ctx, itemID)
	if err != nil {
		return nil, err
	}
	art, err := w.store.GetArtifacts(wctx.Ctx, itemID)
	if err != nil {
		return nil, err
	}

	if !model.CleanupEligible(item, art, w.replicationEnabled) {
		logger.Debug(wctx.Ctx, "completion gate closed",
			"seo_status", string(item.SEOProcessingStatus),
			"replication_status", string(art.ReplicationStatus))
		return &WorkflowResult{Success: true, Outputs: map[string]interface{}{"gate": "closed"}}, nil
	}

	// The deletion set is computed again by the delete stage; here it only
	// decides whether that stage is worth scheduling.
	if len(model.DeletionSet(art, "", w.replicationEnabled)) == 0 {
		logger.Info(wctx.Ctx, "gate open but no files safe to delete",
			"replication_status", string(art.ReplicationStatus))
		return &WorkflowResult{Success: true, Outputs: map[string]interface{}{"gate": "open", "deletable": false}}, nil
	}

	return &WorkflowResult{
		Success:  true,
		NextJobs: []string{pipeline.JobDeleteFiles},
		Outputs:  map[string]interface{}{"gate": "open", "deletable": true},
	}, nil
}

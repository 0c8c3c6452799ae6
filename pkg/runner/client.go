package runner

import (
	"context"

	"github.com/tendant/media-pipeline/pkg/pipeline"
)

// StageState is the persisted retry-schedule view of one stage.
type StageState struct {
	ItemID    string
	Job       string
	Attempt   int
	Status    string
	LastError string
}

// ItemStatus returns the three lifecycles of one item.
func (r *Runner) ItemStatus(ctx context.Context, itemID string) (pipeline.ItemStatus, error) {
	return r.store.Status(ctx, itemID)
}

// StageState returns the scheduling record for one stage of an item,
// including its attempt count and last failure.
func (r *Runner) StageState(ctx context.Context, itemID, job string) (*StageState, error) {
	row, err := r.store.StageState(ctx, itemID, job)
	if err != nil {
		return nil, err
	}
	return &StageState{
		ItemID:    row.ItemID,
		Job:       row.Job,
		Attempt:   row.Attempt,
		Status:    row.Status,
		LastError: row.LastError,
	}, nil
}

package workflows

import (
	"context"
	"time"

	"github.com/tendant/media-pipeline/internal/logger"
	"github.com/tendant/media-pipeline/internal/store"
	"github.com/tendant/media-pipeline/pkg/pipeline"
)

const (
	dispatchInterval = 5 * time.Second
	reapInterval     = time.Minute
	claimBatchSize   = 20
)

// Dispatcher polls the stage schedule and enqueues eligible runs. Retries
// therefore survive worker restarts: the schedule lives in Postgres, not in
// any in-flight task state.
type Dispatcher struct {
	store    *store.Store
	runner   *WorkflowRunner
	staleAge time.Duration
}

// NewDispatcher builds a dispatcher. staleAge bounds how long a claimed
// stage may sit without progress before it is handed back to the schedule.
func NewDispatcher(st *store.Store, runner *WorkflowRunner, staleAge time.Duration) *Dispatcher {
	return &Dispatcher{store: st, runner: runner, staleAge: staleAge}
}

// Run blocks until ctx is done, dispatching due stages and periodically
// reaping stale claims.
func (d *Dispatcher) Run(ctx context.Context) {
	dispatch := time.NewTicker(dispatchInterval)
	defer dispatch.Stop()
	reap := time.NewTicker(reapInterval)
	defer reap.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-dispatch.C:
			d.dispatchDue(ctx)
		case <-reap.C:
			d.reapStale(ctx)
		}
	}
}

func (d *Dispatcher) dispatchDue(ctx context.Context) {
	claimed, err := d.store.ClaimDueStages(ctx, claimBatchSize)
	if err != nil {
		logger.Error(ctx, "failed to claim due stages", "error", err.Error())
		return
	}

	for _, row := range claimed {
		req := pipeline.ProcessRequest{
			ItemID:  row.ItemID,
			Job:     row.Job,
			Attempt: row.Attempt,
		}
		runID, err := d.runner.RunAsync(ctx, req)
		if err != nil {
			logger.Error(ctx, "failed to enqueue stage",
				"item_id", row.ItemID, "job", row.Job, "error", err.Error())
			// Hand the claim back with a short delay rather than losing it.
			if rerr := d.store.RetryStage(ctx, row.ItemID, row.Job, row.Attempt, dispatchInterval, err.Error()); rerr != nil {
				logger.Error(ctx, "failed to return stage to schedule", "error", rerr.Error())
			}
			continue
		}
		logger.Debug(ctx, "stage enqueued",
			"item_id", row.ItemID, "job", row.Job, "attempt", row.Attempt, "run_id", runID)
	}
}

func (d *Dispatcher) reapStale(ctx context.Context) {
	n, err := d.store.ReapStaleStages(ctx, d.staleAge)
	if err != nil {
		logger.Error(ctx, "failed to reap stale stages", "error", err.Error())
		return
	}
	if n > 0 {
		logger.Warn(ctx, "recovered stale stage claims", "count", n)
	}

	swept, err := d.store.FailStaleItems(ctx, d.staleAge)
	if err != nil {
		logger.Error(ctx, "failed to sweep stale items", "error", err.Error())
		return
	}
	if swept > 0 {
		logger.Warn(ctx, "failed items stuck in processing", "count", swept)
	}

	// Items whose lifecycles settled without a finalize ever being
	// scheduled get one here.
	missed, err := d.store.ItemsNeedingCleanup(ctx, claimBatchSize)
	if err != nil {
		logger.Error(ctx, "failed to list cleanup candidates", "error", err.Error())
		return
	}
	for _, id := range missed {
		if err := d.store.ScheduleStage(ctx, id, pipeline.JobFinalize, 0, 0); err != nil {
			logger.Error(ctx, "failed to schedule missed finalize", "item_id", id, "error", err.Error())
		}
	}
}

package workflows

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/dbos-inc/dbos-transact-golang/dbos"

	"github.com/tendant/media-pipeline/internal/dbosruntime"
	"github.com/tendant/media-pipeline/internal/logger"
	"github.com/tendant/media-pipeline/internal/metrics"
	"github.com/tendant/media-pipeline/internal/store"
	"github.com/tendant/media-pipeline/internal/taskmon"
	"github.com/tendant/media-pipeline/pkg/pipeline"
)

// WorkflowContext contains context for workflow execution
type WorkflowContext struct {
	Ctx     context.Context
	Request pipeline.ProcessRequest
	RunID   string

	progress func(percent int, phase, message string)
}

// ReportProgress publishes live stage progress to the task monitor. Safe to
// call from any stage; without a monitor it is a no-op.
func (wctx *WorkflowContext) ReportProgress(percent int, phase, message string) {
	if wctx.progress != nil {
		wctx.progress(percent, phase, message)
	}
}

// WorkflowResult contains the result of workflow execution. NextJobs are
// the stages to schedule when this one succeeds.
type WorkflowResult struct {
	Success  bool
	Error    string
	NextJobs []string
	Outputs  map[string]interface{}
}

// Workflow defines the interface for processing workflows
type Workflow interface {
	// Execute runs the workflow
	Execute(wctx *WorkflowContext) (*WorkflowResult, error)

	// Name returns the workflow name
	Name() string
}

// attemptCaps is the maximum number of attempts per job. The media stages
// allow one extra retry over extraction and enrichment because encoder
// failures are usually environmental.
var attemptCaps = map[string]int{
	pipeline.JobTranscodeVideo: 3,
	pipeline.JobCompressAudio:  3,
	pipeline.JobOptimizePDF:    3,
	pipeline.JobExtractText:    2,
	pipeline.JobEnrich:         2,
	pipeline.JobReplicate:      3,
	pipeline.JobFinalize:       3,
	pipeline.JobDeleteFiles:    3,
}

// retryBackoff returns the delay before re-running a stage that has already
// failed failedAttempts times: one minute doubled per failure.
func retryBackoff(failedAttempts int) time.Duration {
	return time.Minute << failedAttempts
}

// afterTerminal names the stages to schedule once a job reaches a terminal
// state regardless of outcome. Both coordinated lifecycles feed the
// completion gate.
var afterTerminal = map[string][]string{
	pipeline.JobEnrich:    {pipeline.JobFinalize},
	pipeline.JobReplicate: {pipeline.JobFinalize},
}

// WorkflowRunner executes workflows through DBOS and owns the retry
// schedule. Stage outcomes land in persisted status fields; errors never
// propagate past the runner.
type WorkflowRunner struct {
	workflows   map[string]Workflow
	dbosRuntime *dbosruntime.Runtime
	store       *store.Store
	monitor     *taskmon.Monitor
}

// NewWorkflowRunner creates a new workflow runner with DBOS support. The
// monitor may be nil when Redis is unavailable.
func NewWorkflowRunner(dbosRuntime *dbosruntime.Runtime, st *store.Store, monitor *taskmon.Monitor) *WorkflowRunner {
	runner := &WorkflowRunner{
		workflows:   make(map[string]Workflow),
		dbosRuntime: dbosRuntime,
		store:       st,
		monitor:     monitor,
	}

	if dbosRuntime != nil {
		dbos.RegisterWorkflow(dbosRuntime.Context(), runner.executeWorkflowDBOS)
	}

	return runner
}

// Register registers a workflow
func (r *WorkflowRunner) Register(job string, workflow Workflow) {
	r.workflows[job] = workflow
}

// Schedule records a stage run in the retry table; the dispatcher enqueues
// it once it becomes eligible.
func (r *WorkflowRunner) Schedule(ctx context.Context, itemID, job string) error {
	return r.store.ScheduleStage(ctx, itemID, job, 0, 0)
}

// RunAsync enqueues a workflow for async execution via DBOS
func (r *WorkflowRunner) RunAsync(ctx context.Context, req pipeline.ProcessRequest) (string, error) {
	if r.dbosRuntime == nil {
		return "", errors.New("DBOS runtime not initialized")
	}
	if req.ItemID == "" || req.Job == "" {
		return "", ErrInvalidRequest
	}

	workflowID := fmt.Sprintf("%s-%s-%d", req.Job, req.ItemID, time.Now().UnixNano())

	handle, err := dbos.RunWorkflow[pipeline.ProcessRequest, *WorkflowResult](
		r.dbosRuntime.Context(),
		r.executeWorkflowDBOS,
		req,
		dbos.WithWorkflowID(workflowID),
		dbos.WithQueue(r.dbosRuntime.QueueName()),
	)
	if err != nil {
		return "", err
	}

	return handle.GetWorkflowID(), nil
}

// executeWorkflowDBOS runs one stage and settles its outcome: success
// chains the next stages, a retryable failure under the attempt cap goes
// back on the schedule with backoff, anything else is terminal. The
// returned error is always nil so DBOS never re-runs a settled stage on
// its own.
func (r *WorkflowRunner) executeWorkflowDBOS(dbosCtx dbos.DBOSContext, req pipeline.ProcessRequest) (*WorkflowResult, error) {
	workflow, ok := r.workflows[req.Job]
	if !ok {
		return &WorkflowResult{Success: false, Error: ErrWorkflowNotFound.Error()}, ErrWorkflowNotFound
	}

	workflowID, err := dbosCtx.GetWorkflowID()
	if err != nil {
		return &WorkflowResult{Success: false, Error: err.Error()}, err
	}

	// DBOSContext implements context.Context
	ctx := context.WithValue(dbosCtx, logger.RunIDKey, workflowID)
	ctx = context.WithValue(ctx, logger.ItemIDKey, req.ItemID)
	ctx = context.WithValue(ctx, logger.StageKey, req.Job)

	r.markRunning(ctx, req)
	if r.monitor != nil {
		r.monitor.Start(ctx, req.ItemID, req.Job)
	}

	wctx := &WorkflowContext{Ctx: ctx, Request: req, RunID: workflowID}
	if r.monitor != nil {
		wctx.progress = func(percent int, phase, message string) {
			if err := r.monitor.Progress(ctx, req.ItemID, req.Job, percent, phase, message); err != nil {
				logger.Debug(ctx, "failed to write task progress", "error", err.Error())
			}
		}
	}
	start := time.Now()
	result, execErr := workflow.Execute(wctx)
	elapsed := time.Since(start)

	if execErr == nil {
		if result == nil {
			result = &WorkflowResult{Success: true}
		}
		r.settleSuccess(ctx, req, result, elapsed)
		return result, nil
	}

	if pipeline.Retryable(execErr) && req.Attempt+1 < capFor(req.Job) {
		logger.Warn(ctx, "stage failed, retrying",
			"attempt", req.Attempt, "error", execErr.Error())
		metrics.StageRetried(req.Job)
		if err := r.store.RetryStage(ctx, req.ItemID, req.Job, req.Attempt+1, retryBackoff(req.Attempt+1), execErr.Error()); err != nil {
			logger.Error(ctx, "failed to reschedule stage", "error", err.Error())
		}
		if r.monitor != nil {
			r.monitor.Finish(ctx, req.ItemID, req.Job, "retrying", execErr.Error())
		}
		return &WorkflowResult{Success: false, Error: execErr.Error()}, nil
	}

	r.settleFailure(ctx, req, execErr, elapsed)
	return &WorkflowResult{Success: false, Error: execErr.Error()}, nil
}

func (r *WorkflowRunner) settleSuccess(ctx context.Context, req pipeline.ProcessRequest, result *WorkflowResult, elapsed time.Duration) {
	logger.Info(ctx, "stage completed", "elapsed", elapsed.String())
	metrics.StageCompleted(req.Job, elapsed)

	if err := r.store.CompleteStage(ctx, req.ItemID, req.Job); err != nil {
		logger.Error(ctx, "failed to complete stage record", "error", err.Error())
	}
	r.markCompleted(ctx, req)
	if r.monitor != nil {
		r.monitor.Finish(ctx, req.ItemID, req.Job, "completed", "")
	}

	for _, next := range result.NextJobs {
		if err := r.store.ScheduleStage(ctx, req.ItemID, next, 0, 0); err != nil {
			logger.Error(ctx, "failed to schedule next stage", "next", next, "error", err.Error())
		}
	}
	r.scheduleFollowups(ctx, req)
}

func (r *WorkflowRunner) settleFailure(ctx context.Context, req pipeline.ProcessRequest, execErr error, elapsed time.Duration) {
	logger.Error(ctx, "stage failed terminally",
		"attempt", req.Attempt, "elapsed", elapsed.String(), "error", execErr.Error())
	metrics.StageFailed(req.Job, elapsed)

	if err := r.store.FailStage(ctx, req.ItemID, req.Job, execErr.Error()); err != nil {
		logger.Error(ctx, "failed to record stage failure", "error", err.Error())
	}
	r.markFailed(ctx, req, execErr)
	if r.monitor != nil {
		r.monitor.Finish(ctx, req.ItemID, req.Job, "failed", execErr.Error())
	}
	r.scheduleFollowups(ctx, req)
}

func (r *WorkflowRunner) scheduleFollowups(ctx context.Context, req pipeline.ProcessRequest) {
	for _, next := range afterTerminal[req.Job] {
		if err := r.store.ScheduleStage(ctx, req.ItemID, next, 0, 0); err != nil {
			logger.Error(ctx, "failed to schedule followup stage", "next", next, "error", err.Error())
		}
	}
}

// markRunning moves the lifecycle a job belongs to into its in-flight
// state. Replication marks itself: the stage owns progress updates.
func (r *WorkflowRunner) markRunning(ctx context.Context, req pipeline.ProcessRequest) {
	switch req.Job {
	case pipeline.JobTranscodeVideo, pipeline.JobCompressAudio, pipeline.JobOptimizePDF, pipeline.JobExtractText:
		if err := r.store.UpdateProcessingStatus(ctx, req.ItemID, pipeline.StatusProcessing, ""); err != nil {
			logger.Error(ctx, "failed to mark processing", "error", err.Error())
		}
	case pipeline.JobEnrich:
		if err := r.store.UpdateSEOStatus(ctx, req.ItemID, pipeline.StatusProcessing); err != nil {
			logger.Error(ctx, "failed to mark enrichment processing", "error", err.Error())
		}
	}
}

// markCompleted finishes a lifecycle when its last stage succeeds. PDF
// optimization is mid-chain: processing completes after extraction.
func (r *WorkflowRunner) markCompleted(ctx context.Context, req pipeline.ProcessRequest) {
	switch req.Job {
	case pipeline.JobTranscodeVideo, pipeline.JobCompressAudio, pipeline.JobExtractText:
		if err := r.store.UpdateProcessingStatus(ctx, req.ItemID, pipeline.StatusCompleted, ""); err != nil {
			logger.Error(ctx, "failed to mark processing completed", "error", err.Error())
		}
	case pipeline.JobEnrich:
		if err := r.store.UpdateSEOStatus(ctx, req.ItemID, pipeline.StatusCompleted); err != nil {
			logger.Error(ctx, "failed to mark enrichment completed", "error", err.Error())
		}
	}
}

func (r *WorkflowRunner) markFailed(ctx context.Context, req pipeline.ProcessRequest, execErr error) {
	switch req.Job {
	case pipeline.JobTranscodeVideo, pipeline.JobCompressAudio, pipeline.JobOptimizePDF, pipeline.JobExtractText:
		if err := r.store.UpdateProcessingStatus(ctx, req.ItemID, pipeline.StatusFailed, execErr.Error()); err != nil {
			logger.Error(ctx, "failed to mark processing failed", "error", err.Error())
		}
	case pipeline.JobEnrich:
		if err := r.store.UpdateSEOStatus(ctx, req.ItemID, pipeline.StatusFailed); err != nil {
			logger.Error(ctx, "failed to mark enrichment failed", "error", err.Error())
		}
	case pipeline.JobReplicate:
		if err := r.store.SetReplicationStatus(ctx, req.ItemID, pipeline.ReplicationFailed); err != nil {
			logger.Error(ctx, "failed to mark replication failed", "error", err.Error())
		}
	}
}

func capFor(job string) int {
	if c, ok := attemptCaps[job]; ok {
		return c
	}
	return 1
}

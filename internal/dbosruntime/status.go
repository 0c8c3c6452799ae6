package dbosruntime

import (
	"context"
	"fmt"
)

// WorkflowStatusInfo is the durable state DBOS keeps for one workflow run.
type WorkflowStatusInfo struct {
	WorkflowUUID string
	Status       string
	Name         string
	CreatedAt    int64
	UpdatedAt    int64
}

// GetWorkflowStatus reads a run's state from the DBOS status table. Used by
// the status endpoint to report whether an enqueued stage has started.
func (r *Runtime) GetWorkflowStatus(ctx context.Context, workflowUUID string) (*WorkflowStatusInfo, error) {
	query := `
		SELECT workflow_uuid, status, name, created_at, updated_at
		FROM dbos.workflow_status
		WHERE workflow_uuid = $1
	`

	var info WorkflowStatusInfo
	err := r.db.QueryRowContext(ctx, query, workflowUUID).Scan(
		&info.WorkflowUUID,
		&info.Status,
		&info.Name,
		&info.CreatedAt,
		&info.UpdatedAt,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to query workflow status: %w", err)
	}
	return &info, nil
}

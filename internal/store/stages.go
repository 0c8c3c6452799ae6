package store

import (
	"context"
	"database/sql"
	"fmt"
	"time"
)

// Stage lifecycle values in pipeline_stages. A row moves
// scheduled -> dispatched -> (completed | failed | scheduled again).
const (
	StageScheduled  = "scheduled"
	StageDispatched = "dispatched"
	StageCompleted  = "completed"
	StageFailed     = "failed"
)

// StageRow is one scheduled stage run for one item.
type StageRow struct {
	ItemID         string
	Job            string
	Attempt        int
	Status         string
	NextEligibleAt time.Time
	LastError      string
}

// ScheduleStage records that a stage run should happen no earlier than
// now+delay. Upserting resets a previously terminal row, so a manual
// re-trigger restarts the chain from attempt 0.
func (s *Store) ScheduleStage(ctx context.Context, itemID, job string, attempt int, delay time.Duration) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO pipeline_stages (item_id, job, attempt, status, next_eligible_at)
		 VALUES ($1, $2, $3, $4, NOW() + $5 * INTERVAL '1 second')
		 ON CONFLICT (item_id, job) DO UPDATE
		 SET attempt = EXCLUDED.attempt,
		     status = EXCLUDED.status,
		     next_eligible_at = EXCLUDED.next_eligible_at,
		     updated_at = NOW()`,
		itemID, job, attempt, StageScheduled, int(delay.Seconds()))
	if err != nil {
		return fmt.Errorf("failed to schedule stage: %w", err)
	}
	return nil
}

// ClaimDueStages atomically claims up to limit eligible stage rows and
// marks them dispatched. Concurrent dispatchers skip each other's claims.
func (s *Store) ClaimDueStages(ctx context.Context, limit int) ([]StageRow, error) {
	rows, err := s.db.QueryContext(ctx,
		`UPDATE pipeline_stages SET status = $1, updated_at = NOW()
		 WHERE (item_id, job) IN (
			SELECT item_id, job FROM pipeline_stages
			WHERE status = $2 AND next_eligible_at <= NOW()
			ORDER BY next_eligible_at
			LIMIT $3
			FOR UPDATE SKIP LOCKED
		 )
		 RETURNING item_id, job, attempt, status, next_eligible_at, last_error`,
		StageDispatched, StageScheduled, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to claim due stages: %w", err)
	}
	defer rows.Close()

	var claimed []StageRow
	for rows.Next() {
		var r StageRow
		if err := rows.Scan(&r.ItemID, &r.Job, &r.Attempt, &r.Status, &r.NextEligibleAt, &r.LastError); err != nil {
			return nil, fmt.Errorf("failed to scan stage row: %w", err)
		}
		claimed = append(claimed, r)
	}
	return claimed, rows.Err()
}

// CompleteStage marks a stage run terminal-success.
func (s *Store) CompleteStage(ctx context.Context, itemID, job string) error {
	return s.finishStage(ctx, itemID, job, StageCompleted, "")
}

// FailStage marks a stage run terminal-failure with its last error.
func (s *Store) FailStage(ctx context.Context, itemID, job, lastError string) error {
	return s.finishStage(ctx, itemID, job, StageFailed, lastError)
}

func (s *Store) finishStage(ctx context.Context, itemID, job, status, lastError string) error {
	_, err := s.db.ExecContext(ctx,
		`UPDATE pipeline_stages
		 SET status = $3, last_error = $4, updated_at = NOW()
		 WHERE item_id = $1 AND job = $2`,
		itemID, job, status, lastError)
	if err != nil {
		return fmt.Errorf("failed to finish stage: %w", err)
	}
	return nil
}

// RetryStage reschedules a failed attempt with backoff and records the
// error that caused it.
func (s *Store) RetryStage(ctx context.Context, itemID, job string, attempt int, delay time.Duration, lastError string) error {
	_, err := s.db.ExecContext(ctx,
		`UPDATE pipeline_stages
		 SET attempt = $3, status = $4, last_error = $5,
		     next_eligible_at = NOW() + $6 * INTERVAL '1 second', updated_at = NOW()
		 WHERE item_id = $1 AND job = $2`,
		itemID, job, attempt, StageScheduled, lastError, int(delay.Seconds()))
	if err != nil {
		return fmt.Errorf("failed to retry stage: %w", err)
	}
	return nil
}

// ReapStaleStages returns dispatched rows older than age to the scheduled
// state so a crashed worker's claims become eligible again. Returns the
// number of rows recovered.
func (s *Store) ReapStaleStages(ctx context.Context, age time.Duration) (int, error) {
	res, err := s.db.ExecContext(ctx,
		`UPDATE pipeline_stages
		 SET status = $1, updated_at = NOW()
		 WHERE status = $2 AND updated_at < NOW() - $3 * INTERVAL '1 second'`,
		StageScheduled, StageDispatched, int(age.Seconds()))
	if err != nil {
		return 0, fmt.Errorf("failed to reap stale stages: %w", err)
	}
	n, _ := res.RowsAffected()
	return int(n), nil
}

// StageState reads one stage row. Returns nil when the stage was never
// scheduled for the item.
func (s *Store) StageState(ctx context.Context, itemID, job string) (*StageRow, error) {
	var r StageRow
	err := s.db.QueryRowContext(ctx,
		`SELECT item_id, job, attempt, status, next_eligible_at, last_error
		 FROM pipeline_stages WHERE item_id = $1 AND job = $2`, itemID, job).
		Scan(&r.ItemID, &r.Job, &r.Attempt, &r.Status, &r.NextEligibleAt, &r.LastError)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get stage state: %w", err)
	}
	return &r, nil
}

// ItemsNeedingCleanup lists items whose enrichment lifecycle is terminal
// and uncleaned but for which no finalize stage was ever scheduled, which
// happens when a worker dies between settling a lifecycle and scheduling
// its followups. The completion gate decides per item whether deletion is
// actually safe.
func (s *Store) ItemsNeedingCleanup(ctx context.Context, limit int) ([]string, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id FROM content_items
		 WHERE local_files_cleaned = FALSE
		   AND seo_processing_status IN ('completed', 'failed')
		   AND NOT EXISTS (
		       SELECT 1 FROM pipeline_stages
		       WHERE item_id = content_items.id AND job = 'finalize')
		 ORDER BY updated_at
		 LIMIT $1`, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list cleanup candidates: %w", err)
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("failed to scan item id: %w", err)
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

// ItemsWithExtractedText streams ids of items that have stored text, for
// the batch re-normalization tool.
func (s *Store) ItemsWithExtractedText(ctx context.Context) ([]string, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id FROM content_items WHERE extracted_text <> '' ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("failed to list items with text: %w", err)
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("failed to scan item id: %w", err)
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

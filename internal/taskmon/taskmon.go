// Package taskmon publishes live stage progress to Redis so operators and
// the admin UI can watch long-running jobs without polling Postgres. The
// data is advisory and expires on its own; the store remains the source of
// truth for lifecycle state.
package taskmon

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"
)

// entryTTL keeps finished task entries visible for a day.
const entryTTL = 24 * time.Hour

// TaskInfo is the live view of one stage run.
type TaskInfo struct {
	ItemID    string
	Job       string
	Status    string
	Phase     string
	Message   string
	Percent   int
	UpdatedAt time.Time
}

// Monitor writes task entries as Redis hashes keyed by item and job.
type Monitor struct {
	client *redis.Client
	prefix string
}

// New builds a monitor on an existing Redis client.
func New(client *redis.Client) *Monitor {
	return &Monitor{client: client, prefix: "pipeline:task"}
}

func (m *Monitor) key(itemID, job string) string {
	return fmt.Sprintf("%s:%s:%s", m.prefix, itemID, job)
}

// Start records that a stage run began.
func (m *Monitor) Start(ctx context.Context, itemID, job string) error {
	return m.write(ctx, itemID, job, map[string]interface{}{
		"status":  "running",
		"phase":   "starting",
		"percent": 0,
	})
}

// Progress updates the completion percentage and current phase.
func (m *Monitor) Progress(ctx context.Context, itemID, job string, percent int, phase, message string) error {
	return m.write(ctx, itemID, job, map[string]interface{}{
		"percent": percent,
		"phase":   phase,
		"message": message,
	})
}

// Finish records the terminal outcome of a stage run.
func (m *Monitor) Finish(ctx context.Context, itemID, job, status, message string) error {
	return m.write(ctx, itemID, job, map[string]interface{}{
		"status":  status,
		"percent": 100,
		"message": message,
	})
}

func (m *Monitor) write(ctx context.Context, itemID, job string, fields map[string]interface{}) error {
	fields["item_id"] = itemID
	fields["job"] = job
	fields["updated_at"] = time.Now().UTC().Format(time.RFC3339)

	key := m.key(itemID, job)
	pipe := m.client.Pipeline()
	pipe.HSet(ctx, key, fields)
	pipe.Expire(ctx, key, entryTTL)
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("failed to write task entry: %w", err)
	}
	return nil
}

// Get reads one task entry. Missing entries return a zero TaskInfo.
func (m *Monitor) Get(ctx context.Context, itemID, job string) (TaskInfo, error) {
	values, err := m.client.HGetAll(ctx, m.key(itemID, job)).Result()
	if err != nil {
		return TaskInfo{}, fmt.Errorf("failed to read task entry: %w", err)
	}
	info := TaskInfo{
		ItemID:  values["item_id"],
		Job:     values["job"],
		Status:  values["status"],
		Phase:   values["phase"],
		Message: values["message"],
	}
	if v, err := strconv.Atoi(values["percent"]); err == nil {
		info.Percent = v
	}
	if t, err := time.Parse(time.RFC3339, values["updated_at"]); err == nil {
		info.UpdatedAt = t
	}
	return info, nil
}

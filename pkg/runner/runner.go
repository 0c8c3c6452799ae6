// Package runner provides an embeddable scheduling API for the media
// pipeline. It talks directly to the pipeline database; running worker
// processes pick the scheduled stages up through their dispatcher, so a
// host application can enqueue work without carrying ffmpeg, Tesseract or
// DBOS itself.
package runner

import (
	"context"
	"fmt"

	"github.com/tendant/media-pipeline/internal/store"
	"github.com/tendant/media-pipeline/pkg/pipeline"
)

// Config holds the configuration for the scheduling client.
type Config struct {
	DatabaseURL string // pipeline PostgreSQL connection string
}

// Runner schedules pipeline stages for items that already exist.
type Runner struct {
	store *store.Store
}

// New connects to the pipeline database.
func New(cfg Config) (*Runner, error) {
	if cfg.DatabaseURL == "" {
		return nil, fmt.Errorf("DatabaseURL is required")
	}
	st, err := store.Open(cfg.DatabaseURL)
	if err != nil {
		return nil, fmt.Errorf("failed to open pipeline store: %w", err)
	}
	return &Runner{store: st}, nil
}

// ScheduleMedia schedules the first media stage for an item's kind. The
// downstream stages chain automatically once a worker runs it.
func (r *Runner) ScheduleMedia(ctx context.Context, itemID string, kind pipeline.Kind) error {
	return r.Schedule(ctx, itemID, pipeline.MediaJobForKind(kind))
}

// OnArtifactAttached starts processing for an item whose original file has
// been attached. Calling it for an item with no file yet is a no-op, so the
// hook is safe to invoke on every save.
func (r *Runner) OnArtifactAttached(ctx context.Context, itemID string) error {
	item, err := r.store.GetItem(ctx, itemID)
	if err != nil {
		return err
	}
	art, err := r.store.GetArtifacts(ctx, itemID)
	if err != nil {
		return err
	}
	if art.OriginalPath == "" {
		return nil
	}
	return r.ScheduleMedia(ctx, itemID, item.Kind)
}

// Schedule schedules one named stage for an item, restarting its attempt
// counter if the stage previously settled.
func (r *Runner) Schedule(ctx context.Context, itemID, job string) error {
	return r.store.ScheduleStage(ctx, itemID, job, 0, 0)
}

// Close releases the database connection.
func (r *Runner) Close() error {
	return r.store.Close()
}

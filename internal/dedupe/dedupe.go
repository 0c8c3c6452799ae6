// Package dedupe detects re-uploads of identical content by original file
// hash, so one source file never spawns two pipeline items.
package dedupe

import (
	"context"
	"database/sql"
	"fmt"
)

// Tracker maps content hashes to the item that first owned them.
type Tracker struct {
	db *sql.DB
}

// NewTracker creates the tracker and its backing table.
func NewTracker(db *sql.DB) (*Tracker, error) {
	tracker := &Tracker{db: db}
	if err := tracker.ensureTable(); err != nil {
		return nil, fmt.Errorf("failed to ensure dedupe table: %w", err)
	}
	return tracker, nil
}

func (t *Tracker) ensureTable() error {
	query := `
		CREATE TABLE IF NOT EXISTS content_hashes (
			sha256 TEXT PRIMARY KEY,
			item_id TEXT NOT NULL,
			first_seen_at TIMESTAMPTZ DEFAULT NOW(),
			last_seen_at TIMESTAMPTZ DEFAULT NOW(),
			seen_count INTEGER DEFAULT 1
		)
	`
	if _, err := t.db.Exec(query); err != nil {
		return fmt.Errorf("failed to create content_hashes table: %w", err)
	}
	return nil
}

// Record claims a hash for itemID. It returns the owning item and how many
// times the hash has been seen; an owner different from itemID means the
// upload is a duplicate of existing content.
func (t *Tracker) Record(ctx context.Context, sha256, itemID string) (ownerID string, seen int, err error) {
	query := `
		INSERT INTO content_hashes (sha256, item_id, first_seen_at, last_seen_at, seen_count)
		VALUES ($1, $2, NOW(), NOW(), 1)
		ON CONFLICT (sha256) DO UPDATE
		SET last_seen_at = NOW(),
		    seen_count = content_hashes.seen_count + 1
		RETURNING item_id, seen_count
	`
	if err := t.db.QueryRowContext(ctx, query, sha256, itemID).Scan(&ownerID, &seen); err != nil {
		return "", 0, fmt.Errorf("failed to record content hash: %w", err)
	}
	return ownerID, seen, nil
}

// Owner returns the item owning a hash, empty when the hash is unknown.
func (t *Tracker) Owner(ctx context.Context, sha256 string) (string, error) {
	var itemID string
	err := t.db.QueryRowContext(ctx,
		`SELECT item_id FROM content_hashes WHERE sha256 = $1`, sha256).Scan(&itemID)
	if err == sql.ErrNoRows {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("failed to look up content hash: %w", err)
	}
	return itemID, nil
}

// Release drops the hash claim for an item, used when ingestion fails after
// the hash was recorded.
func (t *Tracker) Release(ctx context.Context, sha256, itemID string) error {
	_, err := t.db.ExecContext(ctx,
		`DELETE FROM content_hashes WHERE sha256 = $1 AND item_id = $2`, sha256, itemID)
	return err
}

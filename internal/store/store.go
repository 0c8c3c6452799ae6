// Package store persists content items, their artifact sets and the stage
// retry schedule in Postgres.
package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	_ "github.com/lib/pq"

	"github.com/tendant/media-pipeline/internal/model"
	"github.com/tendant/media-pipeline/pkg/pipeline"
)

// Store wraps the pipeline's Postgres state. All status updates are
// field-scoped: each write touches exactly the columns of one lifecycle so
// concurrent stages never clobber each other.
type Store struct {
	db *sql.DB
}

// Open connects to Postgres and ensures the schema.
func Open(databaseURL string) (*Store, error) {
	db, err := sql.Open("postgres", databaseURL)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}
	return New(db)
}

// New wraps an existing connection and ensures the schema.
func New(db *sql.DB) (*Store, error) {
	s := &Store{db: db}
	if err := s.ensureSchema(); err != nil {
		return nil, fmt.Errorf("failed to ensure schema: %w", err)
	}
	return s, nil
}

// DB exposes the underlying handle for components that share the pool.
func (s *Store) DB() *sql.DB { return s.db }

// Close closes the underlying pool.
func (s *Store) Close() error { return s.db.Close() }

func (s *Store) ensureSchema() error {
	statements := []string{
		`CREATE TABLE IF NOT EXISTS content_items (
			id TEXT PRIMARY KEY,
			kind TEXT NOT NULL,
			processing_status TEXT NOT NULL DEFAULT 'pending',
			seo_processing_status TEXT NOT NULL DEFAULT 'pending',
			processing_error TEXT NOT NULL DEFAULT '',
			extracted_text TEXT NOT NULL DEFAULT '',
			search_text TEXT NOT NULL DEFAULT '',
			seo_title TEXT NOT NULL DEFAULT '',
			seo_description TEXT NOT NULL DEFAULT '',
			seo_keywords TEXT NOT NULL DEFAULT '',
			local_files_cleaned BOOLEAN NOT NULL DEFAULT FALSE,
			created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
			updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
		)`,
		`CREATE TABLE IF NOT EXISTS artifact_sets (
			item_id TEXT PRIMARY KEY REFERENCES content_items(id),
			original_path TEXT NOT NULL,
			hls_720_path TEXT NOT NULL DEFAULT '',
			hls_480_path TEXT NOT NULL DEFAULT '',
			compressed_path TEXT NOT NULL DEFAULT '',
			optimized_path TEXT NOT NULL DEFAULT '',
			replication_status TEXT NOT NULL DEFAULT 'pending',
			replication_progress INTEGER NOT NULL DEFAULT 0,
			remote_urls TEXT NOT NULL DEFAULT '{}',
			duration_seconds INTEGER NOT NULL DEFAULT 0,
			bitrate INTEGER NOT NULL DEFAULT 0,
			sample_rate INTEGER NOT NULL DEFAULT 0,
			channels INTEGER NOT NULL DEFAULT 0,
			file_size BIGINT NOT NULL DEFAULT 0,
			page_count INTEGER NOT NULL DEFAULT 0
		)`,
		`CREATE TABLE IF NOT EXISTS pipeline_stages (
			item_id TEXT NOT NULL REFERENCES content_items(id),
			job TEXT NOT NULL,
			attempt INTEGER NOT NULL DEFAULT 0,
			status TEXT NOT NULL DEFAULT 'scheduled',
			next_eligible_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
			last_error TEXT NOT NULL DEFAULT '',
			updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
			PRIMARY KEY (item_id, job)
		)`,
		`CREATE INDEX IF NOT EXISTS idx_pipeline_stages_due
			ON pipeline_stages (next_eligible_at) WHERE status = 'scheduled'`,
	}
	for _, stmt := range statements {
		if _, err := s.db.Exec(stmt); err != nil {
			return err
		}
	}
	return nil
}

// CreateItem inserts a new content item together with its artifact set.
func (s *Store) CreateItem(ctx context.Context, item *model.ContentItem, art *model.ArtifactSet) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin tx: %w", err)
	}
	defer tx.Rollback()

	_, err = tx.ExecContext(ctx,
		`INSERT INTO content_items (id, kind) VALUES ($1, $2)`,
		item.ID, string(item.Kind))
	if err != nil {
		return fmt.Errorf("failed to insert content item: %w", err)
	}
	_, err = tx.ExecContext(ctx,
		`INSERT INTO artifact_sets (item_id, original_path, file_size) VALUES ($1, $2, $3)`,
		item.ID, art.OriginalPath, art.FileSize)
	if err != nil {
		return fmt.Errorf("failed to insert artifact set: %w", err)
	}
	return tx.Commit()
}

// GetItem loads one content item. Returns pipeline.ErrNotFound when the id
// is unknown.
func (s *Store) GetItem(ctx context.Context, id string) (*model.ContentItem, error) {
	var item model.ContentItem
	var kind, processing, seo, keywords string
	err := s.db.QueryRowContext(ctx,
		`SELECT id, kind, processing_status, seo_processing_status, processing_error,
		        extracted_text, search_text, seo_title, seo_description, seo_keywords,
		        local_files_cleaned, created_at, updated_at
		 FROM content_items WHERE id = $1`, id).
		Scan(&item.ID, &kind, &processing, &seo, &item.ProcessingError,
			&item.ExtractedText, &item.SearchText, &item.SEOTitle, &item.SEODescription,
			&keywords, &item.LocalFilesCleaned, &item.CreatedAt, &item.UpdatedAt)
	if err == sql.ErrNoRows {
		return nil, pipeline.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get content item: %w", err)
	}
	item.Kind = pipeline.Kind(kind)
	item.ProcessingStatus = pipeline.Status(processing)
	item.SEOProcessingStatus = pipeline.Status(seo)
	if keywords != "" {
		item.SEOKeywords = strings.Split(keywords, ",")
	}
	return &item, nil
}

// SetSEOMetadata stores the generated metadata. Status is written
// separately so a metadata write failure leaves the lifecycle accurate.
func (s *Store) SetSEOMetadata(ctx context.Context, itemID, title, description string, keywords []string) error {
	_, err := s.db.ExecContext(ctx,
		`UPDATE content_items
		 SET seo_title = $2, seo_description = $3, seo_keywords = $4, updated_at = NOW()
		 WHERE id = $1`, itemID, title, description, strings.Join(keywords, ","))
	if err != nil {
		return fmt.Errorf("failed to set seo metadata: %w", err)
	}
	return nil
}

// GetArtifacts loads the artifact set for one item.
func (s *Store) GetArtifacts(ctx context.Context, itemID string) (*model.ArtifactSet, error) {
	var art model.ArtifactSet
	var replication, rawURLs string
	err := s.db.QueryRowContext(ctx,
		`SELECT item_id, original_path, hls_720_path, hls_480_path, compressed_path,
		        optimized_path, replication_status, replication_progress, remote_urls,
		        duration_seconds, bitrate, sample_rate, channels, file_size, page_count
		 FROM artifact_sets WHERE item_id = $1`, itemID).
		Scan(&art.ItemID, &art.OriginalPath, &art.HLS720Path, &art.HLS480Path,
			&art.CompressedPath, &art.OptimizedPath, &replication, &art.ReplicationProgress,
			&rawURLs, &art.DurationSeconds, &art.Bitrate, &art.SampleRate,
			&art.Channels, &art.FileSize, &art.PageCount)
	if err == sql.ErrNoRows {
		return nil, pipeline.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get artifact set: %w", err)
	}
	art.ReplicationStatus = pipeline.ReplicationStatus(replication)
	if rawURLs != "" {
		if err := json.Unmarshal([]byte(rawURLs), &art.RemoteURLs); err != nil {
			return nil, fmt.Errorf("failed to decode remote urls: %w", err)
		}
	}
	return &art, nil
}

// UpdateProcessingStatus writes the media-processing lifecycle only.
func (s *Store) UpdateProcessingStatus(ctx context.Context, itemID string, status pipeline.Status, errMsg string) error {
	_, err := s.db.ExecContext(ctx,
		`UPDATE content_items
		 SET processing_status = $2, processing_error = $3, updated_at = NOW()
		 WHERE id = $1`, itemID, string(status), errMsg)
	if err != nil {
		return fmt.Errorf("failed to update processing status: %w", err)
	}
	return nil
}

// FailStaleItems marks items stuck in processing beyond age as failed and
// returns how many were swept. A crash between status update and stage
// settlement is the only way an item gets here.
func (s *Store) FailStaleItems(ctx context.Context, age time.Duration) (int64, error) {
	res, err := s.db.ExecContext(ctx,
		`UPDATE content_items
		 SET processing_status = 'failed',
		     processing_error = 'processing exceeded the stale deadline',
		     updated_at = NOW()
		 WHERE processing_status = 'processing' AND updated_at < NOW() - $1::interval`,
		fmt.Sprintf("%d seconds", int(age.Seconds())))
	if err != nil {
		return 0, fmt.Errorf("failed to sweep stale items: %w", err)
	}
	n, _ := res.RowsAffected()
	return n, nil
}

// UpdateSEOStatus writes the AI-enrichment lifecycle only.
func (s *Store) UpdateSEOStatus(ctx context.Context, itemID string, status pipeline.Status) error {
	_, err := s.db.ExecContext(ctx,
		`UPDATE content_items SET seo_processing_status = $2, updated_at = NOW() WHERE id = $1`,
		itemID, string(status))
	if err != nil {
		return fmt.Errorf("failed to update seo status: %w", err)
	}
	return nil
}

// SetExtractedText stores both text variants produced by extraction.
func (s *Store) SetExtractedText(ctx context.Context, itemID, extracted, search string) error {
	_, err := s.db.ExecContext(ctx,
		`UPDATE content_items
		 SET extracted_text = $2, search_text = $3, updated_at = NOW()
		 WHERE id = $1`, itemID, extracted, search)
	if err != nil {
		return fmt.Errorf("failed to set extracted text: %w", err)
	}
	return nil
}

// MarkFilesCleaned flags the item's local files as removed.
func (s *Store) MarkFilesCleaned(ctx context.Context, itemID string) error {
	_, err := s.db.ExecContext(ctx,
		`UPDATE content_items SET local_files_cleaned = TRUE, updated_at = NOW() WHERE id = $1`,
		itemID)
	if err != nil {
		return fmt.Errorf("failed to mark files cleaned: %w", err)
	}
	return nil
}

// SetHLSPaths records the rendition playlists after a video transcode. A
// rendition that failed stays empty.
func (s *Store) SetHLSPaths(ctx context.Context, itemID, hls720, hls480 string, durationSeconds int) error {
	_, err := s.db.ExecContext(ctx,
		`UPDATE artifact_sets
		 SET hls_720_path = $2, hls_480_path = $3, duration_seconds = $4
		 WHERE item_id = $1`, itemID, hls720, hls480, durationSeconds)
	if err != nil {
		return fmt.Errorf("failed to set hls paths: %w", err)
	}
	return nil
}

// SetCompressedAudio records the compressed copy and stream metadata.
func (s *Store) SetCompressedAudio(ctx context.Context, itemID, path string, size int64, bitrate, sampleRate, channels, durationSeconds int) error {
	_, err := s.db.ExecContext(ctx,
		`UPDATE artifact_sets
		 SET compressed_path = $2, file_size = $3, bitrate = $4,
		     sample_rate = $5, channels = $6, duration_seconds = $7
		 WHERE item_id = $1`, itemID, path, size, bitrate, sampleRate, channels, durationSeconds)
	if err != nil {
		return fmt.Errorf("failed to set compressed audio: %w", err)
	}
	return nil
}

// SetOptimizedPDF records the optimization outcome. An empty path means the
// original was kept.
func (s *Store) SetOptimizedPDF(ctx context.Context, itemID, path string, fileSize int64, pageCount int) error {
	_, err := s.db.ExecContext(ctx,
		`UPDATE artifact_sets
		 SET optimized_path = $2, file_size = $3, page_count = $4
		 WHERE item_id = $1`, itemID, path, fileSize, pageCount)
	if err != nil {
		return fmt.Errorf("failed to set optimized pdf: %w", err)
	}
	return nil
}

// UpdateReplication writes the replication lifecycle and progress only.
func (s *Store) UpdateReplication(ctx context.Context, itemID string, status pipeline.ReplicationStatus, progress int) error {
	_, err := s.db.ExecContext(ctx,
		`UPDATE artifact_sets
		 SET replication_status = $2, replication_progress = $3
		 WHERE item_id = $1`, itemID, string(status), progress)
	if err != nil {
		return fmt.Errorf("failed to update replication: %w", err)
	}
	return nil
}

// SetReplicationStatus writes the replication status without touching the
// recorded progress.
func (s *Store) SetReplicationStatus(ctx context.Context, itemID string, status pipeline.ReplicationStatus) error {
	_, err := s.db.ExecContext(ctx,
		`UPDATE artifact_sets SET replication_status = $2 WHERE item_id = $1`,
		itemID, string(status))
	if err != nil {
		return fmt.Errorf("failed to set replication status: %w", err)
	}
	return nil
}

// SetRemoteURLs records the public URL for each replicated path.
func (s *Store) SetRemoteURLs(ctx context.Context, itemID string, urls map[string]string) error {
	encoded, err := json.Marshal(urls)
	if err != nil {
		return fmt.Errorf("failed to encode remote urls: %w", err)
	}
	_, err = s.db.ExecContext(ctx,
		`UPDATE artifact_sets SET remote_urls = $2 WHERE item_id = $1`,
		itemID, string(encoded))
	if err != nil {
		return fmt.Errorf("failed to set remote urls: %w", err)
	}
	return nil
}

// Status assembles the polled lifecycle view for one item.
func (s *Store) Status(ctx context.Context, itemID string) (pipeline.ItemStatus, error) {
	var st pipeline.ItemStatus
	var kind, processing, seo, replication string
	err := s.db.QueryRowContext(ctx,
		`SELECT c.id, c.kind, c.processing_status, c.seo_processing_status,
		        c.processing_error, c.local_files_cleaned,
		        a.replication_status, a.replication_progress
		 FROM content_items c
		 JOIN artifact_sets a ON a.item_id = c.id
		 WHERE c.id = $1`, itemID).
		Scan(&st.ItemID, &kind, &processing, &seo, &st.ProcessingError,
			&st.LocalFilesCleaned, &replication, &st.ReplicationProgress)
	if err == sql.ErrNoRows {
		return pipeline.ItemStatus{}, pipeline.ErrNotFound
	}
	if err != nil {
		return pipeline.ItemStatus{}, fmt.Errorf("failed to get item status: %w", err)
	}
	st.Kind = pipeline.Kind(kind)
	st.ProcessingStatus = pipeline.Status(processing)
	st.SEOProcessingStatus = pipeline.Status(seo)
	st.ReplicationStatus = pipeline.ReplicationStatus(replication)
	return st, nil
}

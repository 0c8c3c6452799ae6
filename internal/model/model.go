package model

import (
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/tendant/media-pipeline/pkg/pipeline"
)

// ContentItem is one uploaded piece of media owned by the pipeline after
// ingestion. The three status fields are independently progressing
// lifecycles; none may be inferred from another.
type ContentItem struct {
	ID   string
	Kind pipeline.Kind

	ProcessingStatus    pipeline.Status
	SEOProcessingStatus pipeline.Status
	ProcessingError     string

	// ExtractedText is the indexed/display form produced by the
	// normalization pipeline; SearchText is the diacritic-free variant
	// used only for indexing. Both are PDF-only.
	ExtractedText string
	SearchText    string

	// SEO metadata written by the enrichment lifecycle.
	SEOTitle       string
	SEODescription string
	SEOKeywords    []string

	LocalFilesCleaned bool

	CreatedAt time.Time
	UpdatedAt time.Time
}

// ArtifactSet references the original file and the kind-specific
// derivatives for one ContentItem. Paths are relative to the media root;
// empty means the derivative does not exist (yet).
type ArtifactSet struct {
	ItemID       string
	OriginalPath string

	// Video: two HLS renditions.
	HLS720Path string
	HLS480Path string

	// Audio: one compressed copy.
	CompressedPath string

	// PDF: one optimized copy, kept only when meaningfully smaller.
	OptimizedPath string

	ProcessingStatus    pipeline.Status
	ReplicationStatus   pipeline.ReplicationStatus
	ReplicationProgress int
	RemoteURLs          map[string]string // relative path -> public URL

	DurationSeconds int
	Bitrate         int
	SampleRate      int
	Channels        int
	FileSize        int64
	PageCount       int
}

// LocalPaths returns every path that may still exist on local disk for the
// artifact set: the original plus all derivatives. HLS paths are playlist
// files; their parent directory holds the segments and is what gets removed.
func (a *ArtifactSet) LocalPaths(mediaRoot string) []string {
	var paths []string
	add := func(rel string) {
		if rel != "" {
			paths = append(paths, filepath.Join(mediaRoot, rel))
		}
	}
	add(a.OriginalPath)
	if a.HLS720Path != "" {
		paths = append(paths, filepath.Dir(filepath.Join(mediaRoot, a.HLS720Path)))
	}
	if a.HLS480Path != "" {
		paths = append(paths, filepath.Dir(filepath.Join(mediaRoot, a.HLS480Path)))
	}
	add(a.CompressedPath)
	add(a.OptimizedPath)
	return paths
}

// CleanupEligible reports whether local copies of an item's files may be
// deleted: the replication lifecycle must be terminal across the artifact
// set (or replication disabled entirely) and the AI enrichment lifecycle
// must be terminal. A transient enrichment error that will be retried keeps
// the gate closed.
func CleanupEligible(item *ContentItem, art *ArtifactSet, replicationEnabled bool) bool {
	if item.LocalFilesCleaned {
		return false
	}
	if !item.SEOProcessingStatus.Terminal() {
		return false
	}
	if !replicationEnabled {
		return true
	}
	return art.ReplicationStatus.Terminal()
}

// DeletionSet returns the local paths safe to remove once CleanupEligible
// holds. Files whose only copy is local are never included: with
// replication disabled, or failed, nothing is deleted.
func DeletionSet(art *ArtifactSet, mediaRoot string, replicationEnabled bool) []string {
	if !replicationEnabled || art.ReplicationStatus != pipeline.ReplicationCompleted {
		return nil
	}
	return art.LocalPaths(mediaRoot)
}

var validExtensions = map[pipeline.Kind][]string{
	pipeline.KindVideo: {".mp4", ".avi", ".mov", ".mkv", ".webm"},
	pipeline.KindAudio: {".mp3", ".wav", ".aac", ".flac", ".ogg"},
	pipeline.KindPDF:   {".pdf"},
}

// UniqueFilename generates a UUID-based filename preserving the original
// extension, rejecting extensions not valid for the content kind.
func UniqueFilename(originalName string, kind pipeline.Kind) (string, error) {
	ext := strings.ToLower(filepath.Ext(originalName))
	for _, valid := range validExtensions[kind] {
		if ext == valid {
			return uuid.New().String() + ext, nil
		}
	}
	return "", &pipeline.ValidationError{
		Reason: fmt.Sprintf("invalid file extension %q for content kind %q", ext, kind),
	}
}

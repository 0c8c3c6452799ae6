package model

import (
	"path/filepath"
	"strings"
	"testing"

	"github.com/tendant/media-pipeline/pkg/pipeline"
)

func TestCleanupEligible(t *testing.T) {
	tests := []struct {
		name               string
		seoStatus          pipeline.Status
		replicationStatus  pipeline.ReplicationStatus
		replicationEnabled bool
		cleaned            bool
		want               bool
	}{
		{"both completed", pipeline.StatusCompleted, pipeline.ReplicationCompleted, true, false, true},
		{"enrichment failed still terminal", pipeline.StatusFailed, pipeline.ReplicationCompleted, true, false, true},
		{"replication failed still terminal", pipeline.StatusCompleted, pipeline.ReplicationFailed, true, false, true},
		{"enrichment pending", pipeline.StatusPending, pipeline.ReplicationCompleted, true, false, false},
		{"enrichment in flight", pipeline.StatusProcessing, pipeline.ReplicationCompleted, true, false, false},
		{"replication uploading", pipeline.StatusCompleted, pipeline.ReplicationUploading, true, false, false},
		{"replication pending", pipeline.StatusCompleted, pipeline.ReplicationPending, true, false, false},
		{"replication disabled ignores its status", pipeline.StatusCompleted, pipeline.ReplicationPending, false, false, true},
		{"already cleaned", pipeline.StatusCompleted, pipeline.ReplicationCompleted, true, true, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			item := &ContentItem{
				SEOProcessingStatus: tt.seoStatus,
				LocalFilesCleaned:   tt.cleaned,
			}
			art := &ArtifactSet{ReplicationStatus: tt.replicationStatus}
			if got := CleanupEligible(item, art, tt.replicationEnabled); got != tt.want {
				t.Errorf("CleanupEligible() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestDeletionSetNeverRemovesOnlyCopy(t *testing.T) {
	art := &ArtifactSet{
		OriginalPath:   "originals/a.mp3",
		CompressedPath: "audio_compressed/a.mp3",
	}

	if got := DeletionSet(art, "/media", false); got != nil {
		t.Errorf("replication disabled: DeletionSet() = %v, want nil", got)
	}

	art.ReplicationStatus = pipeline.ReplicationFailed
	if got := DeletionSet(art, "/media", true); got != nil {
		t.Errorf("replication failed: DeletionSet() = %v, want nil", got)
	}

	art.ReplicationStatus = pipeline.ReplicationCompleted
	got := DeletionSet(art, "/media", true)
	if len(got) != 2 {
		t.Fatalf("replication completed: got %d paths, want 2: %v", len(got), got)
	}
}

func TestLocalPathsUsesHLSDirectories(t *testing.T) {
	art := &ArtifactSet{
		OriginalPath: "originals/v.mp4",
		HLS720Path:   "hls/v/720/playlist.m3u8",
		HLS480Path:   "hls/v/480/playlist.m3u8",
	}

	paths := art.LocalPaths("/media")
	want := []string{
		filepath.Join("/media", "originals/v.mp4"),
		filepath.Join("/media", "hls/v/720"),
		filepath.Join("/media", "hls/v/480"),
	}
	if len(paths) != len(want) {
		t.Fatalf("got %d paths, want %d: %v", len(paths), len(want), paths)
	}
	for i := range want {
		if paths[i] != want[i] {
			t.Errorf("paths[%d] = %q, want %q", i, paths[i], want[i])
		}
	}
}

func TestLocalPathsSkipsMissingDerivatives(t *testing.T) {
	art := &ArtifactSet{OriginalPath: "originals/d.pdf"}
	paths := art.LocalPaths("/media")
	if len(paths) != 1 {
		t.Fatalf("got %d paths, want 1: %v", len(paths), paths)
	}
}

func TestUniqueFilename(t *testing.T) {
	name, err := UniqueFilename("Lecture 12.MP4", pipeline.KindVideo)
	if err != nil {
		t.Fatalf("UniqueFilename() error = %v", err)
	}
	if !strings.HasSuffix(name, ".mp4") {
		t.Errorf("expected lowercased .mp4 suffix, got %q", name)
	}
	if strings.Contains(name, "Lecture") {
		t.Errorf("original name leaked into %q", name)
	}

	other, _ := UniqueFilename("Lecture 12.MP4", pipeline.KindVideo)
	if other == name {
		t.Error("two generated names collided")
	}
}

func TestUniqueFilenameRejectsWrongKind(t *testing.T) {
	if _, err := UniqueFilename("talk.mp4", pipeline.KindPDF); err == nil {
		t.Fatal("expected validation error for .mp4 as pdf")
	}
	if _, err := UniqueFilename("noext", pipeline.KindAudio); err == nil {
		t.Fatal("expected validation error for missing extension")
	}
}

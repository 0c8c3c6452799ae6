package workflows

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/tendant/media-pipeline/internal/store"
	"github.com/tendant/media-pipeline/internal/transcode"
)

// CompressAudioWorkflow encodes an audio original to MP3 under the size
// cap, stepping the bitrate down as needed.
type CompressAudioWorkflow struct {
	store              *store.Store
	transcoder         *transcode.AudioTranscoder
	mediaRoot          string
	maxSizeBytes       int64
	replicationEnabled bool
}

// NewCompressAudioWorkflow creates the audio compression workflow.
func NewCompressAudioWorkflow(st *store.Store, transcoder *transcode.AudioTranscoder, mediaRoot string, maxSizeBytes int64, replicationEnabled bool) *CompressAudioWorkflow {
	return &CompressAudioWorkflow{
		store:              st,
		transcoder:         transcoder,
		mediaRoot:          mediaRoot,
		maxSizeBytes:       maxSizeBytes,
		replicationEnabled: replicationEnabled,
	}
}

// Name returns the workflow name
func (w *CompressAudioWorkflow) Name() string {
	return "CompressAudioWorkflow"
}

// Execute compresses the original and records the stream metadata.
func (w *CompressAudioWorkflow) Execute(wctx *WorkflowContext) (*WorkflowResult, error) {
	itemID := wctx.Request.ItemID

	art, err := w.store.GetArtifacts(wctx.Ctx, itemID)
	if err != nil {
		return nil, err
	}

	input := filepath.Join(w.mediaRoot, art.OriginalPath)
	if _, err := os.Stat(input); err != nil {
		return nil, fmt.Errorf("original file missing: %w", err)
	}

	meta := w.transcoder.ExtractMetadata(wctx.Ctx, input)
	wctx.ReportProgress(10, "probed", "")

	rel := filepath.Join("audio_compressed", itemID+".mp3")
	size, bitrateKbps, err := w.transcoder.Compress(wctx.Ctx, input, filepath.Join(w.mediaRoot, rel), w.maxSizeBytes)
	if err != nil {
		return nil, err
	}
	wctx.ReportProgress(90, "compressed", "")

	if err := w.store.SetCompressedAudio(wctx.Ctx, itemID, rel, size,
		meta.Bitrate, meta.SampleRate, meta.Channels, meta.DurationSeconds); err != nil {
		return nil, err
	}

	return &WorkflowResult{
		Success:  true,
		NextJobs: nextAfterMedia(w.replicationEnabled),
		Outputs: map[string]interface{}{
			"compressed_path": rel,
			"size_bytes":      size,
			"bitrate_kbps":    bitrateKbps,
		},
	}, nil
}

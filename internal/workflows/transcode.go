package workflows

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/tendant/media-pipeline/internal/logger"
	"github.com/tendant/media-pipeline/internal/store"
	"github.com/tendant/media-pipeline/internal/transcode"
	"github.com/tendant/media-pipeline/pkg/pipeline"
)

// nextAfterMedia names the stages that follow a completed media stage.
// Replication joins the chain only when an object store is configured.
func nextAfterMedia(replicationEnabled bool) []string {
	next := []string{pipeline.JobEnrich}
	if replicationEnabled {
		next = append(next, pipeline.JobReplicate)
	}
	return next
}

// TranscodeWorkflow produces the two HLS renditions for a video item.
type TranscodeWorkflow struct {
	store              *store.Store
	transcoder         *transcode.VideoTranscoder
	mediaRoot          string
	replicationEnabled bool
}

// NewTranscodeWorkflow creates the video transcoding workflow.
func NewTranscodeWorkflow(st *store.Store, transcoder *transcode.VideoTranscoder, mediaRoot string, replicationEnabled bool) *TranscodeWorkflow {
	return &TranscodeWorkflow{
		store:              st,
		transcoder:         transcoder,
		mediaRoot:          mediaRoot,
		replicationEnabled: replicationEnabled,
	}
}

// Name returns the workflow name
func (w *TranscodeWorkflow) Name() string {
	return "TranscodeWorkflow"
}

// renditionFailure classifies the outcome of the two encodes. Any failed
// rendition fails the stage retryably: the item is only complete with both
// renditions, and a later attempt re-encodes just fine.
func renditionFailure(err720, err480 error) error {
	switch {
	case err720 != nil && err480 != nil:
		return pipeline.Transient(fmt.Errorf("all renditions failed: %w", err720))
	case err720 != nil:
		return pipeline.Transient(fmt.Errorf("720p rendition failed: %w", err720))
	case err480 != nil:
		return pipeline.Transient(fmt.Errorf("480p rendition failed: %w", err480))
	}
	return nil
}

// Execute generates the 720p and 480p renditions. A successful rendition's
// path is persisted even when the other fails, so a terminally failed item
// still references whatever was produced.
func (w *TranscodeWorkflow) Execute(wctx *WorkflowContext) (*WorkflowResult, error) {
	itemID := wctx.Request.ItemID

	art, err := w.store.GetArtifacts(wctx.Ctx, itemID)
	if err != nil {
		return nil, err
	}

	input := filepath.Join(w.mediaRoot, art.OriginalPath)
	if _, err := os.Stat(input); err != nil {
		return nil, fmt.Errorf("original file missing: %w", err)
	}

	duration := w.transcoder.Duration(wctx.Ctx, input)
	wctx.ReportProgress(10, "probed", "")

	var rel720, rel480 string
	_, err720 := w.transcoder.GenerateHLS(wctx.Ctx, input, filepath.Join(w.mediaRoot, "hls", itemID, "720"), "720")
	if err720 == nil {
		rel720 = filepath.Join("hls", itemID, "720", "playlist.m3u8")
	}
	wctx.ReportProgress(50, "encoded_720p", "")
	_, err480 := w.transcoder.GenerateHLS(wctx.Ctx, input, filepath.Join(w.mediaRoot, "hls", itemID, "480"), "480")
	if err480 == nil {
		rel480 = filepath.Join("hls", itemID, "480", "playlist.m3u8")
	}
	wctx.ReportProgress(90, "encoded_480p", "")

	if err := w.store.SetHLSPaths(wctx.Ctx, itemID, rel720, rel480, duration); err != nil {
		return nil, err
	}

	if ferr := renditionFailure(err720, err480); ferr != nil {
		logger.Warn(wctx.Ctx, "rendition encode failed",
			"hls_720", rel720, "hls_480", rel480, "error", ferr.Error())
		return nil, ferr
	}

	return &WorkflowResult{
		Success:  true,
		NextJobs: nextAfterMedia(w.replicationEnabled),
		Outputs: map[string]interface{}{
			"hls_720":          rel720,
			"hls_480":          rel480,
			"duration_seconds": duration,
		},
	}, nil
}

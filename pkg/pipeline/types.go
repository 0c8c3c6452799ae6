package pipeline

import "fmt"

// Kind is the closed set of supported content kinds. It is immutable after
// item creation; every pipeline stage is selected from it exactly once at
// the orchestrator boundary.
type Kind string

const (
	KindVideo Kind = "video"
	KindAudio Kind = "audio"
	KindPDF   Kind = "pdf"
)

// ParseKind validates a declared content kind.
func ParseKind(s string) (Kind, error) {
	switch Kind(s) {
	case KindVideo, KindAudio, KindPDF:
		return Kind(s), nil
	}
	return "", fmt.Errorf("unsupported content kind %q", s)
}

// Status is the lifecycle of a processing stage chain.
type Status string

const (
	StatusPending    Status = "pending"
	StatusProcessing Status = "processing"
	StatusCompleted  Status = "completed"
	StatusFailed     Status = "failed"
)

// Terminal reports whether a lifecycle has finished, successfully or not.
func (s Status) Terminal() bool {
	return s == StatusCompleted || s == StatusFailed
}

// ReplicationStatus is the independent lifecycle of copying a derived
// artifact to object storage. It is never inferred from Status.
type ReplicationStatus string

const (
	ReplicationPending   ReplicationStatus = "pending"
	ReplicationUploading ReplicationStatus = "uploading"
	ReplicationCompleted ReplicationStatus = "completed"
	ReplicationFailed    ReplicationStatus = "failed"
)

// Terminal reports whether replication has finished, successfully or not.
func (s ReplicationStatus) Terminal() bool {
	return s == ReplicationCompleted || s == ReplicationFailed
}

// Stage job names registered with the workflow runner.
const (
	JobTranscodeVideo = "transcode_video"
	JobCompressAudio  = "compress_audio"
	JobOptimizePDF    = "optimize_pdf"
	JobExtractText    = "extract_text"
	JobEnrich         = "enrich"
	JobReplicate      = "replicate"
	JobFinalize       = "finalize"
	JobDeleteFiles    = "delete_files"
)

// MediaJobForKind returns the first media-processing stage for a content
// kind. Downstream stages are chained by the workflows themselves.
func MediaJobForKind(k Kind) string {
	switch k {
	case KindVideo:
		return JobTranscodeVideo
	case KindAudio:
		return JobCompressAudio
	default:
		return JobOptimizePDF
	}
}

// ProcessRequest is a request to run one pipeline stage for one item.
type ProcessRequest struct {
	ItemID  string `json:"item_id"`
	Job     string `json:"job"`
	Attempt int    `json:"attempt"`

	// Paths carries the deletion set for the delete_files job; unused by
	// other stages.
	Paths []string `json:"paths,omitempty"`
}

// ProcessResponse is returned when a stage run has been enqueued.
type ProcessResponse struct {
	RunID string `json:"run_id"`
}

// ItemStatus is the polled view of an item's three lifecycles.
type ItemStatus struct {
	ItemID              string            `json:"item_id"`
	Kind                Kind              `json:"kind"`
	ProcessingStatus    Status            `json:"processing_status"`
	SEOProcessingStatus Status            `json:"seo_processing_status"`
	ReplicationStatus   ReplicationStatus `json:"replication_status"`
	ReplicationProgress int               `json:"replication_progress"`
	ProcessingError     string            `json:"processing_error,omitempty"`
	LocalFilesCleaned   bool              `json:"local_files_cleaned"`
}

// Package metrics exposes Prometheus counters for the pipeline worker.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	stageRuns = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "media_pipeline",
		Name:      "stage_runs_total",
		Help:      "Stage run outcomes by job.",
	}, []string{"job", "outcome"})

	stageRetries = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "media_pipeline",
		Name:      "stage_retries_total",
		Help:      "Retries scheduled by job.",
	}, []string{"job"})

	stageDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "media_pipeline",
		Name:      "stage_duration_seconds",
		Help:      "Wall time per stage run.",
		Buckets:   prometheus.ExponentialBuckets(1, 2, 12),
	}, []string{"job"})

	replicatedFiles = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "media_pipeline",
		Name:      "replicated_files_total",
		Help:      "Files uploaded to object storage.",
	})

	ocrPages = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "media_pipeline",
		Name:      "ocr_pages_total",
		Help:      "Pages recognized via OCR.",
	})
)

// StageCompleted records a successful stage run and its duration.
func StageCompleted(job string, elapsed time.Duration) {
	stageRuns.WithLabelValues(job, "completed").Inc()
	stageDuration.WithLabelValues(job).Observe(elapsed.Seconds())
}

// StageFailed records a terminal stage failure.
func StageFailed(job string, elapsed time.Duration) {
	stageRuns.WithLabelValues(job, "failed").Inc()
	stageDuration.WithLabelValues(job).Observe(elapsed.Seconds())
}

// StageRetried records a scheduled retry.
func StageRetried(job string) {
	stageRetries.WithLabelValues(job).Inc()
}

// FilesReplicated adds to the upload counter.
func FilesReplicated(n int) {
	replicatedFiles.Add(float64(n))
}

// OCRPagesProcessed adds to the OCR page counter.
func OCRPagesProcessed(n int) {
	ocrPages.Add(float64(n))
}

// Handler serves the scrape endpoint.
func Handler() http.Handler {
	return promhttp.Handler()
}

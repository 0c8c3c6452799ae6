// Package handlers exposes the worker's HTTP API: item ingestion, manual
// stage triggers and status polling.
package handlers

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"

	"github.com/gorilla/mux"
	"github.com/tendant/media-pipeline/internal/dbosruntime"
	"github.com/tendant/media-pipeline/internal/dedupe"
	"github.com/tendant/media-pipeline/internal/logger"
	"github.com/tendant/media-pipeline/internal/mediafs"
	"github.com/tendant/media-pipeline/internal/model"
	"github.com/tendant/media-pipeline/internal/store"
	"github.com/tendant/media-pipeline/internal/taskmon"
	"github.com/tendant/media-pipeline/internal/workflows"
	"github.com/tendant/media-pipeline/pkg/pipeline"
)

// maxUploadBytes caps ingested files at 2GB.
const maxUploadBytes = 2 << 30

// API wires the HTTP surface to the pipeline.
type API struct {
	store   *store.Store
	runner  *workflows.WorkflowRunner
	monitor *taskmon.Monitor
	runtime *dbosruntime.Runtime
	media   *mediafs.Root
	dedupe  *dedupe.Tracker
}

// NewAPI creates the handler set. monitor may be nil.
func NewAPI(st *store.Store, runner *workflows.WorkflowRunner, monitor *taskmon.Monitor, runtime *dbosruntime.Runtime, media *mediafs.Root, tracker *dedupe.Tracker) *API {
	return &API{store: st, runner: runner, monitor: monitor, runtime: runtime, media: media, dedupe: tracker}
}

// Routes registers all endpoints on a router.
func (a *API) Routes(r *mux.Router) {
	r.HandleFunc("/v1/items", a.handleIngest).Methods(http.MethodPost)
	r.HandleFunc("/v1/items/{id}/status", a.handleItemStatus).Methods(http.MethodGet)
	r.HandleFunc("/v1/items/{id}/tasks/{job}", a.handleTaskProgress).Methods(http.MethodGet)
	r.HandleFunc("/v1/process", a.handleProcess).Methods(http.MethodPost)
	r.HandleFunc("/v1/runs/{id}", a.handleRunStatus).Methods(http.MethodGet)
	r.HandleFunc("/healthz", a.handleHealth).Methods(http.MethodGet)
}

type ingestResponse struct {
	ItemID       string `json:"item_id"`
	OriginalPath string `json:"original_path"`
	Duplicate    bool   `json:"duplicate,omitempty"`
}

// handleIngest accepts a multipart upload (fields "kind" and "file"),
// stores the original under a collision-free name and schedules the first
// media stage. Re-uploading identical bytes returns the existing item
// instead of creating a second one.
func (a *API) handleIngest(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, maxUploadBytes)
	if err := r.ParseMultipartForm(32 << 20); err != nil {
		http.Error(w, fmt.Sprintf("invalid multipart request: %v", err), http.StatusBadRequest)
		return
	}

	kind, err := pipeline.ParseKind(r.FormValue("kind"))
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	file, header, err := r.FormFile("file")
	if err != nil {
		http.Error(w, "file is required", http.StatusBadRequest)
		return
	}
	defer file.Close()

	filename, err := model.UniqueFilename(header.Filename, kind)
	if err != nil {
		var verr *pipeline.ValidationError
		if errors.As(err, &verr) {
			http.Error(w, verr.Error(), http.StatusBadRequest)
			return
		}
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	rel := filepath.Join("originals", filename)
	hash := sha256.New()
	size, err := a.media.Save(rel, io.TeeReader(file, hash))
	if err != nil {
		logger.Error(r.Context(), "failed to store upload", "error", err.Error())
		http.Error(w, "failed to store upload", http.StatusInternalServerError)
		return
	}

	itemID := filenameStem(filename)
	digest := hex.EncodeToString(hash.Sum(nil))
	ownerID, seen, err := a.dedupe.Record(r.Context(), digest, itemID)
	if err != nil {
		logger.Error(r.Context(), "failed to record content hash", "error", err.Error())
		http.Error(w, "failed to record upload", http.StatusInternalServerError)
		return
	}
	if ownerID != itemID {
		a.discardUpload(r.Context(), rel)
		logger.Info(r.Context(), "duplicate upload",
			"item_id", ownerID, "seen_count", seen, "sha256", digest)
		writeJSON(w, http.StatusOK, ingestResponse{ItemID: ownerID, Duplicate: true})
		return
	}

	item := &model.ContentItem{ID: itemID, Kind: kind}
	art := &model.ArtifactSet{ItemID: itemID, OriginalPath: rel, FileSize: size}
	if err := a.store.CreateItem(r.Context(), item, art); err != nil {
		logger.Error(r.Context(), "failed to create item", "error", err.Error())
		a.discardUpload(r.Context(), rel)
		if rerr := a.dedupe.Release(r.Context(), digest, itemID); rerr != nil {
			logger.Error(r.Context(), "failed to release content hash", "error", rerr.Error())
		}
		http.Error(w, "failed to create item", http.StatusInternalServerError)
		return
	}

	if err := a.runner.Schedule(r.Context(), itemID, pipeline.MediaJobForKind(kind)); err != nil {
		logger.Error(r.Context(), "failed to schedule first stage", "error", err.Error())
		http.Error(w, "failed to schedule processing", http.StatusInternalServerError)
		return
	}

	logger.Info(r.Context(), "item ingested",
		"item_id", itemID, "kind", string(kind), "bytes", size, "sha256", digest)
	writeJSON(w, http.StatusCreated, ingestResponse{ItemID: itemID, OriginalPath: rel})
}

func (a *API) discardUpload(ctx context.Context, rel string) {
	path, err := a.media.Resolve(rel)
	if err != nil {
		return
	}
	if err := os.Remove(path); err != nil {
		logger.Warn(ctx, "failed to remove discarded upload", "path", rel, "error", err.Error())
	}
}

// handleProcess re-triggers one stage for an item, restarting its attempt
// counter. Used by operators after fixing an environmental failure.
func (a *API) handleProcess(w http.ResponseWriter, r *http.Request) {
	var req pipeline.ProcessRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, fmt.Sprintf("invalid request: %v", err), http.StatusBadRequest)
		return
	}
	if req.ItemID == "" {
		http.Error(w, "item_id is required", http.StatusBadRequest)
		return
	}
	if req.Job == "" {
		http.Error(w, "job is required", http.StatusBadRequest)
		return
	}

	if _, err := a.store.GetItem(r.Context(), req.ItemID); err != nil {
		if errors.Is(err, pipeline.ErrNotFound) {
			http.Error(w, "item not found", http.StatusNotFound)
			return
		}
		http.Error(w, "failed to load item", http.StatusInternalServerError)
		return
	}

	if err := a.runner.Schedule(r.Context(), req.ItemID, req.Job); err != nil {
		logger.Error(r.Context(), "failed to schedule stage", "error", err.Error())
		http.Error(w, "failed to schedule stage", http.StatusInternalServerError)
		return
	}

	logger.Info(r.Context(), "stage scheduled", "item_id", req.ItemID, "job", req.Job)
	writeJSON(w, http.StatusAccepted, pipeline.ProcessResponse{RunID: ""})
}

// handleItemStatus returns the three lifecycles of one item.
func (a *API) handleItemStatus(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]
	status, err := a.store.Status(r.Context(), id)
	if err != nil {
		if errors.Is(err, pipeline.ErrNotFound) {
			http.Error(w, "item not found", http.StatusNotFound)
			return
		}
		http.Error(w, "failed to load status", http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, status)
}

// handleTaskProgress returns live progress for one stage run.
func (a *API) handleTaskProgress(w http.ResponseWriter, r *http.Request) {
	if a.monitor == nil {
		http.Error(w, "task monitoring not configured", http.StatusNotImplemented)
		return
	}
	vars := mux.Vars(r)
	info, err := a.monitor.Get(r.Context(), vars["id"], vars["job"])
	if err != nil {
		http.Error(w, "failed to load task progress", http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, info)
}

// handleRunStatus returns the durable DBOS state for one workflow run.
func (a *API) handleRunStatus(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]
	info, err := a.runtime.GetWorkflowStatus(r.Context(), id)
	if err != nil {
		http.Error(w, "run not found", http.StatusNotFound)
		return
	}
	writeJSON(w, http.StatusOK, info)
}

func (a *API) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func writeJSON(w http.ResponseWriter, code int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	json.NewEncoder(w).Encode(v)
}

func filenameStem(name string) string {
	return name[:len(name)-len(filepath.Ext(name))]
}

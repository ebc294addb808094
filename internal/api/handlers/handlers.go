package handlers

import (
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/gorilla/mux"
	"github.com/rs/zerolog"

	"github.com/avolkov/banksync/internal/api/middleware"
	"github.com/avolkov/banksync/internal/jobs"
)

// JobsHandler exposes the job trigger and inspection endpoints of the
// worker's admin surface. Triggers only enqueue; the pipeline work itself
// happens on the queue workers.
type JobsHandler struct {
	publisher jobs.Publisher
	store     jobs.Store
	log       zerolog.Logger
}

// NewJobsHandler creates a new jobs handler.
func NewJobsHandler(publisher jobs.Publisher, store jobs.Store, log zerolog.Logger) *JobsHandler {
	return &JobsHandler{
		publisher: publisher,
		store:     store,
		log:       log,
	}
}

// TriggerUserSync handles POST /api/v1/users/{id}/sync
func (h *JobsHandler) TriggerUserSync(w http.ResponseWriter, r *http.Request) {
	userID := mux.Vars(r)["id"]
	if userID == "" {
		middleware.WriteError(w, http.StatusBadRequest, "User ID is required")
		return
	}

	payload, err := json.Marshal(jobs.SyncUserPayload{UserID: userID})
	if err != nil {
		middleware.WriteError(w, http.StatusInternalServerError, "Failed to encode payload")
		return
	}

	job := &jobs.Job{Kind: jobs.KindSyncUser, Payload: payload}
	if err := h.publisher.Publish(r.Context(), job); err != nil {
		h.log.Error().Err(err).Str("user_id", userID).Msg("Failed to enqueue user sync")
		middleware.WriteError(w, http.StatusInternalServerError, "Failed to enqueue job")
		return
	}

	middleware.WriteJSON(w, http.StatusAccepted, map[string]string{
		"job_id": job.ID,
		"status": string(job.Status),
	})
}

// ProcessDocument handles POST /api/v1/documents
func (h *JobsHandler) ProcessDocument(w http.ResponseWriter, r *http.Request) {
	var req struct {
		TeamID      string `json:"team_id"`
		FilePath    string `json:"file_path"`
		ContentType string `json:"content_type"`
		Size        int64  `json:"size"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		middleware.WriteError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	if req.TeamID == "" || req.FilePath == "" {
		middleware.WriteError(w, http.StatusBadRequest, "team_id and file_path are required")
		return
	}

	payload, err := json.Marshal(jobs.ProcessDocumentPayload{
		TeamID:      req.TeamID,
		FilePath:    req.FilePath,
		ContentType: req.ContentType,
		Size:        req.Size,
	})
	if err != nil {
		middleware.WriteError(w, http.StatusInternalServerError, "Failed to encode payload")
		return
	}

	job := &jobs.Job{Kind: jobs.KindProcessDocument, Payload: payload}
	if err := h.publisher.Publish(r.Context(), job); err != nil {
		h.log.Error().Err(err).Str("file_path", req.FilePath).Msg("Failed to enqueue document processing")
		middleware.WriteError(w, http.StatusInternalServerError, "Failed to enqueue job")
		return
	}

	middleware.WriteJSON(w, http.StatusAccepted, map[string]string{
		"job_id": job.ID,
		"status": string(job.Status),
	})
}

// ReprocessDocument handles POST /api/v1/documents/{id}/reprocess
func (h *JobsHandler) ReprocessDocument(w http.ResponseWriter, r *http.Request) {
	inboxID := mux.Vars(r)["id"]
	if inboxID == "" {
		middleware.WriteError(w, http.StatusBadRequest, "Document ID is required")
		return
	}

	payload, err := json.Marshal(jobs.ReprocessDocumentPayload{InboxID: inboxID})
	if err != nil {
		middleware.WriteError(w, http.StatusInternalServerError, "Failed to encode payload")
		return
	}

	job := &jobs.Job{Kind: jobs.KindReprocessDocument, Payload: payload}
	if err := h.publisher.Publish(r.Context(), job); err != nil {
		h.log.Error().Err(err).Str("inbox_id", inboxID).Msg("Failed to enqueue document reprocessing")
		middleware.WriteError(w, http.StatusInternalServerError, "Failed to enqueue job")
		return
	}

	middleware.WriteJSON(w, http.StatusAccepted, map[string]string{
		"job_id": job.ID,
		"status": string(job.Status),
	})
}

// GetJob handles GET /api/v1/jobs/{id}
func (h *JobsHandler) GetJob(w http.ResponseWriter, r *http.Request) {
	jobID := mux.Vars(r)["id"]

	job, err := h.store.GetJob(r.Context(), jobID)
	if err != nil {
		middleware.WriteError(w, http.StatusNotFound, "Job not found")
		return
	}

	middleware.WriteJSON(w, http.StatusOK, job)
}

// ListJobs handles GET /api/v1/jobs
func (h *JobsHandler) ListJobs(w http.ResponseWriter, r *http.Request) {
	filter := jobs.Filter{
		Kind:   jobs.Kind(r.URL.Query().Get("kind")),
		Status: jobs.Status(r.URL.Query().Get("status")),
		Limit:  50,
	}
	if v := r.URL.Query().Get("limit"); v != "" {
		limit, err := strconv.Atoi(v)
		if err != nil || limit < 1 {
			middleware.WriteError(w, http.StatusBadRequest, "Invalid limit")
			return
		}
		filter.Limit = limit
	}
	if v := r.URL.Query().Get("offset"); v != "" {
		offset, err := strconv.Atoi(v)
		if err != nil || offset < 0 {
			middleware.WriteError(w, http.StatusBadRequest, "Invalid offset")
			return
		}
		filter.Offset = offset
	}

	list, err := h.store.ListJobs(r.Context(), filter)
	if err != nil {
		h.log.Error().Err(err).Msg("Failed to list jobs")
		middleware.WriteError(w, http.StatusInternalServerError, "Failed to list jobs")
		return
	}

	middleware.WriteJSON(w, http.StatusOK, map[string]interface{}{
		"jobs":  list,
		"count": len(list),
	})
}

package handlers

import (
	"errors"
	"net/http"
	"time"

	"bloom-backend/internal/apperr"
	"bloom-backend/internal/identity"
	"bloom-backend/internal/metrics"
	"bloom-backend/internal/services"

	"github.com/rs/zerolog/log"
)

// EdgeHandler serves the finalize and journal-summarize services
type EdgeHandler struct {
	postService    *services.PostService
	journalService *services.JournalService
}

// NewEdgeHandler creates a new edge handler
func NewEdgeHandler(postService *services.PostService, journalService *services.JournalService) *EdgeHandler {
	return &EdgeHandler{
		postService:    postService,
		journalService: journalService,
	}
}

// Finalize handles POST /finalize. Every failure is a 400 with {error}.
func (h *EdgeHandler) Finalize(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	start := time.Now()

	var req services.FinalizeRequest
	if err := decodeJSON(r, &req); err != nil {
		observeEdge("finalize", start, err)
		respondError(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	post, err := h.postService.Finalize(ctx, req)
	observeEdge("finalize", start, err)
	if err != nil {
		log.Error().
			Err(err).
			Str("user_id", identity.UserID(ctx)).
			Str("prompt_id", req.PromptID).
			Msg("Failed to finalize post")
		respondError(w, err.Error(), http.StatusBadRequest)
		return
	}

	respondJSON(w, http.StatusOK, post)
}

// SummarizeRequest is the body of POST /journal-summarize
type SummarizeRequest struct {
	Kind      string `json:"kind"`
	JournalID string `json:"journal_id"`
}

// SummarizeResponse is the reply of POST /journal-summarize
type SummarizeResponse struct {
	OK      bool   `json:"ok"`
	Summary string `json:"summary"`
}

const summarizeKind = "journal_summary"

// JournalSummarize handles POST /journal-summarize
func (h *EdgeHandler) JournalSummarize(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	start := time.Now()

	var req SummarizeRequest
	if err := decodeJSON(r, &req); err != nil {
		observeEdge("journal_summarize", start, err)
		respondError(w, "Invalid request body", http.StatusBadRequest)
		return
	}
	if req.Kind != summarizeKind || req.JournalID == "" {
		observeEdge("journal_summarize", start, errors.New("bad request"))
		respondError(w, "kind must be \"journal_summary\" and journal_id is required", http.StatusBadRequest)
		return
	}

	summary, err := h.journalService.Summarize(ctx, req.JournalID)
	observeEdge("journal_summarize", start, err)
	if err != nil {
		log.Error().
			Err(err).
			Str("user_id", identity.UserID(ctx)).
			Str("journal_id", req.JournalID).
			Msg("Failed to summarize journal")

		status := http.StatusInternalServerError
		switch {
		case errors.Is(err, apperr.ErrValidation):
			status = http.StatusBadRequest
		case errors.Is(err, apperr.ErrNotAuthenticated):
			status = http.StatusUnauthorized
		case services.IsNotFound(err):
			status = http.StatusNotFound
		}
		respondError(w, err.Error(), status)
		return
	}

	respondJSON(w, http.StatusOK, SummarizeResponse{OK: true, Summary: summary.Summary})
}

func observeEdge(service string, start time.Time, err error) {
	metrics.EdgeCallDuration.WithLabelValues(service, metrics.Result(err)).Observe(time.Since(start).Seconds())
}

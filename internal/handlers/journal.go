package handlers

import (
	"net/http"

	"bloom-backend/internal/identity"
	"bloom-backend/internal/services"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog/log"
)

// JournalHandler handles journal HTTP requests
type JournalHandler struct {
	journalService *services.JournalService
}

// NewJournalHandler creates a new journal handler
func NewJournalHandler(journalService *services.JournalService) *JournalHandler {
	return &JournalHandler{
		journalService: journalService,
	}
}

// Create handles POST /api/v1/journals
func (h *JournalHandler) Create(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var req services.JournalInput
	if err := decodeJSON(r, &req); err != nil {
		respondError(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	journal, err := h.journalService.Create(ctx, req)
	if err != nil {
		log.Error().Err(err).Str("user_id", identity.UserID(ctx)).Msg("Failed to create journal")
		respondServiceError(w, err, "Failed to create journal")
		return
	}

	respondJSON(w, http.StatusCreated, journal)
}

// Update handles PUT /api/v1/journals/{journal_id}
func (h *JournalHandler) Update(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	journalID := chi.URLParam(r, "journal_id")

	var req services.JournalInput
	if err := decodeJSON(r, &req); err != nil {
		respondError(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	journal, err := h.journalService.Update(ctx, journalID, req)
	if err != nil {
		log.Error().Err(err).Str("user_id", identity.UserID(ctx)).Str("journal_id", journalID).Msg("Failed to update journal")
		respondServiceError(w, err, "Failed to update journal")
		return
	}

	respondJSON(w, http.StatusOK, journal)
}

// Get handles GET /api/v1/journals/{journal_id}
func (h *JournalHandler) Get(w http.ResponseWriter, r *http.Request) {
	journal, err := h.journalService.Get(r.Context(), chi.URLParam(r, "journal_id"))
	if err != nil {
		respondServiceError(w, err, "Failed to get journal")
		return
	}
	respondJSON(w, http.StatusOK, journal)
}

// List handles GET /api/v1/journals
func (h *JournalHandler) List(w http.ResponseWriter, r *http.Request) {
	journals, err := h.journalService.List(r.Context())
	if err != nil {
		respondServiceError(w, err, "Failed to list journals")
		return
	}
	respondJSON(w, http.StatusOK, map[string]interface{}{"journals": journals})
}

// ListShared handles GET /api/v1/journals/shared
func (h *JournalHandler) ListShared(w http.ResponseWriter, r *http.Request) {
	journals, err := h.journalService.ListShared(r.Context())
	if err != nil {
		respondServiceError(w, err, "Failed to list shared journals")
		return
	}
	respondJSON(w, http.StatusOK, map[string]interface{}{"journals": journals})
}

// Summaries handles GET /api/v1/journals/{journal_id}/summaries
func (h *JournalHandler) Summaries(w http.ResponseWriter, r *http.Request) {
	summaries, err := h.journalService.Summaries(r.Context(), chi.URLParam(r, "journal_id"))
	if err != nil {
		respondServiceError(w, err, "Failed to list summaries")
		return
	}
	respondJSON(w, http.StatusOK, map[string]interface{}{"summaries": summaries})
}

package handlers

import (
	"net/http"

	"bloom-backend/internal/identity"
	"bloom-backend/internal/services"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog/log"
)

// CoupleRequestHandler handles couple request HTTP requests
type CoupleRequestHandler struct {
	pairingService *services.PairingService
}

// NewCoupleRequestHandler creates a new couple request handler
func NewCoupleRequestHandler(pairingService *services.PairingService) *CoupleRequestHandler {
	return &CoupleRequestHandler{
		pairingService: pairingService,
	}
}

// Send handles POST /api/v1/couple-requests
func (h *CoupleRequestHandler) Send(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	userID := identity.UserID(ctx)

	var req services.SendRequest
	if err := decodeJSON(r, &req); err != nil {
		respondError(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	created, err := h.pairingService.Send(ctx, req.RecipientHandle, req.Message)
	if err != nil {
		log.Error().
			Err(err).
			Str("user_id", userID).
			Str("recipient_handle", req.RecipientHandle).
			Msg("Failed to send couple request")
		respondServiceError(w, err, "Failed to send couple request")
		return
	}

	respondJSON(w, http.StatusCreated, created)
}

// List handles GET /api/v1/couple-requests
func (h *CoupleRequestHandler) List(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	views, err := h.pairingService.List(ctx)
	if err != nil {
		log.Error().Err(err).Str("user_id", identity.UserID(ctx)).Msg("Failed to list couple requests")
		respondServiceError(w, err, "Failed to list couple requests")
		return
	}

	respondJSON(w, http.StatusOK, views)
}

// Accept handles POST /api/v1/couple-requests/{request_id}/accept
func (h *CoupleRequestHandler) Accept(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := chi.URLParam(r, "request_id")

	coupleID, err := h.pairingService.Accept(ctx, requestID)
	if err != nil {
		h.logTransitionError(r, err, "accept")
		respondServiceError(w, err, "Failed to accept couple request")
		return
	}

	respondJSON(w, http.StatusOK, map[string]string{"couple_id": coupleID})
}

// Decline handles POST /api/v1/couple-requests/{request_id}/decline
func (h *CoupleRequestHandler) Decline(w http.ResponseWriter, r *http.Request) {
	if err := h.pairingService.Decline(r.Context(), chi.URLParam(r, "request_id")); err != nil {
		h.logTransitionError(r, err, "decline")
		respondServiceError(w, err, "Failed to decline couple request")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// Cancel handles POST /api/v1/couple-requests/{request_id}/cancel
func (h *CoupleRequestHandler) Cancel(w http.ResponseWriter, r *http.Request) {
	if err := h.pairingService.Cancel(r.Context(), chi.URLParam(r, "request_id")); err != nil {
		h.logTransitionError(r, err, "cancel")
		respondServiceError(w, err, "Failed to cancel couple request")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *CoupleRequestHandler) logTransitionError(r *http.Request, err error, action string) {
	log.Error().
		Err(err).
		Str("user_id", identity.UserID(r.Context())).
		Str("request_id", chi.URLParam(r, "request_id")).
		Str("action", action).
		Msg("Failed to update couple request")
}

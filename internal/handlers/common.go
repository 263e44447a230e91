package handlers

import (
	"encoding/json"
	"errors"
	"net/http"

	"bloom-backend/internal/apperr"
	"bloom-backend/internal/repository"
	"bloom-backend/internal/services"
)

// ErrorResponse represents an error response
type ErrorResponse struct {
	Error string `json:"error"`
}

// respondError sends an error response
func respondError(w http.ResponseWriter, message string, statusCode int) {
	respondJSON(w, statusCode, ErrorResponse{Error: message})
}

// respondJSON sends a JSON response
func respondJSON(w http.ResponseWriter, statusCode int, body interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	json.NewEncoder(w).Encode(body)
}

// decodeJSON decodes the request body into v
func decodeJSON(r *http.Request, v interface{}) error {
	return json.NewDecoder(r.Body).Decode(v)
}

// statusFor maps an error category to an HTTP status
func statusFor(err error) int {
	switch {
	case errors.Is(err, apperr.ErrNotAuthenticated):
		return http.StatusUnauthorized
	case errors.Is(err, apperr.ErrValidation):
		return http.StatusBadRequest
	case errors.Is(err, apperr.ErrNoCouple):
		return http.StatusNotFound
	case services.IsNotFound(err), errors.Is(err, repository.ErrRecipientNotFound):
		return http.StatusNotFound
	case errors.Is(err, repository.ErrNotRecipient), errors.Is(err, repository.ErrNotRequester):
		return http.StatusForbidden
	case errors.Is(err, repository.ErrSelfRequest),
		errors.Is(err, repository.ErrAlreadyPaired),
		errors.Is(err, repository.ErrRecipientPaired),
		errors.Is(err, repository.ErrRequesterPaired),
		errors.Is(err, repository.ErrDuplicatePending),
		errors.Is(err, repository.ErrNotPending),
		errors.Is(err, repository.ErrDuplicateDate),
		errors.Is(err, repository.ErrHandleTaken),
		errors.Is(err, repository.ErrEmailTaken):
		return http.StatusConflict
	}
	return http.StatusInternalServerError
}

// respondServiceError maps err to a status and sends it. Categorized errors
// keep their message; anything else is reported as fallback.
func respondServiceError(w http.ResponseWriter, err error, fallback string) {
	status := statusFor(err)
	message := err.Error()
	if status == http.StatusInternalServerError && !apperr.IsRemote(err) {
		message = fallback
	}
	respondError(w, message, status)
}

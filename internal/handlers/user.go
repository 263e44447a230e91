package handlers

import (
	"net/http"

	"bloom-backend/internal/identity"
	"bloom-backend/internal/models"
	"bloom-backend/internal/services"

	"github.com/rs/zerolog/log"
)

// UserHandler handles authentication, profile and device token requests
type UserHandler struct {
	userService *services.UserService
	pushService *services.PushService
}

// NewUserHandler creates a new user handler
func NewUserHandler(userService *services.UserService, pushService *services.PushService) *UserHandler {
	return &UserHandler{
		userService: userService,
		pushService: pushService,
	}
}

// SignUp handles POST /api/v1/auth/signup
func (h *UserHandler) SignUp(w http.ResponseWriter, r *http.Request) {
	var req services.AuthRequest
	if err := decodeJSON(r, &req); err != nil {
		respondError(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	resp, err := h.userService.SignUp(r.Context(), req)
	if err != nil {
		log.Error().Err(err).Msg("Failed to sign up")
		respondServiceError(w, err, "Failed to sign up")
		return
	}

	respondJSON(w, http.StatusCreated, resp)
}

// SignIn handles POST /api/v1/auth/signin
func (h *UserHandler) SignIn(w http.ResponseWriter, r *http.Request) {
	var req services.AuthRequest
	if err := decodeJSON(r, &req); err != nil {
		respondError(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	resp, err := h.userService.SignIn(r.Context(), req)
	if err != nil {
		log.Warn().Err(err).Msg("Failed to sign in")
		respondServiceError(w, err, "Failed to sign in")
		return
	}

	respondJSON(w, http.StatusOK, resp)
}

// Refresh handles POST /api/v1/auth/refresh
func (h *UserHandler) Refresh(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	resp, err := h.userService.Refresh(ctx)
	if err != nil {
		log.Error().Err(err).Str("user_id", identity.UserID(ctx)).Msg("Failed to refresh token")
		respondServiceError(w, err, "Failed to refresh token")
		return
	}

	respondJSON(w, http.StatusOK, resp)
}

// SignOut handles POST /api/v1/auth/signout
func (h *UserHandler) SignOut(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	if err := h.userService.SignOut(ctx); err != nil {
		log.Error().Err(err).Str("user_id", identity.UserID(ctx)).Msg("Failed to sign out")
		respondServiceError(w, err, "Failed to sign out")
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// GetProfile handles GET /api/v1/profile
func (h *UserHandler) GetProfile(w http.ResponseWriter, r *http.Request) {
	user, err := h.userService.GetUser(r.Context())
	if err != nil {
		respondServiceError(w, err, "Failed to get profile")
		return
	}
	respondJSON(w, http.StatusOK, user)
}

// UpdateProfile handles PUT /api/v1/profile
func (h *UserHandler) UpdateProfile(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var req models.Profile
	if err := decodeJSON(r, &req); err != nil {
		respondError(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	user, err := h.userService.UpdateProfile(ctx, req)
	if err != nil {
		log.Error().Err(err).Str("user_id", identity.UserID(ctx)).Msg("Failed to update profile")
		respondServiceError(w, err, "Failed to update profile")
		return
	}

	respondJSON(w, http.StatusOK, user)
}

// RegisterPushToken handles PUT /api/v1/push-tokens
func (h *UserHandler) RegisterPushToken(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var req services.RegisterTokenRequest
	if err := decodeJSON(r, &req); err != nil {
		respondError(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	token, err := h.pushService.RegisterToken(ctx, req.Token, req.Platform)
	if err != nil {
		log.Error().Err(err).Str("user_id", identity.UserID(ctx)).Msg("Failed to register push token")
		respondServiceError(w, err, "Failed to register push token")
		return
	}

	respondJSON(w, http.StatusOK, token)
}

package handlers

import (
	"net/http"
	"strconv"

	"bloom-backend/internal/identity"
	"bloom-backend/internal/services"

	"github.com/rs/zerolog/log"
)

// PostHandler handles prompt, photo upload and feed HTTP requests
type PostHandler struct {
	postService *services.PostService
}

// NewPostHandler creates a new post handler
func NewPostHandler(postService *services.PostService) *PostHandler {
	return &PostHandler{
		postService: postService,
	}
}

// CreatePrompt handles POST /api/v1/prompts
func (h *PostHandler) CreatePrompt(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var req services.CreatePromptRequest
	if err := decodeJSON(r, &req); err != nil {
		respondError(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	prompt, err := h.postService.CreatePrompt(ctx, req)
	if err != nil {
		log.Error().Err(err).Str("user_id", identity.UserID(ctx)).Msg("Failed to create prompt")
		respondServiceError(w, err, "Failed to create prompt")
		return
	}

	respondJSON(w, http.StatusCreated, prompt)
}

// GetPosts handles GET /api/v1/posts
func (h *PostHandler) GetPosts(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	// Parse query parameters
	limit := 50
	offset := 0

	if limitStr := r.URL.Query().Get("limit"); limitStr != "" {
		if parsedLimit, err := strconv.Atoi(limitStr); err == nil {
			limit = parsedLimit
		}
	}

	if offsetStr := r.URL.Query().Get("offset"); offsetStr != "" {
		if parsedOffset, err := strconv.Atoi(offsetStr); err == nil {
			offset = parsedOffset
		}
	}

	posts, total, err := h.postService.GetPosts(ctx, limit, offset)
	if err != nil {
		log.Error().
			Err(err).
			Str("user_id", identity.UserID(ctx)).
			Msg("Failed to get posts")
		respondServiceError(w, err, "Failed to get posts")
		return
	}

	response := map[string]interface{}{
		"posts": posts,
		"total": total,
	}
	respondJSON(w, http.StatusOK, response)
}

// UploadPhoto handles POST /api/v1/photos/upload
func (h *PostHandler) UploadPhoto(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	userID := identity.UserID(ctx)

	var req services.UploadRequest
	if err := decodeJSON(r, &req); err != nil {
		respondError(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	response, err := h.postService.GetPreSignedURL(ctx, req)
	if err != nil {
		log.Error().
			Err(err).
			Str("user_id", userID).
			Str("prompt_id", req.PromptID).
			Msg("Failed to generate pre-signed URL")
		respondServiceError(w, err, "Failed to generate upload URL")
		return
	}

	log.Info().
		Str("user_id", userID).
		Str("key", response.Key).
		Msg("Pre-signed URL generated")

	respondJSON(w, http.StatusOK, response)
}

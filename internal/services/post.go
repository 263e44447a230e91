package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"bloom-backend/internal/apperr"
	"bloom-backend/internal/identity"
	"bloom-backend/internal/models"
	"bloom-backend/internal/repository"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
)

const (
	uploadURLTTL     = 5 * time.Minute
	defaultFeedLimit = 50
	maxFeedLimit     = 100
)

// PostService handles photo prompts, raw photo uploads, finalization and the feed
type PostService struct {
	identity identity.Resolver
	couples  repository.CoupleRepository
	prompts  repository.PromptRepository
	posts    repository.PostRepository
	objects  ObjectStore
	maxSide  int
	now      func() time.Time
}

// NewPostService creates a new post service
func NewPostService(
	resolver identity.Resolver,
	couples repository.CoupleRepository,
	prompts repository.PromptRepository,
	posts repository.PostRepository,
	objects ObjectStore,
	maxImageSide int,
) *PostService {
	if maxImageSide <= 0 {
		maxImageSide = DefaultMaxImageSide
	}
	return &PostService{
		identity: resolver,
		couples:  couples,
		prompts:  prompts,
		posts:    posts,
		objects:  objects,
		maxSide:  maxImageSide,
		now:      time.Now,
	}
}

// CreatePromptRequest represents a request to schedule a prompt
type CreatePromptRequest struct {
	Kind        models.PromptKind `json:"kind"`
	ScheduledAt *time.Time        `json:"scheduled_at,omitempty"`
	ExpiresAt   *time.Time        `json:"expires_at,omitempty"`
}

// CreatePrompt schedules a prompt for the caller's couple
func (s *PostService) CreatePrompt(ctx context.Context, req CreatePromptRequest) (*models.Prompt, error) {
	if req.Kind != models.PromptQuestion && req.Kind != models.PromptPhoto {
		return nil, apperr.Validation("kind must be %q or %q", models.PromptQuestion, models.PromptPhoto)
	}
	callerID, coupleID, err := s.callerCouple(ctx)
	if err != nil {
		return nil, err
	}

	scheduledAt := s.now()
	if req.ScheduledAt != nil {
		scheduledAt = *req.ScheduledAt
	}
	if req.ExpiresAt != nil && !req.ExpiresAt.After(scheduledAt) {
		return nil, apperr.Validation("expires_at must be after scheduled_at")
	}

	prompt := &models.Prompt{
		CoupleID:    coupleID,
		Kind:        req.Kind,
		ScheduledAt: scheduledAt,
		ExpiresAt:   req.ExpiresAt,
		CreatedBy:   &callerID,
	}
	if err := s.prompts.Create(ctx, prompt); err != nil {
		return nil, apperr.Remote(err)
	}
	return prompt, nil
}

// UploadRequest represents a request to get a pre-signed URL for a raw photo
type UploadRequest struct {
	PromptID    string `json:"prompt_id"`
	Side        string `json:"side"` // front | back
	ContentType string `json:"content_type"`
}

// UploadResponse represents the response with pre-signed URL
type UploadResponse struct {
	UploadURL string `json:"upload_url"`
	Key       string `json:"key"`
	ExpiresIn int    `json:"expires_in"`
}

// GetPreSignedURL generates a pre-signed URL for uploading a raw photo of a prompt
func (s *PostService) GetPreSignedURL(ctx context.Context, req UploadRequest) (*UploadResponse, error) {
	if req.Side != "front" && req.Side != "back" {
		return nil, apperr.Validation("side must be \"front\" or \"back\"")
	}
	if req.ContentType == "" {
		req.ContentType = "image/jpeg"
	}
	if !strings.HasPrefix(req.ContentType, "image/") {
		return nil, apperr.Validation("content_type must be an image type")
	}

	callerID, coupleID, err := s.callerCouple(ctx)
	if err != nil {
		return nil, err
	}
	if _, err := s.couplePrompt(ctx, coupleID, req.PromptID); err != nil {
		return nil, err
	}

	// raw/{couple_id}/{prompt_id}/{side}-{user_id}-{nonce}
	key := fmt.Sprintf("%s%s-%s-%s", rawPrefix(coupleID, req.PromptID), req.Side, callerID, uuid.New().String())
	url, err := s.objects.PresignPut(ctx, key, req.ContentType, uploadURLTTL)
	if err != nil {
		return nil, apperr.Remote(err)
	}

	return &UploadResponse{
		UploadURL: url,
		Key:       key,
		ExpiresIn: int(uploadURLTTL.Seconds()),
	}, nil
}

func rawPrefix(coupleID, promptID string) string {
	return fmt.Sprintf("raw/%s/%s/", coupleID, promptID)
}

// FinalizeRequest represents a finalize call
type FinalizeRequest struct {
	PromptID string `json:"prompt_id"`
	IsLate   bool   `json:"is_late"`
	FrontKey string `json:"front_key"`
	BackKey  string `json:"back_key"`
}

// Finalize stitches the front and back photos of a prompt into the final
// image and records it as a post of the caller's couple.
func (s *PostService) Finalize(ctx context.Context, req FinalizeRequest) (post *models.Post, err error) {
	ctx, span := startSpan(ctx, "posts.Finalize")
	defer func() { endSpan(span, err) }()

	if req.PromptID == "" {
		return nil, apperr.Validation("prompt_id is required")
	}
	if req.FrontKey == "" || req.BackKey == "" {
		return nil, apperr.Validation("front_key and back_key are required")
	}

	callerID, coupleID, err := s.callerCouple(ctx)
	if err != nil {
		return nil, err
	}
	prompt, err := s.couplePrompt(ctx, coupleID, req.PromptID)
	if err != nil {
		return nil, err
	}
	prefix := rawPrefix(coupleID, prompt.ID)
	if !strings.HasPrefix(req.FrontKey, prefix) || !strings.HasPrefix(req.BackKey, prefix) {
		return nil, apperr.Validation("photo keys do not belong to this prompt")
	}

	front, err := s.objects.Get(ctx, req.FrontKey)
	if err != nil {
		return nil, apperr.Remote(err)
	}
	back, err := s.objects.Get(ctx, req.BackKey)
	if err != nil {
		return nil, apperr.Remote(err)
	}
	stitched, err := Stitch(front, back, s.maxSide)
	if err != nil {
		if errors.Is(err, apperr.ErrValidation) {
			return nil, err
		}
		return nil, apperr.Validation("%s", err.Error())
	}

	key := fmt.Sprintf("final/%s.jpg", uuid.New().String())
	if err := s.objects.Put(ctx, key, stitched, "image/jpeg"); err != nil {
		return nil, apperr.Remote(err)
	}

	post = &models.Post{
		CoupleID: coupleID,
		PromptID: prompt.ID,
		UserID:   callerID,
		ImageURL: s.objects.URL(key),
		IsLate:   req.IsLate,
	}
	if err := s.posts.Create(ctx, post); err != nil {
		return nil, apperr.Remote(err)
	}

	log.Info().
		Str("post_id", post.ID).
		Str("prompt_id", prompt.ID).
		Str("couple_id", coupleID).
		Bool("is_late", req.IsLate).
		Msg("Post finalized")
	return post, nil
}

// GetPosts retrieves the couple's posts with pagination
func (s *PostService) GetPosts(ctx context.Context, limit, offset int) ([]*models.Post, int, error) {
	_, coupleID, err := s.callerCouple(ctx)
	if err != nil {
		return nil, 0, err
	}

	// Validate limit
	if limit <= 0 {
		limit = defaultFeedLimit
	}
	if limit > maxFeedLimit {
		limit = maxFeedLimit
	}
	if offset < 0 {
		offset = 0
	}

	posts, total, err := s.posts.ListByCouple(ctx, coupleID, limit, offset)
	if err != nil {
		return nil, 0, apperr.Remote(err)
	}
	return posts, total, nil
}

func (s *PostService) callerCouple(ctx context.Context) (string, string, error) {
	callerID, err := requireCaller(ctx, s.identity)
	if err != nil {
		return "", "", err
	}
	coupleID, err := requireCouple(ctx, s.couples, callerID)
	if err != nil {
		return "", "", err
	}
	return callerID, coupleID, nil
}

// couplePrompt loads a prompt and hides prompts of other couples
func (s *PostService) couplePrompt(ctx context.Context, coupleID, promptID string) (*models.Prompt, error) {
	if promptID == "" {
		return nil, apperr.Validation("prompt_id is required")
	}
	prompt, err := s.prompts.GetByID(ctx, promptID)
	if err != nil {
		return nil, apperr.Remote(err)
	}
	if prompt.CoupleID != coupleID {
		return nil, apperr.Remote(repository.ErrNotFound)
	}
	return prompt, nil
}

// IsNotFound reports whether err means the row is missing or not visible
func IsNotFound(err error) bool {
	return errors.Is(err, repository.ErrNotFound) ||
		errors.Is(err, repository.ErrRequestNotFound) ||
		errors.Is(err, repository.ErrQuestionNotFound)
}

package postgres

import (
	"context"
	"errors"
	"fmt"

	"bloom-backend/internal/models"
	"bloom-backend/internal/repository"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// PromptRepository handles database operations for prompts
type PromptRepository struct {
	db *pgxpool.Pool
}

// NewPromptRepository creates a new prompt repository
func NewPromptRepository(db *pgxpool.Pool) *PromptRepository {
	return &PromptRepository{db: db}
}

// Create creates a new prompt
func (r *PromptRepository) Create(ctx context.Context, prompt *models.Prompt) error {
	if prompt.ID == "" {
		prompt.ID = uuid.New().String()
	}
	query := `
		INSERT INTO prompts (id, couple_id, kind, scheduled_at, expires_at, created_by)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING created_at
	`
	err := r.db.QueryRow(ctx, query,
		prompt.ID, prompt.CoupleID, string(prompt.Kind), prompt.ScheduledAt, prompt.ExpiresAt, prompt.CreatedBy,
	).Scan(&prompt.CreatedAt)
	if err != nil {
		return fmt.Errorf("failed to create prompt: %w", err)
	}
	return nil
}

// GetByID retrieves a prompt by ID
func (r *PromptRepository) GetByID(ctx context.Context, id string) (*models.Prompt, error) {
	if !isUUID(id) {
		return nil, repository.ErrNotFound
	}
	query := `
		SELECT id, couple_id, kind, scheduled_at, expires_at, created_by, created_at
		FROM prompts
		WHERE id = $1
	`
	var p models.Prompt
	var kind string
	err := r.db.QueryRow(ctx, query, id).Scan(
		&p.ID, &p.CoupleID, &kind, &p.ScheduledAt, &p.ExpiresAt, &p.CreatedBy, &p.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, repository.ErrNotFound
		}
		return nil, fmt.Errorf("failed to get prompt: %w", err)
	}
	p.Kind = models.PromptKind(kind)
	return &p, nil
}

// PostRepository handles database operations for posts
type PostRepository struct {
	db *pgxpool.Pool
}

// NewPostRepository creates a new post repository
func NewPostRepository(db *pgxpool.Pool) *PostRepository {
	return &PostRepository{db: db}
}

// Create creates a new post
func (r *PostRepository) Create(ctx context.Context, post *models.Post) error {
	if post.ID == "" {
		post.ID = uuid.New().String()
	}
	query := `
		INSERT INTO posts (id, couple_id, prompt_id, user_id, image_url, is_late)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING created_at
	`
	err := r.db.QueryRow(ctx, query,
		post.ID, post.CoupleID, post.PromptID, post.UserID, post.ImageURL, post.IsLate,
	).Scan(&post.CreatedAt)
	if err != nil {
		return fmt.Errorf("failed to create post: %w", err)
	}
	return nil
}

// ListByCouple retrieves posts by couple ID with pagination
func (r *PostRepository) ListByCouple(ctx context.Context, coupleID string, limit, offset int) ([]*models.Post, int, error) {
	// Get total count
	countQuery := `SELECT COUNT(*) FROM posts WHERE couple_id = $1`
	var total int
	err := r.db.QueryRow(ctx, countQuery, coupleID).Scan(&total)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to count posts: %w", err)
	}

	query := `
		SELECT id, couple_id, prompt_id, user_id, image_url, is_late, created_at
		FROM posts
		WHERE couple_id = $1
		ORDER BY created_at DESC
		LIMIT $2 OFFSET $3
	`
	rows, err := r.db.Query(ctx, query, coupleID, limit, offset)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to get posts: %w", err)
	}
	defer rows.Close()

	var posts []*models.Post
	for rows.Next() {
		var post models.Post
		err := rows.Scan(
			&post.ID, &post.CoupleID, &post.PromptID, &post.UserID,
			&post.ImageURL, &post.IsLate, &post.CreatedAt,
		)
		if err != nil {
			return nil, 0, fmt.Errorf("failed to scan post: %w", err)
		}
		posts = append(posts, &post)
	}

	if err := rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("error iterating posts: %w", err)
	}

	return posts, total, nil
}

// PushTokenRepository handles database operations for push tokens
type PushTokenRepository struct {
	db *pgxpool.Pool
}

// NewPushTokenRepository creates a new push token repository
func NewPushTokenRepository(db *pgxpool.Pool) *PushTokenRepository {
	return &PushTokenRepository{db: db}
}

// Upsert registers a device token for a user
func (r *PushTokenRepository) Upsert(ctx context.Context, token *models.PushToken) error {
	query := `
		INSERT INTO push_tokens (token, user_id, platform, updated_at)
		VALUES ($1, $2, $3, now())
		ON CONFLICT (token) DO UPDATE SET user_id = EXCLUDED.user_id, platform = EXCLUDED.platform, updated_at = now()
		RETURNING updated_at
	`
	if err := r.db.QueryRow(ctx, query, token.Token, token.UserID, token.Platform).Scan(&token.UpdatedAt); err != nil {
		return fmt.Errorf("failed to upsert push token: %w", err)
	}
	return nil
}

// ListByUser retrieves the device tokens of a user
func (r *PushTokenRepository) ListByUser(ctx context.Context, userID string) ([]*models.PushToken, error) {
	query := `
		SELECT user_id, token, platform, updated_at
		FROM push_tokens
		WHERE user_id = $1
		ORDER BY updated_at DESC
	`
	rows, err := r.db.Query(ctx, query, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to get push tokens: %w", err)
	}
	defer rows.Close()

	var tokens []*models.PushToken
	for rows.Next() {
		var t models.PushToken
		if err := rows.Scan(&t.UserID, &t.Token, &t.Platform, &t.UpdatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan push token: %w", err)
		}
		tokens = append(tokens, &t)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating push tokens: %w", err)
	}
	return tokens, nil
}

// Delete removes a device token
func (r *PushTokenRepository) Delete(ctx context.Context, token string) error {
	if _, err := r.db.Exec(ctx, `DELETE FROM push_tokens WHERE token = $1`, token); err != nil {
		return fmt.Errorf("failed to delete push token: %w", err)
	}
	return nil
}

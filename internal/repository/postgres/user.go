package postgres

import (
	"context"
	"errors"
	"fmt"

	"bloom-backend/internal/models"
	"bloom-backend/internal/repository"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

const userColumns = `id, email, password_hash, handle, display_name, avatar_url, token_version, created_at`

// UserRepository handles database operations for users
type UserRepository struct {
	db *pgxpool.Pool
}

// NewUserRepository creates a new user repository
func NewUserRepository(db *pgxpool.Pool) *UserRepository {
	return &UserRepository{db: db}
}

func scanUser(row pgx.Row) (*models.User, error) {
	var user models.User
	err := row.Scan(
		&user.ID, &user.Email, &user.PasswordHash, &user.Handle,
		&user.DisplayName, &user.AvatarURL, &user.TokenVersion, &user.CreatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &user, nil
}

// Create creates a new user
func (r *UserRepository) Create(ctx context.Context, user *models.User) error {
	query := `
		INSERT INTO users (id, email, password_hash, handle, display_name, avatar_url, token_version, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	`
	_, err := r.db.Exec(ctx, query,
		user.ID, user.Email, user.PasswordHash, user.Handle,
		user.DisplayName, user.AvatarURL, user.TokenVersion, user.CreatedAt,
	)
	if err != nil {
		switch {
		case constraintViolated(err, "users_email_key"):
			return repository.ErrEmailTaken
		case constraintViolated(err, "users_handle_key"):
			return repository.ErrHandleTaken
		}
		return fmt.Errorf("failed to create user: %w", err)
	}
	return nil
}

// GetByID retrieves a user by ID
func (r *UserRepository) GetByID(ctx context.Context, id string) (*models.User, error) {
	return r.getOne(ctx, `SELECT `+userColumns+` FROM users WHERE id = $1`, id)
}

// GetByEmail retrieves a user by email, case-insensitively
func (r *UserRepository) GetByEmail(ctx context.Context, email string) (*models.User, error) {
	return r.getOne(ctx, `SELECT `+userColumns+` FROM users WHERE lower(email) = lower($1)`, email)
}

// GetByHandle retrieves a user by handle
func (r *UserRepository) GetByHandle(ctx context.Context, handle string) (*models.User, error) {
	return r.getOne(ctx, `SELECT `+userColumns+` FROM users WHERE handle = $1`, handle)
}

func (r *UserRepository) getOne(ctx context.Context, query string, arg any) (*models.User, error) {
	user, err := scanUser(r.db.QueryRow(ctx, query, arg))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, repository.ErrNotFound
		}
		return nil, fmt.Errorf("failed to get user: %w", err)
	}
	return user, nil
}

// HandleExists checks if a handle is already taken
func (r *UserRepository) HandleExists(ctx context.Context, handle string) (bool, error) {
	query := `SELECT EXISTS(SELECT 1 FROM users WHERE handle = $1)`
	var exists bool
	err := r.db.QueryRow(ctx, query, handle).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("failed to check handle existence: %w", err)
	}
	return exists, nil
}

// UpsertProfile updates the profile fields that are set and returns the row
func (r *UserRepository) UpsertProfile(ctx context.Context, userID string, profile models.Profile) (*models.User, error) {
	query := `
		UPDATE users SET
			handle = COALESCE($2, handle),
			display_name = COALESCE($3, display_name),
			avatar_url = COALESCE($4, avatar_url)
		WHERE id = $1
		RETURNING ` + userColumns
	user, err := scanUser(r.db.QueryRow(ctx, query, userID, profile.Handle, profile.DisplayName, profile.AvatarURL))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, repository.ErrNotFound
		}
		if constraintViolated(err, "users_handle_key") {
			return nil, repository.ErrHandleTaken
		}
		return nil, fmt.Errorf("failed to upsert profile: %w", err)
	}
	return user, nil
}

// BumpTokenVersion invalidates every token issued so far for the user
func (r *UserRepository) BumpTokenVersion(ctx context.Context, userID string) (int, error) {
	query := `UPDATE users SET token_version = token_version + 1 WHERE id = $1 RETURNING token_version`
	var version int
	err := r.db.QueryRow(ctx, query, userID).Scan(&version)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return 0, repository.ErrNotFound
		}
		return 0, fmt.Errorf("failed to bump token version: %w", err)
	}
	return version, nil
}

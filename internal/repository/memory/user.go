package memory

import (
	"context"
	"strings"

	"bloom-backend/internal/models"
	"bloom-backend/internal/repository"
)

type userRepository struct {
	db *DB
}

func (r *userRepository) Create(ctx context.Context, user *models.User) error {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()

	for _, u := range r.db.users {
		if strings.EqualFold(u.Email, user.Email) && user.Email != "" {
			return repository.ErrEmailTaken
		}
		if u.Handle == user.Handle {
			return repository.ErrHandleTaken
		}
	}
	cp := *user
	r.db.users[user.ID] = &cp
	return nil
}

func (r *userRepository) GetByID(ctx context.Context, id string) (*models.User, error) {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()

	u, ok := r.db.users[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	cp := *u
	return &cp, nil
}

func (r *userRepository) GetByEmail(ctx context.Context, email string) (*models.User, error) {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()

	for _, u := range r.db.users {
		if strings.EqualFold(u.Email, email) {
			cp := *u
			return &cp, nil
		}
	}
	return nil, repository.ErrNotFound
}

func (r *userRepository) GetByHandle(ctx context.Context, handle string) (*models.User, error) {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()

	if u := r.db.userByHandle(handle); u != nil {
		cp := *u
		return &cp, nil
	}
	return nil, repository.ErrNotFound
}

func (r *userRepository) HandleExists(ctx context.Context, handle string) (bool, error) {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()

	return r.db.userByHandle(handle) != nil, nil
}

func (r *userRepository) UpsertProfile(ctx context.Context, userID string, profile models.Profile) (*models.User, error) {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()

	u, ok := r.db.users[userID]
	if !ok {
		return nil, repository.ErrNotFound
	}
	if profile.Handle != nil {
		if other := r.db.userByHandle(*profile.Handle); other != nil && other.ID != userID {
			return nil, repository.ErrHandleTaken
		}
		u.Handle = *profile.Handle
	}
	if profile.DisplayName != nil {
		u.DisplayName = *profile.DisplayName
	}
	if profile.AvatarURL != nil {
		u.AvatarURL = cloneString(profile.AvatarURL)
	}
	cp := *u
	return &cp, nil
}

func (r *userRepository) BumpTokenVersion(ctx context.Context, userID string) (int, error) {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()

	u, ok := r.db.users[userID]
	if !ok {
		return 0, repository.ErrNotFound
	}
	u.TokenVersion++
	return u.TokenVersion, nil
}

// userByHandle looks a user up by handle. Caller holds db.mu.
func (db *DB) userByHandle(handle string) *models.User {
	for _, u := range db.users {
		if u.Handle == handle {
			return u
		}
	}
	return nil
}

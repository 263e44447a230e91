package services

import (
	"context"
	"errors"
	"testing"
	"time"

	"bloom-backend/internal/apperr"
	"bloom-backend/internal/identity"
	"bloom-backend/internal/models"
	"bloom-backend/internal/repository"
	"bloom-backend/internal/repository/memory"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// failingProfiles rejects every profile upsert
type failingProfiles struct {
	repository.UserRepository
}

func (failingProfiles) UpsertProfile(ctx context.Context, userID string, profile models.Profile) (*models.User, error) {
	return nil, errors.New("profiles table unavailable")
}

func newUserService(users repository.UserRepository, broker *identity.Broker) *UserService {
	return NewUserService(users, broker, "test-secret", time.Hour)
}

func TestSignUpAndSignIn(t *testing.T) {
	ctx := context.Background()
	broker := identity.NewBroker()
	svc := newUserService(memory.NewStore().Users, broker)

	resp, err := svc.SignUp(ctx, AuthRequest{Email: " Alice@Example.com ", Password: "correct-horse"})
	require.NoError(t, err)
	assert.Equal(t, "alice@example.com", resp.User.Email)
	assert.Equal(t, "alice", resp.User.DisplayName)
	assert.Len(t, resp.User.Handle, codeLength)
	assert.NotEmpty(t, resp.Token)

	events, unsubscribe := broker.Subscribe(resp.User.ID)
	defer unsubscribe()

	signedIn, err := svc.SignIn(ctx, AuthRequest{Email: "alice@example.com", Password: "correct-horse"})
	require.NoError(t, err)
	assert.Equal(t, resp.User.ID, signedIn.User.ID)

	select {
	case ev := <-events:
		assert.Equal(t, identity.SignedIn, ev.Type)
	case <-time.After(time.Second):
		t.Fatal("expected a signed_in event")
	}

	userID, err := svc.ValidateJWT(ctx, signedIn.Token)
	require.NoError(t, err)
	assert.Equal(t, resp.User.ID, userID)
}

func TestSignInRejectsBadCredentials(t *testing.T) {
	ctx := context.Background()
	svc := newUserService(memory.NewStore().Users, nil)

	_, err := svc.SignUp(ctx, AuthRequest{Email: "bob@example.com", Password: "password1"})
	require.NoError(t, err)

	_, err = svc.SignIn(ctx, AuthRequest{Email: "bob@example.com", Password: "password2"})
	assert.ErrorIs(t, err, ErrInvalidCredentials)
	assert.ErrorIs(t, err, apperr.ErrNotAuthenticated)

	_, err = svc.SignIn(ctx, AuthRequest{Email: "nobody@example.com", Password: "password1"})
	assert.ErrorIs(t, err, ErrInvalidCredentials)

	_, err = svc.SignIn(ctx, AuthRequest{Email: "not-an-email", Password: "password1"})
	assert.ErrorIs(t, err, apperr.ErrValidation)

	_, err = svc.SignUp(ctx, AuthRequest{Email: "carol@example.com", Password: "short"})
	assert.ErrorIs(t, err, apperr.ErrValidation)
}

func TestSignUpDuplicateEmail(t *testing.T) {
	ctx := context.Background()
	svc := newUserService(memory.NewStore().Users, nil)

	_, err := svc.SignUp(ctx, AuthRequest{Email: "dan@example.com", Password: "password1"})
	require.NoError(t, err)
	_, err = svc.SignUp(ctx, AuthRequest{Email: "DAN@example.com", Password: "password1"})
	assert.ErrorIs(t, err, repository.ErrEmailTaken)
	assert.True(t, apperr.IsRemote(err))
}

func TestProfileUpsertIsBestEffort(t *testing.T) {
	ctx := context.Background()
	store := memory.NewStore()
	svc := newUserService(failingProfiles{UserRepository: store.Users}, nil)

	name := "Erin"
	resp, err := svc.SignUp(ctx, AuthRequest{Email: "erin@example.com", Password: "password1", DisplayName: &name})
	require.NoError(t, err)
	assert.NotEmpty(t, resp.Token)
	assert.Equal(t, "erin", resp.User.DisplayName)
}

func TestProfileFieldsAppliedOnSignIn(t *testing.T) {
	ctx := context.Background()
	svc := newUserService(memory.NewStore().Users, nil)

	handle := "ERIN01"
	resp, err := svc.SignUp(ctx, AuthRequest{Email: "erin@example.com", Password: "password1", Handle: &handle})
	require.NoError(t, err)
	assert.Equal(t, "ERIN01", resp.User.Handle)
}

func TestSignOutRevokesTokens(t *testing.T) {
	ctx := context.Background()
	broker := identity.NewBroker()
	svc := newUserService(memory.NewStore().Users, broker)

	resp, err := svc.SignUp(ctx, AuthRequest{Email: "fay@example.com", Password: "password1"})
	require.NoError(t, err)

	events, unsubscribe := broker.Subscribe(resp.User.ID)
	defer unsubscribe()

	authed := identity.WithUserID(ctx, resp.User.ID)
	require.NoError(t, svc.SignOut(authed))

	ev := <-events
	assert.Equal(t, identity.SignedOut, ev.Type)

	_, err = svc.ValidateJWT(ctx, resp.Token)
	assert.ErrorIs(t, err, ErrTokenRevoked)

	again, err := svc.SignIn(ctx, AuthRequest{Email: "fay@example.com", Password: "password1"})
	require.NoError(t, err)
	_, err = svc.ValidateJWT(ctx, again.Token)
	assert.NoError(t, err)

	assert.ErrorIs(t, svc.SignOut(ctx), apperr.ErrNotAuthenticated)
}

func TestRefreshPublishesEvent(t *testing.T) {
	ctx := context.Background()
	broker := identity.NewBroker()
	svc := newUserService(memory.NewStore().Users, broker)

	resp, err := svc.SignUp(ctx, AuthRequest{Email: "gus@example.com", Password: "password1"})
	require.NoError(t, err)

	events, unsubscribe := broker.Subscribe(resp.User.ID)
	defer unsubscribe()

	refreshed, err := svc.Refresh(identity.WithUserID(ctx, resp.User.ID))
	require.NoError(t, err)
	assert.NotEmpty(t, refreshed.Token)
	assert.Equal(t, identity.TokenRefreshed, (<-events).Type)
}

func TestValidateJWTExpired(t *testing.T) {
	ctx := context.Background()
	svc := newUserService(memory.NewStore().Users, nil)

	resp, err := svc.SignUp(ctx, AuthRequest{Email: "hal@example.com", Password: "password1"})
	require.NoError(t, err)

	svc.now = func() time.Time { return time.Now().Add(2 * time.Hour) }
	_, err = svc.ValidateJWT(ctx, resp.Token)
	assert.Error(t, err)

	other := NewUserService(memory.NewStore().Users, nil, "other-secret", time.Hour)
	_, err = other.ValidateJWT(ctx, resp.Token)
	assert.Error(t, err)
}

func TestUpdateProfile(t *testing.T) {
	ctx := context.Background()
	svc := newUserService(memory.NewStore().Users, nil)

	resp, err := svc.SignUp(ctx, AuthRequest{Email: "ivy@example.com", Password: "password1"})
	require.NoError(t, err)
	authed := identity.WithUserID(ctx, resp.User.ID)

	blank := "  "
	_, err = svc.UpdateProfile(authed, models.Profile{Handle: &blank})
	assert.ErrorIs(t, err, apperr.ErrValidation)

	name := "Ivy"
	user, err := svc.UpdateProfile(authed, models.Profile{DisplayName: &name})
	require.NoError(t, err)
	assert.Equal(t, "Ivy", user.DisplayName)
}

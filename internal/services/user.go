package services

import (
	"context"
	"crypto/rand"
	"errors"
	"fmt"
	"math/big"
	"strings"
	"time"

	"bloom-backend/internal/apperr"
	"bloom-backend/internal/identity"
	"bloom-backend/internal/models"
	"bloom-backend/internal/repository"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
	"golang.org/x/crypto/bcrypt"
)

const (
	codeLength        = 6
	codeChars         = "ABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"
	minPasswordLength = 8
)

// ErrInvalidCredentials is returned by SignIn for an unknown email or a wrong password
var ErrInvalidCredentials = fmt.Errorf("%w: invalid email or password", apperr.ErrNotAuthenticated)

// ErrTokenRevoked is returned for a token issued before the last sign-out
var ErrTokenRevoked = errors.New("token has been revoked")

// UserService handles authentication and profiles
type UserService struct {
	userRepo  repository.UserRepository
	broker    *identity.Broker
	jwtSecret string
	tokenTTL  time.Duration
	now       func() time.Time
}

// NewUserService creates a new user service
func NewUserService(userRepo repository.UserRepository, broker *identity.Broker, jwtSecret string, tokenTTL time.Duration) *UserService {
	if tokenTTL <= 0 {
		tokenTTL = 30 * 24 * time.Hour
	}
	return &UserService{
		userRepo:  userRepo,
		broker:    broker,
		jwtSecret: jwtSecret,
		tokenTTL:  tokenTTL,
		now:       time.Now,
	}
}

// AuthRequest represents a sign-up or sign-in request. Profile fields are optional.
type AuthRequest struct {
	Email       string  `json:"email"`
	Password    string  `json:"password"`
	Handle      *string `json:"handle,omitempty"`
	DisplayName *string `json:"display_name,omitempty"`
	AvatarURL   *string `json:"avatar_url,omitempty"`
}

func (r *AuthRequest) profile() models.Profile {
	return models.Profile{Handle: r.Handle, DisplayName: r.DisplayName, AvatarURL: r.AvatarURL}
}

// AuthResponse is returned after a successful sign-up, sign-in or refresh
type AuthResponse struct {
	User      *models.User `json:"user"`
	Token     string       `json:"token"`
	ExpiresAt time.Time    `json:"expires_at"`
}

// GenerateUniqueCode generates an unused 6-character handle
func (s *UserService) GenerateUniqueCode(ctx context.Context) (string, error) {
	maxAttempts := 10
	for i := 0; i < maxAttempts; i++ {
		code := generateCode()
		exists, err := s.userRepo.HandleExists(ctx, code)
		if err != nil {
			return "", fmt.Errorf("failed to check handle existence: %w", err)
		}
		if !exists {
			return code, nil
		}
	}
	return "", fmt.Errorf("failed to generate unique handle after %d attempts", maxAttempts)
}

// generateCode generates a random 6-character code
func generateCode() string {
	code := make([]byte, codeLength)
	for i := range code {
		n, _ := rand.Int(rand.Reader, big.NewInt(int64(len(codeChars))))
		code[i] = codeChars[n.Int64()]
	}
	return string(code)
}

// GenerateJWT generates a JWT for user bound to its current token version
func (s *UserService) GenerateJWT(user *models.User) (string, time.Time, error) {
	now := s.now()
	expiresAt := now.Add(s.tokenTTL)
	claims := jwt.MapClaims{
		"user_id": user.ID,
		"ver":     user.TokenVersion,
		"exp":     expiresAt.Unix(),
		"iat":     now.Unix(),
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	tokenString, err := token.SignedString([]byte(s.jwtSecret))
	if err != nil {
		return "", time.Time{}, fmt.Errorf("failed to sign token: %w", err)
	}

	return tokenString, expiresAt, nil
}

// ValidateJWT validates a token and returns the user ID. Tokens issued
// before the user's last sign-out are rejected.
func (s *UserService) ValidateJWT(ctx context.Context, tokenString string) (string, error) {
	token, err := jwt.Parse(tokenString, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return []byte(s.jwtSecret), nil
	}, jwt.WithTimeFunc(s.now))

	if err != nil {
		return "", fmt.Errorf("failed to parse token: %w", err)
	}

	if !token.Valid {
		return "", fmt.Errorf("invalid token")
	}

	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok {
		return "", fmt.Errorf("invalid token claims")
	}

	userID, ok := claims["user_id"].(string)
	if !ok {
		return "", fmt.Errorf("user_id not found in token")
	}
	ver, ok := claims["ver"].(float64)
	if !ok {
		return "", fmt.Errorf("ver not found in token")
	}

	user, err := s.userRepo.GetByID(ctx, userID)
	if err != nil {
		return "", fmt.Errorf("failed to load token user: %w", err)
	}
	if int(ver) != user.TokenVersion {
		return "", ErrTokenRevoked
	}

	return userID, nil
}

func validateCredentials(req *AuthRequest) error {
	req.Email = strings.ToLower(strings.TrimSpace(req.Email))
	if req.Email == "" || !strings.Contains(req.Email, "@") {
		return apperr.Validation("a valid email is required")
	}
	if len(req.Password) < minPasswordLength {
		return apperr.Validation("password must be at least %d characters", minPasswordLength)
	}
	return nil
}

// SignUp creates a user with a generated handle and signs it in
func (s *UserService) SignUp(ctx context.Context, req AuthRequest) (*AuthResponse, error) {
	if err := validateCredentials(&req); err != nil {
		return nil, err
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
	if err != nil {
		return nil, fmt.Errorf("failed to hash password: %w", err)
	}

	handle, err := s.GenerateUniqueCode(ctx)
	if err != nil {
		return nil, apperr.Remote(err)
	}

	user := &models.User{
		ID:           uuid.New().String(),
		Email:        req.Email,
		PasswordHash: string(hash),
		Handle:       handle,
		DisplayName:  strings.SplitN(req.Email, "@", 2)[0],
		CreatedAt:    s.now(),
	}
	if err := s.userRepo.Create(ctx, user); err != nil {
		return nil, apperr.Remote(err)
	}

	log.Info().Str("user_id", user.ID).Str("handle", user.Handle).Msg("User signed up")
	return s.completeSignIn(ctx, user, req.profile())
}

// SignIn verifies credentials and issues a token
func (s *UserService) SignIn(ctx context.Context, req AuthRequest) (*AuthResponse, error) {
	if err := validateCredentials(&req); err != nil {
		return nil, err
	}

	user, err := s.userRepo.GetByEmail(ctx, req.Email)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrInvalidCredentials
		}
		return nil, apperr.Remote(err)
	}
	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(req.Password)); err != nil {
		return nil, ErrInvalidCredentials
	}

	log.Info().Str("user_id", user.ID).Msg("User signed in")
	return s.completeSignIn(ctx, user, req.profile())
}

// completeSignIn applies the optional profile fields best-effort, issues a
// token and publishes signed_in. A failed profile upsert never fails sign-in.
func (s *UserService) completeSignIn(ctx context.Context, user *models.User, profile models.Profile) (*AuthResponse, error) {
	if profile.Handle != nil || profile.DisplayName != nil || profile.AvatarURL != nil {
		updated, err := s.userRepo.UpsertProfile(ctx, user.ID, profile)
		if err != nil {
			log.Warn().Err(err).Str("user_id", user.ID).Msg("Profile upsert after sign-in failed")
		} else {
			user = updated
		}
	}

	resp, err := s.issue(user)
	if err != nil {
		return nil, err
	}
	s.publish(identity.SignedIn, user.ID)
	return resp, nil
}

// Refresh issues a new token for the caller
func (s *UserService) Refresh(ctx context.Context) (*AuthResponse, error) {
	userID := identity.UserID(ctx)
	if userID == "" {
		return nil, apperr.ErrNotAuthenticated
	}
	user, err := s.userRepo.GetByID(ctx, userID)
	if err != nil {
		return nil, apperr.Remote(err)
	}
	resp, err := s.issue(user)
	if err != nil {
		return nil, err
	}
	s.publish(identity.TokenRefreshed, user.ID)
	return resp, nil
}

// SignOut revokes every token issued to the caller so far
func (s *UserService) SignOut(ctx context.Context) error {
	userID := identity.UserID(ctx)
	if userID == "" {
		return apperr.ErrNotAuthenticated
	}
	if _, err := s.userRepo.BumpTokenVersion(ctx, userID); err != nil {
		return apperr.Remote(err)
	}
	log.Info().Str("user_id", userID).Msg("User signed out")
	s.publish(identity.SignedOut, userID)
	return nil
}

// GetUser returns the caller's user row
func (s *UserService) GetUser(ctx context.Context) (*models.User, error) {
	userID := identity.UserID(ctx)
	if userID == "" {
		return nil, apperr.ErrNotAuthenticated
	}
	user, err := s.userRepo.GetByID(ctx, userID)
	if err != nil {
		return nil, apperr.Remote(err)
	}
	return user, nil
}

// UpdateProfile updates the caller's handle, display name or avatar
func (s *UserService) UpdateProfile(ctx context.Context, profile models.Profile) (*models.User, error) {
	userID := identity.UserID(ctx)
	if userID == "" {
		return nil, apperr.ErrNotAuthenticated
	}
	if profile.Handle != nil {
		h := strings.TrimSpace(*profile.Handle)
		if h == "" {
			return nil, apperr.Validation("handle must not be empty")
		}
		profile.Handle = &h
	}
	user, err := s.userRepo.UpsertProfile(ctx, userID, profile)
	if err != nil {
		return nil, apperr.Remote(err)
	}
	return user, nil
}

func (s *UserService) issue(user *models.User) (*AuthResponse, error) {
	token, expiresAt, err := s.GenerateJWT(user)
	if err != nil {
		return nil, fmt.Errorf("failed to generate token: %w", err)
	}
	return &AuthResponse{User: user, Token: token, ExpiresAt: expiresAt}, nil
}

func (s *UserService) publish(t identity.EventType, userID string) {
	if s.broker == nil {
		return
	}
	s.broker.Publish(identity.Event{Type: t, UserID: userID, At: s.now()})
}

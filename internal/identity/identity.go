package identity

import "context"

type contextKey string

const userIDKey contextKey = "user_id"

// Identity is the authenticated caller
type Identity struct {
	UserID string
}

// Resolver resolves the caller of an operation. A nil Identity with a nil
// error means nobody is signed in.
type Resolver interface {
	CurrentUser(ctx context.Context) (*Identity, error)
}

// WithUserID returns a copy of ctx carrying the authenticated user ID
func WithUserID(ctx context.Context, userID string) context.Context {
	return context.WithValue(ctx, userIDKey, userID)
}

// UserID extracts the user ID from ctx, or "" when absent
func UserID(ctx context.Context) string {
	userID, ok := ctx.Value(userIDKey).(string)
	if !ok {
		return ""
	}
	return userID
}

// ContextResolver resolves the caller from the request context
type ContextResolver struct{}

// CurrentUser implements Resolver
func (ContextResolver) CurrentUser(ctx context.Context) (*Identity, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	userID := UserID(ctx)
	if userID == "" {
		return nil, nil
	}
	return &Identity{UserID: userID}, nil
}

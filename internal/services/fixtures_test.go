package services

import (
	"context"
	"sync"
	"testing"

	"bloom-backend/internal/identity"
	"bloom-backend/internal/models"
	"bloom-backend/internal/repository"
	"bloom-backend/internal/repository/memory"

	"github.com/stretchr/testify/require"
)

// countingResolver resolves from the context and counts calls
type countingResolver struct {
	mu    sync.Mutex
	calls int
	err   error
}

func (r *countingResolver) CurrentUser(ctx context.Context) (*identity.Identity, error) {
	r.mu.Lock()
	r.calls++
	r.mu.Unlock()
	if r.err != nil {
		return nil, r.err
	}
	return identity.ContextResolver{}.CurrentUser(ctx)
}

func (r *countingResolver) Calls() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.calls
}

// recordingNotifier keeps every notification it receives
type recordingNotifier struct {
	mu   sync.Mutex
	sent []Notification
	err  error
}

func (n *recordingNotifier) Notify(ctx context.Context, note Notification) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.sent = append(n.sent, note)
	return n.err
}

func (n *recordingNotifier) Sent() []Notification {
	n.mu.Lock()
	defer n.mu.Unlock()
	return append([]Notification(nil), n.sent...)
}

type fixture struct {
	db       *memory.DB
	store    *repository.Store
	resolver *countingResolver
	notifier *recordingNotifier
}

func newFixture(t *testing.T, handles ...string) *fixture {
	t.Helper()
	db := memory.New()
	f := &fixture{
		db:       db,
		store:    db.Store(),
		resolver: &countingResolver{},
		notifier: &recordingNotifier{},
	}
	for _, h := range handles {
		require.NoError(t, f.store.Users.Create(context.Background(), &models.User{
			ID:     userID(h),
			Email:  h + "@example.com",
			Handle: h,
		}))
	}
	return f
}

func userID(handle string) string {
	return "user-" + handle
}

func as(handle string) context.Context {
	return identity.WithUserID(context.Background(), userID(handle))
}

func (f *fixture) pairing() *PairingService {
	return NewPairingService(f.resolver, f.store.CoupleRequests, f.notifier)
}

// pair makes a and b a couple and returns the couple ID
func (f *fixture) pair(t *testing.T, a, b string) string {
	t.Helper()
	req, err := f.store.CoupleRequests.Send(context.Background(), userID(a), b, nil)
	require.NoError(t, err)
	coupleID, err := f.store.CoupleRequests.Accept(context.Background(), userID(b), req.ID)
	require.NoError(t, err)
	return coupleID
}

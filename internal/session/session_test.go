package session

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"bloom-backend/internal/apperr"
	"bloom-backend/internal/identity"
	"bloom-backend/internal/models"
	"bloom-backend/internal/services"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeRequests struct {
	mu     sync.Mutex
	calls  int
	caller string
	err    error
}

func (f *fakeRequests) List(ctx context.Context) (*services.CoupleRequestViews, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	f.caller = identity.UserID(ctx)
	if f.err != nil {
		return nil, f.err
	}
	return services.Partition(f.caller, nil), nil
}

type fakeQuestions struct {
	question *models.Question
	err      error
}

func (f *fakeQuestions) ResolveToday(ctx context.Context) (*models.Question, error) {
	return f.question, f.err
}

func (f *fakeQuestions) LoadAnswers(ctx context.Context, questionID string) (*services.AnswerView, error) {
	return &services.AnswerView{QuestionID: questionID}, nil
}

func TestRefreshBuildsSnapshot(t *testing.T) {
	requests := &fakeRequests{}
	questions := &fakeQuestions{question: &models.Question{ID: "q1", Text: "Hi?"}}

	var got []Snapshot
	s := New("u1", requests, questions, func(snap Snapshot) { got = append(got, snap) })

	require.NoError(t, s.Refresh(context.Background()))
	assert.Equal(t, "u1", requests.caller)

	snap := s.Snapshot()
	assert.True(t, snap.SignedIn)
	require.NotNil(t, snap.Question)
	require.NotNil(t, snap.Answers)
	assert.Equal(t, "q1", snap.Answers.QuestionID)
	assert.Len(t, got, 1)
}

func TestRefreshWithoutCouple(t *testing.T) {
	s := New("u1", &fakeRequests{}, &fakeQuestions{err: apperr.ErrNoCouple}, nil)

	require.NoError(t, s.Refresh(context.Background()))
	snap := s.Snapshot()
	assert.True(t, snap.SignedIn)
	assert.NotNil(t, snap.Requests)
	assert.Nil(t, snap.Question)
}

func TestRefreshFailureKeepsPreviousSnapshot(t *testing.T) {
	requests := &fakeRequests{}
	s := New("u1", requests, &fakeQuestions{}, nil)
	require.NoError(t, s.Refresh(context.Background()))

	requests.err = errors.New("provider down")
	assert.Error(t, s.Refresh(context.Background()))
	assert.True(t, s.Snapshot().SignedIn)
}

func TestHandleEvents(t *testing.T) {
	requests := &fakeRequests{}
	s := New("u1", requests, &fakeQuestions{}, nil)
	ctx := context.Background()

	require.NoError(t, s.Handle(ctx, identity.Event{Type: identity.SignedIn, UserID: "u1"}))
	assert.True(t, s.Snapshot().SignedIn)

	require.NoError(t, s.Handle(ctx, identity.Event{Type: identity.TokenRefreshed, UserID: "u1"}))
	assert.Equal(t, 2, requests.calls)

	require.NoError(t, s.Handle(ctx, identity.Event{Type: identity.SignedOut, UserID: "u1"}))
	assert.Equal(t, Snapshot{}, s.Snapshot())
	assert.Equal(t, 2, requests.calls)
}

func TestRunFollowsBroker(t *testing.T) {
	broker := identity.NewBroker()
	events, unsubscribe := broker.Subscribe("u1")

	changes := make(chan Snapshot, 4)
	s := New("u1", &fakeRequests{}, &fakeQuestions{}, func(snap Snapshot) { changes <- snap })

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	done := make(chan struct{})
	go func() {
		s.Run(ctx, events)
		close(done)
	}()

	broker.Publish(identity.Event{Type: identity.SignedIn, UserID: "u1"})
	assert.True(t, waitSnapshot(t, changes).SignedIn)

	broker.Publish(identity.Event{Type: identity.SignedOut, UserID: "u1"})
	assert.False(t, waitSnapshot(t, changes).SignedIn)

	unsubscribe()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("session did not stop after the channel closed")
	}
}

func waitSnapshot(t *testing.T, ch <-chan Snapshot) Snapshot {
	t.Helper()
	select {
	case snap := <-ch:
		return snap
	case <-time.After(time.Second):
		t.Fatal("no snapshot")
		return Snapshot{}
	}
}

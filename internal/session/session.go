// Package session keeps the derived state of one signed-in client and
// refreshes it in response to identity-change events.
package session

import (
	"context"
	"errors"
	"sync"

	"bloom-backend/internal/apperr"
	"bloom-backend/internal/identity"
	"bloom-backend/internal/models"
	"bloom-backend/internal/services"

	"github.com/rs/zerolog/log"
)

// RequestLister lists the caller's couple requests
type RequestLister interface {
	List(ctx context.Context) (*services.CoupleRequestViews, error)
}

// QuestionSource resolves today's question and its answers
type QuestionSource interface {
	ResolveToday(ctx context.Context) (*models.Question, error)
	LoadAnswers(ctx context.Context, questionID string) (*services.AnswerView, error)
}

// Snapshot is the derived state pushed to the client
type Snapshot struct {
	SignedIn bool                         `json:"signed_in"`
	Requests *services.CoupleRequestViews `json:"requests,omitempty"`
	Question *models.Question             `json:"question,omitempty"`
	Answers  *services.AnswerView         `json:"answers,omitempty"`
}

// Session holds the derived state of one user
type Session struct {
	userID    string
	requests  RequestLister
	questions QuestionSource
	onChange  func(Snapshot)

	mu       sync.Mutex
	snapshot Snapshot
}

// New creates a session for userID. onChange, if set, receives every new snapshot.
func New(userID string, requests RequestLister, questions QuestionSource, onChange func(Snapshot)) *Session {
	return &Session{
		userID:    userID,
		requests:  requests,
		questions: questions,
		onChange:  onChange,
	}
}

// Snapshot returns the current derived state
func (s *Session) Snapshot() Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.snapshot
}

// Handle applies one identity event: signed_out clears the state,
// signed_in and token_refreshed refetch it.
func (s *Session) Handle(ctx context.Context, ev identity.Event) error {
	switch ev.Type {
	case identity.SignedOut:
		s.set(Snapshot{})
		return nil
	case identity.SignedIn, identity.TokenRefreshed:
		return s.Refresh(ctx)
	}
	return nil
}

// Refresh recomputes the state from fresh fetches
func (s *Session) Refresh(ctx context.Context) error {
	ctx = identity.WithUserID(ctx, s.userID)

	views, err := s.requests.List(ctx)
	if err != nil {
		return err
	}
	snap := Snapshot{SignedIn: true, Requests: views}

	q, err := s.questions.ResolveToday(ctx)
	switch {
	case errors.Is(err, apperr.ErrNoCouple):
	case err != nil:
		return err
	case q != nil:
		answers, err := s.questions.LoadAnswers(ctx, q.ID)
		if err != nil {
			return err
		}
		snap.Question = q
		snap.Answers = answers
	}

	s.set(snap)
	return nil
}

// Run handles events until the channel closes or ctx is done. Refresh
// failures are logged and the loop keeps going.
func (s *Session) Run(ctx context.Context, events <-chan identity.Event) {
	for {
		select {
		case <-ctx.Done():
			return
		case ev, ok := <-events:
			if !ok {
				return
			}
			if err := s.Handle(ctx, ev); err != nil {
				log.Error().
					Err(err).
					Str("user_id", s.userID).
					Str("event", string(ev.Type)).
					Msg("Failed to refresh session")
			}
		}
	}
}

func (s *Session) set(snap Snapshot) {
	s.mu.Lock()
	s.snapshot = snap
	s.mu.Unlock()

	if s.onChange != nil {
		s.onChange(snap)
	}
}

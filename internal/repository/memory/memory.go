// Package memory is an in-process storage backend. It keeps the same
// visibility rules and atomicity as the Postgres backend by running every
// operation under one mutex, which makes it suitable for local development
// and as the fake provider in tests.
package memory

import (
	"sync"
	"time"

	"bloom-backend/internal/models"
	"bloom-backend/internal/repository"
)

// DB holds every table of the in-memory backend
type DB struct {
	mu sync.Mutex

	users          map[string]*models.User
	couples        map[string]*models.Couple
	members        map[string]*models.CoupleMember // by user ID
	coupleRequests map[string]*models.CoupleRequest
	questions      map[string]*models.Question
	answers        map[string]*models.Answer // by question ID + "/" + user ID
	prompts        map[string]*models.Prompt
	posts          map[string]*models.Post
	journals       map[string]*models.Journal
	summaries      map[string][]*models.JournalSummary // by journal ID
	pushTokens     map[string]*models.PushToken        // by token

	now  func() time.Time
	last time.Time
}

// New creates an empty in-memory database
func New() *DB {
	return &DB{
		users:          make(map[string]*models.User),
		couples:        make(map[string]*models.Couple),
		members:        make(map[string]*models.CoupleMember),
		coupleRequests: make(map[string]*models.CoupleRequest),
		questions:      make(map[string]*models.Question),
		answers:        make(map[string]*models.Answer),
		prompts:        make(map[string]*models.Prompt),
		posts:          make(map[string]*models.Post),
		journals:       make(map[string]*models.Journal),
		summaries:      make(map[string][]*models.JournalSummary),
		pushTokens:     make(map[string]*models.PushToken),
		now:            time.Now,
	}
}

// SetClock replaces the time source used for created_at and responded_at
func (db *DB) SetClock(now func() time.Time) {
	db.mu.Lock()
	defer db.mu.Unlock()
	db.now = now
	db.last = time.Time{}
}

// tick returns a strictly increasing timestamp so that newest-first
// ordering is total. Caller holds db.mu.
func (db *DB) tick() time.Time {
	t := db.now().UTC().Truncate(time.Microsecond)
	if !t.After(db.last) {
		t = db.last.Add(time.Microsecond)
	}
	db.last = t
	return t
}

// NewStore creates a repository.Store backed by a fresh in-memory database
func NewStore() *repository.Store {
	return New().Store()
}

// Store returns repositories sharing db
func (db *DB) Store() *repository.Store {
	return &repository.Store{
		Users:          &userRepository{db: db},
		CoupleRequests: &coupleRequestRepository{db: db},
		Couples:        &coupleRepository{db: db},
		Questions:      &questionRepository{db: db},
		Answers:        &answerRepository{db: db},
		Prompts:        &promptRepository{db: db},
		Posts:          &postRepository{db: db},
		Journals:       &journalRepository{db: db},
		PushTokens:     &pushTokenRepository{db: db},
	}
}

// isMember reports whether userID belongs to coupleID. Caller holds db.mu.
func (db *DB) isMember(coupleID, userID string) bool {
	m, ok := db.members[userID]
	return ok && m.CoupleID == coupleID
}

func (db *DB) membersOf(coupleID string) []*models.CoupleMember {
	var out []*models.CoupleMember
	for _, m := range db.members {
		if m.CoupleID == coupleID {
			out = append(out, m)
		}
	}
	return out
}

func cloneString(s *string) *string {
	if s == nil {
		return nil
	}
	v := *s
	return &v
}

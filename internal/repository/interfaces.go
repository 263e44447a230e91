package repository

import (
	"context"
	"time"

	"bloom-backend/internal/models"
)

// UserRepository defines the interface for user data operations
type UserRepository interface {
	Create(ctx context.Context, user *models.User) error
	GetByID(ctx context.Context, id string) (*models.User, error)
	GetByEmail(ctx context.Context, email string) (*models.User, error)
	GetByHandle(ctx context.Context, handle string) (*models.User, error)
	HandleExists(ctx context.Context, handle string) (bool, error)
	UpsertProfile(ctx context.Context, userID string, profile models.Profile) (*models.User, error)
	BumpTokenVersion(ctx context.Context, userID string) (int, error)
}

// CoupleRequestRepository defines couple request reads and the atomic
// request procedures. Every procedure is a single atomic operation.
type CoupleRequestRepository interface {
	// ListForUser returns every request where userID is requester or
	// recipient, newest first.
	ListForUser(ctx context.Context, userID string) ([]*models.CoupleRequest, error)
	GetByID(ctx context.Context, id string) (*models.CoupleRequest, error)
	Send(ctx context.Context, requesterID, recipientHandle string, message *string) (*models.CoupleRequest, error)
	// Accept returns the ID of the couple linking requester and recipient
	Accept(ctx context.Context, callerID, requestID string) (string, error)
	Decline(ctx context.Context, callerID, requestID string) error
	Cancel(ctx context.Context, callerID, requestID string) error
	// ExpirePending moves pending requests created before cutoff to expired
	ExpirePending(ctx context.Context, cutoff time.Time) (int, error)
}

// CoupleRepository defines membership lookups
type CoupleRepository interface {
	// CoupleIDForUser returns ErrNotFound when the user has no couple
	CoupleIDForUser(ctx context.Context, userID string) (string, error)
	Members(ctx context.Context, coupleID string) ([]*models.CoupleMember, error)
}

// QuestionRepository defines question data operations
type QuestionRepository interface {
	Create(ctx context.Context, question *models.Question) error
	// GetForDate returns ErrNotFound when the couple has no question that day
	GetForDate(ctx context.Context, coupleID, date string) (*models.Question, error)
	// CompletedDates returns the dates on which every member of the couple
	// answered, newest first
	CompletedDates(ctx context.Context, coupleID string) ([]string, error)
}

// AnswerRepository defines answer operations scoped to a viewer that must
// belong to the question's couple
type AnswerRepository interface {
	// ListByQuestion returns answers ordered by creation time ascending
	ListByQuestion(ctx context.Context, viewerID, questionID string) ([]*models.Answer, error)
	// Upsert inserts or replaces the answer keyed by (question_id, user_id)
	Upsert(ctx context.Context, answer *models.Answer) (*models.Answer, error)
}

// PromptRepository defines prompt data operations
type PromptRepository interface {
	Create(ctx context.Context, prompt *models.Prompt) error
	GetByID(ctx context.Context, id string) (*models.Prompt, error)
}

// PostRepository defines post data operations
type PostRepository interface {
	Create(ctx context.Context, post *models.Post) error
	ListByCouple(ctx context.Context, coupleID string, limit, offset int) ([]*models.Post, int, error)
}

// JournalRepository defines journal data operations
type JournalRepository interface {
	Create(ctx context.Context, journal *models.Journal) error
	// Update replaces title, content and visibility of a journal owned by journal.UserID
	Update(ctx context.Context, journal *models.Journal) error
	GetByID(ctx context.Context, id string) (*models.Journal, error)
	ListByUser(ctx context.Context, userID string, visibility *models.JournalVisibility) ([]*models.Journal, error)
	AddSummary(ctx context.Context, summary *models.JournalSummary) error
	SetAISummary(ctx context.Context, journalID, summary string) error
	ListSummaries(ctx context.Context, journalID string) ([]*models.JournalSummary, error)
}

// PushTokenRepository defines push token operations
type PushTokenRepository interface {
	Upsert(ctx context.Context, token *models.PushToken) error
	ListByUser(ctx context.Context, userID string) ([]*models.PushToken, error)
	Delete(ctx context.Context, token string) error
}

// Store bundles every repository of one storage backend
type Store struct {
	Users          UserRepository
	CoupleRequests CoupleRequestRepository
	Couples        CoupleRepository
	Questions      QuestionRepository
	Answers        AnswerRepository
	Prompts        PromptRepository
	Posts          PostRepository
	Journals       JournalRepository
	PushTokens     PushTokenRepository
}

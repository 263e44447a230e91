// Package postgres implements the repositories on PostgreSQL with pgx. Row
// visibility rules are applied in the queries themselves and the couple
// request procedures each run in a single transaction.
package postgres

import (
	"errors"

	"bloom-backend/internal/repository"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

const uniqueViolation = "23505"

// NewStore creates a repository.Store backed by db
func NewStore(db *pgxpool.Pool) *repository.Store {
	return &repository.Store{
		Users:          NewUserRepository(db),
		CoupleRequests: NewCoupleRequestRepository(db),
		Couples:        NewCoupleRepository(db),
		Questions:      NewQuestionRepository(db),
		Answers:        NewAnswerRepository(db),
		Prompts:        NewPromptRepository(db),
		Posts:          NewPostRepository(db),
		Journals:       NewJournalRepository(db),
		PushTokens:     NewPushTokenRepository(db),
	}
}

// isUUID reports whether id can be cast to a uuid column. Ids arrive from
// request paths, and a failed cast must read as a missing row.
func isUUID(id string) bool {
	_, err := uuid.Parse(id)
	return err == nil
}

// constraintViolated reports whether err is a unique violation of constraint
func constraintViolated(err error, constraint string) bool {
	var pgErr *pgconn.PgError
	if !errors.As(err, &pgErr) {
		return false
	}
	return pgErr.Code == uniqueViolation && pgErr.ConstraintName == constraint
}

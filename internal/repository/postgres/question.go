package postgres

import (
	"context"
	"errors"
	"fmt"

	"bloom-backend/internal/models"
	"bloom-backend/internal/repository"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

const questionColumns = `id, prompt_id, couple_id, to_char(scheduled_for, 'YYYY-MM-DD'), created_by, text, model_source, created_at`

// QuestionRepository handles database operations for questions
type QuestionRepository struct {
	db *pgxpool.Pool
}

// NewQuestionRepository creates a new question repository
func NewQuestionRepository(db *pgxpool.Pool) *QuestionRepository {
	return &QuestionRepository{db: db}
}

// Create creates a new question
func (r *QuestionRepository) Create(ctx context.Context, q *models.Question) error {
	if q.ID == "" {
		q.ID = uuid.New().String()
	}
	query := `
		INSERT INTO questions (id, prompt_id, couple_id, scheduled_for, created_by, text, model_source)
		VALUES ($1, $2, $3, $4::date, $5, $6, $7)
		RETURNING created_at
	`
	err := r.db.QueryRow(ctx, query,
		q.ID, q.PromptID, q.CoupleID, q.ScheduledFor, q.CreatedBy, q.Text, q.ModelSource,
	).Scan(&q.CreatedAt)
	if err != nil {
		if constraintViolated(err, "questions_couple_id_scheduled_for_key") {
			return repository.ErrDuplicateDate
		}
		return fmt.Errorf("failed to create question: %w", err)
	}
	return nil
}

// GetForDate retrieves the couple's question scheduled for date
func (r *QuestionRepository) GetForDate(ctx context.Context, coupleID, date string) (*models.Question, error) {
	query := `
		SELECT ` + questionColumns + `
		FROM questions
		WHERE couple_id = $1 AND scheduled_for = $2::date
		LIMIT 1
	`
	var q models.Question
	err := r.db.QueryRow(ctx, query, coupleID, date).Scan(
		&q.ID, &q.PromptID, &q.CoupleID, &q.ScheduledFor,
		&q.CreatedBy, &q.Text, &q.ModelSource, &q.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, repository.ErrNotFound
		}
		return nil, fmt.Errorf("failed to get question for date: %w", err)
	}
	return &q, nil
}

// CompletedDates retrieves the dates on which both members answered
func (r *QuestionRepository) CompletedDates(ctx context.Context, coupleID string) ([]string, error) {
	query := `
		SELECT to_char(q.scheduled_for, 'YYYY-MM-DD')
		FROM questions q
		JOIN answers a ON a.question_id = q.id
		JOIN couple_members m ON m.couple_id = q.couple_id AND m.user_id = a.user_id
		WHERE q.couple_id = $1 AND q.scheduled_for IS NOT NULL
		GROUP BY q.scheduled_for
		HAVING COUNT(DISTINCT a.user_id) >= 2
		ORDER BY q.scheduled_for DESC
	`
	rows, err := r.db.Query(ctx, query, coupleID)
	if err != nil {
		return nil, fmt.Errorf("failed to get completed dates: %w", err)
	}
	defer rows.Close()

	var dates []string
	for rows.Next() {
		var d string
		if err := rows.Scan(&d); err != nil {
			return nil, fmt.Errorf("failed to scan completed date: %w", err)
		}
		dates = append(dates, d)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating completed dates: %w", err)
	}
	return dates, nil
}

// AnswerRepository handles database operations for answers
type AnswerRepository struct {
	db *pgxpool.Pool
}

// NewAnswerRepository creates a new answer repository
func NewAnswerRepository(db *pgxpool.Pool) *AnswerRepository {
	return &AnswerRepository{db: db}
}

// memberOfQuestion restricts rows to questions of the viewer's couple
const memberOfQuestion = `
	EXISTS (
		SELECT 1 FROM questions q
		JOIN couple_members m ON m.couple_id = q.couple_id
		WHERE q.id = $1 AND m.user_id = $2
	)`

// ListByQuestion retrieves answers to a question visible to viewerID
func (r *AnswerRepository) ListByQuestion(ctx context.Context, viewerID, questionID string) ([]*models.Answer, error) {
	if !isUUID(questionID) {
		return nil, repository.ErrQuestionNotFound
	}
	var visible bool
	if err := r.db.QueryRow(ctx, `SELECT `+memberOfQuestion, questionID, viewerID).Scan(&visible); err != nil {
		return nil, fmt.Errorf("failed to check question access: %w", err)
	}
	if !visible {
		return nil, repository.ErrQuestionNotFound
	}

	query := `
		SELECT id, question_id, user_id, content, mood, created_at, updated_at
		FROM answers
		WHERE question_id = $1
		ORDER BY created_at ASC, id ASC
	`
	rows, err := r.db.Query(ctx, query, questionID)
	if err != nil {
		return nil, fmt.Errorf("failed to get answers: %w", err)
	}
	defer rows.Close()

	var answers []*models.Answer
	for rows.Next() {
		var a models.Answer
		if err := rows.Scan(&a.ID, &a.QuestionID, &a.UserID, &a.Content, &a.Mood, &a.CreatedAt, &a.UpdatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan answer: %w", err)
		}
		answers = append(answers, &a)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating answers: %w", err)
	}
	return answers, nil
}

// Upsert inserts the answer or replaces its content keyed by (question_id, user_id).
// created_at keeps the first submission time.
func (r *AnswerRepository) Upsert(ctx context.Context, answer *models.Answer) (*models.Answer, error) {
	if !isUUID(answer.QuestionID) {
		return nil, repository.ErrQuestionNotFound
	}
	query := `
		INSERT INTO answers (id, question_id, user_id, content, mood)
		SELECT $3::uuid, $1::uuid, $2::uuid, $4::text, $5::jsonb
		WHERE ` + memberOfQuestion + `
		ON CONFLICT (question_id, user_id)
		DO UPDATE SET content = EXCLUDED.content, mood = EXCLUDED.mood, updated_at = now()
		RETURNING id, question_id, user_id, content, mood, created_at, updated_at
	`
	var a models.Answer
	err := r.db.QueryRow(ctx, query,
		answer.QuestionID, answer.UserID, uuid.New().String(), answer.Content, answer.Mood,
	).Scan(&a.ID, &a.QuestionID, &a.UserID, &a.Content, &a.Mood, &a.CreatedAt, &a.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, repository.ErrQuestionNotFound
		}
		return nil, fmt.Errorf("failed to upsert answer: %w", err)
	}
	return &a, nil
}

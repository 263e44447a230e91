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

const journalColumns = `id, user_id, title, content, ai_summary, visibility, created_at, updated_at`

// JournalRepository handles database operations for journals and their summaries
type JournalRepository struct {
	db *pgxpool.Pool
}

// NewJournalRepository creates a new journal repository
func NewJournalRepository(db *pgxpool.Pool) *JournalRepository {
	return &JournalRepository{db: db}
}

func scanJournal(row pgx.Row) (*models.Journal, error) {
	var j models.Journal
	var visibility string
	err := row.Scan(&j.ID, &j.UserID, &j.Title, &j.Content, &j.AISummary, &visibility, &j.CreatedAt, &j.UpdatedAt)
	if err != nil {
		return nil, err
	}
	j.Visibility = models.JournalVisibility(visibility)
	return &j, nil
}

// Create creates a new journal
func (r *JournalRepository) Create(ctx context.Context, journal *models.Journal) error {
	if journal.ID == "" {
		journal.ID = uuid.New().String()
	}
	query := `
		INSERT INTO journals (id, user_id, title, content, visibility)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING created_at, updated_at
	`
	err := r.db.QueryRow(ctx, query,
		journal.ID, journal.UserID, journal.Title, journal.Content, string(journal.Visibility),
	).Scan(&journal.CreatedAt, &journal.UpdatedAt)
	if err != nil {
		return fmt.Errorf("failed to create journal: %w", err)
	}
	return nil
}

// Update updates a journal owned by journal.UserID
func (r *JournalRepository) Update(ctx context.Context, journal *models.Journal) error {
	if !isUUID(journal.ID) {
		return repository.ErrNotFound
	}
	query := `
		UPDATE journals
		SET title = $3, content = $4, visibility = $5, updated_at = now()
		WHERE id = $1 AND user_id = $2
		RETURNING ai_summary, created_at, updated_at
	`
	err := r.db.QueryRow(ctx, query,
		journal.ID, journal.UserID, journal.Title, journal.Content, string(journal.Visibility),
	).Scan(&journal.AISummary, &journal.CreatedAt, &journal.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return repository.ErrNotFound
		}
		return fmt.Errorf("failed to update journal: %w", err)
	}
	return nil
}

// GetByID retrieves a journal by ID
func (r *JournalRepository) GetByID(ctx context.Context, id string) (*models.Journal, error) {
	if !isUUID(id) {
		return nil, repository.ErrNotFound
	}
	query := `SELECT ` + journalColumns + ` FROM journals WHERE id = $1`
	j, err := scanJournal(r.db.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, repository.ErrNotFound
		}
		return nil, fmt.Errorf("failed to get journal: %w", err)
	}
	return j, nil
}

// ListByUser retrieves a user's journals, optionally filtered by visibility
func (r *JournalRepository) ListByUser(ctx context.Context, userID string, visibility *models.JournalVisibility) ([]*models.Journal, error) {
	query := `
		SELECT ` + journalColumns + `
		FROM journals
		WHERE user_id = $1 AND ($2::text IS NULL OR visibility = $2::text)
		ORDER BY updated_at DESC
	`
	var vis *string
	if visibility != nil {
		v := string(*visibility)
		vis = &v
	}
	rows, err := r.db.Query(ctx, query, userID, vis)
	if err != nil {
		return nil, fmt.Errorf("failed to list journals: %w", err)
	}
	defer rows.Close()

	var journals []*models.Journal
	for rows.Next() {
		j, err := scanJournal(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan journal: %w", err)
		}
		journals = append(journals, j)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating journals: %w", err)
	}
	return journals, nil
}

// AddSummary appends a summary to a journal
func (r *JournalRepository) AddSummary(ctx context.Context, summary *models.JournalSummary) error {
	if summary.ID == "" {
		summary.ID = uuid.New().String()
	}
	query := `
		INSERT INTO journal_summaries (id, journal_id, generated_by, summary, model)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING created_at
	`
	err := r.db.QueryRow(ctx, query,
		summary.ID, summary.JournalID, summary.GeneratedBy, summary.Summary, summary.Model,
	).Scan(&summary.CreatedAt)
	if err != nil {
		return fmt.Errorf("failed to add journal summary: %w", err)
	}
	return nil
}

// SetAISummary mirrors the latest summary onto the journal row
func (r *JournalRepository) SetAISummary(ctx context.Context, journalID, summary string) error {
	if !isUUID(journalID) {
		return repository.ErrNotFound
	}
	result, err := r.db.Exec(ctx, `UPDATE journals SET ai_summary = $1 WHERE id = $2`, summary, journalID)
	if err != nil {
		return fmt.Errorf("failed to update journal summary: %w", err)
	}
	if result.RowsAffected() == 0 {
		return repository.ErrNotFound
	}
	return nil
}

// ListSummaries retrieves a journal's summaries, newest first
func (r *JournalRepository) ListSummaries(ctx context.Context, journalID string) ([]*models.JournalSummary, error) {
	if !isUUID(journalID) {
		return nil, nil
	}
	query := `
		SELECT id, journal_id, generated_by, summary, model, created_at
		FROM journal_summaries
		WHERE journal_id = $1
		ORDER BY created_at DESC
	`
	rows, err := r.db.Query(ctx, query, journalID)
	if err != nil {
		return nil, fmt.Errorf("failed to list journal summaries: %w", err)
	}
	defer rows.Close()

	var summaries []*models.JournalSummary
	for rows.Next() {
		var s models.JournalSummary
		if err := rows.Scan(&s.ID, &s.JournalID, &s.GeneratedBy, &s.Summary, &s.Model, &s.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan journal summary: %w", err)
		}
		summaries = append(summaries, &s)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating journal summaries: %w", err)
	}
	return summaries, nil
}

package postgres

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"bloom-backend/internal/models"
	"bloom-backend/internal/repository"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

const coupleRequestColumns = `id, requester_id, recipient_id, status, message, created_at, responded_at`

// CoupleRequestRepository handles couple request reads and procedures
type CoupleRequestRepository struct {
	db *pgxpool.Pool
}

// NewCoupleRequestRepository creates a new couple request repository
func NewCoupleRequestRepository(db *pgxpool.Pool) *CoupleRequestRepository {
	return &CoupleRequestRepository{db: db}
}

func scanCoupleRequest(row pgx.Row) (*models.CoupleRequest, error) {
	var req models.CoupleRequest
	var status string
	err := row.Scan(
		&req.ID, &req.RequesterID, &req.RecipientID, &status,
		&req.Message, &req.CreatedAt, &req.RespondedAt,
	)
	if err != nil {
		return nil, err
	}
	req.Status = models.CoupleRequestStatus(status)
	return &req, nil
}

// ListForUser retrieves every request the user takes part in, newest first
func (r *CoupleRequestRepository) ListForUser(ctx context.Context, userID string) ([]*models.CoupleRequest, error) {
	query := `
		SELECT ` + coupleRequestColumns + `
		FROM couple_requests
		WHERE requester_id = $1 OR recipient_id = $1
		ORDER BY created_at DESC, id DESC
	`
	rows, err := r.db.Query(ctx, query, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to list couple requests: %w", err)
	}
	defer rows.Close()

	var requests []*models.CoupleRequest
	for rows.Next() {
		req, err := scanCoupleRequest(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan couple request: %w", err)
		}
		requests = append(requests, req)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating couple requests: %w", err)
	}

	return requests, nil
}

// GetByID retrieves a couple request by ID
func (r *CoupleRequestRepository) GetByID(ctx context.Context, id string) (*models.CoupleRequest, error) {
	if !isUUID(id) {
		return nil, repository.ErrRequestNotFound
	}
	query := `SELECT ` + coupleRequestColumns + ` FROM couple_requests WHERE id = $1`
	req, err := scanCoupleRequest(r.db.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, repository.ErrRequestNotFound
		}
		return nil, fmt.Errorf("failed to get couple request: %w", err)
	}
	return req, nil
}

// Send creates a pending request from requesterID to the user owning recipientHandle
func (r *CoupleRequestRepository) Send(ctx context.Context, requesterID, recipientHandle string, message *string) (*models.CoupleRequest, error) {
	tx, err := r.db.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	var recipientID string
	err = tx.QueryRow(ctx, `SELECT id FROM users WHERE handle = $1`, strings.TrimSpace(recipientHandle)).Scan(&recipientID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, repository.ErrRecipientNotFound
		}
		return nil, fmt.Errorf("failed to resolve recipient: %w", err)
	}
	if recipientID == requesterID {
		return nil, repository.ErrSelfRequest
	}

	paired, err := userHasCouple(ctx, tx, requesterID)
	if err != nil {
		return nil, err
	}
	if paired {
		return nil, repository.ErrAlreadyPaired
	}
	paired, err = userHasCouple(ctx, tx, recipientID)
	if err != nil {
		return nil, err
	}
	if paired {
		return nil, repository.ErrRecipientPaired
	}

	req := &models.CoupleRequest{
		ID:          uuid.New().String(),
		RequesterID: requesterID,
		RecipientID: recipientID,
		Status:      models.CoupleRequestPending,
		Message:     message,
	}
	query := `
		INSERT INTO couple_requests (id, requester_id, recipient_id, status, message)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING created_at
	`
	err = tx.QueryRow(ctx, query, req.ID, req.RequesterID, req.RecipientID, string(req.Status), req.Message).
		Scan(&req.CreatedAt)
	if err != nil {
		if constraintViolated(err, "couple_requests_one_pending_per_pair") {
			return nil, repository.ErrDuplicatePending
		}
		return nil, fmt.Errorf("failed to create couple request: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("failed to commit couple request: %w", err)
	}
	return req, nil
}

// Accept marks the request accepted and creates the couple in one transaction
func (r *CoupleRequestRepository) Accept(ctx context.Context, callerID, requestID string) (string, error) {
	if !isUUID(requestID) {
		return "", repository.ErrRequestNotFound
	}
	tx, err := r.db.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return "", fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	req, err := lockCoupleRequest(ctx, tx, requestID)
	if err != nil {
		return "", err
	}
	done, err := repository.CheckTransition(req, callerID, repository.ActionAccept)
	if err != nil {
		return "", err
	}
	if done {
		return sharedCoupleID(ctx, tx, req.RequesterID, req.RecipientID)
	}

	coupleID := uuid.New().String()
	if _, err := tx.Exec(ctx, `INSERT INTO couples (id) VALUES ($1)`, coupleID); err != nil {
		return "", fmt.Errorf("failed to create couple: %w", err)
	}
	memberQuery := `INSERT INTO couple_members (couple_id, user_id) VALUES ($1, $2)`
	if _, err := tx.Exec(ctx, memberQuery, coupleID, req.RecipientID); err != nil {
		if constraintViolated(err, "couple_members_user_id_key") {
			return "", repository.ErrAlreadyPaired
		}
		return "", fmt.Errorf("failed to add recipient to couple: %w", err)
	}
	if _, err := tx.Exec(ctx, memberQuery, coupleID, req.RequesterID); err != nil {
		if constraintViolated(err, "couple_members_user_id_key") {
			return "", repository.ErrRequesterPaired
		}
		return "", fmt.Errorf("failed to add requester to couple: %w", err)
	}

	if err := setRequestStatus(ctx, tx, requestID, models.CoupleRequestAccepted); err != nil {
		return "", err
	}
	if err := tx.Commit(ctx); err != nil {
		return "", fmt.Errorf("failed to commit accept: %w", err)
	}
	return coupleID, nil
}

// Decline marks the request declined
func (r *CoupleRequestRepository) Decline(ctx context.Context, callerID, requestID string) error {
	return r.finish(ctx, callerID, requestID, repository.ActionDecline)
}

// Cancel marks the request canceled
func (r *CoupleRequestRepository) Cancel(ctx context.Context, callerID, requestID string) error {
	return r.finish(ctx, callerID, requestID, repository.ActionCancel)
}

func (r *CoupleRequestRepository) finish(ctx context.Context, callerID, requestID string, action repository.RequestAction) error {
	if !isUUID(requestID) {
		return repository.ErrRequestNotFound
	}
	tx, err := r.db.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	req, err := lockCoupleRequest(ctx, tx, requestID)
	if err != nil {
		return err
	}
	done, err := repository.CheckTransition(req, callerID, action)
	if err != nil || done {
		return err
	}
	if err := setRequestStatus(ctx, tx, requestID, action.Target()); err != nil {
		return err
	}
	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("failed to commit %s: %w", action, err)
	}
	return nil
}

// ExpirePending expires pending requests created before cutoff
func (r *CoupleRequestRepository) ExpirePending(ctx context.Context, cutoff time.Time) (int, error) {
	query := `
		UPDATE couple_requests
		SET status = 'expired', responded_at = now()
		WHERE status = 'pending' AND created_at < $1
	`
	result, err := r.db.Exec(ctx, query, cutoff)
	if err != nil {
		return 0, fmt.Errorf("failed to expire couple requests: %w", err)
	}
	return int(result.RowsAffected()), nil
}

func lockCoupleRequest(ctx context.Context, tx pgx.Tx, requestID string) (*models.CoupleRequest, error) {
	query := `SELECT ` + coupleRequestColumns + ` FROM couple_requests WHERE id = $1 FOR UPDATE`
	req, err := scanCoupleRequest(tx.QueryRow(ctx, query, requestID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, repository.ErrRequestNotFound
		}
		return nil, fmt.Errorf("failed to lock couple request: %w", err)
	}
	return req, nil
}

func setRequestStatus(ctx context.Context, tx pgx.Tx, requestID string, status models.CoupleRequestStatus) error {
	query := `UPDATE couple_requests SET status = $1, responded_at = now() WHERE id = $2`
	if _, err := tx.Exec(ctx, query, string(status), requestID); err != nil {
		return fmt.Errorf("failed to update couple request status: %w", err)
	}
	return nil
}

func userHasCouple(ctx context.Context, tx pgx.Tx, userID string) (bool, error) {
	query := `SELECT EXISTS(SELECT 1 FROM couple_members WHERE user_id = $1)`
	var exists bool
	if err := tx.QueryRow(ctx, query, userID).Scan(&exists); err != nil {
		return false, fmt.Errorf("failed to check if user has couple: %w", err)
	}
	return exists, nil
}

func sharedCoupleID(ctx context.Context, tx pgx.Tx, userA, userB string) (string, error) {
	query := `
		SELECT a.couple_id
		FROM couple_members a
		JOIN couple_members b ON b.couple_id = a.couple_id
		WHERE a.user_id = $1 AND b.user_id = $2
	`
	var coupleID string
	err := tx.QueryRow(ctx, query, userA, userB).Scan(&coupleID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return "", repository.ErrNotFound
		}
		return "", fmt.Errorf("failed to get couple: %w", err)
	}
	return coupleID, nil
}

// CoupleRepository handles couple membership lookups
type CoupleRepository struct {
	db *pgxpool.Pool
}

// NewCoupleRepository creates a new couple repository
func NewCoupleRepository(db *pgxpool.Pool) *CoupleRepository {
	return &CoupleRepository{db: db}
}

// CoupleIDForUser retrieves the couple a user belongs to
func (r *CoupleRepository) CoupleIDForUser(ctx context.Context, userID string) (string, error) {
	var coupleID string
	err := r.db.QueryRow(ctx, `SELECT couple_id FROM couple_members WHERE user_id = $1`, userID).Scan(&coupleID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return "", repository.ErrNotFound
		}
		return "", fmt.Errorf("failed to get couple by user id: %w", err)
	}
	return coupleID, nil
}

// Members retrieves the members of a couple
func (r *CoupleRepository) Members(ctx context.Context, coupleID string) ([]*models.CoupleMember, error) {
	query := `
		SELECT couple_id, user_id, role, joined_at
		FROM couple_members
		WHERE couple_id = $1
		ORDER BY user_id
	`
	rows, err := r.db.Query(ctx, query, coupleID)
	if err != nil {
		return nil, fmt.Errorf("failed to get couple members: %w", err)
	}
	defer rows.Close()

	var members []*models.CoupleMember
	for rows.Next() {
		var m models.CoupleMember
		if err := rows.Scan(&m.CoupleID, &m.UserID, &m.Role, &m.JoinedAt); err != nil {
			return nil, fmt.Errorf("failed to scan couple member: %w", err)
		}
		members = append(members, &m)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating couple members: %w", err)
	}
	return members, nil
}

package memory

import (
	"context"
	"sort"
	"strings"
	"time"

	"bloom-backend/internal/models"
	"bloom-backend/internal/repository"

	"github.com/google/uuid"
)

type coupleRequestRepository struct {
	db *DB
}

func cloneRequest(req *models.CoupleRequest) *models.CoupleRequest {
	cp := *req
	cp.Message = cloneString(req.Message)
	if req.RespondedAt != nil {
		t := *req.RespondedAt
		cp.RespondedAt = &t
	}
	return &cp
}

func (r *coupleRequestRepository) ListForUser(ctx context.Context, userID string) ([]*models.CoupleRequest, error) {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()

	var out []*models.CoupleRequest
	for _, req := range r.db.coupleRequests {
		if req.RequesterID == userID || req.RecipientID == userID {
			out = append(out, cloneRequest(req))
		}
	}
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].ID > out[j].ID
		}
		return out[i].CreatedAt.After(out[j].CreatedAt)
	})
	return out, nil
}

func (r *coupleRequestRepository) GetByID(ctx context.Context, id string) (*models.CoupleRequest, error) {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()

	req, ok := r.db.coupleRequests[id]
	if !ok {
		return nil, repository.ErrRequestNotFound
	}
	return cloneRequest(req), nil
}

func (r *coupleRequestRepository) Send(ctx context.Context, requesterID, recipientHandle string, message *string) (*models.CoupleRequest, error) {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()

	recipient := r.db.userByHandle(strings.TrimSpace(recipientHandle))
	if recipient == nil {
		return nil, repository.ErrRecipientNotFound
	}
	if recipient.ID == requesterID {
		return nil, repository.ErrSelfRequest
	}
	if _, ok := r.db.members[requesterID]; ok {
		return nil, repository.ErrAlreadyPaired
	}
	if _, ok := r.db.members[recipient.ID]; ok {
		return nil, repository.ErrRecipientPaired
	}
	for _, existing := range r.db.coupleRequests {
		if existing.Status != models.CoupleRequestPending {
			continue
		}
		if (existing.RequesterID == requesterID && existing.RecipientID == recipient.ID) ||
			(existing.RequesterID == recipient.ID && existing.RecipientID == requesterID) {
			return nil, repository.ErrDuplicatePending
		}
	}

	req := &models.CoupleRequest{
		ID:          uuid.New().String(),
		RequesterID: requesterID,
		RecipientID: recipient.ID,
		Status:      models.CoupleRequestPending,
		Message:     cloneString(message),
		CreatedAt:   r.db.tick(),
	}
	r.db.coupleRequests[req.ID] = req
	return cloneRequest(req), nil
}

func (r *coupleRequestRepository) Accept(ctx context.Context, callerID, requestID string) (string, error) {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()

	req, ok := r.db.coupleRequests[requestID]
	if !ok {
		return "", repository.ErrRequestNotFound
	}
	done, err := repository.CheckTransition(req, callerID, repository.ActionAccept)
	if err != nil {
		return "", err
	}
	if done {
		m, ok := r.db.members[req.RecipientID]
		if !ok || !r.db.isMember(m.CoupleID, req.RequesterID) {
			return "", repository.ErrNotFound
		}
		return m.CoupleID, nil
	}

	if _, ok := r.db.members[req.RecipientID]; ok {
		return "", repository.ErrAlreadyPaired
	}
	if _, ok := r.db.members[req.RequesterID]; ok {
		return "", repository.ErrRequesterPaired
	}

	now := r.db.tick()
	couple := &models.Couple{ID: uuid.New().String(), CreatedAt: now}
	r.db.couples[couple.ID] = couple
	for _, userID := range []string{req.RequesterID, req.RecipientID} {
		r.db.members[userID] = &models.CoupleMember{CoupleID: couple.ID, UserID: userID, JoinedAt: now}
	}
	req.Status = models.CoupleRequestAccepted
	req.RespondedAt = &now
	return couple.ID, nil
}

func (r *coupleRequestRepository) Decline(ctx context.Context, callerID, requestID string) error {
	return r.finish(callerID, requestID, repository.ActionDecline)
}

func (r *coupleRequestRepository) Cancel(ctx context.Context, callerID, requestID string) error {
	return r.finish(callerID, requestID, repository.ActionCancel)
}

func (r *coupleRequestRepository) finish(callerID, requestID string, action repository.RequestAction) error {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()

	req, ok := r.db.coupleRequests[requestID]
	if !ok {
		return repository.ErrRequestNotFound
	}
	done, err := repository.CheckTransition(req, callerID, action)
	if err != nil || done {
		return err
	}
	now := r.db.tick()
	req.Status = action.Target()
	req.RespondedAt = &now
	return nil
}

func (r *coupleRequestRepository) ExpirePending(ctx context.Context, cutoff time.Time) (int, error) {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()

	now := r.db.tick()
	n := 0
	for _, req := range r.db.coupleRequests {
		if req.Status == models.CoupleRequestPending && req.CreatedAt.Before(cutoff) {
			req.Status = models.CoupleRequestExpired
			t := now
			req.RespondedAt = &t
			n++
		}
	}
	return n, nil
}

type coupleRepository struct {
	db *DB
}

func (r *coupleRepository) CoupleIDForUser(ctx context.Context, userID string) (string, error) {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()

	m, ok := r.db.members[userID]
	if !ok {
		return "", repository.ErrNotFound
	}
	return m.CoupleID, nil
}

func (r *coupleRepository) Members(ctx context.Context, coupleID string) ([]*models.CoupleMember, error) {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()

	members := r.db.membersOf(coupleID)
	out := make([]*models.CoupleMember, 0, len(members))
	for _, m := range members {
		cp := *m
		out = append(out, &cp)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].UserID < out[j].UserID })
	return out, nil
}

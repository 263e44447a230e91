package services

import (
	"context"
	"strings"

	"bloom-backend/internal/apperr"
	"bloom-backend/internal/identity"
	"bloom-backend/internal/metrics"
	"bloom-backend/internal/models"
	"bloom-backend/internal/repository"

	"github.com/rs/zerolog/log"
)

// PairingService handles couple requests. Transitions are delegated to the
// provider's atomic procedures; the service never rewrites a status itself.
type PairingService struct {
	identity identity.Resolver
	requests repository.CoupleRequestRepository
	notifier Notifier
}

// NewPairingService creates a new pairing service
func NewPairingService(resolver identity.Resolver, requests repository.CoupleRequestRepository, notifier Notifier) *PairingService {
	return &PairingService{
		identity: resolver,
		requests: requests,
		notifier: notifier,
	}
}

// CoupleRequestViews are the views derived from one fetch of the caller's requests
type CoupleRequestViews struct {
	Incoming []*models.CoupleRequest `json:"incoming"`
	Outgoing []*models.CoupleRequest `json:"outgoing"`
	History  []*models.CoupleRequest `json:"history"`
}

// Partition derives the views for userID from rows, keeping row order
func Partition(userID string, rows []*models.CoupleRequest) *CoupleRequestViews {
	views := &CoupleRequestViews{
		Incoming: []*models.CoupleRequest{},
		Outgoing: []*models.CoupleRequest{},
		History:  make([]*models.CoupleRequest, 0, len(rows)),
	}
	for _, req := range rows {
		views.History = append(views.History, req)
		if req.Status != models.CoupleRequestPending {
			continue
		}
		switch userID {
		case req.RecipientID:
			views.Incoming = append(views.Incoming, req)
		case req.RequesterID:
			views.Outgoing = append(views.Outgoing, req)
		}
	}
	return views
}

// SendRequest represents a request to send a couple request
type SendRequest struct {
	RecipientHandle string  `json:"recipient_handle"`
	Message         *string `json:"message,omitempty"`
}

// Send creates a pending request from the caller to the owner of recipientHandle
func (s *PairingService) Send(ctx context.Context, recipientHandle string, message *string) (req *models.CoupleRequest, err error) {
	ctx, span := startSpan(ctx, "pairing.Send")
	defer func() {
		metrics.CoupleRequestOps.WithLabelValues("send", metrics.Result(err)).Inc()
		endSpan(span, err)
	}()

	handle := strings.TrimSpace(recipientHandle)
	if handle == "" {
		return nil, apperr.Validation("recipient handle is required")
	}
	if message != nil {
		trimmed := strings.TrimSpace(*message)
		if trimmed == "" {
			message = nil
		} else {
			message = &trimmed
		}
	}

	callerID, err := requireCaller(ctx, s.identity)
	if err != nil {
		return nil, err
	}

	req, err = s.requests.Send(ctx, callerID, handle, message)
	if err != nil {
		return nil, apperr.Remote(err)
	}

	log.Info().
		Str("request_id", req.ID).
		Str("requester_id", req.RequesterID).
		Str("recipient_id", req.RecipientID).
		Msg("Couple request sent")

	notify(ctx, s.notifier, Notification{
		Kind:      NotifyRequestReceived,
		UserID:    req.RecipientID,
		ActorID:   callerID,
		RequestID: req.ID,
	})
	return req, nil
}

// List returns the caller's incoming, outgoing and history views
func (s *PairingService) List(ctx context.Context) (views *CoupleRequestViews, err error) {
	ctx, span := startSpan(ctx, "pairing.List")
	defer func() {
		metrics.CoupleRequestOps.WithLabelValues("list", metrics.Result(err)).Inc()
		endSpan(span, err)
	}()

	callerID, err := requireCaller(ctx, s.identity)
	if err != nil {
		return nil, err
	}

	rows, err := s.requests.ListForUser(ctx, callerID)
	if err != nil {
		return nil, apperr.Remote(err)
	}
	return Partition(callerID, rows), nil
}

// Accept accepts a pending request addressed to the caller and returns the couple ID
func (s *PairingService) Accept(ctx context.Context, requestID string) (coupleID string, err error) {
	ctx, span := startSpan(ctx, "pairing.Accept")
	defer func() {
		metrics.CoupleRequestOps.WithLabelValues("accept", metrics.Result(err)).Inc()
		endSpan(span, err)
	}()

	callerID, err := s.prepareTransition(ctx, requestID)
	if err != nil {
		return "", err
	}

	coupleID, err = s.requests.Accept(ctx, callerID, requestID)
	if err != nil {
		return "", apperr.Remote(err)
	}

	log.Info().
		Str("request_id", requestID).
		Str("couple_id", coupleID).
		Str("user_id", callerID).
		Msg("Couple request accepted")

	s.notifyCounterparty(ctx, callerID, requestID, NotifyRequestAccepted, coupleID)
	return coupleID, nil
}

// Decline declines a pending request addressed to the caller
func (s *PairingService) Decline(ctx context.Context, requestID string) (err error) {
	ctx, span := startSpan(ctx, "pairing.Decline")
	defer func() {
		metrics.CoupleRequestOps.WithLabelValues("decline", metrics.Result(err)).Inc()
		endSpan(span, err)
	}()

	callerID, err := s.prepareTransition(ctx, requestID)
	if err != nil {
		return err
	}
	if err := s.requests.Decline(ctx, callerID, requestID); err != nil {
		return apperr.Remote(err)
	}

	log.Info().Str("request_id", requestID).Str("user_id", callerID).Msg("Couple request declined")
	s.notifyCounterparty(ctx, callerID, requestID, NotifyRequestDeclined, "")
	return nil
}

// Cancel cancels a pending request sent by the caller
func (s *PairingService) Cancel(ctx context.Context, requestID string) (err error) {
	ctx, span := startSpan(ctx, "pairing.Cancel")
	defer func() {
		metrics.CoupleRequestOps.WithLabelValues("cancel", metrics.Result(err)).Inc()
		endSpan(span, err)
	}()

	callerID, err := s.prepareTransition(ctx, requestID)
	if err != nil {
		return err
	}
	if err := s.requests.Cancel(ctx, callerID, requestID); err != nil {
		return apperr.Remote(err)
	}

	log.Info().Str("request_id", requestID).Str("user_id", callerID).Msg("Couple request canceled")
	s.notifyCounterparty(ctx, callerID, requestID, NotifyRequestCanceled, "")
	return nil
}

func (s *PairingService) prepareTransition(ctx context.Context, requestID string) (string, error) {
	if strings.TrimSpace(requestID) == "" {
		return "", apperr.Validation("request id is required")
	}
	return requireCaller(ctx, s.identity)
}

// notifyCounterparty tells the other party of requestID about a transition
func (s *PairingService) notifyCounterparty(ctx context.Context, callerID, requestID string, kind NotificationKind, coupleID string) {
	if s.notifier == nil {
		return
	}
	req, err := s.requests.GetByID(ctx, requestID)
	if err != nil {
		log.Warn().Err(err).Str("request_id", requestID).Msg("Failed to load couple request for notification")
		return
	}
	other := req.RequesterID
	if other == callerID {
		other = req.RecipientID
	}
	notify(ctx, s.notifier, Notification{
		Kind:      kind,
		UserID:    other,
		ActorID:   callerID,
		RequestID: requestID,
		CoupleID:  coupleID,
	})
}

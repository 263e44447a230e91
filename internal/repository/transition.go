package repository

import (
	"fmt"

	"bloom-backend/internal/models"
)

// RequestAction is a transition a caller applies to a couple request
type RequestAction string

const (
	ActionAccept  RequestAction = "accept"
	ActionDecline RequestAction = "decline"
	ActionCancel  RequestAction = "cancel"
)

// Target returns the status the action moves a pending request to
func (a RequestAction) Target() models.CoupleRequestStatus {
	switch a {
	case ActionAccept:
		return models.CoupleRequestAccepted
	case ActionDecline:
		return models.CoupleRequestDeclined
	case ActionCancel:
		return models.CoupleRequestCanceled
	}
	return ""
}

// CheckTransition decides whether callerID may apply action to req. It is
// the transition guard shared by every storage backend and must run inside
// the backend's atomic section. done is true when req already sits in the
// action's target state, in which case the caller must not write anything.
func CheckTransition(req *models.CoupleRequest, callerID string, action RequestAction) (done bool, err error) {
	switch action {
	case ActionAccept, ActionDecline:
		if req.RecipientID != callerID {
			return false, ErrNotRecipient
		}
	case ActionCancel:
		if req.RequesterID != callerID {
			return false, ErrNotRequester
		}
	default:
		return false, fmt.Errorf("unknown request action %q", action)
	}

	switch req.Status {
	case models.CoupleRequestPending:
		return false, nil
	case action.Target():
		return true, nil
	default:
		return false, fmt.Errorf("%w (status: %s)", ErrNotPending, req.Status)
	}
}

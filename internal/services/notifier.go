package services

import (
	"context"

	"github.com/rs/zerolog/log"
)

// NotificationKind is the kind of event delivered to a user
type NotificationKind string

const (
	NotifyRequestReceived NotificationKind = "couple_request_received"
	NotifyRequestAccepted NotificationKind = "couple_request_accepted"
	NotifyRequestDeclined NotificationKind = "couple_request_declined"
	NotifyRequestCanceled NotificationKind = "couple_request_canceled"
	NotifyPartnerAnswered NotificationKind = "partner_answered"
)

// Notification is addressed to UserID. It never carries answer content.
type Notification struct {
	Kind       NotificationKind `json:"kind"`
	UserID     string           `json:"user_id"`
	ActorID    string           `json:"actor_id,omitempty"`
	RequestID  string           `json:"request_id,omitempty"`
	CoupleID   string           `json:"couple_id,omitempty"`
	QuestionID string           `json:"question_id,omitempty"`
}

// Notifier delivers notifications to users
type Notifier interface {
	Notify(ctx context.Context, n Notification) error
}

// Notifiers fans a notification out to several notifiers
type Notifiers []Notifier

// Notify implements Notifier. Every notifier is tried; the first error is returned.
func (ns Notifiers) Notify(ctx context.Context, n Notification) error {
	var first error
	for _, notifier := range ns {
		if err := notifier.Notify(ctx, n); err != nil && first == nil {
			first = err
		}
	}
	return first
}

// notify delivers n and logs a failure. Delivery never fails the calling operation.
func notify(ctx context.Context, notifier Notifier, n Notification) {
	if notifier == nil || n.UserID == "" {
		return
	}
	if err := notifier.Notify(ctx, n); err != nil {
		log.Warn().
			Err(err).
			Str("user_id", n.UserID).
			Str("kind", string(n.Kind)).
			Msg("Failed to deliver notification")
	}
}

package services

import (
	"context"
	"fmt"
	"strings"

	"bloom-backend/internal/apperr"
	"bloom-backend/internal/config"
	"bloom-backend/internal/identity"
	"bloom-backend/internal/metrics"
	"bloom-backend/internal/models"
	"bloom-backend/internal/repository"

	"github.com/rs/zerolog/log"
	"github.com/sideshow/apns2"
	"github.com/sideshow/apns2/payload"
	"github.com/sideshow/apns2/token"
)

// APNsClient is the subset of *apns2.Client used by PushService
type APNsClient interface {
	PushWithContext(ctx apns2.Context, n *apns2.Notification) (*apns2.Response, error)
}

// PushService stores device tokens and delivers notifications over APNs
type PushService struct {
	tokens repository.PushTokenRepository
	client APNsClient
	topic  string
}

// NewPushService creates a new push service. client may be nil, in which
// case tokens are still stored but nothing is sent.
func NewPushService(tokens repository.PushTokenRepository, client APNsClient, topic string) *PushService {
	return &PushService{
		tokens: tokens,
		client: client,
		topic:  topic,
	}
}

// NewAPNsClient builds a token-authenticated APNs client from cfg, or nil when push is not configured
func NewAPNsClient(cfg config.APNsConfig) (*apns2.Client, error) {
	if cfg.KeyFile == "" {
		return nil, nil
	}
	authKey, err := token.AuthKeyFromFile(cfg.KeyFile)
	if err != nil {
		return nil, fmt.Errorf("failed to load APNs key: %w", err)
	}
	client := apns2.NewTokenClient(&token.Token{
		AuthKey: authKey,
		KeyID:   cfg.KeyID,
		TeamID:  cfg.TeamID,
	})
	if cfg.Production {
		return client.Production(), nil
	}
	return client.Development(), nil
}

// RegisterTokenRequest represents a request to register a device token
type RegisterTokenRequest struct {
	Token    string  `json:"token"`
	Platform *string `json:"platform,omitempty"`
}

// RegisterToken stores a device token for the caller
func (s *PushService) RegisterToken(ctx context.Context, deviceToken string, platform *string) (*models.PushToken, error) {
	deviceToken = strings.TrimSpace(deviceToken)
	if deviceToken == "" {
		return nil, apperr.Validation("token is required")
	}
	userID := identity.UserID(ctx)
	if userID == "" {
		return nil, apperr.ErrNotAuthenticated
	}

	pt := &models.PushToken{UserID: userID, Token: deviceToken, Platform: platform}
	if err := s.tokens.Upsert(ctx, pt); err != nil {
		return nil, apperr.Remote(err)
	}
	return pt, nil
}

// Notify implements Notifier by pushing an alert to every device of n.UserID
func (s *PushService) Notify(ctx context.Context, n Notification) error {
	if s.client == nil {
		return nil
	}
	tokens, err := s.tokens.ListByUser(ctx, n.UserID)
	if err != nil {
		return fmt.Errorf("failed to list push tokens: %w", err)
	}

	title, body := alertText(n.Kind)
	p := payload.NewPayload().
		AlertTitle(title).
		AlertBody(body).
		Sound("default").
		Custom("kind", string(n.Kind))
	if n.RequestID != "" {
		p.Custom("request_id", n.RequestID)
	}
	if n.QuestionID != "" {
		p.Custom("question_id", n.QuestionID)
	}

	var firstErr error
	for _, t := range tokens {
		res, err := s.client.PushWithContext(ctx, &apns2.Notification{
			DeviceToken: t.Token,
			Topic:       s.topic,
			Payload:     p,
		})
		if err != nil {
			metrics.PushSent.WithLabelValues(metrics.ResultError).Inc()
			if firstErr == nil {
				firstErr = fmt.Errorf("failed to push notification: %w", err)
			}
			continue
		}
		if res.Sent() {
			metrics.PushSent.WithLabelValues(metrics.ResultOK).Inc()
			continue
		}

		metrics.PushSent.WithLabelValues(metrics.ResultError).Inc()
		log.Warn().
			Str("user_id", n.UserID).
			Int("status", res.StatusCode).
			Str("reason", res.Reason).
			Msg("APNs rejected notification")
		if res.Reason == apns2.ReasonBadDeviceToken || res.Reason == apns2.ReasonUnregistered {
			if err := s.tokens.Delete(ctx, t.Token); err != nil {
				log.Error().Err(err).Str("user_id", n.UserID).Msg("Failed to delete stale push token")
			}
		}
	}
	return firstErr
}

func alertText(kind NotificationKind) (string, string) {
	switch kind {
	case NotifyRequestReceived:
		return "New couple request", "Someone wants to pair with you."
	case NotifyRequestAccepted:
		return "You're paired!", "Your couple request was accepted."
	case NotifyRequestDeclined:
		return "Couple request declined", "Your couple request was declined."
	case NotifyRequestCanceled:
		return "Couple request canceled", "A couple request to you was canceled."
	case NotifyPartnerAnswered:
		return "Your partner answered", "Answer today's question to see what they said."
	}
	return "Bloom", string(kind)
}

package handlers

import (
	"context"
	"encoding/json"
	"net/http"

	"bloom-backend/internal/identity"
	"bloom-backend/internal/middleware"
	"bloom-backend/internal/repository"
	"bloom-backend/internal/services"
	"bloom-backend/internal/session"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog/log"
)

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool {
		return true // mobile clients send no Origin
	},
}

// WebSocketHandler handles WebSocket connections. Each connection runs one
// session that follows the user's identity events and pushes snapshots.
type WebSocketHandler struct {
	hub             *services.WSHub
	broker          *identity.Broker
	userService     *services.UserService
	pairingService  *services.PairingService
	questionService *services.QuestionService
	couples         repository.CoupleRepository
}

// NewWebSocketHandler creates a new WebSocket handler
func NewWebSocketHandler(
	hub *services.WSHub,
	broker *identity.Broker,
	userService *services.UserService,
	pairingService *services.PairingService,
	questionService *services.QuestionService,
	couples repository.CoupleRepository,
) *WebSocketHandler {
	return &WebSocketHandler{
		hub:             hub,
		broker:          broker,
		userService:     userService,
		pairingService:  pairingService,
		questionService: questionService,
		couples:         couples,
	}
}

// HandleWebSocket handles GET /ws?token=...
func (h *WebSocketHandler) HandleWebSocket(w http.ResponseWriter, r *http.Request) {
	userID, err := middleware.ValidateWebSocketToken(r.Context(), r.URL.Query().Get("token"), h.userService)
	if err != nil {
		respondError(w, "invalid token", http.StatusUnauthorized)
		return
	}

	// Upgrade connection
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Error().Err(err).Msg("Failed to upgrade WebSocket connection")
		return
	}
	defer conn.Close()

	ctx, cancel := context.WithCancel(identity.WithUserID(context.Background(), userID))
	defer cancel()

	h.hub.Register(userID, conn)
	defer h.hub.Unregister(userID, conn)

	events, unsubscribe := h.broker.Subscribe(userID)
	defer unsubscribe()

	sess := session.New(userID, h.pairingService, h.questionService, func(snap session.Snapshot) {
		if err := h.hub.SendToUser(userID, services.WSMessage{Type: "snapshot", Data: snap}); err != nil {
			log.Error().Err(err).Str("user_id", userID).Msg("Failed to send snapshot")
		}
		if !snap.SignedIn {
			conn.Close()
		}
	})
	if err := sess.Refresh(ctx); err != nil {
		log.Error().Err(err).Str("user_id", userID).Msg("Failed to load initial snapshot")
		h.sendError(userID, err.Error())
	}
	go sess.Run(ctx, events)

	partnerID := h.partnerID(ctx, userID)
	h.hub.NotifyPartnerStatus(partnerID, true)
	defer h.hub.NotifyPartnerStatus(partnerID, false)

	log.Info().Str("user_id", userID).Msg("WebSocket connection established")

	// Handle messages
	for {
		_, messageBytes, err := conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				log.Error().Err(err).Str("user_id", userID).Msg("WebSocket error")
			}
			break
		}

		var msg services.WSMessage
		if err := json.Unmarshal(messageBytes, &msg); err != nil {
			log.Error().Err(err).Str("user_id", userID).Msg("Failed to parse WebSocket message")
			h.sendError(userID, "Invalid message format")
			continue
		}

		switch msg.Type {
		case "refresh":
			if err := sess.Refresh(ctx); err != nil {
				log.Error().Err(err).Str("user_id", userID).Msg("Failed to refresh session")
				h.sendError(userID, err.Error())
			}
		case "ping":
			if err := h.hub.SendToUser(userID, services.WSMessage{Type: "pong"}); err != nil {
				log.Error().Err(err).Str("user_id", userID).Msg("Failed to send pong")
			}
		default:
			h.sendError(userID, "Unknown message type")
		}
	}
}

func (h *WebSocketHandler) partnerID(ctx context.Context, userID string) string {
	coupleID, err := h.couples.CoupleIDForUser(ctx, userID)
	if err != nil {
		return ""
	}
	members, err := h.couples.Members(ctx, coupleID)
	if err != nil {
		log.Error().Err(err).Str("couple_id", coupleID).Msg("Failed to load couple members")
		return ""
	}
	for _, m := range members {
		if m.UserID != userID {
			return m.UserID
		}
	}
	return ""
}

// sendError sends an error message to a user
func (h *WebSocketHandler) sendError(userID, message string) {
	msg := services.WSMessage{
		Type:    "error",
		Message: message,
	}
	if err := h.hub.SendToUser(userID, msg); err != nil {
		log.Error().Err(err).Str("user_id", userID).Msg("Failed to send error message")
	}
}

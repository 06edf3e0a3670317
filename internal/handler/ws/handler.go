// Package ws carries chat turns over a websocket bound to one session.
package ws

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog/log"

	"github.com/skinmatch/chatbot/backend/internal/handler/apierr"
	"github.com/skinmatch/chatbot/backend/internal/service/consult"
)

const (
	readTimeout  = 60 * time.Second
	pingInterval = 54 * time.Second
	writeTimeout = 10 * time.Second
)

// Handler upgrades /ws/{sessionID} and runs one chat turn per inbound message.
type Handler struct {
	svc      *consult.Service
	upgrader websocket.Upgrader
}

// New creates a websocket handler. checkOrigin may be nil to accept any origin.
func New(svc *consult.Service, checkOrigin func(r *http.Request) bool) *Handler {
	if checkOrigin == nil {
		checkOrigin = func(*http.Request) bool { return true }
	}
	return &Handler{
		svc: svc,
		upgrader: websocket.Upgrader{
			CheckOrigin:     checkOrigin,
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
		},
	}
}

// RegisterRoutes mounts the websocket route on r.
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Get("/ws/{sessionID}", h.handleWebSocket)
}

type inboundMessage struct {
	Type    string `json:"type"`
	Message string `json:"message"`
}

type outgoingMessage struct {
	Type      string      `json:"type"`
	SessionID string      `json:"sessionId,omitempty"`
	Data      interface{} `json:"data,omitempty"`
	Timestamp int64       `json:"timestamp"`
}

func (h *Handler) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	sessionID := chi.URLParam(r, "sessionID")
	if _, err := h.svc.Snapshot(sessionID); err != nil {
		apierr.Respond(w, err)
		return
	}

	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Warn().Err(err).Str("session_id", sessionID).Msg("websocket upgrade failed")
		return
	}
	defer conn.Close()

	logger := log.With().Str("session_id", sessionID).Logger()
	logger.Info().Msg("websocket connected")

	ctx, cancel := context.WithCancel(r.Context())
	defer cancel()

	_ = conn.SetReadDeadline(time.Now().Add(readTimeout))
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(readTimeout))
	})

	// writeLoop is the only writer on conn.
	writes := make(chan outgoingMessage)
	done := make(chan struct{})
	go h.writeLoop(ctx, conn, writes, done)
	defer func() {
		cancel()
		<-done
	}()

	send := func(msg outgoingMessage) bool {
		msg.Timestamp = time.Now().Unix()
		select {
		case writes <- msg:
			return true
		case <-done:
			return false
		case <-ctx.Done():
			return false
		}
	}

	send(outgoingMessage{Type: "connected", SessionID: sessionID})

	for {
		_, raw, err := conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				logger.Warn().Err(err).Msg("websocket read failed")
			}
			return
		}
		_ = conn.SetReadDeadline(time.Now().Add(readTimeout))

		var msg inboundMessage
		if err := json.Unmarshal(raw, &msg); err != nil {
			send(errorMessage(sessionID, "invalid message payload"))
			continue
		}
		if !send(h.handleMessage(ctx, sessionID, msg)) {
			return
		}
	}
}

func (h *Handler) handleMessage(ctx context.Context, sessionID string, msg inboundMessage) outgoingMessage {
	switch msg.Type {
	case "message":
		if msg.Message == "" {
			return errorMessage(sessionID, "message is required")
		}
		reply, err := h.svc.Converse(ctx, sessionID, msg.Message)
		if err != nil {
			return outgoingMessage{
				Type:      "error",
				SessionID: sessionID,
				Data:      map[string]any{"message": err.Error(), "status": apierr.Status(err)},
			}
		}
		return outgoingMessage{Type: "reply", SessionID: sessionID, Data: map[string]string{"reply": reply}}
	case "ping":
		return outgoingMessage{Type: "pong", SessionID: sessionID}
	default:
		return errorMessage(sessionID, "unsupported message type: "+msg.Type)
	}
}

func errorMessage(sessionID, message string) outgoingMessage {
	return outgoingMessage{
		Type:      "error",
		SessionID: sessionID,
		Data:      map[string]any{"message": message, "status": http.StatusBadRequest},
	}
}

// writeLoop owns all writes to conn: queued frames and periodic pings.
func (h *Handler) writeLoop(ctx context.Context, conn *websocket.Conn, writes <-chan outgoingMessage, done chan<- struct{}) {
	defer close(done)
	ticker := time.NewTicker(pingInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case msg := <-writes:
			_ = conn.SetWriteDeadline(time.Now().Add(writeTimeout))
			if err := conn.WriteJSON(msg); err != nil {
				log.Warn().Err(err).Str("session_id", msg.SessionID).Msg("websocket write failed")
				return
			}
		case <-ticker.C:
			_ = conn.SetWriteDeadline(time.Now().Add(writeTimeout))
			if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

// OriginChecker accepts requests whose Origin is in allowed, or any origin
// when allowed contains "*".
func OriginChecker(allowed []string) func(r *http.Request) bool {
	set := make(map[string]struct{}, len(allowed))
	for _, origin := range allowed {
		if origin == "*" {
			return nil
		}
		set[origin] = struct{}{}
	}
	return func(r *http.Request) bool {
		origin := r.Header.Get("Origin")
		if origin == "" {
			return true
		}
		_, ok := set[origin]
		return ok
	}
}

// websocket.go - WebSocket push channel for session load progress
package api

import (
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"github.com/f1-visualizer/backend/internal/log"
	"github.com/f1-visualizer/backend/internal/models"
)

// WebSocket message types for the session progress protocol
const (
	// Client -> Server messages
	MsgTypeSubscribe   = "subscribe"
	MsgTypeUnsubscribe = "unsubscribe"
	MsgTypePing        = "ping"

	// Server -> Client messages
	MsgTypeConnected = "connected"
	MsgTypeStatus    = "status"
	MsgTypeError     = "error"
	MsgTypePong      = "pong"
)

// WSMessage is the envelope for both directions.
type WSMessage struct {
	Type      string                  `json:"type"`
	SessionID string                  `json:"sessionId,omitempty"`
	Session   *models.AnalysisSession `json:"session,omitempty"`
	Message   string                  `json:"message,omitempty"`
	Timestamp int64                   `json:"timestamp"`
}

// WebSocketHandler pushes session load progress to connected clients.
type WebSocketHandler struct {
	sessionMgr SessionManager
	upgrader   websocket.Upgrader
}

// NewWebSocketHandler creates a new progress push handler.
func NewWebSocketHandler(sessionMgr SessionManager) *WebSocketHandler {
	return &WebSocketHandler{
		sessionMgr: sessionMgr,
		upgrader: websocket.Upgrader{
			CheckOrigin: func(r *http.Request) bool {
				// The API is same-origin in production and proxied in dev.
				return true
			},
			ReadBufferSize:  4 * 1024,
			WriteBufferSize: 4 * 1024,
		},
	}
}

// wsConn wraps a connection with a write lock shared by the pushers.
type wsConn struct {
	ws      *websocket.Conn
	writeMu sync.Mutex
}

func (c *wsConn) send(msg WSMessage) error {
	msg.Timestamp = time.Now().UnixMilli()
	c.writeMu.Lock()
	defer c.writeMu.Unlock()
	return c.ws.WriteJSON(msg)
}

// HandleWebSocket upgrades the connection and serves the subscribe protocol.
func (h *WebSocketHandler) HandleWebSocket(c echo.Context) error {
	ws, err := h.upgrader.Upgrade(c.Response(), c.Request(), nil)
	if err != nil {
		return err
	}
	conn := &wsConn{ws: ws}
	defer ws.Close()

	log.L().Debug("websocket client connected")
	conn.send(WSMessage{Type: MsgTypeConnected})

	// Per-session cancel channels for active subscriptions.
	var mu sync.Mutex
	subs := make(map[string]chan struct{})
	defer func() {
		mu.Lock()
		for _, stop := range subs {
			close(stop)
		}
		mu.Unlock()
	}()

	for {
		var msg WSMessage
		if err := ws.ReadJSON(&msg); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				log.L().Debug("websocket read error", zap.Error(err))
			}
			return nil
		}

		switch msg.Type {
		case MsgTypePing:
			conn.send(WSMessage{Type: MsgTypePong})

		case MsgTypeSubscribe:
			if msg.SessionID == "" {
				conn.send(WSMessage{Type: MsgTypeError, Message: "sessionId is required"})
				continue
			}
			if _, ok := h.sessionMgr.GetSession(msg.SessionID); !ok {
				conn.send(WSMessage{Type: MsgTypeError, SessionID: msg.SessionID, Message: "session not found"})
				continue
			}

			mu.Lock()
			if _, dup := subs[msg.SessionID]; dup {
				mu.Unlock()
				continue
			}
			stop := make(chan struct{})
			subs[msg.SessionID] = stop
			mu.Unlock()

			go h.pushProgress(conn, msg.SessionID, stop, func() {
				mu.Lock()
				delete(subs, msg.SessionID)
				mu.Unlock()
			})

		case MsgTypeUnsubscribe:
			mu.Lock()
			if stop, ok := subs[msg.SessionID]; ok {
				close(stop)
				delete(subs, msg.SessionID)
			}
			mu.Unlock()

		default:
			conn.send(WSMessage{Type: MsgTypeError, Message: "unknown message type: " + msg.Type})
		}
	}
}

// pushProgress streams status updates until the session settles or the
// subscription is cancelled.
func (h *WebSocketHandler) pushProgress(conn *wsConn, sessionID string, stop <-chan struct{}, done func()) {
	defer done()

	ticker := time.NewTicker(200 * time.Millisecond)
	defer ticker.Stop()

	timeout := time.NewTimer(5 * time.Minute)
	defer timeout.Stop()

	push := func() (settled bool) {
		sess, ok := h.sessionMgr.GetSession(sessionID)
		if !ok {
			conn.send(WSMessage{Type: MsgTypeError, SessionID: sessionID, Message: "session not found"})
			return true
		}
		if err := conn.send(WSMessage{Type: MsgTypeStatus, SessionID: sessionID, Session: sess}); err != nil {
			return true
		}
		return sess.Status == models.StatusComplete || sess.Status == models.StatusError
	}

	if push() {
		return
	}
	for {
		select {
		case <-ticker.C:
			if push() {
				return
			}
		case <-stop:
			return
		case <-timeout.C:
			conn.send(WSMessage{Type: MsgTypeError, SessionID: sessionID, Message: "stream timeout"})
			return
		}
	}
}

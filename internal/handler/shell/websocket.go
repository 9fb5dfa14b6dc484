package shell

import (
	"context"
	"encoding/json"
	"errors"
	"html/template"
	"net/http"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	middlewarePkg "github.com/zhouzirui/legal-assistant/backend/internal/middleware"
	"github.com/zhouzirui/legal-assistant/backend/internal/model/chat"
	chatservice "github.com/zhouzirui/legal-assistant/backend/internal/service/chat"
	"github.com/zhouzirui/legal-assistant/backend/internal/view"
)

const (
	readTimeout  = 60 * time.Second
	pingInterval = 54 * time.Second
	writeTimeout = 10 * time.Second

	// maxMessageSize bounds one inbound frame, pasted context included.
	maxMessageSize = 1 << 20
)

// WebSocketHandler drives one chat shell per connection. The shell lives
// exactly as long as the page that opened it: only one socket may attach to
// a session, and its disconnect discards the shell.
type WebSocketHandler struct {
	chatSvc  *chatservice.Service
	renderer *view.Renderer
	logger   *zap.Logger
	upgrader websocket.Upgrader
}

// NewWebSocketHandler 创建WebSocket处理器
func NewWebSocketHandler(chatSvc *chatservice.Service, renderer *view.Renderer, allowedOrigins []string, logger *zap.Logger) *WebSocketHandler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &WebSocketHandler{
		chatSvc:  chatSvc,
		renderer: renderer,
		logger:   logger,
		upgrader: websocket.Upgrader{
			CheckOrigin:     middlewarePkg.OriginChecker(allowedOrigins),
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
		},
	}
}

// RegisterWebSocketRoutes 注册WebSocket路由
func (h *WebSocketHandler) RegisterWebSocketRoutes(r chi.Router) {
	r.Get("/ws/{sessionID}", h.handleWebSocket)
}

type inboundMessage struct {
	Type      string          `json:"type"`
	SessionID string          `json:"sessionId"`
	Data      json.RawMessage `json:"data"`
	Timestamp int64           `json:"timestamp"`
}

// TextMessage carries a replacement draft text.
type TextMessage struct {
	Text string `json:"text"`
}

// ToggleMessage carries the requested context editor visibility.
type ToggleMessage struct {
	Visible bool `json:"visible"`
}

type outgoingMessage struct {
	Type      string      `json:"type"`
	SessionID string      `json:"sessionId,omitempty"`
	Data      interface{} `json:"data,omitempty"`
	Timestamp int64       `json:"timestamp"`
}

// StatePayload is pushed after every event.
type StatePayload struct {
	Composer     chat.Composer `json:"composer"`
	MessagesHTML template.HTML `json:"messagesHtml"`
	MessageCount int           `json:"messageCount"`
}

type connection struct {
	conn      *websocket.Conn
	sessionID string
	writeMu   sync.Mutex
}

func (c *connection) writeJSON(v any) error {
	c.writeMu.Lock()
	defer c.writeMu.Unlock()
	_ = c.conn.SetWriteDeadline(time.Now().Add(writeTimeout))
	return c.conn.WriteJSON(v)
}

func (c *connection) writePing() error {
	c.writeMu.Lock()
	defer c.writeMu.Unlock()
	return c.conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(writeTimeout))
}

// handleWebSocket 处理WebSocket连接
func (h *WebSocketHandler) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	sessionID := chi.URLParam(r, "sessionID")
	if sessionID == "" {
		http.Error(w, "sessionID is required", http.StatusBadRequest)
		return
	}

	if !h.upgrader.CheckOrigin(r) {
		http.Error(w, "origin not allowed", http.StatusForbidden)
		return
	}

	if err := h.chatSvc.Attach(r.Context(), sessionID); err != nil {
		switch {
		case errors.Is(err, chatservice.ErrSessionNotFound):
			http.Error(w, "session not found", http.StatusNotFound)
		case errors.Is(err, chatservice.ErrSessionInUse):
			http.Error(w, "session already connected", http.StatusConflict)
		default:
			h.logger.Error("attach session failed", zap.String("session", sessionID), zap.Error(err))
			http.Error(w, "internal error", http.StatusInternalServerError)
		}
		return
	}

	log := h.logger.With(zap.String("session", sessionID))

	// From here on this request owns the shell and discards it on exit.
	defer func() {
		if err := h.chatSvc.CloseSession(context.Background(), sessionID); err != nil && !errors.Is(err, chatservice.ErrSessionNotFound) {
			log.Warn("close session failed", zap.Error(err))
		}
	}()

	snapshot, err := h.chatSvc.Snapshot(r.Context(), sessionID)
	if err != nil {
		http.Error(w, "session not found", http.StatusNotFound)
		return
	}

	ws, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Warn("websocket upgrade failed", zap.Error(err))
		return
	}
	conn := &connection{conn: ws, sessionID: sessionID}

	defer func() {
		_ = ws.Close()
		log.Debug("websocket closed")
	}()

	log.Debug("websocket connected")

	ctx, cancel := context.WithCancel(r.Context())
	defer cancel()

	ws.SetReadLimit(maxMessageSize)
	_ = ws.SetReadDeadline(time.Now().Add(readTimeout))
	ws.SetPongHandler(func(string) error {
		_ = h.chatSvc.Touch(ctx, sessionID)
		return ws.SetReadDeadline(time.Now().Add(readTimeout))
	})

	go h.pingLoop(ctx, conn)

	h.sendState(conn, snapshot)

	for {
		var msg inboundMessage
		if err := ws.ReadJSON(&msg); err != nil {
			if errors.Is(err, websocket.ErrReadLimit) {
				log.Warn("websocket frame too large", zap.Int("limit", maxMessageSize))
			} else if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				log.Info("websocket read error", zap.Error(err))
			}
			return
		}

		_ = ws.SetReadDeadline(time.Now().Add(readTimeout))

		if msg.SessionID != "" && msg.SessionID != sessionID {
			h.sendError(conn, "session mismatch")
			continue
		}

		if !h.handleMessage(ctx, conn, &msg) {
			return
		}
	}
}

// handleMessage applies one inbound event. It reports false once the
// session is gone and the connection should end.
func (h *WebSocketHandler) handleMessage(ctx context.Context, conn *connection, msg *inboundMessage) bool {
	var (
		snapshot chat.Snapshot
		err      error
	)

	switch msg.Type {
	case "question":
		var text TextMessage
		if !h.decode(conn, msg.Data, &text) {
			return true
		}
		snapshot, err = h.chatSvc.UpdateQuestion(ctx, conn.sessionID, text.Text)
	case "context":
		var text TextMessage
		if !h.decode(conn, msg.Data, &text) {
			return true
		}
		snapshot, err = h.chatSvc.UpdateContext(ctx, conn.sessionID, text.Text)
	case "toggleContext":
		var toggle ToggleMessage
		if !h.decode(conn, msg.Data, &toggle) {
			return true
		}
		snapshot, err = h.chatSvc.ToggleContextEditor(ctx, conn.sessionID, toggle.Visible)
	case "submit":
		var result chatservice.SubmitResult
		result, err = h.chatSvc.Submit(ctx, conn.sessionID)
		snapshot = result.Snapshot
	default:
		h.sendError(conn, "unsupported message type: "+msg.Type)
		return true
	}

	switch {
	case errors.Is(err, chatservice.ErrSessionNotFound):
		h.sendError(conn, err.Error())
		return false
	case errors.Is(err, chatservice.ErrContextEditorHidden):
		h.sendError(conn, err.Error())
	case err != nil:
		h.logger.Error("shell event failed", zap.String("type", msg.Type), zap.Error(err))
		h.sendError(conn, "internal error")
		return true
	}

	h.sendState(conn, snapshot)
	return true
}

func (h *WebSocketHandler) decode(conn *connection, raw json.RawMessage, v any) bool {
	if len(raw) == 0 {
		raw = json.RawMessage("{}")
	}
	if err := json.Unmarshal(raw, v); err != nil {
		h.sendError(conn, "invalid payload")
		return false
	}
	return true
}

func (h *WebSocketHandler) sendState(conn *connection, snapshot chat.Snapshot) {
	messagesHTML, err := h.renderer.Messages(snapshot.Messages)
	if err != nil {
		h.logger.Error("render messages failed", zap.Error(err))
		h.sendError(conn, "render failed")
		return
	}

	msg := outgoingMessage{
		Type:      "state",
		SessionID: conn.sessionID,
		Data: StatePayload{
			Composer:     snapshot.Composer,
			MessagesHTML: messagesHTML,
			MessageCount: len(snapshot.Messages),
		},
		Timestamp: time.Now().Unix(),
	}
	if err := conn.writeJSON(msg); err != nil {
		h.logger.Debug("write state failed", zap.Error(err))
	}
}

func (h *WebSocketHandler) sendError(conn *connection, message string) {
	msg := outgoingMessage{
		Type:      "error",
		Data:      map[string]string{"message": message},
		Timestamp: time.Now().Unix(),
	}
	if err := conn.writeJSON(msg); err != nil {
		h.logger.Debug("write error failed", zap.Error(err))
	}
}

// pingLoop 定期发送ping消息
func (h *WebSocketHandler) pingLoop(ctx context.Context, conn *connection) {
	ticker := time.NewTicker(pingInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := conn.writePing(); err != nil {
				return
			}
		}
	}
}

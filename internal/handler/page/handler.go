package page

import (
	"bytes"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	chatservice "github.com/zhouzirui/legal-assistant/backend/internal/service/chat"
	"github.com/zhouzirui/legal-assistant/backend/internal/view"
)

// Handler serves the chat page. Every load starts a new, empty shell that
// stays pending until the page's websocket attaches to it.
type Handler struct {
	chatSvc  *chatservice.Service
	renderer *view.Renderer
	logger   *zap.Logger
}

// New 创建页面处理器
func New(chatSvc *chatservice.Service, renderer *view.Renderer, logger *zap.Logger) *Handler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Handler{chatSvc: chatSvc, renderer: renderer, logger: logger}
}

// RegisterRoutes 注册页面路由
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Get("/", h.handleIndex)
}

func (h *Handler) handleIndex(w http.ResponseWriter, r *http.Request) {
	session, err := h.chatSvc.CreatePageSession(r.Context())
	if err != nil {
		if errors.Is(err, chatservice.ErrTooManySessions) {
			http.Error(w, "too many active sessions, try again later", http.StatusServiceUnavailable)
			return
		}
		h.logger.Error("create session failed", zap.Error(err))
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}

	snapshot, err := h.chatSvc.Snapshot(r.Context(), session.ID)
	if err != nil {
		h.logger.Error("load snapshot failed", zap.String("session", session.ID), zap.Error(err))
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}

	var buf bytes.Buffer
	err = h.renderer.Page(&buf, view.PageData{
		SessionID:     session.ID,
		WebSocketPath: "/ws/" + session.ID,
		Snapshot:      snapshot,
	})
	if err != nil {
		_ = h.chatSvc.CloseSession(r.Context(), session.ID)
		h.logger.Error("render page failed", zap.Error(err))
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.Header().Set("Cache-Control", "no-store")
	w.WriteHeader(http.StatusOK)
	_, _ = buf.WriteTo(w)
}

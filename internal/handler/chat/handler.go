package chat

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	chatService "github.com/zhouzirui/legal-assistant/backend/internal/service/chat"
	"github.com/zhouzirui/legal-assistant/backend/pkg/utils"
)

// maxBodyBytes 限制单个请求体大小
const maxBodyBytes = 1 << 20

// Handler 聊天外壳的 JSON API 处理器
type Handler struct {
	chatSvc *chatService.Service
	logger  *zap.Logger
}

// New 创建聊天处理器
func New(chatSvc *chatService.Service, logger *zap.Logger) *Handler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Handler{
		chatSvc: chatSvc,
		logger:  logger,
	}
}

// RegisterRoutes 注册聊天相关的路由
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Post("/session", h.handleCreateSession)
	r.Route("/session/{sessionID}", func(r chi.Router) {
		r.Get("/", h.handleGetSession)
		r.Delete("/", h.handleCloseSession)
		r.Get("/messages", h.handleListMessages)
		r.Put("/question", h.handleUpdateQuestion)
		r.Put("/context", h.handleUpdateContext)
		r.Put("/context-editor", h.handleToggleContextEditor)
		r.Post("/submit", h.handleSubmit)
	})
}

type textPayload struct {
	Text string `json:"text"`
}

type visibilityPayload struct {
	Visible *bool `json:"visible"`
}

// handleCreateSession 创建会话
func (h *Handler) handleCreateSession(w http.ResponseWriter, r *http.Request) {
	session, err := h.chatSvc.CreateSession(r.Context())
	if err != nil {
		h.respondServiceError(w, err)
		return
	}
	utils.RespondJSON(w, http.StatusCreated, session)
}

func (h *Handler) handleGetSession(w http.ResponseWriter, r *http.Request) {
	snapshot, err := h.chatSvc.Snapshot(r.Context(), chi.URLParam(r, "sessionID"))
	if err != nil {
		h.respondServiceError(w, err)
		return
	}
	utils.RespondJSON(w, http.StatusOK, snapshot)
}

func (h *Handler) handleCloseSession(w http.ResponseWriter, r *http.Request) {
	if err := h.chatSvc.CloseSession(r.Context(), chi.URLParam(r, "sessionID")); err != nil {
		h.respondServiceError(w, err)
		return
	}
	utils.RespondNoContent(w)
}

func (h *Handler) handleListMessages(w http.ResponseWriter, r *http.Request) {
	messages, err := h.chatSvc.LoadTranscript(r.Context(), chi.URLParam(r, "sessionID"))
	if err != nil {
		h.respondServiceError(w, err)
		return
	}
	utils.RespondJSON(w, http.StatusOK, messages)
}

func (h *Handler) handleUpdateQuestion(w http.ResponseWriter, r *http.Request) {
	var payload textPayload
	if !decodeBody(w, r, &payload) {
		return
	}

	snapshot, err := h.chatSvc.UpdateQuestion(r.Context(), chi.URLParam(r, "sessionID"), payload.Text)
	if err != nil {
		h.respondServiceError(w, err)
		return
	}
	utils.RespondJSON(w, http.StatusOK, snapshot)
}

func (h *Handler) handleUpdateContext(w http.ResponseWriter, r *http.Request) {
	var payload textPayload
	if !decodeBody(w, r, &payload) {
		return
	}

	snapshot, err := h.chatSvc.UpdateContext(r.Context(), chi.URLParam(r, "sessionID"), payload.Text)
	if err != nil {
		h.respondServiceError(w, err)
		return
	}
	utils.RespondJSON(w, http.StatusOK, snapshot)
}

func (h *Handler) handleToggleContextEditor(w http.ResponseWriter, r *http.Request) {
	var payload visibilityPayload
	if !decodeBody(w, r, &payload) {
		return
	}
	if payload.Visible == nil {
		utils.RespondError(w, http.StatusBadRequest, "visible is required")
		return
	}

	snapshot, err := h.chatSvc.ToggleContextEditor(r.Context(), chi.URLParam(r, "sessionID"), *payload.Visible)
	if err != nil {
		h.respondServiceError(w, err)
		return
	}
	utils.RespondJSON(w, http.StatusOK, snapshot)
}

// handleSubmit 提交问题；空问题被静默忽略
func (h *Handler) handleSubmit(w http.ResponseWriter, r *http.Request) {
	result, err := h.chatSvc.Submit(r.Context(), chi.URLParam(r, "sessionID"))
	if err != nil {
		h.respondServiceError(w, err)
		return
	}
	utils.RespondJSON(w, http.StatusOK, result)
}

func (h *Handler) respondServiceError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, chatService.ErrSessionNotFound):
		utils.RespondError(w, http.StatusNotFound, err.Error())
	case errors.Is(err, chatService.ErrContextEditorHidden):
		utils.RespondError(w, http.StatusConflict, err.Error())
	case errors.Is(err, chatService.ErrTooManySessions):
		utils.RespondError(w, http.StatusServiceUnavailable, err.Error())
	default:
		h.logger.Error("chat request failed", zap.Error(err))
		utils.RespondError(w, http.StatusInternalServerError, "internal error")
	}
}

func decodeBody(w http.ResponseWriter, r *http.Request, v any) bool {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			utils.RespondError(w, http.StatusRequestEntityTooLarge, "request body too large")
			return false
		}
		utils.RespondError(w, http.StatusBadRequest, "invalid request body")
		return false
	}
	return true
}

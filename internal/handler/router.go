package handler

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"

	"github.com/zhouzirui/legal-assistant/backend/internal/handler/chat"
	"github.com/zhouzirui/legal-assistant/backend/internal/handler/page"
	"github.com/zhouzirui/legal-assistant/backend/internal/handler/shell"
	middlewarePkg "github.com/zhouzirui/legal-assistant/backend/internal/middleware"
	chatService "github.com/zhouzirui/legal-assistant/backend/internal/service/chat"
	"github.com/zhouzirui/legal-assistant/backend/internal/view"
	"github.com/zhouzirui/legal-assistant/backend/pkg/utils"
)

// RouterConfig groups what NewRouter wires together.
type RouterConfig struct {
	ChatService    *chatService.Service
	Renderer       *view.Renderer
	Logger         *zap.Logger
	AllowedOrigins []string
}

// NewRouter wires HTTP routes to core services.
func NewRouter(cfg RouterConfig) http.Handler {
	logger := cfg.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middlewarePkg.RequestLogger(logger))
	r.Use(middleware.Recoverer)
	r.Use(middlewarePkg.CORS(cfg.AllowedOrigins))

	pageHandler := page.New(cfg.ChatService, cfg.Renderer, logger)
	chatHandler := chat.New(cfg.ChatService, logger)
	wsHandler := shell.NewWebSocketHandler(cfg.ChatService, cfg.Renderer, cfg.AllowedOrigins, logger)

	pageHandler.RegisterRoutes(r)
	wsHandler.RegisterWebSocketRoutes(r)

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		utils.RespondJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})

	r.Route("/api", func(api chi.Router) {
		chatHandler.RegisterRoutes(api)
	})

	return r
}

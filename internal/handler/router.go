package handler

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"

	"github.com/zhouzirui/lumi/backend/internal/config"
	"github.com/zhouzirui/lumi/backend/internal/handler/chat"
	"github.com/zhouzirui/lumi/backend/internal/handler/journal"
	"github.com/zhouzirui/lumi/backend/internal/handler/persona"
	"github.com/zhouzirui/lumi/backend/internal/handler/ws"
	middlewarePkg "github.com/zhouzirui/lumi/backend/internal/middleware"
	personaModel "github.com/zhouzirui/lumi/backend/internal/model/persona"
	chatService "github.com/zhouzirui/lumi/backend/internal/service/chat"
	journalService "github.com/zhouzirui/lumi/backend/internal/service/journal"
	"github.com/zhouzirui/lumi/backend/internal/service/relay"
	"github.com/zhouzirui/lumi/backend/pkg/utils"
)

// Services bundles what the routes need.
type Services struct {
	Personas personaModel.Store
	Sessions *chatService.Service
	Relay    *relay.Service
	Journals *journalService.Service
}

// NewRouter wires HTTP routes to core services.
func NewRouter(httpCfg config.HTTPConfig, svc Services, logger *zap.Logger) http.Handler {
	if logger == nil {
		logger = zap.NewNop()
	}
	policy := utils.ResponsePolicy(httpCfg.ResponsePolicy)

	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middlewarePkg.RequestLogger(logger))
	r.Use(middleware.Recoverer)
	r.Use(middlewarePkg.CORS(httpCfg.AllowedOrigins))

	r.Get("/health", healthHandler(svc.Sessions, logger))

	persona.New(svc.Personas).RegisterRoutes(r)
	chat.New(svc.Sessions, svc.Relay, policy, logger).RegisterRoutes(r)
	journal.New(svc.Journals).RegisterRoutes(r)
	ws.New(svc.Relay, svc.Journals, policy, httpCfg.AllowedOrigins, logger).RegisterRoutes(r)

	return r
}

func healthHandler(sessions *chatService.Service, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, _ *http.Request) {
		logger.Debug("health check", zap.Int("sessions", sessions.Count()))

		w.Header().Set("Content-Type", "text/plain; charset=utf-8")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("OK"))
	}
}

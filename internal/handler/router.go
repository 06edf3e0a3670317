package handler

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/skinmatch/chatbot/backend/internal/handler/chat"
	"github.com/skinmatch/chatbot/backend/internal/handler/consult"
	"github.com/skinmatch/chatbot/backend/internal/handler/ws"
	"github.com/skinmatch/chatbot/backend/internal/metrics"
	middlewarePkg "github.com/skinmatch/chatbot/backend/internal/middleware"
	consultService "github.com/skinmatch/chatbot/backend/internal/service/consult"
	"github.com/skinmatch/chatbot/backend/pkg/utils"
)

// ServiceName is reported by the root and health endpoints.
const ServiceName = "skin-consult-chatbot"

// Version is set at build time.
var Version = "dev"

// NewRouter wires HTTP routes to core services. m may be nil, in which case
// /metrics is not mounted.
func NewRouter(svc *consultService.Service, m *metrics.Metrics, allowedOrigins []string) http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middlewarePkg.RequestLogger)
	r.Use(middleware.Recoverer)
	r.Use(middlewarePkg.CORS(allowedOrigins))

	r.Get("/", func(w http.ResponseWriter, r *http.Request) {
		utils.RespondJSON(w, http.StatusOK, map[string]string{"service": ServiceName, "version": Version})
	})
	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		utils.RespondJSON(w, http.StatusOK, map[string]string{"status": "ok", "service": ServiceName})
	})
	if m != nil {
		r.Method(http.MethodGet, "/metrics", m.Handler())
	}

	r.Route("/api/v1", func(api chi.Router) {
		chat.New(svc).RegisterRoutes(api)
		consult.New(svc).RegisterRoutes(api)
		ws.New(svc, ws.OriginChecker(allowedOrigins)).RegisterRoutes(api)
	})

	return r
}

package router

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"

	"kelvin-backend/internal/handlers"
	"kelvin-backend/internal/metrics"
	"kelvin-backend/internal/middleware"
)

func New(
	logger *zap.Logger,
	statusHandler *handlers.StatusHandler,
	questHandler *handlers.QuestHandler,
	chatHandler *handlers.ChatHandler,
	chatLimiter *middleware.RateLimiter,
	m *metrics.Metrics,
	allowedOrigins []string,
	proxyTrust middleware.ProxyTrust,
) http.Handler {
	r := chi.NewRouter()

	// Global middleware
	r.Use(middleware.RealIP(proxyTrust))
	r.Use(middleware.RequestID)
	r.Use(middleware.RequestLogger(logger))
	r.Use(chimiddleware.Recoverer)
	r.Use(middleware.CORS(allowedOrigins))

	r.Get("/", statusHandler.Root)
	r.Get("/health", statusHandler.Health)
	if m != nil {
		r.Method(http.MethodGet, "/metrics", m.Handler())
	}

	r.Route("/api", func(r chi.Router) {
		r.Get("/quest/today", questHandler.Today)

		// Chat is the only route that reaches the language model, so it is
		// the only one throttled (20 req/min per client by default).
		r.With(chatLimiter.Middleware).Post("/chat", chatHandler.Chat)
	})

	return r
}

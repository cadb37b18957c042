package server

import (
	"net/http"

	"github.com/fulmenhq/gofulmen/signals"
	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/folioai/chatgate/internal/observability"
	"github.com/folioai/chatgate/internal/server/handlers"
	servermw "github.com/folioai/chatgate/internal/server/middleware"
)

// registerRoutes registers all HTTP routes
func (s *Server) registerRoutes() {
	s.router.Get("/health", handlers.HealthHandler)
	s.router.Get("/health/live", handlers.LivenessHandler)
	s.router.Get("/health/ready", handlers.ReadinessHandler)
	s.router.Get("/health/startup", handlers.StartupHandler)

	s.router.Get("/version", handlers.VersionHandler)

	// In the server package so it can use HandleError.
	s.router.Get("/metrics", MetricsHandler)

	if s.chat != nil {
		s.registerChatRoutes()
	}

	s.registerAdminEndpoint()
}

func (s *Server) registerChatRoutes() {
	h := handlers.NewChatHandler(s.chat)

	s.router.Route("/api/chat", func(r chi.Router) {
		r.Use(servermw.CORS(s.corsOrigin))

		r.Post("/", h.PostChat)
		r.Get("/", h.GetThreadHealth)
		r.Options("/", func(w http.ResponseWriter, _ *http.Request) {
			w.WriteHeader(http.StatusOK)
		})

		r.Group(func(r chi.Router) {
			r.Use(handlers.APIQuota(s.apiQuota))
			r.Get("/status", h.GetStatus)
			r.Get("/history", h.GetHistory)
			r.Delete("/history", h.DeleteHistory)
		})
	})
}

// registerAdminEndpoint exposes gofulmen's signal handler when an admin token is configured.
func (s *Server) registerAdminEndpoint() {
	logger := observability.ServerLogger

	if s.adminToken == "" {
		if logger != nil {
			logger.Debug("Admin signal endpoint disabled (no CHATGATE_ADMIN_TOKEN set)")
		}
		return
	}

	handler := signals.NewHTTPHandler(signals.HTTPConfig{
		TokenAuth: s.adminToken,
		RateLimit: 10,
		RateBurst: 5,
		Manager:   nil,
	})
	s.router.Post("/admin/signal", handler.ServeHTTP)

	if logger != nil {
		logger.Info("Admin signal endpoint enabled",
			zap.String("path", "/admin/signal"),
			zap.String("auth", "bearer token"),
			zap.String("rate_limit", "10/min, burst 5"))
		logger.Warn("Admin endpoint enabled - ensure this server is not exposed to public internet")
	}
}

package server

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"

	"github.com/folioai/chatgate/internal/chat"
	apperrors "github.com/folioai/chatgate/internal/errors"
	"github.com/folioai/chatgate/internal/limiter"
	"github.com/folioai/chatgate/internal/observability"
	servermw "github.com/folioai/chatgate/internal/server/middleware"
)

// Server represents the HTTP server
type Server struct {
	router *chi.Mux
	server *http.Server
	host   string
	port   int

	readTimeout  time.Duration
	writeTimeout time.Duration
	idleTimeout  time.Duration

	chat       *chat.Service
	apiQuota   *limiter.Store
	corsOrigin string
	adminToken string
}

// Option configures a Server.
type Option func(*Server)

// WithChat mounts the /api/chat endpoints backed by svc.
func WithChat(svc *chat.Service) Option {
	return func(s *Server) { s.chat = svc }
}

// WithAPIQuota guards the status and history endpoints with store.
func WithAPIQuota(store *limiter.Store) Option {
	return func(s *Server) { s.apiQuota = store }
}

// WithCORSOrigin sets Access-Control-Allow-Origin for the chat endpoints.
func WithCORSOrigin(origin string) Option {
	return func(s *Server) { s.corsOrigin = origin }
}

// WithTimeouts overrides the http.Server timeouts; zero values keep the defaults.
func WithTimeouts(read, write, idle time.Duration) Option {
	return func(s *Server) {
		if read > 0 {
			s.readTimeout = read
		}
		if write > 0 {
			s.writeTimeout = write
		}
		if idle > 0 {
			s.idleTimeout = idle
		}
	}
}

// WithAdminToken enables POST /admin/signal behind bearer auth.
func WithAdminToken(token string) Option {
	return func(s *Server) { s.adminToken = token }
}

// New creates a new HTTP server instance
func New(host string, port int, opts ...Option) *Server {
	r := chi.NewRouter()

	r.Use(middleware.RealIP)

	// RequestID → Metrics → Recovery
	r.Use(servermw.RequestID)
	r.Use(servermw.RequestMetrics)
	r.Use(servermw.Recovery)

	r.NotFound(func(w http.ResponseWriter, req *http.Request) {
		HandleError(w, req, apperrors.NewNotFoundError("The requested resource was not found"))
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, req *http.Request) {
		HandleError(w, req, apperrors.NewMethodNotAllowedError("The requested method is not allowed for this resource"))
	})

	s := &Server{
		router: r,
		host:   host,
		port:   port,
		// The write timeout must outlast a full assistant poll loop.
		readTimeout:  30 * time.Second,
		writeTimeout: 90 * time.Second,
		idleTimeout:  120 * time.Second,
		corsOrigin:   "*",
	}
	for _, opt := range opts {
		opt(s)
	}

	s.registerRoutes()

	return s
}

// Start starts the HTTP server and blocks until it stops.
// http.ErrServerClosed is returned as nil.
func (s *Server) Start() error {
	addr := net.JoinHostPort(s.host, fmt.Sprint(s.port))

	s.server = &http.Server{
		Addr:         addr,
		Handler:      s.router,
		ReadTimeout:  s.readTimeout,
		WriteTimeout: s.writeTimeout,
		IdleTimeout:  s.idleTimeout,
	}

	if observability.ServerLogger != nil {
		observability.ServerLogger.Info("Starting HTTP server",
			zap.String("host", s.host),
			zap.Int("port", s.port),
			zap.String("addr", addr))
	}

	if err := s.server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// Shutdown gracefully shuts down the HTTP server
func (s *Server) Shutdown(ctx context.Context) error {
	if s.server == nil {
		return nil
	}
	if observability.ServerLogger != nil {
		observability.ServerLogger.Info("Shutting down HTTP server")
	}
	return s.server.Shutdown(ctx)
}

// Handler exposes the underlying router for testing and instrumentation
func (s *Server) Handler() http.Handler {
	return s.router
}

// Port returns the server port for testing
func (s *Server) Port() int {
	return s.port
}

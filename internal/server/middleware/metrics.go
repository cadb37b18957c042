package middleware

import (
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/folioai/chatgate/internal/observability"
)

// HTTP series, labelled by surface so chat traffic is not drowned out by health checks.
const (
	HTTPRequestsTotalName   = "http_requests_total"
	HTTPRequestDurationName = "http_request_duration_ms"
	HTTPResponseSizeName    = "http_response_size_bytes"
	HTTPErrorsTotalName     = "http_errors_total"
)

// Route surfaces.
const (
	SurfaceChat   = "chat"
	SurfaceHealth = "health"
	SurfaceOps    = "ops"
)

type statusRecorder struct {
	http.ResponseWriter
	status int
	bytes  int64
}

func (s *statusRecorder) WriteHeader(code int) {
	s.status = code
	s.ResponseWriter.WriteHeader(code)
}

func (s *statusRecorder) Write(b []byte) (int, error) {
	n, err := s.ResponseWriter.Write(b)
	s.bytes += int64(n)
	return n, err
}

// EndpointPattern returns the chi route pattern for r so metric labels stay low-cardinality.
func EndpointPattern(r *http.Request) string {
	if rctx := chi.RouteContext(r.Context()); rctx != nil {
		if pattern := rctx.RoutePattern(); pattern != "" {
			return pattern
		}
	}

	switch path := r.URL.Path; path {
	case "/api/chat", "/api/chat/status", "/api/chat/history", "/version", "/metrics", "/":
		return path
	default:
		if path == "/health" || strings.HasPrefix(path, "/health/") {
			return "/health/*"
		}
		return "/unknown"
	}
}

// Surface maps an endpoint pattern to the part of the API it serves.
func Surface(endpoint string) string {
	switch {
	case strings.HasPrefix(endpoint, "/api/chat"):
		return SurfaceChat
	case strings.HasPrefix(endpoint, "/health"):
		return SurfaceHealth
	default:
		return SurfaceOps
	}
}

// RequestMetrics records request counts, latency and response size per endpoint.
// Health check requests are logged at debug level.
func RequestMetrics(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if observability.TelemetrySystem == nil {
			next.ServeHTTP(w, r)
			return
		}

		start := time.Now()
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(rec, r)
		elapsed := time.Since(start)

		endpoint := EndpointPattern(r)
		surface := Surface(endpoint)
		labels := map[string]string{
			"method":   r.Method,
			"endpoint": endpoint,
			"surface":  surface,
			"status":   strconv.Itoa(rec.status),
		}

		tel := observability.TelemetrySystem
		_ = tel.Counter(HTTPRequestsTotalName, 1, labels)
		_ = tel.Histogram(HTTPRequestDurationName, elapsed, labels)
		_ = tel.Gauge(HTTPResponseSizeName, float64(rec.bytes), map[string]string{
			"endpoint": endpoint,
			"surface":  surface,
		})
		if rec.status >= 400 {
			_ = tel.Counter(HTTPErrorsTotalName, 1, map[string]string{
				"endpoint":   endpoint,
				"surface":    surface,
				"error_type": errorType(rec.status),
			})
		}

		logRequest(r, endpoint, surface, rec, elapsed)
	})
}

func errorType(status int) string {
	if status == http.StatusTooManyRequests {
		return "quota"
	}
	if status >= 500 {
		return "server_error"
	}
	return "client_error"
}

func logRequest(r *http.Request, endpoint, surface string, rec *statusRecorder, elapsed time.Duration) {
	logger := observability.ServerLogger
	if logger == nil {
		return
	}
	fields := []zap.Field{
		zap.String("method", r.Method),
		zap.String("endpoint", endpoint),
		zap.String("surface", surface),
		zap.Int("status", rec.status),
		zap.Duration("duration", elapsed),
		zap.Int64("response_size", rec.bytes),
		zap.String("request_id", GetRequestID(r.Context())),
	}
	if surface == SurfaceHealth {
		logger.Debug("HTTP request completed", fields...)
		return
	}
	logger.Info("HTTP request completed", fields...)
}

// Package errors builds gofulmen error envelopes for chatgate and renders them
// as HTTP responses.
package errors

import (
	"context"
	"encoding/json"
	"net/http"
	"strconv"
	"time"

	"github.com/fulmenhq/gofulmen/errors"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/folioai/chatgate/internal/metrics"
	"github.com/folioai/chatgate/internal/observability"
	"github.com/folioai/chatgate/internal/server/middleware"
)

// Error codes surfaced to API callers.
const (
	CodeInvalidMessage  = "INVALID_MESSAGE"
	CodeEmptyMessage    = "EMPTY_MESSAGE"
	CodeMessageTooLong  = "MESSAGE_TOO_LONG"
	CodeInvalidJSON     = "INVALID_JSON"
	CodeRateLimited     = "RATE_LIMIT_EXCEEDED"
	CodeQuestionLimited = "QUESTION_LIMIT_EXCEEDED"

	CodeAPIKeyMissing         = "API_KEY_MISSING"
	CodeInvalidResponseFormat = "INVALID_RESPONSE_FORMAT"
	CodeRunFailed             = "ASSISTANT_RUN_FAILED"
	CodeRunCancelled          = "ASSISTANT_RUN_CANCELLED"
	CodeRunExpired            = "ASSISTANT_RUN_EXPIRED"
	CodeResponseTimeout       = "RESPONSE_TIMEOUT"
	CodeFetchHistory          = "FETCH_HISTORY_ERROR"
	CodeClearHistory          = "CLEAR_HISTORY_NOT_SUPPORTED"

	CodeUpstreamInvalidRequest = "OPENAI_INVALID_REQUEST"
	CodeUpstreamAuth           = "OPENAI_AUTH_ERROR"
	CodeUpstreamPermission     = "OPENAI_PERMISSION_ERROR"
	CodeUpstreamRateLimit      = "OPENAI_RATE_LIMIT"
	CodeUpstreamNotFound       = "OPENAI_NOT_FOUND"
	CodeUpstreamUnavailable    = "OPENAI_UNAVAILABLE"

	CodeNotFound           = "NOT_FOUND"
	CodeMethodNotAllowed   = "METHOD_NOT_ALLOWED"
	CodeInternal           = "INTERNAL_SERVER_ERROR"
	CodeServiceUnavailable = "SERVICE_UNAVAILABLE"
	CodeBadGateway         = "EXTERNAL_SERVICE_ERROR"
)

// userMessageKey holds the caller-facing explanation inside envelope details.
const userMessageKey = "user_message"

// Validation errors (400)

func NewInvalidMessageError() *errors.ErrorEnvelope {
	return errors.NewErrorEnvelope(CodeInvalidMessage, "Message is required and must be a string")
}

func NewEmptyMessageError() *errors.ErrorEnvelope {
	return errors.NewErrorEnvelope(CodeEmptyMessage, "Message cannot be empty")
}

func NewMessageTooLongError(max int) *errors.ErrorEnvelope {
	env := errors.NewErrorEnvelope(CodeMessageTooLong, "Message too long (max "+strconv.Itoa(max)+" characters)")
	env = env.WithDetails(map[string]interface{}{"maxLength": max})
	return env
}

func NewInvalidJSONError(err error) *errors.ErrorEnvelope {
	env := errors.NewErrorEnvelope(CodeInvalidJSON, "Request body must be valid JSON")
	return withWrappedError(env, err)
}

// Admission errors (429)

// NewRateLimitError reports an exhausted per-minute request quota.
func NewRateLimitError(limit int, resetAt time.Time, retryAfter int) *errors.ErrorEnvelope {
	env := errors.NewErrorEnvelope(CodeRateLimited, "Rate limit exceeded")
	env = env.WithDetails(map[string]interface{}{
		userMessageKey: "Too many requests. Please try again later.",
		"limit":        limit,
		"retryAfter":   retryAfter,
		"resetTime":    resetAt.UTC().Format(time.RFC3339Nano),
	})
	return medium(env)
}

// NewQuestionLimitError reports an exhausted daily question quota.
func NewQuestionLimitError(used, max int, resetAt time.Time, retryAfter int) *errors.ErrorEnvelope {
	hours := (retryAfter + 3599) / 3600
	env := errors.NewErrorEnvelope(CodeQuestionLimited, "Daily question limit exceeded")
	env = env.WithDetails(map[string]interface{}{
		userMessageKey:  "Bạn đã hỏi " + strconv.Itoa(used) + "/" + strconv.Itoa(max) + " câu hỏi cho hôm nay. Hãy quay lại sau " + strconv.Itoa(hours) + " giờ nữa! 😊",
		"questionsUsed": used,
		"maxQuestions":  max,
		"retryAfter":    retryAfter,
		"resetTime":     resetAt.UTC().Format(time.RFC3339Nano),
	})
	return medium(env)
}

// Server errors

func NewAPIKeyMissingError() *errors.ErrorEnvelope {
	return critical(errors.NewErrorEnvelope(CodeAPIKeyMissing, "OpenAI API key not configured"))
}

func NewInvalidResponseFormatError() *errors.ErrorEnvelope {
	return high(errors.NewErrorEnvelope(CodeInvalidResponseFormat, "Invalid response format from assistant"))
}

func NewRunFailedError(message string) *errors.ErrorEnvelope {
	if message == "" {
		message = "Unknown error"
	}
	return high(errors.NewErrorEnvelope(CodeRunFailed, "Assistant run failed: "+message))
}

func NewRunCancelledError() *errors.ErrorEnvelope {
	return high(errors.NewErrorEnvelope(CodeRunCancelled, "Assistant run was cancelled"))
}

func NewRunExpiredError() *errors.ErrorEnvelope {
	return high(errors.NewErrorEnvelope(CodeRunExpired, "Assistant run expired"))
}

func NewResponseTimeoutError(attempts int) *errors.ErrorEnvelope {
	env := errors.NewErrorEnvelope(CodeResponseTimeout, "Response timeout - please try again")
	env = env.WithDetails(map[string]interface{}{"attempts": attempts})
	return high(env)
}

func NewClearHistoryError() *errors.ErrorEnvelope {
	env := errors.NewErrorEnvelope(CodeClearHistory, "Clearing history is not supported")
	env = env.WithDetails(map[string]interface{}{
		userMessageKey: "Chat history cannot be cleared while preserving thread ID. Consider creating a new thread.",
	})
	return env
}

func NewNotFoundError(message string) *errors.ErrorEnvelope {
	return errors.NewErrorEnvelope(CodeNotFound, message)
}

func NewMethodNotAllowedError(message string) *errors.ErrorEnvelope {
	return errors.NewErrorEnvelope(CodeMethodNotAllowed, message)
}

func NewServiceUnavailableError(message string) *errors.ErrorEnvelope {
	return high(errors.NewErrorEnvelope(CodeServiceUnavailable, message))
}

func NewInternalError(message string) *errors.ErrorEnvelope {
	return high(errors.NewErrorEnvelope(CodeInternal, message))
}

// Wrap functions attach the request correlation ID and the wrapped cause.

func WrapInternal(ctx context.Context, err error, message string) *errors.ErrorEnvelope {
	return high(wrap(ctx, CodeInternal, err, message))
}

func WrapFetchHistory(ctx context.Context, err error, message string) *errors.ErrorEnvelope {
	return high(wrap(ctx, CodeFetchHistory, err, message))
}

// WrapUpstream builds an envelope for a classified upstream failure.
func WrapUpstream(ctx context.Context, code string, err error, message string) *errors.ErrorEnvelope {
	envelope := wrap(ctx, code, err, message)
	if code == CodeUpstreamRateLimit || code == CodeUpstreamInvalidRequest {
		return medium(envelope)
	}
	return high(envelope)
}

func wrap(ctx context.Context, code string, err error, message string) *errors.ErrorEnvelope {
	envelope := errors.NewErrorEnvelope(code, message)
	envelope = envelope.WithCorrelationID(extractCorrelationID(ctx))
	envelope = envelope.WithTraceID(extractTraceID(ctx))
	return withWrappedError(envelope, err)
}

// WithUserMessage sets the caller-facing explanation rendered in the "message" field.
func WithUserMessage(envelope *errors.ErrorEnvelope, message string) *errors.ErrorEnvelope {
	if envelope == nil || message == "" {
		return envelope
	}
	details := make(map[string]interface{}, len(envelope.Details)+1)
	for key, value := range envelope.Details {
		details[key] = value
	}
	details[userMessageKey] = message
	return envelope.WithDetails(details)
}

// extractCorrelationID gets correlation ID from context, falls back to generating new UUID
func extractCorrelationID(ctx context.Context) string {
	if ctx != nil {
		if requestID := middleware.GetRequestID(ctx); requestID != "" {
			return requestID
		}
	}
	return uuid.New().String()
}

// extractTraceID reuses the correlation ID; there is no distributed tracer.
func extractTraceID(ctx context.Context) string {
	return extractCorrelationID(ctx)
}

// EnsureEnvelope normalizes any error into a gofulmen ErrorEnvelope.
func EnsureEnvelope(err error) *errors.ErrorEnvelope {
	if err == nil {
		env := errors.NewErrorEnvelope(CodeInternal, "unexpected nil error")
		return critical(env)
	}

	if envelope, ok := err.(*errors.ErrorEnvelope); ok && envelope != nil {
		return envelope
	}

	env := errors.NewErrorEnvelope(CodeInternal, "Internal server error - please try again later")
	env = withWrappedError(env, err)
	return high(env)
}

// EnsureCorrelationID attaches a correlation ID to the envelope using the context when available.
func EnsureCorrelationID(envelope *errors.ErrorEnvelope, ctx context.Context) *errors.ErrorEnvelope {
	if envelope == nil {
		return nil
	}

	if envelope.CorrelationID != "" {
		return envelope
	}

	var correlationID string
	if ctx != nil {
		correlationID = middleware.GetRequestID(ctx)
	}

	if correlationID == "" {
		correlationID = "fallback-" + errors.GenerateCorrelationID()
	}

	return envelope.WithCorrelationID(correlationID)
}

// HTTPStatusFromEnvelope resolves the HTTP status code corresponding to an error envelope.
func HTTPStatusFromEnvelope(envelope *errors.ErrorEnvelope) int {
	if envelope == nil {
		return http.StatusInternalServerError
	}
	return HTTPStatusFromCode(envelope.Code)
}

// ClassFromCode groups an error code for metrics.
func ClassFromCode(code string) string {
	switch code {
	case CodeInvalidMessage, CodeEmptyMessage, CodeMessageTooLong, CodeInvalidJSON,
		CodeNotFound, CodeMethodNotAllowed, CodeClearHistory:
		return metrics.ClassValidation
	case CodeRateLimited, CodeQuestionLimited:
		return metrics.ClassQuota
	case CodeUpstreamInvalidRequest, CodeUpstreamAuth, CodeUpstreamPermission,
		CodeUpstreamRateLimit, CodeUpstreamNotFound, CodeUpstreamUnavailable,
		CodeInvalidResponseFormat, CodeRunFailed, CodeRunCancelled, CodeRunExpired,
		CodeResponseTimeout, CodeFetchHistory, CodeBadGateway:
		return metrics.ClassUpstream
	default:
		return metrics.ClassServer
	}
}

// HTTPStatusFromCode resolves the HTTP status code corresponding to an error code.
func HTTPStatusFromCode(code string) int {
	switch code {
	case CodeInvalidMessage, CodeEmptyMessage, CodeMessageTooLong, CodeInvalidJSON,
		CodeUpstreamInvalidRequest:
		return http.StatusBadRequest
	case CodeUpstreamAuth:
		return http.StatusUnauthorized
	case CodeUpstreamPermission:
		return http.StatusForbidden
	case CodeNotFound, CodeUpstreamNotFound:
		return http.StatusNotFound
	case CodeMethodNotAllowed:
		return http.StatusMethodNotAllowed
	case CodeRateLimited, CodeQuestionLimited, CodeUpstreamRateLimit:
		return http.StatusTooManyRequests
	case CodeClearHistory:
		return http.StatusNotImplemented
	case CodeUpstreamUnavailable, CodeBadGateway:
		return http.StatusBadGateway
	case CodeServiceUnavailable:
		return http.StatusServiceUnavailable
	case CodeResponseTimeout:
		return http.StatusGatewayTimeout
	default:
		return http.StatusInternalServerError
	}
}

func withWrappedError(envelope *errors.ErrorEnvelope, err error) *errors.ErrorEnvelope {
	if envelope == nil || err == nil {
		return envelope
	}

	updated, updateErr := envelope.WithContext(map[string]interface{}{
		"wrapped_error": err.Error(),
	})
	if updateErr != nil {
		return envelope
	}
	return updated
}

func critical(envelope *errors.ErrorEnvelope) *errors.ErrorEnvelope {
	if updated, err := envelope.WithSeverity(errors.SeverityCritical); err == nil {
		return updated
	}
	return envelope
}

func high(envelope *errors.ErrorEnvelope) *errors.ErrorEnvelope {
	if updated, err := envelope.WithSeverity(errors.SeverityHigh); err == nil {
		return updated
	}
	return envelope
}

func medium(envelope *errors.ErrorEnvelope) *errors.ErrorEnvelope {
	if updated, err := envelope.WithSeverity(errors.SeverityMedium); err == nil {
		return updated
	}
	return envelope
}

// ResponseDetails returns the caller-safe details of an envelope.
//
// Context stays server-side (logs only) so wrapped upstream errors never leak.
func ResponseDetails(envelope *errors.ErrorEnvelope) map[string]interface{} {
	if envelope == nil {
		return nil
	}

	details := make(map[string]interface{})
	for key, value := range envelope.Details {
		if key == userMessageKey {
			continue
		}
		details[key] = value
	}

	if len(details) == 0 {
		return nil
	}
	return details
}

// UserMessage returns the caller-facing explanation, defaulting to the envelope message.
func UserMessage(envelope *errors.ErrorEnvelope) string {
	if envelope == nil {
		return ""
	}
	if msg, ok := envelope.Details[userMessageKey].(string); ok && msg != "" {
		return msg
	}
	return envelope.Message
}

// HTTPErrorResponse is the JSON body of every error response.
type HTTPErrorResponse struct {
	Error     string                 `json:"error"`
	Code      string                 `json:"code"`
	Message   string                 `json:"message"`
	Timestamp string                 `json:"timestamp"`
	RequestID string                 `json:"request_id,omitempty"`
	Details   map[string]interface{} `json:"details,omitempty"`
}

// RespondWithError normalizes the supplied error and writes a JSON response.
func RespondWithError(w http.ResponseWriter, r *http.Request, err error) {
	RespondWithEnvelope(w, r, EnsureEnvelope(err))
}

// RespondWithEnvelope finalizes the provided envelope, logging and emitting metrics.
func RespondWithEnvelope(w http.ResponseWriter, r *http.Request, envelope *errors.ErrorEnvelope) {
	if w == nil {
		return
	}

	if envelope == nil {
		envelope = EnsureEnvelope(nil)
	}
	if r != nil {
		envelope = EnsureCorrelationID(envelope, r.Context())
	} else {
		envelope = EnsureCorrelationID(envelope, nil)
	}

	statusCode := HTTPStatusFromEnvelope(envelope)

	response := HTTPErrorResponse{
		Error:     envelope.Message,
		Code:      envelope.Code,
		Message:   UserMessage(envelope),
		Timestamp: time.Now().UTC().Format(time.RFC3339Nano),
		RequestID: envelope.CorrelationID,
		Details:   ResponseDetails(envelope),
	}

	logHTTPError(envelope, statusCode)
	emitErrorMetrics(r, envelope, statusCode)

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	_ = json.NewEncoder(w).Encode(response)
}

func logHTTPError(envelope *errors.ErrorEnvelope, statusCode int) {
	if observability.ServerLogger == nil || envelope == nil {
		return
	}

	fields := []zap.Field{
		zap.String("error_code", envelope.Code),
		zap.Int("http_status", statusCode),
	}

	if envelope.Severity != "" {
		fields = append(fields, zap.String("severity", string(envelope.Severity)))
	}

	for key, value := range envelope.Context {
		fields = append(fields, zap.Any(key, value))
	}

	if envelope.CorrelationID != "" {
		fields = append(fields, zap.String("request_id", envelope.CorrelationID))
	}

	switch envelope.Severity {
	case errors.SeverityCritical, errors.SeverityHigh:
		observability.ServerLogger.Error(envelope.Message, fields...)
	case errors.SeverityMedium:
		observability.ServerLogger.Warn(envelope.Message, fields...)
	default:
		observability.ServerLogger.Info(envelope.Message, fields...)
	}
}

func emitErrorMetrics(r *http.Request, envelope *errors.ErrorEnvelope, statusCode int) {
	if envelope == nil {
		return
	}

	class := ClassFromCode(envelope.Code)
	metrics.RecordError(envelope.Code, class, statusCode)
	if r != nil {
		metrics.RecordErrorByEndpoint(middleware.EndpointPattern(r), class)
	}
}

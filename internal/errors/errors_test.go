package errors

import (
	"context"
	"encoding/json"
	stderrors "errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/folioai/chatgate/internal/metrics"
	"github.com/folioai/chatgate/internal/server/middleware"
)

func TestHTTPStatusFromCode(t *testing.T) {
	cases := map[string]int{
		CodeInvalidMessage:         http.StatusBadRequest,
		CodeEmptyMessage:           http.StatusBadRequest,
		CodeMessageTooLong:         http.StatusBadRequest,
		CodeInvalidJSON:            http.StatusBadRequest,
		CodeUpstreamInvalidRequest: http.StatusBadRequest,
		CodeUpstreamAuth:           http.StatusUnauthorized,
		CodeUpstreamPermission:     http.StatusForbidden,
		CodeUpstreamNotFound:       http.StatusNotFound,
		CodeNotFound:               http.StatusNotFound,
		CodeMethodNotAllowed:       http.StatusMethodNotAllowed,
		CodeRateLimited:            http.StatusTooManyRequests,
		CodeQuestionLimited:        http.StatusTooManyRequests,
		CodeUpstreamRateLimit:      http.StatusTooManyRequests,
		CodeAPIKeyMissing:          http.StatusInternalServerError,
		CodeInvalidResponseFormat:  http.StatusInternalServerError,
		CodeRunFailed:              http.StatusInternalServerError,
		CodeRunCancelled:           http.StatusInternalServerError,
		CodeRunExpired:             http.StatusInternalServerError,
		CodeFetchHistory:           http.StatusInternalServerError,
		CodeClearHistory:           http.StatusNotImplemented,
		CodeUpstreamUnavailable:    http.StatusBadGateway,
		CodeServiceUnavailable:     http.StatusServiceUnavailable,
		CodeResponseTimeout:        http.StatusGatewayTimeout,
		"SOMETHING_ELSE":           http.StatusInternalServerError,
	}
	for code, want := range cases {
		assert.Equal(t, want, HTTPStatusFromCode(code), code)
	}
}

func TestClassFromCode(t *testing.T) {
	assert.Equal(t, metrics.ClassValidation, ClassFromCode(CodeMessageTooLong))
	assert.Equal(t, metrics.ClassValidation, ClassFromCode(CodeInvalidJSON))
	assert.Equal(t, metrics.ClassQuota, ClassFromCode(CodeRateLimited))
	assert.Equal(t, metrics.ClassQuota, ClassFromCode(CodeQuestionLimited))
	assert.Equal(t, metrics.ClassUpstream, ClassFromCode(CodeUpstreamRateLimit))
	assert.Equal(t, metrics.ClassUpstream, ClassFromCode(CodeResponseTimeout))
	assert.Equal(t, metrics.ClassUpstream, ClassFromCode(CodeRunExpired))
	assert.Equal(t, metrics.ClassServer, ClassFromCode(CodeAPIKeyMissing))
	assert.Equal(t, metrics.ClassServer, ClassFromCode("SOMETHING_ELSE"))
}

func TestRunFailedMessage(t *testing.T) {
	assert.Equal(t, "Assistant run failed: x", NewRunFailedError("x").Message)
	assert.Equal(t, "Assistant run failed: Unknown error", NewRunFailedError("").Message)
}

func TestRespondWithEnvelopeQuestionLimit(t *testing.T) {
	reset := time.Date(2026, 10, 20, 8, 0, 0, 0, time.UTC)
	env := NewQuestionLimitError(10, 10, reset, 7200)

	req := httptest.NewRequest(http.MethodPost, "/api/chat", nil)
	req = req.WithContext(middleware.WithRequestID(req.Context(), "req-42"))
	rec := httptest.NewRecorder()

	RespondWithEnvelope(rec, req, env)

	require.Equal(t, http.StatusTooManyRequests, rec.Code)
	assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))

	var body HTTPErrorResponse
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&body))
	assert.Equal(t, "Daily question limit exceeded", body.Error)
	assert.Equal(t, CodeQuestionLimited, body.Code)
	assert.Contains(t, body.Message, "10/10")
	assert.Contains(t, body.Message, "2 giờ")
	assert.Equal(t, "req-42", body.RequestID)
	assert.NotEmpty(t, body.Timestamp)
	assert.EqualValues(t, 10, body.Details["questionsUsed"])
	assert.EqualValues(t, 10, body.Details["maxQuestions"])
	assert.EqualValues(t, 7200, body.Details["retryAfter"])
	assert.Equal(t, "2026-10-20T08:00:00Z", body.Details["resetTime"])
	assert.NotContains(t, body.Details, userMessageKey)
}

func TestRespondWithErrorHidesWrappedCause(t *testing.T) {
	rec := httptest.NewRecorder()
	RespondWithError(rec, httptest.NewRequest(http.MethodGet, "/api/chat/history", nil), stderrors.New("secret upstream detail"))

	require.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.NotContains(t, rec.Body.String(), "secret upstream detail")

	var body HTTPErrorResponse
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&body))
	assert.Equal(t, CodeInternal, body.Code)
	assert.Equal(t, body.Error, body.Message)
	assert.NotEmpty(t, body.RequestID)
}

func TestWrapUpstreamCarriesCorrelationID(t *testing.T) {
	ctx := middleware.WithRequestID(context.Background(), "req-7")
	env := WrapUpstream(ctx, CodeUpstreamAuth, stderrors.New("401"), "OpenAI authentication failed")

	assert.Equal(t, CodeUpstreamAuth, env.Code)
	assert.Equal(t, "req-7", env.CorrelationID)
	assert.Equal(t, "401", env.Context["wrapped_error"])
}

func TestWithUserMessageKeepsDetails(t *testing.T) {
	env := WithUserMessage(NewMessageTooLongError(4000), "Shorten your message")
	assert.Equal(t, "Shorten your message", UserMessage(env))
	assert.Equal(t, map[string]interface{}{"maxLength": 4000}, ResponseDetails(env))
}

func TestEnsureEnvelopeNil(t *testing.T) {
	env := EnsureEnvelope(nil)
	assert.Equal(t, CodeInternal, env.Code)
}

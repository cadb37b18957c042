package handlers

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/folioai/chatgate/internal/chat"
	"github.com/folioai/chatgate/internal/limiter"
)

func okHandler(w http.ResponseWriter, _ *http.Request) {
	w.WriteHeader(http.StatusNoContent)
}

func TestAPIQuotaNilStorePassesThrough(t *testing.T) {
	rec := httptest.NewRecorder()
	APIQuota(nil)(http.HandlerFunc(okHandler)).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))

	assert.Equal(t, http.StatusNoContent, rec.Code)
}

func TestAPIQuotaDeniesAfterCap(t *testing.T) {
	now := time.Date(2026, 10, 19, 12, 0, 0, 0, time.UTC)
	store := limiter.NewStore("api", 2, time.Minute, limiter.WithClock(func() time.Time { return now }))
	h := APIQuota(store)(http.HandlerFunc(okHandler))

	serve := func(ip string) *httptest.ResponseRecorder {
		req := httptest.NewRequest(http.MethodGet, "/api/chat/status", nil)
		req.Header.Set("X-Forwarded-For", ip)
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, req)
		return rec
	}

	require.Equal(t, http.StatusNoContent, serve("203.0.113.1").Code)
	require.Equal(t, http.StatusNoContent, serve("203.0.113.1").Code)

	denied := serve("203.0.113.1")
	require.Equal(t, http.StatusTooManyRequests, denied.Code)
	assert.Equal(t, "60", denied.Header().Get(HeaderRetryAfter))
	assert.Equal(t, "2", denied.Header().Get(HeaderRateLimit))
	assert.Equal(t, "0", denied.Header().Get(HeaderRateRemaining))
	assert.Contains(t, denied.Body.String(), "RATE_LIMIT_EXCEEDED")

	// Other identities keep their own window.
	assert.Equal(t, http.StatusNoContent, serve("203.0.113.2").Code)
}

func TestSetDenialHeadersQuestion(t *testing.T) {
	at := time.Date(2026, 10, 19, 12, 0, 0, 0, time.UTC)
	adm := chat.Admission{
		Rate:            limiter.Result{Allowed: true, Remaining: 20, Limit: 30},
		Question:        limiter.Result{Allowed: false, Remaining: 0, Used: 10, Limit: 10, ResetAt: at.Add(90 * time.Minute)},
		QuestionChecked: true,
		At:              at,
	}

	h := http.Header{}
	setDenialHeaders(h, adm)

	assert.Equal(t, "10", h.Get(HeaderQuestionLimit))
	assert.Equal(t, "10", h.Get(HeaderQuestionsUsed))
	assert.Equal(t, "0", h.Get(HeaderQuestionsRemaining))
	assert.Equal(t, "5400", h.Get(HeaderRetryAfter))
	assert.Equal(t, "2026-10-19T13:30:00Z", h.Get(HeaderQuestionReset))
	assert.Empty(t, h.Get(HeaderRateLimit))
}

func TestSetDenialHeadersRate(t *testing.T) {
	at := time.Date(2026, 10, 19, 12, 0, 0, 0, time.UTC)
	adm := chat.Admission{
		Rate: limiter.Result{Allowed: false, Remaining: 0, Used: 30, Limit: 30, ResetAt: at.Add(1500 * time.Millisecond)},
		At:   at,
	}

	h := http.Header{}
	setDenialHeaders(h, adm)

	assert.Equal(t, "30", h.Get(HeaderRateLimit))
	assert.Equal(t, "2", h.Get(HeaderRetryAfter))
	assert.Empty(t, h.Get(HeaderQuestionLimit))
}

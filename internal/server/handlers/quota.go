package handlers

import (
	"net/http"
	"strconv"
	"time"

	"github.com/folioai/chatgate/internal/chat"
	apperrors "github.com/folioai/chatgate/internal/errors"
	"github.com/folioai/chatgate/internal/identity"
	"github.com/folioai/chatgate/internal/limiter"
	"github.com/folioai/chatgate/internal/metrics"
)

// Quota response headers.
const (
	HeaderRateLimit          = "X-RateLimit-Limit"
	HeaderRateRemaining      = "X-RateLimit-Remaining"
	HeaderRateReset          = "X-RateLimit-Reset"
	HeaderQuestionLimit      = "X-Question-Limit"
	HeaderQuestionsUsed      = "X-Questions-Used"
	HeaderQuestionsRemaining = "X-Questions-Remaining"
	HeaderQuestionReset      = "X-Question-Reset"
	HeaderRetryAfter         = "Retry-After"
)

func setRateHeaders(h http.Header, r limiter.Result) {
	h.Set(HeaderRateLimit, strconv.Itoa(r.Limit))
	h.Set(HeaderRateRemaining, strconv.Itoa(r.Remaining))
}

func setQuestionHeaders(h http.Header, r limiter.Result) {
	h.Set(HeaderQuestionLimit, strconv.Itoa(r.Limit))
	h.Set(HeaderQuestionsRemaining, strconv.Itoa(r.Remaining))
}

// setDenialHeaders describes whichever quota refused the request.
func setDenialHeaders(h http.Header, adm chat.Admission) {
	if !adm.Rate.Allowed {
		setRateHeaders(h, adm.Rate)
		h.Set(HeaderRateReset, adm.Rate.ResetAt.UTC().Format(time.RFC3339Nano))
		h.Set(HeaderRetryAfter, strconv.Itoa(chat.RetryAfterSeconds(adm.Rate, adm.At)))
		return
	}

	setQuestionHeaders(h, adm.Question)
	h.Set(HeaderQuestionsUsed, strconv.Itoa(adm.Question.Used))
	h.Set(HeaderQuestionReset, adm.Question.ResetAt.UTC().Format(time.RFC3339Nano))
	h.Set(HeaderRetryAfter, strconv.Itoa(chat.RetryAfterSeconds(adm.Question, adm.At)))
}

// APIQuota guards read-only endpoints with a per-identity fixed window.
func APIQuota(store *limiter.Store) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if store == nil {
				next.ServeHTTP(w, r)
				return
			}

			res := store.Check(identity.FromRequest(r))
			metrics.RecordAdmission(store.Name(), res.Allowed)
			if !res.Allowed {
				now := store.Now()
				retry := chat.RetryAfterSeconds(res, now)
				setRateHeaders(w.Header(), res)
				w.Header().Set(HeaderRateReset, res.ResetAt.UTC().Format(time.RFC3339Nano))
				w.Header().Set(HeaderRetryAfter, strconv.Itoa(retry))
				respondWithError(w, r, apperrors.NewRateLimitError(res.Limit, res.ResetAt, retry))
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}

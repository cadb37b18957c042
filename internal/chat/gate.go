package chat

import (
	"context"
	"time"

	"github.com/fulmenhq/gofulmen/errors"
	"go.uber.org/zap"

	apperrors "github.com/folioai/chatgate/internal/errors"
	"github.com/folioai/chatgate/internal/limiter"
	"github.com/folioai/chatgate/internal/metrics"
	"github.com/folioai/chatgate/internal/observability"
)

// Gate admits chat requests against the rate and question quotas.
type Gate struct {
	Rate     *limiter.Store
	Question *limiter.Store
	// Recorder receives every decision. Nil disables recording.
	Recorder limiter.Recorder
	// RecordTimeout bounds each Recorder call. Zero means DefaultRecordTimeout.
	RecordTimeout time.Duration
}

// DefaultRecordTimeout caps how long a stats write may hold up admission.
const DefaultRecordTimeout = 100 * time.Millisecond

// Admission is the quota state after a request passed (or failed) the gate.
type Admission struct {
	Identity string
	Rate     limiter.Result
	Question limiter.Result
	// QuestionChecked is false when the rate quota denied first.
	QuestionChecked bool
	At              time.Time
}

// Admit consumes one unit of the rate quota and then one of the question quota.
//
// A question denial leaves the rate unit spent; the two stores never roll back.
func (g *Gate) Admit(ctx context.Context, identity string) (Admission, *errors.ErrorEnvelope) {
	adm := Admission{Identity: identity, At: g.Rate.Now()}

	adm.Rate = g.Rate.Check(identity)
	g.record(ctx, g.Rate.Name(), identity, adm.Rate.Allowed, adm.At)
	if !adm.Rate.Allowed {
		logWarn("Rate limit exceeded",
			zap.String("identity", identity),
			zap.Time("reset_at", adm.Rate.ResetAt))
		return adm, apperrors.NewRateLimitError(adm.Rate.Limit, adm.Rate.ResetAt, RetryAfterSeconds(adm.Rate, adm.At))
	}

	adm.Question = g.Question.Check(identity)
	adm.QuestionChecked = true
	g.record(ctx, g.Question.Name(), identity, adm.Question.Allowed, adm.At)
	if !adm.Question.Allowed {
		logWarn("Question limit exceeded",
			zap.String("identity", identity),
			zap.Int("questions_used", adm.Question.Used),
			zap.Time("reset_at", adm.Question.ResetAt))
		return adm, apperrors.NewQuestionLimitError(adm.Question.Used, adm.Question.Limit, adm.Question.ResetAt, RetryAfterSeconds(adm.Question, adm.At))
	}

	return adm, nil
}

// Peek reports both quotas for identity without consuming either.
func (g *Gate) Peek(identity string) (rate, question limiter.Result) {
	return g.Rate.Peek(identity), g.Question.Peek(identity)
}

func (g *Gate) record(ctx context.Context, name, identity string, allowed bool, at time.Time) {
	metrics.RecordAdmission(name, allowed)
	if g.Recorder == nil {
		return
	}
	timeout := g.RecordTimeout
	if timeout <= 0 {
		timeout = DefaultRecordTimeout
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()
	if err := g.Recorder.Record(ctx, limiter.Event{Limiter: name, Key: identity, Allowed: allowed, At: at}); err != nil {
		logWarn("Failed to record admission", zap.String("limiter", name), zap.Error(err))
	}
}

// RetryAfterSeconds rounds the time to reset up to whole seconds.
func RetryAfterSeconds(r limiter.Result, now time.Time) int {
	d := r.RetryAfter(now)
	secs := int(d / time.Second)
	if d%time.Second != 0 {
		secs++
	}
	return secs
}

func logWarn(msg string, fields ...zap.Field) {
	if observability.ServerLogger != nil {
		observability.ServerLogger.Warn(msg, fields...)
	}
}

func logInfo(msg string, fields ...zap.Field) {
	if observability.ServerLogger != nil {
		observability.ServerLogger.Info(msg, fields...)
	}
}

func logError(msg string, fields ...zap.Field) {
	if observability.ServerLogger != nil {
		observability.ServerLogger.Error(msg, fields...)
	}
}

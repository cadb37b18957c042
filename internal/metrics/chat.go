package metrics

import (
	"strconv"
	"time"

	"github.com/folioai/chatgate/internal/observability"
)

// Chat pipeline metrics following Prometheus conventions
const (
	AdmissionsTotalName   = "chat_admissions_total"
	TurnsTotalName        = "chat_turns_total"
	TurnPollAttemptsName  = "chat_turn_poll_attempts"
	TurnDurationName      = "chat_turn_duration_ms"
	LimiterKeysName       = "chat_limiter_keys"
	LimiterSweptTotalName = "chat_limiter_swept_total"
	ServerStartTimeName   = "app_server_start_time_seconds"
)

// RecordAdmission counts one limiter decision.
func RecordAdmission(limiter string, allowed bool) {
	decision := "allowed"
	if !allowed {
		decision = "denied"
	}

	if observability.TelemetrySystem != nil {
		_ = observability.TelemetrySystem.Counter(
			AdmissionsTotalName,
			1,
			map[string]string{
				"limiter":  limiter,
				"decision": decision,
			},
		)
	}
}

// RecordTurn records a finished assistant turn by outcome label.
func RecordTurn(outcome string, attempts int, duration time.Duration) {
	if observability.TelemetrySystem == nil {
		return
	}

	labels := map[string]string{"outcome": outcome}
	_ = observability.TelemetrySystem.Counter(TurnsTotalName, 1, labels)
	_ = observability.TelemetrySystem.Histogram(TurnDurationName, duration, labels)
	_ = observability.TelemetrySystem.Gauge(
		TurnPollAttemptsName,
		float64(attempts),
		map[string]string{"outcome": outcome, "attempts": strconv.Itoa(attempts)},
	)
}

// RecordSweep records a janitor pass over a limiter store.
func RecordSweep(limiter string, removed int, remaining int) {
	if observability.TelemetrySystem == nil {
		return
	}

	labels := map[string]string{"limiter": limiter}
	if removed > 0 {
		_ = observability.TelemetrySystem.Counter(LimiterSweptTotalName, float64(removed), labels)
	}
	_ = observability.TelemetrySystem.Gauge(LimiterKeysName, float64(remaining), labels)
}

// SetServerStartTime records the server start time (Unix timestamp)
func SetServerStartTime(timestamp int64) {
	if observability.TelemetrySystem != nil {
		_ = observability.TelemetrySystem.Gauge(
			ServerStartTimeName,
			float64(timestamp),
			nil,
		)
	}
}

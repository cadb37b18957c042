package metrics

import (
	"net/http"
	"testing"
	"time"

	"github.com/fulmenhq/gofulmen/telemetry"
	telemetrytesting "github.com/fulmenhq/gofulmen/telemetry/testing"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/folioai/chatgate/internal/observability"
)

func setupTelemetry(t *testing.T) *telemetrytesting.FakeCollector {
	t.Helper()

	collector := telemetrytesting.NewFakeCollector()
	sys, err := telemetry.NewSystem(&telemetry.Config{
		Enabled: true,
		Emitter: collector,
	})
	require.NoError(t, err)

	original := observability.TelemetrySystem
	observability.TelemetrySystem = sys
	t.Cleanup(func() {
		observability.TelemetrySystem = original
	})

	return collector
}

func TestRecordAdmission(t *testing.T) {
	collector := setupTelemetry(t)

	RecordAdmission("rate", true)
	RecordAdmission("question", false)

	assert.Equal(t, 2, collector.CountMetricsByName(AdmissionsTotalName))
}

func TestRecordTurn(t *testing.T) {
	collector := setupTelemetry(t)

	RecordTurn("completed", 3, 2500*time.Millisecond)

	assert.Greater(t, collector.CountMetricsByName(TurnsTotalName), 0)
	assert.Greater(t, collector.CountMetricsByName(TurnDurationName), 0)
	assert.Greater(t, collector.CountMetricsByName(TurnPollAttemptsName), 0)
}

func TestRecordSweepSkipsEmptyCounter(t *testing.T) {
	collector := setupTelemetry(t)

	RecordSweep("rate", 0, 4)
	assert.Equal(t, 0, collector.CountMetricsByName(LimiterSweptTotalName))
	assert.Equal(t, 1, collector.CountMetricsByName(LimiterKeysName))

	RecordSweep("rate", 2, 2)
	assert.Equal(t, 1, collector.CountMetricsByName(LimiterSweptTotalName))
}

func TestRecordErrorAndPanic(t *testing.T) {
	collector := setupTelemetry(t)

	RecordError("RATE_LIMIT_EXCEEDED", ClassQuota, http.StatusTooManyRequests)
	RecordErrorByEndpoint("/api/chat", ClassQuota)
	RecordPanic("/api/chat")

	assert.Equal(t, 1, collector.CountMetricsByName(ErrorsTotalName))
	assert.Equal(t, 1, collector.CountMetricsByName(ErrorsByEndpointName))
	assert.Equal(t, 1, collector.CountMetricsByName(PanicsTotalName))
}

func TestRecordersAreNilSafe(t *testing.T) {
	original := observability.TelemetrySystem
	observability.TelemetrySystem = nil
	t.Cleanup(func() { observability.TelemetrySystem = original })

	assert.NotPanics(t, func() {
		RecordAdmission("rate", true)
		RecordTurn("timeout", 60, time.Minute)
		RecordSweep("question", 1, 0)
		RecordError("X", ClassServer, 500)
		RecordPanic("/unknown")
		SetServerStartTime(time.Now().Unix())
	})
}

func TestRecordHealthCheck(t *testing.T) {
	collector := setupTelemetry(t)

	RecordHealthCheck("stats_redis", false, 3*time.Millisecond)

	assert.Equal(t, 1, collector.CountMetricsByName(HealthCheckTotalName))
	assert.Greater(t, collector.CountMetricsByName(HealthCheckDurationName), 0)
}

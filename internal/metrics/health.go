package metrics

import (
	"time"

	"github.com/folioai/chatgate/internal/observability"
)

// Health check metrics
const (
	HealthCheckTotalName    = "app_health_check_total"
	HealthCheckDurationName = "app_health_check_duration_ms"
)

// RecordHealthCheck records a health check execution
func RecordHealthCheck(checkName string, healthy bool, duration time.Duration) {
	if observability.TelemetrySystem == nil {
		return
	}

	status := "healthy"
	if !healthy {
		status = "unhealthy"
	}

	_ = observability.TelemetrySystem.Counter(
		HealthCheckTotalName,
		1,
		map[string]string{
			"check":  checkName,
			"status": status,
		},
	)
	_ = observability.TelemetrySystem.Histogram(
		HealthCheckDurationName,
		duration,
		map[string]string{"check": checkName},
	)
}

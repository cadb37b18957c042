package metrics

import (
	"strconv"

	"github.com/folioai/chatgate/internal/observability"
)

// Error series. The class label splits visitor mistakes from quota denials
// and assistant trouble.
const (
	ErrorsTotalName      = "chat_errors_total"
	ErrorsByEndpointName = "chat_errors_by_endpoint"
	PanicsTotalName      = "chat_panics_total"
)

// Error classes.
const (
	ClassValidation = "validation"
	ClassQuota      = "quota"
	ClassUpstream   = "upstream"
	ClassServer     = "server"
)

// RecordError counts one error response.
func RecordError(code, class string, httpStatus int) {
	if observability.TelemetrySystem == nil {
		return
	}
	_ = observability.TelemetrySystem.Counter(ErrorsTotalName, 1, map[string]string{
		"code":        code,
		"class":       class,
		"http_status": strconv.Itoa(httpStatus),
	})
}

// RecordErrorByEndpoint counts an error class against a route pattern.
func RecordErrorByEndpoint(endpoint, class string) {
	if observability.TelemetrySystem == nil {
		return
	}
	_ = observability.TelemetrySystem.Counter(ErrorsByEndpointName, 1, map[string]string{
		"endpoint": endpoint,
		"class":    class,
	})
}

// RecordPanic counts a recovered handler panic.
func RecordPanic(endpoint string) {
	if observability.TelemetrySystem == nil {
		return
	}
	_ = observability.TelemetrySystem.Counter(PanicsTotalName, 1, map[string]string{"endpoint": endpoint})
}

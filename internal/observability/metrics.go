package observability

import (
	"fmt"
	"net"
	"strconv"

	"github.com/fulmenhq/gofulmen/telemetry"
	"github.com/fulmenhq/gofulmen/telemetry/exporters"
)

// DefaultMetricsPort is used when the exporter address cannot be resolved.
const DefaultMetricsPort = 9090

var (
	// TelemetrySystem receives http_*, chat_* and health series. Nil disables emission.
	TelemetrySystem *telemetry.System

	// PrometheusExporter serves the namespaced series on its own loopback port;
	// the main server proxies it at /metrics.
	PrometheusExporter *exporters.PrometheusExporter

	metricsPort int
)

// InitMetrics starts the exporter on port (0 picks a free one). Series are
// prefixed with namespace, or with serviceName when namespace is empty.
func InitMetrics(serviceName string, port int, namespace ...string) error {
	if port < 0 {
		port = 0
	}
	prefix := serviceName
	if len(namespace) > 0 && namespace[0] != "" {
		prefix = namespace[0]
	}

	exporter := exporters.NewPrometheusExporter(prefix, fmt.Sprintf(":%d", port))
	if err := exporter.Start(); err != nil {
		return fmt.Errorf("start prometheus exporter: %w", err)
	}

	sys, err := telemetry.NewSystem(&telemetry.Config{Enabled: true, Emitter: exporter})
	if err != nil {
		_ = exporter.Stop()
		return fmt.Errorf("create telemetry system: %w", err)
	}

	metricsPort = port
	if resolved, err := portOf(exporter.GetAddr()); err == nil {
		metricsPort = resolved
	}
	PrometheusExporter = exporter
	TelemetrySystem = sys
	return nil
}

// StopMetrics shuts the exporter down and disables emission.
func StopMetrics() error {
	var err error
	if PrometheusExporter != nil {
		err = PrometheusExporter.Stop()
	}
	PrometheusExporter = nil
	TelemetrySystem = nil
	metricsPort = 0
	return err
}

// GetMetricsPort returns the port the exporter listens on.
func GetMetricsPort() int {
	return metricsPort
}

// MetricsURL is the loopback scrape URL of the running exporter.
func MetricsURL() string {
	port := metricsPort
	if port == 0 {
		port = DefaultMetricsPort
	}
	return "http://" + net.JoinHostPort("127.0.0.1", strconv.Itoa(port)) + "/metrics"
}

func portOf(addr string) (int, error) {
	_, p, err := net.SplitHostPort(addr)
	if err != nil {
		return 0, err
	}
	return strconv.Atoi(p)
}

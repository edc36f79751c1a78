package metrics

import (
	"time"

	"github.com/foliolens/foliolens/internal/observability"
)

// Application-level metrics following Prometheus conventions
var (
	// Pipeline metrics
	PipelineRunsTotal    = "app_pipeline_runs_total"
	PipelineRunDuration  = "app_pipeline_run_duration_ms"
	PipelineDegradations = "app_pipeline_degradations_total"

	// Provider call metrics
	ProviderCallsTotal   = "app_provider_calls_total"
	ProviderCallDuration = "app_provider_call_duration_ms"

	// Brokerage fetch metrics
	BrokerFetchTotal = "app_broker_fetch_total"

	// Cache metrics
	AnalysisCacheTotal = "app_analysis_cache_total"

	// Report metrics
	ReportsWrittenTotal = "app_reports_written_total"

	// Server lifecycle metrics
	ServerStartTime = "app_server_start_time_seconds"
	ServerUptime    = "app_server_uptime_seconds"
)

// RecordPipelineRun records a completed pipeline run.
func RecordPipelineRun(success, degraded bool, duration time.Duration) {
	if observability.TelemetrySystem == nil {
		return
	}

	status := "success"
	if !success {
		status = "failure"
	}

	_ = observability.TelemetrySystem.Counter(
		PipelineRunsTotal,
		1,
		map[string]string{"status": status},
	)
	_ = observability.TelemetrySystem.Histogram(
		PipelineRunDuration,
		duration,
		map[string]string{"status": status},
	)

	if degraded {
		_ = observability.TelemetrySystem.Counter(PipelineDegradations, 1, nil)
	}
}

// RecordProviderCall records a model provider call with its outcome.
func RecordProviderCall(provider, operation, outcome string, duration time.Duration) {
	if observability.TelemetrySystem == nil {
		return
	}

	labels := map[string]string{
		"provider":  provider,
		"operation": operation,
		"outcome":   outcome,
	}
	_ = observability.TelemetrySystem.Counter(ProviderCallsTotal, 1, labels)
	_ = observability.TelemetrySystem.Histogram(
		ProviderCallDuration,
		duration,
		map[string]string{"provider": provider, "operation": operation},
	)
}

// RecordBrokerFetch records a brokerage section fetch.
func RecordBrokerFetch(section string, success bool) {
	if observability.TelemetrySystem == nil {
		return
	}

	status := "success"
	if !success {
		status = "failure"
	}
	_ = observability.TelemetrySystem.Counter(
		BrokerFetchTotal,
		1,
		map[string]string{"section": section, "status": status},
	)
}

// RecordCacheLookup records an analysis cache lookup result.
func RecordCacheLookup(hit bool) {
	if observability.TelemetrySystem == nil {
		return
	}

	result := "hit"
	if !hit {
		result = "miss"
	}
	_ = observability.TelemetrySystem.Counter(
		AnalysisCacheTotal,
		1,
		map[string]string{"result": result},
	)
}

// RecordReportWritten records a rendered report landing on disk.
func RecordReportWritten(format string) {
	if observability.TelemetrySystem == nil {
		return
	}
	_ = observability.TelemetrySystem.Counter(
		ReportsWrittenTotal,
		1,
		map[string]string{"format": format},
	)
}

// SetServerStartTime records the server start time (Unix timestamp)
func SetServerStartTime(timestamp int64) {
	if observability.TelemetrySystem != nil {
		_ = observability.TelemetrySystem.Gauge(ServerStartTime, float64(timestamp), nil)
	}
}

// SetServerUptime records the server uptime in seconds
func SetServerUptime(seconds int64) {
	if observability.TelemetrySystem != nil {
		_ = observability.TelemetrySystem.Gauge(ServerUptime, float64(seconds), nil)
	}
}

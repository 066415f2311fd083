// Package observe provides application-wide observability primitives:
// OpenTelemetry metrics, a Prometheus exporter bridge, and HTTP middleware.
//
// Metrics are recorded through the OpenTelemetry Metrics API and scraped
// via the standard /metrics endpoint. A package-level default [Metrics]
// instance ([DefaultMetrics]) is provided for convenience; tests should use
// [NewMetrics] with a custom [metric.MeterProvider] to avoid cross-test
// pollution.
package observe

import (
	"context"
	"sync"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// meterName is the instrumentation scope name used for all metrics.
const meterName = "github.com/aerochat/aerochat"

// Metrics holds all OpenTelemetry metric instruments for the application.
// All fields are safe for concurrent use — the underlying OTel types handle
// their own synchronisation.
type Metrics struct {
	// TurnDuration tracks end-to-end conversation turn latency.
	TurnDuration metric.Float64Histogram

	// ToolExecutionDuration tracks booking-tool execution latency. Use with
	// attribute.String("tool", ...).
	ToolExecutionDuration metric.Float64Histogram

	// EngineDuration tracks reasoning-engine decision latency.
	EngineDuration metric.Float64Histogram

	// WindowSize tracks the number of messages submitted per decision.
	WindowSize metric.Int64Histogram

	// ToolCalls counts tool invocations. Use with attributes:
	//   attribute.String("tool", ...), attribute.String("status", ...)
	ToolCalls metric.Int64Counter

	// EngineRequests counts reasoning-engine calls by status.
	EngineRequests metric.Int64Counter

	// ReservationErrors counts remote reservation failures by operation.
	ReservationErrors metric.Int64Counter

	// ActiveTurns tracks the number of turns currently in flight.
	ActiveTurns metric.Int64UpDownCounter

	// HTTPRequestDuration tracks HTTP request processing time. Use with
	// attributes: attribute.String("method", ...), attribute.String("path", ...)
	HTTPRequestDuration metric.Float64Histogram
}

// latencyBuckets defines histogram bucket boundaries (in seconds) sized for
// multi-round turns that may include several remote calls.
var latencyBuckets = []float64{
	0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30, 60,
}

// NewMetrics creates a fully initialised [Metrics] struct using the given
// [metric.MeterProvider]. Returns an error if any instrument creation fails.
func NewMetrics(mp metric.MeterProvider) (*Metrics, error) {
	m := mp.Meter(meterName)
	var err error
	met := &Metrics{}

	if met.TurnDuration, err = m.Float64Histogram("aerochat.turn.duration",
		metric.WithDescription("End-to-end latency of one conversation turn."),
		metric.WithUnit("s"),
		metric.WithExplicitBucketBoundaries(latencyBuckets...),
	); err != nil {
		return nil, err
	}
	if met.ToolExecutionDuration, err = m.Float64Histogram("aerochat.tool.duration",
		metric.WithDescription("Latency of booking-tool execution."),
		metric.WithUnit("s"),
		metric.WithExplicitBucketBoundaries(latencyBuckets...),
	); err != nil {
		return nil, err
	}
	if met.EngineDuration, err = m.Float64Histogram("aerochat.engine.duration",
		metric.WithDescription("Latency of reasoning-engine decisions."),
		metric.WithUnit("s"),
		metric.WithExplicitBucketBoundaries(latencyBuckets...),
	); err != nil {
		return nil, err
	}
	if met.WindowSize, err = m.Int64Histogram("aerochat.window.size",
		metric.WithDescription("Messages submitted to the reasoning engine per decision."),
	); err != nil {
		return nil, err
	}

	if met.ToolCalls, err = m.Int64Counter("aerochat.tool.calls",
		metric.WithDescription("Total tool invocations by tool name and status."),
	); err != nil {
		return nil, err
	}
	if met.EngineRequests, err = m.Int64Counter("aerochat.engine.requests",
		metric.WithDescription("Total reasoning-engine requests by status."),
	); err != nil {
		return nil, err
	}
	if met.ReservationErrors, err = m.Int64Counter("aerochat.reservation.errors",
		metric.WithDescription("Total reservation-system failures by operation."),
	); err != nil {
		return nil, err
	}

	if met.ActiveTurns, err = m.Int64UpDownCounter("aerochat.active_turns",
		metric.WithDescription("Number of conversation turns currently in flight."),
	); err != nil {
		return nil, err
	}

	if met.HTTPRequestDuration, err = m.Float64Histogram("aerochat.http.request.duration",
		metric.WithDescription("HTTP request latency by method and path."),
		metric.WithUnit("s"),
	); err != nil {
		return nil, err
	}

	return met, nil
}

// defaultMetrics is the lazily-initialised package-level Metrics instance.
var (
	defaultMetrics     *Metrics
	defaultMetricsOnce sync.Once
)

// DefaultMetrics returns the package-level [Metrics] instance, creating it
// on first call using [otel.GetMeterProvider]. Subsequent calls return the
// same pointer. Panics if instrument creation fails (should not happen with
// the global provider).
func DefaultMetrics() *Metrics {
	defaultMetricsOnce.Do(func() {
		var err error
		defaultMetrics, err = NewMetrics(otel.GetMeterProvider())
		if err != nil {
			panic("observe: failed to create default metrics: " + err.Error())
		}
	})
	return defaultMetrics
}

// RecordToolCall records one tool invocation with its outcome and latency.
func (m *Metrics) RecordToolCall(ctx context.Context, tool, status string, d time.Duration) {
	m.ToolCalls.Add(ctx, 1,
		metric.WithAttributes(
			attribute.String("tool", tool),
			attribute.String("status", status),
		),
	)
	m.ToolExecutionDuration.Record(ctx, d.Seconds(),
		metric.WithAttributes(attribute.String("tool", tool)),
	)
}

// RecordEngineRequest records one reasoning-engine call.
func (m *Metrics) RecordEngineRequest(ctx context.Context, status string, d time.Duration) {
	m.EngineRequests.Add(ctx, 1,
		metric.WithAttributes(attribute.String("status", status)),
	)
	m.EngineDuration.Record(ctx, d.Seconds())
}

// RecordReservationError records one remote reservation failure.
func (m *Metrics) RecordReservationError(ctx context.Context, op string) {
	m.ReservationErrors.Add(ctx, 1,
		metric.WithAttributes(attribute.String("operation", op)),
	)
}

package middleware

import (
	"context"
	"fmt"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"

	"github.com/xraph/fairqueue"
)

// meterName is the instrumentation scope name for fairqueue metrics.
const meterName = "github.com/xraph/fairqueue"

// Metrics returns middleware that records per-entry consumption metrics
// using the global OTel MeterProvider. If no MeterProvider is
// configured, noop instruments are used and this middleware becomes a
// pass-through.
//
// Instruments:
//   - fairqueue.consume.duration (Float64Histogram): handler time in
//     seconds, with attributes: key, status ("ok" or "error")
//   - fairqueue.consume.executions (Int64Counter): total handler calls,
//     with attributes: key, status ("ok" or "error")
func Metrics[T any, K comparable]() Middleware[T, K] {
	meter := otel.Meter(meterName)
	return MetricsWithMeter[T, K](meter)
}

// MetricsWithMeter returns metrics middleware using the provided meter.
// This variant allows injecting a specific MeterProvider for testing.
func MetricsWithMeter[T any, K comparable](meter metric.Meter) Middleware[T, K] {
	// Create instruments once at middleware construction time.
	// OTel instruments are safe for concurrent use. On error, the API
	// returns noop instruments so the middleware degrades gracefully.
	duration, dErr := meter.Float64Histogram(
		"fairqueue.consume.duration",
		metric.WithDescription("Duration of entry consumption in seconds"),
		metric.WithUnit("s"),
	)
	_ = dErr // noop fallback guaranteed by OTel API contract

	executions, eErr := meter.Int64Counter(
		"fairqueue.consume.executions",
		metric.WithDescription("Total number of consumed entries"),
		metric.WithUnit("{entry}"),
	)
	_ = eErr // noop fallback guaranteed by OTel API contract

	return func(ctx context.Context, e fairqueue.Entry[T, K], next Handler) error {
		start := time.Now()
		err := next(ctx)
		elapsed := time.Since(start).Seconds()

		status := "ok"
		if err != nil {
			status = "error"
		}

		attrs := metric.WithAttributes(
			attribute.String("key", fmt.Sprint(e.Key)),
			attribute.String("status", status),
		)
		duration.Record(ctx, elapsed, attrs)
		executions.Add(ctx, 1, attrs)

		return err
	}
}

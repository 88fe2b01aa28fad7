// Package observability provides a ready-made extension that records
// queue lifecycle metrics via OpenTelemetry. Register it on an
// ext.Registry attached to the queue to automatically track push rates,
// pop rates, overflow rejections, in-queue wait time, and fairness round
// sizes.
package observability

import (
	"context"
	"fmt"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"

	"github.com/xraph/fairqueue/ext"
)

// meterName is the instrumentation scope name for fairqueue metrics.
const meterName = "github.com/xraph/fairqueue"

// Compile-time interface checks.
var (
	_ ext.Extension     = (*MetricsExtension)(nil)
	_ ext.ItemPushed    = (*MetricsExtension)(nil)
	_ ext.ItemPopped    = (*MetricsExtension)(nil)
	_ ext.QueueOverflow = (*MetricsExtension)(nil)
	_ ext.RoundRebuilt  = (*MetricsExtension)(nil)
)

// MetricsExtension records queue lifecycle metrics.
//
// Instruments:
//   - fairqueue.items.pushed (Int64Counter): accepted pushes, by key
//   - fairqueue.items.popped (Int64Counter): successful pops, by key
//   - fairqueue.items.rejected (Int64Counter): overflow rejections, by key
//   - fairqueue.item.wait (Float64Histogram): push-to-pop latency in seconds
//   - fairqueue.round.size (Int64Histogram): representatives per fairness round
type MetricsExtension struct {
	pushed   metric.Int64Counter
	popped   metric.Int64Counter
	rejected metric.Int64Counter
	wait     metric.Float64Histogram
	round    metric.Int64Histogram
}

// NewMetricsExtension creates a MetricsExtension using the global OTel
// MeterProvider. If none is configured the instruments are noops.
func NewMetricsExtension() *MetricsExtension {
	return NewMetricsExtensionWithMeter(otel.Meter(meterName))
}

// NewMetricsExtensionWithMeter creates a MetricsExtension with the
// provided meter. This variant allows injecting a specific MeterProvider
// for testing.
func NewMetricsExtensionWithMeter(meter metric.Meter) *MetricsExtension {
	// On error the OTel API returns noop instruments, so the extension
	// degrades gracefully.
	pushed, _ := meter.Int64Counter(
		"fairqueue.items.pushed",
		metric.WithDescription("Total number of items accepted by Push"),
		metric.WithUnit("{item}"),
	)
	popped, _ := meter.Int64Counter(
		"fairqueue.items.popped",
		metric.WithDescription("Total number of items returned by Pop"),
		metric.WithUnit("{item}"),
	)
	rejected, _ := meter.Int64Counter(
		"fairqueue.items.rejected",
		metric.WithDescription("Total number of pushes rejected at capacity"),
		metric.WithUnit("{item}"),
	)
	wait, _ := meter.Float64Histogram(
		"fairqueue.item.wait",
		metric.WithDescription("Time items spend queued between push and pop"),
		metric.WithUnit("s"),
	)
	round, _ := meter.Int64Histogram(
		"fairqueue.round.size",
		metric.WithDescription("Number of per-key representatives in each fairness round"),
		metric.WithUnit("{item}"),
	)

	return &MetricsExtension{
		pushed:   pushed,
		popped:   popped,
		rejected: rejected,
		wait:     wait,
		round:    round,
	}
}

// Name implements ext.Extension.
func (m *MetricsExtension) Name() string { return "observability-metrics" }

// OnItemPushed implements ext.ItemPushed.
func (m *MetricsExtension) OnItemPushed(ctx context.Context, ev ext.PushEvent) error {
	m.pushed.Add(ctx, 1, keyAttr(ev.Key))
	return nil
}

// OnItemPopped implements ext.ItemPopped.
func (m *MetricsExtension) OnItemPopped(ctx context.Context, ev ext.PopEvent) error {
	attrs := keyAttr(ev.Key)
	m.popped.Add(ctx, 1, attrs)
	m.wait.Record(ctx, ev.Wait.Seconds(), attrs)
	return nil
}

// OnQueueOverflow implements ext.QueueOverflow.
func (m *MetricsExtension) OnQueueOverflow(ctx context.Context, ev ext.OverflowEvent) error {
	m.rejected.Add(ctx, 1, keyAttr(ev.Key))
	return nil
}

// OnRoundRebuilt implements ext.RoundRebuilt.
func (m *MetricsExtension) OnRoundRebuilt(ctx context.Context, ev ext.RoundEvent) error {
	m.round.Record(ctx, int64(ev.Size))
	return nil
}

// keyAttr renders the partition key as a string attribute. Keys are
// expected to be low-cardinality (tenant, sender, shard); high-cardinality
// keys belong in spans, not metric attributes.
func keyAttr(key any) metric.MeasurementOption {
	return metric.WithAttributes(attribute.String("key", fmt.Sprint(key)))
}

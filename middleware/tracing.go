package middleware

import (
	"context"
	"fmt"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/xraph/fairqueue"
)

// tracerName is the instrumentation scope name for fairqueue tracing.
const tracerName = "github.com/xraph/fairqueue"

// Tracing returns middleware that wraps entry consumption in an
// OpenTelemetry span. If no TracerProvider is configured globally, the
// default noop tracer is used and this middleware becomes a
// pass-through with zero overhead.
//
// Span attributes include: fairqueue.key and fairqueue.seq.
// On error, the span status is set to codes.Error with the error message.
func Tracing[T any, K comparable]() Middleware[T, K] {
	tracer := otel.Tracer(tracerName)
	return TracingWithTracer[T, K](tracer)
}

// TracingWithTracer returns tracing middleware using the provided tracer.
// This variant allows injecting a specific TracerProvider for testing or
// when multiple providers are in use.
func TracingWithTracer[T any, K comparable](tracer trace.Tracer) Middleware[T, K] {
	return func(ctx context.Context, e fairqueue.Entry[T, K], next Handler) error {
		ctx, span := tracer.Start(ctx, "fairqueue.entry.consume",
			trace.WithAttributes(
				attribute.String("fairqueue.key", fmt.Sprint(e.Key)),
				attribute.Int64("fairqueue.seq", int64(e.Seq)),
			),
			trace.WithSpanKind(trace.SpanKindInternal),
		)
		defer span.End()

		err := next(ctx)
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
		} else {
			span.SetStatus(codes.Ok, "")
		}

		return err
	}
}

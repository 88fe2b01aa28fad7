package middleware

import (
	"context"
	"fmt"
	"log/slog"
	"runtime/debug"

	"github.com/xraph/fairqueue"
)

// Recover returns middleware that recovers from panics in the handler
// chain. Panics are converted to errors and logged with a stack trace.
func Recover[T any, K comparable](logger *slog.Logger) Middleware[T, K] {
	return func(ctx context.Context, e fairqueue.Entry[T, K], next Handler) (retErr error) {
		defer func() {
			if r := recover(); r != nil {
				stack := string(debug.Stack())
				logger.Error("entry handler panicked",
					slog.Any("key", e.Key),
					slog.Uint64("seq", e.Seq),
					slog.Any("panic", r),
					slog.String("stack", stack),
				)
				retErr = fmt.Errorf("panic consuming entry %d: %v", e.Seq, r)
			}
		}()
		return next(ctx)
	}
}

package middleware

import (
	"context"
	"time"

	"github.com/xraph/fairqueue"
)

// Timeout returns middleware that enforces a per-entry execution
// deadline. A context.WithTimeout wraps the handler call; when the
// deadline is exceeded the context is cancelled and the handler should
// return context.DeadlineExceeded. A non-positive duration disables the
// deadline and the middleware becomes a pass-through.
func Timeout[T any, K comparable](d time.Duration) Middleware[T, K] {
	return func(ctx context.Context, _ fairqueue.Entry[T, K], next Handler) error {
		if d > 0 {
			var cancel context.CancelFunc
			ctx, cancel = context.WithTimeout(ctx, d)
			defer cancel()
		}
		return next(ctx)
	}
}

package middleware

import (
	"context"
	"log/slog"
	"time"

	"github.com/xraph/fairqueue"
)

// Logging returns middleware that logs entry consumption start and
// completion.
func Logging[T any, K comparable](logger *slog.Logger) Middleware[T, K] {
	return func(ctx context.Context, e fairqueue.Entry[T, K], next Handler) error {
		logger.Info("entry started",
			slog.Any("key", e.Key),
			slog.Uint64("seq", e.Seq),
		)

		start := time.Now()
		err := next(ctx)
		elapsed := time.Since(start)

		if err != nil {
			logger.Error("entry failed",
				slog.Any("key", e.Key),
				slog.Uint64("seq", e.Seq),
				slog.Duration("elapsed", elapsed),
				slog.String("error", err.Error()),
			)
		} else {
			logger.Info("entry completed",
				slog.Any("key", e.Key),
				slog.Uint64("seq", e.Seq),
				slog.Duration("elapsed", elapsed),
			)
		}

		return err
	}
}

// Package worker provides the consumption engine for a fair queue — an
// Executor that runs entries through middleware and a handler, and a
// Pool that manages concurrent consumer goroutines polling the queue.
package worker

import (
	"context"
	"log/slog"
	"time"

	"github.com/xraph/fairqueue"
	"github.com/xraph/fairqueue/middleware"
)

// Handler is the application callback that processes a dequeued entry.
type Handler[T any, K comparable] func(ctx context.Context, e fairqueue.Entry[T, K]) error

// Executor runs a single entry through the middleware chain and the
// handler, logging failures. It carries no queue state and is safe for
// concurrent use.
type Executor[T any, K comparable] struct {
	handler Handler[T, K]
	mw      middleware.Middleware[T, K]
	logger  *slog.Logger
}

// NewExecutor creates an Executor. Middleware are applied in the given
// order, first middleware outermost.
func NewExecutor[T any, K comparable](
	handler Handler[T, K],
	logger *slog.Logger,
	mws ...middleware.Middleware[T, K],
) *Executor[T, K] {
	if logger == nil {
		logger = slog.Default()
	}
	ex := &Executor[T, K]{
		handler: handler,
		logger:  logger,
	}
	if len(mws) > 0 {
		ex.mw = middleware.Chain(mws...)
	}
	return ex
}

// Execute runs the entry through middleware and the handler, returning
// the handler's error.
func (ex *Executor[T, K]) Execute(ctx context.Context, e fairqueue.Entry[T, K]) error {
	terminal := func(ctx context.Context) error {
		return ex.handler(ctx, e)
	}

	start := time.Now()
	var err error
	if ex.mw != nil {
		err = ex.mw(ctx, e, terminal)
	} else {
		err = terminal(ctx)
	}

	if err != nil {
		ex.logger.Error("entry handler error",
			slog.Any("key", e.Key),
			slog.Uint64("seq", e.Seq),
			slog.Duration("elapsed", time.Since(start)),
			slog.String("error", err.Error()),
		)
	}
	return err
}

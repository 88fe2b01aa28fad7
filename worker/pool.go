package worker

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/xraph/fairqueue"
	"github.com/xraph/fairqueue/backoff"
	"github.com/xraph/fairqueue/ext"
)

// Pool manages a set of concurrent consumer goroutines that poll a fair
// queue and execute entries through the Executor.
type Pool[T any, K comparable] struct {
	queue       *fairqueue.Queue[T, K]
	executor    *Executor[T, K]
	extensions  *ext.Registry
	concurrency int
	idle        backoff.Strategy
	limiter     *Limiter
	logger      *slog.Logger

	stopCh  chan struct{}
	wg      sync.WaitGroup
	mu      sync.Mutex
	running bool

	// baseCtx is the parent of every handler context. Cancelling it
	// aborts in-flight handlers when Stop's deadline expires.
	baseCtx context.Context
	cancel  context.CancelFunc
}

// PoolOption configures a Pool.
type PoolOption func(*poolConfig)

// poolConfig is deliberately not generic so that PoolOption values
// compose without explicit type arguments at the call site.
type poolConfig struct {
	concurrency int
	idle        backoff.Strategy
	limiter     *Limiter
	extensions  *ext.Registry
}

// WithPoolConcurrency sets the number of concurrent consumer goroutines.
func WithPoolConcurrency(n int) PoolOption {
	return func(c *poolConfig) {
		if n > 0 {
			c.concurrency = n
		}
	}
}

// WithIdleStrategy sets how long consumers wait between empty polls.
func WithIdleStrategy(s backoff.Strategy) PoolOption {
	return func(c *poolConfig) {
		if s != nil {
			c.idle = s
		}
	}
}

// WithLimiter sets the per-key rate limiter and in-flight gate.
func WithLimiter(l *Limiter) PoolOption {
	return func(c *poolConfig) { c.limiter = l }
}

// WithPoolExtensions sets the extension registry notified on shutdown.
func WithPoolExtensions(r *ext.Registry) PoolOption {
	return func(c *poolConfig) { c.extensions = r }
}

// NewPool creates a consumer pool draining queue through executor.
func NewPool[T any, K comparable](
	queue *fairqueue.Queue[T, K],
	executor *Executor[T, K],
	logger *slog.Logger,
	opts ...PoolOption,
) *Pool[T, K] {
	if logger == nil {
		logger = slog.Default()
	}
	cfg := poolConfig{
		concurrency: 4,
		idle:        backoff.DefaultStrategy(),
	}
	for _, opt := range opts {
		opt(&cfg)
	}
	return &Pool[T, K]{
		queue:       queue,
		executor:    executor,
		extensions:  cfg.extensions,
		concurrency: cfg.concurrency,
		idle:        cfg.idle,
		limiter:     cfg.limiter,
		logger:      logger,
		stopCh:      make(chan struct{}),
	}
}

// Start launches the consumer goroutines. It returns immediately.
func (p *Pool[T, K]) Start(ctx context.Context) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.running {
		return nil
	}
	p.running = true
	p.baseCtx, p.cancel = context.WithCancel(context.WithoutCancel(ctx))

	p.logger.Info("consumer pool starting",
		slog.Int("concurrency", p.concurrency),
	)

	for range p.concurrency {
		p.wg.Add(1)
		go p.consumeLoop()
	}
	return nil
}

// Stop signals all consumers to stop and waits for them to finish.
// If the context has a deadline, in-flight handlers are cancelled when
// time runs out. Remaining queued items stay in the queue.
func (p *Pool[T, K]) Stop(ctx context.Context) error {
	p.mu.Lock()
	if !p.running {
		p.mu.Unlock()
		return nil
	}
	p.running = false
	p.mu.Unlock()

	p.logger.Info("consumer pool stopping")

	// Signal all consumers to stop.
	close(p.stopCh)

	// Wait for completion or context deadline.
	done := make(chan struct{})
	go func() {
		p.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		p.logger.Info("consumer pool stopped gracefully")
	case <-ctx.Done():
		p.logger.Warn("consumer pool shutdown timed out, cancelling in-flight handlers")
		p.cancel()
		p.wg.Wait()
	}
	p.cancel()

	if p.extensions != nil {
		p.extensions.EmitShutdown(ctx)
	}
	return nil
}

// consumeLoop is run by each consumer goroutine.
func (p *Pool[T, K]) consumeLoop() {
	defer p.wg.Done()

	idle := 0
	for {
		select {
		case <-p.stopCh:
			return
		default:
		}

		e, ok := p.queue.PopEntry()
		if !ok {
			idle++
			if !p.sleep(p.idle.Delay(idle)) {
				return
			}
			continue
		}
		idle = 0

		// Check the per-key rate limit and in-flight cap.
		if p.limiter != nil && !p.limiter.Acquire(e.Key) {
			// Rate limited — defer the entry by re-pushing it. The entry
			// re-enters the queue with a fresh sequence number at the
			// back of its key's lane.
			if err := p.queue.Push(e.Payload); err != nil {
				p.logger.Error("failed to defer rate-limited entry, dropping it",
					slog.Any("key", e.Key),
					slog.Uint64("seq", e.Seq),
					slog.String("error", err.Error()),
				)
			}
			if !p.sleep(p.idle.Delay(1)) {
				return
			}
			continue
		}

		_ = p.executor.Execute(p.baseCtx, e)
		if p.limiter != nil {
			p.limiter.Release(e.Key)
		}
	}
}

// sleep waits for d or until the pool is stopped. It returns false when
// the pool is stopping.
func (p *Pool[T, K]) sleep(d time.Duration) bool {
	if d <= 0 {
		return true
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-p.stopCh:
		return false
	case <-t.C:
		return true
	}
}

package fairqueue

import (
	"time"

	"github.com/xraph/fairqueue/ext"
)

// DefaultCapacity is the maximum number of outstanding items a queue
// holds when [WithCapacity] is not supplied.
const DefaultCapacity = 128

// Option configures a queue at construction time.
type Option func(*options) error

// options is deliberately not generic so that Option values compose
// without explicit type arguments at the call site.
type options struct {
	capacity   int
	extensions *ext.Registry
	nowFn      func() time.Time
}

func defaultOptions() options {
	return options{
		capacity: DefaultCapacity,
		nowFn:    time.Now,
	}
}

// WithCapacity bounds the total number of outstanding items, selected
// plus pending. Pushes beyond the bound fail with an [*OverflowError].
func WithCapacity(n int) Option {
	return func(o *options) error {
		if n <= 0 {
			return ErrInvalidCapacity
		}
		o.capacity = n
		return nil
	}
}

// WithExtensions attaches an extension registry. The queue emits push,
// pop, overflow, and round-rebuild events to it. Events are emitted
// after the operation commits, outside the queue's internal lock.
func WithExtensions(r *ext.Registry) Option {
	return func(o *options) error {
		o.extensions = r
		return nil
	}
}

// WithNowFunc overrides the clock used to stamp entries. Intended for
// tests that assert on wait durations.
func WithNowFunc(now func() time.Time) Option {
	return func(o *options) error {
		if now != nil {
			o.nowFn = now
		}
		return nil
	}
}

package fairqueue

import (
	"errors"
	"fmt"
)

var (
	// ErrQueueFull is the sentinel matched by errors.Is for pushes
	// rejected at capacity. The concrete error is an [*OverflowError].
	ErrQueueFull = errors.New("fairqueue: queue is full")

	// ErrNilKeyFunc is returned by New when no key function is supplied.
	ErrNilKeyFunc = errors.New("fairqueue: key function must not be nil")

	// ErrInvalidCapacity is returned by New for a non-positive capacity.
	ErrInvalidCapacity = errors.New("fairqueue: capacity must be positive")
)

// OverflowError is returned by Push when accepting the item would exceed
// the configured capacity. It carries the rejected item and the queue
// depth observed at rejection time for diagnostics. The queue state is
// unchanged by a rejected push; the caller may drop the item, apply
// backpressure, or retry after a pop.
type OverflowError[T any] struct {
	// Item is the rejected payload.
	Item T

	// Size is the total number of outstanding items at rejection time.
	Size int
}

// Error implements the error interface.
func (e *OverflowError[T]) Error() string {
	return fmt.Sprintf("fairqueue: queue is full (size %d)", e.Size)
}

// Is reports whether target is [ErrQueueFull], so callers can match
// overflow without naming the payload type.
func (e *OverflowError[T]) Is(target error) bool {
	return target == ErrQueueFull
}

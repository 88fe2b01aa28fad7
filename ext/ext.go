// Package ext defines the extension system for fairqueue.
// Extensions are notified of queue lifecycle events (item pushed, item
// popped, overflow, round rebuilt) and can react to them — logging,
// metrics, alerting, etc.
//
// Each lifecycle hook is a separate interface so extensions opt in only
// to the events they care about.
package ext

import (
	"context"
	"time"
)

// Extension is the base interface all extensions must implement.
type Extension interface {
	// Name returns a unique human-readable name for the extension.
	Name() string
}

// PushEvent describes a successfully pushed item. Key carries the
// partition key as an opaque value; Seq is the sequence number assigned
// to the item and Size the total queue depth after the push.
type PushEvent struct {
	Key  any
	Seq  uint64
	Size int
}

// PopEvent describes a successfully popped item. Wait is the time the
// item spent in the queue between push and pop; Size is the total queue
// depth after the pop.
type PopEvent struct {
	Key  any
	Seq  uint64
	Size int
	Wait time.Duration
}

// OverflowEvent describes a push rejected because the queue was full.
// Size is the queue depth observed at rejection time.
type OverflowEvent struct {
	Key  any
	Size int
}

// RoundEvent describes a fairness round rebuild. Size is the number of
// per-key representatives selected into the new round.
type RoundEvent struct {
	Size int
}

// ──────────────────────────────────────────────────
// Queue lifecycle hooks
// ──────────────────────────────────────────────────

// ItemPushed is called after an item is successfully pushed.
type ItemPushed interface {
	OnItemPushed(ctx context.Context, ev PushEvent) error
}

// ItemPopped is called after an item is successfully popped.
type ItemPopped interface {
	OnItemPopped(ctx context.Context, ev PopEvent) error
}

// QueueOverflow is called when a push is rejected for capacity.
type QueueOverflow interface {
	OnQueueOverflow(ctx context.Context, ev OverflowEvent) error
}

// RoundRebuilt is called when an empty selected round is rebuilt from
// the pending lanes.
type RoundRebuilt interface {
	OnRoundRebuilt(ctx context.Context, ev RoundEvent) error
}

// Shutdown is called during graceful shutdown of the consumer side.
type Shutdown interface {
	OnShutdown(ctx context.Context) error
}

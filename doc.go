// Package fairqueue provides a fair, key-partitioned in-memory work queue
// for Go. Items are pushed with a key derived from their payload, and pops
// return items round-robin across keys so that no single key can starve
// the others.
//
// Fairqueue is designed as a library, not a service. Import it, supply a
// key function, and push and pop from as many goroutines as you like.
//
// # Quick Start
//
//	q, err := fairqueue.New(
//	    func(m Message) string { return m.Sender },
//	    fairqueue.WithCapacity(256),
//	)
//	if err != nil { ... }
//
//	if err := q.Push(msg); err != nil { ... }
//
//	m, ok := q.Pop()
//
// # Fairness Model
//
// Every pushed item is stamped with a globally unique, strictly increasing
// sequence number and appended to the FIFO lane of its key. Pops drain a
// "selected" round: when the round runs dry, the queue atomically takes the
// head item of every non-empty lane, sorts those representatives by sequence
// number, and installs them as the next round. Within a round each key
// contributes at most one item, and the key that has waited longest goes
// first. Items of the same key are always delivered in push order.
//
// # Capacity
//
// The queue holds at most a fixed number of outstanding items (selected
// plus pending, default 128). Push returns an [*OverflowError] — matching
// [ErrQueueFull] via errors.Is — when the queue is full, and never blocks.
// Pop never fails; an empty queue reports ok=false.
//
// # Consuming
//
// The core queue is poll-based. The worker subpackage provides a goroutine
// pool that drains the queue through a middleware chain, with idle backoff
// and optional per-key rate limiting. The ext and observability subpackages
// add lifecycle hooks and OpenTelemetry metrics.
package fairqueue

package fairqueue

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/xraph/fairqueue/ext"
)

// KeyFunc derives the partition key for a payload. It is called exactly
// once per Push and must not have side effects visible to the queue.
type KeyFunc[T any, K comparable] func(T) K

// Entry wraps a payload with the key computed at push time, the sequence
// number that orders items across keys, and the push timestamp.
type Entry[T any, K comparable] struct {
	Payload  T
	Key      K
	Seq      uint64
	PushedAt time.Time
}

// Queue is a fair, key-partitioned work queue. Pushed items are appended
// to the FIFO lane of their key; pops serve one item per key per fairness
// round, oldest round representative first. All operations are atomic and
// non-blocking, and the queue is safe for concurrent use.
//
// Create one with [New]. The zero value is not usable.
type Queue[T any, K comparable] struct {
	keyFn      KeyFunc[T, K]
	capacity   int
	extensions *ext.Registry
	nowFn      func() time.Time

	// mu guards every field below. Each public operation holds it for
	// the whole read-compute-write step so no caller can observe a
	// half-applied push, pop, or round rebuild.
	mu       sync.Mutex
	selected []Entry[T, K]
	pending  map[K][]Entry[T, K]
	seq      uint64
	size     int
}

// New creates a fair queue that partitions payloads with keyFn.
// The default capacity is 128; override it with [WithCapacity].
func New[T any, K comparable](keyFn KeyFunc[T, K], opts ...Option) (*Queue[T, K], error) {
	if keyFn == nil {
		return nil, ErrNilKeyFunc
	}

	o := defaultOptions()
	for _, opt := range opts {
		if err := opt(&o); err != nil {
			return nil, err
		}
	}

	return &Queue[T, K]{
		keyFn:      keyFn,
		capacity:   o.capacity,
		extensions: o.extensions,
		nowFn:      o.nowFn,
		pending:    make(map[K][]Entry[T, K]),
	}, nil
}

// Capacity returns the configured maximum number of outstanding items.
func (q *Queue[T, K]) Capacity() int { return q.capacity }

// Push appends item to the tail of its key's lane. It never blocks.
//
// When the queue already holds its full capacity the push is rejected
// without mutating any state and an [*OverflowError] is returned carrying
// the rejected item and the depth observed at rejection time. The
// capacity check and the append commit as one atomic step, so concurrent
// pushes cannot both squeeze past the limit.
func (q *Queue[T, K]) Push(item T) error {
	key := q.keyFn(item)

	q.mu.Lock()
	if q.size >= q.capacity {
		observed := q.size
		q.mu.Unlock()
		if q.extensions != nil {
			q.extensions.EmitQueueOverflow(context.Background(), ext.OverflowEvent{Key: key, Size: observed})
		}
		return &OverflowError[T]{Item: item, Size: observed}
	}

	e := Entry[T, K]{
		Payload:  item,
		Key:      key,
		Seq:      q.seq,
		PushedAt: q.nowFn(),
	}
	q.seq++
	q.pending[key] = append(q.pending[key], e)
	q.size++
	depth := q.size
	q.mu.Unlock()

	if q.extensions != nil {
		q.extensions.EmitItemPushed(context.Background(), ext.PushEvent{Key: key, Seq: e.Seq, Size: depth})
	}
	return nil
}

// Pop removes and returns the next payload in fairness order. The second
// return value is false when the queue is empty; an empty pop is a normal
// outcome, never an error, and leaves the queue untouched.
func (q *Queue[T, K]) Pop() (T, bool) {
	e, ok := q.PopEntry()
	return e.Payload, ok
}

// PopEntry is like [Queue.Pop] but returns the full [Entry], exposing the
// key and sequence number to consumers such as the worker pool.
func (q *Queue[T, K]) PopEntry() (Entry[T, K], bool) {
	q.mu.Lock()

	var roundSize int
	if len(q.selected) == 0 {
		roundSize = q.rebuildRoundLocked()
	}
	if len(q.selected) == 0 {
		q.mu.Unlock()
		var zero Entry[T, K]
		return zero, false
	}

	e := q.selected[0]
	q.selected = q.selected[1:]
	q.size--
	depth := q.size
	now := q.nowFn()
	q.mu.Unlock()

	if q.extensions != nil {
		if roundSize > 0 {
			q.extensions.EmitRoundRebuilt(context.Background(), ext.RoundEvent{Size: roundSize})
		}
		q.extensions.EmitItemPopped(context.Background(), ext.PopEvent{
			Key:  e.Key,
			Seq:  e.Seq,
			Size: depth,
			Wait: now.Sub(e.PushedAt),
		})
	}
	return e, true
}

// rebuildRoundLocked captures the head of every non-empty lane as this
// round's representative, removes drained lanes from the pending map, and
// installs the representatives sorted by sequence number as the new
// selected round. Map iteration order is irrelevant: the sort alone
// determines the round order. Returns the round size.
func (q *Queue[T, K]) rebuildRoundLocked() int {
	if len(q.pending) == 0 {
		return 0
	}

	round := make([]Entry[T, K], 0, len(q.pending))
	for key, lane := range q.pending {
		round = append(round, lane[0])
		if len(lane) == 1 {
			delete(q.pending, key)
		} else {
			q.pending[key] = lane[1:]
		}
	}
	sort.Slice(round, func(i, j int) bool { return round[i].Seq < round[j].Seq })
	q.selected = round
	return len(round)
}

// Len returns the total number of outstanding items (selected plus
// pending) as a single consistent reading.
func (q *Queue[T, K]) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.size
}

package fairqueue

// Snapshot is a read-only, point-in-time view of the queue contents with
// the sequence/key wrappers stripped. Selected holds the current fairness
// round in pop order; Pending maps each key to its lane in push order.
// The slices and map are copies: mutating them does not affect the queue.
type Snapshot[T any, K comparable] struct {
	Selected []T
	Pending  map[K][]T
}

// Snapshot captures a consistent view of the selected round and the
// pending lanes under a single lock acquisition, so the two halves always
// belong to the same instant even under concurrent pushes and pops.
func (q *Queue[T, K]) Snapshot() Snapshot[T, K] {
	q.mu.Lock()
	defer q.mu.Unlock()

	s := Snapshot[T, K]{
		Pending: make(map[K][]T, len(q.pending)),
	}
	if len(q.selected) > 0 {
		s.Selected = make([]T, len(q.selected))
		for i, e := range q.selected {
			s.Selected[i] = e.Payload
		}
	}
	for key, lane := range q.pending {
		payloads := make([]T, len(lane))
		for i, e := range lane {
			payloads[i] = e.Payload
		}
		s.Pending[key] = payloads
	}
	return s
}

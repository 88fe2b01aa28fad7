package fairqueue

import (
	"errors"
	"math/rand"
	"sync"
	"testing"
)

// message is the payload used throughout these tests. Sender is the
// partition key, N the per-sender ordinal.
type message struct {
	Sender string
	N      int
}

func senderKey(m message) string { return m.Sender }

func newTestQueue(t *testing.T, opts ...Option) *Queue[message, string] {
	t.Helper()
	q, err := New(senderKey, opts...)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	return q
}

// ---------------------------------------------------------------------------
// Construction
// ---------------------------------------------------------------------------

func TestNew_Defaults(t *testing.T) {
	q := newTestQueue(t)
	if q.Capacity() != DefaultCapacity {
		t.Fatalf("expected default capacity %d, got %d", DefaultCapacity, q.Capacity())
	}
	if q.Len() != 0 {
		t.Fatalf("expected empty queue, got len %d", q.Len())
	}
}

func TestNew_NilKeyFunc(t *testing.T) {
	_, err := New[message, string](nil)
	if !errors.Is(err, ErrNilKeyFunc) {
		t.Fatalf("expected ErrNilKeyFunc, got %v", err)
	}
}

func TestNew_InvalidCapacity(t *testing.T) {
	for _, n := range []int{0, -1} {
		if _, err := New(senderKey, WithCapacity(n)); !errors.Is(err, ErrInvalidCapacity) {
			t.Fatalf("capacity %d: expected ErrInvalidCapacity, got %v", n, err)
		}
	}
}

// ---------------------------------------------------------------------------
// Push / Pop basics
// ---------------------------------------------------------------------------

func TestPushPop_SingleKey(t *testing.T) {
	q := newTestQueue(t)

	for i := 1; i <= 3; i++ {
		if err := q.Push(message{"alice", i}); err != nil {
			t.Fatalf("push %d: %v", i, err)
		}
	}
	if q.Len() != 3 {
		t.Fatalf("expected len 3, got %d", q.Len())
	}

	// Items of one key come back in push order.
	for i := 1; i <= 3; i++ {
		m, ok := q.Pop()
		if !ok {
			t.Fatalf("pop %d: queue unexpectedly empty", i)
		}
		if m.N != i {
			t.Fatalf("pop %d: expected n=%d, got n=%d", i, i, m.N)
		}
	}
	if q.Len() != 0 {
		t.Fatalf("expected empty queue, got len %d", q.Len())
	}
}

func TestPop_Empty(t *testing.T) {
	q := newTestQueue(t)

	// Repeated empty pops are well-defined and never change state.
	for range 5 {
		if _, ok := q.Pop(); ok {
			t.Fatal("expected ok=false on empty queue")
		}
		if q.Len() != 0 {
			t.Fatalf("empty pop changed len to %d", q.Len())
		}
	}
}

func TestPopEntry_SequenceMonotonic(t *testing.T) {
	q := newTestQueue(t)

	for i := range 10 {
		if err := q.Push(message{"alice", i}); err != nil {
			t.Fatalf("push: %v", err)
		}
	}

	var last uint64
	for i := range 10 {
		e, ok := q.PopEntry()
		if !ok {
			t.Fatalf("pop %d: queue unexpectedly empty", i)
		}
		if i > 0 && e.Seq <= last {
			t.Fatalf("sequence numbers not strictly increasing: %d after %d", e.Seq, last)
		}
		last = e.Seq
	}
}

// ---------------------------------------------------------------------------
// Fairness rounds
// ---------------------------------------------------------------------------

func TestPop_RoundRobinAcrossSenders(t *testing.T) {
	q := newTestQueue(t)

	pushes := []message{
		{"alice", 1},
		{"bob", 1},
		{"alice", 2},
		{"alice", 3},
		{"bob", 2},
		{"charlie", 1},
		{"charlie", 2},
		{"charlie", 3},
		{"charlie", 4},
	}
	for _, m := range pushes {
		if err := q.Push(m); err != nil {
			t.Fatalf("push %v: %v", m, err)
		}
	}

	// Each round serves one item per sender, longest-waiting sender
	// first. Senders drop out of later rounds as their lanes drain.
	want := []message{
		{"alice", 1}, {"bob", 1}, {"charlie", 1},
		{"alice", 2}, {"bob", 2}, {"charlie", 2},
		{"alice", 3}, {"charlie", 3},
		{"charlie", 4},
	}
	for i, w := range want {
		m, ok := q.Pop()
		if !ok {
			t.Fatalf("pop %d: queue unexpectedly empty", i)
		}
		if m != w {
			t.Fatalf("pop %d: expected %v, got %v", i, w, m)
		}
	}
	if q.Len() != 0 {
		t.Fatalf("expected empty queue after draining, got len %d", q.Len())
	}
}

func TestPop_FirstRoundOrderedByPushAge(t *testing.T) {
	q := newTestQueue(t)

	// One item per distinct sender: the first n pops return exactly one
	// item per sender, oldest push first.
	senders := []string{"w", "x", "y", "z"}
	for i, s := range senders {
		if err := q.Push(message{s, i}); err != nil {
			t.Fatalf("push: %v", err)
		}
	}
	for i, s := range senders {
		m, ok := q.Pop()
		if !ok {
			t.Fatalf("pop %d: queue unexpectedly empty", i)
		}
		if m.Sender != s {
			t.Fatalf("pop %d: expected sender %q, got %q", i, s, m.Sender)
		}
	}
}

func TestPush_DuringRoundGoesToNextRound(t *testing.T) {
	q := newTestQueue(t)

	if err := q.Push(message{"alice", 1}); err != nil {
		t.Fatalf("push: %v", err)
	}
	if err := q.Push(message{"bob", 1}); err != nil {
		t.Fatalf("push: %v", err)
	}

	// First pop freezes the round {alice/1, bob/1}.
	if m, _ := q.Pop(); m != (message{"alice", 1}) {
		t.Fatalf("expected alice/1, got %v", m)
	}

	// A push landing mid-round must not jump into the frozen round,
	// even for a sender not represented in it.
	if err := q.Push(message{"alice", 2}); err != nil {
		t.Fatalf("push: %v", err)
	}
	if m, _ := q.Pop(); m != (message{"bob", 1}) {
		t.Fatalf("expected bob/1, got %v", m)
	}
	if m, _ := q.Pop(); m != (message{"alice", 2}) {
		t.Fatalf("expected alice/2, got %v", m)
	}
}

// ---------------------------------------------------------------------------
// Capacity / overflow
// ---------------------------------------------------------------------------

func TestPush_Overflow(t *testing.T) {
	q := newTestQueue(t, WithCapacity(2))

	if err := q.Push(message{"alice", 1}); err != nil {
		t.Fatalf("push 1: %v", err)
	}
	if err := q.Push(message{"alice", 2}); err != nil {
		t.Fatalf("push 2: %v", err)
	}
	if q.Len() != 2 {
		t.Fatalf("expected len 2, got %d", q.Len())
	}

	err := q.Push(message{"alice", 3})
	if err == nil {
		t.Fatal("expected overflow error on third push")
	}
	if !errors.Is(err, ErrQueueFull) {
		t.Fatalf("expected errors.Is(err, ErrQueueFull), got %v", err)
	}

	var overflow *OverflowError[message]
	if !errors.As(err, &overflow) {
		t.Fatalf("expected *OverflowError, got %T", err)
	}
	if overflow.Item != (message{"alice", 3}) {
		t.Fatalf("overflow error carries wrong item: %v", overflow.Item)
	}
	if overflow.Size != 2 {
		t.Fatalf("overflow error carries wrong size: %d", overflow.Size)
	}

	// The rejected push must leave the queue untouched.
	if q.Len() != 2 {
		t.Fatalf("rejected push changed len to %d", q.Len())
	}
}

func TestPush_SucceedsAgainAfterPop(t *testing.T) {
	q := newTestQueue(t, WithCapacity(2))

	_ = q.Push(message{"alice", 1})
	_ = q.Push(message{"bob", 1})
	if err := q.Push(message{"charlie", 1}); !errors.Is(err, ErrQueueFull) {
		t.Fatalf("expected ErrQueueFull, got %v", err)
	}

	if _, ok := q.Pop(); !ok {
		t.Fatal("pop: queue unexpectedly empty")
	}
	if q.Len() != 1 {
		t.Fatalf("expected len 1, got %d", q.Len())
	}
	if err := q.Push(message{"charlie", 1}); err != nil {
		t.Fatalf("push after pop should succeed: %v", err)
	}
}

func TestPush_OverflowCountsSelectedAndPending(t *testing.T) {
	q := newTestQueue(t, WithCapacity(2))

	_ = q.Push(message{"alice", 1})
	_ = q.Push(message{"bob", 1})

	// Force a round rebuild so one item sits in the selected round and
	// the capacity check spans both halves of the state.
	if m, _ := q.Pop(); m != (message{"alice", 1}) {
		t.Fatalf("expected alice/1, got %v", m)
	}
	_ = q.Push(message{"alice", 2})
	if err := q.Push(message{"alice", 3}); !errors.Is(err, ErrQueueFull) {
		t.Fatalf("expected ErrQueueFull with selected+pending at capacity, got %v", err)
	}
}

// ---------------------------------------------------------------------------
// Snapshot
// ---------------------------------------------------------------------------

func TestSnapshot_ReflectsRoundAndLanes(t *testing.T) {
	q := newTestQueue(t)

	_ = q.Push(message{"alice", 1})
	_ = q.Push(message{"bob", 1})
	_ = q.Push(message{"alice", 2})

	// Before any pop everything is pending.
	s := q.Snapshot()
	if len(s.Selected) != 0 {
		t.Fatalf("expected empty selected round, got %v", s.Selected)
	}
	if got := s.Pending["alice"]; len(got) != 2 || got[0].N != 1 || got[1].N != 2 {
		t.Fatalf("unexpected alice lane: %v", got)
	}
	if got := s.Pending["bob"]; len(got) != 1 || got[0].N != 1 {
		t.Fatalf("unexpected bob lane: %v", got)
	}

	// The first pop rebuilds the round; the remainder stays pending.
	if m, _ := q.Pop(); m != (message{"alice", 1}) {
		t.Fatalf("expected alice/1, got %v", m)
	}
	s = q.Snapshot()
	if len(s.Selected) != 1 || s.Selected[0] != (message{"bob", 1}) {
		t.Fatalf("unexpected selected round: %v", s.Selected)
	}
	if got := s.Pending["alice"]; len(got) != 1 || got[0].N != 2 {
		t.Fatalf("unexpected alice lane after rebuild: %v", got)
	}
}

func TestSnapshot_IsACopy(t *testing.T) {
	q := newTestQueue(t)
	_ = q.Push(message{"alice", 1})
	_ = q.Push(message{"bob", 1})

	s := q.Snapshot()
	s.Pending["alice"][0] = message{"mallory", 99}
	delete(s.Pending, "bob")

	if m, _ := q.Pop(); m != (message{"alice", 1}) {
		t.Fatalf("snapshot mutation leaked into queue: got %v", m)
	}
	if m, _ := q.Pop(); m != (message{"bob", 1}) {
		t.Fatalf("snapshot mutation leaked into queue: got %v", m)
	}
}

// ---------------------------------------------------------------------------
// Count consistency
// ---------------------------------------------------------------------------

func TestLen_MatchesSnapshotUnderRandomOps(t *testing.T) {
	q := newTestQueue(t, WithCapacity(16))
	rng := rand.New(rand.NewSource(1))
	senders := []string{"a", "b", "c", "d"}

	pushed, popped := 0, 0
	for range 500 {
		if rng.Intn(2) == 0 {
			err := q.Push(message{senders[rng.Intn(len(senders))], pushed})
			if err == nil {
				pushed++
			} else if !errors.Is(err, ErrQueueFull) {
				t.Fatalf("unexpected push error: %v", err)
			}
		} else {
			if _, ok := q.Pop(); ok {
				popped++
			}
		}

		s := q.Snapshot()
		total := len(s.Selected)
		for _, lane := range s.Pending {
			total += len(lane)
			if len(lane) == 0 {
				t.Fatal("drained lane left behind in pending map")
			}
		}
		if q.Len() != total {
			t.Fatalf("Len %d != snapshot total %d", q.Len(), total)
		}
		if q.Len() != pushed-popped {
			t.Fatalf("Len %d != pushes-pops %d", q.Len(), pushed-popped)
		}
	}
}

// ---------------------------------------------------------------------------
// Concurrency
// ---------------------------------------------------------------------------

func TestConcurrent_PushPop_DeliversExactlyOnce(t *testing.T) {
	q := newTestQueue(t)

	pushes := []message{
		{"alice", 1}, {"bob", 1}, {"alice", 2}, {"alice", 3}, {"bob", 2},
		{"charlie", 1}, {"charlie", 2}, {"charlie", 3}, {"charlie", 4},
	}

	const poppers = 3
	var (
		wg    sync.WaitGroup
		mu    sync.Mutex
		got   = make(map[message]int)
		total = 0
		done  = make(chan struct{})
	)

	// Each popper keeps its own delivery log: pops observed by a single
	// goroutine are a subsequence of the queue's pop order, so per-key
	// ordinals must be increasing within each log.
	for range poppers {
		wg.Add(1)
		go func() {
			defer wg.Done()
			lastN := make(map[string]int)
			for {
				m, ok := q.Pop()
				if !ok {
					select {
					case <-done:
						return
					default:
						continue
					}
				}
				if m.N <= lastN[m.Sender] {
					t.Errorf("per-key order violated: %s/%d after %s/%d",
						m.Sender, m.N, m.Sender, lastN[m.Sender])
				}
				lastN[m.Sender] = m.N
				mu.Lock()
				got[m]++
				total++
				mu.Unlock()
			}
		}()
	}

	for _, m := range pushes {
		if err := q.Push(m); err != nil {
			t.Errorf("push %v: %v", m, err)
		}
	}

	// Wait until everything has been delivered, then release the poppers.
	for {
		mu.Lock()
		n := total
		mu.Unlock()
		if n == len(pushes) {
			break
		}
	}
	close(done)
	wg.Wait()

	for _, m := range pushes {
		if got[m] != 1 {
			t.Fatalf("message %v delivered %d times", m, got[m])
		}
	}
	if q.Len() != 0 {
		t.Fatalf("expected empty queue, got len %d", q.Len())
	}
}

func TestConcurrent_PushersRespectCapacity(t *testing.T) {
	const capMax = 8
	q := newTestQueue(t, WithCapacity(capMax))

	var wg sync.WaitGroup
	for g := range 4 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := range 50 {
				err := q.Push(message{Sender: string(rune('a' + g)), N: i})
				if err != nil && !errors.Is(err, ErrQueueFull) {
					t.Errorf("unexpected push error: %v", err)
				}
			}
		}()
	}
	wg.Wait()

	// The check-then-append is a single atomic step, so racing pushes
	// can never exceed the bound.
	if q.Len() > capMax {
		t.Fatalf("capacity exceeded: len %d > %d", q.Len(), capMax)
	}
}

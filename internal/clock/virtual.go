package clock

import (
	"container/heap"
	"sync"
	"time"
)

// Virtual is a manually advanced clock. Callbacks run synchronously inside
// Advance, in due order, with timers due at the same instant firing in the
// order they were scheduled.
type Virtual struct {
	mu     sync.Mutex
	now    time.Time
	queue  timerHeap
	nextID uint64
}

// NewVirtual creates a virtual clock reading start
func NewVirtual(start time.Time) *Virtual {
	return &Virtual{now: start}
}

// Now returns the virtual time
func (v *Virtual) Now() time.Time {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.now
}

// AfterFunc schedules fn for d after the current virtual time. A
// non-positive d fires on the next Advance, including Advance(0).
func (v *Virtual) AfterFunc(d time.Duration, fn func()) Timer {
	v.mu.Lock()
	defer v.mu.Unlock()

	t := &virtualTimer{
		clock: v,
		due:   v.now.Add(max(d, 0)),
		seq:   v.nextID,
		fn:    fn,
		index: -1,
	}
	v.nextID++
	heap.Push(&v.queue, t)
	return t
}

// Advance moves the clock forward by d, running every callback that falls
// due on the way. Callbacks may schedule further timers; those also run if
// they fall due before the new time. It returns the number of callbacks run.
func (v *Virtual) Advance(d time.Duration) int {
	v.mu.Lock()
	target := v.now.Add(d)
	fired := 0
	for len(v.queue) > 0 && !v.queue[0].due.After(target) {
		t := heap.Pop(&v.queue).(*virtualTimer)
		v.now = t.due

		// The lock is released so fn can use the clock
		v.mu.Unlock()
		t.fn()
		fired++
		v.mu.Lock()
	}
	if target.After(v.now) {
		v.now = target
	}
	v.mu.Unlock()
	return fired
}

// Pending returns the number of scheduled callbacks
func (v *Virtual) Pending() int {
	v.mu.Lock()
	defer v.mu.Unlock()
	return len(v.queue)
}

// NextDue returns when the earliest pending callback falls due
func (v *Virtual) NextDue() (time.Time, bool) {
	v.mu.Lock()
	defer v.mu.Unlock()
	if len(v.queue) == 0 {
		return time.Time{}, false
	}
	return v.queue[0].due, true
}

type virtualTimer struct {
	clock *Virtual
	due   time.Time
	seq   uint64
	fn    func()
	index int // position in the heap, -1 once fired or stopped
}

func (t *virtualTimer) Stop() bool {
	t.clock.mu.Lock()
	defer t.clock.mu.Unlock()
	if t.index < 0 {
		return false
	}
	heap.Remove(&t.clock.queue, t.index)
	return true
}

// timerHeap implements container/heap.Interface as a min-heap on due time,
// with FIFO tie-breaking on seq.
type timerHeap []*virtualTimer

func (h timerHeap) Len() int { return len(h) }

func (h timerHeap) Less(i, j int) bool {
	if !h[i].due.Equal(h[j].due) {
		return h[i].due.Before(h[j].due)
	}
	return h[i].seq < h[j].seq
}

func (h timerHeap) Swap(i, j int) {
	h[i], h[j] = h[j], h[i]
	h[i].index = i
	h[j].index = j
}

func (h *timerHeap) Push(x any) {
	t := x.(*virtualTimer)
	t.index = len(*h)
	*h = append(*h, t)
}

func (h *timerHeap) Pop() any {
	old := *h
	n := len(old)
	t := old[n-1]
	old[n-1] = nil
	t.index = -1
	*h = old[:n-1]
	return t
}

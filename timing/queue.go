package timing

import "container/heap"

// timerQueue keeps pending timers ordered by (runAt, id). Every queued timer
// knows its own heap position, so removing an arbitrary timer is O(log n).
//
// timerQueue is not safe for concurrent use; Clock serializes all access.
type timerQueue struct {
	timers timerHeap
}

func newTimerQueue() *timerQueue {
	q := &timerQueue{}
	q.timers = make([]*Timer, 0)
	heap.Init(&q.timers)

	return q
}

// Push adds a timer to the queue.
func (q *timerQueue) Push(t *Timer) {
	heap.Push(&q.timers, t)
}

// Pop removes and returns the earliest timer, or nil if the queue is empty.
func (q *timerQueue) Pop() *Timer {
	if q.timers.Len() == 0 {
		return nil
	}

	return heap.Pop(&q.timers).(*Timer)
}

// Peek returns the earliest timer without removing it.
func (q *timerQueue) Peek() *Timer {
	if q.timers.Len() == 0 {
		return nil
	}

	return q.timers[0]
}

// PeekMax returns the timer that is due last. The maximum of a min-heap is
// always one of its leaves, which occupy the second half of the slice.
func (q *timerQueue) PeekMax() *Timer {
	n := q.timers.Len()
	if n == 0 {
		return nil
	}

	latest := q.timers[n/2]
	for _, t := range q.timers[n/2+1:] {
		if latest.before(t) {
			latest = t
		}
	}

	return latest
}

// Remove takes t out of the queue. It returns false, and leaves the queue
// untouched, if t is not queued.
func (q *timerQueue) Remove(t *Timer) bool {
	i := t.index
	if i < 0 || i >= q.timers.Len() || q.timers[i] != t {
		return false
	}

	heap.Remove(&q.timers, i)

	return true
}

// Len returns the number of pending timers.
func (q *timerQueue) Len() int {
	return q.timers.Len()
}

// Clear drops every pending timer without firing it.
func (q *timerQueue) Clear() {
	for i, t := range q.timers {
		t.index = -1
		q.timers[i] = nil
	}

	q.timers = q.timers[:0]
}

type timerHeap []*Timer

func (h timerHeap) Len() int { return len(h) }

func (h timerHeap) Less(i, j int) bool {
	return h[i].before(h[j])
}

func (h timerHeap) Swap(i, j int) {
	h[i], h[j] = h[j], h[i]
	h[i].index = i
	h[j].index = j
}

func (h *timerHeap) Push(x any) {
	t := x.(*Timer)
	t.index = len(*h)
	*h = append(*h, t)
}

func (h *timerHeap) Pop() any {
	old := *h
	n := len(old)
	t := old[n-1]
	t.index = -1
	old[n-1] = nil
	*h = old[:n-1]

	return t
}

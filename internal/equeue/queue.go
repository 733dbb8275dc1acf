// Package equeue implements a timestamp-ordered queue of pending
// parameter changes, so a plugin can schedule "change this control at
// sample N" instead of applying every change at the start of the block.
//
// Grounded on base/src/AzAudio/dsp/utility.h's azaQueue in
// original_source/, reimplemented as a container/heap min-heap instead
// of the original's sorted flat buffer — idiomatic Go has no reason to
// hand-roll insertion sort when container/heap exists.
package equeue

import "container/heap"

// Event is one scheduled change. Frame is a sample-clock timestamp
// (frames since an arbitrary epoch the caller defines, typically the
// start of the current processing block or session); Payload is
// plugin-specific.
type Event struct {
	Frame   int64
	Payload any
}

type eventHeap []Event

func (h eventHeap) Len() int            { return len(h) }
func (h eventHeap) Less(i, j int) bool  { return h[i].Frame < h[j].Frame }
func (h eventHeap) Swap(i, j int)       { h[i], h[j] = h[j], h[i] }
func (h *eventHeap) Push(x any)         { *h = append(*h, x.(Event)) }
func (h *eventHeap) Pop() any {
	old := *h
	n := len(old)
	e := old[n-1]
	*h = old[:n-1]
	return e
}

// Queue holds pending events ordered by Frame, dequeued soonest-first.
// A Queue's zero value is ready to use.
type Queue struct {
	heap eventHeap
}

// Len reports the number of pending events.
func (q *Queue) Len() int { return len(q.heap) }

// Enqueue schedules an event. Order among events with equal Frame is
// unspecified.
func (q *Queue) Enqueue(e Event) {
	heap.Push(&q.heap, e)
}

// Peek returns the soonest pending event without removing it.
func (q *Queue) Peek() (Event, bool) {
	if len(q.heap) == 0 {
		return Event{}, false
	}
	return q.heap[0], true
}

// Dequeue removes and returns the soonest pending event.
func (q *Queue) Dequeue() (Event, bool) {
	if len(q.heap) == 0 {
		return Event{}, false
	}
	e := heap.Pop(&q.heap).(Event)
	return e, true
}

// DrainUpTo removes and returns, in Frame order, every pending event
// whose Frame is <= frame. This is how a plugin pulls "everything due
// this block" out of the queue each Process call.
func (q *Queue) DrainUpTo(frame int64) []Event {
	var due []Event
	for len(q.heap) > 0 && q.heap[0].Frame <= frame {
		due = append(due, heap.Pop(&q.heap).(Event))
	}
	return due
}

// Clear empties the queue.
func (q *Queue) Clear() {
	q.heap = q.heap[:0]
}

package equeue

import (
	"sort"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"pgregory.net/rapid"
)

func TestZeroValueQueueIsEmpty(t *testing.T) {
	var q Queue
	assert.Equal(t, 0, q.Len())
	_, ok := q.Peek()
	assert.False(t, ok)
	_, ok = q.Dequeue()
	assert.False(t, ok)
}

func TestDequeueReturnsEventsInFrameOrder(t *testing.T) {
	var q Queue
	q.Enqueue(Event{Frame: 30, Payload: "c"})
	q.Enqueue(Event{Frame: 10, Payload: "a"})
	q.Enqueue(Event{Frame: 20, Payload: "b"})

	for _, want := range []string{"a", "b", "c"} {
		e, ok := q.Dequeue()
		require.True(t, ok)
		assert.Equal(t, want, e.Payload)
	}
	assert.Equal(t, 0, q.Len())
}

func TestPeekDoesNotRemove(t *testing.T) {
	var q Queue
	q.Enqueue(Event{Frame: 5})
	e, ok := q.Peek()
	require.True(t, ok)
	assert.Equal(t, int64(5), e.Frame)
	assert.Equal(t, 1, q.Len())
}

func TestDrainUpToReturnsOnlyDueEventsInOrder(t *testing.T) {
	var q Queue
	q.Enqueue(Event{Frame: 100})
	q.Enqueue(Event{Frame: 10})
	q.Enqueue(Event{Frame: 50})
	q.Enqueue(Event{Frame: 10})

	due := q.DrainUpTo(50)
	require.Len(t, due, 3)
	assert.Equal(t, int64(10), due[0].Frame)
	assert.Equal(t, int64(10), due[1].Frame)
	assert.Equal(t, int64(50), due[2].Frame)
	assert.Equal(t, 1, q.Len(), "only the event past the cutoff should remain")
}

func TestClearEmptiesTheQueue(t *testing.T) {
	var q Queue
	q.Enqueue(Event{Frame: 1})
	q.Enqueue(Event{Frame: 2})
	q.Clear()
	assert.Equal(t, 0, q.Len())
}

// TestDequeueOrderMatchesSortedFrameProperty enqueues a random multiset of
// frame timestamps and checks Dequeue drains them in non-decreasing order.
func TestDequeueOrderMatchesSortedFrameProperty(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		frames := rapid.SliceOfN(rapid.Int64Range(0, 1000), 0, 50).Draw(t, "frames")
		var q Queue
		for _, f := range frames {
			q.Enqueue(Event{Frame: f})
		}
		sorted := append([]int64(nil), frames...)
		sort.Slice(sorted, func(i, j int) bool { return sorted[i] < sorted[j] })

		got := make([]int64, 0, len(frames))
		for {
			e, ok := q.Dequeue()
			if !ok {
				break
			}
			got = append(got, e.Frame)
		}
		assert.Equal(t, sorted, got)
	})
}

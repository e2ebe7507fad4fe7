package opportunity

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func opp(typ string, priority int) *Opportunity {
	return &Opportunity{ID: uuid.New(), Type: typ, Priority: priority}
}

func TestQueueFIFOWithinEqualPriority(t *testing.T) {
	clk := clockwork.NewFakeClock()
	q := NewQueue(clk, 0)

	a := opp("corner", PriorityMedium)
	b := opp("free_kick", PriorityMedium)
	require.Equal(t, 1, q.Enqueue(a))
	require.Equal(t, 2, q.Enqueue(b))

	assert.Same(t, a, q.Dequeue())
	assert.Same(t, b, q.Dequeue())
	assert.Nil(t, q.Dequeue())
}

func TestQueueHigherPriorityDequeuesFirst(t *testing.T) {
	clk := clockwork.NewFakeClock()
	q := NewQueue(clk, 0)

	low := opp("throw_in", PriorityLow)
	high := opp("penalty", PriorityCritical)
	mid := opp("corner", PriorityMedium)
	q.Enqueue(low)
	q.Enqueue(high)
	q.Enqueue(mid)

	assert.Same(t, high, q.Dequeue())
	assert.Same(t, mid, q.Dequeue())
	assert.Same(t, low, q.Dequeue())
}

func TestQueueDiscardsStaleEntries(t *testing.T) {
	clk := clockwork.NewFakeClock()
	q := NewQueue(clk, 30*time.Second)

	stale := opp("corner", PriorityMedium)
	q.Enqueue(stale)

	clk.Advance(31 * time.Second)
	fresh := opp("free_kick", PriorityMedium)
	q.Enqueue(fresh)

	assert.Same(t, fresh, q.Dequeue())
	assert.Nil(t, q.Dequeue())
}

func TestQueueStalenessBoundIsConfigurable(t *testing.T) {
	clk := clockwork.NewFakeClock()
	q := NewQueue(clk, 5*time.Minute)

	old := opp("corner", PriorityMedium)
	q.Enqueue(old)

	clk.Advance(time.Minute)
	assert.Same(t, old, q.Dequeue())
}

func TestShouldReplace(t *testing.T) {
	current := opp("corner", PriorityMedium)

	assert.True(t, ShouldReplace(current, opp("penalty", PriorityCritical)))
	assert.False(t, ShouldReplace(current, opp("free_kick", PriorityMedium)), "equal priority queues, never replaces")
	assert.False(t, ShouldReplace(current, opp("throw_in", PriorityLow)))
	assert.False(t, ShouldReplace(nil, opp("penalty", PriorityCritical)))
	assert.False(t, ShouldReplace(current, nil))
}

func TestEnqueueNilIsNoop(t *testing.T) {
	clk := clockwork.NewFakeClock()
	q := NewQueue(clk, 0)
	assert.Equal(t, 0, q.Enqueue(nil))
}

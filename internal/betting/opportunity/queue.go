package opportunity

import (
	"sync"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/rs/zerolog/log"
)

// DefaultStaleAfter bounds how long a queued opportunity stays dequeueable.
// A betting window from half a minute ago no longer applies to the match
// state; this is a policy knob, not a correctness rule.
const DefaultStaleAfter = 30 * time.Second

// Queue orders pending opportunities by priority, FIFO within equal priority.
// It never holds the active opportunity; that slot belongs to the
// orchestrator.
type Queue struct {
	clock      clockwork.Clock
	staleAfter time.Duration

	mu    sync.Mutex
	items []*Opportunity
}

// NewQueue creates a queue. staleAfter <= 0 selects DefaultStaleAfter.
func NewQueue(clock clockwork.Clock, staleAfter time.Duration) *Queue {
	if staleAfter <= 0 {
		staleAfter = DefaultStaleAfter
	}
	return &Queue{clock: clock, staleAfter: staleAfter}
}

// Enqueue appends the opportunity, stamping QueuedAt if the caller left it
// zero. Returns the new queue length.
func (q *Queue) Enqueue(o *Opportunity) int {
	if o == nil {
		return q.Len()
	}
	q.mu.Lock()
	defer q.mu.Unlock()
	if o.QueuedAt.IsZero() {
		o.QueuedAt = q.clock.Now()
	}
	q.items = append(q.items, o)
	log.Debug().
		Str("opportunity_id", o.ID.String()).
		Str("type", o.Type).
		Int("priority", o.Priority).
		Int("queue_len", len(q.items)).
		Msg("opportunity queued")
	return len(q.items)
}

// ShouldReplace reports whether incoming should replace current as the active
// opportunity: true iff incoming priority strictly exceeds current's. Equal
// or lower priority queues, never replaces.
func ShouldReplace(current, incoming *Opportunity) bool {
	if current == nil || incoming == nil {
		return false
	}
	return incoming.Priority > current.Priority
}

// Dequeue removes and returns the next opportunity: highest priority first,
// FIFO among equal priority. Entries older than the staleness bound are
// discarded, since their betting window no longer applies. Returns nil when
// nothing dequeueable remains.
func (q *Queue) Dequeue() *Opportunity {
	q.mu.Lock()
	defer q.mu.Unlock()

	now := q.clock.Now()
	fresh := q.items[:0]
	for _, o := range q.items {
		if now.Sub(o.QueuedAt) > q.staleAfter {
			log.Debug().
				Str("opportunity_id", o.ID.String()).
				Str("type", o.Type).
				Dur("age", now.Sub(o.QueuedAt)).
				Msg("discarding stale queued opportunity")
			continue
		}
		fresh = append(fresh, o)
	}
	q.items = fresh

	best := -1
	for i, o := range q.items {
		if best == -1 || o.Priority > q.items[best].Priority {
			best = i
		}
	}
	if best == -1 {
		return nil
	}
	o := q.items[best]
	q.items = append(q.items[:best], q.items[best+1:]...)
	return o
}

// Len returns the number of queued opportunities, stale ones included until
// the next Dequeue sweeps them.
func (q *Queue) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.items)
}

// Clear drops all queued opportunities.
func (q *Queue) Clear() {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.items = nil
}

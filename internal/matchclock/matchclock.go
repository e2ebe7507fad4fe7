// Package matchclock simulates the match minute. It is the clock the pause
// coordinator gates: simulated time advances on scheduler ticks only while
// the coordinator reports the game unpaused.
package matchclock

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/rs/zerolog/log"

	"github.com/matchday/livebet/internal/betting/notify"
)

// FullTime is where the simulated clock stops advancing.
const FullTime = 90 * time.Minute

// PauseSource is the read-side of the pause coordinator.
type PauseSource interface {
	IsPaused() bool
}

// alwaysRunning substitutes for a missing pause subsystem.
type alwaysRunning struct{}

func (alwaysRunning) IsPaused() bool { return false }

// MatchTime is a snapshot of the simulated clock.
type MatchTime struct {
	Minute  int
	Second  int
	Display string
	Paused  bool
	Ended   bool
}

// Clock advances simulated match time. Speed scales simulated seconds per
// real tick so a demo session can compress a match.
type Clock struct {
	clock  clockwork.Clock
	pauses PauseSource
	tick   time.Duration // real interval between advances
	speed  int           // simulated seconds per tick

	mu      sync.Mutex
	elapsed time.Duration

	subs *notify.Hub[func(MatchTime)]
}

// New creates a stopped match clock. A nil pause source means the clock never
// pauses. speed <= 0 defaults to 1 simulated second per real second.
func New(clock clockwork.Clock, pauses PauseSource, speed int) *Clock {
	if pauses == nil {
		pauses = alwaysRunning{}
	}
	if speed <= 0 {
		speed = 1
	}
	return &Clock{
		clock:  clock,
		pauses: pauses,
		tick:   time.Second,
		speed:  speed,
		subs:   notify.NewHub[func(MatchTime)](),
	}
}

// Subscribe registers fn for every simulated-time advance.
func (c *Clock) Subscribe(fn func(MatchTime)) (unsubscribe func()) {
	return c.subs.Subscribe(fn)
}

// Run advances the clock until ctx is cancelled or full time is reached.
func (c *Clock) Run(ctx context.Context) {
	ticker := c.clock.NewTicker(c.tick)
	defer ticker.Stop()

	log.Info().Int("speed", c.speed).Msg("match clock started")
	for {
		select {
		case <-ctx.Done():
			log.Info().Str("at", c.Snapshot().Display).Msg("match clock stopped")
			return
		case <-ticker.Chan():
			if c.pauses.IsPaused() {
				continue
			}
			if done := c.advance(); done {
				log.Info().Msg("full time")
				return
			}
		}
	}
}

func (c *Clock) advance() (done bool) {
	c.mu.Lock()
	c.elapsed += time.Duration(c.speed) * time.Second
	if c.elapsed >= FullTime {
		c.elapsed = FullTime
		done = true
	}
	c.mu.Unlock()

	snap := c.Snapshot()
	for _, fn := range c.subs.Snapshot() {
		fn := fn
		notify.Safely("match clock tick", func() { fn(snap) })
	}
	return done
}

// Elapsed returns simulated time played.
func (c *Clock) Elapsed() time.Duration {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.elapsed
}

// Snapshot returns the current simulated match time.
func (c *Clock) Snapshot() MatchTime {
	c.mu.Lock()
	elapsed := c.elapsed
	c.mu.Unlock()

	total := int(elapsed / time.Second)
	mt := MatchTime{
		Minute: total / 60,
		Second: total % 60,
		Paused: c.pauses.IsPaused(),
		Ended:  elapsed >= FullTime,
	}
	mt.Display = fmt.Sprintf("%02d:%02d", mt.Minute, mt.Second)
	return mt
}

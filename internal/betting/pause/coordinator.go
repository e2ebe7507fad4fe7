// Package pause owns the single source of truth for whether the simulated
// match clock advances. Everything that suspends play goes through the
// Coordinator: opening a betting opportunity, an explicit bet slip, and the
// auto-resume guard that keeps a stalled decision from freezing the clock
// forever.
package pause

import (
	"fmt"
	"sync"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/rs/zerolog/log"

	"github.com/matchday/livebet/internal/betting/notify"
)

// Pause reasons. State.Active always implies one of these.
const (
	ReasonBettingOpportunity = "BETTING_OPPORTUNITY"
	ReasonBetSlipOpen        = "BET_SLIP_OPEN"
)

// State is a read-only snapshot of the coordinator.
type State struct {
	Active    bool
	Reason    string
	StartedAt time.Time
	TimeoutAt time.Time // zero when no auto-resume is scheduled
}

// Coordinator drives the Running -> Paused(reason, expiry?) -> Resuming ->
// Running cycle. It is safe for use from timer callbacks and user-action
// handlers concurrently; the result of any interleaving is always
// fully-paused or fully-running, never an intermediate.
type Coordinator struct {
	clock clockwork.Clock

	mu        sync.Mutex
	active    bool
	reason    string
	startedAt time.Time
	timeoutAt time.Time
	gen       int // pause session generation, guards stale timer callbacks

	autoCancel   chan struct{} // cancels the scheduled auto-resume
	resumeCancel chan struct{} // cancels an in-flight resume countdown

	warnSubs    *notify.Hub[func(msg string)]
	cdStartSubs *notify.Hub[func(seconds int)]
	cdTickSubs  *notify.Hub[func(secondsLeft int)]
	stateSubs   *notify.Hub[func(paused bool, reason string)]
}

func NewCoordinator(clock clockwork.Clock) *Coordinator {
	return &Coordinator{
		clock:       clock,
		warnSubs:    notify.NewHub[func(msg string)](),
		cdStartSubs: notify.NewHub[func(seconds int)](),
		cdTickSubs:  notify.NewHub[func(secondsLeft int)](),
		stateSubs:   notify.NewHub[func(paused bool, reason string)](),
	}
}

// SubscribeTimeoutWarning registers fn to fire when a pause hits its
// auto-resume expiry, just before play resumes.
func (c *Coordinator) SubscribeTimeoutWarning(fn func(msg string)) (unsubscribe func()) {
	return c.warnSubs.Subscribe(fn)
}

// SubscribeCountdownStart registers fn to fire when a resume countdown begins.
func (c *Coordinator) SubscribeCountdownStart(fn func(seconds int)) (unsubscribe func()) {
	return c.cdStartSubs.Subscribe(fn)
}

// SubscribeCountdownTick registers fn for each remaining whole second of a
// resume countdown.
func (c *Coordinator) SubscribeCountdownTick(fn func(secondsLeft int)) (unsubscribe func()) {
	return c.cdTickSubs.Subscribe(fn)
}

// SubscribeStateChange registers fn for pause/resume transitions.
func (c *Coordinator) SubscribeStateChange(fn func(paused bool, reason string)) (unsubscribe func()) {
	return c.stateSubs.Subscribe(fn)
}

// Pause suspends the clock for the stated reason. When timeout > 0, an
// unconditional auto-resume fires at startedAt+timeout so a stalled decision
// can never permanently freeze the clock.
//
// A re-entrant Pause while already paused returns false and leaves the active
// reason and expiry untouched; it only cancels any in-flight resume
// countdown, so one opportunity's pause window cannot silently extend
// another's.
func (c *Coordinator) Pause(reason string, timeout time.Duration) bool {
	c.mu.Lock()
	if c.active {
		c.cancelResumeLocked()
		c.mu.Unlock()
		log.Warn().Str("reason", reason).Msg("pause requested while already paused; ignoring")
		return false
	}

	now := c.clock.Now()
	c.active = true
	c.reason = reason
	c.startedAt = now
	c.timeoutAt = time.Time{}
	c.gen++
	gen := c.gen

	if timeout > 0 {
		c.timeoutAt = now.Add(timeout)
		cancel := make(chan struct{})
		c.autoCancel = cancel
		go c.autoResume(gen, reason, timeout, cancel)
	}
	c.mu.Unlock()

	log.Info().Str("reason", reason).Dur("timeout", timeout).Msg("game paused")
	c.notifyState(true, reason)
	return true
}

func (c *Coordinator) autoResume(gen int, reason string, timeout time.Duration, cancel chan struct{}) {
	timer := c.clock.NewTimer(timeout)
	defer stopAndDrainTimer(timer)

	select {
	case <-cancel:
		return
	case <-timer.Chan():
	}

	c.mu.Lock()
	if !c.active || c.gen != gen {
		c.mu.Unlock()
		return
	}
	c.autoCancel = nil
	c.mu.Unlock()

	msg := fmt.Sprintf("TIMEOUT: pause %q exceeded its %s window, resuming play", reason, timeout)
	log.Warn().Str("reason", reason).Dur("timeout", timeout).Msg("pause auto-expired")
	for _, fn := range c.warnSubs.Snapshot() {
		fn := fn
		notify.Safely("timeout warning", func() { fn(msg) })
	}

	// Timeout path resumes immediately, no orientation countdown.
	c.Resume(false, 0)
}

// Resume transitions back to running, cancelling any pending auto-resume.
// With withCountdown true it first runs a cooperative, cancellable countdown
// of the given whole seconds, surfaced to countdown subscribers. The
// countdown fails open: with no subscribers to drive, or a non-positive
// length, the clock resumes immediately.
func (c *Coordinator) Resume(withCountdown bool, countdownSeconds int) {
	c.mu.Lock()
	if !c.active {
		c.mu.Unlock()
		log.Debug().Msg("resume requested while running; no-op")
		return
	}
	c.cancelAutoLocked()
	c.cancelResumeLocked()

	hasAudience := c.cdStartSubs.Len() > 0 || c.cdTickSubs.Len() > 0
	if !withCountdown || countdownSeconds <= 0 || !hasAudience {
		reason := c.completeResumeLocked()
		c.mu.Unlock()
		log.Info().Str("reason", reason).Msg("game resumed")
		c.notifyState(false, reason)
		return
	}

	cancel := make(chan struct{})
	c.resumeCancel = cancel
	gen := c.gen
	c.mu.Unlock()

	for _, fn := range c.cdStartSubs.Snapshot() {
		fn := fn
		notify.Safely("resume countdown start", func() { fn(countdownSeconds) })
	}
	go c.resumeCountdown(gen, countdownSeconds, cancel)
}

func (c *Coordinator) resumeCountdown(gen int, seconds int, cancel chan struct{}) {
	timer := c.clock.NewTimer(time.Second)
	defer stopAndDrainTimer(timer)

	for left := seconds; left > 0; left-- {
		for _, fn := range c.cdTickSubs.Snapshot() {
			fn := fn
			left := left
			notify.Safely("resume countdown tick", func() { fn(left) })
		}
		select {
		case <-cancel:
			log.Debug().Int("seconds_left", left).Msg("resume countdown cancelled; still paused")
			return
		case <-timer.Chan():
			timer.Reset(time.Second)
		}
	}

	c.mu.Lock()
	if !c.active || c.gen != gen || c.resumeCancel != cancel {
		c.mu.Unlock()
		return
	}
	reason := c.completeResumeLocked()
	c.mu.Unlock()

	log.Info().Str("reason", reason).Int("countdown_sec", seconds).Msg("game resumed after countdown")
	c.notifyState(false, reason)
}

// ClearAutoResume cancels the scheduled auto-resume without resuming, used
// when control over the pause window is being transferred to a replacement
// opportunity.
func (c *Coordinator) ClearAutoResume() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.cancelAutoLocked()
	c.timeoutAt = time.Time{}
}

// IsPaused is a pure read of the pause flag.
func (c *Coordinator) IsPaused() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.active
}

// Snapshot returns the current pause state.
func (c *Coordinator) Snapshot() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return State{
		Active:    c.active,
		Reason:    c.reason,
		StartedAt: c.startedAt,
		TimeoutAt: c.timeoutAt,
	}
}

func (c *Coordinator) completeResumeLocked() (reason string) {
	reason = c.reason
	c.active = false
	c.reason = ""
	c.startedAt = time.Time{}
	c.timeoutAt = time.Time{}
	c.resumeCancel = nil
	return reason
}

func (c *Coordinator) cancelAutoLocked() {
	if c.autoCancel != nil {
		close(c.autoCancel)
		c.autoCancel = nil
	}
}

func (c *Coordinator) cancelResumeLocked() {
	if c.resumeCancel != nil {
		close(c.resumeCancel)
		c.resumeCancel = nil
	}
}

func (c *Coordinator) notifyState(paused bool, reason string) {
	for _, fn := range c.stateSubs.Snapshot() {
		fn := fn
		notify.Safely("pause state change", func() { fn(paused, reason) })
	}
}

// stopAndDrainTimer safely stops a timer and drains its channel so a fired
// tick cannot leak into a later select.
func stopAndDrainTimer(timer clockwork.Timer) {
	if !timer.Stop() {
		select {
		case <-timer.Chan():
		default:
		}
	}
}

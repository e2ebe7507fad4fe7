package countdown

import (
	"math"
	"sync"
	"time"

	"github.com/jonboulle/clockwork"

	"github.com/matchday/livebet/internal/betting/notify"
)

// DefaultTickInterval is the granularity at which a running timer re-derives
// remaining time and notifies subscribers.
const DefaultTickInterval = 100 * time.Millisecond

// UpdateFunc receives every tick with the freshly derived remaining time and
// band. Remaining is always within [0, duration].
type UpdateFunc func(remaining, duration time.Duration, band Band)

// Timer is a decaying time budget. It owns no presentation; the panel and the
// gateway subscribe to it. Remaining time is always recomputed from an
// absolute deadline, never decremented per tick, so missed or external ticks
// cannot drift it.
type Timer struct {
	clock clockwork.Clock

	mu        sync.Mutex
	interval  time.Duration
	duration  time.Duration
	deadline  time.Time
	remaining time.Duration
	running   bool
	expired   bool
	stopCh    chan struct{}

	updateSubs *notify.Hub[UpdateFunc]
	expireSubs *notify.Hub[func()]
}

// NewTimer creates a stopped timer. Pass clockwork.NewRealClock() in
// production; tests use a FakeClock to advance virtual time deterministically.
func NewTimer(clock clockwork.Clock) *Timer {
	return &Timer{
		clock:      clock,
		interval:   DefaultTickInterval,
		updateSubs: notify.NewHub[UpdateFunc](),
		expireSubs: notify.NewHub[func()](),
	}
}

// SetTickInterval overrides the tick granularity. Values <= 0 keep the default.
func (t *Timer) SetTickInterval(d time.Duration) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if d > 0 {
		t.interval = d
	}
}

// SubscribeUpdate registers fn for tick updates. Subscribers are notified in
// registration order. The returned func unsubscribes.
func (t *Timer) SubscribeUpdate(fn UpdateFunc) (unsubscribe func()) {
	return t.updateSubs.Subscribe(fn)
}

// SubscribeExpired registers fn to fire exactly once when remaining reaches
// zero while running. Stop never fires it.
func (t *Timer) SubscribeExpired(fn func()) (unsubscribe func()) {
	return t.expireSubs.Subscribe(fn)
}

// Start resets the timer to the given duration and begins ticking. A negative
// duration clamps to zero and expires on the first tick. Calling Start on a
// running timer restarts it.
func (t *Timer) Start(duration time.Duration) {
	if duration < 0 {
		duration = 0
	}

	t.mu.Lock()
	t.stopLocked()
	now := t.clock.Now()
	t.duration = duration
	t.deadline = now.Add(duration)
	t.remaining = duration
	t.running = true
	t.expired = false
	stopCh := make(chan struct{})
	t.stopCh = stopCh
	interval := t.interval
	t.mu.Unlock()

	t.notifyUpdate(duration, duration)

	go t.run(stopCh, interval)
}

func (t *Timer) run(stopCh chan struct{}, interval time.Duration) {
	timer := t.clock.NewTimer(interval)
	defer stopAndDrainTimer(timer)

	for {
		select {
		case <-stopCh:
			return
		case now := <-timer.Chan():
			if done := t.tick(now); done {
				return
			}
			timer.Reset(interval)
		}
	}
}

// tick re-derives remaining from the absolute deadline and notifies. Returns
// true when the timer has expired and the run loop should exit.
func (t *Timer) tick(now time.Time) bool {
	t.mu.Lock()
	if !t.running {
		t.mu.Unlock()
		return true
	}
	remaining := t.deadline.Sub(now)
	if remaining < 0 {
		remaining = 0
	}
	t.remaining = remaining
	duration := t.duration
	var expire bool
	if remaining <= 0 {
		t.running = false
		t.expired = true
		expire = true
	}
	t.mu.Unlock()

	t.notifyUpdate(remaining, duration)
	if expire {
		t.notifyExpired()
	}
	return expire
}

// Update forces an external resync to the given remaining time, e.g. after a
// panel restore recomputed wall-clock remaining. Negative values clamp to
// zero. A zero update on an already expired timer is a no-op; expiry never
// fires twice.
func (t *Timer) Update(remaining time.Duration) {
	if remaining < 0 {
		remaining = 0
	}

	t.mu.Lock()
	if t.expired && remaining == 0 {
		t.mu.Unlock()
		return
	}
	t.remaining = remaining
	t.deadline = t.clock.Now().Add(remaining)
	duration := t.duration
	var expire bool
	if remaining == 0 && t.running {
		t.running = false
		t.expired = true
		expire = true
		t.stopLocked()
	}
	t.mu.Unlock()

	t.notifyUpdate(remaining, duration)
	if expire {
		t.notifyExpired()
	}
}

// UpdateMillis is Update for callers holding raw float milliseconds (event
// payloads). NaN and infinities clamp to zero rather than propagate.
func (t *Timer) UpdateMillis(ms float64) {
	t.Update(DurationFromMillis(ms))
}

// Stop cancels ticking without firing expiry. Safe to call repeatedly.
func (t *Timer) Stop() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.running = false
	t.stopLocked()
}

func (t *Timer) stopLocked() {
	if t.stopCh != nil {
		close(t.stopCh)
		t.stopCh = nil
	}
}

// IsRunning reports whether the timer is actively ticking.
func (t *Timer) IsRunning() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.running
}

// Remaining returns the last derived remaining time.
func (t *Timer) Remaining() time.Duration {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.remaining
}

// Duration returns the full budget of the current run.
func (t *Timer) Duration() time.Duration {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.duration
}

// CurrentBand classifies the last derived remaining time.
func (t *Timer) CurrentBand() Band {
	t.mu.Lock()
	defer t.mu.Unlock()
	return Classify(t.remaining, t.duration)
}

func (t *Timer) notifyUpdate(remaining, duration time.Duration) {
	band := Classify(remaining, duration)
	for _, fn := range t.updateSubs.Snapshot() {
		fn := fn
		notify.Safely("countdown update", func() { fn(remaining, duration, band) })
	}
}

func (t *Timer) notifyExpired() {
	for _, fn := range t.expireSubs.Snapshot() {
		notify.Safely("countdown expiry", fn)
	}
}

// DurationFromMillis converts raw float milliseconds from an external payload
// into a duration, clamping NaN, infinities and negatives to zero.
func DurationFromMillis(ms float64) time.Duration {
	if math.IsNaN(ms) || math.IsInf(ms, 0) || ms < 0 {
		return 0
	}
	return time.Duration(ms * float64(time.Millisecond))
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

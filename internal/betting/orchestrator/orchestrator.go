// Package orchestrator wires the pause coordinator, the betting panel and the
// opportunity queue in response to match events and user actions. It is the
// only component that calls across those three, and the only owner of the
// active-opportunity slot.
package orchestrator

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"
	"github.com/rs/zerolog/log"
	"github.com/shopspring/decimal"

	"github.com/matchday/livebet/internal/betting/countdown"
	"github.com/matchday/livebet/internal/betting/events"
	"github.com/matchday/livebet/internal/betting/opportunity"
	"github.com/matchday/livebet/internal/betting/panel"
	"github.com/matchday/livebet/internal/betting/pause"
)

var (
	ErrNoActiveOpportunity = errors.New("no active opportunity")
	ErrUnknownChoice       = errors.New("unknown choice")
	ErrInvalidStake        = errors.New("stake must be a positive amount")
	ErrWalletUnavailable   = errors.New("wallet unavailable")
)

// Wallet records placed bets. Bookkeeping is out of scope; the orchestrator
// only guarantees a bet is never recorded without a validated amount.
type Wallet interface {
	RecordBet(ctx context.Context, opportunityID uuid.UUID, choiceID string, stake decimal.Decimal) error
}

// PauseCoordinator is the capability boundary to the pause subsystem. When it
// is unavailable the orchestrator substitutes a no-op implementation so
// gameplay continues unpaused rather than crashing.
type PauseCoordinator interface {
	Pause(reason string, timeout time.Duration) bool
	Resume(withCountdown bool, countdownSeconds int)
	ClearAutoResume()
	IsPaused() bool
	SubscribeTimeoutWarning(fn func(msg string)) (unsubscribe func())
	SubscribeCountdownTick(fn func(secondsLeft int)) (unsubscribe func())
	SubscribeStateChange(fn func(paused bool, reason string)) (unsubscribe func())
}

var _ PauseCoordinator = (*pause.Coordinator)(nil)

// EventSink receives every orchestration event for fan-out to rendering
// clients. The gateway implements it; nil degrades to a no-op.
type EventSink interface {
	Publish(eventType string, payload any)
}

// Config carries the session-level policy knobs.
type Config struct {
	BettingWindow   time.Duration // opportunity decision window, default 15s
	PauseGrace      time.Duration // auto-resume slack beyond the window, default 5s
	ResumeCountdown int           // orientation countdown after explicit decisions, default 3s
	QueueStaleAfter time.Duration // queued-opportunity staleness bound, default 30s
}

func (c Config) withDefaults() Config {
	if c.BettingWindow <= 0 {
		c.BettingWindow = 15 * time.Second
	}
	if c.PauseGrace <= 0 {
		c.PauseGrace = 5 * time.Second
	}
	if c.ResumeCountdown <= 0 {
		c.ResumeCountdown = 3
	}
	if c.QueueStaleAfter <= 0 {
		c.QueueStaleAfter = opportunity.DefaultStaleAfter
	}
	return c
}

// Orchestrator is an explicit game-session object: all pause/panel/queue
// state hangs off it, none of it is process-wide.
type Orchestrator struct {
	cfg    Config
	clock  clockwork.Clock
	coord  PauseCoordinator
	panel  *panel.Panel
	queue  *opportunity.Queue
	wallet Wallet
	sink   EventSink

	mu          sync.Mutex
	active      *opportunity.Opportunity
	unsubExpiry func()
	unsubTick   func()
}

// New builds a session orchestrator. Nil collaborators degrade uniformly:
// coordinator and sink become no-ops, a nil indicator inside the panel is
// handled by the panel itself, and a nil wallet makes stake-affecting
// operations fail closed.
func New(cfg Config, clock clockwork.Clock, coord PauseCoordinator, pnl *panel.Panel, wallet Wallet, sink EventSink) *Orchestrator {
	cfg = cfg.withDefaults()
	if coord == nil {
		log.Warn().Msg("pause coordinator unavailable; continuing unpaused")
		coord = noopCoordinator{}
	}
	if sink == nil {
		sink = noopSink{}
	}
	if pnl == nil {
		pnl = panel.NewPanel(clock, nil)
	}

	o := &Orchestrator{
		cfg:    cfg,
		clock:  clock,
		coord:  coord,
		panel:  pnl,
		queue:  opportunity.NewQueue(clock, cfg.QueueStaleAfter),
		wallet: wallet,
		sink:   sink,
	}

	// Forward pause-side notifications to the rendering sink, and activate the
	// next queued opportunity once a resume has fully completed.
	coord.SubscribeStateChange(func(paused bool, reason string) {
		if paused {
			o.sink.Publish(events.TypeGamePaused, events.GamePausedPayload{Reason: reason, PausedAt: o.clock.Now()})
			return
		}
		o.sink.Publish(events.TypeGameResumed, events.GameResumedPayload{Reason: reason, ResumedAt: o.clock.Now()})
		o.activateNext()
	})
	coord.SubscribeCountdownTick(func(secondsLeft int) {
		o.sink.Publish(events.TypeResumeCountdownTick, events.ResumeCountdownTickPayload{SecondsLeft: secondsLeft})
	})
	coord.SubscribeTimeoutWarning(func(msg string) {
		o.sink.Publish(events.TypeTimeoutWarning, events.TimeoutWarningPayload{Message: msg})
		o.handlePauseTimeout()
	})

	return o
}

// Panel exposes the presentation state machine for the rendering layer
// (minimize/restore/snapshot).
func (o *Orchestrator) Panel() *panel.Panel { return o.panel }

// Queue exposes the pending-opportunity queue for inspection.
func (o *Orchestrator) Queue() *opportunity.Queue { return o.queue }

// IsPaused reports the coordinator's view of the simulated clock.
func (o *Orchestrator) IsPaused() bool { return o.coord.IsPaused() }

// Active returns the active opportunity, nil when none.
func (o *Orchestrator) Active() *opportunity.Opportunity {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.active
}

// HandleMatchEvent classifies an incoming match event and either activates a
// new opportunity, queues it behind the current one, or replaces the current
// one when the incoming priority strictly exceeds it.
func (o *Orchestrator) HandleMatchEvent(evt opportunity.MatchEvent) {
	opp, ok := opportunity.FromMatchEvent(evt, o.clock.Now())
	if !ok {
		log.Debug().Str("type", evt.Type).Msg("match event is not a betting opportunity")
		return
	}

	window := countdown.DurationFromMillis(evt.WindowMs)
	if window <= 0 {
		window = o.cfg.BettingWindow
	}

	o.mu.Lock()
	if o.active != nil {
		if opportunity.ShouldReplace(o.active, opp) {
			old := o.active
			log.Info().
				Str("replaced", old.ID.String()).
				Str("by", opp.ID.String()).
				Int("old_priority", old.Priority).
				Int("new_priority", opp.Priority).
				Msg("higher-priority opportunity replaces active one")
			// Teardown ordering matters: stop the old timer and clear the
			// pause auto-resume before the new opportunity takes the slot, so
			// a stale firing cannot reach the new state.
			o.teardownLocked(events.CloseReplaced)
			o.coord.ClearAutoResume()
			o.activateLocked(opp, window)
			o.mu.Unlock()
			return
		}
		o.mu.Unlock()
		o.queue.Enqueue(opp)
		return
	}
	o.activateLocked(opp, window)
	o.mu.Unlock()
}

// activateLocked installs opp as the active opportunity: pause the clock,
// open the panel, and wire countdown expiry back into this session. Caller
// holds o.mu.
func (o *Orchestrator) activateLocked(opp *opportunity.Opportunity, window time.Duration) {
	o.active = opp
	oppID := opp.ID

	o.coord.Pause(pause.ReasonBettingOpportunity, window+o.cfg.PauseGrace)

	// Subscribe before the timer starts so a zero-length window cannot slip
	// its expiry past us. The captured ID makes stale firings self-identifying.
	o.unsubExpiry = o.panel.Timer().SubscribeExpired(func() {
		o.handleExpiry(oppID)
	})
	o.unsubTick = o.panel.Timer().SubscribeUpdate(func(remaining, duration time.Duration, band countdown.Band) {
		ratio := 0.0
		if duration > 0 {
			ratio = float64(remaining) / float64(duration)
		}
		o.sink.Publish(events.TypeCountdownTick, events.CountdownTickPayload{
			OpportunityID: oppID.String(),
			RemainingMs:   remaining.Milliseconds(),
			DurationMs:    duration.Milliseconds(),
			Band:          string(band),
			Ratio:         ratio,
		})
	})

	o.panel.Open(oppID, panel.Content{
		Title:       titleFor(opp.Type),
		Description: opp.Description,
		Choices:     opp.Choices,
	}, window)

	now := o.clock.Now()
	o.sink.Publish(events.TypeOpportunityOpened, events.OpportunityOpenedPayload{
		OpportunityID: oppID.String(),
		Type:          opp.Type,
		Title:         titleFor(opp.Type),
		Description:   opp.Description,
		Choices:       opp.Choices,
		Priority:      opp.Priority,
		OpenedAt:      now,
		TimeoutAt:     now.Add(window),
		WindowMs:      window.Milliseconds(),
	})
}

// teardownLocked clears the active slot: unsubscribes countdown callbacks,
// closes the panel (stopping its timer) and publishes the close. Caller holds
// o.mu.
func (o *Orchestrator) teardownLocked(reason events.CloseReason) {
	if o.active == nil {
		return
	}
	id := o.active.ID
	if o.unsubExpiry != nil {
		o.unsubExpiry()
		o.unsubExpiry = nil
	}
	if o.unsubTick != nil {
		o.unsubTick()
		o.unsubTick = nil
	}
	o.panel.Close()
	o.active = nil
	o.sink.Publish(events.TypeOpportunityClosed, events.OpportunityClosedPayload{
		OpportunityID: id.String(),
		Reason:        reason,
		ClosedAt:      o.clock.Now(),
	})
}

// PlaceBet resolves the active opportunity with a stake. Financial state is
// fail-closed: an invalid amount, unknown choice, or unavailable wallet
// leaves the opportunity open (it still resolves by timeout), and nothing is
// recorded.
func (o *Orchestrator) PlaceBet(ctx context.Context, oppID uuid.UUID, choiceID string, stake decimal.Decimal) error {
	o.mu.Lock()
	if o.active == nil || o.active.ID != oppID {
		o.mu.Unlock()
		return ErrNoActiveOpportunity
	}
	if !stake.IsPositive() {
		o.mu.Unlock()
		return fmt.Errorf("%w: %s", ErrInvalidStake, stake)
	}
	if err := validateChoice(o.active, choiceID); err != nil {
		o.mu.Unlock()
		return err
	}
	o.mu.Unlock()

	if o.wallet == nil {
		return ErrWalletUnavailable
	}
	if err := o.wallet.RecordBet(ctx, oppID, choiceID, stake); err != nil {
		return fmt.Errorf("record bet: %w", err)
	}

	o.sink.Publish(events.TypeBetPlaced, events.BetPlacedPayload{
		OpportunityID: oppID.String(),
		ChoiceID:      choiceID,
		Stake:         stake.String(),
		PlacedAt:      o.clock.Now(),
	})
	log.Info().
		Str("opportunity_id", oppID.String()).
		Str("choice_id", choiceID).
		Str("stake", stake.String()).
		Msg("bet placed")

	// Explicit decision: close, then resume with the orientation countdown.
	o.resolve(oppID, events.ClosePlaced, true)
	return nil
}

// SkipBet resolves the active opportunity without a stake. Skipping is an
// explicit decision, so the resume carries the orientation countdown.
func (o *Orchestrator) SkipBet(oppID uuid.UUID) error {
	o.mu.Lock()
	if o.active == nil || o.active.ID != oppID {
		o.mu.Unlock()
		return ErrNoActiveOpportunity
	}
	o.mu.Unlock()

	log.Info().Str("opportunity_id", oppID.String()).Msg("bet skipped")
	o.resolve(oppID, events.CloseSkipped, true)
	return nil
}

// handleExpiry fires from the countdown timer when the decision window runs
// out. Timeouts resume immediately; an orientation countdown would only
// compound the delay.
func (o *Orchestrator) handleExpiry(oppID uuid.UUID) {
	log.Info().Str("opportunity_id", oppID.String()).Msg("opportunity window expired")
	o.resolve(oppID, events.CloseExpired, false)
}

// handlePauseTimeout fires when the pause coordinator's auto-resume guard
// trips before the countdown resolved the opportunity. The coordinator
// resumes on its own; this only clears the abandoned opportunity.
func (o *Orchestrator) handlePauseTimeout() {
	o.mu.Lock()
	if o.active == nil {
		o.mu.Unlock()
		return
	}
	log.Warn().Str("opportunity_id", o.active.ID.String()).Msg("pause window expired with opportunity still open")
	o.teardownLocked(events.CloseError)
	o.mu.Unlock()
}

// resolve closes the opportunity identified by oppID and resumes play.
// Callbacks referencing a since-replaced or closed opportunity are ignored;
// the ID check is what serializes a tick-driven expiry against a concurrent
// user decision.
func (o *Orchestrator) resolve(oppID uuid.UUID, reason events.CloseReason, withCountdown bool) {
	o.mu.Lock()
	if o.active == nil || o.active.ID != oppID {
		o.mu.Unlock()
		log.Debug().Str("opportunity_id", oppID.String()).Msg("ignoring stale opportunity callback")
		return
	}
	o.teardownLocked(reason)
	o.mu.Unlock()

	// Resume outside the lock: completion re-enters through the state-change
	// subscription to activate the next queued opportunity.
	o.coord.Resume(withCountdown, o.cfg.ResumeCountdown)

	// A coordinator that was never paused (no-op fallback, or the clock was
	// already running) emits no state change, so dequeue here.
	if !o.coord.IsPaused() {
		o.activateNext()
	}
}

// activateNext pulls the next fresh opportunity off the queue once play has
// resumed.
func (o *Orchestrator) activateNext() {
	o.mu.Lock()
	if o.active != nil {
		o.mu.Unlock()
		return
	}
	next := o.queue.Dequeue()
	if next == nil {
		o.mu.Unlock()
		return
	}
	log.Info().Str("opportunity_id", next.ID.String()).Msg("activating queued opportunity")
	o.activateLocked(next, o.cfg.BettingWindow)
	o.mu.Unlock()
}

// Shutdown tears down any active opportunity and drops the queue. The
// coordinator is left running (unpaused) so a wrapping process can exit
// cleanly.
func (o *Orchestrator) Shutdown() {
	o.mu.Lock()
	o.teardownLocked(events.CloseError)
	o.mu.Unlock()
	o.queue.Clear()
	o.coord.ClearAutoResume()
	o.coord.Resume(false, 0)
}

func titleFor(eventType string) string {
	t := strings.ReplaceAll(eventType, "_", " ")
	if t == "" {
		return ""
	}
	return strings.ToUpper(t[:1]) + t[1:]
}

func validateChoice(opp *opportunity.Opportunity, choiceID string) error {
	if strings.TrimSpace(choiceID) == "" {
		return fmt.Errorf("%w: empty choice id", ErrUnknownChoice)
	}
	if len(opp.Choices) == 0 {
		return nil
	}
	for _, ch := range opp.Choices {
		if ch.ID == choiceID {
			return nil
		}
	}
	return fmt.Errorf("%w: %q", ErrUnknownChoice, choiceID)
}

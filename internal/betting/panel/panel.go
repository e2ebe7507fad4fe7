// Package panel is the presentation/timing state machine for the single
// active betting opportunity. The panel can be rendered in full or minimized
// to an indicator; countdown and content survive a minimize/restore cycle
// with zero drift because remaining time is always recomputed from the
// opportunity's start time, never read back from a renderer.
package panel

import (
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"
	"github.com/rs/zerolog/log"

	"github.com/matchday/livebet/internal/betting/countdown"
	"github.com/matchday/livebet/internal/betting/opportunity"
)

// Content is what the rendering layer shows for an opportunity.
type Content struct {
	Title       string               `json:"title"`
	Description string               `json:"description"`
	Choices     []opportunity.Choice `json:"choices,omitempty"`
}

// fallbackContent keeps the panel consumable when an event arrives with
// malformed or missing content.
var fallbackContent = Content{Title: "Betting opportunity", Description: "Place your bet"}

// MinimizedIndicator is the external collaborator shown while the panel is
// minimized. The panel pushes remaining/band into it and never reads back.
type MinimizedIndicator interface {
	Activate(remaining time.Duration, band countdown.Band)
	Update(remaining time.Duration, band countdown.Band)
	Deactivate()
}

// NoopIndicator is the fallback when no indicator is wired; timing and state
// logic proceed unaffected.
type NoopIndicator struct{}

func (NoopIndicator) Activate(time.Duration, countdown.Band) {}
func (NoopIndicator) Update(time.Duration, countdown.Band)   {}
func (NoopIndicator) Deactivate()                            {}

// State is a read-only snapshot for rendering and the gateway. Visible and
// Minimized are mutually exclusive; both false means closed.
type State struct {
	OpportunityID uuid.UUID
	Visible       bool
	Minimized     bool
	StartTime     time.Time
	Duration      time.Duration
	Remaining     time.Duration
	Content       Content
}

// Panel owns one countdown timer and the visible/minimized/closed lifecycle
// of the active opportunity.
type Panel struct {
	clock     clockwork.Clock
	indicator MinimizedIndicator
	timer     *countdown.Timer

	mu        sync.Mutex
	oppID     uuid.UUID
	visible   bool
	minimized bool
	startTime time.Time
	duration  time.Duration
	content   Content
}

// NewPanel wires a panel to its clock and minimized-indicator collaborator.
// A nil indicator degrades to NoopIndicator.
func NewPanel(clock clockwork.Clock, indicator MinimizedIndicator) *Panel {
	if indicator == nil {
		indicator = NoopIndicator{}
	}
	p := &Panel{
		clock:     clock,
		indicator: indicator,
		timer:     countdown.NewTimer(clock),
	}
	// Ticks reach the indicator only while minimized; the full panel consumes
	// them through SubscribeUpdate directly.
	p.timer.SubscribeUpdate(func(remaining, duration time.Duration, band countdown.Band) {
		p.mu.Lock()
		minimized := p.minimized
		p.mu.Unlock()
		if minimized {
			p.indicator.Update(remaining, band)
		}
	})
	return p
}

// Timer exposes the owned countdown timer for subscription (tick updates,
// expiry). Callers must not Start/Stop it directly; the panel does.
func (p *Panel) Timer() *countdown.Timer {
	return p.timer
}

// Open activates the panel for an opportunity: visible, not minimized,
// countdown started. Malformed or empty content falls back to a minimal
// default rather than failing the activation.
func (p *Panel) Open(oppID uuid.UUID, content Content, duration time.Duration) {
	if duration < 0 {
		duration = 0
	}
	if strings.TrimSpace(content.Title) == "" {
		log.Warn().Str("opportunity_id", oppID.String()).Msg("opportunity content malformed; using fallback")
		title := fallbackContent.Title
		if strings.TrimSpace(content.Description) != "" {
			title = content.Description
		}
		content = Content{Title: title, Description: content.Description, Choices: content.Choices}
	}

	p.mu.Lock()
	p.oppID = oppID
	p.visible = true
	p.minimized = false
	p.startTime = p.clock.Now()
	p.duration = duration
	p.content = content
	p.mu.Unlock()

	p.indicator.Deactivate()
	p.timer.Start(duration)

	log.Info().
		Str("opportunity_id", oppID.String()).
		Str("title", content.Title).
		Dur("duration", duration).
		Msg("betting panel opened")
}

// Minimize hides the full panel, leaving the countdown untouched, and hands
// the indicator the same remaining time and urgency band. A minimize with no
// active opportunity, or while already minimized, is a no-op.
func (p *Panel) Minimize() {
	p.mu.Lock()
	if !p.visible {
		p.mu.Unlock()
		log.Debug().Msg("minimize with no visible panel; no-op")
		return
	}
	p.visible = false
	p.minimized = true
	remaining := p.remainingLocked()
	duration := p.duration
	p.mu.Unlock()

	p.indicator.Activate(remaining, countdown.Classify(remaining, duration))
	log.Debug().Dur("remaining", remaining).Msg("betting panel minimized")
}

// Restore brings the full panel back. Displayed remaining time is recomputed
// as duration-(now-startTime), never read from the indicator's last cached
// value, so time spent minimized cannot accumulate drift.
func (p *Panel) Restore() {
	p.mu.Lock()
	if !p.minimized {
		p.mu.Unlock()
		log.Debug().Msg("restore with no minimized panel; no-op")
		return
	}
	p.visible = true
	p.minimized = false
	remaining := p.remainingLocked()
	p.mu.Unlock()

	p.indicator.Deactivate()
	p.timer.Update(remaining)
	log.Debug().Dur("remaining", remaining).Msg("betting panel restored")
}

// IsExpired reports whether the active opportunity's window has fully
// elapsed. False when nothing is active.
func (p *Panel) IsExpired() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	if !p.visible && !p.minimized {
		return false
	}
	return p.clock.Now().Sub(p.startTime) >= p.duration
}

// RemainingTime recomputes the active opportunity's remaining window from
// wall time, clamped to [0, duration]. Zero when nothing is active.
func (p *Panel) RemainingTime() time.Duration {
	p.mu.Lock()
	defer p.mu.Unlock()
	if !p.visible && !p.minimized {
		return 0
	}
	return p.remainingLocked()
}

func (p *Panel) remainingLocked() time.Duration {
	remaining := p.duration - p.clock.Now().Sub(p.startTime)
	if remaining < 0 {
		return 0
	}
	return remaining
}

// Close clears presentation, content and timer. Used on decision, expiry, or
// explicit dismissal. Safe when nothing is active.
func (p *Panel) Close() {
	p.mu.Lock()
	wasActive := p.visible || p.minimized
	id := p.oppID
	p.oppID = uuid.Nil
	p.visible = false
	p.minimized = false
	p.startTime = time.Time{}
	p.duration = 0
	p.content = Content{}
	p.mu.Unlock()

	p.timer.Stop()
	p.indicator.Deactivate()
	if wasActive {
		log.Info().Str("opportunity_id", id.String()).Msg("betting panel closed")
	}
}

// ActiveID returns the active opportunity's identity, uuid.Nil when closed.
// Orchestrator callbacks compare against it to discard stale timer firings.
func (p *Panel) ActiveID() uuid.UUID {
	p.mu.Lock()
	defer p.mu.Unlock()
	if !p.visible && !p.minimized {
		return uuid.Nil
	}
	return p.oppID
}

// Snapshot returns the current panel state.
func (p *Panel) Snapshot() State {
	p.mu.Lock()
	defer p.mu.Unlock()
	st := State{
		OpportunityID: p.oppID,
		Visible:       p.visible,
		Minimized:     p.minimized,
		StartTime:     p.startTime,
		Duration:      p.duration,
		Content:       p.content,
	}
	if p.visible || p.minimized {
		st.Remaining = p.remainingLocked()
	}
	return st
}

package events

import (
	"time"

	"github.com/matchday/livebet/internal/betting/opportunity"
)

// Event payload types shared between the orchestrator and the gateway.

// Event types broadcast to rendering clients.
const (
	TypeOpportunityOpened   = "OpportunityOpened"
	TypeOpportunityClosed   = "OpportunityClosed"
	TypeCountdownTick       = "CountdownTick"
	TypeGamePaused          = "GamePaused"
	TypeGameResumed         = "GameResumed"
	TypeResumeCountdownTick = "ResumeCountdownTick"
	TypeTimeoutWarning      = "TimeoutWarning"
	TypeBetPlaced           = "BetPlaced"
	TypeMatchClockSync      = "MatchClockSync"
)

// OpportunityOpenedPayload is broadcast when a betting panel opens.
type OpportunityOpenedPayload struct {
	OpportunityID string               `json:"opportunity_id"`
	Type          string               `json:"type"`
	Title         string               `json:"title"`
	Description   string               `json:"description"`
	Choices       []opportunity.Choice `json:"choices,omitempty"`
	Priority      int                  `json:"priority"`
	OpenedAt      time.Time            `json:"opened_at"`
	TimeoutAt     time.Time            `json:"timeout_at"`
	WindowMs      int64                `json:"window_ms"`
}

// CloseReason classifies why an opportunity ended.
type CloseReason string

const (
	ClosePlaced   CloseReason = "placed"
	CloseSkipped  CloseReason = "skipped"
	CloseExpired  CloseReason = "expired"
	CloseReplaced CloseReason = "replaced"
	CloseError    CloseReason = "error"
)

// OpportunityClosedPayload is broadcast when the active opportunity ends.
type OpportunityClosedPayload struct {
	OpportunityID string      `json:"opportunity_id"`
	Reason        CloseReason `json:"reason"`
	ClosedAt      time.Time   `json:"closed_at"`
}

// CountdownTickPayload carries a countdown update for the progress indicator.
// Band is what drives the indicator color.
type CountdownTickPayload struct {
	OpportunityID string  `json:"opportunity_id"`
	RemainingMs   int64   `json:"remaining_ms"`
	DurationMs    int64   `json:"duration_ms"`
	Band          string  `json:"band"`
	Ratio         float64 `json:"ratio"`
}

// GamePausedPayload is broadcast when the simulated clock stops.
type GamePausedPayload struct {
	Reason   string    `json:"reason"`
	PausedAt time.Time `json:"paused_at"`
}

// GameResumedPayload is broadcast when the simulated clock advances again.
type GameResumedPayload struct {
	Reason    string    `json:"reason"`
	ResumedAt time.Time `json:"resumed_at"`
}

// ResumeCountdownTickPayload carries the pre-resume orientation countdown.
type ResumeCountdownTickPayload struct {
	SecondsLeft int `json:"seconds_left"`
}

// TimeoutWarningPayload is broadcast when a pause hits its auto-resume bound.
type TimeoutWarningPayload struct {
	Message string `json:"message"`
}

// BetPlacedPayload is broadcast after the wallet accepted a stake.
type BetPlacedPayload struct {
	OpportunityID string    `json:"opportunity_id"`
	ChoiceID      string    `json:"choice_id"`
	Stake         string    `json:"stake"`
	PlacedAt      time.Time `json:"placed_at"`
}

// MatchClockSyncPayload lets reconnecting clients resync the simulated clock.
type MatchClockSyncPayload struct {
	Minute  int    `json:"minute"`
	Second  int    `json:"second"`
	Display string `json:"display"`
	Paused  bool   `json:"paused"`
}

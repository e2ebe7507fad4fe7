package gateway

import (
	"encoding/json"
	"time"
)

// GameEvent is the envelope every websocket client receives.
type GameEvent struct {
	Type      string    `json:"type"`
	Timestamp time.Time `json:"timestamp"`
	Data      any       `json:"data,omitempty"`
}

// ClientCommand is what a rendering client may send back: panel presentation
// changes and bet decisions. Anything else is ignored.
type ClientCommand struct {
	Action        string `json:"action"` // minimize | restore | skip | place_bet
	OpportunityID string `json:"opportunity_id,omitempty"`
	ChoiceID      string `json:"choice_id,omitempty"`
	Stake         string `json:"stake,omitempty"`
}

// GameState is the snapshot served to reconnecting clients.
type GameState struct {
	Paused      bool            `json:"paused"`
	PauseReason string          `json:"pause_reason,omitempty"`
	MatchTime   json.RawMessage `json:"match_time,omitempty"`
	Opportunity json.RawMessage `json:"opportunity,omitempty"`
	QueueLength int             `json:"queue_length"`
}

// StateProvider supplies the snapshot for the /state endpoint and for state
// sync on connect.
type StateProvider interface {
	GameState() GameState
}

// Package opportunity holds the betting-opportunity domain model: the event
// classification boundary, the priority order, and the queue that serializes
// opportunities arriving while another is being decided.
package opportunity

import (
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Choice is one selectable outcome of a betting opportunity.
type Choice struct {
	ID    string          `json:"id"`
	Label string          `json:"label"`
	Odds  decimal.Decimal `json:"odds"`
}

// MatchEvent is the unit of the consumed match-event stream. Events arrive
// pre-classified upstream as betting or informational, but classification is
// re-derived here so garbage input cannot open a betting window.
type MatchEvent struct {
	Type        string   `json:"type"`
	Minute      int      `json:"minute"`
	Description string   `json:"description"`
	Choices     []Choice `json:"choices,omitempty"`
	WindowMs    float64  `json:"window_ms,omitempty"` // betting window, 0 means default
}

// Opportunity is a single betting decision window.
type Opportunity struct {
	ID          uuid.UUID
	Type        string
	Description string
	Choices     []Choice
	Priority    int
	QueuedAt    time.Time
}

// Priority ranks. The original ranking was implied by event-type naming; this
// table is the explicit total order. Unknown betting-shaped types rank lowest,
// ties are broken FIFO by QueuedAt.
const (
	PriorityLow      = 1
	PriorityMedium   = 2
	PriorityHigh     = 3
	PriorityCritical = 4
)

var typePriority = map[string]int{
	"penalty":          PriorityCritical,
	"penalty_awarded":  PriorityCritical,
	"red_card":         PriorityHigh,
	"corner":           PriorityMedium,
	"corner_kick":      PriorityMedium,
	"free_kick":        PriorityMedium,
	"yellow_card":      PriorityMedium,
	"dangerous_attack": PriorityLow,
	"throw_in":         PriorityLow,
}

// bettingEventTypes is the known betting set: events that always open an
// opportunity window.
var bettingEventTypes = map[string]bool{
	"penalty":          true,
	"penalty_awarded":  true,
	"red_card":         true,
	"corner":           true,
	"corner_kick":      true,
	"free_kick":        true,
	"yellow_card":      true,
	"dangerous_attack": true,
	"throw_in":         true,
}

// informationalEventTypes is the known informational/resolution set: events
// that never open an opportunity, even when they carry choice-shaped payloads.
var informationalEventTypes = map[string]bool{
	"goal":         true,
	"goal_scored":  true,
	"kick_off":     true,
	"half_time":    true,
	"full_time":    true,
	"match_end":    true,
	"substitution": true,
	"injury_break": true,
	"bet_settled":  true,
	"var_check":    true,
}

func normalizeType(eventType string) string {
	return strings.ToLower(strings.TrimSpace(eventType))
}

// PriorityFor returns the rank of an event type, PriorityLow for unknown ones.
func PriorityFor(eventType string) int {
	if p, ok := typePriority[normalizeType(eventType)]; ok {
		return p
	}
	return PriorityLow
}

// IsBettingEvent is the classification predicate: true if the declared type is
// in the known betting set; false if it is in the known informational or
// resolution set; true if the event carries a well-formed choices list;
// false otherwise.
func IsBettingEvent(evt MatchEvent) bool {
	t := normalizeType(evt.Type)
	if bettingEventTypes[t] {
		return true
	}
	if informationalEventTypes[t] {
		return false
	}
	return hasWellFormedChoices(evt.Choices)
}

func hasWellFormedChoices(choices []Choice) bool {
	if len(choices) == 0 {
		return false
	}
	for _, ch := range choices {
		if strings.TrimSpace(ch.Label) == "" {
			return false
		}
	}
	return true
}

// FromMatchEvent builds an Opportunity from a classified betting event.
// Returns false when the event does not classify as betting.
func FromMatchEvent(evt MatchEvent, now time.Time) (*Opportunity, bool) {
	if !IsBettingEvent(evt) {
		return nil, false
	}
	desc := strings.TrimSpace(evt.Description)
	if desc == "" {
		desc = strings.ReplaceAll(normalizeType(evt.Type), "_", " ")
	}
	return &Opportunity{
		ID:          uuid.New(),
		Type:        normalizeType(evt.Type),
		Description: desc,
		Choices:     evt.Choices,
		Priority:    PriorityFor(evt.Type),
		QueuedAt:    now,
	}, true
}

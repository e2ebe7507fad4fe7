package opportunity

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func choices(labels ...string) []Choice {
	out := make([]Choice, 0, len(labels))
	for _, l := range labels {
		out = append(out, Choice{ID: l, Label: l, Odds: decimal.NewFromFloat(2.5)})
	}
	return out
}

func TestIsBettingEvent(t *testing.T) {
	tests := []struct {
		name string
		evt  MatchEvent
		want bool
	}{
		{"known betting type", MatchEvent{Type: "corner"}, true},
		{"known betting type, mixed case", MatchEvent{Type: " Penalty "}, true},
		{"informational type", MatchEvent{Type: "goal_scored"}, false},
		{"resolution type with choices still informational", MatchEvent{Type: "bet_settled", Choices: choices("Yes", "No")}, false},
		{"unknown type with well-formed choices", MatchEvent{Type: "next_team_to_score", Choices: choices("Home", "Away")}, true},
		{"unknown type with blank choice label", MatchEvent{Type: "mystery", Choices: []Choice{{Label: "  "}}}, false},
		{"unknown type without choices", MatchEvent{Type: "crowd_wave"}, false},
		{"empty event", MatchEvent{}, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, IsBettingEvent(tt.evt))
		})
	}
}

func TestPriorityFor(t *testing.T) {
	assert.Equal(t, PriorityCritical, PriorityFor("penalty"))
	assert.Equal(t, PriorityHigh, PriorityFor("red_card"))
	assert.Equal(t, PriorityMedium, PriorityFor("corner"))
	assert.Equal(t, PriorityLow, PriorityFor("throw_in"))
	assert.Equal(t, PriorityLow, PriorityFor("something_new"))
}

func TestFromMatchEvent(t *testing.T) {
	now := time.Unix(1000, 0)

	o, ok := FromMatchEvent(MatchEvent{Type: "Corner", Description: "Corner for home side", Choices: choices("Goal", "No goal")}, now)
	require.True(t, ok)
	assert.NotEqual(t, "", o.ID.String())
	assert.Equal(t, "corner", o.Type)
	assert.Equal(t, PriorityMedium, o.Priority)
	assert.Equal(t, now, o.QueuedAt)

	_, ok = FromMatchEvent(MatchEvent{Type: "half_time"}, now)
	assert.False(t, ok)
}

func TestFromMatchEventFallbackDescription(t *testing.T) {
	o, ok := FromMatchEvent(MatchEvent{Type: "free_kick"}, time.Unix(0, 0))
	require.True(t, ok)
	assert.Equal(t, "free kick", o.Description)
}

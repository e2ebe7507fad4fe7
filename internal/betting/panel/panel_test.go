package panel

import (
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/matchday/livebet/internal/betting/countdown"
)

type recordingIndicator struct {
	mu          sync.Mutex
	activations []struct {
		remaining time.Duration
		band      countdown.Band
	}
	deactivated int
}

func (r *recordingIndicator) Activate(remaining time.Duration, band countdown.Band) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.activations = append(r.activations, struct {
		remaining time.Duration
		band      countdown.Band
	}{remaining, band})
}

func (r *recordingIndicator) Update(time.Duration, countdown.Band) {}

func (r *recordingIndicator) Deactivate() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.deactivated++
}

func TestOpenMakesPanelVisible(t *testing.T) {
	clk := clockwork.NewFakeClock()
	p := NewPanel(clk, nil)
	defer p.Close()

	id := uuid.New()
	p.Open(id, Content{Title: "Corner"}, 10*time.Second)

	st := p.Snapshot()
	assert.True(t, st.Visible)
	assert.False(t, st.Minimized)
	assert.Equal(t, id, st.OpportunityID)
	assert.Equal(t, 10*time.Second, st.Duration)
	assert.Equal(t, "Corner", st.Content.Title)
	assert.True(t, p.Timer().IsRunning())
}

func TestMinimizeRestorePreservesTiming(t *testing.T) {
	clk := clockwork.NewFakeClock()
	p := NewPanel(clk, nil)
	defer p.Close()

	p.Open(uuid.New(), Content{Title: "Corner"}, 10*time.Second)
	opened := p.Snapshot()

	clk.Advance(6 * time.Second)
	p.Minimize()
	p.Restore()

	st := p.Snapshot()
	assert.Equal(t, opened.StartTime, st.StartTime, "startTime preserved exactly")
	assert.Equal(t, opened.Duration, st.Duration, "duration preserved exactly")
	assert.InDelta(t, float64(4*time.Second), float64(p.RemainingTime()), float64(100*time.Millisecond))
}

func TestRestoreRecomputesRemainingFromWallClock(t *testing.T) {
	clk := clockwork.NewFakeClock()
	p := NewPanel(clk, nil)
	defer p.Close()

	p.Open(uuid.New(), Content{Title: "Corner"}, 10*time.Second)
	p.Minimize()

	// Time passes while minimized; the restored remaining must reflect it.
	clk.Advance(7 * time.Second)
	p.Restore()

	assert.InDelta(t, float64(3*time.Second), float64(p.RemainingTime()), float64(100*time.Millisecond))
	assert.Equal(t, countdown.BandWarning, p.Timer().CurrentBand())
}

func TestMinimizeActivatesIndicatorWithBand(t *testing.T) {
	clk := clockwork.NewFakeClock()
	ind := &recordingIndicator{}
	p := NewPanel(clk, ind)
	defer p.Close()

	p.Open(uuid.New(), Content{Title: "Corner"}, 10*time.Second)
	clk.Advance(8 * time.Second)
	p.Minimize()

	ind.mu.Lock()
	defer ind.mu.Unlock()
	require.Len(t, ind.activations, 1)
	assert.InDelta(t, float64(2*time.Second), float64(ind.activations[0].remaining), float64(100*time.Millisecond))
	assert.Equal(t, countdown.BandUrgent, ind.activations[0].band)
}

func TestMinimizeWhileMinimizedIsNoop(t *testing.T) {
	clk := clockwork.NewFakeClock()
	ind := &recordingIndicator{}
	p := NewPanel(clk, ind)
	defer p.Close()

	p.Open(uuid.New(), Content{Title: "Corner"}, 10*time.Second)
	p.Minimize()
	p.Minimize()

	ind.mu.Lock()
	defer ind.mu.Unlock()
	assert.Len(t, ind.activations, 1)

	st := p.Snapshot()
	assert.True(t, st.Minimized)
	assert.False(t, st.Visible)
}

func TestOperationsWithNoActiveOpportunityAreNoops(t *testing.T) {
	clk := clockwork.NewFakeClock()
	p := NewPanel(clk, nil)

	p.Minimize()
	p.Restore()
	p.Close()

	st := p.Snapshot()
	assert.False(t, st.Visible)
	assert.False(t, st.Minimized)
	assert.Equal(t, time.Duration(0), p.RemainingTime())
	assert.False(t, p.IsExpired())
	assert.Equal(t, uuid.Nil, p.ActiveID())
}

func TestMalformedContentFallsBack(t *testing.T) {
	clk := clockwork.NewFakeClock()
	p := NewPanel(clk, nil)
	defer p.Close()

	p.Open(uuid.New(), Content{}, 5*time.Second)

	st := p.Snapshot()
	assert.True(t, st.Visible, "activation must not fail on malformed content")
	assert.Equal(t, "Betting opportunity", st.Content.Title)
}

func TestIsExpired(t *testing.T) {
	clk := clockwork.NewFakeClock()
	p := NewPanel(clk, nil)
	defer p.Close()

	p.Open(uuid.New(), Content{Title: "Corner"}, 10*time.Second)
	assert.False(t, p.IsExpired())

	clk.Advance(10 * time.Second)
	assert.True(t, p.IsExpired())
}

func TestCloseClearsEverything(t *testing.T) {
	clk := clockwork.NewFakeClock()
	ind := &recordingIndicator{}
	p := NewPanel(clk, ind)

	id := uuid.New()
	p.Open(id, Content{Title: "Corner"}, 10*time.Second)
	p.Close()

	st := p.Snapshot()
	assert.False(t, st.Visible)
	assert.False(t, st.Minimized)
	assert.Equal(t, Content{}, st.Content)
	assert.False(t, p.Timer().IsRunning())
	assert.Equal(t, uuid.Nil, p.ActiveID())
}

func TestVisibleAndMinimizedMutuallyExclusive(t *testing.T) {
	clk := clockwork.NewFakeClock()
	p := NewPanel(clk, nil)
	defer p.Close()

	p.Open(uuid.New(), Content{Title: "Corner"}, 10*time.Second)
	st := p.Snapshot()
	assert.True(t, st.Visible != st.Minimized)

	p.Minimize()
	st = p.Snapshot()
	assert.True(t, st.Visible != st.Minimized)

	p.Restore()
	st = p.Snapshot()
	assert.True(t, st.Visible != st.Minimized)
}

package matchclock

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type pauseFlag struct {
	paused atomic.Bool
}

func (p *pauseFlag) IsPaused() bool { return p.paused.Load() }

func TestClockAdvancesWhileUnpaused(t *testing.T) {
	clk := clockwork.NewFakeClock()
	flag := &pauseFlag{}
	mc := New(clk, flag, 1)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go mc.Run(ctx)

	clk.BlockUntil(1)
	clk.Advance(time.Second)
	require.Eventually(t, func() bool { return mc.Elapsed() == time.Second }, 2*time.Second, 10*time.Millisecond)

	clk.Advance(time.Second)
	require.Eventually(t, func() bool { return mc.Elapsed() == 2*time.Second }, 2*time.Second, 10*time.Millisecond)
}

func TestClockFreezesWhilePaused(t *testing.T) {
	clk := clockwork.NewFakeClock()
	flag := &pauseFlag{}
	mc := New(clk, flag, 1)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go mc.Run(ctx)

	clk.BlockUntil(1)
	clk.Advance(time.Second)
	require.Eventually(t, func() bool { return mc.Elapsed() == time.Second }, 2*time.Second, 10*time.Millisecond)

	flag.paused.Store(true)
	for i := 0; i < 5; i++ {
		clk.Advance(time.Second)
	}
	time.Sleep(50 * time.Millisecond)
	assert.Equal(t, time.Second, mc.Elapsed(), "simulated time frozen while paused")

	flag.paused.Store(false)
	clk.Advance(time.Second)
	require.Eventually(t, func() bool { return mc.Elapsed() == 2*time.Second }, 2*time.Second, 10*time.Millisecond)
}

func TestSnapshotDisplay(t *testing.T) {
	clk := clockwork.NewFakeClock()
	mc := New(clk, nil, 1)

	snap := mc.Snapshot()
	assert.Equal(t, "00:00", snap.Display)
	assert.False(t, snap.Paused)
	assert.False(t, snap.Ended)
}

func TestSpeedCompressesMatch(t *testing.T) {
	clk := clockwork.NewFakeClock()
	mc := New(clk, nil, 60) // one simulated minute per real second

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go mc.Run(ctx)

	clk.BlockUntil(1)
	clk.Advance(time.Second)
	require.Eventually(t, func() bool { return mc.Snapshot().Minute == 1 }, 2*time.Second, 10*time.Millisecond)
}

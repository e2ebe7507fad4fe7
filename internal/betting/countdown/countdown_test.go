package countdown

import (
	"math"
	"sync/atomic"
	"testing"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestClassify(t *testing.T) {
	tests := []struct {
		name      string
		remaining time.Duration
		duration  time.Duration
		want      Band
	}{
		{"full budget", 10 * time.Second, 10 * time.Second, BandNormal},
		{"just above half", 5100 * time.Millisecond, 10 * time.Second, BandNormal},
		{"exactly half", 5 * time.Second, 10 * time.Second, BandWarning},
		{"just above quarter", 2600 * time.Millisecond, 10 * time.Second, BandWarning},
		{"exactly quarter", 2500 * time.Millisecond, 10 * time.Second, BandUrgent},
		{"nothing left", 0, 10 * time.Second, BandUrgent},
		{"zero duration", 0, 0, BandUrgent},
		{"negative remaining", -time.Second, 10 * time.Second, BandUrgent},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Classify(tt.remaining, tt.duration))
		})
	}
}

func TestStartEmitsInitialUpdate(t *testing.T) {
	clk := clockwork.NewFakeClock()
	timer := NewTimer(clk)
	defer timer.Stop()

	updates := make(chan time.Duration, 16)
	timer.SubscribeUpdate(func(remaining, duration time.Duration, band Band) {
		assert.Equal(t, 10*time.Second, duration)
		assert.Equal(t, BandNormal, band)
		updates <- remaining
	})

	timer.Start(10 * time.Second)

	select {
	case r := <-updates:
		assert.Equal(t, 10*time.Second, r)
	default:
		t.Fatal("expected a synchronous update on Start")
	}
	assert.True(t, timer.IsRunning())
}

func TestTickDrivenExpiryFiresOnce(t *testing.T) {
	clk := clockwork.NewFakeClock()
	timer := NewTimer(clk)
	timer.SetTickInterval(50 * time.Millisecond)

	var fired atomic.Int32
	expired := make(chan struct{}, 4)
	timer.SubscribeExpired(func() {
		fired.Add(1)
		expired <- struct{}{}
	})

	timer.Start(100 * time.Millisecond)

	clk.BlockUntil(1)
	clk.Advance(60 * time.Millisecond)
	clk.BlockUntil(1)
	clk.Advance(60 * time.Millisecond)

	select {
	case <-expired:
	case <-time.After(2 * time.Second):
		t.Fatal("expiry never fired")
	}

	require.Eventually(t, func() bool { return !timer.IsRunning() }, time.Second, 10*time.Millisecond)
	assert.Equal(t, int32(1), fired.Load())
	assert.Equal(t, time.Duration(0), timer.Remaining())
}

func TestUpdateZeroFiresExpiredExactlyOnce(t *testing.T) {
	clk := clockwork.NewFakeClock()
	timer := NewTimer(clk)

	var fired atomic.Int32
	timer.SubscribeExpired(func() { fired.Add(1) })

	timer.Start(10 * time.Second)
	timer.Update(0)
	timer.Update(0)
	timer.Update(0)

	assert.Equal(t, int32(1), fired.Load())
	assert.False(t, timer.IsRunning())
}

func TestUpdateClampsNegativeRemaining(t *testing.T) {
	clk := clockwork.NewFakeClock()
	timer := NewTimer(clk)
	timer.Start(10 * time.Second)
	defer timer.Stop()

	timer.Update(-5 * time.Second)
	assert.Equal(t, time.Duration(0), timer.Remaining())
}

func TestUpdateResyncsBand(t *testing.T) {
	clk := clockwork.NewFakeClock()
	timer := NewTimer(clk)
	timer.Start(10 * time.Second)
	defer timer.Stop()

	timer.Update(4 * time.Second)
	assert.Equal(t, BandWarning, timer.CurrentBand())

	timer.Update(2 * time.Second)
	assert.Equal(t, BandUrgent, timer.CurrentBand())
}

func TestStopDoesNotFireExpiry(t *testing.T) {
	clk := clockwork.NewFakeClock()
	timer := NewTimer(clk)

	var fired atomic.Int32
	timer.SubscribeExpired(func() { fired.Add(1) })

	timer.Start(time.Second)
	timer.Stop()
	timer.Stop()

	clk.Advance(5 * time.Second)
	assert.Equal(t, int32(0), fired.Load())
	assert.False(t, timer.IsRunning())
}

func TestUnsubscribeStopsDelivery(t *testing.T) {
	clk := clockwork.NewFakeClock()
	timer := NewTimer(clk)
	defer timer.Stop()

	var calls atomic.Int32
	unsub := timer.SubscribeUpdate(func(remaining, duration time.Duration, band Band) {
		calls.Add(1)
	})

	timer.Start(10 * time.Second)
	require.Equal(t, int32(1), calls.Load())

	unsub()
	timer.Update(5 * time.Second)
	assert.Equal(t, int32(1), calls.Load())
}

func TestPanickingSubscriberDoesNotBlockExpiry(t *testing.T) {
	clk := clockwork.NewFakeClock()
	timer := NewTimer(clk)

	timer.SubscribeUpdate(func(remaining, duration time.Duration, band Band) {
		panic("renderer went away")
	})
	var fired atomic.Int32
	timer.SubscribeExpired(func() { fired.Add(1) })

	timer.Start(10 * time.Second)
	timer.Update(0)

	assert.Equal(t, int32(1), fired.Load())
}

func TestDurationFromMillis(t *testing.T) {
	assert.Equal(t, time.Duration(0), DurationFromMillis(math.NaN()))
	assert.Equal(t, time.Duration(0), DurationFromMillis(math.Inf(1)))
	assert.Equal(t, time.Duration(0), DurationFromMillis(-1000))
	assert.Equal(t, 1500*time.Millisecond, DurationFromMillis(1500))
}

func TestNegativeStartClampsToZero(t *testing.T) {
	clk := clockwork.NewFakeClock()
	timer := NewTimer(clk)
	defer timer.Stop()

	timer.Start(-3 * time.Second)
	assert.Equal(t, time.Duration(0), timer.Remaining())
	assert.Equal(t, time.Duration(0), timer.Duration())
}

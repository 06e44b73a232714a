package watchdog

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"aqmonitor-go/services/config"
	"aqmonitor-go/types"
	"aqmonitor-go/x/timex"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var t0 = time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)

type countingResetter struct {
	mu      sync.Mutex
	n       int
	reasons []string
}

func (r *countingResetter) Reset(reason string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.n++
	r.reasons = append(r.reasons, reason)
}

func (r *countingResetter) count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.n
}

type countingFeeder struct{ n atomic.Int32 }

func (f *countingFeeder) Feed() { f.n.Add(1) }

func cfg() config.WatchdogConfig {
	return config.WatchdogConfig{Timeout: 15 * time.Minute, CheckInterval: time.Second}
}

func TestCheckFindsSilentUnit(t *testing.T) {
	clk := timex.NewFake(t0)
	w := New(cfg(), clk, &countingResetter{}, types.AllUnits...)

	_, overdue := w.Check(t0.Add(15 * time.Minute))
	assert.False(t, overdue, "exactly at the timeout is not overdue")

	clk.Advance(10 * time.Minute)
	for _, u := range types.AllUnits {
		if u != types.UnitPower {
			w.Kick(u)
		}
	}
	u, overdue := w.Check(t0.Add(15*time.Minute + time.Second))
	assert.True(t, overdue)
	assert.Equal(t, types.UnitPower, u)
}

func TestKickUnknownUnitIgnored(t *testing.T) {
	w := New(cfg(), timex.NewFake(t0), &countingResetter{}, types.UnitSensor)
	assert.NotPanics(t, func() { w.Kick(types.UnitDisplay) })
}

func TestKicksRecordedRelativeToStart(t *testing.T) {
	clk := timex.NewFake(t0)
	w := New(cfg(), clk, &countingResetter{}, types.UnitSensor)
	assert.Zero(t, w.last[types.UnitSensor].Load())

	clk.Advance(10 * time.Minute)
	w.Kick(types.UnitSensor)
	assert.Equal(t, int64(10*time.Minute), w.last[types.UnitSensor].Load())

	_, overdue := w.Check(t0.Add(25 * time.Minute))
	assert.False(t, overdue)
	_, overdue = w.Check(t0.Add(25*time.Minute + time.Second))
	assert.True(t, overdue)
}

func TestRealClockNotOverdueAfterKick(t *testing.T) {
	w := New(cfg(), timex.Real, &countingResetter{}, types.AllUnits...)
	for _, u := range types.AllUnits {
		w.Kick(u)
	}
	_, overdue := w.Check(time.Now())
	assert.False(t, overdue)
	u, overdue := w.Check(time.Now().Add(16 * time.Minute))
	assert.True(t, overdue)
	assert.Equal(t, types.AllUnits[0], u)
}

func TestRunResetsExactlyOnce(t *testing.T) {
	clk := timex.NewFake(t0)
	rst := &countingResetter{}
	feed := &countingFeeder{}
	w := New(cfg(), clk, rst, types.AllUnits...).WithFeeder(feed)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	w.Start(ctx)
	require.Eventually(t, func() bool { return clk.Waiters() == 1 }, time.Second, time.Millisecond)

	// Everyone but the sensor keeps beating.
	beat := func() {
		for _, u := range []types.Unit{types.UnitPower, types.UnitOrchestrator, types.UnitDisplay} {
			w.Kick(u)
		}
	}
	for i := 0; i < 14; i++ {
		clk.Advance(time.Minute)
		beat()
	}
	time.Sleep(10 * time.Millisecond)
	assert.Zero(t, rst.count())

	clk.Advance(2 * time.Minute)
	require.Eventually(t, func() bool { return rst.count() == 1 }, time.Second, time.Millisecond)
	assert.True(t, w.Fired())
	assert.Contains(t, rst.reasons[0], "sensor")

	// The loop has stopped: no second reset and no more feeding.
	require.Eventually(t, func() bool { return clk.Waiters() == 0 }, time.Second, time.Millisecond)
	fed := feed.n.Load()
	clk.Advance(time.Hour)
	time.Sleep(10 * time.Millisecond)
	assert.Equal(t, 1, rst.count())
	assert.Equal(t, fed, feed.n.Load())
}

func TestRunNoResetWhileAllBeat(t *testing.T) {
	clk := timex.NewFake(t0)
	rst := &countingResetter{}
	w := New(cfg(), clk, rst, types.AllUnits...)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	w.Start(ctx)
	require.Eventually(t, func() bool { return clk.Waiters() == 1 }, time.Second, time.Millisecond)

	for i := 0; i < 60; i++ {
		for _, u := range types.AllUnits {
			w.Kick(u)
		}
		clk.Advance(time.Minute)
	}
	time.Sleep(10 * time.Millisecond)
	assert.Zero(t, rst.count())
	assert.False(t, w.Fired())
}

func TestForceResetOnce(t *testing.T) {
	rst := &countingResetter{}
	w := New(cfg(), timex.NewFake(t0), rst, types.AllUnits...)
	w.ForceReset("init failed")
	w.ForceReset("again")
	assert.Equal(t, 1, rst.count())
	assert.Equal(t, []string{"init failed"}, rst.reasons)
}

package heartbeat

import (
	"context"
	"testing"
	"time"

	"aqmonitor-go/bus"
	"aqmonitor-go/services/config"
	"aqmonitor-go/state"
	"aqmonitor-go/types"
	"aqmonitor-go/x/timex"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var t0 = time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)

func TestLineEmpty(t *testing.T) {
	snap := state.NewStore(t0).Snapshot()
	assert.Equal(t, "[heartbeat] up 5s seq 0 mode readings co2 -- bat --", Line(snap, t0, 5*time.Second))
}

func TestLineWithData(t *testing.T) {
	st := state.NewStore(t0)
	st.ApplyReading(types.SensorReading{ECO2: 612, CapturedAt: t0})
	st.ApplyBattery(types.BatteryStatus{MilliV: 4620, Charging: true, CapturedAt: t0})
	got := Line(st.Snapshot(), t0.Add(30*time.Second), time.Hour)
	assert.Equal(t, "[heartbeat] up 3600s seq 2 mode readings co2 612 age 30s bat 4620mV chg", got)
}

func TestIntervalFollowsConfig(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	clk := timex.NewFake(t0)
	b := bus.NewBus(4)
	cfgConn := b.NewConnection("config")
	cfgConn.Publish(cfgConn.NewMessage(topicConfigHeartbeat, config.HeartbeatConfig{Interval: time.Minute}, true))

	lines := make(chan string, 16)
	s := New(state.NewStore(t0), clk)
	s.emit = func(l string) { lines <- l }
	s.Start(ctx, b.NewConnection("heartbeat"))

	require.Eventually(t, func() bool { return clk.Waiters() == 1 }, time.Second, time.Millisecond)
	clk.Advance(time.Minute)
	select {
	case l := <-lines:
		assert.Contains(t, l, "up 60s")
	case <-time.After(time.Second):
		t.Fatal("no heartbeat line")
	}

	cfgConn.Publish(cfgConn.NewMessage(topicConfigHeartbeat, config.HeartbeatConfig{}, true))
	require.Eventually(t, func() bool { return clk.Waiters() == 0 }, time.Second, time.Millisecond)
	clk.Advance(time.Hour)
	assert.Never(t, func() bool { return len(lines) > 0 }, 50*time.Millisecond, 5*time.Millisecond)
}

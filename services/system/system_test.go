package system

import (
	"context"
	"sync"
	"testing"
	"time"

	"aqmonitor-go/errcode"
	"aqmonitor-go/services/config"
	"aqmonitor-go/state"
	"aqmonitor-go/types"
	"aqmonitor-go/x/timex"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var t0 = time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)

type fakeSensor struct{}

func (fakeSensor) ReadAirQuality(context.Context) (types.AirSample, error) {
	return types.AirSample{ECO2: 640, TVOC: 90, AQI: types.AQIGood}, nil
}

func (fakeSensor) ReadTempHumidity(context.Context) (types.ClimateSample, error) {
	return types.ClimateSample{DeciCelsius: 215, DeciRelHum: 480}, nil
}

type fakePower struct{ mv int32 }

func (p fakePower) SampleVSYS(context.Context) (int32, error) { return p.mv, nil }

type fakeSink struct {
	mu    sync.Mutex
	snaps []state.Snapshot
	block bool
}

func (s *fakeSink) Render(ctx context.Context, snap state.Snapshot) error {
	if s.block {
		<-ctx.Done()
		return ctx.Err()
	}
	s.mu.Lock()
	s.snaps = append(s.snaps, snap)
	s.mu.Unlock()
	return nil
}

func (s *fakeSink) last() (state.Snapshot, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.snaps) == 0 {
		return state.Snapshot{}, false
	}
	return s.snaps[len(s.snaps)-1], true
}

type fakeResetter struct {
	mu      sync.Mutex
	reasons []string
}

func (r *fakeResetter) Reset(reason string) {
	r.mu.Lock()
	r.reasons = append(r.reasons, reason)
	r.mu.Unlock()
}

func (r *fakeResetter) count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.reasons)
}

func testConfig() config.Config {
	cfg := config.Default()
	cfg.Board = "test"
	cfg.Sensor.BurstSpacing = 0
	cfg.Power.BurstSpacing = 0
	cfg.Heartbeat.Interval = 0
	return cfg
}

func TestStartRunsPipeline(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	clk := timex.NewFake(t0)
	sink := &fakeSink{}
	rst := &fakeResetter{}
	sys, err := Start(ctx, testConfig(), Devices{
		Sensor:   fakeSensor{},
		Power:    fakePower{mv: 3900},
		Display:  sink,
		Resetter: rst,
	}, clk)
	require.NoError(t, err)

	require.Eventually(t, func() bool {
		s := sys.Store.Snapshot()
		return s.Reading != nil && s.Battery != nil
	}, time.Second, time.Millisecond)

	snap := sys.Store.Snapshot()
	assert.Equal(t, uint16(640), snap.Reading.ECO2)
	assert.Equal(t, int32(3900), snap.Battery.MilliV)
	assert.False(t, snap.Battery.Charging)
	assert.Equal(t, []uint16{640}, snap.History)

	require.Eventually(t, func() bool {
		s, ok := sink.last()
		return ok && s.Reading != nil && s.Battery != nil
	}, time.Second, time.Millisecond)
	assert.Zero(t, rst.count())
	assert.False(t, sys.Watchdog.Fired())
}

func TestStartRejectsInvalidConfig(t *testing.T) {
	cfg := testConfig()
	cfg.Power.ChargeOffMilliV = cfg.Power.ChargeOnMilliV

	_, err := Start(context.Background(), cfg, Devices{
		Sensor: fakeSensor{}, Power: fakePower{}, Display: &fakeSink{}, Resetter: &fakeResetter{},
	}, timex.NewFake(t0))
	require.Error(t, err)
	assert.Equal(t, errcode.InitFailed, errcode.Of(err))
}

func TestStartRejectsMissingDevice(t *testing.T) {
	_, err := Start(context.Background(), testConfig(), Devices{Sensor: fakeSensor{}}, timex.NewFake(t0))
	require.Error(t, err)
	assert.Equal(t, errcode.InitFailed, errcode.Of(err))
}

func TestStalledDisplayResetsDevice(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	clk := timex.NewFake(t0)
	rst := &fakeResetter{}
	sys, err := Start(ctx, testConfig(), Devices{
		Sensor:   fakeSensor{},
		Power:    fakePower{mv: 3900},
		Display:  &fakeSink{block: true},
		Resetter: rst,
	}, clk)
	require.NoError(t, err)

	// orchestrator, sensor, power and watchdog tickers
	require.Eventually(t, func() bool { return clk.Waiters() == 4 }, time.Second, time.Millisecond)
	require.Eventually(t, func() bool { return sys.Store.Snapshot().Battery != nil }, time.Second, time.Millisecond)
	clk.Advance(16 * time.Minute)

	require.Eventually(t, func() bool { return rst.count() == 1 }, time.Second, time.Millisecond)
	assert.True(t, sys.Watchdog.Fired())
}

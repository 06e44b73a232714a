package oled

import (
	"context"
	"image/color"
	"testing"
	"time"

	"aqmonitor-go/state"
	"aqmonitor-go/types"
	"aqmonitor-go/x/timex"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var t0 = time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)

type fakePanel struct {
	w, h    int16
	px      map[[2]int16]bool
	flushes int
	clears  int
}

func newPanel() *fakePanel {
	return &fakePanel{w: 128, h: 64, px: map[[2]int16]bool{}}
}

func (p *fakePanel) Size() (int16, int16) { return p.w, p.h }

func (p *fakePanel) SetPixel(x, y int16, c color.RGBA) {
	if x < 0 || y < 0 || x >= p.w || y >= p.h {
		return
	}
	p.px[[2]int16{x, y}] = c.R != 0
}

func (p *fakePanel) Display() error { p.flushes++; return nil }
func (p *fakePanel) ClearBuffer()   { p.clears++; p.px = map[[2]int16]bool{} }

func (p *fakePanel) lit(x0, y0, x1, y1 int16) int {
	n := 0
	for k, v := range p.px {
		if v && k[0] >= x0 && k[0] < x1 && k[1] >= y0 && k[1] < y1 {
			n++
		}
	}
	return n
}

func reading(eco2 uint16) *types.SensorReading {
	return &types.SensorReading{
		ECO2: eco2, TVOC: 120, AQI: types.AQIGood, Validity: types.ValidityNormal,
		DeciCelsius: 215, DeciRelHum: 480, CapturedAt: t0,
	}
}

func TestReadingLinesAbsent(t *testing.T) {
	lines := readingLines(state.Snapshot{}, t0, 5*time.Minute)
	assert.Equal(t, []string{"CO2 -- ppm", "TVOC -- ppb", "AQI --", "T -- RH --"}, lines)
}

func TestReadingLinesFresh(t *testing.T) {
	snap := state.Snapshot{Reading: reading(418)}
	lines := readingLines(snap, t0.Add(time.Minute), 5*time.Minute)
	assert.Equal(t, []string{"CO2 418 ppm", "TVOC 120 ppb", "AQI 2 Good", "T 21.5C RH 48.0%"}, lines)
}

func TestReadingLinesStaleShowsAge(t *testing.T) {
	snap := state.Snapshot{Reading: reading(418)}
	lines := readingLines(snap, t0.Add(12*time.Minute), 5*time.Minute)
	require.Len(t, lines, 5)
	assert.Equal(t, "updated 12m ago", lines[4])

	lines = readingLines(snap, t0.Add(3*time.Hour), 5*time.Minute)
	assert.Equal(t, "updated 3h ago", lines[4])
}

func TestReadingLinesWarmingUp(t *testing.T) {
	r := reading(418)
	r.Validity = types.ValidityInitialStartup
	lines := readingLines(state.Snapshot{Reading: r}, t0, 5*time.Minute)
	assert.Equal(t, "AQI warming up", lines[2])
}

func TestHistoryTitleAndBatteryLabel(t *testing.T) {
	assert.Equal(t, "CO2 history --", historyTitle(state.Snapshot{}))
	assert.Equal(t, "CO2 history 612", historyTitle(state.Snapshot{History: []uint16{400, 612}}))

	assert.Equal(t, "--", batteryLabel(nil, false))
	assert.Equal(t, "--", batteryLabel(nil, true))
	assert.Equal(t, "CHG", batteryLabel(&types.BatteryStatus{Charging: true}, false))
	assert.Equal(t, "79%", batteryLabel(&types.BatteryStatus{Percent: 79}, false))
	assert.Equal(t, "79%?", batteryLabel(&types.BatteryStatus{Percent: 79}, true))
}

func TestRenderFlushesInsideExclusive(t *testing.T) {
	p := newPanel()
	held := false
	exclusive := func(fn func() error) error {
		held = true
		defer func() { held = false }()
		assert.Equal(t, 0, p.flushes)
		return fn()
	}
	r := New(p, timex.NewFake(t0), 5*time.Minute, exclusive)

	require.NoError(t, r.Render(context.Background(), state.Snapshot{Reading: reading(418)}))
	assert.Equal(t, 1, p.flushes)
	assert.Equal(t, 1, p.clears)
	assert.False(t, held)
	assert.NotZero(t, p.lit(0, 0, 100, 40), "text drawn")
}

func TestRenderHistoryBars(t *testing.T) {
	p := newPanel()
	r := New(p, timex.NewFake(t0), 5*time.Minute, nil)

	snap := state.Snapshot{Mode: types.ModeHistory, History: []uint16{400, 2000}}
	require.NoError(t, r.Render(context.Background(), snap))

	slot := p.w / state.HistoryCapacity
	low := p.lit(0, 10, slot, p.h)
	high := p.lit(slot, 10, 2*slot, p.h)
	assert.Equal(t, int(slot-2), low, "minimum bar is one pixel high")
	assert.Greater(t, high, low*20)
	assert.Zero(t, p.lit(2*slot, 10, p.w, p.h))
}

func TestRenderBatteryBars(t *testing.T) {
	count := func(b *types.BatteryStatus) int {
		p := newPanel()
		r := New(p, timex.NewFake(t0), 0, nil)
		require.NoError(t, r.Render(context.Background(), state.Snapshot{Battery: b}))
		x := p.w - iconW - 1
		return p.lit(x+1, 1, x+iconW-2, iconH-1)
	}
	assert.Zero(t, count(nil))
	assert.Zero(t, count(&types.BatteryStatus{Percent: 10}))
	assert.Equal(t, 3*(iconH-4), count(&types.BatteryStatus{Percent: 65}))
	assert.Equal(t, 5*(iconH-4), count(&types.BatteryStatus{Charging: true}))
}

func TestRenderMarksStaleBattery(t *testing.T) {
	clk := timex.NewFake(t0)
	b := &types.BatteryStatus{Percent: 79, CapturedAt: t0}
	x := func(p *fakePanel) int16 { return p.w - iconW - 1 }

	p := newPanel()
	r := New(p, clk, 0, nil).WithBatteryStaleAfter(20 * time.Second)
	require.NoError(t, r.Render(context.Background(), state.Snapshot{Battery: b}))
	fresh := p.lit(x(p)+1, 1, x(p)+iconW-2, iconH-1)
	assert.Equal(t, 4*(iconH-4), fresh)
	freshLabel := p.lit(0, 0, x(p), iconH)

	clk.Advance(2 * time.Hour)
	require.NoError(t, r.Render(context.Background(), state.Snapshot{Battery: b}))
	assert.Zero(t, p.lit(x(p)+1, 1, x(p)+iconW-2, iconH-1), "no bars once stale")
	assert.Greater(t, p.lit(0, 0, x(p), iconH), freshLabel, "label gains a marker")
}

func TestRenderHonoursContext(t *testing.T) {
	p := newPanel()
	r := New(p, timex.NewFake(t0), 0, nil)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	assert.ErrorIs(t, r.Render(ctx, state.Snapshot{}), context.Canceled)
	assert.Zero(t, p.flushes)
}

// Package oled renders state snapshots on a small monochrome panel
// (SSD1306 128x64 on the board) with tinyfont.
package oled

import (
	"context"
	"image/color"
	"time"

	"aqmonitor-go/state"
	"aqmonitor-go/types"
	"aqmonitor-go/x/mathx"
	"aqmonitor-go/x/timex"

	"tinygo.org/x/drivers"
	"tinygo.org/x/tinyfont"
)

// Panel is a buffered display: drawing happens in RAM and Display pushes
// the frame out.
type Panel interface {
	drivers.Displayer
	ClearBuffer()
}

// History bars are scaled over this eCO2 range (ppm).
const (
	historyMin = 400
	historyMax = 2000
)

const (
	lineHeight = 8
	iconW      = 13
	iconH      = 7
)

var (
	on   = color.RGBA{R: 255, G: 255, B: 255, A: 255}
	font = &tinyfont.TomThumb
)

type Renderer struct {
	panel        Panel
	clock        timex.Clock
	staleAfter   time.Duration
	batteryStale time.Duration // zero: battery never shown as stale
	exclusive    func(func() error) error
}

// New returns a renderer. exclusive, if set, wraps the frame flush so the
// whole transfer holds the shared bus (i2cshare.Handle.Exclusive).
func New(panel Panel, clock timex.Clock, staleAfter time.Duration, exclusive func(func() error) error) *Renderer {
	return &Renderer{panel: panel, clock: clock, staleAfter: staleAfter, exclusive: exclusive}
}

// WithBatteryStaleAfter marks the battery as stale once its status is
// older than d.
func (r *Renderer) WithBatteryStaleAfter(d time.Duration) *Renderer {
	r.batteryStale = d
	return r
}

func (r *Renderer) Render(ctx context.Context, snap state.Snapshot) error {
	r.panel.ClearBuffer()
	stale := r.batteryStale > 0 && snap.BatteryAge(r.clock.Now()) > r.batteryStale
	r.drawBattery(snap.Battery, stale)
	switch snap.Mode {
	case types.ModeHistory:
		r.drawHistory(snap)
	default:
		r.drawReadings(snap)
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	if r.exclusive != nil {
		return r.exclusive(r.panel.Display)
	}
	return r.panel.Display()
}

func (r *Renderer) text(x, y int16, s string) {
	tinyfont.WriteLine(r.panel, font, x, y, s, on)
}

func (r *Renderer) drawReadings(snap state.Snapshot) {
	y := int16(lineHeight - 2)
	for _, s := range readingLines(snap, r.clock.Now(), r.staleAfter) {
		r.text(0, y, s)
		y += lineHeight
	}
}

func (r *Renderer) drawHistory(snap state.Snapshot) {
	w, h := r.panel.Size()
	r.text(0, lineHeight-2, historyTitle(snap))

	top := int16(lineHeight + 2)
	areaH := int32(h - top)
	slot := w / state.HistoryCapacity
	for i, v := range snap.History {
		bh := int16(mathx.MapI32(int32(v), historyMin, historyMax, 1, areaH))
		r.fill(int16(i)*slot+1, h-bh, slot-2, bh)
	}
}

// drawBattery puts the icon in the top-right corner with its label to the
// left of it. A stale status draws an empty icon.
func (r *Renderer) drawBattery(b *types.BatteryStatus, stale bool) {
	w, _ := r.panel.Size()
	x := w - iconW - 1
	r.outline(x, 0, iconW-1, iconH)
	r.fill(x+iconW-1, 2, 1, iconH-4) // terminal

	label := batteryLabel(b, stale)
	_, lw := tinyfont.LineWidth(font, label)
	r.text(x-int16(lw)-1, iconH-1, label)

	if b == nil || stale {
		return
	}
	bars := b.Level().Bars()
	if b.Charging {
		bars = 5
	}
	for i := 0; i < bars; i++ {
		r.fill(x+2+int16(i)*2, 2, 1, iconH-4)
	}
}

func (r *Renderer) fill(x, y, w, h int16) {
	for i := x; i < x+w; i++ {
		for j := y; j < y+h; j++ {
			r.panel.SetPixel(i, j, on)
		}
	}
}

func (r *Renderer) outline(x, y, w, h int16) {
	for i := x; i < x+w; i++ {
		r.panel.SetPixel(i, y, on)
		r.panel.SetPixel(i, y+h-1, on)
	}
	for j := y; j < y+h; j++ {
		r.panel.SetPixel(x, j, on)
		r.panel.SetPixel(x+w-1, j, on)
	}
}

// Package watchdog supervises the units. Each unit kicks it at least once
// per cycle; if any unit stays silent for longer than the timeout the
// device is reset. The check loop runs on its own ticker and never waits
// on a unit.
package watchdog

import (
	"context"
	"sync/atomic"
	"time"

	"aqmonitor-go/services/config"
	"aqmonitor-go/types"
	"aqmonitor-go/x/timex"
)

// Resetter performs the full device reset. On hardware it does not return.
type Resetter interface {
	Reset(reason string)
}

// Feeder is a hardware watchdog that must be fed periodically. Once the
// supervisor stops feeding it the MCU resets by itself.
type Feeder interface {
	Feed()
}

type Watchdog struct {
	cfg    config.WatchdogConfig
	clock  timex.Clock
	reset  Resetter
	feeder Feeder

	start time.Time
	units []types.Unit
	last  map[types.Unit]*atomic.Int64 // nanos since start; map itself is read-only after New
	fired atomic.Bool
}

// New supervises units, treating construction time as their first kick.
func New(cfg config.WatchdogConfig, clock timex.Clock, reset Resetter, units ...types.Unit) *Watchdog {
	w := &Watchdog{
		cfg:   cfg,
		clock: clock,
		reset: reset,
		start: clock.Now(),
		units: units,
		last:  make(map[types.Unit]*atomic.Int64, len(units)),
	}
	for _, u := range units {
		w.last[u] = new(atomic.Int64)
	}
	return w
}

// WithFeeder attaches a hardware watchdog fed on every check tick.
func (w *Watchdog) WithFeeder(f Feeder) *Watchdog {
	w.feeder = f
	return w
}

// Kick records a heartbeat from u. It never blocks.
func (w *Watchdog) Kick(u types.Unit) {
	if v, ok := w.last[u]; ok {
		v.Store(int64(w.since(w.clock.Now())))
	}
}

// Beat returns a heartbeat function bound to u.
func (w *Watchdog) Beat(u types.Unit) func() {
	return func() { w.Kick(u) }
}

// Check returns the first unit, in registration order, whose last kick is
// older than the timeout at now.
func (w *Watchdog) Check(now time.Time) (types.Unit, bool) {
	for _, u := range w.units {
		silent := w.since(now) - time.Duration(w.last[u].Load())
		if silent > w.cfg.Timeout {
			return u, true
		}
	}
	return "", false
}

// since is t relative to start; monotonic when both readings carry one.
func (w *Watchdog) since(t time.Time) time.Duration { return t.Sub(w.start) }

// Fired reports whether a reset has been requested.
func (w *Watchdog) Fired() bool { return w.fired.Load() }

// ForceReset resets the device now, e.g. after a failed bring-up.
func (w *Watchdog) ForceReset(reason string) { w.trip(reason) }

func (w *Watchdog) trip(reason string) {
	if !w.fired.CompareAndSwap(false, true) {
		return
	}
	println("[wdt] reset:", reason)
	w.reset.Reset(reason)
}

// Start runs the check loop in its own goroutine.
func (w *Watchdog) Start(ctx context.Context) { go w.Run(ctx) }

// Run checks every CheckInterval until ctx ends or a reset is requested.
// The hardware watchdog is fed only while the loop runs.
func (w *Watchdog) Run(ctx context.Context) {
	tick := w.clock.NewTicker(w.cfg.CheckInterval)
	defer tick.Stop()
	println("[wdt] supervising", len(w.units), "units, timeout", int(w.cfg.Timeout/time.Second), "s")

	for {
		if w.fired.Load() {
			return
		}
		if w.feeder != nil {
			w.feeder.Feed()
		}
		select {
		case <-ctx.Done():
			return
		case <-tick.C():
		}
		if u, overdue := w.Check(w.clock.Now()); overdue {
			w.trip("unit " + string(u) + " silent")
			return
		}
	}
}

// Package orchestrator is the single writer of the system state. It applies
// sensor and battery events in arrival order, switches the display mode on
// its own fixed ticker and signals the display after every change.
package orchestrator

import (
	"context"
	"sync/atomic"
	"time"

	"aqmonitor-go/bus"
	"aqmonitor-go/event"
	"aqmonitor-go/state"
	"aqmonitor-go/types"
	"aqmonitor-go/x/timex"
)

// Phase is the orchestrator's current activity, for diagnostics.
type Phase uint32

const (
	AwaitingEvent Phase = iota
	ApplyingSensorUpdate
	ApplyingBatteryUpdate
	SwitchingMode
)

func (p Phase) String() string {
	switch p {
	case ApplyingSensorUpdate:
		return "applying_sensor"
	case ApplyingBatteryUpdate:
		return "applying_battery"
	case SwitchingMode:
		return "switching_mode"
	}
	return "awaiting_event"
}

type Orchestrator struct {
	store        *state.Store
	conn         *bus.Connection
	clock        timex.Clock
	modeInterval time.Duration
	beat         func()

	phase atomic.Uint32
}

// New returns an orchestrator owning store. Nothing else may call the
// store's mutators.
func New(store *state.Store, conn *bus.Connection, clock timex.Clock, modeInterval time.Duration, beat func()) *Orchestrator {
	if beat == nil {
		beat = func() {}
	}
	return &Orchestrator{store: store, conn: conn, clock: clock, modeInterval: modeInterval, beat: beat}
}

func (o *Orchestrator) Phase() Phase { return Phase(o.phase.Load()) }

func (o *Orchestrator) enter(p Phase) { o.phase.Store(uint32(p)) }

// Start subscribes before returning, so no event published afterwards is
// missed, and runs the loop in its own goroutine.
func (o *Orchestrator) Start(ctx context.Context) {
	sensor := o.conn.Subscribe(event.FilterSensor)
	power := o.conn.Subscribe(event.FilterPower)
	tick := o.clock.NewTicker(o.modeInterval)
	go o.run(ctx, sensor, power, tick)
}

func (o *Orchestrator) run(ctx context.Context, sensor, power *bus.Subscription, tick timex.Ticker) {
	defer func() {
		tick.Stop()
		o.conn.Unsubscribe(sensor)
		o.conn.Unsubscribe(power)
	}()
	println("[orch] started, mode interval", int(o.modeInterval/time.Second), "s")
	o.beat()
	event.SignalRefresh(o.conn, o.store.Seq())

	for {
		o.enter(AwaitingEvent)
		select {
		case <-ctx.Done():
			println("[orch] stopping")
			return
		case m := <-sensor.Channel():
			o.enter(ApplyingSensorUpdate)
			o.applySensor(m)
		case m := <-power.Channel():
			o.enter(ApplyingBatteryUpdate)
			o.applyBattery(m)
		case <-tick.C():
			o.enter(SwitchingMode)
			mode := o.store.SwitchMode(o.clock.Now())
			println("[orch] mode", mode.String())
		}
		o.beat()
		event.SignalRefresh(o.conn, o.store.Seq())
	}
}

func (o *Orchestrator) applySensor(m *bus.Message) {
	switch p := m.Payload.(type) {
	case types.SensorReading:
		o.store.ApplyReading(p)
	case event.Failure:
		o.store.MarkSensorFailed(p.At)
	default:
		println("[orch] unexpected payload on", m.Topic.String())
	}
}

func (o *Orchestrator) applyBattery(m *bus.Message) {
	switch p := m.Payload.(type) {
	case types.BatteryStatus:
		o.store.ApplyBattery(p)
	case event.Failure:
		o.store.MarkBatteryFailed(p.At)
	default:
		println("[orch] unexpected payload on", m.Topic.String())
	}
}

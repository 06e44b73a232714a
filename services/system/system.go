// Package system wires the units together: one bus, one state store, the
// orchestrator as its only writer, the producer units, the display and the
// watchdog supervising all four.
package system

import (
	"context"

	"aqmonitor-go/bus"
	"aqmonitor-go/errcode"
	"aqmonitor-go/services/config"
	"aqmonitor-go/services/display"
	"aqmonitor-go/services/heartbeat"
	"aqmonitor-go/services/orchestrator"
	"aqmonitor-go/services/power"
	"aqmonitor-go/services/sensor"
	"aqmonitor-go/services/watchdog"
	"aqmonitor-go/state"
	"aqmonitor-go/types"
	"aqmonitor-go/x/timex"
)

// Devices are the collaborators the units run against.
type Devices struct {
	Sensor   sensor.Source
	Power    power.Source
	Display  display.Sink
	Resetter watchdog.Resetter
	Feeder   watchdog.Feeder // optional hardware watchdog
}

// System holds the running units.
type System struct {
	Bus          *bus.Bus
	Store        *state.Store
	Watchdog     *watchdog.Watchdog
	Orchestrator *orchestrator.Orchestrator
}

// Start brings up every unit. Any error is an initialisation failure and
// the caller is expected to reset the device.
func Start(ctx context.Context, cfg config.Config, dev Devices, clock timex.Clock) (*System, error) {
	if err := cfg.Validate(); err != nil {
		return nil, errcode.Wrap(errcode.InitFailed, "system.start", err)
	}
	if dev.Sensor == nil || dev.Power == nil || dev.Display == nil || dev.Resetter == nil {
		return nil, &errcode.E{C: errcode.InitFailed, Op: "system.start", Msg: "missing device"}
	}

	b := bus.NewBus(8)
	config.NewConfigService(cfg).Publish(b.NewConnection("config"))

	s := &System{
		Bus:      b,
		Store:    state.NewStore(clock.Now()),
		Watchdog: watchdog.New(cfg.Watchdog, clock, dev.Resetter, types.AllUnits...),
	}
	if dev.Feeder != nil {
		s.Watchdog.WithFeeder(dev.Feeder)
	}
	wd := s.Watchdog

	pm, err := power.New(cfg.Power, dev.Power, b.NewConnection("power"), clock, wd.Beat(types.UnitPower))
	if err != nil {
		return nil, errcode.Wrap(errcode.InitFailed, "system.start", err)
	}

	// Consumers subscribe before producers start.
	s.Orchestrator = orchestrator.New(s.Store, b.NewConnection("orch"), clock, cfg.Display.ModeInterval, wd.Beat(types.UnitOrchestrator))
	s.Orchestrator.Start(ctx)
	display.New(s.Store, dev.Display, b.NewConnection("display"), wd.Beat(types.UnitDisplay)).Start(ctx)

	sensor.New(cfg.Sensor, dev.Sensor, b.NewConnection("sensor"), clock, wd.Beat(types.UnitSensor)).Start(ctx)
	pm.Start(ctx)

	heartbeat.New(s.Store, clock).Start(ctx, b.NewConnection("heartbeat"))
	wd.Start(ctx)

	println("[main] system started on board", cfg.Board)
	return s, nil
}

// Package power runs the battery monitor unit. Every interval it samples
// VSYS, classifies charging with hysteresis and publishes a BatteryStatus.
// While charging the raw sample is published; on battery the value is a
// moving median, seeded from a short burst whenever the device starts
// running on battery.
package power

import (
	"context"
	"time"

	"aqmonitor-go/bus"
	"aqmonitor-go/errcode"
	"aqmonitor-go/event"
	"aqmonitor-go/services/config"
	"aqmonitor-go/types"
	"aqmonitor-go/x/median"
	"aqmonitor-go/x/timex"
)

type Monitor struct {
	cfg   config.PowerConfig
	src   Source
	conn  *bus.Connection
	clock timex.Clock
	beat  func()

	cls    *Classifier
	win    *median.Moving[int32]
	seeded bool // win holds on-battery samples of the current discharge
}

func New(cfg config.PowerConfig, src Source, conn *bus.Connection, clock timex.Clock, beat func()) (*Monitor, error) {
	cls, err := NewClassifier(cfg.ChargeOnMilliV, cfg.ChargeOffMilliV)
	if err != nil {
		return nil, err
	}
	if beat == nil {
		beat = func() {}
	}
	return &Monitor{
		cfg:   cfg,
		src:   src,
		conn:  conn,
		clock: clock,
		beat:  beat,
		cls:   cls,
		win:   median.NewMoving[int32](cfg.Window),
	}, nil
}

func (m *Monitor) Start(ctx context.Context) { go m.Run(ctx) }

func (m *Monitor) Run(ctx context.Context) {
	tick := m.clock.NewTicker(m.cfg.Interval)
	defer tick.Stop()
	println("[power] started, interval", int(m.cfg.Interval/time.Millisecond), "ms")

	for {
		m.beat()
		at := m.clock.Now()
		st, err := m.Step(ctx)
		switch {
		case ctx.Err() != nil:
		case err != nil:
			println("[power] sample failed:", err.Error())
			_ = event.PublishFailure(ctx, m.conn, event.Failure{Unit: types.UnitPower, At: at, Code: errcode.MapDriverErr(err)})
		default:
			_ = event.PublishBattery(ctx, m.conn, st)
		}
		select {
		case <-ctx.Done():
			println("[power] stopping")
			return
		case <-tick.C():
		}
	}
}

// Step takes one sample and returns the status to publish.
func (m *Monitor) Step(ctx context.Context) (types.BatteryStatus, error) {
	raw, err := m.src.SampleVSYS(ctx)
	if err != nil {
		return types.BatteryStatus{}, err
	}
	charging, changed := m.cls.Update(raw)
	if changed {
		if charging {
			println("[power] charging,", raw, "mV")
		} else {
			println("[power] on battery,", raw, "mV")
		}
	}

	var mv int32
	switch {
	case charging:
		m.seeded = false
		mv = raw
	case !m.seeded:
		mv, err = m.seed(ctx, raw)
		if err != nil {
			return types.BatteryStatus{}, err
		}
	default:
		mv = m.win.Add(raw)
	}

	return types.BatteryStatus{
		MilliV:     mv,
		Percent:    Percent(mv, m.cfg.EmptyMilliV, m.cfg.FullMilliV),
		Charging:   charging,
		CapturedAt: m.clock.Now(),
	}, nil
}

// seed fills the window with a burst starting at first and returns the
// burst median. Failed samples are skipped, up to one extra attempt per
// window slot.
func (m *Monitor) seed(ctx context.Context, first int32) (int32, error) {
	burst := make([]int32, 1, m.cfg.Window)
	burst[0] = first
	for tries := 0; len(burst) < m.cfg.Window && tries < 2*m.cfg.Window; tries++ {
		if !timex.Sleep(ctx, m.clock, m.cfg.BurstSpacing) {
			return 0, ctx.Err()
		}
		v, err := m.src.SampleVSYS(ctx)
		if err != nil {
			continue
		}
		burst = append(burst, v)
	}
	m.win.Reset()
	for _, v := range burst {
		m.win.Add(v)
	}
	m.seeded = true
	mv, _ := median.Of(burst)
	return mv, nil
}

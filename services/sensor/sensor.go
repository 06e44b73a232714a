// Package sensor runs the air-quality acquisition unit: on every interval it
// wakes the gas sensor, waits out its warm-up, reads temperature/humidity,
// takes a short burst of air-quality samples and publishes their median.
package sensor

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

// Service is the sensor acquisition unit.
type Service struct {
	cfg   config.SensorConfig
	src   Source
	conn  *bus.Connection
	clock timex.Clock
	beat  func()
	cal   *Calibrator // nil when calibration is off
}

// New returns a unit reading src. beat is called at least once per cycle
// and while waiting on warm-up; it must not block.
func New(cfg config.SensorConfig, src Source, conn *bus.Connection, clock timex.Clock, beat func()) *Service {
	s := &Service{cfg: cfg, src: src, conn: conn, clock: clock, beat: beat}
	if s.beat == nil {
		s.beat = func() {}
	}
	if cfg.Calibrate {
		s.cal = NewCalibrator()
	}
	return s
}

// Start runs the unit in its own goroutine.
func (s *Service) Start(ctx context.Context) { go s.Run(ctx) }

// Run performs one cycle immediately and then one per interval until ctx ends.
func (s *Service) Run(ctx context.Context) {
	tick := s.clock.NewTicker(s.cfg.Interval)
	defer tick.Stop()
	println("[sensor] started, interval", int(s.cfg.Interval/time.Second), "s")

	for {
		s.beat()
		s.runCycle(ctx)
		s.beat()
		select {
		case <-ctx.Done():
			println("[sensor] stopping")
			return
		case <-tick.C():
		}
	}
}

func (s *Service) runCycle(ctx context.Context) {
	at := s.clock.Now()
	r, err := s.Cycle(ctx)
	if ctx.Err() != nil {
		return
	}
	if err != nil {
		code := errcode.MapDriverErr(err)
		println("[sensor] cycle failed:", err.Error())
		_ = event.PublishFailure(ctx, s.conn, event.Failure{Unit: types.UnitSensor, At: at, Code: code})
		return
	}
	println("[sensor] eco2", r.ECO2, "tvoc", r.TVOC, "aqi", uint8(r.AQI), "t", r.DeciCelsius, "rh", r.DeciRelHum, r.Validity.String())
	_ = event.PublishReading(ctx, s.conn, r)
}

// Cycle performs one acquisition and returns the filtered reading. A burst
// with some failed samples is filtered over the samples that succeeded; a
// burst with none fails with NoSamples.
func (s *Service) Cycle(ctx context.Context) (types.SensorReading, error) {
	var r types.SensorReading

	if sl, ok := s.src.(Sleeper); ok {
		if err := sl.Wake(ctx); err != nil {
			return r, errcode.Wrap(errcode.MapDriverErr(err), "sensor.wake", err)
		}
		defer func() {
			if err := sl.Sleep(ctx); err != nil {
				println("[sensor] sleep failed:", err.Error())
			}
		}()
		s.awaitWarm(ctx)
	}

	cl, err := s.src.ReadTempHumidity(ctx)
	if err != nil {
		return r, errcode.Wrap(errcode.MapDriverErr(err), "sensor.climate", err)
	}
	if c, ok := s.src.(Compensator); ok {
		if err := c.Compensate(ctx, cl.DeciCelsius, cl.DeciRelHum); err != nil {
			println("[sensor] compensation not applied:", err.Error())
		}
	}

	n := s.cfg.BurstSize
	eco2 := make([]uint16, 0, n)
	tvoc := make([]uint16, 0, n)
	aqi := make([]types.AQI, 0, n)
	for i := 0; i < n; i++ {
		if i > 0 && !timex.Sleep(ctx, s.clock, s.cfg.BurstSpacing) {
			return r, ctx.Err()
		}
		a, err := s.src.ReadAirQuality(ctx)
		if err != nil {
			println("[sensor] sample", i, "failed:", err.Error())
			continue
		}
		eco2 = append(eco2, a.ECO2)
		tvoc = append(tvoc, a.TVOC)
		aqi = append(aqi, a.AQI)
		r.Validity = a.Validity
	}

	var ok bool
	if r.ECO2, ok = median.Of(eco2); !ok {
		return r, &errcode.E{C: errcode.NoSamples, Op: "sensor.burst"}
	}
	r.TVOC, _ = median.Of(tvoc)
	r.AQI, _ = median.Of(aqi)

	r.DeciCelsius = cl.DeciCelsius
	r.RawRelHum = cl.DeciRelHum
	r.DeciRelHum = cl.DeciRelHum
	if s.cal != nil {
		s.cal.Add(cl.DeciCelsius, cl.DeciRelHum)
		r.DeciRelHum = s.cal.Apply(cl.DeciRelHum)
	}
	r.CapturedAt = s.clock.Now()
	return r, nil
}

// awaitWarm polls until the gas sensor leaves warm-up or WarmupTimeout
// passes. Read errors end the wait; the burst deals with them. Initial
// start-up readings are accepted and the reading carries the validity so
// the display can flag it.
func (s *Service) awaitWarm(ctx context.Context) {
	poll := s.cfg.BurstSpacing
	if poll <= 0 {
		poll = time.Second
	}
	deadline := s.clock.Now().Add(s.cfg.WarmupTimeout)
	for {
		a, err := s.src.ReadAirQuality(ctx)
		if err != nil || a.Validity != types.ValidityWarmup {
			return
		}
		if !s.clock.Now().Before(deadline) {
			println("[sensor] warm-up timeout, reading anyway")
			return
		}
		s.beat()
		if !timex.Sleep(ctx, s.clock, poll) {
			return
		}
	}
}

// Package platform binds the units to the board: one I²C bus carrying the
// gas sensor, the climate sensor and the OLED, an ADC channel on VSYS and
// the reset path. Board specifics live behind build tags.
package platform

import (
	"aqmonitor-go/drivers/aht2x"
	"aqmonitor-go/drivers/ens160"
	"aqmonitor-go/drivers/i2cshare"
	"aqmonitor-go/errcode"
	"aqmonitor-go/services/config"
	"aqmonitor-go/services/display/oled"
	"aqmonitor-go/services/power"
	"aqmonitor-go/services/sensor"
	"aqmonitor-go/services/system"
	"aqmonitor-go/services/watchdog"
	"aqmonitor-go/x/timex"

	"tinygo.org/x/drivers"
)

// peripherals are the raw resources a board provides.
type peripherals struct {
	i2c   drivers.I2C
	vsys  power.ADC
	reset watchdog.Resetter
	feed  watchdog.Feeder // nil when there is no hardware watchdog

	// panel configures the display on its bus handle and returns it
	// cleared.
	panel func(bus drivers.I2C, cfg config.DisplayConfig) (oled.Panel, error)
}

// Battery status older than this many power intervals shows as stale.
const batteryStaleIntervals = 3

// devices builds the collaborators over p. Each driver gets its own handle
// on the shared bus; the OLED flush holds the bus for the whole frame.
func devices(p peripherals, cfg config.Config, clock timex.Clock) (system.Devices, error) {
	shared := i2cshare.New(p.i2c)

	src := &sensor.DeviceSource{
		Air:     ens160.New(shared.Handle(), ens160.Config{Clock: clock}),
		Climate: aht2x.New(shared.Handle(), aht2x.Config{CheckCRC: true, Clock: clock}),
	}
	if err := src.Configure(); err != nil {
		return system.Devices{}, errcode.Wrap(errcode.InitFailed, "platform.sensors", err)
	}

	// Nothing else is on the bus yet.
	oh := shared.Handle()
	panel, err := p.panel(oh, cfg.Display)
	if err != nil {
		return system.Devices{}, errcode.Wrap(errcode.InitFailed, "platform.display", err)
	}
	staleAfter := cfg.Sensor.Interval + cfg.Sensor.WarmupTimeout
	r := oled.New(panel, clock, staleAfter, oh.Exclusive).
		WithBatteryStaleAfter(batteryStaleIntervals * cfg.Power.Interval)

	return system.Devices{
		Sensor: src,
		Power: power.ADCSource{
			ADC:        p.vsys,
			VRefMilliV: cfg.Power.VRefMilliV,
			Divider:    cfg.Power.Divider,
		},
		Display:  r,
		Resetter: p.reset,
		Feeder:   p.feed,
	}, nil
}

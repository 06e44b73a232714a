//go:build rp2040 || rp2350

package platform

import (
	"machine"
	"time"

	"aqmonitor-go/errcode"
	"aqmonitor-go/services/config"
	"aqmonitor-go/services/display/oled"
	"aqmonitor-go/services/system"
	"aqmonitor-go/x/timex"

	"tinygo.org/x/drivers"
	"tinygo.org/x/drivers/ssd1306"
)

// Board selects the embedded configuration document.
const Board = "pico"

// VSYS/3 is wired to GPIO29 on the Pico.
const vsysPin = machine.ADC3

// rp2040 watchdog counter limit.
const maxHardwareTimeout = 8300 * time.Millisecond

type cpuResetter struct{}

func (cpuResetter) Reset(reason string) { Reset(reason) }

// Reset restarts the MCU. It does not return.
func Reset(reason string) {
	println("[main] cpu reset:", reason)
	time.Sleep(100 * time.Millisecond) // let the log drain
	machine.CPUReset()
}

type hwWatchdog struct{}

func (hwWatchdog) Feed() { machine.Watchdog.Update() }

// Open brings up the board peripherals and the devices on them.
func Open(cfg config.Config, clock timex.Clock) (system.Devices, error) {
	i2c := machine.I2C0
	if err := i2c.Configure(machine.I2CConfig{
		Frequency: cfg.I2C.FrequencyHz,
		SDA:       machine.I2C0_SDA_PIN,
		SCL:       machine.I2C0_SCL_PIN,
	}); err != nil {
		return system.Devices{}, errcode.Wrap(errcode.InitFailed, "platform.i2c", err)
	}

	machine.InitADC()
	adc := machine.ADC{Pin: vsysPin}
	adc.Configure(machine.ADCConfig{})

	p := peripherals{i2c: i2c, vsys: adc, reset: cpuResetter{}, panel: newSSD1306}

	if hw := cfg.Watchdog.HardwareTimeout; hw > 0 {
		if hw > maxHardwareTimeout {
			hw = maxHardwareTimeout
		}
		if err := machine.Watchdog.Configure(machine.WatchdogConfig{TimeoutMillis: uint32(hw / time.Millisecond)}); err != nil {
			return system.Devices{}, errcode.Wrap(errcode.InitFailed, "platform.watchdog", err)
		}
		if err := machine.Watchdog.Start(); err != nil {
			return system.Devices{}, errcode.Wrap(errcode.InitFailed, "platform.watchdog", err)
		}
		p.feed = hwWatchdog{}
	}

	return devices(p, cfg, clock)
}

func newSSD1306(bus drivers.I2C, cfg config.DisplayConfig) (oled.Panel, error) {
	d := ssd1306.NewI2C(bus)
	d.Configure(ssd1306.Config{
		Address: cfg.Address,
		Width:   cfg.Width,
		Height:  cfg.Height,
	})
	d.ClearDisplay()
	return d, nil
}

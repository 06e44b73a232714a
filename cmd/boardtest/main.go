// cmd/boardtest/main.go
//
// Bring-up check: opens the board, then repeatedly exercises every part
// (climate sensor, gas sensor, VSYS ADC, OLED) and prints a pass/fail line
// per check.
package main

import (
	"context"
	"fmt"
	"time"

	"aqmonitor-go/platform"
	"aqmonitor-go/services/config"
	"aqmonitor-go/services/sensor"
	"aqmonitor-go/services/system"
	"aqmonitor-go/state"
	"aqmonitor-go/types"
	"aqmonitor-go/x/conv"
	"aqmonitor-go/x/timex"
)

// ---------- Configuration ----------

const (
	cycleDelay = 2 * time.Second
	checkLimit = 5 * time.Second

	// Cycles: 0 = loop forever
	cyclesToRun = 0
)

// ---------- Checks ----------

type check struct {
	name string
	run  func(ctx context.Context) (string, error)
}

func checks(dev system.Devices, store *state.Store) []check {
	return []check{
		{"aht2x", func(ctx context.Context) (string, error) {
			c, err := dev.Sensor.ReadTempHumidity(ctx)
			if err != nil {
				return "", err
			}
			store.ApplyReading(types.SensorReading{
				DeciCelsius: c.DeciCelsius,
				DeciRelHum:  c.DeciRelHum,
				RawRelHum:   c.DeciRelHum,
				CapturedAt:  time.Now(),
			})
			var t, h [12]byte
			return fmt.Sprintf("%sC %s%%RH", conv.Deci(t[:], int64(c.DeciCelsius)), conv.Deci(h[:], int64(c.DeciRelHum))), nil
		}},
		{"ens160", func(ctx context.Context) (string, error) {
			if sl, ok := dev.Sensor.(sensor.Sleeper); ok {
				if err := sl.Wake(ctx); err != nil {
					return "", err
				}
				defer sl.Sleep(ctx)
			}
			a, err := dev.Sensor.ReadAirQuality(ctx)
			if err != nil {
				return "", err
			}
			return fmt.Sprintf("eco2=%dppm tvoc=%dppb aqi=%d (%s) validity=%s", a.ECO2, a.TVOC, a.AQI, a.AQI, a.Validity), nil
		}},
		{"vsys", func(ctx context.Context) (string, error) {
			mv, err := dev.Power.SampleVSYS(ctx)
			if err != nil {
				return "", err
			}
			return fmt.Sprintf("%dmV", mv), nil
		}},
		{"oled", func(ctx context.Context) (string, error) {
			store.SwitchMode(time.Now())
			if err := dev.Display.Render(ctx, store.Snapshot()); err != nil {
				return "", err
			}
			return "frame sent", nil
		}},
	}
}

// ---------- Main ----------

func main() {
	// Allow USB CDC to enumerate before we print.
	time.Sleep(2 * time.Second)

	cfg, err := config.Load(platform.Board)
	if err != nil {
		println("[boardtest] config:", err.Error())
		return
	}
	// A bring-up run must not trip the hardware watchdog.
	cfg.Watchdog.HardwareTimeout = 0

	dev, err := platform.Open(cfg, timex.Real)
	if err != nil {
		println("[boardtest] FAIL open:", err.Error())
		return
	}
	store := state.NewStore(time.Now())
	cs := checks(dev, store)

	for cycle := 1; cyclesToRun == 0 || cycle <= cyclesToRun; cycle++ {
		println("=== boardtest: cycle", cycle, "===")
		pass := true
		for _, c := range cs {
			ctx, cancel := context.WithTimeout(context.Background(), checkLimit)
			t0 := time.Now()
			detail, err := c.run(ctx)
			cancel()
			ms := time.Since(t0).Milliseconds()
			if err != nil {
				pass = false
				println(fmt.Sprintf("[%s] FAIL after %dms: %v", c.name, ms, err))
				continue
			}
			println(fmt.Sprintf("[%s] ok %dms %s", c.name, ms, detail))
		}
		if pass {
			println("[boardtest] PASS")
		} else {
			println("[boardtest] FAIL")
		}
		time.Sleep(cycleDelay)
	}
}

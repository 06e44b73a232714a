//go:build !rp2040 && !rp2350 && !(linux && i2cdev)

package platform

import (
	"os"
	"time"

	"aqmonitor-go/services/config"
	"aqmonitor-go/services/system"
	"aqmonitor-go/x/timex"
)

// Board selects the embedded configuration document.
const Board = "host"

type exitResetter struct{}

func (exitResetter) Reset(reason string) { Reset(reason) }

// Reset ends the process; a supervisor is expected to restart it.
func Reset(reason string) {
	println("[main] reset:", reason)
	os.Exit(3)
}

// Open runs the real drivers against simulated parts.
func Open(cfg config.Config, clock timex.Clock) (system.Devices, error) {
	start := clock.Now()
	p := peripherals{
		i2c:   newSimBus(start, clock.Now),
		vsys:  &simVSYS{start: start, now: clock.Now, scale: cfg.Power.VRefMilliV * cfg.Power.Divider},
		reset: exitResetter{},
		panel: newFramePanel,
	}
	return devices(p, cfg, clock)
}

// simVSYS walks through a discharge and a charge phase every period.
type simVSYS struct {
	start time.Time
	now   func() time.Time
	scale int32 // full-scale millivolts at the pin divider
	n     uint32
}

const (
	simPeriod    = 10 * time.Minute
	simDischarge = 7 * time.Minute
)

func (s *simVSYS) Get() uint16 {
	t := s.now().Sub(s.start) % simPeriod
	var mv int32 = 4950
	if t < simDischarge {
		mv = 4150 - int32(550*t/simDischarge)
	}
	// ±15 mV of deterministic noise
	s.n = s.n*1664525 + 1013904223
	mv += int32(s.n>>16)%31 - 15
	return uint16(int64(mv) << 16 / int64(s.scale))
}

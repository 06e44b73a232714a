//go:build !rp2040 && !rp2350 && !(linux && i2cdev)

package platform

import (
	"sync"
	"time"

	"aqmonitor-go/drivers/aht2x"
	"aqmonitor-go/drivers/ens160"
	"aqmonitor-go/errcode"
	"aqmonitor-go/x/mathx"
)

var errNoDevice = &errcode.E{C: errcode.BusError, Op: "sim.tx", Msg: "nack"}

// simBus answers on the ENS160, AHT2x and SSD1306 addresses with
// plausible register behaviour.
type simBus struct {
	mu    sync.Mutex
	start time.Time
	now   func() time.Time

	ens    [256]byte
	wokeAt time.Time
	eco2   int32
	tvoc   int32

	aht [7]byte
	rng uint32

	frames int
	frame  []byte // last OLED data write
}

const (
	simRegOpMode = 0x10
	simRegStatus = 0x20
	simRegAQI    = 0x21
	simWarmup    = time.Second
	simOLED      = 0x3C
)

func newSimBus(start time.Time, now func() time.Time) *simBus {
	b := &simBus{start: start, now: now, eco2: 450, tvoc: 60, rng: 1}
	b.ens[0] = byte(ens160.PartID & 0xFF)
	b.ens[1] = byte(ens160.PartID >> 8)
	return b
}

func (b *simBus) rand(n int32) int32 {
	b.rng = b.rng*1664525 + 1013904223
	return int32(b.rng>>16) % n
}

func (b *simBus) Tx(addr uint16, w, r []byte) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	switch addr {
	case ens160.Address:
		return b.ensTx(w, r)
	case aht2x.Address:
		return b.ahtTx(w, r)
	case simOLED:
		if len(w) > 1 && w[0] == 0x40 {
			b.frames++
			b.frame = append(b.frame[:0], w[1:]...)
		}
		return nil
	}
	return errNoDevice
}

func (b *simBus) ensTx(w, r []byte) error {
	if len(w) == 0 {
		return errNoDevice
	}
	reg := int(w[0])
	if len(r) == 0 {
		copy(b.ens[reg:], w[1:])
		if reg == simRegOpMode && len(w) > 1 && ens160.Mode(w[1]) == ens160.ModeStandard {
			b.wokeAt = b.now()
		}
		return nil
	}
	if reg == simRegStatus {
		b.ens[simRegStatus] = b.ensStatus()
	}
	if reg == simRegAQI {
		b.ensStep()
	}
	copy(r, b.ens[reg:])
	return nil
}

func (b *simBus) ensStatus() byte {
	if ens160.Mode(b.ens[simRegOpMode]) != ens160.ModeStandard {
		return 0
	}
	st := byte(0x80 | 0x02) // running, new data
	if b.now().Sub(b.wokeAt) < simWarmup {
		st |= byte(ens160.WarmUp) << 2
	}
	return st
}

// ensStep drifts eCO2 and TVOC and derives the AQI from eCO2.
func (b *simBus) ensStep() {
	b.eco2 = mathx.Clamp(b.eco2+b.rand(81)-38, 400, 2400)
	b.tvoc = mathx.Clamp(b.tvoc+b.rand(21)-10, 0, 1200)
	aqi := 1 + (b.eco2-400)/400
	b.ens[simRegAQI] = byte(mathx.Clamp(aqi, 1, 5))
	b.ens[simRegAQI+1] = byte(b.tvoc)
	b.ens[simRegAQI+2] = byte(b.tvoc >> 8)
	b.ens[simRegAQI+3] = byte(b.eco2)
	b.ens[simRegAQI+4] = byte(b.eco2 >> 8)
}

func (b *simBus) ahtTx(w, r []byte) error {
	const calibrated = 0x18
	switch {
	case len(w) == 1 && w[0] == 0x71 && len(r) == 1:
		r[0] = calibrated
	case len(w) > 0 && w[0] == 0xAC:
		b.ahtMeasure()
	case len(w) == 0:
		copy(r, b.aht[:])
	}
	return nil
}

// ahtMeasure prepares a frame around 21 °C / 45 %RH.
func (b *simBus) ahtMeasure() {
	deciC := 210 + b.rand(21) - 10
	deciRH := 450 + b.rand(41) - 20
	rh := uint32(deciRH) << 20 / 1000
	t := uint32(deciC+500) << 20 / 2000
	f := &b.aht
	f[0] = 0x18
	f[1] = byte(rh >> 12)
	f[2] = byte(rh >> 4)
	f[3] = byte(rh<<4) | byte(t>>16&0x0F)
	f[4] = byte(t >> 8)
	f[5] = byte(t)
	f[6] = crc8(f[:6])
}

func crc8(p []byte) byte {
	crc := byte(0xFF)
	for _, v := range p {
		crc ^= v
		for i := 0; i < 8; i++ {
			if crc&0x80 != 0 {
				crc = crc<<1 ^ 0x31
			} else {
				crc <<= 1
			}
		}
	}
	return crc
}

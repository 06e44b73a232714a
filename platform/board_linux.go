//go:build linux && i2cdev

package platform

import (
	"os"
	"sync"

	"aqmonitor-go/errcode"
	"aqmonitor-go/services/config"
	"aqmonitor-go/services/system"
	"aqmonitor-go/x/timex"

	"golang.org/x/exp/io/i2c"
)

// Board selects the embedded configuration document. The same parts on a
// Linux single-board computer's /dev/i2c-1.
const Board = "linux"

const i2cDev = "/dev/i2c-1"

type exitResetter struct{}

func (exitResetter) Reset(reason string) { Reset(reason) }

// Reset ends the process; the service manager restarts it.
func Reset(reason string) {
	println("[main] reset:", reason)
	os.Exit(3)
}

// Open brings up the devices on the kernel I²C bus.
func Open(cfg config.Config, clock timex.Clock) (system.Devices, error) {
	if _, err := os.Stat(i2cDev); err != nil {
		return system.Devices{}, errcode.Wrap(errcode.InitFailed, "platform.i2c", err)
	}
	p := peripherals{
		i2c:   &devfsBus{dev: i2cDev, open: map[uint16]*i2c.Device{}},
		vsys:  mainsADC{code: uint16(5000 << 16 / (cfg.Power.VRefMilliV * cfg.Power.Divider))},
		reset: exitResetter{},
		panel: newFramePanel,
	}
	return devices(p, cfg, clock)
}

// devfsBus adapts per-address i2c-dev handles to drivers.I2C. A write
// followed by a read is issued as two transfers; a single register byte
// uses ReadReg.
type devfsBus struct {
	mu   sync.Mutex
	dev  string
	open map[uint16]*i2c.Device
}

func (b *devfsBus) device(addr uint16) (*i2c.Device, error) {
	if d, ok := b.open[addr]; ok {
		return d, nil
	}
	d, err := i2c.Open(&i2c.Devfs{Dev: b.dev}, int(addr))
	if err != nil {
		return nil, err
	}
	b.open[addr] = d
	return d, nil
}

func (b *devfsBus) Tx(addr uint16, w, r []byte) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	d, err := b.device(addr)
	if err != nil {
		return err
	}
	switch {
	case len(w) == 1 && len(r) > 0:
		return d.ReadReg(w[0], r)
	case len(r) == 0:
		return d.Write(w)
	case len(w) > 0:
		if err := d.Write(w); err != nil {
			return err
		}
	}
	return d.Read(r)
}

// mainsADC stands in for VSYS on boards without a battery: a steady USB
// supply, which the monitor classifies as charging.
type mainsADC struct{ code uint16 }

func (m mainsADC) Get() uint16 { return m.code }

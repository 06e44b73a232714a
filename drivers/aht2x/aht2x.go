// Package aht2x provides a driver for the AHT20/AHT21 temperature/humidity
// sensors. It exposes a two-phase measurement API:
//
//	d.Trigger()              // start a measurement (fast)
//	err := d.Collect(&s)     // fetch when ready; returns ErrNotReady while busy
//
// Read performs trigger + bounded polling until ready, honouring ctx.
//
// Conversions avoid floating point; helpers return tenths of units
// (deci-°C and deci-%RH).
package aht2x

import (
	"context"
	"time"

	"aqmonitor-go/errcode"
	"aqmonitor-go/x/timex"

	"tinygo.org/x/drivers"
)

// I2C address.
const Address = 0x38

const (
	cmdTrigger    = 0xAC
	cmdInitialize = 0xBE
	cmdSoftReset  = 0xBA
	cmdStatus     = 0x71

	statusBusy       = 0x80
	statusCalibrated = 0x08
)

// Errors returned by the driver.
var (
	ErrTimeout  error = &errcode.E{C: errcode.Timeout, Op: "aht2x"}
	ErrNotReady error = &errcode.E{C: errcode.NotReady, Op: "aht2x"}
	ErrCRC      error = &errcode.E{C: errcode.Malformed, Op: "aht2x", Msg: "crc mismatch"}
	ErrNoCal    error = &errcode.E{C: errcode.InitFailed, Op: "aht2x", Msg: "calibration bit not set"}
)

// Config controls non-hardware behaviour. All fields are optional.
type Config struct {
	// Address defaults to 0x38 if zero.
	Address uint16
	// PollInterval is used by Read between Collect attempts. Default 15 ms.
	PollInterval time.Duration
	// CollectTimeout bounds the total wait in Read. Default 250 ms.
	CollectTimeout time.Duration
	// TriggerHint is the nominal conversion time before the first Collect.
	// Default 80 ms.
	TriggerHint time.Duration
	// CheckCRC verifies the trailing CRC byte (AHT21 and later AHT20 parts).
	CheckCRC bool
	// Clock paces Read. Defaults to timex.Real.
	Clock timex.Clock
}

// Device wraps an I2C connection to an AHT2x device.
type Device struct {
	bus drivers.I2C
	cfg Config
	buf [7]byte
}

// New creates a Device. The bus must already be configured; the device is
// not touched until Configure.
func New(bus drivers.I2C, cfg Config) *Device {
	if cfg.Address == 0 {
		cfg.Address = Address
	}
	if cfg.PollInterval <= 0 {
		cfg.PollInterval = 15 * time.Millisecond
	}
	if cfg.CollectTimeout <= 0 {
		cfg.CollectTimeout = 250 * time.Millisecond
	}
	if cfg.TriggerHint <= 0 {
		cfg.TriggerHint = 80 * time.Millisecond
	}
	if cfg.Clock == nil {
		cfg.Clock = timex.Real
	}
	return &Device{bus: bus, cfg: cfg}
}

// Configure initialises the device if its calibration bit is clear and
// verifies that it comes up calibrated.
func (d *Device) Configure() error {
	st, err := d.Status()
	if err != nil {
		return errcode.Wrap(errcode.InitFailed, "aht2x.configure", err)
	}
	if st&statusCalibrated != 0 {
		return nil
	}
	if err := d.bus.Tx(d.cfg.Address, []byte{cmdInitialize, 0x08, 0x00}, nil); err != nil {
		return errcode.Wrap(errcode.InitFailed, "aht2x.configure", err)
	}
	time.Sleep(10 * time.Millisecond)
	if st, err = d.Status(); err != nil {
		return errcode.Wrap(errcode.InitFailed, "aht2x.configure", err)
	}
	if st&statusCalibrated == 0 {
		return ErrNoCal
	}
	return nil
}

// Reset issues a soft reset. Give the device ~20ms afterwards before using.
func (d *Device) Reset() error {
	return d.bus.Tx(d.cfg.Address, []byte{cmdSoftReset}, nil)
}

// Status reads the status byte.
func (d *Device) Status() (byte, error) {
	data := []byte{0}
	if err := d.bus.Tx(d.cfg.Address, []byte{cmdStatus}, data); err != nil {
		return 0, err
	}
	return data[0], nil
}

// Trigger starts a measurement.
func (d *Device) Trigger() error {
	return d.bus.Tx(d.cfg.Address, []byte{cmdTrigger, 0x33, 0x00}, nil)
}

// TriggerHint returns the nominal conversion time to wait before Collect.
func (d *Device) TriggerHint() time.Duration { return d.cfg.TriggerHint }

// Collect attempts to read one measurement. ErrNotReady is returned while
// the device is busy; bus errors are returned as-is.
func (d *Device) Collect(out *Sample) error {
	data := d.buf[:]
	if !d.cfg.CheckCRC {
		data = d.buf[:6]
	}
	if err := d.bus.Tx(d.cfg.Address, nil, data); err != nil {
		return err
	}
	if (data[0]&statusCalibrated) == 0 || (data[0]&statusBusy) != 0 {
		return ErrNotReady
	}
	if d.cfg.CheckCRC && crc8(data[:6]) != data[6] {
		return ErrCRC
	}
	if out != nil {
		out.RawHumidity = (uint32(data[1]) << 12) | (uint32(data[2]) << 4) | (uint32(data[3]) >> 4)
		out.RawTemp = (uint32(data[3]&0x0F) << 16) | (uint32(data[4]) << 8) | uint32(data[5])
	}
	return nil
}

// Read performs a full measurement cycle: Trigger, wait TriggerHint, then
// poll Collect until it succeeds, CollectTimeout elapses or ctx ends.
func (d *Device) Read(ctx context.Context) (Sample, error) {
	var s Sample
	if err := d.Trigger(); err != nil {
		return s, err
	}
	clk := d.cfg.Clock
	if !timex.Sleep(ctx, clk, d.cfg.TriggerHint) {
		return s, ctx.Err()
	}
	deadline := clk.Now().Add(d.cfg.CollectTimeout)
	for {
		err := d.Collect(&s)
		switch err {
		case nil:
			return s, nil
		case ErrNotReady:
			if clk.Now().After(deadline) {
				return s, ErrTimeout
			}
			if !timex.Sleep(ctx, clk, d.cfg.PollInterval) {
				return s, ctx.Err()
			}
		default:
			return s, err
		}
	}
}

// crc8 is CRC-8/NRSC-5 style: poly 0x31, init 0xFF.
func crc8(b []byte) byte {
	crc := byte(0xFF)
	for _, v := range b {
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

// Sample holds raw 20-bit readings.
type Sample struct {
	RawHumidity uint32
	RawTemp     uint32
}

// DeciRelHumidity returns tenths of %RH.
func (s Sample) DeciRelHumidity() int32 {
	return int32((int64(s.RawHumidity) * 1000) >> 20)
}

// DeciCelsius returns tenths of °C.
func (s Sample) DeciCelsius() int32 {
	return int32((int64(s.RawTemp)*2000)>>20) - 500
}

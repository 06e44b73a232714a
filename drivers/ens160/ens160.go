// Package ens160 provides a driver for the ScioSense ENS160 digital
// metal-oxide gas sensor (eCO2, TVOC, UBA AQI).
//
// The part is kept in deep sleep between acquisition cycles:
//
//	d.Wake()                       // standard gas sensing mode
//	d.SetCompensation(215, 480)    // 21.5 °C, 48.0 %RH
//	m, err := d.Read(ctx)          // waits for NEWDAT
//	d.Sleep()
package ens160

import (
	"context"
	"time"

	"aqmonitor-go/errcode"
	"aqmonitor-go/x/timex"

	"tinygo.org/x/drivers"
)

// Errors returned by the driver.
var (
	ErrNotReady  error = &errcode.E{C: errcode.NotReady, Op: "ens160"}
	ErrTimeout   error = &errcode.E{C: errcode.Timeout, Op: "ens160", Msg: "no new data"}
	ErrBadPartID error = &errcode.E{C: errcode.Malformed, Op: "ens160", Msg: "unexpected part id"}
	ErrDevice    error = &errcode.E{C: errcode.BusError, Op: "ens160", Msg: "status error flag"}
)

// Validity is the DATA_STATUS VALIDITY field.
type Validity uint8

const (
	Normal Validity = iota
	WarmUp
	InitialStartUp
	Invalid
)

// Status is a raw DATA_STATUS byte.
type Status byte

func (s Status) NewData() bool      { return s&statusNewData != 0 }
func (s Status) NewGPR() bool       { return s&statusNewGPR != 0 }
func (s Status) Error() bool        { return s&statusError != 0 }
func (s Status) Running() bool      { return s&statusOpMode != 0 }
func (s Status) Validity() Validity { return Validity((s & statusValidity) >> 2) }

// Measurement is one gas reading.
type Measurement struct {
	AQI      uint8  // UBA 1..5
	TVOC     uint16 // ppb
	ECO2     uint16 // ppm
	Validity Validity
}

type Config struct {
	// Address defaults to 0x53 if zero.
	Address uint16
	// PollInterval between status reads in Read. Default 50 ms.
	PollInterval time.Duration
	// ReadTimeout bounds the wait for NEWDAT. Default 2 s (one standard
	// mode conversion takes ~1 s).
	ReadTimeout time.Duration
	// Clock paces Read. Defaults to timex.Real.
	Clock timex.Clock
}

type Device struct {
	bus  drivers.I2C
	addr uint16
	cfg  Config
	w    [3]byte
	r    [5]byte
}

func New(bus drivers.I2C, cfg Config) *Device {
	if cfg.Address == 0 {
		cfg.Address = Address
	}
	if cfg.PollInterval <= 0 {
		cfg.PollInterval = 50 * time.Millisecond
	}
	if cfg.ReadTimeout <= 0 {
		cfg.ReadTimeout = 2 * time.Second
	}
	if cfg.Clock == nil {
		cfg.Clock = timex.Real
	}
	return &Device{bus: bus, addr: cfg.Address, cfg: cfg}
}

// Configure checks the part ID and leaves the device in deep sleep.
func (d *Device) Configure() error {
	id, err := d.readWord(regPartID)
	if err != nil {
		return errcode.Wrap(errcode.InitFailed, "ens160.configure", err)
	}
	if id != PartID {
		return errcode.Wrap(errcode.InitFailed, "ens160.configure", ErrBadPartID)
	}
	if err := d.SetMode(ModeIdle); err != nil {
		return errcode.Wrap(errcode.InitFailed, "ens160.configure", err)
	}
	// Interrupt pin unused.
	if err := d.writeByte(regConfig, 0x00); err != nil {
		return errcode.Wrap(errcode.InitFailed, "ens160.configure", err)
	}
	return d.Sleep()
}

// SetMode writes OPMODE.
func (d *Device) SetMode(m Mode) error { return d.writeByte(regOpMode, byte(m)) }

// Mode reads OPMODE back.
func (d *Device) Mode() (Mode, error) {
	b, err := d.readByte(regOpMode)
	return Mode(b), err
}

// Wake puts the device into standard gas sensing mode.
func (d *Device) Wake() error { return d.SetMode(ModeStandard) }

// Sleep puts the device into deep sleep.
func (d *Device) Sleep() error { return d.SetMode(ModeDeepSleep) }

// Status reads DATA_STATUS.
func (d *Device) Status() (Status, error) {
	b, err := d.readByte(regDataStatus)
	return Status(b), err
}

// SetCompensation writes ambient temperature (tenths of °C) and relative
// humidity (tenths of %RH) used by the on-chip compensation.
func (d *Device) SetCompensation(deciC, deciRH int32) error {
	if deciC < -400 {
		deciC = -400
	}
	if deciRH < 0 {
		deciRH = 0
	} else if deciRH > 1000 {
		deciRH = 1000
	}
	// (T + 273.15) * 64 with T in tenths.
	t := (deciC*64 + 174816 + 5) / 10
	if err := d.writeWord(regTempIn, uint16(t)); err != nil {
		return err
	}
	return d.writeWord(regRHIn, uint16(deciRH*512/10))
}

// Collect reads one measurement if NEWDAT is set, else ErrNotReady.
func (d *Device) Collect(out *Measurement) error {
	st, err := d.Status()
	if err != nil {
		return err
	}
	if st.Error() {
		return ErrDevice
	}
	if !st.NewData() {
		return ErrNotReady
	}
	d.w[0] = regDataAQI
	if err := d.bus.Tx(d.addr, d.w[:1], d.r[:5]); err != nil {
		return err
	}
	if out != nil {
		out.AQI = d.r[0] & 0x07
		out.TVOC = uint16(d.r[1]) | uint16(d.r[2])<<8
		out.ECO2 = uint16(d.r[3]) | uint16(d.r[4])<<8
		out.Validity = st.Validity()
	}
	return nil
}

// Read polls until a new measurement is available, ReadTimeout elapses or
// ctx ends.
func (d *Device) Read(ctx context.Context) (Measurement, error) {
	var m Measurement
	clk := d.cfg.Clock
	deadline := clk.Now().Add(d.cfg.ReadTimeout)
	for {
		err := d.Collect(&m)
		if err != ErrNotReady {
			return m, err
		}
		if clk.Now().After(deadline) {
			return m, ErrTimeout
		}
		if !timex.Sleep(ctx, clk, d.cfg.PollInterval) {
			return m, ctx.Err()
		}
	}
}

// I2C helpers. Multi-byte registers are little-endian.

func (d *Device) readByte(reg byte) (byte, error) {
	d.w[0] = reg
	if err := d.bus.Tx(d.addr, d.w[:1], d.r[:1]); err != nil {
		return 0, err
	}
	return d.r[0], nil
}

func (d *Device) writeByte(reg, v byte) error {
	d.w[0] = reg
	d.w[1] = v
	return d.bus.Tx(d.addr, d.w[:2], nil)
}

func (d *Device) readWord(reg byte) (uint16, error) {
	d.w[0] = reg
	if err := d.bus.Tx(d.addr, d.w[:1], d.r[:2]); err != nil {
		return 0, err
	}
	return uint16(d.r[0]) | uint16(d.r[1])<<8, nil
}

func (d *Device) writeWord(reg byte, v uint16) error {
	d.w[0] = reg
	d.w[1] = byte(v)
	d.w[2] = byte(v >> 8)
	return d.bus.Tx(d.addr, d.w[:3], nil)
}

//go:build !rp2040 && !rp2350

package platform

import (
	"image/color"

	"aqmonitor-go/services/config"
	"aqmonitor-go/services/display/oled"

	"tinygo.org/x/drivers"
)

// framePanel drives an SSD1306 in horizontal addressing mode over plain
// drivers.I2C. The tinygo ssd1306 package also carries its SPI variant,
// which needs the TinyGo machine package, so non-MCU boards use this.
type framePanel struct {
	bus  drivers.I2C
	addr uint16
	w, h int16
	buf  []byte // one bit per pixel, pages of 8 rows
	tx   []byte
}

var _ oled.Panel = (*framePanel)(nil)

// Control bytes.
const (
	ssdCommand = 0x00
	ssdData    = 0x40
)

func newFramePanel(bus drivers.I2C, cfg config.DisplayConfig) (oled.Panel, error) {
	p := &framePanel{
		bus:  bus,
		addr: cfg.Address,
		w:    cfg.Width,
		h:    cfg.Height,
		buf:  make([]byte, int(cfg.Width)*int(cfg.Height)/8),
	}
	comPins := byte(0x12)
	if cfg.Height == 32 {
		comPins = 0x02
	}
	err := p.command(
		0xAE,              // display off
		0xD5, 0x80,        // clock divide
		0xA8, byte(p.h-1), // multiplex
		0xD3, 0x00,        // display offset
		0x40,              // start line 0
		0x8D, 0x14,        // charge pump on
		0x20, 0x00,        // horizontal addressing
		0xA1, 0xC8,        // segment remap, COM scan descending
		0xDA, comPins,     // COM pins
		0x81, 0xCF,        // contrast
		0xD9, 0xF1,        // pre-charge
		0xDB, 0x40,        // VCOMH
		0xA4, 0xA6,        // resume from RAM, normal
		0xAF,              // display on
	)
	if err != nil {
		return nil, err
	}
	return p, p.Display()
}

func (p *framePanel) command(cmds ...byte) error {
	p.tx = append(p.tx[:0], ssdCommand)
	p.tx = append(p.tx, cmds...)
	return p.bus.Tx(p.addr, p.tx, nil)
}

func (p *framePanel) Size() (int16, int16) { return p.w, p.h }

func (p *framePanel) SetPixel(x, y int16, c color.RGBA) {
	if x < 0 || y < 0 || x >= p.w || y >= p.h {
		return
	}
	i := int(x) + int(y/8)*int(p.w)
	bit := byte(1) << (uint(y) % 8)
	if c.R|c.G|c.B != 0 {
		p.buf[i] |= bit
	} else {
		p.buf[i] &^= bit
	}
}

func (p *framePanel) ClearBuffer() {
	for i := range p.buf {
		p.buf[i] = 0
	}
}

// Display resets the column and page window and writes the whole frame.
func (p *framePanel) Display() error {
	if err := p.command(0x21, 0, byte(p.w-1), 0x22, 0, byte(p.h/8-1)); err != nil {
		return err
	}
	p.tx = append(p.tx[:0], ssdData)
	p.tx = append(p.tx, p.buf...)
	return p.bus.Tx(p.addr, p.tx, nil)
}

// Package i2cshare arbitrates one physical I²C bus between several drivers.
//
// Every Tx holds the bus for exactly one transaction. A driver that needs a
// multi-transaction sequence to be uninterrupted (an OLED frame flush) wraps
// it in Handle.Exclusive; nothing else may hold the bus across a wait.
package i2cshare

import (
	"sync"

	"tinygo.org/x/drivers"
)

// Bus serialises access to a raw bus.
type Bus struct {
	mu  sync.Mutex
	raw drivers.I2C
}

func New(raw drivers.I2C) *Bus { return &Bus{raw: raw} }

// Tx performs one locked transaction.
func (b *Bus) Tx(addr uint16, w, r []byte) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.raw.Tx(addr, w, r)
}

// Handle returns a per-driver view of the bus. Each driver gets its own
// handle; handles must not be shared between goroutines.
func (b *Bus) Handle() *Handle { return &Handle{bus: b} }

// Handle implements drivers.I2C on top of a shared Bus.
type Handle struct {
	bus  *Bus
	held bool // true inside Exclusive; only touched by the owning goroutine
}

var _ drivers.I2C = (*Handle)(nil)

func (h *Handle) Tx(addr uint16, w, r []byte) error {
	if h.held {
		return h.bus.raw.Tx(addr, w, r)
	}
	return h.bus.Tx(addr, w, r)
}

// Exclusive runs fn with the bus held. Tx calls made through this handle
// inside fn go straight to the raw bus.
func (h *Handle) Exclusive(fn func() error) error {
	h.bus.mu.Lock()
	h.held = true
	defer func() {
		h.held = false
		h.bus.mu.Unlock()
	}()
	return fn()
}

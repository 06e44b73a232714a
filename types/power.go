package types

import "time"

// ------------------------
// Battery (VSYS)
// ------------------------

// BatteryStatus is published every battery-monitor cycle. Staleness is
// derived from CapturedAt; there is no separate flag.
type BatteryStatus struct {
	MilliV     int32 // filtered on battery, raw while charging
	Percent    uint8
	Charging   bool
	CapturedAt time.Time
}

// BatteryLevel is the icon bucket shown on the display.
type BatteryLevel uint8

const (
	BatteryUnknown BatteryLevel = iota
	BatteryCharging
	Bat000 // roughly 1/6 of the run time left
	Bat020
	Bat040
	Bat060
	Bat080
	Bat100 // almost full
)

// Level maps the status to an icon bucket. Li-ion voltage falls off steeply
// near empty, so the low buckets are wider than the high ones.
func (b BatteryStatus) Level() BatteryLevel {
	if b.Charging {
		return BatteryCharging
	}
	switch p := b.Percent; {
	case p <= 24:
		return Bat000
	case p <= 44:
		return Bat020
	case p <= 58:
		return Bat040
	case p <= 72:
		return Bat060
	case p <= 86:
		return Bat080
	}
	return Bat100
}

// Bars returns the number of filled segments (0..5) for the level.
func (l BatteryLevel) Bars() int {
	if l < Bat000 {
		return 0
	}
	return int(l - Bat000)
}

package power

import "aqmonitor-go/errcode"

// Classifier decides Charging vs OnBattery from VSYS with hysteresis: it
// enters Charging only at or above OnMilliV and leaves it only at or below
// OffMilliV, so noise around either threshold cannot make it flap.
type Classifier struct {
	on, off  int32
	charging bool
}

// NewClassifier requires off < on. The initial state is OnBattery.
func NewClassifier(onMilliV, offMilliV int32) (*Classifier, error) {
	if offMilliV >= onMilliV {
		return nil, &errcode.E{C: errcode.InvalidConfig, Op: "power.classifier", Msg: "off threshold must be below on threshold"}
	}
	return &Classifier{on: onMilliV, off: offMilliV}, nil
}

// Update feeds one raw sample and returns the state after it, and whether
// the sample changed it.
func (c *Classifier) Update(milliV int32) (charging, changed bool) {
	switch {
	case !c.charging && milliV >= c.on:
		c.charging = true
		return true, true
	case c.charging && milliV <= c.off:
		c.charging = false
		return false, true
	}
	return c.charging, false
}

func (c *Classifier) Charging() bool { return c.charging }

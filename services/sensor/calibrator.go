package sensor

import (
	"github.com/chewxy/math32"
)

// Humidity drift correction tuning. Counts are in acquisition cycles.
const (
	baselineReadings     = 5
	driftRate            = float32(0.02)
	driftThreshold       = float32(2.0)
	rapidChange          = float32(5.0)
	changeWindow         = 3
	stableAfterRapid     = 12
	shiftThreshold       = float32(8.0)
	shiftConfirmReadings = 6
	longTermMinReadings  = 100
	longTermThreshold    = float32(10.0)
	longTermRate         = float32(0.005)
)

// Calibrator corrects slow humidity sensor drift. It learns a baseline from
// the first readings, pulls slowly towards it while readings stay stable,
// and on long stable runs also pulls towards a temperature-dependent
// indoor expectation. Rapid changes (a window opened, a shower) suspend
// learning until the level settles, after which a new baseline is taken.
//
// Not safe for concurrent use.
type Calibrator struct {
	recent []float32

	offset       float32
	longOffset   float32
	baseline     float32
	baselineN    int
	preChange    float32
	hasPreChange bool

	stable     int
	confirm    int
	inRapid    bool
	shifted    bool
	longStable int
}

func NewCalibrator() *Calibrator {
	return &Calibrator{recent: make([]float32, 0, changeWindow)}
}

// Calibrated reports whether the initial baseline has been learnt.
func (c *Calibrator) Calibrated() bool { return c.baselineN >= baselineReadings }

// Offsets returns the short-term and long-term corrections in %RH.
func (c *Calibrator) Offsets() (short, long float32) { return c.offset, c.longOffset }

// Add feeds one raw measurement (tenths of °C and %RH).
func (c *Calibrator) Add(deciC, deciRH int32) {
	t := float32(deciC) / 10
	rh := float32(deciRH) / 10

	if c.trackChange(rh) {
		c.baselineN = 0
		c.offset = 0
		println("[sensor] humidity: rapid change, relearning baseline")
		return
	}
	if c.inRapid {
		return
	}
	if c.baselineN < baselineReadings {
		c.baseline = (c.baseline*float32(c.baselineN) + rh) / float32(c.baselineN+1)
		c.baselineN++
		return
	}

	drift := rh - c.baseline
	if math32.Abs(drift) < rapidChange {
		c.longStable++
	} else {
		c.longStable = 0
	}
	if c.longStable >= longTermMinReadings {
		if e := rh - expectedIndoor(t); math32.Abs(e) >= longTermThreshold {
			c.longOffset = c.longOffset*(1-longTermRate) - e*longTermRate
		}
	}
	if math32.Abs(drift) >= driftThreshold {
		c.offset = c.offset*(1-driftRate) - drift*driftRate
	}
}

// trackChange updates the change window and the rapid-change state machine.
// It returns true when rh starts or continues a rapid change.
func (c *Calibrator) trackChange(rh float32) bool {
	if len(c.recent) == changeWindow {
		copy(c.recent, c.recent[1:])
		c.recent = c.recent[:changeWindow-1]
	}
	c.recent = append(c.recent, rh)
	if len(c.recent) < 2 {
		c.stable, c.confirm = 0, 0
		return false
	}

	if math32.Abs(rh-c.recent[0]) >= rapidChange {
		if !c.hasPreChange && !c.inRapid {
			var sum float32
			prev := c.recent[:len(c.recent)-1]
			for _, v := range prev {
				sum += v
			}
			c.preChange, c.hasPreChange = sum/float32(len(prev)), true
		}
		c.stable, c.confirm = 0, 0
		c.inRapid, c.shifted = true, false
		return true
	}

	c.stable++
	if !c.hasPreChange {
		if c.stable >= stableAfterRapid {
			c.inRapid = false
		}
		return false
	}
	if math32.Abs(rh-c.preChange) >= shiftThreshold {
		c.confirm++
		if c.confirm >= shiftConfirmReadings {
			c.shifted = true
		}
	} else {
		c.confirm = 0
	}
	// Settled, either back at the old level or at a confirmed new one.
	if c.stable >= stableAfterRapid && (c.confirm == 0 || c.shifted) {
		c.inRapid, c.shifted, c.hasPreChange = false, false, false
		c.baseline, c.baselineN = rh, baselineReadings
		c.offset = 0
		println("[sensor] humidity: new baseline", int32(rh*10))
	}
	return false
}

// Apply returns the corrected humidity in tenths of %RH, clamped to 0..1000.
// Until the baseline is learnt the raw value is returned.
func (c *Calibrator) Apply(deciRH int32) int32 {
	if !c.Calibrated() {
		return deciRH
	}
	v := float32(deciRH)/10 + c.offset + c.longOffset
	v = math32.Max(0, math32.Min(100, v))
	return int32(math32.Round(v * 10))
}

// expectedIndoor is a coarse indoor RH expectation: 45 % at 25 °C, half a
// point lower per degree warmer, within 25..65 %.
func expectedIndoor(celsius float32) float32 {
	e := 45 - (celsius-25)*0.5
	return math32.Max(25, math32.Min(65, e))
}

package sensor

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCalibratorPassesRawUntilBaseline(t *testing.T) {
	c := NewCalibrator()
	for i := 0; i < baselineReadings-1; i++ {
		c.Add(220, 450)
		assert.False(t, c.Calibrated())
		assert.Equal(t, int32(457), c.Apply(457))
	}
	c.Add(220, 450)
	assert.True(t, c.Calibrated())
}

func TestCalibratorPullsSlowDriftBack(t *testing.T) {
	c := NewCalibrator()
	for i := 0; i < baselineReadings; i++ {
		c.Add(220, 450)
	}
	// A sensor reading 3 points high, steadily.
	for i := 0; i < 50; i++ {
		c.Add(220, 480)
	}
	short, _ := c.Offsets()
	assert.Less(t, short, float32(0))
	got := c.Apply(480)
	assert.Less(t, got, int32(480))
	assert.Greater(t, got, int32(450))
}

func TestCalibratorIgnoresSmallDeviation(t *testing.T) {
	c := NewCalibrator()
	for i := 0; i < baselineReadings; i++ {
		c.Add(220, 450)
	}
	for i := 0; i < 20; i++ {
		c.Add(220, 460)
	}
	short, long := c.Offsets()
	assert.Zero(t, short)
	assert.Zero(t, long)
	assert.Equal(t, int32(460), c.Apply(460))
}

func TestCalibratorRelearnsAfterRapidChange(t *testing.T) {
	c := NewCalibrator()
	for i := 0; i < baselineReadings; i++ {
		c.Add(220, 450)
	}
	c.Add(220, 600) // shower
	assert.False(t, c.Calibrated())
	assert.Equal(t, int32(600), c.Apply(600))

	// Settles at a new level; confirmed as a shift and relearnt.
	for i := 0; i < stableAfterRapid+1; i++ {
		c.Add(220, 600)
	}
	assert.True(t, c.Calibrated())
	short, _ := c.Offsets()
	assert.Zero(t, short)
	assert.Equal(t, int32(600), c.Apply(600))
}

func TestCalibratorClamps(t *testing.T) {
	c := NewCalibrator()
	for i := 0; i < baselineReadings; i++ {
		c.Add(220, 995)
	}
	c.offset = 5
	assert.Equal(t, int32(1000), c.Apply(995))
}

func TestExpectedIndoor(t *testing.T) {
	assert.InDelta(t, 45, expectedIndoor(25), 1e-6)
	assert.InDelta(t, 40, expectedIndoor(35), 1e-6)
	assert.InDelta(t, 65, expectedIndoor(-50), 1e-6)
	assert.InDelta(t, 25, expectedIndoor(100), 1e-6)
}

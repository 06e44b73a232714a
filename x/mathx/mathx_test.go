package mathx

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestClamp(t *testing.T) {
	assert.Equal(t, 5, Clamp(5, 0, 10))
	assert.Equal(t, 0, Clamp(-3, 0, 10))
	assert.Equal(t, 10, Clamp(42, 10, 0)) // swapped bounds
}

func TestMapI32(t *testing.T) {
	assert.Equal(t, int32(0), MapI32(2500, 2800, 4200, 0, 100))
	assert.Equal(t, int32(50), MapI32(3500, 2800, 4200, 0, 100))
	assert.Equal(t, int32(100), MapI32(4300, 2800, 4200, 0, 100))
	assert.Equal(t, int32(7), MapI32(1, 1, 1, 7, 9))
}

func TestScaleU16(t *testing.T) {
	// Full scale with a 3:1 divider at 3.3 V reference.
	assert.Equal(t, int32(9899), ScaleU16(0xFFFF, 3300, 3))
	// Half scale.
	assert.Equal(t, int32(4950), ScaleU16(0x8000, 3300, 3))
}

package conv

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestItoa(t *testing.T) {
	var buf [20]byte
	assert.Equal(t, "0", string(Itoa(buf[:], 0)))
	assert.Equal(t, "418", string(Itoa(buf[:], 418)))
	assert.Equal(t, "-12", string(Itoa(buf[:], -12)))
}

func TestDeci(t *testing.T) {
	var buf [20]byte
	assert.Equal(t, "21.5", string(Deci(buf[:], 215)))
	assert.Equal(t, "0.3", string(Deci(buf[:], 3)))
	assert.Equal(t, "-0.5", string(Deci(buf[:], -5)))
	assert.Equal(t, "-12.0", string(Deci(buf[:], -120)))
}

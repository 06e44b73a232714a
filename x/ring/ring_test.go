package ring

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestPushEvictsOldest(t *testing.T) {
	r := New[uint16](3)
	for _, v := range []uint16{1, 2, 3, 4, 5} {
		r.Push(v)
	}
	assert.Equal(t, 3, r.Len())
	assert.Equal(t, []uint16{3, 4, 5}, r.AppendTo(nil))
	assert.Equal(t, uint16(3), r.At(0))
	assert.Equal(t, uint16(5), r.At(2))
}

func TestPartialFill(t *testing.T) {
	r := New[int](4)
	r.Push(7)
	r.Push(8)
	assert.Equal(t, []int{7, 8}, r.AppendTo(nil))
	assert.Panics(t, func() { r.At(2) })
}

func TestCloneIsIndependent(t *testing.T) {
	r := New[int](2)
	r.Push(1)
	c := r.Clone()
	c.Push(2)
	c.Push(3)

	assert.Equal(t, []int{1}, r.AppendTo(nil))
	assert.Equal(t, []int{2, 3}, c.AppendTo(nil))
}

// Package median provides the two smoothing filters used on sensor data: a
// single-shot median over one burst of samples, and a moving median over a
// fixed sliding window.
package median

import (
	"slices"

	"golang.org/x/exp/constraints"
)

// Number is any value a median can be taken over.
type Number interface {
	constraints.Integer | constraints.Float
}

// Of returns the median of samples. For an even count it is the mean of the
// two central order statistics. ok is false for an empty slice.
// samples is not modified.
func Of[T Number](samples []T) (m T, ok bool) {
	n := len(samples)
	if n == 0 {
		return m, false
	}
	s := slices.Clone(samples)
	slices.Sort(s)
	if n%2 == 1 {
		return s[n/2], true
	}
	return mid(s[n/2-1], s[n/2]), true
}

// mid averages two sorted values without overflowing integer types.
func mid[T Number](lo, hi T) T {
	return lo + (hi-lo)/2
}

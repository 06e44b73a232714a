// Package ring is a fixed-capacity FIFO that overwrites its oldest entry when
// full. Not safe for concurrent use.
package ring

type Ring[T any] struct {
	buf   []T
	head  int // next write position
	count int
}

// New returns a ring holding at most capacity values. capacity < 1 is
// treated as 1.
func New[T any](capacity int) *Ring[T] {
	if capacity < 1 {
		capacity = 1
	}
	return &Ring[T]{buf: make([]T, capacity)}
}

func (r *Ring[T]) Len() int { return r.count }
func (r *Ring[T]) Cap() int { return len(r.buf) }

// Push appends v, evicting the oldest value when full.
func (r *Ring[T]) Push(v T) {
	r.buf[r.head] = v
	r.head++
	if r.head == len(r.buf) {
		r.head = 0
	}
	if r.count < len(r.buf) {
		r.count++
	}
}

// At returns the i-th value, 0 being the oldest.
func (r *Ring[T]) At(i int) T {
	if i < 0 || i >= r.count {
		panic("ring: index out of range")
	}
	start := r.head - r.count
	if start < 0 {
		start += len(r.buf)
	}
	return r.buf[(start+i)%len(r.buf)]
}

// AppendTo appends the held values, oldest first, to dst.
func (r *Ring[T]) AppendTo(dst []T) []T {
	for i := 0; i < r.count; i++ {
		dst = append(dst, r.At(i))
	}
	return dst
}

// Clone returns an independent copy.
func (r *Ring[T]) Clone() *Ring[T] {
	c := &Ring[T]{buf: make([]T, len(r.buf)), head: r.head, count: r.count}
	copy(c.buf, r.buf)
	return c
}

package median

// Moving keeps the most recent size samples and reports their median.
// It is not safe for concurrent use; each owner keeps its own.
type Moving[T Number] struct {
	buf  []T
	head int
	n    int
}

// NewMoving returns a moving median over a window of size samples.
// size < 1 is treated as 1.
func NewMoving[T Number](size int) *Moving[T] {
	if size < 1 {
		size = 1
	}
	return &Moving[T]{buf: make([]T, size)}
}

// Add inserts v, evicting the oldest sample when the window is full, and
// returns the median of the current window.
func (m *Moving[T]) Add(v T) T {
	m.buf[m.head] = v
	m.head = (m.head + 1) % len(m.buf)
	if m.n < len(m.buf) {
		m.n++
	}
	med, _ := m.Median()
	return med
}

// Median returns the median of the samples currently held.
func (m *Moving[T]) Median() (T, bool) {
	return Of(m.window())
}

// Len reports how many samples the window holds.
func (m *Moving[T]) Len() int { return m.n }

// Size reports the window capacity.
func (m *Moving[T]) Size() int { return len(m.buf) }

// Full reports whether the window holds Size samples.
func (m *Moving[T]) Full() bool { return m.n == len(m.buf) }

// Reset empties the window.
func (m *Moving[T]) Reset() {
	m.head = 0
	m.n = 0
}

func (m *Moving[T]) window() []T {
	if m.n < len(m.buf) {
		return m.buf[:m.n]
	}
	return m.buf
}

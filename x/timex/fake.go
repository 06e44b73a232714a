package timex

import (
	"sync"
	"time"
)

// Fake is a manually advanced Clock. Tickers and After channels fire while
// Advance walks simulated time forward; ticks a slow receiver misses are
// dropped, as with time.Ticker.
type Fake struct {
	mu      sync.Mutex
	now     time.Time
	waiters []*fakeWaiter
}

type fakeWaiter struct {
	f      *Fake
	ch     chan time.Time
	next   time.Time
	period time.Duration // 0 => one-shot
}

// NewFake returns a fake clock reading start.
func NewFake(start time.Time) *Fake { return &Fake{now: start} }

func (f *Fake) Now() time.Time {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.now
}

func (f *Fake) After(d time.Duration) <-chan time.Time {
	f.mu.Lock()
	defer f.mu.Unlock()
	w := &fakeWaiter{f: f, ch: make(chan time.Time, 1), next: f.now.Add(d)}
	if d <= 0 {
		w.ch <- f.now
		return w.ch
	}
	f.waiters = append(f.waiters, w)
	return w.ch
}

func (f *Fake) NewTicker(d time.Duration) Ticker {
	if d <= 0 {
		panic("timex: non-positive ticker period")
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	w := &fakeWaiter{f: f, ch: make(chan time.Time, 1), next: f.now.Add(d), period: d}
	f.waiters = append(f.waiters, w)
	return w
}

// Waiters reports how many timers and tickers are armed.
func (f *Fake) Waiters() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.waiters)
}

// Advance moves the clock forward by d, firing everything that falls due in
// chronological order.
func (f *Fake) Advance(d time.Duration) {
	f.mu.Lock()
	defer f.mu.Unlock()
	target := f.now.Add(d)
	for {
		w := f.earliest()
		if w == nil || w.next.After(target) {
			break
		}
		f.now = w.next
		select {
		case w.ch <- f.now:
		default:
		}
		if w.period > 0 {
			w.next = w.next.Add(w.period)
		} else {
			f.remove(w)
		}
	}
	f.now = target
}

func (f *Fake) earliest() *fakeWaiter {
	var min *fakeWaiter
	for _, w := range f.waiters {
		if min == nil || w.next.Before(min.next) {
			min = w
		}
	}
	return min
}

func (f *Fake) remove(w *fakeWaiter) {
	for i, x := range f.waiters {
		if x == w {
			f.waiters = append(f.waiters[:i], f.waiters[i+1:]...)
			return
		}
	}
}

// Ticker

func (w *fakeWaiter) C() <-chan time.Time { return w.ch }

func (w *fakeWaiter) Reset(d time.Duration) {
	w.f.mu.Lock()
	defer w.f.mu.Unlock()
	w.f.remove(w)
	w.period = d
	w.next = w.f.now.Add(d)
	w.f.waiters = append(w.f.waiters, w)
}

func (w *fakeWaiter) Stop() {
	w.f.mu.Lock()
	defer w.f.mu.Unlock()
	w.f.remove(w)
}

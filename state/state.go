// Package state holds the system state aggregate. There is exactly one
// writer (the orchestrator); any number of readers take immutable
// snapshots without locking.
package state

import (
	"sync/atomic"
	"time"

	"aqmonitor-go/types"
	"aqmonitor-go/x/ring"
)

// HistoryCapacity is the number of eCO2 values kept for the history view.
const HistoryCapacity = 10

// Snapshot is an immutable view of the system state. Pointers and slices in
// a published Snapshot are never written again.
type Snapshot struct {
	Reading *types.SensorReading // nil until the first successful cycle
	Battery *types.BatteryStatus // nil until the first successful sample
	Mode    types.DisplayMode
	History []uint16 // eCO2, oldest first

	ModeSwitchedAt     time.Time
	LastSensorAttempt  time.Time
	LastBatteryAttempt time.Time

	Seq uint64
}

// ReadingAge is the age of the reading at now, or -1 if there is none.
func (s Snapshot) ReadingAge(now time.Time) time.Duration {
	if s.Reading == nil {
		return -1
	}
	return now.Sub(s.Reading.CapturedAt)
}

// BatteryAge is the age of the battery status at now, or -1 if there is none.
func (s Snapshot) BatteryAge(now time.Time) time.Duration {
	if s.Battery == nil {
		return -1
	}
	return now.Sub(s.Battery.CapturedAt)
}

// Store publishes Snapshots through an atomic pointer swap. Mutators must be
// called from a single goroutine.
type Store struct {
	cur  atomic.Pointer[Snapshot]
	hist *ring.Ring[uint16] // writer-private
}

func NewStore(now time.Time) *Store {
	s := &Store{hist: ring.New[uint16](HistoryCapacity)}
	s.cur.Store(&Snapshot{Mode: types.ModeReadings, ModeSwitchedAt: now})
	return s
}

// Snapshot returns the current state. It never blocks.
func (s *Store) Snapshot() Snapshot { return *s.cur.Load() }

// Seq returns the sequence number of the current state.
func (s *Store) Seq() uint64 { return s.cur.Load().Seq }

func (s *Store) next() Snapshot {
	n := *s.cur.Load()
	n.Seq++
	return n
}

func (s *Store) publish(n Snapshot) { s.cur.Store(&n) }

// ApplyReading replaces the reading, appends its eCO2 to the history and
// records the attempt time, as one update.
func (s *Store) ApplyReading(r types.SensorReading) {
	n := s.next()
	n.Reading = &r
	s.hist.Push(r.ECO2)
	n.History = s.hist.AppendTo(make([]uint16, 0, s.hist.Len()))
	n.LastSensorAttempt = r.CapturedAt
	s.publish(n)
}

// MarkSensorFailed records a failed sensor cycle. Reading and history keep
// their previous values.
func (s *Store) MarkSensorFailed(at time.Time) {
	n := s.next()
	n.LastSensorAttempt = at
	s.publish(n)
}

func (s *Store) ApplyBattery(b types.BatteryStatus) {
	n := s.next()
	n.Battery = &b
	n.LastBatteryAttempt = b.CapturedAt
	s.publish(n)
}

// MarkBatteryFailed records a failed battery sample; the last status is kept.
func (s *Store) MarkBatteryFailed(at time.Time) {
	n := s.next()
	n.LastBatteryAttempt = at
	s.publish(n)
}

// SwitchMode advances the display mode and returns the new one.
func (s *Store) SwitchMode(at time.Time) types.DisplayMode {
	n := s.next()
	n.Mode = n.Mode.Next()
	n.ModeSwitchedAt = at
	s.publish(n)
	return n.Mode
}

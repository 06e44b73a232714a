package display

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"aqmonitor-go/bus"
	"aqmonitor-go/event"
	"aqmonitor-go/state"
	"aqmonitor-go/types"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recordingSink struct {
	mu    sync.Mutex
	snaps []state.Snapshot
	fail  bool
}

func (r *recordingSink) Render(_ context.Context, s state.Snapshot) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.snaps = append(r.snaps, s)
	if r.fail {
		return errors.New("nack")
	}
	return nil
}

func (r *recordingSink) last() (state.Snapshot, int) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if len(r.snaps) == 0 {
		return state.Snapshot{}, 0
	}
	return r.snaps[len(r.snaps)-1], len(r.snaps)
}

func TestRendersLatestSnapshotOnSignal(t *testing.T) {
	t0 := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)
	store := state.NewStore(t0)
	b := bus.NewBus(4)
	orch := b.NewConnection("orch")
	sink := &recordingSink{}
	beats := make(chan struct{}, 16)
	svc := New(store, sink, b.NewConnection("display"), func() { beats <- struct{}{} })

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	svc.Start(ctx)

	store.ApplyReading(types.SensorReading{ECO2: 418, CapturedAt: t0})
	event.SignalRefresh(orch, store.Seq())

	require.Eventually(t, func() bool {
		s, _ := sink.last()
		return s.Reading != nil && s.Reading.ECO2 == 418
	}, time.Second, time.Millisecond)
	<-beats

	s, n := sink.last()
	assert.Equal(t, 1, n)
	assert.Equal(t, uint64(1), s.Seq)
}

func TestRenderFailureKeepsRunning(t *testing.T) {
	t0 := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)
	store := state.NewStore(t0)
	b := bus.NewBus(4)
	orch := b.NewConnection("orch")
	sink := &recordingSink{fail: true}
	svc := New(store, sink, b.NewConnection("display"), nil)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	svc.Start(ctx)

	event.SignalRefresh(orch, 0)
	require.Eventually(t, func() bool { _, n := sink.last(); return n == 1 }, time.Second, time.Millisecond)

	sink.mu.Lock()
	sink.fail = false
	sink.mu.Unlock()
	store.SwitchMode(t0.Add(10 * time.Second))
	event.SignalRefresh(orch, store.Seq())
	require.Eventually(t, func() bool {
		s, n := sink.last()
		return n == 2 && s.Mode == types.ModeHistory
	}, time.Second, time.Millisecond)
}

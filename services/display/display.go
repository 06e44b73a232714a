// Package display runs the display unit: it waits for the orchestrator's
// refresh signal, takes a snapshot of the system state and hands it to a
// Sink. It never writes state.
package display

import (
	"context"

	"aqmonitor-go/bus"
	"aqmonitor-go/event"
	"aqmonitor-go/state"
)

// Sink turns a snapshot into pixels. Render may block for the duration of
// the output transaction.
type Sink interface {
	Render(ctx context.Context, snap state.Snapshot) error
}

// Snapshotter is the read side of the state store.
type Snapshotter interface {
	Snapshot() state.Snapshot
}

type Service struct {
	src  Snapshotter
	sink Sink
	conn *bus.Connection
	beat func()
}

func New(src Snapshotter, sink Sink, conn *bus.Connection, beat func()) *Service {
	if beat == nil {
		beat = func() {}
	}
	return &Service{src: src, sink: sink, conn: conn, beat: beat}
}

// Start subscribes to the refresh signal before returning and runs the
// unit in its own goroutine.
func (s *Service) Start(ctx context.Context) {
	sub := s.conn.SubscribeN(event.TopicRefresh, 1)
	go s.run(ctx, sub)
}

func (s *Service) run(ctx context.Context, sub *bus.Subscription) {
	defer s.conn.Unsubscribe(sub)
	println("[display] started")
	for {
		select {
		case <-ctx.Done():
			println("[display] stopping")
			return
		case <-sub.Channel():
			s.refresh(ctx)
			s.beat()
		}
	}
}

// refresh renders the current snapshot. A failed render is retried on the
// next signal; the state is never touched.
func (s *Service) refresh(ctx context.Context) {
	snap := s.src.Snapshot()
	if err := s.sink.Render(ctx, snap); err != nil {
		println("[display] render failed:", err.Error())
	}
}

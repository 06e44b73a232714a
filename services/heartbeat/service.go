// Package heartbeat prints a periodic one-line status summary. The interval
// follows the retained config/heartbeat section; zero switches it off.
package heartbeat

import (
	"context"
	"time"

	"aqmonitor-go/bus"
	"aqmonitor-go/services/config"
	"aqmonitor-go/state"
	"aqmonitor-go/x/conv"
	"aqmonitor-go/x/timex"
)

var topicConfigHeartbeat = bus.T("config", "heartbeat")

type Snapshotter interface {
	Snapshot() state.Snapshot
}

type Service struct {
	src   Snapshotter
	clock timex.Clock
	start time.Time
	emit  func(string)
}

func New(src Snapshotter, clock timex.Clock) *Service {
	return &Service{
		src:   src,
		clock: clock,
		start: clock.Now(),
		emit:  func(s string) { println(s) },
	}
}

// Start subscribes before returning so the retained config is not missed.
func (s *Service) Start(ctx context.Context, conn *bus.Connection) {
	sub := conn.Subscribe(topicConfigHeartbeat)
	go s.serviceLoop(ctx, conn, sub)
}

func (s *Service) serviceLoop(ctx context.Context, conn *bus.Connection, cfgSub *bus.Subscription) {
	defer conn.Unsubscribe(cfgSub)

	var tick timex.Ticker
	var tickC <-chan time.Time
	defer func() {
		if tick != nil {
			tick.Stop()
		}
	}()

	for {
		select {
		case <-ctx.Done():
			println("[heartbeat] stopping")
			return
		case <-tickC:
			now := s.clock.Now()
			s.emit(Line(s.src.Snapshot(), now, now.Sub(s.start)))
		case msg := <-cfgSub.Channel():
			hc, ok := msg.Payload.(config.HeartbeatConfig)
			if !ok {
				continue
			}
			switch {
			case hc.Interval <= 0:
				if tick != nil {
					tick.Stop()
					tick, tickC = nil, nil
				}
				println("[heartbeat] disabled")
			case tick == nil:
				tick = s.clock.NewTicker(hc.Interval)
				tickC = tick.C()
			default:
				tick.Reset(hc.Interval)
			}
		}
	}
}

// Line renders the status summary, e.g.
//
//	[heartbeat] up 3600s seq 42 mode readings co2 612 bat 3912mV
func Line(snap state.Snapshot, now time.Time, uptime time.Duration) string {
	var scratch [24]byte
	b := make([]byte, 0, 96)
	b = append(b, "[heartbeat] up "...)
	b = append(b, conv.Itoa(scratch[:], int64(uptime/time.Second))...)
	b = append(b, "s seq "...)
	b = append(b, conv.Itoa(scratch[:], int64(snap.Seq))...)
	b = append(b, " mode "...)
	b = append(b, snap.Mode.String()...)

	b = append(b, " co2 "...)
	if r := snap.Reading; r != nil {
		b = append(b, conv.Itoa(scratch[:], int64(r.ECO2))...)
		b = append(b, " age "...)
		b = append(b, conv.Itoa(scratch[:], int64(snap.ReadingAge(now)/time.Second))...)
		b = append(b, 's')
	} else {
		b = append(b, "--"...)
	}

	b = append(b, " bat "...)
	if bs := snap.Battery; bs != nil {
		b = append(b, conv.Itoa(scratch[:], int64(bs.MilliV))...)
		b = append(b, "mV"...)
		if bs.Charging {
			b = append(b, " chg"...)
		}
	} else {
		b = append(b, "--"...)
	}
	return string(b)
}

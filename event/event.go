// Package event names the bus topics the units talk over and the payloads
// carried on them. Producers use PublishWait so that no update is lost and
// each producer's updates arrive in order.
package event

import (
	"context"
	"time"

	"aqmonitor-go/bus"
	"aqmonitor-go/errcode"
	"aqmonitor-go/types"
)

var (
	TopicReading       = bus.T("sensor", "reading")
	TopicSensorFailed  = bus.T("sensor", "failed")
	TopicBattery       = bus.T("power", "battery")
	TopicBatteryFailed = bus.T("power", "failed")

	// Orchestrator input: everything under sensor/ and power/.
	FilterSensor = bus.T("sensor", bus.AnyRest)
	FilterPower  = bus.T("power", bus.AnyRest)

	// Retained latest-wins signal from orchestrator to display.
	TopicRefresh = bus.T("display", "refresh")

	// Retained per-section configuration, see services/config.
	TopicConfig = bus.T("config")
)

// Failure reports a cycle that produced no usable value.
type Failure struct {
	Unit types.Unit
	At   time.Time
	Code errcode.Code
}

// Refresh carries the snapshot sequence number the display should catch up to.
type Refresh struct {
	Seq uint64
}

func PublishReading(ctx context.Context, c *bus.Connection, r types.SensorReading) error {
	return c.PublishWait(ctx, c.NewMessage(TopicReading, r, false))
}

func PublishBattery(ctx context.Context, c *bus.Connection, b types.BatteryStatus) error {
	return c.PublishWait(ctx, c.NewMessage(TopicBattery, b, false))
}

// PublishFailure publishes on the failure topic of f.Unit.
func PublishFailure(ctx context.Context, c *bus.Connection, f Failure) error {
	t := TopicSensorFailed
	if f.Unit == types.UnitPower {
		t = TopicBatteryFailed
	}
	return c.PublishWait(ctx, c.NewMessage(t, f, false))
}

// SignalRefresh never blocks; a slow display only sees the latest signal.
func SignalRefresh(c *bus.Connection, seq uint64) {
	c.Publish(c.NewMessage(TopicRefresh, Refresh{Seq: seq}, true))
}

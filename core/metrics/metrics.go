// Package metrics defines the sink contract the poll loop reports into.
package metrics

import (
	"time"

	"github.com/kilianp07/chargepoint-mqtt/core/model"
)

// Cycle outcomes beyond the error kinds of core/charger.
const (
	OutcomeSuccess      = "success"
	OutcomePublishError = "publish_error"
)

// CycleEvent describes the result of one poll cycle.
type CycleEvent struct {
	// Outcome is "success", "publish_error" or an error kind
	// ("auth_error", "session_expired", "transient_error", "unexpected_shape").
	Outcome  string
	Stage    string
	Duration time.Duration
	Time     time.Time
}

// SnapshotEvent carries a successfully fetched snapshot.
type SnapshotEvent struct {
	Snapshot model.ChargerSnapshot
	Time     time.Time
}

// PublishEvent describes a single topic publish attempt.
type PublishEvent struct {
	Topic string
	OK    bool
	Time  time.Time
}

// MetricsSink records bridge activity. Implementations must be safe for use
// from the single poll goroutine; they are never called concurrently.
type MetricsSink interface {
	RecordCycle(CycleEvent) error
	RecordSnapshot(SnapshotEvent) error
	RecordPublish(PublishEvent) error
}

// NopSink discards all events.
type NopSink struct{}

func (NopSink) RecordCycle(CycleEvent) error       { return nil }
func (NopSink) RecordSnapshot(SnapshotEvent) error { return nil }
func (NopSink) RecordPublish(PublishEvent) error   { return nil }

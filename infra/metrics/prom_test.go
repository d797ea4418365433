package metrics

import (
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"

	coremetrics "github.com/kilianp07/chargepoint-mqtt/core/metrics"
	"github.com/kilianp07/chargepoint-mqtt/core/model"
)

func TestPromSinkRecordCycle(t *testing.T) {
	reg := prometheus.NewRegistry()
	sink, err := NewPromSinkWithRegistry(coremetrics.Config{}, reg)
	if err != nil {
		t.Fatalf("create sink: %v", err)
	}

	events := []coremetrics.CycleEvent{
		{Outcome: coremetrics.OutcomeSuccess, Stage: "publishing", Duration: 80 * time.Millisecond, Time: time.Now()},
		{Outcome: "transient_error", Stage: "fetching", Duration: 10 * time.Second, Time: time.Now()},
		{Outcome: coremetrics.OutcomeSuccess, Stage: "publishing", Duration: 90 * time.Millisecond, Time: time.Now()},
	}
	for _, ev := range events {
		if err := sink.RecordCycle(ev); err != nil {
			t.Fatalf("record cycle: %v", err)
		}
	}

	expected := `
# HELP chargepoint_poll_cycles_total Total number of poll cycles by outcome
# TYPE chargepoint_poll_cycles_total counter
chargepoint_poll_cycles_total{outcome="success"} 2
chargepoint_poll_cycles_total{outcome="transient_error"} 1
`
	if err := testutil.CollectAndCompare(sink.cycles, strings.NewReader(expected)); err != nil {
		t.Errorf("unexpected metrics: %v", err)
	}
}

func TestPromSinkRecordSnapshot(t *testing.T) {
	reg := prometheus.NewRegistry()
	sink, err := NewPromSinkWithRegistry(coremetrics.Config{}, reg)
	if err != nil {
		t.Fatalf("create sink: %v", err)
	}

	now := time.Now()
	ev := coremetrics.SnapshotEvent{
		Snapshot: model.ChargerSnapshot{Connected: true, PowerWatts: 7200},
		Time:     now,
	}
	if err := sink.RecordSnapshot(ev); err != nil {
		t.Fatalf("record snapshot: %v", err)
	}
	if got := testutil.ToFloat64(sink.connected); got != 1 {
		t.Errorf("connected gauge = %v", got)
	}
	if got := testutil.ToFloat64(sink.power); got != 7200 {
		t.Errorf("power gauge = %v", got)
	}
	if got := testutil.ToFloat64(sink.lastFetch); got != float64(now.Unix()) {
		t.Errorf("last fetch gauge = %v", got)
	}

	ev.Snapshot = model.ChargerSnapshot{}
	if err := sink.RecordSnapshot(ev); err != nil {
		t.Fatalf("record snapshot: %v", err)
	}
	if got := testutil.ToFloat64(sink.connected); got != 0 {
		t.Errorf("connected gauge after unplug = %v", got)
	}
}

func TestPromSinkRecordPublish(t *testing.T) {
	reg := prometheus.NewRegistry()
	sink, err := NewPromSinkWithRegistry(coremetrics.Config{}, reg)
	if err != nil {
		t.Fatalf("create sink: %v", err)
	}

	for _, ev := range []coremetrics.PublishEvent{
		{Topic: "chargepoint/connected", OK: true},
		{Topic: "chargepoint/power", OK: true},
		{Topic: "chargepoint/power", OK: false},
	} {
		if err := sink.RecordPublish(ev); err != nil {
			t.Fatalf("record publish: %v", err)
		}
	}

	expected := `
# HELP chargepoint_publishes_total Total number of publish attempts by topic and result
# TYPE chargepoint_publishes_total counter
chargepoint_publishes_total{ok="true",topic="chargepoint/connected"} 1
chargepoint_publishes_total{ok="true",topic="chargepoint/power"} 1
chargepoint_publishes_total{ok="false",topic="chargepoint/power"} 1
`
	if err := testutil.CollectAndCompare(sink.publishes, strings.NewReader(expected)); err != nil {
		t.Errorf("unexpected metrics: %v", err)
	}
}

func TestPromSinkDoubleRegistration(t *testing.T) {
	reg := prometheus.NewRegistry()
	if _, err := NewPromSinkWithRegistry(coremetrics.Config{}, reg); err != nil {
		t.Fatalf("first registration: %v", err)
	}
	if _, err := NewPromSinkWithRegistry(coremetrics.Config{}, reg); err != nil {
		t.Fatalf("second registration should reuse collectors: %v", err)
	}
}

// Package poller implements the poll-authenticate-publish control loop.
//
// One cycle runs authenticate, fetch, publish in sequence and then sleeps.
// Cycles never overlap and no cycle failure is ever fatal: the loop only
// stops when its context is cancelled. Downstream subscribers keep the last
// retained values across failed cycles.
package poller

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/kilianp07/chargepoint-mqtt/core/charger"
	"github.com/kilianp07/chargepoint-mqtt/core/logger"
	"github.com/kilianp07/chargepoint-mqtt/core/metrics"
	"github.com/kilianp07/chargepoint-mqtt/core/model"
	"github.com/kilianp07/chargepoint-mqtt/core/monitoring"
	"github.com/kilianp07/chargepoint-mqtt/core/mqtt"
)

// Cycle stages, used in logs and metrics.
const (
	StageAuthenticating = "authenticating"
	StageFetching       = "fetching"
	StagePublishing     = "publishing"
)

// Topics names the two retained output topics.
type Topics struct {
	Connected string
	Power     string
}

// Poller drives the bridge: SessionManager for login state, StatusFetcher for
// snapshots, Publisher for the broker side.
type Poller struct {
	sessions charger.SessionManager
	fetcher  charger.StatusFetcher
	pub      mqtt.Publisher
	topics   Topics
	interval time.Duration
	sink     metrics.MetricsSink
	log      logger.Logger
}

// New creates a Poller. A nil sink disables metrics.
func New(sessions charger.SessionManager, fetcher charger.StatusFetcher, pub mqtt.Publisher,
	topics Topics, interval time.Duration, sink metrics.MetricsSink, log logger.Logger) *Poller {
	if sink == nil {
		sink = metrics.NopSink{}
	}
	return &Poller{
		sessions: sessions,
		fetcher:  fetcher,
		pub:      pub,
		topics:   topics,
		interval: interval,
		sink:     sink,
		log:      log,
	}
}

// Run executes cycles until ctx is cancelled. The configured interval is a
// floor on the spacing between cycle starts; cancellation interrupts the
// sleep immediately.
func (p *Poller) Run(ctx context.Context) error {
	p.log.Infof("poll loop started, interval %s, topics %s %s",
		p.interval, p.topics.Connected, p.topics.Power)
	for {
		p.Cycle(ctx)
		timer := time.NewTimer(p.interval)
		select {
		case <-ctx.Done():
			timer.Stop()
			p.log.Infof("poll loop stopping: %v", ctx.Err())
			return nil
		case <-timer.C:
		}
	}
}

// Cycle runs a single authenticate-fetch-publish pass. Errors are logged and
// counted, never propagated: the next scheduled cycle always proceeds.
func (p *Poller) Cycle(ctx context.Context) {
	start := time.Now()
	cycleID := uuid.NewString()

	snap, stage, err := p.observe(ctx)
	if err != nil {
		kind := charger.Kind(err)
		p.log.Errorf("cycle %s failed while %s (%s): %v", cycleID, stage, kind, err)
		monitoring.CaptureException(err, map[string]string{"stage": stage, "kind": kind})
		p.record(metrics.CycleEvent{Outcome: kind, Stage: stage, Duration: time.Since(start), Time: start})
		return
	}

	p.log.Infof("cycle %s charger status: connected=%s power=%sW",
		cycleID, snap.ConnectedPayload(), snap.PowerPayload())
	if err := p.sink.RecordSnapshot(metrics.SnapshotEvent{Snapshot: snap, Time: start}); err != nil {
		p.log.Warnf("record snapshot: %v", err)
	}

	outcome := metrics.OutcomeSuccess
	if failed := p.publish(cycleID, snap); failed > 0 {
		outcome = metrics.OutcomePublishError
	}
	p.record(metrics.CycleEvent{Outcome: outcome, Stage: StagePublishing, Duration: time.Since(start), Time: start})
}

// observe ensures a session and fetches a snapshot. An expired session is
// invalidated and retried once with a fresh login; a second expiry in the
// same cycle is reported as transient and waits for the next cycle.
func (p *Poller) observe(ctx context.Context) (model.ChargerSnapshot, string, error) {
	sess, err := p.sessions.EnsureSession(ctx)
	if err != nil {
		return model.ChargerSnapshot{}, StageAuthenticating, err
	}

	snap, err := p.fetcher.Fetch(ctx, sess)
	if errors.Is(err, charger.ErrSessionExpired) {
		p.log.Warnf("session %s expired, re-authenticating", sess.ID())
		p.sessions.Invalidate()
		sess, err = p.sessions.EnsureSession(ctx)
		if err != nil {
			return model.ChargerSnapshot{}, StageAuthenticating, err
		}
		snap, err = p.fetcher.Fetch(ctx, sess)
		if errors.Is(err, charger.ErrSessionExpired) {
			// Deliberately drops the sentinel so the cycle counts as transient.
			return model.ChargerSnapshot{}, StageFetching,
				fmt.Errorf("session expired twice in one cycle: %v", err)
		}
	}
	if err != nil {
		return model.ChargerSnapshot{}, StageFetching, err
	}
	return snap, StageFetching, nil
}

// publish emits both retained values. The two publishes are independent; a
// failure on one never blocks the other. Returns the number of failures.
func (p *Poller) publish(cycleID string, snap model.ChargerSnapshot) int {
	failed := 0
	for _, m := range []struct{ topic, payload string }{
		{p.topics.Connected, snap.ConnectedPayload()},
		{p.topics.Power, snap.PowerPayload()},
	} {
		err := p.pub.PublishRetained(m.topic, m.payload)
		if rerr := p.sink.RecordPublish(metrics.PublishEvent{Topic: m.topic, OK: err == nil, Time: time.Now()}); rerr != nil {
			p.log.Warnf("record publish: %v", rerr)
		}
		if err != nil {
			failed++
			p.log.Errorf("cycle %s publish %s: %v", cycleID, m.topic, err)
			monitoring.CaptureException(err, map[string]string{"stage": StagePublishing, "topic": m.topic})
			continue
		}
		p.log.Debugf("cycle %s published %s=%s", cycleID, m.topic, m.payload)
	}
	return failed
}

func (p *Poller) record(ev metrics.CycleEvent) {
	if err := p.sink.RecordCycle(ev); err != nil {
		p.log.Warnf("record cycle: %v", err)
	}
}

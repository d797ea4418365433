package metrics

import (
	"strconv"

	"github.com/prometheus/client_golang/prometheus"

	coremetrics "github.com/kilianp07/chargepoint-mqtt/core/metrics"
)

// PromSink records bridge activity in Prometheus metrics.
type PromSink struct {
	cycles    *prometheus.CounterVec
	duration  prometheus.Histogram
	publishes *prometheus.CounterVec
	connected prometheus.Gauge
	power     prometheus.Gauge
	lastFetch prometheus.Gauge
}

// NewPromSink registers bridge metrics on the default Prometheus registerer.
// The Prometheus server should be started separately using cfg.PrometheusPort.
func NewPromSink(cfg coremetrics.Config) (coremetrics.MetricsSink, error) {
	return NewPromSinkWithRegistry(cfg, prometheus.DefaultRegisterer)
}

// NewPromSinkWithRegistry registers metrics on the provided registerer.
// A nil registerer defaults to the global Prometheus registerer.
func NewPromSinkWithRegistry(_ coremetrics.Config, reg prometheus.Registerer) (*PromSink, error) {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	cycles := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "chargepoint_poll_cycles_total",
		Help: "Total number of poll cycles by outcome",
	}, []string{"outcome"})
	duration := prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "chargepoint_cycle_duration_seconds",
		Help:    "Duration of one poll cycle",
		Buckets: prometheus.DefBuckets,
	})
	publishes := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "chargepoint_publishes_total",
		Help: "Total number of publish attempts by topic and result",
	}, []string{"topic", "ok"})
	connected := prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "chargepoint_connected",
		Help: "Whether a vehicle is plugged in (1) or not (0)",
	})
	power := prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "chargepoint_power_watts",
		Help: "Instantaneous charging power in watts",
	})
	lastFetch := prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "chargepoint_last_success_timestamp_seconds",
		Help: "Unix time of the last successful status fetch",
	})

	s := &PromSink{
		cycles:    cycles,
		duration:  duration,
		publishes: publishes,
		connected: connected,
		power:     power,
		lastFetch: lastFetch,
	}
	for _, c := range []prometheus.Collector{cycles, duration, publishes, connected, power, lastFetch} {
		if err := reg.Register(c); err != nil {
			if _, ok := err.(prometheus.AlreadyRegisteredError); !ok {
				return nil, err
			}
		}
	}
	return s, nil
}

// RecordCycle increments the cycle counter and observes the duration.
func (s *PromSink) RecordCycle(ev coremetrics.CycleEvent) error {
	s.cycles.WithLabelValues(ev.Outcome).Inc()
	s.duration.Observe(ev.Duration.Seconds())
	return nil
}

// RecordSnapshot updates the charger gauges.
func (s *PromSink) RecordSnapshot(ev coremetrics.SnapshotEvent) error {
	if ev.Snapshot.Connected {
		s.connected.Set(1)
	} else {
		s.connected.Set(0)
	}
	s.power.Set(ev.Snapshot.PowerWatts)
	s.lastFetch.Set(float64(ev.Time.Unix()))
	return nil
}

// RecordPublish counts a publish attempt per topic.
func (s *PromSink) RecordPublish(ev coremetrics.PublishEvent) error {
	s.publishes.WithLabelValues(ev.Topic, strconv.FormatBool(ev.OK)).Inc()
	return nil
}

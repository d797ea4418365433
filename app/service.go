package app

import (
	"context"
	"fmt"
	"time"

	"github.com/kilianp07/chargepoint-mqtt/config"
	coremetrics "github.com/kilianp07/chargepoint-mqtt/core/metrics"
	coremon "github.com/kilianp07/chargepoint-mqtt/core/monitoring"
	"github.com/kilianp07/chargepoint-mqtt/core/poller"
	"github.com/kilianp07/chargepoint-mqtt/infra/chargepoint"
	"github.com/kilianp07/chargepoint-mqtt/infra/logger"
	"github.com/kilianp07/chargepoint-mqtt/infra/metrics"
	"github.com/kilianp07/chargepoint-mqtt/infra/monitoring"
	"github.com/kilianp07/chargepoint-mqtt/infra/mqtt"
)

// Service wires the poll loop to the vendor client, the broker publisher and
// the metrics sinks.
type Service struct {
	poller      *poller.Poller
	pub         *mqtt.Publisher
	log         logger.Logger
	promEnabled bool
	promPort    string
}

// New creates a Service from the configuration.
func New(cfg *config.Config) (*Service, error) {
	logg := logger.New("service")

	mon, err := monitoring.NewSentryMonitor(cfg.Sentry)
	if err != nil {
		return nil, fmt.Errorf("sentry: %w", err)
	}
	coremon.Init(mon)

	pub, err := mqtt.NewPublisher(cfg.MQTT)
	if err != nil {
		return nil, fmt.Errorf("mqtt publisher: %w", err)
	}

	var sinks []coremetrics.MetricsSink
	if cfg.Metrics.PrometheusEnabled {
		sink, err := metrics.NewPromSink(cfg.Metrics)
		if err != nil {
			return nil, fmt.Errorf("prom sink: %w", err)
		}
		sinks = append(sinks, sink)
	}
	if cfg.Metrics.InfluxEnabled {
		sinks = append(sinks, metrics.NewInfluxSinkWithFallback(cfg.Metrics))
	}
	var sink coremetrics.MetricsSink = coremetrics.NopSink{}
	if len(sinks) == 1 {
		sink = sinks[0]
	} else if len(sinks) > 1 {
		sink = metrics.NewMultiSink(sinks...)
	}

	cp := chargepoint.NewClient(cfg.ChargePoint)
	loop := poller.New(cp, cp, pub,
		poller.Topics{Connected: cfg.MQTT.TopicConnected, Power: cfg.MQTT.TopicPower},
		cfg.Poll.Interval(), sink, logger.New("poller"))

	return &Service{
		poller:      loop,
		pub:         pub,
		log:         logg,
		promEnabled: cfg.Metrics.PrometheusEnabled,
		promPort:    cfg.Metrics.PrometheusPort,
	}, nil
}

// Run starts the service and blocks until the context is cancelled.
func (s *Service) Run(ctx context.Context) error {
	if s.promEnabled {
		go func() {
			if err := metrics.StartPromServer(ctx, s.promPort); err != nil {
				s.log.Errorf("prom server: %v", err)
			}
		}()
	}
	return s.poller.Run(ctx)
}

// Close releases resources held by the service.
func (s *Service) Close() error {
	s.pub.Disconnect()
	coremon.Flush(2 * time.Second)
	return nil
}

// Package mqtt implements the retained-value publisher on top of Eclipse Paho.
package mqtt

import (
	"fmt"
	"time"

	paho "github.com/eclipse/paho.mqtt.golang"

	coremqtt "github.com/kilianp07/chargepoint-mqtt/core/mqtt"
	"github.com/kilianp07/chargepoint-mqtt/infra/logger"
)

// pahoClient is the slice of the Paho API the publisher uses, kept narrow so
// tests can inject a mock.
type pahoClient interface {
	IsConnected() bool
	Connect() paho.Token
	Disconnect(quiesce uint)
	Publish(topic string, qos byte, retained bool, payload interface{}) paho.Token
}

var newMQTTClient = func(opts *paho.ClientOptions) pahoClient {
	return paho.NewClient(opts)
}

// Publisher implements core/mqtt.Publisher. The underlying Paho client owns
// the connection lifecycle: it reconnects in the background with bounded
// exponential backoff, decoupled from the poll cadence. Publishes issued
// while disconnected fail fast with ErrNotConnected.
type Publisher struct {
	cli     pahoClient
	qos     byte
	timeout time.Duration
	log     logger.Logger
}

// NewPublisher connects to the broker and returns a Publisher. A broker that
// is down at startup is not fatal: the client keeps retrying in the
// background and publishes fail with ErrNotConnected until it succeeds.
func NewPublisher(cfg Config) (*Publisher, error) {
	cfg.SetDefaults()
	log := logger.New("mqtt_publisher")

	opts, err := NewClientOptions(cfg)
	if err != nil {
		return nil, err
	}
	opts.OnConnect = func(_ paho.Client) {
		log.Infof("connected to broker %s", cfg.BrokerURL())
	}
	opts.OnConnectionLost = func(_ paho.Client, err error) {
		log.Errorf("connection lost: %v", err)
	}
	opts.OnReconnecting = func(_ paho.Client, _ *paho.ClientOptions) {
		log.Warnf("reconnecting to broker")
	}

	cli := newMQTTClient(opts)
	token := cli.Connect()
	// ConnectRetry keeps trying in the background, so an unreachable broker
	// at startup is not fatal; publishes fail with ErrNotConnected until the
	// connection comes up.
	if !token.WaitTimeout(5 * time.Second) {
		log.Warnf("broker %s not reachable yet, retrying in background", cfg.BrokerURL())
	} else if err := token.Error(); err != nil {
		return nil, fmt.Errorf("broker connect: %w", err)
	}
	return &Publisher{cli: cli, qos: cfg.QoS, timeout: cfg.PublishTimeout(), log: log}, nil
}

// NewClientOptions builds Paho client options from Config.
func NewClientOptions(cfg Config) (*paho.ClientOptions, error) {
	opts := paho.NewClientOptions().
		AddBroker(cfg.BrokerURL()).
		SetClientID(cfg.ClientID).
		SetConnectTimeout(5 * time.Second).
		SetAutoReconnect(true).
		SetConnectRetry(true).
		SetConnectRetryInterval(time.Duration(cfg.BackoffMS) * time.Millisecond).
		SetMaxReconnectInterval(time.Duration(cfg.MaxBackoffMS) * time.Millisecond)
	if cfg.Username != "" {
		opts.SetUsername(cfg.Username)
	}
	if cfg.Password != "" {
		opts.SetPassword(cfg.Password)
	}
	if cfg.UseTLS {
		tlsCfg, err := cfg.LoadTLSConfig()
		if err != nil {
			return nil, err
		}
		opts.SetTLSConfig(tlsCfg)
	}
	if cfg.LWTTopic != "" {
		opts.SetWill(cfg.LWTTopic, cfg.LWTPayload, cfg.LWTQoS, cfg.LWTRetain)
	}
	return opts, nil
}

// PublishRetained publishes payload on topic with the retained flag set so
// late subscribers immediately receive the last known value.
func (p *Publisher) PublishRetained(topic, payload string) error {
	if !p.cli.IsConnected() {
		return fmt.Errorf("publish %s: %w", topic, coremqtt.ErrNotConnected)
	}
	token := p.cli.Publish(topic, p.qos, true, []byte(payload))
	if !token.WaitTimeout(p.timeout) {
		return fmt.Errorf("publish %s: confirmation timeout after %s", topic, p.timeout)
	}
	if err := token.Error(); err != nil {
		return fmt.Errorf("publish %s: %w", topic, err)
	}
	return nil
}

// Disconnect gracefully closes the broker connection.
func (p *Publisher) Disconnect() {
	if p.cli != nil && p.cli.IsConnected() {
		p.cli.Disconnect(250)
	}
}

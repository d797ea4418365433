package mqtt

import (
	"crypto/tls"
	"crypto/x509"
	"fmt"
	"os"
	"strings"
	"time"
)

// Config defines the connection parameters for the Paho MQTT client.
type Config struct {
	Broker   string `json:"broker"`
	Port     int    `json:"port"`
	ClientID string `json:"client_id"`
	Username string `json:"username"`
	Password string `json:"password"`

	TopicPrefix    string `json:"topic_prefix"`
	TopicConnected string `json:"topic_connected"`
	TopicPower     string `json:"topic_power"`
	QoS            byte   `json:"qos"`

	UseTLS     bool   `json:"use_tls"`
	ClientCert string `json:"client_cert"`
	ClientKey  string `json:"client_key"`
	CABundle   string `json:"ca_bundle"`

	LWTTopic   string `json:"lwt_topic"`
	LWTPayload string `json:"lwt_payload"`
	LWTQoS     byte   `json:"lwt_qos"`
	LWTRetain  bool   `json:"lwt_retain"`

	// Reconnect backoff: the client retries from BackoffMS up to
	// MaxBackoffMS, doubling each attempt.
	BackoffMS    int `json:"backoff_ms"`
	MaxBackoffMS int `json:"max_backoff_ms"`
	// PublishTimeoutMS bounds how long a publish waits for broker
	// confirmation before reporting failure.
	PublishTimeoutMS int `json:"publish_timeout_ms"`

	TLSConfig *tls.Config `json:"-"`
}

// SetDefaults applies broker, topic and backoff defaults.
func (c *Config) SetDefaults() {
	if c.Broker == "" {
		c.Broker = "localhost"
	}
	if c.Port == 0 {
		c.Port = 1883
	}
	if c.ClientID == "" {
		c.ClientID = "chargepoint-mqtt"
	}
	if c.TopicPrefix == "" {
		c.TopicPrefix = "chargepoint"
	}
	if c.TopicConnected == "" {
		c.TopicConnected = c.TopicPrefix + "/connected"
	}
	if c.TopicPower == "" {
		c.TopicPower = c.TopicPrefix + "/power"
	}
	if c.BackoffMS == 0 {
		c.BackoffMS = 1000
	}
	if c.MaxBackoffMS == 0 {
		c.MaxBackoffMS = 60000
	}
	if c.PublishTimeoutMS == 0 {
		c.PublishTimeoutMS = 10000
	}
}

// Validate checks field consistency.
func (c Config) Validate() error {
	if c.Port <= 0 || c.Port > 65535 {
		return fmt.Errorf("invalid mqtt port %d", c.Port)
	}
	if c.QoS > 2 {
		return fmt.Errorf("invalid qos %d", c.QoS)
	}
	if c.BackoffMS > c.MaxBackoffMS {
		return fmt.Errorf("backoff_ms %d exceeds max_backoff_ms %d", c.BackoffMS, c.MaxBackoffMS)
	}
	return nil
}

// BrokerURL composes the broker URL. A broker value that already carries a
// scheme is used verbatim.
func (c Config) BrokerURL() string {
	if strings.Contains(c.Broker, "://") {
		return c.Broker
	}
	scheme := "tcp"
	if c.UseTLS {
		scheme = "ssl"
	}
	return fmt.Sprintf("%s://%s:%d", scheme, c.Broker, c.Port)
}

// PublishTimeout returns the publish confirmation timeout.
func (c Config) PublishTimeout() time.Duration {
	return time.Duration(c.PublishTimeoutMS) * time.Millisecond
}

// LoadTLSConfig loads the TLS configuration from the file paths in the config.
func (c Config) LoadTLSConfig() (*tls.Config, error) {
	if c.TLSConfig != nil {
		return c.TLSConfig, nil
	}
	if c.CABundle == "" {
		return nil, fmt.Errorf("tls config requires ca_bundle")
	}
	caBytes, err := os.ReadFile(c.CABundle)
	if err != nil {
		return nil, fmt.Errorf("read ca: %w", err)
	}
	pool := x509.NewCertPool()
	pool.AppendCertsFromPEM(caBytes)
	cfg := &tls.Config{RootCAs: pool, MinVersion: tls.VersionTLS12}
	if c.ClientCert != "" || c.ClientKey != "" {
		cert, err := tls.LoadX509KeyPair(c.ClientCert, c.ClientKey)
		if err != nil {
			return nil, fmt.Errorf("load cert: %w", err)
		}
		cfg.Certificates = []tls.Certificate{cert}
	}
	return cfg, nil
}

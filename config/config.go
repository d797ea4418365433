package config

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/knadh/koanf/parsers/json"
	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"

	coremetrics "github.com/kilianp07/chargepoint-mqtt/core/metrics"
	"github.com/kilianp07/chargepoint-mqtt/infra/chargepoint"
	"github.com/kilianp07/chargepoint-mqtt/infra/mqtt"
)

type Config struct {
	ChargePoint chargepoint.Config `json:"chargepoint"`
	MQTT        mqtt.Config        `json:"mqtt"`
	Poll        PollConfig         `json:"poll"`
	Metrics     coremetrics.Config `json:"metrics"`
	Sentry      SentryConfig       `json:"sentry"`
}

// envKeys maps the flat environment variable names the bridge has always
// used onto config keys. Unknown variables are ignored.
var envKeys = map[string]string{
	"CHARGEPOINT_USERNAME":  "chargepoint.username",
	"CHARGEPOINT_PASSWORD":  "chargepoint.password",
	"CHARGEPOINT_API_URL":   "chargepoint.api_url",
	"CHARGEPOINT_DEVICE_ID": "chargepoint.device_id",
	"MQTT_BROKER":           "mqtt.broker",
	"MQTT_PORT":             "mqtt.port",
	"MQTT_USERNAME":         "mqtt.username",
	"MQTT_PASSWORD":         "mqtt.password",
	"MQTT_CLIENT_ID":        "mqtt.client_id",
	"MQTT_TOPIC_PREFIX":     "mqtt.topic_prefix",
	"MQTT_TOPIC_CONNECTED":  "mqtt.topic_connected",
	"MQTT_TOPIC_POWER":      "mqtt.topic_power",
	"POLL_INTERVAL":         "poll.interval_seconds",
}

// Load builds the configuration from an optional YAML/JSON file and the
// environment. Environment variables always override file values.
func Load(path string) (*Config, error) {
	k := koanf.New(".")
	if path != "" {
		ext := strings.ToLower(filepath.Ext(path))
		var parser koanf.Parser
		switch ext {
		case ".yaml", ".yml":
			parser = yaml.Parser()
		case ".json":
			parser = json.Parser()
		default:
			return nil, fmt.Errorf("unsupported config format: %s", ext)
		}
		if err := k.Load(file.Provider(path), parser); err != nil {
			return nil, err
		}
	}
	if err := k.Load(env.Provider("", ".", func(s string) string {
		return envKeys[s]
	}), nil); err != nil {
		return nil, err
	}
	var cfg Config
	if err := k.UnmarshalWithConf("", &cfg, koanf.UnmarshalConf{Tag: "json"}); err != nil {
		return nil, err
	}
	cfg.ChargePoint.SetDefaults()
	cfg.MQTT.SetDefaults()
	cfg.Poll.SetDefaults()
	cfg.Metrics.SetDefaults()
	if err := cfg.ChargePoint.Validate(); err != nil {
		return nil, err
	}
	if err := cfg.MQTT.Validate(); err != nil {
		return nil, err
	}
	if err := cfg.Poll.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

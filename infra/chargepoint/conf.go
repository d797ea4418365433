package chargepoint

import "fmt"

// Config defines the ChargePoint account and endpoint settings.
type Config struct {
	Username string `json:"username"`
	Password string `json:"password"`
	// APIURL is the account API base URL, overridable for tests and
	// regional endpoints.
	APIURL string `json:"api_url"`
	// DeviceID pins the bridge to a specific home charger. Zero means the
	// first charger on the account is used.
	DeviceID       int `json:"device_id"`
	TimeoutSeconds int `json:"timeout_seconds"`
}

// SetDefaults applies endpoint and timeout defaults.
func (c *Config) SetDefaults() {
	if c.APIURL == "" {
		c.APIURL = "https://account.chargepoint.com"
	}
	if c.TimeoutSeconds == 0 {
		c.TimeoutSeconds = 10
	}
}

// Validate checks mandatory fields.
func (c Config) Validate() error {
	if c.Username == "" || c.Password == "" {
		return fmt.Errorf("chargepoint username and password are required")
	}
	return nil
}

package config

import (
	"fmt"
	"time"
)

// PollConfig controls the cadence of the poll loop.
type PollConfig struct {
	// IntervalSeconds is the floor on spacing between cycle starts.
	IntervalSeconds int `json:"interval_seconds"`
}

// SetDefaults applies the historical 60 second default.
func (c *PollConfig) SetDefaults() {
	if c.IntervalSeconds == 0 {
		c.IntervalSeconds = 60
	}
}

// Validate checks the interval invariant.
func (c PollConfig) Validate() error {
	if c.IntervalSeconds <= 0 {
		return fmt.Errorf("poll interval must be positive, got %d", c.IntervalSeconds)
	}
	return nil
}

// Interval returns the poll interval as a duration.
func (c PollConfig) Interval() time.Duration {
	return time.Duration(c.IntervalSeconds) * time.Second
}

package model

import (
	"strconv"
	"strings"
)

// Charger status strings reported by the ChargePoint API.
const (
	StatusCharging  = "CHARGING"
	StatusInUse     = "INUSE"
	StatusAvailable = "AVAILABLE"
)

// ChargerSnapshot is one normalized read of the charger at a point in time.
// Connected is true whenever a vehicle is plugged in, whether or not current
// is flowing. PowerWatts is never negative.
type ChargerSnapshot struct {
	Connected  bool
	PowerWatts float64
}

// NewChargerSnapshot normalizes a raw vendor status into a snapshot.
// The API reports power in kilowatts. A disconnected charger always reads
// zero watts regardless of what the API returned.
func NewChargerSnapshot(status string, powerKW float64) ChargerSnapshot {
	connected := Connected(status)
	watts := powerKW * 1000
	if !connected || watts < 0 {
		watts = 0
	}
	return ChargerSnapshot{Connected: connected, PowerWatts: watts}
}

// Connected reports whether the given vendor status means a vehicle is
// plugged in. Comparison is case-insensitive; unknown statuses count as
// disconnected.
func Connected(status string) bool {
	switch strings.ToUpper(strings.TrimSpace(status)) {
	case StatusCharging, StatusInUse:
		return true
	default:
		return false
	}
}

// ConnectedPayload returns the wire payload for the connected topic: "1" or "0".
func (s ChargerSnapshot) ConnectedPayload() string {
	if s.Connected {
		return "1"
	}
	return "0"
}

// PowerPayload returns the wire payload for the power topic: watts with one
// decimal, e.g. "7200.0".
func (s ChargerSnapshot) PowerPayload() string {
	return strconv.FormatFloat(s.PowerWatts, 'f', 1, 64)
}

package model

import "testing"

func TestNewChargerSnapshot(t *testing.T) {
	cases := []struct {
		name      string
		status    string
		powerKW   float64
		connected bool
		watts     float64
	}{
		{"charging", "CHARGING", 7.2, true, 7200},
		{"in use no draw", "INUSE", 0, true, 0},
		{"available", "AVAILABLE", 0, false, 0},
		{"available with stale power", "AVAILABLE", 3.1, false, 0},
		{"lowercase status", "charging", 1.5, true, 1500},
		{"padded status", " inuse ", 0.5, true, 500},
		{"unknown status", "OFFLINE", 2.0, false, 0},
		{"empty status", "", 0, false, 0},
		{"negative power clamped", "CHARGING", -1.2, true, 0},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			snap := NewChargerSnapshot(c.status, c.powerKW)
			if snap.Connected != c.connected {
				t.Errorf("connected = %v, want %v", snap.Connected, c.connected)
			}
			if snap.PowerWatts != c.watts {
				t.Errorf("watts = %v, want %v", snap.PowerWatts, c.watts)
			}
		})
	}
}

func TestPayloads(t *testing.T) {
	cases := []struct {
		snap      ChargerSnapshot
		connected string
		power     string
	}{
		{ChargerSnapshot{Connected: true, PowerWatts: 7200}, "1", "7200.0"},
		{ChargerSnapshot{Connected: false, PowerWatts: 0}, "0", "0.0"},
		{ChargerSnapshot{Connected: true, PowerWatts: 1234.56}, "1", "1234.6"},
	}
	for _, c := range cases {
		if got := c.snap.ConnectedPayload(); got != c.connected {
			t.Errorf("connected payload = %q, want %q", got, c.connected)
		}
		if got := c.snap.PowerPayload(); got != c.power {
			t.Errorf("power payload = %q, want %q", got, c.power)
		}
	}
}

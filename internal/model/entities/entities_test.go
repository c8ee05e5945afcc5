package entities

import (
	"math"
	"testing"
)

func TestDeriveConnectionState(t *testing.T) {
	cases := []struct {
		associated, broker bool
		want               ConnectionState
	}{
		{false, false, Disconnected},
		{true, false, NetworkOnly},
		{true, true, Ready},
		{false, true, Disconnected}, // sessione senza rete: non conta
	}
	for _, c := range cases {
		if got := DeriveConnectionState(c.associated, c.broker); got != c.want {
			t.Errorf("Derive(%v,%v) = %v, want %v", c.associated, c.broker, got, c.want)
		}
	}
}

func TestClimateReadingValid(t *testing.T) {
	nan := math.NaN()
	if !(ClimateReading{Temperature: 22, Humidity: 55}).Valid() {
		t.Error("22/55 should be valid")
	}
	if (ClimateReading{Temperature: nan, Humidity: 55}).Valid() {
		t.Error("NaN temperature accepted")
	}
	if (ClimateReading{Temperature: 22, Humidity: nan}).Valid() {
		t.Error("NaN humidity accepted")
	}
}

func TestConnectionStateString(t *testing.T) {
	for s, want := range map[ConnectionState]string{
		Disconnected: "disconnected",
		NetworkOnly:  "network-only",
		Ready:        "ready",
	} {
		if s.String() != want {
			t.Errorf("%d.String() = %q", s, s.String())
		}
	}
}

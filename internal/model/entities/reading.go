package entities

import (
	"math"
	"time"
)

// ClimateReading holds one temperature/humidity pair from the climate sensor.
// Either field may be NaN when the sensor returned garbage.
type ClimateReading struct {
	Temperature float64 `json:"temperature"` // °C
	Humidity    float64 `json:"humidity"`    // %RH
}

// Valid reports whether both values are usable. A half-valid reading counts as a failure.
func (c ClimateReading) Valid() bool {
	return !math.IsNaN(c.Temperature) && !math.IsNaN(c.Humidity)
}

// Snapshot is everything sampled during a single cycle.
type Snapshot struct {
	EchoDuration time.Duration  `json:"echo_duration"`
	Distance     float64        `json:"distance_cm"` // 0 when the echo timed out
	Presence     bool           `json:"presence"`
	Climate      ClimateReading `json:"climate"`
	TakenAt      time.Time      `json:"taken_at"`
}

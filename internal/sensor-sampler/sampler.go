package sensor_sampler

import (
	"time"

	"github.com/LeonardoBeccarini/sala_telemetry/internal/model/entities"
)

// ====== Costanti di misura ======
const (
	// SpeedOfSound in cm/µs; l'eco percorre andata e ritorno, quindi si dimezza.
	SpeedOfSound = 0.034

	// PresenceThreshold: sotto questa distanza (cm) la sala è considerata occupata.
	PresenceThreshold = 100.0
)

// Ranger is the distance primitive: one trigger, one echo.
type Ranger interface {
	// Begin configures the trigger and echo pins.
	Begin() error
	// EchoDuration returns the echo pulse width, 0 when no echo arrived in time.
	EchoDuration() time.Duration
}

// Climate is the temperature/humidity primitive. A failed read returns NaN.
type Climate interface {
	Begin() error
	ReadTemperature() float64 // °C
	ReadHumidity() float64    // %RH
}

// Sampler produce uno Snapshot per ciclo. Nessuno stato sopravvive al ciclo.
type Sampler struct {
	ranger  Ranger
	climate Climate
	now     func() time.Time
}

func NewSampler(r Ranger, c Climate) *Sampler {
	return &Sampler{ranger: r, climate: c, now: time.Now}
}

// Begin configura i pin del sensore a ultrasuoni e avvia il driver del DHT.
func (s *Sampler) Begin() error {
	if err := s.ranger.Begin(); err != nil {
		return err
	}
	return s.climate.Begin()
}

// DistanceFromEcho converts an echo pulse width to centimetres. A zero duration
// (timeout) maps to 0 and is passed through as a real measurement.
func DistanceFromEcho(d time.Duration) float64 {
	if d <= 0 {
		return 0
	}
	us := float64(d) / float64(time.Microsecond)
	return us * SpeedOfSound / 2
}

// MeasureDistance triggers the ranger and returns the echo duration and distance.
func (s *Sampler) MeasureDistance() (time.Duration, float64) {
	d := s.ranger.EchoDuration()
	return d, DistanceFromEcho(d)
}

// DerivePresence: true se distance < 100, il bordo 100 è "nessuno".
func DerivePresence(distance float64) bool {
	return distance < PresenceThreshold
}

// MeasureClimate legge temperatura e umidità con due chiamate indipendenti.
// Il chiamante usa Valid() per decidere se pubblicare.
func (s *Sampler) MeasureClimate() entities.ClimateReading {
	t := s.climate.ReadTemperature()
	h := s.climate.ReadHumidity()
	return entities.ClimateReading{Temperature: t, Humidity: h}
}

// Sample esegue un ciclo di acquisizione completo.
func (s *Sampler) Sample() entities.Snapshot {
	echo, distance := s.MeasureDistance()
	return entities.Snapshot{
		EchoDuration: echo,
		Distance:     distance,
		Presence:     DerivePresence(distance),
		Climate:      s.MeasureClimate(),
		TakenAt:      s.now().UTC(),
	}
}

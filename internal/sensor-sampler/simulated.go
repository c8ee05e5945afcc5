package sensor_sampler

import (
	"math"
	"math/rand"
	"sync"
	"time"
)

// ====== Tunables del simulatore ======
const (
	simBaseTemperature = 22.0 // °C
	simBaseHumidity    = 55.0 // %RH
	simDriftPerStep    = 0.15
	simEmptyRoom       = 250.0 // cm, parete di fronte al sensore
	simPersonDistance  = 60.0  // cm
	simPresenceChance  = 0.3   // probabilità di cambiare stato presenza a ogni ciclo
)

// SimulatedSensors mantiene uno stato interno che deriva nel tempo e fa da
// Ranger e da Climate quando l'agente gira senza hardware (banco, CI, Wokwi).
type SimulatedSensors struct {
	mu          sync.Mutex
	rng         *rand.Rand
	temperature float64
	humidity    float64
	occupied    bool
	failRate    float64 // probabilità che una lettura climatica sia NaN
}

// NewSimulatedSensors crea un simulatore; failRate in [0..1].
func NewSimulatedSensors(seed int64, failRate float64) *SimulatedSensors {
	return &SimulatedSensors{
		rng:         rand.New(rand.NewSource(seed)),
		temperature: simBaseTemperature,
		humidity:    simBaseHumidity,
		failRate:    clamp(failRate, 0, 1),
	}
}

func (s *SimulatedSensors) Begin() error { return nil }

// EchoDuration restituisce l'eco corrispondente alla distanza simulata.
func (s *SimulatedSensors) EchoDuration() time.Duration {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.rng.Float64() < simPresenceChance {
		s.occupied = !s.occupied
	}
	distance := simEmptyRoom
	if s.occupied {
		distance = simPersonDistance
	}
	distance += s.rng.NormFloat64() * 5
	if distance < 2 {
		distance = 2
	}
	// inverso di DistanceFromEcho
	us := distance * 2 / SpeedOfSound
	return time.Duration(us * float64(time.Microsecond))
}

func (s *SimulatedSensors) ReadTemperature() float64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.rng.Float64() < s.failRate {
		return math.NaN()
	}
	s.temperature = clamp(s.temperature+s.rng.NormFloat64()*simDriftPerStep, -40, 80)
	return s.temperature
}

func (s *SimulatedSensors) ReadHumidity() float64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.rng.Float64() < s.failRate {
		return math.NaN()
	}
	s.humidity = clamp(s.humidity+s.rng.NormFloat64()*simDriftPerStep*2, 0, 100)
	return s.humidity
}

func clamp(x, lo, hi float64) float64 {
	if x < lo {
		return lo
	}
	if x > hi {
		return hi
	}
	return x
}

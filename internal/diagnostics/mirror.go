package diagnostics

import (
	"context"
	"log"
	"time"

	influxdb2 "github.com/influxdata/influxdb-client-go/v2"
	"github.com/influxdata/influxdb-client-go/v2/api/write"
	"github.com/sony/gobreaker"

	"github.com/LeonardoBeccarini/sala_telemetry/internal/model/entities"
	"github.com/LeonardoBeccarini/sala_telemetry/pkg/dedup"
)

const MirrorMeasurement = "room_telemetry"

// PointWriter is the part of the InfluxDB blocking write API the mirror uses.
type PointWriter interface {
	WritePoint(ctx context.Context, point ...*write.Point) error
}

type BreakerSettings struct {
	Name        string
	Fails       uint32
	OpenFor     time.Duration
	Interval    time.Duration
	CallTimeout time.Duration
}

func DefaultBreakerSettings() BreakerSettings {
	return BreakerSettings{
		Name:        "influx-mirror",
		Fails:       3,
		OpenFor:     30 * time.Second,
		Interval:    time.Minute,
		CallTimeout: 2 * time.Second,
	}
}

// Mirror copia ogni ciclo su InfluxDB. Un errore di scrittura non ferma mai il ciclo.
type Mirror struct {
	writer   PointWriter
	cb       *gobreaker.CircuitBreaker
	timeout  time.Duration
	clientID string
	bootID   string
	logger   *log.Logger
	quiet    *dedup.Deduper // lo stesso errore si logga al più una volta al minuto
	now      func() time.Time
}

func NewMirror(w PointWriter, clientID, bootID string, s BreakerSettings, logger *log.Logger) *Mirror {
	if logger == nil {
		logger = log.Default()
	}
	fails := s.Fails
	if fails == 0 {
		fails = 1
	}
	timeout := s.CallTimeout
	if timeout <= 0 {
		timeout = DefaultBreakerSettings().CallTimeout
	}
	cb := gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:     s.Name,
		Interval: s.Interval,
		Timeout:  s.OpenFor,
		ReadyToTrip: func(c gobreaker.Counts) bool {
			return c.ConsecutiveFailures >= fails
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			logger.Printf("influx: breaker %s %s -> %s", name, from, to)
		},
	})
	return &Mirror{
		writer:   w,
		cb:       cb,
		timeout:  timeout,
		clientID: clientID,
		bootID:   bootID,
		logger:   logger,
		quiet:    dedup.New(time.Minute, 32),
		now:      time.Now,
	}
}

// SnapshotPoint builds the room_telemetry point for one cycle. Climate fields are
// omitted when the reading is invalid.
func SnapshotPoint(s entities.Snapshot, state entities.ConnectionState, clientID, bootID string, fallback time.Time) *write.Point {
	t := s.TakenAt
	if t.IsZero() {
		t = fallback
	}
	tags := map[string]string{
		"client_id":        clientID,
		"boot_id":          bootID,
		"connection_state": state.String(),
	}
	fields := map[string]interface{}{
		"distance_cm":   s.Distance,
		"echo_us":       s.EchoDuration.Microseconds(),
		"presence":      s.Presence,
		"climate_valid": s.Climate.Valid(),
	}
	if s.Climate.Valid() {
		fields["temperature"] = s.Climate.Temperature
		fields["humidity"] = s.Climate.Humidity
	}
	return influxdb2.NewPoint(MirrorMeasurement, tags, fields, t)
}

func (m *Mirror) CycleCompleted(s entities.Snapshot, state entities.ConnectionState) {
	point := SnapshotPoint(s, state, m.clientID, m.bootID, m.now())

	_, err := m.cb.Execute(func() (interface{}, error) {
		ctx, cancel := context.WithTimeout(context.Background(), m.timeout)
		defer cancel()
		return nil, m.writer.WritePoint(ctx, point)
	})
	if err == nil {
		return
	}
	ok, hidden := m.quiet.Allow(err.Error())
	switch {
	case !ok:
	case hidden > 0:
		m.logger.Printf("influx: write skipped: %v (%d repeats suppressed)", err, hidden)
	default:
		m.logger.Printf("influx: write skipped: %v", err)
	}
}

// State espone lo stato del breaker (per i test e per il log di avvio).
func (m *Mirror) State() gobreaker.State {
	return m.cb.State()
}

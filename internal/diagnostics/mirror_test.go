package diagnostics

import (
	"bytes"
	"context"
	"errors"
	"log"
	"math"
	"strings"
	"testing"
	"time"

	"github.com/influxdata/influxdb-client-go/v2/api/write"
	"github.com/sony/gobreaker"

	"github.com/LeonardoBeccarini/sala_telemetry/internal/model/entities"
)

type fakeWriter struct {
	err    error
	points []*write.Point
	calls  int
}

func (f *fakeWriter) WritePoint(_ context.Context, p ...*write.Point) error {
	f.calls++
	if f.err != nil {
		return f.err
	}
	f.points = append(f.points, p...)
	return nil
}

func fieldMap(p *write.Point) map[string]interface{} {
	out := map[string]interface{}{}
	for _, f := range p.FieldList() {
		out[f.Key] = f.Value
	}
	return out
}

func tagMap(p *write.Point) map[string]string {
	out := map[string]string{}
	for _, tg := range p.TagList() {
		out[tg.Key] = tg.Value
	}
	return out
}

func TestSnapshotPoint(t *testing.T) {
	at := time.Date(2024, 3, 1, 8, 0, 0, 0, time.UTC)
	snap := entities.Snapshot{
		EchoDuration: 4706 * time.Microsecond,
		Distance:     80.002,
		Presence:     true,
		Climate:      entities.ClimateReading{Temperature: 22, Humidity: 55},
		TakenAt:      at,
	}
	p := SnapshotPoint(snap, entities.Ready, "ESP32_Sala_Triagem", "boot-1", time.Time{})

	if p.Name() != MirrorMeasurement {
		t.Fatalf("measurement = %s", p.Name())
	}
	if !p.Time().Equal(at) {
		t.Fatalf("time = %v", p.Time())
	}
	tags := tagMap(p)
	if tags["client_id"] != "ESP32_Sala_Triagem" || tags["boot_id"] != "boot-1" || tags["connection_state"] != "ready" {
		t.Fatalf("tags = %v", tags)
	}
	fields := fieldMap(p)
	if fields["temperature"] != 22.0 || fields["humidity"] != 55.0 || fields["presence"] != true {
		t.Fatalf("fields = %v", fields)
	}
	if fields["echo_us"] != int64(4706) {
		t.Fatalf("echo_us = %#v", fields["echo_us"])
	}
}

func TestSnapshotPointInvalidClimate(t *testing.T) {
	fallback := time.Date(2024, 3, 1, 8, 0, 0, 0, time.UTC)
	snap := entities.Snapshot{
		Distance: 250,
		Climate:  entities.ClimateReading{Temperature: 23, Humidity: math.NaN()},
	}
	p := SnapshotPoint(snap, entities.NetworkOnly, "c", "b", fallback)

	fields := fieldMap(p)
	if _, ok := fields["temperature"]; ok {
		t.Fatal("temperature written for an invalid reading")
	}
	if _, ok := fields["humidity"]; ok {
		t.Fatal("humidity written for an invalid reading")
	}
	if fields["climate_valid"] != false {
		t.Fatalf("climate_valid = %v", fields["climate_valid"])
	}
	if !p.Time().Equal(fallback) {
		t.Fatalf("zero TakenAt should use the fallback time, got %v", p.Time())
	}
}

func TestMirrorBreakerOpensAfterFailures(t *testing.T) {
	var buf bytes.Buffer
	w := &fakeWriter{err: errors.New("connection refused")}
	s := DefaultBreakerSettings()
	s.Fails = 3
	m := NewMirror(w, "c", "b", s, log.New(&buf, "", 0))

	for i := 0; i < 5; i++ {
		m.CycleCompleted(entities.Snapshot{Distance: 10}, entities.Ready)
	}

	if w.calls != 3 {
		t.Fatalf("writer called %d times, want 3 before the breaker opens", w.calls)
	}
	if m.State() != gobreaker.StateOpen {
		t.Fatalf("breaker state = %v", m.State())
	}
	if !strings.Contains(buf.String(), gobreaker.ErrOpenState.Error()) {
		t.Fatalf("open-state skips not logged:\n%s", buf.String())
	}
}

func TestMirrorWrites(t *testing.T) {
	w := &fakeWriter{}
	m := NewMirror(w, "c", "b", DefaultBreakerSettings(), log.New(&bytes.Buffer{}, "", 0))

	m.CycleCompleted(entities.Snapshot{Distance: 10, TakenAt: time.Now()}, entities.Ready)
	m.CycleCompleted(entities.Snapshot{Distance: 20, TakenAt: time.Now()}, entities.Ready)

	if len(w.points) != 2 {
		t.Fatalf("points = %d", len(w.points))
	}
	if m.State() != gobreaker.StateClosed {
		t.Fatalf("breaker state = %v", m.State())
	}
}

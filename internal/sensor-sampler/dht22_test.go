package sensor_sampler

import (
	"errors"
	"math"
	"testing"
	"time"
)

// datasheet example: 65.2 %RH, 35.1 °C
var datasheetFrame = [5]byte{0x02, 0x8C, 0x01, 0x5F, 0xEE}

func TestParseFrame(t *testing.T) {
	t.Parallel()
	tests := []struct {
		name    string
		frame   [5]byte
		temp    float64
		hum     float64
		wantErr bool
	}{
		{name: "datasheet", frame: datasheetFrame, temp: 35.1, hum: 65.2},
		{name: "negative temperature", frame: [5]byte{0x01, 0xF4, 0x80, 0x65, 0xDA}, temp: -10.1, hum: 50.0},
		{name: "bad checksum", frame: [5]byte{0x02, 0x8C, 0x01, 0x5F, 0xEF}, wantErr: true},
		{name: "checksum wraps", frame: [5]byte{0xFF, 0xFF, 0x00, 0x02, 0x00}, temp: 0.2, hum: 6553.5},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			temp, hum, err := ParseFrame(tt.frame)
			if tt.wantErr {
				if !errors.Is(err, errChecksum) {
					t.Fatalf("ParseFrame() error = %v, want checksum error", err)
				}
				return
			}
			if err != nil {
				t.Fatalf("ParseFrame() error = %v", err)
			}
			if math.Abs(temp-tt.temp) > 1e-9 || math.Abs(hum-tt.hum) > 1e-9 {
				t.Errorf("ParseFrame() = %v°C %v%%, want %v°C %v%%", temp, hum, tt.temp, tt.hum)
			}
		})
	}
}

// pulsesFor codifica un frame come larghezze degli impulsi alti, con l'impulso
// di risposta in testa.
func pulsesFor(frame [5]byte) []time.Duration {
	out := []time.Duration{80 * time.Microsecond}
	for _, b := range frame {
		for bit := 7; bit >= 0; bit-- {
			if b&(1<<bit) != 0 {
				out = append(out, 70*time.Microsecond)
			} else {
				out = append(out, 27*time.Microsecond)
			}
		}
	}
	return out
}

func TestDecodePulses(t *testing.T) {
	t.Parallel()
	got, err := DecodePulses(pulsesFor(datasheetFrame))
	if err != nil {
		t.Fatalf("DecodePulses() error = %v", err)
	}
	if got != datasheetFrame {
		t.Errorf("DecodePulses() = % X, want % X", got, datasheetFrame)
	}
}

func TestDecodePulses_ShortFrame(t *testing.T) {
	t.Parallel()
	if _, err := DecodePulses(pulsesFor(datasheetFrame)[:30]); err == nil {
		t.Fatal("expected error for a 30-bit frame")
	}
}

// edgesFor trasforma gli impulsi alti in istanti di fronte per scriptedLine:
// ogni bit è 50µs basso seguito dall'impulso alto.
func edgesFor(highs []time.Duration) []time.Duration {
	var edges []time.Duration
	at := 20 * time.Microsecond
	for _, h := range highs {
		at += 50 * time.Microsecond
		edges = append(edges, at) // salita
		at += h
		edges = append(edges, at) // discesa
	}
	return edges
}

func TestDHT22_ReadsFrameOncePerInterval(t *testing.T) {
	t.Parallel()
	clock := &fakeClock{t: time.Unix(100, 0)}
	line := newScriptedLine(clock)
	d := NewDHT22(line)
	d.now = clock.now
	d.sleep = func(time.Duration) {}

	if err := d.Begin(); err != nil {
		t.Fatalf("Begin() error = %v", err)
	}
	line.start = clock.t
	line.edges = edgesFor(pulsesFor(datasheetFrame))

	if got := d.ReadTemperature(); math.Abs(got-35.1) > 1e-9 {
		t.Fatalf("ReadTemperature() = %v, want 35.1 (err %v)", got, d.LastError())
	}
	// stessa finestra di 2s: nessuna nuova cattura, stesso frame
	if got := d.ReadHumidity(); math.Abs(got-65.2) > 1e-9 {
		t.Errorf("ReadHumidity() = %v, want 65.2", got)
	}
}

func TestDHT22_NoResponseIsNaN(t *testing.T) {
	t.Parallel()
	clock := &fakeClock{t: time.Unix(100, 0)}
	d := NewDHT22(newScriptedLine(clock))
	d.now = clock.now
	d.sleep = func(time.Duration) {}

	if err := d.Begin(); err != nil {
		t.Fatalf("Begin() error = %v", err)
	}
	if got := d.ReadTemperature(); !math.IsNaN(got) {
		t.Errorf("ReadTemperature() = %v, want NaN", got)
	}
	if got := d.ReadHumidity(); !math.IsNaN(got) {
		t.Errorf("ReadHumidity() = %v, want NaN", got)
	}
	if d.LastError() == nil {
		t.Error("LastError() = nil after a failed capture")
	}
}

func TestDHT22_CorruptFrameIsNaN(t *testing.T) {
	t.Parallel()
	clock := &fakeClock{t: time.Unix(100, 0)}
	line := newScriptedLine(clock)
	d := NewDHT22(line)
	d.now = clock.now
	d.sleep = func(time.Duration) {}
	if err := d.Begin(); err != nil {
		t.Fatalf("Begin() error = %v", err)
	}
	bad := datasheetFrame
	bad[4] ^= 0x01
	line.start = clock.t
	line.edges = edgesFor(pulsesFor(bad))

	if got := d.ReadHumidity(); !math.IsNaN(got) {
		t.Errorf("ReadHumidity() = %v, want NaN", got)
	}
	if !errors.Is(d.LastError(), errChecksum) {
		t.Errorf("LastError() = %v, want checksum error", d.LastError())
	}
}

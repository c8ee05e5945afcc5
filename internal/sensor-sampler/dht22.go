package sensor_sampler

import (
	"errors"
	"fmt"
	"math"
	"time"

	"periph.io/x/conn/v3/gpio"
)

const (
	dhtStartPulse   = 1100 * time.Microsecond // host tiene la linea bassa >= 1ms
	dhtEdgeTimeout  = 2 * time.Millisecond
	dhtBitThreshold = 50 * time.Microsecond // impulso alto ~27µs = 0, ~70µs = 1
	dhtFrameBits    = 40

	// DHTMinInterval: il DHT22 non va interrogato più spesso di così; entro
	// l'intervallo si riusa l'ultimo frame (temperatura e umidità dello stesso ciclo).
	DHTMinInterval = 2 * time.Second
)

var errChecksum = errors.New("dht22: checksum mismatch")

type dhtPin interface {
	Out(l gpio.Level) error
	In(pull gpio.Pull, edge gpio.Edge) error
	Read() gpio.Level
	WaitForEdge(timeout time.Duration) bool
}

// DHT22 reads an AM2302/DHT22 on a single GPIO line. Failed reads surface as NaN.
type DHT22 struct {
	pin   dhtPin
	now   func() time.Time
	sleep func(time.Duration)

	lastRead    time.Time
	lastOK      bool
	lastErr     error
	temperature float64
	humidity    float64
}

func NewDHT22(pin dhtPin) *DHT22 {
	return &DHT22{pin: pin, now: time.Now, sleep: time.Sleep}
}

func (d *DHT22) Begin() error {
	if err := d.pin.In(gpio.PullUp, gpio.NoEdge); err != nil {
		return fmt.Errorf("dht22: data pin: %w", err)
	}
	// la prima lettura deve partire subito
	d.lastRead = d.now().Add(-DHTMinInterval)
	return nil
}

func (d *DHT22) ReadTemperature() float64 {
	if !d.read() {
		return math.NaN()
	}
	return d.temperature
}

func (d *DHT22) ReadHumidity() float64 {
	if !d.read() {
		return math.NaN()
	}
	return d.humidity
}

// LastError returns why the most recent frame was rejected, nil if it was good.
func (d *DHT22) LastError() error { return d.lastErr }

func (d *DHT22) read() bool {
	now := d.now()
	if now.Sub(d.lastRead) < DHTMinInterval {
		return d.lastOK
	}
	d.lastRead = now

	t, h, err := d.capture()
	if err != nil {
		d.lastOK, d.lastErr = false, err
		return false
	}
	d.temperature, d.humidity = t, h
	d.lastOK, d.lastErr = true, nil
	return true
}

func (d *DHT22) capture() (float64, float64, error) {
	if err := d.pin.Out(gpio.Low); err != nil {
		return 0, 0, err
	}
	d.sleep(dhtStartPulse)
	if err := d.pin.In(gpio.PullUp, gpio.BothEdges); err != nil {
		return 0, 0, err
	}
	defer func() { _ = d.pin.In(gpio.PullUp, gpio.NoEdge) }()

	// rilascio della linea + risposta (~80µs) + 40 bit; si esce al primo timeout
	highs := make([]time.Duration, 0, dhtFrameBits+2)
	var riseAt time.Time
	for len(highs) < dhtFrameBits+2 {
		if !d.pin.WaitForEdge(dhtEdgeTimeout) {
			break
		}
		at := d.now()
		if d.pin.Read() == gpio.High {
			riseAt = at
			continue
		}
		if !riseAt.IsZero() {
			highs = append(highs, at.Sub(riseAt))
			riseAt = time.Time{}
		}
	}

	frame, err := DecodePulses(highs)
	if err != nil {
		return 0, 0, err
	}
	return ParseFrame(frame)
}

// DecodePulses turns the widths of the data high pulses into the 5-byte frame.
// Only the last 40 pulses count; anything before is the sensor's response.
func DecodePulses(highs []time.Duration) ([5]byte, error) {
	var frame [5]byte
	if len(highs) < dhtFrameBits {
		return frame, fmt.Errorf("dht22: short frame, %d of %d bits", len(highs), dhtFrameBits)
	}
	bits := highs[len(highs)-dhtFrameBits:]
	for i, w := range bits {
		frame[i/8] <<= 1
		if w > dhtBitThreshold {
			frame[i/8] |= 1
		}
	}
	return frame, nil
}

// ParseFrame validates the checksum and returns temperature (°C) and humidity (%RH).
func ParseFrame(b [5]byte) (temperature, humidity float64, err error) {
	if b[0]+b[1]+b[2]+b[3] != b[4] {
		return 0, 0, errChecksum
	}
	humidity = float64(uint16(b[0])<<8|uint16(b[1])) / 10
	temperature = float64(uint16(b[2]&0x7F)<<8|uint16(b[3])) / 10
	if b[2]&0x80 != 0 {
		temperature = -temperature
	}
	return temperature, humidity, nil
}

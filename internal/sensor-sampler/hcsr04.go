package sensor_sampler

import (
	"fmt"
	"time"

	"periph.io/x/conn/v3/gpio"
)

// Tempi dell'impulso di trigger dell'HC-SR04.
const (
	triggerSettle = 2 * time.Microsecond
	triggerPulse  = 10 * time.Microsecond

	// EchoTimeout è il timeout di pulseIn: oltre, la durata vale 0.
	EchoTimeout = time.Second
)

type triggerPin interface {
	Out(l gpio.Level) error
}

type echoPin interface {
	In(pull gpio.Pull, edge gpio.Edge) error
	Read() gpio.Level
	WaitForEdge(timeout time.Duration) bool
}

// HCSR04 drives an HC-SR04 ultrasonic rangefinder on two GPIO lines.
type HCSR04 struct {
	trig    triggerPin
	echo    echoPin
	timeout time.Duration
	sleep   func(time.Duration)
	now     func() time.Time
}

// NewHCSR04 accetta qualunque gpio.PinIO (es. gpioreg.ByName("GPIO5")).
func NewHCSR04(trig triggerPin, echo echoPin) *HCSR04 {
	return &HCSR04{
		trig:    trig,
		echo:    echo,
		timeout: EchoTimeout,
		sleep:   time.Sleep,
		now:     time.Now,
	}
}

func (h *HCSR04) Begin() error {
	if err := h.trig.Out(gpio.Low); err != nil {
		return fmt.Errorf("hcsr04: trigger pin: %w", err)
	}
	if err := h.echo.In(gpio.PullDown, gpio.BothEdges); err != nil {
		return fmt.Errorf("hcsr04: echo pin: %w", err)
	}
	return nil
}

// EchoDuration emits the trigger pulse and measures how long echo stays high.
// Any timeout, including a write error on the trigger, yields 0.
func (h *HCSR04) EchoDuration() time.Duration {
	if err := h.pulse(); err != nil {
		return 0
	}

	deadline := h.now().Add(h.timeout)
	// un impulso ancora in corso (eco tardiva) va lasciato finire
	if !h.waitLevel(gpio.Low, deadline) {
		return 0
	}
	if !h.waitLevel(gpio.High, deadline) {
		return 0
	}
	start := h.now()
	if !h.waitLevel(gpio.Low, deadline) {
		return 0
	}
	return h.now().Sub(start)
}

func (h *HCSR04) pulse() error {
	if err := h.trig.Out(gpio.Low); err != nil {
		return err
	}
	h.sleep(triggerSettle)
	if err := h.trig.Out(gpio.High); err != nil {
		return err
	}
	h.sleep(triggerPulse)
	return h.trig.Out(gpio.Low)
}

// waitLevel attende che echo raggiunga il livello l prima della scadenza.
func (h *HCSR04) waitLevel(l gpio.Level, deadline time.Time) bool {
	for h.echo.Read() != l {
		remaining := deadline.Sub(h.now())
		if remaining <= 0 {
			return false
		}
		if !h.echo.WaitForEdge(remaining) {
			return false
		}
	}
	return true
}

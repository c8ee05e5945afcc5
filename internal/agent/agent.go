package agent

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/LeonardoBeccarini/sala_telemetry/internal/model/entities"
)

const DefaultCycleInterval = 5 * time.Second

type Phase int

const (
	Booting Phase = iota
	Running
)

func (p Phase) String() string {
	if p == Running {
		return "running"
	}
	return "booting"
}

// Supervisor keeps network and broker up; see connectivity.Supervisor.
type Supervisor interface {
	EnsureNetwork(ctx context.Context) error
	Ensure(ctx context.Context) error
	State(ctx context.Context) entities.ConnectionState
}

type Sampler interface {
	Begin() error
	Sample() entities.Snapshot
}

type Publisher interface {
	Publish(s entities.Snapshot)
}

// Observer riceve ogni ciclo completato (metriche, health, mirror).
type Observer interface {
	CycleCompleted(s entities.Snapshot, state entities.ConnectionState)
}

type Config struct {
	CycleInterval time.Duration
	BrokerAddress string
}

var ErrAlreadyBooted = errors.New("agent: already booted")

// Agent runs the sample-and-publish cycle on a single goroutine.
type Agent struct {
	supervisor Supervisor
	sampler    Sampler
	publisher  Publisher
	observers  []Observer
	cfg        Config
	phase      Phase
	logger     *log.Logger
	sleep      func(ctx context.Context, d time.Duration) error
}

type Option func(*Agent)

func WithLogger(l *log.Logger) Option {
	return func(a *Agent) {
		if l != nil {
			a.logger = l
		}
	}
}

func WithObservers(obs ...Observer) Option {
	return func(a *Agent) { a.observers = append(a.observers, obs...) }
}

// WithSleep sostituisce l'attesa tra i cicli (test).
func WithSleep(fn func(ctx context.Context, d time.Duration) error) Option {
	return func(a *Agent) {
		if fn != nil {
			a.sleep = fn
		}
	}
}

func New(sup Supervisor, sampler Sampler, pub Publisher, cfg Config, opts ...Option) *Agent {
	if cfg.CycleInterval <= 0 {
		cfg.CycleInterval = DefaultCycleInterval
	}
	a := &Agent{
		supervisor: sup,
		sampler:    sampler,
		publisher:  pub,
		cfg:        cfg,
		phase:      Booting,
		logger:     log.Default(),
		sleep:      sleepCtx,
	}
	for _, o := range opts {
		o(a)
	}
	return a
}

func (a *Agent) Phase() Phase { return a.phase }

// Boot prepares the sensors and waits for the network. It may run only once.
func (a *Agent) Boot(ctx context.Context) error {
	if a.phase != Booting {
		return ErrAlreadyBooted
	}
	if err := a.sampler.Begin(); err != nil {
		return fmt.Errorf("sensors: %w", err)
	}
	if err := a.supervisor.EnsureNetwork(ctx); err != nil {
		return err
	}
	a.logger.Printf("mqtt: broker %s", a.cfg.BrokerAddress)
	a.phase = Running
	return nil
}

// RunCycle esegue un ciclo: connessione, campionamento, pubblicazione, riepilogo.
func (a *Agent) RunCycle(ctx context.Context) error {
	if err := a.supervisor.Ensure(ctx); err != nil {
		return err
	}
	snap := a.sampler.Sample()
	a.publisher.Publish(snap)
	a.logger.Println(Summary(snap))

	state := a.supervisor.State(ctx)
	for _, o := range a.observers {
		o.CycleCompleted(snap, state)
	}
	return nil
}

// Run boots the agent and then cycles every CycleInterval until ctx ends.
func (a *Agent) Run(ctx context.Context) error {
	if err := a.Boot(ctx); err != nil {
		return err
	}
	for {
		if err := a.RunCycle(ctx); err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			a.logger.Printf("cycle skipped: %v", err)
		}
		if err := a.sleep(ctx, a.cfg.CycleInterval); err != nil {
			return err
		}
	}
}

// Summary is the per-cycle console line.
func Summary(s entities.Snapshot) string {
	presence := "None"
	if s.Presence {
		presence = "Detected"
	}
	return fmt.Sprintf("Presence: %s | Temp: %.2fC | Humidity: %.2f%%",
		presence, s.Climate.Temperature, s.Climate.Humidity)
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

// Package connectivity keeps the agent associated to the network and holding a
// broker session. Every failure is retried on a fixed interval, with no upper bound
// by default.
package connectivity

import (
	"context"
	"errors"
	"log"
	"time"

	"github.com/cenkalti/backoff/v4"

	"github.com/LeonardoBeccarini/sala_telemetry/internal/model/entities"
	"github.com/LeonardoBeccarini/sala_telemetry/pkg/broker"
)

// Network is the wireless association primitive.
type Network interface {
	// Associate starts association; it does not wait for it to complete.
	Associate(ctx context.Context, ssid, passphrase string) error
	Associated(ctx context.Context) bool
}

// Broker is the session side of the MQTT transport.
type Broker interface {
	IsConnected() bool
	Connect(ctx context.Context) error
}

// Recorder receives the outcome of every connection attempt.
type Recorder interface {
	ConnectAttempt(layer string, err error)
}

const (
	LayerNetwork = "network"
	LayerBroker  = "broker"
)

// RetryPolicy: intervallo fisso tra i tentativi, MaxAttempts == 0 significa infinito.
type RetryPolicy struct {
	NetworkPoll time.Duration
	BrokerRetry time.Duration
	MaxAttempts uint64
}

// DefaultRetryPolicy polls the network every second and retries the broker every
// five, forever.
func DefaultRetryPolicy() RetryPolicy {
	return RetryPolicy{
		NetworkPoll: time.Second,
		BrokerRetry: 5 * time.Second,
	}
}

// Credentials of the wireless network. Passphrase may be empty (open network).
type Credentials struct {
	SSID       string
	Passphrase string
}

var errNotAssociated = errors.New("network not associated")

// Supervisor owns the connection handles; other components only consult them.
type Supervisor struct {
	network  Network
	broker   Broker
	creds    Credentials
	policy   RetryPolicy
	logger   *log.Logger
	recorder Recorder
	timer    backoff.Timer // nil = timer reale
}

// Option customizes a Supervisor.
type Option func(*Supervisor)

// WithLogger sets the diagnostics logger.
func WithLogger(l *log.Logger) Option {
	return func(s *Supervisor) {
		if l != nil {
			s.logger = l
		}
	}
}

// WithRecorder reports attempts to r.
func WithRecorder(r Recorder) Option {
	return func(s *Supervisor) {
		if r != nil {
			s.recorder = r
		}
	}
}

// WithTimer replaces the sleep between attempts (tests).
func WithTimer(t backoff.Timer) Option {
	return func(s *Supervisor) { s.timer = t }
}

// NewSupervisor wires the supervisor to its network and broker handles.
func NewSupervisor(network Network, b Broker, creds Credentials, policy RetryPolicy, opts ...Option) *Supervisor {
	defaults := DefaultRetryPolicy()
	if policy.NetworkPoll <= 0 {
		policy.NetworkPoll = defaults.NetworkPoll
	}
	if policy.BrokerRetry <= 0 {
		policy.BrokerRetry = defaults.BrokerRetry
	}
	s := &Supervisor{
		network:  network,
		broker:   b,
		creds:    creds,
		policy:   policy,
		logger:   log.Default(),
		recorder: nopRecorder{},
	}
	for _, o := range opts {
		o(s)
	}
	return s
}

// State reads the live status of both layers; nothing is cached.
func (s *Supervisor) State(ctx context.Context) entities.ConnectionState {
	return entities.DeriveConnectionState(s.network.Associated(ctx), s.broker.IsConnected())
}

// Ensure returns once both network and broker session are up.
func (s *Supervisor) Ensure(ctx context.Context) error {
	if err := s.EnsureNetwork(ctx); err != nil {
		return err
	}
	return s.EnsureBroker(ctx)
}

// EnsureNetwork blocks until the network reports associated. Association is
// requested on a failed poll until one request is accepted; afterwards it only polls.
func (s *Supervisor) EnsureNetwork(ctx context.Context) error {
	begun := false     // almeno un poll fallito
	requested := false // richiesta accettata dal sistema
	attempts := 0

	op := func() error {
		attempts++
		if s.network.Associated(ctx) {
			s.recorder.ConnectAttempt(LayerNetwork, nil)
			return nil
		}
		s.recorder.ConnectAttempt(LayerNetwork, errNotAssociated)
		begun = true
		if !requested {
			if err := s.network.Associate(ctx, s.creds.SSID, s.creds.Passphrase); err != nil {
				s.logger.Printf("wifi: association request for %q failed: %v", s.creds.SSID, err)
			} else {
				requested = true
			}
		}
		return errNotAssociated
	}
	notify := func(_ error, _ time.Duration) {
		s.logger.Println("wifi: connecting...")
	}

	if err := s.retry(ctx, s.policy.NetworkPoll, op, notify); err != nil {
		return err
	}
	if begun {
		s.logger.Printf("wifi: connected to %q after %d polls", s.creds.SSID, attempts)
	}
	return nil
}

// EnsureBroker blocks until the broker session is active. No-op when already
// connected.
func (s *Supervisor) EnsureBroker(ctx context.Context) error {
	if s.broker.IsConnected() {
		return nil
	}

	op := func() error {
		s.logger.Println("mqtt: connecting...")
		err := s.broker.Connect(ctx)
		if ctx.Err() != nil {
			return backoff.Permanent(ctx.Err())
		}
		s.recorder.ConnectAttempt(LayerBroker, err)
		if err != nil {
			return err
		}
		s.logger.Println("mqtt: connected")
		return nil
	}
	notify := func(err error, next time.Duration) {
		var ce *broker.ConnectError
		if errors.As(err, &ce) {
			s.logger.Printf("mqtt: failed, rc=%d, retrying in %s", ce.ReturnCode, next)
			return
		}
		s.logger.Printf("mqtt: failed (%v), retrying in %s", err, next)
	}

	return s.retry(ctx, s.policy.BrokerRetry, op, notify)
}

// retry esegue op con intervallo costante finché non riesce o ctx termina.
func (s *Supervisor) retry(ctx context.Context, interval time.Duration, op backoff.Operation, notify backoff.Notify) error {
	var b backoff.BackOff = backoff.NewConstantBackOff(interval)
	if s.policy.MaxAttempts > 0 {
		b = backoff.WithMaxRetries(b, s.policy.MaxAttempts-1)
	}
	return backoff.RetryNotifyWithTimer(op, backoff.WithContext(b, ctx), notify, s.timer)
}

type nopRecorder struct{}

func (nopRecorder) ConnectAttempt(string, error) {}

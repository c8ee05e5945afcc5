package diagnostics

import (
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"github.com/LeonardoBeccarini/sala_telemetry/internal/model/entities"
)

// Status remembers the last completed cycle for the health endpoints. The cycle
// writes it, the HTTP goroutines read it.
type Status struct {
	mu        sync.RWMutex
	bootID    string
	startedAt time.Time
	lastCycle time.Time
	cycles    uint64
	last      entities.Snapshot
	now       func() time.Time
}

func NewStatus(bootID string) *Status {
	return &Status{bootID: bootID, startedAt: time.Now(), now: time.Now}
}

func (s *Status) CycleCompleted(snap entities.Snapshot, _ entities.ConnectionState) {
	s.mu.Lock()
	s.lastCycle = s.now()
	s.cycles++
	s.last = snap
	s.mu.Unlock()
}

// LastCycleAge ritorna da quanto tempo non si chiude un ciclo; -1 se mai.
func (s *Status) LastCycleAge() time.Duration {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.lastCycle.IsZero() {
		return -1
	}
	return s.now().Sub(s.lastCycle)
}

func (s *Status) view() (cycles uint64, last entities.Snapshot) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.cycles, s.last
}

// StateFunc legge lo stato attuale dei collegamenti.
type StateFunc func() entities.ConnectionState

type healthHandler struct {
	status     *Status
	state      StateFunc
	staleAfter time.Duration
}

// NewHealthHandler serve /healthz: ok, degraded o down.
func NewHealthHandler(s *Status, state StateFunc, staleAfter time.Duration) http.Handler {
	return &healthHandler{status: s, state: state, staleAfter: staleAfter}
}

func (h *healthHandler) ServeHTTP(w http.ResponseWriter, _ *http.Request) {
	type climate struct {
		Temperature *float64 `json:"temperature,omitempty"`
		Humidity    *float64 `json:"humidity,omitempty"`
	}
	type body struct {
		Status          string   `json:"status"`
		ConnectionState string   `json:"connection_state"`
		BootID          string   `json:"boot_id"`
		UptimeS         float64  `json:"uptime_sec"`
		Cycles          uint64   `json:"cycles"`
		LastCycleAgeS   float64  `json:"last_cycle_age_sec"`
		DistanceCM      *float64 `json:"distance_cm,omitempty"`
		Presence        *bool    `json:"presence,omitempty"`
		Climate         *climate `json:"climate,omitempty"`
	}

	state := h.state()
	age := h.status.LastCycleAge()
	cycles, last := h.status.view()

	b := body{
		ConnectionState: state.String(),
		BootID:          h.status.bootID,
		UptimeS:         h.status.now().Sub(h.status.startedAt).Seconds(),
		Cycles:          cycles,
		LastCycleAgeS:   age.Seconds(),
	}
	if cycles > 0 {
		b.DistanceCM = &last.Distance
		b.Presence = &last.Presence
		if last.Climate.Valid() {
			b.Climate = &climate{Temperature: &last.Climate.Temperature, Humidity: &last.Climate.Humidity}
		}
	}

	// ok se collegato e cicli recenti; degraded se gira ma qualcosa manca
	switch {
	case state == entities.Ready && age >= 0 && age <= h.staleAfter:
		b.Status = "ok"
	case age >= 0:
		b.Status = "degraded"
	default:
		b.Status = "down"
	}

	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(b)
}

// Handler /readyz: 200 solo se collegato e con un ciclo recente.
type readyHandler struct {
	status     *Status
	state      StateFunc
	staleAfter time.Duration
}

func NewReadyHandler(s *Status, state StateFunc, staleAfter time.Duration) http.Handler {
	return &readyHandler{status: s, state: state, staleAfter: staleAfter}
}

func (h *readyHandler) ServeHTTP(w http.ResponseWriter, _ *http.Request) {
	age := h.status.LastCycleAge()
	ready := h.state() == entities.Ready && age >= 0 && age <= h.staleAfter
	w.Header().Set("Content-Type", "application/json")
	if !ready {
		w.WriteHeader(http.StatusServiceUnavailable)
	}
	type resp struct {
		Ready bool `json:"ready"`
	}
	_ = json.NewEncoder(w).Encode(resp{Ready: ready})
}

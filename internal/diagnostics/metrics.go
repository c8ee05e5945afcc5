package diagnostics

import (
	"github.com/prometheus/client_golang/prometheus"

	"github.com/LeonardoBeccarini/sala_telemetry/internal/model/entities"
)

// Metrics exports what the agent does each cycle. It satisfies the recorder
// interfaces of connectivity and telemetry and observes completed cycles.
type Metrics struct {
	cycles          prometheus.Counter
	publishes       *prometheus.CounterVec
	connectAttempts *prometheus.CounterVec
	climateInvalid  prometheus.Counter

	distance    prometheus.Gauge
	presence    prometheus.Gauge
	temperature prometheus.Gauge
	humidity    prometheus.Gauge
	linkState   prometheus.Gauge
}

// NewMetrics registra le metriche su reg (nil = registry di default).
func NewMetrics(reg prometheus.Registerer) *Metrics {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	m := &Metrics{
		cycles: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "sala_cycles_total",
			Help: "Completed sample-and-publish cycles.",
		}),
		publishes: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "sala_publish_total",
			Help: "Publish calls by topic and result.",
		}, []string{"topic", "result"}),
		connectAttempts: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "sala_connect_attempts_total",
			Help: "Network polls and broker handshakes by layer and result.",
		}, []string{"layer", "result"}),
		climateInvalid: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "sala_climate_invalid_total",
			Help: "Cycles whose temperature or humidity read was NaN.",
		}),
		distance: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "sala_distance_cm",
			Help: "Last measured distance.",
		}),
		presence: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "sala_presence",
			Help: "1 when someone is within the presence threshold.",
		}),
		temperature: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "sala_temperature_celsius",
			Help: "Last valid temperature.",
		}),
		humidity: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "sala_humidity_percent",
			Help: "Last valid relative humidity.",
		}),
		linkState: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "sala_connection_state",
			Help: "0 disconnected, 1 network only, 2 ready.",
		}),
	}
	reg.MustRegister(m.cycles, m.publishes, m.connectAttempts, m.climateInvalid,
		m.distance, m.presence, m.temperature, m.humidity, m.linkState)
	return m
}

func result(err error) string {
	if err != nil {
		return "error"
	}
	return "ok"
}

func (m *Metrics) ConnectAttempt(layer string, err error) {
	m.connectAttempts.WithLabelValues(layer, result(err)).Inc()
}

func (m *Metrics) PublishResult(topic string, err error) {
	m.publishes.WithLabelValues(topic, result(err)).Inc()
}

func (m *Metrics) ClimateInvalid() {
	m.climateInvalid.Inc()
}

// CycleCompleted aggiorna i gauge; temperatura e umidità restano all'ultimo valore valido.
func (m *Metrics) CycleCompleted(s entities.Snapshot, state entities.ConnectionState) {
	m.cycles.Inc()
	m.distance.Set(s.Distance)
	if s.Presence {
		m.presence.Set(1)
	} else {
		m.presence.Set(0)
	}
	if s.Climate.Valid() {
		m.temperature.Set(s.Climate.Temperature)
		m.humidity.Set(s.Climate.Humidity)
	}
	m.linkState.Set(float64(state))
}

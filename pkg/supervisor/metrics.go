package supervisor

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds the supervisor's Prometheus metrics. A nil *Metrics records nothing.
type Metrics struct {
	SpawnsTotal *prometheus.CounterVec
	StopsTotal  prometheus.Counter
	State       prometheus.Gauge
	Running     prometheus.Gauge
}

// NewMetrics creates the metrics and registers them with reg
func NewMetrics(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)
	return &Metrics{
		SpawnsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "launcher_companion_spawns_total",
				Help: "Companion spawn attempts by result",
			},
			[]string{"result"},
		),
		StopsTotal: factory.NewCounter(
			prometheus.CounterOpts{
				Name: "launcher_companion_stops_total",
				Help: "Termination requests sent to the companion",
			},
		),
		State: factory.NewGauge(
			prometheus.GaugeOpts{
				Name: "launcher_companion_state",
				Help: "Supervisor state: 0 not started, 1 starting, 2 running, 3 stopped",
			},
		),
		Running: factory.NewGauge(
			prometheus.GaugeOpts{
				Name: "launcher_companion_running",
				Help: "1 while a companion process handle is held",
			},
		),
	}
}

func (m *Metrics) recordSpawn(err error) {
	if m == nil {
		return
	}
	result := "success"
	if err != nil {
		result = "failure"
	}
	m.SpawnsTotal.WithLabelValues(result).Inc()
}

func (m *Metrics) recordStop() {
	if m == nil {
		return
	}
	m.StopsTotal.Inc()
}

func (m *Metrics) recordState(s State) {
	if m == nil {
		return
	}
	m.State.Set(float64(s))
	if s == StateRunning {
		m.Running.Set(1)
	} else {
		m.Running.Set(0)
	}
}

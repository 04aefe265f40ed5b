package monitoring

import (
	"fmt"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds the counters for one analysis process. Each instance owns
// its registry so runs and tests never share state.
type Metrics struct {
	registry *prometheus.Registry

	// MessagesDispatched counts messages delivered to at least one oracle, by topic.
	MessagesDispatched *prometheus.CounterVec
	// Violations counts finalized violations by oracle and triggered flag.
	Violations *prometheus.CounterVec
	// Aborts counts cooperative aborts by the oracle that requested them.
	Aborts *prometheus.CounterVec
	// RunDuration observes wall time of whole analysis runs.
	RunDuration prometheus.Histogram
}

// NewMetrics registers a fresh metric set on its own registry.
func NewMetrics() *Metrics {
	reg := prometheus.NewRegistry()
	f := promauto.With(reg)
	return &Metrics{
		registry: reg,
		MessagesDispatched: f.NewCounterVec(prometheus.CounterOpts{
			Name: "scenario_messages_dispatched_total",
			Help: "Messages delivered to oracles, by topic",
		}, []string{"topic"}),
		Violations: f.NewCounterVec(prometheus.CounterOpts{
			Name: "scenario_oracle_violations_total",
			Help: "Finalized violations by oracle and triggered flag",
		}, []string{"oracle", "triggered"}),
		Aborts: f.NewCounterVec(prometheus.CounterOpts{
			Name: "scenario_dispatch_aborts_total",
			Help: "Dispatch loops stopped by an oracle abort request",
		}, []string{"oracle"}),
		RunDuration: f.NewHistogram(prometheus.HistogramOpts{
			Name:    "scenario_run_duration_seconds",
			Help:    "Wall time of analysis runs in seconds",
			Buckets: prometheus.ExponentialBuckets(0.01, 2, 14), // 10ms to ~80s
		}),
	}
}

// Registry exposes the underlying registry for gathering.
func (m *Metrics) Registry() *prometheus.Registry { return m.registry }

// WriteTextfile writes all metrics in the node-exporter textfile format.
func (m *Metrics) WriteTextfile(path string) error {
	if err := prometheus.WriteToTextfile(path, m.registry); err != nil {
		return fmt.Errorf("failed to write metrics textfile: %w", err)
	}
	return nil
}

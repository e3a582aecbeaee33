// Package metrics collects Prometheus metrics for corpus runs. Runs are
// batch jobs, so the registry is written to a node-exporter textfile instead
// of being served.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Metrics holds the collectors of one process.
type Metrics struct {
	registry *prometheus.Registry

	PairsScored   *prometheus.CounterVec
	SameContext   *prometheus.CounterVec
	DroppedTokens *prometheus.CounterVec
	Lemmas        *prometheus.GaugeVec
	Neighbors     *prometheus.GaugeVec
	RunDuration   *prometheus.GaugeVec
}

// New creates the collectors on a fresh registry.
func New() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		PairsScored: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "wicbow_pairs_scored_total",
			Help: "Pairs that received a same-context verdict.",
		}, []string{"corpus"}),
		SameContext: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "wicbow_same_context_total",
			Help: "Pairs judged to use the word in the same context.",
		}, []string{"corpus"}),
		DroppedTokens: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "wicbow_vector_dropped_tokens_total",
			Help: "Window tokens missing from the vocabulary while building context vectors.",
		}, []string{"corpus"}),
		Lemmas: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Name: "wicbow_vocabulary_lemmas",
			Help: "Lemmas in the finalized vocabulary.",
		}, []string{"corpus"}),
		Neighbors: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Name: "wicbow_vocabulary_neighbors",
			Help: "Neighbour words summed over all lemmas of the finalized vocabulary.",
		}, []string{"corpus"}),
		RunDuration: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Name: "wicbow_run_duration_seconds",
			Help: "Wall time of the last run.",
		}, []string{"corpus"}),
	}
	m.registry.MustRegister(m.PairsScored, m.SameContext, m.DroppedTokens, m.Lemmas, m.Neighbors, m.RunDuration)
	return m
}

// Registry returns the registry holding the collectors.
func (m *Metrics) Registry() *prometheus.Registry { return m.registry }

// ObserveVocabulary records the size of a finalized vocabulary.
func (m *Metrics) ObserveVocabulary(corpus string, lemmas, neighbors int) {
	m.Lemmas.WithLabelValues(corpus).Set(float64(lemmas))
	m.Neighbors.WithLabelValues(corpus).Set(float64(neighbors))
}

// ObservePair records one scored pair.
func (m *Metrics) ObservePair(corpus string, same bool, dropped int) {
	m.PairsScored.WithLabelValues(corpus).Inc()
	if same {
		m.SameContext.WithLabelValues(corpus).Inc()
	}
	if dropped > 0 {
		m.DroppedTokens.WithLabelValues(corpus).Add(float64(dropped))
	}
}

// ObserveDuration records how long a run took.
func (m *Metrics) ObserveDuration(corpus string, d time.Duration) {
	m.RunDuration.WithLabelValues(corpus).Set(d.Seconds())
}

// WriteTextfile writes the registry in the text exposition format.
func (m *Metrics) WriteTextfile(path string) error {
	return prometheus.WriteToTextfile(path, m.registry)
}

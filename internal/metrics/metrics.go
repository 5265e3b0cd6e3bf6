// Package metrics exposes Prometheus instrumentation for the refresh pipeline
// and the HTTP API.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Metrics holds the collectors registered for one service instance.
type Metrics struct {
	RefreshTotal    *prometheus.CounterVec
	RefreshDuration prometheus.Histogram
	SimilarityTotal *prometheus.CounterVec
	ActiveTopKSize  prometheus.Gauge
	AnswerVectorSet prometheus.Gauge
}

// New creates and registers the collectors on reg.
func New(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		RefreshTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "ssamantle",
			Name:      "refresh_total",
			Help:      "Refresh pipeline runs by outcome.",
		}, []string{"outcome"}),
		RefreshDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "ssamantle",
			Name:      "refresh_duration_seconds",
			Help:      "Wall time of refresh pipeline runs.",
			Buckets:   prometheus.ExponentialBuckets(0.01, 4, 8),
		}),
		SimilarityTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "ssamantle",
			Name:      "similarity_requests_total",
			Help:      "Similarity lookups by result.",
		}, []string{"result"}),
		ActiveTopKSize: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "ssamantle",
			Name:      "active_topk_size",
			Help:      "Number of ranked neighbors for the active date.",
		}),
		AnswerVectorSet: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "ssamantle",
			Name:      "answer_vector_ready",
			Help:      "1 when the active answer has a vector, 0 otherwise.",
		}),
	}
	reg.MustRegister(
		m.RefreshTotal,
		m.RefreshDuration,
		m.SimilarityTotal,
		m.ActiveTopKSize,
		m.AnswerVectorSet,
	)
	return m
}

// Package metrics exposes Prometheus collectors of the signal engine.
// A nil *Metrics is valid and records nothing.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/vadiminshakov/sigengine/internal/domain"
)

// Metrics holds the engine's Prometheus collectors.
type Metrics struct {
	gatherer prometheus.Gatherer

	SignalsTotal       *prometheus.CounterVec // labels: symbol, direction
	DecisionDuration   prometheus.Histogram
	DecisionFailures   *prometheus.CounterVec // labels: symbol
	SignalConfidence   *prometheus.GaugeVec   // labels: symbol
	FetchDuration      *prometheus.HistogramVec
	FetchErrors        *prometheus.CounterVec // labels: source, interval
	DegradedAnalyses   *prometheus.CounterVec // labels: component
	CandleCacheResults *prometheus.CounterVec // labels: result=hit|miss|error
}

// New creates the collectors and registers them on reg. A nil reg uses a
// fresh private registry.
func New(reg *prometheus.Registry) *Metrics {
	if reg == nil {
		reg = prometheus.NewRegistry()
	}

	m := &Metrics{
		gatherer: reg,
		SignalsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "sigengine_signals_total",
			Help: "Trading signals produced, by symbol and direction",
		}, []string{"symbol", "direction"}),
		DecisionDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "sigengine_decision_duration_seconds",
			Help:    "Wall-clock latency of one decision including sub-analysis fetches",
			Buckets: []float64{0.01, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 20},
		}),
		DecisionFailures: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "sigengine_decision_failures_total",
			Help: "Decisions that failed because the primary series was unavailable",
		}, []string{"symbol"}),
		SignalConfidence: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Name: "sigengine_signal_confidence",
			Help: "Confidence of the latest signal per symbol",
		}, []string{"symbol"}),
		FetchDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "sigengine_candle_fetch_duration_seconds",
			Help:    "Candle fetch latency by source",
			Buckets: prometheus.DefBuckets,
		}, []string{"source"}),
		FetchErrors: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "sigengine_candle_fetch_errors_total",
			Help: "Failed candle fetches by source and interval",
		}, []string{"source", "interval"}),
		DegradedAnalyses: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "sigengine_degraded_analyses_total",
			Help: "Sub-analyses replaced by their neutral default",
		}, []string{"component"}),
		CandleCacheResults: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "sigengine_candle_cache_results_total",
			Help: "Candle cache lookups by result",
		}, []string{"result"}),
	}

	reg.MustRegister(
		m.SignalsTotal,
		m.DecisionDuration,
		m.DecisionFailures,
		m.SignalConfidence,
		m.FetchDuration,
		m.FetchErrors,
		m.DegradedAnalyses,
		m.CandleCacheResults,
	)

	return m
}

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	if m == nil {
		return http.NotFoundHandler()
	}
	return promhttp.HandlerFor(m.gatherer, promhttp.HandlerOpts{})
}

// ObserveSignal records a produced signal.
func (m *Metrics) ObserveSignal(signal domain.TradingSignal, took time.Duration) {
	if m == nil {
		return
	}
	m.SignalsTotal.WithLabelValues(signal.Symbol, string(signal.Direction)).Inc()
	m.SignalConfidence.WithLabelValues(signal.Symbol).Set(signal.Confidence)
	m.DecisionDuration.Observe(took.Seconds())
}

// ObserveDecisionFailure records a decision that could not be made.
func (m *Metrics) ObserveDecisionFailure(symbol string) {
	if m == nil {
		return
	}
	m.DecisionFailures.WithLabelValues(symbol).Inc()
}

// ObserveFetch records one candle fetch.
func (m *Metrics) ObserveFetch(source, interval string, took time.Duration, err error) {
	if m == nil {
		return
	}
	m.FetchDuration.WithLabelValues(source).Observe(took.Seconds())
	if err != nil {
		m.FetchErrors.WithLabelValues(source, interval).Inc()
	}
}

// ObserveDegraded records a sub-analysis that fell back to its neutral default.
func (m *Metrics) ObserveDegraded(component string) {
	if m == nil {
		return
	}
	m.DegradedAnalyses.WithLabelValues(component).Inc()
}

// ObserveCache records a candle cache lookup result.
func (m *Metrics) ObserveCache(result string) {
	if m == nil {
		return
	}
	m.CandleCacheResults.WithLabelValues(result).Inc()
}

// Package telemetry provides run-level monitoring for the research agent:
// a prefixed logger plus prometheus metrics for runs, rounds, model calls
// and provider searches.
package telemetry

import (
	"fmt"
	"log"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Telemetry tracks pipeline activity. Each instance owns its registry so
// tests can construct it freely.
type Telemetry struct {
	logger   *log.Logger
	registry *prometheus.Registry

	runsTotal     *prometheus.CounterVec
	roundsTotal   prometheus.Counter
	llmCallsTotal *prometheus.CounterVec
	searchesTotal *prometheus.CounterVec
	runDuration   prometheus.Histogram
	compressions  prometheus.Counter
}

// NewTelemetry creates a telemetry instance with its own registry.
func NewTelemetry() *Telemetry {
	reg := prometheus.NewRegistry()
	factory := promauto.With(reg)

	return &Telemetry{
		logger:   log.New(log.Writer(), "[TELEMETRY] ", log.LstdFlags),
		registry: reg,
		runsTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "insight_runs_total",
			Help: "Completed research runs by outcome.",
		}, []string{"outcome"}),
		roundsTotal: factory.NewCounter(prometheus.CounterOpts{
			Name: "insight_rounds_total",
			Help: "Query-generation rounds across all runs.",
		}),
		llmCallsTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "insight_llm_calls_total",
			Help: "Model calls by kind and outcome.",
		}, []string{"kind", "outcome"}),
		searchesTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "insight_search_calls_total",
			Help: "Provider search calls by outcome.",
		}, []string{"outcome"}),
		runDuration: factory.NewHistogram(prometheus.HistogramOpts{
			Name:    "insight_run_duration_seconds",
			Help:    "Wall-clock duration of research runs.",
			Buckets: prometheus.ExponentialBuckets(1, 2, 10),
		}),
		compressions: factory.NewCounter(prometheus.CounterOpts{
			Name: "insight_document_compressions_total",
			Help: "Documents compressed before extraction.",
		}),
	}
}

// RecordRun records a completed run and its duration.
func (t *Telemetry) RecordRun(outcome string, d time.Duration) {
	t.runsTotal.WithLabelValues(outcome).Inc()
	t.runDuration.Observe(d.Seconds())
	t.logger.Printf("run finished: outcome=%s duration=%s", outcome, d)
}

// RecordRound records one query-generation round.
func (t *Telemetry) RecordRound() { t.roundsTotal.Inc() }

// RecordLLMCall records a model call of the given kind.
func (t *Telemetry) RecordLLMCall(kind string, err error) {
	t.llmCallsTotal.WithLabelValues(kind, outcome(err)).Inc()
}

// RecordSearch records one aggregated provider search.
func (t *Telemetry) RecordSearch(err error) {
	t.searchesTotal.WithLabelValues(outcome(err)).Inc()
}

// RecordCompression records one per-document compression call.
func (t *Telemetry) RecordCompression() { t.compressions.Inc() }

// Handler exposes the metrics endpoint for this instance's registry.
func (t *Telemetry) Handler() http.Handler {
	return promhttp.HandlerFor(t.registry, promhttp.HandlerOpts{})
}

// Serve starts a metrics server on the given port. Blocking.
func (t *Telemetry) Serve(port int) error {
	mux := http.NewServeMux()
	mux.Handle("/metrics", t.Handler())
	t.logger.Printf("metrics listening on :%d", port)
	return http.ListenAndServe(fmt.Sprintf(":%d", port), mux)
}

func outcome(err error) string {
	if err != nil {
		return "error"
	}
	return "success"
}

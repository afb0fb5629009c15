// Package prometheus records pipeline and agent events as Prometheus metrics.
package prometheus

import (
	"errors"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/custodia-labs/fedreg/internal/core/domain"
	"github.com/custodia-labs/fedreg/internal/core/ports/driven"
)

// Ensure Recorder implements the interface.
var _ driven.MetricsRecorder = (*Recorder)(nil)

const namespace = "fedreg"

// Recorder holds the collectors on a private registry.
type Recorder struct {
	registry *prometheus.Registry
	provider string

	daysFetched   *prometheus.CounterVec
	itemsFetched  prometheus.Counter
	records       *prometheus.CounterVec
	toolCalls     *prometheus.CounterVec
	llmCalls      *prometheus.CounterVec
	llmLatency    *prometheus.HistogramVec
	lastRunMillis prometheus.Gauge
}

// NewRecorder creates a recorder. provider labels LLM series.
func NewRecorder(provider string) *Recorder {
	reg := prometheus.NewRegistry()
	factory := promauto.With(reg)

	return &Recorder{
		registry: reg,
		provider: provider,

		daysFetched: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "days_fetched_total",
			Help:      "Days fetched from the source by outcome",
		}, []string{"outcome"}),

		itemsFetched: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "items_fetched_total",
			Help:      "Raw items fetched from the source",
		}),

		records: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "records_upserted_total",
			Help:      "Records processed by the upserter by outcome",
		}, []string{"outcome"}),

		toolCalls: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "tool_invocations_total",
			Help:      "Search tool invocations by outcome",
		}, []string{"outcome"}),

		llmCalls: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "llm_calls_total",
			Help:      "LLM calls by provider, model and outcome",
		}, []string{"provider", "model", "outcome"}),

		llmLatency: factory.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "llm_call_duration_seconds",
			Help:      "LLM call latency in seconds",
			Buckets:   []float64{0.1, 0.5, 1, 2, 5, 10, 30, 60, 120},
		}, []string{"provider", "model"}),

		lastRunMillis: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "last_event_timestamp_milliseconds",
			Help:      "Unix time of the last recorded event",
		}),
	}
}

// DayFetched records one day's fetch outcome.
func (r *Recorder) DayFetched(ok bool, items int) {
	outcome := "ok"
	if !ok {
		outcome = "failed"
	}
	r.daysFetched.WithLabelValues(outcome).Inc()
	r.itemsFetched.Add(float64(items))
	r.touch()
}

// RecordsUpserted records the outcome of one committed batch.
func (r *Recorder) RecordsUpserted(inserted, updated, unchanged, skipped int) {
	r.records.WithLabelValues("inserted").Add(float64(inserted))
	r.records.WithLabelValues("updated").Add(float64(updated))
	r.records.WithLabelValues("unchanged").Add(float64(unchanged))
	r.records.WithLabelValues("skipped").Add(float64(skipped))
	r.touch()
}

// ToolInvoked records a tool invocation outcome.
func (r *Recorder) ToolInvoked(outcome string) {
	r.toolCalls.WithLabelValues(outcome).Inc()
	r.touch()
}

// LLMCalled records one LLM call.
func (r *Recorder) LLMCalled(model string, duration time.Duration, err error) {
	r.llmCalls.WithLabelValues(r.provider, model, llmOutcome(err)).Inc()
	r.llmLatency.WithLabelValues(r.provider, model).Observe(duration.Seconds())
	r.touch()
}

// Gatherer exposes the private registry.
func (r *Recorder) Gatherer() prometheus.Gatherer {
	return r.registry
}

// Handler serves the registry in the Prometheus exposition format.
func (r *Recorder) Handler() http.Handler {
	return promhttp.HandlerFor(r.registry, promhttp.HandlerOpts{})
}

// WriteTextfile writes the registry for the node exporter textfile collector.
// The file is written to a temp name and renamed.
func (r *Recorder) WriteTextfile(path string) error {
	return prometheus.WriteToTextfile(path, r.registry)
}

func (r *Recorder) touch() {
	r.lastRunMillis.Set(float64(time.Now().UnixMilli()))
}

func llmOutcome(err error) string {
	switch {
	case err == nil:
		return "ok"
	case errors.Is(err, domain.ErrLLMTimeout):
		return "timeout"
	default:
		return "error"
	}
}

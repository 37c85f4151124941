package observability

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics groups all Prometheus instruments used by the service.
type Metrics struct {
	registry *prometheus.Registry

	ActiveCalls         prometheus.Gauge
	CallEvents          *prometheus.CounterVec
	Webhooks            *prometheus.CounterVec
	ExtractionFallbacks *prometheus.CounterVec
	ExtractionLatency   prometheus.Histogram
	Exports             prometheus.Counter
	ExportedRecords     prometheus.Counter
	OneTimeCodes        *prometheus.CounterVec
}

func NewMetrics(namespace string) *Metrics {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	factory := promauto.With(reg)

	return &Metrics{
		registry: reg,
		ActiveCalls: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "active_calls",
			Help:      "Number of calls with a live session.",
		}),
		CallEvents: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "call_events_total",
			Help:      "Call lifecycle events by type.",
		}, []string{"event"}),
		Webhooks: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "webhooks_total",
			Help:      "Telephony webhooks by route and outcome.",
		}, []string{"route", "outcome"}),
		ExtractionFallbacks: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "extraction_fallbacks_total",
			Help:      "Extractions that resolved to the Unknown fallback, by reason.",
		}, []string{"reason"}),
		ExtractionLatency: factory.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "extraction_latency_ms",
			Help:      "Latency of post-call extraction in milliseconds.",
			Buckets:   []float64{250, 500, 1000, 2000, 4000, 8000, 12000, 20000},
		}),
		Exports: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "consent_exports_total",
			Help:      "Consent export files written.",
		}),
		ExportedRecords: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "consent_export_records_total",
			Help:      "Consent records written to export files.",
		}),
		OneTimeCodes: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "one_time_codes_total",
			Help:      "One-time code operations by result.",
		}, []string{"result"}),
	}
}

func (m *Metrics) ExtractionFallback(reason string) {
	m.ExtractionFallbacks.WithLabelValues(reason).Inc()
}

func (m *Metrics) ObserveExtraction(d time.Duration) {
	m.ExtractionLatency.Observe(float64(d.Milliseconds()))
}

func (m *Metrics) ExportCompleted(records int) {
	m.Exports.Inc()
	m.ExportedRecords.Add(float64(records))
}

func (m *Metrics) CallStarted(string) {
	m.ActiveCalls.Inc()
	m.CallEvents.WithLabelValues("started").Inc()
}

// CallEnded records how a call left the live set.
func (m *Metrics) CallEnded(_ string, abandoned bool) {
	outcome := "completed"
	if abandoned {
		outcome = "abandoned"
	}
	m.ActiveCalls.Dec()
	m.CallEvents.WithLabelValues(outcome).Inc()
}

func (m *Metrics) Webhook(route, outcome string) {
	m.Webhooks.WithLabelValues(route, outcome).Inc()
}

func (m *Metrics) OneTimeCode(result string) {
	m.OneTimeCodes.WithLabelValues(result).Inc()
}

func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

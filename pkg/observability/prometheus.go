package observability

import (
	"context"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "pypigraph"

// PrometheusHooks implements MirrorHooks, CacheHooks and HTTPHooks on top of
// Prometheus collectors. Register one instance with all three setters.
type PrometheusHooks struct {
	passes        *prometheus.CounterVec
	passDuration  prometheus.Histogram
	lastPass      prometheus.Gauge
	projects      prometheus.Gauge
	fetches       *prometheus.CounterVec
	fetchDuration *prometheus.HistogramVec
	records       *prometheus.CounterVec
	httpRequests  *prometheus.CounterVec
	httpErrors    *prometheus.CounterVec
	cacheEvents   *prometheus.CounterVec
}

// NewPrometheusHooks creates the collectors and registers them with reg.
func NewPrometheusHooks(reg prometheus.Registerer) *PrometheusHooks {
	h := &PrometheusHooks{
		passes: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "passes_total",
			Help:      "Reconciliation passes by result.",
		}, []string{"result"}),
		passDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "pass_duration_seconds",
			Help:      "Duration of reconciliation passes.",
			Buckets:   []float64{1, 5, 30, 60, 300, 900, 1800, 3600, 7200},
		}),
		lastPass: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "last_pass_timestamp_seconds",
			Help:      "Unix time of the last successful pass.",
		}),
		projects: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "snapshot_projects",
			Help:      "Projects listed by the last registry snapshot.",
		}),
		fetches: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "metadata_fetches_total",
			Help:      "Metadata fetches by phase and result.",
		}, []string{"phase", "result"}),
		fetchDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "metadata_fetch_duration_seconds",
			Help:      "Latency of metadata fetches.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"phase"}),
		records: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "records_total",
			Help:      "Store records by reconciliation outcome.",
		}, []string{"outcome"}),
		httpRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "http_requests_total",
			Help:      "Registry HTTP responses by host and status code.",
		}, []string{"host", "code"}),
		httpErrors: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "http_errors_total",
			Help:      "Registry HTTP transport failures by host.",
		}, []string{"host"}),
		cacheEvents: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "cache_events_total",
			Help:      "Response cache hits, misses and writes.",
		}, []string{"namespace", "event"}),
	}

	reg.MustRegister(
		h.passes, h.passDuration, h.lastPass, h.projects,
		h.fetches, h.fetchDuration, h.records,
		h.httpRequests, h.httpErrors, h.cacheEvents,
	)
	return h
}

func (h *PrometheusHooks) OnPassStart(context.Context, string) {}

func (h *PrometheusHooks) OnSnapshot(_ context.Context, projects int, _ time.Duration, err error) {
	if err == nil {
		h.projects.Set(float64(projects))
	}
}

func (h *PrometheusHooks) OnFetch(_ context.Context, phase string, ok bool, d time.Duration) {
	h.fetches.WithLabelValues(phase, resultLabel(ok)).Inc()
	h.fetchDuration.WithLabelValues(phase).Observe(d.Seconds())
}

func (h *PrometheusHooks) OnRecord(_ context.Context, outcome string, count int) {
	h.records.WithLabelValues(outcome).Add(float64(count))
}

func (h *PrometheusHooks) OnPassComplete(_ context.Context, _ string, d time.Duration, err error) {
	h.passes.WithLabelValues(resultLabel(err == nil)).Inc()
	h.passDuration.Observe(d.Seconds())
	if err == nil {
		h.lastPass.SetToCurrentTime()
	}
}

func (h *PrometheusHooks) OnCacheHit(_ context.Context, ns string) {
	h.cacheEvents.WithLabelValues(ns, "hit").Inc()
}

func (h *PrometheusHooks) OnCacheMiss(_ context.Context, ns string) {
	h.cacheEvents.WithLabelValues(ns, "miss").Inc()
}

func (h *PrometheusHooks) OnCacheSet(_ context.Context, ns string, _ int) {
	h.cacheEvents.WithLabelValues(ns, "set").Inc()
}

func (h *PrometheusHooks) OnRequest(context.Context, string, string, string) {}

func (h *PrometheusHooks) OnResponse(_ context.Context, _, host, _ string, code int, _ time.Duration) {
	h.httpRequests.WithLabelValues(host, strconv.Itoa(code)).Inc()
}

func (h *PrometheusHooks) OnError(_ context.Context, _, host, _ string, _ error) {
	h.httpErrors.WithLabelValues(host).Inc()
}

func resultLabel(ok bool) string {
	if ok {
		return "success"
	}
	return "failure"
}

var (
	_ MirrorHooks = (*PrometheusHooks)(nil)
	_ CacheHooks  = (*PrometheusHooks)(nil)
	_ HTTPHooks   = (*PrometheusHooks)(nil)
)

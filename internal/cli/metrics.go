package cli

import (
	"context"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/matzehuels/qrraster/pkg/observability"
)

// metrics implements the observability hooks on top of Prometheus
// collectors. The server registers it at startup and exposes the registry
// on /metrics.
type metrics struct {
	encodeSeconds *prometheus.HistogramVec
	renderSeconds *prometheus.HistogramVec
	artifactBytes *prometheus.HistogramVec
	cacheEvents   *prometheus.CounterVec
	httpRequests  *prometheus.CounterVec
	httpSeconds   prometheus.Histogram
}

func newMetrics(reg prometheus.Registerer) *metrics {
	f := promauto.With(reg)
	return &metrics{
		encodeSeconds: f.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "qrraster_encode_duration_seconds",
				Help:    "Time spent encoding content into a module matrix",
				Buckets: prometheus.ExponentialBuckets(0.0001, 4, 8), // 100us -> 1.6s
			},
			[]string{"outcome"},
		),
		renderSeconds: f.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "qrraster_render_duration_seconds",
				Help:    "Time spent rasterizing a matrix into an artifact",
				Buckets: prometheus.ExponentialBuckets(0.0001, 4, 8),
			},
			[]string{"format", "outcome"},
		),
		artifactBytes: f.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "qrraster_artifact_bytes",
				Help:    "Size of rendered artifacts",
				Buckets: prometheus.ExponentialBuckets(256, 2, 12), // 256B -> 512KiB
			},
			[]string{"format"},
		),
		cacheEvents: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "qrraster_cache_events_total",
				Help: "Artifact cache lookups and writes",
			},
			[]string{"type", "event"},
		),
		httpRequests: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "qrraster_http_requests_total",
				Help: "HTTP responses by status code",
			},
			[]string{"code"},
		),
		httpSeconds: f.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "qrraster_http_request_duration_seconds",
				Help:    "HTTP request latency",
				Buckets: prometheus.DefBuckets,
			},
		),
	}
}

// register installs m as the process-wide render, cache and HTTP hooks.
func (m *metrics) register() {
	observability.SetRenderHooks(m)
	observability.SetCacheHooks(m)
	observability.SetHTTPHooks(m)
}

func outcome(err error) string {
	if err != nil {
		return "error"
	}
	return "success"
}

func (m *metrics) OnEncodeStart(context.Context, int, string) {}

func (m *metrics) OnEncodeComplete(_ context.Context, _, _ int, d time.Duration, err error) {
	m.encodeSeconds.WithLabelValues(outcome(err)).Observe(d.Seconds())
}

func (m *metrics) OnRenderStart(context.Context, string, int) {}

func (m *metrics) OnRenderComplete(_ context.Context, format string, size int, d time.Duration, err error) {
	m.renderSeconds.WithLabelValues(format, outcome(err)).Observe(d.Seconds())
	if err == nil {
		m.artifactBytes.WithLabelValues(format).Observe(float64(size))
	}
}

func (m *metrics) OnCacheHit(_ context.Context, keyType string) {
	m.cacheEvents.WithLabelValues(keyType, "hit").Inc()
}

func (m *metrics) OnCacheMiss(_ context.Context, keyType string) {
	m.cacheEvents.WithLabelValues(keyType, "miss").Inc()
}

func (m *metrics) OnCacheSet(_ context.Context, keyType string, _ int) {
	m.cacheEvents.WithLabelValues(keyType, "set").Inc()
}

func (m *metrics) OnRequest(context.Context, string, string, string) {}

func (m *metrics) OnResponse(_ context.Context, _ string, status int, d time.Duration) {
	m.httpRequests.WithLabelValues(strconv.Itoa(status)).Inc()
	m.httpSeconds.Observe(d.Seconds())
}

var (
	_ observability.RenderHooks = (*metrics)(nil)
	_ observability.CacheHooks  = (*metrics)(nil)
	_ observability.HTTPHooks   = (*metrics)(nil)
)

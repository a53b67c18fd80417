package addon

import (
	"context"
	"net/http"
	"time"

	prom "github.com/prometheus/client_golang/prometheus"
	promcollect "github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"subsync/internal/queue"
)

// Metrics bundles the Prometheus collectors the addon server exports.
type Metrics struct {
	registry *prom.Registry

	httpRequests     *prom.CounterVec
	subtitleRequests *prom.CounterVec
	syncOutcomes     *prom.CounterVec
	syncDuration     prom.Histogram
}

// Subtitle request outcomes tracked by subsync_subtitle_requests_total.
const (
	SubtitleResultCached  = "cached"
	SubtitleResultQueued  = "queued"
	SubtitleResultPending = "pending"
	SubtitleResultInvalid = "invalid"
	SubtitleResultError   = "error"
)

// NewMetrics constructs and registers the addon collectors. Queue depth
// gauges query the store at scrape time.
func NewMetrics(store *queue.Store) *Metrics {
	registry := prom.NewRegistry()
	m := &Metrics{
		registry: registry,
		httpRequests: prom.NewCounterVec(prom.CounterOpts{
			Namespace: "subsync",
			Name:      "http_requests_total",
			Help:      "HTTP requests served, by route and status code",
		}, []string{"route", "code"}),
		subtitleRequests: prom.NewCounterVec(prom.CounterOpts{
			Namespace: "subsync",
			Name:      "subtitle_requests_total",
			Help:      "Stremio subtitle queries, by outcome",
		}, []string{"result"}),
		syncOutcomes: prom.NewCounterVec(prom.CounterOpts{
			Namespace: "subsync",
			Name:      "sync_jobs_total",
			Help:      "Finished sync jobs, by outcome",
		}, []string{"outcome"}),
		syncDuration: prom.NewHistogram(prom.HistogramOpts{
			Namespace: "subsync",
			Name:      "sync_duration_seconds",
			Help:      "Wall time of sync job executions",
			Buckets:   prom.ExponentialBuckets(1, 2, 10),
		}),
	}
	registry.MustRegister(m.httpRequests, m.subtitleRequests, m.syncOutcomes, m.syncDuration)
	if store != nil {
		for _, status := range queue.AllStatuses() {
			registry.MustRegister(queueDepthGauge(store, status))
		}
	}
	registry.MustRegister(promcollect.NewGoCollector(), promcollect.NewProcessCollector(promcollect.ProcessCollectorOpts{}))
	return m
}

func queueDepthGauge(store *queue.Store, status queue.Status) prom.GaugeFunc {
	return prom.NewGaugeFunc(prom.GaugeOpts{
		Namespace:   "subsync",
		Name:        "queue_jobs",
		Help:        "Sync jobs currently in the queue, by status",
		ConstLabels: prom.Labels{"status": string(status)},
	}, func() float64 {
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		stats, err := store.Stats(ctx)
		if err != nil {
			return 0
		}
		return float64(stats[status])
	})
}

// ObserveRequest records one served HTTP request.
func (m *Metrics) ObserveRequest(route, code string) {
	if m == nil {
		return
	}
	m.httpRequests.WithLabelValues(route, code).Inc()
}

// ObserveSubtitleRequest records the outcome of a Stremio subtitle query.
func (m *Metrics) ObserveSubtitleRequest(result string) {
	if m == nil {
		return
	}
	m.subtitleRequests.WithLabelValues(result).Inc()
}

// ObserveSync records a finished sync job execution. Outcome is one of
// "completed", "retried", or "failed".
func (m *Metrics) ObserveSync(outcome string, duration time.Duration) {
	if m == nil {
		return
	}
	m.syncOutcomes.WithLabelValues(outcome).Inc()
	m.syncDuration.Observe(duration.Seconds())
}

// Handler exposes the registry in Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

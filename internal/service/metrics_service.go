package service

import (
	"fmt"
	"net/http"
	"runtime"
	"sync/atomic"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/noah-isme/docrequest-portal/internal/models"
)

// Outcome labels shared by the domain counters.
const (
	outcomeOK        = "ok"
	outcomeRejected  = "rejected"
	outcomeReplay    = "replay"
	outcomeConflict  = "conflict"
	outcomeFailed    = "failed"
	outcomeDropped   = "dropped"
	expirySourceLazy = "lazy"
	expirySweep      = "sweep"
)

// MetricsService encapsulates Prometheus instrumentation and provides lightweight snapshots for API consumption.
type MetricsService struct {
	registry        *prometheus.Registry
	handler         http.Handler
	requestDuration *prometheus.HistogramVec
	requestTotal    *prometheus.CounterVec
	cacheLatency    prometheus.Histogram
	cacheWrite      prometheus.Histogram
	cacheHitRatio   prometheus.Gauge
	cacheHits       prometheus.Counter
	cacheMisses     prometheus.Counter

	requestsCreated *prometheus.CounterVec
	transitions     *prometheus.CounterVec
	tokenChecks     *prometheus.CounterVec
	uploads         *prometheus.CounterVec
	uploadedBytes   prometheus.Histogram
	commits         *prometheus.CounterVec
	expirations     *prometheus.CounterVec
	notifications   *prometheus.CounterVec
	sweepDuration   prometheus.Histogram

	cacheHitCount        uint64
	cacheMissCount       uint64
	requestCount         uint64
	requestDurationTotal uint64
	createdCount         uint64
	tokenRejectCount     uint64
	fileCount            uint64
	commitCount          uint64
	expiredCount         uint64
}

// NewMetricsService registers core Prometheus collectors.
func NewMetricsService() *MetricsService {
	registry := prometheus.NewRegistry()

	m := &MetricsService{
		registry: registry,
		requestDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "http_request_duration_seconds",
			Help:    "Duration of HTTP requests in seconds",
			Buckets: prometheus.DefBuckets,
		}, []string{"method", "path", "status"}),
		requestTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "http_requests_total",
			Help: "Total number of HTTP requests",
		}, []string{"method", "path", "status"}),
		cacheLatency: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "cache_latency_seconds",
			Help:    "Latency for cache operations",
			Buckets: prometheus.DefBuckets,
		}),
		cacheWrite: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "cache_write_seconds",
			Help:    "Latency for cache set operations",
			Buckets: prometheus.DefBuckets,
		}),
		cacheHitRatio: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "cache_hit_ratio",
			Help: "Ratio of cache hits to total cache lookups",
		}),
		cacheHits: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "cache_hits_total",
			Help: "Total cache hits",
		}),
		cacheMisses: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "cache_misses_total",
			Help: "Total cache misses",
		}),
		requestsCreated: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "document_requests_created_total",
			Help: "Document requests created, by initial status",
		}, []string{"status"}),
		transitions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "document_request_transitions_total",
			Help: "Document request status transitions, by target status",
		}, []string{"to"}),
		tokenChecks: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "portal_token_validations_total",
			Help: "Portal token validations by outcome",
		}, []string{"outcome"}),
		uploads: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "portal_uploads_total",
			Help: "Portal upload batches by outcome",
		}, []string{"outcome"}),
		uploadedBytes: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "portal_upload_bytes",
			Help:    "Size of accepted uploaded files",
			Buckets: prometheus.ExponentialBuckets(1024, 4, 10),
		}),
		commits: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "document_request_commits_total",
			Help: "Commit attempts by outcome",
		}, []string{"outcome"}),
		expirations: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "document_request_expirations_total",
			Help: "Requests moved to Expired, by source",
		}, []string{"source"}),
		notifications: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "recipient_notifications_total",
			Help: "Recipient notification dispatches by outcome",
		}, []string{"outcome"}),
		sweepDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "expiration_sweep_duration_seconds",
			Help:    "Duration of expiration sweep runs",
			Buckets: prometheus.DefBuckets,
		}),
	}

	goroutines := prometheus.NewGaugeFunc(prometheus.GaugeOpts{
		Name: "goroutines_total",
		Help: "Total number of goroutines",
	}, func() float64 {
		return float64(runtime.NumGoroutine())
	})

	registry.MustRegister(m.requestDuration, m.requestTotal, m.cacheLatency, m.cacheWrite,
		m.cacheHitRatio, m.cacheHits, m.cacheMisses, m.requestsCreated, m.transitions, m.tokenChecks, m.uploads,
		m.uploadedBytes, m.commits, m.expirations, m.notifications, m.sweepDuration, goroutines)

	m.handler = promhttp.HandlerFor(registry, promhttp.HandlerOpts{})
	return m
}

// Handler exposes the Prometheus HTTP handler.
func (m *MetricsService) Handler() http.Handler {
	if m == nil {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusServiceUnavailable)
		})
	}
	return m.handler
}

// ObserveHTTPRequest records request metrics and aggregates simple stats for snapshots.
func (m *MetricsService) ObserveHTTPRequest(method, path string, status int, duration time.Duration) {
	if m == nil {
		return
	}
	labelStatus := fmt.Sprintf("%d", status)
	m.requestDuration.WithLabelValues(method, path, labelStatus).Observe(duration.Seconds())
	m.requestTotal.WithLabelValues(method, path, labelStatus).Inc()
	atomic.AddUint64(&m.requestCount, 1)
	atomic.AddUint64(&m.requestDurationTotal, uint64(duration.Nanoseconds()))
}

// RecordCacheOperation records cache hit/miss metrics and updates hit ratio.
func (m *MetricsService) RecordCacheOperation(hit bool, duration time.Duration) {
	if m == nil {
		return
	}
	m.cacheLatency.Observe(duration.Seconds())
	if hit {
		m.cacheHits.Inc()
		atomic.AddUint64(&m.cacheHitCount, 1)
	} else {
		m.cacheMisses.Inc()
		atomic.AddUint64(&m.cacheMissCount, 1)
	}
	hits := atomic.LoadUint64(&m.cacheHitCount)
	misses := atomic.LoadUint64(&m.cacheMissCount)
	if total := hits + misses; total > 0 {
		m.cacheHitRatio.Set(float64(hits) / float64(total))
	}
}

// ObserveCacheWrite tracks the duration for cache write operations.
func (m *MetricsService) ObserveCacheWrite(duration time.Duration) {
	if m == nil {
		return
	}
	m.cacheWrite.Observe(duration.Seconds())
}

// RecordRequestCreated counts a new document request.
func (m *MetricsService) RecordRequestCreated(status models.RequestStatus) {
	if m == nil {
		return
	}
	m.requestsCreated.WithLabelValues(string(status)).Inc()
	atomic.AddUint64(&m.createdCount, 1)
}

// RecordTransition counts a status change performed by this process.
func (m *MetricsService) RecordTransition(to models.RequestStatus) {
	if m == nil {
		return
	}
	m.transitions.WithLabelValues(string(to)).Inc()
}

// RecordTokenValidation counts portal token checks.
func (m *MetricsService) RecordTokenValidation(valid bool) {
	if m == nil {
		return
	}
	if valid {
		m.tokenChecks.WithLabelValues(outcomeOK).Inc()
		return
	}
	m.tokenChecks.WithLabelValues(outcomeRejected).Inc()
	atomic.AddUint64(&m.tokenRejectCount, 1)
}

// RecordUpload counts an upload batch and the sizes of accepted files.
func (m *MetricsService) RecordUpload(outcome string, sizes ...int64) {
	if m == nil {
		return
	}
	m.uploads.WithLabelValues(outcome).Inc()
	for _, size := range sizes {
		m.uploadedBytes.Observe(float64(size))
	}
	atomic.AddUint64(&m.fileCount, uint64(len(sizes)))
}

// RecordCommit counts a commit attempt.
func (m *MetricsService) RecordCommit(outcome string) {
	if m == nil {
		return
	}
	m.commits.WithLabelValues(outcome).Inc()
	if outcome == outcomeOK {
		atomic.AddUint64(&m.commitCount, 1)
	}
}

// RecordExpirations counts requests moved to Expired.
func (m *MetricsService) RecordExpirations(source string, count int) {
	if m == nil || count <= 0 {
		return
	}
	m.expirations.WithLabelValues(source).Add(float64(count))
	atomic.AddUint64(&m.expiredCount, uint64(count))
}

// ObserveSweep records the duration of an expiration sweep.
func (m *MetricsService) ObserveSweep(duration time.Duration) {
	if m == nil {
		return
	}
	m.sweepDuration.Observe(duration.Seconds())
}

// RecordNotification counts a notification dispatch attempt.
func (m *MetricsService) RecordNotification(outcome string) {
	if m == nil {
		return
	}
	m.notifications.WithLabelValues(outcome).Inc()
}

// Snapshot returns aggregated metrics for the summary endpoint.
func (m *MetricsService) Snapshot() models.SystemMetrics {
	if m == nil {
		return models.SystemMetrics{}
	}
	hits := atomic.LoadUint64(&m.cacheHitCount)
	misses := atomic.LoadUint64(&m.cacheMissCount)
	requests := atomic.LoadUint64(&m.requestCount)
	reqDuration := atomic.LoadUint64(&m.requestDurationTotal)

	var cacheRatio float64
	if totalLookups := hits + misses; totalLookups > 0 {
		cacheRatio = float64(hits) / float64(totalLookups)
	}

	var avgRequestMs float64
	if requests > 0 {
		avgRequestMs = float64(reqDuration) / float64(requests) / float64(time.Millisecond)
	}

	return models.SystemMetrics{
		CacheHitRatio:            cacheRatio,
		CacheHits:                hits,
		CacheMisses:              misses,
		RequestsTotal:            requests,
		AverageRequestDurationMs: avgRequestMs,
		RequestsCreated:          atomic.LoadUint64(&m.createdCount),
		TokenRejections:          atomic.LoadUint64(&m.tokenRejectCount),
		FilesUploaded:            atomic.LoadUint64(&m.fileCount),
		Commits:                  atomic.LoadUint64(&m.commitCount),
		Expirations:              atomic.LoadUint64(&m.expiredCount),
		Goroutines:               runtime.NumGoroutine(),
		GeneratedAt:              time.Now().UTC(),
	}
}

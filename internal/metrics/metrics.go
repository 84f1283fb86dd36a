// Package metrics holds the service's Prometheus instruments and the
// wrappers that record them.
package metrics

import (
	"database/sql"
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

type Metrics struct {
	reg *prometheus.Registry

	RequestsTotal   *prometheus.CounterVec
	RequestDuration *prometheus.HistogramVec
	StoreLatency    *prometheus.HistogramVec

	CacheHitsTotal   prometheus.Counter
	CacheMissesTotal prometheus.Counter

	// ReorderBatches counts reorder batches by scope (groups, items) and
	// outcome (ok, rejected, error).
	ReorderBatches   *prometheus.CounterVec
	ReorderBatchSize *prometheus.HistogramVec

	// EngineFailures counts client-side commits the remote store rejected,
	// by whether the engine rolled them back.
	EngineFailures *prometheus.CounterVec
}

// New registers every instrument with reg. Pass prometheus.NewRegistry() in
// tests so registrations do not collide.
func New(reg *prometheus.Registry) *Metrics {
	f := promauto.With(reg)
	return &Metrics{
		reg: reg,
		RequestsTotal: f.NewCounterVec(prometheus.CounterOpts{
			Name: "agora_requests_total",
			Help: "Total number of HTTP requests",
		}, []string{"method", "status"}),
		RequestDuration: f.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "agora_request_duration_seconds",
			Help:    "HTTP request duration in seconds",
			Buckets: prometheus.DefBuckets,
		}, []string{"method"}),
		StoreLatency: f.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "agora_store_latency_seconds",
			Help:    "Store operation latency in seconds",
			Buckets: prometheus.DefBuckets,
		}, []string{"operation"}),
		CacheHitsTotal: f.NewCounter(prometheus.CounterOpts{
			Name: "agora_nav_cache_hits_total",
			Help: "Nav snapshot cache hits",
		}),
		CacheMissesTotal: f.NewCounter(prometheus.CounterOpts{
			Name: "agora_nav_cache_misses_total",
			Help: "Nav snapshot cache misses",
		}),
		ReorderBatches: f.NewCounterVec(prometheus.CounterOpts{
			Name: "agora_reorder_batches_total",
			Help: "Reorder batches received",
		}, []string{"scope", "outcome"}),
		ReorderBatchSize: f.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "agora_reorder_batch_size",
			Help:    "Rows per reorder batch",
			Buckets: prometheus.ExponentialBuckets(1, 2, 8),
		}, []string{"scope"}),
		EngineFailures: f.NewCounterVec(prometheus.CounterOpts{
			Name: "agora_engine_commit_failures_total",
			Help: "Optimistic reorder commits rejected by the remote store",
		}, []string{"reverted"}),
	}
}

// NewDefault registers on a fresh registry that also carries the Go runtime
// and process collectors.
func NewDefault() *Metrics {
	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	return New(reg)
}

// WatchDB exports the connection pool statistics of db.
func (m *Metrics) WatchDB(db *sql.DB, name string) {
	m.reg.MustRegister(collectors.NewDBStatsCollector(db, name))
}

// Handler serves the registry in the Prometheus text format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.reg, promhttp.HandlerOpts{})
}

func (m *Metrics) ObserveBatch(scope string, size int, err error, rejected bool) {
	if m == nil {
		return
	}
	outcome := "ok"
	switch {
	case rejected:
		outcome = "rejected"
	case err != nil:
		outcome = "error"
	}
	m.ReorderBatches.WithLabelValues(scope, outcome).Inc()
	m.ReorderBatchSize.WithLabelValues(scope).Observe(float64(size))
}

func (m *Metrics) CacheHit() {
	if m != nil {
		m.CacheHitsTotal.Inc()
	}
}

func (m *Metrics) CacheMiss() {
	if m != nil {
		m.CacheMissesTotal.Inc()
	}
}

func (m *Metrics) EngineFailure(reverted bool) {
	if m != nil {
		m.EngineFailures.WithLabelValues(strconv.FormatBool(reverted)).Inc()
	}
}

// Middleware records HTTP request metrics for Prometheus.
func (m *Metrics) Middleware(next http.Handler) http.Handler {
	if m == nil {
		return next
	}
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rec := &statusWriter{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(rec, r)
		m.RequestsTotal.WithLabelValues(r.Method, strconv.Itoa(rec.status)).Inc()
		m.RequestDuration.WithLabelValues(r.Method).Observe(time.Since(start).Seconds())
	})
}

type statusWriter struct {
	http.ResponseWriter
	status int
}

func (w *statusWriter) WriteHeader(status int) {
	w.status = status
	w.ResponseWriter.WriteHeader(status)
}

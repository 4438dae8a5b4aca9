// Package metrics exposes Prometheus collectors for the dashboard.
// All methods are safe on a nil *Metrics so callers can run without it.
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "wastedash"

// Load results.
const (
	LoadParsed = "parsed"
	LoadReused = "reused"
	LoadError  = "error"
)

type Metrics struct {
	registry *prometheus.Registry

	loads           *prometheus.CounterVec
	droppedRecords  *prometheus.CounterVec
	datasetRecords  prometheus.Gauge
	viewCache       *prometheus.CounterVec
	requestDuration *prometheus.HistogramVec
	snapshotJobs    *prometheus.CounterVec
}

// New registers every collector on a fresh registry, plus the Go and
// process collectors.
func New() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		loads: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "dataset_loads_total",
			Help:      "Dataset load attempts by result.",
		}, []string{"result"}),
		droppedRecords: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "dropped_records_total",
			Help:      "Raw records rejected during cleaning, by reason.",
		}, []string{"reason"}),
		datasetRecords: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "dataset_records",
			Help:      "Clean records in the current dataset.",
		}),
		viewCache: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "view_cache_requests_total",
			Help:      "View cache lookups by result.",
		}, []string{"result"}),
		requestDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "http_request_duration_seconds",
			Help:      "HTTP request latency.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"method", "route", "status"}),
		snapshotJobs: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "snapshot_jobs_total",
			Help:      "Snapshot jobs by stage and result.",
		}, []string{"stage", "result"}),
	}
	m.registry.MustRegister(
		m.loads,
		m.droppedRecords,
		m.datasetRecords,
		m.viewCache,
		m.requestDuration,
		m.snapshotJobs,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return m
}

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	if m == nil {
		return http.NotFoundHandler()
	}
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}

func (m *Metrics) Registry() *prometheus.Registry {
	if m == nil {
		return nil
	}
	return m.registry
}

func (m *Metrics) ObserveLoad(result string) {
	if m == nil {
		return
	}
	m.loads.WithLabelValues(result).Inc()
}

// ObserveDataset records the size and drop counts of a freshly parsed dataset.
func (m *Metrics) ObserveDataset(kept int, dropped map[string]int) {
	if m == nil {
		return
	}
	m.datasetRecords.Set(float64(kept))
	for reason, n := range dropped {
		m.droppedRecords.WithLabelValues(reason).Add(float64(n))
	}
}

func (m *Metrics) ObserveViewCache(hit bool) {
	if m == nil {
		return
	}
	if hit {
		m.viewCache.WithLabelValues("hit").Inc()
		return
	}
	m.viewCache.WithLabelValues("miss").Inc()
}

func (m *Metrics) ObserveRequest(method, route string, status int, d time.Duration) {
	if m == nil {
		return
	}
	m.requestDuration.WithLabelValues(method, route, strconv.Itoa(status)).Observe(d.Seconds())
}

// ObserveSnapshot counts a snapshot job at stage ("enqueue" or "write").
func (m *Metrics) ObserveSnapshot(stage string, err error) {
	if m == nil {
		return
	}
	result := "ok"
	if err != nil {
		result = "error"
	}
	m.snapshotJobs.WithLabelValues(stage, result).Inc()
}

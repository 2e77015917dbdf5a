package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics exposes application metrics that are safe to scrape via Prometheus.
type Metrics struct {
	registry            *prometheus.Registry
	httpRequests        *prometheus.CounterVec
	httpRequestDuration *prometheus.HistogramVec
	importRows          *prometheus.CounterVec
	queryResults        prometheus.Histogram
	cacheLookups        *prometheus.CounterVec
}

// New creates a fresh Metrics registry with HTTP, import and query metrics registered.
func New() *Metrics {
	registry := prometheus.NewRegistry()

	httpRequests := prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "assetmap",
		Name:      "http_requests_total",
		Help:      "Count of HTTP requests processed by assetmap",
	}, []string{"method", "path", "status"})

	httpRequestDuration := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "assetmap",
		Name:      "http_request_duration_seconds",
		Help:      "Duration of HTTP requests served by assetmap",
		Buckets:   prometheus.DefBuckets,
	}, []string{"method", "path", "status"})

	importRows := prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "assetmap",
		Name:      "asset_import_rows_total",
		Help:      "Rows processed by CSV imports, by outcome",
	}, []string{"result"})

	queryResults := prometheus.NewHistogram(prometheus.HistogramOpts{
		Namespace: "assetmap",
		Name:      "asset_query_results",
		Help:      "Number of assets returned per filtered query",
		Buckets:   []float64{0, 1, 10, 50, 100, 500, 1000, 5000},
	})

	cacheLookups := prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "assetmap",
		Name:      "asset_cache_lookups_total",
		Help:      "Asset query cache lookups, by result",
	}, []string{"result"})

	registry.MustRegister(
		httpRequests,
		httpRequestDuration,
		importRows,
		queryResults,
		cacheLookups,
	)

	return &Metrics{
		registry:            registry,
		httpRequests:        httpRequests,
		httpRequestDuration: httpRequestDuration,
		importRows:          importRows,
		queryResults:        queryResults,
		cacheLookups:        cacheLookups,
	}
}

// ObserveHTTPRequest records a single HTTP request/response cycle.
func (m *Metrics) ObserveHTTPRequest(method, path string, status int, duration time.Duration) {
	if m == nil {
		return
	}
	labels := prometheus.Labels{
		"method": method,
		"path":   path,
		"status": strconv.Itoa(status),
	}
	m.httpRequests.With(labels).Inc()
	m.httpRequestDuration.With(labels).Observe(duration.Seconds())
}

// ObserveImport records the row outcomes of one CSV import.
func (m *Metrics) ObserveImport(created, updated, rejected int) {
	if m == nil {
		return
	}
	m.importRows.WithLabelValues("created").Add(float64(created))
	m.importRows.WithLabelValues("updated").Add(float64(updated))
	m.importRows.WithLabelValues("rejected").Add(float64(rejected))
}

func (m *Metrics) ObserveQueryResults(n int) {
	if m == nil {
		return
	}
	m.queryResults.Observe(float64(n))
}

func (m *Metrics) IncCacheLookup(hit bool) {
	if m == nil {
		return
	}
	result := "miss"
	if hit {
		result = "hit"
	}
	m.cacheLookups.WithLabelValues(result).Inc()
}

// Handler exposes the Prometheus registry over HTTP.
func (m *Metrics) Handler() http.Handler {
	if m == nil {
		return http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
			w.WriteHeader(http.StatusServiceUnavailable)
			_, _ = w.Write([]byte("metrics unavailable"))
		})
	}
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

package monitoring

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// PromCollector exports the service's key series to Prometheus. It sits
// alongside the in-memory Metrics: the JSON stats endpoint keeps serving
// dashboards while scrapers get a standard /metrics.
type PromCollector struct {
	registry *prometheus.Registry

	httpRequests        *prometheus.CounterVec
	httpRequestDuration *prometheus.HistogramVec

	analysesCompleted *prometheus.CounterVec
	riskScores        prometheus.Histogram

	eventsImported     prometheus.Counter
	importRowsRejected prometheus.Counter

	assessmentsScored   *prometheus.CounterVec
	rateLimitBlocks     *prometheus.CounterVec
	cacheHits           prometheus.Counter
	cacheMisses         prometheus.Counter
}

// NewPromCollector builds a collector on its own registry so the default Go
// collector noise stays out of the scrape.
func NewPromCollector() *PromCollector {
	registry := prometheus.NewRegistry()
	auto := promauto.With(registry)

	const namespace = "fleetmeter"

	return &PromCollector{
		registry: registry,

		httpRequests: auto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "http_requests_total",
			Help:      "Total number of HTTP requests by endpoint, method and status code",
		}, []string{"endpoint", "method", "status_code"}),

		httpRequestDuration: auto.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "http_request_duration_milliseconds",
			Help:      "HTTP request duration in milliseconds",
			Buckets:   prometheus.DefBuckets,
		}, []string{"endpoint", "method"}),

		analysesCompleted: auto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "risk_analyses_total",
			Help:      "Total number of driver risk analyses by resulting level",
		}, []string{"risk_level"}),

		riskScores: auto.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "risk_score",
			Help:      "Distribution of computed driver risk scores",
			Buckets:   []float64{10, 20, 30, 40, 50, 60, 70, 80, 90, 100},
		}),

		eventsImported: auto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "telemetry_events_imported_total",
			Help:      "Total number of telemetry events accepted by the importer",
		}),

		importRowsRejected: auto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "import_rows_rejected_total",
			Help:      "Total number of import rows rejected by validation",
		}),

		assessmentsScored: auto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "assessments_scored_total",
			Help:      "Total number of candidate module submissions scored, by module",
		}, []string{"module"}),

		rateLimitBlocks: auto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "rate_limit_blocks_total",
			Help:      "Total number of requests blocked by rate limiting, by scope",
		}, []string{"scope"}),

		cacheHits: auto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "cache_hits_total",
			Help:      "Total number of response cache hits",
		}),

		cacheMisses: auto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "cache_misses_total",
			Help:      "Total number of response cache misses",
		}),
	}
}

// Handler returns the scrape handler for the collector's registry.
func (p *PromCollector) Handler() http.Handler {
	return promhttp.HandlerFor(p.registry, promhttp.HandlerOpts{})
}

// ObserveRequest records one served HTTP request.
func (p *PromCollector) ObserveRequest(endpoint, method string, statusCode int, duration time.Duration) {
	p.httpRequests.WithLabelValues(endpoint, method, strconv.Itoa(statusCode)).Inc()
	p.httpRequestDuration.WithLabelValues(endpoint, method).Observe(float64(duration.Milliseconds()))
}

// ObserveAnalysis records one completed risk analysis.
func (p *PromCollector) ObserveAnalysis(riskLevel string, score int) {
	p.analysesCompleted.WithLabelValues(riskLevel).Inc()
	p.riskScores.Observe(float64(score))
}

// ObserveImport records an import batch outcome.
func (p *PromCollector) ObserveImport(accepted, rejected int) {
	p.eventsImported.Add(float64(accepted))
	p.importRowsRejected.Add(float64(rejected))
}

// ObserveAssessment records one scored module submission.
func (p *PromCollector) ObserveAssessment(module string) {
	p.assessmentsScored.WithLabelValues(module).Inc()
}

// ObserveRateLimitBlock records one blocked request.
func (p *PromCollector) ObserveRateLimitBlock(scope string) {
	p.rateLimitBlocks.WithLabelValues(scope).Inc()
}

// ObserveCache records a cache hit or miss.
func (p *PromCollector) ObserveCache(hit bool) {
	if hit {
		p.cacheHits.Inc()
	} else {
		p.cacheMisses.Inc()
	}
}

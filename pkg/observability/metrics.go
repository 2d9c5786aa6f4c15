package observability

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds all Prometheus metrics
type Metrics struct {
	// HTTP metrics
	HTTPRequestsTotal   *prometheus.CounterVec
	HTTPRequestDuration *prometheus.HistogramVec

	// Ingestion metrics
	EventsIngestedTotal *prometheus.CounterVec
	EventsRejectedTotal *prometheus.CounterVec
	IngestBatchSize     prometheus.Histogram
	StoreWriteDuration  prometheus.Histogram

	// Cache metrics
	CacheHitsTotal   *prometheus.CounterVec
	CacheMissesTotal *prometheus.CounterVec

	// Fan-out metrics
	SubscribersActive   prometheus.Gauge
	FanoutMessagesTotal *prometheus.CounterVec
	FanoutDroppedTotal  prometheus.Counter

	// Natural-language query metrics
	NLQueriesTotal       *prometheus.CounterVec
	NLQueryDuration      prometheus.Histogram
	NLGenerationDuration prometheus.Histogram
}

// NewMetrics creates and registers all Prometheus metrics
func NewMetrics(registry *prometheus.Registry) *Metrics {
	m := &Metrics{
		HTTPRequestsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "pulse_http_requests_total",
				Help: "Total number of HTTP requests",
			},
			[]string{"method", "path", "status"},
		),
		HTTPRequestDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "pulse_http_request_duration_seconds",
				Help:    "HTTP request duration in seconds",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"method", "path"},
		),
		EventsIngestedTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "pulse_events_ingested_total",
				Help: "Total number of events durably persisted",
			},
			[]string{"tenant_id"},
		),
		EventsRejectedTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "pulse_events_rejected_total",
				Help: "Total number of events rejected at the ingestion boundary",
			},
			[]string{"reason"},
		),
		IngestBatchSize: prometheus.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "pulse_ingest_batch_size",
				Help:    "Number of events per ingestion request",
				Buckets: []float64{1, 5, 10, 20, 50, 100, 250, 500},
			},
		),
		StoreWriteDuration: prometheus.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "pulse_store_write_duration_seconds",
				Help:    "Durable event store write duration in seconds",
				Buckets: prometheus.DefBuckets,
			},
		),
		CacheHitsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "pulse_cache_hits_total",
				Help: "Total cache hits",
			},
			[]string{"cache"},
		),
		CacheMissesTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "pulse_cache_misses_total",
				Help: "Total cache misses",
			},
			[]string{"cache"},
		),
		SubscribersActive: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Name: "pulse_realtime_subscribers_active",
				Help: "Currently connected realtime subscribers",
			},
		),
		FanoutMessagesTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "pulse_fanout_messages_total",
				Help: "Messages pushed to realtime subscribers",
			},
			[]string{"type"},
		),
		FanoutDroppedTotal: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "pulse_fanout_dropped_total",
				Help: "Messages dropped because a subscriber buffer was full",
			},
		),
		NLQueriesTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "pulse_nl_queries_total",
				Help: "Natural-language query outcomes",
			},
			[]string{"outcome"},
		),
		NLQueryDuration: prometheus.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "pulse_nl_query_duration_seconds",
				Help:    "End-to-end natural-language query duration in seconds",
				Buckets: []float64{0.1, 0.25, 0.5, 1, 2, 5, 10, 20, 30},
			},
		),
		NLGenerationDuration: prometheus.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "pulse_nl_generation_duration_seconds",
				Help:    "Generation-collaborator call duration in seconds",
				Buckets: []float64{0.1, 0.25, 0.5, 1, 2, 5, 10, 20, 30},
			},
		),
	}

	registry.MustRegister(
		m.HTTPRequestsTotal,
		m.HTTPRequestDuration,
		m.EventsIngestedTotal,
		m.EventsRejectedTotal,
		m.IngestBatchSize,
		m.StoreWriteDuration,
		m.CacheHitsTotal,
		m.CacheMissesTotal,
		m.SubscribersActive,
		m.FanoutMessagesTotal,
		m.FanoutDroppedTotal,
		m.NLQueriesTotal,
		m.NLQueryDuration,
		m.NLGenerationDuration,
	)

	return m
}

// Handler returns the Prometheus metrics HTTP handler for a registry
func Handler(registry *prometheus.Registry) http.Handler {
	return promhttp.HandlerFor(registry, promhttp.HandlerOpts{})
}

// InstrumentHandler wraps an HTTP handler with request metrics
func (m *Metrics) InstrumentHandler(path string, next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}

		next.ServeHTTP(rec, r)

		duration := time.Since(start).Seconds()
		m.HTTPRequestsTotal.WithLabelValues(r.Method, path, strconv.Itoa(rec.status)).Inc()
		m.HTTPRequestDuration.WithLabelValues(r.Method, path).Observe(duration)
	})
}

// statusRecorder captures the response status code
type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(status int) {
	r.status = status
	r.ResponseWriter.WriteHeader(status)
}

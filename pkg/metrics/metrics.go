// Package metrics exposes the coordinator's Prometheus instrumentation:
// ingestion throughput, routing fallback-tier usage, Extractor fallback
// rate, cache hit ratio, and query latency, each named and shaped the way
// an operator dashboard expects.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// ReportsIngestedTotal counts reports that passed adapter-level
	// confidence scoring and entered the fusion pipeline.
	ReportsIngestedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "reports_ingested_total",
		Help: "Total number of reports ingested across all source adapters.",
	})

	// ReportsRejectedTotal counts reports discarded for a given reason
	// (invalid_input, stale, out_of_region).
	ReportsRejectedTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "reports_rejected_total",
		Help: "Total number of reports discarded before fusion, by reason.",
	}, []string{"reason"})

	// AdapterGatherDuration measures how long a single adapter's gather
	// call takes, labeled by source.
	AdapterGatherDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "adapter_gather_duration_seconds",
		Help:    "Duration of a source adapter's gather call.",
		Buckets: prometheus.DefBuckets,
	}, []string{"source"})

	// ClustersFormedTotal counts clusters produced by a fusion pass.
	ClustersFormedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "clusters_formed_total",
		Help: "Total number of clusters formed by the fusion core.",
	})

	// ContradictionsDetectedTotal counts reconciled contradiction pairs.
	ContradictionsDetectedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "contradictions_detected_total",
		Help: "Total number of contradiction pairs reconciled by the fusion core.",
	})

	// RouteComputedTotal counts successfully computed routes, labeled by
	// the fallback tier that produced them (graph, external, straight_line).
	RouteComputedTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "routes_computed_total",
		Help: "Total number of routes computed, by fallback tier.",
	}, []string{"tier"})

	// RouteComputeErrorsTotal counts a tier's failure to produce a route.
	RouteComputeErrorsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "route_compute_errors_total",
		Help: "Total number of routing failures, by fallback tier.",
	}, []string{"tier"})

	// ExtractorCallsTotal counts Extractor collaborator invocations, by
	// operation (parse_query, reconcile_conflict).
	ExtractorCallsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "extractor_calls_total",
		Help: "Total number of Extractor collaborator calls, by operation.",
	}, []string{"operation"})

	// ExtractorFallbacksTotal counts deterministic-fallback use when the
	// Extractor collaborator errored or timed out.
	ExtractorFallbacksTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "extractor_fallbacks_total",
		Help: "Total number of times the deterministic Extractor fallback was used, by operation.",
	}, []string{"operation"})

	// QueryDuration measures end-to-end query-pipeline latency.
	QueryDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "query_duration_seconds",
		Help:    "Duration of a full query-pipeline execution.",
		Buckets: prometheus.DefBuckets,
	})

	// CacheHitsTotal and CacheMissesTotal track the tick cache's hit ratio.
	CacheHitsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "cache_hits_total",
		Help: "Total number of tick-cache lookups that hit.",
	})
	CacheMissesTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "cache_misses_total",
		Help: "Total number of tick-cache lookups that missed.",
	})

	// AdmissionRejectedTotal counts queries rejected because the
	// in-flight admission queue bound was exceeded.
	AdmissionRejectedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "admission_rejected_total",
		Help: "Total number of queries rejected due to admission queue exhaustion.",
	})

	// NotificationsSentTotal counts outbound Slack notifications, by
	// outcome (success, error).
	NotificationsSentTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "notifications_sent_total",
		Help: "Total number of critical-urgency notifications sent, by outcome.",
	}, []string{"outcome"})

	// ConcurrentQueriesRunning is a gauge of in-flight queries.
	ConcurrentQueriesRunning = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "concurrent_queries_running",
		Help: "Number of query-pipeline executions currently in flight.",
	})
)

// RecordReportIngested increments the ingestion counter.
func RecordReportIngested() { ReportsIngestedTotal.Inc() }

// RecordReportRejected increments the rejection counter for reason.
func RecordReportRejected(reason string) { ReportsRejectedTotal.WithLabelValues(reason).Inc() }

// RecordAdapterGather records how long source's gather call took.
func RecordAdapterGather(source string, d time.Duration) {
	AdapterGatherDuration.WithLabelValues(source).Observe(d.Seconds())
}

// RecordClusterFormed increments the cluster counter.
func RecordClusterFormed() { ClustersFormedTotal.Inc() }

// RecordContradictionDetected increments the contradiction counter.
func RecordContradictionDetected() { ContradictionsDetectedTotal.Inc() }

// RecordRouteComputed increments the per-tier route counter.
func RecordRouteComputed(tier string) { RouteComputedTotal.WithLabelValues(tier).Inc() }

// RecordRouteError increments the per-tier routing-error counter.
func RecordRouteError(tier string) { RouteComputeErrorsTotal.WithLabelValues(tier).Inc() }

// RecordExtractorCall increments the per-operation Extractor-call counter.
func RecordExtractorCall(operation string) { ExtractorCallsTotal.WithLabelValues(operation).Inc() }

// RecordExtractorFallback increments the per-operation fallback counter.
func RecordExtractorFallback(operation string) {
	ExtractorFallbacksTotal.WithLabelValues(operation).Inc()
}

// RecordQueryDuration observes a completed query's latency.
func RecordQueryDuration(d time.Duration) { QueryDuration.Observe(d.Seconds()) }

// RecordCacheHit and RecordCacheMiss track tick-cache lookups.
func RecordCacheHit()  { CacheHitsTotal.Inc() }
func RecordCacheMiss() { CacheMissesTotal.Inc() }

// RecordAdmissionRejected increments the admission-rejection counter.
func RecordAdmissionRejected() { AdmissionRejectedTotal.Inc() }

// RecordNotification increments the per-outcome notification counter.
func RecordNotification(outcome string) { NotificationsSentTotal.WithLabelValues(outcome).Inc() }

// IncrementConcurrentQueries and DecrementConcurrentQueries track in-flight queries.
func IncrementConcurrentQueries() { ConcurrentQueriesRunning.Inc() }
func DecrementConcurrentQueries() { ConcurrentQueriesRunning.Dec() }

// Timer measures elapsed wall time from its creation to a Record* call.
type Timer struct {
	start time.Time
}

// NewTimer starts a timer.
func NewTimer() *Timer {
	return &Timer{start: time.Now()}
}

// Elapsed returns the time since the timer was created.
func (t *Timer) Elapsed() time.Duration {
	return time.Since(t.start)
}

// RecordAdapterGather records the timer's elapsed time against source.
func (t *Timer) RecordAdapterGather(source string) {
	RecordAdapterGather(source, t.Elapsed())
}

// RecordQuery records the timer's elapsed time as a completed query.
func (t *Timer) RecordQuery() {
	RecordQueryDuration(t.Elapsed())
}

package metrics

import (
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	dto "github.com/prometheus/client_model/go"
	"github.com/stretchr/testify/assert"
)

func TestRecordReportIngested(t *testing.T) {
	initial := testutil.ToFloat64(ReportsIngestedTotal)

	RecordReportIngested()
	after := testutil.ToFloat64(ReportsIngestedTotal)
	assert.Equal(t, initial+1.0, after)

	RecordReportIngested()
	final := testutil.ToFloat64(ReportsIngestedTotal)
	assert.Equal(t, initial+2.0, final)
}

func TestRecordReportRejected(t *testing.T) {
	reason := "test_invalid_input"

	initial := testutil.ToFloat64(ReportsRejectedTotal.WithLabelValues(reason))
	RecordReportRejected(reason)
	final := testutil.ToFloat64(ReportsRejectedTotal.WithLabelValues(reason))
	assert.Equal(t, initial+1.0, final)
}

func TestRecordAdapterGather(t *testing.T) {
	source := "test_satellite"
	duration := 500 * time.Millisecond

	RecordAdapterGather(source, duration)

	metric := &dto.Metric{}
	AdapterGatherDuration.WithLabelValues(source).(interface {
		Write(*dto.Metric) error
	}).Write(metric)
	assert.True(t, metric.GetHistogram().GetSampleCount() > 0, "Histogram should have recorded samples")
}

func TestRecordClusterFormed(t *testing.T) {
	initial := testutil.ToFloat64(ClustersFormedTotal)
	RecordClusterFormed()
	final := testutil.ToFloat64(ClustersFormedTotal)
	assert.Equal(t, initial+1.0, final)
}

func TestRecordContradictionDetected(t *testing.T) {
	initial := testutil.ToFloat64(ContradictionsDetectedTotal)
	RecordContradictionDetected()
	final := testutil.ToFloat64(ContradictionsDetectedTotal)
	assert.Equal(t, initial+1.0, final)
}

func TestRecordRouteComputed(t *testing.T) {
	tier := "test_graph"

	initial := testutil.ToFloat64(RouteComputedTotal.WithLabelValues(tier))
	RecordRouteComputed(tier)
	final := testutil.ToFloat64(RouteComputedTotal.WithLabelValues(tier))
	assert.Equal(t, initial+1.0, final)
}

func TestRecordRouteError(t *testing.T) {
	tier := "test_external"

	initial := testutil.ToFloat64(RouteComputeErrorsTotal.WithLabelValues(tier))
	RecordRouteError(tier)
	final := testutil.ToFloat64(RouteComputeErrorsTotal.WithLabelValues(tier))
	assert.Equal(t, initial+1.0, final)
}

func TestRecordExtractorCall(t *testing.T) {
	op := "test_parse_query"

	initial := testutil.ToFloat64(ExtractorCallsTotal.WithLabelValues(op))
	RecordExtractorCall(op)
	final := testutil.ToFloat64(ExtractorCallsTotal.WithLabelValues(op))
	assert.Equal(t, initial+1.0, final)
}

func TestRecordExtractorFallback(t *testing.T) {
	op := "test_reconcile_conflict"

	initial := testutil.ToFloat64(ExtractorFallbacksTotal.WithLabelValues(op))
	RecordExtractorFallback(op)
	final := testutil.ToFloat64(ExtractorFallbacksTotal.WithLabelValues(op))
	assert.Equal(t, initial+1.0, final)
}

func TestRecordQueryDuration(t *testing.T) {
	RecordQueryDuration(2 * time.Second)

	metric := &dto.Metric{}
	QueryDuration.Write(metric)
	assert.True(t, metric.GetHistogram().GetSampleCount() > 0, "Histogram should have recorded samples")
}

func TestCacheHitMiss(t *testing.T) {
	initialHits := testutil.ToFloat64(CacheHitsTotal)
	initialMisses := testutil.ToFloat64(CacheMissesTotal)

	RecordCacheHit()
	RecordCacheMiss()

	assert.Equal(t, initialHits+1.0, testutil.ToFloat64(CacheHitsTotal))
	assert.Equal(t, initialMisses+1.0, testutil.ToFloat64(CacheMissesTotal))
}

func TestRecordAdmissionRejected(t *testing.T) {
	initial := testutil.ToFloat64(AdmissionRejectedTotal)
	RecordAdmissionRejected()
	final := testutil.ToFloat64(AdmissionRejectedTotal)
	assert.Equal(t, initial+1.0, final)
}

func TestRecordNotification(t *testing.T) {
	initialSuccess := testutil.ToFloat64(NotificationsSentTotal.WithLabelValues("success"))
	initialError := testutil.ToFloat64(NotificationsSentTotal.WithLabelValues("error"))

	RecordNotification("success")
	finalSuccess := testutil.ToFloat64(NotificationsSentTotal.WithLabelValues("success"))
	assert.Equal(t, initialSuccess+1.0, finalSuccess)

	RecordNotification("error")
	finalError := testutil.ToFloat64(NotificationsSentTotal.WithLabelValues("error"))
	assert.Equal(t, initialError+1.0, finalError)
}

func TestConcurrentQueriesGauge(t *testing.T) {
	initial := testutil.ToFloat64(ConcurrentQueriesRunning)

	IncrementConcurrentQueries()
	assert.Equal(t, initial+1.0, testutil.ToFloat64(ConcurrentQueriesRunning))

	IncrementConcurrentQueries()
	assert.Equal(t, initial+2.0, testutil.ToFloat64(ConcurrentQueriesRunning))

	DecrementConcurrentQueries()
	assert.Equal(t, initial+1.0, testutil.ToFloat64(ConcurrentQueriesRunning))

	DecrementConcurrentQueries()
	assert.Equal(t, initial, testutil.ToFloat64(ConcurrentQueriesRunning))
}

func TestTimer(t *testing.T) {
	timer := NewTimer()

	assert.NotNil(t, timer)
	assert.False(t, timer.start.IsZero())

	time.Sleep(10 * time.Millisecond)

	elapsed := timer.Elapsed()
	assert.True(t, elapsed >= 10*time.Millisecond, "Elapsed time should be at least 10ms")
	assert.True(t, elapsed < 200*time.Millisecond, "Elapsed time should be reasonably small")
}

func TestTimerRecordQuery(t *testing.T) {
	timer := NewTimer()
	time.Sleep(10 * time.Millisecond)
	timer.RecordQuery()

	metric := &dto.Metric{}
	QueryDuration.Write(metric)
	assert.True(t, metric.GetHistogram().GetSampleCount() > 0, "Histogram should have recorded samples")
}

func TestTimerRecordAdapterGather(t *testing.T) {
	timer := NewTimer()
	source := "test_timer_adapter"
	time.Sleep(10 * time.Millisecond)
	timer.RecordAdapterGather(source)

	metric := &dto.Metric{}
	AdapterGatherDuration.WithLabelValues(source).(interface {
		Write(*dto.Metric) error
	}).Write(metric)
	assert.True(t, metric.GetHistogram().GetSampleCount() > 0, "Histogram should have recorded samples")
}

func TestMetricsIntegration(t *testing.T) {
	op := "test_integration_parse_query"
	tier := "test_integration_graph"

	initialReports := testutil.ToFloat64(ReportsIngestedTotal)
	initialRoutes := testutil.ToFloat64(RouteComputedTotal.WithLabelValues(tier))
	initialCalls := testutil.ToFloat64(ExtractorCallsTotal.WithLabelValues(op))
	initialNotify := testutil.ToFloat64(NotificationsSentTotal.WithLabelValues("success"))
	initialConcurrent := testutil.ToFloat64(ConcurrentQueriesRunning)

	RecordNotification("success")

	numReports := 3
	for i := 0; i < numReports; i++ {
		RecordReportIngested()
		RecordExtractorCall(op)
		IncrementConcurrentQueries()
		RecordRouteComputed(tier)
		DecrementConcurrentQueries()
	}

	assert.Equal(t, initialReports+float64(numReports), testutil.ToFloat64(ReportsIngestedTotal))
	assert.Equal(t, initialRoutes+float64(numReports), testutil.ToFloat64(RouteComputedTotal.WithLabelValues(tier)))
	assert.Equal(t, initialCalls+float64(numReports), testutil.ToFloat64(ExtractorCallsTotal.WithLabelValues(op)))
	assert.Equal(t, initialNotify+1.0, testutil.ToFloat64(NotificationsSentTotal.WithLabelValues("success")))
	assert.Equal(t, initialConcurrent, testutil.ToFloat64(ConcurrentQueriesRunning))
}

func TestMetricsNaming(t *testing.T) {
	metricNames := []string{
		"reports_ingested_total",
		"reports_rejected_total",
		"adapter_gather_duration_seconds",
		"clusters_formed_total",
		"contradictions_detected_total",
		"routes_computed_total",
		"route_compute_errors_total",
		"extractor_calls_total",
		"extractor_fallbacks_total",
		"query_duration_seconds",
		"cache_hits_total",
		"cache_misses_total",
		"admission_rejected_total",
		"notifications_sent_total",
		"concurrent_queries_running",
	}

	for _, name := range metricNames {
		assert.False(t, strings.Contains(name, "-"), "Metric name %s should not contain hyphens", name)
		assert.False(t, strings.Contains(name, " "), "Metric name %s should not contain spaces", name)

		if strings.Contains(name, "duration") {
			assert.True(t, strings.HasSuffix(name, "_seconds"), "Duration metric %s should end with _seconds", name)
		}

		if strings.Contains(name, "ingested") || strings.Contains(name, "formed") ||
			strings.Contains(name, "detected") || strings.Contains(name, "computed") ||
			strings.Contains(name, "rejected") || strings.Contains(name, "errors") ||
			strings.Contains(name, "calls") || strings.Contains(name, "fallbacks") ||
			strings.Contains(name, "hits") || strings.Contains(name, "misses") ||
			strings.Contains(name, "sent") {
			assert.True(t, strings.HasSuffix(name, "_total"), "Counter metric %s should end with _total", name)
		}
	}
}

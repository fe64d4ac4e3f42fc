package fusion

import (
	"context"
	"errors"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"

	"github.com/jordigilh/reliefnet/pkg/policy"
	"github.com/jordigilh/reliefnet/pkg/reports"
)

func testLogger() *logrus.Logger {
	log := logrus.New()
	log.SetLevel(logrus.FatalLevel)
	return log
}

func testTables(t *testing.T) *policy.Tables {
	t.Helper()
	return policy.Load(context.Background(), testLogger())
}

func TestHasConflictDetectsContradictingPair(t *testing.T) {
	tables := testTables(t)
	cluster := Cluster{Reports: []reports.Report{
		r("a", 0, 0, reports.RoadClosure, 0.9, reports.SourceSatellite),
		r("b", 0, 0, reports.RoadClear, 0.5, reports.SourceTwitter),
	}}
	assert.True(t, HasConflict(tables, cluster))
}

func TestHasConflictFalseForAgreeingCluster(t *testing.T) {
	tables := testTables(t)
	cluster := Cluster{Reports: []reports.Report{
		r("a", 0, 0, reports.RoadClosure, 0.9, reports.SourceSatellite),
		r("b", 0, 0, reports.RoadClosure, 0.6, reports.SourceTwitter),
	}}
	assert.False(t, HasConflict(tables, cluster))
}

func TestDeterministicReconcileArgmaxConfidence(t *testing.T) {
	cluster := Cluster{Reports: []reports.Report{
		r("a", 35.5, -82.5, reports.RoadClosure, 0.9, reports.SourceSatellite),
		r("b", 35.5, -82.5, reports.RoadClear, 0.5, reports.SourceTwitter),
	}}
	result := DeterministicReconcile(cluster)
	assert.Equal(t, StatusBlocked, result.Status)
	assert.InDelta(t, 0.9, result.Confidence, 1e-9)
	assert.Equal(t, "fallback", result.ResolverTag)
}

func TestDeterministicReconcileEmptyCluster(t *testing.T) {
	result := DeterministicReconcile(Cluster{})
	assert.Equal(t, StatusUnknown, result.Status)
	assert.Equal(t, 0.0, result.Confidence)
}

func TestDeterministicReconcileStatusMapping(t *testing.T) {
	cases := map[reports.EventKind]ReconciledStatus{
		reports.RoadClosure:    StatusBlocked,
		reports.BridgeCollapse: StatusBlocked,
		reports.Flooding:       StatusBlocked,
		reports.RoadDamage:     StatusDamaged,
		reports.RoadClear:      StatusClear,
	}
	for kind, want := range cases {
		cluster := Cluster{Reports: []reports.Report{r("a", 0, 0, kind, 0.9, reports.SourceSatellite)}}
		assert.Equal(t, want, DeterministicReconcile(cluster).Status, string(kind))
	}
}

type fakeResolver struct {
	result ReconciliationResult
	err    error
}

func (f fakeResolver) ReconcileConflict(ctx context.Context, cluster []reports.Report, label string) (ReconciliationResult, error) {
	return f.result, f.err
}

func TestReconcileUsesResolverOnSuccess(t *testing.T) {
	want := ReconciliationResult{Status: StatusBlocked, Confidence: 0.95, ResolverTag: "llm"}
	cluster := Cluster{Reports: []reports.Report{r("a", 0, 0, reports.RoadClosure, 0.9, reports.SourceSatellite)}}

	got := Reconcile(context.Background(), fakeResolver{result: want}, cluster, "test location", testLogger())
	assert.Equal(t, want, got)
}

func TestReconcileFallsBackOnResolverError(t *testing.T) {
	cluster := Cluster{Reports: []reports.Report{
		r("a", 0, 0, reports.RoadClosure, 0.9, reports.SourceSatellite),
	}}

	got := Reconcile(context.Background(), fakeResolver{err: errors.New("llm timeout")}, cluster, "test location", testLogger())
	assert.Equal(t, "fallback", got.ResolverTag)
	assert.Equal(t, StatusBlocked, got.Status)
}

func TestConsensusConfidenceSingleReport(t *testing.T) {
	cluster := Cluster{Reports: []reports.Report{r("a", 0, 0, reports.RoadClosure, 0.77, reports.SourceSatellite)}}
	assert.InDelta(t, 0.77, ConsensusConfidence(cluster), 1e-9)
}

func TestConsensusConfidenceMultipleAgreeingReports(t *testing.T) {
	cluster := Cluster{Reports: []reports.Report{
		r("a", 0, 0, reports.RoadClosure, 0.8, reports.SourceSatellite),
		r("b", 0, 0, reports.RoadClosure, 0.6, reports.SourceTwitter),
		r("c", 0, 0, reports.RoadClosure, 0.7, reports.SourceFEMA),
	}}
	// avg = 0.7, unique sources = 3 -> +min(0.15,0.15)=0.15, n-1=2 -> +min(0.10,0.06)=0.06
	assert.InDelta(t, 0.91, ConsensusConfidence(cluster), 1e-9)
}

func TestConsensusConfidenceClampsToOne(t *testing.T) {
	cluster := Cluster{Reports: []reports.Report{
		r("a", 0, 0, reports.RoadClosure, 0.99, reports.SourceSatellite),
		r("b", 0, 0, reports.RoadClosure, 0.99, reports.SourceTwitter),
		r("c", 0, 0, reports.RoadClosure, 0.99, reports.SourceFEMA),
	}}
	assert.Equal(t, 1.0, ConsensusConfidence(cluster))
}

func TestConsensusConfidenceEmptyCluster(t *testing.T) {
	assert.Equal(t, 0.0, ConsensusConfidence(Cluster{}))
}

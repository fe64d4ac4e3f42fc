package fusion

import (
	"context"
	"fmt"
	stdmath "math"

	"github.com/sirupsen/logrus"

	appErrors "github.com/jordigilh/reliefnet/internal/errors"
	"github.com/jordigilh/reliefnet/pkg/policy"
	"github.com/jordigilh/reliefnet/pkg/reports"
	sharedmath "github.com/jordigilh/reliefnet/pkg/shared/math"
)

// ReconciledStatus is the resolved state of a conflicting cluster.
type ReconciledStatus string

const (
	StatusBlocked ReconciledStatus = "blocked"
	StatusDamaged ReconciledStatus = "damaged"
	StatusClear   ReconciledStatus = "clear"
	StatusUnknown ReconciledStatus = "unknown"
)

// ReconciliationResult is the Extractor's reconcile_conflict contract
// output (spec §4.2/§4.5), produced either by the LLM collaborator or the
// deterministic fallback.
type ReconciliationResult struct {
	Status      ReconciledStatus
	Confidence  float64
	Reasoning   string
	ResolverTag string
}

// ConflictResolver is the reconcile_conflict half of the Extractor
// contract, defined here so fusion depends only on an interface and
// pkg/extractor depends on fusion's types, never the reverse.
type ConflictResolver interface {
	ReconcileConflict(ctx context.Context, cluster []reports.Report, label string) (ReconciliationResult, error)
}

// HasConflict reports whether a cluster's event kinds intersect any pair in
// the contradiction table (spec §4.2).
func HasConflict(tables *policy.Tables, cluster Cluster) bool {
	return tables.SetContradicts(cluster.Kinds())
}

// Reconcile resolves a conflicting cluster via resolver, falling back to the
// deterministic policy on any Extractor error — the Extractor is never
// allowed to abort the pipeline.
func Reconcile(ctx context.Context, resolver ConflictResolver, cluster Cluster, label string, log *logrus.Logger) ReconciliationResult {
	result, err := resolver.ReconcileConflict(ctx, cluster.Reports, label)
	if err != nil {
		appErr := appErrors.NewExtractorUnavailableError(err)
		log.WithFields(appErrors.LogFields(appErr)).Warn("fusion: extractor unavailable for reconcile_conflict, using deterministic fallback")
		return DeterministicReconcile(cluster)
	}
	return result
}

// DeterministicReconcile is the reference reconciliation policy (spec
// §4.2): pick the highest-confidence report in the cluster and map its
// event kind to a resolved status.
func DeterministicReconcile(cluster Cluster) ReconciliationResult {
	if len(cluster.Reports) == 0 {
		return ReconciliationResult{Status: StatusUnknown, Confidence: 0, Reasoning: "no contributing reports", ResolverTag: "fallback"}
	}
	best := cluster.Reports[0]
	for _, r := range cluster.Reports[1:] {
		if r.RawConfidence > best.RawConfidence {
			best = r
		}
	}
	return ReconciliationResult{
		Status:      statusForKind(best.Kind),
		Confidence:  best.RawConfidence,
		Reasoning:   fmt.Sprintf("deterministic fallback: highest-confidence report is %s from %s (confidence %.2f)", best.Kind, best.Source, best.RawConfidence),
		ResolverTag: "fallback",
	}
}

func statusForKind(kind reports.EventKind) ReconciledStatus {
	switch kind {
	case reports.RoadClosure, reports.BridgeCollapse, reports.Flooding:
		return StatusBlocked
	case reports.RoadDamage:
		return StatusDamaged
	case reports.RoadClear:
		return StatusClear
	default:
		return StatusUnknown
	}
}

// ConsensusConfidence computes the agreement confidence for a
// non-conflicting cluster (spec §4.2). Single-report clusters return the
// report's own confidence unchanged.
func ConsensusConfidence(cluster Cluster) float64 {
	n := len(cluster.Reports)
	if n == 0 {
		return 0
	}
	if n == 1 {
		return cluster.Reports[0].RawConfidence
	}

	confidences := make([]float64, n)
	uniqueSources := map[reports.SourceTag]bool{}
	for i, r := range cluster.Reports {
		confidences[i] = r.RawConfidence
		uniqueSources[r.Source] = true
	}

	avg := sharedmath.Mean(confidences)
	sourceBonus := stdmath.Min(0.15, 0.05*float64(len(uniqueSources)))
	countBonus := stdmath.Min(0.10, 0.03*float64(n-1))
	return sharedmath.Clamp(avg+sourceBonus+countBonus, 0, 1)
}

// Package fusion implements C4: greedy spatial clustering of reports,
// contradiction detection, and reconciliation of conflicting clusters into
// a single resolved state, backed by the Extractor's reconcile_conflict
// contract with a deterministic fallback.
package fusion

import (
	"github.com/jordigilh/reliefnet/pkg/geo"
	"github.com/jordigilh/reliefnet/pkg/reports"
	sharedmath "github.com/jordigilh/reliefnet/pkg/shared/math"
)

// DefaultProximityKM is the clustering radius (spec §4.2).
const DefaultProximityKM = 0.5

// Cluster is a set of reports judged co-located by the greedy clustering
// pass, together with its running centroid.
type Cluster struct {
	Reports  []reports.Report
	Centroid geo.Location
}

// Kinds returns the set of distinct event kinds present in the cluster.
func (c Cluster) Kinds() []string {
	seen := map[string]bool{}
	var out []string
	for _, r := range c.Reports {
		k := string(r.Kind)
		if !seen[k] {
			seen[k] = true
			out = append(out, k)
		}
	}
	return out
}

// ClusterReports performs the greedy single-pass spatial clustering from spec
// §4.2: for each report, join the first existing cluster whose running
// centroid is within proximityKM (haversine), else start a new cluster.
// Order-sensitive by design — the input order determines the result.
func ClusterReports(reportList []reports.Report, proximityKM float64) []Cluster {
	if proximityKM <= 0 {
		proximityKM = DefaultProximityKM
	}
	proximityM := proximityKM * 1000

	var clusters []Cluster
	for _, r := range reportList {
		loc := geo.Location{Lat: r.Location.Lat, Lon: r.Location.Lon}
		joined := false
		for i := range clusters {
			if geo.HaversineMeters(clusters[i].Centroid, loc) <= proximityM {
				clusters[i].Reports = append(clusters[i].Reports, r)
				clusters[i].Centroid = recomputeCentroid(clusters[i].Reports)
				joined = true
				break
			}
		}
		if !joined {
			clusters = append(clusters, Cluster{Reports: []reports.Report{r}, Centroid: loc})
		}
	}
	return clusters
}

// recomputeCentroid is the running mean of every report location in the
// cluster, recomputed from scratch each join — clusters are small enough
// in practice (a handful of reports) that this is simpler than maintaining
// running sums and just as correct.
func recomputeCentroid(reportList []reports.Report) geo.Location {
	lats := make([]float64, len(reportList))
	lons := make([]float64, len(reportList))
	for i, r := range reportList {
		lats[i] = r.Location.Lat
		lons[i] = r.Location.Lon
	}
	return geo.Location{Lat: sharedmath.Mean(lats), Lon: sharedmath.Mean(lons)}
}

package network

import (
	"context"
	"math"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jordigilh/reliefnet/pkg/geo"
	"github.com/jordigilh/reliefnet/pkg/policy"
	"github.com/jordigilh/reliefnet/pkg/reports"
)

const sampleGeoJSON = `{
  "type": "FeatureCollection",
  "features": [
    {
      "type": "Feature",
      "properties": {"osmid": 1, "name": "Main St", "highway": "primary", "length": 1000},
      "geometry": {"type": "LineString", "coordinates": [[-82.5, 35.5], [-82.501, 35.501]]}
    },
    {
      "type": "Feature",
      "properties": {"osmid": 2, "name": "Side Rd", "highway": "residential"},
      "geometry": {"type": "LineString", "coordinates": [[0, 0], [0.01, 0], [0.02, 0]]}
    },
    {
      "type": "Feature",
      "properties": {"osmid": 3, "name": "too short"},
      "geometry": {"type": "LineString", "coordinates": [[5, 5]]}
    }
  ]
}`

func testTables(t *testing.T) *policy.Tables {
	t.Helper()
	log := logrus.New()
	log.SetLevel(logrus.FatalLevel)
	return policy.Load(context.Background(), log)
}

func TestLoadGraphParsesFeatures(t *testing.T) {
	g, err := LoadGraph([]byte(sampleGeoJSON))
	require.NoError(t, err)
	edges := g.Edges()
	require.Len(t, edges, 2, "single-coordinate feature must be skipped")

	mainSt := edges[0]
	assert.Equal(t, "Main St", mainSt.Name)
	assert.Equal(t, 1000.0, mainSt.LengthM)
	assert.Equal(t, 1000.0, mainSt.BaseWeight)
	assert.Equal(t, StatusOpen, mainSt.Status.Status)
}

func TestLoadGraphComputesLengthWhenMissing(t *testing.T) {
	g, err := LoadGraph([]byte(sampleGeoJSON))
	require.NoError(t, err)
	var sideRd *Edge
	for _, e := range g.Edges() {
		if e.Name == "Side Rd" {
			sideRd = e
		}
	}
	require.NotNil(t, sideRd)
	assert.Greater(t, sideRd.LengthM, 0.0)
}

func TestLoadGraphRejectsMalformedJSON(t *testing.T) {
	_, err := LoadGraph([]byte("not json"))
	assert.Error(t, err)
}

func TestNodeKeyRounding(t *testing.T) {
	k := NewNodeKey(-82.50001234, 35.50009999)
	assert.Equal(t, -82.500012, k[0])
	assert.Equal(t, 35.5001, k[1])
}

func TestEdgeWeightReflectsMultiplier(t *testing.T) {
	e := &Edge{BaseWeight: 100, Status: EdgeStatus{Multiplier: 2.5}}
	assert.Equal(t, 250.0, e.Weight())
}

func TestGraphResetAllWeights(t *testing.T) {
	g, err := LoadGraph([]byte(sampleGeoJSON))
	require.NoError(t, err)
	for _, e := range g.Edges() {
		e.Status = EdgeStatus{Multiplier: math.Inf(1), Status: StatusClosed}
	}
	g.ResetAllWeights()
	for _, e := range g.Edges() {
		assert.Equal(t, 1.0, e.Status.Multiplier)
		assert.Equal(t, StatusOpen, e.Status.Status)
	}
}

func TestProjectReportMarksEdgeDamaged(t *testing.T) {
	g, err := LoadGraph([]byte(sampleGeoJSON))
	require.NoError(t, err)
	tables := testTables(t)

	report := reports.Report{
		ID: "r1", Kind: reports.RoadDamage, RawConfidence: 0.8,
		Location: reports.Location{Lat: 35.5005, Lon: -82.5005},
	}
	matched := g.ProjectReport(tables, report, DefaultRadiusDeg)
	assert.Equal(t, 1, matched)

	var mainSt *Edge
	for _, e := range g.Edges() {
		if e.Name == "Main St" {
			mainSt = e
		}
	}
	require.NotNil(t, mainSt)
	assert.Equal(t, StatusDamaged, mainSt.Status.Status)
	assert.Contains(t, mainSt.Status.ContributingReportIDs, "r1")
}

func TestProjectReportClosesEdgeOnRoadClosure(t *testing.T) {
	g, err := LoadGraph([]byte(sampleGeoJSON))
	require.NoError(t, err)
	tables := testTables(t)

	report := reports.Report{
		ID: "r2", Kind: reports.RoadClosure, RawConfidence: 0.9,
		Location: reports.Location{Lat: 35.5005, Lon: -82.5005},
	}
	g.ProjectReport(tables, report, DefaultRadiusDeg)

	for _, e := range g.Edges() {
		if e.Name == "Main St" {
			assert.True(t, math.IsInf(e.Status.Multiplier, 1))
			assert.Equal(t, StatusClosed, e.Status.Status)
		}
	}
}

func TestProjectReportIgnoresNonRoadAffectingKind(t *testing.T) {
	g, err := LoadGraph([]byte(sampleGeoJSON))
	require.NoError(t, err)
	tables := testTables(t)

	report := reports.Report{
		ID: "r3", Kind: reports.ShelterOpening, RawConfidence: 0.9,
		Location: reports.Location{Lat: 35.5005, Lon: -82.5005},
	}
	matched := g.ProjectReport(tables, report, DefaultRadiusDeg)
	assert.Equal(t, 0, matched)
}

func TestProjectReportOutOfRangeDoesNotMatch(t *testing.T) {
	g, err := LoadGraph([]byte(sampleGeoJSON))
	require.NoError(t, err)
	tables := testTables(t)

	report := reports.Report{
		ID: "r4", Kind: reports.RoadClosure, RawConfidence: 0.9,
		Location: reports.Location{Lat: 50, Lon: -50},
	}
	matched := g.ProjectReport(tables, report, DefaultRadiusDeg)
	assert.Equal(t, 0, matched)
}

func TestApplyResolvedStatusOverridesMultiplier(t *testing.T) {
	g, err := LoadGraph([]byte(sampleGeoJSON))
	require.NoError(t, err)

	loc := geo.Location{Lat: 35.5005, Lon: -82.5005}
	matched := g.ApplyResolvedStatus(loc, "blocked", 0.95, time.Now(), []string{"r1", "r2"}, DefaultRadiusDeg)
	assert.Equal(t, 1, matched)

	for _, e := range g.Edges() {
		if e.Name == "Main St" {
			assert.True(t, math.IsInf(e.Status.Multiplier, 1))
			assert.Equal(t, StatusClosed, e.Status.Status)
			assert.Equal(t, []string{"r1", "r2"}, e.Status.ContributingReportIDs)
		}
	}
}

func TestApplyResolvedStatusClearSetsMultiplierOne(t *testing.T) {
	g, err := LoadGraph([]byte(sampleGeoJSON))
	require.NoError(t, err)

	loc := geo.Location{Lat: 35.5005, Lon: -82.5005}
	g.ApplyResolvedStatus(loc, "clear", 0.8, time.Now(), []string{"r3"}, DefaultRadiusDeg)

	for _, e := range g.Edges() {
		if e.Name == "Main St" {
			assert.Equal(t, 1.0, e.Status.Multiplier)
			assert.Equal(t, StatusOpen, e.Status.Status)
		}
	}
}

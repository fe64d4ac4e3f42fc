// Package network implements C5: the directed weighted road graph loaded
// from a GeoJSON LineString feature collection, with dynamic per-edge
// status driven by report projection. Base weights are immutable after
// load; only EdgeStatus mutates, and only under the graph's lock — readers
// compute effective weight lazily from (base_weight, multiplier).
package network

import (
	"encoding/json"
	"math"
	"sync"
	"time"

	sharedErrors "github.com/jordigilh/reliefnet/pkg/shared/errors"

	"github.com/jordigilh/reliefnet/pkg/geo"
	"github.com/jordigilh/reliefnet/pkg/policy"
	"github.com/jordigilh/reliefnet/pkg/reports"
)

// DefaultRadiusDeg is the edge-projection matching radius in degrees
// (≈100m), a square box rather than a true metric radius — kept for parity
// with the source system per spec §9's open question.
const DefaultRadiusDeg = 0.001

// Edge status strings, consistent with spec §3's invariant: status=closed
// iff multiplier=∞, status=damaged iff 1<multiplier<∞.
const (
	StatusOpen    = "open"
	StatusDamaged = "damaged"
	StatusClosed  = "closed"
)

// NodeKey is a graph node's identity: (lon, lat) rounded to 6 decimals.
type NodeKey [2]float64

// RoundCoord rounds a coordinate to 6 decimal places, the node-key
// precision spec §9 specifies.
func RoundCoord(v float64) float64 {
	return math.Round(v*1e6) / 1e6
}

// NewNodeKey builds a NodeKey from an unrounded (lon, lat) pair.
func NewNodeKey(lon, lat float64) NodeKey {
	return NodeKey{RoundCoord(lon), RoundCoord(lat)}
}

// Location returns the node key's coordinates as a geo.Location.
func (k NodeKey) Location() geo.Location {
	return geo.Location{Lon: k[0], Lat: k[1]}
}

// EdgeStatus is the mutable, per-edge dynamic state produced by report
// projection and reconciliation.
type EdgeStatus struct {
	Multiplier            float64
	Status                string
	Confidence            float64
	LastUpdate            time.Time
	ContributingReportIDs []string
}

func openStatus() EdgeStatus {
	return EdgeStatus{Multiplier: 1.0, Status: StatusOpen}
}

// Edge is one directed segment of the road graph. BaseWeight is immutable
// after load; Status is the only field report projection mutates.
type Edge struct {
	From, To   NodeKey
	Name       string
	Highway    string
	LengthM    float64
	BaseWeight float64
	Geometry   []geo.Location
	Status     EdgeStatus
}

// Weight is the effective traversal weight: base_weight × multiplier,
// computed lazily so concurrent readers never observe a half-updated value.
func (e *Edge) Weight() float64 {
	return e.BaseWeight * e.Status.Multiplier
}

// Midpoint is the edge geometry's middle vertex, used for edge projection
// (spec §4.3).
func (e *Edge) Midpoint() geo.Location {
	if len(e.Geometry) == 0 {
		return geo.Location{}
	}
	return e.Geometry[len(e.Geometry)/2]
}

// Graph is the directed weighted road network. All mutation goes through
// the single lock; reads may run concurrently with each other but not with
// a write (spec §5's one-writer/multiple-readers policy).
type Graph struct {
	mu        sync.RWMutex
	adjacency map[NodeKey][]*Edge
	edges     []*Edge
	nodes     map[NodeKey]bool
}

// NewGraph returns an empty graph.
func NewGraph() *Graph {
	return &Graph{
		adjacency: map[NodeKey][]*Edge{},
		nodes:     map[NodeKey]bool{},
	}
}

type geojsonFeatureCollection struct {
	Type     string           `json:"type"`
	Features []geojsonFeature `json:"features"`
}

type geojsonFeature struct {
	Type       string             `json:"type"`
	Geometry   geojsonGeometry    `json:"geometry"`
	Properties geojsonProperties  `json:"properties"`
}

type geojsonGeometry struct {
	Type        string       `json:"type"`
	Coordinates [][2]float64 `json:"coordinates"`
}

type geojsonProperties struct {
	OSMID   json.Number `json:"osmid"`
	Name    string      `json:"name"`
	Highway string      `json:"highway"`
	Length  *float64    `json:"length"`
}

// LoadGraph parses a GeoJSON LineString FeatureCollection (osmid, name,
// highway, length properties) into a directed graph — one directed edge
// per feature, from its first coordinate to its last, interior vertices
// kept as geometry.
func LoadGraph(data []byte) (*Graph, error) {
	var fc geojsonFeatureCollection
	if err := json.Unmarshal(data, &fc); err != nil {
		return nil, sharedErrors.ParseError("road network", "geojson", err)
	}

	g := NewGraph()
	for _, f := range fc.Features {
		if f.Geometry.Type != "LineString" || len(f.Geometry.Coordinates) < 2 {
			continue
		}
		geometry := make([]geo.Location, len(f.Geometry.Coordinates))
		for i, c := range f.Geometry.Coordinates {
			geometry[i] = geo.Location{Lon: c[0], Lat: c[1]}
		}

		lengthM := 0.0
		if f.Properties.Length != nil {
			lengthM = *f.Properties.Length
		} else {
			lengthM = planarLength(geometry)
		}

		first, last := geometry[0], geometry[len(geometry)-1]
		edge := &Edge{
			From:       NewNodeKey(first.Lon, first.Lat),
			To:         NewNodeKey(last.Lon, last.Lat),
			Name:       f.Properties.Name,
			Highway:    f.Properties.Highway,
			LengthM:    lengthM,
			BaseWeight: lengthM,
			Geometry:   geometry,
			Status:     openStatus(),
		}
		g.addEdge(edge)
	}
	return g, nil
}

// planarLength sums planar segment lengths using the local lat-dependent
// metric (spec §4.3), used when a feature carries no explicit length.
func planarLength(geometry []geo.Location) float64 {
	var total float64
	for i := 1; i < len(geometry); i++ {
		a, b := geometry[i-1], geometry[i]
		lonScale := geo.MetersPerDegreeLon((a.Lat + b.Lat) / 2)
		dLon := (b.Lon - a.Lon) * lonScale
		dLat := (b.Lat - a.Lat) * geo.MetersPerDegreeLat
		total += math.Hypot(dLon, dLat)
	}
	return total
}

func (g *Graph) addEdge(e *Edge) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.edges = append(g.edges, e)
	g.adjacency[e.From] = append(g.adjacency[e.From], e)
	g.nodes[e.From] = true
	g.nodes[e.To] = true
}

// Edges returns a snapshot of every edge in the graph.
func (g *Graph) Edges() []*Edge {
	g.mu.RLock()
	defer g.mu.RUnlock()
	out := make([]*Edge, len(g.edges))
	copy(out, g.edges)
	return out
}

// Neighbors returns the outgoing edges from node.
func (g *Graph) Neighbors(node NodeKey) []*Edge {
	g.mu.RLock()
	defer g.mu.RUnlock()
	out := make([]*Edge, len(g.adjacency[node]))
	copy(out, g.adjacency[node])
	return out
}

// Nodes returns every distinct node key in the graph (both edge endpoints).
func (g *Graph) Nodes() []NodeKey {
	g.mu.RLock()
	defer g.mu.RUnlock()
	out := make([]NodeKey, 0, len(g.nodes))
	for k := range g.nodes {
		out = append(out, k)
	}
	return out
}

// ResetAllWeights restores every edge to its base weight and clears status,
// used before re-projecting reports for a new query (spec §4.3).
func (g *Graph) ResetAllWeights() {
	g.mu.Lock()
	defer g.mu.Unlock()
	for _, e := range g.edges {
		e.Status = openStatus()
	}
}

// ProjectReport applies a single road-affecting report to every edge whose
// midpoint lies within radiusDeg of the report's location, per spec §4.3.
// It returns the number of edges matched. Non-road-affecting kinds and
// kinds with no multiplier entry are no-ops.
func (g *Graph) ProjectReport(tables *policy.Tables, r reports.Report, radiusDeg float64) int {
	if radiusDeg <= 0 {
		radiusDeg = DefaultRadiusDeg
	}
	if !r.Kind.RoadAffecting() {
		return 0
	}
	multiplier, ok := tables.Multiplier(string(r.Kind))
	if !ok {
		return 0
	}

	g.mu.Lock()
	defer g.mu.Unlock()
	matched := 0
	for _, e := range g.edges {
		mid := e.Midpoint()
		if math.Abs(mid.Lon-r.Location.Lon) <= radiusDeg && math.Abs(mid.Lat-r.Location.Lat) <= radiusDeg {
			applyMultiplier(e, multiplier, r.RawConfidence, r.Timestamp, r.ID)
			matched++
		}
	}
	return matched
}

// ApplyResolvedStatus overrides the per-report projection for every edge
// near loc with a cluster's reconciled status (spec §4.6 step 4).
func (g *Graph) ApplyResolvedStatus(loc geo.Location, status string, confidence float64, at time.Time, reportIDs []string, radiusDeg float64) int {
	if radiusDeg <= 0 {
		radiusDeg = DefaultRadiusDeg
	}
	multiplier := multiplierForResolvedStatus(status)

	g.mu.Lock()
	defer g.mu.Unlock()
	matched := 0
	for _, e := range g.edges {
		mid := e.Midpoint()
		if math.Abs(mid.Lon-loc.Lon) <= radiusDeg && math.Abs(mid.Lat-loc.Lat) <= radiusDeg {
			e.Status = EdgeStatus{
				Multiplier:            multiplier,
				Status:                statusForMultiplier(multiplier),
				Confidence:            confidence,
				LastUpdate:            at,
				ContributingReportIDs: reportIDs,
			}
			matched++
		}
	}
	return matched
}

func applyMultiplier(e *Edge, multiplier, confidence float64, at time.Time, reportID string) {
	e.Status = EdgeStatus{
		Multiplier:            multiplier,
		Status:                statusForMultiplier(multiplier),
		Confidence:            confidence,
		LastUpdate:            at,
		ContributingReportIDs: append(e.Status.ContributingReportIDs, reportID),
	}
}

func statusForMultiplier(m float64) string {
	switch {
	case math.IsInf(m, 1):
		return StatusClosed
	case m > 1:
		return StatusDamaged
	default:
		return StatusOpen
	}
}

func multiplierForResolvedStatus(status string) float64 {
	switch status {
	case "blocked":
		return math.Inf(1)
	case "damaged":
		return 3.0
	case "clear":
		return 1.0
	default:
		return 1.0
	}
}

// Package routing implements C6: shortest-path routing over the dynamic
// road graph, hazard-polygon avoidance for the external routing
// collaborator, and the three-tier fallback hierarchy (graph Dijkstra →
// external router → straight-line) with per-tier confidence scoring.
package routing

import (
	"context"
	"fmt"
	"math"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/sony/gobreaker"

	appErrors "github.com/jordigilh/reliefnet/internal/errors"
	"github.com/jordigilh/reliefnet/pkg/geo"
	"github.com/jordigilh/reliefnet/pkg/network"
	"github.com/jordigilh/reliefnet/pkg/reports"
)

// straightLineSpeedKmh is the assumed urban travel speed for the last-resort
// fallback (spec §4.4).
const straightLineSpeedKmh = 30.0

// graphSpeedKmh is the base travel speed the duration estimate scales down
// from as path damage increases.
const graphSpeedKmh = 50.0

// Route is a single computed path from origin to destination, tagged with
// the tier that produced it and a confidence score.
type Route struct {
	Path           []network.NodeKey
	Geometry       []geo.Location
	DistanceM      float64
	DurationSec    float64
	Confidence     float64
	Reasoning      string
	Source         string // "graph", "external", or "straight_line"
	AvoidedHazards []AvoidedHazard
}

// AvoidedHazard describes a closed edge the route did not traverse, surfaced
// to the caller for situational awareness (spec §4.4).
type AvoidedHazard struct {
	Midpoint   geo.Location
	Name       string
	Confidence float64
}

// ExternalRouteResult is what the external routing collaborator returns on
// success.
type ExternalRouteResult struct {
	Geometry    []geo.Location
	DistanceM   float64
	DurationSec float64
}

// ExternalRouter is the collaborator routing service contract. A real
// implementation posts origin/destination/avoid-polygon to an HTTP
// endpoint; tests substitute a fake.
type ExternalRouter interface {
	Route(ctx context.Context, origin, destination geo.Location, avoid *AvoidArea) (ExternalRouteResult, error)
}

// Router computes routes over a road graph, falling back to an external
// collaborator and finally a straight-line estimate.
type Router struct {
	Graph    *network.Graph
	External ExternalRouter
	Breaker  *gobreaker.CircuitBreaker
	Log      *logrus.Logger
}

// NewRouter builds a Router with a circuit breaker guarding the external
// collaborator call — more than three consecutive failures (the fourth in a
// row) trip the breaker open for
// 30 seconds, matching the "never let a hung router hold up a response"
// requirement (spec §5).
func NewRouter(graph *network.Graph, external ExternalRouter, log *logrus.Logger) *Router {
	settings := gobreaker.Settings{
		Name:    "external-router",
		Timeout: 30 * time.Second,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures > 3
		},
	}
	return &Router{
		Graph:    graph,
		External: external,
		Breaker:  gobreaker.NewCircuitBreaker(settings),
		Log:      log,
	}
}

// Route computes a path from origin to destination, trying the internal
// graph first, then the external collaborator, then a straight-line
// estimate (spec §4.4). hazardReports is the current event set used to
// build the avoid-polygon for the external call.
func (rt *Router) Route(ctx context.Context, origin, destination geo.Location, hazardReports []reports.Report) Route {
	avoid := BuildAvoidArea(hazardReports, origin, destination)

	if fromNode, fromOK := NearestNode(rt.Graph, origin); fromOK {
		if toNode, toOK := NearestNode(rt.Graph, destination); toOK {
			if path, edges, ok := Dijkstra(rt.Graph, fromNode, toNode); ok {
				route := rt.buildGraphRoute(path, edges)
				return route
			}
		}
	}

	if rt.External != nil {
		result, err := rt.callExternal(ctx, origin, destination, avoid)
		if err == nil {
			return Route{
				Geometry:    result.Geometry,
				DistanceM:   result.DistanceM,
				DurationSec: result.DurationSec,
				Confidence:  0.7,
				Reasoning:   "routed via external collaborator; road conditions along this path are unverified",
				Source:      "external",
			}
		}
		appErr := appErrors.NewRouterUnavailableError(err)
		rt.Log.WithFields(appErrors.LogFields(appErr)).WithFields(logrus.Fields{
			"origin":      origin,
			"destination": destination,
		}).Warn("routing: external collaborator unavailable, falling back to straight-line estimate")
	}

	return straightLineRoute(origin, destination)
}

func (rt *Router) callExternal(ctx context.Context, origin, destination geo.Location, avoid *AvoidArea) (ExternalRouteResult, error) {
	result, err := rt.Breaker.Execute(func() (interface{}, error) {
		return rt.External.Route(ctx, origin, destination, avoid)
	})
	if err != nil {
		return ExternalRouteResult{}, err
	}
	return result.(ExternalRouteResult), nil
}

// buildGraphRoute assembles a Route from a Dijkstra path: confidence starts
// at 1.0 and is multiplied by 0.9 per damaged edge, forced to 0 if any
// traversed edge is closed (spec §4.4).
func (rt *Router) buildGraphRoute(path []network.NodeKey, edges []*network.Edge) Route {
	var distanceM float64
	damaged := 0
	closed := false
	confidence := 1.0

	for _, e := range edges {
		distanceM += e.LengthM
		switch e.Status.Status {
		case network.StatusDamaged:
			damaged++
			confidence *= 0.9
		case network.StatusClosed:
			closed = true
		}
	}
	if closed {
		confidence = 0.0
	}

	damageRatio := float64(damaged) / math.Max(1, float64(len(edges)))
	speedKmh := graphSpeedKmh * (1 - 0.5*damageRatio)
	distanceKm := distanceM / 1000
	durationSec := (distanceKm / speedKmh) * 3600

	return Route{
		Path:           path,
		Geometry:       buildGeometry(edges),
		DistanceM:      distanceM,
		DurationSec:    durationSec,
		Confidence:     confidence,
		Reasoning:      fmt.Sprintf("graph route across %d edges, %d damaged", len(edges), damaged),
		Source:         "graph",
		AvoidedHazards: AvoidedHazards(rt.Graph, edges),
	}
}

func buildGeometry(edges []*network.Edge) []geo.Location {
	var geometry []geo.Location
	for i, e := range edges {
		pts := e.Geometry
		if i > 0 && len(pts) > 0 {
			pts = pts[1:]
		}
		geometry = append(geometry, pts...)
	}
	return geometry
}

func straightLineRoute(origin, destination geo.Location) Route {
	distanceM := geo.HaversineMeters(origin, destination)
	durationSec := (distanceM / 1000 / straightLineSpeedKmh) * 3600
	return Route{
		Geometry:    []geo.Location{origin, destination},
		DistanceM:   distanceM,
		DurationSec: durationSec,
		Confidence:  0.5,
		Reasoning:   "straight-line estimate; no road or routing-collaborator data available",
		Source:      "straight_line",
	}
}

// AvoidedHazards lists up to 5 closed edges the route did not traverse,
// with midpoint, name, and confidence (spec §4.4).
func AvoidedHazards(g *network.Graph, pathEdges []*network.Edge) []AvoidedHazard {
	inPath := make(map[*network.Edge]bool, len(pathEdges))
	for _, e := range pathEdges {
		inPath[e] = true
	}

	var out []AvoidedHazard
	for _, e := range g.Edges() {
		if e.Status.Status != network.StatusClosed || inPath[e] {
			continue
		}
		out = append(out, AvoidedHazard{Midpoint: e.Midpoint(), Name: e.Name, Confidence: e.Status.Confidence})
		if len(out) == 5 {
			break
		}
	}
	return out
}

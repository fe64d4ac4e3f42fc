// Package pipeline implements C8: the 8-step query pipeline that turns one
// natural-language request into a delivery plan — parse, gather, project,
// reconcile, score, route, and assemble a response (spec §4.6).
package pipeline

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/sirupsen/logrus"

	appErrors "github.com/jordigilh/reliefnet/internal/errors"
	"github.com/jordigilh/reliefnet/pkg/adapters"
	"github.com/jordigilh/reliefnet/pkg/cache"
	"github.com/jordigilh/reliefnet/pkg/clock"
	"github.com/jordigilh/reliefnet/pkg/extractor"
	"github.com/jordigilh/reliefnet/pkg/fusion"
	"github.com/jordigilh/reliefnet/pkg/geo"
	"github.com/jordigilh/reliefnet/pkg/metrics"
	"github.com/jordigilh/reliefnet/pkg/network"
	"github.com/jordigilh/reliefnet/pkg/notify"
	"github.com/jordigilh/reliefnet/pkg/policy"
	"github.com/jordigilh/reliefnet/pkg/reports"
	"github.com/jordigilh/reliefnet/pkg/routing"
)

const shelterCandidateLimit = 3

// QueryParser is the parse_query half of the Extractor contract (spec
// §4.5), named here so Pipeline depends only on an interface.
type QueryParser interface {
	ParseQuery(ctx context.Context, text string) extractor.ParsedQuery
}

// Pipeline wires every collaborator C8 orchestrates: the source adapters,
// the road graph, the router, the Extractor, the reconciliation policy, the
// tick cache, and the Slack notifier.
type Pipeline struct {
	Adapters      []adapters.Adapter
	ShelterSource *adapters.SheltersAdapter
	Graph         *network.Graph
	Router        *routing.Router
	Parser        QueryParser
	Resolver      fusion.ConflictResolver
	Policy        *policy.Tables
	Cache         *cache.TickCache
	Notifier      *notify.Notifier
	Clock         *clock.Clock
	BBox          geo.BoundingBox
	ProximityKM   float64

	AdapterTimeout time.Duration
	QueryTimeout   time.Duration

	admission chan struct{}
	Log       *logrus.Logger

	// graphWrite serialises each query's reset/project/reconcile sequence
	// on the shared graph, so concurrent queries never interleave it.
	graphWrite sync.Mutex
}

// New builds a Pipeline with admission queue bound slots available for
// concurrent queries.
func New(admissionQueueBound int, log *logrus.Logger) *Pipeline {
	if admissionQueueBound <= 0 {
		admissionQueueBound = 50
	}
	return &Pipeline{
		admission: make(chan struct{}, admissionQueueBound),
		Log:       log,
	}
}

// Run executes the full 8-step pipeline for one query, never panicking and
// never returning an HTTP-shaped error — every failure degrades into a
// field of Response (spec §7's "degrade, don't abort" policy), except
// ResourceExhausted, which short-circuits immediately.
func (p *Pipeline) Run(ctx context.Context, query string) *Response {
	select {
	case p.admission <- struct{}{}:
		defer func() { <-p.admission }()
	default:
		metrics.RecordAdmissionRejected()
		appErr := appErrors.NewResourceExhaustedError("query admission queue is full")
		return &Response{
			Query: query,
			Error: appErrors.SafeErrorMessage(appErr),
		}
	}

	ctx, cancel := context.WithTimeout(ctx, p.queryTimeout())
	defer cancel()

	metrics.IncrementConcurrentQueries()
	defer metrics.DecrementConcurrentQueries()
	timer := metrics.NewTimer()
	defer timer.RecordQuery()

	now := p.now()

	// Step 1: parse query.
	parsed := p.Parser.ParseQuery(ctx, query)
	metrics.RecordExtractorCall("parse_query")
	if parsed.ParsedBy == "keyword" {
		metrics.RecordExtractorFallback("parse_query")
	}

	// Steps 2-3: gather and project.
	gathered, partial := p.gatherAll(ctx, now, p.effectiveBBox())
	p.graphWrite.Lock()
	p.Graph.ResetAllWeights()
	p.projectAll(gathered)

	// Step 4: cluster, detect conflicts, reconcile, re-project.
	conflicts := p.reconcileConflicts(ctx, gathered, now)
	blockedRoads, damagedRoads := p.countEdgeStatuses()
	p.graphWrite.Unlock()

	if ctx.Err() != nil {
		partial = true
	}

	awareness := SituationalAwareness{
		TotalReports:    len(gathered),
		BlockedRoads:    blockedRoads,
		DamagedRoads:    damagedRoads,
		ReportsBySource: gatherReportsBySource(gathered),
		Partial:         partial,
	}

	resp := &Response{
		Query:                query,
		ParsedBy:             parsed.ParsedBy,
		ScenarioTime:         now,
		SituationalAwareness: awareness,
		ConflictsResolved:    conflicts,
	}

	if parsed.Origin == nil {
		appErr := appErrors.NewNoOriginError("could not resolve an origin location from the query")
		resp.Error = appErrors.SafeErrorMessage(appErr)
		resp.DeliveryPlan = DeliveryPlan{Origin: nil, Supplies: parsed.Supplies, Urgency: string(parsed.Urgency), Routes: []RouteJSON{}}
		resp.Reasoning = buildReasoning(parsed.ParsedBy, awareness, resp.DeliveryPlan)
		return resp
	}

	// Steps 5-7: candidate shelters, scoring, routing.
	routes := p.routeTopShelters(ctx, *parsed.Origin, parsed.Supplies, now, gathered)

	resp.DeliveryPlan = DeliveryPlan{
		Origin:   originPtr(*parsed.Origin),
		Supplies: parsed.Supplies,
		Urgency:  string(parsed.Urgency),
		Routes:   routes,
	}
	resp.Reasoning = buildReasoning(parsed.ParsedBy, awareness, resp.DeliveryPlan)

	if parsed.Urgency == extractor.UrgencyCritical && len(routes) > 0 && p.Notifier != nil {
		top := routes[0]
		p.Notifier.Notify(ctx, query, notify.RouteSummary{
			ShelterName: top.Destination.Address,
			DistanceM:   float64(top.DistanceM),
			DurationSec: float64(top.EstimatedDurationMin) * 60,
			Confidence:  float64(top.Confidence),
			Source:      "pipeline",
		}, p.Log)
	}

	return resp
}

func (p *Pipeline) now() time.Time {
	if p.Clock != nil {
		return p.Clock.Now()
	}
	return time.Now()
}

func (p *Pipeline) queryTimeout() time.Duration {
	if p.QueryTimeout <= 0 {
		return 45 * time.Second
	}
	return p.QueryTimeout
}

func (p *Pipeline) adapterTimeout() time.Duration {
	if p.AdapterTimeout <= 0 {
		return 5 * time.Second
	}
	return p.AdapterTimeout
}

func (p *Pipeline) effectiveBBox() geo.BoundingBox {
	if p.BBox == (geo.BoundingBox{}) {
		return geo.BoundingBox{West: -83.5, South: 35.0, East: -81.5, North: 36.5}
	}
	return p.BBox
}

// projectAll resets are assumed already done by the caller; projectAll
// applies every road-affecting report to the graph (spec §4.6 step 3).
// Reconciliation (step 4) can still reopen or re-damage edges afterward, so
// the resulting blocked/damaged tally is read separately via
// countEdgeStatuses once both passes have settled.
func (p *Pipeline) projectAll(gathered []reports.Report) {
	radius := network.DefaultRadiusDeg
	for _, r := range gathered {
		p.Graph.ProjectReport(p.Policy, r, radius)
	}
}

// countEdgeStatuses reads the graph's current edge statuses — called after
// both projectAll and reconcileConflicts have applied their updates, so a
// cluster reconciled away from blocked/damaged is never double-counted
// against its pre-reconciliation status.
func (p *Pipeline) countEdgeStatuses() (blocked int, damaged int) {
	for _, e := range p.Graph.Edges() {
		switch e.Status.Status {
		case network.StatusClosed:
			blocked++
		case network.StatusDamaged:
			damaged++
		}
	}
	return blocked, damaged
}

// reconcileConflicts clusters every gathered report, resolves each
// conflicting cluster (checking the tick cache first), re-projects the
// resolved status onto the affected edges, and returns one
// ConflictResolution per resolved cluster (spec §4.6 step 4).
func (p *Pipeline) reconcileConflicts(ctx context.Context, gathered []reports.Report, now time.Time) []ConflictResolution {
	clusters := fusion.ClusterReports(gathered, p.proximityKM())

	var out []ConflictResolution
	for _, c := range clusters {
		if !fusion.HasConflict(p.Policy, c) {
			continue
		}
		metrics.RecordContradictionDetected()

		ids := clusterReportIDs(c)
		label := clusterLabel(c)
		sig := cache.Signature(ids)

		var result fusion.ReconciliationResult
		if p.Cache != nil && p.Cache.Get(ctx, sig, &result) {
			// cache hit
		} else {
			result = fusion.Reconcile(ctx, p.Resolver, c, label, p.Log)
			if p.Cache != nil {
				p.Cache.Set(ctx, sig, result)
			}
		}

		p.Graph.ApplyResolvedStatus(c.Centroid, string(result.Status), result.Confidence, now, ids, network.DefaultRadiusDeg)

		out = append(out, ConflictResolution{
			RoadID:         label,
			ResolvedStatus: string(result.Status),
			Confidence:     result.Confidence,
			Reasoning:      result.Reasoning,
			ResolvedBy:     result.ResolverTag,
		})
	}
	return out
}

func (p *Pipeline) proximityKM() float64 {
	if p.ProximityKM <= 0 {
		return fusion.DefaultProximityKM
	}
	return p.ProximityKM
}

func clusterReportIDs(c fusion.Cluster) []string {
	ids := make([]string, len(c.Reports))
	for i, r := range c.Reports {
		ids[i] = r.ID
	}
	return ids
}

func clusterLabel(c fusion.Cluster) string {
	return fmt.Sprintf("%.4f,%.4f", c.Centroid.Lat, c.Centroid.Lon)
}

// routeTopShelters implements spec §4.6 steps 5-7: candidate shelters,
// scoring, and routing the top 3.
func (p *Pipeline) routeTopShelters(ctx context.Context, origin geo.Location, supplies map[string]int, now time.Time, hazardReports []reports.Report) []RouteJSON {
	if p.ShelterSource == nil {
		return nil
	}
	all := p.ShelterSource.LoadShelters()
	candidates := candidateShelters(all, now)

	scored := make([]scoredShelter, 0, len(candidates))
	for _, s := range candidates {
		scored = append(scored, scoreShelter(s, origin, supplies))
	}
	top := rankShelters(scored, shelterCandidateLimit)

	routes := make([]RouteJSON, 0, len(top))
	for _, s := range top {
		route := p.Router.Route(ctx, origin, s.shelter.Location, hazardReports)
		metrics.RecordRouteComputed(route.Source)

		routes = append(routes, RouteJSON{
			ID:                   "route-" + s.shelter.ID,
			Origin:               toOriginJSON(origin),
			Destination:          OriginJSON{Lat: s.shelter.Location.Lat, Lon: s.shelter.Location.Lon, Address: s.shelter.Name},
			Waypoints:            toWaypoints(route.Geometry),
			DistanceM:            JSONFloat(route.DistanceM),
			EstimatedDurationMin: JSONFloat(route.DurationSec / 60),
			HazardsAvoided:       toHazardsJSON(route.AvoidedHazards),
			Confidence:           JSONFloat(route.Confidence),
			Reasoning:            routeReasoning(s, route),
			CreatedAt:            now,
		})
	}
	return routes
}

func toWaypoints(locs []geo.Location) []LonLat {
	out := make([]LonLat, len(locs))
	for i, l := range locs {
		out[i] = LonLat{Lon: l.Lon, Lat: l.Lat}
	}
	return out
}

func toHazardsJSON(hazards []routing.AvoidedHazard) []HazardJSON {
	out := make([]HazardJSON, len(hazards))
	for i, h := range hazards {
		out[i] = HazardJSON{Lat: h.Midpoint.Lat, Lon: h.Midpoint.Lon, Name: h.Name, Confidence: h.Confidence}
	}
	return out
}

func routeReasoning(s scoredShelter, route routing.Route) string {
	occupancy := s.shelter.OccupancyRatio()
	return fmt.Sprintf("matched needs: %v, occupancy %.0f%%, score %.2f. %s",
		s.matchedNeeds, occupancy*100, s.score, route.Reasoning)
}

func originPtr(loc geo.Location) *OriginJSON {
	o := toOriginJSON(loc)
	return &o
}

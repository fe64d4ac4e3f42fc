package pipeline

import (
	"encoding/json"
	"math"
	"time"

	"github.com/jordigilh/reliefnet/pkg/geo"
)

// JSONFloat serialises as null for any non-finite value (NaN, ±Inf),
// spec §6's "JSON safety" requirement, grounded on the teacher's pattern of
// small custom-marshalling value types for exactly this kind of edge case.
type JSONFloat float64

func (f JSONFloat) MarshalJSON() ([]byte, error) {
	v := float64(f)
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return []byte("null"), nil
	}
	return json.Marshal(v)
}

// Response is the query-pipeline's full JSON response (spec §6).
type Response struct {
	Query                string                `json:"query"`
	ParsedBy             string                `json:"parsed_by,omitempty"`
	ScenarioTime         time.Time             `json:"scenario_time"`
	SituationalAwareness SituationalAwareness  `json:"situational_awareness"`
	DeliveryPlan         DeliveryPlan          `json:"delivery_plan"`
	ConflictsResolved    []ConflictResolution  `json:"conflicts_resolved"`
	Reasoning            string                `json:"reasoning"`
	Error                string                `json:"error,omitempty"`
}

// SituationalAwareness summarises what the adapters gathered this query.
type SituationalAwareness struct {
	TotalReports    int            `json:"total_reports"`
	BlockedRoads    int            `json:"blocked_roads"`
	DamagedRoads    int            `json:"damaged_roads"`
	ReportsBySource map[string]int `json:"reports_by_source"`
	Partial         bool           `json:"partial,omitempty"`
}

// DeliveryPlan is the query's origin, requested supplies, urgency, and the
// routes computed to reach candidate shelters.
type DeliveryPlan struct {
	Origin   *OriginJSON    `json:"origin"`
	Supplies map[string]int `json:"supplies"`
	Urgency  string         `json:"urgency"`
	Routes   []RouteJSON    `json:"routes"`
}

// OriginJSON is the resolved origin location.
type OriginJSON struct {
	Lat     float64 `json:"lat"`
	Lon     float64 `json:"lon"`
	Address string  `json:"address,omitempty"`
}

// LonLat is a single waypoint, in (lon, lat) order per spec §6.
type LonLat struct {
	Lon float64 `json:"lon"`
	Lat float64 `json:"lat"`
}

// HazardJSON describes one closed road segment a route avoided.
type HazardJSON struct {
	Lat        float64 `json:"lat"`
	Lon        float64 `json:"lon"`
	Name       string  `json:"name,omitempty"`
	Confidence float64 `json:"confidence"`
}

// RouteJSON is one computed delivery route, attributed to a candidate
// shelter.
type RouteJSON struct {
	ID                   string       `json:"id"`
	Origin               OriginJSON   `json:"origin"`
	Destination          OriginJSON   `json:"destination"`
	Waypoints            []LonLat     `json:"waypoints"`
	DistanceM            JSONFloat    `json:"distance_m"`
	EstimatedDurationMin JSONFloat    `json:"estimated_duration_min"`
	HazardsAvoided       []HazardJSON `json:"hazards_avoided"`
	Confidence           JSONFloat    `json:"confidence"`
	Reasoning            string       `json:"reasoning"`
	CreatedAt            time.Time    `json:"created_at"`
}

// ConflictResolution is one reconciled cluster, attributed to the resolver
// that produced it (spec §6 "conflicts_resolved").
type ConflictResolution struct {
	RoadID         string  `json:"road_id"`
	ResolvedStatus string  `json:"resolved_status"`
	Confidence     float64 `json:"confidence"`
	Reasoning      string  `json:"reasoning"`
	ResolvedBy     string  `json:"resolved_by"`
}

func toOriginJSON(loc geo.Location) OriginJSON {
	return OriginJSON{Lat: loc.Lat, Lon: loc.Lon, Address: loc.Address}
}

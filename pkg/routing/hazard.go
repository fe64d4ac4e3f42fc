package routing

import (
	"github.com/jordigilh/reliefnet/pkg/geo"
	"github.com/jordigilh/reliefnet/pkg/reports"
)

// circleSegments is the number of vertices used to approximate a point
// hazard as a polygon ring.
const circleSegments = 16

// AvoidArea is the polygon/multipolygon the external routing collaborator
// is asked to route around (spec §4.4).
type AvoidArea struct {
	Type     string // "Polygon" or "MultiPolygon"
	Polygons []geo.Polygon
}

var hazardKinds = map[reports.EventKind]bool{
	reports.RoadClosure:    true,
	reports.BridgeCollapse: true,
	reports.Flooding:       true,
	reports.RoadDamage:     true,
}

// BuildAvoidArea turns the current hazard reports into a set of polygons to
// avoid, dropping any that would contain the origin or destination — a
// traveler can't avoid standing in the hazard they start or end inside. A
// report carrying an explicit affected_polygon (spec §3's "hazard polygon,
// either supplied explicitly... or generated from a point") uses that ring
// directly; otherwise the hazard is approximated as a circle around its
// point location.
func BuildAvoidArea(hazardReports []reports.Report, origin, destination geo.Location) *AvoidArea {
	var polygons []geo.Polygon
	for _, r := range hazardReports {
		if !hazardKinds[r.Kind] {
			continue
		}
		poly, ok := explicitPolygon(r)
		if !ok {
			radius := geo.DefaultRadiusMeters(string(r.Kind))
			if radius <= 0 {
				continue
			}
			loc := geo.Location{Lat: r.Location.Lat, Lon: r.Location.Lon}
			poly = geo.Polygon{Rings: []geo.Ring{geo.CircleRing(loc, radius, circleSegments)}}
		}
		if poly.Contains(origin) || poly.Contains(destination) {
			continue
		}
		polygons = append(polygons, poly)
	}
	if len(polygons) == 0 {
		return nil
	}
	areaType := "Polygon"
	if len(polygons) > 1 {
		areaType = "MultiPolygon"
	}
	return &AvoidArea{Type: areaType, Polygons: polygons}
}

// explicitPolygon reads a report's affected_polygon payload when the source
// adapter supplied one (pkg/adapters/official.go carries FEMA/NCDOT/USGS
// affected-area rings through this key), so a hazard with a known footprint
// is avoided by its real shape instead of a point-radius approximation.
func explicitPolygon(r reports.Report) (geo.Polygon, bool) {
	raw, ok := r.RawPayload["affected_polygon"]
	if !ok {
		return geo.Polygon{}, false
	}
	coords, ok := raw.([][][2]float64)
	if !ok || len(coords) == 0 {
		return geo.Polygon{}, false
	}
	rings := make([]geo.Ring, len(coords))
	for i, ring := range coords {
		rings[i] = geo.Ring(ring)
	}
	return geo.Polygon{Rings: rings}, true
}

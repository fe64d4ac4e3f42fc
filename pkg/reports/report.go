// Package reports defines the canonical observation record that every
// source adapter produces and every downstream component (clustering,
// reconciliation, edge projection) consumes. Reports are immutable once
// created.
package reports

import "time"

// EventKind is the closed set of event kinds a report can carry. Adding a
// new kind means updating this list and every exhaustive switch over it —
// intentional, per the "closed sum type" design note.
type EventKind string

const (
	RoadClosure         EventKind = "road_closure"
	RoadDamage          EventKind = "road_damage"
	RoadClear           EventKind = "road_clear"
	Flooding            EventKind = "flooding"
	BridgeCollapse      EventKind = "bridge_collapse"
	ShelterOpening      EventKind = "shelter_opening"
	ShelterClosing      EventKind = "shelter_closing"
	ShelterNeed         EventKind = "shelter_need"
	PowerOutage         EventKind = "power_outage"
	InfrastructureDamage EventKind = "infrastructure_damage"
	RescueNeeded        EventKind = "rescue_needed"
	SuppliesNeeded      EventKind = "supplies_needed"
)

// Valid reports whether k is one of the closed set of event kinds.
func (k EventKind) Valid() bool {
	switch k {
	case RoadClosure, RoadDamage, RoadClear, Flooding, BridgeCollapse,
		ShelterOpening, ShelterClosing, ShelterNeed, PowerOutage,
		InfrastructureDamage, RescueNeeded, SuppliesNeeded:
		return true
	default:
		return false
	}
}

// RoadAffecting reports whether k is in the subset that touches the road
// graph (spec §3).
func (k EventKind) RoadAffecting() bool {
	switch k {
	case RoadClosure, RoadDamage, BridgeCollapse, Flooding, RoadClear:
		return true
	default:
		return false
	}
}

// SourceTag identifies which adapter produced a report.
type SourceTag string

const (
	SourceSatellite      SourceTag = "satellite"
	SourceTwitter        SourceTag = "twitter"
	SourceReddit         SourceTag = "reddit"
	SourceFEMA           SourceTag = "fema"
	SourceNCDOT          SourceTag = "ncdot"
	SourceUSGS           SourceTag = "usgs"
	SourceLocalEmergency SourceTag = "local_emergency"
	SourceNews           SourceTag = "news"
	SourceCitizenReport  SourceTag = "citizen_report"
)

// Location mirrors geo.Location's shape to avoid an import cycle concern at
// the data-model layer; callers convert via geo.Location{Lat: r.Location.Lat, ...}.
// Kept as a type alias of the geo package would also work, but most source
// datasets decode straight into this shape so it's declared locally.
type Location struct {
	Lat     float64 `json:"lat" validate:"gte=-90,lte=90"`
	Lon     float64 `json:"lon" validate:"gte=-180,lte=180"`
	Address string  `json:"address,omitempty"`
}

// Report is the canonical observation record fused from every source.
type Report struct {
	ID             string            `json:"id" validate:"required"`
	Timestamp      time.Time         `json:"timestamp" validate:"required"`
	Kind           EventKind         `json:"kind" validate:"required"`
	Location       Location          `json:"location"`
	Description    string            `json:"description"`
	Source         SourceTag         `json:"source" validate:"required"`
	RawConfidence  float64           `json:"raw_confidence" validate:"gte=0,lte=1"`
	RawPayload     map[string]any    `json:"raw_payload,omitempty"`
	ProvenanceTag  string            `json:"provenance_tag"`
	Metadata       map[string]string `json:"metadata,omitempty"`
}

// Key returns the identity used for deduplication — two reports with the
// same id are duplicates regardless of any other field.
func (r Report) Key() string { return r.ID }

// ReliabilityPrior is the per-source-tag reliability that the official
// adapter assigns as a report's raw confidence; unknown tags get 0.85.
func ReliabilityPrior(tag SourceTag) float64 {
	switch tag {
	case SourceFEMA:
		return 0.98
	case SourceUSGS:
		return 0.97
	case SourceNCDOT:
		return 0.95
	case SourceLocalEmergency:
		return 0.90
	case SourceNews:
		return 0.80
	default:
		return 0.85
	}
}

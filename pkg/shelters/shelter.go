// Package shelters defines the destination side of a delivery plan: the
// physical shelters C8 ranks and routes supplies toward. Shelters are never
// origins and are never produced by C3's road-affecting adapters — only the
// shelters-as-reports adapter turns them into reports, for situational
// awareness.
package shelters

import (
	"time"

	"github.com/jordigilh/reliefnet/pkg/geo"
)

// Shelter is a physical relief site with capacity, occupancy, and a list of
// unmet needs.
type Shelter struct {
	ID               string       `json:"id" validate:"required"`
	Name             string       `json:"name" validate:"required"`
	Address          string       `json:"address,omitempty"`
	Location         geo.Location `json:"location"`
	Capacity         int          `json:"capacity" validate:"gte=0"`
	CurrentOccupancy int          `json:"current_occupancy" validate:"gte=0"`
	OpenedAt         time.Time    `json:"opened_at" validate:"required"`
	ClosedAt         *time.Time   `json:"closed_at,omitempty"`
	Needs            []string     `json:"needs"`
	AcceptsPets      bool         `json:"accepts_pets"`
	HasGenerator     bool         `json:"has_generator"`
	HasMedical       bool         `json:"has_medical"`
	WheelchairAccess bool         `json:"wheelchair_accessible"`
	Contact          string       `json:"contact,omitempty"`
}

// ActiveAt reports whether the shelter is open at scenario time t:
// opened_at <= t and (closed_at absent or closed_at > t).
func (s Shelter) ActiveAt(t time.Time) bool {
	if s.OpenedAt.After(t) {
		return false
	}
	return s.ClosedAt == nil || s.ClosedAt.After(t)
}

// OccupancyRatio is current_occupancy / max(1, capacity), used by C8's
// shelter scoring.
func (s Shelter) OccupancyRatio() float64 {
	cap := s.Capacity
	if cap < 1 {
		cap = 1
	}
	return float64(s.CurrentOccupancy) / float64(cap)
}

// SupplyDepot is a named, fixed drop-off location fed into the Extractor's
// keyword-fallback gazetteer alongside landmarks — never a shelter, since
// shelters are destinations only.
type SupplyDepot struct {
	Name     string       `json:"name" validate:"required"`
	Location geo.Location `json:"location"`
}

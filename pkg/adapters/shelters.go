package adapters

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/sirupsen/logrus"

	appErrors "github.com/jordigilh/reliefnet/internal/errors"
	"github.com/jordigilh/reliefnet/pkg/geo"
	"github.com/jordigilh/reliefnet/pkg/reports"
	"github.com/jordigilh/reliefnet/pkg/shelters"
)

const shelterOpeningConfidence = 0.95

type sheltersFile struct {
	Shelters     []shelterRecord        `json:"shelters"`
	SupplyDepots []shelters.SupplyDepot `json:"supply_depots"`
}

type shelterRecord struct {
	ID               string       `json:"id"`
	Name             string       `json:"name"`
	Address          string       `json:"address"`
	Location         geo.Location `json:"location"`
	Capacity         int          `json:"capacity"`
	CurrentOccupancy int          `json:"current_occupancy"`
	OpenedAt         time.Time    `json:"opened_at"`
	ClosedAt         *time.Time   `json:"closed_at,omitempty"`
	Needs            []string     `json:"needs"`
	AcceptsPets      bool         `json:"accepts_pets"`
	HasGenerator     bool         `json:"has_generator"`
	HasMedical       bool         `json:"has_medical"`
	WheelchairAccess bool         `json:"wheelchair_accessible"`
	Contact          string       `json:"contact,omitempty"`
}

func (r shelterRecord) toShelter() shelters.Shelter {
	return shelters.Shelter{
		ID:               r.ID,
		Name:             r.Name,
		Address:          r.Address,
		Location:         r.Location,
		Capacity:         r.Capacity,
		CurrentOccupancy: r.CurrentOccupancy,
		OpenedAt:         r.OpenedAt,
		ClosedAt:         r.ClosedAt,
		Needs:            r.Needs,
		AcceptsPets:      r.AcceptsPets,
		HasGenerator:     r.HasGenerator,
		HasMedical:       r.HasMedical,
		WheelchairAccess: r.WheelchairAccess,
		Contact:          r.Contact,
	}
}

// SheltersAdapter turns every shelter active at scenario time T into one
// shelter_opening report, for situational awareness — C8 ranks shelters
// directly from LoadShelters, not from these reports.
type SheltersAdapter struct {
	Path   string
	Source DatasetSource
	Log    *logrus.Logger
}

func (a SheltersAdapter) Name() string { return "shelter_registry" }

func (a SheltersAdapter) Gather(now time.Time, bbox geo.BoundingBox) []reports.Report {
	file, ok := a.load()
	if !ok {
		return nil
	}

	candidates := make([]reports.Report, 0, len(file.Shelters))
	for _, r := range file.Shelters {
		s := r.toShelter()
		if !s.ActiveAt(now) {
			continue
		}
		candidates = append(candidates, reports.Report{
			ID:            "shelter-open-" + s.ID,
			Timestamp:     s.OpenedAt,
			Kind:          reports.ShelterOpening,
			Location:      reports.Location{Lat: s.Location.Lat, Lon: s.Location.Lon, Address: s.Address},
			Description:   shelterDescription(s),
			Source:        reports.SourceCitizenReport,
			RawConfidence: shelterOpeningConfidence,
			ProvenanceTag: a.Name(),
			Metadata: map[string]string{
				"shelter_id": s.ID,
				"capacity":   fmt.Sprintf("%d", s.Capacity),
			},
		})
	}
	return applyGatherContract(now, bbox, candidates)
}

// LoadShelters returns every shelter record in the dataset, active or not;
// C8 filters for active-at-T itself when ranking candidates.
func (a SheltersAdapter) LoadShelters() []shelters.Shelter {
	file, ok := a.load()
	if !ok {
		return nil
	}
	out := make([]shelters.Shelter, 0, len(file.Shelters))
	for _, r := range file.Shelters {
		out = append(out, r.toShelter())
	}
	return out
}

// LoadSupplyDepots returns the dataset's fixed depot locations, consumed by
// the Extractor's keyword-fallback gazetteer.
func (a SheltersAdapter) LoadSupplyDepots() []shelters.SupplyDepot {
	file, ok := a.load()
	if !ok {
		return nil
	}
	return file.SupplyDepots
}

func (a SheltersAdapter) load() (sheltersFile, bool) {
	data, ok := readDataset(a.Source, a.Path, a.Name(), a.Log)
	if !ok {
		return sheltersFile{}, false
	}
	var file sheltersFile
	if err := json.Unmarshal(data, &file); err != nil {
		appErr := appErrors.NewAdapterUnavailableError(a.Name(), err)
		a.Log.WithFields(appErrors.LogFields(appErr)).Warn("adapter: malformed shelters dataset")
		return sheltersFile{}, false
	}
	return file, true
}

func shelterDescription(s shelters.Shelter) string {
	needs := strings.Join(s.Needs, ", ")
	if needs == "" {
		needs = "none reported"
	}
	return fmt.Sprintf("%s open, capacity %d, needs: %s", s.Name, s.Capacity, needs)
}

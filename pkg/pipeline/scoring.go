package pipeline

import (
	"math"
	"sort"
	"time"

	"github.com/jordigilh/reliefnet/pkg/geo"
	"github.com/jordigilh/reliefnet/pkg/shelters"
)

// needMapping is the fixed supply-kind-to-shelter-need vocabulary from
// spec §4.6 step 6.
var needMapping = map[string]string{
	"water_cases":       "water",
	"blankets":          "blankets",
	"medical_kits":      "medical_supplies",
	"food_cases":        "food",
	"generators":        "generators",
	"fuel":              "fuel",
	"diapers":           "diapers",
	"baby_formula":      "baby_formula",
	"pet_supplies":      "pet_supplies",
	"hygiene_kits":      "hygiene_kits",
	"cots":              "cots",
	"medications":       "medications",
	"charging_stations": "charging_stations",
}

// scoredShelter pairs a shelter with its score and the facts that produced
// it, so routing and response-assembly can reuse the breakdown in their
// per-route reasoning (spec §4.6 step 7).
type scoredShelter struct {
	shelter      shelters.Shelter
	score        float64
	matchedNeeds []string
}

// candidateShelters returns every shelter active at now with a non-empty
// needs list (spec §4.6 step 5).
func candidateShelters(all []shelters.Shelter, now time.Time) []shelters.Shelter {
	var out []shelters.Shelter
	for _, s := range all {
		if len(s.Needs) == 0 {
			continue
		}
		if !s.ActiveAt(now) {
			continue
		}
		out = append(out, s)
	}
	return out
}

// scoreShelter computes spec §4.6 step 6's weighted score for one
// candidate shelter against the requested supplies and origin.
func scoreShelter(s shelters.Shelter, origin geo.Location, supplies map[string]int) scoredShelter {
	needMatch, matched := needMatchScore(s, supplies)
	proximity := proximityScore(origin, s.Location)
	occupancy := s.OccupancyRatio()

	score := 0.40*needMatch + 0.35*proximity + 0.25*occupancy
	return scoredShelter{shelter: s, score: score, matchedNeeds: matched}
}

func needMatchScore(s shelters.Shelter, supplies map[string]int) (float64, []string) {
	if len(supplies) == 0 {
		return 1.0, nil
	}
	shelterNeeds := make(map[string]bool, len(s.Needs))
	for _, n := range s.Needs {
		shelterNeeds[n] = true
	}

	var matched []string
	for supplyKind := range supplies {
		need, ok := needMapping[supplyKind]
		if !ok {
			continue
		}
		if shelterNeeds[need] {
			matched = append(matched, need)
		}
	}
	return float64(len(matched)) / math.Max(1, float64(len(supplies))), matched
}

func proximityScore(origin, shelterLoc geo.Location) float64 {
	distDeg := geo.PlanarDegreeDistance(origin, shelterLoc)
	return math.Max(0, 1-distDeg/2.0)
}

// rankShelters orders candidates by non-increasing score, ties broken by
// ascending shelter id (spec §8 invariant 7), and returns the top n.
func rankShelters(scored []scoredShelter, n int) []scoredShelter {
	sort.SliceStable(scored, func(i, j int) bool {
		if scored[i].score != scored[j].score {
			return scored[i].score > scored[j].score
		}
		return scored[i].shelter.ID < scored[j].shelter.ID
	})
	if len(scored) > n {
		scored = scored[:n]
	}
	return scored
}

package extractor

import (
	"regexp"
	"strconv"
	"strings"

	"github.com/jordigilh/reliefnet/pkg/geo"
	"github.com/jordigilh/reliefnet/pkg/shelters"
)

type supplyPattern struct {
	kind    string
	pattern *regexp.Regexp
}

// supplyPatterns is the fixed regex table the keyword fallback parser uses
// (spec Glossary "Supply regexes").
var supplyPatterns = []supplyPattern{
	{"water_cases", regexp.MustCompile(`(\d+)\s*(?:cases?\s+of\s+)?water`)},
	{"blankets", regexp.MustCompile(`(\d+)\s*blanket`)},
	{"medical_kits", regexp.MustCompile(`(\d+)\s*(?:medical\s+)?(?:kit|med)`)},
	{"food_cases", regexp.MustCompile(`(\d+)\s*(?:cases?\s+of\s+)?food`)},
	{"generators", regexp.MustCompile(`(\d+)\s*generator`)},
	{"cots", regexp.MustCompile(`(\d+)\s*cot`)},
	{"diapers", regexp.MustCompile(`(\d+)\s*(?:packs?\s+of\s+)?diaper`)},
	{"medications", regexp.MustCompile(`(\d+)\s*(?:medication|medicine)`)},
}

// supplyBareWords names the same eight supply kinds by their bare keyword,
// used when a supply is mentioned without a quantity (records 1).
var supplyBareWords = map[string]string{
	"water": "water_cases", "blanket": "blankets", "kit": "medical_kits",
	"med": "medical_kits", "food": "food_cases", "generator": "generators",
	"cot": "cots", "diaper": "diapers", "medication": "medications", "medicine": "medications",
}

func extractSupplies(lower string) map[string]int {
	supplies := map[string]int{}
	for _, sp := range supplyPatterns {
		match := sp.pattern.FindStringSubmatch(lower)
		if match == nil {
			continue
		}
		n, err := strconv.Atoi(match[1])
		if err != nil || n <= 0 {
			continue
		}
		supplies[sp.kind] = n
	}
	for word, kind := range supplyBareWords {
		if _, already := supplies[kind]; already {
			continue
		}
		if strings.Contains(lower, word) {
			supplies[kind] = 1
		}
	}
	return supplies
}

type gazetteerEntry struct {
	keyword  string
	location geo.Location
}

// gazetteer is the fixed keyword→Location table of depots and landmarks
// (never shelters, which are destinations only), grounded on the original
// orchestrator's origin-extraction keywords. Order matters: more specific
// phrases are checked before the names they contain.
var gazetteer = []gazetteerEntry{
	{"asheville regional airport", geo.Location{Lat: 35.4363, Lon: -82.5418, Address: "Asheville Regional Airport"}},
	{"airport", geo.Location{Lat: 35.4363, Lon: -82.5418, Address: "Asheville Regional Airport"}},
	{"hendersonville", geo.Location{Lat: 35.4368, Lon: -82.4573, Address: "Hendersonville, NC"}},
	{"asheville", geo.Location{Lat: 35.5951, Lon: -82.5515, Address: "Asheville, NC"}},
}

// resolveOrigin checks the fixed gazetteer first, then any supply-depot
// names supplied from shelters.json (spec's supplemental gazetteer
// extension). Returns nil when nothing matches.
func resolveOrigin(lower string, depots []shelters.SupplyDepot) *geo.Location {
	for _, entry := range gazetteer {
		if strings.Contains(lower, entry.keyword) {
			loc := entry.location
			return &loc
		}
	}
	for _, depot := range depots {
		name := strings.ToLower(depot.Name)
		if name != "" && strings.Contains(lower, name) {
			loc := depot.Location
			return &loc
		}
	}
	return nil
}

var urgencyCriticalWords = []string{"critical", "emergency", "dying", "life-threatening", "life threatening", "urgent", "immediately"}
var urgencyHighWords = []string{"asap", "as soon as possible", "need now", "right away", "quickly"}
var urgencyLowWords = []string{"no rush", "whenever", "low priority", "not urgent"}

func inferUrgency(lower string) Urgency {
	for _, w := range urgencyCriticalWords {
		if strings.Contains(lower, w) {
			return UrgencyCritical
		}
	}
	for _, w := range urgencyHighWords {
		if strings.Contains(lower, w) {
			return UrgencyHigh
		}
	}
	for _, w := range urgencyLowWords {
		if strings.Contains(lower, w) {
			return UrgencyLow
		}
	}
	return UrgencyMedium
}

func inferIntent(lower string) Intent {
	switch {
	case strings.Contains(lower, "status") || strings.Contains(lower, "check on") || strings.Contains(lower, "what's happening"):
		return IntentCheckStatus
	case strings.Contains(lower, "shelter") &&
		!strings.Contains(lower, "deliver") && !strings.Contains(lower, "route") && !strings.Contains(lower, "send"):
		return IntentFindShelter
	default:
		return IntentRouteSupplies
	}
}

// constraintPhrases is the fixed set of routing/delivery constraints the
// keyword fallback recognises verbatim.
var constraintPhrases = []string{
	"avoid flooding", "no vehicle access", "wheelchair accessible", "daylight only", "avoid highways",
}

func extractConstraints(lower string) []string {
	var out []string
	for _, phrase := range constraintPhrases {
		if strings.Contains(lower, phrase) {
			out = append(out, phrase)
		}
	}
	return out
}

// ParseQueryFallback is the deterministic parse_query implementation (spec
// §4.5 item 1): per-supply regexes plus a fixed gazetteer, used when the LLM
// path is unavailable or its output doesn't parse.
func ParseQueryFallback(text string, depots []shelters.SupplyDepot) ParsedQuery {
	lower := strings.ToLower(text)
	return ParsedQuery{
		Intent:      inferIntent(lower),
		Supplies:    extractSupplies(lower),
		Origin:      resolveOrigin(lower, depots),
		Urgency:     inferUrgency(lower),
		Constraints: extractConstraints(lower),
		ParsedBy:    "keyword",
	}
}

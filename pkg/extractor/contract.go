// Package extractor implements C7: the two pure contracts a query pipeline
// needs from a language model — parse_query and reconcile_conflict — each
// with a deterministic fallback so an LLM outage degrades the answer's
// quality, never its availability.
package extractor

import "github.com/jordigilh/reliefnet/pkg/geo"

// Intent is the classified purpose of a user query.
type Intent string

const (
	IntentRouteSupplies Intent = "route_supplies"
	IntentCheckStatus   Intent = "check_status"
	IntentFindShelter   Intent = "find_shelter"
)

// Urgency is the classified priority of a user query.
type Urgency string

const (
	UrgencyLow      Urgency = "low"
	UrgencyMedium   Urgency = "medium"
	UrgencyHigh     Urgency = "high"
	UrgencyCritical Urgency = "critical"
)

// ParsedQuery is the parse_query contract's output (spec §4.5 item 1).
// Origin is nil when unresolved by either the LLM or the fallback gazetteer
// — the pipeline surfaces that as a user error rather than guessing one.
type ParsedQuery struct {
	Intent      Intent
	Supplies    map[string]int
	Origin      *geo.Location
	Urgency     Urgency
	Constraints []string
	ParsedBy    string // "llm" or "keyword"
}

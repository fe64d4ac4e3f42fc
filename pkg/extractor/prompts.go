package extractor

import "github.com/jordigilh/reliefnet/pkg/geo"

const parseQuerySystemPrompt = `You are the query parser for a disaster-relief logistics coordinator.
Extract intent, supply quantities, an origin location, urgency, and any constraints from the operator's message.
Only report an origin if the text names a specific depot, landmark, or address — never a shelter, which is always a destination, not an origin.
If no origin can be resolved, omit it.`

const reconcileSystemPrompt = `You are resolving a conflict between reports describing the same location in a disaster-relief coordinator.
Given the conflicting reports, decide the single most likely status, a confidence in that decision, and a short reasoning string.`

// parseQuerySchema is the parse_query tool's JSON input schema (spec §4.5
// item 1).
var parseQuerySchema = map[string]any{
	"type": "object",
	"properties": map[string]any{
		"intent": map[string]any{
			"type": "string",
			"enum": []string{"route_supplies", "check_status", "find_shelter"},
		},
		"supplies": map[string]any{
			"type":                 "object",
			"additionalProperties": map[string]any{"type": "integer", "minimum": 0},
		},
		"origin": map[string]any{
			"type": []string{"object", "null"},
			"properties": map[string]any{
				"lat":     map[string]any{"type": "number"},
				"lon":     map[string]any{"type": "number"},
				"address": map[string]any{"type": "string"},
			},
		},
		"urgency": map[string]any{
			"type": "string",
			"enum": []string{"low", "medium", "high", "critical"},
		},
		"constraints": map[string]any{
			"type":  "array",
			"items": map[string]any{"type": "string"},
		},
	},
	"required": []string{"intent", "supplies", "urgency", "constraints"},
}

// reconcileSchema is the reconcile_conflict tool's JSON input schema (spec
// §4.2/§4.5 item 2).
var reconcileSchema = map[string]any{
	"type": "object",
	"properties": map[string]any{
		"status": map[string]any{
			"type": "string",
			"enum": []string{"blocked", "damaged", "clear", "unknown"},
		},
		"confidence": map[string]any{"type": "number", "minimum": 0, "maximum": 1},
		"reasoning":  map[string]any{"type": "string"},
	},
	"required": []string{"status", "confidence", "reasoning"},
}

// llmParsedQuery is the decoded shape of the parse_query tool's input.
type llmParsedQuery struct {
	Intent   string         `json:"intent"`
	Supplies map[string]int `json:"supplies"`
	Origin   *llmLocation   `json:"origin"`
	Urgency  string         `json:"urgency"`
	Constraints []string    `json:"constraints"`
}

type llmLocation struct {
	Lat     float64 `json:"lat"`
	Lon     float64 `json:"lon"`
	Address string  `json:"address"`
}

func (p llmParsedQuery) toParsedQuery() ParsedQuery {
	var origin *geo.Location
	if p.Origin != nil {
		origin = &geo.Location{Lat: p.Origin.Lat, Lon: p.Origin.Lon, Address: p.Origin.Address}
	}
	return ParsedQuery{
		Intent:      Intent(p.Intent),
		Supplies:    p.Supplies,
		Origin:      origin,
		Urgency:     Urgency(p.Urgency),
		Constraints: p.Constraints,
		ParsedBy:    "llm",
	}
}

// llmReconciliation is the decoded shape of the reconcile_conflict tool's
// input.
type llmReconciliation struct {
	Status     string  `json:"status"`
	Confidence float64 `json:"confidence"`
	Reasoning  string  `json:"reasoning"`
}

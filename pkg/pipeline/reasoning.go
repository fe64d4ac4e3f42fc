package pipeline

import (
	"fmt"
	"strings"
)

// buildReasoning assembles the response's prose reasoning block (spec §6,
// §4.6 step 8) as a deterministic markdown template built from the
// situational-awareness counts and each route's own per-route reasoning —
// the contract names no separate LLM call for this step, so it is always
// built this way regardless of parsedBy.
func buildReasoning(parsedBy string, awareness SituationalAwareness, plan DeliveryPlan) string {
	var b strings.Builder

	fmt.Fprintf(&b, "## Situational awareness\n\n")
	fmt.Fprintf(&b, "- %d reports gathered (%d blocked roads, %d damaged roads)\n", awareness.TotalReports, awareness.BlockedRoads, awareness.DamagedRoads)
	if awareness.Partial {
		b.WriteString("- query deadline exceeded; this is a partial result\n")
	}
	fmt.Fprintf(&b, "- query parsed via **%s**\n\n", parsedBy)

	fmt.Fprintf(&b, "## Delivery plan\n\n")
	if plan.Origin == nil {
		b.WriteString("No origin could be resolved; no routes were computed.\n")
		return b.String()
	}
	fmt.Fprintf(&b, "- origin: %s (%.4f, %.4f)\n", originLabel(*plan.Origin), plan.Origin.Lat, plan.Origin.Lon)
	fmt.Fprintf(&b, "- urgency: **%s**\n", plan.Urgency)
	if len(plan.Routes) == 0 {
		b.WriteString("- no viable route could be found to any candidate shelter\n")
		return b.String()
	}

	fmt.Fprintf(&b, "\n## Routes\n\n")
	for i, r := range plan.Routes {
		fmt.Fprintf(&b, "%d. **%s** — %.1f km, confidence %.2f. %s\n", i+1, r.Destination.Address, float64(r.DistanceM)/1000, float64(r.Confidence), r.Reasoning)
	}
	return b.String()
}

func originLabel(o OriginJSON) string {
	if o.Address != "" {
		return o.Address
	}
	return "unnamed location"
}

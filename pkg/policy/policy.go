// Package policy serves the contradiction and edge-multiplier tables that
// drive clustering/reconciliation (C4) and edge projection (C5) out of a
// embedded Rego policy evaluated once by Load, with a compiled-in Go table as
// the fallback.
// This answers the spec's open question about making the reconciliation
// policy pluggable without changing its default, confidence-weighted
// behaviour.
package policy

import (
	"context"
	_ "embed"
	"math"

	"github.com/open-policy-agent/opa/rego"
	"github.com/sirupsen/logrus"
)

//go:embed policy.rego
var defaultModule string

// Tables holds the materialized contradiction and multiplier tables. It is
// immutable after Load and safe for concurrent reads.
type Tables struct {
	contradicts map[string]map[string]bool
	multiplier  map[string]float64
}

// fallbackTables mirrors policy.rego exactly and is used whenever the Rego
// policy fails to compile or evaluate, so projection/reconciliation never
// block on the policy engine.
func fallbackTables() *Tables {
	t := &Tables{
		contradicts: map[string]map[string]bool{},
		multiplier: map[string]float64{
			"road_closure":    math.Inf(1),
			"bridge_collapse": math.Inf(1),
			"flooding":        5.0,
			"road_damage":     3.0,
			"road_clear":      1.0,
		},
	}
	pairs := [][2]string{
		{"road_closure", "road_clear"},
		{"road_clear", "road_damage"},
		{"flooding", "road_clear"},
	}
	for _, p := range pairs {
		t.addPair(p[0], p[1])
	}
	return t
}

func (t *Tables) addPair(a, b string) {
	if t.contradicts[a] == nil {
		t.contradicts[a] = map[string]bool{}
	}
	if t.contradicts[b] == nil {
		t.contradicts[b] = map[string]bool{}
	}
	t.contradicts[a][b] = true
	t.contradicts[b][a] = true
}

// Contradicts reports whether two event kinds contradict each other.
func (t *Tables) Contradicts(a, b string) bool {
	if a == b {
		return false
	}
	return t.contradicts[a] != nil && t.contradicts[a][b]
}

// SetContradicts reports whether any two distinct kinds in the set
// contradict one another (spec §4.2: "A conflict exists iff that set
// intersects any pair in the contradiction table").
func (t *Tables) SetContradicts(kinds []string) bool {
	for i := 0; i < len(kinds); i++ {
		for j := i + 1; j < len(kinds); j++ {
			if t.Contradicts(kinds[i], kinds[j]) {
				return true
			}
		}
	}
	return false
}

// Multiplier returns the edge-weight multiplier for a road-affecting event
// kind and whether that kind has an entry at all.
func (t *Tables) Multiplier(kind string) (float64, bool) {
	m, ok := t.multiplier[kind]
	return m, ok
}

type regoDoc struct {
	ContradictionPairs [][2]string        `json:"contradiction_pairs"`
	Multipliers        map[string]any      `json:"multipliers"`
}

// Load compiles and evaluates the embedded Rego policy into Tables. On any
// failure it logs the condition and returns the compiled-in fallback so
// callers always get a usable, spec-accurate table.
func Load(ctx context.Context, log *logrus.Logger) *Tables {
	r := rego.New(
		rego.Query("data.reliefnet.policy"),
		rego.Module("policy.rego", defaultModule),
	)

	pq, err := r.PrepareForEval(ctx)
	if err != nil {
		log.WithError(err).Warn("policy: failed to prepare rego module, using fallback tables")
		return fallbackTables()
	}

	rs, err := pq.Eval(ctx)
	if err != nil || len(rs) == 0 || len(rs[0].Expressions) == 0 {
		log.WithError(err).Warn("policy: failed to evaluate rego module, using fallback tables")
		return fallbackTables()
	}

	doc, ok := decodeDoc(rs[0].Expressions[0].Value)
	if !ok {
		log.Warn("policy: rego module produced an unexpected shape, using fallback tables")
		return fallbackTables()
	}

	t := &Tables{
		contradicts: map[string]map[string]bool{},
		multiplier:  map[string]float64{},
	}
	for _, p := range doc.ContradictionPairs {
		t.addPair(p[0], p[1])
	}
	for kind, v := range doc.Multipliers {
		switch val := v.(type) {
		case string:
			if val == "inf" {
				t.multiplier[kind] = math.Inf(1)
			}
		case float64:
			t.multiplier[kind] = val
		}
	}
	if len(t.multiplier) == 0 {
		log.Warn("policy: rego module produced empty multiplier table, using fallback tables")
		return fallbackTables()
	}
	return t
}

// decodeDoc converts the rego.ResultSet's generic interface{} document into
// a typed regoDoc without a second JSON round-trip.
func decodeDoc(v any) (regoDoc, bool) {
	m, ok := v.(map[string]any)
	if !ok {
		return regoDoc{}, false
	}
	doc := regoDoc{Multipliers: map[string]any{}}

	if rawPairs, ok := m["contradiction_pairs"].([]any); ok {
		for _, rp := range rawPairs {
			pair, ok := rp.([]any)
			if !ok || len(pair) != 2 {
				continue
			}
			a, aok := pair[0].(string)
			b, bok := pair[1].(string)
			if aok && bok {
				doc.ContradictionPairs = append(doc.ContradictionPairs, [2]string{a, b})
			}
		}
	}
	if rawMult, ok := m["multipliers"].(map[string]any); ok {
		doc.Multipliers = rawMult
	}
	return doc, true
}

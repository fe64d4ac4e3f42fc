package extractor

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/sony/gobreaker"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jordigilh/reliefnet/pkg/reports"
)

func testLogger() *logrus.Logger {
	log := logrus.New()
	log.SetLevel(logrus.FatalLevel)
	return log
}

type fakeCaller struct {
	raw json.RawMessage
	err error
}

func (f fakeCaller) CreateToolMessage(ctx context.Context, systemPrompt, userPrompt, toolName string, schema map[string]any) (json.RawMessage, error) {
	return f.raw, f.err
}

func newTestExtractor(caller messageCreator) *Extractor {
	return &Extractor{
		caller: caller,
		breaker: gobreaker.NewCircuitBreaker(gobreaker.Settings{
			Name: "test",
			ReadyToTrip: func(counts gobreaker.Counts) bool {
				return counts.ConsecutiveFailures > 100
			},
		}),
		log: testLogger(),
	}
}

func TestParseQueryUsesLLMOnSuccess(t *testing.T) {
	raw := json.RawMessage(`{"intent":"route_supplies","supplies":{"water_cases":200},"origin":{"lat":35.5,"lon":-82.5,"address":"Asheville, NC"},"urgency":"high","constraints":[]}`)
	e := newTestExtractor(fakeCaller{raw: raw})

	result := e.ParseQuery(context.Background(), "200 water cases from Asheville, need it fast")
	assert.Equal(t, "llm", result.ParsedBy)
	assert.Equal(t, IntentRouteSupplies, result.Intent)
	assert.Equal(t, 200, result.Supplies["water_cases"])
	require.NotNil(t, result.Origin)
	assert.Equal(t, "Asheville, NC", result.Origin.Address)
	assert.Equal(t, UrgencyHigh, result.Urgency)
}

func TestParseQueryFallsBackOnLLMError(t *testing.T) {
	e := newTestExtractor(fakeCaller{err: errors.New("api unreachable")})

	result := e.ParseQuery(context.Background(), "200 water cases from asheville")
	assert.Equal(t, "keyword", result.ParsedBy)
	assert.Equal(t, 200, result.Supplies["water_cases"])
}

func TestParseQueryFallsBackOnMalformedToolOutput(t *testing.T) {
	e := newTestExtractor(fakeCaller{raw: json.RawMessage(`not json`)})

	result := e.ParseQuery(context.Background(), "200 water cases from asheville")
	assert.Equal(t, "keyword", result.ParsedBy)
}

func TestReconcileConflictReturnsLLMResult(t *testing.T) {
	raw := json.RawMessage(`{"status":"blocked","confidence":0.92,"reasoning":"satellite imagery confirms road closure"}`)
	e := newTestExtractor(fakeCaller{raw: raw})

	result, err := e.ReconcileConflict(context.Background(), []reports.Report{
		{ID: "a", Kind: reports.RoadClosure, Source: reports.SourceSatellite, RawConfidence: 0.9},
	}, "Main St / Elm Ave")
	require.NoError(t, err)
	assert.Equal(t, "llm", result.ResolverTag)
	assert.InDelta(t, 0.92, result.Confidence, 1e-9)
}

func TestReconcileConflictReturnsErrorOnLLMFailure(t *testing.T) {
	e := newTestExtractor(fakeCaller{err: errors.New("timeout")})

	_, err := e.ReconcileConflict(context.Background(), []reports.Report{
		{ID: "a", Kind: reports.RoadClosure, Source: reports.SourceSatellite, RawConfidence: 0.9},
	}, "Main St / Elm Ave")
	assert.Error(t, err)
}

func TestReconcilePromptIncludesEveryReport(t *testing.T) {
	prompt := reconcilePrompt([]reports.Report{
		{ID: "a", Kind: reports.RoadClosure, Source: reports.SourceSatellite, RawConfidence: 0.9, Description: "bridge out"},
		{ID: "b", Kind: reports.RoadClear, Source: reports.SourceTwitter, RawConfidence: 0.4, Description: "looks fine"},
	}, "Main St / Elm Ave")

	assert.Contains(t, prompt, "Main St / Elm Ave")
	assert.Contains(t, prompt, "bridge out")
	assert.Contains(t, prompt, "looks fine")
}

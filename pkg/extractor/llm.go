package extractor

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"
	"github.com/sirupsen/logrus"
	"github.com/sony/gobreaker"

	appErrors "github.com/jordigilh/reliefnet/internal/errors"
	"github.com/jordigilh/reliefnet/pkg/fusion"
	"github.com/jordigilh/reliefnet/pkg/reports"
	sharedErrors "github.com/jordigilh/reliefnet/pkg/shared/errors"
	"github.com/jordigilh/reliefnet/pkg/shelters"
)

const defaultMaxTokens = 1024

// messageCreator is the minimal surface Extractor needs from an LLM client,
// isolated so tests substitute a fake instead of calling a real endpoint.
type messageCreator interface {
	CreateToolMessage(ctx context.Context, systemPrompt, userPrompt, toolName string, schema map[string]any) (json.RawMessage, error)
}

// Extractor implements the parse_query and reconcile_conflict contracts
// (spec §4.5): an LLM-backed primary path wrapped in a circuit breaker, with
// a deterministic fallback on any error.
type Extractor struct {
	caller  messageCreator
	breaker *gobreaker.CircuitBreaker
	depots  []shelters.SupplyDepot
	log     *logrus.Logger
}

// NewExtractor builds an Extractor backed by the real Anthropic API.
func NewExtractor(apiKey, model string, timeout time.Duration, depots []shelters.SupplyDepot, log *logrus.Logger) *Extractor {
	client := anthropic.NewClient(option.WithAPIKey(apiKey), option.WithRequestTimeout(timeout))
	settings := gobreaker.Settings{
		Name:    "extractor-llm",
		Timeout: 30 * time.Second,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures > 3
		},
	}
	return &Extractor{
		caller:  &anthropicCaller{client: client, model: model},
		breaker: gobreaker.NewCircuitBreaker(settings),
		depots:  depots,
		log:     log,
	}
}

// ParseQuery implements the parse_query contract (spec §4.5 item 1),
// degrading to ParseQueryFallback on any LLM error or malformed tool output.
func (e *Extractor) ParseQuery(ctx context.Context, text string) ParsedQuery {
	raw, err := e.callLLM(ctx, parseQuerySystemPrompt, text, "parse_query", parseQuerySchema)
	if err != nil {
		appErr := appErrors.NewExtractorUnavailableError(err)
		e.log.WithFields(appErrors.LogFields(appErr)).Warn("extractor: LLM unavailable for parse_query, using keyword fallback")
		return ParseQueryFallback(text, e.depots)
	}

	var decoded llmParsedQuery
	if err := json.Unmarshal(raw, &decoded); err != nil {
		e.log.WithError(err).Warn("extractor: malformed parse_query tool output, using keyword fallback")
		return ParseQueryFallback(text, e.depots)
	}
	return decoded.toParsedQuery()
}

// ReconcileConflict implements fusion.ConflictResolver (spec §4.2/§4.5 item
// 2). It returns an error on any LLM failure; fusion.Reconcile is
// responsible for falling back to fusion.DeterministicReconcile.
func (e *Extractor) ReconcileConflict(ctx context.Context, cluster []reports.Report, label string) (fusion.ReconciliationResult, error) {
	prompt := reconcilePrompt(cluster, label)
	raw, err := e.callLLM(ctx, reconcileSystemPrompt, prompt, "reconcile_conflict", reconcileSchema)
	if err != nil {
		return fusion.ReconciliationResult{}, err
	}

	var decoded llmReconciliation
	if err := json.Unmarshal(raw, &decoded); err != nil {
		return fusion.ReconciliationResult{}, sharedErrors.ParseError("reconcile_conflict tool output", "json", err)
	}
	return fusion.ReconciliationResult{
		Status:      fusion.ReconciledStatus(decoded.Status),
		Confidence:  decoded.Confidence,
		Reasoning:   decoded.Reasoning,
		ResolverTag: "llm",
	}, nil
}

func (e *Extractor) callLLM(ctx context.Context, systemPrompt, userPrompt, toolName string, schema map[string]any) (json.RawMessage, error) {
	result, err := e.breaker.Execute(func() (interface{}, error) {
		return e.caller.CreateToolMessage(ctx, systemPrompt, userPrompt, toolName, schema)
	})
	if err != nil {
		return nil, err
	}
	return result.(json.RawMessage), nil
}

// reconcilePrompt renders a conflicting cluster's reports into the user
// message reconcile_conflict sends the LLM.
func reconcilePrompt(cluster []reports.Report, label string) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Location: %s\n\nConflicting reports:\n", label)
	for _, r := range cluster {
		fmt.Fprintf(&b, "- [%s, confidence %.2f] %s: %s\n", r.Source, r.RawConfidence, r.Kind, r.Description)
	}
	return b.String()
}

// anthropicCaller adapts the real Anthropic SDK client to messageCreator,
// forcing a tool call for a single named tool and returning its raw input.
type anthropicCaller struct {
	client *anthropic.Client
	model  string
}

func (c *anthropicCaller) CreateToolMessage(ctx context.Context, systemPrompt, userPrompt, toolName string, schema map[string]any) (json.RawMessage, error) {
	message, err := c.client.Messages.New(ctx, anthropic.MessageNewParams{
		Model:     anthropic.Model(c.model),
		MaxTokens: defaultMaxTokens,
		System:    []anthropic.TextBlockParam{{Text: systemPrompt}},
		Messages: []anthropic.MessageParam{
			anthropic.NewUserMessage(anthropic.NewTextBlock(userPrompt)),
		},
		Tools: []anthropic.ToolUnionParam{
			anthropic.ToolUnionParamOfTool(anthropic.ToolParam{
				Name:        toolName,
				InputSchema: schema,
			}),
		},
		ToolChoice: anthropic.ToolChoiceUnionParam{
			OfTool: &anthropic.ToolChoiceToolParam{Name: toolName},
		},
	})
	if err != nil {
		return nil, sharedErrors.NetworkError("anthropic messages.create", "api.anthropic.com", err)
	}

	for _, block := range message.Content {
		if tool, ok := block.AsAny().(anthropic.ToolUseBlock); ok && tool.Name == toolName {
			return tool.Input, nil
		}
	}
	return nil, fmt.Errorf("anthropic response contained no %s tool call", toolName)
}

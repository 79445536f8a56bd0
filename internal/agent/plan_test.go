package agent

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/novachat/nova/internal/tools"
)

func testRegistry(t *testing.T) *tools.Registry {
	t.Helper()
	reg, err := tools.NewRegistry([]tools.Tool{
		{
			Name:        "get_weather",
			Description: "Get the current weather for a location.",
			ArgsSchema:  `{"type":"object","properties":{"location":{"type":"string"}},"required":["location"]}`,
			Run: func(ctx context.Context, args map[string]any) (map[string]any, error) {
				return map[string]any{"location": args["location"], "temperature_c": 17.0}, nil
			},
		},
		{
			Name:        "news_search",
			Description: "Search recent news.",
			ArgsSchema:  `{"type":"object","properties":{"query":{"type":"string"}},"required":["query"]}`,
			Run: func(ctx context.Context, args map[string]any) (map[string]any, error) {
				return map[string]any{"articles": []any{}}, nil
			},
		},
	})
	if err != nil {
		t.Fatalf("NewRegistry: %v", err)
	}
	return reg
}

func TestExtractJSONBalancedBraces(t *testing.T) {
	raw := `Here is the plan you asked for:
{"original_query": "hi", "plan": []}
Let me know if it helps.`
	got := ExtractJSON(raw)
	if got != `{"original_query": "hi", "plan": []}` {
		t.Fatalf("unexpected extraction: %q", got)
	}
}

func TestExtractJSONStripsMarkdownFences(t *testing.T) {
	raw := "```json\n{\"plan\": []}\n```"
	if got := ExtractJSON(raw); got != `{"plan": []}` {
		t.Fatalf("unexpected extraction: %q", got)
	}
}

func TestExtractJSONIgnoresBracesInStrings(t *testing.T) {
	raw := `{"plan": [], "note": "a } inside"}`
	if got := ExtractJSON(raw); got != raw {
		t.Fatalf("unexpected extraction: %q", got)
	}
}

func TestParsePlanValid(t *testing.T) {
	reg := testRegistry(t)
	raw := `{"original_query": "weather in London", "plan": [
		{"step": 1, "tool": "get_weather", "arguments": {"location": "London"}, "reasoning": "user asked"}
	]}`
	plan, err := ParsePlan(raw, "fallback query", reg)
	if err != nil {
		t.Fatalf("ParsePlan: %v", err)
	}
	if plan.OriginalQuery != "weather in London" {
		t.Fatalf("original query not taken from payload: %q", plan.OriginalQuery)
	}
	if len(plan.Steps) != 1 || plan.Steps[0].Invalid != nil {
		t.Fatalf("expected one valid step, got %+v", plan.Steps)
	}
	if plan.Steps[0].Args["location"] != "London" {
		t.Fatalf("arguments lost: %+v", plan.Steps[0].Args)
	}
}

func TestParsePlanInjectsQueryWhenMissing(t *testing.T) {
	plan, err := ParsePlan(`{"plan": []}`, "what time is it", testRegistry(t))
	if err != nil {
		t.Fatalf("ParsePlan: %v", err)
	}
	if plan.OriginalQuery != "what time is it" {
		t.Fatalf("expected injected query, got %q", plan.OriginalQuery)
	}
}

func TestParsePlanMissingPlanKeyIsMalformed(t *testing.T) {
	_, err := ParsePlan(`{"original_query": "hi"}`, "hi", testRegistry(t))
	if !errors.Is(err, ErrMalformedPlan) {
		t.Fatalf("expected ErrMalformedPlan, got %v", err)
	}
}

func TestParsePlanNonArrayPlanIsMalformed(t *testing.T) {
	_, err := ParsePlan(`{"plan": "do stuff"}`, "hi", testRegistry(t))
	if !errors.Is(err, ErrMalformedPlan) {
		t.Fatalf("expected ErrMalformedPlan, got %v", err)
	}
}

func TestParsePlanNoJSONIsMalformed(t *testing.T) {
	_, err := ParsePlan("sorry, I cannot help with that", "hi", testRegistry(t))
	if !errors.Is(err, ErrMalformedPlan) {
		t.Fatalf("expected ErrMalformedPlan, got %v", err)
	}
}

func TestParsePlanIncompleteStepIsRecorded(t *testing.T) {
	raw := `{"plan": [
		{"step": 1, "tool": "get_weather", "arguments": {"location": "Paris"}},
		{"step": 2, "tool": "get_weather", "arguments": {"location": "Rome"}, "reasoning": "ok"}
	]}`
	plan, err := ParsePlan(raw, "q", testRegistry(t))
	if err != nil {
		t.Fatalf("ParsePlan: %v", err)
	}
	var incomplete *IncompleteStepError
	if !errors.As(plan.Steps[0].Invalid, &incomplete) || incomplete.Missing != "reasoning" {
		t.Fatalf("expected IncompleteStepError for reasoning, got %v", plan.Steps[0].Invalid)
	}
	if plan.Steps[1].Invalid != nil {
		t.Fatalf("valid step should not be marked: %v", plan.Steps[1].Invalid)
	}
}

func TestParsePlanStringArgumentsParseRetry(t *testing.T) {
	raw := `{"plan": [
		{"step": 1, "tool": "get_weather", "arguments": "{\"location\": \"Oslo\"}", "reasoning": "stringified"}
	]}`
	plan, err := ParsePlan(raw, "q", testRegistry(t))
	if err != nil {
		t.Fatalf("ParsePlan: %v", err)
	}
	if plan.Steps[0].Invalid != nil {
		t.Fatalf("expected retry to recover arguments, got %v", plan.Steps[0].Invalid)
	}
	if plan.Steps[0].Args["location"] != "Oslo" {
		t.Fatalf("arguments not recovered: %+v", plan.Steps[0].Args)
	}
}

func TestParsePlanBareStringArgumentsNormalized(t *testing.T) {
	raw := `{"plan": [
		{"step": 1, "tool": "get_weather", "arguments": "Lisbon", "reasoning": "bare string"}
	]}`
	plan, err := ParsePlan(raw, "q", testRegistry(t))
	if err != nil {
		t.Fatalf("ParsePlan: %v", err)
	}
	if plan.Steps[0].Invalid != nil {
		t.Fatalf("expected normalization, got %v", plan.Steps[0].Invalid)
	}
	if plan.Steps[0].Args["location"] != "Lisbon" {
		t.Fatalf("bare string not slotted into schema field: %+v", plan.Steps[0].Args)
	}
}

func TestParsePlanUnknownToolIsRecorded(t *testing.T) {
	raw := `{"plan": [
		{"step": 1, "tool": "time_machine", "arguments": {}, "reasoning": "why not"}
	]}`
	plan, err := ParsePlan(raw, "q", testRegistry(t))
	if err != nil {
		t.Fatalf("ParsePlan: %v", err)
	}
	var unknown *UnknownToolError
	if !errors.As(plan.Steps[0].Invalid, &unknown) || unknown.Name != "time_machine" {
		t.Fatalf("expected UnknownToolError, got %v", plan.Steps[0].Invalid)
	}
}

func TestParsePlanDirectResponseAlwaysKnown(t *testing.T) {
	raw := `{"plan": [
		{"step": 1, "tool": "llm_response_generation", "arguments": {"prompt_to_llm": "say hi"}, "reasoning": "direct"}
	]}`
	plan, err := ParsePlan(raw, "q", testRegistry(t))
	if err != nil {
		t.Fatalf("ParsePlan: %v", err)
	}
	if plan.Steps[0].Invalid != nil {
		t.Fatalf("direct response step should validate: %v", plan.Steps[0].Invalid)
	}
	if !plan.Steps[0].IsDirectResponse() {
		t.Fatalf("expected direct response step")
	}
}

func TestParsePlanBareStringForDirectResponse(t *testing.T) {
	raw := `{"plan": [
		{"step": 1, "tool": "llm_response_generation", "arguments": "tell a joke", "reasoning": "direct"}
	]}`
	plan, err := ParsePlan(raw, "q", testRegistry(t))
	if err != nil {
		t.Fatalf("ParsePlan: %v", err)
	}
	if got := plan.Steps[0].Args[tools.PromptArg]; got != "tell a joke" {
		t.Fatalf("expected prompt argument, got %+v", plan.Steps[0].Args)
	}
}

func TestFallbackPlanParses(t *testing.T) {
	plan, err := ParsePlan(FallbackPlan(`what is "love"?`), `what is "love"?`, testRegistry(t))
	if err != nil {
		t.Fatalf("fallback plan must always parse: %v", err)
	}
	if len(plan.Steps) != 1 || !plan.Steps[0].IsDirectResponse() {
		t.Fatalf("fallback plan should be one direct step: %+v", plan.Steps)
	}
	if !strings.Contains(plan.OriginalQuery, "love") {
		t.Fatalf("fallback lost the query: %q", plan.OriginalQuery)
	}
}

package agent

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/novachat/nova/config"
	"github.com/novachat/nova/internal/agent/telemetry"
	"github.com/novachat/nova/internal/tools"
	"github.com/novachat/nova/provider"
)

// Planner asks the model for a multi-step plan answering a user query.
type Planner struct {
	registry  *tools.Registry
	provider  provider.Provider
	llm       config.LLMConfig
	telemetry *telemetry.Telemetry
	logger    *log.Logger
}

// NewPlanner creates a planner over the given registry and model provider.
func NewPlanner(reg *tools.Registry, prov provider.Provider, llm config.LLMConfig, tele *telemetry.Telemetry) *Planner {
	return &Planner{
		registry:  reg,
		provider:  prov,
		llm:       llm,
		telemetry: tele,
		logger:    log.New(log.Writer(), "[PLANNER] ", log.LstdFlags),
	}
}

// GeneratePlan returns the raw planner response for a query. When the model
// call itself fails, it falls back to a single direct-response plan so the
// conversation still gets an answer.
func (p *Planner) GeneratePlan(ctx context.Context, query string, history []Turn) string {
	start := time.Now()
	messages := historyMessages(history, p.llm.HistoryTurns)
	messages = append(messages, provider.Message{Role: "user", Content: p.createPlanningPrompt(query)})

	response, err := p.provider.Complete(ctx, messages, provider.Options{
		Model:       p.llm.Routing.Model(p.llm.Routing.Planning),
		Temperature: 0.3, // keep plans consistent
		JSONMode:    true,
	})
	if err != nil {
		p.logger.Printf("planning call failed, falling back to direct response: %v", err)
		p.telemetry.RecordLLMCall("planning", "error", time.Since(start))
		return FallbackPlan(query)
	}
	p.telemetry.RecordLLMCall("planning", "success", time.Since(start))
	return response
}

// FallbackPlan renders a one-step plan answering directly from the model.
func FallbackPlan(query string) string {
	return fmt.Sprintf(`{"original_query": %q, "plan": [{"step": 1, "tool": %q, "arguments": {}, "reasoning": "Planning was unavailable, answering directly."}]}`,
		query, tools.DirectResponseTool)
}

// createPlanningPrompt renders the planning instructions and the tool catalog.
func (p *Planner) createPlanningPrompt(query string) string {
	return fmt.Sprintf(`You are a planning assistant. Break the user's request into a short sequence of tool invocations.

AVAILABLE TOOLS:
%s
PLANNING RULES:
1. Use only the tools listed above.
2. Each step must carry "step" (number), "tool", "arguments" (an object matching the tool's schema) and "reasoning".
3. Use "%s" when the request needs no external data, or as a final step when the plan's results should be woven into a free-form answer.
4. Keep plans minimal: one step per distinct piece of information needed.
5. If the request is ambiguous, return an empty plan.

OUTPUT FORMAT (JSON only, no other text):
{
  "original_query": "the user's request",
  "plan": [
    {"step": 1, "tool": "tool_name", "arguments": {"key": "value"}, "reasoning": "why this step"}
  ]
}

USER REQUEST: %s`, p.registry.PromptCatalog(), tools.DirectResponseTool, query)
}

// GenerateTitle asks the model for a short chat title.
func (p *Planner) GenerateTitle(ctx context.Context, firstMessage string) (string, error) {
	prompt := fmt.Sprintf("Summarize the following chat opener as a title of 3 to 4 words. Respond with the title only, no quotes.\n\nOpener: %s", firstMessage)
	title, err := p.provider.Complete(ctx, []provider.Message{{Role: "user", Content: prompt}}, provider.Options{
		Model: p.llm.Routing.Model(p.llm.Routing.Title),
	})
	if err != nil {
		return "", fmt.Errorf("title generation failed: %w", err)
	}
	return title, nil
}

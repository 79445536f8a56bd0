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
	"github.com/novachat/nova/utils"
)

// maxRawErrorBytes bounds raw upstream payloads quoted in error results.
const maxRawErrorBytes = 500

// Executor runs one plan step at a time. Tool failures of any kind become
// error results; they never propagate as Go errors.
type Executor struct {
	registry  *tools.Registry
	provider  provider.Provider
	llm       config.LLMConfig
	telemetry *telemetry.Telemetry
	logger    *log.Logger
}

// NewExecutor creates an executor over the given registry and model provider.
func NewExecutor(reg *tools.Registry, prov provider.Provider, llm config.LLMConfig, tele *telemetry.Telemetry) *Executor {
	return &Executor{
		registry:  reg,
		provider:  prov,
		llm:       llm,
		telemetry: tele,
		logger:    log.New(log.Writer(), "[EXECUTOR] ", log.LstdFlags),
	}
}

// ExecuteTool dispatches one tool step and returns its result. The tool is
// invoked at most once; every failure path yields an error result instead.
func (e *Executor) ExecuteTool(ctx context.Context, step Step) ToolResult {
	name := step.Tool
	if name == "" {
		name = "unknown"
	}
	if step.Invalid != nil {
		return errorResult(name, step.Invalid.Error())
	}

	tool, ok := e.registry.Lookup(step.Tool)
	if !ok {
		return errorResult(name, fmt.Sprintf("unknown tool %q", step.Tool))
	}
	if err := tool.ValidateArgs(step.Args); err != nil {
		return errorResult(name, fmt.Sprintf("invalid arguments: %s", utils.Truncate(err.Error(), maxRawErrorBytes)))
	}

	start := time.Now()
	output, err := tool.Run(ctx, step.Args)
	elapsed := time.Since(start)
	if err != nil {
		e.logger.Printf("tool %s failed after %v: %v", step.Tool, elapsed, err)
		e.telemetry.RecordStepExecution(step.Tool, StatusError, elapsed)
		return errorResult(name, utils.Truncate(err.Error(), maxRawErrorBytes))
	}

	result := ToolResult{ToolName: step.Tool, Status: StatusSuccess, Output: output}
	if msg, ok := output["error"]; ok && utils.Str(msg) != "" {
		result.Status = StatusError
	}
	e.telemetry.RecordStepExecution(step.Tool, result.Status, elapsed)
	return result
}

// DirectStream opens the model stream for a direct-response step. The prompt
// defaults to a template over the user's last message and the accumulated
// tool context when the step does not carry one.
func (e *Executor) DirectStream(ctx context.Context, step Step, query string, toolContext string, history []Turn) (provider.Stream, error) {
	prompt := ""
	if step.Args != nil {
		prompt = utils.Str(step.Args[tools.PromptArg])
	}
	if prompt == "" {
		prompt = defaultDirectPrompt(query, toolContext)
	}

	messages := historyMessages(history, e.llm.HistoryTurns)
	messages = append(messages, provider.Message{Role: "user", Content: prompt})
	return e.provider.StreamChat(ctx, messages, provider.Options{
		Model:       e.llm.Routing.Model(e.llm.Routing.Chat),
		Temperature: e.llm.Temperature,
	})
}

func defaultDirectPrompt(query, toolContext string) string {
	if toolContext == "" {
		return fmt.Sprintf("Answer the user's message helpfully and concisely.\n\nUser message: %s", query)
	}
	return fmt.Sprintf("Answer the user's message helpfully and concisely, using the gathered information below where relevant.\n\nUser message: %s\n\nGathered information:\n%s", query, toolContext)
}

// historyMessages maps the last n conversation turns into provider messages.
func historyMessages(history []Turn, turns int) []provider.Message {
	if turns <= 0 {
		turns = 3
	}
	keep := turns * 2
	if len(history) > keep {
		history = history[len(history)-keep:]
	}
	messages := make([]provider.Message, 0, len(history))
	for _, t := range history {
		messages = append(messages, provider.Message{Role: t.Role, Content: t.Content})
	}
	return messages
}

func errorResult(tool, msg string) ToolResult {
	return ToolResult{ToolName: tool, Status: StatusError, Output: map[string]any{"error": msg}}
}

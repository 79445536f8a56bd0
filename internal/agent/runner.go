package agent

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log"
	"strings"
	"time"

	"github.com/novachat/nova/config"
	"github.com/novachat/nova/internal/agent/telemetry"
	"github.com/novachat/nova/internal/tools"
	"github.com/novachat/nova/provider"
)

// State is the lifecycle state of a plan run.
type State string

const (
	StatePending      State = "pending"
	StateRunning      State = "running"
	StateSynthesizing State = "synthesizing"
	StateCompleted    State = "completed"
	StateAborted      State = "aborted"
)

// Sink receives response fragments in emission order. A non-nil return stops
// the run (the client is gone).
type Sink func(fragment string) error

// RunResult is the outcome of one plan run.
type RunResult struct {
	State   State
	Answer  string
	Results []ToolResult
}

const (
	msgMalformedPlan  = "I'm sorry, I couldn't work out a valid plan for that request. Could you rephrase it?"
	msgUnavailable    = "The language model service is currently unavailable. Please try again in a moment."
	msgClarification  = "I'm not sure what you're asking for. Could you clarify your request?"
	msgCriticalError  = "I'm sorry, something went wrong while processing your request."
	msgStreamCutShort = "\n\n[The response was interrupted because the model service became unavailable.]"
)

// Runner drives a plan through its lifecycle: validate, dispatch each step in
// order, accumulate results, and stream the final response.
type Runner struct {
	registry  *tools.Registry
	executor  *Executor
	provider  provider.Provider
	llm       config.LLMConfig
	telemetry *telemetry.Telemetry
	logger    *log.Logger
}

// NewRunner creates a runner.
func NewRunner(reg *tools.Registry, exec *Executor, prov provider.Provider, llm config.LLMConfig, tele *telemetry.Telemetry) *Runner {
	return &Runner{
		registry:  reg,
		executor:  exec,
		provider:  prov,
		llm:       llm,
		telemetry: tele,
		logger:    log.New(log.Writer(), "[RUNNER] ", log.LstdFlags),
	}
}

// RunRaw parses a raw planner response and runs the resulting plan. A
// malformed plan aborts the run with a single apology fragment.
func (r *Runner) RunRaw(ctx context.Context, response string, query string, history []Turn, sink Sink) RunResult {
	plan, err := ParsePlan(response, query, r.registry)
	if err != nil {
		r.logger.Printf("aborting: %v", err)
		res := RunResult{State: StateAborted}
		r.emit(&res, sink, msgMalformedPlan)
		r.telemetry.RecordPlanRun(string(StateAborted))
		return res
	}
	return r.Run(ctx, plan, history, sink)
}

// Run executes a validated plan. Per-step failures produce error results and
// the run continues; only a dead model service or a panic cuts it short.
func (r *Runner) Run(ctx context.Context, plan Plan, history []Turn, sink Sink) (res RunResult) {
	res.State = StatePending
	started := time.Now()

	defer func() {
		if rec := recover(); rec != nil {
			r.logger.Printf("recovered from panic during run: %v", rec)
			res.State = StateAborted
			r.emit(&res, sink, msgCriticalError)
		}
		r.telemetry.RecordPlanRun(string(res.State))
		r.logger.Printf("run finished in %v: state=%s steps=%d", time.Since(started), res.State, len(res.Results))
	}()

	if err := r.provider.Ping(ctx); err != nil {
		r.logger.Printf("model service unreachable: %v", err)
		res.State = StateAborted
		r.emit(&res, sink, msgUnavailable)
		return res
	}
	res.State = StateRunning

	if len(plan.Steps) == 0 {
		res.State = StateCompleted
		r.emit(&res, sink, msgClarification)
		return res
	}

	var toolContext strings.Builder
	for _, step := range plan.Steps {
		if step.IsDirectResponse() && step.Invalid == nil {
			// terminal: the model's answer is the response
			r.streamDirect(ctx, step, plan.OriginalQuery, toolContext.String(), history, &res, sink)
			res.State = StateCompleted
			return res
		}

		result := r.executor.ExecuteTool(ctx, step)
		res.Results = append(res.Results, result)
		fmt.Fprintf(&toolContext, "Result of %s: %s\n", result.ToolName, renderOutput(result.Output))
	}

	res.State = StateSynthesizing
	r.synthesize(ctx, plan.OriginalQuery, res.Results, history, &res, sink)
	res.State = StateCompleted
	return res
}

// streamDirect streams a direct-response step to the sink.
func (r *Runner) streamDirect(ctx context.Context, step Step, query, toolContext string, history []Turn, res *RunResult, sink Sink) {
	stream, err := r.executor.DirectStream(ctx, step, query, toolContext, history)
	if err != nil {
		r.logger.Printf("direct response failed to start: %v", err)
		r.emit(res, sink, msgUnavailable)
		return
	}
	r.pump(stream, res, sink)
}

// synthesize makes the single end-of-plan model call summarizing what the
// tools reported, and streams its answer.
func (r *Runner) synthesize(ctx context.Context, query string, results []ToolResult, history []Turn, res *RunResult, sink Sink) {
	start := time.Now()
	messages := historyMessages(history, r.llm.HistoryTurns)
	messages = append(messages, provider.Message{Role: "user", Content: synthesisPrompt(query, results)})

	stream, err := r.provider.StreamChat(ctx, messages, provider.Options{
		Model:       r.llm.Routing.Model(r.llm.Routing.Synthesis),
		Temperature: r.llm.Temperature,
	})
	if err != nil {
		r.logger.Printf("synthesis failed to start: %v", err)
		r.telemetry.RecordLLMCall("synthesis", "error", time.Since(start))
		r.emit(res, sink, msgUnavailable)
		return
	}
	r.pump(stream, res, sink)
	r.telemetry.RecordLLMCall("synthesis", "success", time.Since(start))
}

// pump drains a model stream into the sink. A mid-stream failure appends one
// trailing fragment after whatever already streamed.
func (r *Runner) pump(stream provider.Stream, res *RunResult, sink Sink) {
	defer stream.Close()
	for {
		fragment, err := stream.Recv()
		if errors.Is(err, io.EOF) {
			return
		}
		if err != nil {
			r.logger.Printf("stream interrupted: %v", err)
			r.emit(res, sink, msgStreamCutShort)
			return
		}
		if fragment == "" {
			continue
		}
		if r.emit(res, sink, fragment) != nil {
			return
		}
	}
}

func (r *Runner) emit(res *RunResult, sink Sink, fragment string) error {
	res.Answer += fragment
	r.telemetry.RecordStreamFragment()
	if sink == nil {
		return nil
	}
	if err := sink(fragment); err != nil {
		r.logger.Printf("sink closed: %v", err)
		return err
	}
	return nil
}

// synthesisPrompt summarizes successful and failed operations for the final
// answer-composition call.
func synthesisPrompt(query string, results []ToolResult) string {
	var ok, failed []string
	for _, res := range results {
		line := fmt.Sprintf("Tool '%s' reported: %s", res.ToolName, renderOutput(res.Output))
		if res.Status == StatusSuccess {
			ok = append(ok, line)
		} else {
			failed = append(failed, line)
		}
	}

	var b strings.Builder
	fmt.Fprintf(&b, "The user asked: %s\n\n", query)
	b.WriteString("An assistant ran a plan on the user's behalf. Compose a single helpful answer to the user from the outcomes below. Mention failures briefly only when they matter to the answer.\n\n")
	b.WriteString("Successful operations:\n")
	if len(ok) == 0 {
		b.WriteString("(none)\n")
	}
	for _, line := range ok {
		b.WriteString(line + "\n")
	}
	b.WriteString("\nFailed operations:\n")
	if len(failed) == 0 {
		b.WriteString("(none)\n")
	}
	for _, line := range failed {
		b.WriteString(line + "\n")
	}
	return b.String()
}

func renderOutput(output map[string]any) string {
	data, err := json.Marshal(output)
	if err != nil {
		return fmt.Sprintf("%v", output)
	}
	return string(data)
}

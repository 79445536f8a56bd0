package agent

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/novachat/nova/internal/tools"
)

// Turn is one message of a conversation.
type Turn struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// Plan is the multi-step execution plan decoded from the planning model.
type Plan struct {
	OriginalQuery string `json:"original_query"`
	Steps         []Step `json:"plan"`
}

// Step is one entry of a plan. Invalid is set by the validator when the step
// failed a structural check; the executor turns it into an error result
// instead of dispatching.
type Step struct {
	Ordinal   int            `json:"step"`
	Tool      string         `json:"tool"`
	Args      map[string]any `json:"arguments"`
	Reasoning string         `json:"reasoning"`

	Invalid error `json:"-"`
}

// IsDirectResponse reports whether the step answers straight from the model.
func (s Step) IsDirectResponse() bool { return s.Tool == tools.DirectResponseTool }

// ToolResult is the outcome of one executed step.
type ToolResult struct {
	ToolName string         `json:"tool_name"`
	Status   string         `json:"status"`
	Output   map[string]any `json:"output"`
}

const (
	StatusSuccess = "success"
	StatusError   = "error"
)

// ErrMalformedPlan means the planner output cannot be used at all: no JSON
// object, no "plan" key, or a non-array "plan". The whole run aborts.
var ErrMalformedPlan = errors.New("malformed plan")

// IncompleteStepError marks a step missing one of its required keys.
type IncompleteStepError struct {
	Ordinal int
	Missing string
}

func (e *IncompleteStepError) Error() string {
	return fmt.Sprintf("step %d is missing required key %q", e.Ordinal, e.Missing)
}

// InvalidArgumentsError marks a step whose arguments could not be interpreted
// as an object.
type InvalidArgumentsError struct {
	Ordinal int
	Reason  string
}

func (e *InvalidArgumentsError) Error() string {
	return fmt.Sprintf("step %d has invalid arguments: %s", e.Ordinal, e.Reason)
}

// UnknownToolError marks a step referencing a tool the registry does not know.
type UnknownToolError struct {
	Ordinal int
	Name    string
}

func (e *UnknownToolError) Error() string {
	return fmt.Sprintf("step %d references unknown tool %q", e.Ordinal, e.Name)
}

// ExtractJSON pulls the first balanced JSON object out of a model response,
// stripping markdown fences first. Returns "" when no object is found.
func ExtractJSON(response string) string {
	response = stripFences(response)
	start := -1
	depth := 0
	inString := false
	escaped := false
	for i, ch := range response {
		if inString {
			switch {
			case escaped:
				escaped = false
			case ch == '\\':
				escaped = true
			case ch == '"':
				inString = false
			}
			continue
		}
		switch ch {
		case '"':
			if depth > 0 {
				inString = true
			}
		case '{':
			if depth == 0 {
				start = i
			}
			depth++
		case '}':
			if depth > 0 {
				depth--
			}
			if depth == 0 && start != -1 {
				return response[start : i+1]
			}
		}
	}
	return ""
}

func stripFences(s string) string {
	s = strings.TrimSpace(s)
	if !strings.HasPrefix(s, "```") {
		return s
	}
	s = strings.TrimPrefix(s, "```json")
	s = strings.TrimPrefix(s, "```")
	s = strings.TrimSuffix(strings.TrimSpace(s), "```")
	return strings.TrimSpace(s)
}

// ParsePlan decodes and validates a raw planner response against the
// registry. Structural failures of the plan envelope return ErrMalformedPlan;
// per-step failures are recorded on the step so the run can continue around
// them.
func ParsePlan(response string, query string, reg *tools.Registry) (Plan, error) {
	jsonStr := ExtractJSON(response)
	if jsonStr == "" {
		return Plan{}, fmt.Errorf("%w: no JSON object in response", ErrMalformedPlan)
	}

	var envelope map[string]json.RawMessage
	if err := json.Unmarshal([]byte(jsonStr), &envelope); err != nil {
		return Plan{}, fmt.Errorf("%w: %v", ErrMalformedPlan, err)
	}

	rawSteps, ok := envelope["plan"]
	if !ok {
		return Plan{}, fmt.Errorf("%w: missing \"plan\" key", ErrMalformedPlan)
	}
	var stepList []map[string]json.RawMessage
	if err := json.Unmarshal(rawSteps, &stepList); err != nil {
		return Plan{}, fmt.Errorf("%w: \"plan\" is not an array of steps", ErrMalformedPlan)
	}

	plan := Plan{OriginalQuery: query}
	if raw, ok := envelope["original_query"]; ok {
		var q string
		if err := json.Unmarshal(raw, &q); err == nil && q != "" {
			plan.OriginalQuery = q
		}
	}

	for i, rawStep := range stepList {
		step := Step{Ordinal: i + 1}
		if raw, ok := rawStep["step"]; ok {
			var n int
			if json.Unmarshal(raw, &n) == nil && n > 0 {
				step.Ordinal = n
			}
		}
		if raw, ok := rawStep["reasoning"]; ok {
			_ = json.Unmarshal(raw, &step.Reasoning)
		}

		validateStep(&step, rawStep, reg)
		plan.Steps = append(plan.Steps, step)
	}
	return plan, nil
}

// validateStep runs the ordered per-step checks, stopping at the first
// failure so the recorded error names the earliest problem.
func validateStep(step *Step, rawStep map[string]json.RawMessage, reg *tools.Registry) {
	rawTool, ok := rawStep["tool"]
	if !ok {
		step.Invalid = &IncompleteStepError{Ordinal: step.Ordinal, Missing: "tool"}
		return
	}
	if err := json.Unmarshal(rawTool, &step.Tool); err != nil || strings.TrimSpace(step.Tool) == "" {
		step.Invalid = &IncompleteStepError{Ordinal: step.Ordinal, Missing: "tool"}
		return
	}

	rawArgs, ok := rawStep["arguments"]
	if !ok {
		step.Invalid = &IncompleteStepError{Ordinal: step.Ordinal, Missing: "arguments"}
		return
	}
	args, err := decodeArgs(rawArgs, step.Tool, reg)
	if err != nil {
		step.Invalid = &InvalidArgumentsError{Ordinal: step.Ordinal, Reason: err.Error()}
		return
	}
	step.Args = args

	if _, ok := rawStep["reasoning"]; !ok {
		step.Invalid = &IncompleteStepError{Ordinal: step.Ordinal, Missing: "reasoning"}
		return
	}

	if !reg.Known(step.Tool) {
		step.Invalid = &UnknownToolError{Ordinal: step.Ordinal, Name: step.Tool}
	}
}

// decodeArgs interprets a step's arguments value. Objects pass through.
// Strings get one parse retry as embedded JSON; a plain string is slotted
// into the tool's single required field when the schema allows it.
func decodeArgs(raw json.RawMessage, toolName string, reg *tools.Registry) (map[string]any, error) {
	var args map[string]any
	if err := json.Unmarshal(raw, &args); err == nil {
		return args, nil
	}

	var s string
	if err := json.Unmarshal(raw, &s); err != nil {
		return nil, fmt.Errorf("arguments must be an object")
	}
	if nested := ExtractJSON(s); nested != "" {
		if err := json.Unmarshal([]byte(nested), &args); err == nil {
			return args, nil
		}
	}
	if toolName == tools.DirectResponseTool {
		return map[string]any{tools.PromptArg: s}, nil
	}
	if t, ok := reg.Lookup(toolName); ok {
		if field, ok := t.RequiredStringField(); ok {
			return map[string]any{field: s}, nil
		}
	}
	return nil, fmt.Errorf("arguments string is not valid JSON")
}

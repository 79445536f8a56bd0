package tools

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/santhosh-tekuri/jsonschema/v5"
)

// DirectResponseTool is the sentinel step name for answering straight from
// the model instead of invoking an external tool. It is always known to the
// registry and bypasses argument validation.
const DirectResponseTool = "llm_response_generation"

// PromptArg is the one recognized argument of the direct-response step.
const PromptArg = "prompt_to_llm"

// RunFunc invokes a tool with already-validated arguments.
type RunFunc func(ctx context.Context, args map[string]any) (map[string]any, error)

// Tool describes one registered capability: its wire name, the description
// shown to the planning model, the JSON Schema its arguments must satisfy,
// and the adapter that performs the call.
type Tool struct {
	Name        string
	Description string
	ArgsSchema  string
	Run         RunFunc

	compiled *jsonschema.Schema
}

// ValidateArgs checks args against the tool's input schema.
func (t *Tool) ValidateArgs(args map[string]any) error {
	if t.compiled == nil {
		return nil
	}
	// jsonschema validates decoded JSON values, which args already are
	return t.compiled.Validate(map[string]any(args))
}

// RequiredStringField returns the schema's single required field when the
// schema requires exactly one string property. Used to place a bare-string
// arguments value where the planner should have put an object.
func (t *Tool) RequiredStringField() (string, bool) {
	if t.compiled == nil || len(t.compiled.Required) != 1 {
		return "", false
	}
	name := t.compiled.Required[0]
	prop, ok := t.compiled.Properties[name]
	if !ok {
		return "", false
	}
	for _, typ := range prop.Types {
		if typ == "string" {
			return name, true
		}
	}
	return "", false
}

// Registry is a fixed name -> Tool map assembled at startup.
type Registry struct {
	tools map[string]*Tool
}

// NewRegistry compiles each tool's schema and indexes it by name.
func NewRegistry(list []Tool) (*Registry, error) {
	reg := &Registry{tools: make(map[string]*Tool, len(list))}
	for i := range list {
		t := list[i]
		if strings.TrimSpace(t.Name) == "" {
			return nil, fmt.Errorf("tool with empty name")
		}
		if t.Name == DirectResponseTool {
			return nil, fmt.Errorf("tool name %q is reserved", DirectResponseTool)
		}
		if _, exists := reg.tools[t.Name]; exists {
			return nil, fmt.Errorf("duplicate tool name: %s", t.Name)
		}
		if t.ArgsSchema != "" {
			schema, err := jsonschema.CompileString(t.Name+".json", t.ArgsSchema)
			if err != nil {
				return nil, fmt.Errorf("tool %s schema invalid: %w", t.Name, err)
			}
			t.compiled = schema
		}
		reg.tools[t.Name] = &t
	}
	return reg, nil
}

// Lookup returns the tool registered under name.
func (r *Registry) Lookup(name string) (*Tool, bool) {
	t, ok := r.tools[name]
	return t, ok
}

// Known reports whether name refers to a registered tool or the
// direct-response sentinel.
func (r *Registry) Known(name string) bool {
	if name == DirectResponseTool {
		return true
	}
	_, ok := r.tools[name]
	return ok
}

// Names returns all registered tool names, sorted.
func (r *Registry) Names() []string {
	names := make([]string, 0, len(r.tools))
	for name := range r.tools {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// PromptCatalog renders the tool list for the planning prompt: one block per
// tool with its name, description and argument schema.
func (r *Registry) PromptCatalog() string {
	var b strings.Builder
	for _, name := range r.Names() {
		t := r.tools[name]
		fmt.Fprintf(&b, "- %s: %s\n", t.Name, t.Description)
		if t.ArgsSchema != "" {
			fmt.Fprintf(&b, "  arguments schema: %s\n", t.ArgsSchema)
		}
	}
	fmt.Fprintf(&b, "- %s: Answer directly from the model. Use the %q argument to override the prompt.\n",
		DirectResponseTool, PromptArg)
	return b.String()
}

package tools

import (
	"context"
	"strings"
	"testing"
)

func echoTool(name string) Tool {
	return Tool{
		Name:        name,
		Description: "echoes its arguments",
		ArgsSchema:  `{"type":"object","properties":{"query":{"type":"string"}},"required":["query"]}`,
		Run: func(ctx context.Context, args map[string]any) (map[string]any, error) {
			return map[string]any{"echo": args["query"]}, nil
		},
	}
}

func TestNewRegistryRejectsEmptyName(t *testing.T) {
	if _, err := NewRegistry([]Tool{echoTool("  ")}); err == nil {
		t.Fatalf("expected error for empty tool name")
	}
}

func TestNewRegistryRejectsReservedName(t *testing.T) {
	if _, err := NewRegistry([]Tool{echoTool(DirectResponseTool)}); err == nil {
		t.Fatalf("expected error for reserved name")
	}
}

func TestNewRegistryRejectsDuplicates(t *testing.T) {
	if _, err := NewRegistry([]Tool{echoTool("echo"), echoTool("echo")}); err == nil {
		t.Fatalf("expected error for duplicate name")
	}
}

func TestNewRegistryRejectsBrokenSchema(t *testing.T) {
	broken := echoTool("echo")
	broken.ArgsSchema = `{"type": nonsense}`
	if _, err := NewRegistry([]Tool{broken}); err == nil {
		t.Fatalf("expected error for invalid schema")
	}
}

func TestLookupAndKnown(t *testing.T) {
	reg, err := NewRegistry([]Tool{echoTool("echo")})
	if err != nil {
		t.Fatalf("NewRegistry: %v", err)
	}
	if _, ok := reg.Lookup("echo"); !ok {
		t.Fatalf("registered tool not found")
	}
	if _, ok := reg.Lookup("missing"); ok {
		t.Fatalf("unregistered tool found")
	}
	if !reg.Known("echo") {
		t.Fatalf("registered tool should be known")
	}
	if !reg.Known(DirectResponseTool) {
		t.Fatalf("direct response sentinel should always be known")
	}
	if reg.Known("missing") {
		t.Fatalf("unregistered tool should not be known")
	}
}

func TestNamesSorted(t *testing.T) {
	reg, err := NewRegistry([]Tool{echoTool("zulu"), echoTool("alpha"), echoTool("mike")})
	if err != nil {
		t.Fatalf("NewRegistry: %v", err)
	}
	names := reg.Names()
	if len(names) != 3 || names[0] != "alpha" || names[1] != "mike" || names[2] != "zulu" {
		t.Fatalf("names not sorted: %v", names)
	}
}

func TestValidateArgs(t *testing.T) {
	reg, err := NewRegistry([]Tool{echoTool("echo")})
	if err != nil {
		t.Fatalf("NewRegistry: %v", err)
	}
	tool, _ := reg.Lookup("echo")

	if err := tool.ValidateArgs(map[string]any{"query": "hi"}); err != nil {
		t.Fatalf("valid args rejected: %v", err)
	}
	if err := tool.ValidateArgs(map[string]any{"query": 42}); err == nil {
		t.Fatalf("wrong type accepted")
	}
	if err := tool.ValidateArgs(map[string]any{}); err == nil {
		t.Fatalf("missing required field accepted")
	}
}

func TestRequiredStringField(t *testing.T) {
	reg, err := NewRegistry([]Tool{
		echoTool("single"),
		{
			Name:        "two_required",
			Description: "needs two fields",
			ArgsSchema:  `{"type":"object","properties":{"a":{"type":"string"},"b":{"type":"string"}},"required":["a","b"]}`,
			Run:         func(ctx context.Context, args map[string]any) (map[string]any, error) { return nil, nil },
		},
		{
			Name:        "number_required",
			Description: "needs a number",
			ArgsSchema:  `{"type":"object","properties":{"n":{"type":"number"}},"required":["n"]}`,
			Run:         func(ctx context.Context, args map[string]any) (map[string]any, error) { return nil, nil },
		},
	})
	if err != nil {
		t.Fatalf("NewRegistry: %v", err)
	}

	single, _ := reg.Lookup("single")
	if field, ok := single.RequiredStringField(); !ok || field != "query" {
		t.Fatalf("expected query field, got %q %v", field, ok)
	}

	two, _ := reg.Lookup("two_required")
	if _, ok := two.RequiredStringField(); ok {
		t.Fatalf("two required fields should not normalize")
	}

	num, _ := reg.Lookup("number_required")
	if _, ok := num.RequiredStringField(); ok {
		t.Fatalf("non-string required field should not normalize")
	}
}

func TestPromptCatalog(t *testing.T) {
	reg, err := NewRegistry([]Tool{echoTool("echo")})
	if err != nil {
		t.Fatalf("NewRegistry: %v", err)
	}
	catalog := reg.PromptCatalog()
	if !strings.Contains(catalog, "- echo: echoes its arguments") {
		t.Fatalf("catalog missing tool line: %q", catalog)
	}
	if !strings.Contains(catalog, "arguments schema:") {
		t.Fatalf("catalog missing schema line: %q", catalog)
	}
	if !strings.Contains(catalog, DirectResponseTool) {
		t.Fatalf("catalog missing direct response entry: %q", catalog)
	}
}

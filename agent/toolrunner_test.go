package agent

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
)

type fakeTool struct {
	name    string
	schema  json.RawMessage
	outcome ToolOutcome
	err     error
	panics  bool
}

func (f *fakeTool) Name() string                { return f.name }
func (f *fakeTool) Description() string         { return "fake tool for tests" }
func (f *fakeTool) Parameters() json.RawMessage { return f.schema }
func (f *fakeTool) Execute(ctx context.Context, call ToolCall) (ToolOutcome, error) {
	if f.panics {
		panic("boom")
	}
	return f.outcome, f.err
}

func TestToolRunner_ExecuteBatch_PreservesOrder(t *testing.T) {
	tools := map[string]Tool{
		"slow": &fakeTool{name: "slow", outcome: ToolOutcome{Content: "slow-done"}},
		"fast": &fakeTool{name: "fast", outcome: ToolOutcome{Content: "fast-done"}},
	}
	calls := []ToolCall{
		{CallID: "c1", Name: "slow", Arguments: map[string]any{}},
		{CallID: "c2", Name: "fast", Arguments: map[string]any{}},
	}

	r := NewToolRunner()
	results := r.ExecuteBatch(context.Background(), calls, tools, map[string]bool{})

	if len(results) != 2 {
		t.Fatalf("expected 2 results, got %d", len(results))
	}
	if results[0].call.CallID != "c1" || results[0].content != "slow-done" {
		t.Fatalf("unexpected result[0]: %+v", results[0])
	}
	if results[1].call.CallID != "c2" || results[1].content != "fast-done" {
		t.Fatalf("unexpected result[1]: %+v", results[1])
	}
}

func TestToolRunner_UnknownTool(t *testing.T) {
	r := NewToolRunner()
	results := r.ExecuteBatch(context.Background(), []ToolCall{{CallID: "c1", Name: "missing"}}, map[string]Tool{}, map[string]bool{})

	if !results[0].isError {
		t.Fatalf("expected error result for unknown tool, got %+v", results[0])
	}
}

func TestToolRunner_DisabledTool(t *testing.T) {
	tools := map[string]Tool{"shell": &fakeTool{name: "shell", outcome: ToolOutcome{Content: "ran"}}}
	r := NewToolRunner()
	results := r.ExecuteBatch(context.Background(), []ToolCall{{CallID: "c1", Name: "shell"}}, tools, map[string]bool{"shell": true})

	if !results[0].isError {
		t.Fatalf("expected disabled tool to produce an error result, got %+v", results[0])
	}
}

func TestToolRunner_ToolError(t *testing.T) {
	tools := map[string]Tool{"fails": &fakeTool{name: "fails", err: errors.New("permission denied")}}
	r := NewToolRunner()
	results := r.ExecuteBatch(context.Background(), []ToolCall{{CallID: "c1", Name: "fails"}}, tools, map[string]bool{})

	if !results[0].isError || results[0].content != "permission denied" {
		t.Fatalf("unexpected result: %+v", results[0])
	}
	if r.Metrics().TotalFailures != 1 {
		t.Fatalf("expected 1 recorded failure, got %+v", r.Metrics())
	}
}

func TestToolRunner_PanicIsolated(t *testing.T) {
	tools := map[string]Tool{"boom": &fakeTool{name: "boom", panics: true}}
	r := NewToolRunner()
	results := r.ExecuteBatch(context.Background(), []ToolCall{{CallID: "c1", Name: "boom"}}, tools, map[string]bool{})

	if !results[0].isError {
		t.Fatalf("expected panic to surface as an error result, got %+v", results[0])
	}
	if r.Metrics().TotalCrashes != 1 {
		t.Fatalf("expected 1 recorded crash, got %+v", r.Metrics())
	}
}

func TestToolRunner_SchemaValidationRejectsBadArguments(t *testing.T) {
	schema := json.RawMessage(`{
		"type": "object",
		"properties": {"path": {"type": "string"}},
		"required": ["path"]
	}`)
	tools := map[string]Tool{"read": &fakeTool{name: "read", schema: schema, outcome: ToolOutcome{Content: "should not run"}}}

	r := NewToolRunner()
	results := r.ExecuteBatch(context.Background(), []ToolCall{{CallID: "c1", Name: "read", Arguments: map[string]any{}}}, tools, map[string]bool{})

	if !results[0].isError {
		t.Fatalf("expected schema validation to reject missing required field, got %+v", results[0])
	}
}

func TestToolRunner_SchemaValidationAllowsGoodArguments(t *testing.T) {
	schema := json.RawMessage(`{
		"type": "object",
		"properties": {"path": {"type": "string"}},
		"required": ["path"]
	}`)
	tools := map[string]Tool{"read": &fakeTool{name: "read", schema: schema, outcome: ToolOutcome{Content: "file contents"}}}

	r := NewToolRunner()
	results := r.ExecuteBatch(context.Background(), []ToolCall{{CallID: "c1", Name: "read", Arguments: map[string]any{"path": "a.go"}}}, tools, map[string]bool{})

	if results[0].isError || results[0].content != "file contents" {
		t.Fatalf("expected successful execution, got %+v", results[0])
	}
}

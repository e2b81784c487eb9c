package agent

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"
)

// scriptedProvider replays a fixed sequence of responses, one per Stream
// call, grounded on the teacher's loopTestProvider fake-provider pattern.
type scriptedProvider struct {
	responses [][]CompletionChunk
	call      int
	errs      []error
}

func (p *scriptedProvider) Name() string { return "scripted" }

func (p *scriptedProvider) Stream(ctx context.Context, req CompletionRequest) (<-chan CompletionChunk, error) {
	idx := p.call
	p.call++

	if idx < len(p.errs) && p.errs[idx] != nil {
		return nil, p.errs[idx]
	}

	ch := make(chan CompletionChunk, len(p.responses[idx])+1)
	for _, c := range p.responses[idx] {
		ch <- c
	}
	close(ch)
	return ch, nil
}

func TestAgent_Prompt_SimpleTextResponse(t *testing.T) {
	provider := &scriptedProvider{responses: [][]CompletionChunk{
		{
			{Kind: ChunkDelta, TextDelta: "hello "},
			{Kind: ChunkDelta, TextDelta: "world"},
			{Kind: ChunkDone},
		},
	}}

	a := NewAgent("sess-1", "test-model", DefaultConfig(), AgentOptions{Provider: provider})
	defer a.Close()

	res := a.Prompt(context.Background(), "hi")
	if res.Err != nil {
		t.Fatalf("unexpected error: %v", res.Err)
	}
	if res.Text != "hello world" {
		t.Fatalf("unexpected text: %q", res.Text)
	}

	state := a.GetState()
	if state.Status != StatusIdle {
		t.Fatalf("expected idle status after turn, got %v", state.Status)
	}
	if len(state.Messages) != 2 {
		t.Fatalf("expected user+assistant messages, got %d: %+v", len(state.Messages), state.Messages)
	}
}

func TestAgent_Prompt_RunsToolAndContinues(t *testing.T) {
	provider := &scriptedProvider{responses: [][]CompletionChunk{
		{
			{Kind: ChunkToolCallDelta, CallID: "call_1", ToolName: "echo", ArgumentsJSON: `{"msg":"hi"}`},
			{Kind: ChunkDone},
		},
		{
			{Kind: ChunkDelta, TextDelta: "done"},
			{Kind: ChunkDone},
		},
	}}

	a := NewAgent("sess-1", "test-model", DefaultConfig(), AgentOptions{Provider: provider})
	defer a.Close()
	a.RegisterTool(&fakeTool{name: "echo", outcome: ToolOutcome{Content: "hi"}})

	res := a.Prompt(context.Background(), "say hi")
	if res.Err != nil {
		t.Fatalf("unexpected error: %v", res.Err)
	}
	if res.Text != "done" {
		t.Fatalf("unexpected final text: %q", res.Text)
	}

	ctx := a.GetContext()
	var sawToolResult bool
	for _, m := range ctx {
		if m.Role == RoleToolResult && m.CallID == "call_1" && m.Content == "hi" {
			sawToolResult = true
		}
	}
	if !sawToolResult {
		t.Fatalf("expected tool result message in context, got %+v", ctx)
	}
}

func TestAgent_Prompt_PermanentErrorAborts(t *testing.T) {
	provider := &scriptedProvider{
		responses: [][]CompletionChunk{nil},
		errs:      []error{errors.New("invalid api key")},
	}

	a := NewAgent("sess-1", "test-model", DefaultConfig(), AgentOptions{Provider: provider})
	defer a.Close()

	res := a.Prompt(context.Background(), "hi")
	if res.Err == nil {
		t.Fatalf("expected an error")
	}
	var classified *ClassifiedError
	if !errors.As(res.Err, &classified) {
		t.Fatalf("expected a ClassifiedError, got %T: %v", res.Err, res.Err)
	}
	if classified.Class != ClassPermanent {
		t.Fatalf("expected ClassPermanent, got %v", classified.Class)
	}

	state := a.GetState()
	if state.Status != StatusIdle {
		t.Fatalf("expected idle status after aborted turn, got %v", state.Status)
	}
}

func TestAgent_Prompt_TransientErrorRetriesThenSucceeds(t *testing.T) {
	cfg := DefaultConfig()
	cfg.RetryBaseDelayMS = 1
	cfg.RetryMaxDelayMS = 2

	provider := &scriptedProvider{
		responses: [][]CompletionChunk{
			nil,
			{{Kind: ChunkDelta, TextDelta: "recovered"}, {Kind: ChunkDone}},
		},
		errs: []error{errors.New("503 service unavailable"), nil},
	}

	a := NewAgent("sess-1", "test-model", cfg, AgentOptions{Provider: provider})
	defer a.Close()

	res := a.Prompt(context.Background(), "hi")
	if res.Err != nil {
		t.Fatalf("unexpected error: %v", res.Err)
	}
	if res.Text != "recovered" {
		t.Fatalf("unexpected text: %q", res.Text)
	}
}

func TestAgent_Prompt_QueuesWhileBusy(t *testing.T) {
	block := make(chan CompletionChunk)
	provider := &blockingProvider{ch: block}

	a := NewAgent("sess-1", "test-model", DefaultConfig(), AgentOptions{Provider: provider})
	defer a.Close()

	done := make(chan struct{})
	go func() {
		_ = a.Prompt(context.Background(), "first")
		close(done)
	}()

	// Give the first prompt time to claim StatusRunning.
	deadline := time.After(time.Second)
	for {
		if a.GetState().Status != StatusIdle {
			break
		}
		select {
		case <-deadline:
			t.Fatal("first prompt never left idle")
		case <-time.After(time.Millisecond):
		}
	}

	res := a.Prompt(context.Background(), "second")
	if !res.Queued {
		t.Fatalf("expected the second prompt to be queued while busy, got %+v", res)
	}

	block <- CompletionChunk{Kind: ChunkDelta, TextDelta: "first reply"}
	close(block)
	<-done

	var sawFollowUp bool
	for _, m := range a.GetContext() {
		if m.Role == RoleUser && m.Content == "second" {
			sawFollowUp = true
		}
	}
	if !sawFollowUp {
		t.Fatalf("expected queued prompt to be applied once idle, got %+v", a.GetContext())
	}
}

type blockingProvider struct {
	ch chan CompletionChunk
}

func (p *blockingProvider) Name() string { return "blocking" }
func (p *blockingProvider) Stream(ctx context.Context, req CompletionRequest) (<-chan CompletionChunk, error) {
	return p.ch, nil
}

// contextCapturingTool records the ToolContext it was called with and
// optionally returns an effect that injects a follow-up message.
type contextCapturingTool struct {
	seen   ToolContext
	inject *Message
}

func (t *contextCapturingTool) Name() string                { return "capture" }
func (t *contextCapturingTool) Description() string         { return "captures its ToolContext" }
func (t *contextCapturingTool) Parameters() json.RawMessage { return nil }
func (t *contextCapturingTool) Execute(ctx context.Context, call ToolCall) (ToolOutcome, error) {
	if tc, ok := ToolContextFromContext(ctx); ok {
		t.seen = tc
	}
	var effect *EffectResult
	if t.inject != nil {
		effect = &EffectResult{Kind: EffectLoadSkill, Target: "demo", Inject: t.inject}
	}
	return ToolOutcome{Content: "captured", Effect: effect}, nil
}

func TestAgent_Prompt_ToolSeesWorkingDirAndCallID(t *testing.T) {
	provider := &scriptedProvider{responses: [][]CompletionChunk{
		{
			{Kind: ChunkToolCallDelta, CallID: "call_9", ToolName: "capture", ArgumentsJSON: `{}`},
			{Kind: ChunkDone},
		},
		{
			{Kind: ChunkDelta, TextDelta: "done"},
			{Kind: ChunkDone},
		},
	}}

	tool := &contextCapturingTool{}
	a := NewAgent("sess-wd", "test-model", DefaultConfig(), AgentOptions{Provider: provider, WorkingDir: "/srv/project"})
	defer a.Close()
	a.RegisterTool(tool)

	if res := a.Prompt(context.Background(), "go"); res.Err != nil {
		t.Fatalf("unexpected error: %v", res.Err)
	}

	if tool.seen.WorkingDir != "/srv/project" {
		t.Fatalf("expected working dir propagated, got %q", tool.seen.WorkingDir)
	}
	if tool.seen.SessionID != "sess-wd" {
		t.Fatalf("expected session id propagated, got %q", tool.seen.SessionID)
	}
	if tool.seen.CallID != "call_9" {
		t.Fatalf("expected call id propagated, got %q", tool.seen.CallID)
	}
	if tool.seen.Agent != a {
		t.Fatalf("expected agent reference propagated")
	}
}

func TestAgent_Prompt_EffectInjectsFollowUpMessage(t *testing.T) {
	provider := &scriptedProvider{responses: [][]CompletionChunk{
		{
			{Kind: ChunkToolCallDelta, CallID: "call_1", ToolName: "capture", ArgumentsJSON: `{}`},
			{Kind: ChunkDone},
		},
		{
			{Kind: ChunkDelta, TextDelta: "done"},
			{Kind: ChunkDone},
		},
	}}

	injected := NewUserMessage("[skill loaded: demo]")
	tool := &contextCapturingTool{inject: &injected}
	a := NewAgent("sess-1", "test-model", DefaultConfig(), AgentOptions{Provider: provider})
	defer a.Close()
	a.RegisterTool(tool)

	if res := a.Prompt(context.Background(), "load demo"); res.Err != nil {
		t.Fatalf("unexpected error: %v", res.Err)
	}

	var sawInjected bool
	for _, m := range a.GetContext() {
		if m.Role == RoleUser && m.Content == "[skill loaded: demo]" {
			sawInjected = true
		}
	}
	if !sawInjected {
		t.Fatalf("expected injected message in context, got %+v", a.GetContext())
	}
}

func TestAgent_SetToolEnabled_ExcludesFromSchemas(t *testing.T) {
	a := NewAgent("sess-1", "test-model", DefaultConfig(), AgentOptions{Provider: &scriptedProvider{}})
	defer a.Close()

	a.RegisterTool(&fakeTool{name: "shell", schema: json.RawMessage(`{}`)})
	a.SetToolEnabled("shell", false)

	var schemas []ToolSchema
	a.submit(func() { schemas = a.activeToolSchemas() })

	if len(schemas) != 0 {
		t.Fatalf("expected disabled tool excluded from active schemas, got %+v", schemas)
	}
}

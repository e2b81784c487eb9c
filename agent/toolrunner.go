package agent

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"github.com/santhosh-tekuri/jsonschema/v5"
)

// ToolRunnerMetrics is a point-in-time snapshot of tool execution
// counters, grounded on executor.go's ExecutorMetricsSnapshot.
type ToolRunnerMetrics struct {
	TotalExecutions int64
	TotalFailures   int64
	TotalCrashes    int64
}

// ToolRunner executes a batch of tool calls concurrently, one goroutine
// per call, preserving the original call order in its results slice, per
// spec §4.3. It has no concurrency cap of its own: spec §5 states tasks
// execute in parallel with no batch-level backpressure knob, unlike the
// teacher's semaphore-bounded Executor.
type ToolRunner struct {
	mu      sync.Mutex
	metrics ToolRunnerMetrics
}

// NewToolRunner constructs an empty ToolRunner.
func NewToolRunner() *ToolRunner {
	return &ToolRunner{}
}

// toolCallResult pairs one call with its outcome for ExecuteBatch's
// ordered results slice.
type toolCallResult struct {
	call    ToolCall
	content string
	isError bool
	effect  *EffectResult
}

// ExecuteBatch runs every call in calls against the matching entry in
// tools (by ToolCall.Name), skipping disabled tools and invalid
// arguments without ever invoking Tool.Execute for them. ctx is passed to
// every Execute call; a call stops early on cancellation only if the tool
// observes ctx, and ExecuteBatch returns once every call has returned.
func (r *ToolRunner) ExecuteBatch(ctx context.Context, calls []ToolCall, tools map[string]Tool, disabled map[string]bool) []toolCallResult {
	results := make([]toolCallResult, len(calls))
	var wg sync.WaitGroup

	for i, call := range calls {
		i, call := i, call
		wg.Add(1)
		go func() {
			defer wg.Done()
			results[i] = r.executeOne(ctx, call, tools, disabled)
		}()
	}
	wg.Wait()

	return results
}

func (r *ToolRunner) executeOne(ctx context.Context, call ToolCall, tools map[string]Tool, disabled map[string]bool) (res toolCallResult) {
	res.call = call

	if disabled[call.Name] {
		res.content = fmt.Sprintf("tool %q is disabled for this session", call.Name)
		res.isError = true
		return res
	}

	tool, ok := tools[call.Name]
	if !ok {
		res.content = fmt.Sprintf("unknown tool %q", call.Name)
		res.isError = true
		return res
	}

	if err := validateArgs(tool, call); err != nil {
		res.content = fmt.Sprintf("invalid arguments: %v", err)
		res.isError = true
		r.bumpFailure()
		return res
	}

	defer func() {
		if rec := recover(); rec != nil {
			res.content = fmt.Sprintf("tool panicked: %v", rec)
			res.isError = true
			r.bumpCrash()
		}
	}()

	r.bumpExecution()
	if tc, ok := ToolContextFromContext(ctx); ok {
		tc.CallID = call.CallID
		ctx = WithToolContext(ctx, tc)
	}
	outcome, err := tool.Execute(ctx, call)
	if err != nil {
		res.content = err.Error()
		res.isError = true
		r.bumpFailure()
		return res
	}

	res.content = outcome.Content
	res.isError = outcome.IsError
	res.effect = outcome.Effect
	if outcome.IsError {
		r.bumpFailure()
	}
	return res
}

// validateArgs checks call.Arguments (an empty map when nil) against the
// tool's declared JSON Schema, surfacing a structured
// error instead of invoking Execute on malformed input. The teacher's own
// ToolRegistry never validates args against schema; this is new wiring of
// an otherwise-unused jsonschema dependency in the teacher's go.mod.
func validateArgs(tool Tool, call ToolCall) error {
	schema := tool.Parameters()
	if len(schema) == 0 {
		return nil
	}

	compiler := jsonschema.NewCompiler()
	if err := compiler.AddResource(tool.Name()+".json", strings.NewReader(string(schema))); err != nil {
		return nil // malformed schema on the tool's side: don't block execution
	}
	compiled, err := compiler.Compile(tool.Name() + ".json")
	if err != nil {
		return nil
	}

	payload := call.Arguments
	if payload == nil {
		payload = map[string]any{}
	}
	return compiled.ValidateInterface(payload)
}

func (r *ToolRunner) bumpExecution() {
	r.mu.Lock()
	r.metrics.TotalExecutions++
	r.mu.Unlock()
}

func (r *ToolRunner) bumpFailure() {
	r.mu.Lock()
	r.metrics.TotalFailures++
	r.mu.Unlock()
}

func (r *ToolRunner) bumpCrash() {
	r.mu.Lock()
	r.metrics.TotalCrashes++
	r.mu.Unlock()
}

// Metrics returns a snapshot of the runner's execution counters.
func (r *ToolRunner) Metrics() ToolRunnerMetrics {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.metrics
}

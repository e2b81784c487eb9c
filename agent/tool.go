package agent

import (
	"context"
	"encoding/json"
)

// Tool is an external capability the machine may invoke on the model's
// behalf. Concrete tool implementations (shell, file I/O, browser,
// sandbox) live outside this module, per spec §6.
type Tool interface {
	Name() string
	Description() string
	// Parameters returns the tool's JSON Schema object describing its
	// expected arguments, used by toolrunner to validate a call before
	// dispatch.
	Parameters() json.RawMessage
	// Execute runs the tool with already-validated arguments. ctx carries
	// the per-call cancellation the machine uses for abort handling.
	Execute(ctx context.Context, call ToolCall) (ToolOutcome, error)
}

// ToolOutcome is what a successful (or application-level failed) tool
// execution reports back to the machine, per spec §4.3.
type ToolOutcome struct {
	Content string
	IsError bool
	Effect  *EffectResult
}

// EffectKind enumerates the side effects a tool may report having made,
// used by callers (e.g. a UI) to react without re-parsing tool content.
type EffectKind string

const (
	EffectNone       EffectKind = ""
	EffectFileWrite  EffectKind = "file_write"
	EffectFileDelete EffectKind = "file_delete"
	EffectExec       EffectKind = "exec"
	EffectNetwork    EffectKind = "network"
	EffectLoadSkill  EffectKind = "load_skill"
)

// EffectResult records a side effect a tool made. Inject, if set, is a
// message the machine appends to history right after the tool's own result
// — e.g. a system message advertising a skill a load_skill effect just
// loaded — per spec §4.3 "tool effects".
type EffectResult struct {
	Kind   EffectKind
	Target string
	Inject *Message
}

// ToolContext carries the per-call environment a Tool may need beyond its
// arguments, per spec §6's execute context: working_dir, session_id,
// config, agent_reference, agent_state_snapshot, emit_fn, call_id. It
// travels on the context.Context passed to Execute; tools that don't need
// it can ignore it entirely.
type ToolContext struct {
	WorkingDir string
	SessionID  string
	CallID     string
	Config     Config
	State      State
	Agent      *Agent
	// Emit lets a long-running tool stream partial output back to
	// subscribers before Execute returns, surfaced as a tool_output event
	// (spec §6). name is normally the calling ToolCall's Name.
	Emit func(name, chunk string)
}

// ToolCategory tags a registered tool as belonging to one of the
// feature-flagged groups the active-tool filter checks, per spec §4.3.
// Tools registered without a category (the common case) are never
// excluded by feature flags, only by the disabled-names list.
type ToolCategory string

const (
	CategoryNone      ToolCategory = ""
	CategorySubAgent  ToolCategory = "sub_agent"
	CategoryMCP       ToolCategory = "mcp"
	CategoryDebug     ToolCategory = "debug"
	CategorySkillLoad ToolCategory = "skill_load"
)

type toolContextKey struct{}

// WithToolContext attaches tc to ctx for a tool's Execute to retrieve via
// ToolContextFromContext.
func WithToolContext(ctx context.Context, tc ToolContext) context.Context {
	return context.WithValue(ctx, toolContextKey{}, tc)
}

// ToolContextFromContext recovers the ToolContext attached by the runner,
// if any.
func ToolContextFromContext(ctx context.Context) (ToolContext, bool) {
	tc, ok := ctx.Value(toolContextKey{}).(ToolContext)
	return tc, ok
}

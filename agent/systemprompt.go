package agent

import "context"

// SystemPromptBuilder is the external collaborator the machine asks to
// rebuild the system prompt at the start of every turn, per spec §4.1
// step 3. tools is the turn's active-tool-filtered schema list, so a
// builder can mention which capabilities are currently available,
// grounded on system_prompt.go's buildSystemPrompt taking dynamic,
// per-request sections rather than a single static string.
type SystemPromptBuilder interface {
	BuildSystemPrompt(state State, tools []ToolSchema) (string, error)
}

// StaticSystemPromptBuilder is a SystemPromptBuilder that always returns
// the same fixed text, for callers that don't need per-turn variation.
type StaticSystemPromptBuilder string

func (s StaticSystemPromptBuilder) BuildSystemPrompt(State, []ToolSchema) (string, error) {
	return string(s), nil
}

type systemPromptKey struct{}

// WithSystemPrompt attaches a one-off system prompt override to ctx,
// bypassing the agent's configured SystemPromptBuilder for calls made
// with this context. Grounded on runtime.go's SetSystemPrompt/
// WithSystemPrompt pair, generalized here into context-scoped override
// rather than a runtime-wide setter so concurrent callers on the same
// agent don't clobber each other's prompt.
func WithSystemPrompt(ctx context.Context, prompt string) context.Context {
	return context.WithValue(ctx, systemPromptKey{}, prompt)
}

// systemPromptFromContext recovers a prompt attached by WithSystemPrompt,
// if any.
func systemPromptFromContext(ctx context.Context) (string, bool) {
	s, ok := ctx.Value(systemPromptKey{}).(string)
	return s, ok
}

// Package agent implements the per-session agent state machine that drives
// an interactive conversation with an LLM provider: it streams partial
// responses to subscribers, dispatches tool invocations as concurrent
// tasks, and loops until the model produces a response that needs no
// further tool execution.
package agent

import (
	"encoding/json"
	"strconv"
	"time"
)

// Role identifies the author of a Message.
type Role string

const (
	RoleUser       Role = "user"
	RoleAssistant  Role = "assistant"
	RoleSystem     Role = "system"
	RoleToolResult Role = "tool_result"
)

// Message is an immutable record in the conversation history. Content may
// be empty for assistant messages that are pure tool calls. ToolCalls and
// Thinking are only meaningful for RoleAssistant; CallID and IsError are
// only meaningful for RoleToolResult.
type Message struct {
	Role      Role       `json:"role"`
	Content   string     `json:"content"`
	ToolCalls []ToolCall `json:"tool_calls,omitempty"`
	Thinking  string     `json:"thinking,omitempty"`
	CallID    string     `json:"call_id,omitempty"`
	IsError   bool       `json:"is_error,omitempty"`
	CreatedAt time.Time  `json:"created_at,omitempty"`
}

// ToolCall represents a model-issued tool invocation. Arguments holds the
// fully decoded call once finalised; during streaming, ArgumentsJSON
// accumulates the raw partial JSON and Arguments is nil until
// finalizeToolCalls runs.
//
// Identity for matching a ToolCall across delta events uses the first
// non-empty of CallID, ItemID, stringified CallIndex (see stream.go).
type ToolCall struct {
	CallID        string         `json:"call_id"`
	Name          string         `json:"name"`
	Arguments     map[string]any `json:"arguments,omitempty"`
	ItemID        string         `json:"item_id,omitempty"`
	CallIndex     int            `json:"call_index,omitempty"`
	HasCallIndex  bool           `json:"-"`
	ArgumentsJSON string         `json:"-"`
}

// identity returns the first non-empty identifier for matching this call
// against streaming delta events, per spec §3/§4.2.
func (tc ToolCall) identity() (kind string, value string, ok bool) {
	if tc.CallID != "" {
		return "call_id", tc.CallID, true
	}
	if tc.ItemID != "" {
		return "item_id", tc.ItemID, true
	}
	if tc.HasCallIndex {
		return "call_index", indexKey(tc.CallIndex), true
	}
	return "", "", false
}

func indexKey(i int) string {
	return "#" + strconv.Itoa(i)
}

// finalizeArguments decodes ArgumentsJSON into Arguments when Arguments was
// not already supplied pre-parsed, per spec §4.1 step 10.
func (tc *ToolCall) finalizeArguments() {
	if tc.Arguments != nil {
		return
	}
	if tc.ArgumentsJSON == "" {
		tc.Arguments = map[string]any{}
		return
	}
	var decoded map[string]any
	if err := json.Unmarshal([]byte(tc.ArgumentsJSON), &decoded); err != nil {
		tc.Arguments = map[string]any{}
		return
	}
	tc.Arguments = decoded
}

// TokenUsage holds provider-reported token accounting for a session. Each
// usage report replaces the counts (see UpdateUsage); they are not summed
// across reports or turns.
type TokenUsage struct {
	PromptTokens         int `json:"prompt_tokens"`
	CompletionTokens     int `json:"completion_tokens"`
	TotalTokens          int `json:"total_tokens"`
	ContextWindow        int `json:"context_window"`
	CurrentContextTokens int `json:"current_context_tokens"`
}

// NewUserMessage builds a user message ready to append to history.
func NewUserMessage(content string) Message {
	return Message{Role: RoleUser, Content: content, CreatedAt: time.Now()}
}

// NewToolResultMessage builds a synthetic or real tool_result message.
func NewToolResultMessage(callID, content string, isError bool) Message {
	return Message{
		Role:      RoleToolResult,
		CallID:    callID,
		Content:   content,
		IsError:   isError,
		CreatedAt: time.Now(),
	}
}

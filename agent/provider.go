package agent

import "context"

// Provider is the external LLM collaborator the machine drives each turn.
// Concrete implementations (HTTP clients, auth, model registries) live
// outside this module, per spec §6.
//
// Stream returns a channel of CompletionChunk values. The provider owns
// closing the channel when the response completes, errors, or ctx is
// cancelled. The machine's stream loop handles native structured chunks
// (ChunkDelta/ChunkToolCallDelta/etc.); it does not decode ChunkRawSSE
// chunks and ignores them. A provider that reads raw SSE decodes it
// itself (for example with ScanSSE) and sends the resulting chunks.
type Provider interface {
	Name() string
	Stream(ctx context.Context, req CompletionRequest) (<-chan CompletionChunk, error)
}

// CompletionRequest is the outbound shape the machine builds each turn.
type CompletionRequest struct {
	Model        string
	SystemPrompt string
	Messages     []Message
	Tools        []ToolSchema
	MaxTokens    int
	Temperature  float64
}

// ToolSchema is the provider-facing description of one active tool.
type ToolSchema struct {
	Name        string
	Description string
	Parameters  []byte // JSON Schema object
}

// ChunkKind discriminates the payload carried by a CompletionChunk.
type ChunkKind int

const (
	ChunkDelta ChunkKind = iota
	ChunkToolCallDelta
	ChunkToolCallDone
	ChunkThinkingDelta
	ChunkUsage
	ChunkRawSSE
	ChunkDone
	ChunkError
)

// CompletionChunk is one unit of a streamed provider response. Only the
// fields relevant to Kind are populated.
type CompletionChunk struct {
	Kind ChunkKind

	// ChunkDelta / ChunkThinkingDelta
	TextDelta string

	// ChunkToolCallDelta / ChunkToolCallDone
	CallID        string
	ItemID        string
	CallIndex     int
	HasCallIndex  bool
	ToolName      string
	ArgumentsJSON string

	// ChunkUsage
	Usage TokenUsage

	// ChunkRawSSE: an unparsed "data: ..." payload line. The machine's
	// stream loop ignores chunks of this kind.
	RawSSELine string

	// ChunkError
	Err error
}

// Model describes one entry the provider supports, for informational use.
type Model struct {
	ID            string
	ContextWindow int
}

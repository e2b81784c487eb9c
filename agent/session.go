package agent

import "context"

// Session is the external persistence collaborator the machine calls into
// at message-append and compaction boundaries. Concrete stores (sqlite,
// postgres, in-memory) live outside this module, per spec §6.
type Session interface {
	// Append persists a single message to the session's current path.
	Append(ctx context.Context, msg Message) error
	// AppendMany persists messages in order as a single unit, used for
	// a tool batch's result messages (plus any messages a tool effect
	// injects); the assistant message itself goes through Append.
	AppendMany(ctx context.Context, msgs []Message) error
	// GetPath returns the full ordered message history for this session.
	GetPath(ctx context.Context) ([]Message, error)
	// CurrentID returns the session's stable identifier.
	CurrentID() string
	// Save flushes any buffered state to the backing store.
	Save(ctx context.Context) error
	// Compact replaces the session's history with a compacted
	// representation, invoked by usage.go on proactive/overflow triggers.
	Compact(ctx context.Context, keep []Message, summary string) error
	// SetMetadata/GetMetadata store small out-of-band session attributes
	// (e.g. last compaction timestamp, retry counters survived across
	// restarts).
	SetMetadata(ctx context.Context, key, value string) error
	GetMetadata(ctx context.Context, key string) (string, bool, error)
}

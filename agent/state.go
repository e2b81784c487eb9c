package agent

// Status is the agent's coarse execution phase (spec §3 "Status").
type Status string

const (
	StatusIdle           Status = "idle"
	StatusRunning        Status = "running"
	StatusStreaming      Status = "streaming"
	StatusExecutingTools Status = "executing_tools"
)

// streamAccumulator holds the per-turn streaming state, reset at the start
// of every turn (spec §3 invariant: accumulator fields are turn-scoped).
type streamAccumulator struct {
	currentText      string
	currentToolCalls []ToolCall
	currentThinking  *string
}

func newStreamAccumulator() *streamAccumulator {
	return &streamAccumulator{}
}

// State is the value a single Agent owns and mutates exclusively from its
// own mailbox goroutine (spec §3, §5 "Scheduling model"). Grounded on the
// split between loop.go's per-run LoopState and runtime.go's longer-lived
// Runtime identity/config fields, collapsed here into one struct since
// this module's Agent has no separate "runtime vs. loop" distinction.
type State struct {
	// Identity
	SessionID  string
	Model      string
	WorkingDir string
	Config     Config

	// Status
	Status Status

	// Conversation
	Messages []Message

	// Tool registry: which registered tools are currently disabled for
	// this session (spec §4.3 "active-tool filter").
	DisabledTools map[string]bool

	// Streaming accumulator, valid only while Status == StatusStreaming.
	acc *streamAccumulator

	// Usage
	TokenUsage       TokenUsage
	LastPromptTokens int
	OverflowDetected bool

	// Resilience
	RetryCount       int
	MaxRetries       int
	RetryBaseDelayMS int
	RetryMaxDelayMS  int
}

// NewState constructs an agent state with configuration and optional
// recovered history, per spec §3 "Lifecycle".
func NewState(sessionID, model string, cfg Config, history []Message) *State {
	return &State{
		SessionID:        sessionID,
		Model:            model,
		Config:           cfg,
		Status:           StatusIdle,
		Messages:         append([]Message{}, history...),
		DisabledTools:    make(map[string]bool),
		acc:              newStreamAccumulator(),
		MaxRetries:       cfg.MaxRetries,
		RetryBaseDelayMS: cfg.RetryBaseDelayMS,
		RetryMaxDelayMS:  cfg.RetryMaxDelayMS,
	}
}

// resetAccumulator clears all per-turn streaming fields.
func (s *State) resetAccumulator() {
	s.acc = newStreamAccumulator()
}

// snapshot returns a copy of State safe to hand to callers of GetState
// without risking a data race with the owning mailbox goroutine.
func (s *State) snapshot() State {
	cp := *s
	cp.Messages = append([]Message{}, s.Messages...)
	cp.DisabledTools = nil
	cp.acc = nil
	return cp
}

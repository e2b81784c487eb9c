package agent

import (
	"io"
	"sync"

	"github.com/rs/zerolog"
)

// ZerologTraceSink persists the full event stream as JSONL, one line per
// event, for offline replay. Grounded on trace.go's TracePlugin, which
// does the same thing with a hand-rolled json.Marshal and a mutex-guarded
// writer; this swaps the encoding for zerolog since structured JSONL
// logging is exactly what it's for.
type ZerologTraceSink struct {
	mu  sync.Mutex
	log zerolog.Logger
}

// NewZerologTraceSink wraps w in a zerolog.Logger configured for
// machine-readable JSONL output, one object per event.
func NewZerologTraceSink(w io.Writer) *ZerologTraceSink {
	return &ZerologTraceSink{log: zerolog.New(w).With().Timestamp().Logger()}
}

func (s *ZerologTraceSink) OnEvent(e Event) {
	s.mu.Lock()
	defer s.mu.Unlock()

	evt := s.log.Info().
		Str("type", string(e.Type)).
		Str("session_id", e.SessionID).
		Str("run_id", e.RunID).
		Uint64("sequence", e.Sequence).
		Time("at", e.At)

	if e.CallID != "" {
		evt = evt.Str("call_id", e.CallID)
	}
	if e.ToolName != "" {
		evt = evt.Str("tool_name", e.ToolName)
	}
	if e.IsError {
		evt = evt.Bool("is_error", e.IsError)
	}
	if e.Err != "" {
		evt = evt.Str("error", e.Err)
	}
	if e.Type == EventUsageUpdate {
		evt = evt.Int("prompt_tokens", e.Usage.PromptTokens).
			Int("completion_tokens", e.Usage.CompletionTokens).
			Int("total_tokens", e.Usage.TotalTokens)
	}
	if e.Type == EventRetry {
		evt = evt.Int("retry_attempt", e.RetryAttempt).
			Int64("retry_delay_ms", e.RetryDelayMS).
			Str("retry_reason", e.RetryReason)
	}
	if e.Text != "" {
		evt = evt.Str("text", e.Text)
	}

	evt.Msg("agent_event")
}

package agent

import (
	"context"
	"strconv"
)

const (
	// bytesPerTokenEstimate and perMessageOverheadTokens implement the
	// Open Question decision recorded in DESIGN.md: a deterministic,
	// slightly-over-estimating token counter, used by compact to re-estimate
	// CurrentContextTokens for the history it keeps.
	bytesPerTokenEstimate    = 4
	perMessageOverheadTokens = 24
)

// estimateTokens approximates the token cost of msgs using a fixed
// bytes-per-token ratio plus a flat per-message overhead for role and
// structural tokens, per spec §4.6 / §9.
func estimateTokens(msgs []Message) int {
	total := 0
	for _, m := range msgs {
		total += perMessageOverheadTokens
		total += len(m.Content) / bytesPerTokenEstimate
		for _, tc := range m.ToolCalls {
			total += len(tc.ArgumentsJSON) / bytesPerTokenEstimate
			total += perMessageOverheadTokens
		}
	}
	return total
}

// UpdateUsage folds a provider-reported ChunkUsage into state, preferring
// authoritative provider numbers over the heuristic estimate once
// available, per spec §4.6.
func UpdateUsage(state *State, usage TokenUsage) {
	state.TokenUsage.PromptTokens = usage.PromptTokens
	state.TokenUsage.CompletionTokens = usage.CompletionTokens
	state.TokenUsage.TotalTokens = usage.TotalTokens
	if usage.ContextWindow > 0 {
		state.TokenUsage.ContextWindow = usage.ContextWindow
	}
	state.TokenUsage.CurrentContextTokens = usage.TotalTokens
	state.LastPromptTokens = usage.PromptTokens
}

// CompactionTrigger distinguishes why MaybeAutoCompact fired.
type CompactionTrigger int

const (
	TriggerNone CompactionTrigger = iota
	TriggerProactive
	TriggerOverflow
)

// shouldAutoCompact reports whether state's current usage crosses the
// proactive-compaction threshold (spec §4.6), factored out of
// MaybeAutoCompact so callers can decide whether to emit a compaction_start
// event before paying for the compaction itself.
func shouldAutoCompact(state *State) bool {
	if state.TokenUsage.ContextWindow <= 0 {
		return false
	}
	ratio := float64(state.TokenUsage.CurrentContextTokens) / float64(state.TokenUsage.ContextWindow)
	return ratio >= state.Config.ProactiveCompactionThreshold
}

// usageOverflow reports whether the most recently reported prompt token
// count already exceeds the model's context window, per spec §4.5's
// usage_overflow?(input_tokens, window) and §4.1 step 12's structural
// overflow check (distinct from the error-text overflow classification in
// Classify, which only fires when a provider call fails outright).
func usageOverflow(state *State) bool {
	return state.TokenUsage.ContextWindow > 0 && state.TokenUsage.PromptTokens > state.TokenUsage.ContextWindow
}

// proportionalKeepTail returns roughly 20% of total as the number of most
// recent messages an aggressive compaction should keep verbatim, per spec
// §4.6's "aggressive ratio (keep ≈20%)", floored at 1 so a non-empty
// history is never compacted away entirely.
func proportionalKeepTail(total int) int {
	if total <= 0 {
		return 0
	}
	keep := total / 5
	if keep < 1 {
		keep = 1
	}
	return keep
}

// MaybeAutoCompact checks whether state's current usage crosses the
// proactive-compaction threshold (spec §4.6) and, if so, invokes
// session.Compact with every message except a tail kept verbatim, then
// resets the state's usage accounting. It is a no-op below threshold.
func MaybeAutoCompact(ctx context.Context, state *State, session Session, keepTail int) (CompactionTrigger, error) {
	if !shouldAutoCompact(state) {
		return TriggerNone, nil
	}
	if err := compact(ctx, state, session, keepTail); err != nil {
		return TriggerNone, err
	}
	return TriggerProactive, nil
}

// HandleOverflowCompaction is invoked when a provider error classifies as
// ClassOverflow (spec §4.5/§4.6): it compacts unconditionally, regardless
// of the proactive threshold, since the provider has already rejected the
// oversized request.
func HandleOverflowCompaction(ctx context.Context, state *State, session Session, keepTail int) error {
	state.OverflowDetected = true
	defer func() { state.OverflowDetected = false }()
	return compact(ctx, state, session, keepTail)
}

func compact(ctx context.Context, state *State, session Session, keepTail int) error {
	if keepTail < 0 || keepTail > len(state.Messages) {
		keepTail = len(state.Messages)
	}
	kept := append([]Message{}, state.Messages[len(state.Messages)-keepTail:]...)

	summary := summarizePlaceholder(state.Messages[:len(state.Messages)-keepTail])

	if session != nil {
		if err := session.Compact(ctx, kept, summary); err != nil {
			return err
		}
	}

	state.Messages = kept
	state.TokenUsage.CurrentContextTokens = estimateTokens(kept)
	return nil
}

// summarizePlaceholder stands in for actual compaction summarisation
// content, which spec.md §1 explicitly places out of scope: callers that
// need real summarisation supply their own Session.Compact implementation
// and may ignore the summary string this produces.
func summarizePlaceholder(dropped []Message) string {
	if len(dropped) == 0 {
		return ""
	}
	return "[compacted " + strconv.Itoa(len(dropped)) + " earlier messages]"
}

package agent

// RepairTranscript enforces tool_call/tool_result pairing on a message
// history before it is sent to a provider, per spec §4.4. It runs two
// layers in order:
//
//   - Layer 1 (orphan repair): a session can be interrupted after the
//     model issued tool_calls but before any tool_result was recorded
//     (e.g. the process restarted mid-execution). Any tool_calls in any
//     assistant message with no corresponding tool_result anywhere after
//     them are given a synthetic aborted result, so the transcript never
//     ends mid-call.
//   - Layer 2 (positional reassembly): every assistant message with
//     tool_calls must be immediately followed, in the same order, by one
//     tool_result per call. Results are repositioned into that order;
//     any call still missing a result is synthesized as an error result.
//
// This generalizes transcript_repair.go's repairTranscript, which only
// filters tool_results with no matching pending call_id; it never
// synthesizes missing results or repositions existing ones.
func RepairTranscript(history []Message) ([]Message, []RepairWarning) {
	if len(history) == 0 {
		return history, nil
	}

	var warnings []RepairWarning

	repaired, w1 := repairOrphanCalls(history)
	warnings = append(warnings, w1...)

	repaired, w2 := ensureToolResults(repaired)
	warnings = append(warnings, w2...)

	return repaired, warnings
}

// repairOrphanCalls implements Layer 1: any tool_calls in an assistant
// message with no tool_result anywhere later in history are given a
// synthetic aborted result appended immediately after that assistant
// message.
func repairOrphanCalls(history []Message) ([]Message, []RepairWarning) {
	var warnings []RepairWarning
	out := make([]Message, 0, len(history))

	for i, msg := range history {
		out = append(out, msg)
		if msg.Role != RoleAssistant || len(msg.ToolCalls) == 0 {
			continue
		}

		resolved := make(map[string]bool, len(msg.ToolCalls))
		for j := i + 1; j < len(history); j++ {
			later := history[j]
			if later.Role == RoleToolResult {
				resolved[later.CallID] = true
			}
		}

		for _, call := range msg.ToolCalls {
			if resolved[call.CallID] {
				continue
			}
			out = append(out, NewToolResultMessage(call.CallID, "[Aborted by user]", true))
			warnings = append(warnings, RepairWarning{
				Layer:  1,
				Reason: "orphaned tool_call with no result, synthesized aborted result",
				CallID: call.CallID,
			})
		}
	}

	return out, warnings
}

// ensureToolResults implements Layer 2: reassembles tool_result messages
// so that every assistant tool_calls message is immediately followed by
// exactly one result per call, in call order, synthesizing any still
// missing as "[Error: tool result missing]".
func ensureToolResults(history []Message) ([]Message, []RepairWarning) {
	var warnings []RepairWarning
	out := make([]Message, 0, len(history))

	i := 0
	for i < len(history) {
		msg := history[i]
		out = append(out, msg)
		i++

		if msg.Role != RoleAssistant || len(msg.ToolCalls) == 0 {
			continue
		}

		// Collect every tool_result belonging to this batch of calls,
		// wherever it appears, until the next assistant message. Other
		// messages in that span are kept, after the batch's results.
		byCallID := make(map[string]Message)
		var between []Message
		j := i
		for j < len(history) && history[j].Role != RoleAssistant {
			if history[j].Role == RoleToolResult {
				byCallID[history[j].CallID] = history[j]
			} else {
				between = append(between, history[j])
			}
			j++
		}

		for _, call := range msg.ToolCalls {
			if res, ok := byCallID[call.CallID]; ok {
				out = append(out, res)
				continue
			}
			out = append(out, NewToolResultMessage(call.CallID, "[Error: tool result missing]", true))
			warnings = append(warnings, RepairWarning{
				Layer:  2,
				Reason: "missing tool_result repositioned/synthesized",
				CallID: call.CallID,
			})
		}
		out = append(out, between...)

		i = j
	}

	return out, warnings
}

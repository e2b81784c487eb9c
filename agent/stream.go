package agent

import (
	"bufio"
	"encoding/json"
	"strings"
)

// inlineTags are the XML-ish tags the model may emit inline in its text
// output that must be extracted rather than shown verbatim, per spec
// §4.2. A tag's content can span multiple CompletionChunk deltas, so
// extraction is a small per-stream state machine rather than a
// per-chunk regex.
var inlineTags = []string{"status", "title"}

// tagEvent is emitted once a buffered inline tag closes.
type tagEvent struct {
	Tag     string
	Content string
}

// tagExtractor folds inline <status>/<title> tags out of a stream of text
// deltas, buffering partial tag content across chunk boundaries.
type tagExtractor struct {
	open    string // tag name currently being buffered, "" if none
	buf     strings.Builder
	pending string // text carried over in case a delta splits a "<" boundary
}

// Feed processes one text delta, returning the plain text to surface to
// the caller (with any tag markup and content removed) and any tags that
// closed within this delta.
func (te *tagExtractor) Feed(delta string) (plain string, events []tagEvent) {
	s := te.pending + delta
	te.pending = ""

	var out strings.Builder
	i := 0
	for i < len(s) {
		if te.open == "" {
			start := strings.IndexByte(s[i:], '<')
			if start < 0 {
				out.WriteString(s[i:])
				i = len(s)
				break
			}
			out.WriteString(s[i : i+start])
			i += start

			tag, consumed, ok := matchOpenTag(s[i:])
			if !ok {
				// Could be a split boundary (chunk ended mid-"<tag>");
				// hold back the unresolved tail for the next Feed call.
				if looksLikePartialTag(s[i:]) {
					te.pending = s[i:]
					i = len(s)
					break
				}
				out.WriteByte(s[i])
				i++
				continue
			}
			te.open = tag
			i += consumed
			continue
		}

		closeStr := "</" + te.open + ">"
		idx := strings.Index(s[i:], closeStr)
		if idx < 0 {
			te.buf.WriteString(s[i:])
			i = len(s)
			break
		}
		te.buf.WriteString(s[i : i+idx])
		events = append(events, tagEvent{Tag: te.open, Content: te.buf.String()})
		te.buf.Reset()
		i += idx + len(closeStr)
		te.open = ""
	}

	return out.String(), events
}

func matchOpenTag(s string) (tag string, consumed int, ok bool) {
	for _, name := range inlineTags {
		open := "<" + name + ">"
		if strings.HasPrefix(s, open) {
			return name, len(open), true
		}
	}
	return "", 0, false
}

// looksLikePartialTag reports whether s could be the prefix of one of the
// known open-tag strings, meaning we should wait for more input rather
// than emit it as plain text.
func looksLikePartialTag(s string) bool {
	for _, name := range inlineTags {
		open := "<" + name + ">"
		n := len(s)
		if n > len(open) {
			n = len(open)
		}
		if strings.HasPrefix(open, s[:n]) {
			return true
		}
	}
	return false
}

// decodeRawSSELine classifies one line of a raw "data: ..." SSE stream into a
// decoded CompletionChunk, for providers that hand stream.go unparsed SSE
// text instead of pre-built native chunks (spec §6 duality). Framing
// follows the "data: <json>" / "data: [DONE]" convention every SSE-based
// LLM API uses.
func decodeRawSSELine(line string, decode func(data []byte) (CompletionChunk, error)) (CompletionChunk, bool) {
	line = strings.TrimSpace(line)
	if line == "" || strings.HasPrefix(line, ":") {
		return CompletionChunk{}, false
	}
	data, ok := strings.CutPrefix(line, "data:")
	if !ok {
		return CompletionChunk{}, false
	}
	data = strings.TrimSpace(data)
	if data == "[DONE]" {
		return CompletionChunk{Kind: ChunkDone}, true
	}
	chunk, err := decode([]byte(data))
	if err != nil {
		return CompletionChunk{Kind: ChunkError, Err: err}, true
	}
	return chunk, true
}

// ScanSSE reads raw SSE text from scanner, calling emit once per decoded chunk.
// decode turns one "data:" payload into a CompletionChunk; it is supplied
// by the caller since the wire JSON shape is provider-specific.
func ScanSSE(scanner *bufio.Scanner, decode func(data []byte) (CompletionChunk, error), emit func(CompletionChunk)) error {
	for scanner.Scan() {
		chunk, ok := decodeRawSSELine(scanner.Text(), decode)
		if !ok {
			continue
		}
		emit(chunk)
		if chunk.Kind == ChunkDone || chunk.Kind == ChunkError {
			return scanner.Err()
		}
	}
	return scanner.Err()
}

// mergeToolCallDelta folds one ChunkToolCallDelta into the accumulator's
// in-progress tool call list, matching by identity per spec §4.2 (first
// non-empty of call_id, item_id, call_index; falling back to the last
// call whose arguments are still unset, per the spec's Open Question
// decision).
func (acc *streamAccumulator) mergeToolCallDelta(c CompletionChunk) {
	idx := acc.findToolCallIndex(c)
	if idx < 0 {
		acc.currentToolCalls = append(acc.currentToolCalls, ToolCall{
			CallID:       c.CallID,
			ItemID:       c.ItemID,
			CallIndex:    c.CallIndex,
			HasCallIndex: c.HasCallIndex,
			Name:         c.ToolName,
		})
		idx = len(acc.currentToolCalls) - 1
	}
	tc := &acc.currentToolCalls[idx]
	if c.ToolName != "" {
		tc.Name = c.ToolName
	}
	tc.ArgumentsJSON += c.ArgumentsJSON
}

func (acc *streamAccumulator) findToolCallIndex(c CompletionChunk) int {
	for i, tc := range acc.currentToolCalls {
		if c.CallID != "" && tc.CallID == c.CallID {
			return i
		}
		if c.CallID == "" && c.ItemID != "" && tc.ItemID == c.ItemID {
			return i
		}
		if c.CallID == "" && c.ItemID == "" && c.HasCallIndex && tc.HasCallIndex && tc.CallIndex == c.CallIndex {
			return i
		}
	}
	if c.CallID == "" && c.ItemID == "" && !c.HasCallIndex {
		for i := len(acc.currentToolCalls) - 1; i >= 0; i-- {
			if acc.currentToolCalls[i].Arguments == nil {
				return i
			}
		}
	}
	return -1
}

// finalizeToolCalls decodes every accumulated call's ArgumentsJSON into
// Arguments, per spec §4.1 step 10.
func (acc *streamAccumulator) finalizeToolCalls() []ToolCall {
	for i := range acc.currentToolCalls {
		acc.currentToolCalls[i].finalizeArguments()
	}
	return acc.currentToolCalls
}

// marshalArgs builds ArgumentsJSON from a map, mirroring how a real
// provider would serialize tool-call arguments; it returns "{}" if m
// cannot be marshaled.
func marshalArgs(m map[string]any) string {
	b, err := json.Marshal(m)
	if err != nil {
		return "{}"
	}
	return string(b)
}

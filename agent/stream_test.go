package agent

import "testing"

func TestTagExtractor_SimpleTagInOneChunk(t *testing.T) {
	te := &tagExtractor{}
	plain, events := te.Feed("before <status>thinking</status> after")

	if plain != "before  after" {
		t.Fatalf("unexpected plain text: %q", plain)
	}
	if len(events) != 1 || events[0].Tag != "status" || events[0].Content != "thinking" {
		t.Fatalf("unexpected events: %+v", events)
	}
}

func TestTagExtractor_TagSplitAcrossChunks(t *testing.T) {
	te := &tagExtractor{}

	plain1, events1 := te.Feed("hello <stat")
	if plain1 != "hello " || len(events1) != 0 {
		t.Fatalf("unexpected first chunk result: plain=%q events=%+v", plain1, events1)
	}

	plain2, events2 := te.Feed("us>working</status> world")
	if plain2 != " world" {
		t.Fatalf("unexpected second chunk plain text: %q", plain2)
	}
	if len(events2) != 1 || events2[0].Content != "working" {
		t.Fatalf("unexpected second chunk events: %+v", events2)
	}
}

func TestTagExtractor_ContentSplitAcrossChunks(t *testing.T) {
	te := &tagExtractor{}

	plain1, events1 := te.Feed("<title>Build")
	if plain1 != "" || len(events1) != 0 {
		t.Fatalf("unexpected: plain=%q events=%+v", plain1, events1)
	}

	plain2, events2 := te.Feed("ing...</title>done")
	if plain2 != "done" {
		t.Fatalf("unexpected plain: %q", plain2)
	}
	if len(events2) != 1 || events2[0].Tag != "title" || events2[0].Content != "Building..." {
		t.Fatalf("unexpected events: %+v", events2)
	}
}

func TestStreamAccumulator_MergeByCallID(t *testing.T) {
	acc := newStreamAccumulator()

	acc.mergeToolCallDelta(CompletionChunk{Kind: ChunkToolCallDelta, CallID: "call_1", ToolName: "search", ArgumentsJSON: `{"q":`})
	acc.mergeToolCallDelta(CompletionChunk{Kind: ChunkToolCallDelta, CallID: "call_1", ArgumentsJSON: `"go"}`})

	if len(acc.currentToolCalls) != 1 {
		t.Fatalf("expected one merged call, got %d", len(acc.currentToolCalls))
	}
	tc := acc.currentToolCalls[0]
	if tc.Name != "search" || tc.ArgumentsJSON != `{"q":"go"}` {
		t.Fatalf("unexpected merged call: %+v", tc)
	}

	finalized := acc.finalizeToolCalls()
	if finalized[0].Arguments["q"] != "go" {
		t.Fatalf("expected finalized arguments, got %+v", finalized[0].Arguments)
	}
}

func TestStreamAccumulator_MergeByLastNilArguments(t *testing.T) {
	acc := newStreamAccumulator()

	// Two calls with no identity at all: the fallback should append the
	// argument fragment to the most recently started call still missing
	// finalized Arguments.
	acc.mergeToolCallDelta(CompletionChunk{Kind: ChunkToolCallDelta, ToolName: "first", ArgumentsJSON: "{"})
	acc.mergeToolCallDelta(CompletionChunk{Kind: ChunkToolCallDelta, ArgumentsJSON: `"a":1}`})

	if len(acc.currentToolCalls) != 1 {
		t.Fatalf("expected fallback merge into one call, got %d: %+v", len(acc.currentToolCalls), acc.currentToolCalls)
	}
	if acc.currentToolCalls[0].ArgumentsJSON != `{"a":1}` {
		t.Fatalf("unexpected merged arguments: %q", acc.currentToolCalls[0].ArgumentsJSON)
	}
}

func TestDecodeRawSSELine_Done(t *testing.T) {
	chunk, ok := decodeRawSSELine("data: [DONE]", nil)
	if !ok || chunk.Kind != ChunkDone {
		t.Fatalf("expected ChunkDone, got %+v ok=%v", chunk, ok)
	}
}

func TestDecodeRawSSELine_BlankAndComment(t *testing.T) {
	if _, ok := decodeRawSSELine("", nil); ok {
		t.Fatalf("expected blank line to be ignored")
	}
	if _, ok := decodeRawSSELine(": keep-alive", nil); ok {
		t.Fatalf("expected comment line to be ignored")
	}
}

func TestDecodeRawSSELine_DecodesPayload(t *testing.T) {
	chunk, ok := decodeRawSSELine(`data: {"text":"hi"}`, func(data []byte) (CompletionChunk, error) {
		return CompletionChunk{Kind: ChunkDelta, TextDelta: "hi"}, nil
	})
	if !ok || chunk.Kind != ChunkDelta || chunk.TextDelta != "hi" {
		t.Fatalf("unexpected decode result: %+v ok=%v", chunk, ok)
	}
}

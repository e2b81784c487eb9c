package agent

import (
	"sync"
	"testing"
)

type collectingSink struct {
	mu     sync.Mutex
	events []Event
}

func (s *collectingSink) OnEvent(e Event) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.events = append(s.events, e)
}

func (s *collectingSink) snapshot() []Event {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]Event{}, s.events...)
}

func TestEventEmitter_SequencesMonotonically(t *testing.T) {
	sink := &collectingSink{}
	e := NewEventEmitter("sess-1", sink, 10)

	e.AgentStart()
	e.MessageDelta("hello")
	e.AgentEnd(nil, TokenUsage{})

	events := sink.snapshot()
	if len(events) != 3 {
		t.Fatalf("expected 3 events, got %d", len(events))
	}
	for i, ev := range events {
		if ev.Sequence != uint64(i+1) {
			t.Fatalf("event %d has sequence %d, want %d", i, ev.Sequence, i+1)
		}
		if ev.SessionID != "sess-1" {
			t.Fatalf("unexpected session id: %q", ev.SessionID)
		}
	}
}

func TestEventEmitter_RingBufferWraps(t *testing.T) {
	e := NewEventEmitter("sess-1", NopSink{}, 3)

	for i := 0; i < 5; i++ {
		e.MessageDelta("x")
	}

	recent := e.Recent()
	if len(recent) != 3 {
		t.Fatalf("expected ring buffer capped at 3, got %d", len(recent))
	}
	// The buffer should hold the last 3 of 5 emitted events: sequences 3,4,5.
	if recent[0].Sequence != 3 || recent[2].Sequence != 5 {
		t.Fatalf("unexpected ring contents: %+v", recent)
	}
}

func TestMultiSink_FansOutToAll(t *testing.T) {
	a, b := &collectingSink{}, &collectingSink{}
	multi := MultiSink{Sinks: []EventSink{a, b}}

	multi.OnEvent(Event{Type: EventAgentStart})

	if len(a.snapshot()) != 1 || len(b.snapshot()) != 1 {
		t.Fatalf("expected both sinks to receive the event")
	}
}

func TestBackpressureSink_DropsDroppableEventsUnderPressure(t *testing.T) {
	entered := make(chan struct{}, 1)
	release := make(chan struct{})
	downstream := &blockingSink{entered: entered, release: release}

	sink := NewBackpressureSink(downstream, BackpressureConfig{HighPriCapacity: 4, LowPriCapacity: 1})
	defer sink.Close()

	// First delta occupies the merge loop's single in-flight downstream call.
	sink.OnEvent(Event{Type: EventMessageDelta})
	<-entered // wait for the merge loop to enter OnEvent and block on release

	// These should fill and then overflow the low-pri lane of capacity 1.
	sink.OnEvent(Event{Type: EventMessageDelta})
	sink.OnEvent(Event{Type: EventMessageDelta})

	close(release)

	if sink.Dropped() == 0 {
		t.Fatalf("expected at least one dropped event under pressure")
	}
}

type blockingSink struct {
	entered chan struct{}
	release chan struct{}
}

func (s *blockingSink) OnEvent(e Event) {
	select {
	case s.entered <- struct{}{}:
	default:
	}
	<-s.release
}

package agent

import (
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
)

// EventType enumerates the event kinds the machine emits, per spec §6. The
// string values are the wire names subscribers match on; Go identifiers
// stay PascalCase per convention while the values themselves stay
// snake_case to match the contract verbatim.
type EventType string

const (
	EventAgentStart     EventType = "agent_start"
	EventAgentEnd       EventType = "agent_end"
	EventAgentAbort     EventType = "agent_abort"
	EventAgentRecovered EventType = "agent_recovered"

	EventRequestStart EventType = "request_start"
	EventRequestEnd   EventType = "request_end"

	EventMessageStart   EventType = "message_start"
	EventMessageDelta   EventType = "message_delta"
	EventMessageQueued  EventType = "message_queued"
	EventMessageApplied EventType = "message_applied"

	EventThinkingStart EventType = "thinking_start"
	EventThinkingDelta EventType = "thinking_delta"

	EventToolExecutionStart EventType = "tool_execution_start"
	EventToolExecutionEnd   EventType = "tool_execution_end"
	EventToolOutput         EventType = "tool_output"

	EventStatusUpdate   EventType = "status_update"
	EventTitleGenerated EventType = "title_generated"
	EventUsageUpdate    EventType = "usage_update"
	EventStreamStalled  EventType = "stream_stalled"

	EventContextDiscovered EventType = "context_discovered"
	EventSkillLoaded       EventType = "skill_loaded"

	EventCompactionStart EventType = "compaction_start"
	EventCompactionEnd   EventType = "compaction_end"

	EventRetry   EventType = "retry"
	EventTurnEnd EventType = "turn_end"
	EventError   EventType = "error"

	// EventRepairApplied is not part of the spec's subscriber-facing
	// contract; it is an internal bookkeeping event so a debug sink can
	// see transcript repairs alongside everything else in Recent().
	EventRepairApplied EventType = "transcript_repaired"
)

// Event is one item in a session's event stream, sequenced monotonically
// per session, grounded on runtime_event.go's RuntimeEvent: one flat
// struct carrying every field any event kind might need, left zero when
// not meaningful for Type, plus a generic Meta bag for the rest.
type Event struct {
	Type      EventType
	SessionID string
	Sequence  uint64
	At        time.Time
	RunID     string

	// Text carries deltas, tag content, queued/applied text, and titles,
	// depending on Type.
	Text string

	CallID    string
	ToolName  string
	IsError   bool
	Arguments map[string]any

	Usage TokenUsage

	Model        string
	MessageCount int

	RetryAttempt int
	RetryDelayMS int64
	RetryReason  string

	CompactionBefore int
	CompactionAfter  int
	Overflow         bool

	ElapsedSeconds float64

	Paths []string

	Messages []Message

	Err string
}

// EventSink receives a session's event stream. Implementations must not
// block the emitting goroutine for long; use BackpressureSink to bridge
// to a slow subscriber.
type EventSink interface {
	OnEvent(e Event)
}

// NopSink discards every event.
type NopSink struct{}

func (NopSink) OnEvent(Event) {}

// CallbackSink adapts a plain function to EventSink.
type CallbackSink struct {
	Fn func(Event)
}

func (s CallbackSink) OnEvent(e Event) {
	if s.Fn != nil {
		s.Fn(e)
	}
}

// ChanSink publishes every event onto a channel, dropping if the channel
// is full rather than blocking the emitter.
type ChanSink struct {
	C chan<- Event
}

func (s ChanSink) OnEvent(e Event) {
	select {
	case s.C <- e:
	default:
	}
}

// MultiSink fans one event out to every member sink.
type MultiSink struct {
	Sinks []EventSink
}

func (s MultiSink) OnEvent(e Event) {
	for _, sink := range s.Sinks {
		sink.OnEvent(e)
	}
}

// droppableEventTypes are high-volume, best-effort event types that
// BackpressureSink may discard under load without losing correctness,
// grounded on event_sink.go's isDroppableEvent (model.delta/tool.stdout/
// tool.stderr there; message/thinking deltas and tool output here).
var droppableEventTypes = map[EventType]bool{
	EventMessageDelta:  true,
	EventThinkingDelta: true,
	EventToolOutput:    true,
}

// BackpressureConfig tunes BackpressureSink's two lanes.
type BackpressureConfig struct {
	HighPriCapacity int
	LowPriCapacity  int
}

// DefaultBackpressureConfig mirrors event_sink.go's DefaultBackpressureConfig.
func DefaultBackpressureConfig() BackpressureConfig {
	return BackpressureConfig{HighPriCapacity: 256, LowPriCapacity: 1024}
}

// BackpressureSink routes droppable events (message/thinking deltas, tool
// output chunks) through a bounded low-priority lane and everything else
// through a separate bounded high-priority lane, merging both into a
// single downstream sink on one goroutine. When a lane is full the
// incoming event is dropped and counted in Dropped; this applies to both
// lanes. Grounded on event_sink.go's BackpressureSink two-lane design.
type BackpressureSink struct {
	downstream EventSink
	highPri    chan Event
	lowPri     chan Event
	dropped    int64
	closed     int32
	done       chan struct{}
}

// NewBackpressureSink starts the merge loop and returns the sink. Close
// must be called to stop the goroutine.
func NewBackpressureSink(downstream EventSink, cfg BackpressureConfig) *BackpressureSink {
	s := &BackpressureSink{
		downstream: downstream,
		highPri:    make(chan Event, cfg.HighPriCapacity),
		lowPri:     make(chan Event, cfg.LowPriCapacity),
		done:       make(chan struct{}),
	}
	go s.mergeLoop()
	return s
}

func (s *BackpressureSink) OnEvent(e Event) {
	if atomic.LoadInt32(&s.closed) == 1 {
		return
	}
	if droppableEventTypes[e.Type] {
		select {
		case s.lowPri <- e:
		default:
			atomic.AddInt64(&s.dropped, 1)
		}
		return
	}
	select {
	case s.highPri <- e:
	default:
		atomic.AddInt64(&s.dropped, 1)
	}
}

func (s *BackpressureSink) mergeLoop() {
	for {
		select {
		case e := <-s.highPri:
			s.downstream.OnEvent(e)
		case e := <-s.lowPri:
			s.downstream.OnEvent(e)
		case <-s.done:
			return
		}
	}
}

// Dropped returns the number of events discarded due to a full lane.
func (s *BackpressureSink) Dropped() int64 {
	return atomic.LoadInt64(&s.dropped)
}

// Close stops the merge loop. Further OnEvent calls are no-ops.
func (s *BackpressureSink) Close() {
	if atomic.CompareAndSwapInt32(&s.closed, 0, 1) {
		close(s.done)
	}
}

// EventEmitter sequences and fans out a session's events, holding a
// bounded in-memory debug ring buffer alongside the configured sinks, per
// spec §4.7/§6.
type EventEmitter struct {
	sessionID string
	runID     string
	sink      EventSink
	seq       atomic.Uint64

	mu         sync.Mutex
	ring       []Event
	ringCap    int
	ringCursor int
}

// NewEventEmitter constructs an emitter for one session/run pair.
func NewEventEmitter(sessionID string, sink EventSink, ringCap int) *EventEmitter {
	if sink == nil {
		sink = NopSink{}
	}
	if ringCap <= 0 {
		ringCap = 400
	}
	return &EventEmitter{
		sessionID: sessionID,
		runID:     uuid.NewString(),
		sink:      sink,
		ringCap:   ringCap,
	}
}

func (e *EventEmitter) base(t EventType) Event {
	return Event{
		Type:      t,
		SessionID: e.sessionID,
		RunID:     e.runID,
		Sequence:  e.seq.Add(1),
		At:        time.Now(),
	}
}

// emit records ev into the bounded ring buffer and forwards it to the
// configured sink.
func (e *EventEmitter) emit(ev Event) {
	e.mu.Lock()
	if len(e.ring) < e.ringCap {
		e.ring = append(e.ring, ev)
	} else {
		e.ring[e.ringCursor] = ev
		e.ringCursor = (e.ringCursor + 1) % e.ringCap
	}
	e.mu.Unlock()

	e.sink.OnEvent(ev)
}

// Recent returns up to the last ringCap events recorded for this session,
// oldest first, for debug inspection (spec §4.7).
func (e *EventEmitter) Recent() []Event {
	e.mu.Lock()
	defer e.mu.Unlock()

	if len(e.ring) < e.ringCap {
		out := make([]Event, len(e.ring))
		copy(out, e.ring)
		return out
	}
	out := make([]Event, e.ringCap)
	copy(out, e.ring[e.ringCursor:])
	copy(out[e.ringCap-e.ringCursor:], e.ring[:e.ringCursor])
	return out
}

func (e *EventEmitter) AgentStart() { e.emit(e.base(EventAgentStart)) }

func (e *EventEmitter) AgentEnd(chronological []Message, finalUsage TokenUsage) {
	ev := e.base(EventAgentEnd)
	ev.Messages = chronological
	ev.Usage = finalUsage
	e.emit(ev)
}

func (e *EventEmitter) AgentAbort()     { e.emit(e.base(EventAgentAbort)) }
func (e *EventEmitter) AgentRecovered() { e.emit(e.base(EventAgentRecovered)) }

func (e *EventEmitter) RequestStart(model string, messageCount int) {
	ev := e.base(EventRequestStart)
	ev.Model = model
	ev.MessageCount = messageCount
	e.emit(ev)
}

func (e *EventEmitter) RequestEnd(model string, messageCount int) {
	ev := e.base(EventRequestEnd)
	ev.Model = model
	ev.MessageCount = messageCount
	e.emit(ev)
}

func (e *EventEmitter) MessageStart() { e.emit(e.base(EventMessageStart)) }

func (e *EventEmitter) MessageDelta(delta string) {
	ev := e.base(EventMessageDelta)
	ev.Text = delta
	e.emit(ev)
}

func (e *EventEmitter) MessageQueued(text string) {
	ev := e.base(EventMessageQueued)
	ev.Text = text
	e.emit(ev)
}

func (e *EventEmitter) MessageApplied(text string) {
	ev := e.base(EventMessageApplied)
	ev.Text = text
	e.emit(ev)
}

func (e *EventEmitter) ThinkingStart() { e.emit(e.base(EventThinkingStart)) }

func (e *EventEmitter) ThinkingDelta(delta string) {
	ev := e.base(EventThinkingDelta)
	ev.Text = delta
	e.emit(ev)
}

func (e *EventEmitter) ToolExecutionStart(name, callID string, arguments map[string]any) {
	ev := e.base(EventToolExecutionStart)
	ev.ToolName = name
	ev.CallID = callID
	ev.Arguments = arguments
	e.emit(ev)
}

func (e *EventEmitter) ToolExecutionEnd(name, callID, result string, isError bool) {
	ev := e.base(EventToolExecutionEnd)
	ev.ToolName = name
	ev.CallID = callID
	ev.Text = result
	ev.IsError = isError
	e.emit(ev)
}

func (e *EventEmitter) ToolOutput(name, chunk string) {
	ev := e.base(EventToolOutput)
	ev.ToolName = name
	ev.Text = chunk
	e.emit(ev)
}

func (e *EventEmitter) StatusUpdate(text string) {
	ev := e.base(EventStatusUpdate)
	ev.Text = text
	e.emit(ev)
}

func (e *EventEmitter) TitleGenerated(title string) {
	ev := e.base(EventTitleGenerated)
	ev.Text = title
	e.emit(ev)
}

func (e *EventEmitter) UsageUpdate(usage TokenUsage) {
	ev := e.base(EventUsageUpdate)
	ev.Usage = usage
	e.emit(ev)
}

func (e *EventEmitter) StreamStalled(elapsedSeconds float64) {
	ev := e.base(EventStreamStalled)
	ev.ElapsedSeconds = elapsedSeconds
	e.emit(ev)
}

func (e *EventEmitter) ContextDiscovered(paths []string) {
	ev := e.base(EventContextDiscovered)
	ev.Paths = paths
	e.emit(ev)
}

func (e *EventEmitter) SkillLoaded(name, description string) {
	ev := e.base(EventSkillLoaded)
	ev.ToolName = name
	ev.Text = description
	e.emit(ev)
}

func (e *EventEmitter) CompactionStart(msgCount int, overflow bool) {
	ev := e.base(EventCompactionStart)
	ev.MessageCount = msgCount
	ev.Overflow = overflow
	e.emit(ev)
}

func (e *EventEmitter) CompactionEnd(before, after int) {
	ev := e.base(EventCompactionEnd)
	ev.CompactionBefore = before
	ev.CompactionAfter = after
	e.emit(ev)
}

func (e *EventEmitter) Retry(attempt int, delayMS int64, reason string) {
	ev := e.base(EventRetry)
	ev.RetryAttempt = attempt
	ev.RetryDelayMS = delayMS
	ev.RetryReason = reason
	e.emit(ev)
}

func (e *EventEmitter) TurnEnd(assistantMessage string) {
	ev := e.base(EventTurnEnd)
	ev.Text = assistantMessage
	e.emit(ev)
}

func (e *EventEmitter) Error(reason string) {
	ev := e.base(EventError)
	ev.Err = reason
	e.emit(ev)
}

func (e *EventEmitter) RepairApplied(callID string) {
	ev := e.base(EventRepairApplied)
	ev.CallID = callID
	e.emit(ev)
}

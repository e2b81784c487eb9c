package agent

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/trace"
)

// Agent is the per-session state machine described in spec §4.1. Every
// method is safe to call from any goroutine: mutation only ever happens
// on the agent's own mailbox goroutine, grounded on loop.go's
// AgenticLoop.Run being driven from a single owning goroutine per run,
// generalized here into a persistent per-session mailbox per spec §5
// ("Scheduling model").
type Agent struct {
	state    *State
	provider Provider
	session  Session
	tools    map[string]Tool

	// toolCategories tags a subset of tools with the feature-flagged group
	// they belong to, for the active-tool filter (spec §4.3).
	toolCategories map[string]ToolCategory

	// systemPrompt supplies the system prompt rebuilt at the start of
	// every turn, grounded on runtime.go's SetSystemPrompt collaborator.
	// Nil means no system prompt is prepended.
	systemPrompt SystemPromptBuilder

	emitter  *EventEmitter
	metrics  *Metrics
	runner   *ToolRunner
	steering *SteeringQueue
	tracer   trace.Tracer

	mailbox    chan func()
	cancelTurn context.CancelFunc
	closeOnce  sync.Once
	done       chan struct{}
}

// AgentOptions configures a new Agent beyond its required identity.
type AgentOptions struct {
	Provider     Provider
	Session      Session
	Sink         EventSink
	Metrics      *Metrics
	History      []Message
	WorkingDir   string
	SystemPrompt SystemPromptBuilder
}

// NewAgent constructs an Agent for one session and starts its mailbox
// goroutine. Callers must call Close when the agent is no longer needed.
func NewAgent(sessionID, model string, cfg Config, opts AgentOptions) *Agent {
	state := NewState(sessionID, model, cfg, opts.History)
	state.WorkingDir = opts.WorkingDir
	a := &Agent{
		state:          state,
		provider:       opts.Provider,
		session:        opts.Session,
		tools:          make(map[string]Tool),
		toolCategories: make(map[string]ToolCategory),
		systemPrompt:   opts.SystemPrompt,
		emitter:        NewEventEmitter(sessionID, opts.Sink, cfg.DebugRingBufferSize),
		metrics:        opts.Metrics,
		runner:         NewToolRunner(),
		steering:       NewSteeringQueue(SteerOneAtATime),
		tracer:         otel.Tracer("agentcore/agent"),
		mailbox:        make(chan func(), 16),
		done:           make(chan struct{}),
	}
	go a.loop()
	return a
}

// loop is the agent's single-goroutine mailbox: every exported method
// submits a closure here instead of mutating state directly, which is
// what makes the rest of the machine's bookkeeping lock-free.
func (a *Agent) loop() {
	for {
		select {
		case fn := <-a.mailbox:
			fn()
		case <-a.done:
			return
		}
	}
}

// submit runs fn on the mailbox goroutine and blocks until it returns.
func (a *Agent) submit(fn func()) {
	reply := make(chan struct{})
	a.mailbox <- func() {
		fn()
		close(reply)
	}
	<-reply
}

// Close stops the agent's mailbox goroutine. It does not close the
// Provider or Session; callers own those lifecycles.
func (a *Agent) Close() {
	a.closeOnce.Do(func() { close(a.done) })
}

// RegisterTool adds or replaces an uncategorized tool by name.
func (a *Agent) RegisterTool(t Tool) {
	a.RegisterCategorizedTool(t, CategoryNone)
}

// RegisterCategorizedTool adds or replaces a tool by name, tagging it with
// category so the active-tool filter (spec §4.3) can exclude it when the
// matching feature flag is off.
func (a *Agent) RegisterCategorizedTool(t Tool, category ToolCategory) {
	a.submit(func() {
		a.tools[t.Name()] = t
		if category == CategoryNone {
			delete(a.toolCategories, t.Name())
		} else {
			a.toolCategories[t.Name()] = category
		}
	})
}

// SetToolEnabled toggles whether a registered tool may be dispatched,
// without removing it from the registry (spec §4.3 "active-tool filter").
func (a *Agent) SetToolEnabled(name string, enabled bool) {
	a.submit(func() {
		if enabled {
			delete(a.state.DisabledTools, name)
		} else {
			a.state.DisabledTools[name] = true
		}
	})
}

// SetModel updates the model used for subsequent turns. Takes effect
// immediately; has no effect on a turn already streaming.
func (a *Agent) SetModel(model string) {
	a.submit(func() { a.state.Model = model })
}

// SetProvider swaps the provider used for subsequent turns.
func (a *Agent) SetProvider(p Provider) {
	a.submit(func() { a.provider = p })
}

// SetSystemPrompt installs the collaborator the machine asks to rebuild the
// system prompt at the start of every turn, grounded on runtime.go's
// SetSystemPrompt.
func (a *Agent) SetSystemPrompt(b SystemPromptBuilder) {
	a.submit(func() { a.systemPrompt = b })
}

// Configure merges patch onto the agent's current Config.
func (a *Agent) Configure(patch ConfigPatch) {
	a.submit(func() { a.state.Config = a.state.Config.Merge(patch) })
}

// SyncMessages replaces the agent's in-memory history wholesale, for
// callers that reload a session externally (e.g. after a branch switch).
// It is rejected while a turn is running.
func (a *Agent) SyncMessages(msgs []Message) error {
	var err error
	a.submit(func() {
		if a.state.Status != StatusIdle {
			err = ErrAgentBusy
			return
		}
		a.state.Messages = append([]Message{}, msgs...)
	})
	return err
}

// GetState returns a snapshot of the agent's current state, safe to read
// without racing the mailbox goroutine.
func (a *Agent) GetState() State {
	var snap State
	a.submit(func() { snap = a.state.snapshot() })
	return snap
}

// GetContext returns the exact message list that would be sent to the
// provider: the system prompt (if any) prepended to the Layer-2-repaired
// transcript, per spec §4.1's get_context() contract. This satisfies the
// pairing invariant even when called on its own, with no turn having run
// this session to trigger repair first.
func (a *Agent) GetContext() []Message {
	var out []Message
	a.submit(func() {
		system, msgs, err := a.buildProviderMessages(context.Background(), a.activeToolSchemas())
		if err != nil {
			msgs, _ = ensureToolResults(a.state.Messages)
			system = ""
		}
		if system == "" {
			out = msgs
			return
		}
		out = make([]Message, 0, len(msgs)+1)
		out = append(out, Message{Role: RoleSystem, Content: system})
		out = append(out, msgs...)
	})
	return out
}

// Steer injects text mid-turn per spec §4.1 step 14's drain behavior.
func (a *Agent) Steer(text string) { a.steering.Steer(text) }

// FollowUp queues text to run once the agent returns to idle.
func (a *Agent) FollowUp(text string) { a.steering.FollowUp(text) }

// Abort cancels the currently running turn, if any. The turn ends with
// ErrAgentAborted and the machine returns to StatusIdle.
func (a *Agent) Abort() {
	a.submit(func() {
		if a.cancelTurn != nil {
			a.cancelTurn()
		}
	})
}

// PromptResult is Prompt's reply, mirroring spec §4.1's prompt(text) op
// table reply shape of {queued: bool}. When Queued is true the agent was
// busy and text was appended to pending_messages instead of starting a
// turn immediately; Text and Err are only meaningful when Queued is false,
// since they describe the turn this call itself drove to completion.
type PromptResult struct {
	Queued bool
	Text   string
	Err    error
}

// Prompt appends a user message and runs turns to completion (spec
// §4.1's full state diagram: Init -> Stream -> ExecuteTools -> Continue
// -> Complete, looping on Continue while the model keeps issuing tool
// calls), or, if the agent is already busy, queues text onto
// pending_messages for the running turn to pick up at its next drain
// point instead of starting a second turn concurrently.
func (a *Agent) Prompt(ctx context.Context, text string) PromptResult {
	var (
		turnCtx context.Context
		cancel  context.CancelFunc
		busy    bool
	)

	a.submit(func() {
		if a.state.Status != StatusIdle {
			busy = true
			a.steering.FollowUp(text)
			a.emitter.MessageQueued(text)
			return
		}
		a.state.Status = StatusRunning
		a.state.Messages = append(a.state.Messages, NewUserMessage(text))
		turnCtx, cancel = context.WithCancel(ctx)
		a.cancelTurn = cancel
	})
	if busy {
		return PromptResult{Queued: true}
	}
	defer a.submit(func() { a.cancelTurn = nil })

	spanCtx, span := a.startSpan(turnCtx)
	defer span.End()

	a.submit(func() { a.emitter.AgentStart() })

	finalText, resultErr := a.runTurns(spanCtx)

	a.submit(func() {
		if resultErr != nil {
			if errors.Is(resultErr, context.Canceled) || errors.Is(turnCtx.Err(), context.Canceled) {
				a.emitter.AgentAbort()
				resultErr = fmt.Errorf("%w: %w", ErrAgentAborted, resultErr)
			} else {
				a.emitter.Error(resultErr.Error())
			}
		} else {
			a.emitter.AgentEnd(append([]Message{}, a.state.Messages...), a.state.TokenUsage)
			if a.metrics != nil {
				a.metrics.TurnsTotal.Inc()
			}
		}
		a.state.Status = StatusIdle
		a.state.resetAccumulator()
		if a.state.Config.AutoSaveOnIdle != nil {
			_ = a.state.Config.AutoSaveOnIdle(a.state)
		}
	})

	return PromptResult{Text: finalText, Err: resultErr}
}

func (a *Agent) startSpan(ctx context.Context) (context.Context, trace.Span) {
	if a.tracer == nil {
		return ctx, trace.SpanFromContext(ctx)
	}
	return a.tracer.Start(ctx, "agent.turn")
}

// runTurns drives the Stream -> ExecuteTools -> Continue loop until the
// model stops issuing tool calls and no follow-up messages are pending, or
// an unrecoverable error occurs, per spec §4.1's turn execution algorithm.
func (a *Agent) runTurns(ctx context.Context) (string, error) {
	var lastText string
	var totalToolCalls int

	for {
		if err := ctx.Err(); err != nil {
			return lastText, err
		}

		if err := a.maybeCompactProactively(ctx); err != nil {
			return lastText, err
		}

		a.drainRepairWarnings()

		text, toolCalls, err := a.streamTurn(ctx)
		if err != nil {
			return lastText, err
		}
		lastText = text
		a.submit(func() { a.emitter.TurnEnd(text) })

		if len(toolCalls) == 0 {
			if a.drainFollowUpMessages() {
				continue
			}
			return lastText, nil
		}

		totalToolCalls += len(toolCalls)
		var maxToolCalls int
		a.submit(func() { maxToolCalls = a.state.Config.MaxToolCallsPerTurn })
		if totalToolCalls > maxToolCalls {
			return lastText, fmt.Errorf("%w: %d exceeds limit of %d", ErrTooManyToolCalls, totalToolCalls, maxToolCalls)
		}

		if err := a.executeToolsTurn(ctx, toolCalls); err != nil {
			return lastText, err
		}

		a.drainSteeringBetweenBatches()
	}
}

// maybeCompactProactively runs the proactive-compaction check required at
// the start of every turn by spec §4.1 step 1 / §4.6, emitting matched
// compaction_start/compaction_end events only when a compaction actually
// runs.
func (a *Agent) maybeCompactProactively(ctx context.Context) error {
	var err error
	a.submit(func() {
		if !shouldAutoCompact(a.state) {
			return
		}
		before := len(a.state.Messages)
		a.emitter.CompactionStart(before, false)
		keepTail := proportionalKeepTail(before)
		if _, cerr := MaybeAutoCompact(ctx, a.state, a.session, keepTail); cerr != nil {
			err = cerr
			return
		}
		a.emitter.CompactionEnd(before, len(a.state.Messages))
		if a.metrics != nil {
			a.metrics.observeCompaction(TriggerProactive)
		}
	})
	return err
}

// drainFollowUpMessages appends every queued follow-up message as a user
// message, emitting message_applied for each, per spec §4.1 step 14. It
// reports whether anything was applied, which tells runTurns to run
// another turn instead of finishing.
func (a *Agent) drainFollowUpMessages() bool {
	var applied bool
	a.submit(func() {
		for {
			batch := a.steering.DrainFollowUp()
			if len(batch) == 0 {
				break
			}
			for _, text := range batch {
				a.state.Messages = append(a.state.Messages, NewUserMessage(text))
				a.emitter.MessageApplied(text)
				applied = true
			}
		}
	})
	return applied
}

// drainRepairWarnings runs the two-layer transcript repair over the
// agent's current history before building the next request, per spec
// §4.4, logging any synthesized repairs.
func (a *Agent) drainRepairWarnings() {
	a.submit(func() {
		repaired, warnings := RepairTranscript(a.state.Messages)
		a.state.Messages = repaired
		for _, w := range warnings {
			a.emitter.RepairApplied(w.CallID)
			if a.state.Config.Logger != nil {
				a.state.Config.Logger.Warn("transcript repaired",
					"session_id", a.state.SessionID, "layer", w.Layer, "call_id", w.CallID, "reason", w.Reason)
			}
		}
	})
}

// buildProviderMessages returns the system prompt text (if any) and the
// Layer-2-repaired transcript that together make up one turn's request,
// per spec §4.1 step 3. Rebuilding the system prompt every call matters
// because the active tool set can change between turns. Must be called
// from the mailbox goroutine.
func (a *Agent) buildProviderMessages(ctx context.Context, tools []ToolSchema) (string, []Message, error) {
	msgs, _ := ensureToolResults(a.state.Messages)

	if override, ok := systemPromptFromContext(ctx); ok {
		return override, msgs, nil
	}
	if a.systemPrompt == nil {
		return "", msgs, nil
	}
	system, err := a.systemPrompt.BuildSystemPrompt(a.state.snapshot(), tools)
	if err != nil {
		return "", msgs, err
	}
	return system, msgs, nil
}

// midStreamError wraps a ChunkError payload to distinguish it, per spec
// §4.1 step 9 and §7, from a Provider.Stream() call failure: mid-stream
// errors discard partial output and go straight to idle without retrying,
// while call failures alone are subject to Classify/retry.
type midStreamError struct{ err error }

func (e midStreamError) Error() string { return e.err.Error() }
func (e midStreamError) Unwrap() error { return e.err }

// streamTurn sends one completion request and folds the resulting chunks
// into the accumulator, applying retry/overflow classification on
// failure, per spec §4.2/§4.5.
func (a *Agent) streamTurn(ctx context.Context) (string, []ToolCall, error) {
	var req CompletionRequest
	a.submit(func() {
		a.state.Status = StatusStreaming
		a.state.resetAccumulator()
		toolSchemas := a.activeToolSchemas()
		system, msgs, err := a.buildProviderMessages(ctx, toolSchemas)
		if err != nil {
			system = ""
			msgs = append([]Message{}, a.state.Messages...)
		}
		req = CompletionRequest{
			Model:        a.state.Model,
			SystemPrompt: system,
			Messages:     msgs,
			Tools:        toolSchemas,
		}
	})

	for attempt := 1; ; attempt++ {
		text, toolCalls, err := a.streamOnce(ctx, req)
		if err == nil {
			a.submit(func() { a.state.RetryCount = 0 })

			if a.structuralOverflow() {
				if cerr := a.recoverFromOverflow(ctx, true); cerr != nil {
					return "", nil, fmt.Errorf("overflow compaction failed: %w", cerr)
				}
				return text, nil, nil
			}
			return text, toolCalls, nil
		}
		if ctx.Err() != nil {
			return "", nil, ctx.Err()
		}

		var mse midStreamError
		if errors.As(err, &mse) {
			// Mid-stream failures discard partial output and are never
			// retried; they flow straight back as the turn's error.
			return "", nil, mse.err
		}

		class := Classify(err)
		if class == ClassOverflow {
			if cerr := a.recoverFromOverflow(ctx, true); cerr != nil {
				return "", nil, fmt.Errorf("overflow compaction failed: %w", cerr)
			}
			a.submit(func() {
				req.Messages, _ = ensureToolResults(a.state.Messages)
			})
			continue
		}

		var maxRetries, baseDelayMS, maxDelayMS int
		a.submit(func() {
			maxRetries = a.state.MaxRetries
			baseDelayMS = a.state.RetryBaseDelayMS
			maxDelayMS = a.state.RetryMaxDelayMS
		})

		if class != ClassTransient || attempt > maxRetries {
			if a.metrics != nil {
				a.metrics.observeTurnError(class)
			}
			return "", nil, &ClassifiedError{Class: class, Attempt: attempt, Err: err}
		}

		delay := Delay(attempt, baseDelayMS, maxDelayMS)
		if a.metrics != nil {
			a.metrics.observeRetry(delay.Seconds())
		}
		a.submit(func() {
			a.state.RetryCount++
			a.emitter.Retry(attempt, delay.Milliseconds(), class.String()+": "+err.Error())
		})

		select {
		case <-ctx.Done():
			return "", nil, ctx.Err()
		case <-time.After(delay):
		}
	}
}

// structuralOverflow reports whether the most recent usage update shows
// the request already exceeded the model's context window, per spec
// §4.1 step 12 / §4.5's usage_overflow?.
func (a *Agent) structuralOverflow() bool {
	var overflow bool
	a.submit(func() { overflow = usageOverflow(a.state) })
	return overflow
}

// recoverFromOverflow compacts aggressively (keep ≈20%) per spec §4.6's
// overflow recovery, emitting matched compaction_start/compaction_end
// events.
func (a *Agent) recoverFromOverflow(ctx context.Context, overflow bool) error {
	var err error
	a.submit(func() {
		before := len(a.state.Messages)
		a.emitter.CompactionStart(before, overflow)
		keepTail := proportionalKeepTail(before)
		if cerr := HandleOverflowCompaction(ctx, a.state, a.session, keepTail); cerr != nil {
			err = cerr
			return
		}
		a.emitter.CompactionEnd(before, len(a.state.Messages))
		if a.metrics != nil {
			a.metrics.observeCompaction(TriggerOverflow)
		}
	})
	return err
}

func (a *Agent) streamOnce(ctx context.Context, req CompletionRequest) (string, []ToolCall, error) {
	if a.provider == nil {
		return "", nil, ErrNoProvider
	}

	var watchdog time.Duration
	a.submit(func() {
		watchdog = a.state.Config.StreamWatchdog
		a.state.resetAccumulator()
	})

	a.emitter.RequestStart(req.Model, len(req.Messages))
	chunks, err := a.provider.Stream(ctx, req)
	if err != nil {
		return "", nil, err
	}
	a.emitter.MessageStart()

	tags := &tagExtractor{}
	var acc *streamAccumulator
	a.submit(func() { acc = a.state.acc })

	// The watchdog fires on a fixed tick, comparing against the time of
	// the last received chunk; it never cancels the stream, only notifies
	// subscribers, per spec §5 "Cancellation and timeouts".
	var tick <-chan time.Time
	if watchdog > 0 {
		ticker := time.NewTicker(watchdog / 2)
		defer ticker.Stop()
		tick = ticker.C
	}
	lastChunkAt := time.Now()

loop:
	for {
		select {
		case chunk, ok := <-chunks:
			if !ok {
				break loop
			}
			lastChunkAt = time.Now()
			switch chunk.Kind {
			case ChunkDelta:
				plain, events := tags.Feed(chunk.TextDelta)
				if plain != "" {
					acc.currentText += plain
					a.emitter.MessageDelta(plain)
				}
				for _, ev := range events {
					switch ev.Tag {
					case "status":
						a.emitter.StatusUpdate(ev.Content)
					case "title":
						a.emitter.TitleGenerated(ev.Content)
					}
				}
			case ChunkThinkingDelta:
				if acc.currentThinking == nil {
					empty := ""
					acc.currentThinking = &empty
					a.emitter.ThinkingStart()
				}
				*acc.currentThinking += chunk.TextDelta
				a.emitter.ThinkingDelta(chunk.TextDelta)
			case ChunkToolCallDelta:
				acc.mergeToolCallDelta(chunk)
			case ChunkToolCallDone:
				acc.mergeToolCallDelta(chunk)
			case ChunkUsage:
				a.submit(func() {
					UpdateUsage(a.state, chunk.Usage)
					a.emitter.UsageUpdate(chunk.Usage)
					if a.metrics != nil {
						a.metrics.observeUsage(chunk.Usage)
					}
				})
			case ChunkError:
				return "", nil, midStreamError{err: chunk.Err}
			case ChunkDone:
			}
		case <-tick:
			if stalled := time.Since(lastChunkAt); stalled >= watchdog {
				a.emitter.StreamStalled(stalled.Seconds())
			}
		case <-ctx.Done():
			return "", nil, ctx.Err()
		}
	}

	a.emitter.RequestEnd(req.Model, len(req.Messages))

	text := acc.currentText
	toolCalls := acc.finalizeToolCalls()

	var thinking string
	if acc.currentThinking != nil {
		thinking = *acc.currentThinking
	}

	a.submit(func() {
		a.state.Status = StatusRunning
		msg := Message{Role: RoleAssistant, Content: text, ToolCalls: toolCalls, Thinking: thinking}
		a.state.Messages = append(a.state.Messages, msg)
		if a.session != nil {
			_ = a.session.Append(ctx, msg)
		}
	})

	return text, toolCalls, nil
}

// executeToolsTurn runs every tool call from the latest assistant message
// concurrently and appends their results, per spec §4.3.
func (a *Agent) executeToolsTurn(ctx context.Context, calls []ToolCall) error {
	var tools map[string]Tool
	var blocked map[string]bool
	var callCtx context.Context
	a.submit(func() {
		a.state.Status = StatusExecutingTools
		tools = a.tools
		blocked = a.blockedToolNames()
		for _, c := range calls {
			a.emitter.ToolExecutionStart(c.Name, c.CallID, c.Arguments)
		}
		callCtx = WithToolContext(ctx, ToolContext{
			WorkingDir: a.state.WorkingDir,
			SessionID:  a.state.SessionID,
			Config:     a.state.Config,
			State:      a.state.snapshot(),
			Agent:      a,
			Emit:       func(name, chunk string) { a.emitter.ToolOutput(name, chunk) },
		})
	})

	results := a.runner.ExecuteBatch(callCtx, calls, tools, blocked)

	var resultMsgs []Message
	a.submit(func() {
		for _, r := range results {
			a.emitter.ToolExecutionEnd(r.call.Name, r.call.CallID, r.content, r.isError)
			resultMsgs = append(resultMsgs, NewToolResultMessage(r.call.CallID, r.content, r.isError))
			if r.effect != nil {
				if r.effect.Kind == EffectLoadSkill {
					a.emitter.SkillLoaded(r.effect.Target, r.content)
				}
				if r.effect.Inject != nil {
					resultMsgs = append(resultMsgs, *r.effect.Inject)
				}
			}
		}
		a.state.Messages = append(a.state.Messages, resultMsgs...)
		a.state.Status = StatusRunning
		if a.session != nil {
			_ = a.session.AppendMany(ctx, resultMsgs)
		}
	})

	return nil
}

// drainSteeringBetweenBatches injects any queued steering messages as a
// synthetic user message between tool batches, per spec §4.1 step 14.
func (a *Agent) drainSteeringBetweenBatches() {
	msgs := a.steering.DrainSteering()
	if len(msgs) == 0 {
		return
	}
	a.submit(func() {
		for _, m := range msgs {
			a.state.Messages = append(a.state.Messages, NewUserMessage(m))
		}
	})
}

// blockedToolNames merges the disabled-names list with every tool whose
// ToolCategory is currently excluded by a feature flag, per spec §4.3's
// active-tool filter. Must be called from the mailbox goroutine.
func (a *Agent) blockedToolNames() map[string]bool {
	blocked := make(map[string]bool, len(a.state.DisabledTools))
	for name := range a.state.DisabledTools {
		blocked[name] = true
	}
	for name, cat := range a.toolCategories {
		if featureFlagExcludes(cat, a.state.Config) {
			blocked[name] = true
		}
	}
	return blocked
}

// featureFlagExcludes reports whether cfg's feature flags exclude a tool
// tagged with cat, per spec §4.3: sub_agents disabled excludes the
// sub-agent tool, mcp disabled excludes MCP-sourced tools, debug disabled
// excludes the debug tool, and skills disabled or unavailable excludes the
// skill-loading tool.
func featureFlagExcludes(cat ToolCategory, cfg Config) bool {
	switch cat {
	case CategorySubAgent:
		return !cfg.SubAgentsEnabled
	case CategoryMCP:
		return !cfg.MCPEnabled
	case CategoryDebug:
		return !cfg.DebugToolsEnabled
	case CategorySkillLoad:
		return !cfg.SkillsEnabled || cfg.AvailableSkills <= 0
	default:
		return false
	}
}

// activeToolSchemas returns the provider-facing schema for every
// registered tool the active-tool filter (spec §4.3) does not reject.
// Must be called from the mailbox goroutine.
func (a *Agent) activeToolSchemas() []ToolSchema {
	blocked := a.blockedToolNames()
	out := make([]ToolSchema, 0, len(a.tools))
	for name, t := range a.tools {
		if blocked[name] {
			continue
		}
		out = append(out, ToolSchema{Name: t.Name(), Description: t.Description(), Parameters: t.Parameters()})
	}
	return out
}

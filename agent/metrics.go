package agent

import "github.com/prometheus/client_golang/prometheus"

// Metrics bundles the Prometheus collectors the machine updates during a
// turn, grounded on executor.go's ExecutorMetrics counters
// (TotalExecutions/TotalRetries/TotalFailures/TotalTimeouts/TotalPanics)
// and failover.go's FailoverMetrics, re-expressed as real collectors
// rather than the teacher's plain int64 fields. The tool counters
// (ToolExecutionsTotal, ToolFailuresTotal, ToolCrashesTotal) are
// registered but not updated by the machine; ToolRunner.Metrics reports
// those counts instead.
type Metrics struct {
	TurnsTotal          prometheus.Counter
	TurnErrorsTotal     *prometheus.CounterVec
	RetriesTotal        prometheus.Counter
	RetryDelaySeconds   prometheus.Histogram
	ToolExecutionsTotal prometheus.Counter
	ToolFailuresTotal   prometheus.Counter
	ToolCrashesTotal    prometheus.Counter
	CompactionsTotal    *prometheus.CounterVec
	PromptTokens        prometheus.Histogram
	CompletionTokens    prometheus.Histogram
}

// NewMetrics constructs and registers a fresh Metrics bundle against reg.
// Pass prometheus.NewRegistry() in tests to avoid collisions with the
// default global registry.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		TurnsTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "agentcore_turns_total",
			Help: "Total number of agent turns completed.",
		}),
		TurnErrorsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "agentcore_turn_errors_total",
			Help: "Total number of agent turns that ended in error, by class.",
		}, []string{"class"}),
		RetriesTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "agentcore_retries_total",
			Help: "Total number of provider call retries attempted.",
		}),
		RetryDelaySeconds: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "agentcore_retry_delay_seconds",
			Help:    "Backoff delay applied before a retry.",
			Buckets: prometheus.ExponentialBuckets(0.25, 2, 8),
		}),
		ToolExecutionsTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "agentcore_tool_executions_total",
			Help: "Total number of tool calls executed.",
		}),
		ToolFailuresTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "agentcore_tool_failures_total",
			Help: "Total number of tool calls that returned an error result.",
		}),
		ToolCrashesTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "agentcore_tool_crashes_total",
			Help: "Total number of tool calls that panicked.",
		}),
		CompactionsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "agentcore_compactions_total",
			Help: "Total number of context compactions performed, by trigger.",
		}, []string{"trigger"}),
		PromptTokens: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "agentcore_prompt_tokens",
			Help:    "Prompt token count reported per turn.",
			Buckets: prometheus.ExponentialBuckets(256, 2, 10),
		}),
		CompletionTokens: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "agentcore_completion_tokens",
			Help:    "Completion token count reported per turn.",
			Buckets: prometheus.ExponentialBuckets(64, 2, 10),
		}),
	}

	if reg != nil {
		reg.MustRegister(
			m.TurnsTotal, m.TurnErrorsTotal, m.RetriesTotal, m.RetryDelaySeconds,
			m.ToolExecutionsTotal, m.ToolFailuresTotal, m.ToolCrashesTotal,
			m.CompactionsTotal, m.PromptTokens, m.CompletionTokens,
		)
	}

	return m
}

// observeRetry records one retry attempt and its computed backoff delay.
func (m *Metrics) observeRetry(delaySeconds float64) {
	if m == nil {
		return
	}
	m.RetriesTotal.Inc()
	m.RetryDelaySeconds.Observe(delaySeconds)
}

func (m *Metrics) observeTurnError(class ErrorClass) {
	if m == nil {
		return
	}
	m.TurnErrorsTotal.WithLabelValues(class.String()).Inc()
}

func (m *Metrics) observeCompaction(trigger CompactionTrigger) {
	if m == nil {
		return
	}
	label := "proactive"
	if trigger == TriggerOverflow {
		label = "overflow"
	}
	m.CompactionsTotal.WithLabelValues(label).Inc()
}

func (m *Metrics) observeUsage(usage TokenUsage) {
	if m == nil {
		return
	}
	m.PromptTokens.Observe(float64(usage.PromptTokens))
	m.CompletionTokens.Observe(float64(usage.CompletionTokens))
}

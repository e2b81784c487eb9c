package agent

import (
	"log/slog"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// Config holds the tunables the machine consults each turn, following
// options.go's DefaultRuntimeOptions/mergeRuntimeOptions pattern: a zero
// value in a ConfigPatch means "leave the current setting alone".
type Config struct {
	Logger *slog.Logger

	MaxRetries       int
	RetryBaseDelayMS int
	RetryMaxDelayMS  int

	// MaxToolCallsPerTurn bounds the total number of tool calls across all
	// tool batches run by one Prompt call; exceeding it ends that Prompt
	// with ErrTooManyToolCalls.
	MaxToolCallsPerTurn int

	// StreamWatchdog is how long the machine waits between chunks before
	// treating a stream as stalled, per spec §4.2 edge cases.
	StreamWatchdog time.Duration

	// ProactiveCompactionThreshold is the fraction of ContextWindow at
	// which usage.go triggers a proactive compaction, per spec §4.6.
	ProactiveCompactionThreshold float64

	// DebugRingBufferSize is the bounded per-session event history size,
	// per spec §4.7.
	DebugRingBufferSize int

	// SubAgentsEnabled, MCPEnabled, DebugToolsEnabled, and SkillsEnabled
	// gate the matching ToolCategory out of the active-tool filter when
	// false, per spec §4.3. AvailableSkills additionally hides the
	// skill-loading tool when no skills have been discovered.
	SubAgentsEnabled  bool
	MCPEnabled        bool
	DebugToolsEnabled bool
	SkillsEnabled     bool
	AvailableSkills   int

	// AutoSaveOnIdle, if set, is invoked when the machine returns to
	// StatusIdle at the end of a turn (spec §9 Open Question decision).
	AutoSaveOnIdle func(state *State) error
}

// DefaultConfig returns the baseline configuration, mirroring
// options.go's DefaultRuntimeOptions.
func DefaultConfig() Config {
	return Config{
		Logger:                       slog.Default(),
		MaxRetries:                   3,
		RetryBaseDelayMS:             2000,
		RetryMaxDelayMS:              60000,
		MaxToolCallsPerTurn:          100,
		StreamWatchdog:               10 * time.Second,
		ProactiveCompactionThreshold: 0.80,
		DebugRingBufferSize:          400,
		SubAgentsEnabled:             true,
		MCPEnabled:                   true,
		DebugToolsEnabled:            true,
		SkillsEnabled:                true,
	}
}

// ConfigPatch carries optional overrides; a nil/zero field leaves the
// current Config value unchanged, following mergeRuntimeOptions.
type ConfigPatch struct {
	Logger                       *slog.Logger
	MaxRetries                   *int
	RetryBaseDelayMS             *int
	RetryMaxDelayMS              *int
	MaxToolCallsPerTurn          *int
	StreamWatchdog               *time.Duration
	ProactiveCompactionThreshold *float64
	DebugRingBufferSize          *int
	SubAgentsEnabled             *bool
	MCPEnabled                   *bool
	DebugToolsEnabled            *bool
	SkillsEnabled                *bool
	AvailableSkills              *int
	AutoSaveOnIdle               func(state *State) error
}

// Merge applies patch over c, returning a new Config, per the
// override-if-set pattern in options.go's mergeRuntimeOptions.
func (c Config) Merge(patch ConfigPatch) Config {
	out := c
	if patch.Logger != nil {
		out.Logger = patch.Logger
	}
	if patch.MaxRetries != nil {
		out.MaxRetries = *patch.MaxRetries
	}
	if patch.RetryBaseDelayMS != nil {
		out.RetryBaseDelayMS = *patch.RetryBaseDelayMS
	}
	if patch.RetryMaxDelayMS != nil {
		out.RetryMaxDelayMS = *patch.RetryMaxDelayMS
	}
	if patch.MaxToolCallsPerTurn != nil {
		out.MaxToolCallsPerTurn = *patch.MaxToolCallsPerTurn
	}
	if patch.StreamWatchdog != nil {
		out.StreamWatchdog = *patch.StreamWatchdog
	}
	if patch.ProactiveCompactionThreshold != nil {
		out.ProactiveCompactionThreshold = *patch.ProactiveCompactionThreshold
	}
	if patch.DebugRingBufferSize != nil {
		out.DebugRingBufferSize = *patch.DebugRingBufferSize
	}
	if patch.SubAgentsEnabled != nil {
		out.SubAgentsEnabled = *patch.SubAgentsEnabled
	}
	if patch.MCPEnabled != nil {
		out.MCPEnabled = *patch.MCPEnabled
	}
	if patch.DebugToolsEnabled != nil {
		out.DebugToolsEnabled = *patch.DebugToolsEnabled
	}
	if patch.SkillsEnabled != nil {
		out.SkillsEnabled = *patch.SkillsEnabled
	}
	if patch.AvailableSkills != nil {
		out.AvailableSkills = *patch.AvailableSkills
	}
	if patch.AutoSaveOnIdle != nil {
		out.AutoSaveOnIdle = patch.AutoSaveOnIdle
	}
	return out
}

// configFile is the on-disk YAML shape LoadConfigFile decodes into before
// applying it as a ConfigPatch. Only the serializable knobs are exposed;
// Logger and AutoSaveOnIdle are code-only.
type configFile struct {
	MaxRetries                   *int     `yaml:"max_retries"`
	RetryBaseDelayMS             *int     `yaml:"retry_base_delay_ms"`
	RetryMaxDelayMS              *int     `yaml:"retry_max_delay_ms"`
	MaxToolCallsPerTurn          *int     `yaml:"max_tool_calls_per_turn"`
	StreamWatchdogSeconds        *int     `yaml:"stream_watchdog_seconds"`
	ProactiveCompactionThreshold *float64 `yaml:"proactive_compaction_threshold"`
	DebugRingBufferSize          *int     `yaml:"debug_ring_buffer_size"`
	SubAgentsEnabled             *bool    `yaml:"sub_agents_enabled"`
	MCPEnabled                   *bool    `yaml:"mcp_enabled"`
	DebugToolsEnabled            *bool    `yaml:"debug_tools_enabled"`
	SkillsEnabled                *bool    `yaml:"skills_enabled"`
	AvailableSkills              *int     `yaml:"available_skills"`
}

// LoadConfigFile reads retry/watchdog/compaction knobs from a YAML file
// and returns a ConfigPatch ready to Merge onto a base Config.
func LoadConfigFile(path string) (ConfigPatch, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return ConfigPatch{}, err
	}
	var cf configFile
	if err := yaml.Unmarshal(raw, &cf); err != nil {
		return ConfigPatch{}, err
	}
	patch := ConfigPatch{
		MaxRetries:                   cf.MaxRetries,
		RetryBaseDelayMS:             cf.RetryBaseDelayMS,
		RetryMaxDelayMS:              cf.RetryMaxDelayMS,
		MaxToolCallsPerTurn:          cf.MaxToolCallsPerTurn,
		ProactiveCompactionThreshold: cf.ProactiveCompactionThreshold,
		DebugRingBufferSize:          cf.DebugRingBufferSize,
		SubAgentsEnabled:             cf.SubAgentsEnabled,
		MCPEnabled:                   cf.MCPEnabled,
		DebugToolsEnabled:            cf.DebugToolsEnabled,
		SkillsEnabled:                cf.SkillsEnabled,
		AvailableSkills:              cf.AvailableSkills,
	}
	if cf.StreamWatchdogSeconds != nil {
		d := time.Duration(*cf.StreamWatchdogSeconds) * time.Second
		patch.StreamWatchdog = &d
	}
	return patch, nil
}

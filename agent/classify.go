package agent

import (
	"math"
	"strings"
	"time"
)

// overflowPatterns match provider errors indicating the request exceeded
// the model's context window, per spec §4.5. Checked before permanent and
// transient patterns, since an overflow message can otherwise also match
// a generic "invalid request" pattern.
var overflowPatterns = []string{
	"context length",
	"context_length_exceeded",
	"maximum context length",
	"max_tokens",
	"max_prompt_tokens",
	"too many tokens",
	"prompt is too long",
	"prompt_tokens_exceeded",
	"request too large",
	"context window",
	"token limit",
	"exceeds the limit",
	"input is too long",
	"input too long",
	"exceeds the model's maximum context",
	"exceeds the model's maximum",
	"reduce the length",
	"maximum number of tokens",
	"content_too_large",
	"string_above_max_length",
}

// permanentPatterns match errors that a retry cannot fix, per
// failover.go's classifyProviderError ordering (permanent checked before
// transient so e.g. "invalid_api_key" never misclassifies as transient).
var permanentPatterns = []string{
	"invalid_api_key",
	"invalid api key",
	"unauthorized",
	"authentication",
	"forbidden",
	"permission denied",
	"billing",
	"insufficient quota",
	"invalid request",
	"model not found",
	"does not exist",
	"unsupported",
	"content policy",
	"content filter",
}

// transientPatterns match errors worth retrying with backoff.
var transientPatterns = []string{
	"timeout",
	"timed out",
	"request timeout",
	"rate limit",
	"rate_limit",
	"too many requests",
	"overloaded",
	"server error",
	"server_error",
	"service unavailable",
	"bad gateway",
	"gateway timeout",
	"connection reset",
	"connection refused",
	"econnreset",
	"econnrefused",
	"etimedout",
	"connection",
	"fetch failed",
	"socket hang up",
	"eof",
	"temporarily unavailable",
	"429",
	"500",
	"502",
	"503",
	"504",
}

// Classify inspects err's message and returns its ErrorClass, grounded on
// classifyProviderError in failover.go: overflow is checked first since
// it requires compaction rather than a retry decision at all, then
// permanent (so auth/billing errors never retry), then transient; anything
// unmatched is ClassUnknown and treated as non-retryable by callers.
func Classify(err error) ErrorClass {
	if err == nil {
		return ClassUnknown
	}
	msg := strings.ToLower(err.Error())

	for _, p := range overflowPatterns {
		if strings.Contains(msg, p) {
			return ClassOverflow
		}
	}
	for _, p := range permanentPatterns {
		if strings.Contains(msg, p) {
			return ClassPermanent
		}
	}
	for _, p := range transientPatterns {
		if strings.Contains(msg, p) {
			return ClassTransient
		}
	}
	return ClassUnknown
}

// Delay computes the exponential backoff wait before retry attempt n
// (1-indexed), per spec §4.5: delay(attempt) = min(base * 2^(attempt-1), max).
func Delay(attempt, baseMS, maxMS int) time.Duration {
	if attempt < 1 {
		attempt = 1
	}
	scaled := float64(baseMS) * math.Pow(2, float64(attempt-1))
	if scaled > float64(maxMS) {
		scaled = float64(maxMS)
	}
	return time.Duration(scaled) * time.Millisecond
}

// Package parse turns source-specific raw records into the normalized
// ParsedLine shape shared by every watcher and the backfiller. The helpers
// here are factored out of the four per-source parsers: no panics, "no
// record" is a nil return, never an error a caller must handle specially.
package parse

import (
	"strconv"
	"strings"
	"time"
)

// ParsedLine is the normalized output of every per-source parser.
type ParsedLine struct {
	Role           string
	Content        string
	Timestamp      *time.Time
	SessionID      string
	ProjectContext string
	Metadata       map[string]interface{}
}

const maxExtractDepth = 6

// ExtractText pulls a display string out of a content shape that may be a
// plain string, an ordered list of fragments, or a nested object carrying
// one of the recognized keys. Depth-bounded to avoid stack blow-up on
// adversarial or cyclic-looking input.
func ExtractText(v interface{}) (string, bool) {
	return extractTextDepth(v, 0)
}

func extractTextDepth(v interface{}, depth int) (string, bool) {
	if depth > maxExtractDepth {
		return "", false
	}
	switch val := v.(type) {
	case string:
		return val, true
	case []interface{}:
		var parts []string
		for _, item := range val {
			if s, ok := extractTextDepth(item, depth+1); ok && s != "" {
				parts = append(parts, s)
			}
		}
		if len(parts) == 0 {
			return "", false
		}
		return strings.Join(parts, ""), true
	case map[string]interface{}:
		for _, key := range []string{"content", "text", "message", "delta", "completion", "prompt"} {
			if nested, ok := val[key]; ok {
				if s, ok := extractTextDepth(nested, depth+1); ok && s != "" {
					return s, true
				}
			}
		}
		return "", false
	default:
		return "", false
	}
}

// ParseTimestampValue accepts either an RFC3339 string or a numeric epoch
// value (seconds, or milliseconds when greater than 10^10).
func ParseTimestampValue(v interface{}) (time.Time, bool) {
	switch val := v.(type) {
	case string:
		return parseTimestampString(val)
	case float64:
		return parseTimestampNumber(val)
	case int64:
		return parseTimestampNumber(float64(val))
	default:
		return time.Time{}, false
	}
}

func parseTimestampString(s string) (time.Time, bool) {
	if t, err := time.Parse(time.RFC3339, s); err == nil {
		return t.UTC(), true
	}
	if n, err := strconv.ParseFloat(s, 64); err == nil {
		return parseTimestampNumber(n)
	}
	return time.Time{}, false
}

func parseTimestampNumber(n float64) (time.Time, bool) {
	if n <= 0 {
		return time.Time{}, false
	}
	if n > 10_000_000_000 {
		ms := int64(n)
		return time.UnixMilli(ms).UTC(), true
	}
	secs := int64(n)
	return time.Unix(secs, 0).UTC(), true
}

// usage/metric alias tables, shared by every per-source parser.
var usageAliases = map[string]string{
	"total": "usage_total_tokens", "total_tokens": "usage_total_tokens", "totalTokens": "usage_total_tokens",
	"prompt": "usage_prompt_tokens", "prompt_tokens": "usage_prompt_tokens", "promptTokens": "usage_prompt_tokens", "input": "usage_prompt_tokens", "input_tokens": "usage_prompt_tokens",
	"completion": "usage_completion_tokens", "completion_tokens": "usage_completion_tokens", "completionTokens": "usage_completion_tokens", "output": "usage_completion_tokens", "output_tokens": "usage_completion_tokens",
	"cache_read_input_tokens": "usage_cached_input_tokens", "cached_tokens": "usage_cached_input_tokens",
	"cache_creation_input_tokens": "usage_cache_creation_tokens",
}

var metricAliases = map[string]string{
	"latency": "latency_ms", "latencyMs": "latency_ms", "latency_ms": "latency_ms",
	"duration": "duration_ms", "durationMs": "duration_ms", "duration_ms": "duration_ms",
	"wallTime": "wall_time_ms", "wall_time_ms": "wall_time_ms", "wallTimeMs": "wall_time_ms",
}

// AppendUsage flattens a usage/token-count object into canonical metadata keys.
func AppendUsage(meta map[string]interface{}, v interface{}) {
	appendAliased(meta, v, usageAliases)
}

// AppendMetrics flattens a latency/duration object into canonical metadata keys.
func AppendMetrics(meta map[string]interface{}, v interface{}) {
	appendAliased(meta, v, metricAliases)
}

func appendAliased(meta map[string]interface{}, v interface{}, aliases map[string]string) {
	obj, ok := v.(map[string]interface{})
	if !ok {
		return
	}
	for k, val := range obj {
		if canonical, ok := aliases[k]; ok {
			InsertScalar(meta, canonical, val)
		}
	}
}

// InsertScalar copies string/number/bool values into metadata, silently
// dropping anything else (arrays/objects never belong in the flat bag).
func InsertScalar(meta map[string]interface{}, key string, v interface{}) {
	switch v.(type) {
	case string, float64, int, int64, bool:
		meta[key] = v
	}
}

// LooksLikePath mirrors the Claude parser's cwd heuristic: an absolute path
// of plausible length, not just a leading slash.
func LooksLikePath(s string) bool {
	return strings.HasPrefix(s, "/") && len(s) > 4
}

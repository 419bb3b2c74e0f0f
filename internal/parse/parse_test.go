package parse

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestExtractTextFromPlainString(t *testing.T) {
	s, ok := ExtractText("hello")
	assert.True(t, ok)
	assert.Equal(t, "hello", s)
}

func TestExtractTextFromFragmentList(t *testing.T) {
	s, ok := ExtractText([]interface{}{
		map[string]interface{}{"text": "hello "},
		map[string]interface{}{"text": "world"},
	})
	assert.True(t, ok)
	assert.Equal(t, "hello world", s)
}

func TestExtractTextKeyPrecedence(t *testing.T) {
	s, ok := ExtractText(map[string]interface{}{"text": "wrong", "content": "right"})
	assert.True(t, ok)
	assert.Equal(t, "right", s)
}

func TestExtractTextDepthBound(t *testing.T) {
	var v interface{} = "bottom"
	for i := 0; i < maxExtractDepth+5; i++ {
		v = map[string]interface{}{"content": v}
	}
	_, ok := ExtractText(v)
	assert.False(t, ok)
}

func TestParseTimestampValueSeconds(t *testing.T) {
	ts, ok := ParseTimestampValue(float64(1700000000))
	assert.True(t, ok)
	assert.Equal(t, int64(1700000000), ts.Unix())
}

func TestParseTimestampValueMilliseconds(t *testing.T) {
	ts, ok := ParseTimestampValue(float64(1700000000000))
	assert.True(t, ok)
	assert.Equal(t, int64(1700000000), ts.Unix())
}

func TestParseTimestampValueRFC3339String(t *testing.T) {
	ts, ok := ParseTimestampValue("2026-01-01T00:00:00Z")
	assert.True(t, ok)
	assert.Equal(t, 2026, ts.Year())
}

func TestAppendUsageFlattensAliases(t *testing.T) {
	meta := map[string]interface{}{}
	AppendUsage(meta, map[string]interface{}{"input_tokens": float64(12), "output_tokens": float64(34)})
	assert.Equal(t, float64(12), meta["usage_prompt_tokens"])
	assert.Equal(t, float64(34), meta["usage_completion_tokens"])
}

func TestAppendMetricsFlattensAliases(t *testing.T) {
	meta := map[string]interface{}{}
	AppendMetrics(meta, map[string]interface{}{"durationMs": float64(99)})
	assert.Equal(t, float64(99), meta["duration_ms"])
}

func TestInsertScalarDropsNonScalars(t *testing.T) {
	meta := map[string]interface{}{}
	InsertScalar(meta, "k", []interface{}{1, 2})
	_, present := meta["k"]
	assert.False(t, present)
}

func TestLooksLikePath(t *testing.T) {
	assert.True(t, LooksLikePath("/Users/dev/project"))
	assert.False(t, LooksLikePath("relative/path"))
	assert.False(t, LooksLikePath("/a"))
}

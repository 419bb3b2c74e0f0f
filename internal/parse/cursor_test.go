package parse

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseCursorValueFlatMessageList(t *testing.T) {
	doc := []interface{}{
		map[string]interface{}{"role": "user", "content": "hi"},
		map[string]interface{}{"role": "assistant", "content": "hello there"},
	}
	messages := ParseCursorValue(doc)
	require.Len(t, messages, 2)
	assert.Equal(t, "user", messages[0].Role)
	assert.Equal(t, "hello there", messages[1].Content)
}

func TestParseCursorValueNestedMessagesKey(t *testing.T) {
	doc := map[string]interface{}{
		"messages": []interface{}{
			map[string]interface{}{"role": "user", "content": "nested hi"},
		},
	}
	messages := ParseCursorValue(doc)
	require.Len(t, messages, 1)
	assert.Equal(t, "nested hi", messages[0].Content)
}

func TestParseCursorValueContentFragmentList(t *testing.T) {
	doc := map[string]interface{}{
		"role": "assistant",
		"content": []interface{}{
			map[string]interface{}{"text": "part one "},
			map[string]interface{}{"text": "part two"},
		},
	}
	messages := ParseCursorValue(doc)
	require.Len(t, messages, 1)
	assert.Equal(t, "part one part two", messages[0].Content)
}

func TestParseCursorValueTrimsLongContent(t *testing.T) {
	long := make([]byte, maxCursorContentChars+500)
	for i := range long {
		long[i] = 'a'
	}
	doc := map[string]interface{}{"role": "user", "content": string(long)}
	messages := ParseCursorValue(doc)
	require.Len(t, messages, 1)
	assert.Len(t, []rune(messages[0].Content), maxCursorContentChars)
}

func TestExtractCursorMetadataFlattensUsageAndToolCalls(t *testing.T) {
	doc := map[string]interface{}{
		"role":    "assistant",
		"content": "done",
		"usage":   map[string]interface{}{"input_tokens": float64(3)},
		"toolCalls": []interface{}{
			map[string]interface{}{"name": "search"},
		},
	}
	messages := ParseCursorValue(doc)
	require.Len(t, messages, 1)
	assert.Equal(t, float64(3), messages[0].Metadata["usage_prompt_tokens"])
	assert.Equal(t, 1, messages[0].Metadata["tool_call_count"])
	assert.Equal(t, "search", messages[0].Metadata["tool_call_first_name"])
}

func TestTimestampFromMetadataPriorityOrder(t *testing.T) {
	meta := map[string]interface{}{"createdAt": float64(1700000000), "updatedAt": float64(1800000000)}
	ts, ok := TimestampFromMetadata(meta)
	assert.True(t, ok)
	assert.Equal(t, int64(1700000000), ts.Unix())
}

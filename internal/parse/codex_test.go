package parse

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestIsCodexSessionHeader(t *testing.T) {
	header := map[string]interface{}{"id": "abc", "timestamp": "2026-01-01T00:00:00Z"}
	assert.True(t, IsCodexSessionHeader(header))

	event := map[string]interface{}{"id": "abc", "timestamp": "2026-01-01T00:00:00Z", "role": "user"}
	assert.False(t, IsCodexSessionHeader(event))

	missingID := map[string]interface{}{"timestamp": "2026-01-01T00:00:00Z"}
	assert.False(t, IsCodexSessionHeader(missingID))
}

func TestParseCodexLineExtractsProjectAndContent(t *testing.T) {
	raw := `{"payload":{"cwd":"/Users/dev/project","message":{"role":"assistant","content":"hi there"}},"timestamp":"2026-01-01T00:00:00Z"}`
	parsed := ParseCodexLine(raw)
	require.NotNil(t, parsed)
	assert.Equal(t, "/Users/dev/project", parsed.ProjectContext)
	assert.Equal(t, "assistant", parsed.Role)
	assert.Equal(t, "hi there", parsed.Content)
	require.NotNil(t, parsed.Timestamp)
	assert.Equal(t, 2026, parsed.Timestamp.Year())
}

func TestParseCodexLineUsageFlattening(t *testing.T) {
	raw := `{"payload":{"cwd":"/p","usage":{"input_tokens":5,"output_tokens":7},"message":{"role":"assistant","content":"ok"}}}`
	parsed := ParseCodexLine(raw)
	require.NotNil(t, parsed)
	assert.Equal(t, float64(5), parsed.Metadata["usage_prompt_tokens"])
	assert.Equal(t, float64(7), parsed.Metadata["usage_completion_tokens"])
}

func TestParseCodexLineReturnsNilForEmptyContent(t *testing.T) {
	raw := `{"payload":{"message":{"role":"assistant","content":""}}}`
	assert.Nil(t, ParseCodexLine(raw))
}

func TestParseCodexLineReturnsNilForMalformedJSON(t *testing.T) {
	assert.Nil(t, ParseCodexLine("not json at all"))
}

func TestParseCodexLineDefaultsRole(t *testing.T) {
	raw := `{"content":"just text, no role anywhere"}`
	parsed := ParseCodexLine(raw)
	require.NotNil(t, parsed)
	assert.Equal(t, "assistant", parsed.Role)
}

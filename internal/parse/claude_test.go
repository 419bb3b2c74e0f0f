package parse

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseClaudeLineBasic(t *testing.T) {
	raw := `{"conversation_id":"conv-1","cwd":"/Users/dev/project","role":"user","content":"hello"}`
	parsed := ParseClaudeLine(raw)
	require.NotNil(t, parsed)
	assert.Equal(t, "conv-1", parsed.SessionID)
	assert.Equal(t, "/Users/dev/project", parsed.ProjectContext)
	assert.Equal(t, "user", parsed.Role)
	assert.Equal(t, "hello", parsed.Content)
}

func TestParseClaudeLineCwdFallbackScansToolUseArguments(t *testing.T) {
	raw := `{"content":"did something","tool_use":{"arguments":"{\"path\":\"/Users/dev/other\"}"}}`
	parsed := ParseClaudeLine(raw)
	require.NotNil(t, parsed)
	assert.Equal(t, "/Users/dev/other", parsed.ProjectContext)
}

func TestParseClaudeLineNilOnEmptyContent(t *testing.T) {
	assert.Nil(t, ParseClaudeLine(`{"conversation_id":"c","content":""}`))
}

func TestParseClaudeSessionLineCapturesGitBranch(t *testing.T) {
	raw := `{"conversation_id":"c","content":"hi","git_branch":"feature/x"}`
	parsed := ParseClaudeSessionLine(raw)
	require.NotNil(t, parsed)
	assert.Equal(t, "feature/x", parsed.Metadata["git_branch"])
}

package parse

import (
	"encoding/json"
	"strings"
)

var claudeCwdKeys = []string{"cwd", "working_dir", "workdir", "project_root", "path", "root"}

// ParseClaudeLine parses one line of the global ~/.claude/history.jsonl.
func ParseClaudeLine(raw string) *ParsedLine {
	var doc map[string]interface{}
	if err := json.Unmarshal([]byte(raw), &doc); err != nil {
		return nil
	}

	sessionID, _ := asString(doc["conversation_id"], true)
	if sessionID == "" {
		sessionID, _ = asString(doc["conversationId"], true)
	}

	projectContext := extractClaudeCwd(doc)

	role := "user_or_assistant"
	if v, ok := asString(doc["role"], true); ok {
		role = v
	}

	var contentValue interface{}
	var found bool
	if v, ok := doc["content"]; ok {
		contentValue, found = v, true
	} else if v, ok := pointerString(doc, "message", "content"); ok {
		contentValue, found = v, true
	} else if v, ok := pointerString(doc, "payload", "content"); ok {
		contentValue, found = v, true
	}

	content := ""
	if found {
		content, _ = ExtractText(contentValue)
	}
	if strings.TrimSpace(content) == "" {
		return nil
	}

	return &ParsedLine{
		Role:           role,
		Content:        content,
		SessionID:      sessionID,
		ProjectContext: projectContext,
		Metadata:       map[string]interface{}{},
	}
}

// ParseClaudeSessionLine parses one line of a per-project
// ~/.claude/projects/<hash>/<session>.jsonl file. Adapted from the shape
// inferred via tools/memex/src/readers/claude.rs: same content/role
// extraction as the global parser, plus a git_branch metadata capture, and
// role may be "tool_result".
func ParseClaudeSessionLine(raw string) *ParsedLine {
	line := ParseClaudeLine(raw)
	if line == nil {
		return nil
	}
	var doc map[string]interface{}
	if err := json.Unmarshal([]byte(raw), &doc); err == nil {
		if branch, ok := asString(doc["git_branch"], true); ok {
			line.Metadata["git_branch"] = branch
		}
		if v, ok := doc["timestamp"]; ok {
			if t, ok := ParseTimestampValue(v); ok {
				tCopy := t
				line.Timestamp = &tCopy
			}
		}
	}
	return line
}

func extractClaudeCwd(doc map[string]interface{}) string {
	for _, key := range claudeCwdKeys {
		if v, ok := asString(doc[key], true); ok && LooksLikePath(v) {
			return v
		}
	}
	// Fallback: scan tool_use.arguments for a "/Users/" substring.
	if toolUse, ok := doc["tool_use"].(map[string]interface{}); ok {
		if args, ok := asString(toolUse["arguments"], true); ok {
			if idx := strings.Index(args, "/Users/"); idx >= 0 {
				rest := args[idx:]
				if end := strings.IndexByte(rest, '"'); end >= 0 {
					return rest[:end]
				}
				return rest
			}
		}
	}
	return ""
}

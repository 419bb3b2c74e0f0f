package parse

import (
	"encoding/json"
	"strings"
	"time"
)

// IsCodexSessionHeader reports whether raw is a session header rather than
// an event: an object with both "id" and "timestamp" but none of
// "type"/"role"/"content".
func IsCodexSessionHeader(raw map[string]interface{}) bool {
	_, hasID := raw["id"]
	_, hasTS := raw["timestamp"]
	if !hasID || !hasTS {
		return false
	}
	_, hasType := raw["type"]
	_, hasRole := raw["role"]
	_, hasContent := raw["content"]
	return !hasType && !hasRole && !hasContent
}

func pointerString(m map[string]interface{}, path ...string) (interface{}, bool) {
	var cur interface{} = m
	for _, key := range path {
		obj, ok := cur.(map[string]interface{})
		if !ok {
			return nil, false
		}
		v, ok := obj[key]
		if !ok {
			return nil, false
		}
		cur = v
	}
	return cur, true
}

func asString(v interface{}, ok bool) (string, bool) {
	if !ok {
		return "", false
	}
	s, isStr := v.(string)
	return s, isStr
}

// ParseCodexLine parses one Codex session JSONL row.
func ParseCodexLine(raw string) *ParsedLine {
	var doc map[string]interface{}
	if err := json.Unmarshal([]byte(raw), &doc); err != nil {
		return nil
	}

	metadata := map[string]interface{}{}

	var projectContext string
	if v, ok := asString(pointerString(doc, "payload", "cwd")); ok {
		projectContext = v
	} else if v, ok := asString(pointerString(doc, "turn_context", "cwd")); ok {
		projectContext = v
	} else if v, ok := asString(pointerString(doc, "cwd")); ok {
		projectContext = v
	}
	if projectContext != "" {
		metadata["cwd"] = projectContext
	}

	if model, ok := asString(pointerString(doc, "payload", "model")); ok {
		metadata["model"] = model
	}

	if info, ok := pointerString(doc, "payload", "info"); ok {
		AppendUsage(metadata, info)
	}
	if usage, ok := pointerString(doc, "payload", "usage"); ok {
		AppendUsage(metadata, usage)
	}
	if metrics, ok := pointerString(doc, "payload", "metrics"); ok {
		AppendMetrics(metadata, metrics)
	}
	if metrics, ok := pointerString(doc, "metrics"); ok {
		AppendMetrics(metadata, metrics)
	}

	var ts *time.Time
	for _, key := range []string{"timestamp", "created_at", "createdAt"} {
		if v, ok := doc[key]; ok {
			if t, ok := ParseTimestampValue(v); ok {
				tCopy := t
				ts = &tCopy
				metadata["original_timestamp"] = t.Format(time.RFC3339)
				break
			}
		}
	}

	role := "assistant"
	for _, path := range [][]string{
		{"interaction", "role"}, {"payload", "message", "role"}, {"payload", "role"}, {"role"},
	} {
		if v, ok := asString(pointerString(doc, path...)); ok {
			role = v
			break
		}
	}

	var contentValue interface{}
	var found bool
	for _, path := range [][]string{
		{"interaction", "content"}, {"payload", "message", "content"}, {"payload", "content"}, {"message", "content"},
	} {
		if v, ok := pointerString(doc, path...); ok {
			contentValue, found = v, true
			break
		}
	}
	if !found {
		if v, ok := doc["content"]; ok {
			contentValue, found = v, true
		}
	}

	content := raw
	if found {
		if s, ok := ExtractText(contentValue); ok {
			content = s
		}
	}
	if strings.TrimSpace(content) == "" {
		return nil
	}

	return &ParsedLine{
		Role:           role,
		Content:        content,
		Timestamp:      ts,
		ProjectContext: projectContext,
		Metadata:       metadata,
	}
}

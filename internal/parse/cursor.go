package parse

import (
	"strings"
	"time"
)

// TimestampFromMetadata checks the well-known timestamp-bearing keys on a
// parsed Cursor message's metadata, in priority order.
func TimestampFromMetadata(meta map[string]interface{}) (time.Time, bool) {
	for _, key := range []string{"timestamp", "createdAt", "updatedAt"} {
		if v, ok := meta[key]; ok {
			if t, ok := ParseTimestampValue(v); ok {
				return t, true
			}
		}
	}
	return time.Time{}, false
}

const maxCursorContentChars = 4000

// CursorMessage is one message recovered from a Cursor workspace-DB row.
type CursorMessage struct {
	Role     string
	Content  string
	Metadata map[string]interface{}
}

var cursorScalarKeys = []string{
	"id", "messageId", "createdAt", "updatedAt", "timestamp", "model", "provider",
	"source", "temperature", "topP", "stopReason", "finishReason", "parentId",
}

// ParseCursorValue recursively walks a decoded workspace-DB row value,
// collecting every message-shaped object it finds.
func ParseCursorValue(v interface{}) []CursorMessage {
	var out []CursorMessage
	switch val := v.(type) {
	case []interface{}:
		for _, item := range val {
			if m, ok := parseCursorMessage(item); ok {
				out = append(out, m)
			} else {
				out = append(out, ParseCursorValue(item)...)
			}
		}
	case map[string]interface{}:
		if messages, ok := val["messages"]; ok {
			out = append(out, ParseCursorValue(messages)...)
		} else if _, hasRole := val["role"]; hasRole {
			if m, ok := parseCursorMessage(val); ok {
				out = append(out, m)
			}
		} else if _, hasContent := val["content"]; hasContent {
			if m, ok := parseCursorMessage(val); ok {
				out = append(out, m)
			}
		}
	}
	return out
}

func parseCursorMessage(v interface{}) (CursorMessage, bool) {
	obj, ok := v.(map[string]interface{})
	if !ok {
		return CursorMessage{}, false
	}
	role := "assistant"
	if r, ok := asString(obj["role"], true); ok {
		role = r
	}
	metadata := extractCursorMetadata(obj)

	if content, ok := obj["content"]; ok {
		if text, ok := extractCursorContent(content); ok {
			return CursorMessage{Role: role, Content: trimCursorContent(text), Metadata: metadata}, true
		}
	}
	if text, ok := asString(obj["text"], true); ok {
		return CursorMessage{Role: role, Content: trimCursorContent(text), Metadata: metadata}, true
	}
	return CursorMessage{}, false
}

func extractCursorContent(content interface{}) (string, bool) {
	switch val := content.(type) {
	case string:
		return val, true
	case []interface{}:
		var parts []string
		for _, item := range val {
			if obj, ok := item.(map[string]interface{}); ok {
				if s, ok := asString(obj["text"], true); ok {
					parts = append(parts, s)
					continue
				}
			}
			if s, ok := item.(string); ok {
				parts = append(parts, s)
			}
		}
		if len(parts) == 0 {
			return "", false
		}
		return strings.Join(parts, ""), true
	case map[string]interface{}:
		if s, ok := asString(val["text"], true); ok {
			return s, true
		}
		if nested, ok := val["content"]; ok {
			return extractCursorContent(nested)
		}
		return "", false
	default:
		return "", false
	}
}

func trimCursorContent(s string) string {
	runes := []rune(s)
	if len(runes) > maxCursorContentChars {
		return string(runes[:maxCursorContentChars])
	}
	return s
}

func trimCursorMetadataStr(s string) string {
	runes := []rune(s)
	if len(runes) > 256 {
		return string(runes[:256])
	}
	return s
}

func extractCursorMetadata(obj map[string]interface{}) map[string]interface{} {
	meta := map[string]interface{}{}
	for _, key := range cursorScalarKeys {
		if v, ok := obj[key]; ok {
			insertCursorScalar(meta, key, v)
		}
	}
	for _, key := range []string{"usage", "tokenCount", "token_count"} {
		if usage, ok := obj[key]; ok {
			AppendUsage(meta, usage)
		}
	}
	for _, key := range []string{"metrics", "stats"} {
		if m, ok := obj[key]; ok {
			AppendMetrics(meta, m)
		}
	}
	for _, key := range []string{"toolCalls", "tool_calls"} {
		if calls, ok := obj[key].([]interface{}); ok {
			meta["tool_call_count"] = len(calls)
			if len(calls) > 0 {
				if first, ok := calls[0].(map[string]interface{}); ok {
					name, ok := asString(first["name"], true)
					if !ok {
						name, ok = asString(first["toolName"], true)
					}
					if ok {
						meta["tool_call_first_name"] = name
					}
				}
			}
		}
	}
	return meta
}

func insertCursorScalar(meta map[string]interface{}, key string, v interface{}) {
	if s, ok := v.(string); ok {
		meta[key] = trimCursorMetadataStr(s)
		return
	}
	InsertScalar(meta, key, v)
}

// Package fingerprint computes the 64-bit content-identity hashes shared by
// the history backfiller, the merge tool, and the Cursor watcher's snapshot
// comparison, using xxhash for speed and stability across process runs and
// machines.
package fingerprint

import (
	"strconv"
	"time"

	"github.com/cespare/xxhash/v2"
)

// sep is inserted between every hashed field so that ("ab", "c") and
// ("a", "bc") never collide — a null byte can't appear in any field we hash.
const sep = "\x00"

// Hash64 hashes an ordered tuple of fields in a canonical, length-unambiguous
// encoding (fields joined by NUL).
func Hash64(parts ...string) uint64 {
	h := xxhash.New()
	for i, p := range parts {
		if i > 0 {
			h.WriteString(sep)
		}
		h.WriteString(p)
	}
	return h.Sum64()
}

// CanonicalTimestamp converts an RFC3339-parseable timestamp to its UTC
// epoch-millisecond string representation so that fingerprints are
// insensitive to RFC3339 formatting differences (e.g. "+00:00" vs "Z").
// Non-RFC3339 strings pass through unchanged.
func CanonicalTimestamp(raw string) string {
	t, err := time.Parse(time.RFC3339, raw)
	if err != nil {
		return raw
	}
	return strconv.FormatInt(t.UTC().UnixMilli(), 10)
}

// BackfillKey is the history backfiller's dedup key: source, session, and
// already-redacted content — deliberately excluding project_context and
// timestamp.
func BackfillKey(sourceTool, sessionID, redactedContent string) uint64 {
	return Hash64(sourceTool, sessionID, redactedContent)
}

// MergeFingerprint is the export/merge content-identity fingerprint: source,
// project, session, canonicalized timestamp, role, and content.
func MergeFingerprint(sourceTool, projectContext, sessionID, timestamp, role, content string) uint64 {
	return Hash64(sourceTool, projectContext, sessionID, CanonicalTimestamp(timestamp), role, content)
}

// RoleContent is one message in a Cursor workspace-DB snapshot.
type RoleContent struct {
	Role    string
	Content string
}

// Snapshot hashes the ordered (role, content) pairs of a Cursor DB read,
// used to suppress re-emitting a workspace snapshot that has not changed.
func Snapshot(messages []RoleContent) uint64 {
	h := xxhash.New()
	for _, m := range messages {
		h.WriteString(m.Role)
		h.WriteString(sep)
		h.WriteString(m.Content)
		h.WriteString(sep)
	}
	return h.Sum64()
}

package fingerprint

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestHash64DistinguishesFieldBoundaries(t *testing.T) {
	assert.NotEqual(t, Hash64("ab", "c"), Hash64("a", "bc"))
}

func TestCanonicalTimestampNormalizesRepresentation(t *testing.T) {
	assert.Equal(t, CanonicalTimestamp("2026-01-01T00:00:00Z"), CanonicalTimestamp("2026-01-01T00:00:00+00:00"))
}

func TestCanonicalTimestampPassesThroughNonRFC3339(t *testing.T) {
	assert.Equal(t, "not-a-timestamp", CanonicalTimestamp("not-a-timestamp"))
}

func TestMergeFingerprintInsensitiveToTimestampRepresentation(t *testing.T) {
	a := MergeFingerprint("codex-cli", "proj", "sess", "2026-01-01T00:00:00Z", "user", "hello")
	b := MergeFingerprint("codex-cli", "proj", "sess", "2026-01-01T00:00:00+00:00", "user", "hello")
	assert.Equal(t, a, b)
}

func TestMergeFingerprintDistinguishesContent(t *testing.T) {
	a := MergeFingerprint("codex-cli", "proj", "sess", "2026-01-01T00:00:00Z", "user", "hello")
	b := MergeFingerprint("codex-cli", "proj", "sess", "2026-01-01T00:00:00Z", "user", "goodbye")
	assert.NotEqual(t, a, b)
}

func TestSnapshotChangesWhenMessagesChange(t *testing.T) {
	a := Snapshot([]RoleContent{{Role: "user", Content: "hi"}})
	b := Snapshot([]RoleContent{{Role: "user", Content: "hi"}, {Role: "assistant", Content: "hello"}})
	assert.NotEqual(t, a, b)
}

func TestSnapshotStableForIdenticalInput(t *testing.T) {
	msgs := []RoleContent{{Role: "user", Content: "hi"}, {Role: "assistant", Content: "hello"}}
	assert.Equal(t, Snapshot(msgs), Snapshot(msgs))
}

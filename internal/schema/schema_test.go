package schema

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewProducesAValidEvent(t *testing.T) {
	ev := New(SourceCodex, "/Users/dev/project", "session-1", "user", "hello", time.Time{}, nil)
	require.NoError(t, Validate(ev))
	assert.NotEmpty(t, ev.EventID)
	assert.NotNil(t, ev.Metadata)
}

func TestValidateRejectsMissingFields(t *testing.T) {
	cases := map[string]*Event{
		"bad event_id":  {EventID: "not-a-uuid", Timestamp: nowRFC3339(), SourceTool: "x", ProjectContext: "p", SessionID: "s", Interaction: Interaction{Role: "user", Content: "hi"}, Metadata: map[string]interface{}{}},
		"bad timestamp": {EventID: validUUID(), Timestamp: "not-a-timestamp", SourceTool: "x", ProjectContext: "p", SessionID: "s", Interaction: Interaction{Role: "user", Content: "hi"}, Metadata: map[string]interface{}{}},
		"empty source":  {EventID: validUUID(), Timestamp: nowRFC3339(), SourceTool: "", ProjectContext: "p", SessionID: "s", Interaction: Interaction{Role: "user", Content: "hi"}, Metadata: map[string]interface{}{}},
		"empty role":    {EventID: validUUID(), Timestamp: nowRFC3339(), SourceTool: "x", ProjectContext: "p", SessionID: "s", Interaction: Interaction{Role: "", Content: "hi"}, Metadata: map[string]interface{}{}},
		"empty content": {EventID: validUUID(), Timestamp: nowRFC3339(), SourceTool: "x", ProjectContext: "p", SessionID: "s", Interaction: Interaction{Role: "user", Content: ""}, Metadata: map[string]interface{}{}},
		"nil metadata":  {EventID: validUUID(), Timestamp: nowRFC3339(), SourceTool: "x", ProjectContext: "p", SessionID: "s", Interaction: Interaction{Role: "user", Content: "hi"}, Metadata: nil},
	}
	for name, ev := range cases {
		t.Run(name, func(t *testing.T) {
			assert.Error(t, Validate(ev))
		})
	}
}

func TestValidateRejectsMalformedArtifact(t *testing.T) {
	ev := New(SourceCursor, "p", "s", "assistant", "hi", time.Time{}, nil)
	ev.Interaction.Artifacts = []Artifact{{Type: "", Content: "x"}}
	assert.Error(t, Validate(ev))
}

func nowRFC3339() string { return time.Now().UTC().Format(time.RFC3339) }

func validUUID() string { return New(SourceCodex, "p", "s", "user", "hi", time.Time{}, nil).EventID }

// Package schema defines the normalized event record shared by every
// ingestion path and the single validate() gate the writer and backfiller
// enforce before a line ever reaches disk.
package schema

import (
	"fmt"
	"time"

	"github.com/google/uuid"
)

// Artifact is an optional ordered attachment on an event.
type Artifact struct {
	Type    string `json:"type"`
	Content string `json:"content"`
}

// Interaction carries the textual payload of an event.
type Interaction struct {
	Role      string     `json:"role"`
	Content   string     `json:"content"`
	Artifacts []Artifact `json:"artifacts,omitempty"`
}

// SecurityFlags records what the redactor found in the pre-redaction text.
type SecurityFlags struct {
	HasPII          bool     `json:"has_pii"`
	RedactedSecrets []string `json:"redacted_secrets"`
}

// Event is the unit of the append-only log: one per JSONL line.
type Event struct {
	EventID        string                 `json:"event_id"`
	Timestamp      string                 `json:"timestamp"`
	SourceTool     string                 `json:"source_tool"`
	ProjectContext string                 `json:"project_context"`
	SessionID      string                 `json:"session_id"`
	Interaction    Interaction            `json:"interaction"`
	SecurityFlags  SecurityFlags          `json:"security_flags"`
	Metadata       map[string]interface{} `json:"metadata"`
}

// Source tool identifiers recognized by the pipeline.
const (
	SourceCursor      = "cursor"
	SourceCodex       = "codex-cli"
	SourceClaude      = "claude-code"
	SourceAntigravity = "antigravity"
)

// Validate enforces the six invariants in the data model: a parseable UUID,
// a parseable RFC3339 timestamp, non-empty identifying strings, well-typed
// security flags, and well-shaped metadata/artifacts. It never panics.
func Validate(e *Event) error {
	if _, err := uuid.Parse(e.EventID); err != nil {
		return fmt.Errorf("event_id %q is not a valid UUID: %w", e.EventID, err)
	}
	if _, err := time.Parse(time.RFC3339, e.Timestamp); err != nil {
		return fmt.Errorf("timestamp %q does not parse as RFC3339: %w", e.Timestamp, err)
	}
	if e.SourceTool == "" {
		return fmt.Errorf("source_tool must be non-empty")
	}
	if e.ProjectContext == "" {
		return fmt.Errorf("project_context must be non-empty")
	}
	if e.SessionID == "" {
		return fmt.Errorf("session_id must be non-empty")
	}
	if e.Interaction.Role == "" {
		return fmt.Errorf("interaction.role must be non-empty")
	}
	if e.Interaction.Content == "" {
		return fmt.Errorf("interaction.content must be non-empty")
	}
	if e.Metadata == nil {
		return fmt.Errorf("metadata must be a non-nil object")
	}
	for i, a := range e.Interaction.Artifacts {
		if a.Type == "" || a.Content == "" {
			return fmt.Errorf("artifact[%d] must have non-empty type and content", i)
		}
	}
	return nil
}

// New builds an event with a fresh event_id, defaulting the timestamp to now
// (UTC, RFC3339) when ts is the zero value.
func New(sourceTool, projectContext, sessionID, role, content string, ts time.Time, metadata map[string]interface{}) *Event {
	if ts.IsZero() {
		ts = time.Now().UTC()
	}
	if metadata == nil {
		metadata = map[string]interface{}{}
	}
	return &Event{
		EventID:        uuid.New().String(),
		Timestamp:      ts.UTC().Format(time.RFC3339),
		SourceTool:     sourceTool,
		ProjectContext: projectContext,
		SessionID:      sessionID,
		Interaction:    Interaction{Role: role, Content: content},
		SecurityFlags:  SecurityFlags{RedactedSecrets: []string{}},
		Metadata:       metadata,
	}
}

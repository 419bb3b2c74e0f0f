package watch

import (
	"context"
	"strconv"
	"time"

	"github.com/sirupsen/logrus"

	"contrail/internal/metrics"
	"contrail/internal/redact"
	"contrail/internal/schema"
	"contrail/internal/writer"
)

// Emitter funnels a watcher's parsed lines through redaction, cross-cutting
// enrichment, schema construction, and the writer — the single call site
// every watcher uses, so C1/C3/C4 are only ever exercised this one way.
type Emitter struct {
	Sentinel *redact.Sentinel
	Writer   *writer.Writer
	Logger   *logrus.Logger
}

// NewEmitter builds an Emitter with a fresh Sentinel bound to the given writer.
func NewEmitter(w *writer.Writer, logger *logrus.Logger) *Emitter {
	return &Emitter{Sentinel: redact.New(), Writer: w, Logger: logger}
}

// Emit redacts content, applies identity/clipboard/extra enrichment, builds
// an event, and submits it to the writer.
func (e *Emitter) Emit(ctx context.Context, sourceTool, sessionID, projectContext, role, content string, ts time.Time, extra map[string]interface{}) error {
	redacted, hasPII, flags := e.Sentinel.Scan(content)
	if hasPII {
		for range flags {
			metrics.RedactionsTotal.WithLabelValues("secret").Inc()
		}
	}

	meta := map[string]interface{}{}
	addIdentity(meta)
	checkClipboard(role, redacted, meta)
	for k, v := range extra {
		meta[k] = v
	}

	ev := schema.New(sourceTool, projectContext, sessionID, role, redacted, ts, meta)
	ev.SecurityFlags = schema.SecurityFlags{HasPII: hasPII, RedactedSecrets: flags}

	metrics.EventsParsedTotal.WithLabelValues(sourceTool).Inc()
	return e.Writer.Write(ctx, ev)
}

// EmitSessionEnd synthesizes a "Session Ended" system event once a session
// goes quiet. Applied uniformly across all four watchers rather than only
// the one source the reference implementation happened to cover, so every
// source reports session boundaries the same way.
func (e *Emitter) EmitSessionEnd(ctx context.Context, sourceTool string, state *SessionState, extra map[string]interface{}) error {
	interrupted := state.EndSession()
	meta := map[string]interface{}{"interrupted": interrupted}
	for k, v := range extra {
		meta[k] = v
	}
	metrics.SessionsEndedTotal.WithLabelValues(sourceTool, strconv.FormatBool(interrupted)).Inc()
	return e.Emit(ctx, sourceTool, state.SessionID, state.ProjectContext, "system", "Session Ended", time.Now(), meta)
}

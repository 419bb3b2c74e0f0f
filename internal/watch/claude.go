package watch

import (
	"context"
	"io"
	"time"

	"github.com/nxadm/tail"
	"github.com/sirupsen/logrus"

	"contrail/internal/metrics"
	"contrail/internal/parse"
	"contrail/internal/schema"
)

// ClaudeHistoryWatcher tails the single global Claude history file. Its
// session_id is always the literal "history": the file carries no native
// conversation boundary, so every line belongs to one synthetic session for
// the lifetime of the watcher.
type ClaudeHistoryWatcher struct {
	Path        string
	SilenceSecs int
	Emitter     *Emitter
	Logger      *logrus.Logger
}

const claudeHistorySessionID = "history"

func (w *ClaudeHistoryWatcher) Run(ctx context.Context) error {
	t, err := tail.TailFile(w.Path, tail.Config{
		Follow:   true,
		ReOpen:   true,
		Poll:     true,
		Location: &tail.SeekInfo{Offset: 0, Whence: io.SeekEnd},
	})
	if err != nil {
		return err
	}
	defer t.Stop()

	session := &SessionState{SessionID: claudeHistorySessionID, ProjectContext: "Claude History"}
	silenceTicker := time.NewTicker(time.Second)
	defer silenceTicker.Stop()
	window := time.Duration(w.SilenceSecs) * time.Second

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-silenceTicker.C:
			if session.SilenceElapsed(window) {
				if err := w.Emitter.EmitSessionEnd(ctx, schema.SourceClaude, session, nil); err != nil {
					w.Logger.WithError(err).Error("claude history watcher: failed to emit session end")
				}
			}
		case line, ok := <-t.Lines:
			if !ok {
				return nil
			}
			if line.Err != nil {
				metrics.WatcherErrorsTotal.WithLabelValues(schema.SourceClaude, "tail").Inc()
				continue
			}
			parsed := parse.ParseClaudeLine(line.Text)
			if parsed == nil {
				metrics.WatcherErrorsTotal.WithLabelValues(schema.SourceClaude, "parse").Inc()
				continue
			}
			if parsed.ProjectContext != "" {
				session.ProjectContext = parsed.ProjectContext
			}
			ts := time.Now().UTC()
			if parsed.Timestamp != nil {
				ts = *parsed.Timestamp
			}
			session.Touch(parsed.Metadata)
			if err := w.Emitter.Emit(ctx, schema.SourceClaude, session.SessionID, session.ProjectContext, parsed.Role, parsed.Content, ts, parsed.Metadata); err != nil {
				w.Logger.WithError(err).Error("claude history watcher: failed to emit event")
			}
		}
	}
}

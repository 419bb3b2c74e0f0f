package watch

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/nxadm/tail"
	"github.com/sirupsen/logrus"

	"contrail/internal/metrics"
	"contrail/internal/parse"
	"contrail/internal/schema"
)

// CodexWatcher tails the current day's (and the flat root's) Codex session
// files, discovering new session files on a poll interval and tailing each
// one independently.
type CodexWatcher struct {
	Root         string
	SilenceSecs  int
	Emitter      *Emitter
	Logger       *logrus.Logger

	files map[string]*codexFileState
}

type codexFileState struct {
	tail    *tail.Tail
	session *SessionState
	lastTS  *time.Time
}

// Run discovers files every 2 seconds (matching the reference's poll
// cadence) and processes new lines/session-end transitions until ctx is done.
func (w *CodexWatcher) Run(ctx context.Context) error {
	w.files = map[string]*codexFileState{}
	discoverTicker := time.NewTicker(2 * time.Second)
	defer discoverTicker.Stop()
	silenceTicker := time.NewTicker(time.Second)
	defer silenceTicker.Stop()

	w.discover(ctx)
	for {
		select {
		case <-ctx.Done():
			w.closeAll()
			return ctx.Err()
		case <-discoverTicker.C:
			w.discover(ctx)
		case <-silenceTicker.C:
			w.checkSilence(ctx)
		}
	}
}

func (w *CodexWatcher) discover(ctx context.Context) {
	candidates := map[string]bool{}
	today := time.Now().UTC()
	datedDir := filepath.Join(w.Root, fmt.Sprintf("%04d", today.Year()), fmt.Sprintf("%02d", today.Month()), fmt.Sprintf("%02d", today.Day()))
	for _, dir := range []string{datedDir, w.Root} {
		entries, err := os.ReadDir(dir)
		if err != nil {
			continue
		}
		for _, e := range entries {
			if e.IsDir() || filepath.Ext(e.Name()) != ".jsonl" {
				continue
			}
			candidates[filepath.Join(dir, e.Name())] = true
		}
	}
	for path := range candidates {
		if _, exists := w.files[path]; exists {
			continue
		}
		t, err := tail.TailFile(path, tail.Config{
			Follow:   true,
			ReOpen:   true,
			Poll:     true,
			Location: &tail.SeekInfo{Offset: 0, Whence: io.SeekEnd},
		})
		if err != nil {
			metrics.WatcherErrorsTotal.WithLabelValues(schema.SourceCodex, "open").Inc()
			continue
		}
		state := &codexFileState{
			tail: t,
			session: &SessionState{
				SessionID:      filepath.Base(path),
				ProjectContext: "Codex Session",
			},
		}
		w.files[path] = state
		go w.consume(ctx, path, state)
	}
}

func (w *CodexWatcher) consume(ctx context.Context, path string, state *codexFileState) {
	wroteSessionStart := false
	for line := range state.tail.Lines {
		if line.Err != nil {
			metrics.WatcherErrorsTotal.WithLabelValues(schema.SourceCodex, "tail").Inc()
			continue
		}
		var header map[string]interface{}
		if json.Unmarshal([]byte(line.Text), &header) == nil && parse.IsCodexSessionHeader(header) {
			if ts, ok := header["timestamp"]; ok {
				if t, ok := parse.ParseTimestampValue(ts); ok {
					state.lastTS = &t
				}
			}
			continue
		}

		parsed := parse.ParseCodexLine(line.Text)
		if parsed == nil {
			metrics.WatcherErrorsTotal.WithLabelValues(schema.SourceCodex, "parse").Inc()
			continue
		}
		if parsed.ProjectContext != "" {
			state.session.ProjectContext = parsed.ProjectContext
		}

		ts := time.Now().UTC()
		if parsed.Timestamp != nil {
			ts = *parsed.Timestamp
			state.lastTS = parsed.Timestamp
		} else if state.lastTS != nil {
			bumped := state.lastTS.Add(time.Millisecond)
			ts = bumped
			state.lastTS = &bumped
			parsed.Metadata["timestamp_inferred"] = true
		}

		if !wroteSessionStart {
			parsed.Metadata["session_started_at"] = ts.Format(time.RFC3339)
			wroteSessionStart = true
		}

		state.session.Touch(parsed.Metadata)
		if err := w.Emitter.Emit(ctx, schema.SourceCodex, state.session.SessionID, state.session.ProjectContext, parsed.Role, parsed.Content, ts, parsed.Metadata); err != nil {
			w.Logger.WithError(err).WithField("path", path).Error("codex watcher: failed to emit event")
		}
	}
}

func (w *CodexWatcher) checkSilence(ctx context.Context) {
	window := time.Duration(w.SilenceSecs) * time.Second
	for path, state := range w.files {
		if state.session.SilenceElapsed(window) {
			if err := w.Emitter.EmitSessionEnd(ctx, schema.SourceCodex, state.session, nil); err != nil {
				w.Logger.WithError(err).WithField("path", path).Error("codex watcher: failed to emit session end")
			}
		}
	}
}

func (w *CodexWatcher) closeAll() {
	for _, state := range w.files {
		state.tail.Stop()
	}
}

package watch

import (
	"context"
	"io"
	"path/filepath"
	"strings"
	"time"

	"github.com/nxadm/tail"
	"github.com/sirupsen/logrus"

	"contrail/internal/metrics"
	"contrail/internal/parse"
	"contrail/internal/schema"
)

// ClaudeProjectsWatcher tails the per-project session files under
// ~/.claude/projects, one real session per file (unlike the global history
// watcher's single synthetic session), enriched with the project's git
// branch and working-tree status.
type ClaudeProjectsWatcher struct {
	Root        string
	SilenceSecs int
	Emitter     *Emitter
	Logger      *logrus.Logger

	files map[string]*claudeProjectFileState
}

type claudeProjectFileState struct {
	tail    *tail.Tail
	session *SessionState
}

func (w *ClaudeProjectsWatcher) Run(ctx context.Context) error {
	w.files = map[string]*claudeProjectFileState{}
	discoverTicker := time.NewTicker(2 * time.Second)
	defer discoverTicker.Stop()
	silenceTicker := time.NewTicker(time.Second)
	defer silenceTicker.Stop()

	w.discover(ctx)
	for {
		select {
		case <-ctx.Done():
			for _, state := range w.files {
				state.tail.Stop()
			}
			return ctx.Err()
		case <-discoverTicker.C:
			w.discover(ctx)
		case <-silenceTicker.C:
			w.checkSilence(ctx)
		}
	}
}

func (w *ClaudeProjectsWatcher) discover(ctx context.Context) {
	matches, err := filepath.Glob(filepath.Join(w.Root, "*", "*.jsonl"))
	if err != nil {
		return
	}
	for _, path := range matches {
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
			metrics.WatcherErrorsTotal.WithLabelValues(schema.SourceClaude, "open").Inc()
			continue
		}
		sessionID := strings.TrimSuffix(filepath.Base(path), ".jsonl")
		state := &claudeProjectFileState{
			tail: t,
			session: &SessionState{
				SessionID:      sessionID,
				ProjectContext: filepath.Base(filepath.Dir(path)),
			},
		}
		w.files[path] = state
		go w.consume(ctx, path, state)
	}
}

func (w *ClaudeProjectsWatcher) consume(ctx context.Context, path string, state *claudeProjectFileState) {
	for line := range state.tail.Lines {
		if line.Err != nil {
			metrics.WatcherErrorsTotal.WithLabelValues(schema.SourceClaude, "tail").Inc()
			continue
		}
		parsed := parse.ParseClaudeSessionLine(line.Text)
		if parsed == nil {
			metrics.WatcherErrorsTotal.WithLabelValues(schema.SourceClaude, "parse").Inc()
			continue
		}
		if parsed.ProjectContext != "" {
			state.session.ProjectContext = parsed.ProjectContext
		}
		ts := time.Now().UTC()
		if parsed.Timestamp != nil {
			ts = *parsed.Timestamp
		}
		gitEnrich(state.session.ProjectContext, parsed.Metadata, w.Logger)
		state.session.Touch(parsed.Metadata)
		if err := w.Emitter.Emit(ctx, schema.SourceClaude, state.session.SessionID, state.session.ProjectContext, parsed.Role, parsed.Content, ts, parsed.Metadata); err != nil {
			w.Logger.WithError(err).WithField("path", path).Error("claude projects watcher: failed to emit event")
		}
	}
}

func (w *ClaudeProjectsWatcher) checkSilence(ctx context.Context) {
	window := time.Duration(w.SilenceSecs) * time.Second
	for path, state := range w.files {
		if state.session.SilenceElapsed(window) {
			if err := w.Emitter.EmitSessionEnd(ctx, schema.SourceClaude, state.session, nil); err != nil {
				w.Logger.WithError(err).WithField("path", path).Error("claude projects watcher: failed to emit session end")
			}
		}
	}
}

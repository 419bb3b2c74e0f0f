package watch

import (
	"context"
	"database/sql"
	"encoding/json"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"
	_ "modernc.org/sqlite"

	"github.com/sirupsen/logrus"

	"contrail/internal/metrics"
	"contrail/internal/parse"
	"contrail/internal/schema"
	"contrail/pkg/fingerprint"
)

// CursorWatcher watches Cursor's per-workspace state.vscdb SQLite databases
// for writes and replays the full chat/composer snapshot on each change,
// since the DB has no append-only log to tail: a changed fingerprint means
// "re-read everything and diff against what was already emitted".
type CursorWatcher struct {
	StorageRoot string
	SilenceSecs int
	Emitter     *Emitter
	Logger      *logrus.Logger

	workspaces map[string]*cursorWorkspaceState
}

type cursorWorkspaceState struct {
	dbPath      string
	session     *SessionState
	lastSnap    uint64
	emittedRole []fingerprint.RoleContent
}

const cursorQueryPattern = `key LIKE '%chat%' OR key LIKE '%composer%' OR key LIKE '%bubble%'`

func (w *CursorWatcher) Run(ctx context.Context) error {
	w.workspaces = map[string]*cursorWorkspaceState{}
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	defer watcher.Close()

	discoverTicker := time.NewTicker(5 * time.Second)
	defer discoverTicker.Stop()
	silenceTicker := time.NewTicker(time.Second)
	defer silenceTicker.Stop()

	w.discover(watcher)
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-discoverTicker.C:
			w.discover(watcher)
		case <-silenceTicker.C:
			w.checkSilence(ctx)
		case ev, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if ev.Op&(fsnotify.Write|fsnotify.Create) == 0 {
				continue
			}
			w.handleChange(ctx, ev.Name)
		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			w.Logger.WithError(err).Warn("cursor watcher: fsnotify error")
		}
	}
}

func (w *CursorWatcher) discover(watcher *fsnotify.Watcher) {
	entries, err := os.ReadDir(w.StorageRoot)
	if err != nil {
		return
	}
	for _, e := range entries {
		if !e.IsDir() {
			continue
		}
		dbPath := filepath.Join(w.StorageRoot, e.Name(), "state.vscdb")
		if _, err := os.Stat(dbPath); err != nil {
			continue
		}
		if _, exists := w.workspaces[dbPath]; exists {
			continue
		}
		if err := watcher.Add(dbPath); err != nil {
			metrics.WatcherErrorsTotal.WithLabelValues(schema.SourceCursor, "watch").Inc()
			continue
		}
		w.workspaces[dbPath] = &cursorWorkspaceState{
			dbPath: dbPath,
			session: &SessionState{
				SessionID:      e.Name(),
				ProjectContext: e.Name(),
			},
		}
	}
}

func (w *CursorWatcher) handleChange(ctx context.Context, dbPath string) {
	state, ok := w.workspaces[dbPath]
	if !ok {
		return
	}
	messages, err := readCursorMessages(dbPath)
	if err != nil {
		metrics.WatcherErrorsTotal.WithLabelValues(schema.SourceCursor, "db").Inc()
		return
	}

	pairs := make([]fingerprint.RoleContent, len(messages))
	for i, m := range messages {
		pairs[i] = fingerprint.RoleContent{Role: m.Role, Content: m.Content}
	}
	snap := fingerprint.Snapshot(pairs)
	if snap == state.lastSnap {
		return
	}
	state.lastSnap = snap

	newCount := len(messages) - len(state.emittedRole)
	if newCount <= 0 {
		state.emittedRole = pairs
		return
	}

	gitMeta := map[string]interface{}{}
	gitEnrich(state.session.ProjectContext, gitMeta, w.Logger)

	for _, m := range messages[len(messages)-newCount:] {
		content := trimContentForEmit(m.Content)
		meta := map[string]interface{}{}
		for k, v := range m.Metadata {
			meta[k] = v
		}
		for k, v := range gitMeta {
			meta[k] = v
		}
		ts := time.Now().UTC()
		if t, ok := parse.TimestampFromMetadata(m.Metadata); ok {
			ts = t
		}
		state.session.Touch(meta)
		if err := w.Emitter.Emit(ctx, schema.SourceCursor, state.session.SessionID, state.session.ProjectContext, m.Role, content, ts, meta); err != nil {
			w.Logger.WithError(err).WithField("db", dbPath).Error("cursor watcher: failed to emit event")
		}
	}
	state.emittedRole = pairs
}

func trimContentForEmit(s string) string {
	return parse.TrimChars(s, 4000)
}

// readCursorMessages copies the live state.vscdb aside before opening it,
// since Cursor may be writing to the original at the same moment a watch
// event fires; querying the copy avoids reading a file mid-write.
func readCursorMessages(dbPath string) ([]parse.CursorMessage, error) {
	snapshot, err := snapshotCursorDB(dbPath)
	if err != nil {
		return nil, err
	}
	defer os.Remove(snapshot)

	db, err := sql.Open("sqlite", snapshot+"?mode=ro")
	if err != nil {
		return nil, err
	}
	defer db.Close()

	rows, err := db.Query(`SELECT key, value FROM ItemTable WHERE ` + cursorQueryPattern)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var all []parse.CursorMessage
	for rows.Next() {
		var key string
		var value []byte
		if err := rows.Scan(&key, &value); err != nil {
			continue
		}
		var doc interface{}
		if json.Unmarshal(value, &doc) != nil {
			continue
		}
		all = append(all, parse.ParseCursorValue(doc)...)
	}
	return all, rows.Err()
}

// snapshotCursorDB copies dbPath to a temp file and returns its path. The
// caller is responsible for removing it.
func snapshotCursorDB(dbPath string) (string, error) {
	src, err := os.Open(dbPath)
	if err != nil {
		return "", err
	}
	defer src.Close()

	tmp, err := os.CreateTemp("", "contrail-cursor-*.vscdb")
	if err != nil {
		return "", err
	}
	defer tmp.Close()

	if _, err := io.Copy(tmp, src); err != nil {
		os.Remove(tmp.Name())
		return "", err
	}
	return tmp.Name(), nil
}

func (w *CursorWatcher) checkSilence(ctx context.Context) {
	window := time.Duration(w.SilenceSecs) * time.Second
	for dbPath, state := range w.workspaces {
		if state.session.SilenceElapsed(window) {
			if err := w.Emitter.EmitSessionEnd(ctx, schema.SourceCursor, state.session, nil); err != nil {
				w.Logger.WithError(err).WithField("db", dbPath).Error("cursor watcher: failed to emit session end")
			}
		}
	}
}

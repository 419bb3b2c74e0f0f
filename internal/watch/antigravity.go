package watch

import (
	"context"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/sirupsen/logrus"

	"contrail/internal/metrics"
	"contrail/internal/parse"
	"contrail/internal/schema"
)

// antigravityCanonicalFiles are the two per-session Markdown artifacts the
// live watcher tails by byte offset. Antigravity appends to these in place
// as the agent works; every other file in the session directory is only
// picked up by the one-shot backfiller.
var antigravityCanonicalFiles = []string{"task.md", "implementation_plan.md"}

// AntigravityWatcher polls the Antigravity brain directory for the
// most-recently-modified session directory and tails its two canonical
// Markdown files by byte offset, re-checking for a newer session every
// pollInterval.
type AntigravityWatcher struct {
	Root        string
	SilenceSecs int
	Emitter     *Emitter
	Logger      *logrus.Logger

	pollInterval time.Duration
	currentDir   string
	session      *SessionState
	offsets      map[string]int64
}

const antigravityPollInterval = 10 * time.Second

func (w *AntigravityWatcher) Run(ctx context.Context) error {
	if w.pollInterval == 0 {
		w.pollInterval = antigravityPollInterval
	}
	ticker := time.NewTicker(w.pollInterval)
	defer ticker.Stop()
	silenceTicker := time.NewTicker(time.Second)
	defer silenceTicker.Stop()

	w.poll(ctx)
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			w.poll(ctx)
		case <-silenceTicker.C:
			w.checkSilence(ctx)
		}
	}
}

func (w *AntigravityWatcher) poll(ctx context.Context) {
	dir, err := mostRecentSubdir(w.Root)
	if err != nil || dir == "" {
		return
	}
	if dir != w.currentDir {
		w.currentDir = dir
		w.session = &SessionState{SessionID: filepath.Base(dir), ProjectContext: "Antigravity Session"}
		w.offsets = map[string]int64{}
	}

	for _, name := range antigravityCanonicalFiles {
		w.readDelta(ctx, dir, name)
	}
}

// readDelta reads the bytes appended to dir/name since the last poll,
// resetting the offset to 0 if the file has shrunk (truncation/rotation),
// and emits the new content as one artifact event.
func (w *AntigravityWatcher) readDelta(ctx context.Context, dir, name string) {
	path := filepath.Join(dir, name)
	info, err := os.Stat(path)
	if err != nil {
		return
	}
	offset := w.offsets[name]
	if info.Size() < offset {
		offset = 0
	}
	if info.Size() <= offset {
		return
	}

	f, err := os.Open(path)
	if err != nil {
		metrics.WatcherErrorsTotal.WithLabelValues(schema.SourceAntigravity, "read").Inc()
		return
	}
	defer f.Close()
	if _, err := f.Seek(offset, io.SeekStart); err != nil {
		metrics.WatcherErrorsTotal.WithLabelValues(schema.SourceAntigravity, "read").Inc()
		return
	}
	buf := make([]byte, info.Size()-offset)
	n, err := io.ReadFull(f, buf)
	if err != nil && err != io.ErrUnexpectedEOF {
		return
	}
	w.offsets[name] = offset + int64(n)

	body := parse.TrimChars(string(buf[:n]), parse.MaxAntigravityChars)
	if strings.TrimSpace(body) == "" {
		return
	}

	meta := antigravityFileMetadata(dir, name)
	w.session.Touch(meta)
	content := parse.AntigravityArtifactContent(name, body)
	if err := w.Emitter.Emit(ctx, schema.SourceAntigravity, w.session.SessionID, w.session.ProjectContext, "assistant", content, time.Now().UTC(), meta); err != nil {
		w.Logger.WithError(err).Error("antigravity watcher: failed to emit event")
	}
}

// antigravityFileMetadata loads "<file>.metadata.json" alongside a canonical
// Markdown file, if present.
func antigravityFileMetadata(dir, name string) map[string]interface{} {
	out := map[string]interface{}{}
	raw, err := os.ReadFile(filepath.Join(dir, name+".metadata.json"))
	if err != nil {
		return out
	}
	parsed, ok := parse.ParseAntigravityMetadata(raw)
	if !ok {
		return out
	}
	if parsed.ArtifactType != "" {
		out["antigravity_artifact_type"] = parsed.ArtifactType
	}
	if parsed.Summary != "" {
		out["antigravity_artifact_summary"] = parsed.Summary
	}
	if parsed.Raw != nil {
		out["antigravity_metadata"] = parsed.Raw
	}
	return out
}

func mostRecentSubdir(root string) (string, error) {
	entries, err := os.ReadDir(root)
	if err != nil {
		return "", err
	}
	type candidate struct {
		path    string
		modTime time.Time
	}
	var candidates []candidate
	for _, e := range entries {
		if !e.IsDir() {
			continue
		}
		info, err := e.Info()
		if err != nil {
			continue
		}
		candidates = append(candidates, candidate{filepath.Join(root, e.Name()), info.ModTime()})
	}
	if len(candidates) == 0 {
		return "", nil
	}
	sort.Slice(candidates, func(i, j int) bool { return candidates[i].modTime.After(candidates[j].modTime) })
	return candidates[0].path, nil
}

func (w *AntigravityWatcher) checkSilence(ctx context.Context) {
	if w.session == nil {
		return
	}
	window := time.Duration(w.SilenceSecs) * time.Second
	if w.session.SilenceElapsed(window) {
		if err := w.Emitter.EmitSessionEnd(ctx, schema.SourceAntigravity, w.session, nil); err != nil {
			w.Logger.WithError(err).Error("antigravity watcher: failed to emit session end")
		}
	}
}

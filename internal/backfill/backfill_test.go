package backfill

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"contrail/internal/config"
	"contrail/internal/writer"
)

func newTestImporter(t *testing.T, home string) (*Importer, *writer.Writer) {
	t.Helper()
	cfg := &config.Config{
		LogPath:           filepath.Join(home, "master_log.jsonl"),
		CursorStorage:     filepath.Join(home, "cursor-storage"),
		CodexRoot:         filepath.Join(home, "codex-root"),
		ClaudeHistory:     filepath.Join(home, "claude-history.jsonl"),
		ClaudeProjects:    filepath.Join(home, "claude-projects"),
		AntigravityBrain:  filepath.Join(home, "antigravity-brain"),
		EnableCodex:       true,
		EnableClaude:      true,
		EnableCursor:      true,
		EnableAntigravity: true,
		LogMaxBytes:       1 << 20,
		LogKeepFiles:      5,
	}
	w := writer.New(cfg.LogPath, cfg.LogMaxBytes, cfg.LogKeepFiles, false, logrus.New())
	require.NoError(t, w.Start())
	t.Cleanup(w.Stop)
	return &Importer{Config: cfg, Writer: w, Logger: logrus.New()}, w
}

func TestRunSkipsWhenMarkerExistsAndNotForced(t *testing.T) {
	home := t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Dir(MarkerPath(home)), 0o755))
	require.NoError(t, os.WriteFile(MarkerPath(home), []byte(`{}`), 0o644))

	im, _ := newTestImporter(t, home)
	stats, err := im.Run(context.Background(), home, false)
	require.NoError(t, err)
	assert.Equal(t, Stats{}, stats)
}

func TestRunImportsClaudeHistoryAndWritesMarker(t *testing.T) {
	home := t.TempDir()
	im, w := newTestImporter(t, home)
	require.NoError(t, os.WriteFile(im.Config.ClaudeHistory, []byte(
		`{"conversation_id":"c1","cwd":"/proj","role":"user","content":"hello there"}`+"\n"+
			`{"conversation_id":"c1","cwd":"/proj","role":"assistant","content":"hi back"}`+"\n",
	), 0o644))

	stats, err := im.Run(context.Background(), home, false)
	require.NoError(t, err)
	assert.Equal(t, 2, stats.Imported)
	assert.Equal(t, 0, stats.Errors)

	_, err = os.Stat(MarkerPath(home))
	assert.NoError(t, err)

	w.Stop()
}

func TestRunForcedReimportSkipsRecordsAlreadyInMasterLog(t *testing.T) {
	home := t.TempDir()
	im, w := newTestImporter(t, home)
	require.NoError(t, os.WriteFile(im.Config.ClaudeHistory, []byte(
		`{"conversation_id":"c1","cwd":"/proj","role":"user","content":"hello there"}`+"\n",
	), 0o644))

	stats, err := im.Run(context.Background(), home, false)
	require.NoError(t, err)
	assert.Equal(t, 1, stats.Imported)
	w.Stop()

	im2, w2 := newTestImporter(t, home)
	stats2, err := im2.Run(context.Background(), home, true)
	require.NoError(t, err)
	assert.Equal(t, 0, stats2.Imported)
	assert.Equal(t, 1, stats2.Skipped)
	w2.Stop()
}

func TestNextTimestampSynthesizesMonotonicIncrements(t *testing.T) {
	im := &Importer{lastTS: map[string]time.Time{}}
	first, inferred1 := im.nextTimestamp("s1", nil)
	second, inferred2 := im.nextTimestamp("s1", nil)
	assert.True(t, inferred1)
	assert.True(t, inferred2)
	assert.True(t, second.After(first))
	assert.Equal(t, time.Millisecond, second.Sub(first))
}

func TestRunImportsAntigravitySummaryThenArtifacts(t *testing.T) {
	home := t.TempDir()
	im, w := newTestImporter(t, home)

	sessionDir := filepath.Join(im.Config.AntigravityBrain, "sess1")
	require.NoError(t, os.MkdirAll(sessionDir, 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(sessionDir, "task.md"), []byte("do the thing"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(sessionDir, "implementation_plan.md"), []byte("stale plan"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(sessionDir, "implementation_plan.md.resolved"), []byte("resolved plan"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(sessionDir, "diagram.png"), []byte("binarydata"), 0o644))

	stats, err := im.Run(context.Background(), home, false)
	require.NoError(t, err)
	// one summary event + two artifact events (task.md, implementation_plan.md)
	assert.Equal(t, 3, stats.Imported)
	assert.Equal(t, 0, stats.Errors)
	w.Stop()

	raw, err := os.ReadFile(im.Config.LogPath)
	require.NoError(t, err)
	body := string(raw)
	assert.Contains(t, body, "Antigravity session summary: images=1, files=4, bytes=")
	assert.Contains(t, body, "Antigravity artifact: task.md")
	assert.Contains(t, body, "Antigravity artifact: implementation_plan.md")
	assert.Contains(t, body, "resolved plan")
	assert.NotContains(t, body, "stale plan")
}

func TestNextTimestampPrefersParsedOverSynthesized(t *testing.T) {
	im := &Importer{lastTS: map[string]time.Time{}}
	parsed := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	ts, inferred := im.nextTimestamp("s1", &parsed)
	assert.False(t, inferred)
	assert.Equal(t, parsed, ts)
}

// Package backfill implements the one-shot history importer: a single
// recursive pass over all four sources' on-disk history, deduplicated
// against both itself and the existing master log, with synthesized
// monotonic timestamps for records that carry none of their own.
package backfill

import (
	"bufio"
	"context"
	"database/sql"
	"encoding/json"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/sirupsen/logrus"
	_ "modernc.org/sqlite"

	"contrail/internal/config"
	"contrail/internal/metrics"
	"contrail/internal/parse"
	"contrail/internal/redact"
	"contrail/internal/schema"
	"contrail/internal/writer"
	"contrail/pkg/dedup"
	"contrail/pkg/fingerprint"
)

// Stats summarizes the outcome of one Run.
type Stats struct {
	Imported int
	Skipped  int
	Errors   int
}

// Importer owns the one-shot backfill pass.
type Importer struct {
	Config *config.Config
	Writer *writer.Writer
	Logger *logrus.Logger

	sentinel *redact.Sentinel
	seen     *dedup.Uint64Set
	lastTS   map[string]time.Time
}

// MarkerPath resolves the non-authoritative marker file next to the home
// directory holding the configured log path.
func MarkerPath(home string) string {
	return filepath.Join(home, config.HistoryImportMarkerRel)
}

// Run performs the one-shot import. If force is false and the marker file
// already exists, Run returns a zero Stats without touching any source.
func (im *Importer) Run(ctx context.Context, home string, force bool) (Stats, error) {
	marker := MarkerPath(home)
	if !force {
		if _, err := os.Stat(marker); err == nil {
			return Stats{}, nil
		}
	}

	im.sentinel = redact.New()
	im.seen = dedup.NewUint64Set(4096)
	im.lastTS = map[string]time.Time{}

	im.preloadExisting()

	var stats Stats
	im.importCodex(ctx, &stats)
	im.importClaudeHistory(ctx, &stats)
	im.importClaudeProjects(ctx, &stats)
	im.importCursor(ctx, &stats)
	im.importAntigravity(ctx, &stats)

	if err := os.MkdirAll(filepath.Dir(marker), 0o755); err == nil {
		payload, _ := json.Marshal(map[string]interface{}{
			"imported_at": time.Now().UTC().Format(time.RFC3339),
			"imported":    stats.Imported,
			"skipped":     stats.Skipped,
			"errors":      stats.Errors,
		})
		_ = os.WriteFile(marker, payload, 0o644)
	}

	return stats, nil
}

// preloadExisting scans the current log (active file plus archives) so the
// backfill never reimports records the live watchers already wrote.
func (im *Importer) preloadExisting() {
	paths, err := writer.DiscoverLogs(im.Config.LogPath)
	if err != nil {
		return
	}
	for _, path := range paths {
		f, err := os.Open(path)
		if err != nil {
			continue
		}
		scanner := bufio.NewScanner(f)
		scanner.Buffer(make([]byte, 0, 64*1024), 4*1024*1024)
		for scanner.Scan() {
			var ev schema.Event
			if json.Unmarshal(scanner.Bytes(), &ev) != nil {
				continue
			}
			key := fingerprint.BackfillKey(ev.SourceTool, ev.SessionID, ev.Interaction.Content)
			im.seen.Add(key)
		}
		f.Close()
	}
}

func (im *Importer) nextTimestamp(sessionID string, parsed *time.Time) (time.Time, bool) {
	if parsed != nil {
		im.lastTS[sessionID] = *parsed
		return *parsed, false
	}
	if last, ok := im.lastTS[sessionID]; ok {
		next := last.Add(time.Millisecond)
		im.lastTS[sessionID] = next
		return next, true
	}
	now := time.Now().UTC()
	im.lastTS[sessionID] = now
	return now, true
}

func (im *Importer) emit(sourceTool, sessionID, projectContext, role, content string, ts time.Time, inferred bool, meta map[string]interface{}, stats *Stats) {
	if strings.TrimSpace(content) == "" {
		return
	}
	redacted, hasPII, flags := im.sentinel.Scan(content)
	key := fingerprint.BackfillKey(sourceTool, sessionID, redacted)
	if im.seen.CheckAndAdd(key) {
		stats.Skipped++
		metrics.BackfillRecordsTotal.WithLabelValues(sourceTool, "skipped").Inc()
		return
	}
	if meta == nil {
		meta = map[string]interface{}{}
	}
	if inferred {
		meta["timestamp_inferred"] = true
	}
	ev := schema.New(sourceTool, projectContext, sessionID, role, redacted, ts, meta)
	ev.SecurityFlags = schema.SecurityFlags{HasPII: hasPII, RedactedSecrets: flags}
	if err := im.Writer.Write(context.Background(), ev); err != nil {
		stats.Errors++
		metrics.BackfillRecordsTotal.WithLabelValues(sourceTool, "error").Inc()
		return
	}
	stats.Imported++
	metrics.BackfillRecordsTotal.WithLabelValues(sourceTool, "imported").Inc()
}

func (im *Importer) importCodex(ctx context.Context, stats *Stats) {
	if !im.Config.EnableCodex {
		return
	}
	var files []string
	_ = filepath.WalkDir(im.Config.CodexRoot, func(path string, d os.DirEntry, err error) error {
		if err != nil || d.IsDir() {
			return nil
		}
		if filepath.Ext(path) == ".jsonl" {
			files = append(files, path)
		}
		return nil
	})
	sort.Strings(files)
	for _, path := range files {
		im.importCodexFile(path, stats)
	}
}

func (im *Importer) importCodexFile(path string, stats *Stats) {
	f, err := os.Open(path)
	if err != nil {
		stats.Errors++
		return
	}
	defer f.Close()
	sessionID := filepath.Base(path)
	projectContext := "Codex Session"
	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 0, 64*1024), 4*1024*1024)
	for scanner.Scan() {
		line := scanner.Text()
		var header map[string]interface{}
		if json.Unmarshal([]byte(line), &header) == nil && parse.IsCodexSessionHeader(header) {
			continue
		}
		parsed := parse.ParseCodexLine(line)
		if parsed == nil {
			stats.Errors++
			continue
		}
		if parsed.ProjectContext != "" {
			projectContext = parsed.ProjectContext
		}
		ts, inferred := im.nextTimestamp(sessionID, parsed.Timestamp)
		im.emit(schema.SourceCodex, sessionID, projectContext, parsed.Role, parsed.Content, ts, inferred, parsed.Metadata, stats)
	}
}

func (im *Importer) importClaudeHistory(ctx context.Context, stats *Stats) {
	if !im.Config.EnableClaude {
		return
	}
	f, err := os.Open(im.Config.ClaudeHistory)
	if err != nil {
		return
	}
	defer f.Close()
	const sessionID = "history"
	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 0, 64*1024), 4*1024*1024)
	for scanner.Scan() {
		parsed := parse.ParseClaudeLine(scanner.Text())
		if parsed == nil {
			stats.Errors++
			continue
		}
		project := parsed.ProjectContext
		if project == "" {
			project = "Claude History"
		}
		ts, inferred := im.nextTimestamp(sessionID, parsed.Timestamp)
		im.emit(schema.SourceClaude, sessionID, project, parsed.Role, parsed.Content, ts, inferred, parsed.Metadata, stats)
	}
}

func (im *Importer) importClaudeProjects(ctx context.Context, stats *Stats) {
	if !im.Config.EnableClaude {
		return
	}
	matches, err := filepath.Glob(filepath.Join(im.Config.ClaudeProjects, "*", "*.jsonl"))
	if err != nil {
		return
	}
	sort.Strings(matches)
	for _, path := range matches {
		f, err := os.Open(path)
		if err != nil {
			stats.Errors++
			continue
		}
		sessionID := strings.TrimSuffix(filepath.Base(path), ".jsonl")
		project := filepath.Base(filepath.Dir(path))
		scanner := bufio.NewScanner(f)
		scanner.Buffer(make([]byte, 0, 64*1024), 4*1024*1024)
		for scanner.Scan() {
			parsed := parse.ParseClaudeSessionLine(scanner.Text())
			if parsed == nil {
				stats.Errors++
				continue
			}
			if parsed.ProjectContext != "" {
				project = parsed.ProjectContext
			}
			ts, inferred := im.nextTimestamp(sessionID, parsed.Timestamp)
			im.emit(schema.SourceClaude, sessionID, project, parsed.Role, parsed.Content, ts, inferred, parsed.Metadata, stats)
		}
		f.Close()
	}
}

func (im *Importer) importCursor(ctx context.Context, stats *Stats) {
	if !im.Config.EnableCursor {
		return
	}
	entries, err := os.ReadDir(im.Config.CursorStorage)
	if err != nil {
		return
	}
	for _, e := range entries {
		if !e.IsDir() {
			continue
		}
		dbPath := filepath.Join(im.Config.CursorStorage, e.Name(), "state.vscdb")
		info, err := os.Stat(dbPath)
		if err != nil {
			continue
		}
		sessionID := e.Name()
		messages, err := readCursorDB(dbPath)
		if err != nil {
			stats.Errors++
			continue
		}
		baseline := info.ModTime().UTC()
		im.lastTS[sessionID] = baseline
		for _, m := range messages {
			ts, inferred := im.nextTimestamp(sessionID, nil)
			if t, ok := parse.TimestampFromMetadata(m.Metadata); ok {
				ts = t
				inferred = false
				im.lastTS[sessionID] = t
			}
			im.emit(schema.SourceCursor, sessionID, sessionID, m.Role, parse.TrimChars(m.Content, 4000), ts, inferred, m.Metadata, stats)
		}
	}
}

func readCursorDB(dbPath string) ([]parse.CursorMessage, error) {
	db, err := sql.Open("sqlite", dbPath+"?mode=ro")
	if err != nil {
		return nil, err
	}
	defer db.Close()
	rows, err := db.Query(`SELECT value FROM ItemTable WHERE key LIKE '%chat%' OR key LIKE '%composer%' OR key LIKE '%bubble%'`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var all []parse.CursorMessage
	for rows.Next() {
		var value []byte
		if rows.Scan(&value) != nil {
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

// importAntigravity walks each Antigravity session directory under the
// configured brain root. It first emits one mandatory summary event over
// the whole directory (file/byte/image counts), then imports every *.md
// artifact in the directory, preferring "<file>.md.resolved" content over
// "<file>.md" when both exist. The "<file>.md.metadata.json" sidecar, if
// present, is always read from its unresolved name — there is no resolved
// variant of metadata.
func (im *Importer) importAntigravity(ctx context.Context, stats *Stats) {
	if !im.Config.EnableAntigravity {
		return
	}
	entries, err := os.ReadDir(im.Config.AntigravityBrain)
	if err != nil {
		return
	}
	for _, e := range entries {
		if !e.IsDir() {
			continue
		}
		dir := filepath.Join(im.Config.AntigravityBrain, e.Name())
		sessionID := e.Name()
		im.importAntigravitySession(dir, sessionID, stats)
	}
}

func (im *Importer) importAntigravitySession(dir, sessionID string, stats *Stats) {
	files, err := os.ReadDir(dir)
	if err != nil {
		stats.Errors++
		return
	}

	sessionTS := time.Now().UTC()
	if info, err := os.Stat(dir); err == nil {
		sessionTS = info.ModTime().UTC()
	}

	var sessionStats parse.AntigravitySessionStats
	var mdFiles []string
	for _, f := range files {
		if f.IsDir() {
			continue
		}
		info, err := f.Info()
		if err != nil {
			continue
		}
		sessionStats.AddFile(f.Name(), info.Size())
		if strings.HasSuffix(f.Name(), ".md") {
			mdFiles = append(mdFiles, f.Name())
		}
	}
	sort.Strings(mdFiles)

	summaryMeta := map[string]interface{}{
		"imported":                true,
		"antigravity_total_files": sessionStats.TotalFiles,
		"antigravity_total_bytes": sessionStats.TotalBytes,
		"antigravity_image_count": sessionStats.ImageCount,
		"antigravity_image_exts":  sessionStats.SortedImageExts(),
	}
	im.lastTS[sessionID] = sessionTS
	im.emit(schema.SourceAntigravity, sessionID, sessionID, "system", sessionStats.SummaryContent(), sessionTS, false, summaryMeta, stats)

	for _, name := range mdFiles {
		im.importAntigravityArtifact(dir, sessionID, name, stats)
	}
}

func (im *Importer) importAntigravityArtifact(dir, sessionID, name string, stats *Stats) {
	base := filepath.Join(dir, name)
	variant := base
	if _, err := os.Stat(base + ".resolved"); err == nil {
		variant = base + ".resolved"
	}

	raw, err := os.ReadFile(variant)
	if err != nil {
		stats.Errors++
		return
	}
	body := parse.TrimChars(string(raw), parse.MaxAntigravityChars)
	if strings.TrimSpace(body) == "" {
		return
	}

	meta := map[string]interface{}{
		"file_name":           name,
		"antigravity_variant": filepath.Base(variant),
	}
	ts := sessionTimestampFromFile(base)
	if mraw, err := os.ReadFile(base + ".metadata.json"); err == nil {
		if parsed, ok := parse.ParseAntigravityMetadata(mraw); ok {
			if parsed.ArtifactType != "" {
				meta["antigravity_artifact_type"] = parsed.ArtifactType
			}
			if parsed.Summary != "" {
				meta["antigravity_artifact_summary"] = parsed.Summary
			}
			if t, ok := parse.TimestampFromMetadata(parsed.Raw); ok {
				ts = t
			}
		}
	}
	im.lastTS[sessionID] = ts
	content := parse.AntigravityArtifactContent(name, body)
	im.emit(schema.SourceAntigravity, sessionID, sessionID, "assistant", content, ts, false, meta, stats)
}

// sessionTimestampFromFile falls back to path's own mtime, then the
// current time, when no metadata timestamp is available.
func sessionTimestampFromFile(path string) time.Time {
	if info, err := os.Stat(path); err == nil {
		return info.ModTime().UTC()
	}
	return time.Now().UTC()
}

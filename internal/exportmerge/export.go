// Package exportmerge implements the verbatim filtered export and the
// deduplicating two-stage merge tools that operate on completed master log
// files, independent of the live daemon.
package exportmerge

import (
	"bufio"
	"encoding/json"
	"io"
	"os"
	"strings"
	"time"

	"contrail/internal/schema"
)

// Filter narrows an export to matching events. Zero-valued fields are not
// applied.
type Filter struct {
	After    time.Time
	Before   time.Time
	Project  string // prefix match against project_context
	Tool     string // exact match against source_tool
	Hostname string // exact match against metadata.hostname
}

func (f Filter) matches(ev *schema.Event) bool {
	if !f.After.IsZero() || !f.Before.IsZero() {
		ts, err := time.Parse(time.RFC3339, ev.Timestamp)
		if err != nil {
			return false
		}
		if !f.After.IsZero() && ts.Before(f.After) {
			return false
		}
		if !f.Before.IsZero() && ts.After(f.Before) {
			return false
		}
	}
	if f.Project != "" && !strings.HasPrefix(ev.ProjectContext, f.Project) {
		return false
	}
	if f.Tool != "" && ev.SourceTool != f.Tool {
		return false
	}
	if f.Hostname != "" {
		h, _ := ev.Metadata["hostname"].(string)
		if h != f.Hostname {
			return false
		}
	}
	return true
}

// Stats summarizes one Export run.
type Stats struct {
	Written int
	Skipped int
	Errors  int
}

// Export copies every line of src matching filter to dst verbatim (the
// exact bytes Export read, not a re-serialization) so exported logs remain
// byte-identical to what a live daemon or backfill wrote.
func Export(src io.Reader, dst io.Writer, filter Filter) (Stats, error) {
	var stats Stats
	scanner := bufio.NewScanner(src)
	scanner.Buffer(make([]byte, 0, 64*1024), 8*1024*1024)
	w := bufio.NewWriter(dst)
	defer w.Flush()

	for scanner.Scan() {
		line := scanner.Bytes()
		if len(strings.TrimSpace(string(line))) == 0 {
			continue
		}
		var ev schema.Event
		if err := json.Unmarshal(line, &ev); err != nil {
			stats.Errors++
			continue
		}
		if !filter.matches(&ev) {
			stats.Skipped++
			continue
		}
		if _, err := w.Write(line); err != nil {
			return stats, err
		}
		if err := w.WriteByte('\n'); err != nil {
			return stats, err
		}
		stats.Written++
	}
	return stats, scanner.Err()
}

// ExportFile is a convenience wrapper around Export for file paths.
func ExportFile(srcPath, dstPath string, filter Filter) (Stats, error) {
	src, err := os.Open(srcPath)
	if err != nil {
		return Stats{}, err
	}
	defer src.Close()
	dst, err := os.Create(dstPath)
	if err != nil {
		return Stats{}, err
	}
	defer dst.Close()
	return Export(src, dst, filter)
}

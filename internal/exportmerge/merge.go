package exportmerge

import (
	"bufio"
	"encoding/json"
	"io"
	"os"

	"contrail/internal/schema"
	"contrail/pkg/dedup"
	"contrail/pkg/fingerprint"
)

// MergeStats summarizes one Merge run. SkippedUUID and SkippedFingerprint
// count the two dedup stages separately: the former is an exact re-import
// of the same event_id, the latter is the same conversation independently
// captured by two sources.
type MergeStats struct {
	Written            int
	SkippedUUID        int
	SkippedFingerprint int
	Errors             int
}

// Merge reads base then each of extra, in order, writing every event to dst
// exactly once. Stage 1 dedups on event_id (exact re-import of the same
// file is a no-op); stage 2 dedups on the content fingerprint (the same
// conversation captured independently by two sources collapses to one
// record). Malformed lines are counted as errors and skipped, never abort
// the merge.
func Merge(dst io.Writer, base io.Reader, extra ...io.Reader) (MergeStats, error) {
	var stats MergeStats
	ids := dedup.NewStringSet(1024)
	contentHashes := dedup.NewUint64Set(1024)
	w := bufio.NewWriter(dst)
	defer w.Flush()

	sources := append([]io.Reader{base}, extra...)
	for _, src := range sources {
		scanner := bufio.NewScanner(src)
		scanner.Buffer(make([]byte, 0, 64*1024), 8*1024*1024)
		for scanner.Scan() {
			line := scanner.Bytes()
			if len(line) == 0 {
				continue
			}
			var ev schema.Event
			if err := json.Unmarshal(line, &ev); err != nil {
				stats.Errors++
				continue
			}
			if ids.CheckAndAdd(ev.EventID) {
				stats.SkippedUUID++
				continue
			}
			key := fingerprint.MergeFingerprint(ev.SourceTool, ev.ProjectContext, ev.SessionID, ev.Timestamp, ev.Interaction.Role, ev.Interaction.Content)
			if contentHashes.CheckAndAdd(key) {
				stats.SkippedFingerprint++
				continue
			}
			out, err := json.Marshal(&ev)
			if err != nil {
				stats.Errors++
				continue
			}
			if _, err := w.Write(out); err != nil {
				return stats, err
			}
			if err := w.WriteByte('\n'); err != nil {
				return stats, err
			}
			stats.Written++
		}
		if err := scanner.Err(); err != nil {
			return stats, err
		}
	}
	return stats, nil
}

// MergeFiles merges baseAndExtra[0] (the base, rewritten in place through a
// temp file) with the remaining paths, matching the CLI's "merge additional
// logs into the first" contract.
func MergeFiles(outPath string, paths ...string) (MergeStats, error) {
	if len(paths) == 0 {
		return MergeStats{}, nil
	}
	var readers []io.Reader
	var files []*os.File
	defer func() {
		for _, f := range files {
			f.Close()
		}
	}()
	for _, p := range paths {
		f, err := os.Open(p)
		if err != nil {
			return MergeStats{}, err
		}
		files = append(files, f)
		readers = append(readers, f)
	}

	out, err := os.Create(outPath)
	if err != nil {
		return MergeStats{}, err
	}
	defer out.Close()

	return Merge(out, readers[0], readers[1:]...)
}

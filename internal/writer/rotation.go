package writer

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/klauspost/compress/gzip"
)

const activeLogName = "master_log.jsonl"

// archivePrefix/archiveSuffix bound the timestamp segment of an archive
// filename: master_log.<YYYYMMDDTHHMMSSZ>.jsonl[.gz].
const archivePrefix = "master_log."
const archiveSuffix = ".jsonl"

// IsArchiveName reports whether name is a rotated archive (not the active
// log), recognizing both the plain and optional .gz compressed form.
func IsArchiveName(name string) bool {
	if name == activeLogName {
		return false
	}
	if !strings.HasPrefix(name, archivePrefix) {
		return false
	}
	return strings.HasSuffix(name, archiveSuffix) || strings.HasSuffix(name, archiveSuffix+".gz")
}

// DiscoverArchives lists archive files for the log at logPath, sorted
// lexicographically — which, given the UTC-basic-timestamp naming scheme,
// is also chronological order.
func DiscoverArchives(logPath string) ([]string, error) {
	dir := filepath.Dir(logPath)
	entries, err := os.ReadDir(dir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("reading log directory: %w", err)
	}
	var archives []string
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		if IsArchiveName(e.Name()) {
			archives = append(archives, filepath.Join(dir, e.Name()))
		}
	}
	sort.Strings(archives)
	return archives, nil
}

// DiscoverLogs returns all archives plus the active log appended last, if it exists.
func DiscoverLogs(logPath string) ([]string, error) {
	archives, err := DiscoverArchives(logPath)
	if err != nil {
		return nil, err
	}
	if _, err := os.Stat(logPath); err == nil {
		archives = append(archives, logPath)
	}
	return archives, nil
}

func archiveName(compress bool) string {
	ts := time.Now().UTC().Format("20060102T150405Z")
	name := archivePrefix + ts + archiveSuffix
	if compress {
		name += ".gz"
	}
	return name
}

// rotate renames the active log to a timestamped archive (optionally
// gzip-compressing it), opens a fresh empty active log, and prunes the
// oldest archives beyond keepFiles. Returns the new, empty active file.
func rotate(logPath string, keepFiles int, compress bool) (*os.File, error) {
	if keepFiles < 1 {
		keepFiles = 1
	}
	dir := filepath.Dir(logPath)
	dest := filepath.Join(dir, archiveName(compress))

	if compress {
		if err := compressRename(logPath, dest); err != nil {
			return nil, fmt.Errorf("compressing rotated archive: %w", err)
		}
	} else if err := os.Rename(logPath, dest); err != nil {
		return nil, fmt.Errorf("renaming active log to archive: %w", err)
	}

	f, err := os.OpenFile(logPath, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0o644)
	if err != nil {
		return nil, fmt.Errorf("opening fresh active log: %w", err)
	}

	if err := pruneArchives(logPath, keepFiles); err != nil {
		return f, fmt.Errorf("pruning archives: %w", err)
	}
	return f, nil
}

func compressRename(src, dest string) error {
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()

	out, err := os.Create(dest)
	if err != nil {
		return err
	}
	gz := gzip.NewWriter(out)
	if _, err := io.Copy(gz, in); err != nil {
		gz.Close()
		out.Close()
		return err
	}
	if err := gz.Close(); err != nil {
		out.Close()
		return err
	}
	if err := out.Close(); err != nil {
		return err
	}
	return os.Remove(src)
}

// pruneArchives keeps at most keepFiles archives, removing the oldest first.
func pruneArchives(logPath string, keepFiles int) error {
	archives, err := DiscoverArchives(logPath)
	if err != nil {
		return err
	}
	if len(archives) <= keepFiles {
		return nil
	}
	toPrune := archives[:len(archives)-keepFiles]
	for _, a := range toPrune {
		if err := os.Remove(a); err != nil && !os.IsNotExist(err) {
			return err
		}
	}
	return nil
}

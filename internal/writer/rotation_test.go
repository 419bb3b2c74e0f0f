package writer

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestIsArchiveName(t *testing.T) {
	assert.False(t, IsArchiveName("master_log.jsonl"))
	assert.True(t, IsArchiveName("master_log.20260101T000000Z.jsonl"))
	assert.True(t, IsArchiveName("master_log.20260101T000000Z.jsonl.gz"))
	assert.False(t, IsArchiveName("unrelated.jsonl"))
}

func TestRotateCreatesArchiveAndFreshActiveFile(t *testing.T) {
	dir := t.TempDir()
	logPath := filepath.Join(dir, "master_log.jsonl")
	require.NoError(t, os.WriteFile(logPath, []byte("{\"a\":1}\n"), 0o644))

	f, err := rotate(logPath, 5, false)
	require.NoError(t, err)
	defer f.Close()

	archives, err := DiscoverArchives(logPath)
	require.NoError(t, err)
	assert.Len(t, archives, 1)

	info, err := os.Stat(logPath)
	require.NoError(t, err)
	assert.Equal(t, int64(0), info.Size())
}

func TestRotateCompressesWhenRequested(t *testing.T) {
	dir := t.TempDir()
	logPath := filepath.Join(dir, "master_log.jsonl")
	require.NoError(t, os.WriteFile(logPath, []byte("{\"a\":1}\n"), 0o644))

	f, err := rotate(logPath, 5, true)
	require.NoError(t, err)
	defer f.Close()

	archives, err := DiscoverArchives(logPath)
	require.NoError(t, err)
	require.Len(t, archives, 1)
	assert.True(t, IsArchiveName(filepath.Base(archives[0])))
	assert.Contains(t, archives[0], ".gz")
}

func TestPruneArchivesKeepsOnlyNewest(t *testing.T) {
	dir := t.TempDir()
	logPath := filepath.Join(dir, "master_log.jsonl")
	names := []string{
		"master_log.20260101T000000Z.jsonl",
		"master_log.20260102T000000Z.jsonl",
		"master_log.20260103T000000Z.jsonl",
	}
	for _, n := range names {
		require.NoError(t, os.WriteFile(filepath.Join(dir, n), []byte("x"), 0o644))
	}

	require.NoError(t, pruneArchives(logPath, 2))

	archives, err := DiscoverArchives(logPath)
	require.NoError(t, err)
	require.Len(t, archives, 2)
	assert.Contains(t, archives[0], "20260102")
	assert.Contains(t, archives[1], "20260103")
}

func TestDiscoverLogsAppendsActiveLogLast(t *testing.T) {
	dir := t.TempDir()
	logPath := filepath.Join(dir, "master_log.jsonl")
	require.NoError(t, os.WriteFile(filepath.Join(dir, "master_log.20260101T000000Z.jsonl"), []byte("x"), 0o644))
	require.NoError(t, os.WriteFile(logPath, []byte("y"), 0o644))

	logs, err := DiscoverLogs(logPath)
	require.NoError(t, err)
	require.Len(t, logs, 2)
	assert.Equal(t, logPath, logs[len(logs)-1])
}

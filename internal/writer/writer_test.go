package writer

import (
	"bufio"
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	"contrail/internal/schema"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

func newTestEvent(content string) *schema.Event {
	return schema.New(schema.SourceCodex, "/project", "session-1", "user", content, time.Time{}, nil)
}

func TestWriterWritesAndStopsCleanly(t *testing.T) {
	dir := t.TempDir()
	logPath := filepath.Join(dir, "master_log.jsonl")
	w := New(logPath, 1<<20, 5, false, logrus.New())
	require.NoError(t, w.Start())

	require.NoError(t, w.Write(context.Background(), newTestEvent("hello")))
	require.NoError(t, w.Write(context.Background(), newTestEvent("world")))
	w.Stop()

	f, err := os.Open(logPath)
	require.NoError(t, err)
	defer f.Close()
	scanner := bufio.NewScanner(f)
	var lines int
	for scanner.Scan() {
		lines++
	}
	assert.Equal(t, 2, lines)
}

func TestWriterRejectsInvalidEvent(t *testing.T) {
	dir := t.TempDir()
	w := New(filepath.Join(dir, "master_log.jsonl"), 1<<20, 5, false, logrus.New())
	require.NoError(t, w.Start())
	defer w.Stop()

	bad := &schema.Event{}
	err := w.Write(context.Background(), bad)
	assert.Error(t, err)
}

func TestWriterRotatesPastMaxBytes(t *testing.T) {
	dir := t.TempDir()
	logPath := filepath.Join(dir, "master_log.jsonl")
	w := New(logPath, 10, 5, false, logrus.New())
	require.NoError(t, w.Start())

	for i := 0; i < 5; i++ {
		require.NoError(t, w.Write(context.Background(), newTestEvent("some reasonably long message content")))
	}
	w.Stop()

	archives, err := DiscoverArchives(logPath)
	require.NoError(t, err)
	assert.NotEmpty(t, archives)
}

func TestWriterWriteAfterStopReturnsErrClosed(t *testing.T) {
	dir := t.TempDir()
	w := New(filepath.Join(dir, "master_log.jsonl"), 1<<20, 5, false, logrus.New())
	require.NoError(t, w.Start())
	w.Stop()

	err := w.Write(context.Background(), newTestEvent("too late"))
	assert.ErrorIs(t, err, ErrClosed)
}

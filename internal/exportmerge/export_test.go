package exportmerge

import (
	"encoding/json"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"contrail/internal/schema"
)

func TestExportFiltersByProjectPrefix(t *testing.T) {
	src := strings.NewReader(
		toLine(schema.SourceCodex, "/Users/dev/projA", time.Now()) +
			toLine(schema.SourceCodex, "/Users/dev/projB", time.Now()),
	)
	var dst strings.Builder
	stats, err := Export(src, &dst, Filter{Project: "/Users/dev/projA"})
	require.NoError(t, err)
	assert.Equal(t, 1, stats.Written)
	assert.Equal(t, 1, stats.Skipped)
	assert.Contains(t, dst.String(), "projA")
}

func TestExportFiltersByTimeWindow(t *testing.T) {
	old := time.Now().Add(-48 * time.Hour)
	recent := time.Now()
	src := strings.NewReader(toLine(schema.SourceCodex, "/p", old) + toLine(schema.SourceCodex, "/p", recent))
	var dst strings.Builder
	stats, err := Export(src, &dst, Filter{After: time.Now().Add(-1 * time.Hour)})
	require.NoError(t, err)
	assert.Equal(t, 1, stats.Written)
}

func TestExportCountsMalformedLinesAsErrors(t *testing.T) {
	src := strings.NewReader("not json\n" + toLine(schema.SourceCodex, "/p", time.Now()))
	var dst strings.Builder
	stats, err := Export(src, &dst, Filter{})
	require.NoError(t, err)
	assert.Equal(t, 1, stats.Errors)
	assert.Equal(t, 1, stats.Written)
}

func toLine(sourceTool, project string, ts time.Time) string {
	return toLineWithSession(sourceTool, project, "session", ts)
}

func toLineWithSession(sourceTool, project, sessionID string, ts time.Time) string {
	ev := schema.New(sourceTool, project, sessionID, "user", "hi", ts, nil)
	b, _ := json.Marshal(ev)
	return string(b) + "\n"
}

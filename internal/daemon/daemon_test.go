package daemon

import (
	"os"
	"path/filepath"
	"strconv"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestIsRunningFalseWhenNoPidFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "daemon.pid")
	running, err := IsRunning(path)
	require.NoError(t, err)
	assert.False(t, running)
}

func TestIsRunningFalseOnMalformedPidFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "daemon.pid")
	require.NoError(t, os.WriteFile(path, []byte("not-a-pid"), 0o644))
	running, err := IsRunning(path)
	require.NoError(t, err)
	assert.False(t, running)
}

func TestIsRunningFalseWhenLiveProcessHasDifferentName(t *testing.T) {
	// The current test binary is alive but isn't named "contrail", so
	// IsRunning must not mistake an unrelated live PID for the daemon.
	path := filepath.Join(t.TempDir(), "daemon.pid")
	require.NoError(t, os.WriteFile(path, []byte(strconv.Itoa(os.Getpid())), 0o644))
	running, err := IsRunning(path)
	require.NoError(t, err)
	assert.False(t, running)
}

func TestWriteAndRemovePidFileRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "daemon.pid")
	require.NoError(t, WritePidFile(path))

	raw, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, strconv.Itoa(os.Getpid()), string(raw))

	require.NoError(t, RemovePidFile(path))
	_, err = os.Stat(path)
	assert.True(t, os.IsNotExist(err))
}

func TestRemovePidFileToleratesAlreadyMissing(t *testing.T) {
	path := filepath.Join(t.TempDir(), "daemon.pid")
	assert.NoError(t, RemovePidFile(path))
}

func TestPidFilePathIsUnderHomeState(t *testing.T) {
	assert.Equal(t, "/home/u/.contrail/state/daemon.pid", PidFilePath("/home/u"))
}

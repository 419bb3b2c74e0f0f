// Package daemon tracks whether the Contrail live-capture daemon is
// currently running, via a PID file the daemon writes on start and removes
// on clean shutdown, cross-checked against the live process table so a
// stale PID file left behind by a crash is never mistaken for a running
// daemon.
package daemon

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/shirou/gopsutil/v3/process"
)

// PidFilePath is the well-known location the daemon writes its PID to.
func PidFilePath(home string) string {
	return home + "/.contrail/state/daemon.pid"
}

// WritePidFile records the current process's PID so merge/export tooling
// can detect a live daemon.
func WritePidFile(path string) error {
	if err := os.MkdirAll(dirOf(path), 0o755); err != nil {
		return fmt.Errorf("creating pid file directory: %w", err)
	}
	return os.WriteFile(path, []byte(strconv.Itoa(os.Getpid())), 0o644)
}

// RemovePidFile removes the PID file on clean shutdown, ignoring a
// not-found error.
func RemovePidFile(path string) error {
	err := os.Remove(path)
	if os.IsNotExist(err) {
		return nil
	}
	return err
}

// IsRunning reports whether the PID recorded at path names a process that
// is currently alive and plausibly the Contrail daemon (by executable
// name), so a merge or import tool can refuse to run alongside it.
func IsRunning(path string) (bool, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return false, nil
		}
		return false, err
	}
	pid, err := strconv.Atoi(strings.TrimSpace(string(raw)))
	if err != nil {
		return false, nil
	}
	alive, err := process.PidExists(int32(pid))
	if err != nil || !alive {
		return false, nil
	}
	proc, err := process.NewProcess(int32(pid))
	if err != nil {
		return false, nil
	}
	name, err := proc.Name()
	if err != nil {
		return true, nil
	}
	return strings.Contains(strings.ToLower(name), "contrail"), nil
}

func dirOf(path string) string {
	idx := strings.LastIndex(path, "/")
	if idx < 0 {
		return "."
	}
	return path[:idx]
}

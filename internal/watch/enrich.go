// Package watch implements the per-source live watchers: Cursor, Codex,
// Claude (global history and per-project), and Antigravity. All share the
// same structural template — discover, position at EOF, wait for change,
// read/parse/redact/enrich/submit, detect session end.
package watch

import (
	"os/exec"
	"os/user"
	"strings"

	"github.com/atotto/clipboard"
	"github.com/shirou/gopsutil/v3/host"
	"github.com/sirupsen/logrus"
)

// clipboardPrefixLen bounds how much of the current clipboard contents is
// compared against captured text to decide a paste likely originated there.
const clipboardPrefixLen = 20

// addIdentity enriches meta with the current OS username and device name.
func addIdentity(meta map[string]interface{}) {
	if u, err := user.Current(); err == nil && u.Username != "" {
		meta["user"] = u.Username
	}
	if info, err := host.Info(); err == nil && info.Hostname != "" {
		meta["hostname"] = info.Hostname
	}
}

// checkClipboard sets metadata.copied_to_clipboard when role is assistant
// and the current clipboard text either equals content or contains a
// clipboardPrefixLen-character prefix of it. Silent (no metadata key) if
// the clipboard is unavailable or the check does not match.
func checkClipboard(role, content string, meta map[string]interface{}) {
	if role != "assistant" {
		return
	}
	clip, err := clipboard.ReadAll()
	if err != nil {
		return
	}
	runes := []rune(content)
	matched := clip == content
	if !matched && len(runes) > clipboardPrefixLen {
		matched = strings.Contains(clip, string(runes[:clipboardPrefixLen]))
	}
	if matched {
		meta["copied_to_clipboard"] = true
	}
}

// gitEnrich captures git_branch and file_effects for projectPath, best
// effort. Failures are silent: external command enrichment never fails the
// event.
func gitEnrich(projectPath string, meta map[string]interface{}, logger *logrus.Logger) {
	if projectPath == "" {
		return
	}
	branch, err := runGit(projectPath, "rev-parse", "--abbrev-ref", "HEAD")
	if err == nil && branch != "" {
		meta["git_branch"] = branch
	}
	status, err := runGit(projectPath, "status", "--short")
	if err == nil {
		lines := splitNonEmptyLines(status)
		if len(lines) > 0 {
			meta["file_effects"] = lines
		}
	}
}

func runGit(dir string, args ...string) (string, error) {
	cmd := exec.Command("git", append([]string{"-C", dir}, args...)...)
	out, err := cmd.Output()
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(string(out)), nil
}

func splitNonEmptyLines(s string) []string {
	var out []string
	for _, line := range strings.Split(s, "\n") {
		if strings.TrimSpace(line) != "" {
			out = append(out, line)
		}
	}
	return out
}

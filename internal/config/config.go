// Package config resolves Contrail's configuration from environment
// variables, with tilde expansion and silent fall-back to defaults on
// anything malformed — never aborting the process over one bad value. An
// optional secondary YAML file may override defaults before environment
// variables are applied.
package config

import (
	"os"
	"os/user"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/sirupsen/logrus"
	"gopkg.in/yaml.v2"
)

const (
	defaultLogRel              = ".contrail/logs/master_log.jsonl"
	defaultCursorStorageRel    = "Library/Application Support/Cursor/User/workspaceStorage"
	defaultCodexRootRel        = ".codex/sessions"
	defaultClaudeHistoryRel    = ".claude/history.jsonl"
	defaultClaudeProjectsRel   = ".claude/projects"
	defaultAntigravityBrainRel = ".gemini/antigravity/brain"

	// HistoryImportMarkerRel is the optional, non-authoritative marker file
	// the one-shot importer writes on success; reused verbatim from the
	// original implementation.
	HistoryImportMarkerRel = ".contrail/state/history_import_done.json"

	defaultCursorSilenceSecs = 5
	defaultCodexSilenceSecs  = 3
	defaultClaudeSilenceSecs = 5
	defaultLogMaxBytes       = 524_288_000
	defaultLogKeepFiles      = 5
)

// Config is Contrail's resolved runtime configuration.
type Config struct {
	LogPath string `yaml:"log_path"`

	CursorStorage    string `yaml:"cursor_storage"`
	CodexRoot        string `yaml:"codex_root"`
	ClaudeHistory    string `yaml:"claude_history"`
	ClaudeProjects   string `yaml:"claude_projects"`
	AntigravityBrain string `yaml:"antigravity_brain"`

	EnableCursor      bool `yaml:"enable_cursor"`
	EnableCodex       bool `yaml:"enable_codex"`
	EnableClaude      bool `yaml:"enable_claude"`
	EnableAntigravity bool `yaml:"enable_antigravity"`

	CursorSilenceSecs int `yaml:"cursor_silence_secs"`
	CodexSilenceSecs  int `yaml:"codex_silence_secs"`
	ClaudeSilenceSecs int `yaml:"claude_silence_secs"`

	LogMaxBytes  int64 `yaml:"log_max_bytes"`
	LogKeepFiles int   `yaml:"log_keep_files"`

	// CompressArchives gates optional gzip compression of rotated archives.
	// Off by default.
	CompressArchives bool `yaml:"compress_archives"`

	// TracingEnabled gates the local-only otel tracer provider.
	TracingEnabled bool `yaml:"tracing_enabled"`

	LogLevel  string `yaml:"log_level"`
	LogFormat string `yaml:"log_format"`
}

// Load resolves configuration: defaults, then an optional YAML overlay
// (if yamlPath is non-empty and readable), then environment-variable
// overrides, exactly in that precedence order.
func Load(yamlPath string) *Config {
	home, _ := os.UserHomeDir()
	if home == "" {
		if u, err := user.Current(); err == nil {
			home = u.HomeDir
		}
	}

	cfg := &Config{
		LogPath:           filepath.Join(home, defaultLogRel),
		CursorStorage:     filepath.Join(home, defaultCursorStorageRel),
		CodexRoot:         filepath.Join(home, defaultCodexRootRel),
		ClaudeHistory:     filepath.Join(home, defaultClaudeHistoryRel),
		ClaudeProjects:    filepath.Join(home, defaultClaudeProjectsRel),
		AntigravityBrain:  filepath.Join(home, defaultAntigravityBrainRel),
		EnableCursor:      true,
		EnableCodex:       true,
		EnableClaude:      true,
		EnableAntigravity: true,
		CursorSilenceSecs: defaultCursorSilenceSecs,
		CodexSilenceSecs:  defaultCodexSilenceSecs,
		ClaudeSilenceSecs: defaultClaudeSilenceSecs,
		LogMaxBytes:       defaultLogMaxBytes,
		LogKeepFiles:      defaultLogKeepFiles,
		LogLevel:          "info",
		LogFormat:         "json",
	}

	if yamlPath != "" {
		if data, err := os.ReadFile(yamlPath); err == nil {
			if err := yaml.Unmarshal(data, cfg); err != nil {
				logrus.WithError(err).WithField("path", yamlPath).Warn("failed to parse config overlay, ignoring")
			}
		}
	}

	cfg.LogPath = envPath("CONTRAIL_LOG_PATH", cfg.LogPath, home)
	cfg.CursorStorage = envPath("CONTRAIL_CURSOR_STORAGE", cfg.CursorStorage, home)
	cfg.CodexRoot = envPath("CONTRAIL_CODEX_ROOT", cfg.CodexRoot, home)
	cfg.ClaudeHistory = envPath("CONTRAIL_CLAUDE_HISTORY", cfg.ClaudeHistory, home)
	cfg.ClaudeProjects = envPath("CONTRAIL_CLAUDE_PROJECTS", cfg.ClaudeProjects, home)
	cfg.AntigravityBrain = envPath("CONTRAIL_ANTIGRAVITY_BRAIN", cfg.AntigravityBrain, home)

	cfg.EnableCursor = envBool("CONTRAIL_ENABLE_CURSOR", cfg.EnableCursor)
	cfg.EnableCodex = envBool("CONTRAIL_ENABLE_CODEX", cfg.EnableCodex)
	cfg.EnableClaude = envBool("CONTRAIL_ENABLE_CLAUDE", cfg.EnableClaude)
	cfg.EnableAntigravity = envBool("CONTRAIL_ENABLE_ANTIGRAVITY", cfg.EnableAntigravity)

	cfg.CursorSilenceSecs = envInt("CONTRAIL_CURSOR_SILENCE_SECS", cfg.CursorSilenceSecs)
	cfg.CodexSilenceSecs = envInt("CONTRAIL_CODEX_SILENCE_SECS", cfg.CodexSilenceSecs)
	cfg.ClaudeSilenceSecs = envInt("CONTRAIL_CLAUDE_SILENCE_SECS", cfg.ClaudeSilenceSecs)

	cfg.LogMaxBytes = envInt64("CONTRAIL_LOG_MAX_BYTES", cfg.LogMaxBytes)
	cfg.LogKeepFiles = envInt("CONTRAIL_LOG_KEEP_FILES", cfg.LogKeepFiles)
	if cfg.LogKeepFiles < 1 {
		cfg.LogKeepFiles = 1
	}

	return cfg
}

// expandTilde handles only the "~/" prefix, matching the original's
// deliberately narrow tilde expansion.
func expandTilde(p, home string) string {
	if strings.HasPrefix(p, "~/") {
		return filepath.Join(home, p[2:])
	}
	return p
}

func envPath(name, def, home string) string {
	v := strings.TrimSpace(os.Getenv(name))
	if v == "" {
		return def
	}
	return expandTilde(v, home)
}

// envBool matches "1"/"true"/"yes"/"on" (case-insensitive) as true; any
// other set value, including an explicit "false", falls back to the
// default rather than forcing false — matching the original's behavior.
func envBool(name string, def bool) bool {
	v := strings.ToLower(strings.TrimSpace(os.Getenv(name)))
	switch v {
	case "1", "true", "yes", "on":
		return true
	case "":
		return def
	default:
		return def
	}
}

func envInt(name string, def int) int {
	v := strings.TrimSpace(os.Getenv(name))
	if v == "" {
		return def
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return def
	}
	return n
}

func envInt64(name string, def int64) int64 {
	v := strings.TrimSpace(os.Getenv(name))
	if v == "" {
		return def
	}
	n, err := strconv.ParseInt(v, 10, 64)
	if err != nil {
		return def
	}
	return n
}

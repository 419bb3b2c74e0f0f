// Command contrail runs the live-capture daemon: it tails Cursor, Codex,
// Claude, and Antigravity history as each tool writes it, normalizes and
// redacts every interaction, and appends it to the local master log.
package main

import (
	"context"
	"flag"
	"os"
	"os/signal"
	"syscall"

	"github.com/sirupsen/logrus"

	"contrail/internal/config"
	"contrail/internal/daemon"
	"contrail/internal/metrics"
	"contrail/internal/tracing"
	"contrail/internal/watch"
	"contrail/internal/writer"
)

func main() {
	var configPath string
	var metricsAddr string
	flag.StringVar(&configPath, "config", "", "path to an optional YAML config overlay")
	flag.StringVar(&metricsAddr, "metrics-addr", "", "address to serve Prometheus metrics on, e.g. :9090 (disabled if empty)")
	flag.Parse()

	logger := logrus.StandardLogger()
	logger.SetFormatter(&logrus.JSONFormatter{})

	cfg := config.Load(configPath)
	level, err := logrus.ParseLevel(cfg.LogLevel)
	if err != nil {
		level = logrus.InfoLevel
	}
	logger.SetLevel(level)
	if cfg.LogFormat == "text" {
		logger.SetFormatter(&logrus.TextFormatter{})
	}

	shutdownTracing := tracing.Setup(cfg.TracingEnabled)

	home, _ := os.UserHomeDir()
	pidPath := daemon.PidFilePath(home)
	if err := daemon.WritePidFile(pidPath); err != nil {
		logger.WithError(err).Warn("failed to write pid file")
	}
	defer daemon.RemovePidFile(pidPath)

	if metricsAddr != "" {
		go metrics.Serve(metricsAddr, logger)
	}

	w := writer.New(cfg.LogPath, cfg.LogMaxBytes, cfg.LogKeepFiles, cfg.CompressArchives, logger)
	if err := w.Start(); err != nil {
		logger.WithError(err).Fatal("failed to start writer")
	}

	emitter := watch.NewEmitter(w, logger)

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	go func() {
		for err := range w.Errors() {
			logger.WithError(err).Error("fatal writer error, shutting down")
			cancel()
			return
		}
	}()

	var watchers []interface{ Run(context.Context) error }
	if cfg.EnableCursor {
		watchers = append(watchers, &watch.CursorWatcher{StorageRoot: cfg.CursorStorage, SilenceSecs: cfg.CursorSilenceSecs, Emitter: emitter, Logger: logger})
	}
	if cfg.EnableCodex {
		watchers = append(watchers, &watch.CodexWatcher{Root: cfg.CodexRoot, SilenceSecs: cfg.CodexSilenceSecs, Emitter: emitter, Logger: logger})
	}
	if cfg.EnableClaude {
		watchers = append(watchers, &watch.ClaudeHistoryWatcher{Path: cfg.ClaudeHistory, SilenceSecs: cfg.ClaudeSilenceSecs, Emitter: emitter, Logger: logger})
		watchers = append(watchers, &watch.ClaudeProjectsWatcher{Root: cfg.ClaudeProjects, SilenceSecs: cfg.ClaudeSilenceSecs, Emitter: emitter, Logger: logger})
	}
	if cfg.EnableAntigravity {
		watchers = append(watchers, &watch.AntigravityWatcher{Root: cfg.AntigravityBrain, SilenceSecs: cfg.ClaudeSilenceSecs, Emitter: emitter, Logger: logger})
	}

	for _, wch := range watchers {
		wch := wch
		go func() {
			if err := wch.Run(ctx); err != nil && err != context.Canceled {
				logger.WithError(err).Error("watcher exited")
			}
		}()
	}

	logger.Info("contrail daemon started")
	<-ctx.Done()
	logger.Info("shutting down")

	w.Stop()
	if err := shutdownTracing(context.Background()); err != nil {
		logger.WithError(err).Warn("tracer shutdown failed")
	}
}

// Command import-history runs the one-shot backfill: a single recursive
// pass over each source's on-disk history, deduplicated against the
// existing master log, writing a completion marker on success.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"

	"github.com/sirupsen/logrus"

	"contrail/internal/backfill"
	"contrail/internal/config"
	"contrail/internal/writer"
)

func main() {
	var configPath string
	var force bool
	flag.StringVar(&configPath, "config", "", "path to an optional YAML config overlay")
	flag.BoolVar(&force, "force", false, "re-run even if the completion marker already exists")
	flag.Parse()

	logger := logrus.StandardLogger()
	cfg := config.Load(configPath)

	w := writer.New(cfg.LogPath, cfg.LogMaxBytes, cfg.LogKeepFiles, cfg.CompressArchives, logger)
	if err := w.Start(); err != nil {
		fmt.Fprintf(os.Stderr, "failed to start writer: %v\n", err)
		os.Exit(1)
	}

	importer := &backfill.Importer{Config: cfg, Writer: w, Logger: logger}
	home, _ := os.UserHomeDir()
	stats, err := importer.Run(context.Background(), home, force)
	w.Stop()
	if err != nil {
		fmt.Fprintf(os.Stderr, "backfill failed: %v\n", err)
		os.Exit(1)
	}

	fmt.Printf("imported=%d skipped=%d errors=%d\n", stats.Imported, stats.Skipped, stats.Errors)
}

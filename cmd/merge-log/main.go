// Command merge-log deduplicates and merges one or more exported logs into
// a base file. It refuses to run while the live daemon holds the base log
// open, since merging into a file the daemon is actively appending to would
// race the writer.
package main

import (
	"flag"
	"fmt"
	"os"

	"contrail/internal/daemon"
	"contrail/internal/exportmerge"
)

func main() {
	var output string
	flag.StringVar(&output, "output", "", "destination path (required)")
	flag.Parse()

	args := flag.Args()
	if output == "" || len(args) < 1 {
		fmt.Fprintln(os.Stderr, "usage: merge-log --output <path> <base.jsonl> [extra.jsonl ...]")
		os.Exit(1)
	}

	home, _ := os.UserHomeDir()
	running, err := daemon.IsRunning(daemon.PidFilePath(home))
	if err == nil && running {
		fmt.Fprintln(os.Stderr, "refusing to merge: the contrail daemon appears to be running")
		os.Exit(1)
	}

	stats, err := exportmerge.MergeFiles(output, args...)
	if err != nil {
		fmt.Fprintf(os.Stderr, "merge failed: %v\n", err)
		os.Exit(1)
	}
	fmt.Printf("written=%d skipped_uuid=%d skipped_fingerprint=%d errors=%d\n",
		stats.Written, stats.SkippedUUID, stats.SkippedFingerprint, stats.Errors)
}

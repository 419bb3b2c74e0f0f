// Command export-log writes a filtered, verbatim copy of the master log.
package main

import (
	"flag"
	"fmt"
	"os"
	"time"

	"contrail/internal/config"
	"contrail/internal/exportmerge"
)

func main() {
	var output, after, before, project, tool, hostname, source string
	flag.StringVar(&output, "output", "", "destination path (required)")
	flag.StringVar(&after, "after", "", "only include events at or after this RFC3339 timestamp")
	flag.StringVar(&before, "before", "", "only include events at or before this RFC3339 timestamp")
	flag.StringVar(&project, "project", "", "only include events whose project_context has this prefix")
	flag.StringVar(&tool, "tool", "", "only include events with this exact source_tool")
	flag.StringVar(&hostname, "hostname", "", "only include events with this exact metadata.hostname")
	flag.StringVar(&source, "source", "", "source log path (defaults to the configured master log)")
	flag.Parse()

	if output == "" {
		fmt.Fprintln(os.Stderr, "--output is required")
		os.Exit(1)
	}

	cfg := config.Load("")
	if source == "" {
		source = cfg.LogPath
	}

	var filter exportmerge.Filter
	if after != "" {
		t, err := time.Parse(time.RFC3339, after)
		if err != nil {
			fmt.Fprintf(os.Stderr, "invalid --after: %v\n", err)
			os.Exit(1)
		}
		filter.After = t
	}
	if before != "" {
		t, err := time.Parse(time.RFC3339, before)
		if err != nil {
			fmt.Fprintf(os.Stderr, "invalid --before: %v\n", err)
			os.Exit(1)
		}
		filter.Before = t
	}
	filter.Project = project
	filter.Tool = tool
	filter.Hostname = hostname

	stats, err := exportmerge.ExportFile(source, output, filter)
	if err != nil {
		fmt.Fprintf(os.Stderr, "export failed: %v\n", err)
		os.Exit(1)
	}
	fmt.Printf("written=%d skipped=%d errors=%d\n", stats.Written, stats.Skipped, stats.Errors)
}

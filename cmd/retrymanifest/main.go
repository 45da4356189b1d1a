// Command retrymanifest turns the failed items of a session log into a
// manifest that gdcfetch can take with -m.
package main

import (
	"errors"
	"flag"
	"fmt"
	"io"
	"os"

	"github.com/dmitrijs2005/gdcfetch/internal/retry"
)

func main() {
	os.Exit(run(os.Args[1:], os.Stdout, os.Stderr))
}

func run(args []string, stdout, stderr io.Writer) int {
	fs := flag.NewFlagSet("retrymanifest", flag.ContinueOnError)
	fs.SetOutput(stderr)
	logPath := fs.String("l", "", "session log to read (required)")
	out := fs.String("out", "retry_manifest.tsv", "manifest to write")

	if err := fs.Parse(args); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return 0
		}
		return 1
	}
	if *logPath == "" {
		fmt.Fprintln(stderr, "retrymanifest: -l is required")
		fs.Usage()
		return 1
	}

	res, err := retry.WriteManifest(*logPath, *out)
	if err != nil {
		fmt.Fprintf(stderr, "retrymanifest: %v\n", err)
		return 1
	}
	for _, d := range res.Dropped {
		fmt.Fprintf(stderr, "skipped %s/%s: %s\n", d.Record.ID, d.Record.Filename, d.Reason)
	}
	fmt.Fprintf(stdout, "%d failed item(s) written to %s\n", len(res.Entries), *out)
	return 0
}

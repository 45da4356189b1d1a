// Command gdcruns lists the most recent gdcfetch runs recorded under an
// output root.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"text/tabwriter"
	"time"

	"github.com/dmitrijs2005/gdcfetch/internal/buildinfo"
	"github.com/dmitrijs2005/gdcfetch/internal/filex"
	"github.com/dmitrijs2005/gdcfetch/internal/history"
	"github.com/dmitrijs2005/gdcfetch/internal/models"
	"github.com/dustin/go-humanize"
)

func main() {
	os.Exit(run(context.Background(), os.Args[1:], os.Stdout, os.Stderr))
}

func run(ctx context.Context, args []string, stdout, stderr io.Writer) int {
	fs := flag.NewFlagSet("gdcruns", flag.ContinueOnError)
	fs.SetOutput(stderr)
	root := fs.String("o", ".", "output root of the runs")
	n := fs.Int("n", 20, "number of runs to show")
	version := fs.Bool("version", false, "print build information and exit")

	if err := fs.Parse(args); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return 0
		}
		return 1
	}
	if *version {
		buildinfo.PrintBuildData(stdout)
		return 0
	}

	layout, err := filex.NewLayout(*root)
	if err != nil {
		fmt.Fprintf(stderr, "gdcruns: %v\n", err)
		return 1
	}
	if _, ok := filex.FileSize(layout.HistoryPath()); !ok {
		fmt.Fprintf(stderr, "gdcruns: no run history at %s\n", layout.HistoryPath())
		return 1
	}

	store, err := history.Open(ctx, layout.HistoryPath())
	if err != nil {
		fmt.Fprintf(stderr, "gdcruns: %v\n", err)
		return 1
	}
	defer store.Close()

	runs, err := store.Recent(ctx, *n)
	if err != nil {
		fmt.Fprintf(stderr, "gdcruns: %v\n", err)
		return 1
	}
	printRuns(stdout, runs)
	return 0
}

func printRuns(w io.Writer, runs []history.RunRecord) {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "RUN ID\tSTARTED\tDURATION\tMODE\tOK\tFAILED\tBYTES\tINPUT")
	for _, r := range runs {
		sum := models.RunSummary{Counts: r.Counts}
		ok := r.Counts[models.StatusSuccess] + r.Counts[models.StatusSkippedExisting] + r.Counts[models.StatusFound]

		duration := "running"
		switch {
		case r.Interrupted:
			duration = "interrupted"
		case !r.FinishedAt.IsZero():
			duration = r.FinishedAt.Sub(r.StartedAt).Round(time.Second).String()
		}

		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%d\t%d\t%s\t%s\n",
			r.RunID,
			r.StartedAt.Local().Format(time.DateTime),
			duration,
			r.Mode,
			ok,
			sum.Failed(),
			humanize.IBytes(uint64(max(r.BytesTransferred, 0))),
			r.Input,
		)
	}
	_ = tw.Flush()
}

package app

import (
	"fmt"
	"io"
	"text/tabwriter"
	"time"

	"github.com/dmitrijs2005/gdcfetch/internal/models"
	"github.com/dustin/go-humanize"
)

// PrintSummary writes the human-readable run summary.
func PrintSummary(w io.Writer, sum *models.RunSummary) {
	elapsed := sum.FinishedAt.Sub(sum.StartedAt).Round(10 * time.Millisecond)

	fmt.Fprintf(w, "Run %s finished in %s\n", sum.RunID, elapsed)
	if sum.Interrupted {
		fmt.Fprintln(w, "Run was interrupted; run the same command again to resume.")
	}

	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	for _, st := range models.AllStatuses {
		if n := sum.Counts[st]; n > 0 {
			fmt.Fprintf(tw, "  %s\t%d\n", st, n)
		}
	}
	fmt.Fprintf(tw, "  TOTAL\t%d\n", sum.Total())
	_ = tw.Flush()

	fmt.Fprintf(w, "Transferred: %s\n", humanize.IBytes(uint64(max(sum.BytesTransferred, 0))))
	fmt.Fprintf(w, "Session log: %s\n", sum.SessionLog)

	if sum.Failed() == 0 {
		return
	}
	if sum.FailedItems != "" {
		fmt.Fprintf(w, "Failed items: %s\n", sum.FailedItems)
	}
	if sum.RetryCommand != "" {
		fmt.Fprintf(w, "%d item(s) failed. To retry them:\n  %s\n", sum.Failed(), sum.RetryCommand)
	}
}

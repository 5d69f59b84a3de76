package snapshot

import (
	"fmt"
	"io"

	"github.com/Layr-Labs/staking-snap/internal/types/numbers"
	"github.com/olekukonko/tablewriter"
)

const displayPlaces = 4

// PrintReport writes the console summary of a finished run.
func PrintReport(w io.Writer, result *Result) {
	table := tablewriter.NewWriter(w)
	table.SetHeader([]string{HeaderStakingAddress, HeaderTotalAmount, "Tokens"})
	table.SetAutoFormatHeaders(false)
	table.SetColumnAlignment([]int{tablewriter.ALIGN_LEFT, tablewriter.ALIGN_RIGHT, tablewriter.ALIGN_RIGHT})

	for _, row := range result.Totals.Rows() {
		table.Append([]string{
			row.Address,
			row.Amount.String(),
			numbers.FormatTokenAmount(row.Amount, numbers.TokenDecimals, displayPlaces),
		})
	}
	if result.Totals.Len() > 0 {
		total := result.Totals.Total()
		table.SetFooter([]string{"Total", total.String(), numbers.FormatTokenAmount(total, numbers.TokenDecimals, displayPlaces)})
	}
	table.Render()

	fmt.Fprintf(w, "Total Number of Staking Addresses: %d\n", result.Totals.Len())
	if result.SnapshotFile != nil {
		fmt.Fprintf(w, "Snapshot written to %s\n", result.SnapshotFile.FullPath())
	}

	if result.FetchReport != nil && result.FetchReport.HasFailures() {
		fmt.Fprintf(w, "\nWARNING: %d block window(s) could not be fetched, the snapshot may be incomplete:\n", len(result.FetchReport.FailedWindows))
		for _, window := range result.FetchReport.FailedWindows {
			fmt.Fprintf(w, "  blocks %d to %d\n", window.From, window.To)
		}
	}
	if len(result.FailedAddresses) > 0 {
		fmt.Fprintf(w, "\nWARNING: %d address(es) could not be processed and were left out:\n", len(result.FailedAddresses))
		for _, failed := range result.FailedAddresses {
			fmt.Fprintf(w, "  %s: %s\n", failed.Address, failed.Error)
		}
	}
}

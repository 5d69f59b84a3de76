package cmd

import (
	"fmt"

	"github.com/Layr-Labs/staking-snap/internal/version"
	"github.com/spf13/cobra"
)

var runVersionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the staking-snap version",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Fprintf(cmd.OutOrStdout(), "Version: %s\nCommit: %s\n", version.GetVersion(), version.GetCommit())
	},
}

package cmd

import (
	"os"
	"strings"

	"github.com/Layr-Labs/staking-snap/internal/config"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

var rootCmd = &cobra.Command{
	Use:           "staking-snap",
	Short:         "Snapshot the stakes held in the DBC staking contract",
	SilenceUsage:  true,
	SilenceErrors: false,
}

func Execute() {
	err := rootCmd.Execute()
	if err != nil {
		os.Exit(1)
	}
}

func init() {
	initConfig(rootCmd)

	rootCmd.PersistentFlags().Bool(config.Debug, false, `"true" or "false"`)
	rootCmd.PersistentFlags().StringP(config.ChainKey, "c", config.Chain_Dbc.String(), "The chain to use (dbc, local)")

	rootCmd.PersistentFlags().String(config.EthereumRpcUrl, "", `e.g. "http://<hostname>:8545", defaults to the chain's public RPC`)
	rootCmd.PersistentFlags().Duration(config.EthereumRpcTimeout, config.DefaultRpcTimeout, `Timeout for a single RPC request`)
	rootCmd.PersistentFlags().Uint(config.EthereumRpcRetryCount, config.DefaultRetryCount, `Number of attempts made for each RPC request`)
	rootCmd.PersistentFlags().Duration(config.EthereumRpcRetryDelay, config.DefaultRetryDelay, `Delay between attempts of an RPC request`)

	rootCmd.PersistentFlags().Bool(config.DataDogStatsdEnabled, false, `e.g. "true" or "false"`)
	rootCmd.PersistentFlags().String(config.DataDogStatsdUrl, "", `e.g. "localhost:8125"`)
	rootCmd.PersistentFlags().Bool(config.DataDogTracingEnabled, false, `e.g. "true" or "false"`)

	rootCmd.PersistentFlags().String(config.PrometheusTextfile, "", `Write metrics to this file in the node_exporter textfile format at the end of the run`)

	// setup sub commands
	rootCmd.AddCommand(snapshotCmd)
	rootCmd.AddCommand(runVersionCmd)

	// bind any subcommand flags
	snapshotCmd.PersistentFlags().String(config.StakingContractAddress, "", `Staking contract address, defaults to the chain's contract`)
	snapshotCmd.PersistentFlags().Uint64(config.StakingStartBlock, 0, `First block to scan for Staked events, defaults to the contract's deployment block`)
	snapshotCmd.PersistentFlags().String(config.StakingEndBlock, config.LatestBlock, `Last block to scan, a block number or "latest"`)
	snapshotCmd.PersistentFlags().Uint64(config.StakingBatchSize, config.DefaultBatchSize, `Number of blocks per eth_getLogs request`)
	snapshotCmd.PersistentFlags().Uint64(config.StakingMaxStakeIndex, config.DefaultMaxStakeIndex, `Maximum number of stake indices read per address`)
	snapshotCmd.PersistentFlags().Bool(config.StakingStopOnProbeError, false, `Treat a failed stake read as the end of the address's stake list`)
	snapshotCmd.PersistentFlags().String(config.OutputDir, config.DefaultOutputDir, `Directory the snapshot is written to`)
	snapshotCmd.PersistentFlags().Bool(config.OutputStakeDetailsCsv, false, `Also write every stake record to a CSV file`)
	snapshotCmd.PersistentFlags().Bool(config.OutputHash, true, `Write a .sha256 file next to the snapshot`)
	snapshotCmd.PersistentFlags().String(config.OutputSigningKey, "", `Path to an armored PGP private key used to sign the snapshot (optional)`)
	snapshotCmd.PersistentFlags().Bool(config.Progress, false, `Show a progress bar while reading stakes`)

	rootCmd.PersistentFlags().VisitAll(func(f *pflag.Flag) {
		key := config.KebabToSnakeCase(f.Name)
		viper.BindPFlag(key, f) //nolint:errcheck
		viper.BindEnv(key)      //nolint:errcheck
	})
}

func initConfig(cmd *cobra.Command) {
	viper.SetEnvPrefix(config.ENV_PREFIX)

	viper.SetEnvKeyReplacer(strings.NewReplacer("-", "_", ".", "_"))

	viper.AutomaticEnv()
}

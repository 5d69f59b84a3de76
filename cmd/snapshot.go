package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/Layr-Labs/staking-snap/internal/config"
	"github.com/Layr-Labs/staking-snap/internal/tracer"
	"github.com/Layr-Labs/staking-snap/internal/version"
	"github.com/Layr-Labs/staking-snap/pkg/clients/ethereum"
	"github.com/Layr-Labs/staking-snap/pkg/contractCaller/sequentialStakeCaller"
	"github.com/Layr-Labs/staking-snap/pkg/fetcher"
	"github.com/Layr-Labs/staking-snap/pkg/logger"
	"github.com/Layr-Labs/staking-snap/pkg/metrics"
	"github.com/Layr-Labs/staking-snap/pkg/snapshot"
	"github.com/Layr-Labs/staking-snap/pkg/stakes"
	"github.com/ethereum/go-ethereum/common"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
	"go.uber.org/zap"
)

var snapshotCmd = &cobra.Command{
	Use:   "snapshot",
	Short: "Take a snapshot of every staking address and its total stake",
	Long: `Scan the staking contract's Staked events between the start and end block, read every
stake record of each staker and export the per-address totals to an xlsx file.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		initSnapshotCmd(cmd)
		cfg := config.NewConfig()

		l, err := logger.NewLogger(&logger.LoggerConfig{Debug: cfg.Debug})
		if err != nil {
			return err
		}
		defer l.Sync() //nolint:errcheck

		if err := cfg.Validate(); err != nil {
			l.Sugar().Errorw("Invalid configuration", zap.Error(err))
			return err
		}

		l.Sugar().Infow("staking-snap",
			zap.String("version", version.GetVersion()),
			zap.String("commit", version.GetCommit()),
			zap.String("chain", cfg.Chain.String()),
		)

		ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		tracer.StartTracer(cfg.DataDogConfig.EnableTracing, cfg.Chain)
		defer tracer.StopTracer()

		metricsClients, err := metrics.InitMetricsSinksFromConfig(cfg, l)
		if err != nil {
			l.Sugar().Errorw("Failed to setup metrics sink", zap.Error(err))
			return err
		}

		sink, err := metrics.NewMetricsSink(&metrics.MetricsSinkConfig{}, metricsClients)
		if err != nil {
			l.Sugar().Errorw("Failed to setup metrics sink", zap.Error(err))
			return err
		}
		defer sink.Flush()

		svc, err := buildSnapshotService(cfg, sink, l)
		if err != nil {
			l.Sugar().Errorw("Failed to setup snapshot service", zap.Error(err))
			return err
		}

		if _, err := svc.Run(ctx); err != nil {
			l.Sugar().Errorw("Snapshot failed", zap.Error(err))
			return err
		}
		return nil
	},
}

func buildSnapshotService(cfg *config.Config, sink *metrics.MetricsSink, l *zap.Logger) (*snapshot.SnapshotService, error) {
	endBlock, latest, err := cfg.StakingConfig.ParseEndBlock()
	if err != nil {
		return nil, err
	}
	target := fetcher.AtBlock(endBlock)
	if latest {
		target = fetcher.LatestBlock()
	}

	signingKey := ""
	if cfg.OutputConfig.SigningKeyPath != "" {
		key, err := os.ReadFile(cfg.OutputConfig.SigningKeyPath)
		if err != nil {
			return nil, fmt.Errorf("error reading signing key: %w", err)
		}
		signingKey = string(key)
	}

	contractAddress := common.HexToAddress(cfg.StakingConfig.ContractAddress)

	client := ethereum.NewClient(ethereum.ConvertGlobalConfigToEthereumConfig(&cfg.EthereumRpcConfig), l)

	f, err := fetcher.NewFetcher(client, &fetcher.FetcherConfig{
		ContractAddress: contractAddress,
		BatchSize:       cfg.StakingConfig.BatchSize,
	}, sink, l)
	if err != nil {
		return nil, err
	}

	caller, err := sequentialStakeCaller.NewSequentialStakeCaller(client, contractAddress, l)
	if err != nil {
		return nil, err
	}

	enumerator := stakes.NewEnumerator(caller, &stakes.EnumeratorConfig{
		MaxStakeIndex:    cfg.StakingConfig.MaxStakeIndex,
		StopOnProbeError: cfg.StakingConfig.StopOnProbeError,
	}, sink, l)

	builder := stakes.NewSnapshotBuilder(enumerator, &stakes.SnapshotBuilderConfig{
		ShowProgress: cfg.OutputConfig.ShowProgress,
	}, sink, l)

	return snapshot.NewSnapshotService(&snapshot.SnapshotConfig{
		Chain:           cfg.Chain.String(),
		ChainId:         cfg.GetChainId(),
		Version:         version.GetVersion(),
		ContractAddress: contractAddress.Hex(),
		StartBlock:      cfg.StakingConfig.StartBlock,
		EndBlock:        target,
		OutputDir:       cfg.OutputConfig.Dir,
		StakeDetailsCsv: cfg.OutputConfig.StakeDetailsCsv,
		Hash:            cfg.OutputConfig.Hash,
		SigningKey:      signingKey,
	}, f, builder, client, sink, l), nil
}

func initSnapshotCmd(cmd *cobra.Command) {
	cmd.Flags().VisitAll(func(f *pflag.Flag) {
		if err := viper.BindPFlag(config.KebabToSnakeCase(f.Name), f); err != nil {
			fmt.Printf("Failed to bind flag '%s' - %+v\n", f.Name, err)
		}
		if err := viper.BindEnv(config.KebabToSnakeCase(f.Name)); err != nil {
			fmt.Printf("Failed to bind env '%s' - %+v\n", f.Name, err)
		}
	})
}

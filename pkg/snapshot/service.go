// Package snapshot runs a staking snapshot end to end and exports the result.
package snapshot

import (
	"context"
	"fmt"
	"io"
	"math/big"
	"os"
	"time"

	"github.com/Layr-Labs/staking-snap/internal/tracer"
	"github.com/Layr-Labs/staking-snap/pkg/fetcher"
	"github.com/Layr-Labs/staking-snap/pkg/metrics"
	"github.com/Layr-Labs/staking-snap/pkg/metrics/metricsTypes"
	"github.com/Layr-Labs/staking-snap/pkg/stakes"
	"github.com/Layr-Labs/staking-snap/pkg/utils"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

type ChainIdClient interface {
	GetChainId(ctx context.Context) (*big.Int, error)
}

type SnapshotConfig struct {
	Chain           string
	ChainId         uint64
	Version         string
	ContractAddress string
	StartBlock      uint64
	EndBlock        fetcher.BlockTarget

	OutputDir       string
	StakeDetailsCsv bool
	Hash            bool
	// SigningKey is an armored PGP private key. Empty disables signing.
	SigningKey string
}

// Result is the outcome of a snapshot run.
type Result struct {
	RunId           string
	Totals          *stakes.AddressTotals
	Stakes          *stakes.StakesByAddress
	FailedAddresses []*stakes.FailedAddress
	FetchReport     *fetcher.FetchReport
	SnapshotFile    *SnapshotFile
}

type SnapshotService struct {
	config        *SnapshotConfig
	fetcher       *fetcher.Fetcher
	builder       *stakes.SnapshotBuilder
	chainIdClient ChainIdClient
	logger        *zap.Logger
	metricsSink   *metrics.MetricsSink

	// Now and Out are replaceable for tests.
	Now func() time.Time
	Out io.Writer
}

func NewSnapshotService(
	cfg *SnapshotConfig,
	f *fetcher.Fetcher,
	builder *stakes.SnapshotBuilder,
	chainIdClient ChainIdClient,
	ms *metrics.MetricsSink,
	l *zap.Logger,
) *SnapshotService {
	if ms == nil {
		ms, _ = metrics.NewMetricsSink(&metrics.MetricsSinkConfig{}, nil)
	}
	return &SnapshotService{
		config:        cfg,
		fetcher:       f,
		builder:       builder,
		chainIdClient: chainIdClient,
		logger:        l,
		metricsSink:   ms,
		Now:           time.Now,
		Out:           os.Stdout,
	}
}

// Run fetches the Staked events, reads the stakes of every staker, exports the totals and
// prints the console report.
func (ss *SnapshotService) Run(ctx context.Context) (result *Result, err error) {
	startTime := time.Now()
	runId := uuid.New().String()

	span, ctx := tracer.StartSpan(ctx, "snapshot.run", map[string]interface{}{
		"chain":   ss.config.Chain,
		"runId":   runId,
		"version": ss.config.Version,
	})
	defer func() {
		tracer.FinishSpan(span, err)
		_ = ss.metricsSink.Timing(metricsTypes.Metric_Timing_SnapshotDuration, time.Since(startTime), []metricsTypes.MetricsLabel{
			{Name: "chain", Value: ss.config.Chain},
			{Name: "version", Value: ss.config.Version},
			{Name: "hasError", Value: fmt.Sprintf("%v", err != nil)},
		})
	}()

	ss.logger.Sugar().Infow("Starting staking snapshot",
		zap.String("runId", runId),
		zap.String("chain", ss.config.Chain),
		zap.String("contractAddress", ss.config.ContractAddress),
		zap.Uint64("startBlock", ss.config.StartBlock),
		zap.String("endBlock", ss.config.EndBlock.String()),
	)

	ss.checkChainId(ctx)

	if err := os.MkdirAll(ss.config.OutputDir, 0755); err != nil {
		return nil, fmt.Errorf("error creating output directory '%s': %w", ss.config.OutputDir, err)
	}

	events, fetchReport, err := ss.fetcher.FetchStakedEvents(ctx, ss.config.StartBlock, ss.config.EndBlock)
	if err != nil {
		return nil, fmt.Errorf("error fetching staked events: %w", err)
	}

	addresses := fetcher.UniqueUsers(events)
	ss.logger.Sugar().Infow("Found staking addresses",
		zap.Int("events", len(events)),
		zap.Int("addresses", len(addresses)),
	)

	built, err := ss.builder.Build(ctx, addresses)
	if err != nil {
		return nil, fmt.Errorf("error reading stakes: %w", err)
	}
	_ = ss.metricsSink.Gauge(metricsTypes.Metric_Gauge_SnapshotAddresses, float64(built.Totals.Len()), []metricsTypes.MetricsLabel{
		{Name: "chain", Value: ss.config.Chain},
	})

	result = &Result{
		RunId:           runId,
		Totals:          built.Totals,
		Stakes:          built.Stakes,
		FailedAddresses: built.FailedAddresses,
		FetchReport:     fetchReport,
	}

	snapshotFile, err := ss.export(result)
	if err != nil {
		return nil, err
	}
	result.SnapshotFile = snapshotFile

	PrintReport(ss.Out, result)
	return result, nil
}

func (ss *SnapshotService) export(result *Result) (*SnapshotFile, error) {
	snapshotFile := newSnapshotFile(ss.config.OutputDir, ss.Now())

	if err := WriteSpreadsheet(snapshotFile.FullPath(), result.Totals); err != nil {
		return nil, fmt.Errorf("error writing snapshot file: %w", err)
	}
	ss.logger.Sugar().Infow("Wrote snapshot file", zap.String("path", snapshotFile.FullPath()))

	if ss.config.StakeDetailsCsv {
		if err := WriteStakeDetails(snapshotFile.StakeDetailsFilePath(), result.Stakes); err != nil {
			return nil, err
		}
		ss.logger.Sugar().Infow("Wrote stake details", zap.String("path", snapshotFile.StakeDetailsFilePath()))
	}

	if ss.config.Hash {
		if err := snapshotFile.GenerateAndSaveSnapshotHash(); err != nil {
			return nil, err
		}
		ss.logger.Sugar().Infow("Wrote snapshot hash", zap.String("path", snapshotFile.HashFilePath()))
	}

	if ss.config.SigningKey != "" {
		if err := snapshotFile.SignSnapshot(ss.config.SigningKey); err != nil {
			return nil, err
		}
		ss.logger.Sugar().Infow("Wrote snapshot signature", zap.String("path", snapshotFile.SignatureFilePath()))
	}

	metadata := &SnapshotMetadata{
		RunId:           result.RunId,
		Version:         ss.config.Version,
		Chain:           ss.config.Chain,
		ChainId:         ss.config.ChainId,
		ContractAddress: ss.config.ContractAddress,
		FromBlock:       result.FetchReport.FromBlock,
		ToBlock:         result.FetchReport.ToBlock,
		AddressCount:    result.Totals.Len(),
		FailedWindows: utils.Map(result.FetchReport.FailedWindows, func(w fetcher.BlockRange, i uint64) string {
			return w.String()
		}),
		FailedAddresses: utils.Map(result.FailedAddresses, func(f *stakes.FailedAddress, i uint64) string {
			return f.Address
		}),
	}
	if err := snapshotFile.GenerateAndSaveMetadata(metadata); err != nil {
		return nil, err
	}
	return snapshotFile, nil
}

// checkChainId warns when the node reports a different chain than the one configured.
func (ss *SnapshotService) checkChainId(ctx context.Context) {
	if ss.chainIdClient == nil || ss.config.ChainId == 0 {
		return
	}
	chainId, err := ss.chainIdClient.GetChainId(ctx)
	if err != nil {
		ss.logger.Sugar().Warnw("Failed to get chain id from node", zap.Error(err))
		return
	}
	if !chainId.IsUint64() || chainId.Uint64() != ss.config.ChainId {
		ss.logger.Sugar().Warnw("Node chain id does not match the configured chain",
			zap.String("chain", ss.config.Chain),
			zap.Uint64("expectedChainId", ss.config.ChainId),
			zap.String("nodeChainId", chainId.String()),
		)
	}
}

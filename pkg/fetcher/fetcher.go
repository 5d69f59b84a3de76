// Package fetcher walks a block range in fixed-size windows and collects the staking
// contract's Staked events, one eth_getLogs request per window.
package fetcher

import (
	"context"
	"fmt"
	"math/big"
	"strings"
	"time"

	"github.com/Layr-Labs/staking-snap/internal/tracer"
	"github.com/Layr-Labs/staking-snap/pkg/metrics"
	"github.com/Layr-Labs/staking-snap/pkg/metrics/metricsTypes"
	"github.com/Layr-Labs/staking-snap/pkg/parser"
	"github.com/Layr-Labs/staking-snap/pkg/transactionLogParser"
	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/pkg/errors"
	"go.uber.org/zap"
)

// LogClient is the subset of the ethereum client used by the fetcher.
type LogClient interface {
	GetBlockNumber(ctx context.Context) (uint64, error)
	GetLogs(ctx context.Context, query ethereum.FilterQuery) ([]types.Log, error)
}

// BlockTarget is the inclusive end of a fetch, either a concrete block or the chain head.
type BlockTarget struct {
	Number uint64
	Latest bool
}

func LatestBlock() BlockTarget {
	return BlockTarget{Latest: true}
}

func AtBlock(number uint64) BlockTarget {
	return BlockTarget{Number: number}
}

func (b BlockTarget) String() string {
	if b.Latest {
		return "latest"
	}
	return fmt.Sprintf("%d", b.Number)
}

type BlockRange struct {
	From uint64
	To   uint64
}

func (b BlockRange) String() string {
	return fmt.Sprintf("%d-%d", b.From, b.To)
}

// FetchReport summarizes a fetch so partial coverage can be surfaced to the operator.
type FetchReport struct {
	FromBlock        uint64
	ToBlock          uint64
	WindowsRequested uint64
	FailedWindows    []BlockRange
	EventsCollected  uint64
	UndecodableLogs  uint64
}

func (r *FetchReport) HasFailures() bool {
	return len(r.FailedWindows) > 0
}

// FetcherConfig contains the configuration specific to the Fetcher
type FetcherConfig struct {
	ContractAddress common.Address
	// BatchSize is the number of blocks covered by a single eth_getLogs request.
	BatchSize uint64
}

type Fetcher struct {
	Client        LogClient
	Logger        *zap.Logger
	FetcherConfig *FetcherConfig

	logParser   *transactionLogParser.TransactionLogParser
	metricsSink *metrics.MetricsSink
}

func NewFetcher(client LogClient, cfg *FetcherConfig, ms *metrics.MetricsSink, l *zap.Logger) (*Fetcher, error) {
	if cfg.BatchSize == 0 {
		return nil, fmt.Errorf("batch size must be greater than 0")
	}
	logParser, err := transactionLogParser.NewTransactionLogParser(l)
	if err != nil {
		return nil, err
	}
	if ms == nil {
		ms, _ = metrics.NewMetricsSink(&metrics.MetricsSinkConfig{}, nil)
	}
	l.Sugar().Infow("Created fetcher",
		zap.String("contractAddress", cfg.ContractAddress.Hex()),
		zap.Uint64("batchSize", cfg.BatchSize),
	)
	return &Fetcher{
		Client:        client,
		Logger:        l,
		FetcherConfig: cfg,
		logParser:     logParser,
		metricsSink:   ms,
	}, nil
}

// ResolveEndBlock turns the target into a concrete block number. "latest" is resolved with a
// single eth_blockNumber call.
func (f *Fetcher) ResolveEndBlock(ctx context.Context, to BlockTarget) (uint64, error) {
	if !to.Latest {
		return to.Number, nil
	}
	blockNumber, err := f.Client.GetBlockNumber(ctx)
	if err != nil {
		f.Logger.Sugar().Errorw("Failed to resolve latest block", zap.Error(err))
		return 0, errors.Wrap(err, "failed to resolve latest block")
	}
	f.Logger.Sugar().Infow("Resolved latest block", zap.Uint64("blockNumber", blockNumber))
	return blockNumber, nil
}

// FetchStakedEvents collects every Staked event emitted by the contract in [from, to].
// A window whose request fails is logged, recorded in the report and skipped, so the result
// is best effort. Only resolving "latest" or a cancelled context returns an error.
func (f *Fetcher) FetchStakedEvents(ctx context.Context, from uint64, to BlockTarget) ([]*parser.StakedEvent, *FetchReport, error) {
	end, err := f.ResolveEndBlock(ctx, to)
	if err != nil {
		return nil, nil, err
	}

	report := &FetchReport{
		FromBlock:     from,
		ToBlock:       end,
		FailedWindows: make([]BlockRange, 0),
	}
	events := make([]*parser.StakedEvent, 0)

	if from > end {
		f.Logger.Sugar().Warnw("Start block is after end block, nothing to fetch",
			zap.Uint64("startBlock", from),
			zap.Uint64("endBlock", end),
		)
		return events, report, nil
	}

	batchSize := f.FetcherConfig.BatchSize
	for cursor := from; ; {
		if err := ctx.Err(); err != nil {
			return nil, report, err
		}

		windowEnd := end
		if end-cursor >= batchSize {
			windowEnd = cursor + batchSize - 1
		}

		windowEvents, err := f.fetchWindow(ctx, cursor, windowEnd, report)
		report.WindowsRequested++
		_ = f.metricsSink.Incr(metricsTypes.Metric_Incr_WindowRequested, nil, 1)
		if err != nil {
			if ctxErr := ctx.Err(); ctxErr != nil {
				return nil, report, ctxErr
			}
			f.Logger.Sugar().Errorw("Failed to fetch logs for block range",
				zap.Uint64("startBlock", cursor),
				zap.Uint64("endBlock", windowEnd),
				zap.Error(err),
			)
			report.FailedWindows = append(report.FailedWindows, BlockRange{From: cursor, To: windowEnd})
			_ = f.metricsSink.Incr(metricsTypes.Metric_Incr_WindowFailed, nil, 1)
		} else {
			events = append(events, windowEvents...)
			report.EventsCollected += uint64(len(windowEvents))
			_ = f.metricsSink.Incr(metricsTypes.Metric_Incr_LogsCollected, nil, float64(len(windowEvents)))
		}

		if windowEnd == end {
			break
		}
		cursor = windowEnd + 1
	}

	f.Logger.Sugar().Infow("Finished fetching staked events",
		zap.Uint64("startBlock", from),
		zap.Uint64("endBlock", end),
		zap.Uint64("windowsRequested", report.WindowsRequested),
		zap.Int("windowsFailed", len(report.FailedWindows)),
		zap.Uint64("eventsCollected", report.EventsCollected),
	)
	return events, report, nil
}

func (f *Fetcher) fetchWindow(ctx context.Context, startBlock uint64, endBlock uint64, report *FetchReport) (events []*parser.StakedEvent, err error) {
	startTime := time.Now()
	span, ctx := tracer.StartSpan(ctx, "fetcher.window", map[string]interface{}{
		"startBlock": startBlock,
		"endBlock":   endBlock,
	})
	defer func() {
		tracer.FinishSpan(span, err)
		_ = f.metricsSink.Timing(metricsTypes.Metric_Timing_WindowDuration, time.Since(startTime), []metricsTypes.MetricsLabel{
			{Name: "hasError", Value: fmt.Sprintf("%v", err != nil)},
		})
	}()

	f.Logger.Sugar().Infow(fmt.Sprintf("Fetching logs from block %d to %d", startBlock, endBlock),
		zap.Uint64("startBlock", startBlock),
		zap.Uint64("endBlock", endBlock),
	)

	logs, err := f.Client.GetLogs(ctx, ethereum.FilterQuery{
		FromBlock: new(big.Int).SetUint64(startBlock),
		ToBlock:   new(big.Int).SetUint64(endBlock),
		Addresses: []common.Address{f.FetcherConfig.ContractAddress},
		Topics:    [][]common.Hash{{f.logParser.StakedEventTopic()}},
	})
	if err != nil {
		return nil, err
	}

	events = make([]*parser.StakedEvent, 0, len(logs))
	for i := range logs {
		lg := &logs[i]
		if lg.Removed {
			continue
		}
		event, err := f.logParser.DecodeStakedEvent(lg)
		if err != nil {
			report.UndecodableLogs++
			f.Logger.Sugar().Warnw("Failed to decode staked event, skipping",
				zap.Uint64("blockNumber", lg.BlockNumber),
				zap.String("transactionHash", lg.TxHash.Hex()),
				zap.Uint("logIndex", lg.Index),
				zap.Error(err),
			)
			continue
		}
		events = append(events, event)
	}
	return events, nil
}

// UniqueUsers returns the lowercase hex addresses of the stakers in the order they were first
// seen.
func UniqueUsers(events []*parser.StakedEvent) []string {
	seen := make(map[string]struct{}, len(events))
	users := make([]string, 0)
	for _, e := range events {
		if e == nil {
			continue
		}
		user := strings.ToLower(e.User.Hex())
		if _, ok := seen[user]; ok {
			continue
		}
		seen[user] = struct{}{}
		users = append(users, user)
	}
	return users
}

package stakes

import (
	"context"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/Layr-Labs/staking-snap/internal/config"
	"github.com/Layr-Labs/staking-snap/pkg/metrics"
	"github.com/Layr-Labs/staking-snap/pkg/metrics/metricsTypes"
	"github.com/ethereum/go-ethereum/common"
	"github.com/schollz/progressbar/v3"
	"go.uber.org/zap"
)

type SnapshotBuilderConfig struct {
	ShowProgress bool
	// ProgressWriter receives the progress bar. Defaults to stderr.
	ProgressWriter io.Writer
}

type FailedAddress struct {
	Address string
	Error   string
}

type BuildResult struct {
	Totals          *AddressTotals
	Stakes          *StakesByAddress
	FailedAddresses []*FailedAddress
}

// SnapshotBuilder enumerates the stakes of each address, one address at a time, and aggregates
// them.
type SnapshotBuilder struct {
	enumerator  *Enumerator
	config      *SnapshotBuilderConfig
	logger      *zap.Logger
	metricsSink *metrics.MetricsSink
}

func NewSnapshotBuilder(enumerator *Enumerator, cfg *SnapshotBuilderConfig, ms *metrics.MetricsSink, l *zap.Logger) *SnapshotBuilder {
	if ms == nil {
		ms, _ = metrics.NewMetricsSink(&metrics.MetricsSinkConfig{}, nil)
	}
	return &SnapshotBuilder{
		enumerator:  enumerator,
		config:      cfg,
		logger:      l,
		metricsSink: ms,
	}
}

func (sb *SnapshotBuilder) newProgressBar(total int) *progressbar.ProgressBar {
	if !sb.config.ShowProgress {
		return nil
	}
	w := sb.config.ProgressWriter
	if w == nil {
		w = os.Stderr
	}
	return progressbar.NewOptions(total,
		progressbar.OptionSetWriter(w),
		progressbar.OptionSetDescription("reading stakes"),
		progressbar.OptionShowCount(),
		progressbar.OptionSetPredictTime(true),
		progressbar.OptionOnCompletion(func() {
			fmt.Fprintln(w)
		}),
	)
}

// Build reads the stakes of every address. An address whose stakes cannot be read is logged,
// recorded in the result and left out of the totals.
func (sb *SnapshotBuilder) Build(ctx context.Context, addresses []string) (*BuildResult, error) {
	result := &BuildResult{
		Stakes:          NewStakesByAddress(),
		FailedAddresses: make([]*FailedAddress, 0),
	}

	bar := sb.newProgressBar(len(addresses))

	for i, address := range addresses {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		address = strings.ToLower(address)

		if !common.IsHexAddress(address) {
			sb.recordFailure(result, address, fmt.Errorf("invalid address"))
		} else {
			records, err := sb.enumerator.EnumerateStakes(ctx, common.HexToAddress(address))
			if err != nil {
				if ctxErr := ctx.Err(); ctxErr != nil {
					return nil, ctxErr
				}
				sb.recordFailure(result, address, err)
			} else {
				result.Stakes.Set(address, records)
			}
		}

		if bar != nil {
			_ = bar.Add(1)
		}
		processed := i + 1
		if processed%config.ProgressLogEveryNAddress == 0 || processed == len(addresses) {
			sb.logger.Sugar().Infow(fmt.Sprintf("Processed %d/%d addresses", processed, len(addresses)),
				zap.Int("processed", processed),
				zap.Int("total", len(addresses)),
			)
		}
	}

	result.Totals = Aggregate(result.Stakes)
	return result, nil
}

func (sb *SnapshotBuilder) recordFailure(result *BuildResult, address string, err error) {
	sb.logger.Sugar().Errorw("Failed to process address, skipping",
		zap.String("address", address),
		zap.Error(err),
	)
	_ = sb.metricsSink.Incr(metricsTypes.Metric_Incr_AddressFailed, nil, 1)
	result.FailedAddresses = append(result.FailedAddresses, &FailedAddress{
		Address: address,
		Error:   err.Error(),
	})
}

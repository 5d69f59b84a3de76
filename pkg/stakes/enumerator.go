// Package stakes reads every stake record of an address from the staking contract and sums
// them into per-address totals.
package stakes

import (
	"context"
	"errors"
	"fmt"

	"github.com/Layr-Labs/staking-snap/pkg/contractCaller"
	"github.com/Layr-Labs/staking-snap/pkg/metrics"
	"github.com/Layr-Labs/staking-snap/pkg/metrics/metricsTypes"
	"github.com/ethereum/go-ethereum/common"
	"go.uber.org/zap"
)

type StakeRecord = contractCaller.StakeRecord

type EnumeratorConfig struct {
	// MaxStakeIndex caps the number of indices probed for a single address.
	MaxStakeIndex uint64
	// StopOnProbeError treats any failed read as the end of the list.
	StopOnProbeError bool
}

// Enumerator walks stakes(address, i) for i = 0, 1, 2, ... until the list ends.
type Enumerator struct {
	caller      contractCaller.IStakeCaller
	config      *EnumeratorConfig
	logger      *zap.Logger
	metricsSink *metrics.MetricsSink
}

func NewEnumerator(caller contractCaller.IStakeCaller, cfg *EnumeratorConfig, ms *metrics.MetricsSink, l *zap.Logger) *Enumerator {
	if ms == nil {
		ms, _ = metrics.NewMetricsSink(&metrics.MetricsSinkConfig{}, nil)
	}
	return &Enumerator{
		caller:      caller,
		config:      cfg,
		logger:      l,
		metricsSink: ms,
	}
}

// EnumerateStakes returns the stake records of address in index order.
//
// The list ends at the first record with a zero amount or when the contract reverts for the
// index. Any other failed read returns the records read so far together with the error,
// unless StopOnProbeError is set in which case it also ends the list.
func (e *Enumerator) EnumerateStakes(ctx context.Context, address common.Address) ([]*StakeRecord, error) {
	records := make([]*StakeRecord, 0)

	for index := uint64(0); ; index++ {
		if index >= e.config.MaxStakeIndex {
			e.logger.Sugar().Warnw("Reached max stake index, stopping enumeration",
				zap.String("address", address.Hex()),
				zap.Uint64("maxStakeIndex", e.config.MaxStakeIndex),
			)
			return records, nil
		}
		if err := ctx.Err(); err != nil {
			return records, err
		}

		stake, err := e.caller.GetStake(ctx, address, index)
		if err != nil {
			reverted := errors.Is(err, contractCaller.ErrStakeIndexOutOfRange)
			_ = e.metricsSink.Incr(metricsTypes.Metric_Incr_StakeProbeError, []metricsTypes.MetricsLabel{
				{Name: "reverted", Value: fmt.Sprintf("%v", reverted)},
			}, 1)

			if reverted || e.config.StopOnProbeError {
				e.logger.Sugar().Debugw("Stake read failed, treating as end of list",
					zap.String("address", address.Hex()),
					zap.Uint64("index", index),
					zap.Bool("reverted", reverted),
					zap.Error(err),
				)
				return records, nil
			}
			if ctxErr := ctx.Err(); ctxErr != nil {
				return records, ctxErr
			}
			return records, fmt.Errorf("failed to read stake %d for address %s: %w", index, address.Hex(), err)
		}

		if stake.IsEmpty() {
			_ = e.metricsSink.Incr(metricsTypes.Metric_Incr_StakeProbe, []metricsTypes.MetricsLabel{
				{Name: "result", Value: "empty"},
			}, 1)
			return records, nil
		}
		_ = e.metricsSink.Incr(metricsTypes.Metric_Incr_StakeProbe, []metricsTypes.MetricsLabel{
			{Name: "result", Value: "stake"},
		}, 1)
		records = append(records, stake)
	}
}

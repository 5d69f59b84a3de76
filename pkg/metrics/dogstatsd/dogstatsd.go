package dogstatsd

import (
	"fmt"
	"time"

	"github.com/DataDog/datadog-go/v5/statsd"
	"github.com/Layr-Labs/staking-snap/pkg/metrics/metricsTypes"
	"github.com/Layr-Labs/staking-snap/pkg/utils"
	"go.uber.org/zap"
)

type DogStatsdMetricsClient struct {
	client statsd.ClientInterface
	logger *zap.Logger
}

func NewDogStatsdMetricsClient(addr string, l *zap.Logger) (*DogStatsdMetricsClient, error) {
	s, err := statsd.New(addr,
		statsd.WithNamespace("staking_snap."),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create statsd client for '%s': %w", addr, err)
	}
	return NewDogStatsdMetricsClientWithStatsd(s, l), nil
}

// NewDogStatsdMetricsClientWithStatsd wraps an existing statsd client.
func NewDogStatsdMetricsClientWithStatsd(s statsd.ClientInterface, l *zap.Logger) *DogStatsdMetricsClient {
	return &DogStatsdMetricsClient{
		client: s,
		logger: l,
	}
}

func formatTags(labels []metricsTypes.MetricsLabel) []string {
	return utils.Map(labels, func(label metricsTypes.MetricsLabel, i uint64) string {
		return fmt.Sprintf("%s:%s", label.Name, label.Value)
	})
}

func (dsc *DogStatsdMetricsClient) Incr(name string, labels []metricsTypes.MetricsLabel, value float64) error {
	return dsc.client.Count(name, int64(value), formatTags(labels), 1)
}

func (dsc *DogStatsdMetricsClient) Gauge(name string, value float64, labels []metricsTypes.MetricsLabel) error {
	return dsc.client.Gauge(name, value, formatTags(labels), 1)
}

func (dsc *DogStatsdMetricsClient) Timing(name string, value time.Duration, labels []metricsTypes.MetricsLabel) error {
	return dsc.client.Timing(name, value, formatTags(labels), 1)
}

func (dsc *DogStatsdMetricsClient) Flush() {
	if err := dsc.client.Flush(); err != nil {
		dsc.logger.Sugar().Errorw("Failed to flush statsd client", zap.Error(err))
	}
}

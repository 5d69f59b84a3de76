package metrics

import (
	"fmt"
	"path/filepath"
	"testing"
	"time"

	"github.com/Layr-Labs/staking-snap/internal/config"
	"github.com/Layr-Labs/staking-snap/internal/tests"
	"github.com/Layr-Labs/staking-snap/pkg/metrics/metricsTypes"
	"github.com/stretchr/testify/assert"
)

type countingClient struct {
	incr    float64
	gauge   float64
	timings int
	flushed int
	fail    bool
}

func (c *countingClient) Incr(name string, labels []metricsTypes.MetricsLabel, value float64) error {
	if c.fail {
		return fmt.Errorf("incr failed")
	}
	c.incr += value
	return nil
}

func (c *countingClient) Gauge(name string, value float64, labels []metricsTypes.MetricsLabel) error {
	c.gauge = value
	return nil
}

func (c *countingClient) Timing(name string, value time.Duration, labels []metricsTypes.MetricsLabel) error {
	c.timings++
	return nil
}

func (c *countingClient) Flush() {
	c.flushed++
}

func Test_MetricsSink(t *testing.T) {
	t.Run("Should fan out to every client", func(t *testing.T) {
		a := &countingClient{}
		b := &countingClient{}
		sink, err := NewMetricsSink(&MetricsSinkConfig{}, []metricsTypes.IMetricsClient{a, b})
		assert.Nil(t, err)

		assert.Nil(t, sink.Incr(metricsTypes.Metric_Incr_WindowRequested, nil, 2))
		assert.Nil(t, sink.Gauge(metricsTypes.Metric_Gauge_SnapshotAddresses, 4, nil))
		assert.Nil(t, sink.Timing(metricsTypes.Metric_Timing_SnapshotDuration, time.Second, nil))
		sink.Flush()

		for _, c := range []*countingClient{a, b} {
			assert.Equal(t, float64(2), c.incr)
			assert.Equal(t, float64(4), c.gauge)
			assert.Equal(t, 1, c.timings)
			assert.Equal(t, 1, c.flushed)
		}
	})
	t.Run("Should keep sending when a client fails", func(t *testing.T) {
		failing := &countingClient{fail: true}
		ok := &countingClient{}
		sink, err := NewMetricsSink(&MetricsSinkConfig{}, []metricsTypes.IMetricsClient{failing, ok})
		assert.Nil(t, err)

		err = sink.Incr(metricsTypes.Metric_Incr_WindowRequested, nil, 1)
		assert.NotNil(t, err)
		assert.Equal(t, float64(1), ok.incr)
	})
	t.Run("Should work without clients", func(t *testing.T) {
		sink, err := NewMetricsSink(&MetricsSinkConfig{}, nil)
		assert.Nil(t, err)
		assert.Nil(t, sink.Incr(metricsTypes.Metric_Incr_WindowRequested, nil, 1))
		sink.Flush()
	})
}

func Test_InitMetricsSinksFromConfig(t *testing.T) {
	l := tests.GetTestLogger()

	t.Run("Should create no clients by default", func(t *testing.T) {
		clients, err := InitMetricsSinksFromConfig(&config.Config{}, l)
		assert.Nil(t, err)
		assert.Equal(t, 0, len(clients))
	})
	t.Run("Should create a prometheus client when a textfile is set", func(t *testing.T) {
		cfg := &config.Config{}
		cfg.PrometheusConfig.Textfile = filepath.Join(t.TempDir(), "metrics.prom")

		clients, err := InitMetricsSinksFromConfig(cfg, l)
		assert.Nil(t, err)
		assert.Equal(t, 1, len(clients))
	})
}

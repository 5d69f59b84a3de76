package prometheus

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/Layr-Labs/staking-snap/pkg/logger"
	"github.com/Layr-Labs/staking-snap/pkg/metrics/metricsTypes"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
)

func Test_UnexpectedLabelsParsing(t *testing.T) {
	l, err := logger.NewLogger(&logger.LoggerConfig{Debug: false})
	assert.Nil(t, err)

	pmc, err := NewPrometheusMetricsClient(&PrometheusMetricsConfig{
		Metrics: metricsTypes.MetricTypes,
	}, l)
	assert.Nil(t, err)

	t.Run("Should return no error for all labels", func(t *testing.T) {
		err := pmc.hasUnexpectedLabels(metricsTypes.MetricsType_Timing, metricsTypes.Metric_Timing_SnapshotDuration, []metricsTypes.MetricsLabel{
			{Name: "chain", Value: "dbc"},
			{Name: "version", Value: "dev"},
			{Name: "hasError", Value: "false"},
		})
		assert.Nil(t, err)
	})
	t.Run("Should return no error for a subset labels", func(t *testing.T) {
		err := pmc.hasUnexpectedLabels(metricsTypes.MetricsType_Timing, metricsTypes.Metric_Timing_SnapshotDuration, []metricsTypes.MetricsLabel{
			{Name: "chain", Value: "dbc"},
		})
		assert.Nil(t, err)
	})
	t.Run("Should return an error for unexpected labels", func(t *testing.T) {
		err := pmc.hasUnexpectedLabels(metricsTypes.MetricsType_Timing, metricsTypes.Metric_Timing_SnapshotDuration, []metricsTypes.MetricsLabel{
			{Name: "chain", Value: "dbc"},
			{Name: "unexpectedLabel", Value: "unexpectedValue"},
		})
		assert.NotNil(t, err)
	})
	t.Run("Should return an error for unexpected labels when expecting 0 labels", func(t *testing.T) {
		err := pmc.hasUnexpectedLabels(metricsTypes.MetricsType_Incr, metricsTypes.Metric_Incr_WindowRequested, []metricsTypes.MetricsLabel{
			{Name: "unexpectedLabel", Value: "unexpectedValue"},
		})
		assert.NotNil(t, err)
	})
}

func Test_PrometheusMetricsClient(t *testing.T) {
	l, err := logger.NewLogger(&logger.LoggerConfig{Debug: false})
	assert.Nil(t, err)

	textfile := filepath.Join(t.TempDir(), "staking-snap.prom")
	pmc, err := NewPrometheusMetricsClient(&PrometheusMetricsConfig{
		Metrics:  metricsTypes.MetricTypes,
		Textfile: textfile,
	}, l)
	assert.Nil(t, err)

	t.Run("Should count increments on a private registry", func(t *testing.T) {
		assert.Nil(t, pmc.Incr(metricsTypes.Metric_Incr_WindowRequested, nil, 1))
		assert.Nil(t, pmc.Incr(metricsTypes.Metric_Incr_WindowRequested, nil, 2))

		assert.Equal(t, float64(3), testutil.ToFloat64(pmc.counters[metricsTypes.Metric_Incr_WindowRequested]))
	})
	t.Run("Should fill in labels that were not provided", func(t *testing.T) {
		err := pmc.Gauge(metricsTypes.Metric_Gauge_SnapshotAddresses, 7, nil)
		assert.Nil(t, err)
		assert.Equal(t, float64(7), testutil.ToFloat64(pmc.gauges[metricsTypes.Metric_Gauge_SnapshotAddresses]))
	})
	t.Run("Should ignore unknown metrics", func(t *testing.T) {
		assert.Nil(t, pmc.Incr("unknown.metric", nil, 1))
	})
	t.Run("Should write the registry to the textfile on flush", func(t *testing.T) {
		assert.Nil(t, pmc.Timing(metricsTypes.Metric_Timing_WindowDuration, 15*time.Millisecond, []metricsTypes.MetricsLabel{
			{Name: "hasError", Value: "false"},
		}))
		pmc.Flush()

		contents, err := os.ReadFile(textfile)
		assert.Nil(t, err)
		assert.True(t, strings.Contains(string(contents), "staking_snap_fetcher_window_requested 3"))
		assert.True(t, strings.Contains(string(contents), "staking_snap_fetcher_window_duration_ms"))
	})
	t.Run("Should use separate registries per client", func(t *testing.T) {
		other, err := NewPrometheusMetricsClient(&PrometheusMetricsConfig{
			Metrics: metricsTypes.MetricTypes,
		}, l)
		assert.Nil(t, err)
		assert.NotSame(t, pmc.Registry(), other.Registry())
	})
}

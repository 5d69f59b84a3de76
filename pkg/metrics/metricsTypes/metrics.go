package metricsTypes

import "time"

type IMetricsClient interface {
	Incr(name string, labels []MetricsLabel, value float64) error
	Gauge(name string, value float64, labels []MetricsLabel) error
	Timing(name string, value time.Duration, labels []MetricsLabel) error
	Flush()
}

type MetricsLabel struct {
	Name  string
	Value string
}

type MetricsType string

var (
	MetricsType_Incr   MetricsType = "incr"
	MetricsType_Gauge  MetricsType = "gauge"
	MetricsType_Timing MetricsType = "timing"
)

type MetricsTypeConfig struct {
	Name   string
	Labels []string
}

var (
	Metric_Incr_WindowRequested = "fetcher.window.requested"
	Metric_Incr_WindowFailed    = "fetcher.window.failed"
	Metric_Incr_LogsCollected   = "fetcher.logs.collected"
	Metric_Incr_StakeProbe      = "stakes.probe.count"
	Metric_Incr_StakeProbeError = "stakes.probe.error"
	Metric_Incr_AddressFailed   = "stakes.address.failed"

	Metric_Gauge_SnapshotAddresses = "snapshot.addresses"

	Metric_Timing_WindowDuration   = "fetcher.window.duration"
	Metric_Timing_SnapshotDuration = "snapshot.duration"
)

var MetricTypes = map[MetricsType][]MetricsTypeConfig{
	MetricsType_Incr: {
		MetricsTypeConfig{
			Name:   Metric_Incr_WindowRequested,
			Labels: []string{},
		},
		MetricsTypeConfig{
			Name:   Metric_Incr_WindowFailed,
			Labels: []string{},
		},
		MetricsTypeConfig{
			Name:   Metric_Incr_LogsCollected,
			Labels: []string{},
		},
		MetricsTypeConfig{
			Name: Metric_Incr_StakeProbe,
			Labels: []string{
				"result",
			},
		},
		MetricsTypeConfig{
			Name: Metric_Incr_StakeProbeError,
			Labels: []string{
				"reverted",
			},
		},
		MetricsTypeConfig{
			Name:   Metric_Incr_AddressFailed,
			Labels: []string{},
		},
	},
	MetricsType_Gauge: {
		MetricsTypeConfig{
			Name: Metric_Gauge_SnapshotAddresses,
			Labels: []string{
				"chain",
			},
		},
	},
	MetricsType_Timing: {
		MetricsTypeConfig{
			Name: Metric_Timing_WindowDuration,
			Labels: []string{
				"hasError",
			},
		},
		MetricsTypeConfig{
			Name: Metric_Timing_SnapshotDuration,
			Labels: []string{
				"chain",
				"version",
				"hasError",
			},
		},
	},
}

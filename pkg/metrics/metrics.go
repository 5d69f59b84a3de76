package metrics

import (
	"time"

	"github.com/Layr-Labs/staking-snap/internal/config"
	"github.com/Layr-Labs/staking-snap/pkg/metrics/dogstatsd"
	"github.com/Layr-Labs/staking-snap/pkg/metrics/metricsTypes"
	"github.com/Layr-Labs/staking-snap/pkg/metrics/prometheus"
	"github.com/pkg/errors"
	"go.uber.org/zap"
)

type MetricsSinkConfig struct{}

// MetricsSink fans every metric out to each configured client.
type MetricsSink struct {
	config  *MetricsSinkConfig
	clients []metricsTypes.IMetricsClient
}

func NewMetricsSink(cfg *MetricsSinkConfig, clients []metricsTypes.IMetricsClient) (*MetricsSink, error) {
	if clients == nil {
		clients = make([]metricsTypes.IMetricsClient, 0)
	}
	return &MetricsSink{
		config:  cfg,
		clients: clients,
	}, nil
}

func (ms *MetricsSink) Incr(name string, labels []metricsTypes.MetricsLabel, value float64) error {
	var errs error
	for _, client := range ms.clients {
		if err := client.Incr(name, labels, value); err != nil {
			errs = appendError(errs, err)
		}
	}
	return errs
}

func (ms *MetricsSink) Gauge(name string, value float64, labels []metricsTypes.MetricsLabel) error {
	var errs error
	for _, client := range ms.clients {
		if err := client.Gauge(name, value, labels); err != nil {
			errs = appendError(errs, err)
		}
	}
	return errs
}

func (ms *MetricsSink) Timing(name string, value time.Duration, labels []metricsTypes.MetricsLabel) error {
	var errs error
	for _, client := range ms.clients {
		if err := client.Timing(name, value, labels); err != nil {
			errs = appendError(errs, err)
		}
	}
	return errs
}

func (ms *MetricsSink) Flush() {
	for _, client := range ms.clients {
		client.Flush()
	}
}

func appendError(errs error, err error) error {
	if errs == nil {
		return err
	}
	return errors.Wrap(errs, err.Error())
}

// InitMetricsSinksFromConfig builds the metrics clients enabled in the config.
func InitMetricsSinksFromConfig(cfg *config.Config, l *zap.Logger) ([]metricsTypes.IMetricsClient, error) {
	clients := make([]metricsTypes.IMetricsClient, 0)

	if cfg.DataDogConfig.StatsdConfig.Enabled {
		dd, err := dogstatsd.NewDogStatsdMetricsClient(cfg.DataDogConfig.StatsdConfig.Url, l)
		if err != nil {
			l.Sugar().Errorw("Failed to create statsd client", zap.Error(err))
			return nil, err
		}
		clients = append(clients, dd)
	}

	if cfg.PrometheusConfig.Textfile != "" {
		pc, err := prometheus.NewPrometheusMetricsClient(&prometheus.PrometheusMetricsConfig{
			Metrics:  metricsTypes.MetricTypes,
			Textfile: cfg.PrometheusConfig.Textfile,
		}, l)
		if err != nil {
			l.Sugar().Errorw("Failed to create prometheus client", zap.Error(err))
			return nil, err
		}
		clients = append(clients, pc)
	}

	return clients, nil
}

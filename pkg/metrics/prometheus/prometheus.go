package prometheus

import (
	"fmt"
	"slices"
	"strings"
	"time"

	"github.com/Layr-Labs/staking-snap/pkg/metrics/metricsTypes"
	"github.com/Layr-Labs/staking-snap/pkg/utils"
	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"
)

const namespace = "staking_snap"

type PrometheusMetricsConfig struct {
	Metrics map[metricsTypes.MetricsType][]metricsTypes.MetricsTypeConfig
	// Textfile is where Flush writes the registry in the node_exporter textfile format.
	// Empty disables writing.
	Textfile string
}

type PrometheusMetricsClient struct {
	logger   *zap.Logger
	config   *PrometheusMetricsConfig
	registry *prometheus.Registry

	counters   map[string]*prometheus.CounterVec
	gauges     map[string]*prometheus.GaugeVec
	histograms map[string]*prometheus.HistogramVec
}

func NewPrometheusMetricsClient(config *PrometheusMetricsConfig, l *zap.Logger) (*PrometheusMetricsClient, error) {
	client := &PrometheusMetricsClient{
		config:   config,
		logger:   l,
		registry: prometheus.NewRegistry(),

		counters:   make(map[string]*prometheus.CounterVec),
		gauges:     make(map[string]*prometheus.GaugeVec),
		histograms: make(map[string]*prometheus.HistogramVec),
	}

	if err := client.initializeTypes(); err != nil {
		return nil, err
	}

	return client, nil
}

func (pmc *PrometheusMetricsClient) logExistingMetric(t metricsTypes.MetricsType, metric metricsTypes.MetricsTypeConfig) {
	pmc.logger.Sugar().Warnw("Prometheus metric already exists for type",
		zap.String("type", string(t)),
		zap.String("name", metric.Name),
	)
}

func (pmc *PrometheusMetricsClient) exists(name string) bool {
	_, isCounter := pmc.counters[name]
	_, isGauge := pmc.gauges[name]
	_, isHistogram := pmc.histograms[name]
	return isCounter || isGauge || isHistogram
}

func (pmc *PrometheusMetricsClient) initializeTypes() error {
	for t, types := range pmc.config.Metrics {
		for _, mt := range types {
			if pmc.exists(mt.Name) {
				pmc.logExistingMetric(t, mt)
				continue
			}
			var collector prometheus.Collector
			switch t {
			case metricsTypes.MetricsType_Incr:
				pmc.counters[mt.Name] = prometheus.NewCounterVec(prometheus.CounterOpts{
					Namespace: namespace,
					Name:      metricName(mt.Name),
				}, mt.Labels)
				collector = pmc.counters[mt.Name]
			case metricsTypes.MetricsType_Gauge:
				pmc.gauges[mt.Name] = prometheus.NewGaugeVec(prometheus.GaugeOpts{
					Namespace: namespace,
					Name:      metricName(mt.Name),
				}, mt.Labels)
				collector = pmc.gauges[mt.Name]
			case metricsTypes.MetricsType_Timing:
				pmc.histograms[mt.Name] = prometheus.NewHistogramVec(prometheus.HistogramOpts{
					Namespace: namespace,
					Name:      metricName(mt.Name) + "_ms",
				}, mt.Labels)
				collector = pmc.histograms[mt.Name]
			default:
				continue
			}
			if err := pmc.registry.Register(collector); err != nil {
				return fmt.Errorf("failed to register prometheus metric '%s': %w", mt.Name, err)
			}
		}
	}
	return nil
}

func metricName(name string) string {
	return utils.SnakeCase(name)
}

func (pmc *PrometheusMetricsClient) formatLabels(labels []metricsTypes.MetricsLabel) prometheus.Labels {
	l := make(prometheus.Labels)
	if labels == nil {
		return l
	}
	for _, label := range labels {
		l[label.Name] = label.Value
	}
	return l
}

func (pmc *PrometheusMetricsClient) findExpectedLabels(t metricsTypes.MetricsType, name string) []string {
	for _, types := range pmc.config.Metrics[t] {
		if types.Name == name {
			return types.Labels
		}
	}
	return nil
}

// hasUnexpectedLabels checks if any unexpected labels are present in the given labels.
func (pmc *PrometheusMetricsClient) hasUnexpectedLabels(t metricsTypes.MetricsType, name string, providedLabels []metricsTypes.MetricsLabel) error {
	expectedLabels := pmc.findExpectedLabels(t, name)
	unexpectedLabels := make([]string, 0)

	if len(expectedLabels) == 0 && len(providedLabels) > 0 {
		pmc.logger.Sugar().Warnw("Prometheus metric has no expected labels but received labels",
			zap.String("type", string(t)),
			zap.String("name", name),
			zap.Strings("providedLabels", utils.Map(providedLabels, func(label metricsTypes.MetricsLabel, i uint64) string {
				return label.Name
			})),
		)
		return fmt.Errorf("no expected labels, received '%s'", strings.Join(utils.Map(providedLabels, func(label metricsTypes.MetricsLabel, i uint64) string {
			return label.Name
		}), ", "))
	}

	for _, label := range providedLabels {
		if !slices.Contains(expectedLabels, label.Name) {
			unexpectedLabels = append(unexpectedLabels, label.Name)
		}
	}

	if len(unexpectedLabels) > 0 {
		pmc.logger.Sugar().Warnw("Prometheus metric has unexpected labels",
			zap.String("type", string(t)),
			zap.String("name", name),
			zap.Strings("unexpectedLabels", unexpectedLabels),
		)
		return fmt.Errorf("unexpected labels: '%s'", strings.Join(unexpectedLabels, ", "))
	}
	return nil
}

// completeLabels fills in any expected label that was not provided so that With() does not panic
// on a partial label set.
func (pmc *PrometheusMetricsClient) completeLabels(t metricsTypes.MetricsType, name string, labels []metricsTypes.MetricsLabel) prometheus.Labels {
	l := pmc.formatLabels(labels)
	for _, expected := range pmc.findExpectedLabels(t, name) {
		if _, ok := l[expected]; !ok {
			l[expected] = ""
		}
	}
	return l
}

func (pmc *PrometheusMetricsClient) Incr(name string, labels []metricsTypes.MetricsLabel, value float64) error {
	m, ok := pmc.counters[name]
	if !ok {
		pmc.logger.Sugar().Warnw("Prometheus incr not found",
			zap.String("name", name),
		)
		return nil
	}
	if err := pmc.hasUnexpectedLabels(metricsTypes.MetricsType_Incr, name, labels); err != nil {
		return err
	}
	m.With(pmc.completeLabels(metricsTypes.MetricsType_Incr, name, labels)).Add(value)
	return nil
}

func (pmc *PrometheusMetricsClient) Gauge(name string, value float64, labels []metricsTypes.MetricsLabel) error {
	m, ok := pmc.gauges[name]
	if !ok {
		pmc.logger.Sugar().Warnw("Prometheus gauge not found",
			zap.String("name", name),
		)
		return nil
	}
	if err := pmc.hasUnexpectedLabels(metricsTypes.MetricsType_Gauge, name, labels); err != nil {
		return err
	}
	m.With(pmc.completeLabels(metricsTypes.MetricsType_Gauge, name, labels)).Set(value)
	return nil
}

func (pmc *PrometheusMetricsClient) Timing(name string, value time.Duration, labels []metricsTypes.MetricsLabel) error {
	return pmc.Histogram(name, value, labels)
}

func (pmc *PrometheusMetricsClient) Histogram(name string, value time.Duration, labels []metricsTypes.MetricsLabel) error {
	m, ok := pmc.histograms[name]
	if !ok {
		pmc.logger.Sugar().Warnw("Prometheus histogram not found",
			zap.String("name", name),
		)
		return nil
	}
	if err := pmc.hasUnexpectedLabels(metricsTypes.MetricsType_Timing, name, labels); err != nil {
		return err
	}
	m.With(pmc.completeLabels(metricsTypes.MetricsType_Timing, name, labels)).Observe(float64(value.Milliseconds()))
	return nil
}

// Registry returns the private registry the client's metrics are registered on.
func (pmc *PrometheusMetricsClient) Registry() *prometheus.Registry {
	return pmc.registry
}

// Flush writes the registry to the configured textfile. The process is a one-shot run so
// there is no scrape endpoint.
func (pmc *PrometheusMetricsClient) Flush() {
	if pmc.config.Textfile == "" {
		return
	}
	if err := prometheus.WriteToTextfile(pmc.config.Textfile, pmc.registry); err != nil {
		pmc.logger.Sugar().Errorw("Failed to write prometheus textfile",
			zap.String("path", pmc.config.Textfile),
			zap.Error(err),
		)
		return
	}
	pmc.logger.Sugar().Debugw("Wrote prometheus textfile", zap.String("path", pmc.config.Textfile))
}

package dogstatsd

import (
	"testing"
	"time"

	"github.com/DataDog/datadog-go/v5/statsd"
	"github.com/Layr-Labs/staking-snap/internal/tests"
	"github.com/Layr-Labs/staking-snap/pkg/metrics/metricsTypes"
	"github.com/stretchr/testify/assert"
)

type recordedMetric struct {
	kind  string
	name  string
	value float64
	tags  []string
}

type recordingStatsd struct {
	statsd.NoOpClient
	metrics []recordedMetric
	flushed int
}

func (r *recordingStatsd) Count(name string, value int64, tags []string, rate float64) error {
	r.metrics = append(r.metrics, recordedMetric{kind: "count", name: name, value: float64(value), tags: tags})
	return nil
}

func (r *recordingStatsd) Gauge(name string, value float64, tags []string, rate float64) error {
	r.metrics = append(r.metrics, recordedMetric{kind: "gauge", name: name, value: value, tags: tags})
	return nil
}

func (r *recordingStatsd) Timing(name string, value time.Duration, tags []string, rate float64) error {
	r.metrics = append(r.metrics, recordedMetric{kind: "timing", name: name, value: float64(value.Milliseconds()), tags: tags})
	return nil
}

func (r *recordingStatsd) Flush() error {
	r.flushed++
	return nil
}

func Test_DogStatsdMetricsClient(t *testing.T) {
	rec := &recordingStatsd{}
	client := NewDogStatsdMetricsClientWithStatsd(rec, tests.GetTestLogger())

	assert.Nil(t, client.Incr(metricsTypes.Metric_Incr_StakeProbe, []metricsTypes.MetricsLabel{{Name: "result", Value: "stake"}}, 2))
	assert.Nil(t, client.Gauge(metricsTypes.Metric_Gauge_SnapshotAddresses, 5, []metricsTypes.MetricsLabel{{Name: "chain", Value: "dbc"}}))
	assert.Nil(t, client.Timing(metricsTypes.Metric_Timing_WindowDuration, 20*time.Millisecond, nil))
	client.Flush()

	assert.Equal(t, 3, len(rec.metrics))
	assert.Equal(t, recordedMetric{kind: "count", name: "stakes.probe.count", value: 2, tags: []string{"result:stake"}}, rec.metrics[0])
	assert.Equal(t, recordedMetric{kind: "gauge", name: "snapshot.addresses", value: 5, tags: []string{"chain:dbc"}}, rec.metrics[1])
	assert.Equal(t, "timing", rec.metrics[2].kind)
	assert.Equal(t, float64(20), rec.metrics[2].value)
	assert.Equal(t, []string{}, rec.metrics[2].tags)
	assert.Equal(t, 1, rec.flushed)
}

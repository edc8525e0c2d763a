package metrics

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	promcl "github.com/prometheus/client_model/go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
)

// TestMain will run goleak after all tests have been run in the package
// to detect any goroutine leaks
func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

func TestManager_Counters(t *testing.T) {
	m := NewTestManager()

	m.CounterTTSRequests.Inc()
	m.CounterTTSRequests.Inc()
	m.CounterTTSChunks.Add(5)
	m.CounterProgressUpdates.WithLabelValues("voice_journaling").Inc()
	m.CounterProgressUpdates.WithLabelValues("shadowing").Inc()
	m.CounterProgressUpdates.WithLabelValues("shadowing").Inc()

	assert.Equal(t, float64(2), testutil.ToFloat64(m.CounterTTSRequests))
	assert.Equal(t, float64(5), testutil.ToFloat64(m.CounterTTSChunks))
	assert.Equal(t, float64(1), testutil.ToFloat64(m.CounterProgressUpdates.WithLabelValues("voice_journaling")))
	assert.Equal(t, float64(2), testutil.ToFloat64(m.CounterProgressUpdates.WithLabelValues("shadowing")))
}

func TestManager_SynthesisDurationHistogram(t *testing.T) {
	m, reg := NewTestManagerAndRegistry()

	duration := 3.5
	m.HistTTSSynthesisDuration.Observe(duration)

	histCount, err := testutil.GatherAndCount(reg, "speakpath_test_server_tts_synthesis_duration_seconds")
	require.NoError(t, err)
	assert.Equal(t, 1, histCount)

	gathered, err := reg.Gather()
	require.NoError(t, err)
	require.NotNil(t, gathered)

	var foundDurationHistogram *promcl.MetricFamily
	for _, mf := range gathered {
		if *mf.Name == "speakpath_test_server_tts_synthesis_duration_seconds" {
			foundDurationHistogram = mf
			break
		}
	}
	if foundDurationHistogram == nil {
		t.Fatal("found duration histogram is nil")
	}

	require.NotNil(t, foundDurationHistogram.Metric)
	require.Len(t, foundDurationHistogram.Metric, 1)
	foundHistMetric := foundDurationHistogram.Metric[0]
	require.NotNil(t, foundHistMetric)
	require.NotNil(t, foundHistMetric.Histogram)
	assert.Equal(t, duration, *foundHistMetric.Histogram.SampleSum)
}

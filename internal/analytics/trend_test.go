package analytics

import (
	"testing"
	"time"

	"github.com/fisiocore/backend/pkg/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func samplesOf(metric string, values []float64) []model.MetricSample {
	start := time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)
	samples := make([]model.MetricSample, len(values))
	for i, v := range values {
		samples[i] = model.MetricSample{
			Date:   start.AddDate(0, 0, i),
			Metric: metric,
			Value:  v,
		}
	}
	return samples
}

func TestTrendAnalyzer_PerfectLinearSeries(t *testing.T) {
	analyzer := NewTrendAnalyzer(zap.NewNop())

	// value = 2 * dayOffset
	trend := analyzer.Analyze(samplesOf(model.MetricPain, []float64{0, 2, 4, 6, 8}), model.MetricPain, "Dor")

	require.NotNil(t, trend)
	assert.Equal(t, model.TrendIncreasing, trend.Direction)
	assert.InDelta(t, 2.0, trend.Slope, 1e-9)
	assert.InDelta(t, 1.0, trend.Confidence, 1e-9)
	assert.True(t, trend.IsSignificant)
}

func TestTrendAnalyzer_ConstantSeriesIsStable(t *testing.T) {
	analyzer := NewTrendAnalyzer(zap.NewNop())

	trend := analyzer.Analyze(samplesOf(model.MetricPain, []float64{4, 4, 4, 4}), model.MetricPain, "Dor")

	require.NotNil(t, trend)
	assert.Equal(t, model.TrendStable, trend.Direction)
	assert.InDelta(t, 0.0, trend.Slope, 1e-9)
	assert.False(t, trend.IsSignificant)
}

func TestTrendAnalyzer_DecreasingSeries(t *testing.T) {
	analyzer := NewTrendAnalyzer(zap.NewNop())

	trend := analyzer.Analyze(samplesOf(model.MetricPain, []float64{8, 7, 6, 5, 4}), model.MetricPain, "Dor")

	require.NotNil(t, trend)
	assert.Equal(t, model.TrendDecreasing, trend.Direction)
	assert.InDelta(t, -1.0, trend.Slope, 1e-9)
}

func TestTrendAnalyzer_InsufficientSamplesReturnsNil(t *testing.T) {
	analyzer := NewTrendAnalyzer(zap.NewNop())

	assert.Nil(t, analyzer.Analyze(nil, model.MetricPain, "Dor"))
	assert.Nil(t, analyzer.Analyze(samplesOf(model.MetricPain, []float64{5}), model.MetricPain, "Dor"))
}

func TestTrendAnalyzer_ProjectionsClampedToDomain(t *testing.T) {
	analyzer := NewTrendAnalyzer(zap.NewNop())

	// Steep upward trend would project past 10 without clamping
	trend := analyzer.Analyze(samplesOf(model.MetricPain, []float64{4, 6, 8, 10}), model.MetricPain, "Dor")

	require.NotNil(t, trend)
	require.Len(t, trend.ProjectedValues, 7)
	for _, v := range trend.ProjectedValues {
		assert.GreaterOrEqual(t, v, 0.0)
		assert.LessOrEqual(t, v, 10.0)
	}
	// The fitted line keeps climbing, so later projections saturate at 10
	assert.InDelta(t, 10.0, trend.ProjectedValues[6], 1e-9)
}

func TestTrendAnalyzer_ProjectionsClampedForUnitScaleMetrics(t *testing.T) {
	analyzer := NewTrendAnalyzer(zap.NewNop())

	trend := analyzer.Analyze(samplesOf(model.MetricEnergy, []float64{5, 4, 3, 2, 1}), model.MetricEnergy, "Energia")

	require.NotNil(t, trend)
	for _, v := range trend.ProjectedValues {
		assert.GreaterOrEqual(t, v, 1.0)
		assert.LessOrEqual(t, v, 5.0)
	}
}

func TestTrendAnalyzer_QualitativeConfidenceLabels(t *testing.T) {
	analyzer := NewTrendAnalyzer(zap.NewNop())

	strong := analyzer.Analyze(samplesOf(model.MetricPain, []float64{1, 2, 3, 4, 5}), model.MetricPain, "Dor")
	require.NotNil(t, strong)
	assert.Contains(t, strong.Description, "forte")

	noisy := analyzer.Analyze(samplesOf(model.MetricPain, []float64{5, 1, 6, 2, 7, 1, 5}), model.MetricPain, "Dor")
	require.NotNil(t, noisy)
	assert.Contains(t, noisy.Description, "fraca")
}

func TestTrendAnalyzer_AnalyzeEntries(t *testing.T) {
	analyzer := NewTrendAnalyzer(zap.NewNop())

	start := time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)
	entries := make([]model.DiaryEntry, 5)
	for i := range entries {
		entries[i] = model.DiaryEntry{
			Date:         start.AddDate(0, 0, i),
			OverallPain:  float64(i),
			Energy:       3,
			SleepQuality: 3,
			Mood:         3,
		}
	}

	trend := analyzer.AnalyzeEntries(entries, model.MetricPain, "Dor")
	require.NotNil(t, trend)
	assert.Equal(t, model.TrendIncreasing, trend.Direction)

	stable := analyzer.AnalyzeEntries(entries, model.MetricMood, "Humor")
	require.NotNil(t, stable)
	assert.Equal(t, model.TrendStable, stable.Direction)
}

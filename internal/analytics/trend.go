package analytics

import (
	"fmt"
	"math"

	"github.com/fisiocore/backend/pkg/model"
	"go.uber.org/zap"
)

const (
	// Slopes flatter than this (units per day) are reported as stable
	stableSlopeThreshold = 0.1

	// Fixed t-statistic threshold for significance. Approximates p<0.05 only
	// for large samples; kept for behavioral compatibility with the original
	// analysis logic.
	significanceTThreshold = 2.0

	projectionDays = 7
)

// TrendAnalyzer fits ordinary-least-squares trends over metric samples
type TrendAnalyzer struct {
	logger *zap.Logger
}

// NewTrendAnalyzer creates a new TrendAnalyzer
func NewTrendAnalyzer(logger *zap.Logger) *TrendAnalyzer {
	return &TrendAnalyzer{logger: logger}
}

// Analyze fits a linear trend over the given date-ordered samples for one
// metric. Returns nil with fewer than two samples.
func (a *TrendAnalyzer) Analyze(samples []model.MetricSample, metric, label string) *model.Trend {
	if len(samples) < 2 {
		a.logger.Debug("insufficient samples for trend analysis",
			zap.String("metric", metric),
			zap.Int("sample_count", len(samples)),
		)
		return nil
	}

	// Day offsets from the first sample
	first := samples[0].Date
	xs := make([]float64, len(samples))
	ys := make([]float64, len(samples))
	for i, s := range samples {
		xs[i] = s.Date.Sub(first).Hours() / 24
		ys[i] = s.Value
	}

	slope, intercept := fitLeastSquares(xs, ys)

	n := float64(len(xs))
	var sumY float64
	for _, y := range ys {
		sumY += y
	}
	meanY := sumY / n

	// R-squared as confidence
	var residual, total float64
	for i := range xs {
		fitted := slope*xs[i] + intercept
		residual += (ys[i] - fitted) * (ys[i] - fitted)
		total += (ys[i] - meanY) * (ys[i] - meanY)
	}
	confidence := 0.0
	if total > 0 {
		confidence = 1 - residual/total
		if confidence < 0 {
			confidence = 0
		}
	}

	direction := model.TrendStable
	if math.Abs(slope) >= stableSlopeThreshold {
		if slope > 0 {
			direction = model.TrendIncreasing
		} else {
			direction = model.TrendDecreasing
		}
	}

	// t = |slope / stderr|, stderr from residual variance and x spread
	isSignificant := false
	if len(xs) > 2 {
		var sxx float64
		meanX := mean(xs)
		for _, x := range xs {
			sxx += (x - meanX) * (x - meanX)
		}
		if sxx > 0 {
			residualVariance := residual / (n - 2)
			stderr := math.Sqrt(residualVariance / sxx)
			if stderr == 0 {
				// Perfect fit with a nonzero slope is trivially significant
				isSignificant = slope != 0
			} else {
				t := math.Abs(slope / stderr)
				isSignificant = t > significanceTThreshold
			}
		}
	}

	// Project the next 7 calendar days from the fitted line, clamped to the
	// metric's valid domain
	lo, hi := model.MetricDomain(metric)
	lastDay := xs[len(xs)-1]
	projected := make([]float64, projectionDays)
	for i := 0; i < projectionDays; i++ {
		v := slope*(lastDay+float64(i+1)) + intercept
		projected[i] = clamp(v, lo, hi)
	}

	periodDays := int(math.Round(lastDay)) + 1
	trend := &model.Trend{
		Metric:          metric,
		Label:           label,
		Direction:       direction,
		Slope:           slope,
		Confidence:      confidence,
		IsSignificant:   isSignificant,
		Period:          fmt.Sprintf("%d dias", periodDays),
		CurrentValue:    ys[len(ys)-1],
		AverageValue:    meanY,
		ProjectedValues: projected,
		Description:     describeTrend(label, direction, slope, confidence),
	}

	a.logger.Debug("trend computed",
		zap.String("metric", metric),
		zap.String("direction", string(direction)),
		zap.Float64("slope", slope),
		zap.Float64("confidence", confidence),
		zap.Bool("significant", isSignificant),
	)

	return trend
}

// AnalyzeEntries extracts one metric's samples from diary entries and analyzes them
func (a *TrendAnalyzer) AnalyzeEntries(entries []model.DiaryEntry, metric, label string) *model.Trend {
	return a.Analyze(SamplesFromEntries(entries, metric), metric, label)
}

// SamplesFromEntries projects diary entries onto a single metric's sample series
func SamplesFromEntries(entries []model.DiaryEntry, metric string) []model.MetricSample {
	samples := make([]model.MetricSample, 0, len(entries))
	for _, e := range entries {
		if v, ok := e.MetricValue(metric); ok {
			samples = append(samples, model.MetricSample{Date: e.Date, Metric: metric, Value: v})
		}
	}
	return samples
}

// fitLeastSquares returns the OLS slope and intercept of y over x
func fitLeastSquares(xs, ys []float64) (slope, intercept float64) {
	n := float64(len(xs))
	var sumX, sumY, sumXY, sumXX float64
	for i := range xs {
		sumX += xs[i]
		sumY += ys[i]
		sumXY += xs[i] * ys[i]
		sumXX += xs[i] * xs[i]
	}

	denom := n*sumXX - sumX*sumX
	if denom == 0 {
		// All samples on the same day
		return 0, sumY / n
	}

	slope = (n*sumXY - sumX*sumY) / denom
	intercept = (sumY - slope*sumX) / n
	return slope, intercept
}

// describeTrend builds the human-readable trend description with a
// qualitative confidence label
func describeTrend(label string, direction model.TrendDirection, slope, confidence float64) string {
	qualitative := "fraca"
	if confidence > 0.7 {
		qualitative = "forte"
	} else if confidence > 0.4 {
		qualitative = "moderada"
	}

	switch direction {
	case model.TrendIncreasing:
		return fmt.Sprintf("%s em alta (%.2f por dia), tendência %s", label, slope, qualitative)
	case model.TrendDecreasing:
		return fmt.Sprintf("%s em queda (%.2f por dia), tendência %s", label, slope, qualitative)
	default:
		return fmt.Sprintf("%s estável, tendência %s", label, qualitative)
	}
}

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

func mean(vs []float64) float64 {
	if len(vs) == 0 {
		return 0
	}
	var sum float64
	for _, v := range vs {
		sum += v
	}
	return sum / float64(len(vs))
}

package service

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/fisiocore/backend/internal/analytics"
	"github.com/fisiocore/backend/pkg/model"
)

const (
	statisticsWindow    = 30 // latest entries included in rolling averages
	recentPainWindow    = 7 * 24 * time.Hour
	recentPainThreshold = 7.0
	recentPainMinCount  = 3
	maxKeyFindings      = 5
	maxRecommendations  = 8
)

// AnalysisOrchestrator combines trends, patterns and per-report alerts into
// a single analysis snapshot for one patient
type AnalysisOrchestrator struct {
	trends   *analytics.TrendAnalyzer
	patterns *analytics.PatternDetector
	logger   *zap.Logger
}

// NewAnalysisOrchestrator creates a new AnalysisOrchestrator
func NewAnalysisOrchestrator(trends *analytics.TrendAnalyzer, patterns *analytics.PatternDetector, logger *zap.Logger) *AnalysisOrchestrator {
	return &AnalysisOrchestrator{
		trends:   trends,
		patterns: patterns,
		logger:   logger,
	}
}

// coreMetrics pairs each diary metric with its display label
var coreMetrics = []struct {
	name  string
	label string
}{
	{model.MetricPain, "Dor"},
	{model.MetricEnergy, "Energia"},
	{model.MetricSleep, "Sono"},
	{model.MetricMood, "Humor"},
}

// PerformCompleteAnalysis runs every analysis stage over the patient's diary
// entries. Entries must be ordered by date ascending. The report is complete
// even when individual stages produce nothing.
func (o *AnalysisOrchestrator) PerformCompleteAnalysis(ctx context.Context, patientID string, entries []model.DiaryEntry) model.AnalysisReport {
	o.logger.Info("starting complete analysis",
		zap.String("patient_id", patientID),
		zap.Int("entry_count", len(entries)),
	)

	now := time.Now()

	var trends []model.Trend
	for _, m := range coreMetrics {
		if trend := o.trends.AnalyzeEntries(entries, m.name, m.label); trend != nil {
			trends = append(trends, *trend)
		}
	}

	insights := o.patterns.DetectAll(entries)
	statistics := computeStatistics(entries)
	alerts := o.reportAlerts(patientID, entries, trends, insights, now)
	summary := buildSummary(trends, insights, alerts, statistics)

	report := model.AnalysisReport{
		PatientID:   patientID,
		Period:      periodLabel(entries),
		Trends:      trends,
		Insights:    insights,
		Alerts:      alerts,
		Statistics:  statistics,
		Summary:     summary,
		GeneratedAt: now,
		Version:     model.AnalysisVersion,
	}

	o.logger.Info("complete analysis finished",
		zap.String("patient_id", patientID),
		zap.Int("trend_count", len(trends)),
		zap.Int("insight_count", len(insights)),
		zap.Int("alert_count", len(alerts)),
		zap.String("overall_status", string(summary.OverallStatus)),
	)

	return report
}

// reportAlerts derives per-patient alerts from the computed trends, the
// recent pain level and any high-severity insight
func (o *AnalysisOrchestrator) reportAlerts(patientID string, entries []model.DiaryEntry, trends []model.Trend, insights []model.Insight, now time.Time) []model.Alert {
	var alerts []model.Alert

	for _, trend := range trends {
		if !trend.IsSignificant || !isWorsening(trend) {
			continue
		}
		alerts = append(alerts, model.Alert{
			ID:               uuid.New().String(),
			Type:             model.AlertWorseningTrend,
			Severity:         model.SeverityMedium,
			Title:            fmt.Sprintf("Piora consistente: %s", trend.Label),
			Message:          trend.Description,
			AffectedEntities: []string{patientID},
			CreatedAt:        now,
		})
	}

	if count, avg := recentPain(entries, now); count >= recentPainMinCount && avg > recentPainThreshold {
		alerts = append(alerts, model.Alert{
			ID:               uuid.New().String(),
			Type:             model.AlertHighSymptoms,
			Severity:         model.SeverityHigh,
			Title:            "Dor elevada na última semana",
			Message:          fmt.Sprintf("Dor média de %.1f nos últimos 7 dias (%d registros).", avg, count),
			AffectedEntities: []string{patientID},
			SuggestedActions: []string{"Antecipar reavaliação", "Revisar prescrição de exercícios"},
			CreatedAt:        now,
		})
	}

	for _, insight := range insights {
		if insight.Severity != model.InsightHigh {
			continue
		}
		alerts = append(alerts, model.Alert{
			ID:               uuid.New().String(),
			Type:             model.AlertInsightEscalation,
			Severity:         model.SeverityMedium,
			Title:            insight.Title,
			Message:          insight.Description,
			AffectedEntities: []string{patientID},
			SuggestedActions: []string{insight.Recommendation},
			CreatedAt:        now,
		})
	}

	return alerts
}

// isWorsening reports whether a trend moves the metric in the bad direction
func isWorsening(trend model.Trend) bool {
	if trend.Metric == model.MetricPain {
		return trend.Direction == model.TrendIncreasing
	}
	return trend.Direction == model.TrendDecreasing
}

// isImproving is the inverse reading: pain falling or any other metric rising
func isImproving(trend model.Trend) bool {
	if trend.Metric == model.MetricPain {
		return trend.Direction == model.TrendDecreasing
	}
	return trend.Direction == model.TrendIncreasing
}

// recentPain averages overall pain over the trailing week
func recentPain(entries []model.DiaryEntry, now time.Time) (int, float64) {
	cutoff := now.Add(-recentPainWindow)
	count := 0
	var sum float64
	for _, e := range entries {
		if e.Date.Before(cutoff) || e.Date.After(now) {
			continue
		}
		count++
		sum += e.OverallPain
	}
	if count == 0 {
		return 0, 0
	}
	return count, sum / float64(count)
}

// computeStatistics averages the core metrics over the most recent entries
func computeStatistics(entries []model.DiaryEntry) model.Statistics {
	window := entries
	if len(window) > statisticsWindow {
		window = window[len(window)-statisticsWindow:]
	}
	if len(window) == 0 {
		return model.Statistics{}
	}

	var pain, energy, sleep, mood float64
	for _, e := range window {
		pain += e.OverallPain
		energy += e.Energy
		sleep += e.SleepQuality
		mood += e.Mood
	}
	n := float64(len(window))

	return model.Statistics{
		AvgPain:    pain / n,
		AvgEnergy:  energy / n,
		AvgSleep:   sleep / n,
		AvgMood:    mood / n,
		EntryCount: len(window),
	}
}

// buildSummary condenses the analysis into status, risk level, key findings
// and deduplicated recommendations
func buildSummary(trends []model.Trend, insights []model.Insight, alerts []model.Alert, stats model.Statistics) model.Summary {
	return model.Summary{
		OverallStatus:   overallStatus(trends, alerts, stats),
		RiskLevel:       riskLevel(trends, alerts, stats),
		KeyFindings:     keyFindings(trends, insights),
		Recommendations: recommendations(insights, alerts),
	}
}

// overallStatus classifies the patient's situation. Checks run from worst to
// best; the first match wins.
func overallStatus(trends []model.Trend, alerts []model.Alert, stats model.Statistics) model.OverallStatus {
	hasHighAlert := false
	for _, alert := range alerts {
		if alert.Severity.Rank() >= model.SeverityHigh.Rank() {
			hasHighAlert = true
			break
		}
	}

	improving := 0
	for _, trend := range trends {
		if isImproving(trend) {
			improving++
		}
	}

	switch {
	case hasHighAlert || stats.AvgPain > 8:
		return model.StatusCritical
	case len(alerts) > 2 || stats.AvgPain > 6:
		return model.StatusConcerning
	case improving > 1:
		return model.StatusImproving
	default:
		return model.StatusStable
	}
}

// riskLevel scores the snapshot additively and maps the score onto the
// three-level classification
func riskLevel(trends []model.Trend, alerts []model.Alert, stats model.Statistics) model.RiskLevel {
	score := 0

	switch {
	case stats.AvgPain > 7:
		score += 3
	case stats.AvgPain > 5:
		score++
	}
	if stats.EntryCount > 0 {
		if stats.AvgEnergy < 2 {
			score += 2
		}
		if stats.AvgSleep < 2 {
			score += 2
		}
		if stats.AvgMood < 2 {
			score += 2
		}
	}
	for _, trend := range trends {
		if isWorsening(trend) {
			score++
		}
	}
	for _, alert := range alerts {
		if alert.Severity.Rank() >= model.SeverityHigh.Rank() {
			score += 2
		}
	}

	switch {
	case score >= 5:
		return model.RiskLevelHigh
	case score >= 3:
		return model.RiskLevelMedium
	default:
		return model.RiskLevelLow
	}
}

// keyFindings picks the most load-bearing observations: significant trends
// first, then high-confidence insights
func keyFindings(trends []model.Trend, insights []model.Insight) []string {
	var findings []string
	for _, trend := range trends {
		if trend.IsSignificant {
			findings = append(findings, trend.Description)
		}
	}

	ranked := make([]model.Insight, len(insights))
	copy(ranked, insights)
	sort.SliceStable(ranked, func(i, j int) bool {
		return ranked[i].Confidence > ranked[j].Confidence
	})
	for _, insight := range ranked {
		if insight.Confidence > 0.7 {
			findings = append(findings, insight.Description)
		}
	}

	if len(findings) > maxKeyFindings {
		findings = findings[:maxKeyFindings]
	}
	return findings
}

// recommendations merges insight and alert suggestions, deduplicated in
// first-seen order
func recommendations(insights []model.Insight, alerts []model.Alert) []string {
	seen := make(map[string]bool)
	var recs []string
	add := func(r string) {
		if r == "" || seen[r] || len(recs) >= maxRecommendations {
			return
		}
		seen[r] = true
		recs = append(recs, r)
	}

	for _, insight := range insights {
		add(insight.Recommendation)
	}
	for _, alert := range alerts {
		for _, action := range alert.SuggestedActions {
			add(action)
		}
	}
	return recs
}

// periodLabel describes the span of the analyzed entries
func periodLabel(entries []model.DiaryEntry) string {
	if len(entries) == 0 {
		return "sem registros"
	}
	days := int(entries[len(entries)-1].Date.Sub(entries[0].Date).Hours()/24) + 1
	return fmt.Sprintf("%d dias", days)
}

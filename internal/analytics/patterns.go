package analytics

import (
	"fmt"
	"math"
	"sort"
	"time"

	"github.com/fisiocore/backend/pkg/model"
	"go.uber.org/zap"
)

const (
	// Minimum entries on each side of a partition before comparing means
	minPartitionSize = 2

	// Minimum diary entries before pairwise correlation is attempted
	minEntriesForCorrelation = 5

	weekendEffectThreshold     = 1.0
	weekendEffectHighThreshold = 2.0
	correlationThreshold       = 0.6
	medicationPainThreshold    = 1.0
	exerciseEffectThreshold    = 0.5
	hotspotMinCount            = 3
	hotspotHighIntensity       = 7.0
)

// PatternDetector runs independent heuristics over a patient's diary entries.
// Every heuristic tolerates insufficient data by returning no insight.
type PatternDetector struct {
	logger *zap.Logger
}

// NewPatternDetector creates a new PatternDetector
func NewPatternDetector(logger *zap.Logger) *PatternDetector {
	return &PatternDetector{logger: logger}
}

// DetectAll runs every heuristic and returns the produced insights
func (d *PatternDetector) DetectAll(entries []model.DiaryEntry) []model.Insight {
	var insights []model.Insight

	if insight := d.DetectWeekendEffect(entries); insight != nil {
		insights = append(insights, *insight)
	}
	insights = append(insights, d.DetectCorrelations(entries)...)
	if insight := d.DetectMedicationEffect(entries); insight != nil {
		insights = append(insights, *insight)
	}
	if insight := d.DetectExerciseEffect(entries); insight != nil {
		insights = append(insights, *insight)
	}
	if insight := d.DetectPainHotspot(entries); insight != nil {
		insights = append(insights, *insight)
	}

	d.logger.Debug("pattern detection completed",
		zap.Int("entry_count", len(entries)),
		zap.Int("insight_count", len(insights)),
	)

	return insights
}

// DetectWeekendEffect compares mean pain between weekend and weekday entries
func (d *PatternDetector) DetectWeekendEffect(entries []model.DiaryEntry) *model.Insight {
	var weekend, weekday []float64
	for _, e := range entries {
		switch e.Date.Weekday() {
		case time.Saturday, time.Sunday:
			weekend = append(weekend, e.OverallPain)
		default:
			weekday = append(weekday, e.OverallPain)
		}
	}

	if len(weekend) < minPartitionSize || len(weekday) < minPartitionSize {
		return nil
	}

	diff := mean(weekend) - mean(weekday)
	if math.Abs(diff) <= weekendEffectThreshold {
		return nil
	}

	severity := model.InsightMedium
	if math.Abs(diff) > weekendEffectHighThreshold {
		severity = model.InsightHigh
	}

	when, advice := "fins de semana", "Revise as atividades de fim de semana e oriente pausas e alongamentos."
	if diff < 0 {
		when, advice = "dias úteis", "Avalie a ergonomia e a carga de trabalho durante a semana."
	}

	return &model.Insight{
		Type:           model.InsightPattern,
		Severity:       severity,
		Confidence:     math.Min(math.Abs(diff)/4, 1),
		Title:          "Efeito de fim de semana",
		Description:    fmt.Sprintf("Dor média %.1f pontos maior em %s.", math.Abs(diff), when),
		Recommendation: advice,
		BasedOnEntries: len(entries),
	}
}

// DetectCorrelations computes pairwise Pearson correlation among the four
// core metrics and flags strongly associated pairs
func (d *PatternDetector) DetectCorrelations(entries []model.DiaryEntry) []model.Insight {
	if len(entries) < minEntriesForCorrelation {
		return nil
	}

	metrics := []struct {
		name  string
		label string
	}{
		{model.MetricPain, "dor"},
		{model.MetricEnergy, "energia"},
		{model.MetricSleep, "sono"},
		{model.MetricMood, "humor"},
	}

	series := make(map[string][]float64, len(metrics))
	for _, m := range metrics {
		vals := make([]float64, len(entries))
		for i, e := range entries {
			vals[i], _ = e.MetricValue(m.name)
		}
		series[m.name] = vals
	}

	var insights []model.Insight
	for i := 0; i < len(metrics); i++ {
		for j := i + 1; j < len(metrics); j++ {
			r := Correlate(series[metrics[i].name], series[metrics[j].name])
			if math.Abs(r) <= correlationThreshold {
				continue
			}

			relation := "aumenta junto com"
			if r < 0 {
				relation = "diminui quando sobe"
			}

			insights = append(insights, model.Insight{
				Type:       model.InsightCorrelation,
				Severity:   model.InsightMedium,
				Confidence: math.Abs(r),
				Title:      fmt.Sprintf("Correlação entre %s e %s", metrics[i].label, metrics[j].label),
				Description: fmt.Sprintf("%s %s %s (r=%.2f).",
					metrics[i].label, relation, metrics[j].label, r),
				Recommendation: fmt.Sprintf("Acompanhe %s e %s em conjunto nas próximas sessões.",
					metrics[i].label, metrics[j].label),
				BasedOnEntries: len(entries),
			})
		}
	}

	return insights
}

// DetectMedicationEffect compares mean pain between days with and without
// recorded medication
func (d *PatternDetector) DetectMedicationEffect(entries []model.DiaryEntry) *model.Insight {
	var withMed, withoutMed []float64
	for _, e := range entries {
		if len(e.MedicationsTaken) > 0 {
			withMed = append(withMed, e.OverallPain)
		} else {
			withoutMed = append(withoutMed, e.OverallPain)
		}
	}

	if len(withMed) < minPartitionSize || len(withoutMed) < minPartitionSize {
		return nil
	}

	diff := mean(withoutMed) - mean(withMed)
	if diff <= medicationPainThreshold {
		return nil
	}

	return &model.Insight{
		Type:           model.InsightMedication,
		Severity:       model.InsightMedium,
		Confidence:     math.Min(diff/4, 1),
		Title:          "Efeito da medicação",
		Description:    fmt.Sprintf("Dor média %.1f pontos menor nos dias com medicação.", diff),
		Recommendation: "Reforce a adesão à medicação prescrita e registre os horários.",
		BasedOnEntries: len(entries),
	}
}

// DetectExerciseEffect compares pain and energy between days with and
// without completed exercises
func (d *PatternDetector) DetectExerciseEffect(entries []model.DiaryEntry) *model.Insight {
	var withEx, withoutEx []model.DiaryEntry
	for _, e := range entries {
		if len(e.ExercisesCompleted) > 0 {
			withEx = append(withEx, e)
		} else {
			withoutEx = append(withoutEx, e)
		}
	}

	if len(withEx) < minPartitionSize || len(withoutEx) < minPartitionSize {
		return nil
	}

	painDiff := meanOf(withoutEx, model.MetricPain) - meanOf(withEx, model.MetricPain)
	energyDiff := meanOf(withEx, model.MetricEnergy) - meanOf(withoutEx, model.MetricEnergy)

	if painDiff <= exerciseEffectThreshold && energyDiff <= exerciseEffectThreshold {
		return nil
	}

	desc := fmt.Sprintf("Nos dias com exercícios: dor %.1f ponto(s) menor, energia %.1f ponto(s) maior.",
		math.Max(painDiff, 0), math.Max(energyDiff, 0))

	return &model.Insight{
		Type:           model.InsightExercise,
		Severity:       model.InsightMedium,
		Confidence:     math.Min(math.Max(painDiff, energyDiff)/3, 1),
		Title:          "Efeito dos exercícios",
		Description:    desc,
		Recommendation: "Mantenha a regularidade dos exercícios domiciliares prescritos.",
		BasedOnEntries: len(entries),
	}
}

// DetectPainHotspot aggregates recorded pain locations by region and flags
// the dominant one
func (d *PatternDetector) DetectPainHotspot(entries []model.DiaryEntry) *model.Insight {
	type regionStats struct {
		count          int
		totalIntensity float64
	}

	regions := make(map[string]*regionStats)
	for _, e := range entries {
		for _, loc := range e.PainLocations {
			rs, ok := regions[loc.Region]
			if !ok {
				rs = &regionStats{}
				regions[loc.Region] = rs
			}
			rs.count++
			rs.totalIntensity += loc.Intensity
		}
	}

	if len(regions) == 0 {
		return nil
	}

	// score = count * average intensity; sort for a deterministic winner
	names := make([]string, 0, len(regions))
	for name := range regions {
		names = append(names, name)
	}
	sort.Strings(names)

	var topRegion string
	var topScore float64
	for _, name := range names {
		rs := regions[name]
		score := float64(rs.count) * (rs.totalIntensity / float64(rs.count))
		if score > topScore {
			topScore = score
			topRegion = name
		}
	}

	top := regions[topRegion]
	if top.count < hotspotMinCount {
		return nil
	}

	avgIntensity := top.totalIntensity / float64(top.count)
	severity := model.InsightMedium
	if avgIntensity > hotspotHighIntensity {
		severity = model.InsightHigh
	}

	return &model.Insight{
		Type:           model.InsightPainLocation,
		Severity:       severity,
		Confidence:     math.Min(avgIntensity/10, 1),
		Title:          fmt.Sprintf("Região mais afetada: %s", topRegion),
		Description:    fmt.Sprintf("%d registros em %s com intensidade média %.1f.", top.count, topRegion, avgIntensity),
		Recommendation: fmt.Sprintf("Priorize a região %s no próximo plano de tratamento.", topRegion),
		BasedOnEntries: len(entries),
	}
}

// meanOf averages one core metric over a set of entries
func meanOf(entries []model.DiaryEntry, metric string) float64 {
	if len(entries) == 0 {
		return 0
	}
	var sum float64
	for _, e := range entries {
		v, _ := e.MetricValue(metric)
		sum += v
	}
	return sum / float64(len(entries))
}

package model

import "time"

// AnalysisVersion is carried on every report so dashboard consumers can
// detect shape changes across releases.
const AnalysisVersion = "1.0"

// TrendDirection classifies the direction of a metric trend
type TrendDirection string

const (
	TrendIncreasing TrendDirection = "increasing"
	TrendDecreasing TrendDirection = "decreasing"
	TrendStable     TrendDirection = "stable"
)

// Trend is a per-metric linear regression result with a short projection
type Trend struct {
	Metric          string         `json:"metric"`
	Label           string         `json:"label"`
	Direction       TrendDirection `json:"direction"`
	Slope           float64        `json:"slope"`
	Confidence      float64        `json:"confidence"` // R-squared, 0-1
	IsSignificant   bool           `json:"is_significant"`
	Period          string         `json:"period"`
	CurrentValue    float64        `json:"current_value"`
	AverageValue    float64        `json:"average_value"`
	ProjectedValues []float64      `json:"projected_values"` // next 7 days, clamped
	Description     string         `json:"description"`
}

// InsightType classifies a detected pattern
type InsightType string

const (
	InsightPattern      InsightType = "pattern"
	InsightCorrelation  InsightType = "correlation"
	InsightMedication   InsightType = "medication"
	InsightExercise     InsightType = "exercise"
	InsightPainLocation InsightType = "pain_location"
)

// InsightSeverity is the ordinal severity of an insight
type InsightSeverity string

const (
	InsightLow    InsightSeverity = "low"
	InsightMedium InsightSeverity = "medium"
	InsightHigh   InsightSeverity = "high"
)

// Insight is a detected behavioral or cross-metric pattern
type Insight struct {
	Type           InsightType     `json:"type"`
	Severity       InsightSeverity `json:"severity"`
	Confidence     float64         `json:"confidence"` // 0-1
	Title          string          `json:"title"`
	Description    string          `json:"description"`
	Recommendation string          `json:"recommendation"`
	BasedOnEntries int             `json:"based_on_entries"`
}

// AbandonmentRisk is the ordinal risk of a patient abandoning treatment
type AbandonmentRisk string

const (
	RiskLow    AbandonmentRisk = "LOW"
	RiskMedium AbandonmentRisk = "MEDIUM"
	RiskHigh   AbandonmentRisk = "HIGH"
)

// PredictionFactor is one named contribution to a prediction
type PredictionFactor struct {
	Name        string  `json:"name"`
	Impact      float64 `json:"impact"` // -1..1
	Description string  `json:"description"`
}

// Prediction is a forward-looking treatment outcome estimate for a patient
type Prediction struct {
	PatientID              string             `json:"patient_id"`
	Pathology              string             `json:"pathology"`
	EstimatedTreatmentDays int                `json:"estimated_treatment_days"` // >= 7
	SuccessProbability     float64            `json:"success_probability"`      // 0-1
	AbandonmentRisk        AbandonmentRisk    `json:"abandonment_risk"`
	ComplicationRisk       float64            `json:"complication_risk"` // 0-1
	ReassessmentNeeded     bool               `json:"reassessment_needed"`
	Confidence             float64            `json:"confidence"` // 0-1
	Factors                []PredictionFactor `json:"factors,omitempty"`
	GeneratedAt            time.Time          `json:"generated_at"`
}

// AlertSeverity ranks alerts for display
type AlertSeverity string

const (
	SeverityLow      AlertSeverity = "LOW"
	SeverityMedium   AlertSeverity = "MEDIUM"
	SeverityHigh     AlertSeverity = "HIGH"
	SeverityCritical AlertSeverity = "CRITICAL"
)

// Rank maps a severity onto an integer for ordering; unknown values rank lowest.
func (s AlertSeverity) Rank() int {
	switch s {
	case SeverityCritical:
		return 4
	case SeverityHigh:
		return 3
	case SeverityMedium:
		return 2
	case SeverityLow:
		return 1
	}
	return 0
}

// AlertType classifies an operational alert
type AlertType string

const (
	AlertAbandonmentRisk      AlertType = "abandonment_risk"
	AlertSpecialAttention     AlertType = "special_attention"
	AlertInactivePatient      AlertType = "inactive_patient"
	AlertTreatmentImprovement AlertType = "treatment_improvement"
	AlertHighCancellation     AlertType = "high_cancellation"
	AlertNewPatientDrop       AlertType = "new_patient_drop"
	AlertWorkloadImbalance    AlertType = "workload_imbalance"
	AlertLowDemandHours       AlertType = "low_demand_hours"
	AlertWorseningTrend       AlertType = "worsening_trend"
	AlertHighSymptoms         AlertType = "high_symptoms"
	AlertInsightEscalation    AlertType = "insight_escalation"
)

// Alert is a severity-ranked notice requiring human attention.
// Lifecycle: active -> read -> acknowledged -> resolved (terminal).
type Alert struct {
	ID               string        `json:"id"`
	Type             AlertType     `json:"type"`
	Severity         AlertSeverity `json:"severity"`
	Title            string        `json:"title"`
	Message          string        `json:"message"`
	AffectedEntities []string      `json:"affected_entities,omitempty"`
	SuggestedActions []string      `json:"suggested_actions,omitempty"`
	CreatedAt        time.Time     `json:"created_at"`
	IsRead           bool          `json:"is_read"`
	IsResolved       bool          `json:"is_resolved"`
	AcknowledgedAt   *time.Time    `json:"acknowledged_at,omitempty"`
}

// Statistics are rolling averages over the analysis window
type Statistics struct {
	AvgPain    float64 `json:"avg_pain"`
	AvgEnergy  float64 `json:"avg_energy"`
	AvgSleep   float64 `json:"avg_sleep"`
	AvgMood    float64 `json:"avg_mood"`
	EntryCount int     `json:"entry_count"`
}

// OverallStatus classifies the patient's situation in a report summary
type OverallStatus string

const (
	StatusCritical   OverallStatus = "critical"
	StatusConcerning OverallStatus = "concerning"
	StatusImproving  OverallStatus = "improving"
	StatusStable     OverallStatus = "stable"
)

// RiskLevel is the derived per-patient risk classification
type RiskLevel string

const (
	RiskLevelLow    RiskLevel = "low"
	RiskLevelMedium RiskLevel = "medium"
	RiskLevelHigh   RiskLevel = "high"
)

// Summary condenses a report into status, risk and actionable items
type Summary struct {
	OverallStatus   OverallStatus `json:"overall_status"`
	RiskLevel       RiskLevel     `json:"risk_level"`
	KeyFindings     []string      `json:"key_findings,omitempty"`
	Recommendations []string      `json:"recommendations,omitempty"`
}

// AnalysisReport is the complete per-patient analysis snapshot.
// Immutable once returned; field names are stable across versions.
type AnalysisReport struct {
	PatientID   string     `json:"patient_id"`
	Period      string     `json:"period"`
	Trends      []Trend    `json:"trends"`
	Insights    []Insight  `json:"insights"`
	Alerts      []Alert    `json:"alerts"`
	Statistics  Statistics `json:"statistics"`
	Summary     Summary    `json:"summary"`
	GeneratedAt time.Time  `json:"generated_at"`
	Version     string     `json:"version"`
}

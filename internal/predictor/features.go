package predictor

import (
	"sort"
	"strings"
	"time"

	"github.com/fisiocore/backend/pkg/model"
	"go.uber.org/zap"
)

// Adherence assumed for patients without any appointment history
const defaultAdherence = 0.8

// FeatureVector is the per-patient input to outcome prediction
type FeatureVector struct {
	PatientID          string   `json:"patient_id"`
	Age                int      `json:"age"`
	Pathology          string   `json:"pathology"`
	Severity           float64  `json:"severity"` // 0-10
	Comorbidities      []string `json:"comorbidities,omitempty"`
	PreviousTreatments []string `json:"previous_treatments,omitempty"`
	AdherenceScore     float64  `json:"adherence_score"` // 0-1
	PainLevel          float64  `json:"pain_level"`      // 0-10
	FunctionalStatus   string   `json:"functional_status"`
	RawHistory         string   `json:"-"`
}

// FeatureExtractor builds feature vectors from patient records
type FeatureExtractor struct {
	classifier TextClassifier
	logger     *zap.Logger
}

// NewFeatureExtractor creates a new FeatureExtractor
func NewFeatureExtractor(classifier TextClassifier, logger *zap.Logger) *FeatureExtractor {
	return &FeatureExtractor{
		classifier: classifier,
		logger:     logger,
	}
}

// Extract derives the feature vector for one patient from their records
func (e *FeatureExtractor) Extract(patient model.Patient, assessments []model.Assessment, appointments []model.Appointment, prescriptions []model.Prescription) FeatureVector {
	features := FeatureVector{
		PatientID:  patient.ID,
		RawHistory: patient.MedicalHistory,
	}

	if patient.BirthDate != nil {
		features.Age = ageAt(*patient.BirthDate, time.Now())
	}

	features.Pathology = e.classifier.ClassifyPathology(patient.MedicalHistory)
	features.Comorbidities = e.classifier.ExtractComorbidities(patient.MedicalHistory)
	features.PreviousTreatments = e.classifier.ExtractPreviousTreatments(patient.MedicalHistory)

	latestNotes := latestAssessmentNotes(assessments)
	features.Severity = e.classifier.ClassifySeverity(latestNotes)
	features.PainLevel = painLevelFromNotes(latestNotes, features.Severity)
	features.FunctionalStatus = functionalStatusFromNotes(latestNotes)

	features.AdherenceScore = adherenceScore(appointments)

	e.logger.Debug("features extracted",
		zap.String("patient_id", patient.ID),
		zap.Int("age", features.Age),
		zap.String("pathology", features.Pathology),
		zap.Float64("severity", features.Severity),
		zap.Float64("adherence", features.AdherenceScore),
		zap.Int("prescription_count", len(prescriptions)),
	)

	return features
}

// ageAt returns full years between birth and the reference date
func ageAt(birth, ref time.Time) int {
	years := ref.Year() - birth.Year()
	if ref.YearDay() < birth.YearDay() {
		years--
	}
	if years < 0 {
		return 0
	}
	return years
}

// latestAssessmentNotes returns the notes of the most recent assessment
func latestAssessmentNotes(assessments []model.Assessment) string {
	if len(assessments) == 0 {
		return ""
	}
	sorted := make([]model.Assessment, len(assessments))
	copy(sorted, assessments)
	sort.Slice(sorted, func(i, j int) bool {
		return sorted[i].CreatedAt.After(sorted[j].CreatedAt)
	})
	return sorted[0].Notes
}

// adherenceScore = max(0, (completed - 2*cancelled) / total). Cancellations
// and no-shows weigh double against attendance.
func adherenceScore(appointments []model.Appointment) float64 {
	if len(appointments) == 0 {
		return defaultAdherence
	}

	var completed, cancelled int
	for _, a := range appointments {
		switch a.Status {
		case model.AppointmentCompleted:
			completed++
		case model.AppointmentCancelled, model.AppointmentNoShow:
			cancelled++
		}
	}

	score := (float64(completed) - 2*float64(cancelled)) / float64(len(appointments))
	if score < 0 {
		return 0
	}
	return score
}

// painLevelFromNotes infers a 0-10 pain level from free-text wording,
// falling back to the severity estimate
func painLevelFromNotes(notes string, severity float64) float64 {
	lower := strings.ToLower(notes)
	switch {
	case strings.Contains(lower, "dor intensa"), strings.Contains(lower, "dor forte"):
		return 8
	case strings.Contains(lower, "dor moderada"):
		return 5
	case strings.Contains(lower, "dor leve"), strings.Contains(lower, "desconforto"):
		return 3
	case strings.Contains(lower, "sem dor"):
		return 0
	}
	return severity
}

// functionalStatusFromNotes infers a coarse functional classification
func functionalStatusFromNotes(notes string) string {
	lower := strings.ToLower(notes)
	switch {
	case strings.Contains(lower, "acamado"), strings.Contains(lower, "cadeira de rodas"):
		return "dependente"
	case strings.Contains(lower, "limitação"), strings.Contains(lower, "dificuldade"):
		return "limitado"
	case strings.Contains(lower, "independente"), strings.Contains(lower, "sem limitação"):
		return "independente"
	}
	return "parcialmente limitado"
}

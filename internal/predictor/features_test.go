package predictor

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"go.uber.org/zap"

	"github.com/fisiocore/backend/pkg/model"
)

func TestKeywordClassifier_Pathology(t *testing.T) {
	classifier := NewKeywordClassifier()

	assert.Equal(t, "hérnia de disco", classifier.ClassifyPathology("Paciente com hérnia de disco L4-L5"))
	assert.Equal(t, "tendinite", classifier.ClassifyPathology("Tendinite no ombro direito"))
	assert.Equal(t, DefaultPathology, classifier.ClassifyPathology("dor difusa sem diagnóstico"))
	assert.Equal(t, DefaultPathology, classifier.ClassifyPathology(""))
}

func TestKeywordClassifier_Severity(t *testing.T) {
	classifier := NewKeywordClassifier()

	assert.Equal(t, 8.0, classifier.ClassifySeverity("quadro grave com perda de força"))
	assert.Equal(t, 8.0, classifier.ClassifySeverity("comprometimento severo"))
	assert.Equal(t, 5.0, classifier.ClassifySeverity("dor moderada ao caminhar"))
	assert.Equal(t, 3.0, classifier.ClassifySeverity("desconforto leve"))
	assert.Equal(t, 5.0, classifier.ClassifySeverity("sem observações"))
	assert.Equal(t, 5.0, classifier.ClassifySeverity(""))
}

func TestKeywordClassifier_Extraction(t *testing.T) {
	classifier := NewKeywordClassifier()

	history := "Paciente com diabetes e hipertensão, já fez fisioterapia e cirurgia no joelho"

	comorbidities := classifier.ExtractComorbidities(history)
	assert.ElementsMatch(t, []string{"diabetes", "hipertensão"}, comorbidities)

	treatments := classifier.ExtractPreviousTreatments(history)
	assert.ElementsMatch(t, []string{"cirurgia", "fisioterapia"}, treatments)
}

func TestFeatureExtractor_FullRecord(t *testing.T) {
	extractor := NewFeatureExtractor(NewKeywordClassifier(), zap.NewNop())

	birth := time.Now().AddDate(-45, 0, -1)
	patient := model.Patient{
		ID:             "p1",
		BirthDate:      &birth,
		MedicalHistory: "Hérnia de disco, diabetes, fez cirurgia em 2023",
	}
	assessments := []model.Assessment{
		{Notes: "quadro leve", CreatedAt: time.Now().AddDate(0, -2, 0)},
		{Notes: "evolução para quadro grave com dor intensa", CreatedAt: time.Now().AddDate(0, 0, -1)},
	}
	appointments := []model.Appointment{
		{Status: model.AppointmentCompleted},
		{Status: model.AppointmentCompleted},
		{Status: model.AppointmentCompleted},
		{Status: model.AppointmentCancelled},
	}

	features := extractor.Extract(patient, assessments, appointments, nil)

	assert.Equal(t, "p1", features.PatientID)
	assert.Equal(t, 45, features.Age)
	assert.Equal(t, "hérnia de disco", features.Pathology)
	// Latest assessment wins: grave -> 8
	assert.Equal(t, 8.0, features.Severity)
	assert.Equal(t, 8.0, features.PainLevel)
	assert.Contains(t, features.Comorbidities, "diabetes")
	assert.Contains(t, features.PreviousTreatments, "cirurgia")
	// (3 completed - 2*1 cancelled) / 4
	assert.InDelta(t, 0.25, features.AdherenceScore, 1e-9)
}

func TestFeatureExtractor_NoAppointmentsDefaultsAdherence(t *testing.T) {
	extractor := NewFeatureExtractor(NewKeywordClassifier(), zap.NewNop())

	features := extractor.Extract(model.Patient{ID: "p1"}, nil, nil, nil)

	assert.InDelta(t, 0.8, features.AdherenceScore, 1e-9)
	assert.Equal(t, DefaultPathology, features.Pathology)
	assert.Equal(t, 0, features.Age)
}

func TestAdherenceScore_NeverNegative(t *testing.T) {
	appointments := []model.Appointment{
		{Status: model.AppointmentCancelled},
		{Status: model.AppointmentCancelled},
		{Status: model.AppointmentNoShow},
	}

	assert.Equal(t, 0.0, adherenceScore(appointments))
}

func TestAgeAt(t *testing.T) {
	ref := time.Date(2026, 6, 15, 0, 0, 0, 0, time.UTC)

	assert.Equal(t, 40, ageAt(time.Date(1986, 6, 14, 0, 0, 0, 0, time.UTC), ref))
	assert.Equal(t, 39, ageAt(time.Date(1986, 6, 16, 0, 0, 0, 0, time.UTC), ref))
	assert.Equal(t, 0, ageAt(time.Date(2030, 1, 1, 0, 0, 0, 0, time.UTC), ref))
}

func TestFunctionalStatusFromNotes(t *testing.T) {
	assert.Equal(t, "dependente", functionalStatusFromNotes("paciente acamado"))
	assert.Equal(t, "limitado", functionalStatusFromNotes("dificuldade para subir escadas"))
	assert.Equal(t, "independente", functionalStatusFromNotes("independente nas AVDs"))
	assert.Equal(t, "parcialmente limitado", functionalStatusFromNotes(""))
}

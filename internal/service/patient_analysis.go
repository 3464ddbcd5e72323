package service

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/fisiocore/backend/internal/alerts"
	"github.com/fisiocore/backend/internal/predictor"
	"github.com/fisiocore/backend/pkg/model"
)

// PatientReader loads patient records for analysis
type PatientReader interface {
	GetByID(ctx context.Context, patientID string) (*model.Patient, error)
	ListByTenant(ctx context.Context, tenantID string) ([]model.Patient, error)
}

// DiaryReader loads diary entries for analysis
type DiaryReader interface {
	GetEntriesByPatient(ctx context.Context, patientID string, startDate, endDate time.Time) ([]model.DiaryEntry, error)
}

// ClinicalReader loads appointments, assessments and prescriptions
type ClinicalReader interface {
	GetAppointmentsByPatient(ctx context.Context, patientID string) ([]model.Appointment, error)
	GetAppointmentsSince(ctx context.Context, tenantID string, since time.Time) ([]model.Appointment, error)
	GetAssessmentsByPatient(ctx context.Context, patientID string) ([]model.Assessment, error)
	GetActivePrescriptions(ctx context.Context, patientID string) ([]model.Prescription, error)
}

// PatientAnalysisService is the entry point tying repositories to the
// analysis, prediction and alerting engines
type PatientAnalysisService struct {
	patients     PatientReader
	diary        DiaryReader
	clinical     ClinicalReader
	orchestrator *AnalysisOrchestrator
	extractor    *predictor.FeatureExtractor
	predictor    *predictor.OutcomePredictor
	alertEngine  *alerts.Engine
	logger       *zap.Logger
}

// NewPatientAnalysisService creates a new PatientAnalysisService
func NewPatientAnalysisService(
	patients PatientReader,
	diary DiaryReader,
	clinical ClinicalReader,
	orchestrator *AnalysisOrchestrator,
	extractor *predictor.FeatureExtractor,
	outcomePredictor *predictor.OutcomePredictor,
	alertEngine *alerts.Engine,
	logger *zap.Logger,
) *PatientAnalysisService {
	return &PatientAnalysisService{
		patients:     patients,
		diary:        diary,
		clinical:     clinical,
		orchestrator: orchestrator,
		extractor:    extractor,
		predictor:    outcomePredictor,
		alertEngine:  alertEngine,
		logger:       logger,
	}
}

// AnalyzePatient runs the complete analysis over the trailing period
func (s *PatientAnalysisService) AnalyzePatient(ctx context.Context, patientID string, periodDays int) (*model.AnalysisReport, error) {
	if _, err := s.patients.GetByID(ctx, patientID); err != nil {
		return nil, fmt.Errorf("failed to load patient: %w", err)
	}

	now := time.Now()
	entries, err := s.diary.GetEntriesByPatient(ctx, patientID, now.AddDate(0, 0, -periodDays), now)
	if err != nil {
		return nil, fmt.Errorf("failed to load diary entries: %w", err)
	}

	report := s.orchestrator.PerformCompleteAnalysis(ctx, patientID, entries)
	return &report, nil
}

// PredictOutcome builds the feature vector from the patient's records and
// estimates the treatment outcome
func (s *PatientAnalysisService) PredictOutcome(ctx context.Context, patientID string) (*model.Prediction, error) {
	features, err := s.featuresFor(ctx, patientID)
	if err != nil {
		return nil, err
	}

	prediction := s.predictor.Predict(ctx, features)
	return &prediction, nil
}

// featuresFor assembles one patient's feature vector
func (s *PatientAnalysisService) featuresFor(ctx context.Context, patientID string) (predictor.FeatureVector, error) {
	patient, err := s.patients.GetByID(ctx, patientID)
	if err != nil {
		return predictor.FeatureVector{}, fmt.Errorf("failed to load patient: %w", err)
	}

	assessments, err := s.clinical.GetAssessmentsByPatient(ctx, patientID)
	if err != nil {
		return predictor.FeatureVector{}, fmt.Errorf("failed to load assessments: %w", err)
	}

	appointments, err := s.clinical.GetAppointmentsByPatient(ctx, patientID)
	if err != nil {
		return predictor.FeatureVector{}, fmt.Errorf("failed to load appointments: %w", err)
	}

	prescriptions, err := s.clinical.GetActivePrescriptions(ctx, patientID)
	if err != nil {
		return predictor.FeatureVector{}, fmt.Errorf("failed to load prescriptions: %w", err)
	}

	return s.extractor.Extract(*patient, assessments, appointments, prescriptions), nil
}

// EvaluateClinicAlerts snapshots the tenant's records, predicts outcomes in
// batch and runs the alert rule set over the result
func (s *PatientAnalysisService) EvaluateClinicAlerts(ctx context.Context, tenantID string) ([]model.Alert, error) {
	now := time.Now()

	patients, err := s.patients.ListByTenant(ctx, tenantID)
	if err != nil {
		return nil, fmt.Errorf("failed to list patients: %w", err)
	}

	appointments, err := s.clinical.GetAppointmentsSince(ctx, tenantID, now.AddDate(0, -2, 0))
	if err != nil {
		return nil, fmt.Errorf("failed to load appointments: %w", err)
	}

	patientIDs := make([]string, 0, len(patients))
	for _, patient := range patients {
		patientIDs = append(patientIDs, patient.ID)
	}

	predictions := s.predictor.BatchPredict(ctx, patientIDs, func(patientID string) (predictor.FeatureVector, error) {
		return s.featuresFor(ctx, patientID)
	})

	created := s.alertEngine.Evaluate(ctx, alerts.EvaluationInput{
		Now:          now,
		Patients:     patients,
		Appointments: appointments,
		Predictions:  predictions,
	})

	s.logger.Info("clinic alert evaluation finished",
		zap.String("tenant_id", tenantID),
		zap.Int("patients", len(patients)),
		zap.Int("alerts_created", len(created)),
	)

	return created, nil
}

// ActiveAlerts returns the current ranked alert feed
func (s *PatientAnalysisService) ActiveAlerts() []model.Alert {
	return s.alertEngine.Active()
}

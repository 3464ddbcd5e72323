package service

import (
	"bytes"
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/fisiocore/backend/internal/alerts"
	"github.com/fisiocore/backend/internal/azure"
	"github.com/fisiocore/backend/internal/pdf"
	"github.com/fisiocore/backend/internal/predictor"
	"github.com/fisiocore/backend/pkg/model"
)

type stubPatientReader struct {
	patients map[string]model.Patient
}

func (s *stubPatientReader) GetByID(ctx context.Context, patientID string) (*model.Patient, error) {
	p, ok := s.patients[patientID]
	if !ok {
		return nil, fmt.Errorf("patient not found: %s", patientID)
	}
	return &p, nil
}

func (s *stubPatientReader) ListByTenant(ctx context.Context, tenantID string) ([]model.Patient, error) {
	var out []model.Patient
	for _, p := range s.patients {
		if p.TenantID == tenantID {
			out = append(out, p)
		}
	}
	return out, nil
}

type stubDiaryReader struct {
	entries []model.DiaryEntry
}

func (s *stubDiaryReader) GetEntriesByPatient(ctx context.Context, patientID string, startDate, endDate time.Time) ([]model.DiaryEntry, error) {
	return s.entries, nil
}

type stubClinicalReader struct{}

func (s *stubClinicalReader) GetAppointmentsByPatient(ctx context.Context, patientID string) ([]model.Appointment, error) {
	return nil, nil
}

func (s *stubClinicalReader) GetAppointmentsSince(ctx context.Context, tenantID string, since time.Time) ([]model.Appointment, error) {
	return nil, nil
}

func (s *stubClinicalReader) GetAssessmentsByPatient(ctx context.Context, patientID string) ([]model.Assessment, error) {
	return nil, nil
}

func (s *stubClinicalReader) GetActivePrescriptions(ctx context.Context, patientID string) ([]model.Prescription, error) {
	return nil, nil
}

type memReportStore struct {
	reports map[string]model.Report
	order   []string
}

func newMemReportStore() *memReportStore {
	return &memReportStore{reports: make(map[string]model.Report)}
}

func (m *memReportStore) Save(ctx context.Context, report *model.Report) error {
	m.reports[report.ID] = *report
	m.order = append(m.order, report.ID)
	return nil
}

func (m *memReportStore) GetByID(ctx context.Context, reportID string) (*model.Report, error) {
	r, ok := m.reports[reportID]
	if !ok {
		return nil, fmt.Errorf("report not found: %s", reportID)
	}
	return &r, nil
}

func (m *memReportStore) ListByPatient(ctx context.Context, patientID string) ([]model.Report, error) {
	var out []model.Report
	for _, id := range m.order {
		if m.reports[id].PatientID == patientID {
			out = append(out, m.reports[id])
		}
	}
	return out, nil
}

func newTestReportService(patients *stubPatientReader, entries []model.DiaryEntry) (*ReportService, *memReportStore) {
	logger := zap.NewNop()

	analysisService := NewPatientAnalysisService(
		patients,
		&stubDiaryReader{entries: entries},
		&stubClinicalReader{},
		newTestOrchestrator(),
		predictor.NewFeatureExtractor(predictor.NewKeywordClassifier(), logger),
		predictor.NewOutcomePredictor(nil, logger),
		alerts.NewEngine(alerts.NewRuleSet(nil, 0, logger), alerts.NewStore(logger), logger),
		logger,
	)

	store := newMemReportStore()
	reportService := NewReportService(
		analysisService,
		patients,
		store,
		azure.NewMockBlobStorageClient(logger),
		pdf.NewPDFGenerator(logger),
		logger,
	)

	return reportService, store
}

func TestGenerateReport_RoundTrip(t *testing.T) {
	patients := &stubPatientReader{patients: map[string]model.Patient{
		"p1": {ID: "p1", TenantID: "clinic-1", Name: "Maria Souza"},
	}}
	entries := entriesOverDays(14, func(i int, e *model.DiaryEntry) {
		e.OverallPain = 4
	})

	svc, store := newTestReportService(patients, entries)

	reportID, err := svc.GenerateReport(context.Background(), "p1", 30)
	require.NoError(t, err)
	require.NotEmpty(t, reportID)

	saved, err := store.GetByID(context.Background(), reportID)
	require.NoError(t, err)
	assert.Equal(t, "p1", saved.PatientID)
	assert.NotEmpty(t, saved.FilePath)

	pdfBytes, err := svc.GetReport(context.Background(), reportID)
	require.NoError(t, err)
	assert.True(t, bytes.HasPrefix(pdfBytes, []byte("%PDF")))

	reports, err := svc.GetReportsByPatient(context.Background(), "p1")
	require.NoError(t, err)
	require.Len(t, reports, 1)
	assert.Equal(t, reportID, reports[0].ID)
}

func TestGenerateReport_UnknownPatient(t *testing.T) {
	svc, _ := newTestReportService(&stubPatientReader{patients: map[string]model.Patient{}}, nil)

	_, err := svc.GenerateReport(context.Background(), "missing", 30)
	assert.Error(t, err)
}

func TestGetReport_UnknownID(t *testing.T) {
	svc, _ := newTestReportService(&stubPatientReader{patients: map[string]model.Patient{}}, nil)

	_, err := svc.GetReport(context.Background(), "missing")
	assert.Error(t, err)
}

package service

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/fisiocore/backend/internal/azure"
	"github.com/fisiocore/backend/internal/pdf"
	"github.com/fisiocore/backend/pkg/model"
)

// ReportStore persists report metadata
type ReportStore interface {
	Save(ctx context.Context, report *model.Report) error
	GetByID(ctx context.Context, reportID string) (*model.Report, error)
	ListByPatient(ctx context.Context, patientID string) ([]model.Report, error)
}

// ReportService renders analysis reports to PDF and archives them
type ReportService struct {
	analysis   *PatientAnalysisService
	patients   PatientReader
	reportRepo ReportStore
	blobClient azure.BlobStorage
	pdfGen     *pdf.PDFGenerator
	logger     *zap.Logger
}

// NewReportService creates a new ReportService
func NewReportService(
	analysis *PatientAnalysisService,
	patients PatientReader,
	reportRepo ReportStore,
	blobClient azure.BlobStorage,
	pdfGen *pdf.PDFGenerator,
	logger *zap.Logger,
) *ReportService {
	return &ReportService{
		analysis:   analysis,
		patients:   patients,
		reportRepo: reportRepo,
		blobClient: blobClient,
		pdfGen:     pdfGen,
		logger:     logger,
	}
}

// GenerateReport runs a fresh analysis, renders it to PDF, uploads the file
// and records the metadata. Returns the new report ID.
func (s *ReportService) GenerateReport(ctx context.Context, patientID string, periodDays int) (string, error) {
	s.logger.Info("generating analysis report",
		zap.String("patient_id", patientID),
		zap.Int("period_days", periodDays),
	)

	reportID := uuid.New().String()
	endDate := time.Now()
	startDate := endDate.AddDate(0, 0, -periodDays)

	patient, err := s.patients.GetByID(ctx, patientID)
	if err != nil {
		s.logger.Error("failed to load patient for report",
			zap.Error(err),
			zap.String("patient_id", patientID),
		)
		return "", fmt.Errorf("failed to load patient: %w", err)
	}

	analysis, err := s.analysis.AnalyzePatient(ctx, patientID, periodDays)
	if err != nil {
		s.logger.Error("failed to run analysis for report",
			zap.Error(err),
			zap.String("patient_id", patientID),
		)
		return "", fmt.Errorf("failed to run analysis: %w", err)
	}

	// A failed prediction should not block the report; the section is
	// simply omitted
	var prediction *model.Prediction
	if p, err := s.analysis.PredictOutcome(ctx, patientID); err == nil {
		prediction = p
	} else {
		s.logger.Warn("prediction unavailable for report",
			zap.Error(err),
			zap.String("patient_id", patientID),
		)
	}

	dateRange := fmt.Sprintf("%s a %s", startDate.Format("2006-01-02"), endDate.Format("2006-01-02"))
	pdfBytes, err := s.pdfGen.Generate(&pdf.ReportData{
		PatientName: patient.Name,
		DateRange:   dateRange,
		Analysis:    *analysis,
		Prediction:  prediction,
	})
	if err != nil {
		s.logger.Error("failed to generate PDF",
			zap.Error(err),
			zap.String("report_id", reportID),
		)
		return "", fmt.Errorf("failed to generate PDF: %w", err)
	}

	filename := fmt.Sprintf("%s_%s.pdf", reportID, endDate.Format("20060102"))
	blobPath, err := s.blobClient.UploadPDF(ctx, filename, pdfBytes)
	if err != nil {
		s.logger.Error("failed to upload PDF to blob storage",
			zap.Error(err),
			zap.String("report_id", reportID),
		)
		return "", fmt.Errorf("failed to upload PDF: %w", err)
	}

	report := &model.Report{
		ID:             reportID,
		PatientID:      patientID,
		DateRangeStart: startDate,
		DateRangeEnd:   endDate,
		FilePath:       blobPath,
		GeneratedAt:    endDate,
	}

	if err := s.reportRepo.Save(ctx, report); err != nil {
		s.logger.Error("failed to save report record",
			zap.Error(err),
			zap.String("report_id", reportID),
		)
		return "", fmt.Errorf("failed to save report record: %w", err)
	}

	s.logger.Info("analysis report generated successfully",
		zap.String("report_id", reportID),
		zap.String("patient_id", patientID),
		zap.String("blob_path", blobPath),
	)

	return reportID, nil
}

// GetReport retrieves a report PDF for download
func (s *ReportService) GetReport(ctx context.Context, reportID string) ([]byte, error) {
	s.logger.Info("retrieving report",
		zap.String("report_id", reportID),
	)

	report, err := s.reportRepo.GetByID(ctx, reportID)
	if err != nil {
		s.logger.Error("failed to get report record",
			zap.Error(err),
			zap.String("report_id", reportID),
		)
		return nil, fmt.Errorf("failed to get report record: %w", err)
	}

	pdfBytes, err := s.blobClient.DownloadPDF(ctx, report.FilePath)
	if err != nil {
		s.logger.Error("failed to download PDF from blob storage",
			zap.Error(err),
			zap.String("report_id", reportID),
			zap.String("blob_path", report.FilePath),
		)
		return nil, fmt.Errorf("failed to download PDF: %w", err)
	}

	s.logger.Info("report retrieved successfully",
		zap.String("report_id", reportID),
		zap.Int("size_bytes", len(pdfBytes)),
	)

	return pdfBytes, nil
}

// GetReportsByPatient retrieves all report metadata for a patient
func (s *ReportService) GetReportsByPatient(ctx context.Context, patientID string) ([]model.Report, error) {
	reports, err := s.reportRepo.ListByPatient(ctx, patientID)
	if err != nil {
		s.logger.Error("failed to get reports for patient",
			zap.Error(err),
			zap.String("patient_id", patientID),
		)
		return nil, fmt.Errorf("failed to get reports: %w", err)
	}

	return reports, nil
}

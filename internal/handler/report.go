package handler

import (
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/fisiocore/backend/internal/service"
)

// ReportHandler implements report API endpoints
type ReportHandler struct {
	service           *service.ReportService
	defaultPeriodDays int
	logger            *zap.Logger
}

// NewReportHandler creates a new ReportHandler
func NewReportHandler(service *service.ReportService, defaultPeriodDays int, logger *zap.Logger) *ReportHandler {
	return &ReportHandler{
		service:           service,
		defaultPeriodDays: defaultPeriodDays,
		logger:            logger,
	}
}

// GenerateReportRequest asks for a fresh analysis report
type GenerateReportRequest struct {
	PatientID  string `json:"patient_id" binding:"required"`
	PeriodDays int    `json:"period_days"`
}

// PostReportsGenerate generates an analysis report PDF
// POST /api/v1/reports/generate
func (h *ReportHandler) PostReportsGenerate(c *gin.Context) {
	var req GenerateReportRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.logger.Error("invalid request body", zap.Error(err))
		c.JSON(http.StatusBadRequest, ErrorResponse{
			Code:    "VALIDATION_ERROR",
			Message: "Invalid request body",
			Details: stringPtr(err.Error()),
		})
		return
	}

	periodDays := req.PeriodDays
	if periodDays <= 0 {
		periodDays = h.defaultPeriodDays
	}

	reportID, err := h.service.GenerateReport(c.Request.Context(), req.PatientID, periodDays)
	if err != nil {
		h.logger.Error("failed to generate report",
			zap.Error(err),
			zap.String("patient_id", req.PatientID),
		)
		c.JSON(http.StatusInternalServerError, ErrorResponse{
			Code:    "INTERNAL_ERROR",
			Message: "Failed to generate report",
			Details: stringPtr(err.Error()),
		})
		return
	}

	h.logger.Info("report generated",
		zap.String("report_id", reportID),
		zap.String("patient_id", req.PatientID),
	)

	c.JSON(http.StatusOK, gin.H{
		"report_id": reportID,
		"message":   "Report generated successfully",
	})
}

// GetReport downloads a report PDF
// GET /api/v1/reports/:id
func (h *ReportHandler) GetReport(c *gin.Context) {
	reportID := c.Param("id")

	pdfBytes, err := h.service.GetReport(c.Request.Context(), reportID)
	if err != nil {
		h.logger.Error("failed to get report",
			zap.Error(err),
			zap.String("report_id", reportID),
		)
		c.JSON(http.StatusNotFound, ErrorResponse{
			Code:    "NOT_FOUND",
			Message: "Report not found",
			Details: stringPtr(err.Error()),
		})
		return
	}

	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=relatorio_%s.pdf", reportID))
	c.Header("Content-Length", fmt.Sprintf("%d", len(pdfBytes)))
	c.Data(http.StatusOK, "application/pdf", pdfBytes)

	h.logger.Info("report downloaded",
		zap.String("report_id", reportID),
		zap.Int("size_bytes", len(pdfBytes)),
	)
}

// GetPatientReports lists report metadata for one patient
// GET /api/v1/patients/:id/reports
func (h *ReportHandler) GetPatientReports(c *gin.Context) {
	patientID := c.Param("id")

	reports, err := h.service.GetReportsByPatient(c.Request.Context(), patientID)
	if err != nil {
		h.logger.Error("failed to list reports",
			zap.Error(err),
			zap.String("patient_id", patientID),
		)
		c.JSON(http.StatusInternalServerError, ErrorResponse{
			Code:    "INTERNAL_ERROR",
			Message: "Failed to list reports",
			Details: stringPtr(err.Error()),
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"reports": reports,
		"count":   len(reports),
	})
}

package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/fisiocore/backend/internal/audit"
	"github.com/fisiocore/backend/internal/service"
)

// AnalysisHandler implements analysis and prediction API endpoints
type AnalysisHandler struct {
	service           *service.PatientAnalysisService
	auditLogger       *audit.Logger
	defaultPeriodDays int
	logger            *zap.Logger
}

// NewAnalysisHandler creates a new AnalysisHandler
func NewAnalysisHandler(service *service.PatientAnalysisService, auditLogger *audit.Logger, defaultPeriodDays int, logger *zap.Logger) *AnalysisHandler {
	return &AnalysisHandler{
		service:           service,
		auditLogger:       auditLogger,
		defaultPeriodDays: defaultPeriodDays,
		logger:            logger,
	}
}

// GetPatientAnalysis runs the complete analysis for one patient
// GET /api/v1/patients/:id/analysis?period_days=30
func (h *AnalysisHandler) GetPatientAnalysis(c *gin.Context) {
	patientID := c.Param("id")
	periodDays := queryInt(c.Query("period_days"), h.defaultPeriodDays)

	report, err := h.service.AnalyzePatient(c.Request.Context(), patientID, periodDays)
	if err != nil {
		h.logger.Error("failed to analyze patient",
			zap.Error(err),
			zap.String("patient_id", patientID),
		)
		c.JSON(http.StatusNotFound, ErrorResponse{
			Code:    "NOT_FOUND",
			Message: "Failed to analyze patient",
			Details: stringPtr(err.Error()),
		})
		return
	}

	if err := h.auditLogger.LogAnalysis(c.Request.Context(), c.GetString("user_id"), patientID, c.ClientIP(), c.Request.UserAgent()); err != nil {
		h.logger.Warn("failed to write audit entry", zap.Error(err))
	}

	h.logger.Info("patient analysis completed",
		zap.String("patient_id", patientID),
		zap.Int("period_days", periodDays),
		zap.String("overall_status", string(report.Summary.OverallStatus)),
	)

	c.JSON(http.StatusOK, report)
}

// GetPatientPrediction estimates the treatment outcome for one patient
// GET /api/v1/patients/:id/prediction
func (h *AnalysisHandler) GetPatientPrediction(c *gin.Context) {
	patientID := c.Param("id")

	prediction, err := h.service.PredictOutcome(c.Request.Context(), patientID)
	if err != nil {
		h.logger.Error("failed to predict outcome",
			zap.Error(err),
			zap.String("patient_id", patientID),
		)
		c.JSON(http.StatusNotFound, ErrorResponse{
			Code:    "NOT_FOUND",
			Message: "Failed to predict treatment outcome",
			Details: stringPtr(err.Error()),
		})
		return
	}

	h.logger.Info("prediction generated",
		zap.String("patient_id", patientID),
		zap.Int("estimated_days", prediction.EstimatedTreatmentDays),
		zap.String("abandonment_risk", string(prediction.AbandonmentRisk)),
	)

	c.JSON(http.StatusOK, prediction)
}

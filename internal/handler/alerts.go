package handler

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/fisiocore/backend/internal/alerts"
	"github.com/fisiocore/backend/internal/audit"
	"github.com/fisiocore/backend/internal/service"
)

// AlertHandler implements alert feed and lifecycle API endpoints
type AlertHandler struct {
	service     *service.PatientAnalysisService
	store       *alerts.Store
	auditLogger *audit.Logger
	logger      *zap.Logger
}

// NewAlertHandler creates a new AlertHandler
func NewAlertHandler(service *service.PatientAnalysisService, store *alerts.Store, auditLogger *audit.Logger, logger *zap.Logger) *AlertHandler {
	return &AlertHandler{
		service:     service,
		store:       store,
		auditLogger: auditLogger,
		logger:      logger,
	}
}

// EvaluateAlertsRequest triggers an evaluation pass for one clinic
type EvaluateAlertsRequest struct {
	TenantID string `json:"tenant_id" binding:"required"`
}

// PostAlertsEvaluate runs the alert rule set over the clinic's current records
// POST /api/v1/alerts/evaluate
func (h *AlertHandler) PostAlertsEvaluate(c *gin.Context) {
	var req EvaluateAlertsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.logger.Error("invalid request body", zap.Error(err))
		c.JSON(http.StatusBadRequest, ErrorResponse{
			Code:    "VALIDATION_ERROR",
			Message: "Invalid request body",
			Details: stringPtr(err.Error()),
		})
		return
	}

	created, err := h.service.EvaluateClinicAlerts(c.Request.Context(), req.TenantID)
	if err != nil {
		h.logger.Error("failed to evaluate alerts",
			zap.Error(err),
			zap.String("tenant_id", req.TenantID),
		)
		c.JSON(http.StatusInternalServerError, ErrorResponse{
			Code:    "INTERNAL_ERROR",
			Message: "Failed to evaluate alerts",
			Details: stringPtr(err.Error()),
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"created_count": len(created),
		"created":       created,
	})
}

// GetAlerts returns the ranked active alert feed
// GET /api/v1/alerts
func (h *AlertHandler) GetAlerts(c *gin.Context) {
	active := h.service.ActiveAlerts()

	h.logger.Info("alert feed retrieved", zap.Int("count", len(active)))

	c.JSON(http.StatusOK, gin.H{
		"alerts": active,
		"count":  len(active),
	})
}

// PostAlertRead marks an alert as read
// POST /api/v1/alerts/:id/read
func (h *AlertHandler) PostAlertRead(c *gin.Context) {
	h.transition(c, audit.OperationUpdate, func(id string) bool {
		return h.store.MarkAsRead(id)
	})
}

// PostAlertAcknowledge records the acknowledgement of an alert
// POST /api/v1/alerts/:id/acknowledge
func (h *AlertHandler) PostAlertAcknowledge(c *gin.Context) {
	h.transition(c, audit.OperationAcknowledge, func(id string) bool {
		return h.store.MarkAsAcknowledged(id, time.Now())
	})
}

// PostAlertResolve resolves an alert
// POST /api/v1/alerts/:id/resolve
func (h *AlertHandler) PostAlertResolve(c *gin.Context) {
	h.transition(c, audit.OperationResolve, func(id string) bool {
		return h.store.MarkAsResolved(id)
	})
}

// transition applies one lifecycle change and returns the updated alert
func (h *AlertHandler) transition(c *gin.Context, operation audit.OperationType, apply func(id string) bool) {
	alertID := c.Param("id")

	if !apply(alertID) {
		c.JSON(http.StatusNotFound, ErrorResponse{
			Code:    "NOT_FOUND",
			Message: "Alert not found",
		})
		return
	}

	if err := h.auditLogger.LogAlertLifecycle(c.Request.Context(), c.GetString("user_id"), operation, alertID, c.ClientIP(), c.Request.UserAgent()); err != nil {
		h.logger.Warn("failed to write audit entry", zap.Error(err))
	}

	alert, _ := h.store.Get(alertID)

	h.logger.Info("alert lifecycle transition",
		zap.String("alert_id", alertID),
		zap.String("operation", string(operation)),
	)

	c.JSON(http.StatusOK, alert)
}

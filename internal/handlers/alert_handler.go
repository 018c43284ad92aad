package handlers

import (
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"github.com/onegreenvn/green-insights-backend/internal/database/repository"
	"github.com/onegreenvn/green-insights-backend/internal/models"
	"github.com/onegreenvn/green-insights-backend/internal/services"
)

const sseHeartbeatInterval = 30 * time.Second

type AlertHandler struct {
	alertService *services.AlertService
	sseHub       *services.SSEHub
}

func NewAlertHandler(alertService *services.AlertService, sseHub *services.SSEHub) *AlertHandler {
	return &AlertHandler{
		alertService: alertService,
		sseHub:       sseHub,
	}
}

// ListAlerts godoc
// @Summary List alerts
// @Tags alerts
// @Produce json
// @Security BearerAuth
// @Param unread query bool false "Only unread alerts"
// @Param severity query string false "info, warning or critical"
// @Param type query string false "kpi_drop or viral_spike"
// @Param page query int false "Page" default(1)
// @Param page_size query int false "Page size" default(20)
// @Success 200 {array} models.Alert
// @Router /api/v1/alerts [get]
func (h *AlertHandler) ListAlerts(c *gin.Context) {
	page, pageSize := pageParams(c)
	filter := repository.AlertFilter{
		UnreadOnly: c.Query("unread") == "true",
		Severity:   models.AlertSeverity(c.Query("severity")),
		Type:       models.AlertType(c.Query("type")),
	}

	alerts, pagination, err := h.alertService.ListAlerts(c.Request.Context(), organizationID(c), filter, page, pageSize)
	if err != nil {
		respondError(c, err)
		return
	}
	respondPage(c, alerts, pagination)
}

// GetConfigs godoc
// @Summary Get alert configuration
// @Description Stored configs, or the defaults when none are stored
// @Tags alerts
// @Produce json
// @Security BearerAuth
// @Success 200 {array} models.AlertConfig
// @Router /api/v1/alerts/config [get]
func (h *AlertHandler) GetConfigs(c *gin.Context) {
	configs, err := h.alertService.GetConfigs(c.Request.Context(), organizationID(c))
	if err != nil {
		respondError(c, err)
		return
	}
	respondOK(c, http.StatusOK, configs)
}

// UpdateConfig godoc
// @Summary Update alert configuration for one metric
// @Tags alerts
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param request body models.UpdateAlertConfigRequest true "Alert config"
// @Success 200 {object} models.AlertConfig
// @Failure 400 {object} map[string]interface{}
// @Router /api/v1/alerts/config [put]
func (h *AlertHandler) UpdateConfig(c *gin.Context) {
	var req models.UpdateAlertConfigRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBindError(c, err)
		return
	}

	config, err := h.alertService.UpdateConfig(c.Request.Context(), organizationID(c), req)
	if err != nil {
		respondError(c, err)
		return
	}
	respondOK(c, http.StatusOK, config)
}

// CheckKPIDrops godoc
// @Summary Run the KPI drop check now
// @Tags alerts
// @Produce json
// @Security BearerAuth
// @Success 200 {array} models.Alert
// @Router /api/v1/alerts/check [post]
func (h *AlertHandler) CheckKPIDrops(c *gin.Context) {
	alerts, err := h.alertService.ProcessKPIDropAlerts(c.Request.Context(), organizationID(c))
	if err != nil {
		respondError(c, err)
		return
	}
	respondOK(c, http.StatusOK, alerts)
}

// CheckViralSpikes godoc
// @Summary Run the viral spike check now
// @Tags alerts
// @Produce json
// @Security BearerAuth
// @Success 200 {array} models.Alert
// @Router /api/v1/alerts/check-viral [post]
func (h *AlertHandler) CheckViralSpikes(c *gin.Context) {
	alerts, err := h.alertService.ProcessViralSpikes(c.Request.Context(), organizationID(c))
	if err != nil {
		respondError(c, err)
		return
	}
	respondOK(c, http.StatusOK, alerts)
}

// MarkRead godoc
// @Summary Mark an alert as read
// @Tags alerts
// @Produce json
// @Security BearerAuth
// @Param id path string true "Alert ID"
// @Success 200 {object} map[string]interface{}
// @Failure 404 {object} map[string]interface{}
// @Router /api/v1/alerts/{id}/read [post]
func (h *AlertHandler) MarkRead(c *gin.Context) {
	if err := h.alertService.MarkRead(c.Request.Context(), organizationID(c), c.Param("id")); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "message": "Alert marked as read"})
}

// MarkAllRead godoc
// @Summary Mark every alert as read
// @Tags alerts
// @Produce json
// @Security BearerAuth
// @Success 200 {object} map[string]interface{}
// @Router /api/v1/alerts/mark-all-read [post]
func (h *AlertHandler) MarkAllRead(c *gin.Context) {
	updated, err := h.alertService.MarkAllRead(c.Request.Context(), organizationID(c))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "updated": updated})
}

// StreamAlerts godoc
// @Summary Stream alerts via Server-Sent Events (SSE)
// @Description Receive newly created alerts of the organization in real time
// @Tags alerts
// @Produce text/event-stream
// @Security BearerAuth
// @Success 200 "SSE stream"
// @Router /api/v1/alerts/stream [get]
func (h *AlertHandler) StreamAlerts(c *gin.Context) {
	orgID := organizationID(c)

	c.Header("Content-Type", "text/event-stream")
	c.Header("Cache-Control", "no-cache")
	c.Header("Connection", "keep-alive")
	c.Header("X-Accel-Buffering", "no")

	clientChan := h.sseHub.RegisterClient(orgID)
	defer h.sseHub.UnregisterClient(orgID, clientChan)

	c.SSEvent("connected", gin.H{
		"organization_id": orgID,
		"clients":         h.sseHub.GetClientCount(orgID),
		"message":         "Connected to alert stream",
	})
	c.Writer.Flush()

	heartbeat := time.NewTicker(sseHeartbeatInterval)
	defer heartbeat.Stop()

	for {
		select {
		case <-c.Request.Context().Done():
			logrus.Infof("SSE client disconnected: %s", orgID)
			return
		case t := <-heartbeat.C:
			if _, err := fmt.Fprintf(c.Writer, ": heartbeat %s\n\n", t.UTC().Format(time.RFC3339)); err != nil {
				return
			}
			c.Writer.Flush()
		case message, ok := <-clientChan:
			if !ok {
				return
			}
			if _, err := c.Writer.Write(message); err != nil {
				logrus.Errorf("Failed to write SSE message: %v", err)
				return
			}
			c.Writer.Flush()
		}
	}
}

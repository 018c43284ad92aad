package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/onegreenvn/green-insights-backend/internal/models"
	"github.com/onegreenvn/green-insights-backend/internal/services"
	"github.com/onegreenvn/green-insights-backend/internal/utils"
)

const defaultTopContentLimit = 10

type AnalyticsHandler struct {
	engagementService  *services.EngagementService
	integrationService *services.IntegrationService
}

func NewAnalyticsHandler(engagementService *services.EngagementService, integrationService *services.IntegrationService) *AnalyticsHandler {
	return &AnalyticsHandler{
		engagementService:  engagementService,
		integrationService: integrationService,
	}
}

// TopContent godoc
// @Summary Top content by engagement rate
// @Tags analytics
// @Produce json
// @Security BearerAuth
// @Param days query int false "Lookback window in days" default(30)
// @Param group_id query string false "Integration group ID"
// @Param integration_ids query string false "Comma separated integration IDs"
// @Param format query string false "post, reel or story"
// @Param limit query int false "Maximum items" default(10)
// @Success 200 {array} models.ContentPerformance
// @Failure 400 {object} map[string]interface{}
// @Failure 404 {object} map[string]interface{}
// @Router /api/v1/analytics/top-content [get]
func (h *AnalyticsHandler) TopContent(c *gin.Context) {
	days, err := intQuery(c, "days", 30)
	if err != nil {
		respondError(c, err)
		return
	}
	limit, err := intQuery(c, "limit", defaultTopContentLimit)
	if err != nil {
		respondError(c, err)
		return
	}

	filter := models.AnalyticsFilter{
		Days:           days,
		IntegrationIDs: utils.SplitCSV(c.Query("integration_ids")),
		Format:         models.ContentType(c.Query("format")),
	}
	if groupID := c.Query("group_id"); groupID != "" {
		filter.GroupID = &groupID
	}

	items, err := h.engagementService.TopContent(c.Request.Context(), organizationID(c), filter, limit)
	if err != nil {
		respondError(c, err)
		return
	}
	respondOK(c, http.StatusOK, items)
}

// ListTrackedIntegrations godoc
// @Summary List tracked integrations
// @Tags analytics
// @Produce json
// @Security BearerAuth
// @Success 200 {array} string
// @Router /api/v1/analytics/tracked-integrations [get]
func (h *AnalyticsHandler) ListTrackedIntegrations(c *gin.Context) {
	ids, err := h.integrationService.ListTracked(c.Request.Context(), organizationID(c))
	if err != nil {
		respondError(c, err)
		return
	}
	respondOK(c, http.StatusOK, ids)
}

// SetTrackedIntegrations godoc
// @Summary Replace the tracked integration set
// @Tags analytics
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param request body models.SetTrackedIntegrationsRequest true "Integration IDs"
// @Success 200 {array} string
// @Failure 400 {object} map[string]interface{}
// @Router /api/v1/analytics/tracked-integrations [put]
func (h *AnalyticsHandler) SetTrackedIntegrations(c *gin.Context) {
	var req models.SetTrackedIntegrationsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBindError(c, err)
		return
	}

	ids, err := h.integrationService.SetTracked(c.Request.Context(), organizationID(c), req)
	if err != nil {
		respondError(c, err)
		return
	}
	respondOK(c, http.StatusOK, ids)
}

// ListGroups godoc
// @Summary List integration groups
// @Tags analytics
// @Produce json
// @Security BearerAuth
// @Success 200 {array} models.IntegrationGroup
// @Router /api/v1/analytics/groups [get]
func (h *AnalyticsHandler) ListGroups(c *gin.Context) {
	groups, err := h.integrationService.ListGroups(c.Request.Context(), organizationID(c))
	if err != nil {
		respondError(c, err)
		return
	}
	respondOK(c, http.StatusOK, groups)
}

// CreateGroup godoc
// @Summary Create an integration group
// @Tags analytics
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param request body models.CreateIntegrationGroupRequest true "Group"
// @Success 201 {object} models.IntegrationGroup
// @Failure 400 {object} map[string]interface{}
// @Router /api/v1/analytics/groups [post]
func (h *AnalyticsHandler) CreateGroup(c *gin.Context) {
	var req models.CreateIntegrationGroupRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBindError(c, err)
		return
	}

	group, err := h.integrationService.CreateGroup(c.Request.Context(), organizationID(c), req)
	if err != nil {
		respondError(c, err)
		return
	}
	respondOK(c, http.StatusCreated, group)
}

// DeleteGroup godoc
// @Summary Delete an integration group
// @Tags analytics
// @Produce json
// @Security BearerAuth
// @Param id path string true "Group ID"
// @Success 200 {object} map[string]interface{}
// @Failure 404 {object} map[string]interface{}
// @Router /api/v1/analytics/groups/{id} [delete]
func (h *AnalyticsHandler) DeleteGroup(c *gin.Context) {
	if err := h.integrationService.DeleteGroup(c.Request.Context(), organizationID(c), c.Param("id")); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "message": "Group deleted successfully"})
}

package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/onegreenvn/green-insights-backend/internal/models"
	"github.com/onegreenvn/green-insights-backend/internal/services"
)

type ContentHandler struct {
	contentService *services.ContentService
}

func NewContentHandler(contentService *services.ContentService) *ContentHandler {
	return &ContentHandler{contentService: contentService}
}

// IngestContent godoc
// @Summary Ingest a content item
// @Description Upsert a published content item of a tracked integration and extract its AUTO tags
// @Tags ingest
// @Accept json
// @Produce json
// @Security ApiKeyAuth
// @Param request body models.UpsertContentRequest true "Content"
// @Success 200 {object} models.Content
// @Failure 400 {object} map[string]interface{}
// @Failure 422 {object} map[string]interface{}
// @Router /api/v1/ingest/contents [post]
func (h *ContentHandler) IngestContent(c *gin.Context) {
	var req models.UpsertContentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBindError(c, err)
		return
	}

	content, err := h.contentService.UpsertContent(c.Request.Context(), organizationID(c), req)
	if err != nil {
		respondError(c, err)
		return
	}
	respondOK(c, http.StatusOK, content)
}

// IngestMetrics godoc
// @Summary Ingest daily metrics
// @Description Upsert a batch of per-day counters; a repeated day replaces the stored row
// @Tags ingest
// @Accept json
// @Produce json
// @Security ApiKeyAuth
// @Param request body models.UpsertDailyMetricsRequest true "Metrics batch"
// @Success 200 {object} map[string]interface{}
// @Failure 400 {object} map[string]interface{}
// @Failure 422 {object} map[string]interface{}
// @Router /api/v1/ingest/metrics [post]
func (h *ContentHandler) IngestMetrics(c *gin.Context) {
	var req models.UpsertDailyMetricsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBindError(c, err)
		return
	}

	rows, err := h.contentService.UpsertDailyMetrics(c.Request.Context(), organizationID(c), req)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "rows": rows})
}

// GetContent godoc
// @Summary Get a content item
// @Tags contents
// @Produce json
// @Security BearerAuth
// @Param id path string true "Content ID"
// @Success 200 {object} models.Content
// @Failure 404 {object} map[string]interface{}
// @Router /api/v1/contents/{id} [get]
func (h *ContentHandler) GetContent(c *gin.Context) {
	content, err := h.contentService.GetContent(c.Request.Context(), organizationID(c), c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}
	respondOK(c, http.StatusOK, content)
}

// ListMetrics godoc
// @Summary List daily metrics of a content item
// @Tags contents
// @Produce json
// @Security BearerAuth
// @Param id path string true "Content ID"
// @Success 200 {array} models.DailyMetric
// @Failure 404 {object} map[string]interface{}
// @Router /api/v1/contents/{id}/metrics [get]
func (h *ContentHandler) ListMetrics(c *gin.Context) {
	metrics, err := h.contentService.ListMetrics(c.Request.Context(), organizationID(c), c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}
	respondOK(c, http.StatusOK, metrics)
}

// DeleteContent godoc
// @Summary Delete a content item
// @Tags contents
// @Produce json
// @Security BearerAuth
// @Param id path string true "Content ID"
// @Success 200 {object} map[string]interface{}
// @Failure 404 {object} map[string]interface{}
// @Router /api/v1/contents/{id} [delete]
func (h *ContentHandler) DeleteContent(c *gin.Context) {
	if err := h.contentService.DeleteContent(c.Request.Context(), organizationID(c), c.Param("id")); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "message": "Content deleted successfully"})
}

// AttachTag godoc
// @Summary Attach a tag to a content item
// @Tags contents
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path string true "Content ID"
// @Param request body models.AttachTagRequest true "Tag"
// @Success 200 {object} models.Content
// @Failure 404 {object} map[string]interface{}
// @Router /api/v1/contents/{id}/tags [post]
func (h *ContentHandler) AttachTag(c *gin.Context) {
	var req models.AttachTagRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBindError(c, err)
		return
	}

	content, err := h.contentService.AttachTag(c.Request.Context(), organizationID(c), c.Param("id"), req)
	if err != nil {
		respondError(c, err)
		return
	}
	respondOK(c, http.StatusOK, content)
}

// ListTags godoc
// @Summary List tags
// @Tags tags
// @Produce json
// @Security BearerAuth
// @Param type query string false "AUTO or MANUAL"
// @Success 200 {array} models.Tag
// @Failure 400 {object} map[string]interface{}
// @Router /api/v1/tags [get]
func (h *ContentHandler) ListTags(c *gin.Context) {
	tags, err := h.contentService.ListTags(c.Request.Context(), organizationID(c), c.Query("type"))
	if err != nil {
		respondError(c, err)
		return
	}
	respondOK(c, http.StatusOK, tags)
}

// CreateTag godoc
// @Summary Create a manual tag
// @Tags tags
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param request body models.CreateTagRequest true "Tag"
// @Success 201 {object} models.Tag
// @Failure 400 {object} map[string]interface{}
// @Router /api/v1/tags [post]
func (h *ContentHandler) CreateTag(c *gin.Context) {
	var req models.CreateTagRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBindError(c, err)
		return
	}

	tag, err := h.contentService.CreateTag(c.Request.Context(), organizationID(c), req)
	if err != nil {
		respondError(c, err)
		return
	}
	respondOK(c, http.StatusCreated, tag)
}

// DeleteTag godoc
// @Summary Delete a tag
// @Tags tags
// @Produce json
// @Security BearerAuth
// @Param id path string true "Tag ID"
// @Success 200 {object} map[string]interface{}
// @Failure 404 {object} map[string]interface{}
// @Router /api/v1/tags/{id} [delete]
func (h *ContentHandler) DeleteTag(c *gin.Context) {
	if err := h.contentService.DeleteTag(c.Request.Context(), organizationID(c), c.Param("id")); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "message": "Tag deleted successfully"})
}

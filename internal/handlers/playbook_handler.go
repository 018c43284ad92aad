package handlers

import (
	"bytes"
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/onegreenvn/green-insights-backend/internal/models"
	"github.com/onegreenvn/green-insights-backend/internal/services"
	"github.com/onegreenvn/green-insights-backend/internal/services/excel"
)

type PlaybookHandler struct {
	playbookService *services.PlaybookService
	variantService  *services.VariantService
	excelService    *excel.Service
}

func NewPlaybookHandler(playbookService *services.PlaybookService, variantService *services.VariantService, excelService *excel.Service) *PlaybookHandler {
	return &PlaybookHandler{
		playbookService: playbookService,
		variantService:  variantService,
		excelService:    excelService,
	}
}

// GeneratePlaybooks godoc
// @Summary Generate playbooks
// @Description Rank recent content per format and derive a recipe from the top performers
// @Tags playbooks
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param request body models.GeneratePlaybooksRequest true "Generation parameters"
// @Success 201 {array} models.PlaybookResponse
// @Failure 400 {object} map[string]interface{}
// @Failure 404 {object} map[string]interface{}
// @Failure 500 {object} map[string]interface{}
// @Router /api/v1/playbooks/generate [post]
func (h *PlaybookHandler) GeneratePlaybooks(c *gin.Context) {
	var req models.GeneratePlaybooksRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBindError(c, err)
		return
	}

	playbooks, err := h.playbookService.GeneratePlaybooks(c.Request.Context(), organizationID(c), req)
	if err != nil {
		respondError(c, err)
		return
	}

	responses := make([]*models.PlaybookResponse, len(playbooks))
	for i := range playbooks {
		responses[i] = playbooks[i].ToResponse()
	}
	respondOK(c, http.StatusCreated, responses)
}

// ListPlaybooks godoc
// @Summary List playbooks
// @Tags playbooks
// @Produce json
// @Security BearerAuth
// @Param format query string false "Content format (post, reel, story)"
// @Param page query int false "Page" default(1)
// @Param page_size query int false "Page size" default(20)
// @Success 200 {array} models.PlaybookResponse
// @Failure 400 {object} map[string]interface{}
// @Router /api/v1/playbooks [get]
func (h *PlaybookHandler) ListPlaybooks(c *gin.Context) {
	page, pageSize := pageParams(c)

	playbooks, pagination, err := h.playbookService.ListPlaybooks(c.Request.Context(), organizationID(c), models.ContentType(c.Query("format")), page, pageSize)
	if err != nil {
		respondError(c, err)
		return
	}

	responses := make([]*models.PlaybookResponse, len(playbooks))
	for i := range playbooks {
		responses[i] = playbooks[i].ToResponse()
	}
	respondPage(c, responses, pagination)
}

// GetPlaybook godoc
// @Summary Get a playbook
// @Tags playbooks
// @Produce json
// @Security BearerAuth
// @Param id path string true "Playbook ID"
// @Success 200 {object} models.PlaybookResponse
// @Failure 404 {object} map[string]interface{}
// @Router /api/v1/playbooks/{id} [get]
func (h *PlaybookHandler) GetPlaybook(c *gin.Context) {
	playbook, err := h.playbookService.GetPlaybook(c.Request.Context(), organizationID(c), c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}
	respondOK(c, http.StatusOK, playbook.ToResponse())
}

// GetEvidence godoc
// @Summary Get playbook evidence
// @Description Top performers, engagement statistics and the source content ids behind a playbook
// @Tags playbooks
// @Produce json
// @Security BearerAuth
// @Param id path string true "Playbook ID"
// @Success 200 {object} services.PlaybookEvidence
// @Failure 404 {object} map[string]interface{}
// @Router /api/v1/playbooks/{id}/evidence [get]
func (h *PlaybookHandler) GetEvidence(c *gin.Context) {
	evidence, err := h.playbookService.GetEvidence(c.Request.Context(), organizationID(c), c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}
	respondOK(c, http.StatusOK, evidence)
}

// ExportEvidence godoc
// @Summary Export playbook evidence
// @Description Download the playbook recipe and evidence as an Excel workbook
// @Tags playbooks
// @Produce application/vnd.openxmlformats-officedocument.spreadsheetml.sheet
// @Security BearerAuth
// @Param id path string true "Playbook ID"
// @Success 200 {file} file
// @Failure 404 {object} map[string]interface{}
// @Router /api/v1/playbooks/{id}/evidence/export [get]
func (h *PlaybookHandler) ExportEvidence(c *gin.Context) {
	ctx := c.Request.Context()
	orgID := organizationID(c)

	playbook, err := h.playbookService.GetPlaybook(ctx, orgID, c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}
	evidence, err := h.playbookService.GetEvidence(ctx, orgID, playbook.ID)
	if err != nil {
		respondError(c, err)
		return
	}

	var buf bytes.Buffer
	if err := h.excelService.ExportPlaybookEvidence(&buf, playbook, evidence.SourceContentIDs); err != nil {
		respondError(c, err)
		return
	}

	setAttachmentHeaders(c, fmt.Sprintf("playbook_%s.xlsx", playbook.ID), excel.ContentType)
	c.Data(http.StatusOK, excel.ContentType, buf.Bytes())
}

// DeletePlaybook godoc
// @Summary Delete a playbook
// @Tags playbooks
// @Produce json
// @Security BearerAuth
// @Param id path string true "Playbook ID"
// @Success 200 {object} map[string]interface{}
// @Failure 404 {object} map[string]interface{}
// @Router /api/v1/playbooks/{id} [delete]
func (h *PlaybookHandler) DeletePlaybook(c *gin.Context) {
	if err := h.playbookService.DeletePlaybook(c.Request.Context(), organizationID(c), c.Param("id")); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "message": "Playbook deleted successfully"})
}

// ListVariants godoc
// @Summary List playbook variants
// @Tags variants
// @Produce json
// @Security BearerAuth
// @Param id path string true "Playbook ID"
// @Success 200 {array} models.PlaybookVariantResponse
// @Failure 404 {object} map[string]interface{}
// @Router /api/v1/playbooks/{id}/variants [get]
func (h *PlaybookHandler) ListVariants(c *gin.Context) {
	variants, err := h.variantService.ListVariants(c.Request.Context(), organizationID(c), c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}
	respondOK(c, http.StatusOK, variantResponses(variants))
}

// GenerateVariants godoc
// @Summary Generate playbook variants
// @Description Replace the live variant set with the five mutation rules (hook, time, hashtag)
// @Tags variants
// @Produce json
// @Security BearerAuth
// @Param id path string true "Playbook ID"
// @Success 200 {object} map[string]interface{}
// @Failure 404 {object} map[string]interface{}
// @Router /api/v1/playbooks/{id}/variants/generate [post]
func (h *PlaybookHandler) GenerateVariants(c *gin.Context) {
	variants, changes, err := h.variantService.GenerateVariants(c.Request.Context(), organizationID(c), c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"data":    variantResponses(variants),
		"changes": changes,
	})
}

// DeleteVariant godoc
// @Summary Delete a playbook variant
// @Tags variants
// @Produce json
// @Security BearerAuth
// @Param id path string true "Playbook ID"
// @Param variantId path string true "Variant ID"
// @Success 200 {object} map[string]interface{}
// @Failure 404 {object} map[string]interface{}
// @Router /api/v1/playbooks/{id}/variants/{variantId} [delete]
func (h *PlaybookHandler) DeleteVariant(c *gin.Context) {
	if err := h.variantService.DeleteVariant(c.Request.Context(), organizationID(c), c.Param("id"), c.Param("variantId")); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "message": "Variant deleted successfully"})
}

func variantResponses(variants []models.PlaybookVariant) []*models.PlaybookVariantResponse {
	responses := make([]*models.PlaybookVariantResponse, len(variants))
	for i := range variants {
		responses[i] = variants[i].ToResponse()
	}
	return responses
}

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

type ExperimentHandler struct {
	experimentService *services.ExperimentService
	excelService      *excel.Service
}

func NewExperimentHandler(experimentService *services.ExperimentService, excelService *excel.Service) *ExperimentHandler {
	return &ExperimentHandler{
		experimentService: experimentService,
		excelService:      excelService,
	}
}

// CreateExperiment godoc
// @Summary Create an experiment
// @Description Create a draft experiment over 2 to 3 variants of one playbook
// @Tags experiments
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param request body models.CreateExperimentRequest true "Experiment"
// @Success 201 {object} models.ExperimentResponse
// @Failure 400 {object} map[string]interface{}
// @Failure 404 {object} map[string]interface{}
// @Router /api/v1/experiments [post]
func (h *ExperimentHandler) CreateExperiment(c *gin.Context) {
	var req models.CreateExperimentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBindError(c, err)
		return
	}

	experiment, err := h.experimentService.CreateExperiment(c.Request.Context(), organizationID(c), req)
	if err != nil {
		respondError(c, err)
		return
	}
	respondOK(c, http.StatusCreated, experiment.ToResponse())
}

// ListExperiments godoc
// @Summary List experiments
// @Tags experiments
// @Produce json
// @Security BearerAuth
// @Param status query string false "draft, active or completed"
// @Param playbook_id query string false "Playbook ID"
// @Param page query int false "Page" default(1)
// @Param page_size query int false "Page size" default(20)
// @Success 200 {array} models.ExperimentResponse
// @Failure 400 {object} map[string]interface{}
// @Router /api/v1/experiments [get]
func (h *ExperimentHandler) ListExperiments(c *gin.Context) {
	page, pageSize := pageParams(c)
	status := models.ExperimentStatus(c.Query("status"))

	experiments, pagination, err := h.experimentService.ListExperiments(c.Request.Context(), organizationID(c), status, c.Query("playbook_id"), page, pageSize)
	if err != nil {
		respondError(c, err)
		return
	}

	responses := make([]*models.ExperimentResponse, len(experiments))
	for i := range experiments {
		responses[i] = experiments[i].ToResponse()
	}
	respondPage(c, responses, pagination)
}

// GetExperiment godoc
// @Summary Get an experiment
// @Tags experiments
// @Produce json
// @Security BearerAuth
// @Param id path string true "Experiment ID"
// @Success 200 {object} models.ExperimentResponse
// @Failure 404 {object} map[string]interface{}
// @Router /api/v1/experiments/{id} [get]
func (h *ExperimentHandler) GetExperiment(c *gin.Context) {
	experiment, err := h.experimentService.GetExperiment(c.Request.Context(), organizationID(c), c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}
	respondOK(c, http.StatusOK, experiment.ToResponse())
}

// StartExperiment godoc
// @Summary Start an experiment
// @Tags experiments
// @Produce json
// @Security BearerAuth
// @Param id path string true "Experiment ID"
// @Success 200 {object} models.ExperimentResponse
// @Failure 404 {object} map[string]interface{}
// @Failure 422 {object} map[string]interface{}
// @Router /api/v1/experiments/{id}/start [post]
func (h *ExperimentHandler) StartExperiment(c *gin.Context) {
	experiment, err := h.experimentService.StartExperiment(c.Request.Context(), organizationID(c), c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}
	respondOK(c, http.StatusOK, experiment.ToResponse())
}

// CompleteExperiment godoc
// @Summary Complete an experiment
// @Tags experiments
// @Produce json
// @Security BearerAuth
// @Param id path string true "Experiment ID"
// @Success 200 {object} models.ExperimentResponse
// @Failure 404 {object} map[string]interface{}
// @Failure 422 {object} map[string]interface{}
// @Router /api/v1/experiments/{id}/complete [post]
func (h *ExperimentHandler) CompleteExperiment(c *gin.Context) {
	experiment, err := h.experimentService.CompleteExperiment(c.Request.Context(), organizationID(c), c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}
	respondOK(c, http.StatusOK, experiment.ToResponse())
}

// TrackContent godoc
// @Summary Track content under a variant arm
// @Tags experiments
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path string true "Experiment ID"
// @Param request body models.TrackContentRequest true "Attribution"
// @Success 200 {object} models.ExperimentResults
// @Failure 400 {object} map[string]interface{}
// @Failure 404 {object} map[string]interface{}
// @Failure 422 {object} map[string]interface{}
// @Router /api/v1/experiments/{id}/track [post]
func (h *ExperimentHandler) TrackContent(c *gin.Context) {
	var req models.TrackContentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBindError(c, err)
		return
	}

	results, err := h.experimentService.TrackContent(c.Request.Context(), organizationID(c), c.Param("id"), req)
	if err != nil {
		respondError(c, err)
		return
	}
	respondOK(c, http.StatusOK, results)
}

// GetResults godoc
// @Summary Get experiment results
// @Description Recompute arm aggregates and win rates and report significance
// @Tags experiments
// @Produce json
// @Security BearerAuth
// @Param id path string true "Experiment ID"
// @Success 200 {object} models.ExperimentResults
// @Failure 404 {object} map[string]interface{}
// @Router /api/v1/experiments/{id}/results [get]
func (h *ExperimentHandler) GetResults(c *gin.Context) {
	results, err := h.experimentService.GetResults(c.Request.Context(), organizationID(c), c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}
	respondOK(c, http.StatusOK, results)
}

// ExportResults godoc
// @Summary Export experiment results
// @Tags experiments
// @Produce application/vnd.openxmlformats-officedocument.spreadsheetml.sheet
// @Security BearerAuth
// @Param id path string true "Experiment ID"
// @Success 200 {file} file
// @Failure 404 {object} map[string]interface{}
// @Router /api/v1/experiments/{id}/results/export [get]
func (h *ExperimentHandler) ExportResults(c *gin.Context) {
	results, err := h.experimentService.GetResults(c.Request.Context(), organizationID(c), c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}

	var buf bytes.Buffer
	if err := h.excelService.ExportExperimentResults(&buf, results); err != nil {
		respondError(c, err)
		return
	}

	setAttachmentHeaders(c, fmt.Sprintf("experiment_%s.xlsx", results.ExperimentID), excel.ContentType)
	c.Data(http.StatusOK, excel.ContentType, buf.Bytes())
}

// ConfirmWinner godoc
// @Summary Confirm the winning variant
// @Description Apply the significant winner's recipe to the playbook
// @Tags experiments
// @Produce json
// @Security BearerAuth
// @Param id path string true "Experiment ID"
// @Success 200 {object} services.WinnerConfirmation
// @Failure 404 {object} map[string]interface{}
// @Failure 422 {object} map[string]interface{}
// @Router /api/v1/experiments/{id}/confirm-winner [post]
func (h *ExperimentHandler) ConfirmWinner(c *gin.Context) {
	confirmation, err := h.experimentService.ConfirmWinner(c.Request.Context(), organizationID(c), c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}
	respondOK(c, http.StatusOK, gin.H{
		"experiment": confirmation.Experiment.ToResponse(),
		"playbook":   confirmation.Playbook.ToResponse(),
		"winner":     confirmation.Winner,
	})
}

// DeleteExperiment godoc
// @Summary Delete an experiment
// @Tags experiments
// @Produce json
// @Security BearerAuth
// @Param id path string true "Experiment ID"
// @Success 200 {object} map[string]interface{}
// @Failure 404 {object} map[string]interface{}
// @Router /api/v1/experiments/{id} [delete]
func (h *ExperimentHandler) DeleteExperiment(c *gin.Context) {
	if err := h.experimentService.DeleteExperiment(c.Request.Context(), organizationID(c), c.Param("id")); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "message": "Experiment deleted successfully"})
}

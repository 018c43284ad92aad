package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/onegreenvn/green-insights-backend/internal/models"
	"github.com/onegreenvn/green-insights-backend/internal/services/api_key"
)

// APIKeyHandler handles HTTP requests related to ingestion API keys
type APIKeyHandler struct {
	apiKeyService *api_key.Service
}

// NewAPIKeyHandler creates a new APIKeyHandler instance
func NewAPIKeyHandler(apiKeyService *api_key.Service) *APIKeyHandler {
	return &APIKeyHandler{
		apiKeyService: apiKeyService,
	}
}

// Generate handles POST /api/v1/api-keys
// @Summary Generate an ingestion API key
// @Description The plaintext key is returned only in this response
// @Tags api-keys
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param request body models.CreateAPIKeyRequest true "Key name"
// @Success 201 {object} models.CreateAPIKeyResponse
// @Failure 400 {object} map[string]interface{}
// @Router /api/v1/api-keys [post]
func (h *APIKeyHandler) Generate(c *gin.Context) {
	var req models.CreateAPIKeyRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBindError(c, err)
		return
	}

	apiKey, err := h.apiKeyService.GenerateAPIKey(c.Request.Context(), organizationID(c), req)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusCreated, gin.H{
		"success": true,
		"message": "API key generated successfully",
		"data":    apiKey,
	})
}

// List handles GET /api/v1/api-keys
// @Summary List ingestion API keys
// @Tags api-keys
// @Produce json
// @Security BearerAuth
// @Success 200 {array} models.IngestAPIKey
// @Router /api/v1/api-keys [get]
func (h *APIKeyHandler) List(c *gin.Context) {
	keys, err := h.apiKeyService.ListAPIKeys(c.Request.Context(), organizationID(c))
	if err != nil {
		respondError(c, err)
		return
	}
	respondOK(c, http.StatusOK, keys)
}

// Delete handles DELETE /api/v1/api-keys/:id
// @Summary Revoke an ingestion API key
// @Tags api-keys
// @Produce json
// @Security BearerAuth
// @Param id path string true "API key ID"
// @Success 200 {object} map[string]interface{}
// @Failure 404 {object} map[string]interface{}
// @Router /api/v1/api-keys/{id} [delete]
func (h *APIKeyHandler) Delete(c *gin.Context) {
	if err := h.apiKeyService.DeleteAPIKey(c.Request.Context(), organizationID(c), c.Param("id")); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "message": "API key deleted successfully"})
}

package middleware

import (
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"github.com/onegreenvn/green-insights-backend/internal/services/api_key"
)

// APIKeyMiddleware handles ingestion API key authentication
type APIKeyMiddleware struct {
	apiKeyService *api_key.Service
}

// NewAPIKeyMiddleware creates a new API key middleware
func NewAPIKeyMiddleware(apiKeyService *api_key.Service) *APIKeyMiddleware {
	return &APIKeyMiddleware{
		apiKeyService: apiKeyService,
	}
}

// APIKeyAuthMiddleware validates "Authorization: ApiKey <prefix>.<secret>"
// and scopes the request to the key's organization
func (m *APIKeyMiddleware) APIKeyAuthMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		authHeader := c.GetHeader("Authorization")
		if authHeader == "" {
			c.JSON(http.StatusUnauthorized, gin.H{
				"success": false,
				"message": "Authorization header is required",
			})
			c.Abort()
			return
		}

		if !strings.HasPrefix(authHeader, "ApiKey ") {
			c.JSON(http.StatusUnauthorized, gin.H{
				"success": false,
				"message": "Invalid API key format",
			})
			c.Abort()
			return
		}

		apiKey, err := m.apiKeyService.ValidateAPIKey(c.Request.Context(), strings.TrimPrefix(authHeader, "ApiKey "))
		if err != nil {
			if !errors.Is(err, api_key.ErrInvalidAPIKey) {
				logrus.Errorf("Failed to validate API key: %v", err)
			}
			c.JSON(http.StatusUnauthorized, gin.H{
				"success": false,
				"message": "Invalid API key",
			})
			c.Abort()
			return
		}

		c.Set("organization_id", apiKey.OrganizationID)
		c.Set("api_key_id", apiKey.ID)
		c.Set("auth_type", "api_key")

		c.Next()
	}
}

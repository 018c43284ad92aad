package repository

import (
	"context"
	"errors"
	"time"

	"github.com/onegreenvn/green-insights-backend/internal/models"
	"gorm.io/gorm"
)

// APIKeyRepository handles database operations for ingestion API keys
type APIKeyRepository struct {
	db *gorm.DB
}

// NewAPIKeyRepository creates a new APIKeyRepository instance
func NewAPIKeyRepository(db *gorm.DB) *APIKeyRepository {
	return &APIKeyRepository{db: db}
}

// GetByPrefix retrieves an API key by its public prefix
func (r *APIKeyRepository) GetByPrefix(ctx context.Context, prefix string) (*models.IngestAPIKey, error) {
	var apiKey models.IngestAPIKey
	if err := r.db.WithContext(ctx).Where("prefix = ?", prefix).First(&apiKey).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil // Return nil, nil when not found
		}
		return nil, err
	}
	return &apiKey, nil
}

// ListByOrganization retrieves the keys of an organization
func (r *APIKeyRepository) ListByOrganization(ctx context.Context, orgID string) ([]models.IngestAPIKey, error) {
	var keys []models.IngestAPIKey
	err := r.db.WithContext(ctx).Where("organization_id = ?", orgID).Order("created_at DESC").Find(&keys).Error
	return keys, err
}

// Create adds a new API key
func (r *APIKeyRepository) Create(ctx context.Context, apiKey *models.IngestAPIKey) error {
	return r.db.WithContext(ctx).Create(apiKey).Error
}

// UpdateLastUsed updates the last used timestamp for an API key
func (r *APIKeyRepository) UpdateLastUsed(ctx context.Context, id string, at time.Time) error {
	return r.db.WithContext(ctx).Model(&models.IngestAPIKey{}).Where("id = ?", id).Update("last_used_at", at).Error
}

// Delete removes an API key of an organization
func (r *APIKeyRepository) Delete(ctx context.Context, orgID, id string) (bool, error) {
	result := r.db.WithContext(ctx).Delete(&models.IngestAPIKey{}, "organization_id = ? AND id = ?", orgID, id)
	if result.Error != nil {
		return false, result.Error
	}
	// If no rows were affected, the API key was not found
	return result.RowsAffected > 0, nil
}

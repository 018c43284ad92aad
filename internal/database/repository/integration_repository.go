package repository

import (
	"context"
	"errors"

	"github.com/onegreenvn/green-insights-backend/internal/models"
	"gorm.io/gorm"
)

type IntegrationRepository struct {
	db *gorm.DB
}

func NewIntegrationRepository(db *gorm.DB) *IntegrationRepository {
	return &IntegrationRepository{db: db}
}

// WithTx returns a repository bound to tx
func (r *IntegrationRepository) WithTx(tx *gorm.DB) *IntegrationRepository {
	return &IntegrationRepository{db: tx}
}

// ListTracked returns the tracked integration ids of an organization
func (r *IntegrationRepository) ListTracked(ctx context.Context, orgID string) ([]string, error) {
	var ids []string
	err := r.db.WithContext(ctx).Model(&models.TrackedIntegration{}).
		Where("organization_id = ?", orgID).
		Order("integration_id ASC").
		Pluck("integration_id", &ids).Error
	return ids, err
}

// IsTracked reports whether an integration is opted into analytics
func (r *IntegrationRepository) IsTracked(ctx context.Context, orgID, integrationID string) (bool, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&models.TrackedIntegration{}).
		Where("organization_id = ? AND integration_id = ?", orgID, integrationID).
		Count(&count).Error
	return count > 0, err
}

// ReplaceTracked swaps the tracked set. Call inside a transaction.
func (r *IntegrationRepository) ReplaceTracked(ctx context.Context, orgID string, integrationIDs []string) error {
	db := r.db.WithContext(ctx)
	if err := db.Where("organization_id = ?", orgID).Delete(&models.TrackedIntegration{}).Error; err != nil {
		return err
	}
	if len(integrationIDs) == 0 {
		return nil
	}
	rows := make([]models.TrackedIntegration, len(integrationIDs))
	for i, id := range integrationIDs {
		rows[i] = models.TrackedIntegration{OrganizationID: orgID, IntegrationID: id}
	}
	return db.Create(&rows).Error
}

// ListOrganizationsWithTracked returns every organization tracking at least one integration
func (r *IntegrationRepository) ListOrganizationsWithTracked(ctx context.Context) ([]string, error) {
	var orgIDs []string
	err := r.db.WithContext(ctx).Model(&models.TrackedIntegration{}).
		Distinct("organization_id").
		Order("organization_id ASC").
		Pluck("organization_id", &orgIDs).Error
	return orgIDs, err
}

// CreateGroup adds a new integration group
func (r *IntegrationRepository) CreateGroup(ctx context.Context, group *models.IntegrationGroup) error {
	return r.db.WithContext(ctx).Create(group).Error
}

// GetGroup retrieves a live group owned by orgID
func (r *IntegrationRepository) GetGroup(ctx context.Context, orgID, id string) (*models.IntegrationGroup, error) {
	var group models.IntegrationGroup
	err := r.db.WithContext(ctx).Where("organization_id = ? AND id = ?", orgID, id).First(&group).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &group, nil
}

// ListGroups returns the live groups of an organization
func (r *IntegrationRepository) ListGroups(ctx context.Context, orgID string) ([]models.IntegrationGroup, error) {
	var groups []models.IntegrationGroup
	err := r.db.WithContext(ctx).Where("organization_id = ?", orgID).Order("name ASC").Find(&groups).Error
	return groups, err
}

// DeleteGroup soft deletes a group
func (r *IntegrationRepository) DeleteGroup(ctx context.Context, orgID, id string) (bool, error) {
	result := r.db.WithContext(ctx).Where("organization_id = ?", orgID).Delete(&models.IntegrationGroup{}, "id = ?", id)
	if result.Error != nil {
		return false, result.Error
	}
	return result.RowsAffected > 0, nil
}

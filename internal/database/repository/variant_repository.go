package repository

import (
	"context"

	"github.com/onegreenvn/green-insights-backend/internal/models"
	"gorm.io/gorm"
)

type VariantRepository struct {
	db *gorm.DB
}

func NewVariantRepository(db *gorm.DB) *VariantRepository {
	return &VariantRepository{db: db}
}

// WithTx returns a repository bound to tx
func (r *VariantRepository) WithTx(tx *gorm.DB) *VariantRepository {
	return &VariantRepository{db: tx}
}

// ListLive returns the live variants of a playbook
func (r *VariantRepository) ListLive(ctx context.Context, playbookID string) ([]models.PlaybookVariant, error) {
	var variants []models.PlaybookVariant
	err := r.db.WithContext(ctx).Where("playbook_id = ?", playbookID).
		Order("created_at ASC").Order("id ASC").
		Find(&variants).Error
	return variants, err
}

// GetByIDs returns live variants by id
func (r *VariantRepository) GetByIDs(ctx context.Context, ids []string) ([]models.PlaybookVariant, error) {
	var variants []models.PlaybookVariant
	if len(ids) == 0 {
		return variants, nil
	}
	err := r.db.WithContext(ctx).Where("id IN ?", ids).Find(&variants).Error
	return variants, err
}

// Create inserts variants
func (r *VariantRepository) Create(ctx context.Context, variants []models.PlaybookVariant) error {
	if len(variants) == 0 {
		return nil
	}
	return r.db.WithContext(ctx).Create(&variants).Error
}

// SoftDelete marks variants as deleted
func (r *VariantRepository) SoftDelete(ctx context.Context, playbookID string, ids []string) (int64, error) {
	if len(ids) == 0 {
		return 0, nil
	}
	result := r.db.WithContext(ctx).Where("playbook_id = ? AND id IN ?", playbookID, ids).Delete(&models.PlaybookVariant{})
	return result.RowsAffected, result.Error
}

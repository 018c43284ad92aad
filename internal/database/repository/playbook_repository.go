package repository

import (
	"context"
	"errors"

	"github.com/onegreenvn/green-insights-backend/internal/models"
	"gorm.io/datatypes"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type PlaybookRepository struct {
	db *gorm.DB
}

func NewPlaybookRepository(db *gorm.DB) *PlaybookRepository {
	return &PlaybookRepository{db: db}
}

// WithTx returns a repository bound to tx
func (r *PlaybookRepository) WithTx(tx *gorm.DB) *PlaybookRepository {
	return &PlaybookRepository{db: tx}
}

// Create inserts a playbook and links every source content id
func (r *PlaybookRepository) Create(ctx context.Context, playbook *models.Playbook, contentIDs []string) error {
	db := r.db.WithContext(ctx)
	if err := db.Omit(clause.Associations).Create(playbook).Error; err != nil {
		return err
	}
	if len(contentIDs) == 0 {
		return nil
	}
	links := make([]models.PlaybookSourceContent, len(contentIDs))
	for i, id := range contentIDs {
		links[i] = models.PlaybookSourceContent{PlaybookID: playbook.ID, ContentID: id}
	}
	return db.Create(&links).Error
}

// GetByID retrieves a live playbook owned by orgID
func (r *PlaybookRepository) GetByID(ctx context.Context, orgID, id string) (*models.Playbook, error) {
	var playbook models.Playbook
	err := r.db.WithContext(ctx).Where("organization_id = ? AND id = ?", orgID, id).First(&playbook).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &playbook, nil
}

// List returns a page of live playbooks and the total count
func (r *PlaybookRepository) List(ctx context.Context, orgID string, format models.ContentType, limit, offset int) ([]models.Playbook, int64, error) {
	query := r.db.WithContext(ctx).Model(&models.Playbook{}).Where("organization_id = ?", orgID)
	if format != "" {
		query = query.Where("format = ?", format)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	var playbooks []models.Playbook
	err := query.Order("created_at DESC").Order("id ASC").Limit(limit).Offset(offset).Find(&playbooks).Error
	return playbooks, total, err
}

// SourceContentIDs returns the content ids a playbook was built from
func (r *PlaybookRepository) SourceContentIDs(ctx context.Context, playbookID string) ([]string, error) {
	var ids []string
	err := r.db.WithContext(ctx).Model(&models.PlaybookSourceContent{}).
		Where("playbook_id = ?", playbookID).
		Order("content_id ASC").
		Pluck("content_id", &ids).Error
	return ids, err
}

// ApplyRecipe replaces the recipe and sets the consistency score
func (r *PlaybookRepository) ApplyRecipe(ctx context.Context, id string, recipe models.Recipe, consistencyScore int) error {
	return r.db.WithContext(ctx).Model(&models.Playbook{}).Where("id = ?", id).Updates(map[string]interface{}{
		"recipe":            datatypes.NewJSONType(recipe),
		"consistency_score": consistencyScore,
	}).Error
}

// SoftDelete marks a playbook as deleted
func (r *PlaybookRepository) SoftDelete(ctx context.Context, orgID, id string) (bool, error) {
	result := r.db.WithContext(ctx).Where("organization_id = ?", orgID).Delete(&models.Playbook{}, "id = ?", id)
	if result.Error != nil {
		return false, result.Error
	}
	return result.RowsAffected > 0, nil
}

package repository

import (
	"context"
	"errors"

	"github.com/onegreenvn/green-insights-backend/internal/models"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type TagRepository struct {
	db *gorm.DB
}

func NewTagRepository(db *gorm.DB) *TagRepository {
	return &TagRepository{db: db}
}

// WithTx returns a repository bound to tx
func (r *TagRepository) WithTx(tx *gorm.DB) *TagRepository {
	return &TagRepository{db: tx}
}

// FindOrCreate returns the live tag with the given name and type, restoring
// a soft-deleted one before creating a new row
func (r *TagRepository) FindOrCreate(ctx context.Context, orgID, name string, tagType models.TagType) (*models.Tag, error) {
	db := r.db.WithContext(ctx)

	var tag models.Tag
	err := db.Where("organization_id = ? AND name = ? AND type = ?", orgID, name, tagType).First(&tag).Error
	if err == nil {
		return &tag, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, err
	}

	var deleted models.Tag
	err = db.Unscoped().
		Where("organization_id = ? AND name = ? AND type = ? AND deleted_at IS NOT NULL", orgID, name, tagType).
		Order("deleted_at DESC").
		First(&deleted).Error
	if err == nil {
		if err := db.Unscoped().Model(&deleted).Update("deleted_at", nil).Error; err != nil {
			return nil, err
		}
		deleted.DeletedAt = gorm.DeletedAt{}
		return &deleted, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, err
	}

	tag = models.Tag{OrganizationID: orgID, Name: name, Type: tagType}
	err = db.Clauses(clause.OnConflict{
		Columns:     []clause.Column{{Name: "organization_id"}, {Name: "name"}, {Name: "type"}},
		TargetWhere: liveRows,
		DoNothing:   true,
	}).Create(&tag).Error
	if err != nil {
		return nil, err
	}

	// Re-read: a concurrent insert may have won the unique index
	var stored models.Tag
	err = db.Where("organization_id = ? AND name = ? AND type = ?", orgID, name, tagType).First(&stored).Error
	if err != nil {
		return nil, err
	}
	return &stored, nil
}

// GetByID retrieves a tag owned by orgID
func (r *TagRepository) GetByID(ctx context.Context, orgID, id string) (*models.Tag, error) {
	var tag models.Tag
	err := r.db.WithContext(ctx).Where("organization_id = ? AND id = ?", orgID, id).First(&tag).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &tag, nil
}

// List returns tags of an organization, optionally filtered by type
func (r *TagRepository) List(ctx context.Context, orgID string, tagType models.TagType) ([]models.Tag, error) {
	query := r.db.WithContext(ctx).Where("organization_id = ?", orgID)
	if tagType != "" {
		query = query.Where("type = ?", tagType)
	}
	var tags []models.Tag
	err := query.Order("name ASC").Find(&tags).Error
	return tags, err
}

// Attach links a tag to content. Existing links are left untouched.
func (r *TagRepository) Attach(ctx context.Context, contentID, tagID string) error {
	return r.db.WithContext(ctx).Clauses(clause.OnConflict{DoNothing: true}).
		Create(&models.ContentTag{ContentID: contentID, TagID: tagID}).Error
}

// DetachAutoExcept removes AUTO tag links of a content item whose tag is not
// in keep. MANUAL links are never touched.
func (r *TagRepository) DetachAutoExcept(ctx context.Context, contentID string, keep []string) (int64, error) {
	autoTags := r.db.Unscoped().Model(&models.Tag{}).Select("id").Where("type = ?", models.TagTypeAuto)
	query := r.db.WithContext(ctx).Where("content_id = ? AND tag_id IN (?)", contentID, autoTags)
	if len(keep) > 0 {
		query = query.Where("tag_id NOT IN ?", keep)
	}
	result := query.Delete(&models.ContentTag{})
	return result.RowsAffected, result.Error
}

// SoftDelete marks a tag as deleted
func (r *TagRepository) SoftDelete(ctx context.Context, orgID, id string) (bool, error) {
	result := r.db.WithContext(ctx).Where("organization_id = ?", orgID).Delete(&models.Tag{}, "id = ?", id)
	if result.Error != nil {
		return false, result.Error
	}
	return result.RowsAffected > 0, nil
}

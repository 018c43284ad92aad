package repository

import (
	"context"
	"errors"
	"time"

	"github.com/onegreenvn/green-insights-backend/internal/models"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// liveRows targets partial unique indexes that only cover non-deleted rows
var liveRows = clause.Where{Exprs: []clause.Expression{clause.Expr{SQL: "deleted_at IS NULL"}}}

// ContentFilter narrows content queries. Zero values mean no restriction.
type ContentFilter struct {
	From           *time.Time
	To             *time.Time
	IntegrationIDs []string
	Format         models.ContentType
	ContentIDs     []string
}

// ContentTotals is the metric fold of one content item
type ContentTotals struct {
	ContentID       string
	TotalReach      int64
	TotalEngagement int64
}

type ContentRepository struct {
	db *gorm.DB
}

func NewContentRepository(db *gorm.DB) *ContentRepository {
	return &ContentRepository{db: db}
}

// WithTx returns a repository bound to tx
func (r *ContentRepository) WithTx(tx *gorm.DB) *ContentRepository {
	return &ContentRepository{db: tx}
}

// Upsert inserts content or updates the live row with the same external key
func (r *ContentRepository) Upsert(ctx context.Context, content *models.Content) (*models.Content, error) {
	err := r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:     []clause.Column{{Name: "organization_id"}, {Name: "integration_id"}, {Name: "external_content_id"}},
		TargetWhere: liveRows,
		DoUpdates:   clause.AssignmentColumns([]string{"content_type", "caption", "hashtags", "published_at", "updated_at"}),
	}).Create(content).Error
	if err != nil {
		return nil, err
	}
	return r.GetByExternalID(ctx, content.OrganizationID, content.IntegrationID, content.ExternalContentID)
}

// GetByExternalID retrieves the live content for an external key
func (r *ContentRepository) GetByExternalID(ctx context.Context, orgID, integrationID, externalID string) (*models.Content, error) {
	var content models.Content
	err := r.db.WithContext(ctx).
		Where("organization_id = ? AND integration_id = ? AND external_content_id = ?", orgID, integrationID, externalID).
		First(&content).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &content, nil
}

// GetByID retrieves content owned by orgID
func (r *ContentRepository) GetByID(ctx context.Context, orgID, id string) (*models.Content, error) {
	var content models.Content
	err := r.db.WithContext(ctx).Preload("Tags").
		Where("organization_id = ? AND id = ?", orgID, id).
		First(&content).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &content, nil
}

// List returns live content matching filter ordered by publish time
func (r *ContentRepository) List(ctx context.Context, orgID string, filter ContentFilter) ([]models.Content, error) {
	query := r.db.WithContext(ctx).Where("organization_id = ?", orgID)
	if filter.From != nil {
		query = query.Where("published_at >= ?", *filter.From)
	}
	if filter.To != nil {
		query = query.Where("published_at <= ?", *filter.To)
	}
	if filter.IntegrationIDs != nil {
		query = query.Where("integration_id IN ?", filter.IntegrationIDs)
	}
	if filter.Format != "" {
		query = query.Where("content_type = ?", filter.Format)
	}
	if filter.ContentIDs != nil {
		query = query.Where("id IN ?", filter.ContentIDs)
	}

	var contents []models.Content
	err := query.Order("published_at ASC").Order("id ASC").Find(&contents).Error
	return contents, err
}

// SumMetrics folds daily metrics per content id. Metrics outside [from, to]
// are ignored when bounds are given. Content without metrics is returned
// with zero totals.
func (r *ContentRepository) SumMetrics(ctx context.Context, contentIDs []string, from, to *time.Time) ([]ContentTotals, error) {
	if len(contentIDs) == 0 {
		return nil, nil
	}

	join := "LEFT JOIN daily_metrics m ON m.organization_id = c.organization_id" +
		" AND m.integration_id = c.integration_id" +
		" AND m.external_content_id = c.external_content_id"
	var args []interface{}
	if from != nil {
		join += " AND m.date >= ?"
		args = append(args, *from)
	}
	if to != nil {
		join += " AND m.date <= ?"
		args = append(args, *to)
	}

	var totals []ContentTotals
	err := r.db.WithContext(ctx).
		Table("contents AS c").
		Select("c.id AS content_id, "+
			"COALESCE(SUM(m.reach), 0) AS total_reach, "+
			"COALESCE(SUM(m.reactions), 0) + COALESCE(SUM(m.comments), 0) + COALESCE(SUM(m.shares), 0) AS total_engagement").
		Joins(join, args...).
		Where("c.id IN ?", contentIDs).
		Group("c.id").
		Scan(&totals).Error
	return totals, err
}

// SoftDelete marks content as deleted
func (r *ContentRepository) SoftDelete(ctx context.Context, orgID, id string) (bool, error) {
	result := r.db.WithContext(ctx).Where("organization_id = ?", orgID).Delete(&models.Content{}, "id = ?", id)
	if result.Error != nil {
		return false, result.Error
	}
	return result.RowsAffected > 0, nil
}

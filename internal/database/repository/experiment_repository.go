package repository

import (
	"context"
	"errors"
	"time"

	"github.com/onegreenvn/green-insights-backend/internal/models"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// VariantAggregates are the derived figures of one experiment arm
type VariantAggregates struct {
	TotalReach        int64
	TotalEngagement   int64
	ContentCount      int
	AvgEngagementRate float64
	WinRate           float64
}

type ExperimentRepository struct {
	db *gorm.DB
}

func NewExperimentRepository(db *gorm.DB) *ExperimentRepository {
	return &ExperimentRepository{db: db}
}

// WithTx returns a repository bound to tx
func (r *ExperimentRepository) WithTx(tx *gorm.DB) *ExperimentRepository {
	return &ExperimentRepository{db: tx}
}

// Create inserts an experiment and one arm per variant id
func (r *ExperimentRepository) Create(ctx context.Context, experiment *models.Experiment, variantIDs []string) error {
	db := r.db.WithContext(ctx)
	if err := db.Omit(clause.Associations).Create(experiment).Error; err != nil {
		return err
	}
	arms := make([]models.ExperimentVariant, len(variantIDs))
	for i, id := range variantIDs {
		arms[i] = models.ExperimentVariant{ExperimentID: experiment.ID, VariantID: id}
	}
	return db.Omit(clause.Associations).Create(&arms).Error
}

// GetByID retrieves a live experiment with arms and their variants
func (r *ExperimentRepository) GetByID(ctx context.Context, orgID, id string) (*models.Experiment, error) {
	var experiment models.Experiment
	err := r.db.WithContext(ctx).
		Preload("Variants", func(db *gorm.DB) *gorm.DB { return db.Order("created_at ASC").Order("id ASC") }).
		Preload("Variants.Variant", func(db *gorm.DB) *gorm.DB { return db.Unscoped() }).
		Where("organization_id = ? AND id = ?", orgID, id).
		First(&experiment).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &experiment, nil
}

// List returns a page of experiments and the total count
func (r *ExperimentRepository) List(ctx context.Context, orgID string, status models.ExperimentStatus, playbookID string, limit, offset int) ([]models.Experiment, int64, error) {
	query := r.db.WithContext(ctx).Model(&models.Experiment{}).Where("organization_id = ?", orgID)
	if status != "" {
		query = query.Where("status = ?", status)
	}
	if playbookID != "" {
		query = query.Where("playbook_id = ?", playbookID)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	var experiments []models.Experiment
	err := query.
		Preload("Variants", func(db *gorm.DB) *gorm.DB { return db.Order("created_at ASC").Order("id ASC") }).
		Preload("Variants.Variant", func(db *gorm.DB) *gorm.DB { return db.Unscoped() }).
		Order("created_at DESC").Order("id ASC").
		Limit(limit).Offset(offset).
		Find(&experiments).Error
	return experiments, total, err
}

// Transition moves an experiment from one status to another. It reports
// false when the experiment was not in the expected status.
func (r *ExperimentRepository) Transition(ctx context.Context, id string, from, to models.ExperimentStatus, at time.Time) (bool, error) {
	updates := map[string]interface{}{"status": to}
	switch to {
	case models.ExperimentStatusActive:
		updates["start_date"] = gorm.Expr("COALESCE(start_date, ?)", at)
	case models.ExperimentStatusCompleted:
		updates["end_date"] = at
	}
	result := r.db.WithContext(ctx).Model(&models.Experiment{}).
		Where("id = ? AND status = ?", id, from).
		Updates(updates)
	return result.RowsAffected > 0, result.Error
}

// SetWinner stamps the winning variant once
func (r *ExperimentRepository) SetWinner(ctx context.Context, id, variantID string) (bool, error) {
	result := r.db.WithContext(ctx).Model(&models.Experiment{}).
		Where("id = ? AND winner_id IS NULL", id).
		Update("winner_id", variantID)
	return result.RowsAffected > 0, result.Error
}

// UpdateAggregates writes the derived figures of one arm
func (r *ExperimentRepository) UpdateAggregates(ctx context.Context, experimentVariantID string, agg VariantAggregates) error {
	return r.db.WithContext(ctx).Model(&models.ExperimentVariant{}).Where("id = ?", experimentVariantID).Updates(map[string]interface{}{
		"total_reach":         agg.TotalReach,
		"total_engagement":    agg.TotalEngagement,
		"content_count":       agg.ContentCount,
		"avg_engagement_rate": agg.AvgEngagementRate,
		"win_rate":            agg.WinRate,
	}).Error
}

// Track attributes content to an arm. It reports whether a row was inserted;
// an existing row for the same experiment and content is left untouched.
func (r *ExperimentRepository) Track(ctx context.Context, tracked *models.ExperimentTrackedContent) (bool, error) {
	result := r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "experiment_id"}, {Name: "content_id"}},
		DoNothing: true,
	}).Create(tracked)
	return result.RowsAffected > 0, result.Error
}

// GetTracked returns the attribution of a content item within an experiment
func (r *ExperimentRepository) GetTracked(ctx context.Context, experimentID, contentID string) (*models.ExperimentTrackedContent, error) {
	var tracked models.ExperimentTrackedContent
	err := r.db.WithContext(ctx).Where("experiment_id = ? AND content_id = ?", experimentID, contentID).First(&tracked).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &tracked, nil
}

// TrackedContentIDs groups attributed content ids by arm id
func (r *ExperimentRepository) TrackedContentIDs(ctx context.Context, experimentID string) (map[string][]string, error) {
	var rows []models.ExperimentTrackedContent
	err := r.db.WithContext(ctx).Where("experiment_id = ?", experimentID).Order("content_id ASC").Find(&rows).Error
	if err != nil {
		return nil, err
	}
	byArm := make(map[string][]string)
	for _, row := range rows {
		byArm[row.ExperimentVariantID] = append(byArm[row.ExperimentVariantID], row.ContentID)
	}
	return byArm, nil
}

// SoftDelete marks an experiment as deleted
func (r *ExperimentRepository) SoftDelete(ctx context.Context, orgID, id string) (bool, error) {
	result := r.db.WithContext(ctx).Where("organization_id = ?", orgID).Delete(&models.Experiment{}, "id = ?", id)
	if result.Error != nil {
		return false, result.Error
	}
	return result.RowsAffected > 0, nil
}

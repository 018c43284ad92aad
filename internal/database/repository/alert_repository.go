package repository

import (
	"context"
	"errors"

	"github.com/onegreenvn/green-insights-backend/internal/models"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// AlertFilter narrows alert listings
type AlertFilter struct {
	UnreadOnly bool
	Severity   models.AlertSeverity
	Type       models.AlertType
}

type AlertRepository struct {
	db *gorm.DB
}

func NewAlertRepository(db *gorm.DB) *AlertRepository {
	return &AlertRepository{db: db}
}

// ListConfigs returns the alert configs of an organization
func (r *AlertRepository) ListConfigs(ctx context.Context, orgID string) ([]models.AlertConfig, error) {
	var configs []models.AlertConfig
	err := r.db.WithContext(ctx).Where("organization_id = ?", orgID).Order("metric ASC").Find(&configs).Error
	return configs, err
}

// GetConfig returns the config of one metric
func (r *AlertRepository) GetConfig(ctx context.Context, orgID, metric string) (*models.AlertConfig, error) {
	var config models.AlertConfig
	err := r.db.WithContext(ctx).Where("organization_id = ? AND metric = ?", orgID, metric).First(&config).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &config, nil
}

// UpsertConfig writes the config of one metric
func (r *AlertRepository) UpsertConfig(ctx context.Context, config *models.AlertConfig) (*models.AlertConfig, error) {
	err := r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "organization_id"}, {Name: "metric"}},
		DoUpdates: clause.AssignmentColumns([]string{"threshold", "spike_threshold", "enabled", "updated_at"}),
	}).Create(config).Error
	if err != nil {
		return nil, err
	}
	return r.GetConfig(ctx, config.OrganizationID, config.Metric)
}

// InsertIfAbsent stores an alert unless one already exists for the same
// organization, integration, metric, type and day. It reports whether the
// alert was inserted.
func (r *AlertRepository) InsertIfAbsent(ctx context.Context, alert *models.Alert) (bool, error) {
	result := r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns: []clause.Column{
			{Name: "organization_id"}, {Name: "integration_id"}, {Name: "type"}, {Name: "metric"}, {Name: "alert_date"},
		},
		DoNothing: true,
	}).Create(alert)
	return result.RowsAffected > 0, result.Error
}

// List returns a page of alerts, newest first, and the total count
func (r *AlertRepository) List(ctx context.Context, orgID string, filter AlertFilter, limit, offset int) ([]models.Alert, int64, error) {
	query := r.db.WithContext(ctx).Model(&models.Alert{}).Where("organization_id = ?", orgID)
	if filter.UnreadOnly {
		query = query.Where("is_read = ?", false)
	}
	if filter.Severity != "" {
		query = query.Where("severity = ?", filter.Severity)
	}
	if filter.Type != "" {
		query = query.Where("type = ?", filter.Type)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	var alerts []models.Alert
	err := query.Order("created_at DESC").Order("id ASC").Limit(limit).Offset(offset).Find(&alerts).Error
	return alerts, total, err
}

// MarkRead flips one alert to read
func (r *AlertRepository) MarkRead(ctx context.Context, orgID, id string) (bool, error) {
	var count int64
	if err := r.db.WithContext(ctx).Model(&models.Alert{}).Where("organization_id = ? AND id = ?", orgID, id).Count(&count).Error; err != nil {
		return false, err
	}
	if count == 0 {
		return false, nil
	}
	err := r.db.WithContext(ctx).Model(&models.Alert{}).
		Where("organization_id = ? AND id = ?", orgID, id).
		Update("is_read", true).Error
	return err == nil, err
}

// MarkAllRead flips every unread alert of an organization
func (r *AlertRepository) MarkAllRead(ctx context.Context, orgID string) (int64, error) {
	result := r.db.WithContext(ctx).Model(&models.Alert{}).
		Where("organization_id = ? AND is_read = ?", orgID, false).
		Update("is_read", true)
	return result.RowsAffected, result.Error
}

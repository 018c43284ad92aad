package repository

import (
	"context"
	"time"

	"github.com/onegreenvn/green-insights-backend/internal/models"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// MetricTotals sums every counter over a window
type MetricTotals struct {
	Reach      int64
	Reactions  int64
	Comments   int64
	Shares     int64
	VideoViews int64
}

type DailyMetricRepository struct {
	db *gorm.DB
}

func NewDailyMetricRepository(db *gorm.DB) *DailyMetricRepository {
	return &DailyMetricRepository{db: db}
}

// WithTx returns a repository bound to tx
func (r *DailyMetricRepository) WithTx(tx *gorm.DB) *DailyMetricRepository {
	return &DailyMetricRepository{db: tx}
}

// UpsertBatch writes metrics, overwriting counters of existing days
func (r *DailyMetricRepository) UpsertBatch(ctx context.Context, metrics []models.DailyMetric) error {
	if len(metrics) == 0 {
		return nil
	}
	return r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns: []clause.Column{
			{Name: "organization_id"}, {Name: "integration_id"}, {Name: "external_content_id"}, {Name: "date"},
		},
		DoUpdates: clause.AssignmentColumns([]string{"reach", "reactions", "comments", "shares", "video_views", "updated_at"}),
	}).CreateInBatches(metrics, 200).Error
}

// ListForContent returns the daily rows of one content item ordered by day
func (r *DailyMetricRepository) ListForContent(ctx context.Context, orgID, integrationID, externalID string) ([]models.DailyMetric, error) {
	var metrics []models.DailyMetric
	err := r.db.WithContext(ctx).
		Where("organization_id = ? AND integration_id = ? AND external_content_id = ?", orgID, integrationID, externalID).
		Order("date ASC").
		Find(&metrics).Error
	return metrics, err
}

// SumWindow totals counters of one integration for days in [from, to).
// An empty integrationID sums the whole organization.
func (r *DailyMetricRepository) SumWindow(ctx context.Context, orgID, integrationID string, from, to time.Time) (MetricTotals, error) {
	var totals MetricTotals
	query := r.db.WithContext(ctx).Model(&models.DailyMetric{}).
		Select("COALESCE(SUM(reach), 0) AS reach, "+
			"COALESCE(SUM(reactions), 0) AS reactions, "+
			"COALESCE(SUM(comments), 0) AS comments, "+
			"COALESCE(SUM(shares), 0) AS shares, "+
			"COALESCE(SUM(video_views), 0) AS video_views").
		Where("organization_id = ? AND date >= ? AND date < ?", orgID, from, to)
	if integrationID != "" {
		query = query.Where("integration_id = ?", integrationID)
	}
	err := query.Scan(&totals).Error
	return totals, err
}

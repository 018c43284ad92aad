package models

import (
	"time"

	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// Content is a published social content item for one integration (connected channel).
// At most one live row exists per (organization, integration, external content id).
type Content struct {
	ID                string                      `json:"id" gorm:"primaryKey;type:uuid"`
	OrganizationID    string                      `json:"organization_id" gorm:"type:uuid;not null;index;uniqueIndex:idx_contents_external,where:deleted_at IS NULL"`
	IntegrationID     string                      `json:"integration_id" gorm:"type:uuid;not null;index;uniqueIndex:idx_contents_external,where:deleted_at IS NULL"`
	ExternalContentID string                      `json:"external_content_id" gorm:"type:varchar(255);not null;uniqueIndex:idx_contents_external,where:deleted_at IS NULL"`
	ContentType       ContentType                 `json:"content_type" gorm:"type:varchar(20);not null;index"` // post, reel, story
	Caption           string                      `json:"caption" gorm:"type:text"`
	Hashtags          datatypes.JSONSlice[string] `json:"hashtags"`
	PublishedAt       time.Time                   `json:"published_at" gorm:"not null;index"`

	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
	DeletedAt gorm.DeletedAt `json:"-" gorm:"index"`

	Tags []Tag `json:"tags,omitempty" gorm:"many2many:content_tags;"`
}

// TableName specifies the table name for the Content model
func (Content) TableName() string {
	return "contents"
}

func (c *Content) BeforeCreate(tx *gorm.DB) error {
	assignID(&c.ID)
	return nil
}

// DailyMetric is one day of counters for one content item.
// Re-ingesting the same day overwrites the counters.
type DailyMetric struct {
	ID                string    `json:"id" gorm:"primaryKey;type:uuid"`
	OrganizationID    string    `json:"organization_id" gorm:"type:uuid;not null;uniqueIndex:idx_daily_metrics_day"`
	IntegrationID     string    `json:"integration_id" gorm:"type:uuid;not null;index;uniqueIndex:idx_daily_metrics_day"`
	ExternalContentID string    `json:"external_content_id" gorm:"type:varchar(255);not null;uniqueIndex:idx_daily_metrics_day"`
	Date              time.Time `json:"date" gorm:"type:date;not null;index;uniqueIndex:idx_daily_metrics_day"`
	Reach             int64     `json:"reach" gorm:"not null;default:0"`
	Reactions         int64     `json:"reactions" gorm:"not null;default:0"`
	Comments          int64     `json:"comments" gorm:"not null;default:0"`
	Shares            int64     `json:"shares" gorm:"not null;default:0"`
	VideoViews        int64     `json:"video_views" gorm:"not null;default:0"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// TableName specifies the table name for the DailyMetric model
func (DailyMetric) TableName() string {
	return "daily_metrics"
}

func (m *DailyMetric) BeforeCreate(tx *gorm.DB) error {
	assignID(&m.ID)
	return nil
}

// UpsertContentRequest is the ingestion payload for one content item
type UpsertContentRequest struct {
	IntegrationID     string    `json:"integration_id" binding:"required" example:"550e8400-e29b-41d4-a716-446655440010"`
	ExternalContentID string    `json:"external_content_id" binding:"required" example:"17895695668004550"`
	ContentType       string    `json:"content_type" binding:"required" example:"reel"`
	Caption           string    `json:"caption" example:"Three ways to plan your week. Save this for Monday #planning #productivity"`
	Hashtags          []string  `json:"hashtags" example:"planning,productivity"`
	PublishedAt       time.Time `json:"published_at" binding:"required" example:"2025-01-21T18:30:00Z"`
}

// DailyMetricInput is one day of counters in an ingestion batch
type DailyMetricInput struct {
	IntegrationID     string `json:"integration_id" binding:"required"`
	ExternalContentID string `json:"external_content_id" binding:"required"`
	Date              string `json:"date" binding:"required" example:"2025-01-21"`
	Reach             int64  `json:"reach" binding:"min=0"`
	Reactions         int64  `json:"reactions" binding:"min=0"`
	Comments          int64  `json:"comments" binding:"min=0"`
	Shares            int64  `json:"shares" binding:"min=0"`
	VideoViews        int64  `json:"video_views" binding:"min=0"`
}

// UpsertDailyMetricsRequest is a batch of daily counters
type UpsertDailyMetricsRequest struct {
	Metrics []DailyMetricInput `json:"metrics" binding:"required,min=1,dive"`
}

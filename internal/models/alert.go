package models

import (
	"time"

	"gorm.io/gorm"
)

// AlertSeverity grades an alert by magnitude of change
type AlertSeverity string

const (
	AlertSeverityInfo     AlertSeverity = "info"
	AlertSeverityWarning  AlertSeverity = "warning"
	AlertSeverityCritical AlertSeverity = "critical"
)

// AlertType separates KPI drops from viral spikes
type AlertType string

const (
	AlertTypeKPIDrop    AlertType = "kpi_drop"
	AlertTypeViralSpike AlertType = "viral_spike"
)

// Metric names accepted by alert configs
const (
	MetricReach      = "reach"
	MetricReactions  = "reactions"
	MetricComments   = "comments"
	MetricShares     = "shares"
	MetricVideoViews = "video_views"
	MetricEngagement = "engagement"
)

// AlertMetrics lists every metric an alert config may monitor
var AlertMetrics = []string{MetricReach, MetricReactions, MetricComments, MetricShares, MetricVideoViews, MetricEngagement}

// IsAlertMetric reports whether name is a monitorable metric
func IsAlertMetric(name string) bool {
	for _, m := range AlertMetrics {
		if m == name {
			return true
		}
	}
	return false
}

// AlertConfig enables monitoring of one metric for an organization
type AlertConfig struct {
	ID             string    `json:"id" gorm:"primaryKey;type:uuid"`
	OrganizationID string    `json:"organization_id" gorm:"type:uuid;not null;uniqueIndex:idx_alert_configs_metric"`
	Metric         string    `json:"metric" gorm:"type:varchar(30);not null;uniqueIndex:idx_alert_configs_metric"`
	Threshold      float64   `json:"threshold" gorm:"not null;default:20"`        // minimum drop in percent
	SpikeThreshold float64   `json:"spike_threshold" gorm:"not null;default:100"` // minimum increase in percent
	Enabled        bool      `json:"enabled" gorm:"not null;default:true"`
	CreatedAt      time.Time `json:"created_at"`
	UpdatedAt      time.Time `json:"updated_at"`
}

// TableName specifies the table name for the AlertConfig model
func (AlertConfig) TableName() string {
	return "alert_configs"
}

func (a *AlertConfig) BeforeCreate(tx *gorm.DB) error {
	assignID(&a.ID)
	return nil
}

// Alert is an append-only notification; only IsRead changes after insert.
// IntegrationID is empty for organization-wide alerts.
type Alert struct {
	ID             string        `json:"id" gorm:"primaryKey;type:uuid"`
	OrganizationID string        `json:"organization_id" gorm:"type:uuid;not null;index;uniqueIndex:idx_alerts_daily"`
	IntegrationID  string        `json:"integration_id,omitempty" gorm:"type:varchar(64);not null;default:'';uniqueIndex:idx_alerts_daily"`
	Type           AlertType     `json:"type" gorm:"type:varchar(20);not null;uniqueIndex:idx_alerts_daily"`
	Metric         string        `json:"metric" gorm:"type:varchar(30);not null;uniqueIndex:idx_alerts_daily"`
	AlertDate      time.Time     `json:"alert_date" gorm:"type:date;not null;uniqueIndex:idx_alerts_daily"`
	Severity       AlertSeverity `json:"severity" gorm:"type:varchar(10);not null;index"`
	ChangePercent  float64       `json:"change_percent"`
	CurrentValue   float64       `json:"current_value"`
	PreviousValue  float64       `json:"previous_value"`
	Message        string        `json:"message" gorm:"type:text"`
	IsRead         bool          `json:"is_read" gorm:"not null;default:false;index"`
	CreatedAt      time.Time     `json:"created_at"`
}

// TableName specifies the table name for the Alert model
func (Alert) TableName() string {
	return "alerts"
}

func (a *Alert) BeforeCreate(tx *gorm.DB) error {
	assignID(&a.ID)
	return nil
}

// UpdateAlertConfigRequest upserts the config of one metric
type UpdateAlertConfigRequest struct {
	Metric         string   `json:"metric" binding:"required" example:"reach"`
	Threshold      *float64 `json:"threshold,omitempty" example:"20"`
	SpikeThreshold *float64 `json:"spike_threshold,omitempty" example:"100"`
	Enabled        *bool    `json:"enabled,omitempty" example:"true"`
}

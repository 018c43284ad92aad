package models

import (
	"time"

	"gorm.io/gorm"
)

// ExperimentStatus is the lifecycle state of an experiment
type ExperimentStatus string

const (
	ExperimentStatusDraft     ExperimentStatus = "draft"
	ExperimentStatusActive    ExperimentStatus = "active"
	ExperimentStatusCompleted ExperimentStatus = "completed"
)

// SuccessMetric selects how variant arms are scored
type SuccessMetric string

const (
	SuccessMetricReach      SuccessMetric = "reach"
	SuccessMetricEngagement SuccessMetric = "engagement"
	SuccessMetricCombined   SuccessMetric = "combined"
)

// Valid reports whether m is a known success metric
func (m SuccessMetric) Valid() bool {
	switch m {
	case SuccessMetricReach, SuccessMetricEngagement, SuccessMetricCombined:
		return true
	}
	return false
}

// Experiment compares 2-3 variants of one playbook
type Experiment struct {
	ID             string           `json:"id" gorm:"primaryKey;type:uuid"`
	OrganizationID string           `json:"organization_id" gorm:"type:uuid;not null;index"`
	PlaybookID     string           `json:"playbook_id" gorm:"type:uuid;not null;index"`
	Name           string           `json:"name" gorm:"type:varchar(255);not null"`
	SuccessMetric  SuccessMetric    `json:"success_metric" gorm:"type:varchar(20);not null"`
	Status         ExperimentStatus `json:"status" gorm:"type:varchar(20);not null;default:'draft';index"`
	StartDate      *time.Time       `json:"start_date"`
	EndDate        *time.Time       `json:"end_date"`
	WinnerID       *string          `json:"winner_id" gorm:"type:uuid"`

	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
	DeletedAt gorm.DeletedAt `json:"-" gorm:"index"`

	Variants []ExperimentVariant `json:"variants,omitempty" gorm:"foreignKey:ExperimentID;references:ID"`
}

// TableName specifies the table name for the Experiment model
func (Experiment) TableName() string {
	return "experiments"
}

func (e *Experiment) BeforeCreate(tx *gorm.DB) error {
	assignID(&e.ID)
	return nil
}

// ExperimentVariant is one arm of an experiment with its derived aggregates
type ExperimentVariant struct {
	ID                string  `json:"id" gorm:"primaryKey;type:uuid"`
	ExperimentID      string  `json:"experiment_id" gorm:"type:uuid;not null;uniqueIndex:idx_experiment_variants_pair"`
	VariantID         string  `json:"variant_id" gorm:"type:uuid;not null;uniqueIndex:idx_experiment_variants_pair"`
	TotalReach        int64   `json:"total_reach" gorm:"not null;default:0"`
	TotalEngagement   int64   `json:"total_engagement" gorm:"not null;default:0"`
	ContentCount      int     `json:"content_count" gorm:"not null;default:0"`
	AvgEngagementRate float64 `json:"avg_engagement_rate" gorm:"not null;default:0"`
	WinRate           float64 `json:"win_rate" gorm:"not null;default:0"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`

	Variant PlaybookVariant `json:"variant" gorm:"foreignKey:VariantID;references:ID"`
}

// TableName specifies the table name for the ExperimentVariant model
func (ExperimentVariant) TableName() string {
	return "experiment_variants"
}

func (v *ExperimentVariant) BeforeCreate(tx *gorm.DB) error {
	assignID(&v.ID)
	return nil
}

// ExperimentTrackedContent attributes a content item to one experiment arm.
// A content item belongs to at most one arm per experiment.
type ExperimentTrackedContent struct {
	ID                  string    `json:"id" gorm:"primaryKey;type:uuid"`
	ExperimentID        string    `json:"experiment_id" gorm:"type:uuid;not null;uniqueIndex:idx_tracked_contents_pair"`
	ExperimentVariantID string    `json:"experiment_variant_id" gorm:"type:uuid;not null;index"`
	ContentID           string    `json:"content_id" gorm:"type:uuid;not null;uniqueIndex:idx_tracked_contents_pair"`
	CreatedAt           time.Time `json:"created_at"`
}

// TableName specifies the table name for the ExperimentTrackedContent model
func (ExperimentTrackedContent) TableName() string {
	return "experiment_tracked_contents"
}

func (t *ExperimentTrackedContent) BeforeCreate(tx *gorm.DB) error {
	assignID(&t.ID)
	return nil
}

// CreateExperimentRequest represents the request to create an experiment
type CreateExperimentRequest struct {
	PlaybookID    string     `json:"playbook_id" binding:"required"`
	Name          string     `json:"name" binding:"required,max=255" example:"Hook style test"`
	SuccessMetric string     `json:"success_metric" binding:"required" example:"engagement"`
	VariantIDs    []string   `json:"variant_ids" binding:"required"`
	StartDate     *time.Time `json:"start_date,omitempty"`
	EndDate       *time.Time `json:"end_date,omitempty"`
}

// TrackContentRequest attributes published content to a variant arm
type TrackContentRequest struct {
	VariantID string `json:"variant_id" binding:"required"`
	ContentID string `json:"content_id" binding:"required"`
}

// ExperimentVariantResult is one arm in a results response
type ExperimentVariantResult struct {
	ExperimentVariantID string  `json:"experiment_variant_id"`
	VariantID           string  `json:"variant_id"`
	Name                string  `json:"name"`
	Type                string  `json:"type"`
	TotalReach          int64   `json:"total_reach"`
	TotalEngagement     int64   `json:"total_engagement"`
	ContentCount        int     `json:"content_count"`
	AvgEngagementRate   float64 `json:"avg_engagement_rate"`
	MetricValue         float64 `json:"metric_value"`
	WinRate             float64 `json:"win_rate"`
}

// ExperimentResults is the verdict of an experiment at computation time
type ExperimentResults struct {
	ExperimentID  string                    `json:"experiment_id"`
	Name          string                    `json:"name"`
	Status        string                    `json:"status"`
	SuccessMetric string                    `json:"success_metric"`
	Variants      []ExperimentVariantResult `json:"variants"`
	IsSignificant bool                      `json:"is_significant"`
	Reason        string                    `json:"reason"`
	Winner        *ExperimentVariantResult  `json:"winner"`
	ComputedAt    string                    `json:"computed_at"`
}

// ExperimentResponse represents an experiment in API responses
type ExperimentResponse struct {
	ID             string                    `json:"id"`
	OrganizationID string                    `json:"organization_id"`
	PlaybookID     string                    `json:"playbook_id"`
	Name           string                    `json:"name"`
	SuccessMetric  string                    `json:"success_metric"`
	Status         string                    `json:"status"`
	StartDate      *time.Time                `json:"start_date"`
	EndDate        *time.Time                `json:"end_date"`
	WinnerID       *string                   `json:"winner_id"`
	Variants       []ExperimentVariantResult `json:"variants"`
	CreatedAt      string                    `json:"created_at"`
	UpdatedAt      string                    `json:"updated_at"`
}

// ToResponse converts the model into its API shape
func (e *Experiment) ToResponse() *ExperimentResponse {
	variants := make([]ExperimentVariantResult, len(e.Variants))
	for i, v := range e.Variants {
		variants[i] = ExperimentVariantResult{
			ExperimentVariantID: v.ID,
			VariantID:           v.VariantID,
			Name:                v.Variant.Name,
			Type:                string(v.Variant.Type),
			TotalReach:          v.TotalReach,
			TotalEngagement:     v.TotalEngagement,
			ContentCount:        v.ContentCount,
			AvgEngagementRate:   v.AvgEngagementRate,
			WinRate:             v.WinRate,
		}
	}
	return &ExperimentResponse{
		ID:             e.ID,
		OrganizationID: e.OrganizationID,
		PlaybookID:     e.PlaybookID,
		Name:           e.Name,
		SuccessMetric:  string(e.SuccessMetric),
		Status:         string(e.Status),
		StartDate:      e.StartDate,
		EndDate:        e.EndDate,
		WinnerID:       e.WinnerID,
		Variants:       variants,
		CreatedAt:      e.CreatedAt.Format(time.RFC3339),
		UpdatedAt:      e.UpdatedAt.Format(time.RFC3339),
	}
}

package models

import (
	"time"

	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// Recipe is the reusable content pattern of a playbook or variant
type Recipe struct {
	Hooks       []string `json:"hooks"`
	CTAPatterns []string `json:"cta_patterns"`
	Hashtags    []string `json:"hashtags"`
	BestHours   []int    `json:"best_hours"`
	BestDays    []string `json:"best_days"`
}

// Clone returns a deep copy so mutations never alias the source recipe
func (r Recipe) Clone() Recipe {
	return Recipe{
		Hooks:       append([]string(nil), r.Hooks...),
		CTAPatterns: append([]string(nil), r.CTAPatterns...),
		Hashtags:    append([]string(nil), r.Hashtags...),
		BestHours:   append([]int(nil), r.BestHours...),
		BestDays:    append([]string(nil), r.BestDays...),
	}
}

// TopPerformer summarises one of the best content items behind a playbook
type TopPerformer struct {
	ContentID         string  `json:"content_id"`
	ExternalContentID string  `json:"external_content_id"`
	CaptionPrefix     string  `json:"caption_prefix"`
	Reach             int64   `json:"reach"`
	EngagementRate    float64 `json:"engagement_rate"`
}

// Evidence is the statistical backing of a playbook at generation time
type Evidence struct {
	ContentCount   int            `json:"content_count"`
	MedianReach    float64        `json:"median_reach"`
	EngagementRate float64        `json:"engagement_rate"`
	TopPerformers  []TopPerformer `json:"top_performers"`
}

// Playbook is a saved, evidence-backed content pattern for one format
type Playbook struct {
	ID               string                       `json:"id" gorm:"primaryKey;type:uuid"`
	OrganizationID   string                       `json:"organization_id" gorm:"type:uuid;not null;index"`
	GroupID          *string                      `json:"group_id,omitempty" gorm:"type:uuid;index"`
	Name             string                       `json:"name" gorm:"type:varchar(255);not null"`
	Format           ContentType                  `json:"format" gorm:"type:varchar(20);not null;index"`
	Recipe           datatypes.JSONType[Recipe]   `json:"recipe"`
	Evidence         datatypes.JSONType[Evidence] `json:"evidence"`
	ConsistencyScore int                          `json:"consistency_score" gorm:"not null;default:0"`

	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
	DeletedAt gorm.DeletedAt `json:"-" gorm:"index"`

	SourceContents []PlaybookSourceContent `json:"-" gorm:"foreignKey:PlaybookID;references:ID"`
}

// TableName specifies the table name for the Playbook model
func (Playbook) TableName() string {
	return "playbooks"
}

func (p *Playbook) BeforeCreate(tx *gorm.DB) error {
	assignID(&p.ID)
	return nil
}

// PlaybookSourceContent links a playbook to a content item it was built from
type PlaybookSourceContent struct {
	PlaybookID string    `json:"playbook_id" gorm:"primaryKey;type:uuid"`
	ContentID  string    `json:"content_id" gorm:"primaryKey;type:uuid;index"`
	CreatedAt  time.Time `json:"created_at"`
}

// TableName specifies the table name for the PlaybookSourceContent model
func (PlaybookSourceContent) TableName() string {
	return "playbook_source_contents"
}

// GeneratePlaybooksRequest represents the request to generate playbooks
type GeneratePlaybooksRequest struct {
	GroupID         *string  `json:"group_id,omitempty" example:"550e8400-e29b-41d4-a716-446655440020"`
	IntegrationIDs  []string `json:"integration_ids,omitempty"`
	Days            int      `json:"days,omitempty" example:"30"`
	MinContentItems int      `json:"min_content_items,omitempty" example:"3"`
}

// PlaybookResponse represents a playbook in API responses
type PlaybookResponse struct {
	ID               string   `json:"id"`
	OrganizationID   string   `json:"organization_id"`
	GroupID          *string  `json:"group_id,omitempty"`
	Name             string   `json:"name"`
	Format           string   `json:"format"`
	Recipe           Recipe   `json:"recipe"`
	Evidence         Evidence `json:"evidence"`
	ConsistencyScore int      `json:"consistency_score"`
	CreatedAt        string   `json:"created_at"`
	UpdatedAt        string   `json:"updated_at"`
}

// ToResponse converts the model into its API shape
func (p *Playbook) ToResponse() *PlaybookResponse {
	return &PlaybookResponse{
		ID:               p.ID,
		OrganizationID:   p.OrganizationID,
		GroupID:          p.GroupID,
		Name:             p.Name,
		Format:           string(p.Format),
		Recipe:           p.Recipe.Data(),
		Evidence:         p.Evidence.Data(),
		ConsistencyScore: p.ConsistencyScore,
		CreatedAt:        p.CreatedAt.Format(time.RFC3339),
		UpdatedAt:        p.UpdatedAt.Format(time.RFC3339),
	}
}

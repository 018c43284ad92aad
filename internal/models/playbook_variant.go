package models

import (
	"time"

	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// VariantType is the recipe dimension a variant mutates
type VariantType string

const (
	VariantTypeHook    VariantType = "hook"
	VariantTypeTime    VariantType = "time"
	VariantTypeHashtag VariantType = "hashtag"
)

// PlaybookVariant is a single-dimension mutation of a playbook recipe
type PlaybookVariant struct {
	ID          string                     `json:"id" gorm:"primaryKey;type:uuid"`
	PlaybookID  string                     `json:"playbook_id" gorm:"type:uuid;not null;index;uniqueIndex:idx_playbook_variants_key,where:deleted_at IS NULL"`
	Key         string                     `json:"key" gorm:"type:varchar(50);not null;uniqueIndex:idx_playbook_variants_key,where:deleted_at IS NULL"` // mutation rule that produced it
	Name        string                     `json:"name" gorm:"type:varchar(255);not null"`
	Type        VariantType                `json:"type" gorm:"type:varchar(20);not null;index"`
	Recipe      datatypes.JSONType[Recipe] `json:"recipe"`
	Description string                     `json:"description" gorm:"type:text;not null"`

	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
	DeletedAt gorm.DeletedAt `json:"-" gorm:"index"`
}

// TableName specifies the table name for the PlaybookVariant model
func (PlaybookVariant) TableName() string {
	return "playbook_variants"
}

func (v *PlaybookVariant) BeforeCreate(tx *gorm.DB) error {
	assignID(&v.ID)
	return nil
}

// PlaybookVariantResponse represents a variant in API responses
type PlaybookVariantResponse struct {
	ID          string `json:"id"`
	PlaybookID  string `json:"playbook_id"`
	Key         string `json:"key"`
	Name        string `json:"name"`
	Type        string `json:"type"`
	Recipe      Recipe `json:"recipe"`
	Description string `json:"description"`
	CreatedAt   string `json:"created_at"`
}

// ToResponse converts the model into its API shape
func (v *PlaybookVariant) ToResponse() *PlaybookVariantResponse {
	return &PlaybookVariantResponse{
		ID:          v.ID,
		PlaybookID:  v.PlaybookID,
		Key:         v.Key,
		Name:        v.Name,
		Type:        string(v.Type),
		Recipe:      v.Recipe.Data(),
		Description: v.Description,
		CreatedAt:   v.CreatedAt.Format(time.RFC3339),
	}
}

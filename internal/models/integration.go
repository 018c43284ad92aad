package models

import (
	"time"

	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// TrackedIntegration is a connected social channel opted into analytics ingestion
type TrackedIntegration struct {
	ID             string    `json:"id" gorm:"primaryKey;type:uuid"`
	OrganizationID string    `json:"organization_id" gorm:"type:uuid;not null;uniqueIndex:idx_tracked_integrations_org"`
	IntegrationID  string    `json:"integration_id" gorm:"type:uuid;not null;uniqueIndex:idx_tracked_integrations_org"`
	CreatedAt      time.Time `json:"created_at"`
}

// TableName specifies the table name for the TrackedIntegration model
func (TrackedIntegration) TableName() string {
	return "tracked_integrations"
}

func (t *TrackedIntegration) BeforeCreate(tx *gorm.DB) error {
	assignID(&t.ID)
	return nil
}

// IntegrationGroup is a named set of integrations used as an analytics filter
type IntegrationGroup struct {
	ID             string                      `json:"id" gorm:"primaryKey;type:uuid"`
	OrganizationID string                      `json:"organization_id" gorm:"type:uuid;not null;index"`
	Name           string                      `json:"name" gorm:"type:varchar(255);not null"`
	IntegrationIDs datatypes.JSONSlice[string] `json:"integration_ids"`
	CreatedAt      time.Time                   `json:"created_at"`
	UpdatedAt      time.Time                   `json:"updated_at"`
	DeletedAt      gorm.DeletedAt              `json:"-" gorm:"index"`
}

// TableName specifies the table name for the IntegrationGroup model
func (IntegrationGroup) TableName() string {
	return "integration_groups"
}

func (g *IntegrationGroup) BeforeCreate(tx *gorm.DB) error {
	assignID(&g.ID)
	return nil
}

// SetTrackedIntegrationsRequest replaces the tracked integration set
type SetTrackedIntegrationsRequest struct {
	IntegrationIDs []string `json:"integration_ids" binding:"required"`
}

// CreateIntegrationGroupRequest creates a group
type CreateIntegrationGroupRequest struct {
	Name           string   `json:"name" binding:"required,max=255" example:"Brand channels"`
	IntegrationIDs []string `json:"integration_ids" binding:"required,min=1"`
}

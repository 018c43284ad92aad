package models

import (
	"time"

	"gorm.io/gorm"
)

// IngestAPIKey authenticates the ingestion collaborator for one organization.
// Only the bcrypt hash of the secret is stored; Prefix locates the row.
type IngestAPIKey struct {
	ID             string     `json:"id" gorm:"primaryKey;type:uuid"`
	OrganizationID string     `json:"organization_id" gorm:"type:uuid;not null;index"`
	Name           string     `json:"name" gorm:"type:varchar(255);not null"`
	Prefix         string     `json:"prefix" gorm:"type:varchar(16);not null;uniqueIndex"`
	SecretHash     string     `json:"-" gorm:"type:varchar(255);not null"`
	IsActive       bool       `json:"is_active" gorm:"not null;default:true"`
	LastUsedAt     *time.Time `json:"last_used_at"`
	CreatedAt      time.Time  `json:"created_at"`
	UpdatedAt      time.Time  `json:"updated_at"`
}

// TableName specifies the table name for the IngestAPIKey model
func (IngestAPIKey) TableName() string {
	return "ingest_api_keys"
}

func (k *IngestAPIKey) BeforeCreate(tx *gorm.DB) error {
	assignID(&k.ID)
	return nil
}

// CreateAPIKeyRequest creates an ingestion key
type CreateAPIKeyRequest struct {
	Name string `json:"name" binding:"required,max=255" example:"meta-ingestion-worker"`
}

// CreateAPIKeyResponse carries the plaintext key exactly once
type CreateAPIKeyResponse struct {
	ID     string `json:"id"`
	Name   string `json:"name"`
	Key    string `json:"key" example:"a1b2c3d4e5f6a7b8.9f86d081884c7d659a2feaa0c55ad015"`
	Prefix string `json:"prefix"`
}

package models

import (
	"time"

	"gorm.io/gorm"
)

// TagType distinguishes extracted tags from user-created ones
type TagType string

const (
	TagTypeAuto   TagType = "AUTO"
	TagTypeManual TagType = "MANUAL"
)

// Tag labels content. AUTO tags come from caption and hashtag extraction.
type Tag struct {
	ID             string         `json:"id" gorm:"primaryKey;type:uuid"`
	OrganizationID string         `json:"organization_id" gorm:"type:uuid;not null;index;uniqueIndex:idx_tags_name,where:deleted_at IS NULL"`
	Name           string         `json:"name" gorm:"type:varchar(255);not null;uniqueIndex:idx_tags_name,where:deleted_at IS NULL"`
	Type           TagType        `json:"type" gorm:"type:varchar(10);not null;uniqueIndex:idx_tags_name,where:deleted_at IS NULL"`
	CreatedAt      time.Time      `json:"created_at"`
	UpdatedAt      time.Time      `json:"updated_at"`
	DeletedAt      gorm.DeletedAt `json:"-" gorm:"index"`
}

// TableName specifies the table name for the Tag model
func (Tag) TableName() string {
	return "tags"
}

func (t *Tag) BeforeCreate(tx *gorm.DB) error {
	assignID(&t.ID)
	return nil
}

// ContentTag joins Content and Tag
type ContentTag struct {
	ContentID string    `json:"content_id" gorm:"primaryKey;type:uuid"`
	TagID     string    `json:"tag_id" gorm:"primaryKey;type:uuid;index"`
	CreatedAt time.Time `json:"created_at"`
}

// TableName specifies the table name for the ContentTag model
func (ContentTag) TableName() string {
	return "content_tags"
}

// CreateTagRequest creates a MANUAL tag
type CreateTagRequest struct {
	Name string `json:"name" binding:"required,max=255" example:"evergreen"`
}

// AttachTagRequest attaches an existing tag to content
type AttachTagRequest struct {
	TagID string `json:"tag_id" binding:"required"`
}

package models

import (
	"github.com/google/uuid"
)

// assignID fills an empty primary key before insert.
// IDs are generated in Go so inserts behave the same on every dialect.
func assignID(id *string) {
	if *id == "" {
		*id = uuid.NewString()
	}
}

// ContentType is the format of a published content item
type ContentType string

const (
	ContentTypePost  ContentType = "post"
	ContentTypeReel  ContentType = "reel"
	ContentTypeStory ContentType = "story"
)

// Valid reports whether t is a known content format
func (t ContentType) Valid() bool {
	switch t {
	case ContentTypePost, ContentTypeReel, ContentTypeStory:
		return true
	}
	return false
}

// ContentTypes lists formats in the order playbooks are generated
var ContentTypes = []ContentType{ContentTypePost, ContentTypeReel, ContentTypeStory}

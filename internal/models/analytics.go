package models

import "time"

// ContentPerformance is a content item with its metric fold
type ContentPerformance struct {
	ContentID         string      `json:"content_id"`
	IntegrationID     string      `json:"integration_id"`
	ExternalContentID string      `json:"external_content_id"`
	ContentType       ContentType `json:"content_type"`
	Caption           string      `json:"caption"`
	Hashtags          []string    `json:"hashtags"`
	PublishedAt       time.Time   `json:"published_at"`
	TotalReach        int64       `json:"total_reach"`
	TotalEngagement   int64       `json:"total_engagement"`
	EngagementRate    float64     `json:"engagement_rate"`
}

// AnalyticsFilter selects content for aggregation
type AnalyticsFilter struct {
	Days           int
	GroupID        *string
	IntegrationIDs []string
	Format         ContentType
}

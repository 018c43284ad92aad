package services

import (
	"context"
	"strings"

	"github.com/sirupsen/logrus"
	"gorm.io/gorm"

	"github.com/onegreenvn/green-insights-backend/internal/database/repository"
	"github.com/onegreenvn/green-insights-backend/internal/models"
	"github.com/onegreenvn/green-insights-backend/internal/utils"
)

// ContentIngestedEvent is published after content or metrics are stored
type ContentIngestedEvent struct {
	OrganizationID string   `json:"organization_id"`
	ContentIDs     []string `json:"content_ids,omitempty"`
	MetricRows     int      `json:"metric_rows,omitempty"`
}

type ContentService struct {
	db           *gorm.DB
	contents     *repository.ContentRepository
	dailyMetrics *repository.DailyMetricRepository
	tags         *repository.TagRepository
	integrations *repository.IntegrationRepository
	publisher    EventPublisher
	opts         Options
}

func NewContentService(db *gorm.DB, publisher EventPublisher, opts Options) *ContentService {
	return &ContentService{
		db:           db,
		contents:     repository.NewContentRepository(db),
		dailyMetrics: repository.NewDailyMetricRepository(db),
		tags:         repository.NewTagRepository(db),
		integrations: repository.NewIntegrationRepository(db),
		publisher:    publisher,
		opts:         opts,
	}
}

// UpsertContent stores a content item and refreshes its AUTO tags
func (s *ContentService) UpsertContent(ctx context.Context, orgID string, req models.UpsertContentRequest) (*models.Content, error) {
	contentType := models.ContentType(strings.ToLower(strings.TrimSpace(req.ContentType)))
	if !contentType.Valid() {
		return nil, utils.Validation("content_type must be one of post, reel, story")
	}
	if strings.TrimSpace(req.ExternalContentID) == "" {
		return nil, utils.Validation("external_content_id is required")
	}
	if req.PublishedAt.IsZero() {
		return nil, utils.Validation("published_at is required")
	}

	ctx, cancel := s.opts.withTimeout(ctx)
	defer cancel()

	if err := s.requireTracked(ctx, orgID, req.IntegrationID); err != nil {
		return nil, err
	}

	hashtags := make([]string, 0, len(req.Hashtags))
	for _, tag := range req.Hashtags {
		if tag = NormalizeHashtag(tag); tag != "" {
			hashtags = append(hashtags, tag)
		}
	}

	var stored *models.Content
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		contents := s.contents.WithTx(tx)
		tags := s.tags.WithTx(tx)

		var err error
		stored, err = contents.Upsert(ctx, &models.Content{
			OrganizationID:    orgID,
			IntegrationID:     req.IntegrationID,
			ExternalContentID: req.ExternalContentID,
			ContentType:       contentType,
			Caption:           req.Caption,
			Hashtags:          utils.UniqueStrings(hashtags),
			PublishedAt:       req.PublishedAt.UTC(),
		})
		if err != nil {
			return err
		}

		var current []string
		for _, name := range AutoTagNames(stored.Hashtags, stored.Caption) {
			tag, err := tags.FindOrCreate(ctx, orgID, utils.TruncateRunes(name, 255), models.TagTypeAuto)
			if err != nil {
				return err
			}
			if err := tags.Attach(ctx, stored.ID, tag.ID); err != nil {
				return err
			}
			current = append(current, tag.ID)
		}

		// Tags derived from a previous caption no longer describe the content
		_, err = tags.DetachAutoExcept(ctx, stored.ID, current)
		return err
	})
	if err != nil {
		return nil, utils.Unexpected(err, "failed to store content")
	}

	logrus.WithFields(logrus.Fields{
		"organization_id": orgID,
		"content_id":      stored.ID,
		"external_id":     stored.ExternalContentID,
	}).Debug("Content upserted")

	publish(ctx, s.publisher, EventContentIngested, ContentIngestedEvent{OrganizationID: orgID, ContentIDs: []string{stored.ID}})
	return s.GetContent(ctx, orgID, stored.ID)
}

// UpsertDailyMetrics stores a batch of daily counters. Same-day rows are overwritten.
func (s *ContentService) UpsertDailyMetrics(ctx context.Context, orgID string, req models.UpsertDailyMetricsRequest) (int, error) {
	if len(req.Metrics) == 0 {
		return 0, utils.Validation("metrics must not be empty")
	}

	rows := make([]models.DailyMetric, 0, len(req.Metrics))
	integrations := map[string]bool{}
	for i, in := range req.Metrics {
		date, err := utils.ParseDate(in.Date)
		if err != nil {
			return 0, utils.Validation("metrics[%d].date must be YYYY-MM-DD", i)
		}
		if in.Reach < 0 || in.Reactions < 0 || in.Comments < 0 || in.Shares < 0 || in.VideoViews < 0 {
			return 0, utils.Validation("metrics[%d] counters must not be negative", i)
		}
		integrations[in.IntegrationID] = true
		rows = append(rows, models.DailyMetric{
			OrganizationID:    orgID,
			IntegrationID:     in.IntegrationID,
			ExternalContentID: in.ExternalContentID,
			Date:              date,
			Reach:             in.Reach,
			Reactions:         in.Reactions,
			Comments:          in.Comments,
			Shares:            in.Shares,
			VideoViews:        in.VideoViews,
		})
	}

	ctx, cancel := s.opts.withTimeout(ctx)
	defer cancel()

	for integrationID := range integrations {
		if err := s.requireTracked(ctx, orgID, integrationID); err != nil {
			return 0, err
		}
	}

	if err := s.dailyMetrics.UpsertBatch(ctx, rows); err != nil {
		return 0, utils.Unexpected(err, "failed to store daily metrics")
	}

	publish(ctx, s.publisher, EventContentIngested, ContentIngestedEvent{OrganizationID: orgID, MetricRows: len(rows)})
	return len(rows), nil
}

func (s *ContentService) requireTracked(ctx context.Context, orgID, integrationID string) error {
	tracked, err := s.integrations.IsTracked(ctx, orgID, integrationID)
	if err != nil {
		return utils.Unexpected(err, "failed to check integration")
	}
	if !tracked {
		return utils.BusinessRule("integration %s is not tracked", integrationID)
	}
	return nil
}

// GetContent returns a content item with its tags
func (s *ContentService) GetContent(ctx context.Context, orgID, id string) (*models.Content, error) {
	ctx, cancel := s.opts.withTimeout(ctx)
	defer cancel()

	content, err := s.contents.GetByID(ctx, orgID, id)
	if err != nil {
		return nil, utils.Unexpected(err, "failed to load content")
	}
	if content == nil {
		return nil, utils.NotFound("content %s not found", id)
	}
	return content, nil
}

// ListMetrics returns the daily counters of a content item, oldest first
func (s *ContentService) ListMetrics(ctx context.Context, orgID, id string) ([]models.DailyMetric, error) {
	content, err := s.GetContent(ctx, orgID, id)
	if err != nil {
		return nil, err
	}

	ctx, cancel := s.opts.withTimeout(ctx)
	defer cancel()

	metrics, err := s.dailyMetrics.ListForContent(ctx, orgID, content.IntegrationID, content.ExternalContentID)
	if err != nil {
		return nil, utils.Unexpected(err, "failed to load daily metrics")
	}
	return metrics, nil
}

// DeleteContent soft deletes a content item
func (s *ContentService) DeleteContent(ctx context.Context, orgID, id string) error {
	ctx, cancel := s.opts.withTimeout(ctx)
	defer cancel()

	ok, err := s.contents.SoftDelete(ctx, orgID, id)
	if err != nil {
		return utils.Unexpected(err, "failed to delete content")
	}
	if !ok {
		return utils.NotFound("content %s not found", id)
	}
	return nil
}

// ListTags returns the tags of an organization, optionally of one type
func (s *ContentService) ListTags(ctx context.Context, orgID, tagType string) ([]models.Tag, error) {
	t := models.TagType(strings.ToUpper(tagType))
	if t != "" && t != models.TagTypeAuto && t != models.TagTypeManual {
		return nil, utils.Validation("type must be AUTO or MANUAL")
	}

	ctx, cancel := s.opts.withTimeout(ctx)
	defer cancel()

	tags, err := s.tags.List(ctx, orgID, t)
	if err != nil {
		return nil, utils.Unexpected(err, "failed to list tags")
	}
	return tags, nil
}

// CreateTag creates (or returns the existing) MANUAL tag
func (s *ContentService) CreateTag(ctx context.Context, orgID string, req models.CreateTagRequest) (*models.Tag, error) {
	name := strings.TrimSpace(req.Name)
	if name == "" {
		return nil, utils.Validation("name is required")
	}

	ctx, cancel := s.opts.withTimeout(ctx)
	defer cancel()

	tag, err := s.tags.FindOrCreate(ctx, orgID, name, models.TagTypeManual)
	if err != nil {
		return nil, utils.Unexpected(err, "failed to create tag")
	}
	return tag, nil
}

// AttachTag links a tag to a content item. Attaching twice is a no-op.
func (s *ContentService) AttachTag(ctx context.Context, orgID, contentID string, req models.AttachTagRequest) (*models.Content, error) {
	ctx, cancel := s.opts.withTimeout(ctx)
	defer cancel()

	content, err := s.contents.GetByID(ctx, orgID, contentID)
	if err != nil {
		return nil, utils.Unexpected(err, "failed to load content")
	}
	if content == nil {
		return nil, utils.NotFound("content %s not found", contentID)
	}
	tag, err := s.tags.GetByID(ctx, orgID, req.TagID)
	if err != nil {
		return nil, utils.Unexpected(err, "failed to load tag")
	}
	if tag == nil {
		return nil, utils.NotFound("tag %s not found", req.TagID)
	}

	if err := s.tags.Attach(ctx, content.ID, tag.ID); err != nil {
		return nil, utils.Unexpected(err, "failed to attach tag")
	}
	return s.GetContent(ctx, orgID, contentID)
}

// DeleteTag soft deletes a tag
func (s *ContentService) DeleteTag(ctx context.Context, orgID, id string) error {
	ctx, cancel := s.opts.withTimeout(ctx)
	defer cancel()

	ok, err := s.tags.SoftDelete(ctx, orgID, id)
	if err != nil {
		return utils.Unexpected(err, "failed to delete tag")
	}
	if !ok {
		return utils.NotFound("tag %s not found", id)
	}
	return nil
}

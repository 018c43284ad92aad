package services

import (
	"context"
	"fmt"

	"github.com/sirupsen/logrus"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"
	"gorm.io/datatypes"
	"gorm.io/gorm"

	"github.com/onegreenvn/green-insights-backend/internal/config"
	"github.com/onegreenvn/green-insights-backend/internal/database/repository"
	"github.com/onegreenvn/green-insights-backend/internal/models"
	"github.com/onegreenvn/green-insights-backend/internal/monitoring"
	"github.com/onegreenvn/green-insights-backend/internal/utils"
)

// PlaybookGeneratedEvent is published for each new playbook
type PlaybookGeneratedEvent struct {
	OrganizationID   string `json:"organization_id"`
	PlaybookID       string `json:"playbook_id"`
	Format           string `json:"format"`
	ContentCount     int    `json:"content_count"`
	ConsistencyScore int    `json:"consistency_score"`
}

type PlaybookService struct {
	db         *gorm.DB
	playbooks  *repository.PlaybookRepository
	engagement *EngagementService
	cfg        config.AnalyticsConfig
	publisher  EventPublisher
	metrics    *monitoring.Metrics
	opts       Options
}

func NewPlaybookService(db *gorm.DB, engagement *EngagementService, cfg config.AnalyticsConfig, publisher EventPublisher, metrics *monitoring.Metrics, opts Options) *PlaybookService {
	return &PlaybookService{
		db:         db,
		playbooks:  repository.NewPlaybookRepository(db),
		engagement: engagement,
		cfg:        cfg,
		publisher:  publisher,
		metrics:    metrics,
		opts:       opts,
	}
}

// GeneratePlaybooks builds one playbook per format that has at least
// MinContentItems ranked items in the lookback window
func (s *PlaybookService) GeneratePlaybooks(ctx context.Context, orgID string, req models.GeneratePlaybooksRequest) ([]models.Playbook, error) {
	if req.Days == 0 {
		req.Days = s.cfg.DefaultDays
	}
	if req.MinContentItems == 0 {
		req.MinContentItems = s.cfg.DefaultMinItems
	}
	if req.MinContentItems < 1 {
		return nil, utils.Validation("min_content_items must be at least 1")
	}
	if err := s.engagement.ValidateDays(req.Days); err != nil {
		return nil, err
	}

	items, err := s.engagement.AggregateContent(ctx, orgID, models.AnalyticsFilter{
		Days:           req.Days,
		GroupID:        req.GroupID,
		IntegrationIDs: req.IntegrationIDs,
	})
	if err != nil {
		return nil, err
	}
	ranked := RankContent(items)

	byFormat := make(map[models.ContentType][]models.ContentPerformance)
	for _, item := range ranked {
		byFormat[item.ContentType] = append(byFormat[item.ContentType], item)
	}

	var groupID *string
	if req.GroupID != nil && *req.GroupID != "" {
		groupID = req.GroupID
	}

	type draft struct {
		playbook   models.Playbook
		contentIDs []string
	}
	var drafts []draft
	for _, format := range models.ContentTypes {
		formatItems := byFormat[format]
		if len(formatItems) < req.MinContentItems {
			if len(formatItems) > 0 {
				logrus.WithFields(logrus.Fields{
					"organization_id": orgID,
					"format":          format,
					"items":           len(formatItems),
				}).Debug("Skipping format below minimum content items")
			}
			continue
		}

		ids := make([]string, len(formatItems))
		for i, item := range formatItems {
			ids[i] = item.ContentID
		}
		drafts = append(drafts, draft{
			playbook: models.Playbook{
				OrganizationID:   orgID,
				GroupID:          groupID,
				Name:             playbookName(format, req.Days),
				Format:           format,
				Recipe:           datatypes.NewJSONType(BuildRecipe(formatItems, s.cfg.TimeZone)),
				Evidence:         datatypes.NewJSONType(BuildEvidence(formatItems)),
				ConsistencyScore: ConsistencyScore(len(formatItems)),
			},
			contentIDs: ids,
		})
	}

	if len(drafts) == 0 {
		return []models.Playbook{}, nil
	}

	tctx, cancel := s.opts.withTimeout(ctx)
	defer cancel()
	err = s.db.WithContext(tctx).Transaction(func(tx *gorm.DB) error {
		repo := s.playbooks.WithTx(tx)
		for i := range drafts {
			if err := repo.Create(tctx, &drafts[i].playbook, drafts[i].contentIDs); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return nil, utils.Unexpected(err, "failed to save playbooks")
	}

	playbooks := make([]models.Playbook, len(drafts))
	for i, d := range drafts {
		playbooks[i] = d.playbook
		s.metrics.IncPlaybooks(string(d.playbook.Format))
		publish(ctx, s.publisher, EventPlaybookGenerated, PlaybookGeneratedEvent{
			OrganizationID:   orgID,
			PlaybookID:       d.playbook.ID,
			Format:           string(d.playbook.Format),
			ContentCount:     len(d.contentIDs),
			ConsistencyScore: d.playbook.ConsistencyScore,
		})
	}

	logrus.WithFields(logrus.Fields{
		"organization_id": orgID,
		"playbooks":       len(playbooks),
		"ranked_items":    len(ranked),
	}).Info("Generated playbooks")
	return playbooks, nil
}

func playbookName(format models.ContentType, days int) string {
	return fmt.Sprintf("Top %s pattern (last %d days)", cases.Title(language.English).String(string(format)), days)
}

// GetPlaybook returns a playbook owned by orgID
func (s *PlaybookService) GetPlaybook(ctx context.Context, orgID, id string) (*models.Playbook, error) {
	ctx, cancel := s.opts.withTimeout(ctx)
	defer cancel()

	playbook, err := s.playbooks.GetByID(ctx, orgID, id)
	if err != nil {
		return nil, utils.Unexpected(err, "failed to load playbook")
	}
	if playbook == nil {
		return nil, utils.NotFound("playbook %s not found", id)
	}
	return playbook, nil
}

// ListPlaybooks returns a page of playbooks
func (s *PlaybookService) ListPlaybooks(ctx context.Context, orgID string, format models.ContentType, page, pageSize int) ([]models.Playbook, utils.PaginationResponse, error) {
	ctx, cancel := s.opts.withTimeout(ctx)
	defer cancel()

	if format != "" && !format.Valid() {
		return nil, utils.PaginationResponse{}, utils.Validation("unknown format %q", format)
	}
	page, pageSize = utils.ValidateAndNormalizePagination(page, pageSize)
	playbooks, total, err := s.playbooks.List(ctx, orgID, format, pageSize, utils.CalculateOffset(page, pageSize))
	if err != nil {
		return nil, utils.PaginationResponse{}, utils.Unexpected(err, "failed to list playbooks")
	}
	return playbooks, utils.CalculatePaginationInfo(int(total), page, pageSize), nil
}

// PlaybookEvidence is the stored evidence plus the linked source content
type PlaybookEvidence struct {
	PlaybookID       string          `json:"playbook_id"`
	Evidence         models.Evidence `json:"evidence"`
	SourceContentIDs []string        `json:"source_content_ids"`
}

// GetEvidence returns the evidence record of a playbook
func (s *PlaybookService) GetEvidence(ctx context.Context, orgID, id string) (*PlaybookEvidence, error) {
	playbook, err := s.GetPlaybook(ctx, orgID, id)
	if err != nil {
		return nil, err
	}

	ctx, cancel := s.opts.withTimeout(ctx)
	defer cancel()
	ids, err := s.playbooks.SourceContentIDs(ctx, playbook.ID)
	if err != nil {
		return nil, utils.Unexpected(err, "failed to load playbook sources")
	}
	return &PlaybookEvidence{
		PlaybookID:       playbook.ID,
		Evidence:         playbook.Evidence.Data(),
		SourceContentIDs: ids,
	}, nil
}

// DeletePlaybook soft deletes a playbook
func (s *PlaybookService) DeletePlaybook(ctx context.Context, orgID, id string) error {
	ctx, cancel := s.opts.withTimeout(ctx)
	defer cancel()

	deleted, err := s.playbooks.SoftDelete(ctx, orgID, id)
	if err != nil {
		return utils.Unexpected(err, "failed to delete playbook")
	}
	if !deleted {
		return utils.NotFound("playbook %s not found", id)
	}
	return nil
}

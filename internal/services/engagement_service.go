package services

import (
	"context"
	"sort"
	"time"

	"github.com/onegreenvn/green-insights-backend/internal/config"
	"github.com/onegreenvn/green-insights-backend/internal/database/repository"
	"github.com/onegreenvn/green-insights-backend/internal/models"
	"github.com/onegreenvn/green-insights-backend/internal/utils"
)

// EngagementRate is totalEngagement / totalReach * 100, or 0 without reach
func EngagementRate(totalReach, totalEngagement int64) float64 {
	if totalReach <= 0 {
		return 0
	}
	return float64(totalEngagement) / float64(totalReach) * 100
}

// RankContent drops items without reach and orders the rest by engagement
// rate desc, then total reach desc, then content id asc
func RankContent(items []models.ContentPerformance) []models.ContentPerformance {
	ranked := make([]models.ContentPerformance, 0, len(items))
	for _, item := range items {
		if item.TotalReach > 0 {
			ranked = append(ranked, item)
		}
	}
	sort.SliceStable(ranked, func(i, j int) bool {
		a, b := ranked[i], ranked[j]
		if a.EngagementRate != b.EngagementRate {
			return a.EngagementRate > b.EngagementRate
		}
		if a.TotalReach != b.TotalReach {
			return a.TotalReach > b.TotalReach
		}
		return a.ContentID < b.ContentID
	})
	return ranked
}

// EngagementService folds daily metrics into per-content figures
type EngagementService struct {
	contents     *repository.ContentRepository
	integrations *repository.IntegrationRepository
	cfg          config.AnalyticsConfig
	opts         Options
}

func NewEngagementService(contents *repository.ContentRepository, integrations *repository.IntegrationRepository, cfg config.AnalyticsConfig, opts Options) *EngagementService {
	return &EngagementService{
		contents:     contents,
		integrations: integrations,
		cfg:          cfg,
		opts:         opts,
	}
}

// ResolveIntegrations turns group and integration filters into one id set.
// A nil result means no restriction. Both filters intersect when given.
func (s *EngagementService) ResolveIntegrations(ctx context.Context, orgID string, groupID *string, integrationIDs []string) ([]string, error) {
	var resolved []string
	if integrationIDs != nil {
		resolved = utils.UniqueStrings(integrationIDs)
	}

	if groupID == nil || *groupID == "" {
		return resolved, nil
	}

	group, err := s.integrations.GetGroup(ctx, orgID, *groupID)
	if err != nil {
		return nil, utils.Unexpected(err, "failed to load integration group")
	}
	if group == nil {
		return nil, utils.NotFound("integration group %s not found", *groupID)
	}

	members := utils.UniqueStrings(group.IntegrationIDs)
	if resolved == nil {
		return members, nil
	}

	inGroup := make(map[string]struct{}, len(members))
	for _, id := range members {
		inGroup[id] = struct{}{}
	}
	intersection := make([]string, 0, len(resolved))
	for _, id := range resolved {
		if _, ok := inGroup[id]; ok {
			intersection = append(intersection, id)
		}
	}
	return intersection, nil
}

// Window returns the inclusive [now-days, now] range for a lookback
func (s *EngagementService) Window(days int) (time.Time, time.Time) {
	to := s.opts.now()
	return to.AddDate(0, 0, -days), to
}

// ValidateDays checks a lookback against the configured bound
func (s *EngagementService) ValidateDays(days int) error {
	if days < 1 || days > s.cfg.MaxLookbackDays {
		return utils.Validation("days must be between 1 and %d", s.cfg.MaxLookbackDays)
	}
	return nil
}

// AggregateContent returns every content item in the window with its totals
func (s *EngagementService) AggregateContent(ctx context.Context, orgID string, filter models.AnalyticsFilter) ([]models.ContentPerformance, error) {
	ctx, cancel := s.opts.withTimeout(ctx)
	defer cancel()

	if filter.Days == 0 {
		filter.Days = s.cfg.DefaultDays
	}
	if err := s.ValidateDays(filter.Days); err != nil {
		return nil, err
	}
	if filter.Format != "" && !filter.Format.Valid() {
		return nil, utils.Validation("unknown format %q", filter.Format)
	}

	integrationIDs, err := s.ResolveIntegrations(ctx, orgID, filter.GroupID, filter.IntegrationIDs)
	if err != nil {
		return nil, err
	}
	if integrationIDs != nil && len(integrationIDs) == 0 {
		return []models.ContentPerformance{}, nil
	}

	from, to := s.Window(filter.Days)
	contents, err := s.contents.List(ctx, orgID, repository.ContentFilter{
		From:           &from,
		To:             &to,
		IntegrationIDs: integrationIDs,
		Format:         filter.Format,
	})
	if err != nil {
		return nil, utils.Unexpected(err, "failed to load content")
	}

	metricsFrom := utils.TruncateToDay(from)
	return foldContents(ctx, s.contents, contents, &metricsFrom, &to)
}

// TopContent ranks aggregated content and returns at most limit items
func (s *EngagementService) TopContent(ctx context.Context, orgID string, filter models.AnalyticsFilter, limit int) ([]models.ContentPerformance, error) {
	items, err := s.AggregateContent(ctx, orgID, filter)
	if err != nil {
		return nil, err
	}
	ranked := RankContent(items)
	if limit > 0 && len(ranked) > limit {
		ranked = ranked[:limit]
	}
	return ranked, nil
}

// aggregateByIDs folds all metrics of the given content ids, unbounded in time
func aggregateByIDs(ctx context.Context, repo *repository.ContentRepository, orgID string, contentIDs []string) ([]models.ContentPerformance, error) {
	if len(contentIDs) == 0 {
		return []models.ContentPerformance{}, nil
	}
	contents, err := repo.List(ctx, orgID, repository.ContentFilter{ContentIDs: contentIDs})
	if err != nil {
		return nil, utils.Unexpected(err, "failed to load content")
	}
	return foldContents(ctx, repo, contents, nil, nil)
}

func foldContents(ctx context.Context, repo *repository.ContentRepository, contents []models.Content, from, to *time.Time) ([]models.ContentPerformance, error) {
	if len(contents) == 0 {
		return []models.ContentPerformance{}, nil
	}

	ids := make([]string, len(contents))
	for i, c := range contents {
		ids[i] = c.ID
	}
	totals, err := repo.SumMetrics(ctx, ids, from, to)
	if err != nil {
		return nil, utils.Unexpected(err, "failed to aggregate metrics")
	}
	byID := make(map[string]repository.ContentTotals, len(totals))
	for _, t := range totals {
		byID[t.ContentID] = t
	}

	items := make([]models.ContentPerformance, len(contents))
	for i, c := range contents {
		t := byID[c.ID]
		items[i] = models.ContentPerformance{
			ContentID:         c.ID,
			IntegrationID:     c.IntegrationID,
			ExternalContentID: c.ExternalContentID,
			ContentType:       c.ContentType,
			Caption:           c.Caption,
			Hashtags:          append([]string(nil), c.Hashtags...),
			PublishedAt:       c.PublishedAt,
			TotalReach:        t.TotalReach,
			TotalEngagement:   t.TotalEngagement,
			EngagementRate:    EngagementRate(t.TotalReach, t.TotalEngagement),
		}
	}
	return items, nil
}

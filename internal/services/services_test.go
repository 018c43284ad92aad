package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/onegreenvn/green-insights-backend/internal/config"
	"github.com/onegreenvn/green-insights-backend/internal/database/dbtest"
	"github.com/onegreenvn/green-insights-backend/internal/database/repository"
	"github.com/onegreenvn/green-insights-backend/internal/models"
	"github.com/onegreenvn/green-insights-backend/internal/monitoring"
	"github.com/onegreenvn/green-insights-backend/internal/utils"
)

const (
	testOrg          = "11111111-1111-1111-1111-111111111111"
	testIntegration  = "22222222-2222-2222-2222-222222222222"
	otherIntegration = "33333333-3333-3333-3333-333333333333"
)

type recordingPublisher struct {
	mu     sync.Mutex
	events []string
}

func (p *recordingPublisher) Publish(ctx context.Context, event string, payload interface{}) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, event)
	return nil
}

func (p *recordingPublisher) count(event string) int {
	p.mu.Lock()
	defer p.mu.Unlock()
	n := 0
	for _, e := range p.events {
		if e == event {
			n++
		}
	}
	return n
}

type fixture struct {
	now          time.Time
	publisher    *recordingPublisher
	hub          *SSEHub
	metrics      *monitoring.Metrics
	contents     *ContentService
	integrations *IntegrationService
	engagement   *EngagementService
	playbooks    *PlaybookService
	variants     *VariantService
	experiments  *ExperimentService
	alerts       *AlertService
	scheduler    *AlertScheduler
}

func newFixture(t *testing.T) *fixture {
	t.Helper()

	db := dbtest.New(t)
	now := at("2025-02-01T12:00:00Z")
	opts := Options{QueryTimeout: 5 * time.Second, Now: func() time.Time { return now }}
	cfg := config.DefaultAnalytics()
	publisher := &recordingPublisher{}
	hub := NewSSEHub()
	metrics := monitoring.NewMetrics()

	c := NewContainer(db, cfg, publisher, hub, metrics, opts)
	f := &fixture{
		now:          now,
		publisher:    publisher,
		hub:          hub,
		metrics:      metrics,
		contents:     c.Contents,
		integrations: c.Integrations,
		engagement:   c.Engagement,
		playbooks:    c.Playbooks,
		variants:     c.Variants,
		experiments:  c.Experiments,
		alerts:       c.Alerts,
		scheduler:    NewAlertScheduler(db, c.Alerts, time.Hour, 2, metrics),
	}

	_, err := f.integrations.SetTracked(context.Background(), testOrg, models.SetTrackedIntegrationsRequest{
		IntegrationIDs: []string{testIntegration, otherIntegration},
	})
	require.NoError(t, err)
	return f
}

// ingest stores one content item with a single day of metrics
func (f *fixture) ingest(t *testing.T, externalID string, contentType models.ContentType, caption string, published time.Time, reach, engagement int64) *models.Content {
	t.Helper()
	ctx := context.Background()

	content, err := f.contents.UpsertContent(ctx, testOrg, models.UpsertContentRequest{
		IntegrationID:     testIntegration,
		ExternalContentID: externalID,
		ContentType:       string(contentType),
		Caption:           caption,
		PublishedAt:       published,
	})
	require.NoError(t, err)

	_, err = f.contents.UpsertDailyMetrics(ctx, testOrg, models.UpsertDailyMetricsRequest{Metrics: []models.DailyMetricInput{{
		IntegrationID:     testIntegration,
		ExternalContentID: externalID,
		Date:              published.Format(utils.DateLayout),
		Reach:             reach,
		Reactions:         engagement,
	}}})
	require.NoError(t, err)
	return content
}

// metricDays writes a constant reach for every day in [from, from+days)
func (f *fixture) metricDays(t *testing.T, integrationID string, from time.Time, days int, reach int64) {
	t.Helper()
	rows := make([]models.DailyMetricInput, days)
	for i := range rows {
		rows[i] = models.DailyMetricInput{
			IntegrationID:     integrationID,
			ExternalContentID: "daily",
			Date:              from.AddDate(0, 0, i).Format(utils.DateLayout),
			Reach:             reach,
		}
	}
	_, err := f.contents.UpsertDailyMetrics(context.Background(), testOrg, models.UpsertDailyMetricsRequest{Metrics: rows})
	require.NoError(t, err)
}

func (f *fixture) postPlaybook(t *testing.T) *models.Playbook {
	t.Helper()
	f.ingest(t, "post-1", models.ContentTypePost, "Plan your week. Save this", at("2025-01-20T18:00:00Z"), 1000, 100)
	f.ingest(t, "post-2", models.ContentTypePost, "Batch your errands. Link in bio", at("2025-01-21T18:00:00Z"), 800, 40)
	f.ingest(t, "post-3", models.ContentTypePost, "Morning pages work. Comment below", at("2025-01-22T09:00:00Z"), 500, 10)

	playbooks, err := f.playbooks.GeneratePlaybooks(context.Background(), testOrg, models.GeneratePlaybooksRequest{Days: 30, MinContentItems: 3})
	require.NoError(t, err)
	require.Len(t, playbooks, 1)
	return &playbooks[0]
}

func TestGeneratePlaybooksPerFormat(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.ingest(t, "reel-1", models.ContentTypeReel, "Reel one", at("2025-01-23T10:00:00Z"), 900, 90)
	f.ingest(t, "reel-2", models.ContentTypeReel, "Reel two", at("2025-01-24T10:00:00Z"), 900, 90)

	playbook := f.postPlaybook(t)

	assert.Equal(t, models.ContentTypePost, playbook.Format)
	assert.Equal(t, 85, playbook.ConsistencyScore)
	assert.Equal(t, "Top Post pattern (last 30 days)", playbook.Name)
	evidence := playbook.Evidence.Data()
	assert.Equal(t, 3, evidence.ContentCount)
	assert.Equal(t, []string{"Plan your week", "Batch your errands", "Morning pages work"}, playbook.Recipe.Data().Hooks)

	stored, err := f.playbooks.GetEvidence(ctx, testOrg, playbook.ID)
	require.NoError(t, err)
	assert.Len(t, stored.SourceContentIDs, 3)
	assert.Equal(t, 1, f.publisher.count(EventPlaybookGenerated))

	list, page, err := f.playbooks.ListPlaybooks(ctx, testOrg, "", 1, 20)
	require.NoError(t, err)
	assert.Len(t, list, 1)
	assert.Equal(t, 1, page.Total)
}

func TestGeneratePlaybooksValidation(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	_, err := f.playbooks.GeneratePlaybooks(ctx, testOrg, models.GeneratePlaybooksRequest{Days: 400})
	assert.True(t, errors.Is(err, utils.ErrValidation))

	_, err = f.playbooks.GeneratePlaybooks(ctx, testOrg, models.GeneratePlaybooksRequest{MinContentItems: -1})
	assert.True(t, errors.Is(err, utils.ErrValidation))

	missing := "44444444-4444-4444-4444-444444444444"
	_, err = f.playbooks.GeneratePlaybooks(ctx, testOrg, models.GeneratePlaybooksRequest{GroupID: &missing})
	assert.True(t, errors.Is(err, utils.ErrNotFound))

	playbooks, err := f.playbooks.GeneratePlaybooks(ctx, testOrg, models.GeneratePlaybooksRequest{})
	require.NoError(t, err)
	assert.Empty(t, playbooks)
}

func TestGroupFilterIntersectsIntegrations(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	group, err := f.integrations.CreateGroup(ctx, testOrg, models.CreateIntegrationGroupRequest{
		Name: "Brand", IntegrationIDs: []string{testIntegration},
	})
	require.NoError(t, err)

	ids, err := f.engagement.ResolveIntegrations(ctx, testOrg, &group.ID, []string{testIntegration, otherIntegration})
	require.NoError(t, err)
	assert.Equal(t, []string{testIntegration}, ids)

	ids, err = f.engagement.ResolveIntegrations(ctx, testOrg, &group.ID, []string{otherIntegration})
	require.NoError(t, err)
	assert.Empty(t, ids)

	ids, err = f.engagement.ResolveIntegrations(ctx, testOrg, nil, nil)
	require.NoError(t, err)
	assert.Nil(t, ids)
}

func TestTopContentExcludesZeroReach(t *testing.T) {
	f := newFixture(t)
	f.ingest(t, "a", models.ContentTypePost, "A", at("2025-01-20T10:00:00Z"), 100, 10)
	f.ingest(t, "b", models.ContentTypePost, "B", at("2025-01-21T10:00:00Z"), 0, 0)
	f.ingest(t, "c", models.ContentTypeReel, "C", at("2025-01-22T10:00:00Z"), 100, 30)

	top, err := f.engagement.TopContent(context.Background(), testOrg, models.AnalyticsFilter{Days: 30}, 10)
	require.NoError(t, err)
	require.Len(t, top, 2)
	assert.Equal(t, "c", top[0].ExternalContentID)
	assert.InDelta(t, 30.0, top[0].EngagementRate, 1e-9)
}

func TestUpsertContentRequiresTrackedIntegration(t *testing.T) {
	f := newFixture(t)

	_, err := f.contents.UpsertContent(context.Background(), testOrg, models.UpsertContentRequest{
		IntegrationID:     "55555555-5555-5555-5555-555555555555",
		ExternalContentID: "x",
		ContentType:       "post",
		PublishedAt:       f.now,
	})
	assert.True(t, errors.Is(err, utils.ErrBusinessRule))

	_, err = f.contents.UpsertContent(context.Background(), testOrg, models.UpsertContentRequest{
		IntegrationID:     testIntegration,
		ExternalContentID: "x",
		ContentType:       "carousel",
		PublishedAt:       f.now,
	})
	assert.True(t, errors.Is(err, utils.ErrValidation))
}

func TestUpsertContentAttachesAutoTags(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	content, err := f.contents.UpsertContent(ctx, testOrg, models.UpsertContentRequest{
		IntegrationID:     testIntegration,
		ExternalContentID: "tagged",
		ContentType:       "Post",
		Caption:           "Weekly planning template for planning nerds #Productivity",
		Hashtags:          []string{"#Planning"},
		PublishedAt:       f.now,
	})
	require.NoError(t, err)

	names := make([]string, len(content.Tags))
	for i, tag := range content.Tags {
		names[i] = tag.Name
		assert.Equal(t, models.TagTypeAuto, tag.Type)
	}
	assert.ElementsMatch(t, []string{"planning", "productivity", "weekly", "template", "nerds"}, names)

	manual, err := f.contents.CreateTag(ctx, testOrg, models.CreateTagRequest{Name: "evergreen"})
	require.NoError(t, err)
	tagged, err := f.contents.AttachTag(ctx, testOrg, content.ID, models.AttachTagRequest{TagID: manual.ID})
	require.NoError(t, err)
	assert.Len(t, tagged.Tags, 6)

	again, err := f.contents.AttachTag(ctx, testOrg, content.ID, models.AttachTagRequest{TagID: manual.ID})
	require.NoError(t, err)
	assert.Len(t, again.Tags, 6)
}

func TestUpsertContentRefreshesAutoTags(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	request := models.UpsertContentRequest{
		IntegrationID:     testIntegration,
		ExternalContentID: "retitled",
		ContentType:       "Post",
		Caption:           "Kitchen remodel tips #kitchen",
		PublishedAt:       f.now,
	}

	content, err := f.contents.UpsertContent(ctx, testOrg, request)
	require.NoError(t, err)
	manual, err := f.contents.CreateTag(ctx, testOrg, models.CreateTagRequest{Name: "client-favourite"})
	require.NoError(t, err)
	_, err = f.contents.AttachTag(ctx, testOrg, content.ID, models.AttachTagRequest{TagID: manual.ID})
	require.NoError(t, err)

	request.Caption = "Garden planting guide #garden"
	updated, err := f.contents.UpsertContent(ctx, testOrg, request)
	require.NoError(t, err)
	assert.Equal(t, content.ID, updated.ID)

	var auto []string
	var manuals []string
	for _, tag := range updated.Tags {
		if tag.Type == models.TagTypeAuto {
			auto = append(auto, tag.Name)
		} else {
			manuals = append(manuals, tag.Name)
		}
	}
	assert.ElementsMatch(t, []string{"garden", "planting", "guide"}, auto)
	assert.Equal(t, []string{"client-favourite"}, manuals)
}

func TestGenerateVariantsIsIdempotent(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	playbook := f.postPlaybook(t)

	first, changes, err := f.variants.GenerateVariants(ctx, testOrg, playbook.ID)
	require.NoError(t, err)
	require.Len(t, first, 5)
	assert.Equal(t, VariantChanges{Inserted: 5}, changes)
	assert.Equal(t, RuleHookStatement, first[0].Key)

	second, changes, err := f.variants.GenerateVariants(ctx, testOrg, playbook.ID)
	require.NoError(t, err)
	require.Len(t, second, 5)
	assert.Equal(t, VariantChanges{Kept: 5}, changes)
	for i := range first {
		assert.Equal(t, first[i].ID, second[i].ID)
	}

	require.NoError(t, f.variants.DeleteVariant(ctx, testOrg, playbook.ID, first[4].ID))
	third, changes, err := f.variants.GenerateVariants(ctx, testOrg, playbook.ID)
	require.NoError(t, err)
	assert.Len(t, third, 5)
	assert.Equal(t, 1, changes.Inserted)
}

// experimentFixture builds a playbook, its variants and an active experiment
// with ten tracked items: five strong for the first arm, five weak for the second
func experimentFixture(t *testing.T, f *fixture, strong, weak int) (*models.Experiment, []models.PlaybookVariant, *models.Playbook) {
	t.Helper()
	ctx := context.Background()
	playbook := f.postPlaybook(t)
	variants, _, err := f.variants.GenerateVariants(ctx, testOrg, playbook.ID)
	require.NoError(t, err)

	experiment, err := f.experiments.CreateExperiment(ctx, testOrg, models.CreateExperimentRequest{
		PlaybookID:    playbook.ID,
		Name:          "Hook test",
		SuccessMetric: string(models.SuccessMetricEngagement),
		VariantIDs:    []string{variants[0].ID, variants[1].ID},
	})
	require.NoError(t, err)
	assert.Equal(t, models.ExperimentStatusDraft, experiment.Status)

	_, err = f.experiments.StartExperiment(ctx, testOrg, experiment.ID)
	require.NoError(t, err)

	for i := 0; i < strong; i++ {
		c := f.ingest(t, fmt.Sprintf("a-%d", i), models.ContentTypeReel, "A", at("2025-01-25T10:00:00Z"), 100, 20)
		_, err := f.experiments.TrackContent(ctx, testOrg, experiment.ID, models.TrackContentRequest{VariantID: variants[0].ID, ContentID: c.ID})
		require.NoError(t, err)
	}
	for i := 0; i < weak; i++ {
		c := f.ingest(t, fmt.Sprintf("b-%d", i), models.ContentTypeReel, "B", at("2025-01-25T10:00:00Z"), 100, 5)
		_, err := f.experiments.TrackContent(ctx, testOrg, experiment.ID, models.TrackContentRequest{VariantID: variants[1].ID, ContentID: c.ID})
		require.NoError(t, err)
	}
	return experiment, variants, playbook
}

func TestRegenerateVariantsKeepsTestedRecipes(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	experiment, variants, playbook := experimentFixture(t, f, 5, 5)

	_, err := f.experiments.ConfirmWinner(ctx, testOrg, experiment.ID)
	require.NoError(t, err)

	regenerated, changes, err := f.variants.GenerateVariants(ctx, testOrg, playbook.ID)
	require.NoError(t, err)
	require.Len(t, regenerated, 5)
	assert.Zero(t, changes.Inserted)
	assert.Zero(t, changes.Deleted)
	assert.Equal(t, 5, changes.Kept+changes.Replaced)
	assert.Positive(t, changes.Replaced)

	before := make(map[string]models.PlaybookVariant, len(variants))
	for _, v := range variants {
		before[v.ID] = v
	}
	fresh := 0
	for _, v := range regenerated {
		old, kept := before[v.ID]
		if !kept {
			fresh++
			continue
		}
		assert.Equal(t, old.Recipe.Data(), v.Recipe.Data(), "kept variant %s changed recipe", v.Key)
	}
	assert.Equal(t, changes.Replaced, fresh)

	loaded, err := f.experiments.GetExperiment(ctx, testOrg, experiment.ID)
	require.NoError(t, err)
	require.Len(t, loaded.Variants, 2)
	for _, a := range loaded.Variants {
		original, ok := before[a.VariantID]
		require.True(t, ok)
		assert.Equal(t, original.ID, a.Variant.ID)
		assert.Equal(t, original.Recipe.Data(), a.Variant.Recipe.Data())
	}
}

func TestExperimentLifecycle(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	experiment, variants, playbook := experimentFixture(t, f, 5, 5)

	results, err := f.experiments.GetResults(ctx, testOrg, experiment.ID)
	require.NoError(t, err)
	require.Len(t, results.Variants, 2)
	assert.True(t, results.IsSignificant)
	require.NotNil(t, results.Winner)
	assert.Equal(t, variants[0].ID, results.Winner.VariantID)
	strong, weak := arm(t, results, variants[0].ID), arm(t, results, variants[1].ID)
	assert.InDelta(t, 80.0, strong.WinRate, 1e-9)
	assert.InDelta(t, 20.0, weak.WinRate, 1e-9)
	assert.Equal(t, 5, strong.ContentCount)
	assert.Equal(t, int64(500), strong.TotalReach)
	assert.InDelta(t, 5.0, weak.AvgEngagementRate, 1e-9)

	confirmation, err := f.experiments.ConfirmWinner(ctx, testOrg, experiment.ID)
	require.NoError(t, err)
	assert.Equal(t, playbook.ConsistencyScore+5, confirmation.Playbook.ConsistencyScore)
	assert.Equal(t, variants[0].Recipe.Data(), confirmation.Playbook.Recipe.Data())
	require.NotNil(t, confirmation.Experiment.WinnerID)
	assert.Equal(t, variants[0].ID, *confirmation.Experiment.WinnerID)

	_, err = f.experiments.ConfirmWinner(ctx, testOrg, experiment.ID)
	assert.True(t, errors.Is(err, utils.ErrBusinessRule))

	completed, err := f.experiments.CompleteExperiment(ctx, testOrg, experiment.ID)
	require.NoError(t, err)
	assert.Equal(t, models.ExperimentStatusCompleted, completed.Status)
	assert.NotNil(t, completed.EndDate)
	assert.Equal(t, 1, f.publisher.count(EventExperimentWinner))
}

func TestTrackContentIsIdempotentPerPair(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	experiment, variants, _ := experimentFixture(t, f, 1, 0)

	loaded, err := f.experiments.GetExperiment(ctx, testOrg, experiment.ID)
	require.NoError(t, err)
	tracked, err := f.contents.GetContent(ctx, testOrg, f.contentID(t, "a-0"))
	require.NoError(t, err)

	results, err := f.experiments.TrackContent(ctx, testOrg, loaded.ID, models.TrackContentRequest{VariantID: variants[0].ID, ContentID: tracked.ID})
	require.NoError(t, err)
	assert.Equal(t, 1, arm(t, results, variants[0].ID).ContentCount)

	_, err = f.experiments.TrackContent(ctx, testOrg, loaded.ID, models.TrackContentRequest{VariantID: variants[1].ID, ContentID: tracked.ID})
	assert.True(t, errors.Is(err, utils.ErrBusinessRule))

	_, err = f.experiments.TrackContent(ctx, testOrg, loaded.ID, models.TrackContentRequest{VariantID: variants[2].ID, ContentID: tracked.ID})
	assert.True(t, errors.Is(err, utils.ErrValidation))
}

func arm(t *testing.T, results *models.ExperimentResults, variantID string) models.ExperimentVariantResult {
	t.Helper()
	for _, v := range results.Variants {
		if v.VariantID == variantID {
			return v
		}
	}
	t.Fatalf("variant %s not in results", variantID)
	return models.ExperimentVariantResult{}
}

func (f *fixture) contentID(t *testing.T, externalID string) string {
	t.Helper()
	content, err := f.contents.contents.GetByExternalID(context.Background(), testOrg, testIntegration, externalID)
	require.NoError(t, err)
	require.NotNil(t, content)
	return content.ID
}

func TestConfirmWinnerRequiresSignificance(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	experiment, _, _ := experimentFixture(t, f, 5, 4)

	results, err := f.experiments.GetResults(ctx, testOrg, experiment.ID)
	require.NoError(t, err)
	assert.False(t, results.IsSignificant)
	assert.Nil(t, results.Winner)
	assert.Contains(t, results.Reason, "at least 5")

	_, err = f.experiments.ConfirmWinner(ctx, testOrg, experiment.ID)
	assert.True(t, errors.Is(err, utils.ErrBusinessRule))
}

func TestExperimentTransitions(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	playbook := f.postPlaybook(t)
	variants, _, err := f.variants.GenerateVariants(ctx, testOrg, playbook.ID)
	require.NoError(t, err)

	_, err = f.experiments.CreateExperiment(ctx, testOrg, models.CreateExperimentRequest{
		PlaybookID: playbook.ID, Name: "Too few", SuccessMetric: "reach", VariantIDs: []string{variants[0].ID},
	})
	assert.True(t, errors.Is(err, utils.ErrValidation))

	_, err = f.experiments.CreateExperiment(ctx, testOrg, models.CreateExperimentRequest{
		PlaybookID: playbook.ID, Name: "Too many", SuccessMetric: "reach",
		VariantIDs: []string{variants[0].ID, variants[1].ID, variants[2].ID, variants[3].ID},
	})
	assert.True(t, errors.Is(err, utils.ErrValidation))

	_, err = f.experiments.CreateExperiment(ctx, testOrg, models.CreateExperimentRequest{
		PlaybookID: playbook.ID, Name: "Duplicate", SuccessMetric: "reach", VariantIDs: []string{variants[0].ID, variants[0].ID},
	})
	assert.True(t, errors.Is(err, utils.ErrValidation))

	experiment, err := f.experiments.CreateExperiment(ctx, testOrg, models.CreateExperimentRequest{
		PlaybookID: playbook.ID, Name: "Times", SuccessMetric: "combined", VariantIDs: []string{variants[2].ID, variants[3].ID, variants[4].ID},
	})
	require.NoError(t, err)
	assert.Len(t, experiment.Variants, 3)

	_, err = f.experiments.CompleteExperiment(ctx, testOrg, experiment.ID)
	assert.True(t, errors.Is(err, utils.ErrBusinessRule))

	started, err := f.experiments.StartExperiment(ctx, testOrg, experiment.ID)
	require.NoError(t, err)
	assert.Equal(t, models.ExperimentStatusActive, started.Status)
	require.NotNil(t, started.StartDate)

	_, err = f.experiments.StartExperiment(ctx, testOrg, experiment.ID)
	assert.True(t, errors.Is(err, utils.ErrBusinessRule))

	require.NoError(t, f.experiments.DeleteExperiment(ctx, testOrg, experiment.ID))
	_, err = f.experiments.GetExperiment(ctx, testOrg, experiment.ID)
	assert.True(t, errors.Is(err, utils.ErrNotFound))
}

func TestKPIDropAlertIsRaisedOnce(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	clientChan := f.hub.RegisterClient(testOrg)
	defer f.hub.UnregisterClient(testOrg, clientChan)

	// previous window 2025-01-18..24, current window 2025-01-25..31
	f.metricDays(t, testIntegration, at("2025-01-18T00:00:00Z"), 7, 1000)
	f.metricDays(t, testIntegration, at("2025-01-25T00:00:00Z"), 7, 450)

	alerts, err := f.alerts.ProcessKPIDropAlerts(ctx, testOrg)
	require.NoError(t, err)
	require.Len(t, alerts, 1)
	alert := alerts[0]
	assert.Equal(t, models.MetricReach, alert.Metric)
	assert.Equal(t, models.AlertSeverityCritical, alert.Severity)
	assert.Equal(t, models.AlertTypeKPIDrop, alert.Type)
	assert.Equal(t, testIntegration, alert.IntegrationID)
	assert.InDelta(t, -55.0, alert.ChangePercent, 1e-9)
	assert.InDelta(t, 1000.0, alert.PreviousValue, 1e-9)
	assert.InDelta(t, 450.0, alert.CurrentValue, 1e-9)

	select {
	case msg := <-clientChan:
		assert.True(t, strings.HasPrefix(string(msg), "event: alert\n"))
	default:
		t.Fatal("expected an SSE message")
	}

	again, err := f.alerts.ProcessKPIDropAlerts(ctx, testOrg)
	require.NoError(t, err)
	assert.Empty(t, again)
	assert.Equal(t, 1, f.publisher.count(EventAlertCreated))

	list, page, err := f.alerts.ListAlerts(ctx, testOrg, repository.AlertFilter{UnreadOnly: true}, 1, 20)
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, 1, page.Total)

	require.NoError(t, f.alerts.MarkRead(ctx, testOrg, list[0].ID))
	unread, _, err := f.alerts.ListAlerts(ctx, testOrg, repository.AlertFilter{UnreadOnly: true}, 1, 20)
	require.NoError(t, err)
	assert.Empty(t, unread)
}

func TestKPIDropRespectsConfig(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.metricDays(t, testIntegration, at("2025-01-18T00:00:00Z"), 7, 1000)
	f.metricDays(t, testIntegration, at("2025-01-25T00:00:00Z"), 7, 750)

	disabled := false
	_, err := f.alerts.UpdateConfig(ctx, testOrg, models.UpdateAlertConfigRequest{Metric: models.MetricReach, Enabled: &disabled})
	require.NoError(t, err)

	alerts, err := f.alerts.ProcessKPIDropAlerts(ctx, testOrg)
	require.NoError(t, err)
	assert.Empty(t, alerts)

	enabled := true
	threshold := 30.0
	_, err = f.alerts.UpdateConfig(ctx, testOrg, models.UpdateAlertConfigRequest{Metric: models.MetricReach, Enabled: &enabled, Threshold: &threshold})
	require.NoError(t, err)

	// a 25% drop is below the configured 30% floor
	alerts, err = f.alerts.ProcessKPIDropAlerts(ctx, testOrg)
	require.NoError(t, err)
	assert.Empty(t, alerts)

	bad := 0.0
	_, err = f.alerts.UpdateConfig(ctx, testOrg, models.UpdateAlertConfigRequest{Metric: models.MetricReach, Threshold: &bad})
	assert.True(t, errors.Is(err, utils.ErrValidation))
	_, err = f.alerts.UpdateConfig(ctx, testOrg, models.UpdateAlertConfigRequest{Metric: "likes"})
	assert.True(t, errors.Is(err, utils.ErrValidation))
}

func TestViralSpikeViaScheduler(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.metricDays(t, otherIntegration, at("2025-01-30T00:00:00Z"), 1, 100)
	f.metricDays(t, otherIntegration, at("2025-01-31T00:00:00Z"), 1, 500)

	require.NoError(t, f.scheduler.RunOnce(ctx))

	list, _, err := f.alerts.ListAlerts(ctx, testOrg, repository.AlertFilter{Type: models.AlertTypeViralSpike}, 1, 20)
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, models.AlertSeverityCritical, list[0].Severity)
	assert.Equal(t, otherIntegration, list[0].IntegrationID)
	assert.InDelta(t, 400.0, list[0].ChangePercent, 1e-9)

	n, err := f.alerts.MarkAllRead(ctx, testOrg)
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)
}

func TestNoAlertWithoutBaseline(t *testing.T) {
	f := newFixture(t)
	f.metricDays(t, testIntegration, at("2025-01-25T00:00:00Z"), 7, 450)

	alerts, err := f.alerts.ProcessKPIDropAlerts(context.Background(), testOrg)
	require.NoError(t, err)
	assert.Empty(t, alerts)
}

package services

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/onegreenvn/green-insights-backend/internal/models"
	"github.com/onegreenvn/green-insights-backend/internal/utils"
)

func TestHandleJob(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	consumer := NewJobConsumer(nil, f.contents, f.playbooks, f.alerts, f.metrics)

	content := `{"type":"content","organization_id":"` + testOrg + `","content":{
		"integration_id":"` + testIntegration + `","external_content_id":"job-1",
		"content_type":"reel","caption":"From the queue","published_at":"2025-01-30T10:00:00Z"}}`
	require.NoError(t, consumer.HandleJob(ctx, []byte(content)))

	metrics := `{"type":"metrics","organization_id":"` + testOrg + `","metrics":[
		{"integration_id":"` + testIntegration + `","external_content_id":"job-1","date":"2025-01-30","reach":120,"reactions":12}]}`
	require.NoError(t, consumer.HandleJob(ctx, []byte(metrics)))

	top, err := f.engagement.TopContent(ctx, testOrg, models.AnalyticsFilter{Days: 30}, 5)
	require.NoError(t, err)
	require.Len(t, top, 1)
	assert.Equal(t, "job-1", top[0].ExternalContentID)
	assert.InDelta(t, 10.0, top[0].EngagementRate, 1e-9)

	require.NoError(t, consumer.HandleJob(ctx, []byte(`{"type":"generate_playbooks","organization_id":"`+testOrg+`","playbooks":{"min_content_items":1}}`)))
	list, _, err := f.playbooks.ListPlaybooks(ctx, testOrg, "", 1, 20)
	require.NoError(t, err)
	assert.Len(t, list, 1)

	require.NoError(t, consumer.HandleJob(ctx, []byte(`{"type":"check_alerts","organization_id":"`+testOrg+`"}`)))
	require.NoError(t, consumer.HandleJob(ctx, []byte(`{"type":"check_viral","organization_id":"`+testOrg+`"}`)))
}

func TestHandleJobRejectsBadMessages(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	consumer := NewJobConsumer(nil, f.contents, f.playbooks, f.alerts, f.metrics)

	err := consumer.HandleJob(ctx, []byte(`not json`))
	assert.True(t, errors.Is(err, utils.ErrValidation))

	err = consumer.HandleJob(ctx, []byte(`{"type":"content"}`))
	assert.True(t, errors.Is(err, utils.ErrValidation))

	err = consumer.HandleJob(ctx, []byte(`{"type":"reindex","organization_id":"`+testOrg+`"}`))
	assert.True(t, errors.Is(err, utils.ErrValidation))

	err = consumer.HandleJob(ctx, []byte(`{"type":"content","organization_id":"`+testOrg+`"}`))
	assert.True(t, errors.Is(err, utils.ErrValidation))
}

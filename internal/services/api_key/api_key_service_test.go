package api_key

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/onegreenvn/green-insights-backend/internal/database/dbtest"
	"github.com/onegreenvn/green-insights-backend/internal/models"
	"github.com/onegreenvn/green-insights-backend/internal/utils"
)

const orgID = "11111111-1111-1111-1111-111111111111"

func TestGenerateAndValidateAPIKey(t *testing.T) {
	ctx := context.Background()
	service := NewService(dbtest.New(t))

	created, err := service.GenerateAPIKey(ctx, orgID, models.CreateAPIKeyRequest{Name: "worker"})
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(created.Key, created.Prefix+"."))

	key, err := service.ValidateAPIKey(ctx, created.Key)
	require.NoError(t, err)
	assert.Equal(t, orgID, key.OrganizationID)

	_, err = service.ValidateAPIKey(ctx, created.Prefix+".wrong")
	assert.ErrorIs(t, err, ErrInvalidAPIKey)
	_, err = service.ValidateAPIKey(ctx, "no-separator")
	assert.ErrorIs(t, err, ErrInvalidAPIKey)

	keys, err := service.ListAPIKeys(ctx, orgID)
	require.NoError(t, err)
	require.Len(t, keys, 1)
	assert.NotNil(t, keys[0].LastUsedAt)

	require.NoError(t, service.DeleteAPIKey(ctx, orgID, created.ID))
	_, err = service.ValidateAPIKey(ctx, created.Key)
	assert.ErrorIs(t, err, ErrInvalidAPIKey)

	err = service.DeleteAPIKey(ctx, orgID, created.ID)
	assert.True(t, errors.Is(err, utils.ErrNotFound))
}

func TestGenerateAPIKeyRequiresName(t *testing.T) {
	_, err := NewService(dbtest.New(t)).GenerateAPIKey(context.Background(), orgID, models.CreateAPIKeyRequest{Name: "  "})
	assert.True(t, errors.Is(err, utils.ErrValidation))
}

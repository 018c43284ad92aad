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

type IntegrationService struct {
	db           *gorm.DB
	integrations *repository.IntegrationRepository
	opts         Options
}

func NewIntegrationService(db *gorm.DB, opts Options) *IntegrationService {
	return &IntegrationService{
		db:           db,
		integrations: repository.NewIntegrationRepository(db),
		opts:         opts,
	}
}

// ListTracked returns the tracked integration ids
func (s *IntegrationService) ListTracked(ctx context.Context, orgID string) ([]string, error) {
	ctx, cancel := s.opts.withTimeout(ctx)
	defer cancel()

	ids, err := s.integrations.ListTracked(ctx, orgID)
	if err != nil {
		return nil, utils.Unexpected(err, "failed to list tracked integrations")
	}
	return ids, nil
}

// SetTracked replaces the tracked set in one transaction
func (s *IntegrationService) SetTracked(ctx context.Context, orgID string, req models.SetTrackedIntegrationsRequest) ([]string, error) {
	ids := cleanIDs(req.IntegrationIDs)

	ctx, cancel := s.opts.withTimeout(ctx)
	defer cancel()

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return s.integrations.WithTx(tx).ReplaceTracked(ctx, orgID, ids)
	})
	if err != nil {
		return nil, utils.Unexpected(err, "failed to replace tracked integrations")
	}

	logrus.WithFields(logrus.Fields{
		"organization_id": orgID,
		"integrations":    len(ids),
	}).Info("Tracked integrations replaced")
	return s.integrations.ListTracked(ctx, orgID)
}

// ListGroups returns the integration groups
func (s *IntegrationService) ListGroups(ctx context.Context, orgID string) ([]models.IntegrationGroup, error) {
	ctx, cancel := s.opts.withTimeout(ctx)
	defer cancel()

	groups, err := s.integrations.ListGroups(ctx, orgID)
	if err != nil {
		return nil, utils.Unexpected(err, "failed to list groups")
	}
	return groups, nil
}

// CreateGroup stores a named integration set
func (s *IntegrationService) CreateGroup(ctx context.Context, orgID string, req models.CreateIntegrationGroupRequest) (*models.IntegrationGroup, error) {
	name := strings.TrimSpace(req.Name)
	if name == "" {
		return nil, utils.Validation("name is required")
	}
	ids := cleanIDs(req.IntegrationIDs)
	if len(ids) == 0 {
		return nil, utils.Validation("integration_ids must not be empty")
	}

	ctx, cancel := s.opts.withTimeout(ctx)
	defer cancel()

	group := &models.IntegrationGroup{OrganizationID: orgID, Name: name, IntegrationIDs: ids}
	if err := s.integrations.CreateGroup(ctx, group); err != nil {
		return nil, utils.Unexpected(err, "failed to create group")
	}
	return group, nil
}

// DeleteGroup soft deletes a group
func (s *IntegrationService) DeleteGroup(ctx context.Context, orgID, id string) error {
	ctx, cancel := s.opts.withTimeout(ctx)
	defer cancel()

	ok, err := s.integrations.DeleteGroup(ctx, orgID, id)
	if err != nil {
		return utils.Unexpected(err, "failed to delete group")
	}
	if !ok {
		return utils.NotFound("group %s not found", id)
	}
	return nil
}

func cleanIDs(ids []string) []string {
	out := make([]string, 0, len(ids))
	for _, id := range ids {
		if id = strings.TrimSpace(id); id != "" {
			out = append(out, id)
		}
	}
	return utils.UniqueStrings(out)
}

package services

import (
	"context"

	"github.com/sirupsen/logrus"
	"gorm.io/gorm"

	"github.com/onegreenvn/green-insights-backend/internal/database/repository"
	"github.com/onegreenvn/green-insights-backend/internal/models"
	"github.com/onegreenvn/green-insights-backend/internal/monitoring"
	"github.com/onegreenvn/green-insights-backend/internal/utils"
)

// VariantChanges counts what a replace-set did
type VariantChanges struct {
	Kept     int `json:"kept"`
	Replaced int `json:"replaced"`
	Inserted int `json:"inserted"`
	Deleted  int `json:"deleted"`
}

type VariantService struct {
	db        *gorm.DB
	playbooks *repository.PlaybookRepository
	variants  *repository.VariantRepository
	publisher EventPublisher
	metrics   *monitoring.Metrics
	opts      Options
}

func NewVariantService(db *gorm.DB, publisher EventPublisher, metrics *monitoring.Metrics, opts Options) *VariantService {
	return &VariantService{
		db:        db,
		playbooks: repository.NewPlaybookRepository(db),
		variants:  repository.NewVariantRepository(db),
		publisher: publisher,
		metrics:   metrics,
		opts:      opts,
	}
}

// GenerateVariants replaces the live variants of a playbook with the set
// derived from its current recipe. Rows are diffed by rule key inside one
// transaction: unchanged rows are kept, changed rows are soft-deleted and
// recreated under a new id, missing rows inserted and everything else
// soft-deleted. Experiments keep pointing at the recipe they tested.
func (s *VariantService) GenerateVariants(ctx context.Context, orgID, playbookID string) ([]models.PlaybookVariant, VariantChanges, error) {
	ctx, cancel := s.opts.withTimeout(ctx)
	defer cancel()

	var changes VariantChanges
	var live []models.PlaybookVariant
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		playbooks := s.playbooks.WithTx(tx)
		variants := s.variants.WithTx(tx)

		playbook, err := playbooks.GetByID(ctx, orgID, playbookID)
		if err != nil {
			return err
		}
		if playbook == nil {
			return utils.NotFound("playbook %s not found", playbookID)
		}

		current, err := variants.ListLive(ctx, playbook.ID)
		if err != nil {
			return err
		}
		existing := make(map[string]models.PlaybookVariant, len(current))
		var stale []string
		for _, v := range current {
			if _, dup := existing[v.Key]; dup || v.Key == "" {
				stale = append(stale, v.ID)
				continue
			}
			existing[v.Key] = v
		}

		desired := BuildVariants(playbook.ID, playbook.Recipe.Data())
		wanted := make(map[string]struct{}, len(desired))
		var inserts []models.PlaybookVariant
		for _, want := range desired {
			wanted[want.Key] = struct{}{}
			have, ok := existing[want.Key]
			if !ok {
				inserts = append(inserts, want)
				continue
			}
			if have.Name == want.Name && have.Type == want.Type && have.Description == want.Description &&
				sameRecipe(have.Recipe.Data(), want.Recipe.Data()) {
				changes.Kept++
				continue
			}
			stale = append(stale, have.ID)
			inserts = append(inserts, want)
			changes.Replaced++
		}
		for key, v := range existing {
			if _, ok := wanted[key]; !ok {
				stale = append(stale, v.ID)
			}
		}

		// Retire rows first so the live (playbook_id, key) index accepts the inserts
		deleted, err := variants.SoftDelete(ctx, playbook.ID, stale)
		if err != nil {
			return err
		}
		changes.Deleted = int(deleted) - changes.Replaced

		if err := variants.Create(ctx, inserts); err != nil {
			return err
		}
		changes.Inserted = len(inserts) - changes.Replaced

		live, err = variants.ListLive(ctx, playbook.ID)
		return err
	})
	if err != nil {
		return nil, VariantChanges{}, utils.Unexpected(err, "failed to generate variants")
	}

	live = orderByRule(live)
	s.metrics.AddVariants("insert", changes.Inserted)
	s.metrics.AddVariants("replace", changes.Replaced)
	s.metrics.AddVariants("delete", changes.Deleted)
	publish(ctx, s.publisher, EventVariantsGenerated, map[string]interface{}{
		"organization_id": orgID,
		"playbook_id":     playbookID,
		"changes":         changes,
	})

	logrus.WithFields(logrus.Fields{
		"organization_id": orgID,
		"playbook_id":     playbookID,
		"kept":            changes.Kept,
		"replaced":        changes.Replaced,
		"inserted":        changes.Inserted,
		"deleted":         changes.Deleted,
	}).Info("Generated playbook variants")
	return live, changes, nil
}

// orderByRule sorts variants in mutation rule order
func orderByRule(variants []models.PlaybookVariant) []models.PlaybookVariant {
	rank := make(map[string]int)
	for i, m := range VariantMutations() {
		rank[m.Key()] = i
	}
	ordered := make([]models.PlaybookVariant, 0, len(variants))
	for _, m := range VariantMutations() {
		for _, v := range variants {
			if v.Key == m.Key() {
				ordered = append(ordered, v)
			}
		}
	}
	for _, v := range variants {
		if _, ok := rank[v.Key]; !ok {
			ordered = append(ordered, v)
		}
	}
	return ordered
}

// ListVariants returns the live variants of a playbook owned by orgID
func (s *VariantService) ListVariants(ctx context.Context, orgID, playbookID string) ([]models.PlaybookVariant, error) {
	ctx, cancel := s.opts.withTimeout(ctx)
	defer cancel()

	playbook, err := s.playbooks.GetByID(ctx, orgID, playbookID)
	if err != nil {
		return nil, utils.Unexpected(err, "failed to load playbook")
	}
	if playbook == nil {
		return nil, utils.NotFound("playbook %s not found", playbookID)
	}
	variants, err := s.variants.ListLive(ctx, playbook.ID)
	if err != nil {
		return nil, utils.Unexpected(err, "failed to list variants")
	}
	return orderByRule(variants), nil
}

// DeleteVariant soft deletes one variant of a playbook
func (s *VariantService) DeleteVariant(ctx context.Context, orgID, playbookID, variantID string) error {
	ctx, cancel := s.opts.withTimeout(ctx)
	defer cancel()

	playbook, err := s.playbooks.GetByID(ctx, orgID, playbookID)
	if err != nil {
		return utils.Unexpected(err, "failed to load playbook")
	}
	if playbook == nil {
		return utils.NotFound("playbook %s not found", playbookID)
	}
	deleted, err := s.variants.SoftDelete(ctx, playbook.ID, []string{variantID})
	if err != nil {
		return utils.Unexpected(err, "failed to delete variant")
	}
	if deleted == 0 {
		return utils.NotFound("variant %s not found", variantID)
	}
	return nil
}

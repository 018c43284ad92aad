package services

import (
	"context"
	"strings"
	"time"

	"github.com/sirupsen/logrus"
	"gorm.io/gorm"

	"github.com/onegreenvn/green-insights-backend/internal/database/repository"
	"github.com/onegreenvn/green-insights-backend/internal/models"
	"github.com/onegreenvn/green-insights-backend/internal/monitoring"
	"github.com/onegreenvn/green-insights-backend/internal/utils"
)

const (
	minExperimentVariants = 2
	maxExperimentVariants = 3
)

// WinnerConfirmation is the outcome of confirming an experiment winner
type WinnerConfirmation struct {
	Experiment *models.Experiment             `json:"experiment"`
	Playbook   *models.Playbook               `json:"playbook"`
	Winner     models.ExperimentVariantResult `json:"winner"`
}

type ExperimentService struct {
	db          *gorm.DB
	experiments *repository.ExperimentRepository
	playbooks   *repository.PlaybookRepository
	variants    *repository.VariantRepository
	contents    *repository.ContentRepository
	publisher   EventPublisher
	metrics     *monitoring.Metrics
	opts        Options
}

func NewExperimentService(db *gorm.DB, publisher EventPublisher, metrics *monitoring.Metrics, opts Options) *ExperimentService {
	return &ExperimentService{
		db:          db,
		experiments: repository.NewExperimentRepository(db),
		playbooks:   repository.NewPlaybookRepository(db),
		variants:    repository.NewVariantRepository(db),
		contents:    repository.NewContentRepository(db),
		publisher:   publisher,
		metrics:     metrics,
		opts:        opts,
	}
}

// CreateExperiment binds 2-3 distinct live variants of one playbook in draft
func (s *ExperimentService) CreateExperiment(ctx context.Context, orgID string, req models.CreateExperimentRequest) (*models.Experiment, error) {
	name := strings.TrimSpace(req.Name)
	if name == "" {
		return nil, utils.Validation("name is required")
	}
	metric := models.SuccessMetric(req.SuccessMetric)
	if !metric.Valid() {
		return nil, utils.Validation("success_metric must be one of reach, engagement, combined")
	}
	variantIDs := utils.UniqueStrings(req.VariantIDs)
	if len(variantIDs) != len(req.VariantIDs) {
		return nil, utils.Validation("variant_ids must be distinct")
	}
	if len(variantIDs) < minExperimentVariants || len(variantIDs) > maxExperimentVariants {
		return nil, utils.Validation("an experiment needs %d to %d variants, got %d", minExperimentVariants, maxExperimentVariants, len(variantIDs))
	}
	if req.StartDate != nil && req.EndDate != nil && req.EndDate.Before(*req.StartDate) {
		return nil, utils.Validation("end_date must not be before start_date")
	}

	ctx, cancel := s.opts.withTimeout(ctx)
	defer cancel()

	var experiment *models.Experiment
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		playbook, err := s.playbooks.WithTx(tx).GetByID(ctx, orgID, req.PlaybookID)
		if err != nil {
			return err
		}
		if playbook == nil {
			return utils.NotFound("playbook %s not found", req.PlaybookID)
		}

		found, err := s.variants.WithTx(tx).GetByIDs(ctx, variantIDs)
		if err != nil {
			return err
		}
		if len(found) != len(variantIDs) {
			return utils.NotFound("one or more variants do not exist")
		}
		for _, v := range found {
			if v.PlaybookID != playbook.ID {
				return utils.Validation("variant %s does not belong to playbook %s", v.ID, playbook.ID)
			}
		}

		created := &models.Experiment{
			OrganizationID: orgID,
			PlaybookID:     playbook.ID,
			Name:           name,
			SuccessMetric:  metric,
			Status:         models.ExperimentStatusDraft,
			StartDate:      utcPtr(req.StartDate),
			EndDate:        utcPtr(req.EndDate),
		}
		repo := s.experiments.WithTx(tx)
		if err := repo.Create(ctx, created, variantIDs); err != nil {
			return err
		}
		experiment, err = repo.GetByID(ctx, orgID, created.ID)
		return err
	})
	if err != nil {
		return nil, utils.Unexpected(err, "failed to create experiment")
	}

	logrus.WithFields(logrus.Fields{
		"organization_id": orgID,
		"experiment_id":   experiment.ID,
		"playbook_id":     experiment.PlaybookID,
		"variants":        len(variantIDs),
	}).Info("Created experiment")
	return experiment, nil
}

func utcPtr(t *time.Time) *time.Time {
	if t == nil {
		return nil
	}
	u := t.UTC()
	return &u
}

// GetExperiment returns an experiment with its arms
func (s *ExperimentService) GetExperiment(ctx context.Context, orgID, id string) (*models.Experiment, error) {
	ctx, cancel := s.opts.withTimeout(ctx)
	defer cancel()
	return s.load(ctx, s.experiments, orgID, id)
}

func (s *ExperimentService) load(ctx context.Context, repo *repository.ExperimentRepository, orgID, id string) (*models.Experiment, error) {
	experiment, err := repo.GetByID(ctx, orgID, id)
	if err != nil {
		return nil, utils.Unexpected(err, "failed to load experiment")
	}
	if experiment == nil {
		return nil, utils.NotFound("experiment %s not found", id)
	}
	return experiment, nil
}

// ListExperiments returns a page of experiments
func (s *ExperimentService) ListExperiments(ctx context.Context, orgID string, status models.ExperimentStatus, playbookID string, page, pageSize int) ([]models.Experiment, utils.PaginationResponse, error) {
	ctx, cancel := s.opts.withTimeout(ctx)
	defer cancel()

	switch status {
	case "", models.ExperimentStatusDraft, models.ExperimentStatusActive, models.ExperimentStatusCompleted:
	default:
		return nil, utils.PaginationResponse{}, utils.Validation("unknown status %q", status)
	}
	page, pageSize = utils.ValidateAndNormalizePagination(page, pageSize)
	experiments, total, err := s.experiments.List(ctx, orgID, status, playbookID, pageSize, utils.CalculateOffset(page, pageSize))
	if err != nil {
		return nil, utils.PaginationResponse{}, utils.Unexpected(err, "failed to list experiments")
	}
	return experiments, utils.CalculatePaginationInfo(int(total), page, pageSize), nil
}

// StartExperiment moves a draft experiment to active
func (s *ExperimentService) StartExperiment(ctx context.Context, orgID, id string) (*models.Experiment, error) {
	return s.transition(ctx, orgID, id, models.ExperimentStatusDraft, models.ExperimentStatusActive)
}

// CompleteExperiment moves an active experiment to completed
func (s *ExperimentService) CompleteExperiment(ctx context.Context, orgID, id string) (*models.Experiment, error) {
	return s.transition(ctx, orgID, id, models.ExperimentStatusActive, models.ExperimentStatusCompleted)
}

func (s *ExperimentService) transition(ctx context.Context, orgID, id string, from, to models.ExperimentStatus) (*models.Experiment, error) {
	ctx, cancel := s.opts.withTimeout(ctx)
	defer cancel()

	experiment, err := s.load(ctx, s.experiments, orgID, id)
	if err != nil {
		return nil, err
	}
	if experiment.Status != from {
		return nil, utils.BusinessRule("experiment is %s, only %s experiments can become %s", experiment.Status, from, to)
	}

	ok, err := s.experiments.Transition(ctx, experiment.ID, from, to, s.opts.now())
	if err != nil {
		return nil, utils.Unexpected(err, "failed to update experiment status")
	}
	if !ok {
		return nil, utils.BusinessRule("experiment status changed concurrently")
	}

	publish(ctx, s.publisher, EventExperimentStatus, map[string]interface{}{
		"organization_id": orgID,
		"experiment_id":   experiment.ID,
		"from":            from,
		"to":              to,
	})
	logrus.WithFields(logrus.Fields{
		"organization_id": orgID,
		"experiment_id":   experiment.ID,
		"status":          to,
	}).Info("Experiment status changed")
	return s.load(ctx, s.experiments, orgID, id)
}

// TrackContent attributes content to one arm and refreshes the aggregates.
// Re-tracking the same pair is a no-op; moving content to another arm is rejected.
func (s *ExperimentService) TrackContent(ctx context.Context, orgID, id string, req models.TrackContentRequest) (*models.ExperimentResults, error) {
	ctx, cancel := s.opts.withTimeout(ctx)
	defer cancel()

	var results *models.ExperimentResults
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		repo := s.experiments.WithTx(tx)
		experiment, err := s.load(ctx, repo, orgID, id)
		if err != nil {
			return err
		}

		var arm *models.ExperimentVariant
		for i := range experiment.Variants {
			v := &experiment.Variants[i]
			if v.VariantID == req.VariantID || v.ID == req.VariantID {
				arm = v
				break
			}
		}
		if arm == nil {
			return utils.Validation("variant %s is not part of experiment %s", req.VariantID, experiment.ID)
		}

		content, err := s.contents.WithTx(tx).GetByID(ctx, orgID, req.ContentID)
		if err != nil {
			return err
		}
		if content == nil {
			return utils.NotFound("content %s not found", req.ContentID)
		}

		inserted, err := repo.Track(ctx, &models.ExperimentTrackedContent{
			ExperimentID:        experiment.ID,
			ExperimentVariantID: arm.ID,
			ContentID:           content.ID,
		})
		if err != nil {
			return err
		}
		if !inserted {
			existing, err := repo.GetTracked(ctx, experiment.ID, content.ID)
			if err != nil {
				return err
			}
			if existing != nil && existing.ExperimentVariantID != arm.ID {
				return utils.BusinessRule("content %s is already tracked under another variant", content.ID)
			}
		}

		results, err = s.refresh(ctx, tx, experiment)
		return err
	})
	if err != nil {
		return nil, utils.Unexpected(err, "failed to track content")
	}
	return results, nil
}

// GetResults recomputes every arm from its tracked content and returns the verdict
func (s *ExperimentService) GetResults(ctx context.Context, orgID, id string) (*models.ExperimentResults, error) {
	ctx, cancel := s.opts.withTimeout(ctx)
	defer cancel()

	var results *models.ExperimentResults
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		experiment, err := s.load(ctx, s.experiments.WithTx(tx), orgID, id)
		if err != nil {
			return err
		}
		results, err = s.refresh(ctx, tx, experiment)
		return err
	})
	if err != nil {
		return nil, utils.Unexpected(err, "failed to compute experiment results")
	}
	s.metrics.IncVerdict(results.IsSignificant)
	return results, nil
}

// refresh recomputes and persists the aggregates of every arm
func (s *ExperimentService) refresh(ctx context.Context, tx *gorm.DB, experiment *models.Experiment) (*models.ExperimentResults, error) {
	repo := s.experiments.WithTx(tx)
	contents := s.contents.WithTx(tx)

	tracked, err := repo.TrackedContentIDs(ctx, experiment.ID)
	if err != nil {
		return nil, err
	}

	arms := make([]models.ExperimentVariantResult, len(experiment.Variants))
	values := make([]float64, len(experiment.Variants))
	counts := make([]int, len(experiment.Variants))
	for i, v := range experiment.Variants {
		items, err := aggregateByIDs(ctx, contents, experiment.OrganizationID, tracked[v.ID])
		if err != nil {
			return nil, err
		}
		reach, engagement, avgRate := ArmTotals(items)
		counts[i] = len(items)
		values[i] = MetricValue(experiment.SuccessMetric, reach, avgRate)
		arms[i] = models.ExperimentVariantResult{
			ExperimentVariantID: v.ID,
			VariantID:           v.VariantID,
			Name:                v.Variant.Name,
			Type:                string(v.Variant.Type),
			TotalReach:          reach,
			TotalEngagement:     engagement,
			ContentCount:        len(items),
			AvgEngagementRate:   avgRate,
			MetricValue:         values[i],
		}
	}

	rates := WinRates(values)
	for i := range arms {
		arms[i].WinRate = rates[i]
		err := repo.UpdateAggregates(ctx, arms[i].ExperimentVariantID, repository.VariantAggregates{
			TotalReach:        arms[i].TotalReach,
			TotalEngagement:   arms[i].TotalEngagement,
			ContentCount:      arms[i].ContentCount,
			AvgEngagementRate: arms[i].AvgEngagementRate,
			WinRate:           arms[i].WinRate,
		})
		if err != nil {
			return nil, err
		}
	}

	verdict := Evaluate(counts, rates)
	results := &models.ExperimentResults{
		ExperimentID:  experiment.ID,
		Name:          experiment.Name,
		Status:        string(experiment.Status),
		SuccessMetric: string(experiment.SuccessMetric),
		Variants:      arms,
		IsSignificant: verdict.IsSignificant,
		Reason:        verdict.Reason,
		ComputedAt:    s.opts.now().Format(time.RFC3339),
	}
	if verdict.WinnerIndex >= 0 {
		winner := arms[verdict.WinnerIndex]
		results.Winner = &winner
	}
	return results, nil
}

// ConfirmWinner writes the winning recipe back onto the playbook, raises its
// consistency score and stamps the winner. It fails unless the results are
// significant and no winner was confirmed before.
func (s *ExperimentService) ConfirmWinner(ctx context.Context, orgID, id string) (*WinnerConfirmation, error) {
	ctx, cancel := s.opts.withTimeout(ctx)
	defer cancel()

	var confirmation *WinnerConfirmation
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		repo := s.experiments.WithTx(tx)
		playbooks := s.playbooks.WithTx(tx)

		experiment, err := s.load(ctx, repo, orgID, id)
		if err != nil {
			return err
		}
		if experiment.WinnerID != nil {
			return utils.BusinessRule("experiment %s already has a confirmed winner", experiment.ID)
		}

		results, err := s.refresh(ctx, tx, experiment)
		if err != nil {
			return err
		}
		if !results.IsSignificant || results.Winner == nil {
			return utils.BusinessRule("results are not significant: %s", results.Reason)
		}

		var winner *models.ExperimentVariant
		for i := range experiment.Variants {
			if experiment.Variants[i].ID == results.Winner.ExperimentVariantID {
				winner = &experiment.Variants[i]
			}
		}
		if winner == nil {
			return utils.NotFound("winning variant not found")
		}

		playbook, err := playbooks.GetByID(ctx, orgID, experiment.PlaybookID)
		if err != nil {
			return err
		}
		if playbook == nil {
			return utils.NotFound("playbook %s not found", experiment.PlaybookID)
		}

		score := RaiseConsistency(playbook.ConsistencyScore)
		if err := playbooks.ApplyRecipe(ctx, playbook.ID, winner.Variant.Recipe.Data(), score); err != nil {
			return err
		}
		stamped, err := repo.SetWinner(ctx, experiment.ID, winner.VariantID)
		if err != nil {
			return err
		}
		if !stamped {
			return utils.BusinessRule("experiment %s already has a confirmed winner", experiment.ID)
		}

		updatedExperiment, err := s.load(ctx, repo, orgID, id)
		if err != nil {
			return err
		}
		updatedPlaybook, err := playbooks.GetByID(ctx, orgID, playbook.ID)
		if err != nil {
			return err
		}
		confirmation = &WinnerConfirmation{
			Experiment: updatedExperiment,
			Playbook:   updatedPlaybook,
			Winner:     *results.Winner,
		}
		return nil
	})
	if err != nil {
		return nil, utils.Unexpected(err, "failed to confirm winner")
	}

	publish(ctx, s.publisher, EventExperimentWinner, map[string]interface{}{
		"organization_id":   orgID,
		"experiment_id":     confirmation.Experiment.ID,
		"playbook_id":       confirmation.Playbook.ID,
		"winner_variant_id": confirmation.Winner.VariantID,
		"consistency_score": confirmation.Playbook.ConsistencyScore,
	})
	logrus.WithFields(logrus.Fields{
		"organization_id": orgID,
		"experiment_id":   confirmation.Experiment.ID,
		"winner":          confirmation.Winner.VariantID,
	}).Info("Confirmed experiment winner")
	return confirmation, nil
}

// DeleteExperiment soft deletes an experiment in any state
func (s *ExperimentService) DeleteExperiment(ctx context.Context, orgID, id string) error {
	ctx, cancel := s.opts.withTimeout(ctx)
	defer cancel()

	deleted, err := s.experiments.SoftDelete(ctx, orgID, id)
	if err != nil {
		return utils.Unexpected(err, "failed to delete experiment")
	}
	if !deleted {
		return utils.NotFound("experiment %s not found", id)
	}
	return nil
}

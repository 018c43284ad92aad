package services

import (
	"context"

	"github.com/sirupsen/logrus"
	"gorm.io/gorm"

	"github.com/onegreenvn/green-insights-backend/internal/config"
	"github.com/onegreenvn/green-insights-backend/internal/database/repository"
	"github.com/onegreenvn/green-insights-backend/internal/models"
	"github.com/onegreenvn/green-insights-backend/internal/monitoring"
	"github.com/onegreenvn/green-insights-backend/internal/utils"
)

type AlertService struct {
	alerts       *repository.AlertRepository
	metricsRepo  *repository.DailyMetricRepository
	integrations *repository.IntegrationRepository
	cfg          config.AnalyticsConfig
	notifier     AlertNotifier
	publisher    EventPublisher
	metrics      *monitoring.Metrics
	opts         Options
}

func NewAlertService(db *gorm.DB, cfg config.AnalyticsConfig, notifier AlertNotifier, publisher EventPublisher, metrics *monitoring.Metrics, opts Options) *AlertService {
	return &AlertService{
		alerts:       repository.NewAlertRepository(db),
		metricsRepo:  repository.NewDailyMetricRepository(db),
		integrations: repository.NewIntegrationRepository(db),
		cfg:          cfg,
		notifier:     notifier,
		publisher:    publisher,
		metrics:      metrics,
		opts:         opts,
	}
}

// ProcessKPIDropAlerts compares the last ALERT_WINDOW_DAYS with the window
// before it for every tracked integration and enabled metric
func (s *AlertService) ProcessKPIDropAlerts(ctx context.Context, orgID string) ([]models.Alert, error) {
	return s.process(ctx, orgID, models.AlertTypeKPIDrop, s.cfg.AlertWindowDays)
}

// ProcessViralSpikes looks for sharp increases over VIRAL_WINDOW_DAYS
func (s *AlertService) ProcessViralSpikes(ctx context.Context, orgID string) ([]models.Alert, error) {
	return s.process(ctx, orgID, models.AlertTypeViralSpike, s.cfg.ViralWindowDays)
}

func (s *AlertService) process(ctx context.Context, orgID string, alertType models.AlertType, windowDays int) ([]models.Alert, error) {
	if windowDays < 1 {
		windowDays = 1
	}
	ctx, cancel := s.opts.withTimeout(ctx)
	defer cancel()

	configs, err := s.activeConfigs(ctx, orgID)
	if err != nil {
		return nil, err
	}
	if len(configs) == 0 {
		return []models.Alert{}, nil
	}

	integrationIDs, err := s.integrations.ListTracked(ctx, orgID)
	if err != nil {
		return nil, utils.Unexpected(err, "failed to load tracked integrations")
	}

	// Windows end at the start of today so partial days never count
	today := utils.TruncateToDay(s.opts.now())
	currentFrom := today.AddDate(0, 0, -windowDays)
	previousFrom := currentFrom.AddDate(0, 0, -windowDays)

	created := []models.Alert{}
	for _, integrationID := range integrationIDs {
		previous, err := s.metricsRepo.SumWindow(ctx, orgID, integrationID, previousFrom, currentFrom)
		if err != nil {
			return nil, utils.Unexpected(err, "failed to sum previous window")
		}
		current, err := s.metricsRepo.SumWindow(ctx, orgID, integrationID, currentFrom, today)
		if err != nil {
			return nil, utils.Unexpected(err, "failed to sum current window")
		}

		for _, cfg := range configs {
			cmp := WindowComparison{
				Previous: MetricTotal(previous, cfg.Metric) / float64(windowDays),
				Current:  MetricTotal(current, cfg.Metric) / float64(windowDays),
			}
			change, ok := cmp.ChangePercent()
			if !ok {
				continue
			}

			var severity models.AlertSeverity
			if alertType == models.AlertTypeKPIDrop {
				severity, ok = ClassifyDrop(-change, cfg.Threshold)
			} else {
				severity, ok = ClassifySpike(change, cfg.SpikeThreshold)
			}
			if !ok {
				continue
			}

			alert := models.Alert{
				OrganizationID: orgID,
				IntegrationID:  integrationID,
				Type:           alertType,
				Metric:         cfg.Metric,
				AlertDate:      today,
				Severity:       severity,
				ChangePercent:  change,
				CurrentValue:   cmp.Current,
				PreviousValue:  cmp.Previous,
				Message:        alertMessage(alertType, cfg.Metric, change, cmp, windowDays),
			}
			inserted, err := s.alerts.InsertIfAbsent(ctx, &alert)
			if err != nil {
				return nil, utils.Unexpected(err, "failed to store alert")
			}
			if inserted {
				created = append(created, alert)
			}
		}
	}

	for i := range created {
		s.announce(ctx, &created[i])
	}
	if len(created) > 0 {
		logrus.WithFields(logrus.Fields{
			"organization_id": orgID,
			"type":            alertType,
			"alerts":          len(created),
		}).Info("Raised alerts")
	}
	return created, nil
}

func (s *AlertService) announce(ctx context.Context, alert *models.Alert) {
	s.metrics.IncAlert(string(alert.Type), string(alert.Severity))
	if s.notifier != nil {
		s.notifier.BroadcastAlert(alert)
	}
	publish(ctx, s.publisher, EventAlertCreated, alert)
}

// activeConfigs returns enabled configs, or the defaults when none are stored
func (s *AlertService) activeConfigs(ctx context.Context, orgID string) ([]models.AlertConfig, error) {
	configs, err := s.GetConfigs(ctx, orgID)
	if err != nil {
		return nil, err
	}
	active := make([]models.AlertConfig, 0, len(configs))
	for _, c := range configs {
		if c.Enabled {
			active = append(active, c)
		}
	}
	return active, nil
}

// GetConfigs returns the stored configs or the defaults
func (s *AlertService) GetConfigs(ctx context.Context, orgID string) ([]models.AlertConfig, error) {
	configs, err := s.alerts.ListConfigs(ctx, orgID)
	if err != nil {
		return nil, utils.Unexpected(err, "failed to load alert configs")
	}
	if len(configs) == 0 {
		return DefaultAlertConfigs(orgID), nil
	}
	return configs, nil
}

// UpdateConfig upserts the config of one metric. Omitted fields keep their
// stored value, or the default for a new config.
func (s *AlertService) UpdateConfig(ctx context.Context, orgID string, req models.UpdateAlertConfigRequest) (*models.AlertConfig, error) {
	if !models.IsAlertMetric(req.Metric) {
		return nil, utils.Validation("unknown metric %q", req.Metric)
	}
	ctx, cancel := s.opts.withTimeout(ctx)
	defer cancel()

	cfg := models.AlertConfig{
		OrganizationID: orgID,
		Metric:         req.Metric,
		Threshold:      defaultDropThreshold,
		SpikeThreshold: defaultSpikeThreshold,
		Enabled:        true,
	}
	existing, err := s.alerts.GetConfig(ctx, orgID, req.Metric)
	if err != nil {
		return nil, utils.Unexpected(err, "failed to load alert config")
	}
	if existing != nil {
		cfg.Threshold = existing.Threshold
		cfg.SpikeThreshold = existing.SpikeThreshold
		cfg.Enabled = existing.Enabled
	}
	if req.Threshold != nil {
		cfg.Threshold = *req.Threshold
	}
	if req.SpikeThreshold != nil {
		cfg.SpikeThreshold = *req.SpikeThreshold
	}
	if req.Enabled != nil {
		cfg.Enabled = *req.Enabled
	}

	if cfg.Threshold <= 0 || cfg.Threshold > 100 {
		return nil, utils.Validation("threshold must be within (0, 100]")
	}
	if cfg.SpikeThreshold <= 0 {
		return nil, utils.Validation("spike_threshold must be positive")
	}

	saved, err := s.alerts.UpsertConfig(ctx, &cfg)
	if err != nil {
		return nil, utils.Unexpected(err, "failed to save alert config")
	}
	return saved, nil
}

// ListAlerts returns a page of alerts, newest first
func (s *AlertService) ListAlerts(ctx context.Context, orgID string, filter repository.AlertFilter, page, pageSize int) ([]models.Alert, utils.PaginationResponse, error) {
	ctx, cancel := s.opts.withTimeout(ctx)
	defer cancel()

	page, pageSize = utils.ValidateAndNormalizePagination(page, pageSize)
	alerts, total, err := s.alerts.List(ctx, orgID, filter, pageSize, utils.CalculateOffset(page, pageSize))
	if err != nil {
		return nil, utils.PaginationResponse{}, utils.Unexpected(err, "failed to list alerts")
	}
	return alerts, utils.CalculatePaginationInfo(int(total), page, pageSize), nil
}

// MarkRead flags one alert as read
func (s *AlertService) MarkRead(ctx context.Context, orgID, id string) error {
	ctx, cancel := s.opts.withTimeout(ctx)
	defer cancel()

	ok, err := s.alerts.MarkRead(ctx, orgID, id)
	if err != nil {
		return utils.Unexpected(err, "failed to mark alert as read")
	}
	if !ok {
		return utils.NotFound("alert %s not found", id)
	}
	return nil
}

// MarkAllRead flags every unread alert of an organization
func (s *AlertService) MarkAllRead(ctx context.Context, orgID string) (int64, error) {
	ctx, cancel := s.opts.withTimeout(ctx)
	defer cancel()

	n, err := s.alerts.MarkAllRead(ctx, orgID)
	if err != nil {
		return 0, utils.Unexpected(err, "failed to mark alerts as read")
	}
	return n, nil
}

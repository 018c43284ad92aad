package services

import (
	"context"
	"time"

	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"
	"gorm.io/gorm"

	"github.com/onegreenvn/green-insights-backend/internal/database/repository"
	"github.com/onegreenvn/green-insights-backend/internal/monitoring"
	"github.com/onegreenvn/green-insights-backend/internal/utils"
)

// AlertScheduler periodically runs the KPI drop and viral spike checks for
// every organization with tracked integrations
type AlertScheduler struct {
	alerts       *AlertService
	integrations *repository.IntegrationRepository
	metrics      *monitoring.Metrics
	interval     time.Duration
	workers      int
	stopChan     chan bool
}

func NewAlertScheduler(db *gorm.DB, alerts *AlertService, interval time.Duration, workers int, metrics *monitoring.Metrics) *AlertScheduler {
	if interval <= 0 {
		interval = time.Hour
	}
	if workers < 1 {
		workers = 1
	}
	return &AlertScheduler{
		alerts:       alerts,
		integrations: repository.NewIntegrationRepository(db),
		metrics:      metrics,
		interval:     interval,
		workers:      workers,
		stopChan:     make(chan bool),
	}
}

// Start starts the scheduler loop
func (s *AlertScheduler) Start() {
	go s.run()
	logrus.Infof("Alert scheduler started (interval: %s, workers: %d)", s.interval, s.workers)
}

// Stop stops the scheduler loop
func (s *AlertScheduler) Stop() {
	s.stopChan <- true
	logrus.Info("Alert scheduler stopped")
}

func (s *AlertScheduler) run() {
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			if err := s.RunOnce(context.Background()); err != nil {
				logrus.Errorf("Alert check run failed: %v", err)
			}
		case <-s.stopChan:
			return
		}
	}
}

// RunOnce checks every organization once. A failing organization is logged
// and reported without stopping the others.
func (s *AlertScheduler) RunOnce(ctx context.Context) error {
	orgIDs, err := s.integrations.ListOrganizationsWithTracked(ctx)
	if err != nil {
		s.metrics.IncAlertCheck("error")
		return utils.Unexpected(err, "failed to list organizations")
	}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.workers)
	for _, orgID := range orgIDs {
		orgID := orgID
		g.Go(func() error {
			s.checkOrganization(gctx, orgID)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return err
	}
	logrus.WithField("organizations", len(orgIDs)).Debug("Alert check run completed")
	return nil
}

func (s *AlertScheduler) checkOrganization(ctx context.Context, orgID string) {
	outcome := "ok"
	if _, err := s.alerts.ProcessKPIDropAlerts(ctx, orgID); err != nil {
		outcome = "error"
		s.report(err, orgID, "kpi_drop")
	}
	if _, err := s.alerts.ProcessViralSpikes(ctx, orgID); err != nil {
		outcome = "error"
		s.report(err, orgID, "viral_spike")
	}
	s.metrics.IncAlertCheck(outcome)
}

func (s *AlertScheduler) report(err error, orgID, check string) {
	logrus.WithFields(logrus.Fields{
		"organization_id": orgID,
		"check":           check,
	}).Errorf("Alert check failed: %v", err)
	utils.CaptureError(err, map[string]string{"organization_id": orgID, "check": check})
}

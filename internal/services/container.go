package services

import (
	"gorm.io/gorm"

	"github.com/onegreenvn/green-insights-backend/internal/config"
	"github.com/onegreenvn/green-insights-backend/internal/database/repository"
	"github.com/onegreenvn/green-insights-backend/internal/monitoring"
)

// Container holds the analytics services sharing one database handle
type Container struct {
	Engagement   *EngagementService
	Playbooks    *PlaybookService
	Variants     *VariantService
	Experiments  *ExperimentService
	Alerts       *AlertService
	Contents     *ContentService
	Integrations *IntegrationService
}

// NewContainer wires every service. publisher and notifier may be nil.
func NewContainer(db *gorm.DB, cfg config.AnalyticsConfig, publisher EventPublisher, notifier AlertNotifier, metrics *monitoring.Metrics, opts Options) *Container {
	engagement := NewEngagementService(repository.NewContentRepository(db), repository.NewIntegrationRepository(db), cfg, opts)
	return &Container{
		Engagement:   engagement,
		Playbooks:    NewPlaybookService(db, engagement, cfg, publisher, metrics, opts),
		Variants:     NewVariantService(db, publisher, metrics, opts),
		Experiments:  NewExperimentService(db, publisher, metrics, opts),
		Alerts:       NewAlertService(db, cfg, notifier, publisher, metrics, opts),
		Contents:     NewContentService(db, publisher, opts),
		Integrations: NewIntegrationService(db, opts),
	}
}

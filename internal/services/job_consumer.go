package services

import (
	"context"
	"encoding/json"
	"sync"

	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/sirupsen/logrus"

	"github.com/onegreenvn/green-insights-backend/internal/models"
	"github.com/onegreenvn/green-insights-backend/internal/monitoring"
	"github.com/onegreenvn/green-insights-backend/internal/utils"
)

// Job types accepted on the jobs queue
const (
	JobContent           = "content"
	JobMetrics           = "metrics"
	JobGeneratePlaybooks = "generate_playbooks"
	JobCheckAlerts       = "check_alerts"
	JobCheckViral        = "check_viral"
)

// AnalyticsJob is one message of the jobs queue
type AnalyticsJob struct {
	Type           string                           `json:"type"`
	OrganizationID string                           `json:"organization_id"`
	Content        *models.UpsertContentRequest     `json:"content,omitempty"`
	Metrics        []models.DailyMetricInput        `json:"metrics,omitempty"`
	Playbooks      *models.GeneratePlaybooksRequest `json:"playbooks,omitempty"`
}

// JobSource delivers jobs from the broker
type JobSource interface {
	Consume() (<-chan amqp.Delivery, error)
}

// JobConsumer runs ingestion and analytics jobs received from RabbitMQ
type JobConsumer struct {
	source    JobSource
	contents  *ContentService
	playbooks *PlaybookService
	alerts    *AlertService
	metrics   *monitoring.Metrics
	stopChan  chan bool
	stopOnce  sync.Once
}

func NewJobConsumer(source JobSource, contents *ContentService, playbooks *PlaybookService, alerts *AlertService, metrics *monitoring.Metrics) *JobConsumer {
	return &JobConsumer{
		source:    source,
		contents:  contents,
		playbooks: playbooks,
		alerts:    alerts,
		metrics:   metrics,
		stopChan:  make(chan bool),
	}
}

// Start starts consuming the jobs queue
func (c *JobConsumer) Start() error {
	msgs, err := c.source.Consume()
	if err != nil {
		return err
	}

	logrus.Info("RabbitMQ consumer started for analytics jobs")

	go func() {
		for {
			select {
			case <-c.stopChan:
				logrus.Info("RabbitMQ consumer stopped")
				return
			case msg, ok := <-msgs:
				if !ok {
					logrus.Warn("RabbitMQ channel closed")
					return
				}
				c.deliver(msg)
			}
		}
	}()

	return nil
}

// Stop stops the consumer
func (c *JobConsumer) Stop() {
	c.stopOnce.Do(func() { close(c.stopChan) })
}

func (c *JobConsumer) deliver(msg amqp.Delivery) {
	err := c.HandleJob(context.Background(), msg.Body)
	if err == nil {
		if ackErr := msg.Ack(false); ackErr != nil {
			logrus.Warnf("Failed to ack job: %v", ackErr)
		}
		return
	}

	logrus.Errorf("Failed to process job: %v", err)
	// Only unexpected failures are retried, and only once
	requeue := utils.KindOf(err) == utils.KindUnexpected && !msg.Redelivered
	if requeue {
		utils.CaptureError(err, map[string]string{"component": "job_consumer"})
	}
	if nackErr := msg.Nack(false, requeue); nackErr != nil {
		logrus.Warnf("Failed to nack job: %v", nackErr)
	}
}

// HandleJob decodes and runs one job
func (c *JobConsumer) HandleJob(ctx context.Context, body []byte) error {
	var job AnalyticsJob
	if err := json.Unmarshal(body, &job); err != nil {
		c.metrics.IncJob("unknown", "invalid")
		return utils.Validation("invalid job payload: %v", err)
	}
	if job.OrganizationID == "" {
		c.metrics.IncJob(job.Type, "invalid")
		return utils.Validation("organization_id is required")
	}

	err := c.run(ctx, job)
	outcome := "ok"
	if err != nil {
		outcome = "error"
	}
	c.metrics.IncJob(job.Type, outcome)
	return err
}

func (c *JobConsumer) run(ctx context.Context, job AnalyticsJob) error {
	log := logrus.WithFields(logrus.Fields{"organization_id": job.OrganizationID, "job": job.Type})

	switch job.Type {
	case JobContent:
		if job.Content == nil {
			return utils.Validation("content job without content")
		}
		content, err := c.contents.UpsertContent(ctx, job.OrganizationID, *job.Content)
		if err != nil {
			return err
		}
		log.WithField("content_id", content.ID).Debug("Content job done")
	case JobMetrics:
		n, err := c.contents.UpsertDailyMetrics(ctx, job.OrganizationID, models.UpsertDailyMetricsRequest{Metrics: job.Metrics})
		if err != nil {
			return err
		}
		log.WithField("rows", n).Debug("Metrics job done")
	case JobGeneratePlaybooks:
		req := models.GeneratePlaybooksRequest{}
		if job.Playbooks != nil {
			req = *job.Playbooks
		}
		playbooks, err := c.playbooks.GeneratePlaybooks(ctx, job.OrganizationID, req)
		if err != nil {
			return err
		}
		log.WithField("playbooks", len(playbooks)).Info("Playbook generation job done")
	case JobCheckAlerts:
		alerts, err := c.alerts.ProcessKPIDropAlerts(ctx, job.OrganizationID)
		if err != nil {
			return err
		}
		log.WithField("alerts", len(alerts)).Info("KPI alert job done")
	case JobCheckViral:
		alerts, err := c.alerts.ProcessViralSpikes(ctx, job.OrganizationID)
		if err != nil {
			return err
		}
		log.WithField("alerts", len(alerts)).Info("Viral spike job done")
	default:
		return utils.Validation("unknown job type %q", job.Type)
	}
	return nil
}

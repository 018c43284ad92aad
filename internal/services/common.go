package services

import (
	"context"
	"time"

	"github.com/sirupsen/logrus"
)

// Event names published on the analytics events queue
const (
	EventPlaybookGenerated = "playbook.generated"
	EventVariantsGenerated = "playbook.variants_generated"
	EventExperimentWinner  = "experiment.winner_confirmed"
	EventExperimentStatus  = "experiment.status_changed"
	EventAlertCreated      = "alert.created"
	EventContentIngested   = "content.ingested"
)

// EventPublisher delivers domain events to downstream consumers
type EventPublisher interface {
	Publish(ctx context.Context, event string, payload interface{}) error
}

// Options carries collaborators shared by every service
type Options struct {
	QueryTimeout time.Duration
	Now          func() time.Time
}

func (o Options) now() time.Time {
	if o.Now != nil {
		return o.Now().UTC()
	}
	return time.Now().UTC()
}

// withTimeout bounds a data-access call. A zero timeout leaves ctx unchanged.
func (o Options) withTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	if o.QueryTimeout <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, o.QueryTimeout)
}

// publish sends an event after commit. Failures are logged, never returned.
func publish(ctx context.Context, publisher EventPublisher, event string, payload interface{}) {
	if publisher == nil {
		return
	}
	if err := publisher.Publish(ctx, event, payload); err != nil {
		logrus.WithFields(logrus.Fields{"event": event}).Warnf("Failed to publish event: %v", err)
	}
}

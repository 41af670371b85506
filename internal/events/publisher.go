package events

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/nats-io/nats.go"
	"github.com/sirupsen/logrus"

	"order-matching-service/internal/models"
)

// Subjects published by the service
const (
	SubjectActivityPrefix = "order-matching.activity."
)

// ActivityEvent is the payload published for every activity log entry
type ActivityEvent struct {
	EventID      string                 `json:"eventId"`
	ActivityType string                 `json:"activityType"`
	ResourceID   string                 `json:"resourceId,omitempty"`
	Success      bool                   `json:"success"`
	ErrorMessage string                 `json:"errorMessage,omitempty"`
	Details      map[string]interface{} `json:"details,omitempty"`
	OccurredAt   string                 `json:"occurredAt"`
}

// Publisher emits events. Implementations must not block the caller for long.
type Publisher interface {
	PublishActivity(ctx context.Context, log *models.ActivityLog) error
	Close()
}

// NATSPublisher publishes events over core NATS
type NATSPublisher struct {
	conn   *nats.Conn
	logger *logrus.Entry
}

// NewNATSPublisher connects to NATS
func NewNATSPublisher(natsURL string, logger *logrus.Logger) (*NATSPublisher, error) {
	entry := logger.WithField("component", "events")

	nc, err := nats.Connect(natsURL,
		nats.Name("order-matching-service"),
		nats.RetryOnFailedConnect(true),
		nats.MaxReconnects(-1),
		nats.ReconnectWait(2*time.Second),
		nats.ReconnectHandler(func(nc *nats.Conn) {
			entry.WithField("url", nc.ConnectedUrl()).Info("NATS reconnected")
		}),
		nats.DisconnectErrHandler(func(nc *nats.Conn, err error) {
			entry.WithError(err).Warn("NATS disconnected")
		}),
		nats.ClosedHandler(func(nc *nats.Conn) {
			entry.Info("NATS connection closed")
		}),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to NATS: %w", err)
	}

	return &NATSPublisher{conn: nc, logger: entry}, nil
}

// PublishActivity publishes an activity log entry on order-matching.activity.<type>
func (p *NATSPublisher) PublishActivity(ctx context.Context, log *models.ActivityLog) error {
	data, err := json.Marshal(NewActivityEvent(log))
	if err != nil {
		return fmt.Errorf("failed to marshal activity event: %w", err)
	}
	subject := SubjectActivityPrefix + string(log.ActivityType)
	if err := p.conn.Publish(subject, data); err != nil {
		return fmt.Errorf("failed to publish %s: %w", subject, err)
	}
	return nil
}

// Close drains and closes the connection
func (p *NATSPublisher) Close() {
	if p.conn != nil {
		if err := p.conn.Drain(); err != nil {
			p.conn.Close()
		}
	}
}

// NewActivityEvent converts an activity log into its wire form
func NewActivityEvent(log *models.ActivityLog) ActivityEvent {
	event := ActivityEvent{
		EventID:      uuid.New().String(),
		ActivityType: string(log.ActivityType),
		Success:      log.Success,
		ErrorMessage: log.ErrorMessage,
		Details:      log.Details,
		OccurredAt:   log.ActivityDate.UTC().Format(time.RFC3339),
	}
	if log.ResourceID != nil {
		event.ResourceID = *log.ResourceID
	}
	return event
}

// NoopPublisher discards events; used when NATS is not configured
type NoopPublisher struct{}

func (NoopPublisher) PublishActivity(context.Context, *models.ActivityLog) error { return nil }
func (NoopPublisher) Close()                                                     {}

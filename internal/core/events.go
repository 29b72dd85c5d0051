package core

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/luxemuse/luxe-muse-backend/internal/models"
	"github.com/luxemuse/luxe-muse-backend/pkg/messagequeue"
)

// Event types.
const (
	EventProfileCreated  = "profile.created"
	EventCreationCreated = "creation.created"
	EventCreationDeleted = "creation.deleted"
)

// Event is the JSON payload published on the events queue.
type Event struct {
	Type        string      `json:"type"`
	UserID      string      `json:"userId"`
	Email       string      `json:"email,omitempty"`
	DisplayName string      `json:"displayName,omitempty"`
	Role        models.Role `json:"role,omitempty"`
	CreationID  string      `json:"creationId,omitempty"`
	OccurredAt  time.Time   `json:"occurredAt"`
}

type queuePublisher struct {
	queue     messagequeue.MessageQueue
	queueName string
	logger    *zap.Logger
}

// NewEventPublisher publishes events to queueName. A nil queue yields a
// publisher that drops everything.
func NewEventPublisher(queue messagequeue.MessageQueue, queueName string, logger *zap.Logger) EventPublisher {
	if logger == nil {
		logger = zap.NewNop()
	}
	if queue == nil {
		return nopPublisher{}
	}
	return &queuePublisher{queue: queue, queueName: queueName, logger: logger}
}

func (p *queuePublisher) Publish(ctx context.Context, event Event) error {
	if event.OccurredAt.IsZero() {
		event.OccurredAt = time.Now().UTC()
	}
	body, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("marshal %s event: %w", event.Type, err)
	}
	if err := p.queue.Publish(ctx, p.queueName, body); err != nil {
		return fmt.Errorf("publish %s event: %w", event.Type, err)
	}
	p.logger.Debug("Event published", zap.String("type", event.Type), zap.String("uid", event.UserID))
	return nil
}

type nopPublisher struct{}

func (nopPublisher) Publish(context.Context, Event) error { return nil }

// publishBestEffort logs instead of failing the surrounding operation.
func publishBestEffort(ctx context.Context, events EventPublisher, logger *zap.Logger, event Event) {
	if err := events.Publish(ctx, event); err != nil {
		logger.Warn("Failed to publish event", zap.String("type", event.Type), zap.String("uid", event.UserID), zap.Error(err))
	}
}

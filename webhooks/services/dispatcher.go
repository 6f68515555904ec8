package services

import (
	"context"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"product-importer-backend/webhooks/repositories"
)

// DeliveryEnqueuer hands one webhook delivery to the background queue. Each
// delivery runs on its own worker slot with its own timeout; none block the
// triggering action or each other.
type DeliveryEnqueuer interface {
	EnqueueWebhookDelivery(ctx context.Context, webhookID uuid.UUID, event EventType, data interface{}) error
}

// Dispatcher fans a lifecycle event out to every enabled webhook subscribed
// to it. Dispatch is fire-and-forget: a lookup or enqueue failure is logged
// and never fails the action that triggered the event.
type Dispatcher struct {
	repo     repositories.WebhookRepository
	enqueuer DeliveryEnqueuer
	logger   *zap.Logger
}

func NewDispatcher(repo repositories.WebhookRepository, enqueuer DeliveryEnqueuer, logger *zap.Logger) *Dispatcher {
	return &Dispatcher{
		repo:     repo,
		enqueuer: enqueuer,
		logger:   logger,
	}
}

func (d *Dispatcher) Dispatch(ctx context.Context, event EventType, data interface{}) {
	webhooks, err := d.repo.GetEnabledWebhooksByEvent(ctx, string(event))
	if err != nil {
		d.logger.Error("failed to look up webhooks for event",
			zap.String("event", string(event)),
			zap.Error(err),
		)
		return
	}

	for _, webhook := range webhooks {
		if err := d.enqueuer.EnqueueWebhookDelivery(ctx, webhook.ID, event, data); err != nil {
			d.logger.Error("failed to enqueue webhook delivery",
				zap.String("webhookID", webhook.ID.String()),
				zap.String("event", string(event)),
				zap.Error(err),
			)
			continue
		}
	}

	if len(webhooks) > 0 {
		d.logger.Info("dispatched webhook event",
			zap.String("event", string(event)),
			zap.Int("webhooks", len(webhooks)),
		)
	}
}

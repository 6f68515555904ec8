package tasks

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/google/uuid"
	"github.com/hibiken/asynq"

	webhook_services "product-importer-backend/webhooks/services"
)

// Enqueuer hands work to the Redis-backed task queue. It is passed into the
// components that need it rather than looked up from ambient state.
type Enqueuer struct {
	client *asynq.Client
}

func NewEnqueuer(client *asynq.Client) *Enqueuer {
	return &Enqueuer{client: client}
}

// EnqueueImportProcess schedules the pipeline run for an accepted upload.
func (e *Enqueuer) EnqueueImportProcess(ctx context.Context, jobID uuid.UUID, filePath string) error {
	task, err := NewImportProcessTask(jobID, filePath)
	if err != nil {
		return err
	}
	if _, err := e.client.EnqueueContext(ctx, task); err != nil {
		return fmt.Errorf("enqueueing import task: %w", err)
	}
	return nil
}

// EnqueueWebhookDelivery schedules one webhook delivery. Implements the
// dispatcher's DeliveryEnqueuer.
func (e *Enqueuer) EnqueueWebhookDelivery(ctx context.Context, webhookID uuid.UUID, event webhook_services.EventType, data interface{}) error {
	encoded, err := json.Marshal(data)
	if err != nil {
		return fmt.Errorf("encoding webhook data: %w", err)
	}
	task, err := NewWebhookDeliveryTask(webhookID, string(event), encoded)
	if err != nil {
		return err
	}
	if _, err := e.client.EnqueueContext(ctx, task); err != nil {
		return fmt.Errorf("enqueueing webhook delivery: %w", err)
	}
	return nil
}

package tasks

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/hibiken/asynq"
	"go.uber.org/zap"

	import_services "product-importer-backend/imports/services"
	"product-importer-backend/webhooks/repositories"
	webhook_services "product-importer-backend/webhooks/services"
)

// Handlers binds queue task types to their workers. All dependencies are
// injected at construction; handlers hold no package-level state.
type Handlers struct {
	pipeline    *import_services.Pipeline
	webhookRepo repositories.WebhookRepository
	sender      *webhook_services.Sender
	logger      *zap.Logger
}

func NewHandlers(
	pipeline *import_services.Pipeline,
	webhookRepo repositories.WebhookRepository,
	sender *webhook_services.Sender,
	logger *zap.Logger,
) *Handlers {
	return &Handlers{
		pipeline:    pipeline,
		webhookRepo: webhookRepo,
		sender:      sender,
		logger:      logger,
	}
}

// Mux routes task types to handlers.
func (h *Handlers) Mux() *asynq.ServeMux {
	mux := asynq.NewServeMux()
	mux.HandleFunc(TypeImportProcess, h.HandleImportProcess)
	mux.HandleFunc(TypeWebhookDeliver, h.HandleWebhookDelivery)
	return mux
}

func (h *Handlers) HandleImportProcess(ctx context.Context, t *asynq.Task) error {
	var payload ImportProcessPayload
	if err := json.Unmarshal(t.Payload(), &payload); err != nil {
		return fmt.Errorf("decoding import task payload: %v: %w", err, asynq.SkipRetry)
	}

	h.logger.Info("processing import job",
		zap.String("jobID", payload.JobID.String()),
		zap.String("file", payload.FilePath),
	)
	return h.pipeline.Run(ctx, payload.JobID, payload.FilePath)
}

func (h *Handlers) HandleWebhookDelivery(ctx context.Context, t *asynq.Task) error {
	var payload WebhookDeliveryPayload
	if err := json.Unmarshal(t.Payload(), &payload); err != nil {
		return fmt.Errorf("decoding webhook task payload: %v: %w", err, asynq.SkipRetry)
	}

	webhook, err := h.webhookRepo.GetWebhookByID(ctx, payload.WebhookID)
	if err != nil {
		// Webhook removed between dispatch and delivery: nothing to do.
		h.logger.Warn("webhook not found for delivery",
			zap.String("webhookID", payload.WebhookID.String()),
		)
		return nil
	}
	if !webhook.IsEnabled {
		// Disabled after dispatch: never attempt delivery.
		return nil
	}

	var data interface{}
	if err := json.Unmarshal(payload.Data, &data); err != nil {
		return fmt.Errorf("decoding webhook event data: %v: %w", err, asynq.SkipRetry)
	}

	result, err := h.sender.Send(ctx, webhook, webhook_services.EventType(payload.Event), data)
	if err != nil {
		return err
	}

	// Retry server-side and transport failures; client errors (4xx) stay as
	// recorded outcomes.
	if !result.Success && (result.StatusCode == nil || *result.StatusCode >= 500) {
		return fmt.Errorf("webhook delivery failed: %s", result.Error)
	}
	return nil
}

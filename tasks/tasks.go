package tasks

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"github.com/hibiken/asynq"
)

// Task type names routed by the asynq mux.
const (
	TypeImportProcess  = "import:process"
	TypeWebhookDeliver = "webhook:deliver"
)

// Queue names. Imports and webhook deliveries run on separate queues so a
// long import never starves webhook delivery slots.
const (
	QueueImports  = "imports"
	QueueWebhooks = "webhooks"
)

// ImportProcessPayload identifies one accepted upload to process.
type ImportProcessPayload struct {
	JobID    uuid.UUID `json:"job_id"`
	FilePath string    `json:"file_path"`
}

// WebhookDeliveryPayload carries one webhook delivery: target, event and the
// already-encoded event data.
type WebhookDeliveryPayload struct {
	WebhookID uuid.UUID       `json:"webhook_id"`
	Event     string          `json:"event"`
	Data      json.RawMessage `json:"data"`
}

func NewImportProcessTask(jobID uuid.UUID, filePath string) (*asynq.Task, error) {
	payload, err := json.Marshal(ImportProcessPayload{JobID: jobID, FilePath: filePath})
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TypeImportProcess, payload,
		asynq.Queue(QueueImports),
		asynq.MaxRetry(0), // the pipeline reaches a terminal state on its own
		asynq.Timeout(2*time.Hour),
	), nil
}

func NewWebhookDeliveryTask(webhookID uuid.UUID, event string, data json.RawMessage) (*asynq.Task, error) {
	payload, err := json.Marshal(WebhookDeliveryPayload{WebhookID: webhookID, Event: event, Data: data})
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TypeWebhookDeliver, payload,
		asynq.Queue(QueueWebhooks),
		asynq.MaxRetry(3),
		asynq.Timeout(time.Minute),
	), nil
}

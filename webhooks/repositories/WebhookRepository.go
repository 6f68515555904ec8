package repositories

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"product-importer-backend/db/models"
)

// WebhookRepository reads externally managed webhook configuration and
// records delivery outcomes. Configuration create/update/delete is not part
// of this service's surface.
type WebhookRepository interface {
	GetWebhookByID(ctx context.Context, id uuid.UUID) (*models.Webhook, error)
	GetEnabledWebhooksByEvent(ctx context.Context, eventType string) ([]models.Webhook, error)
	RecordDeliveryOutcome(ctx context.Context, webhookID uuid.UUID, responseCode *int, responseTimeMs int64, success bool) error
	GetFilteredWebhooks(ctx context.Context, pageSize int, offset int, filters map[string]string) ([]models.Webhook, int64, error)
}

type webhookRepository struct {
	db *gorm.DB
}

func NewWebhookRepository(db *gorm.DB) WebhookRepository {
	return &webhookRepository{db: db}
}

func (r *webhookRepository) GetWebhookByID(ctx context.Context, id uuid.UUID) (*models.Webhook, error) {
	var webhook models.Webhook
	err := r.db.WithContext(ctx).First(&webhook, "id = ?", id).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("webhook '%s' not found", id)
		}
		return nil, err
	}
	return &webhook, nil
}

func (r *webhookRepository) GetEnabledWebhooksByEvent(ctx context.Context, eventType string) ([]models.Webhook, error) {
	var webhooks []models.Webhook
	err := r.db.WithContext(ctx).
		Where("event_type = ? AND is_enabled = ?", eventType, true).
		Find(&webhooks).Error
	return webhooks, err
}

// RecordDeliveryOutcome updates only the delivery-outcome fields in one
// UPDATE. The failure counter resets on success and increments otherwise.
func (r *webhookRepository) RecordDeliveryOutcome(ctx context.Context, webhookID uuid.UUID, responseCode *int, responseTimeMs int64, success bool) error {
	fields := map[string]interface{}{
		"last_triggered_at":     time.Now().UTC(),
		"last_response_code":    responseCode,
		"last_response_time_ms": responseTimeMs,
	}
	if success {
		fields["failure_count"] = 0
	} else {
		fields["failure_count"] = gorm.Expr("failure_count + 1")
	}
	return r.db.WithContext(ctx).
		Model(&models.Webhook{}).
		Where("id = ?", webhookID).
		Updates(fields).Error
}

// GetFilteredWebhooks retrieves webhooks with filtering and pagination
func (r *webhookRepository) GetFilteredWebhooks(ctx context.Context, pageSize int, offset int, filters map[string]string) ([]models.Webhook, int64, error) {
	var webhooks []models.Webhook
	var total int64

	db := r.db.WithContext(ctx).Model(&models.Webhook{})

	for key, value := range filters {
		switch key {
		case "event_type":
			db = db.Where("event_type = ?", value)
		case "enabled":
			if strings.ToLower(value) == "true" {
				db = db.Where("is_enabled = ?", true)
			} else if strings.ToLower(value) == "false" {
				db = db.Where("is_enabled = ?", false)
			}
		case "name":
			db = db.Where("name ILIKE ?", "%"+value+"%")
		}
	}

	if err := db.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	if err := db.Limit(pageSize).Offset(offset).Order("created_at DESC").Find(&webhooks).Error; err != nil {
		return nil, 0, err
	}

	return webhooks, total, nil
}

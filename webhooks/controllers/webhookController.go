package controllers

import (
	"strings"
	"time"

	"product-importer-backend/config"
	"product-importer-backend/webhooks/repositories"
	"product-importer-backend/webhooks/services"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

type WebhookController struct {
	WebhookRepo repositories.WebhookRepository
	Sender      *services.Sender
}

func (wc *WebhookController) GetFilteredWebhooksController(c *fiber.Ctx) error {
	pageSize := c.QueryInt("page_size", 20)
	if pageSize <= 0 {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid page_size parameter"})
	}

	page := c.QueryInt("page", 1)
	if page <= 0 {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid page parameter"})
	}

	cleanQueryParam := func(param string) string {
		param = strings.TrimSpace(param)
		if param == "" || strings.ToLower(param) == "null" {
			return ""
		}
		return param
	}

	filters := make(map[string]string)
	if eventType := cleanQueryParam(c.Query("event_type")); eventType != "" {
		filters["event_type"] = eventType
	}
	if enabled := cleanQueryParam(c.Query("enabled")); enabled != "" {
		filters["enabled"] = enabled
	}
	if name := cleanQueryParam(c.Query("name")); name != "" {
		filters["name"] = name
	}

	offset := (page - 1) * pageSize

	webhooks, total, err := wc.WebhookRepo.GetFilteredWebhooks(c.Context(), pageSize, offset, filters)
	if err != nil {
		config.Logger.Error("Failed to fetch filtered webhooks", zap.Error(err))
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Failed to fetch webhooks"})
	}

	totalPages := (total + int64(pageSize) - 1) / int64(pageSize)
	return c.Status(fiber.StatusOK).JSON(fiber.Map{
		"data": webhooks,
		"meta": fiber.Map{
			"current_page": page,
			"page_size":    pageSize,
			"total":        total,
			"total_pages":  totalPages,
		},
	})
}

// TestWebhookController sends one synchronous test delivery to the endpoint
// and reports the outcome without going through the queue.
func (wc *WebhookController) TestWebhookController(c *fiber.Ctx) error {
	webhookID, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid webhook ID"})
	}

	webhook, err := wc.WebhookRepo.GetWebhookByID(c.Context(), webhookID)
	if err != nil {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "Webhook not found"})
	}

	result, err := wc.Sender.Send(c.Context(), webhook, services.EventType(webhook.EventType), fiber.Map{
		"test":       true,
		"webhook_id": webhook.ID.String(),
		"sent_at":    time.Now().UTC(),
	})
	if err != nil {
		config.Logger.Error("Failed to send test delivery",
			zap.String("webhook_id", webhookID.String()),
			zap.Error(err))
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Failed to send test delivery"})
	}

	return c.Status(fiber.StatusOK).JSON(fiber.Map{
		"webhook_id":       webhook.ID,
		"success":          result.Success,
		"status_code":      result.StatusCode,
		"response_time_ms": result.ResponseTimeMs,
		"error":            result.Error,
	})
}

// GetEventTypesController lists the event types a webhook can subscribe to.
func (wc *WebhookController) GetEventTypesController(c *fiber.Ctx) error {
	eventTypes := make([]fiber.Map, 0, len(services.AllEventTypes()))
	for _, eventType := range services.AllEventTypes() {
		eventTypes = append(eventTypes, fiber.Map{
			"value": eventType,
			"label": eventType.Label(),
		})
	}
	return c.Status(fiber.StatusOK).JSON(fiber.Map{"event_types": eventTypes})
}

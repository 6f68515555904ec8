package routes

import (
	"product-importer-backend/webhooks/controllers"
	"product-importer-backend/webhooks/repositories"
	"product-importer-backend/webhooks/services"

	"github.com/gofiber/fiber/v2"
)

func WebhookRouterInit(
	app *fiber.App,
	webhookRepository repositories.WebhookRepository,
	sender *services.Sender,
) {
	webhookController := &controllers.WebhookController{
		WebhookRepo: webhookRepository,
		Sender:      sender,
	}

	webhookRoutes := app.Group("/webhooks")
	webhookRoutes.Get("/", webhookController.GetFilteredWebhooksController)
	webhookRoutes.Get("/events/types", webhookController.GetEventTypesController)
	webhookRoutes.Post("/:id/test", webhookController.TestWebhookController)
}

package routes

import (
	"product-importer-backend/config"
	"product-importer-backend/imports/controllers"
	"product-importer-backend/imports/repositories"
	"product-importer-backend/imports/services"
	"product-importer-backend/tasks"
	"product-importer-backend/websocket"
	webhook_services "product-importer-backend/webhooks/services"

	"github.com/gofiber/fiber/v2"
)

func ImportRouterInit(
	app *fiber.App,
	jobRepository repositories.ImportJobRepository,
	cacheRepository *repositories.ProgressCacheRepository,
	statusService *services.StatusService,
	enqueuer *tasks.Enqueuer,
	dispatcher *webhook_services.Dispatcher,
	streamHandler *websocket.StreamHandler,
	settings config.ImportSettings,
) {
	importController := &controllers.ImportController{
		JobRepo:    jobRepository,
		Cache:      cacheRepository,
		Status:     statusService,
		Enqueuer:   enqueuer,
		Dispatcher: dispatcher,
		Settings:   settings,
	}

	importRoutes := app.Group("/imports")
	importRoutes.Post("/upload", importController.UploadImportController)
	importRoutes.Get("/", importController.GetFilteredImportsController)
	importRoutes.Get("/:id/status", importController.GetImportStatusController)
	importRoutes.Get("/:id/errors", importController.GetImportErrorsController)
	importRoutes.Delete("/:id", importController.DeleteImportController)

	importRoutes.Use("/:id/stream", streamHandler.Upgrade)
	importRoutes.Get("/:id/stream", streamHandler.HandleImportStream())
}

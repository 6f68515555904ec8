package controllers

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"product-importer-backend/config"
	"product-importer-backend/db/models"
	"product-importer-backend/imports/repositories"
	"product-importer-backend/imports/services"
	"product-importer-backend/tasks"
	webhook_services "product-importer-backend/webhooks/services"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

type ImportController struct {
	JobRepo    repositories.ImportJobRepository
	Cache      *repositories.ProgressCacheRepository
	Status     *services.StatusService
	Enqueuer   *tasks.Enqueuer
	Dispatcher *webhook_services.Dispatcher
	Settings   config.ImportSettings
}

// UploadImportController accepts a product file, records a pending job and
// hands processing to the background worker. The response returns as soon
// as the job is queued; progress is followed via the status endpoint or the
// websocket stream.
func (ic *ImportController) UploadImportController(c *fiber.Ctx) error {
	file, err := c.FormFile("file")
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Missing 'file' field in FormData"})
	}

	format, err := sourceFormatFromFilename(file.Filename)
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": err.Error()})
	}

	if err := os.MkdirAll(ic.Settings.UploadDir, 0o755); err != nil {
		config.Logger.Error("Failed to create upload directory", zap.Error(err))
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Failed to store uploaded file"})
	}

	jobID := uuid.New()
	storedPath := filepath.Join(ic.Settings.UploadDir, fmt.Sprintf("%s.%s", jobID, format))
	if err := c.SaveFile(file, storedPath); err != nil {
		config.Logger.Error("Failed to save uploaded file", zap.Error(err))
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Failed to store uploaded file"})
	}

	job := &models.ImportJob{
		ID:           jobID,
		Filename:     file.Filename,
		SourceFormat: format,
		Status:       models.ImportStatusPending,
		Message:      "Import queued",
	}
	if _, err := ic.JobRepo.CreateImportJob(c.Context(), job); err != nil {
		os.Remove(storedPath)
		config.Logger.Error("Failed to create import job", zap.Error(err))
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Failed to create import job"})
	}

	if err := ic.Enqueuer.EnqueueImportProcess(c.Context(), job.ID, storedPath); err != nil {
		config.Logger.Error("Failed to enqueue import job", zap.String("job_id", job.ID.String()), zap.Error(err))
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Failed to queue import job"})
	}

	ic.Dispatcher.Dispatch(c.Context(), webhook_services.EventImportStarted, fiber.Map{
		"job_id":   job.ID.String(),
		"filename": job.Filename,
	})

	config.Logger.Info("Import job queued",
		zap.String("job_id", job.ID.String()),
		zap.String("filename", job.Filename))

	return c.Status(fiber.StatusAccepted).JSON(fiber.Map{
		"job_id":   job.ID,
		"status":   job.Status,
		"filename": job.Filename,
		"message":  "Import queued. Poll the status endpoint or subscribe to the progress stream.",
	})
}

func sourceFormatFromFilename(filename string) (models.ImportSourceFormat, error) {
	switch strings.ToLower(filepath.Ext(filename)) {
	case ".csv":
		return models.ImportSourceCSV, nil
	case ".xlsx":
		return models.ImportSourceXLSX, nil
	default:
		return "", fmt.Errorf("unsupported file type '%s', expected .csv or .xlsx", filepath.Ext(filename))
	}
}

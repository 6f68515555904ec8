package controllers

import (
	"product-importer-backend/config"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// GetImportStatusController returns the job's latest committed snapshot.
// Running jobs are served from the progress cache, finished or evicted ones
// from the database.
func (ic *ImportController) GetImportStatusController(c *fiber.Ctx) error {
	jobID, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid import job ID"})
	}

	snapshot, err := ic.Status.GetSnapshot(c.Context(), jobID)
	if err != nil {
		config.Logger.Error("Failed to load import status",
			zap.String("job_id", jobID.String()),
			zap.Error(err))
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "Import job not found"})
	}

	return c.Status(fiber.StatusOK).JSON(snapshot)
}

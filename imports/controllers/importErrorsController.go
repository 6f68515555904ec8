package controllers

import (
	"product-importer-backend/config"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// GetImportErrorsController returns the persisted row-error sample for a
// job. At most 100 errors are stored per job; the job's error_count is the
// true total.
func (ic *ImportController) GetImportErrorsController(c *fiber.Ctx) error {
	jobID, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid import job ID"})
	}

	job, err := ic.JobRepo.GetImportJob(c.Context(), jobID.String())
	if err != nil {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "Import job not found"})
	}

	limit := c.QueryInt("limit", 100)
	rowErrors, err := ic.JobRepo.GetRowErrors(c.Context(), jobID.String(), limit)
	if err != nil {
		config.Logger.Error("Failed to fetch import row errors",
			zap.String("job_id", jobID.String()),
			zap.Error(err))
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Failed to fetch import errors"})
	}

	return c.Status(fiber.StatusOK).JSON(fiber.Map{
		"job_id":      job.ID,
		"error_count": job.ErrorCount,
		"errors":      rowErrors,
	})
}

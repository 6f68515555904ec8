package controllers

import (
	"fmt"
	"os"
	"path/filepath"

	"product-importer-backend/config"
	"product-importer-backend/db/models"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// DeleteImportController removes a finished job with its row errors, its
// cached progress entry and any leftover upload file. Jobs still pending or
// running cannot be deleted while the worker may touch them.
func (ic *ImportController) DeleteImportController(c *fiber.Ctx) error {
	jobID, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid import job ID"})
	}

	job, err := ic.JobRepo.GetImportJob(c.Context(), jobID.String())
	if err != nil {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "Import job not found"})
	}

	if !job.Status.IsTerminal() {
		return c.Status(fiber.StatusConflict).JSON(fiber.Map{
			"error": fmt.Sprintf("Cannot delete a job with status '%s'", job.Status),
		})
	}

	if err := ic.JobRepo.DeleteImportJob(c.Context(), jobID.String()); err != nil {
		config.Logger.Error("Failed to delete import job",
			zap.String("job_id", jobID.String()),
			zap.Error(err))
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Failed to delete import job"})
	}

	if err := ic.Cache.DeleteSnapshot(c.Context(), jobID.String()); err != nil {
		config.Logger.Warn("Failed to delete cached progress",
			zap.String("job_id", jobID.String()),
			zap.Error(err))
	}

	// Uploads are stored under the job ID; completed runs normally removed
	// theirs already.
	for _, format := range []models.ImportSourceFormat{models.ImportSourceCSV, models.ImportSourceXLSX} {
		os.Remove(filepath.Join(ic.Settings.UploadDir, fmt.Sprintf("%s.%s", jobID, format)))
	}

	return c.Status(fiber.StatusOK).JSON(fiber.Map{"message": "Import job deleted"})
}

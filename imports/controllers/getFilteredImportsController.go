package controllers

import (
	"strings"

	"product-importer-backend/config"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"
)

func (ic *ImportController) GetFilteredImportsController(c *fiber.Ctx) error {
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
	if status := cleanQueryParam(c.Query("status")); status != "" {
		filters["status"] = status
	}
	if filename := cleanQueryParam(c.Query("filename")); filename != "" {
		filters["filename"] = filename
	}
	if startDate := cleanQueryParam(c.Query("start_date")); startDate != "" {
		filters["start_date"] = startDate
	}
	if endDate := cleanQueryParam(c.Query("end_date")); endDate != "" {
		filters["end_date"] = endDate
	}

	offset := (page - 1) * pageSize

	jobs, total, err := ic.JobRepo.GetFilteredImportJobs(c.Context(), pageSize, offset, filters)
	if err != nil {
		config.Logger.Error("Failed to fetch filtered import jobs", zap.Error(err))
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Failed to fetch import jobs"})
	}

	totalPages := (total + int64(pageSize) - 1) / int64(pageSize)
	return c.Status(fiber.StatusOK).JSON(fiber.Map{
		"data": jobs,
		"meta": fiber.Map{
			"current_page": page,
			"page_size":    pageSize,
			"total":        total,
			"total_pages":  totalPages,
		},
	})
}

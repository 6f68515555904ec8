package controllers

import (
	"product-importer-backend/config"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

func (pc *ProductController) GetProductController(c *fiber.Ctx) error {
	id, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid product ID"})
	}

	product, err := pc.ProductRepo.GetProductByID(c.Context(), id)
	if err != nil {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "Product not found"})
	}

	return c.Status(fiber.StatusOK).JSON(product)
}

// GetProductStatsController reports the catalogue totals shown on the
// importer dashboard.
func (pc *ProductController) GetProductStatsController(c *fiber.Ctx) error {
	stats, err := pc.ProductRepo.GetProductStats(c.Context())
	if err != nil {
		config.Logger.Error("Failed to fetch product stats", zap.Error(err))
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Failed to fetch product stats"})
	}

	return c.Status(fiber.StatusOK).JSON(stats)
}

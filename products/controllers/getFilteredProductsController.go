package controllers

import (
	"strings"

	"product-importer-backend/config"
	"product-importer-backend/products/repositories"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"
)

type ProductController struct {
	ProductRepo repositories.ProductRepository
}

func (pc *ProductController) GetFilteredProductsController(c *fiber.Ctx) error {
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
	if sku := cleanQueryParam(c.Query("sku")); sku != "" {
		filters["sku"] = sku
	}
	if name := cleanQueryParam(c.Query("name")); name != "" {
		filters["name"] = name
	}
	if description := cleanQueryParam(c.Query("description")); description != "" {
		filters["description"] = description
	}
	if active := cleanQueryParam(c.Query("active")); active != "" {
		filters["active"] = active
	}
	if search := cleanQueryParam(c.Query("search")); search != "" {
		filters["search"] = search
	}

	offset := (page - 1) * pageSize

	products, total, err := pc.ProductRepo.GetFilteredProducts(c.Context(), pageSize, offset, filters)
	if err != nil {
		config.Logger.Error("Failed to fetch filtered products", zap.Error(err))
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Failed to fetch products"})
	}

	totalPages := (total + int64(pageSize) - 1) / int64(pageSize)
	return c.Status(fiber.StatusOK).JSON(fiber.Map{
		"data": products,
		"meta": fiber.Map{
			"current_page": page,
			"page_size":    pageSize,
			"total":        total,
			"total_pages":  totalPages,
		},
	})
}

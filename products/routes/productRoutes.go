package routes

import (
	"product-importer-backend/products/controllers"
	"product-importer-backend/products/repositories"

	"github.com/gofiber/fiber/v2"
)

func ProductRouterInit(
	app *fiber.App,
	productRepository repositories.ProductRepository,
) {
	productController := &controllers.ProductController{
		ProductRepo: productRepository,
	}

	productRoutes := app.Group("/products")
	productRoutes.Get("/", productController.GetFilteredProductsController)
	productRoutes.Get("/stats/summary", productController.GetProductStatsController)
	productRoutes.Get("/:id", productController.GetProductController)
}

package services

import (
	"context"
	"fmt"
	"strings"

	"product-importer-backend/db/models"
	"product-importer-backend/products/repositories"
	webhook_services "product-importer-backend/webhooks/services"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// ProductInput is a single product mutation. SKU is normalized to upper
// case; two SKUs differing only in case address the same product.
type ProductInput struct {
	SKU         string           `json:"sku"`
	Name        string           `json:"name"`
	Description *string          `json:"description"`
	Price       *decimal.Decimal `json:"price"`
	Quantity    *int             `json:"quantity"`
	IsActive    *bool            `json:"is_active"`
}

// ProductService applies single-product mutations and fires the matching
// lifecycle webhooks. It backs internal tooling and tests; the HTTP surface
// only exposes reads, bulk changes go through the import pipeline.
type ProductService struct {
	repo       repositories.ProductRepository
	dispatcher *webhook_services.Dispatcher
	logger     *zap.Logger
}

func NewProductService(repo repositories.ProductRepository, dispatcher *webhook_services.Dispatcher, logger *zap.Logger) *ProductService {
	return &ProductService{repo: repo, dispatcher: dispatcher, logger: logger}
}

func (s *ProductService) CreateProduct(ctx context.Context, input ProductInput) (*models.Product, error) {
	sku := strings.ToUpper(strings.TrimSpace(input.SKU))
	if sku == "" {
		return nil, fmt.Errorf("sku is required")
	}
	if strings.TrimSpace(input.Name) == "" {
		return nil, fmt.Errorf("name is required")
	}
	if input.Price != nil && input.Price.IsNegative() {
		return nil, fmt.Errorf("price cannot be negative")
	}

	existing, err := s.repo.GetProductBySKU(ctx, sku)
	if err != nil {
		return nil, err
	}
	if existing != nil {
		return nil, fmt.Errorf("product with SKU '%s' already exists", sku)
	}

	product := &models.Product{
		SKU:         sku,
		Name:        strings.TrimSpace(input.Name),
		Description: input.Description,
		Price:       input.Price,
		IsActive:    true,
	}
	if input.Quantity != nil {
		if *input.Quantity < 0 {
			return nil, fmt.Errorf("quantity cannot be negative")
		}
		product.Quantity = *input.Quantity
	}
	if input.IsActive != nil {
		product.IsActive = *input.IsActive
	}

	created, err := s.repo.CreateProduct(ctx, product)
	if err != nil {
		return nil, err
	}

	s.dispatcher.Dispatch(ctx, webhook_services.EventProductCreated, created)
	s.logger.Info("Product created", zap.String("sku", created.SKU))
	return created, nil
}

func (s *ProductService) UpdateProduct(ctx context.Context, id uuid.UUID, input ProductInput) (*models.Product, error) {
	product, err := s.repo.GetProductByID(ctx, id)
	if err != nil {
		return nil, err
	}

	fields := make(map[string]interface{})
	if strings.TrimSpace(input.Name) != "" {
		fields["name"] = strings.TrimSpace(input.Name)
	}
	if input.Description != nil {
		fields["description"] = *input.Description
	}
	if input.Price != nil {
		if input.Price.IsNegative() {
			return nil, fmt.Errorf("price cannot be negative")
		}
		fields["price"] = *input.Price
	}
	if input.Quantity != nil {
		if *input.Quantity < 0 {
			return nil, fmt.Errorf("quantity cannot be negative")
		}
		fields["quantity"] = *input.Quantity
	}
	if input.IsActive != nil {
		fields["is_active"] = *input.IsActive
	}
	if len(fields) == 0 {
		return product, nil
	}

	updated, err := s.repo.UpdateProduct(ctx, product, fields)
	if err != nil {
		return nil, err
	}

	s.dispatcher.Dispatch(ctx, webhook_services.EventProductUpdated, updated)
	s.logger.Info("Product updated", zap.String("sku", updated.SKU))
	return updated, nil
}

func (s *ProductService) DeleteProduct(ctx context.Context, id uuid.UUID) error {
	product, err := s.repo.GetProductByID(ctx, id)
	if err != nil {
		return err
	}

	if err := s.repo.DeleteProduct(ctx, id); err != nil {
		return err
	}

	s.dispatcher.Dispatch(ctx, webhook_services.EventProductDeleted, map[string]interface{}{
		"id":  product.ID.String(),
		"sku": product.SKU,
	})
	s.logger.Info("Product deleted", zap.String("sku", product.SKU))
	return nil
}

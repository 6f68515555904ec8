package repositories

import (
	"context"
	"errors"
	"strings"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgconn"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"product-importer-backend/db/models"
	import_services "product-importer-backend/imports/services"
)

type ProductStats struct {
	Total    int64 `json:"total"`
	Active   int64 `json:"active"`
	Inactive int64 `json:"inactive"`
}

type ProductRepository interface {
	BulkUpsert(ctx context.Context, records []import_services.ProductRecord, columns []string) (import_services.BulkUpsertResult, error)
	UpsertOne(ctx context.Context, record import_services.ProductRecord, columns []string) (created bool, err error)
	IsRowScopedError(err error) bool

	CreateProduct(ctx context.Context, product *models.Product) (*models.Product, error)
	GetProductByID(ctx context.Context, id uuid.UUID) (*models.Product, error)
	GetProductBySKU(ctx context.Context, sku string) (*models.Product, error)
	UpdateProduct(ctx context.Context, product *models.Product, fields map[string]interface{}) (*models.Product, error)
	DeleteProduct(ctx context.Context, id uuid.UUID) error
	GetFilteredProducts(ctx context.Context, pageSize int, offset int, filters map[string]string) ([]models.Product, int64, error)
	GetProductStats(ctx context.Context) (*ProductStats, error)
}

type productRepository struct {
	db *gorm.DB
}

func NewProductRepository(db *gorm.DB) ProductRepository {
	return &productRepository{db: db}
}

// upsertAssignments maps the source file's present columns onto the update
// set: every column the file carries overwrites the stored value, columns
// absent from the file are never touched on update.
func upsertAssignments(columns []string) []string {
	assignments := make([]string, 0, len(columns)+1)
	for _, col := range columns {
		if col == import_services.ColumnSKU {
			continue // conflict key, never reassigned
		}
		assignments = append(assignments, col)
	}
	return append(assignments, "updated_at")
}

func recordToProduct(record import_services.ProductRecord) models.Product {
	return models.Product{
		ID:          uuid.New(),
		SKU:         record.SKU,
		Name:        record.Name,
		Description: record.Description,
		Price:       record.Price,
		Quantity:    record.Quantity,
		IsActive:    record.IsActive,
	}
}

// BulkUpsert applies one ordered batch as a single INSERT ... ON CONFLICT
// matched on the normalized SKU. The created/updated split comes from a
// preceding case-insensitive SKU lookup.
func (r *productRepository) BulkUpsert(ctx context.Context, records []import_services.ProductRecord, columns []string) (import_services.BulkUpsertResult, error) {
	var result import_services.BulkUpsertResult
	if len(records) == 0 {
		return result, nil
	}

	skus := make([]string, len(records))
	rows := make([]models.Product, len(records))
	for i, record := range records {
		skus[i] = record.SKU
		rows[i] = recordToProduct(record)
	}

	var existing []string
	err := r.db.WithContext(ctx).
		Model(&models.Product{}).
		Where("UPPER(sku) IN ?", skus).
		Pluck("sku", &existing).Error
	if err != nil {
		return result, err
	}
	existingSet := make(map[string]struct{}, len(existing))
	for _, sku := range existing {
		existingSet[strings.ToUpper(sku)] = struct{}{}
	}
	for _, sku := range skus {
		if _, ok := existingSet[sku]; ok {
			result.Updated++
		} else {
			result.Created++
		}
	}

	err = r.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "sku"}},
			DoUpdates: clause.AssignmentColumns(upsertAssignments(columns)),
		}).
		Create(&rows).Error
	if err != nil {
		return import_services.BulkUpsertResult{}, err
	}
	return result, nil
}

// UpsertOne applies a single record with the same conflict semantics; used
// for the row-by-row retry after a batch-scoped constraint violation.
func (r *productRepository) UpsertOne(ctx context.Context, record import_services.ProductRecord, columns []string) (bool, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Model(&models.Product{}).
		Where("UPPER(sku) = ?", record.SKU).
		Count(&count).Error
	if err != nil {
		return false, err
	}

	row := recordToProduct(record)
	err = r.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "sku"}},
			DoUpdates: clause.AssignmentColumns(upsertAssignments(columns)),
		}).
		Create(&row).Error
	if err != nil {
		return false, err
	}
	return count == 0, nil
}

// IsRowScopedError distinguishes per-row constraint failures (SQLSTATE class
// 23) from systemic store failures; only the former keep the batch loop alive.
func (r *productRepository) IsRowScopedError(err error) bool {
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return true
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return strings.HasPrefix(pgErr.Code, "23")
	}
	return false
}

func (r *productRepository) CreateProduct(ctx context.Context, product *models.Product) (*models.Product, error) {
	if product.ID == uuid.Nil {
		product.ID = uuid.New()
	}
	product.SKU = strings.ToUpper(product.SKU)
	err := r.db.WithContext(ctx).Create(product).Error
	return product, err
}

func (r *productRepository) GetProductByID(ctx context.Context, id uuid.UUID) (*models.Product, error) {
	var product models.Product
	err := r.db.WithContext(ctx).First(&product, "id = ?", id).Error
	if err != nil {
		return nil, err
	}
	return &product, nil
}

func (r *productRepository) GetProductBySKU(ctx context.Context, sku string) (*models.Product, error) {
	var product models.Product
	err := r.db.WithContext(ctx).First(&product, "UPPER(sku) = ?", strings.ToUpper(sku)).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &product, nil
}

func (r *productRepository) UpdateProduct(ctx context.Context, product *models.Product, fields map[string]interface{}) (*models.Product, error) {
	if err := r.db.WithContext(ctx).Model(product).Updates(fields).Error; err != nil {
		return nil, err
	}
	return r.GetProductByID(ctx, product.ID)
}

func (r *productRepository) DeleteProduct(ctx context.Context, id uuid.UUID) error {
	return r.db.WithContext(ctx).Delete(&models.Product{}, "id = ?", id).Error
}

// GetFilteredProducts retrieves products with filtering and pagination
func (r *productRepository) GetFilteredProducts(ctx context.Context, pageSize int, offset int, filters map[string]string) ([]models.Product, int64, error) {
	var products []models.Product
	var total int64

	db := r.db.WithContext(ctx).Model(&models.Product{})

	for key, value := range filters {
		switch key {
		case "sku":
			db = db.Where("sku ILIKE ?", "%"+value+"%")
		case "name":
			db = db.Where("name ILIKE ?", "%"+value+"%")
		case "description":
			db = db.Where("description ILIKE ?", "%"+value+"%")
		case "active":
			if strings.ToLower(value) == "true" {
				db = db.Where("is_active = ?", true)
			} else if strings.ToLower(value) == "false" {
				db = db.Where("is_active = ?", false)
			}
		case "search":
			term := "%" + value + "%"
			db = db.Where("sku ILIKE ? OR name ILIKE ? OR description ILIKE ?", term, term, term)
		}
	}

	if err := db.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	if err := db.Limit(pageSize).Offset(offset).Order("created_at DESC").Find(&products).Error; err != nil {
		return nil, 0, err
	}

	return products, total, nil
}

func (r *productRepository) GetProductStats(ctx context.Context) (*ProductStats, error) {
	stats := &ProductStats{}
	db := r.db.WithContext(ctx).Model(&models.Product{})

	if err := db.Count(&stats.Total).Error; err != nil {
		return nil, err
	}
	if err := r.db.WithContext(ctx).Model(&models.Product{}).Where("is_active = ?", true).Count(&stats.Active).Error; err != nil {
		return nil, err
	}
	stats.Inactive = stats.Total - stats.Active
	return stats, nil
}

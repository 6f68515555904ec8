package repositories

import (
	"context"
	"errors"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/assert"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"

	import_services "product-importer-backend/imports/services"
)

func setupMockDB(t *testing.T) (ProductRepository, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	assert.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	gormDB, err := gorm.Open(postgres.New(postgres.Config{
		Conn:                 db,
		PreferSimpleProtocol: true,
	}), &gorm.Config{})
	assert.NoError(t, err)

	return NewProductRepository(gormDB), mock
}

func TestUpsertAssignments(t *testing.T) {
	// SKU is the conflict key and is never reassigned; updated_at always is.
	assignments := upsertAssignments([]string{"sku", "name", "price"})
	assert.Equal(t, []string{"name", "price", "updated_at"}, assignments)

	assignments = upsertAssignments([]string{"sku", "name"})
	assert.Equal(t, []string{"name", "updated_at"}, assignments)
}

func TestRecordToProduct(t *testing.T) {
	desc := "Blue widget"
	record := import_services.ProductRecord{
		SKU:         "PROD-001",
		Name:        "Widget",
		Description: &desc,
		Quantity:    3,
		IsActive:    true,
	}

	product := recordToProduct(record)
	assert.NotEqual(t, uuid.Nil, product.ID)
	assert.Equal(t, "PROD-001", product.SKU)
	assert.Equal(t, "Widget", product.Name)
	assert.Equal(t, &desc, product.Description)
	assert.Equal(t, 3, product.Quantity)
	assert.True(t, product.IsActive)
}

func TestIsRowScopedError(t *testing.T) {
	repo, _ := setupMockDB(t)

	assert.True(t, repo.IsRowScopedError(gorm.ErrDuplicatedKey))
	assert.True(t, repo.IsRowScopedError(&pgconn.PgError{Code: "23505"})) // unique_violation
	assert.True(t, repo.IsRowScopedError(&pgconn.PgError{Code: "23502"})) // not_null_violation
	assert.False(t, repo.IsRowScopedError(&pgconn.PgError{Code: "42P01"}))
	assert.False(t, repo.IsRowScopedError(errors.New("connection refused")))
	assert.False(t, repo.IsRowScopedError(nil))
}

func TestGetProductStats(t *testing.T) {
	repo, mock := setupMockDB(t)

	mock.ExpectQuery(`SELECT count\(\*\) FROM "products"`).
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(10))
	mock.ExpectQuery(`SELECT count\(\*\) FROM "products"`).
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(7))

	stats, err := repo.GetProductStats(context.Background())
	assert.NoError(t, err)
	assert.Equal(t, int64(10), stats.Total)
	assert.Equal(t, int64(7), stats.Active)
	assert.Equal(t, int64(3), stats.Inactive)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestGetProductBySKUCaseInsensitive(t *testing.T) {
	repo, mock := setupMockDB(t)
	id := uuid.New()

	mock.ExpectQuery(`SELECT \* FROM "products" WHERE UPPER\(sku\) = \$1`).
		WithArgs("PROD-001", 1).
		WillReturnRows(sqlmock.NewRows([]string{"id", "sku", "name"}).
			AddRow(id.String(), "PROD-001", "Widget"))

	product, err := repo.GetProductBySKU(context.Background(), "prod-001")
	assert.NoError(t, err)
	assert.NotNil(t, product)
	assert.Equal(t, "PROD-001", product.SKU)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestGetProductBySKUNotFound(t *testing.T) {
	repo, mock := setupMockDB(t)

	mock.ExpectQuery(`SELECT \* FROM "products" WHERE UPPER\(sku\) = \$1`).
		WithArgs("MISSING", 1).
		WillReturnRows(sqlmock.NewRows([]string{"id", "sku", "name"}))

	product, err := repo.GetProductBySKU(context.Background(), "missing")
	assert.NoError(t, err)
	assert.Nil(t, product)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestDeleteProductHardDeletes(t *testing.T) {
	repo, mock := setupMockDB(t)
	id := uuid.New()

	// Rows are deleted outright, not tombstoned. A re-import of the SKU
	// afterwards inserts a fresh visible row instead of colliding with a
	// hidden one.
	mock.ExpectBegin()
	mock.ExpectExec(`DELETE FROM "products" WHERE id = \$1`).
		WithArgs(id.String()).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	assert.NoError(t, repo.DeleteProduct(context.Background(), id))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestGetFilteredProductsAppliesFilters(t *testing.T) {
	repo, mock := setupMockDB(t)

	mock.ExpectQuery(`SELECT count\(\*\) FROM "products" WHERE sku ILIKE \$1`).
		WithArgs("%wid%").
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(1))
	mock.ExpectQuery(`SELECT \* FROM "products" WHERE sku ILIKE \$1 .* ORDER BY created_at DESC LIMIT \$2`).
		WithArgs("%wid%", 20).
		WillReturnRows(sqlmock.NewRows([]string{"id", "sku", "name"}).
			AddRow(uuid.New().String(), "WID-1", "Widget"))

	products, total, err := repo.GetFilteredProducts(context.Background(), 20, 0, map[string]string{"sku": "wid"})
	assert.NoError(t, err)
	assert.Equal(t, int64(1), total)
	assert.Len(t, products, 1)
	assert.NoError(t, mock.ExpectationsWereMet())
}

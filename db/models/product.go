package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Product represents one catalog item, keyed by a case-insensitively unique SKU.
// SKUs are stored upper-cased; lookups always compare on UPPER(sku).
type Product struct {
	ID          uuid.UUID        `gorm:"type:uuid;primary_key;" json:"id"`
	SKU         string           `gorm:"column:sku;unique;not null;index" json:"sku"`
	Name        string           `gorm:"not null;index" json:"name"`
	Description *string          `gorm:"type:text" json:"description"`
	Price       *decimal.Decimal `gorm:"type:decimal(10,2)" json:"price"`
	Quantity    int              `gorm:"default:0" json:"quantity"`
	IsActive    bool             `gorm:"default:true;index" json:"is_active"`

	CreatedAt time.Time `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt time.Time `gorm:"autoUpdateTime" json:"updated_at"`
}

package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// ProductSearchFilter holds search and filter criteria for product queries
type ProductSearchFilter struct {
	Query      string     `json:"query,omitempty"`       // name, sku or barcode
	CategoryID *uuid.UUID `json:"category_id,omitempty"` // Filter by category
	Active     *bool      `json:"active,omitempty"`
	Limit      int        `json:"limit,omitempty"`
	Offset     int        `json:"offset,omitempty"`
}

type Category struct {
	ID          uuid.UUID `json:"id" db:"id"`
	TenantID    uuid.UUID `json:"tenant_id" db:"tenant_id"`
	Name        string    `json:"name" db:"name"`
	Description *string   `json:"description" db:"description"`
	CreatedAt   time.Time `json:"created_at" db:"created_at"`
	UpdatedAt   time.Time `json:"updated_at" db:"updated_at"`
}

type Product struct {
	ID          uuid.UUID       `json:"id" db:"id"`
	TenantID    uuid.UUID       `json:"tenant_id" db:"tenant_id"`
	CategoryID  *uuid.UUID      `json:"category_id" db:"category_id"`
	Name        string          `json:"name" db:"name"`
	SKU         *string         `json:"sku" db:"sku"`
	Barcode     *string         `json:"barcode" db:"barcode"`
	Description *string         `json:"description" db:"description"`
	Price       decimal.Decimal `json:"price" db:"price"`
	Cost        decimal.Decimal `json:"cost" db:"cost"`
	Unit        string          `json:"unit" db:"unit"`
	IsActive    bool            `json:"is_active" db:"is_active"`
	Images      []ProductImage  `json:"images,omitempty" db:"-"`
	CreatedAt   time.Time       `json:"created_at" db:"created_at"`
	UpdatedAt   time.Time       `json:"updated_at" db:"updated_at"`
}

type ProductImage struct {
	ID          uuid.UUID `json:"id" db:"id"`
	TenantID    uuid.UUID `json:"tenant_id" db:"tenant_id"`
	ProductID   uuid.UUID `json:"product_id" db:"product_id"`
	ObjectKey   string    `json:"object_key" db:"object_key"`
	ContentType string    `json:"content_type" db:"content_type"`
	IsPrimary   bool      `json:"is_primary" db:"is_primary"`
	URL         string    `json:"url,omitempty" db:"-"`
	CreatedAt   time.Time `json:"created_at" db:"created_at"`
}

package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/paulmach/orb/geojson"
	"github.com/shopspring/decimal"
)

// DeliveryZone is a named polygon around a store with a flat delivery fee.
type DeliveryZone struct {
	ID        uuid.UUID         `json:"id" db:"id"`
	TenantID  uuid.UUID         `json:"tenant_id" db:"tenant_id"`
	StoreID   uuid.UUID         `json:"store_id" db:"store_id"`
	Name      string            `json:"name" db:"name"`
	Fee       decimal.Decimal   `json:"fee" db:"fee"`
	Polygon   *geojson.Geometry `json:"polygon" db:"polygon"`
	IsActive  bool              `json:"is_active" db:"is_active"`
	CreatedAt time.Time         `json:"created_at" db:"created_at"`
	UpdatedAt time.Time         `json:"updated_at" db:"updated_at"`
}

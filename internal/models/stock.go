package models

import (
	"time"

	"github.com/google/uuid"
)

type StockReason string

const (
	StockSale       StockReason = "sale"
	StockRestock    StockReason = "restock"
	StockReturn     StockReason = "return"
	StockDamage     StockReason = "damage"
	StockCorrection StockReason = "correction"
	StockCancel     StockReason = "order_cancelled"
)

func (r StockReason) IsValid() bool {
	switch r {
	case StockSale, StockRestock, StockReturn, StockDamage, StockCorrection, StockCancel:
		return true
	}
	return false
}

// StockLevel is the on-hand quantity of one product in one store.
type StockLevel struct {
	TenantID     uuid.UUID `json:"tenant_id" db:"tenant_id"`
	StoreID      uuid.UUID `json:"store_id" db:"store_id"`
	ProductID    uuid.UUID `json:"product_id" db:"product_id"`
	ProductName  string    `json:"product_name,omitempty" db:"product_name"`
	Quantity     int       `json:"quantity" db:"quantity"`
	ReorderLevel int       `json:"reorder_level" db:"reorder_level"`
	UpdatedAt    time.Time `json:"updated_at" db:"updated_at"`
}

func (s *StockLevel) IsLow() bool {
	return s.Quantity <= s.ReorderLevel
}

type StockMovement struct {
	ID          uuid.UUID   `json:"id" db:"id"`
	TenantID    uuid.UUID   `json:"tenant_id" db:"tenant_id"`
	StoreID     uuid.UUID   `json:"store_id" db:"store_id"`
	ProductID   uuid.UUID   `json:"product_id" db:"product_id"`
	Delta       int         `json:"delta" db:"delta"`
	Reason      StockReason `json:"reason" db:"reason"`
	ReferenceID *uuid.UUID  `json:"reference_id,omitempty" db:"reference_id"`
	ActorID     *uuid.UUID  `json:"actor_id,omitempty" db:"actor_id"`
	CreatedAt   time.Time   `json:"created_at" db:"created_at"`
}

package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

type Store struct {
	ID        uuid.UUID       `json:"id" db:"id"`
	TenantID  uuid.UUID       `json:"tenant_id" db:"tenant_id"`
	Name      string          `json:"name" db:"name"`
	Slug      string          `json:"slug" db:"slug"`
	Address   *string         `json:"address" db:"address"`
	Phone     *string         `json:"phone" db:"phone"`
	Latitude  *float64        `json:"latitude" db:"latitude"`
	Longitude *float64        `json:"longitude" db:"longitude"`
	IsOnline  bool            `json:"is_online" db:"is_online"`
	Currency  string          `json:"currency" db:"currency"`
	TaxRate   decimal.Decimal `json:"tax_rate" db:"tax_rate"`
	CreatedAt time.Time       `json:"created_at" db:"created_at"`
	UpdatedAt time.Time       `json:"updated_at" db:"updated_at"`
}

// HasLocation reports whether both coordinates are set.
func (s *Store) HasLocation() bool {
	return s.Latitude != nil && s.Longitude != nil
}

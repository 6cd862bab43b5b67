package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

type DateRange struct {
	From time.Time `json:"from"`
	To   time.Time `json:"to"`
}

type TopProduct struct {
	ProductID uuid.UUID       `json:"product_id"`
	Name      string          `json:"name"`
	Quantity  int             `json:"quantity"`
	Revenue   decimal.Decimal `json:"revenue"`
}

type DailyRevenue struct {
	Day     time.Time       `json:"day"`
	Orders  int             `json:"orders"`
	Revenue decimal.Decimal `json:"revenue"`
}

// Dashboard is the tenant dashboard for one date range.
type Dashboard struct {
	TenantID          uuid.UUID                         `json:"tenant_id"`
	StoreID           *uuid.UUID                        `json:"store_id,omitempty"`
	Range             DateRange                         `json:"range"`
	OrderCount        int                               `json:"order_count"`
	Revenue           decimal.Decimal                   `json:"revenue"`
	AverageOrderValue decimal.Decimal                   `json:"average_order_value"`
	StatusCounts      map[OrderStatus]int               `json:"status_counts"`
	PaymentsByMethod  map[PaymentMethod]decimal.Decimal `json:"payments_by_method"`
	TopProducts       []TopProduct                      `json:"top_products"`
	DailyRevenue      []DailyRevenue                    `json:"daily_revenue"`
	LowStockCount     int                               `json:"low_stock_count"`
	GeneratedAt       time.Time                         `json:"generated_at"`
}

type TenantRevenue struct {
	TenantID   uuid.UUID       `json:"tenant_id"`
	TenantName string          `json:"tenant_name"`
	Orders     int             `json:"orders"`
	Revenue    decimal.Decimal `json:"revenue"`
}

// PlatformDashboard is the operator view across all tenants.
type PlatformDashboard struct {
	Range           DateRange            `json:"range"`
	TenantsByStatus map[TenantStatus]int `json:"tenants_by_status"`
	OrderCount      int                  `json:"order_count"`
	Revenue         decimal.Decimal      `json:"revenue"`
	ByTenant        []TenantRevenue      `json:"by_tenant"`
	GeneratedAt     time.Time            `json:"generated_at"`
}

// OrderReportRow is one line of the exported order report.
type OrderReportRow struct {
	OrderNumber   int             `json:"order_number"`
	StoreName     string          `json:"store_name"`
	CustomerName  string          `json:"customer_name"`
	Channel       Channel         `json:"channel"`
	Status        OrderStatus     `json:"status"`
	PaymentStatus PaymentStatus   `json:"payment_status"`
	Total         decimal.Decimal `json:"total"`
	CreatedAt     time.Time       `json:"created_at"`
}

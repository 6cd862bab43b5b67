package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

type OrderStatus string

const (
	OrderPending    OrderStatus = "pending"
	OrderConfirmed  OrderStatus = "confirmed"
	OrderProcessing OrderStatus = "processing"
	OrderReady      OrderStatus = "ready"
	OrderPickedUp   OrderStatus = "picked_up"
	OrderInTransit  OrderStatus = "in_transit"
	OrderDelivered  OrderStatus = "delivered"
	OrderCancelled  OrderStatus = "cancelled"
)

// deliveryFlow is the forward path of a delivery order. Pickup orders leave it at ready.
var deliveryFlow = []OrderStatus{
	OrderPending, OrderConfirmed, OrderProcessing, OrderReady,
	OrderPickedUp, OrderInTransit, OrderDelivered,
}

func (s OrderStatus) IsValid() bool {
	switch s {
	case OrderPending, OrderConfirmed, OrderProcessing, OrderReady,
		OrderPickedUp, OrderInTransit, OrderDelivered, OrderCancelled:
		return true
	}
	return false
}

func (s OrderStatus) IsTerminal() bool {
	return s == OrderDelivered || s == OrderCancelled
}

// Next returns the single status that follows s for the given fulfilment.
func (s OrderStatus) Next(f Fulfilment) (OrderStatus, bool) {
	if f == FulfilmentPickup && s == OrderReady {
		return OrderDelivered, true
	}
	for i, st := range deliveryFlow {
		if st == s && i+1 < len(deliveryFlow) {
			return deliveryFlow[i+1], true
		}
	}
	return "", false
}

// CanCancel reports whether an order in s can still be cancelled. Once a rider has the goods it cannot.
func (s OrderStatus) CanCancel() bool {
	switch s {
	case OrderPending, OrderConfirmed, OrderProcessing, OrderReady:
		return true
	}
	return false
}

// CanTransitionTo checks a single step, including cancellation.
func (s OrderStatus) CanTransitionTo(next OrderStatus, f Fulfilment) bool {
	if next == OrderCancelled {
		return s.CanCancel()
	}
	n, ok := s.Next(f)
	return ok && n == next
}

type Channel string

const (
	ChannelPOS    Channel = "pos"
	ChannelPortal Channel = "portal"
)

func (c Channel) IsValid() bool {
	return c == ChannelPOS || c == ChannelPortal
}

type Fulfilment string

const (
	FulfilmentPickup   Fulfilment = "pickup"
	FulfilmentDelivery Fulfilment = "delivery"
)

func (f Fulfilment) IsValid() bool {
	return f == FulfilmentPickup || f == FulfilmentDelivery
}

// OrderSearchFilter holds search and filter criteria for order queries
type OrderSearchFilter struct {
	Query       string       `json:"query,omitempty"` // customer name or phone
	StoreID     *uuid.UUID   `json:"store_id,omitempty"`
	CustomerID  *uuid.UUID   `json:"customer_id,omitempty"`
	Status      *OrderStatus `json:"status,omitempty"`
	Channel     *Channel     `json:"channel,omitempty"`
	CreatedFrom *time.Time   `json:"created_from,omitempty"`
	CreatedTo   *time.Time   `json:"created_to,omitempty"`
	Limit       int          `json:"limit,omitempty"`
	Offset      int          `json:"offset,omitempty"`
}

type Order struct {
	ID              uuid.UUID       `json:"id" db:"id"`
	TenantID        uuid.UUID       `json:"tenant_id" db:"tenant_id"`
	StoreID         uuid.UUID       `json:"store_id" db:"store_id"`
	CustomerID      *uuid.UUID      `json:"customer_id" db:"customer_id"`
	OrderNumber     int             `json:"order_number" db:"order_number"`
	Channel         Channel         `json:"channel" db:"channel"`
	Fulfilment      Fulfilment      `json:"fulfilment" db:"fulfilment"`
	Status          OrderStatus     `json:"status" db:"status"`
	PaymentStatus   PaymentStatus   `json:"payment_status" db:"payment_status"`
	Subtotal        decimal.Decimal `json:"subtotal" db:"subtotal"`
	Discount        decimal.Decimal `json:"discount" db:"discount"`
	DeliveryFee     decimal.Decimal `json:"delivery_fee" db:"delivery_fee"`
	Tax             decimal.Decimal `json:"tax" db:"tax"`
	Total           decimal.Decimal `json:"total" db:"total"`
	DeliveryAddress *string         `json:"delivery_address" db:"delivery_address"`
	DeliveryLat     *float64        `json:"delivery_lat" db:"delivery_lat"`
	DeliveryLng     *float64        `json:"delivery_lng" db:"delivery_lng"`
	ZoneID          *uuid.UUID      `json:"zone_id" db:"zone_id"`
	Notes           *string         `json:"notes" db:"notes"`
	CreatedBy       *uuid.UUID      `json:"created_by,omitempty" db:"created_by"`
	Items           []OrderItem     `json:"items,omitempty" db:"-"`
	CreatedAt       time.Time       `json:"created_at" db:"created_at"`
	UpdatedAt       time.Time       `json:"updated_at" db:"updated_at"`
}

type OrderItem struct {
	ID          uuid.UUID       `json:"id" db:"id"`
	TenantID    uuid.UUID       `json:"tenant_id" db:"tenant_id"`
	OrderID     uuid.UUID       `json:"order_id" db:"order_id"`
	ProductID   uuid.UUID       `json:"product_id" db:"product_id"`
	ProductName string          `json:"product_name" db:"product_name"`
	Quantity    int             `json:"quantity" db:"quantity"`
	UnitPrice   decimal.Decimal `json:"unit_price" db:"unit_price"`
	LineTotal   decimal.Decimal `json:"line_total" db:"line_total"`
}

// OrderEvent records one status change of an order.
type OrderEvent struct {
	ID         uuid.UUID    `json:"id" db:"id"`
	TenantID   uuid.UUID    `json:"tenant_id" db:"tenant_id"`
	OrderID    uuid.UUID    `json:"order_id" db:"order_id"`
	FromStatus *OrderStatus `json:"from_status" db:"from_status"`
	ToStatus   OrderStatus  `json:"to_status" db:"to_status"`
	ActorID    *uuid.UUID   `json:"actor_id" db:"actor_id"`
	Note       *string      `json:"note" db:"note"`
	CreatedAt  time.Time    `json:"created_at" db:"created_at"`
}

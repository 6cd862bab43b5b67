package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

type PaymentStatus string

const (
	PaymentUnpaid   PaymentStatus = "unpaid"
	PaymentPartial  PaymentStatus = "partial"
	PaymentPaid     PaymentStatus = "paid"
	PaymentRefunded PaymentStatus = "refunded"
)

// DerivePaymentStatus computes an order's payment status from its total and the settled amount.
// A zero-total order is paid as soon as it exists.
func DerivePaymentStatus(total, settled decimal.Decimal, refunded bool) PaymentStatus {
	switch {
	case settled.GreaterThanOrEqual(total):
		return PaymentPaid
	case settled.IsPositive():
		return PaymentPartial
	case refunded:
		return PaymentRefunded
	default:
		return PaymentUnpaid
	}
}

type PaymentMethod string

const (
	MethodCash         PaymentMethod = "cash"
	MethodCard         PaymentMethod = "card"
	MethodMobileMoney  PaymentMethod = "mobile_money"
	MethodBankTransfer PaymentMethod = "bank_transfer"
)

func (m PaymentMethod) IsValid() bool {
	switch m {
	case MethodCash, MethodCard, MethodMobileMoney, MethodBankTransfer:
		return true
	}
	return false
}

type PaymentState string

const (
	PaymentPending   PaymentState = "pending"
	PaymentSucceeded PaymentState = "succeeded"
	PaymentFailed    PaymentState = "failed"
	PaymentReversed  PaymentState = "refunded"
)

type Payment struct {
	ID        uuid.UUID       `json:"id" db:"id"`
	TenantID  uuid.UUID       `json:"tenant_id" db:"tenant_id"`
	OrderID   uuid.UUID       `json:"order_id" db:"order_id"`
	Method    PaymentMethod   `json:"method" db:"method"`
	Amount    decimal.Decimal `json:"amount" db:"amount"`
	Reference *string         `json:"reference" db:"reference"`
	Provider  *string         `json:"provider" db:"provider"`
	Status    PaymentState    `json:"status" db:"status"`
	CreatedBy *uuid.UUID      `json:"created_by,omitempty" db:"created_by"`
	CreatedAt time.Time       `json:"created_at" db:"created_at"`
	UpdatedAt time.Time       `json:"updated_at" db:"updated_at"`
}

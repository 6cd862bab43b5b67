// Package cart prices a basket. It holds no state; the portal keeps the basket client side.
package cart

import (
	"warehousepos/pkg/apperr"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// MaxLines bounds a single basket.
const MaxLines = 100

type Line struct {
	ProductID uuid.UUID       `json:"product_id"`
	Name      string          `json:"name"`
	Quantity  int             `json:"quantity"`
	UnitPrice decimal.Decimal `json:"unit_price"`
	LineTotal decimal.Decimal `json:"line_total"`
}

type Totals struct {
	Lines       []Line          `json:"lines"`
	Subtotal    decimal.Decimal `json:"subtotal"`
	Discount    decimal.Decimal `json:"discount"`
	DeliveryFee decimal.Decimal `json:"delivery_fee"`
	Tax         decimal.Decimal `json:"tax"`
	Total       decimal.Decimal `json:"total"`
}

// Money rounds to two places, halves away from zero.
func Money(d decimal.Decimal) decimal.Decimal {
	return d.Round(2)
}

// Merge folds repeated products into one line, keeping first-seen order.
func Merge(lines []Line) []Line {
	out := make([]Line, 0, len(lines))
	index := make(map[uuid.UUID]int, len(lines))
	for _, l := range lines {
		if i, ok := index[l.ProductID]; ok {
			out[i].Quantity += l.Quantity
			continue
		}
		index[l.ProductID] = len(out)
		out = append(out, l)
	}
	return out
}

// Compute prices lines and derives the order totals:
// total = subtotal - discount + deliveryFee + tax, with tax charged on subtotal - discount.
// A discount larger than the subtotal is capped at the subtotal.
func Compute(lines []Line, discount, deliveryFee, taxRate decimal.Decimal) (*Totals, error) {
	if len(lines) == 0 {
		return nil, apperr.New(apperr.CodeValidation, "cart is empty")
	}
	if len(lines) > MaxLines {
		return nil, apperr.Newf(apperr.CodeValidation, "cart cannot have more than %d lines", MaxLines)
	}
	if discount.IsNegative() {
		return nil, apperr.New(apperr.CodeValidation, "discount cannot be negative")
	}
	if deliveryFee.IsNegative() {
		return nil, apperr.New(apperr.CodeValidation, "delivery fee cannot be negative")
	}
	if taxRate.IsNegative() {
		return nil, apperr.New(apperr.CodeValidation, "tax rate cannot be negative")
	}

	t := &Totals{Lines: make([]Line, len(lines)), Subtotal: decimal.Zero}
	for i, l := range lines {
		if l.Quantity <= 0 {
			return nil, apperr.New(apperr.CodeValidation, "quantity must be at least 1").
				WithDetails(map[string]string{"product_id": l.ProductID.String()})
		}
		if l.UnitPrice.IsNegative() {
			return nil, apperr.New(apperr.CodeValidation, "unit price cannot be negative").
				WithDetails(map[string]string{"product_id": l.ProductID.String()})
		}
		l.UnitPrice = Money(l.UnitPrice)
		l.LineTotal = Money(l.UnitPrice.Mul(decimal.NewFromInt(int64(l.Quantity))))
		t.Lines[i] = l
		t.Subtotal = t.Subtotal.Add(l.LineTotal)
	}

	t.Discount = Money(decimal.Min(discount, t.Subtotal))
	t.DeliveryFee = Money(deliveryFee)
	t.Tax = Money(t.Subtotal.Sub(t.Discount).Mul(taxRate))
	t.Total = t.Subtotal.Sub(t.Discount).Add(t.DeliveryFee).Add(t.Tax)
	return t, nil
}
